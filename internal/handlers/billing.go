package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"github.com/arpit9377/ssb-insight-ai-sub001/internal/identity"
	"github.com/arpit9377/ssb-insight-ai-sub001/internal/ledger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BillingHandler receives payment-provider webhooks and elevates the paying
// user's ledger tier. The provider retries deliveries, so activation must
// be idempotent; the ledger's Elevate is.
type BillingHandler struct {
	log    *zap.Logger
	ledger *ledger.Service
	secret string
}

func NewBillingHandler(log *zap.Logger, ledgerSvc *ledger.Service, secret string) *BillingHandler {
	return &BillingHandler{log: log, ledger: ledgerSvc, secret: secret}
}

type webhookEvent struct {
	Event  string `json:"event"`
	UserID uint   `json:"userId"`
}

// Webhook verifies the provider's HMAC signature and applies the event.
// Only payment.captured elevates; everything else is acknowledged and
// dropped.
func (h *BillingHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorJSON("unreadable body"))
		return
	}

	if !h.verifySignature(body, c.GetHeader("X-Webhook-Signature")) {
		h.log.Warn("Webhook signature verification failed", zap.String("ip", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, errorJSON("invalid signature"))
		return
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.JSON(http.StatusBadRequest, errorJSON("malformed event"))
		return
	}

	if event.Event != "payment.captured" {
		c.JSON(http.StatusOK, gin.H{"ignored": event.Event})
		return
	}

	ownerKey := identity.FromUserID(event.UserID).Key
	if err := h.ledger.ActivateSubscription(c, ownerKey); err != nil {
		h.log.Error("Failed to activate subscription",
			zap.Uint("user_id", event.UserID),
			zap.Error(err),
		)
		// Non-2xx asks the provider to retry the delivery.
		c.JSON(http.StatusInternalServerError, errorJSON("activation failed"))
		return
	}

	h.log.Info("Subscription activated", zap.Uint("user_id", event.UserID))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *BillingHandler) verifySignature(body []byte, signature string) bool {
	if h.secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
