package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func signBody(secret, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

func postWebhook(h *BillingHandler, body, signature string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/webhooks/payment", h.Webhook)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/payment", strings.NewReader(body))
	if signature != "" {
		req.Header.Set("X-Webhook-Signature", signature)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	h := NewBillingHandler(zap.NewNop(), nil, "topsecret")
	w := postWebhook(h, `{"event":"payment.captured","userId":7}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebhookRejectsWrongSignature(t *testing.T) {
	h := NewBillingHandler(zap.NewNop(), nil, "topsecret")
	body := `{"event":"payment.captured","userId":7}`
	w := postWebhook(h, body, signBody("wrong-secret", body))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebhookRejectsEverythingWithoutConfiguredSecret(t *testing.T) {
	h := NewBillingHandler(zap.NewNop(), nil, "")
	body := `{"event":"payment.captured","userId":7}`
	w := postWebhook(h, body, signBody("", body))
	assert.Equal(t, http.StatusUnauthorized, w.Code, "an empty secret must never verify")
}

func TestWebhookIgnoresUnknownEvents(t *testing.T) {
	h := NewBillingHandler(zap.NewNop(), nil, "topsecret")
	body := `{"event":"payment.refunded","userId":7}`
	w := postWebhook(h, body, signBody("topsecret", body))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ignored")
}

func TestWebhookRejectsMalformedEvent(t *testing.T) {
	h := NewBillingHandler(zap.NewNop(), nil, "topsecret")
	body := `{"event":`
	w := postWebhook(h, body, signBody("topsecret", body))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
