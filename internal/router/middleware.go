package router

import (
	"github.com/arpit9377/ssb-insight-ai-sub001/internal/identity"
	"github.com/arpit9377/ssb-insight-ai-sub001/internal/repository"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	identityContextKey = "identity"
	userIDContextKey   = "userID"

	sessionUserKey  = "userID"
	sessionGuestKey = "guestToken"
)

// IdentityMiddleware resolves who this request belongs to. A session with
// a valid userID is a registered identity; anything else gets a guest
// token, minted on first contact and kept in the cookie session so the
// guest's ledger and sessions stay attached to them across requests.
func IdentityMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)

		if userID, ok := session.Get(sessionUserKey).(uint); ok {
			if _, err := repository.GetUserByID(c.Request.Context(), userID); err == nil {
				c.Set(identityContextKey, identity.FromUserID(userID))
				c.Set(userIDContextKey, userID)
				c.Next()
				return
			}
			// Stale session for a deleted user; drop it and fall through
			// to guest handling.
			log.Warn("Session references missing user", zap.Uint("user_id", userID))
			session.Clear()
		}

		if token, ok := session.Get(sessionGuestKey).(string); ok && identity.IsGuestKey(token) {
			c.Set(identityContextKey, identity.GuestFromToken(token))
			c.Next()
			return
		}

		guest := identity.NewGuest()
		session.Set(sessionGuestKey, guest.Key)
		if err := session.Save(); err != nil {
			log.Error("Failed to persist guest token", zap.Error(err))
		}
		c.Set(identityContextKey, guest)
		c.Next()
	}
}
