package router

import (
	"crypto/subtle"
	"net/http"

	"github.com/arpit9377/ssb-insight-ai-sub001/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	csrfSessionKey = "csrf_token"
	csrfHeaderKey  = "X-CSRF-Token"
)

// CSRFProtection issues a per-session token and requires it back in the
// X-CSRF-Token header on every unsafe method. The API is JSON-only, so
// there is no form fallback. GET responses expose the token in a header
// for the client to echo.
func CSRFProtection() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)

		token, ok := session.Get(csrfSessionKey).(string)
		if !ok || token == "" {
			fresh, err := utils.SecureToken(32)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to generate CSRF token"})
				return
			}
			token = fresh
			session.Set(csrfSessionKey, token)
			if err := session.Save(); err != nil {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to save session"})
				return
			}
		}

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Header(csrfHeaderKey, token)
		default:
			submitted := c.GetHeader(csrfHeaderKey)
			if subtle.ConstantTimeCompare([]byte(submitted), []byte(token)) != 1 {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid CSRF token"})
				return
			}
		}

		c.Next()
	}
}
