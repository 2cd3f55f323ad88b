// Package handlers contains the JSON API surface. Handlers hold no domain
// logic: they translate HTTP to calls on the ledger, the session machine
// and the repositories, and map domain errors to status codes.
package handlers

import (
	"fmt"

	"github.com/arpit9377/ssb-insight-ai-sub001/internal/identity"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	// Context keys set by the identity middleware.
	ctxIdentity = "identity"
	ctxUserID   = "userID"

	// Cookie-session keys.
	sessionUserKey  = "userID"
	sessionGuestKey = "guestToken"
)

// sessionKV adapts a gin cookie session to the ledger's KV capability. Set
// saves eagerly so the Set-Cookie header goes out even if the handler
// writes the body first on a later code path.
type sessionKV struct {
	s sessions.Session
}

func newSessionKV(c *gin.Context) sessionKV {
	return sessionKV{s: sessions.Default(c)}
}

func (kv sessionKV) Get(key string) (string, bool) {
	v := kv.s.Get(key)
	if v == nil {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

func (kv sessionKV) Set(key, value string) error {
	kv.s.Set(key, value)
	return kv.s.Save()
}

// currentIdentity returns the identity the middleware resolved for this
// request.
func currentIdentity(c *gin.Context) identity.Identity {
	if v, ok := c.Get(ctxIdentity); ok {
		if id, ok := v.(identity.Identity); ok {
			return id
		}
	}
	// The middleware guarantees an identity; reaching here means a route
	// was registered outside it.
	return identity.NewGuest()
}

func currentUserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(ctxUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

func errorJSON(message string) gin.H {
	return gin.H{"error": message}
}

// guestSettledKey marks a guest session whose usage was already charged,
// so a page reload after completion cannot charge twice.
func guestSettledKey(sessionID string) string {
	return fmt.Sprintf("settled_%s", sessionID)
}
