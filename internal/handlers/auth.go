package handlers

import (
	"net/http"

	"github.com/arpit9377/ssb-insight-ai-sub001/internal/identity"
	"github.com/arpit9377/ssb-insight-ai-sub001/internal/repository"
	"github.com/arpit9377/ssb-insight-ai-sub001/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	log      *zap.Logger
	resolver *identity.Resolver
}

func NewAuthHandler(log *zap.Logger, resolver *identity.Resolver) *AuthHandler {
	return &AuthHandler{log: log, resolver: resolver}
}

type registerRequest struct {
	Email     string           `json:"email" binding:"required"`
	Password  string           `json:"password" binding:"required"`
	FirstName string           `json:"firstName" binding:"required"`
	LastName  string           `json:"lastName"`
	Device    identity.Signals `json:"device"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorJSON("email, password and firstName are required"))
		return
	}
	if !utils.ValidEmail(req.Email) {
		c.JSON(http.StatusBadRequest, errorJSON("invalid email address"))
		return
	}
	if !utils.ValidPassword(req.Password) {
		c.JSON(http.StatusBadRequest, errorJSON("password must be at least 8 characters and mix letter cases, digits or symbols"))
		return
	}

	fingerprint := identity.ComputeFingerprint(req.Device)
	if allowed, count := h.resolver.CheckDeviceLimit(c, fingerprint); !allowed {
		h.log.Warn("Registration blocked by device account cap",
			zap.String("fingerprint", fingerprint),
			zap.Int("accounts", count),
		)
		c.JSON(http.StatusForbidden, errorJSON("account limit reached for this device"))
		return
	}

	user, err := repository.CreateUser(req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		h.log.Error("Failed to create user", zap.String("email", req.Email), zap.Error(err))
		c.JSON(http.StatusConflict, errorJSON("could not register with that email"))
		return
	}

	id := identity.FromUserID(user.ID)
	h.resolver.RecordSighting(c, id, fingerprint)

	session := sessions.Default(c)
	session.Set(sessionUserKey, user.ID)
	if err := session.Save(); err != nil {
		h.log.Error("Failed to save session after registration", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorJSON("failed to establish session"))
		return
	}

	h.log.Info("User registered", zap.Uint("user_id", user.ID))
	c.JSON(http.StatusCreated, gin.H{"userID": user.ID, "email": user.Email})
}

type loginRequest struct {
	Email    string           `json:"email" binding:"required"`
	Password string           `json:"password" binding:"required"`
	Device   identity.Signals `json:"device"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorJSON("email and password are required"))
		return
	}

	user, err := repository.GetUserByEmail(c, req.Email)
	if err != nil || !user.CheckPassword(req.Password) {
		c.JSON(http.StatusUnauthorized, errorJSON("invalid email or password"))
		return
	}

	id := identity.FromUserID(user.ID)
	h.resolver.RecordSighting(c, id, identity.ComputeFingerprint(req.Device))

	session := sessions.Default(c)
	session.Set(sessionUserKey, user.ID)
	// A login supersedes any guest state in the same cookie.
	session.Delete(sessionGuestKey)
	if err := session.Save(); err != nil {
		h.log.Error("Failed to save session after login", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorJSON("failed to establish session"))
		return
	}

	c.JSON(http.StatusOK, gin.H{"userID": user.ID, "email": user.Email, "firstName": user.FirstName})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, errorJSON("failed to logout"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Me reports who the current cookie session belongs to.
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"guest": true})
		return
	}
	user, err := repository.GetUserByID(c, userID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, errorJSON("session user no longer exists"))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"guest":              false,
		"userID":             user.ID,
		"email":              user.Email,
		"firstName":          user.FirstName,
		"subscriptionActive": user.SubscriptionActive,
		"currentStreak":      user.CurrentStreak,
		"longestStreak":      user.LongestStreak,
	})
}
