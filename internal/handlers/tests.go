package handlers

import (
	"errors"
	"net/http"

	"github.com/arpit9377/ssb-insight-ai-sub001/internal/identity"
	"github.com/arpit9377/ssb-insight-ai-sub001/internal/ledger"
	"github.com/arpit9377/ssb-insight-ai-sub001/internal/models"
	"github.com/arpit9377/ssb-insight-ai-sub001/internal/repository"
	"github.com/arpit9377/ssb-insight-ai-sub001/internal/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type TestHandler struct {
	log     *zap.Logger
	machine *session.Machine
	ledger  *ledger.Service
	content *models.Content
}

func NewTestHandler(log *zap.Logger, machine *session.Machine, ledgerSvc *ledger.Service, content *models.Content) *TestHandler {
	return &TestHandler{log: log, machine: machine, ledger: ledgerSvc, content: content}
}

// Limits reports the caller's remaining attempts per test type.
func (h *TestHandler) Limits(c *gin.Context) {
	id := currentIdentity(c)
	limits, err := h.ledger.Limits(c, id, newSessionKV(c))
	if err != nil {
		h.log.Error("Failed to read usage limits", zap.String("owner", id.Key), zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorJSON("could not read usage limits"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"limits": limits})
}

type startRequest struct {
	TestType string `json:"testType" binding:"required"`
}

// Start creates a new test session after the availability check. The
// attempt is charged at completion, not here; abandoning a session does
// not consume an attempt.
func (h *TestHandler) Start(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorJSON("testType is required"))
		return
	}
	testType, err := models.ParseTestType(req.TestType)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorJSON(err.Error()))
		return
	}

	id := currentIdentity(c)
	if !h.ledger.CheckAvailability(c, id, newSessionKV(c), testType) {
		c.JSON(http.StatusForbidden, errorJSON(ledger.ErrLimitExceeded.Error()))
		return
	}

	policy := h.machine.Policy(testType)
	order := h.content.SampleOrder(testType, policy.PromptCount)
	s, err := h.machine.Create(c, id, testType, order)
	if err != nil {
		h.log.Error("Failed to create session",
			zap.String("owner", id.Key),
			zap.String("test_type", string(testType)),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, errorJSON("could not start test"))
		return
	}

	c.JSON(http.StatusCreated, h.sessionState(c, s))
}

// State returns the live view of one session: cursor, prompt, countdown
// and any pending time-up notice.
func (h *TestHandler) State(c *gin.Context) {
	s, ok := h.loadOwnSession(c)
	if !ok {
		return
	}
	h.settleGuestIfCompleted(c, s)
	c.JSON(http.StatusOK, h.sessionState(c, s))
}

type draftRequest struct {
	Text string `json:"text"`
}

// Draft stores the unsaved answer for the current prompt so a timer
// expiry can auto-submit it.
func (h *TestHandler) Draft(c *gin.Context) {
	s, ok := h.loadOwnSession(c)
	if !ok {
		return
	}
	if s.Status != models.StatusInProgress {
		c.JSON(http.StatusConflict, errorJSON(session.ErrInvalidState.Error()))
		return
	}
	var req draftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorJSON("invalid draft payload"))
		return
	}
	h.machine.SaveDraft(s.ID, req.Text)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type submitRequest struct {
	Text      string `json:"text" binding:"required"`
	ElapsedMs int    `json:"elapsedMs"`
}

// Submit saves the answer for the current prompt. Resubmitting the same
// prompt overwrites.
func (h *TestHandler) Submit(c *gin.Context) {
	s, ok := h.loadOwnSession(c)
	if !ok {
		return
	}
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorJSON("text is required"))
		return
	}

	promptKey, ok := s.CurrentPromptKey()
	if !ok {
		c.JSON(http.StatusConflict, errorJSON(session.ErrInvalidState.Error()))
		return
	}

	err := h.machine.SubmitResponse(c, s, promptKey, req.Text, req.ElapsedMs)
	switch {
	case errors.Is(err, session.ErrInvalidState):
		c.JSON(http.StatusConflict, errorJSON(err.Error()))
	case errors.Is(err, session.ErrBlankResponse):
		c.JSON(http.StatusBadRequest, errorJSON(err.Error()))
	case err != nil:
		h.log.Error("Failed to save response", zap.String("session", s.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorJSON("could not save response"))
	default:
		c.JSON(http.StatusOK, gin.H{"ok": true, "promptKey": promptKey})
	}
}

// Advance moves to the next prompt, or completes the session past the
// last one.
func (h *TestHandler) Advance(c *gin.Context) {
	s, ok := h.loadOwnSession(c)
	if !ok {
		return
	}

	s, err := h.machine.Advance(c, s)
	if errors.Is(err, session.ErrInvalidState) {
		c.JSON(http.StatusConflict, errorJSON(err.Error()))
		return
	}
	if err != nil {
		h.log.Error("Failed to advance session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorJSON("could not advance"))
		return
	}

	h.settleGuestIfCompleted(c, s)
	c.JSON(http.StatusOK, h.sessionState(c, s))
}

// loadOwnSession fetches the session in the URL and checks it belongs to
// the caller. Someone else's session id reads as not found.
func (h *TestHandler) loadOwnSession(c *gin.Context) (*models.TestSession, bool) {
	s, err := repository.NewSessionStore().Get(c, c.Param("id"))
	if err != nil || s.OwnerKey != currentIdentity(c).Key {
		c.JSON(http.StatusNotFound, errorJSON("session not found"))
		return nil, false
	}
	return s, true
}

// settleGuestIfCompleted charges a guest's attempt once their session
// completes. Registered owners are charged by the completion hook; guests
// keep their counts in the cookie, which only a request can write, so the
// charge lands here. The settled flag makes reloads idempotent.
func (h *TestHandler) settleGuestIfCompleted(c *gin.Context, s *models.TestSession) {
	if s.Status != models.StatusCompleted || !identity.IsGuestKey(s.OwnerKey) {
		return
	}
	kv := newSessionKV(c)
	if _, done := kv.Get(guestSettledKey(s.ID)); done {
		return
	}
	id := identity.GuestFromToken(s.OwnerKey)
	if _, err := h.ledger.Decrement(c, id, kv, s.TestType); err != nil {
		h.log.Error("Failed to settle guest usage", zap.String("session", s.ID), zap.Error(err))
		return
	}
	if err := kv.Set(guestSettledKey(s.ID), "1"); err != nil {
		h.log.Error("Failed to persist guest settlement flag", zap.String("session", s.ID), zap.Error(err))
	}
}

// sessionState is the wire view of a session for the test-taking UI.
func (h *TestHandler) sessionState(c *gin.Context, s *models.TestSession) gin.H {
	state := gin.H{
		"sessionID":    s.ID,
		"testType":     s.TestType,
		"status":       s.Status,
		"currentIndex": s.CurrentIndex,
		"promptCount":  s.PromptCount(),
	}

	if promptKey, ok := s.CurrentPromptKey(); ok {
		state["promptKey"] = promptKey
		if prompt, ok := h.content.PromptAt(s.TestType, s.PromptOrder[s.CurrentIndex]); ok {
			state["prompt"] = prompt
		}
	}
	if remaining, ok := h.machine.TimeLeft(s.ID); ok {
		state["secondsLeft"] = remaining
	}
	if notice, ok := h.machine.Notice(s.ID); ok {
		state["notice"] = notice
	}
	return state
}
