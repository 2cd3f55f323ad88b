package handlers

import (
	"net/http"

	"github.com/arpit9377/ssb-insight-ai-sub001/internal/models"
	"github.com/arpit9377/ssb-insight-ai-sub001/internal/repository"
	"github.com/arpit9377/ssb-insight-ai-sub001/internal/scoring"
	"github.com/arpit9377/ssb-insight-ai-sub001/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ResultsHandler struct {
	log        *zap.Logger
	dispatcher *services.Dispatcher
}

func NewResultsHandler(log *zap.Logger, dispatcher *services.Dispatcher) *ResultsHandler {
	return &ResultsHandler{log: log, dispatcher: dispatcher}
}

// Dashboard lists the caller's sessions, newest first.
func (h *ResultsHandler) Dashboard(c *gin.Context) {
	id := currentIdentity(c)
	sessions, err := repository.SessionsByOwner(c, id.Key)
	if err != nil {
		h.log.Error("Failed to list sessions", zap.String("owner", id.Key), zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorJSON("could not load sessions"))
		return
	}

	items := make([]gin.H, 0, len(sessions))
	for _, s := range sessions {
		items = append(items, gin.H{
			"sessionID":      s.ID,
			"testType":       s.TestType,
			"status":         s.Status,
			"analysisStatus": s.AnalysisStatus,
			"overallScore":   s.OverallScore,
			"createdAt":      s.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"sessions": items})
}

// Show returns the full result view of one completed session: responses
// with feedback, trait scores with their descriptions, and response
// statistics.
func (h *ResultsHandler) Show(c *gin.Context) {
	s, ok := h.loadOwnSession(c)
	if !ok {
		return
	}

	responses, err := repository.ResponsesForSession(c, s.ID)
	if err != nil {
		h.log.Error("Failed to load responses", zap.String("session", s.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorJSON("could not load result"))
		return
	}
	traitScores, err := repository.TraitScoresForSession(c, s.ID)
	if err != nil {
		h.log.Error("Failed to load trait scores", zap.String("session", s.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorJSON("could not load result"))
		return
	}

	traits := make([]gin.H, 0, len(traitScores))
	for _, ts := range traitScores {
		meta := ts.Category.Meta()
		traits = append(traits, gin.H{
			"category":    ts.Category.String(),
			"label":       meta.Label,
			"description": meta.Description,
			"score":       ts.Score,
		})
	}

	answers := make([]gin.H, 0, len(responses))
	for _, r := range responses {
		answers = append(answers, gin.H{
			"promptKey": r.PromptKey,
			"text":      r.Text,
			"elapsedMs": r.ElapsedMs,
			"feedback":  r.Feedback,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"sessionID":      s.ID,
		"testType":       s.TestType,
		"status":         s.Status,
		"analysisStatus": s.AnalysisStatus,
		"overallScore":   s.OverallScore,
		"responses":      answers,
		"traits":         traits,
		"stats":          scoring.ComputeResponseStats(responses, s.PromptCount()),
	})
}

// RetryAnalysis re-dispatches a completed session whose analysis failed.
func (h *ResultsHandler) RetryAnalysis(c *gin.Context) {
	s, ok := h.loadOwnSession(c)
	if !ok {
		return
	}
	if s.Status != models.StatusCompleted {
		c.JSON(http.StatusConflict, errorJSON("session is not completed"))
		return
	}
	if s.AnalysisStatus == models.AnalysisPending || s.AnalysisStatus == models.AnalysisComplete {
		c.JSON(http.StatusConflict, errorJSON("analysis is not in a retryable state"))
		return
	}

	premium := false
	if userID, ok := currentUserID(c); ok {
		if user, err := repository.GetUserByID(c, userID); err == nil {
			premium = user.SubscriptionActive
		}
	}
	h.dispatcher.Retry(s, premium)
	c.JSON(http.StatusAccepted, gin.H{"ok": true})
}

func (h *ResultsHandler) loadOwnSession(c *gin.Context) (*models.TestSession, bool) {
	s, err := repository.NewSessionStore().Get(c, c.Param("id"))
	if err != nil || s.OwnerKey != currentIdentity(c).Key {
		c.JSON(http.StatusNotFound, errorJSON("session not found"))
		return nil, false
	}
	return s, true
}
