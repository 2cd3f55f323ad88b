package handlers

import (
	"net/http"
	"strconv"

	"github.com/arpit9377/ssb-insight-ai-sub001/internal/repository"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type LeaderboardHandler struct {
	log *zap.Logger
}

func NewLeaderboardHandler(log *zap.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{log: log}
}

// Show returns the top users by completed tests.
func (h *LeaderboardHandler) Show(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit > 100 {
		limit = 100
	}
	entries, err := repository.Leaderboard(c, limit)
	if err != nil {
		h.log.Error("Failed to load leaderboard", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorJSON("could not load leaderboard"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
}
