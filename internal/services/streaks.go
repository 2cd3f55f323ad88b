package services

import (
	"context"
	"time"

	"github.com/arpit9377/ssb-insight-ai-sub001/internal/identity"
	"github.com/arpit9377/ssb-insight-ai-sub001/internal/repository"

	"go.uber.org/zap"
)

// StreakService keeps the per-user daily practice streak. A streak
// extends when the user completes a test on the calendar day after the
// previous completion, stays put on a second completion the same day, and
// otherwise restarts at one. Days are UTC calendar days.
type StreakService struct {
	log *zap.Logger
}

func NewStreakService(log *zap.Logger) *StreakService {
	return &StreakService{log: log}
}

// RecordCompletion updates the streak for the owner of a just-completed
// session. Guests carry no streak.
func (s *StreakService) RecordCompletion(ctx context.Context, ownerKey string, completedAt time.Time) {
	if identity.IsGuestKey(ownerKey) {
		return
	}
	userID, err := identity.UserIDFromKey(ownerKey)
	if err != nil {
		s.log.Warn("Unparseable owner key for streak update", zap.String("owner", ownerKey), zap.Error(err))
		return
	}

	user, err := repository.GetUserByID(ctx, userID)
	if err != nil {
		s.log.Error("Failed to load user for streak update", zap.Uint("user_id", userID), zap.Error(err))
		return
	}

	current := nextStreak(user.LastCompletedAt, user.CurrentStreak, completedAt)
	longest := user.LongestStreak
	if current > longest {
		longest = current
	}

	if err := repository.UpdateStreak(ctx, userID, current, longest, completedAt); err != nil {
		s.log.Error("Failed to persist streak", zap.Uint("user_id", userID), zap.Error(err))
		return
	}
	s.log.Info("Streak updated",
		zap.Uint("user_id", userID),
		zap.Int("current_streak", current),
		zap.Int("longest_streak", longest),
	)
}

func nextStreak(last *time.Time, current int, completedAt time.Time) int {
	if last == nil || current == 0 {
		return 1
	}
	lastDay := utcMidnight(*last)
	thisDay := utcMidnight(completedAt)
	switch thisDay.Sub(lastDay) {
	case 0:
		return current
	case 24 * time.Hour:
		return current + 1
	default:
		return 1
	}
}

func utcMidnight(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
