package repository

import (
	"context"

	"github.com/arpit9377/ssb-insight-ai-sub001/internal/database"
)

// LeaderboardEntry is one row of the public leaderboard. Only registered
// users appear; guests have nothing durable to rank.
type LeaderboardEntry struct {
	UserID         uint   `json:"-"`
	DisplayName    string `json:"displayName"`
	CompletedTests int    `json:"completedTests"`
	CurrentStreak  int    `json:"currentStreak"`
}

// Leaderboard returns the top users by completed tests, streak breaking
// ties.
func Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	var entries []LeaderboardEntry
	query := `
		SELECT
			u.id AS user_id,
			u.first_name AS display_name,
			COUNT(s.id) AS completed_tests,
			u.current_streak AS current_streak
		FROM users u
		LEFT JOIN test_sessions s
			ON s.owner_key = 'user_' || u.id AND s.status = 'completed'
		GROUP BY u.id, u.first_name, u.current_streak
		ORDER BY completed_tests DESC, current_streak DESC, u.id ASC
		LIMIT ?;
	`
	err := database.DB.WithContext(ctx).Raw(query, limit).Scan(&entries).Error
	return entries, err
}
