package repository

import (
	"context"

	"github.com/arpit9377/ssb-insight-ai-sub001/internal/database"
	"github.com/arpit9377/ssb-insight-ai-sub001/internal/models"
)

// ResponsesForSession returns a session's responses in submission order.
func ResponsesForSession(ctx context.Context, sessionID string) ([]models.Response, error) {
	var responses []models.Response
	err := database.DB.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&responses).Error
	return responses, err
}

// AttachFeedback stores the analysis comment on one response.
func AttachFeedback(ctx context.Context, sessionID, promptKey, comment string) error {
	return database.DB.WithContext(ctx).
		Model(&models.Response{}).
		Where("session_id = ? AND prompt_key = ?", sessionID, promptKey).
		Update("feedback", comment).Error
}

// SaveTraitScores upserts the session's aggregate trait ratings. A retried
// analysis replaces earlier scores instead of duplicating them.
func SaveTraitScores(ctx context.Context, sessionID string, scores []models.TraitScore) error {
	query := `INSERT INTO trait_scores (session_id, category, score, created_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		ON CONFLICT (session_id, category) DO UPDATE SET score = EXCLUDED.score;`
	for _, s := range scores {
		if err := database.DB.WithContext(ctx).Exec(query, sessionID, s.Category, s.Score).Error; err != nil {
			return err
		}
	}
	return nil
}

// TraitScoresForSession returns the session's trait ratings.
func TraitScoresForSession(ctx context.Context, sessionID string) ([]models.TraitScore, error) {
	var scores []models.TraitScore
	err := database.DB.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("category ASC").
		Find(&scores).Error
	return scores, err
}

// SetAnalysisStatus records where a completed session stands in the
// feedback lifecycle, plus the overall score once known.
func SetAnalysisStatus(ctx context.Context, sessionID string, status models.AnalysisStatus, overallScore float64) error {
	return database.DB.WithContext(ctx).
		Model(&models.TestSession{}).
		Where("id = ?", sessionID).
		Updates(map[string]interface{}{"analysis_status": status, "overall_score": overallScore}).Error
}
