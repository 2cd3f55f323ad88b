package repository

import (
	"context"
	"time"

	"github.com/arpit9377/ssb-insight-ai-sub001/internal/database"
	"github.com/arpit9377/ssb-insight-ai-sub001/internal/models"
)

// SessionStore is the persistence side of the session state machine. It
// implements session.Store on top of the shared GORM handle.
type SessionStore struct{}

func NewSessionStore() *SessionStore { return &SessionStore{} }

func (SessionStore) Create(ctx context.Context, s *models.TestSession) error {
	return database.DB.WithContext(ctx).Create(s).Error
}

func (SessionStore) Get(ctx context.Context, id string) (*models.TestSession, error) {
	var s models.TestSession
	result := database.DB.WithContext(ctx).First(&s, "id = ?", id)
	return &s, result.Error
}

func (SessionStore) UpdateIndex(ctx context.Context, id string, index int) (bool, error) {
	// The guard keeps the index monotonic even if a stale request lands
	// late; RowsAffected tells the caller whether its move was accepted.
	query := `UPDATE test_sessions SET current_index = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2 AND status = 'in_progress' AND current_index < $1`
	result := database.DB.WithContext(ctx).Exec(query, index, id)
	return result.RowsAffected == 1, result.Error
}

func (SessionStore) Complete(ctx context.Context, id string, finalIndex int) (bool, error) {
	// Exactly one caller wins this transition; concurrent completers see
	// zero rows and must not treat the session as freshly completed.
	query := `UPDATE test_sessions SET status = 'completed', current_index = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2 AND status = 'in_progress'`
	result := database.DB.WithContext(ctx).Exec(query, finalIndex, id)
	return result.RowsAffected == 1, result.Error
}

func (SessionStore) SaveResponse(ctx context.Context, r *models.Response) error {
	// Overwrite-by-prompt semantics: at most one response row per
	// (session, prompt) pair, last write wins.
	query := `INSERT INTO responses (session_id, prompt_key, text, elapsed_ms, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (session_id, prompt_key)
		DO UPDATE SET text = EXCLUDED.text, elapsed_ms = EXCLUDED.elapsed_ms, updated_at = EXCLUDED.updated_at;`
	return database.DB.WithContext(ctx).Exec(query, r.SessionID, r.PromptKey, r.Text, r.ElapsedMs, time.Now().UTC()).Error
}

// StaleInProgressSessionIDs lists sessions still marked in progress whose
// last mutation is older than the cutoff. Feeds the daily sweep that
// releases their in-memory machine state.
func StaleInProgressSessionIDs(ctx context.Context, cutoff time.Time) ([]string, error) {
	var ids []string
	err := database.DB.WithContext(ctx).
		Model(&models.TestSession{}).
		Where("status = ? AND updated_at < ?", models.StatusInProgress, cutoff).
		Pluck("id", &ids).Error
	return ids, err
}

// SessionsByOwner lists an owner's sessions, newest first, for the dashboard.
func SessionsByOwner(ctx context.Context, ownerKey string) ([]models.TestSession, error) {
	var sessions []models.TestSession
	err := database.DB.WithContext(ctx).
		Where("owner_key = ?", ownerKey).
		Order("created_at DESC").
		Find(&sessions).Error
	return sessions, err
}
