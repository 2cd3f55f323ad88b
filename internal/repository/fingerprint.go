package repository

import (
	"context"

	"github.com/arpit9377/ssb-insight-ai-sub001/internal/database"
	"github.com/arpit9377/ssb-insight-ai-sub001/internal/models"
)

// SightingStore implements identity.SightingStore over the shared GORM
// handle. Rows accumulate; nothing deletes them automatically.
type SightingStore struct{}

func NewSightingStore() *SightingStore { return &SightingStore{} }

func (SightingStore) Upsert(ctx context.Context, fingerprint, ownerKey string) error {
	query := `INSERT INTO device_fingerprints (fingerprint, owner_key, first_seen_at, last_seen_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT (fingerprint, owner_key) DO UPDATE SET last_seen_at = CURRENT_TIMESTAMP;`
	return database.DB.WithContext(ctx).Exec(query, fingerprint, ownerKey).Error
}

func (SightingStore) CountOwners(ctx context.Context, fingerprint string) (int, error) {
	var count int64
	err := database.DB.WithContext(ctx).
		Model(&models.DeviceFingerprint{}).
		Where("fingerprint = ?", fingerprint).
		Distinct("owner_key").
		Count(&count).Error
	return int(count), err
}
