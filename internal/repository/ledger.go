package repository

import (
	"context"
	"fmt"

	"github.com/arpit9377/ssb-insight-ai-sub001/internal/database"
	"github.com/arpit9377/ssb-insight-ai-sub001/internal/identity"
	"github.com/arpit9377/ssb-insight-ai-sub001/internal/models"

	"gorm.io/gorm"
)

// LedgerStore is the registered-identity side of the usage ledger. It
// implements ledger.RegisteredStore. Rows are seeded lazily on first read,
// at the tier matching the owner's subscription.
type LedgerStore struct {
	FreeAttempts    int
	PremiumAttempts int
}

func NewLedgerStore(freeAttempts, premiumAttempts int) *LedgerStore {
	return &LedgerStore{FreeAttempts: freeAttempts, PremiumAttempts: premiumAttempts}
}

func (l *LedgerStore) Limits(ctx context.Context, ownerKey string) (map[models.TestType]int, error) {
	var entries []models.UsageLedgerEntry
	err := database.DB.WithContext(ctx).
		Where("owner_key = ?", ownerKey).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("read ledger for %s: %w", ownerKey, err)
	}

	limits := make(map[models.TestType]int, len(models.AllTestTypes()))
	for _, e := range entries {
		limits[e.TestType] = e.Remaining
	}

	// Seed missing rows at the owner's current tier. ON CONFLICT keeps
	// concurrent first reads from double-seeding.
	var missing []models.TestType
	for _, t := range models.AllTestTypes() {
		if _, ok := limits[t]; !ok {
			missing = append(missing, t)
		}
	}
	if len(missing) == 0 {
		return limits, nil
	}

	seed, err := l.seedCount(ctx, ownerKey)
	if err != nil {
		return nil, err
	}
	insert := `INSERT INTO usage_ledger_entries (owner_key, test_type, remaining, created_at, updated_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT (owner_key, test_type) DO NOTHING;`
	for _, t := range missing {
		if err := database.DB.WithContext(ctx).Exec(insert, ownerKey, t, seed).Error; err != nil {
			return nil, fmt.Errorf("seed ledger for %s: %w", ownerKey, err)
		}
		limits[t] = seed
	}
	return limits, nil
}

// Decrement is the atomic check-and-subtract. The availability check and
// the subtraction are one statement, so two concurrent requests that both
// see remaining=1 cannot both win: the row predicate admits only one.
func (l *LedgerStore) Decrement(ctx context.Context, ownerKey string, t models.TestType) (bool, error) {
	query := `UPDATE usage_ledger_entries
		SET remaining = remaining - 1, updated_at = CURRENT_TIMESTAMP
		WHERE owner_key = $1 AND test_type = $2 AND remaining > 0`
	result := database.DB.WithContext(ctx).Exec(query, ownerKey, t)
	if result.Error != nil {
		return false, fmt.Errorf("decrement ledger for %s/%s: %w", ownerKey, t, result.Error)
	}
	return result.RowsAffected == 1, nil
}

// Elevate moves an owner to the paid tier: the subscription flag on the
// user row and all ledger counters, in one transaction. Re-running it is
// harmless, which keeps duplicate payment webhooks safe.
func (l *LedgerStore) Elevate(ctx context.Context, ownerKey string) error {
	userID, err := identity.UserIDFromKey(ownerKey)
	if err != nil {
		return err
	}

	return database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.User{}).
			Where("id = ?", userID).
			Updates(map[string]interface{}{
				"subscription_active": true,
				"subscribed_at":       gorm.Expr("COALESCE(subscribed_at, CURRENT_TIMESTAMP)"),
			}).Error
		if err != nil {
			return err
		}

		upsert := `INSERT INTO usage_ledger_entries (owner_key, test_type, remaining, created_at, updated_at)
			VALUES ($1, $2, $3, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
			ON CONFLICT (owner_key, test_type) DO UPDATE SET remaining = EXCLUDED.remaining, updated_at = CURRENT_TIMESTAMP;`
		for _, t := range models.AllTestTypes() {
			if err := tx.Exec(upsert, ownerKey, t, l.PremiumAttempts).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (l *LedgerStore) seedCount(ctx context.Context, ownerKey string) (int, error) {
	userID, err := identity.UserIDFromKey(ownerKey)
	if err != nil {
		return 0, err
	}
	var user models.User
	if err := database.DB.WithContext(ctx).First(&user, userID).Error; err != nil {
		return 0, fmt.Errorf("look up owner %s: %w", ownerKey, err)
	}
	if user.SubscriptionActive {
		return l.PremiumAttempts, nil
	}
	return l.FreeAttempts, nil
}
