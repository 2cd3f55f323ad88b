package identity

import (
	"context"

	"go.uber.org/zap"
)

// SightingStore is the persistence capability the resolver needs.
type SightingStore interface {
	// Upsert records that an owner was seen under a fingerprint, bumping
	// the last-seen timestamp on repeat visits.
	Upsert(ctx context.Context, fingerprint, ownerKey string) error
	// CountOwners returns how many distinct registered identities have
	// ever been seen under a fingerprint.
	CountOwners(ctx context.Context, fingerprint string) (int, error)
}

// Resolver answers "how many accounts has this device seen" and records
// device sightings. All of it is advisory: the signals come from the
// client, so the resolver is a speed bump against casual multi-accounting,
// nothing more.
type Resolver struct {
	log         *zap.Logger
	store       SightingStore
	maxAccounts int
}

func NewResolver(log *zap.Logger, store SightingStore, maxAccounts int) *Resolver {
	if maxAccounts <= 0 {
		maxAccounts = 2
	}
	return &Resolver{log: log, store: store, maxAccounts: maxAccounts}
}

// RecordSighting upserts a (device, identity) pairing. Guests are skipped:
// only registered identities count against the device cap. Failures are
// logged, not returned; this is telemetry, losing a row must never fail
// the request that carried it.
func (r *Resolver) RecordSighting(ctx context.Context, id Identity, fingerprint string) {
	if id.Kind != Registered || fingerprint == "" {
		return
	}
	if err := r.store.Upsert(ctx, fingerprint, id.Key); err != nil {
		r.log.Warn("Failed to record device sighting",
			zap.String("owner", id.Key),
			zap.Error(err),
		)
	}
}

// CheckDeviceLimit reports whether another account may be created on this
// device, along with the number of accounts already seen. Lookup failures
// allow the registration: the cap is advisory and must not lock users out
// on a transient datastore error.
func (r *Resolver) CheckDeviceLimit(ctx context.Context, fingerprint string) (allowed bool, accountCount int) {
	if fingerprint == "" {
		return true, 0
	}
	count, err := r.store.CountOwners(ctx, fingerprint)
	if err != nil {
		r.log.Warn("Failed to count device identities", zap.Error(err))
		return true, 0
	}
	return count < r.maxAccounts, count
}
