// Package ledger is the sole arbiter of "can this identity start test type
// T". Remaining-attempt counts live server-side for registered identities
// and in the cookie session for guests; nothing else in the application
// writes those counts.
package ledger

import (
	"context"
	"errors"

	"github.com/arpit9377/ssb-insight-ai-sub001/internal/identity"
	"github.com/arpit9377/ssb-insight-ai-sub001/internal/models"

	"go.uber.org/zap"
)

// ErrLimitExceeded is returned when an identity has no attempts left for a
// test type. It is user-visible and blocks session creation.
var ErrLimitExceeded = errors.New("usage limit exceeded")

// RegisteredStore is the server-persisted path. Decrement must be a single
// atomic check-and-subtract: two concurrent calls that both see remaining=1
// must not both succeed.
type RegisteredStore interface {
	Limits(ctx context.Context, ownerKey string) (map[models.TestType]int, error)
	Decrement(ctx context.Context, ownerKey string, t models.TestType) (bool, error)
	Elevate(ctx context.Context, ownerKey string) error
}

// Service routes ledger operations to the store matching the identity kind.
type Service struct {
	log           *zap.Logger
	registered    RegisteredStore
	guestDefaults int
}

func NewService(log *zap.Logger, registered RegisteredStore, guestDefaults int) *Service {
	if guestDefaults <= 0 {
		guestDefaults = 1
	}
	return &Service{log: log, registered: registered, guestDefaults: guestDefaults}
}

// GuestDefaults returns the per-test-type attempt count a fresh guest gets.
func (s *Service) GuestDefaults() int {
	return s.guestDefaults
}

// Limits returns remaining attempts per test type. For guests the counts
// come from the session KV, seeded with defaults on first access. Calling
// Limits twice without an intervening Decrement returns identical counts.
func (s *Service) Limits(ctx context.Context, id identity.Identity, sess KV) (map[models.TestType]int, error) {
	if id.Kind == identity.Guest {
		return s.guestStore(sess).Limits()
	}
	return s.registered.Limits(ctx, id.Key)
}

// CheckAvailability reports whether the identity may start the test type.
// Any failure on the registered path reads as unavailable: free-riding on a
// transient datastore error would make the limit unenforceable.
func (s *Service) CheckAvailability(ctx context.Context, id identity.Identity, sess KV, t models.TestType) bool {
	limits, err := s.Limits(ctx, id, sess)
	if err != nil {
		s.log.Warn("Ledger lookup failed, treating as unavailable",
			zap.String("owner", id.Key),
			zap.String("test_type", string(t)),
			zap.Error(err),
		)
		return false
	}
	return limits[t] > 0
}

// Decrement atomically re-checks availability and subtracts one attempt.
// The boolean is the contract: callers must branch on it and never assume
// the decrement happened. Guest decrements are a plain read-modify-write on
// session state, accepted as best-effort (the cookie session is single-tab
// by construction).
func (s *Service) Decrement(ctx context.Context, id identity.Identity, sess KV, t models.TestType) (bool, error) {
	if id.Kind == identity.Guest {
		return s.guestStore(sess).Decrement(t)
	}
	return s.registered.Decrement(ctx, id.Key, t)
}

// ActivateSubscription elevates a registered identity to the paid tier.
// Irreversible from the ledger's point of view; downgrades are a billing
// concern handled elsewhere.
func (s *Service) ActivateSubscription(ctx context.Context, ownerKey string) error {
	if identity.IsGuestKey(ownerKey) {
		return errors.New("guest identities cannot hold a subscription")
	}
	return s.registered.Elevate(ctx, ownerKey)
}

func (s *Service) guestStore(sess KV) *guestStore {
	return &guestStore{kv: sess, defaults: s.guestDefaults}
}
