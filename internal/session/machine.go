// Package session drives a test attempt through its ordered prompts: one
// response per prompt, one active countdown at a time, and a terminal
// completed state that triggers analysis. The machine deliberately does not
// enforce usage limits; that stays with the ledger so limit policy can
// change without touching the lifecycle.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/arpit9377/ssb-insight-ai-sub001/internal/identity"
	"github.com/arpit9377/ssb-insight-ai-sub001/internal/models"
	"github.com/arpit9377/ssb-insight-ai-sub001/internal/timer"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrInvalidState is returned when a mutation hits a terminal or
	// nonexistent session. Usually a duplicate UI event racing a timer.
	ErrInvalidState = errors.New("session is not in progress")
	// ErrBlankResponse is returned for empty or whitespace-only answers.
	ErrBlankResponse = errors.New("response text is empty")
)

// TimeUpNotice is surfaced when a prompt's timer expires without a
// submittable draft.
const TimeUpNotice = "time up, answer incomplete"

// Store is the persistence capability the machine mutates sessions through.
// It is the only writer of session and response rows. UpdateIndex and
// Complete are guarded transitions: they report false when the row no
// longer satisfies the precondition, which is how a stale caller racing a
// concurrent mutation finds out it lost.
type Store interface {
	Create(ctx context.Context, s *models.TestSession) error
	Get(ctx context.Context, id string) (*models.TestSession, error)
	UpdateIndex(ctx context.Context, id string, index int) (bool, error)
	Complete(ctx context.Context, id string, finalIndex int) (bool, error)
	SaveResponse(ctx context.Context, r *models.Response) error
}

// Policy is the per-test-type session policy.
type Policy struct {
	PromptCount   int
	PromptSeconds int
	// AutoAdvanceOnExpiry decides the time-up behavior: auto-submit a
	// non-blank draft and move on, or stop and wait for the user.
	AutoAdvanceOnExpiry bool
}

// Machine owns all in-flight session state: the single active countdown per
// session, the unsaved draft for the current prompt, and pending time-up
// notices. Everything persisted goes through the Store.
type Machine struct {
	log      *zap.Logger
	store    Store
	policies map[models.TestType]Policy

	// onComplete runs synchronously when a session reaches completed,
	// exactly once per session. Wired by main to usage settlement,
	// streaks and analysis dispatch.
	onComplete func(s *models.TestSession)

	mu      sync.Mutex
	timers  map[string]*timer.Countdown
	drafts  map[string]string
	notices map[string]string
}

func NewMachine(log *zap.Logger, store Store, policies map[models.TestType]Policy) *Machine {
	return &Machine{
		log:      log,
		store:    store,
		policies: policies,
		timers:   make(map[string]*timer.Countdown),
		drafts:   make(map[string]string),
		notices:  make(map[string]string),
	}
}

// OnComplete registers the completion hook. Must be called before the
// machine starts serving requests.
func (m *Machine) OnComplete(hook func(s *models.TestSession)) {
	m.onComplete = hook
}

// Policy returns the policy for a test type.
func (m *Machine) Policy(t models.TestType) Policy {
	return m.policies[t]
}

// Create allocates a new in-progress session at index 0 and starts the
// countdown for its first prompt. The caller must already have passed the
// ledger's availability check.
func (m *Machine) Create(ctx context.Context, owner identity.Identity, t models.TestType, order []int64) (*models.TestSession, error) {
	s := &models.TestSession{
		ID:          uuid.NewString(),
		OwnerKey:    owner.Key,
		TestType:    t,
		PromptOrder: order,
		Status:      models.StatusInProgress,
	}
	if err := m.store.Create(ctx, s); err != nil {
		return nil, err
	}

	m.startPromptTimer(s)
	m.log.Info("Test session created",
		zap.String("session", s.ID),
		zap.String("owner", s.OwnerKey),
		zap.String("test_type", string(t)),
		zap.Int("prompts", len(order)),
	)
	return s, nil
}

// SubmitResponse persists the answer for one prompt, overwriting any
// earlier answer for the same prompt. It is the only mutator of response
// rows. Blank text is rejected; terminal sessions reject everything.
func (m *Machine) SubmitResponse(ctx context.Context, s *models.TestSession, promptKey, text string, elapsedMs int) error {
	if s == nil || s.Status != models.StatusInProgress {
		return ErrInvalidState
	}
	if strings.TrimSpace(text) == "" {
		return ErrBlankResponse
	}
	if elapsedMs < 0 {
		elapsedMs = 0
	}

	err := m.store.SaveResponse(ctx, &models.Response{
		SessionID: s.ID,
		PromptKey: promptKey,
		Text:      text,
		ElapsedMs: elapsedMs,
	})
	if err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.drafts, s.ID)
	m.mu.Unlock()
	return nil
}

// Advance moves the cursor to the next prompt, restarting the countdown,
// or — past the last prompt — transitions the session to completed, stops
// the countdown and fires the completion hook. The index never decreases
// and never exceeds the prompt count.
func (m *Machine) Advance(ctx context.Context, s *models.TestSession) (*models.TestSession, error) {
	if s == nil || s.Status != models.StatusInProgress {
		return nil, ErrInvalidState
	}

	next := s.CurrentIndex + 1
	if next < s.PromptCount() {
		moved, err := m.store.UpdateIndex(ctx, s.ID, next)
		if err != nil {
			return nil, err
		}
		if !moved {
			// The row is already past this index or no longer in
			// progress; this caller's view of the session is stale.
			return nil, ErrInvalidState
		}
		s.CurrentIndex = next
		m.startPromptTimer(s)
		return s, nil
	}

	// Terminal transition. Stop the countdown first so a racing expiry
	// cannot observe a half-completed session.
	m.stopPromptTimer(s.ID)
	completed, err := m.store.Complete(ctx, s.ID, s.PromptCount())
	if err != nil {
		return nil, err
	}
	if !completed {
		// Another request completed the row first. The completion hook
		// already fired over there; firing it again would charge the
		// owner twice.
		return nil, ErrInvalidState
	}
	s.CurrentIndex = s.PromptCount()
	s.Status = models.StatusCompleted

	m.mu.Lock()
	delete(m.drafts, s.ID)
	delete(m.notices, s.ID)
	m.mu.Unlock()

	m.log.Info("Test session completed",
		zap.String("session", s.ID),
		zap.String("owner", s.OwnerKey),
	)
	if m.onComplete != nil {
		m.onComplete(s)
	}
	return s, nil
}

// SaveDraft remembers the unsaved answer for the session's current prompt,
// so a timer expiry can auto-submit it.
func (m *Machine) SaveDraft(sessionID, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drafts[sessionID] = text
}

// TimeLeft returns the remaining seconds of the session's active countdown.
func (m *Machine) TimeLeft(sessionID string) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.timers[sessionID]
	if !ok {
		return 0, false
	}
	return c.Remaining(), true
}

// Notice pops the pending time-up notice for a session, if any.
func (m *Machine) Notice(sessionID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notices[sessionID]
	if ok {
		delete(m.notices, sessionID)
	}
	return n, ok
}

// startPromptTimer replaces the session's countdown with a fresh one for
// the current prompt. Only one countdown may be live per session, so any
// previous one is stopped first.
func (m *Machine) startPromptTimer(s *models.TestSession) {
	policy := m.policies[s.TestType]
	if policy.PromptSeconds <= 0 {
		return
	}

	sessionID := s.ID
	c := timer.New(policy.PromptSeconds, func() {
		m.handleExpiry(sessionID)
	})

	m.mu.Lock()
	if old, ok := m.timers[sessionID]; ok {
		old.Stop()
	}
	m.timers[sessionID] = c
	m.mu.Unlock()

	c.Start()
}

func (m *Machine) stopPromptTimer(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.timers[sessionID]; ok {
		c.Stop()
		delete(m.timers, sessionID)
	}
}

// handleExpiry applies the time-up policy when a prompt's countdown runs
// out. With a non-blank draft and an auto-advancing test type, the draft is
// submitted and the session moves on; otherwise a notice is surfaced and
// the session waits for explicit user action. An empty answer is never
// forced in.
func (m *Machine) handleExpiry(sessionID string) {
	ctx := context.Background()

	s, err := m.store.Get(ctx, sessionID)
	if err != nil {
		m.log.Warn("Timer expiry for unknown session", zap.String("session", sessionID), zap.Error(err))
		return
	}
	if s.Status != models.StatusInProgress {
		return
	}

	m.mu.Lock()
	draft := m.drafts[sessionID]
	m.mu.Unlock()

	policy := m.policies[s.TestType]
	promptKey, ok := s.CurrentPromptKey()
	if !ok {
		return
	}

	if strings.TrimSpace(draft) != "" && policy.AutoAdvanceOnExpiry {
		elapsedMs := policy.PromptSeconds * 1000
		if err := m.SubmitResponse(ctx, s, promptKey, draft, elapsedMs); err != nil {
			m.log.Error("Failed to auto-submit draft on expiry",
				zap.String("session", sessionID),
				zap.Error(err),
			)
			return
		}
		if _, err := m.Advance(ctx, s); err != nil {
			m.log.Error("Failed to advance on expiry",
				zap.String("session", sessionID),
				zap.Error(err),
			)
		}
		return
	}

	// The countdown has fired and only a future Advance would replace it;
	// dropping the entry now keeps abandoned sessions from pinning it.
	m.stopPromptTimer(sessionID)

	m.mu.Lock()
	m.notices[sessionID] = TimeUpNotice
	m.mu.Unlock()
	m.log.Debug("Prompt timer expired without submittable draft",
		zap.String("session", sessionID),
		zap.String("prompt", promptKey),
	)
}

// Evict drops all in-memory state held for a session: its countdown, draft
// and pending notice. Persisted rows are untouched. The daily maintenance
// pass calls this for sessions abandoned mid-test, which otherwise keep
// their entries forever.
func (m *Machine) Evict(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.timers[sessionID]; ok {
		c.Stop()
		delete(m.timers, sessionID)
	}
	delete(m.drafts, sessionID)
	delete(m.notices, sessionID)
}
