package session

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/arpit9377/ssb-insight-ai-sub001/internal/identity"
	"github.com/arpit9377/ssb-insight-ai-sub001/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeStore is an in-memory session.Store with the same overwrite-by-
// prompt-key semantics as the SQL implementation.
type fakeStore struct {
	mu        sync.Mutex
	sessions  map[string]*models.TestSession
	responses map[string]map[string]*models.Response
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions:  make(map[string]*models.TestSession),
		responses: make(map[string]map[string]*models.Response),
	}
}

func (f *fakeStore) Create(ctx context.Context, s *models.TestSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *s
	f.sessions[s.ID] = &copied
	return nil
}

func (f *fakeStore) Get(ctx context.Context, id string) (*models.TestSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s not found", id)
	}
	copied := *s
	return &copied, nil
}

func (f *fakeStore) UpdateIndex(ctx context.Context, id string, index int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.sessions[id]
	if s.Status != models.StatusInProgress || s.CurrentIndex >= index {
		return false, nil
	}
	s.CurrentIndex = index
	return true, nil
}

func (f *fakeStore) Complete(ctx context.Context, id string, finalIndex int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.sessions[id]
	if s.Status != models.StatusInProgress {
		return false, nil
	}
	s.CurrentIndex = finalIndex
	s.Status = models.StatusCompleted
	return true, nil
}

func (f *fakeStore) SaveResponse(ctx context.Context, r *models.Response) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	byPrompt, ok := f.responses[r.SessionID]
	if !ok {
		byPrompt = make(map[string]*models.Response)
		f.responses[r.SessionID] = byPrompt
	}
	copied := *r
	byPrompt[r.PromptKey] = &copied
	return nil
}

func (f *fakeStore) responseCount(sessionID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.responses[sessionID])
}

func (f *fakeStore) response(sessionID, promptKey string) *models.Response {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.responses[sessionID][promptKey]
}

func testPolicies() map[models.TestType]Policy {
	// PromptSeconds of zero keeps real timers out of state-machine tests;
	// expiry behavior is driven through handleExpiry directly.
	return map[models.TestType]Policy{
		models.WordAssociation:   {PromptCount: 60, PromptSeconds: 0, AutoAdvanceOnExpiry: true},
		models.SituationReaction: {PromptCount: 60, PromptSeconds: 0, AutoAdvanceOnExpiry: true},
		models.PictureStory:      {PromptCount: 1, PromptSeconds: 0, AutoAdvanceOnExpiry: false},
	}
}

func order(n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(i)
	}
	return out
}

func TestCreateStartsAtIndexZero(t *testing.T) {
	m := NewMachine(zap.NewNop(), newFakeStore(), testPolicies())
	s, err := m.Create(context.Background(), identity.NewGuest(), models.WordAssociation, order(60))
	require.NoError(t, err)

	assert.Equal(t, models.StatusInProgress, s.Status)
	assert.Equal(t, 0, s.CurrentIndex)
	assert.Equal(t, 60, s.PromptCount())
}

func TestAdvanceThroughAllPrompts(t *testing.T) {
	store := newFakeStore()
	m := NewMachine(zap.NewNop(), store, testPolicies())
	ctx := context.Background()

	completions := 0
	m.OnComplete(func(s *models.TestSession) { completions++ })

	s, err := m.Create(ctx, identity.FromUserID(1), models.SituationReaction, order(60))
	require.NoError(t, err)

	// 59 advances: still in progress, index strictly increasing.
	prev := 0
	for i := 0; i < 59; i++ {
		s, err = m.Advance(ctx, s)
		require.NoError(t, err)
		assert.Equal(t, models.StatusInProgress, s.Status)
		assert.Greater(t, s.CurrentIndex, prev-1)
		prev = s.CurrentIndex
	}
	assert.Equal(t, 59, s.CurrentIndex)

	// The 60th advance completes the session and fires the hook once.
	s, err = m.Advance(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, s.Status)
	assert.Equal(t, 60, s.CurrentIndex)
	assert.Equal(t, 1, completions)

	// Completed is terminal.
	_, err = m.Advance(ctx, s)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestDuplicateAdvanceAtLastPromptCompletesOnce(t *testing.T) {
	store := newFakeStore()
	m := NewMachine(zap.NewNop(), store, testPolicies())
	ctx := context.Background()

	completions := 0
	m.OnComplete(func(s *models.TestSession) { completions++ })

	created, err := m.Create(ctx, identity.FromUserID(7), models.PictureStory, order(1))
	require.NoError(t, err)
	key, _ := created.CurrentPromptKey()
	require.NoError(t, m.SubmitResponse(ctx, created, key, "a story", 5000))

	// Two requests load the session independently before either completes,
	// the way a timer expiry races a manual submit on the last prompt.
	first, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	second, err := store.Get(ctx, created.ID)
	require.NoError(t, err)

	first, err = m.Advance(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, first.Status)

	// The loser sees the guarded transition fail and must not re-fire
	// completion side effects.
	_, err = m.Advance(ctx, second)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, 1, completions, "completion settles exactly once")
}

func TestStaleAdvanceMidSessionIsRejected(t *testing.T) {
	store := newFakeStore()
	m := NewMachine(zap.NewNop(), store, testPolicies())
	ctx := context.Background()

	created, err := m.Create(ctx, identity.NewGuest(), models.WordAssociation, order(5))
	require.NoError(t, err)

	fresh, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	stale, err := store.Get(ctx, created.ID)
	require.NoError(t, err)

	fresh, err = m.Advance(ctx, fresh)
	require.NoError(t, err)
	require.Equal(t, 1, fresh.CurrentIndex)

	// The duplicate of the same advance loses the monotonic guard and must
	// not come back claiming a locally-bumped index.
	_, err = m.Advance(ctx, stale)
	assert.ErrorIs(t, err, ErrInvalidState)

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentIndex)
}

func TestSubmitResponseRejectsBlankText(t *testing.T) {
	m := NewMachine(zap.NewNop(), newFakeStore(), testPolicies())
	ctx := context.Background()

	s, err := m.Create(ctx, identity.NewGuest(), models.WordAssociation, order(5))
	require.NoError(t, err)

	key, _ := s.CurrentPromptKey()
	assert.ErrorIs(t, m.SubmitResponse(ctx, s, key, "", 100), ErrBlankResponse)
	assert.ErrorIs(t, m.SubmitResponse(ctx, s, key, "   \t\n", 100), ErrBlankResponse)
	assert.NoError(t, m.SubmitResponse(ctx, s, key, "a brave answer", 100))
}

func TestSubmitResponseOverwritesNotDuplicates(t *testing.T) {
	store := newFakeStore()
	m := NewMachine(zap.NewNop(), store, testPolicies())
	ctx := context.Background()

	s, err := m.Create(ctx, identity.NewGuest(), models.WordAssociation, order(5))
	require.NoError(t, err)

	key, _ := s.CurrentPromptKey()
	require.NoError(t, m.SubmitResponse(ctx, s, key, "first attempt", 800))
	require.NoError(t, m.SubmitResponse(ctx, s, key, "second attempt", 1200))

	assert.Equal(t, 1, store.responseCount(s.ID))
	assert.Equal(t, "second attempt", store.response(s.ID, key).Text)
}

func TestSubmitOnCompletedSessionFailsAndMutatesNothing(t *testing.T) {
	store := newFakeStore()
	m := NewMachine(zap.NewNop(), store, testPolicies())
	ctx := context.Background()

	s, err := m.Create(ctx, identity.NewGuest(), models.PictureStory, order(1))
	require.NoError(t, err)

	key, _ := s.CurrentPromptKey()
	require.NoError(t, m.SubmitResponse(ctx, s, key, "a story", 5000))

	s, err = m.Advance(ctx, s)
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, s.Status)

	err = m.SubmitResponse(ctx, s, key, "late edit", 9000)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, "a story", store.response(s.ID, key).Text)
}

func TestExpiryAutoSubmitsDraftAndAdvances(t *testing.T) {
	store := newFakeStore()
	m := NewMachine(zap.NewNop(), store, testPolicies())
	ctx := context.Background()

	s, err := m.Create(ctx, identity.NewGuest(), models.WordAssociation, order(5))
	require.NoError(t, err)

	key, _ := s.CurrentPromptKey()
	m.SaveDraft(s.ID, "drafted answer")
	m.handleExpiry(s.ID)

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentIndex, "expiry with draft advances")
	assert.Equal(t, "drafted answer", store.response(s.ID, key).Text)

	_, hasNotice := m.Notice(s.ID)
	assert.False(t, hasNotice)
}

func TestExpiryWithoutDraftSurfacesNotice(t *testing.T) {
	store := newFakeStore()
	m := NewMachine(zap.NewNop(), store, testPolicies())
	ctx := context.Background()

	s, err := m.Create(ctx, identity.NewGuest(), models.WordAssociation, order(5))
	require.NoError(t, err)

	m.handleExpiry(s.ID)

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.CurrentIndex, "no forced advance without an answer")
	assert.Equal(t, 0, store.responseCount(s.ID), "no empty submission is forced")

	notice, ok := m.Notice(s.ID)
	assert.True(t, ok)
	assert.Equal(t, TimeUpNotice, notice)

	// Notices pop once.
	_, ok = m.Notice(s.ID)
	assert.False(t, ok)
}

func TestExpiryRespectsNonAdvancingPolicy(t *testing.T) {
	store := newFakeStore()
	m := NewMachine(zap.NewNop(), store, testPolicies())
	ctx := context.Background()

	s, err := m.Create(ctx, identity.NewGuest(), models.PictureStory, order(1))
	require.NoError(t, err)

	m.SaveDraft(s.ID, "half-written story")
	m.handleExpiry(s.ID)

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, got.Status, "story tests wait for explicit submission")

	notice, ok := m.Notice(s.ID)
	assert.True(t, ok)
	assert.Equal(t, TimeUpNotice, notice)
}

func TestExpiryWithoutAdvanceReleasesCountdown(t *testing.T) {
	store := newFakeStore()
	policies := map[models.TestType]Policy{
		models.PhotoStory: {PromptCount: 2, PromptSeconds: 300, AutoAdvanceOnExpiry: false},
	}
	m := NewMachine(zap.NewNop(), store, policies)
	ctx := context.Background()

	s, err := m.Create(ctx, identity.NewGuest(), models.PhotoStory, order(2))
	require.NoError(t, err)
	_, running := m.TimeLeft(s.ID)
	require.True(t, running)

	// A fired countdown is never restarted by anything but Advance, so the
	// expiry handler must not leave its entry behind.
	m.handleExpiry(s.ID)

	_, running = m.TimeLeft(s.ID)
	assert.False(t, running)

	_, ok := m.Notice(s.ID)
	assert.True(t, ok)
}

func TestEvictDropsAbandonedSessionState(t *testing.T) {
	store := newFakeStore()
	m := NewMachine(zap.NewNop(), store, testPolicies())
	ctx := context.Background()

	s, err := m.Create(ctx, identity.NewGuest(), models.WordAssociation, order(5))
	require.NoError(t, err)

	// Expiry without a draft parks a notice; the user then types something
	// and abandons the tab.
	m.handleExpiry(s.ID)
	m.SaveDraft(s.ID, "walked away mid-answer")

	m.Evict(s.ID)

	_, hasNotice := m.Notice(s.ID)
	assert.False(t, hasNotice, "pending notice is released with the session")

	// The evicted draft is gone too: a later expiry has nothing to
	// auto-submit and cannot advance the session.
	m.handleExpiry(s.ID)
	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.CurrentIndex)
	assert.Equal(t, 0, store.responseCount(s.ID))
}

func TestStaleExpiryAfterCompletionIsNoop(t *testing.T) {
	store := newFakeStore()
	m := NewMachine(zap.NewNop(), store, testPolicies())
	ctx := context.Background()

	completions := 0
	m.OnComplete(func(s *models.TestSession) { completions++ })

	s, err := m.Create(ctx, identity.NewGuest(), models.PictureStory, order(1))
	require.NoError(t, err)
	key, _ := s.CurrentPromptKey()
	require.NoError(t, m.SubmitResponse(ctx, s, key, "done", 1000))
	_, err = m.Advance(ctx, s)
	require.NoError(t, err)

	// A stale expiry racing the manual completion changes nothing.
	m.SaveDraft(s.ID, "stale draft")
	m.handleExpiry(s.ID)

	got, _ := store.Get(ctx, s.ID)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.Equal(t, 1, completions)
	assert.Equal(t, "done", store.response(s.ID, key).Text)
}
