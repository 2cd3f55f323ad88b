package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteWinsWhenRowStillInProgress(t *testing.T) {
	mock := newMockDB(t)
	store := NewSessionStore()

	mock.ExpectExec(`UPDATE test_sessions`).
		WithArgs(1, "sess-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := store.Complete(context.Background(), "sess-1", 1)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCompleteLosesWhenAnotherCallerFinishedFirst(t *testing.T) {
	mock := newMockDB(t)
	store := NewSessionStore()

	// The status guard matches no row once the session is completed, so
	// the second completer must learn it lost the transition.
	mock.ExpectExec(`UPDATE test_sessions`).
		WithArgs(1, "sess-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := store.Complete(context.Background(), "sess-1", 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateIndexRejectsStaleMove(t *testing.T) {
	mock := newMockDB(t)
	store := NewSessionStore()

	mock.ExpectExec(`UPDATE test_sessions`).
		WithArgs(3, "sess-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := store.UpdateIndex(context.Background(), "sess-1", 3)
	require.NoError(t, err)
	assert.False(t, ok, "a move the monotonic guard rejected must not read as applied")
}
