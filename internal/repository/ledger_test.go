package repository

import (
	"context"
	"testing"

	"github.com/arpit9377/ssb-insight-ai-sub001/internal/database"
	"github.com/arpit9377/ssb-insight-ai-sub001/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newMockDB points the shared GORM handle at a sqlmock connection so the
// raw SQL paths can be exercised without a live database.
func newMockDB(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 sqlDB,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	prev := database.DB
	database.DB = gormDB
	t.Cleanup(func() { database.DB = prev })
	return mock
}

func TestDecrementSucceedsWhileAttemptsRemain(t *testing.T) {
	mock := newMockDB(t)
	store := NewLedgerStore(2, 30)

	mock.ExpectExec(`UPDATE usage_ledger_entries`).
		WithArgs("user_42", models.WordAssociation).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := store.Decrement(context.Background(), "user_42", models.WordAssociation)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrementFailsAtZeroWithoutGoingNegative(t *testing.T) {
	mock := newMockDB(t)
	store := NewLedgerStore(2, 30)

	// The conditional UPDATE matches no row once remaining hits zero, so
	// the check and the subtraction cannot be split by a concurrent call.
	mock.ExpectExec(`UPDATE usage_ledger_entries`).
		WithArgs("user_42", models.WordAssociation).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := store.Decrement(context.Background(), "user_42", models.WordAssociation)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrementSurfacesStoreErrors(t *testing.T) {
	mock := newMockDB(t)
	store := NewLedgerStore(2, 30)

	mock.ExpectExec(`UPDATE usage_ledger_entries`).
		WithArgs("user_42", models.SituationReaction).
		WillReturnError(assert.AnError)

	ok, err := store.Decrement(context.Background(), "user_42", models.SituationReaction)
	assert.False(t, ok)
	assert.Error(t, err, "ledger decrement failures are never swallowed")
}
