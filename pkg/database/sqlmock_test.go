package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/PancyStudios/GuildAuthBot/pkg/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSQLStore(db, Postgres), mock
}

func TestRebind(t *testing.T) {
	assert.Equal(t, "a = $1 AND b = $2", Postgres.rebind("a = ? AND b = ?"))
	assert.Equal(t, "a = ?", SQLite.rebind("a = ?"))
}

func TestStoreErrorWrapsDriverFailure(t *testing.T) {
	s, mock := newMockStore(t)
	boom := errors.New("connection reset")

	mock.ExpectQuery(`FROM guild_config WHERE guild_id = \$1`).
		WithArgs("g1").
		WillReturnError(boom)

	_, err := s.GetConfig(context.Background(), "g1")
	require.Error(t, err)
	assert.True(t, IsStoreError(err))
	assert.ErrorIs(t, err, boom)

	var se *StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "get config", se.Op)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertPendingMapsUniqueViolation(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM auth_applications WHERE user_id = \$1 AND guild_id = \$2`).
		WithArgs("u1", "g1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`INSERT INTO auth_applications`).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	_, err := s.InsertPending(context.Background(), pending("u1", "g1", 100))
	assert.ErrorIs(t, err, ErrDuplicatePending)
	assert.False(t, IsStoreError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertPendingTrimsInsideTransaction(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WithArgs("u1", "g1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(models.HistoryLimit + 2))
	mock.ExpectExec(`DELETE FROM auth_applications WHERE id IN`).
		WithArgs("u1", "g1", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectQuery(`(?s)INSERT INTO auth_applications.*RETURNING id`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(42))
	mock.ExpectCommit()

	id, err := s.InsertPending(context.Background(), pending("u1", "g1", 100))
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertPendingTrimFailureRollsBack(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\)`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(models.HistoryLimit))
	mock.ExpectExec(`DELETE FROM auth_applications`).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := s.InsertPending(context.Background(), pending("u1", "g1", 100))
	require.Error(t, err)
	assert.True(t, IsStoreError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolvePendingReportsZeroRows(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE auth_applications\s+SET status = \$1, processed_at = \$2, processor_id = \$3, notes = \$4\s+WHERE id = \$5 AND status = 'pending'`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := s.ResolvePending(context.Background(), 7, models.Resolution{Status: models.StatusCancelled})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
