package automation

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLedger_ClaimLifecycle(t *testing.T) {
	ctx := context.Background()
	now := t0
	l := NewMemoryLedger(time.Minute)
	l.now = func() time.Time { return now }

	ok, err := l.Claim(ctx, "e1", "hook", "content.published")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = l.Claim(ctx, "e1", "hook", "content.published")
	assert.False(t, ok, "live pending claim must not be taken")

	now = now.Add(2 * time.Minute)
	ok, _ = l.Claim(ctx, "e1", "hook", "content.published")
	assert.True(t, ok, "expired claim is reclaimable")

	require.NoError(t, l.MarkDelivered(ctx, "e1", "hook"))
	now = now.Add(time.Hour)
	ok, _ = l.Claim(ctx, "e1", "hook", "content.published")
	assert.False(t, ok, "delivered is final")

	d, found := l.Get("e1", "hook")
	require.True(t, found)
	assert.Equal(t, 2, d.Attempts)
}

func TestMemoryLedger_TargetsAreIndependent(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger(time.Minute)
	ok1, _ := l.Claim(ctx, "e1", "a", "x")
	ok2, _ := l.Claim(ctx, "e1", "b", "x")
	assert.True(t, ok1)
	assert.True(t, ok2)
}

func TestReclaimable(t *testing.T) {
	now := t0
	assert.True(t, reclaimable(StatusFailed, now, now, time.Minute))
	assert.False(t, reclaimable(StatusDelivered, now.Add(-time.Hour), now, time.Minute))
	assert.False(t, reclaimable(StatusPending, now.Add(-30*time.Second), now, time.Minute))
	assert.True(t, reclaimable(StatusPending, now.Add(-time.Minute), now, time.Minute))
	assert.False(t, reclaimable(StatusPending, now.Add(-time.Hour), now, 0))
}

func setupLedgerDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestPostgresLedger_Claim(t *testing.T) {
	db, mock := setupLedgerDB(t)
	l := NewPostgresLedger(db, 5*time.Minute)

	mock.ExpectQuery("INSERT INTO automation_deliveries").
		WithArgs("e1", "hook", "content.published", float64(300)).
		WillReturnRows(sqlmock.NewRows([]string{"attempts"}).AddRow(1))

	ok, err := l.Claim(context.Background(), "e1", "hook", "content.published")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLedger_ClaimHeldElsewhere(t *testing.T) {
	db, mock := setupLedgerDB(t)
	l := NewPostgresLedger(db, time.Minute)

	mock.ExpectQuery("INSERT INTO automation_deliveries").
		WillReturnRows(sqlmock.NewRows([]string{"attempts"}))

	ok, err := l.Claim(context.Background(), "e1", "hook", "content.published")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPostgresLedger_ClaimError(t *testing.T) {
	db, mock := setupLedgerDB(t)
	l := NewPostgresLedger(db, time.Minute)

	mock.ExpectQuery("INSERT INTO automation_deliveries").WillReturnError(sql.ErrConnDone)

	_, err := l.Claim(context.Background(), "e1", "hook", "content.published")
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestPostgresLedger_MarkAndGet(t *testing.T) {
	db, mock := setupLedgerDB(t)
	l := NewPostgresLedger(db, time.Minute)
	ctx := context.Background()

	mock.ExpectExec("UPDATE automation_deliveries SET status").
		WithArgs(StatusFailed, "status 500", "e1", "hook").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, l.MarkFailed(ctx, "e1", "hook", "status 500"))

	rows := sqlmock.NewRows([]string{"event_id", "target", "event_type", "status", "attempts", "last_error", "updated_at"}).
		AddRow("e1", "hook", "content.published", StatusFailed, 1, "status 500", t0)
	mock.ExpectQuery("SELECT (.+) FROM automation_deliveries").WithArgs("e1", "hook").WillReturnRows(rows)

	d, err := l.Get(ctx, "e1", "hook")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, StatusFailed, d.Status)
	assert.Equal(t, "status 500", d.LastError)

	mock.ExpectQuery("SELECT (.+) FROM automation_deliveries").WithArgs("e2", "hook").WillReturnError(sql.ErrNoRows)
	d, err = l.Get(ctx, "e2", "hook")
	require.NoError(t, err)
	assert.Nil(t, d)
	assert.NoError(t, mock.ExpectationsWereMet())
}
