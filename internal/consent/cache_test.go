package consent

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, pgxmock.PgxPoolIface, *miniredis.Miniredis) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewCache(NewLedger(mock), client, nil), mock, mr
}

func TestCacheReadThrough(t *testing.T) {
	cache, mock, mr := newTestCache(t)

	mock.ExpectQuery("SELECT status FROM consent_records").
		WithArgs("+15551234567").
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow("revoked"))

	status, known, err := cache.CurrentStatus(context.Background(), "+15551234567")
	require.NoError(t, err)
	require.True(t, known)
	require.Equal(t, StatusRevoked, status)

	// Second lookup is served from Redis; no further DB expectation set.
	status, known, err = cache.CurrentStatus(context.Background(), "+15551234567")
	require.NoError(t, err)
	require.True(t, known)
	require.Equal(t, StatusRevoked, status)

	require.NoError(t, mock.ExpectationsWereMet())

	mr.FastForward(10 * time.Minute)
	if mr.Exists("consent:+15551234567") {
		t.Fatal("expected cache entry to expire")
	}
}

func TestCacheNegativeEntry(t *testing.T) {
	cache, mock, _ := newTestCache(t)

	mock.ExpectQuery("SELECT status FROM consent_records").
		WithArgs("+15550000000").
		WillReturnError(pgx.ErrNoRows)

	_, known, err := cache.CurrentStatus(context.Background(), "+15550000000")
	require.NoError(t, err)
	require.False(t, known)

	// Cached "none" avoids a second ledger query.
	_, known, err = cache.CurrentStatus(context.Background(), "+15550000000")
	require.NoError(t, err)
	require.False(t, known)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheRecordInvalidates(t *testing.T) {
	cache, mock, mr := newTestCache(t)

	require.NoError(t, mr.Set("consent:+15551234567", "active"))

	mock.ExpectExec("INSERT INTO consent_records").
		WithArgs(pgxmock.AnyArg(), "+15551234567", "revoked", "sms", "keyword_stop").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, cache.Record(context.Background(), "+15551234567", "sms", StatusRevoked, "keyword_stop"))

	if mr.Exists("consent:+15551234567") {
		t.Fatal("expected cached status to be invalidated")
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheWithoutRedis(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cache := NewCache(NewLedger(mock), nil, nil)

	mock.ExpectQuery("SELECT status FROM consent_records").
		WithArgs("+15551234567").
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow("active"))

	status, known, err := cache.CurrentStatus(context.Background(), "+15551234567")
	require.NoError(t, err)
	require.True(t, known)
	require.Equal(t, StatusActive, status)
	require.NoError(t, mock.ExpectationsWereMet())
}
