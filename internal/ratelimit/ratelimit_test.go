package ratelimit

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAllowsUpToMax(t *testing.T) {
	lim := NewMemory(5, 15*time.Minute)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		ok, _, err := lim.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, ok, "attempt %d", i+1)
	}

	ok, retry, err := lim.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Greater(t, retry, time.Duration(0))
	assert.LessOrEqual(t, retry, 15*time.Minute)
}

func TestMemoryWindowReset(t *testing.T) {
	now := time.Date(2004, 4, 12, 9, 0, 0, 0, time.UTC)
	lim := NewMemory(1, 15*time.Minute)
	lim.now = func() time.Time { return now }
	ctx := context.Background()

	ok, _, _ := lim.Allow(ctx, "k")
	assert.True(t, ok)
	ok, retry, _ := lim.Allow(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, 15*time.Minute, retry)

	// After the window elapses a new attempt succeeds.
	now = now.Add(15 * time.Minute)
	ok, _, _ = lim.Allow(ctx, "k")
	assert.True(t, ok)
}

func TestMemoryKeysAreIndependent(t *testing.T) {
	lim := NewMemory(1, time.Minute)
	ctx := context.Background()

	ok, _, _ := lim.Allow(ctx, "a")
	assert.True(t, ok)
	ok, _, _ = lim.Allow(ctx, "a")
	assert.False(t, ok)
	ok, _, _ = lim.Allow(ctx, "b")
	assert.True(t, ok)
}

func TestMemoryConcurrent(t *testing.T) {
	lim := NewMemory(50, time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _, _ := lim.Allow(ctx, "shared"); ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, allowed)
}

func TestMemoryCleanup(t *testing.T) {
	now := time.Now()
	lim := NewMemory(5, time.Minute)
	lim.now = func() time.Time { return now }

	lim.Allow(context.Background(), "old")
	now = now.Add(2 * time.Minute)
	lim.Allow(context.Background(), "fresh")
	lim.Cleanup()

	lim.mu.Lock()
	defer lim.mu.Unlock()
	assert.NotContains(t, lim.entries, "old")
	assert.Contains(t, lim.entries, "fresh")
}

func TestSQLAllow(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2004, 4, 12, 9, 0, 0, 0, time.UTC)
	lim := NewSQL(db, 5, 15*time.Minute)
	lim.now = func() time.Time { return now }

	upsert := regexp.QuoteMeta("INSERT INTO rate_limits")

	mock.ExpectQuery(upsert).
		WithArgs("10.0.0.1", now.Add(15*time.Minute), now).
		WillReturnRows(sqlmock.NewRows([]string{"count", "reset_at"}).AddRow(1, now.Add(15*time.Minute)))

	ok, _, err := lim.Allow(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok)

	// Over the limit: the row reports a sixth hit inside the window.
	mock.ExpectQuery(upsert).
		WithArgs("10.0.0.1", now.Add(15*time.Minute), now).
		WillReturnRows(sqlmock.NewRows([]string{"count", "reset_at"}).AddRow(6, now.Add(10*time.Minute)))

	ok, retry, err := lim.Allow(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 10*time.Minute, retry)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLWindowReset(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2004, 4, 12, 9, 0, 0, 0, time.UTC)
	lim := NewSQL(db, 5, 15*time.Minute)
	lim.now = func() time.Time { return now }

	upsert := regexp.QuoteMeta("INSERT INTO rate_limits")

	// Saturate the window.
	mock.ExpectQuery(upsert).
		WithArgs("10.0.0.1", now.Add(15*time.Minute), now).
		WillReturnRows(sqlmock.NewRows([]string{"count", "reset_at"}).AddRow(6, now.Add(time.Minute)))

	ok, _, err := lim.Allow(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, ok)

	// After reset_at passes, the UPSERT's CASE restarts the counter at
	// 1 with a fresh window and the request goes through again.
	now = now.Add(2 * time.Minute)
	mock.ExpectQuery(upsert).
		WithArgs("10.0.0.1", now.Add(15*time.Minute), now).
		WillReturnRows(sqlmock.NewRows([]string{"count", "reset_at"}).AddRow(1, now.Add(15*time.Minute)))

	ok, retry, err := lim.Allow(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, retry)

	assert.NoError(t, mock.ExpectationsWereMet())
}
