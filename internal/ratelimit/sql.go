package ratelimit

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQL is a Limiter backed by a rate_limits table, for deployments with
// more than one process in front of the same database. The counter
// update is a single UPSERT so the compare-and-increment is atomic in
// the database, never in application code.
type SQL struct {
	db     *sql.DB
	max    int
	window time.Duration
	now    func() time.Time
}

// NewSQL returns a Limiter allowing max actions per window duration,
// with state in db's rate_limits table.
func NewSQL(db *sql.DB, max int, window time.Duration) *SQL {
	return &SQL{db: db, max: max, window: window, now: time.Now}
}

func (s *SQL) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	now := s.now().UTC()

	var (
		count int
		reset time.Time
	)
	// Expired windows restart at 1; live windows increment. Counting
	// past max is harmless, the comparison below still denies.
	err := s.db.QueryRowContext(ctx, `
INSERT INTO rate_limits (origin, count, reset_at)
VALUES ($1, 1, $2)
ON CONFLICT (origin) DO UPDATE SET
  count    = CASE WHEN rate_limits.reset_at <= $3 THEN 1 ELSE rate_limits.count + 1 END,
  reset_at = CASE WHEN rate_limits.reset_at <= $3 THEN $2 ELSE rate_limits.reset_at END
RETURNING count, reset_at
`, key, now.Add(s.window), now).Scan(&count, &reset)
	if err != nil {
		return false, 0, fmt.Errorf("rate limit upsert: %w", err)
	}

	if count > s.max {
		return false, reset.Sub(now), nil
	}
	return true, 0, nil
}

// Cleanup deletes expired windows.
func (s *SQL) Cleanup(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM rate_limits WHERE reset_at <= $1`, s.now().UTC())
	if err != nil {
		return fmt.Errorf("rate limit cleanup: %w", err)
	}
	return nil
}
