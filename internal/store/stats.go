package store

import (
	"context"
	"fmt"
	"time"
)

// SiteStats are the aggregate counters shown on the landing page.
type SiteStats struct {
	TotalUsers    int `json:"total_users"`
	TotalEntries  int `json:"total_entries"`
	TotalComments int `json:"total_comments"`
	EntriesToday  int `json:"entries_today"`
	CommentsToday int `json:"comments_today"`
}

// Stats computes the site counters. Callers are expected to memoize the
// result; this runs five aggregate queries.
func (s *Store) Stats(ctx context.Context) (SiteStats, error) {
	now := s.now().UTC()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var st SiteStats
	counts := []struct {
		dst   *int
		query string
		args  []any
	}{
		{&st.TotalUsers, `SELECT COUNT(1) FROM users`, nil},
		{&st.TotalEntries, `SELECT COUNT(1) FROM entries`, nil},
		{&st.TotalComments, `SELECT COUNT(1) FROM comments WHERE state <> 'DELETED'`, nil},
		{&st.EntriesToday, `SELECT COUNT(1) FROM entries WHERE created_at >= $1`, []any{todayStart}},
		{&st.CommentsToday, `SELECT COUNT(1) FROM comments WHERE state <> 'DELETED' AND created_at >= $1`, []any{todayStart}},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query, c.args...).Scan(c.dst); err != nil {
			return SiteStats{}, fmt.Errorf("stats: %w", err)
		}
	}
	return st, nil
}
