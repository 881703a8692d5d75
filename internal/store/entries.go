package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"journal/internal/models"
)

const entryColumns = `id, user_id, subject, content_html, visibility, mood, music, location, created_at, updated_at`

func scanEntry(sc interface{ Scan(...any) error }) (models.Entry, error) {
	var e models.Entry
	err := sc.Scan(&e.ID, &e.UserID, &e.Subject, &e.ContentHTML, &e.Visibility,
		&e.Mood, &e.Music, &e.Location, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

// CreateEntry inserts a new entry owned by e.UserID, assigning id and
// timestamps.
func (s *Store) CreateEntry(ctx context.Context, e models.Entry) (models.Entry, error) {
	e.ID = uuid.New().String()
	e.CreatedAt = s.now().UTC()
	e.UpdatedAt = e.CreatedAt

	_, err := s.db.ExecContext(ctx, `
INSERT INTO entries (id, user_id, subject, content_html, visibility, mood, music, location, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`, e.ID, e.UserID, e.Subject, e.ContentHTML, e.Visibility, e.Mood, e.Music, e.Location, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return models.Entry{}, fmt.Errorf("insert entry: %w", err)
	}
	return e, nil
}

func (s *Store) EntryByID(ctx context.Context, id string) (models.Entry, error) {
	e, err := scanEntry(s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM entries WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Entry{}, &models.NotFoundError{Label: "entry"}
	}
	if err != nil {
		return models.Entry{}, fmt.Errorf("get entry: %w", err)
	}
	return e, nil
}

// UpdateEntry replaces the editable fields of an entry.
func (s *Store) UpdateEntry(ctx context.Context, e models.Entry) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE entries
   SET subject = $1, content_html = $2, visibility = $3,
       mood = $4, music = $5, location = $6, updated_at = $7
 WHERE id = $8
`, e.Subject, e.ContentHTML, e.Visibility, e.Mood, e.Music, e.Location, s.now().UTC(), e.ID)
	if err != nil {
		return fmt.Errorf("update entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &models.NotFoundError{Label: "entry"}
	}
	return nil
}

// DeleteEntry removes the entry row; comments cascade.
func (s *Store) DeleteEntry(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &models.NotFoundError{Label: "entry"}
	}
	return nil
}

// EntriesByUser returns one user's entries, newest first.
func (s *Store) EntriesByUser(ctx context.Context, userID string) ([]models.Entry, error) {
	return s.queryEntries(ctx, `
SELECT `+entryColumns+` FROM entries WHERE user_id = $1 ORDER BY created_at DESC
`, userID)
}

// SearchEntries matches subject or body by substring, restricted to
// entries the viewer may read: public entries, the viewer's own, and
// friends-only entries whose owner follows the viewer. An empty
// viewerID searches public entries only.
func (s *Store) SearchEntries(ctx context.Context, query, viewerID string, limit int) ([]models.Entry, error) {
	pattern := "%" + query + "%"
	return s.queryEntries(ctx, `
SELECT `+entryColumns+`
  FROM entries e
 WHERE (e.subject LIKE $1 OR e.content_html LIKE $1)
   AND (
         e.visibility = 'PUBLIC'
      OR ($2 <> '' AND e.user_id = $2)
      OR (e.visibility = 'FRIENDS' AND $2 <> '' AND EXISTS (
            SELECT 1 FROM friendships f
             WHERE f.follower_id = e.user_id AND f.following_id = $2))
       )
 ORDER BY e.created_at DESC
 LIMIT $3
`, pattern, viewerID, limit)
}

// FriendsFeed returns recent entries from the viewer and the people the
// viewer follows, newest first. Followed users' entries stay subject to
// visibility: public entries always, friends-only entries when their
// owner follows the viewer back.
func (s *Store) FriendsFeed(ctx context.Context, viewerID string, limit int) ([]models.Entry, error) {
	return s.queryEntries(ctx, `
SELECT `+entryColumns+`
  FROM entries e
 WHERE e.user_id = $1
    OR (
         EXISTS (
            SELECT 1 FROM friendships f
             WHERE f.follower_id = $1 AND f.following_id = e.user_id)
         AND (
               e.visibility = 'PUBLIC'
            OR (e.visibility = 'FRIENDS' AND EXISTS (
                  SELECT 1 FROM friendships f
                   WHERE f.follower_id = e.user_id AND f.following_id = $1))
             )
       )
 ORDER BY e.created_at DESC
 LIMIT $2
`, viewerID, limit)
}

// RecentPublicEntries returns the latest public entries site-wide.
func (s *Store) RecentPublicEntries(ctx context.Context, limit int) ([]models.Entry, error) {
	return s.queryEntries(ctx, `
SELECT `+entryColumns+`
  FROM entries
 WHERE visibility = 'PUBLIC'
 ORDER BY created_at DESC
 LIMIT $1
`, limit)
}

func (s *Store) queryEntries(ctx context.Context, query string, args ...any) ([]models.Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []models.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
