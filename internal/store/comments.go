package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"journal/internal/models"
)

const commentColumns = `id, entry_id, parent_id, author_id, author_name, content_html, state, created_at`

func scanComment(sc interface{ Scan(...any) error }) (models.Comment, error) {
	var (
		c                  models.Comment
		parent, uid, aname sql.NullString
	)
	err := sc.Scan(&c.ID, &c.EntryID, &parent, &uid, &aname, &c.ContentHTML, &c.State, &c.CreatedAt)
	if err != nil {
		return models.Comment{}, err
	}
	c.ParentID = parent.String
	if uid.Valid {
		c.Author = models.RegisteredAuthor(uid.String)
	} else {
		c.Author = models.AnonymousAuthor(aname.String)
	}
	return c, nil
}

// CreateComment inserts a new VISIBLE comment, assigning id and
// timestamp. The author union maps to the nullable author_id /
// author_name pair guarded by the table CHECK.
func (s *Store) CreateComment(ctx context.Context, c models.Comment) (models.Comment, error) {
	c.ID = uuid.New().String()
	c.State = models.CommentVisible
	c.CreatedAt = s.now().UTC()

	var parent, uid, aname sql.NullString
	if c.ParentID != "" {
		parent = sql.NullString{String: c.ParentID, Valid: true}
	}
	if c.Author.Registered() {
		uid = sql.NullString{String: c.Author.UserID(), Valid: true}
	} else {
		aname = sql.NullString{String: c.Author.Name(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO comments (id, entry_id, parent_id, author_id, author_name, content_html, state, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`, c.ID, c.EntryID, parent, uid, aname, c.ContentHTML, c.State, c.CreatedAt)
	if err != nil {
		return models.Comment{}, fmt.Errorf("insert comment: %w", err)
	}
	return c, nil
}

func (s *Store) CommentByID(ctx context.Context, id string) (models.Comment, error) {
	c, err := scanComment(s.db.QueryRowContext(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Comment{}, &models.NotFoundError{Label: "comment"}
	}
	if err != nil {
		return models.Comment{}, fmt.Errorf("get comment: %w", err)
	}
	return c, nil
}

// CommentsByEntry returns every comment on an entry regardless of
// state, oldest first. Viewer filtering happens in the tree builder.
func (s *Store) CommentsByEntry(ctx context.Context, entryID string) ([]models.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT `+commentColumns+` FROM comments WHERE entry_id = $1 ORDER BY created_at ASC
`, entryID)
	if err != nil {
		return nil, fmt.Errorf("comments by entry: %w", err)
	}
	defer rows.Close()

	var comments []models.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// SetCommentState performs a soft state change. The row stays put.
func (s *Store) SetCommentState(ctx context.Context, id string, state models.CommentState) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE comments SET state = $1 WHERE id = $2`, state, id)
	if err != nil {
		return fmt.Errorf("set comment state: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &models.NotFoundError{Label: "comment"}
	}
	return nil
}
