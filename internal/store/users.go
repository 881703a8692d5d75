package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"journal/internal/models"
)

const userColumns = `id, username, email, display_name, bio, userpic_url, created_at`

func scanUser(row *sql.Row) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.DisplayName, &u.Bio, &u.UserpicURL, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, &models.NotFoundError{Label: "user"}
	}
	if err != nil {
		return models.User{}, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

func (s *Store) UserByID(ctx context.Context, id string) (models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *Store) UserByUsername(ctx context.Context, username string) (models.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

// UpdateProfile replaces the mutable profile fields of a user.
func (s *Store) UpdateProfile(ctx context.Context, id, displayName, bio string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET display_name = $1, bio = $2 WHERE id = $3`,
		displayName, bio, id)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &models.NotFoundError{Label: "user"}
	}
	return nil
}

// SetUserpic stores the new userpic URL and returns the previous one so
// the caller can delete the superseded file.
func (s *Store) SetUserpic(ctx context.Context, id, url string) (old string, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT userpic_url FROM users WHERE id = $1`, id).Scan(&old)
	if errors.Is(err, sql.ErrNoRows) {
		return "", &models.NotFoundError{Label: "user"}
	}
	if err != nil {
		return "", fmt.Errorf("get userpic: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE users SET userpic_url = $1 WHERE id = $2`, url, id); err != nil {
		return "", fmt.Errorf("set userpic: %w", err)
	}
	return old, nil
}

// SearchUsers matches username or display name by substring.
func (s *Store) SearchUsers(ctx context.Context, query string, limit int) ([]models.User, error) {
	pattern := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx, `
SELECT `+userColumns+`
  FROM users
 WHERE username LIKE $1 OR display_name LIKE $1
 ORDER BY username
 LIMIT $2
`, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.DisplayName, &u.Bio, &u.UserpicURL, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
