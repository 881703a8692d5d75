package store

import (
	"context"
	"fmt"

	"journal/internal/models"
)

// Follow creates a directed follow edge. Self-follows and duplicate
// edges are Conflict errors; duplicates are caught by the primary key,
// not by a read-then-write, so concurrent requests cannot race past it.
func (s *Store) Follow(ctx context.Context, followerID, followingID string) error {
	if followerID == followingID {
		return fmt.Errorf("cannot follow yourself: %w", models.ErrConflict)
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO friendships (follower_id, following_id, created_at)
VALUES ($1, $2, $3)
`, followerID, followingID, s.now().UTC())
	if isUniqueErr(err, "friendships") || isUniqueErr(err, "follower_id") {
		return fmt.Errorf("already following this user: %w", models.ErrConflict)
	}
	if isCheckErr(err) {
		return fmt.Errorf("cannot follow yourself: %w", models.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("follow: %w", err)
	}
	return nil
}

// Unfollow removes the edge. Removing a missing edge is not an error.
func (s *Store) Unfollow(ctx context.Context, followerID, followingID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM friendships WHERE follower_id = $1 AND following_id = $2`,
		followerID, followingID)
	if err != nil {
		return fmt.Errorf("unfollow: %w", err)
	}
	return nil
}

func (s *Store) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM friendships WHERE follower_id = $1 AND following_id = $2`,
		followerID, followingID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("is following: %w", err)
	}
	return n > 0, nil
}

// FriendIDs returns the ids of everyone userID follows. This set is
// what the FRIENDS visibility check consults.
func (s *Store) FriendIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT following_id FROM friendships WHERE follower_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("friend ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan friend id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Followers returns the users following userID, newest edge first.
func (s *Store) Followers(ctx context.Context, userID string) ([]models.User, error) {
	return s.edgeUsers(ctx, `
SELECT u.id, u.username, u.email, u.display_name, u.bio, u.userpic_url, u.created_at
  FROM friendships f
  JOIN users u ON u.id = f.follower_id
 WHERE f.following_id = $1
 ORDER BY f.created_at DESC
`, userID)
}

// Following returns the users userID follows, newest edge first.
func (s *Store) Following(ctx context.Context, userID string) ([]models.User, error) {
	return s.edgeUsers(ctx, `
SELECT u.id, u.username, u.email, u.display_name, u.bio, u.userpic_url, u.created_at
  FROM friendships f
  JOIN users u ON u.id = f.following_id
 WHERE f.follower_id = $1
 ORDER BY f.created_at DESC
`, userID)
}

func (s *Store) edgeUsers(ctx context.Context, query, userID string) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("friendship users: %w", err)
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
