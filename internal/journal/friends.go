package journal

import (
	"context"
	"strings"

	"journal/internal/models"
)

// Follow adds userID -> targetID to the friendship graph. Following
// yourself or someone you already follow is a Conflict; a missing
// target is NotFound.
func (s *Service) Follow(ctx context.Context, userID, targetID string) error {
	if userID == "" {
		return models.ErrNotAuthenticated
	}
	if _, err := s.store.UserByID(ctx, targetID); err != nil {
		return err
	}
	return s.store.Follow(ctx, userID, targetID)
}

func (s *Service) Unfollow(ctx context.Context, userID, targetID string) error {
	if userID == "" {
		return models.ErrNotAuthenticated
	}
	return s.store.Unfollow(ctx, userID, targetID)
}

func (s *Service) IsFollowing(ctx context.Context, userID, targetID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	return s.store.IsFollowing(ctx, userID, targetID)
}

func (s *Service) Followers(ctx context.Context, userID string) ([]models.User, error) {
	return s.store.Followers(ctx, userID)
}

func (s *Service) Following(ctx context.Context, userID string) ([]models.User, error) {
	return s.store.Following(ctx, userID)
}

// ---- profile ----

func (s *Service) Profile(ctx context.Context, username string) (models.User, error) {
	return s.store.UserByUsername(ctx, username)
}

func (s *Service) UpdateProfile(ctx context.Context, userID, displayName, bio string) error {
	if userID == "" {
		return models.ErrNotAuthenticated
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return models.Invalid("display_name", "display name is required")
	}
	if len(displayName) > 100 {
		return models.Invalid("display_name", "display name must be less than 100 characters")
	}
	if len(bio) > 1000 {
		return models.Invalid("bio", "bio must be less than 1,000 characters")
	}
	return s.store.UpdateProfile(ctx, userID, displayName, bio)
}

// SetUserpic records the uploaded userpic URL and returns the previous
// URL so the caller can dispose of the superseded file.
func (s *Service) SetUserpic(ctx context.Context, userID, url string) (string, error) {
	if userID == "" {
		return "", models.ErrNotAuthenticated
	}
	return s.store.SetUserpic(ctx, userID, url)
}

// ClearUserpic removes the user's picture and returns the URL that was
// set, if any, so the caller can dispose of the file.
func (s *Service) ClearUserpic(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", models.ErrNotAuthenticated
	}
	return s.store.SetUserpic(ctx, userID, "")
}
