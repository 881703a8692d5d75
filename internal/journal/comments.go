package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"journal/internal/models"
	"journal/internal/policy"
)

type CommentInput struct {
	EntryID     string `json:"entry_id"`
	ParentID    string `json:"parent_id"`
	ContentHTML string `json:"content_html"`
	AuthorName  string `json:"author_name"` // anonymous posters only
}

// CreateComment posts a comment as viewerID (registered) or, when
// viewerID is empty, as an anonymous author named in.AuthorName.
// Anonymous creation is throttled per originKey (the caller passes the
// client network address); registered users bypass the limiter.
func (s *Service) CreateComment(ctx context.Context, viewerID string, in CommentInput, originKey string) (models.Comment, error) {
	content := strings.TrimSpace(in.ContentHTML)
	if content == "" {
		return models.Comment{}, models.Invalid("content_html", "comment content is required")
	}
	if len(content) > 5000 {
		return models.Comment{}, models.Invalid("content_html", "comment must be less than 5,000 characters")
	}
	authorName := strings.TrimSpace(in.AuthorName)
	if len(authorName) > 100 {
		return models.Comment{}, models.Invalid("author_name", "author name must be less than 100 characters")
	}

	e, err := s.store.EntryByID(ctx, in.EntryID)
	if err != nil {
		return models.Comment{}, err
	}

	var friends policy.FriendSet
	if e.Visibility == models.VisibilityFriends && viewerID != "" && viewerID != e.UserID {
		if friends, err = s.friendSet(ctx, e.UserID); err != nil {
			return models.Comment{}, err
		}
	}
	if d := policy.CanComment(e, viewerID, authorName != "", friends); !errors.Is(d, policy.Allow) {
		if errors.Is(d, policy.ErrAuthorNameRequired) {
			return models.Comment{}, models.Invalid("author_name", "author name is required for anonymous comments")
		}
		return models.Comment{}, fmt.Errorf("%v: %w", d, models.ErrPermissionDenied)
	}

	if viewerID == "" {
		ok, retryAfter, err := s.limiter.Allow(ctx, "comment_"+originKey)
		if err != nil {
			return models.Comment{}, fmt.Errorf("rate limit check: %w", err)
		}
		if !ok {
			return models.Comment{}, &models.RateLimitError{RetryAfter: retryAfter}
		}
	}

	if in.ParentID != "" {
		parent, err := s.store.CommentByID(ctx, in.ParentID)
		if err != nil {
			return models.Comment{}, err
		}
		if parent.EntryID != e.ID {
			return models.Comment{}, models.Invalid("parent_id", "parent comment belongs to a different entry")
		}
	}

	author := models.AnonymousAuthor(authorName)
	if viewerID != "" {
		author = models.RegisteredAuthor(viewerID)
	}
	return s.store.CreateComment(ctx, models.Comment{
		EntryID:     e.ID,
		ParentID:    in.ParentID,
		Author:      author,
		ContentHTML: content,
	})
}

// ScreenComment hides a comment's content pending owner review. Only
// the entry owner may screen; screening an already screened comment
// succeeds without a write.
func (s *Service) ScreenComment(ctx context.Context, viewerID, commentID string) error {
	if viewerID == "" {
		return models.ErrNotAuthenticated
	}
	c, err := s.store.CommentByID(ctx, commentID)
	if err != nil {
		return err
	}
	e, err := s.store.EntryByID(ctx, c.EntryID)
	if err != nil {
		return err
	}
	d := policy.CanModerate(c, e.UserID, viewerID, policy.ActionScreen)
	if !errors.Is(d, policy.Allow) {
		if viewerID != e.UserID {
			return fmt.Errorf("only the entry owner may screen comments: %w", models.ErrPermissionDenied)
		}
		return fmt.Errorf("%v: %w", d, models.ErrConflict)
	}
	if c.State == models.CommentScreened {
		return nil // already screened, idempotent
	}
	return s.store.SetCommentState(ctx, commentID, models.CommentScreened)
}

// DeleteComment soft-deletes a comment. The entry owner or the
// registered author may delete; the row is retained and the comment
// disappears from every view.
func (s *Service) DeleteComment(ctx context.Context, viewerID, commentID string) error {
	if viewerID == "" {
		return models.ErrNotAuthenticated
	}
	c, err := s.store.CommentByID(ctx, commentID)
	if err != nil {
		return err
	}
	e, err := s.store.EntryByID(ctx, c.EntryID)
	if err != nil {
		return err
	}
	d := policy.CanModerate(c, e.UserID, viewerID, policy.ActionDelete)
	if !errors.Is(d, policy.Allow) {
		if viewerID != e.UserID && viewerID != c.Author.UserID() {
			return fmt.Errorf("%v: %w", d, models.ErrPermissionDenied)
		}
		return fmt.Errorf("%v: %w", d, models.ErrConflict)
	}
	return s.store.SetCommentState(ctx, commentID, models.CommentDeleted)
}
