// Package journal wires the policies, the store, and the rate limiter
// into the operations the HTTP surface exposes.
package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"journal/internal/cache"
	"journal/internal/models"
	"journal/internal/policy"
	"journal/internal/ratelimit"
	"journal/internal/store"
	"journal/internal/thread"
)

// Store is the persistence surface the service needs. *store.Store
// satisfies it; tests substitute an in-memory fake.
type Store interface {
	UserByID(ctx context.Context, id string) (models.User, error)
	UserByUsername(ctx context.Context, username string) (models.User, error)
	UpdateProfile(ctx context.Context, id, displayName, bio string) error
	SetUserpic(ctx context.Context, id, url string) (string, error)
	SearchUsers(ctx context.Context, query string, limit int) ([]models.User, error)

	Follow(ctx context.Context, followerID, followingID string) error
	Unfollow(ctx context.Context, followerID, followingID string) error
	IsFollowing(ctx context.Context, followerID, followingID string) (bool, error)
	FriendIDs(ctx context.Context, userID string) ([]string, error)
	Followers(ctx context.Context, userID string) ([]models.User, error)
	Following(ctx context.Context, userID string) ([]models.User, error)

	CreateEntry(ctx context.Context, e models.Entry) (models.Entry, error)
	EntryByID(ctx context.Context, id string) (models.Entry, error)
	UpdateEntry(ctx context.Context, e models.Entry) error
	DeleteEntry(ctx context.Context, id string) error
	EntriesByUser(ctx context.Context, userID string) ([]models.Entry, error)
	SearchEntries(ctx context.Context, query, viewerID string, limit int) ([]models.Entry, error)
	FriendsFeed(ctx context.Context, viewerID string, limit int) ([]models.Entry, error)
	RecentPublicEntries(ctx context.Context, limit int) ([]models.Entry, error)

	CreateComment(ctx context.Context, c models.Comment) (models.Comment, error)
	CommentByID(ctx context.Context, id string) (models.Comment, error)
	CommentsByEntry(ctx context.Context, entryID string) ([]models.Comment, error)
	SetCommentState(ctx context.Context, id string, state models.CommentState) error

	Stats(ctx context.Context) (store.SiteStats, error)
}

type Service struct {
	store   Store
	limiter ratelimit.Limiter
	stats   *cache.TTL
}

func New(s Store, limiter ratelimit.Limiter, stats *cache.TTL) *Service {
	return &Service{store: s, limiter: limiter, stats: stats}
}

// friendSet loads the owner's following set for a FRIENDS check. It is
// only fetched when the policy actually needs it.
func (s *Service) friendSet(ctx context.Context, ownerID string) (policy.FriendSet, error) {
	ids, err := s.store.FriendIDs(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	set := make(policy.FriendSet, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// ---- entries ----

type EntryInput struct {
	Subject     string            `json:"subject"`
	ContentHTML string            `json:"content_html"`
	Visibility  models.Visibility `json:"visibility"`
	Mood        string            `json:"mood"`
	Music       string            `json:"music"`
	Location    string            `json:"location"`
}

func validateEntry(in EntryInput) error {
	if strings.TrimSpace(in.ContentHTML) == "" {
		return models.Invalid("content_html", "entry content is required")
	}
	if len(in.ContentHTML) > 50000 {
		return models.Invalid("content_html", "content must be less than 50,000 characters")
	}
	if len(in.Subject) > 200 {
		return models.Invalid("subject", "subject must be less than 200 characters")
	}
	if !in.Visibility.Valid() {
		return models.Invalid("visibility", "visibility must be PUBLIC, FRIENDS, or PRIVATE")
	}
	return nil
}

func (s *Service) CreateEntry(ctx context.Context, userID string, in EntryInput) (models.Entry, error) {
	if userID == "" {
		return models.Entry{}, models.ErrNotAuthenticated
	}
	if err := validateEntry(in); err != nil {
		return models.Entry{}, err
	}
	return s.store.CreateEntry(ctx, models.Entry{
		UserID:      userID,
		Subject:     strings.TrimSpace(in.Subject),
		ContentHTML: in.ContentHTML,
		Visibility:  in.Visibility,
		Mood:        in.Mood,
		Music:       in.Music,
		Location:    in.Location,
	})
}

func (s *Service) UpdateEntry(ctx context.Context, userID, entryID string, in EntryInput) error {
	if userID == "" {
		return models.ErrNotAuthenticated
	}
	if err := validateEntry(in); err != nil {
		return err
	}
	e, err := s.store.EntryByID(ctx, entryID)
	if err != nil {
		return err
	}
	if e.UserID != userID {
		return fmt.Errorf("only the owner may edit an entry: %w", models.ErrPermissionDenied)
	}
	e.Subject = strings.TrimSpace(in.Subject)
	e.ContentHTML = in.ContentHTML
	e.Visibility = in.Visibility
	e.Mood = in.Mood
	e.Music = in.Music
	e.Location = in.Location
	return s.store.UpdateEntry(ctx, e)
}

// DeleteEntry hard-deletes an entry; comments go with it.
func (s *Service) DeleteEntry(ctx context.Context, userID, entryID string) error {
	if userID == "" {
		return models.ErrNotAuthenticated
	}
	e, err := s.store.EntryByID(ctx, entryID)
	if err != nil {
		return err
	}
	if e.UserID != userID {
		return fmt.Errorf("only the owner may delete an entry: %w", models.ErrPermissionDenied)
	}
	return s.store.DeleteEntry(ctx, entryID)
}

// EntryView is an entry together with its viewer-filtered comment
// thread and the thread's node count.
type EntryView struct {
	Entry        models.Entry
	Comments     thread.Tree
	CommentCount int
}

// GetEntry loads an entry for a viewer. A visibility denial comes back
// as ErrPermissionDenied; the HTTP boundary presents it as not-found so
// hidden entries are indistinguishable from missing ones.
func (s *Service) GetEntry(ctx context.Context, viewerID, entryID string) (EntryView, error) {
	e, err := s.store.EntryByID(ctx, entryID)
	if err != nil {
		return EntryView{}, err
	}
	if err := s.checkView(ctx, e, viewerID); err != nil {
		return EntryView{}, err
	}
	comments, err := s.store.CommentsByEntry(ctx, entryID)
	if err != nil {
		return EntryView{}, err
	}
	tree := thread.Build(comments, e.UserID, viewerID)
	return EntryView{Entry: e, Comments: tree, CommentCount: tree.Count()}, nil
}

func (s *Service) checkView(ctx context.Context, e models.Entry, viewerID string) error {
	var friends policy.FriendSet
	if e.Visibility == models.VisibilityFriends && viewerID != "" && viewerID != e.UserID {
		var err error
		if friends, err = s.friendSet(ctx, e.UserID); err != nil {
			return err
		}
	}
	if d := policy.CanView(e, viewerID, friends); !errors.Is(d, policy.Allow) {
		return fmt.Errorf("%v: %w", d, models.ErrPermissionDenied)
	}
	return nil
}

// ListUserEntries returns username's journal as the viewer may see it:
// the owner sees everything, friends additionally see FRIENDS entries,
// everyone else sees only PUBLIC ones.
func (s *Service) ListUserEntries(ctx context.Context, viewerID, username string) ([]models.Entry, error) {
	owner, err := s.store.UserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.EntriesByUser(ctx, owner.ID)
	if err != nil {
		return nil, err
	}
	if viewerID == owner.ID {
		return entries, nil
	}

	var friends policy.FriendSet
	if viewerID != "" {
		if friends, err = s.friendSet(ctx, owner.ID); err != nil {
			return nil, err
		}
	}
	visible := entries[:0]
	for _, e := range entries {
		if errors.Is(policy.CanView(e, viewerID, friends), policy.Allow) {
			visible = append(visible, e)
		}
	}
	return visible, nil
}

// FriendsFeed is the reader page: recent entries from the viewer and
// the people they follow, visibility-filtered in the store query.
func (s *Service) FriendsFeed(ctx context.Context, viewerID string, limit int) ([]models.Entry, error) {
	if viewerID == "" {
		return nil, models.ErrNotAuthenticated
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.store.FriendsFeed(ctx, viewerID, limit)
}

// RecentPublicEntries returns the latest public entries site-wide.
func (s *Service) RecentPublicEntries(ctx context.Context, limit int) ([]models.Entry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.store.RecentPublicEntries(ctx, limit)
}

// SearchEntries is a substring search over entries the viewer may read.
func (s *Service) SearchEntries(ctx context.Context, viewerID, query string, limit int) ([]models.Entry, error) {
	query = strings.TrimSpace(query)
	if len(query) < 2 {
		return nil, models.Invalid("q", "search query must be at least 2 characters")
	}
	if limit <= 0 {
		limit = 20
	}
	return s.store.SearchEntries(ctx, query, viewerID, limit)
}

func (s *Service) SearchUsers(ctx context.Context, query string, limit int) ([]models.User, error) {
	query = strings.TrimSpace(query)
	if len(query) < 2 {
		return nil, models.Invalid("q", "search query must be at least 2 characters")
	}
	if limit <= 0 {
		limit = 10
	}
	return s.store.SearchUsers(ctx, query, limit)
}

// ---- stats ----

const statsKey = "site"

// Stats returns the site counters, memoized behind the TTL cache.
func (s *Service) Stats(ctx context.Context) (store.SiteStats, error) {
	if v, ok := s.stats.Get(statsKey); ok {
		return v.(store.SiteStats), nil
	}
	st, err := s.store.Stats(ctx)
	if err != nil {
		return store.SiteStats{}, err
	}
	s.stats.Set(statsKey, st)
	return st, nil
}
