// Package policy evaluates who may read, comment on, and moderate
// journal entries and comments. Decisions are pure functions over data
// the caller has already loaded; nothing here touches storage.
package policy

import (
	"errors"
	"fmt"

	"journal/internal/models"
)

// Decision sentinel errors. Rules return a value wrapping one of these;
// callers check with errors.Is:
//
//	if errors.Is(err, policy.Deny) { ... }
var (
	// Allow terminates evaluation with a permit decision.
	Allow = errors.New("policy: allow")

	// Deny terminates evaluation with a reject decision.
	Deny = errors.New("policy: deny")
)

// Denyf returns a formatted wrapped Deny decision.
func Denyf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Deny)...)
}

// Allowf returns a formatted wrapped Allow decision.
func Allowf(format string, a ...any) error {
	return fmt.Errorf(format+": %w", append(a, Allow)...)
}

// ErrAuthorNameRequired is the deny reason returned when an anonymous
// poster on a public entry supplies no display name. It wraps Deny.
var ErrAuthorNameRequired = fmt.Errorf("author name required: %w", Deny)

// FriendSet is the entry owner's following set, keyed by user id.
// The friends-only check is one-directional: the owner must have the
// viewer in this set; whether the viewer follows the owner back is
// irrelevant.
type FriendSet map[string]bool

// CanView decides whether viewerID may read e. An empty viewerID is an
// anonymous visitor; anonymous visitors never satisfy FRIENDS or
// PRIVATE. The denial reason for hidden entries is deliberately the
// same generic "permission denied" so the HTTP boundary can present it
// as not-found without leaking existence.
func CanView(e models.Entry, viewerID string, ownerFriends FriendSet) error {
	switch e.Visibility {
	case models.VisibilityPublic:
		return Allow
	case models.VisibilityPrivate:
		if viewerID != "" && viewerID == e.UserID {
			return Allow
		}
		return Denyf("permission denied")
	case models.VisibilityFriends:
		if viewerID == "" {
			return Denyf("permission denied")
		}
		if viewerID == e.UserID || ownerFriends[viewerID] {
			return Allow
		}
		return Denyf("permission denied")
	default:
		return Denyf("unknown visibility %q", e.Visibility)
	}
}

// CanComment decides whether a viewer may create a comment on e.
// hasAuthorName reports whether an anonymous poster supplied a display
// name. Rate limiting of anonymous posters is the caller's concern.
func CanComment(e models.Entry, viewerID string, hasAuthorName bool, ownerFriends FriendSet) error {
	if err := CanView(e, viewerID, ownerFriends); !errors.Is(err, Allow) {
		return err
	}
	switch e.Visibility {
	case models.VisibilityPrivate:
		// CanView already restricted this to the owner.
		return Allow
	case models.VisibilityFriends:
		// No anonymous comments on friends-only entries; CanView has
		// already rejected anonymous viewers here.
		return Allow
	default: // PUBLIC
		if viewerID == "" && !hasAuthorName {
			return ErrAuthorNameRequired
		}
		return Allow
	}
}

// Action is a moderation operation on a comment.
type Action string

const (
	ActionScreen Action = "screen"
	ActionDelete Action = "delete"
)

// CanModerate decides whether viewerID may apply action to c, which
// belongs to an entry owned by entryOwnerID.
//
// Screening is owner-only and only meaningful from VISIBLE; an owner
// screening an already screened comment is an idempotent allow so the
// operation can be retried safely. Deletion is permitted to the entry
// owner or to the registered comment author; anonymous comments can
// only be deleted by the owner.
func CanModerate(c models.Comment, entryOwnerID, viewerID string, action Action) error {
	if viewerID == "" {
		return Denyf("permission denied")
	}
	switch action {
	case ActionScreen:
		if viewerID != entryOwnerID {
			return Denyf("permission denied")
		}
		switch c.State {
		case models.CommentVisible:
			return Allow
		case models.CommentScreened:
			return Allowf("already screened")
		default:
			return Denyf("comment is deleted")
		}
	case ActionDelete:
		if viewerID != entryOwnerID && viewerID != c.Author.UserID() {
			return Denyf("permission denied")
		}
		if !CanTransition(c.State, models.CommentDeleted) {
			return Denyf("comment is already deleted")
		}
		return Allow
	default:
		return Denyf("unknown action %q", action)
	}
}

// transitions is the whitelist of legal comment state changes. There is
// no way back out of SCREENED or DELETED.
var transitions = map[models.CommentState]map[models.CommentState]bool{
	models.CommentVisible: {
		models.CommentScreened: true,
		models.CommentDeleted:  true,
	},
	models.CommentScreened: {
		models.CommentDeleted: true,
	},
}

// CanTransition reports whether a comment may move from one state to
// another.
func CanTransition(from, to models.CommentState) bool {
	return transitions[from][to]
}
