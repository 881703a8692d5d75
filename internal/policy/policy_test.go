package policy_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"journal/internal/models"
	"journal/internal/policy"
)

func entry(owner string, v models.Visibility) models.Entry {
	return models.Entry{ID: "e1", UserID: owner, Visibility: v}
}

func TestCanViewPublic(t *testing.T) {
	e := entry("alice", models.VisibilityPublic)
	for _, viewer := range []string{"", "alice", "bob", "stranger"} {
		assert.True(t, errors.Is(policy.CanView(e, viewer, nil), policy.Allow), "viewer=%q", viewer)
	}
}

func TestCanViewPrivate(t *testing.T) {
	e := entry("alice", models.VisibilityPrivate)

	assert.True(t, errors.Is(policy.CanView(e, "alice", nil), policy.Allow))

	for _, viewer := range []string{"", "bob"} {
		err := policy.CanView(e, viewer, nil)
		assert.True(t, errors.Is(err, policy.Deny), "viewer=%q", viewer)
	}
}

func TestCanViewFriends(t *testing.T) {
	e := entry("alice", models.VisibilityFriends)
	friends := policy.FriendSet{"bob": true}

	// Owner always sees their own entry.
	assert.True(t, errors.Is(policy.CanView(e, "alice", friends), policy.Allow))

	// Alice follows bob, so bob may view.
	assert.True(t, errors.Is(policy.CanView(e, "bob", friends), policy.Allow))

	// Carol is not in alice's following set.
	assert.True(t, errors.Is(policy.CanView(e, "carol", friends), policy.Deny))

	// Anonymous can never satisfy FRIENDS, even with a weird set.
	assert.True(t, errors.Is(policy.CanView(e, "", policy.FriendSet{"": true}), policy.Deny))
}

func TestCanViewDirectionality(t *testing.T) {
	// The check is owner-follows-viewer. A viewer following the owner
	// gains nothing.
	e := entry("alice", models.VisibilityFriends)
	err := policy.CanView(e, "bob", policy.FriendSet{})
	assert.True(t, errors.Is(err, policy.Deny))
}

func TestCanCommentDeniesWhenNotVisible(t *testing.T) {
	e := entry("alice", models.VisibilityPrivate)
	err := policy.CanComment(e, "bob", true, nil)
	require.True(t, errors.Is(err, policy.Deny))
}

func TestCanCommentPrivateOwnerOnly(t *testing.T) {
	e := entry("alice", models.VisibilityPrivate)
	assert.True(t, errors.Is(policy.CanComment(e, "alice", false, nil), policy.Allow))
	assert.True(t, errors.Is(policy.CanComment(e, "", true, nil), policy.Deny))
}

func TestCanCommentFriends(t *testing.T) {
	e := entry("alice", models.VisibilityFriends)
	friends := policy.FriendSet{"bob": true}

	assert.True(t, errors.Is(policy.CanComment(e, "bob", false, friends), policy.Allow))
	assert.True(t, errors.Is(policy.CanComment(e, "carol", false, friends), policy.Deny))

	// Anonymous posters are rejected before the author-name rule applies.
	assert.True(t, errors.Is(policy.CanComment(e, "", true, friends), policy.Deny))
}

func TestCanCommentPublicAnonymousNeedsName(t *testing.T) {
	e := entry("alice", models.VisibilityPublic)

	assert.True(t, errors.Is(policy.CanComment(e, "", true, nil), policy.Allow))

	err := policy.CanComment(e, "", false, nil)
	require.True(t, errors.Is(err, policy.Deny))
	assert.Contains(t, err.Error(), "author name required")

	// Registered users never need a display name.
	assert.True(t, errors.Is(policy.CanComment(e, "bob", false, nil), policy.Allow))
}

func comment(author models.Author, state models.CommentState) models.Comment {
	return models.Comment{ID: "c1", EntryID: "e1", Author: author, State: state}
}

func TestCanModerateScreen(t *testing.T) {
	c := comment(models.AnonymousAuthor("bookworm23"), models.CommentVisible)

	assert.True(t, errors.Is(policy.CanModerate(c, "alice", "alice", policy.ActionScreen), policy.Allow))
	assert.True(t, errors.Is(policy.CanModerate(c, "alice", "bob", policy.ActionScreen), policy.Deny))
	assert.True(t, errors.Is(policy.CanModerate(c, "alice", "", policy.ActionScreen), policy.Deny))
}

func TestCanModerateScreenIdempotent(t *testing.T) {
	c := comment(models.AnonymousAuthor("bookworm23"), models.CommentScreened)
	// A second screen by the owner is a no-op allow, not an error.
	assert.True(t, errors.Is(policy.CanModerate(c, "alice", "alice", policy.ActionScreen), policy.Allow))
}

func TestCanModerateScreenDeleted(t *testing.T) {
	c := comment(models.AnonymousAuthor("bookworm23"), models.CommentDeleted)
	assert.True(t, errors.Is(policy.CanModerate(c, "alice", "alice", policy.ActionScreen), policy.Deny))
}

func TestCanModerateDelete(t *testing.T) {
	c := comment(models.RegisteredAuthor("ursula"), models.CommentVisible)

	// Entry owner and registered author may delete; a third party may not.
	assert.True(t, errors.Is(policy.CanModerate(c, "alice", "alice", policy.ActionDelete), policy.Allow))
	assert.True(t, errors.Is(policy.CanModerate(c, "alice", "ursula", policy.ActionDelete), policy.Allow))
	assert.True(t, errors.Is(policy.CanModerate(c, "alice", "dave", policy.ActionDelete), policy.Deny))
}

func TestCanModerateDeleteAnonymousComment(t *testing.T) {
	c := comment(models.AnonymousAuthor("bookworm23"), models.CommentVisible)
	// Anonymous comments have no author id; only the owner may delete.
	assert.True(t, errors.Is(policy.CanModerate(c, "alice", "alice", policy.ActionDelete), policy.Allow))
	assert.True(t, errors.Is(policy.CanModerate(c, "alice", "bob", policy.ActionDelete), policy.Deny))
}

func TestCanModerateDeleteScreened(t *testing.T) {
	c := comment(models.RegisteredAuthor("ursula"), models.CommentScreened)
	assert.True(t, errors.Is(policy.CanModerate(c, "alice", "ursula", policy.ActionDelete), policy.Allow))
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to models.CommentState
		ok       bool
	}{
		{models.CommentVisible, models.CommentScreened, true},
		{models.CommentVisible, models.CommentDeleted, true},
		{models.CommentScreened, models.CommentDeleted, true},
		{models.CommentScreened, models.CommentVisible, false},
		{models.CommentDeleted, models.CommentVisible, false},
		{models.CommentDeleted, models.CommentScreened, false},
		{models.CommentVisible, models.CommentVisible, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, policy.CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}
