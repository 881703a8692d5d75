package models

import "time"

// Visibility controls who may read a journal entry.
type Visibility string

const (
	VisibilityPublic  Visibility = "PUBLIC"
	VisibilityFriends Visibility = "FRIENDS"
	VisibilityPrivate Visibility = "PRIVATE"
)

// Valid reports whether v is one of the three known levels.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityFriends, VisibilityPrivate:
		return true
	}
	return false
}

// CommentState is the soft lifecycle state of a comment. SCREENED and
// DELETED never remove the row.
type CommentState string

const (
	CommentVisible  CommentState = "VISIBLE"
	CommentScreened CommentState = "SCREENED"
	CommentDeleted  CommentState = "DELETED"
)

func (s CommentState) Valid() bool {
	switch s {
	case CommentVisible, CommentScreened, CommentDeleted:
		return true
	}
	return false
}

type User struct {
	ID          string
	Username    string
	Email       string
	DisplayName string
	Bio         string
	UserpicURL  string
	CreatedAt   time.Time
}

// Friendship is a directed follow edge. Mutual friendship is derived by
// checking both directions, never stored.
type Friendship struct {
	FollowerID  string
	FollowingID string
	CreatedAt   time.Time
}

type Entry struct {
	ID          string
	UserID      string
	Subject     string
	ContentHTML string
	Visibility  Visibility
	Mood        string
	Music       string
	Location    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Author identifies who wrote a comment: a registered user or an
// anonymous poster with a free-text display name. Exactly one side is
// set; use the constructors.
type Author struct {
	userID string
	name   string
}

func RegisteredAuthor(userID string) Author { return Author{userID: userID} }
func AnonymousAuthor(name string) Author    { return Author{name: name} }

// UserID returns the registered author's id, or "" for anonymous authors.
func (a Author) UserID() string { return a.userID }

// Name returns the anonymous display name, or "" for registered authors.
func (a Author) Name() string { return a.name }

func (a Author) Registered() bool { return a.userID != "" }

type Comment struct {
	ID          string
	EntryID     string
	ParentID    string // empty for top-level comments
	Author      Author
	ContentHTML string
	State       CommentState
	CreatedAt   time.Time
}
