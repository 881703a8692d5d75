// Package thread assembles a flat set of comments into the nested reply
// structure used for display. The builder works over an arena: nodes
// live in one slice and children are indexes into it.
package thread

import (
	"sort"

	"journal/internal/models"
)

// ScreenedPlaceholder replaces the content of screened comments when the
// entry owner views the thread.
const ScreenedPlaceholder = "(screened by entry owner)"

// Node is one comment in the built tree. Children are indexes into
// Tree.Nodes, ordered by creation time ascending.
type Node struct {
	Comment  models.Comment
	Screened bool // content withheld and replaced by ScreenedPlaceholder
	Children []int
}

// Tree is the viewer-filtered comment thread for one entry.
type Tree struct {
	Nodes []Node
	Roots []int
}

// Build filters and nests comments for the given viewer.
//
// DELETED comments are excluded for every viewer, owner included.
// Non-owners see only VISIBLE comments. The owner additionally sees
// SCREENED comments with their content replaced by the placeholder.
// Filtering is recursive: dropping a comment drops its whole subtree.
func Build(comments []models.Comment, entryOwnerID, viewerID string) Tree {
	isOwner := viewerID != "" && viewerID == entryOwnerID

	kept := make([]models.Comment, 0, len(comments))
	for _, c := range comments {
		switch c.State {
		case models.CommentVisible:
			kept = append(kept, c)
		case models.CommentScreened:
			if isOwner {
				c.ContentHTML = ScreenedPlaceholder
				kept = append(kept, c)
			}
		}
	}

	byParent := make(map[string][]models.Comment)
	for _, c := range kept {
		byParent[c.ParentID] = append(byParent[c.ParentID], c)
	}
	for _, siblings := range byParent {
		sort.SliceStable(siblings, func(i, j int) bool {
			if !siblings[i].CreatedAt.Equal(siblings[j].CreatedAt) {
				return siblings[i].CreatedAt.Before(siblings[j].CreatedAt)
			}
			return siblings[i].ID < siblings[j].ID
		})
	}

	t := Tree{}
	var attach func(c models.Comment) int
	attach = func(c models.Comment) int {
		idx := len(t.Nodes)
		t.Nodes = append(t.Nodes, Node{
			Comment:  c,
			Screened: c.State == models.CommentScreened,
		})
		for _, child := range byParent[c.ID] {
			ci := attach(child)
			t.Nodes[idx].Children = append(t.Nodes[idx].Children, ci)
		}
		return idx
	}
	for _, root := range byParent[""] {
		t.Roots = append(t.Roots, attach(root))
	}
	return t
}

// Count returns the number of comments in the filtered tree. Because
// filtering depends on the viewer, so does the count.
func (t Tree) Count() int { return len(t.Nodes) }

// Flatten returns the comments of the tree in pre-order.
func (t Tree) Flatten() []models.Comment {
	out := make([]models.Comment, 0, len(t.Nodes))
	var walk func(idx int)
	walk = func(idx int) {
		out = append(out, t.Nodes[idx].Comment)
		for _, ci := range t.Nodes[idx].Children {
			walk(ci)
		}
	}
	for _, r := range t.Roots {
		walk(r)
	}
	return out
}
