package domain

import (
	"encoding/json"
	"errors"
	"time"
)

// Domain contains the core models shared between silo connectors, the
// import drivers and the host CMS repositories.

// WorkItem is one (post, syndication URL) pair queued for reaction import.
// A single post can yield several work items when it was syndicated to the
// same silo more than once.
type WorkItem struct {
	PostID         string `json:"post_id"`
	SyndicationURL string `json:"syndication_url"`
}

// ContentRef identifies one piece of locally authored content.
type ContentRef struct {
	ID    string
	Title string
}

// Comment is a reaction normalized into the host CMS comment shape.
// AuthorEmail is a synthetic, silo-scoped uniqueness token of the form
// <remote_author_id>@<siloname>; it is never a deliverable address.
type Comment struct {
	Author      string
	AuthorURL   string
	AuthorEmail string
	PostID      string
	Type        string
	Content     string
	Agent       string
	Approved    bool
	Date        *time.Time // nil for reaction kinds that carry no timestamp
}

// Reaction couples a normalized comment with its raw remote element and the
// avatar URL derived for the author. The raw element is kept only as
// provenance metadata on the stored comment.
type Reaction struct {
	Comment
	Raw    json.RawMessage
	Avatar string
}

// MethodBinding maps one remote reaction method to the local comment type it
// is stored under. The per-silo binding list is ordered; methods are fetched
// in declaration order for every work item.
type MethodBinding struct {
	Method string
	Type   string
}

// CommentFilter selects stored comments by their dedup key fields.
// An empty Type matches comments of any type.
type CommentFilter struct {
	PostID      string
	AuthorEmail string
	Type        string
}

// ErrDuplicateComment reports that an insert collided with the comment
// dedup index. Repository implementations wrap it so the gate can treat the
// collision as "already exists" instead of a failure.
var ErrDuplicateComment = errors.New("comment already exists")
