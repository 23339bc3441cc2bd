package publishers

import (
	"time"

	"github.com/backfeedhq/backfeed/internal/domain"
)

// Event represents an imported reaction published downstream.
type Event struct {
	Silo        string    `json:"silo"`
	PostID      string    `json:"post_id"`
	CommentID   int64     `json:"comment_id"`
	CommentType string    `json:"comment_type"`
	Author      string    `json:"author"`
	AuthorURL   string    `json:"author_url"`
	ImportedAt  time.Time `json:"imported_at"`
}

// NewEvent constructs an Event for a freshly inserted reaction.
func NewEvent(silo string, commentID int64, c domain.Comment) Event {
	return Event{
		Silo:        silo,
		PostID:      c.PostID,
		CommentID:   commentID,
		CommentType: c.Type,
		Author:      c.Author,
		AuthorURL:   c.AuthorURL,
		ImportedAt:  time.Now().UTC(),
	}
}
