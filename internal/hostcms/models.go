package hostcms

import "time"

// Package hostcms is the host content-management storage the importer feeds:
// published posts with their syndication metadata, and the comments imported
// reactions are stored as.

// PostStatusPublished marks content visible to readers; only published posts
// are scanned for syndication markers.
const PostStatusPublished = "publish"

// Post is one piece of locally authored content.
type Post struct {
	ID        string `gorm:"primaryKey;size:64"`
	Title     string
	Status    string `gorm:"index;size:32"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PostMeta is one key/value pair attached to a post.
type PostMeta struct {
	ID     int64  `gorm:"primaryKey;autoIncrement"`
	PostID string `gorm:"index:idx_post_meta,priority:1;size:64"`
	Key    string `gorm:"column:meta_key;index:idx_post_meta,priority:2;size:255"`
	Value  string `gorm:"column:meta_value"`
}

// Comment is an imported reaction stored in host form. The unique index over
// (post_id, author_email, type) is the dedup key; a second insert for the
// same reaction fails at the storage layer even if two invocations race past
// the lookup.
type Comment struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	PostID      string `gorm:"uniqueIndex:idx_comment_dedup,priority:1;size:64"`
	Author      string
	AuthorEmail string `gorm:"uniqueIndex:idx_comment_dedup,priority:2;size:255"`
	AuthorURL   string
	Type        string `gorm:"uniqueIndex:idx_comment_dedup,priority:3;size:32"`
	Content     string
	Agent       string
	Approved    bool
	Date        *time.Time
	CreatedAt   time.Time
}

// CommentMeta is one key/value pair attached to a comment (avatar URL, raw
// provenance payload).
type CommentMeta struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	CommentID int64  `gorm:"index:idx_comment_meta,priority:1"`
	Key       string `gorm:"column:meta_key;index:idx_comment_meta,priority:2;size:255"`
	Value     string `gorm:"column:meta_value"`
}
