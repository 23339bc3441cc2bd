package hostcms

import (
	"context"
	"errors"
	"fmt"

	"github.com/backfeedhq/backfeed/internal/domain"
	"gorm.io/gorm"
)

// CommentRepo stores imported reactions as host comments.
type CommentRepo struct {
	db *gorm.DB
}

// NewCommentRepo creates a comment repository bound to db.
func NewCommentRepo(db *gorm.DB) *CommentRepo {
	return &CommentRepo{db: db}
}

// Find returns stored comments matching the filter. An empty filter Type
// matches comments of any type.
func (r *CommentRepo) Find(ctx context.Context, f domain.CommentFilter) ([]domain.Comment, error) {
	query := r.db.WithContext(ctx).
		Where("post_id = ? AND author_email = ?", f.PostID, f.AuthorEmail)
	if f.Type != "" {
		query = query.Where("type = ?", f.Type)
	}

	var rows []Comment
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find comments: %w", err)
	}

	out := make([]domain.Comment, 0, len(rows))
	for _, c := range rows {
		out = append(out, domain.Comment{
			Author:      c.Author,
			AuthorURL:   c.AuthorURL,
			AuthorEmail: c.AuthorEmail,
			PostID:      c.PostID,
			Type:        c.Type,
			Content:     c.Content,
			Agent:       c.Agent,
			Approved:    c.Approved,
			Date:        c.Date,
		})
	}
	return out, nil
}

// Insert persists the comment and returns its id. A collision with the dedup
// index is reported as domain.ErrDuplicateComment.
func (r *CommentRepo) Insert(ctx context.Context, c domain.Comment) (int64, error) {
	row := Comment{
		PostID:      c.PostID,
		Author:      c.Author,
		AuthorEmail: c.AuthorEmail,
		AuthorURL:   c.AuthorURL,
		Type:        c.Type,
		Content:     c.Content,
		Agent:       c.Agent,
		Approved:    c.Approved,
		Date:        c.Date,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return 0, fmt.Errorf("insert comment for post %s: %w", c.PostID, domain.ErrDuplicateComment)
		}
		return 0, fmt.Errorf("insert comment for post %s: %w", c.PostID, err)
	}
	return row.ID, nil
}

// SetMeta attaches a key/value pair to the comment.
func (r *CommentRepo) SetMeta(ctx context.Context, commentID int64, key, value string) error {
	meta := CommentMeta{CommentID: commentID, Key: key, Value: value}
	if err := r.db.WithContext(ctx).Create(&meta).Error; err != nil {
		return fmt.Errorf("set comment meta %d/%s: %w", commentID, key, err)
	}
	return nil
}
