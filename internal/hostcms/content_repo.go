package hostcms

import (
	"context"
	"errors"
	"fmt"

	"github.com/backfeedhq/backfeed/internal/domain"
	"gorm.io/gorm"
)

// ContentRepo reads published posts and their metadata.
type ContentRepo struct {
	db *gorm.DB
}

// NewContentRepo creates a content repository bound to db.
func NewContentRepo(db *gorm.DB) *ContentRepo {
	return &ContentRepo{db: db}
}

// ListPublished returns every published post that carries the given meta key.
func (r *ContentRepo) ListPublished(ctx context.Context, metaKey string) ([]domain.ContentRef, error) {
	var posts []Post
	err := r.db.WithContext(ctx).
		Where("status = ?", PostStatusPublished).
		Where("id IN (?)", r.db.Model(&PostMeta{}).Select("post_id").Where("meta_key = ?", metaKey)).
		Order("created_at").
		Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("list published posts: %w", err)
	}

	refs := make([]domain.ContentRef, 0, len(posts))
	for _, p := range posts {
		refs = append(refs, domain.ContentRef{ID: p.ID, Title: p.Title})
	}
	return refs, nil
}

// Meta returns the value stored for (postID, key), or "" when absent.
func (r *ContentRepo) Meta(ctx context.Context, postID, key string) (string, error) {
	var meta PostMeta
	err := r.db.WithContext(ctx).
		Where("post_id = ? AND meta_key = ?", postID, key).
		First(&meta).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read post meta %s/%s: %w", postID, key, err)
	}
	return meta.Value, nil
}

// Get returns the post with the given id.
func (r *ContentRepo) Get(ctx context.Context, postID string) (domain.ContentRef, error) {
	var post Post
	if err := r.db.WithContext(ctx).First(&post, "id = ?", postID).Error; err != nil {
		return domain.ContentRef{}, fmt.Errorf("read post %s: %w", postID, err)
	}
	return domain.ContentRef{ID: post.ID, Title: post.Title}, nil
}
