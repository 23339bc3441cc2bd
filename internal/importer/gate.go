package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/backfeedhq/backfeed/internal/domain"
	"github.com/backfeedhq/backfeed/internal/logger"
	"github.com/backfeedhq/backfeed/internal/metrics"
)

const (
	defaultCommentType = "comment"
	avatarMetaKey      = "avatar"
)

// Gate inserts fetched reactions exactly once. Re-imports of the same remote
// reaction are detected by (post, author email) and, for non-default comment
// types, the type as well. The comment table carries a unique index over the
// same columns, so a concurrent insert losing the race surfaces as a
// duplicate here instead of a second copy.
type Gate struct {
	comments CommentRepository
	content  ContentRepository
	state    *State
	silo     string
}

// NewGate builds the insert gate for one silo importer.
func NewGate(comments CommentRepository, content ContentRepository, state *State, silo string) *Gate {
	return &Gate{comments: comments, content: content, state: state, silo: silo}
}

// Insert stores the reaction as a host comment unless an equivalent comment
// already exists. It returns the new comment id and whether a row was
// actually inserted. Both outcomes append a run log line.
func (g *Gate) Insert(ctx context.Context, r domain.Reaction) (int64, bool, error) {
	filter := domain.CommentFilter{
		PostID:      r.PostID,
		AuthorEmail: r.AuthorEmail,
	}
	if r.Type != defaultCommentType {
		filter.Type = r.Type
	}

	existing, err := g.comments.Find(ctx, filter)
	if err != nil {
		return 0, false, fmt.Errorf("dedup lookup: %w", err)
	}

	title := g.postTitle(ctx, r.PostID)
	if len(existing) > 0 {
		return 0, false, g.noteDuplicate(r, title)
	}

	id, err := g.comments.Insert(ctx, r.Comment)
	if errors.Is(err, domain.ErrDuplicateComment) {
		// Lost a race against a concurrent import of the same reaction.
		return 0, false, g.noteDuplicate(r, title)
	}
	if err != nil {
		return 0, false, fmt.Errorf("insert comment: %w", err)
	}

	metrics.ImportedReactions.WithLabelValues(g.silo, r.Type).Inc()
	g.attachMeta(ctx, id, r)

	if err := g.state.AppendLog(fmt.Sprintf("Imported %s by %s on %q", r.Type, r.Author, title)); err != nil {
		logger.WarnObj("run log append failed", "runlog_error", map[string]any{
			"silo":  g.silo,
			"error": err.Error(),
		})
	}
	return id, true, nil
}

func (g *Gate) noteDuplicate(r domain.Reaction, title string) error {
	metrics.DuplicateReactions.WithLabelValues(g.silo, r.Type).Inc()
	if err := g.state.AppendLog(fmt.Sprintf("Already exists: %s by %s on %q", r.Type, r.Author, title)); err != nil {
		logger.WarnObj("run log append failed", "runlog_error", map[string]any{
			"silo":  g.silo,
			"error": err.Error(),
		})
	}
	return nil
}

// attachMeta stores the avatar URL and the raw remote payload alongside the
// comment. Failures here never undo the insert; they are only logged.
func (g *Gate) attachMeta(ctx context.Context, commentID int64, r domain.Reaction) {
	if r.Avatar != "" {
		if err := g.comments.SetMeta(ctx, commentID, avatarMetaKey, r.Avatar); err != nil {
			logger.WarnObj("avatar meta store failed", "comment_meta_error", map[string]any{
				"silo":       g.silo,
				"comment_id": commentID,
				"error":      err.Error(),
			})
		}
	}
	if len(r.Raw) > 0 {
		if err := g.comments.SetMeta(ctx, commentID, g.state.OptName(), string(r.Raw)); err != nil {
			logger.WarnObj("raw payload meta store failed", "comment_meta_error", map[string]any{
				"silo":       g.silo,
				"comment_id": commentID,
				"error":      err.Error(),
			})
		}
	}
}

func (g *Gate) postTitle(ctx context.Context, postID string) string {
	ref, err := g.content.Get(ctx, postID)
	if err != nil || ref.Title == "" {
		return postID
	}
	return ref.Title
}
