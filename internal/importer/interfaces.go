package importer

import (
	"context"
	"time"

	"github.com/backfeedhq/backfeed/internal/domain"
	"github.com/backfeedhq/backfeed/pkg/publishers"
)

// The importer core talks to its host through these interfaces; concrete
// implementations live in internal/hostcms, internal/scheduler and
// internal/app.

// ContentRepository reads locally authored content and its metadata.
type ContentRepository interface {
	ListPublished(ctx context.Context, metaKey string) ([]domain.ContentRef, error)
	Meta(ctx context.Context, postID, key string) (string, error)
	Get(ctx context.Context, postID string) (domain.ContentRef, error)
}

// CommentRepository stores imported reactions as host comments.
type CommentRepository interface {
	Find(ctx context.Context, f domain.CommentFilter) ([]domain.Comment, error)
	Insert(ctx context.Context, c domain.Comment) (int64, error)
	SetMeta(ctx context.Context, commentID int64, key, value string) error
}

// Scheduler manages the single recurring auto-import job of one importer.
type Scheduler interface {
	ScheduleAt(at time.Time, interval, jobID string) error
	Clear(jobID string) error
	// Current returns the interval name of the pending job, if any.
	Current(jobID string) (string, bool, error)
}

// CredentialSource makes the importer's access credential available for
// remote requests, reporting false when none is stored.
type CredentialSource interface {
	Ensure(ctx context.Context) (bool, error)
}

// EventPublisher fans an imported-reaction event out to downstream sinks.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}
