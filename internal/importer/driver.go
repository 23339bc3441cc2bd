package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/backfeedhq/backfeed/internal/domain"
	"github.com/backfeedhq/backfeed/internal/logger"
	"github.com/backfeedhq/backfeed/internal/metrics"
	"github.com/backfeedhq/backfeed/pkg/publishers"
	"github.com/backfeedhq/backfeed/pkg/silo"
)

// DefaultRequestsPerLoad is how many queue items a single manual load
// processes before handing control back to the caller.
const DefaultRequestsPerLoad = 3

// Outcome tells a manual import caller whether to invoke RunLoad again.
type Outcome string

const (
	// OutcomeMore means the queue still holds unprocessed items.
	OutcomeMore Outcome = "more"
	// OutcomeDone means the queue is drained and bookkeeping was discarded.
	OutcomeDone Outcome = "done"
)

// LoadResult reports what one manual load did.
type LoadResult struct {
	Outcome   Outcome
	Processed int
	// Advisories are per-item failures that did not stop the run. The items
	// they belong to stay consumed; a later full re-import picks them up.
	Advisories []error
}

// processor runs the fetch-and-insert pipeline for a single queue item. It
// is shared by the manual and the background driver.
type processor struct {
	connector silo.Connector
	gate      *Gate
	enricher  *Enricher
	events    EventPublisher
}

// processItem fetches every reaction method for the item and pushes the
// results through the gate. Failures of one method never block the others.
func (p *processor) processItem(ctx context.Context, item domain.WorkItem) []error {
	var errs []error
	for _, binding := range p.connector.Methods() {
		reactions, err := p.connector.MakeRequests(ctx, binding.Method, item)
		if err != nil {
			metrics.ImportErrors.Inc()
			errs = append(errs, fmt.Errorf("%s %s for post %s: %w", p.connector.Slug(), binding.Method, item.PostID, err))
			continue
		}
		for _, r := range reactions {
			if p.enricher != nil {
				p.enricher.Fill(ctx, &r)
			}
			id, inserted, err := p.gate.Insert(ctx, r)
			if err != nil {
				metrics.ImportErrors.Inc()
				errs = append(errs, fmt.Errorf("store %s for post %s: %w", binding.Type, item.PostID, err))
				continue
			}
			if inserted {
				p.notify(ctx, id, r)
			}
		}
	}
	return errs
}

func (p *processor) notify(ctx context.Context, commentID int64, r domain.Reaction) {
	if p.events == nil {
		return
	}
	evt := publishers.NewEvent(p.connector.Slug(), commentID, r.Comment)
	if _, err := p.events.Publish(ctx, evt); err != nil {
		logger.WarnObj("reaction event fanout failed", "publisher_error", map[string]any{
			"silo":       p.connector.Slug(),
			"comment_id": commentID,
			"error":      err.Error(),
		})
	}
}

// Driver runs interactive, chunked imports. Each RunLoad processes up to
// RequestsPerLoad queue items and reports whether more remain, so a caller
// can stretch a large import across many short invocations.
type Driver struct {
	processor
	state           *State
	content         ContentRepository
	metaKey         string
	requestsPerLoad int
}

// DriverConfig wires a manual import driver.
type DriverConfig struct {
	Connector       silo.Connector
	State           *State
	Gate            *Gate
	Content         ContentRepository
	Enricher        *Enricher
	Events          EventPublisher
	SyndicationKey  string
	RequestsPerLoad int
}

// NewDriver validates the config and builds the driver.
func NewDriver(cfg DriverConfig) (*Driver, error) {
	if cfg.Connector == nil {
		return nil, errors.New("driver requires a connector")
	}
	if cfg.State == nil {
		return nil, errors.New("driver requires importer state")
	}
	if cfg.Gate == nil {
		return nil, errors.New("driver requires an insert gate")
	}
	if cfg.Content == nil {
		return nil, errors.New("driver requires a content repository")
	}
	if cfg.SyndicationKey == "" {
		return nil, errors.New("driver requires the syndication meta key")
	}
	if cfg.RequestsPerLoad <= 0 {
		cfg.RequestsPerLoad = DefaultRequestsPerLoad
	}

	return &Driver{
		processor: processor{
			connector: cfg.Connector,
			gate:      cfg.Gate,
			enricher:  cfg.Enricher,
			events:    cfg.Events,
		},
		state:           cfg.State,
		content:         cfg.Content,
		metaKey:         cfg.SyndicationKey,
		requestsPerLoad: cfg.RequestsPerLoad,
	}, nil
}

// RunLoad processes up to RequestsPerLoad items from the work queue,
// advancing the cursor after each item so an interrupted run resumes at the
// right place. Item-level failures accumulate as advisories; the returned
// error is reserved for conditions that abort the run.
func (d *Driver) RunLoad(ctx context.Context) (LoadResult, error) {
	start := time.Now()
	metrics.ImportRuns.Inc()
	defer metrics.ObserveImportDuration(start)

	items, err := d.state.EnsureQueue(ctx, d.content, d.connector.SiloName(), d.metaKey)
	if err != nil {
		return LoadResult{}, err
	}

	res := LoadResult{}
	for i := 0; i < d.requestsPerLoad; i++ {
		pos, err := d.state.Cursor()
		if err != nil {
			return res, err
		}
		if pos > len(items) {
			return res, fmt.Errorf("%w: cursor %d, queue length %d", ErrQueueInconsistent, pos, len(items))
		}
		if pos == len(items) {
			break
		}

		res.Advisories = append(res.Advisories, d.processItem(ctx, items[pos])...)
		res.Processed++

		if _, err := d.state.Advance(); err != nil {
			return res, err
		}
	}

	pos, err := d.state.Cursor()
	if err != nil {
		return res, err
	}
	if pos >= len(items) {
		res.Outcome = OutcomeDone
	} else {
		res.Outcome = OutcomeMore
	}
	return res, nil
}

// Finish returns the accumulated run log and discards the run bookkeeping.
// Call it once after RunLoad reports OutcomeDone.
func (d *Driver) Finish() ([]string, error) {
	lines, err := d.state.Log()
	if err != nil {
		return nil, err
	}
	if err := d.state.Cleanup(); err != nil {
		return lines, err
	}
	return lines, nil
}
