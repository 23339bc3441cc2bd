package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/backfeedhq/backfeed/internal/logger"
	"github.com/backfeedhq/backfeed/internal/metrics"
	"github.com/backfeedhq/backfeed/pkg/silo"
)

// Interval names the auto importer schedules itself under. While the queue
// holds work the next run follows quickly; a drained queue settles into the
// long steady cadence.
const (
	intervalBurst  = "burst"
	intervalSteady = "steady"
)

// AutoDriver runs unattended imports. Each run processes exactly one queue
// item and reschedules itself, so a slow remote never blocks the scheduler
// for long.
type AutoDriver struct {
	processor
	state       *State
	content     ContentRepository
	scheduler   Scheduler
	credentials CredentialSource
	metaKey     string
	burst       time.Duration
	steady      time.Duration
	now         func() time.Time
}

// AutoConfig wires a background import driver.
type AutoConfig struct {
	Connector      silo.Connector
	State          *State
	Gate           *Gate
	Content        ContentRepository
	Enricher       *Enricher
	Events         EventPublisher
	Scheduler      Scheduler
	Credentials    CredentialSource
	SyndicationKey string
	// BurstInterval delays the next run while the queue holds work.
	BurstInterval time.Duration
	// SteadyInterval delays the next full sweep after the queue drains.
	SteadyInterval time.Duration
	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

// NewAutoDriver validates the config and builds the driver.
func NewAutoDriver(cfg AutoConfig) (*AutoDriver, error) {
	if cfg.Connector == nil {
		return nil, errors.New("auto driver requires a connector")
	}
	if cfg.State == nil {
		return nil, errors.New("auto driver requires importer state")
	}
	if cfg.Gate == nil {
		return nil, errors.New("auto driver requires an insert gate")
	}
	if cfg.Content == nil {
		return nil, errors.New("auto driver requires a content repository")
	}
	if cfg.Scheduler == nil {
		return nil, errors.New("auto driver requires a scheduler")
	}
	if cfg.Credentials == nil {
		return nil, errors.New("auto driver requires a credential source")
	}
	if cfg.SyndicationKey == "" {
		return nil, errors.New("auto driver requires the syndication meta key")
	}
	if cfg.BurstInterval <= 0 {
		return nil, errors.New("auto driver requires a positive burst interval")
	}
	if cfg.SteadyInterval <= 0 {
		return nil, errors.New("auto driver requires a positive steady interval")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &AutoDriver{
		processor: processor{
			connector: cfg.Connector,
			gate:      cfg.Gate,
			enricher:  cfg.Enricher,
			events:    cfg.Events,
		},
		state:       cfg.State,
		content:     cfg.Content,
		scheduler:   cfg.Scheduler,
		credentials: cfg.Credentials,
		metaKey:     cfg.SyndicationKey,
		burst:       cfg.BurstInterval,
		steady:      cfg.SteadyInterval,
		now:         cfg.Now,
	}, nil
}

// JobID returns the scheduler job identifier of this importer instance.
func (a *AutoDriver) JobID() string {
	return a.state.OptName() + "_import_auto"
}

// EnsureScheduled bootstraps the recurring job when auto-import is enabled
// but no run is pending, e.g. after the scheduler store was wiped.
func (a *AutoDriver) EnsureScheduled() error {
	enabled, err := a.state.AutoImport()
	if err != nil {
		return err
	}
	if !enabled {
		return nil
	}
	if _, pending, err := a.scheduler.Current(a.JobID()); err != nil {
		return err
	} else if pending {
		return nil
	}
	return a.scheduler.ScheduleAt(a.now(), intervalSteady, a.JobID())
}

// RunOnce performs one background import step: process the next queue item
// and reschedule. When the user has switched auto-import off the pending job
// is cleared instead. Item-level failures go to the run log and the process
// log, they never abort the schedule.
func (a *AutoDriver) RunOnce(ctx context.Context) error {
	enabled, err := a.state.AutoImport()
	if err != nil {
		return err
	}
	if !enabled {
		return a.scheduler.Clear(a.JobID())
	}

	ok, err := a.credentials.Ensure(ctx)
	if err != nil {
		return err
	}
	if !ok {
		logger.WarnObj("auto-import skipped, no credential stored", "auto_import_skip", map[string]any{
			"silo": a.connector.Slug(),
		})
		// The fired job is already consumed; keep the schedule alive so a
		// later stored credential is picked up without a restart.
		return a.scheduler.ScheduleAt(a.now().Add(a.steady), intervalSteady, a.JobID())
	}

	start := time.Now()
	metrics.ImportRuns.Inc()
	defer metrics.ObserveImportDuration(start)

	items, err := a.state.EnsureQueue(ctx, a.content, a.connector.SiloName(), a.metaKey)
	if err != nil {
		return err
	}

	pos, err := a.state.Cursor()
	if err != nil {
		return err
	}
	if pos > len(items) {
		return fmt.Errorf("%w: cursor %d, queue length %d", ErrQueueInconsistent, pos, len(items))
	}
	if pos == len(items) {
		// Drained (or nothing syndicated yet): settle into the slow sweep.
		if err := a.state.Cleanup(); err != nil {
			return err
		}
		return a.scheduler.ScheduleAt(a.now().Add(a.steady), intervalSteady, a.JobID())
	}

	item := items[pos]
	for _, itemErr := range a.processItem(ctx, item) {
		line := fmt.Sprintf("Auto-import error: %v", itemErr)
		if err := a.state.AppendLog(line); err != nil {
			logger.WarnObj("run log append failed", "runlog_error", map[string]any{
				"silo":  a.connector.Slug(),
				"error": err.Error(),
			})
		}
		logger.ErrorObj("auto-import item failed", "auto_import_error", map[string]any{
			"silo":    a.connector.Slug(),
			"post_id": item.PostID,
			"error":   itemErr.Error(),
		})
	}

	pos, err = a.state.Advance()
	if err != nil {
		return err
	}

	if pos >= len(items) {
		if err := a.state.Cleanup(); err != nil {
			return err
		}
		return a.scheduler.ScheduleAt(a.now().Add(a.steady), intervalSteady, a.JobID())
	}
	return a.scheduler.ScheduleAt(a.now().Add(a.burst), intervalBurst, a.JobID())
}
