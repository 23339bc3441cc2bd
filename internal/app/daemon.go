package app

import (
	"context"
	"fmt"

	"github.com/backfeedhq/backfeed/internal/config"
	"github.com/backfeedhq/backfeed/internal/importer"
	"github.com/backfeedhq/backfeed/internal/logger"
	"github.com/backfeedhq/backfeed/internal/metrics"
	"github.com/backfeedhq/backfeed/internal/scheduler"
	"github.com/backfeedhq/backfeed/pkg/silo"
)

// Daemon is the long-running backfeed runtime: one auto-import driver per
// configured silo, kept alive by the durable scheduler.
type Daemon struct {
	cfg     *config.Config
	shared  *shared
	runner  *scheduler.Runner
	drivers []*importer.AutoDriver
}

// NewDaemon builds the daemon runtime from config files.
func NewDaemon(ctx context.Context, cfg *config.Config) (*Daemon, error) {
	s, err := newShared(ctx, cfg)
	if err != nil {
		return nil, err
	}

	siloReg, err := silo.LoadRegistry(cfg.SilosFile)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("load silos registry: %w", err)
	}
	enabled := siloReg.Enabled()
	if len(enabled) == 0 {
		s.Close()
		return nil, fmt.Errorf("no silos enabled")
	}

	jobStore := scheduler.NewStore(s.opts)
	runner := scheduler.NewRunner(jobStore, cfg.SchedulerPoll)

	d := &Daemon{cfg: cfg, shared: s, runner: runner}
	for _, scfg := range enabled {
		rt, err := s.buildSilo(scfg)
		if err != nil {
			s.Close()
			return nil, err
		}

		drv, err := importer.NewAutoDriver(importer.AutoConfig{
			Connector:      rt.connector,
			State:          rt.state,
			Gate:           rt.gate,
			Content:        s.content,
			Enricher:       s.enricher,
			Events:         s.events(),
			Scheduler:      jobStore,
			Credentials:    rt.creds,
			SyndicationKey: cfg.SyndicationMetaKey,
			BurstInterval:  cfg.RescheduleInterval,
			SteadyInterval: cfg.SteadyInterval,
		})
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("build auto driver for %q: %w", scfg.Slug, err)
		}

		runner.Register(drv.JobID(), drv.RunOnce)
		d.drivers = append(d.drivers, drv)
		logger.InfoObj("silo importer wired", "silo_meta", map[string]any{
			"slug":   scfg.Slug,
			"job_id": drv.JobID(),
		})
	}

	return d, nil
}

// Run bootstraps pending jobs and polls the scheduler until the context is
// cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	if d == nil || d.runner == nil {
		return fmt.Errorf("daemon is not initialized")
	}
	defer d.shared.Close()

	if d.cfg.MetricsAddr != "" {
		metrics.StartServer(d.cfg.MetricsAddr)
	}

	for _, drv := range d.drivers {
		if err := drv.EnsureScheduled(); err != nil {
			return fmt.Errorf("bootstrap schedule %q: %w", drv.JobID(), err)
		}
	}

	logger.InfoObj("daemon loop starting", "daemon_state", map[string]any{
		"silos_count":   len(d.drivers),
		"poll_interval": d.cfg.SchedulerPoll.String(),
	})

	err := d.runner.Run(ctx)
	if err == context.Canceled {
		return nil
	}
	return err
}
