package app

import (
	"context"
	"fmt"

	"github.com/backfeedhq/backfeed/internal/config"
	"github.com/backfeedhq/backfeed/internal/importer"
	"github.com/backfeedhq/backfeed/internal/logger"
	"github.com/backfeedhq/backfeed/pkg/silo"
)

// ImportRun is the one-shot manual import runtime: it drains the work queue
// of a single silo in budgeted loads and returns the run log.
type ImportRun struct {
	shared *shared
	driver *importer.Driver
	state  *importer.State
	creds  *tokenBinding
	slug   string
}

// ImportResult is what a completed manual import reports.
type ImportResult struct {
	Log        []string
	Advisories []error
	Loads      int
}

// NewImportRun wires a manual import for the given silo slug. An empty slug
// picks the single enabled silo, and is an error when several are enabled.
func NewImportRun(ctx context.Context, cfg *config.Config, slug string) (*ImportRun, error) {
	s, err := newShared(ctx, cfg)
	if err != nil {
		return nil, err
	}

	siloReg, err := silo.LoadRegistry(cfg.SilosFile)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("load silos registry: %w", err)
	}

	scfg, err := pickSilo(siloReg, slug)
	if err != nil {
		s.Close()
		return nil, err
	}

	rt, err := s.buildSilo(scfg)
	if err != nil {
		s.Close()
		return nil, err
	}

	drv, err := importer.NewDriver(importer.DriverConfig{
		Connector:       rt.connector,
		State:           rt.state,
		Gate:            rt.gate,
		Content:         s.content,
		Enricher:        s.enricher,
		Events:          s.events(),
		SyndicationKey:  cfg.SyndicationMetaKey,
		RequestsPerLoad: cfg.RequestsPerLoad,
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("build driver for %q: %w", scfg.Slug, err)
	}

	return &ImportRun{
		shared: s,
		driver: drv,
		state:  rt.state,
		creds:  rt.creds,
		slug:   scfg.Slug,
	}, nil
}

func pickSilo(reg *silo.ConfigRegistry, slug string) (silo.SiloConfig, error) {
	if slug != "" {
		scfg, ok := reg.BySlug(slug)
		if !ok {
			return silo.SiloConfig{}, fmt.Errorf("unknown silo %q", slug)
		}
		if !scfg.EnabledValue() {
			return silo.SiloConfig{}, fmt.Errorf("silo %q is disabled", slug)
		}
		return scfg, nil
	}

	enabled := reg.Enabled()
	switch len(enabled) {
	case 0:
		return silo.SiloConfig{}, fmt.Errorf("no silos enabled")
	case 1:
		return enabled[0], nil
	default:
		return silo.SiloConfig{}, fmt.Errorf("several silos enabled, pick one with -silo")
	}
}

// Run drains the queue load by load and returns the accumulated run log.
func (r *ImportRun) Run(ctx context.Context) (ImportResult, error) {
	res := ImportResult{}

	ok, err := r.creds.Ensure(ctx)
	if err != nil {
		return res, err
	}
	if !ok {
		return res, fmt.Errorf("no access token stored for %q, set ACCESS_TOKEN or connect the silo first", r.slug)
	}

	for {
		load, err := r.driver.RunLoad(ctx)
		res.Loads++
		res.Advisories = append(res.Advisories, load.Advisories...)
		if err != nil {
			return res, err
		}

		logger.InfoObj("import load finished", "load_meta", map[string]any{
			"silo":      r.slug,
			"processed": load.Processed,
			"outcome":   string(load.Outcome),
		})
		if load.Outcome == importer.OutcomeDone {
			break
		}
	}

	lines, err := r.driver.Finish()
	res.Log = lines
	return res, err
}

// Reset discards every stored artifact of this silo's importer: queue,
// cursor, run log, settings and token binding.
func (r *ImportRun) Reset() error {
	return r.state.Reset()
}

// Close releases the stores.
func (r *ImportRun) Close() {
	if r != nil {
		r.shared.Close()
	}
}
