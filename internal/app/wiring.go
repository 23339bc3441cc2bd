package app

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/backfeedhq/backfeed/internal/config"
	"github.com/backfeedhq/backfeed/internal/hostcms"
	"github.com/backfeedhq/backfeed/internal/importer"
	"github.com/backfeedhq/backfeed/internal/logger"
	"github.com/backfeedhq/backfeed/internal/options"
	"github.com/backfeedhq/backfeed/pkg/keyring"
	"github.com/backfeedhq/backfeed/pkg/publishers"
	"github.com/backfeedhq/backfeed/pkg/silo"
)

// envTokenID is the token binding created when the access token comes from
// configuration instead of an interactive connect flow.
const envTokenID = "env"

// siloRuntime bundles the per-silo collaborators both runtimes build on.
type siloRuntime struct {
	cfg       silo.SiloConfig
	state     *importer.State
	service   *keyring.Service
	connector silo.Connector
	gate      *importer.Gate
	creds     *tokenBinding
}

// shared holds process-wide collaborators.
type shared struct {
	cfg      *config.Config
	opts     options.Store
	db       *gorm.DB
	content  *hostcms.ContentRepo
	comments *hostcms.CommentRepo
	tokens   *keyring.TokenStore
	fanout   *publishers.Fanout
	enricher *importer.Enricher
}

// newShared opens the stores and builds the collaborators every silo uses.
func newShared(ctx context.Context, cfg *config.Config) (*shared, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}

	opts, err := options.NewStore("bbolt", cfg.OptionsPath)
	if err != nil {
		return nil, fmt.Errorf("init option store: %w", err)
	}

	db, err := hostcms.Open(hostcms.Options{
		Driver: cfg.DatabaseDriver,
		Path:   cfg.DatabasePath,
		DSN:    cfg.DatabaseDSN,
	})
	if err != nil {
		opts.Close()
		return nil, fmt.Errorf("open host cms database: %w", err)
	}

	s := &shared{
		cfg:      cfg,
		opts:     opts,
		db:       db,
		content:  hostcms.NewContentRepo(db),
		comments: hostcms.NewCommentRepo(db),
		tokens:   keyring.NewTokenStore(opts),
	}

	if cfg.EnrichProfiles {
		s.enricher = importer.NewEnricher(nil)
	}

	if cfg.PublishersFile != "" {
		fanout, err := buildFanout(ctx, cfg.PublishersFile)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.fanout = fanout
	}

	return s, nil
}

func buildFanout(ctx context.Context, path string) (*publishers.Fanout, error) {
	reg, err := publishers.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabled := reg.Enabled()
	pubs, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, nil)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}
	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	logger.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubs), nil
}

// events adapts the optional fanout to the importer's publisher interface.
func (s *shared) events() importer.EventPublisher {
	if s.fanout == nil || s.fanout.Size() == 0 {
		return nil
	}
	return s.fanout
}

// Close releases the stores.
func (s *shared) Close() {
	if s == nil {
		return
	}
	if s.opts != nil {
		if err := s.opts.Close(); err != nil {
			logger.ErrorObj("option store close failed", "error", err)
		}
	}
	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				logger.ErrorObj("database close failed", "error", err)
			}
		}
	}
}

// buildSilo wires one configured silo into a runtime.
func (s *shared) buildSilo(scfg silo.SiloConfig) (*siloRuntime, error) {
	state := importer.NewState(s.opts, scfg.Slug)
	service := keyring.NewService(scfg.Slug, s.cfg.RequestTimeout)

	connector, err := silo.ConnectorFor(scfg, silo.Deps{
		Service:  service,
		Settings: state,
	})
	if err != nil {
		return nil, fmt.Errorf("build connector for %q: %w", scfg.Slug, err)
	}

	if err := state.SetAutoApprove(s.cfg.AutoApprove); err != nil {
		return nil, fmt.Errorf("store auto-approve setting for %q: %w", scfg.Slug, err)
	}
	if err := state.SetAutoImport(s.cfg.AutoImport); err != nil {
		return nil, fmt.Errorf("store auto-import setting for %q: %w", scfg.Slug, err)
	}

	rt := &siloRuntime{
		cfg:       scfg,
		state:     state,
		service:   service,
		connector: connector,
		gate:      importer.NewGate(s.comments, s.content, state, scfg.Slug),
		creds: &tokenBinding{
			state:   state,
			tokens:  s.tokens,
			service: service,
		},
	}

	if err := s.bootstrapToken(rt); err != nil {
		return nil, err
	}
	return rt, nil
}

// bootstrapToken stores the configured access token as this silo's credential
// when no binding exists yet.
func (s *shared) bootstrapToken(rt *siloRuntime) error {
	if s.cfg.AccessToken == "" {
		return nil
	}
	id, err := rt.state.TokenID()
	if err != nil {
		return err
	}
	if id != "" {
		return nil
	}

	tok := keyring.Token{
		ID:      envTokenID,
		Service: rt.service.Name(),
		Secret:  s.cfg.AccessToken,
		Display: "configured access token",
	}
	if err := s.tokens.Save(tok); err != nil {
		return fmt.Errorf("store configured token for %q: %w", rt.cfg.Slug, err)
	}
	if err := rt.state.SetTokenID(envTokenID); err != nil {
		return fmt.Errorf("bind configured token for %q: %w", rt.cfg.Slug, err)
	}
	logger.InfoObj("configured access token bound", "token_bootstrap", map[string]any{
		"silo": rt.cfg.Slug,
	})
	return nil
}

// tokenBinding loads the stored credential into the keyring service on demand.
type tokenBinding struct {
	state   *importer.State
	tokens  *keyring.TokenStore
	service *keyring.Service
}

// Ensure implements importer.CredentialSource.
func (b *tokenBinding) Ensure(context.Context) (bool, error) {
	if _, ok := b.service.AccessToken(); ok {
		return true, nil
	}
	id, err := b.state.TokenID()
	if err != nil {
		return false, err
	}
	if id == "" {
		return false, nil
	}
	tok, err := b.tokens.Get(b.service.Name(), id)
	if errors.Is(err, keyring.ErrTokenNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	b.service.SetToken(tok)
	return true, nil
}
