package silo

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Package silo contains the pluggable silo importer configs (YAML/JSON) and
// the registry resolving connector implementations for them.

// SiloConfig is a single silo entry declared in config files.
type SiloConfig struct {
	Slug     string          `json:"slug" yaml:"slug"`
	Enabled  *bool           `json:"enabled" yaml:"enabled"`
	PageSize int             `json:"page_size" yaml:"page_size"`
	MaxPages int             `json:"max_pages" yaml:"max_pages"`
	Facebook *FacebookConfig `json:"facebook" yaml:"facebook"`
}

// FacebookConfig holds Facebook Graph API specific settings.
type FacebookConfig struct {
	GraphVersion string `json:"graph_version" yaml:"graph_version"`
	AvatarWidth  int    `json:"avatar_width" yaml:"avatar_width"`
	AvatarHeight int    `json:"avatar_height" yaml:"avatar_height"`
}

// EnabledValue returns the enabled flag defaulting to true.
func (cfg SiloConfig) EnabledValue() bool {
	if cfg.Enabled == nil {
		return true
	}
	return *cfg.Enabled
}

type configFile struct {
	Silos []SiloConfig `json:"silos" yaml:"silos"`
}

// ConfigRegistry materializes silo definitions loaded from config files.
type ConfigRegistry struct {
	mu    sync.RWMutex
	silos []SiloConfig
	idx   map[string]SiloConfig
}

// LoadRegistry loads the silo registry from a YAML/JSON file.
func LoadRegistry(path string) (*ConfigRegistry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("silos file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open silos file: %w", err)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read silos file: %w", err)
	}

	fileReg, err := parseRegistry(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(fileReg.Silos) == 0 {
		return nil, errors.New("silos file contains no silo entries")
	}

	reg := &ConfigRegistry{
		silos: make([]SiloConfig, len(fileReg.Silos)),
		idx:   make(map[string]SiloConfig, len(fileReg.Silos)),
	}
	for i := range fileReg.Silos {
		cfg := sanitizeSiloConfig(fileReg.Silos[i])
		if cfg.Slug == "" {
			return nil, fmt.Errorf("silos[%d]: slug is required", i)
		}
		if _, exists := reg.idx[cfg.Slug]; exists {
			return nil, fmt.Errorf("duplicate silo slug %q", cfg.Slug)
		}
		reg.silos[i] = cfg
		reg.idx[cfg.Slug] = cfg
	}

	return reg, nil
}

func parseRegistry(data []byte, ext string) (configFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, any) error
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var reg configFile
		if err := d.fn(data, &reg); err == nil {
			return reg, nil
		}
	}

	return configFile{}, errors.New("silos file format not recognized (expected YAML or JSON)")
}

func sanitizeSiloConfig(cfg SiloConfig) SiloConfig {
	cfg.Slug = strings.ToLower(strings.TrimSpace(cfg.Slug))
	if cfg.PageSize < 0 {
		cfg.PageSize = 0
	}
	if cfg.MaxPages < 0 {
		cfg.MaxPages = 0
	}
	return cfg
}

// All returns all configured silos.
func (r *ConfigRegistry) All() []SiloConfig {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]SiloConfig, len(r.silos))
	copy(out, r.silos)
	return out
}

// Enabled returns silos that are enabled.
func (r *ConfigRegistry) Enabled() []SiloConfig {
	all := r.All()
	out := make([]SiloConfig, 0, len(all))
	for _, cfg := range all {
		if cfg.EnabledValue() {
			out = append(out, cfg)
		}
	}
	return out
}

// BySlug returns the silo config for the given slug, if loaded.
func (r *ConfigRegistry) BySlug(slug string) (SiloConfig, bool) {
	if r == nil {
		return SiloConfig{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.idx[strings.ToLower(strings.TrimSpace(slug))]
	return cfg, ok
}

// Builder creates a Connector from a config entry and its collaborators.
type Builder func(cfg SiloConfig, deps Deps) (Connector, error)

// builders maps silo slugs to connector builders.
var builders = map[string]Builder{
	FacebookSlug: NewFacebookConnector,
}

// ConnectorFor builds the connector registered for the config's slug.
func ConnectorFor(cfg SiloConfig, deps Deps) (Connector, error) {
	builder := builders[cfg.Slug]
	if builder == nil {
		return nil, fmt.Errorf("no connector registered for silo %q", cfg.Slug)
	}
	return builder(cfg, deps)
}
