package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	SilosFile      string `mapstructure:"silos_file"`
	PublishersFile string `mapstructure:"publishers_file"`

	OptionsPath string `mapstructure:"options_path"`

	DatabaseDriver string `mapstructure:"database_driver"`
	DatabasePath   string `mapstructure:"database_path"`
	DatabaseDSN    string `mapstructure:"database_dsn"`

	SyndicationMetaKey string `mapstructure:"syndication_meta_key"`
	RequestsPerLoad    int    `mapstructure:"requests_per_load"`
	EnrichProfiles     bool   `mapstructure:"enrich_profiles"`

	AccessToken string `mapstructure:"access_token"`
	AutoImport  bool   `mapstructure:"auto_import"`
	AutoApprove bool   `mapstructure:"auto_approve"`

	RequestTimeoutSeconds int64         `mapstructure:"request_timeout_seconds"`
	RequestTimeout        time.Duration `mapstructure:"-"`
	RescheduleSeconds     int64         `mapstructure:"reschedule_seconds"`
	RescheduleInterval    time.Duration `mapstructure:"-"`
	SteadySeconds         int64         `mapstructure:"steady_seconds"`
	SteadyInterval        time.Duration `mapstructure:"-"`
	SchedulerPollSeconds  int64         `mapstructure:"scheduler_poll_seconds"`
	SchedulerPoll         time.Duration `mapstructure:"-"`

	MetricsAddr string `mapstructure:"metrics_addr"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "backfeed")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("silos_file", "./configs/silos.yaml")
	v.SetDefault("publishers_file", "")
	v.SetDefault("options_path", "./data/options.db")
	v.SetDefault("database_driver", "sqlite")
	v.SetDefault("database_path", "./data/cms.db")
	v.SetDefault("database_dsn", "")
	v.SetDefault("syndication_meta_key", "syndication_urls")
	v.SetDefault("requests_per_load", 3)
	v.SetDefault("enrich_profiles", false)
	v.SetDefault("access_token", "")
	v.SetDefault("auto_import", true)
	v.SetDefault("auto_approve", false)
	v.SetDefault("request_timeout_seconds", 10)
	v.SetDefault("reschedule_seconds", 30)
	v.SetDefault("steady_seconds", 36400)
	v.SetDefault("scheduler_poll_seconds", 5)
	v.SetDefault("metrics_addr", "")

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.RequestsPerLoad <= 0 {
		return nil, fmt.Errorf("invalid requests_per_load (must be positive)")
	}
	if cfg.RequestTimeoutSeconds <= 0 {
		return nil, fmt.Errorf("invalid request_timeout_seconds (must be positive seconds)")
	}
	if cfg.RescheduleSeconds <= 0 {
		return nil, fmt.Errorf("invalid reschedule_seconds (must be positive seconds)")
	}
	if cfg.SteadySeconds <= 0 {
		return nil, fmt.Errorf("invalid steady_seconds (must be positive seconds)")
	}
	if cfg.SchedulerPollSeconds <= 0 {
		return nil, fmt.Errorf("invalid scheduler_poll_seconds (must be positive seconds)")
	}
	cfg.RequestTimeout = time.Duration(cfg.RequestTimeoutSeconds) * time.Second
	cfg.RescheduleInterval = time.Duration(cfg.RescheduleSeconds) * time.Second
	cfg.SteadyInterval = time.Duration(cfg.SteadySeconds) * time.Second
	cfg.SchedulerPoll = time.Duration(cfg.SchedulerPollSeconds) * time.Second

	return &cfg, nil
}
