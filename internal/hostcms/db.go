package hostcms

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Options selects the database backend for the host CMS store.
type Options struct {
	Driver string // "sqlite" or "postgres"
	Path   string // sqlite file path
	DSN    string // postgres DSN
}

// Open connects to the configured database and migrates the schema.
func Open(opts Options) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	}

	var (
		db  *gorm.DB
		err error
	)
	switch strings.TrimSpace(strings.ToLower(opts.Driver)) {
	case "", "sqlite":
		db, err = openSQLite(opts, gormCfg)
	case "postgres":
		db, err = openPostgres(opts, gormCfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&Post{}, &PostMeta{}, &Comment{}, &CommentMeta{}); err != nil {
		return nil, fmt.Errorf("migrate host cms schema: %w", err)
	}

	return db, nil
}

func openSQLite(opts Options, gormCfg *gorm.Config) (*gorm.DB, error) {
	if strings.TrimSpace(opts.Path) == "" {
		return nil, fmt.Errorf("sqlite database requires a path")
	}
	dir := filepath.Dir(opts.Path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(opts.Path), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA foreign_keys=ON")

	return db, nil
}

func openPostgres(opts Options, gormCfg *gorm.Config) (*gorm.DB, error) {
	if strings.TrimSpace(opts.DSN) == "" {
		return nil, fmt.Errorf("postgres database requires a dsn")
	}
	db, err := gorm.Open(postgres.Open(opts.DSN), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres db: %w", err)
	}
	return db, nil
}
