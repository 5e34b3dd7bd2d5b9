package store

import (
	"fmt"
	"strings"

	"github.com/nulzo/model-registry/internal/core/ports"
	"github.com/nulzo/model-registry/internal/store/postgres"
	"github.com/nulzo/model-registry/internal/store/sqlite"
	"go.uber.org/zap"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Driver string
	// Path is the sqlite file; DSN the postgres connection string.
	Path string
	DSN  string
}

// Open returns the catalog store selected by cfg.Driver.
func Open(cfg Config, logger *zap.Logger) (ports.CatalogStore, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", DriverSQLite, "sqlite3":
		path := cfg.Path
		if path == "" {
			path = "registry.db"
		}
		repo, err := sqlite.NewSQLiteStorage(path, logger)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case DriverPostgres, "postgresql":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("database.dsn is required for the postgres driver")
		}
		repo, err := postgres.Open(cfg.DSN, logger)
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}
