package cli

import (
	"context"
	"errors"

	"github.com/roach88/schemasync/internal/migrate"
	"github.com/roach88/schemasync/internal/pgstore"
	"github.com/roach88/schemasync/internal/store"
)

// Backend is a schema store the CLI opened and must close.
type Backend interface {
	migrate.Backend
	Close() error
}

var (
	errNoBackend        = errors.New("one of --db or --postgres-dsn is required")
	errConflictingStore = errors.New("--db and --postgres-dsn are mutually exclusive")
)

// openStore is a seam for tests that need a failing backend.
var openStore = openBackend

// openBackend opens the SQLite store at cfg.DB or the PostgreSQL store at
// cfg.PostgresDSN.
func openBackend(ctx context.Context, cfg *Config) (Backend, error) {
	switch {
	case cfg.DB != "" && cfg.PostgresDSN != "":
		return nil, errConflictingStore
	case cfg.DB != "":
		s, err := store.Open(cfg.DB)
		if err != nil {
			return nil, err
		}
		return s, nil
	case cfg.PostgresDSN != "":
		s, err := pgstore.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, errNoBackend
}
