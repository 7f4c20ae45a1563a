package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/desertthunder/edjs/internal/shared"
)

const (
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Store is string key/value storage bound to one scope.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
	Scope() string
}

// Open selects the backend named by cfg.Storage.Driver.
//
// The sqlite backend requires db to be migrated already.
func Open(cfg *shared.Config, db *sql.DB) (Store, error) {
	scope := cfg.Session.Scope
	switch cfg.Storage.Driver {
	case DriverSQLite, "":
		if db == nil {
			return nil, fmt.Errorf("%w: sqlite storage requires a database", shared.ErrMissingConfig)
		}
		return NewSQLiteStore(db, scope), nil
	case DriverMemory:
		return NewMemoryStore(nil, scope), nil
	default:
		return nil, fmt.Errorf("%w: unknown storage driver %q", shared.ErrInvalidConfig, cfg.Storage.Driver)
	}
}
