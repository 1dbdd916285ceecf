// Package dedup tracks which normalized message identifiers have already
// produced an incident, so a message is never triaged twice. The default
// backend is an in-memory set; deployments that need dedup to survive
// restarts can back it with SQLite, MySQL, or Redis.
package dedup

import (
	"context"
	"fmt"

	"github.com/oncallops/mailtriage/internal/config"
)

// Store is the processed-identifier store.
// Implementations must be safe for use from a single processing goroutine;
// the memory and SQL backends are additionally safe for concurrent use.
type Store interface {
	// Seen reports whether id has already been recorded.
	Seen(ctx context.Context, id string) (bool, error)

	// Record marks id as processed. Recording an id twice is not an error.
	Record(ctx context.Context, id string) error

	// Close releases any backend resources.
	Close() error
}

// New returns a Store implementation matching cfg.Driver.
// Memory is the default when driver is empty or unrecognised values error.
func New(cfg config.DedupConfig) (Store, error) {
	switch cfg.Driver {
	case "memory", "":
		return NewMemory(), nil
	case "sqlite", "sqlite3":
		return NewSQLite(cfg)
	case "mysql":
		return NewMySQL(cfg)
	case "redis":
		return NewRedis(cfg)
	default:
		return nil, fmt.Errorf("unsupported dedup driver %q (supported: memory, sqlite, mysql, redis)", cfg.Driver)
	}
}
