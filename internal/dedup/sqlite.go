package dedup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/oncallops/mailtriage/internal/config"
	_ "github.com/mattn/go-sqlite3"
)

const createProcessedTableSQL = `CREATE TABLE IF NOT EXISTS processed_messages (
	id          TEXT PRIMARY KEY,
	recorded_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// SQLiteStore persists processed identifiers in a local SQLite file, so
// dedup survives agent restarts on a single host.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (or creates) the SQLite store at cfg.Path.
func NewSQLite(cfg config.DedupConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("dedup: sqlite driver requires a path")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o700); err != nil {
		return nil, fmt.Errorf("creating dedup directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_synchronous=NORMAL", cfg.Path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite dedup store: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(context.Background(), createProcessedTableSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating processed_messages table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Seen(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM processed_messages WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("dedup/sqlite: looking up %q: %w", id, err)
	}
	return true, nil
}

func (s *SQLiteStore) Record(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO processed_messages (id) VALUES (?)`, id)
	if err != nil {
		return fmt.Errorf("dedup/sqlite: recording %q: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
