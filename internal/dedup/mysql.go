package dedup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/oncallops/mailtriage/internal/config"
	_ "github.com/go-sql-driver/mysql"
)

const createProcessedTableMySQL = `CREATE TABLE IF NOT EXISTS processed_messages (
	id          VARCHAR(512) PRIMARY KEY,
	recorded_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// MySQLStore persists processed identifiers in MySQL, letting several
// agent instances share one dedup namespace.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQL connects to the MySQL server named by cfg.DSN.
func NewMySQL(cfg config.DedupConfig) (*MySQLStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("dedup: mysql driver requires a dsn")
	}
	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening mysql dedup store: %w", err)
	}
	db.SetConnMaxLifetime(3 * time.Minute)
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging mysql dedup store: %w", err)
	}
	if _, err := db.ExecContext(ctx, createProcessedTableMySQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating processed_messages table: %w", err)
	}
	return &MySQLStore{db: db}, nil
}

func (s *MySQLStore) Seen(ctx context.Context, id string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM processed_messages WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("dedup/mysql: looking up %q: %w", id, err)
	}
	return true, nil
}

func (s *MySQLStore) Record(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `INSERT IGNORE INTO processed_messages (id) VALUES (?)`, id)
	if err != nil {
		return fmt.Errorf("dedup/mysql: recording %q: %w", id, err)
	}
	return nil
}

func (s *MySQLStore) Close() error { return s.db.Close() }
