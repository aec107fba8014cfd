package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // registers "sqlite3", requires cgo
	_ "modernc.org/sqlite"          // registers "sqlite", pure Go
)

const (
	SQLiteDriverCGO  = "sqlite3"
	SQLiteDriverPure = "sqlite"
)

type SQLiteRuleStoreConfig struct {
	Path string `yaml:"path"`
	// Driver is either "sqlite" (default) or "sqlite3".
	Driver      string        `yaml:"driver"`
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// SQLiteRuleStore is a RuleStore backed by a single SQLite file.
type SQLiteRuleStore struct {
	*sqlRuleStore
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS rules (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	ast TEXT NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT 1,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rules_is_active ON rules(is_active);
`

func NewSQLiteRuleStore(ctx context.Context, cfg SQLiteRuleStoreConfig) (*SQLiteRuleStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.Driver == "" {
		cfg.Driver = SQLiteDriverPure
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	var dsn string
	switch cfg.Driver {
	case SQLiteDriverPure:
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", cfg.Path, cfg.BusyTimeout.Milliseconds())
	case SQLiteDriverCGO:
		dsn = fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL", cfg.Path, cfg.BusyTimeout.Milliseconds())
	default:
		return nil, fmt.Errorf("unknown sqlite driver %q", cfg.Driver)
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping the database: %w", err)
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteRuleStore{
		sqlRuleStore: newSQLRuleStore(db, "sqlite", PlaceholderQuestion, isSQLiteUniqueViolation),
	}, nil
}

// Both drivers surface the SQLite message verbatim.
func isSQLiteUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
