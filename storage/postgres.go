package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"
)

type PostgresRuleStoreConfig struct {
	DSN string `yaml:"dsn"`
	// Schema is created if missing and pinned through search_path.
	Schema string `yaml:"schema"`
}

// PostgresRuleStore is a RuleStore backed by PostgreSQL. Rule trees are stored as JSONB.
type PostgresRuleStore struct {
	*sqlRuleStore
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS rules (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	ast JSONB NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at BIGINT NOT NULL,
	updated_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rules_is_active ON rules(is_active);
`

var schemaNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func NewPostgresRuleStore(ctx context.Context, cfg PostgresRuleStoreConfig) (*PostgresRuleStore, error) {
	if cfg.Schema == "" {
		cfg.Schema = "public"
	}
	if !schemaNameRe.MatchString(cfg.Schema) {
		return nil, fmt.Errorf("invalid postgres schema name %q (must match %s)", cfg.Schema, schemaNameRe.String())
	}

	pgCfg, err := pgx.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("invalid dsn: %w", err)
	}

	bootstrap := stdlib.OpenDB(*pgCfg)
	defer bootstrap.Close()

	if err := bootstrap.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping the database: %w", err)
	}
	if _, err := bootstrap.ExecContext(ctx, fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, cfg.Schema)); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	if pgCfg.RuntimeParams == nil {
		pgCfg.RuntimeParams = make(map[string]string)
	}
	pgCfg.RuntimeParams["search_path"] = fmt.Sprintf(`"%s",public`, cfg.Schema)

	db := stdlib.OpenDB(*pgCfg)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping the database: %w", err)
	}

	if err := createPostgresSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &PostgresRuleStore{
		sqlRuleStore: newSQLRuleStore(db, "postgres", PlaceholderDollar, isPostgresUniqueViolation),
	}, nil
}

func createPostgresSchema(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, postgresSchema)
	return err
}

func isPostgresUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
