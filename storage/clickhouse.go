package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/thisisjab/rulezilla/entity"
)

type ClickHouseStorageConfig struct {
	Addr     []string `yaml:"addr"`
	Database string   `yaml:"database"`
	Username string   `yaml:"username"`
	Password string   `yaml:"password"`
}

// ClickHouseVerdictStorage stores verdicts in ClickHouse.
type ClickHouseVerdictStorage struct {
	conn clickhouse.Conn
	cfg  ClickHouseStorageConfig
}

func NewClickHouseVerdictStorage(cfg ClickHouseStorageConfig) (*ClickHouseVerdictStorage, error) {
	if len(cfg.Addr) == 0 {
		return nil, fmt.Errorf("clickhouse storage: at least one address is required")
	}
	return &ClickHouseVerdictStorage{cfg: cfg}, nil
}

func setupClickHouseTables(ctx context.Context, conn driver.Conn) error {
	// fields holds the decoded record as a JSON document.
	return conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS verdicts (
			id UUID,
			record_id UUID,
			rule_name LowCardinality(String),
			source String,
			matched Bool,
			error String,
			fields String,
			evaluated_at DateTime64(3)
		)
		ENGINE = MergeTree
		ORDER BY (rule_name, evaluated_at, id)
		PARTITION BY toYYYYMM(evaluated_at)
	`)
}

func (s *ClickHouseVerdictStorage) Connect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: s.cfg.Addr,
		Auth: clickhouse.Auth{
			Database: s.cfg.Database,
			Username: s.cfg.Username,
			Password: s.cfg.Password,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})

	if err != nil {
		return fmt.Errorf("failed to connect: %v", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping the database: %w", err)
	}

	s.conn = conn

	// A single append-only table, no migration tool needed yet.
	if err := setupClickHouseTables(ctx, conn); err != nil {
		return fmt.Errorf("failed to create table: %v", err)
	}

	return nil
}

func (s *ClickHouseVerdictStorage) Close(ctx context.Context) error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

func (s *ClickHouseVerdictStorage) StoreVerdicts(ctx context.Context, verdicts ...entity.Verdict) error {
	if len(verdicts) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 1*time.Minute)
	defer cancel()

	batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO verdicts (id, record_id, rule_name, source, matched, error, fields, evaluated_at)")
	if err != nil {
		return fmt.Errorf("couldn't prepare batch: %w", err)
	}

	for _, v := range verdicts {
		fields, err := json.Marshal(v.Fields)
		if err != nil {
			return fmt.Errorf("couldn't encode fields of verdict %s: %w", v.ID, err)
		}

		err = batch.Append(v.ID, v.RecordID, v.RuleName, v.Source, v.Matched, v.Error, string(fields), v.EvaluatedAt)
		if err != nil {
			return fmt.Errorf("couldn't append verdict to batch: %w", err)
		}
	}

	err = batch.Send()
	if err != nil {
		return fmt.Errorf("couldn't send batch: %w", err)
	}

	return nil
}
