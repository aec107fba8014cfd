// Package config reads the YAML configuration shared by the binaries and
// builds the components it describes.
package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/thisisjab/rulezilla/api"
	"github.com/thisisjab/rulezilla/engine"
	"github.com/thisisjab/rulezilla/metrics"
	"github.com/thisisjab/rulezilla/processor"
	"github.com/thisisjab/rulezilla/source"
	"github.com/thisisjab/rulezilla/storage"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Logger    LoggerConfig    `yaml:"logger"`
	API       api.Config      `yaml:"api"`
	RuleStore RuleStoreConfig `yaml:"rule_store"`
	Metrics   metrics.Config  `yaml:"metrics"`
	Engine    EngineConfig    `yaml:"engine"`
}

type LoggerConfig struct {
	Level string `yaml:"level"`
	Type  string `yaml:"type"`
	// Output is "stdout" (default), "stderr" or a file path.
	Output string `yaml:"output"`
}

type RuleStoreConfig struct {
	Type   string `yaml:"type"`
	Config any    `yaml:"config"`
}

type EngineConfig struct {
	Storage    StorageConfig     `yaml:"storage"`
	Processors []ProcessorConfig `yaml:"processors"`
	Sources    []SourceConfig    `yaml:"sources"`
	// Rules are the names of the rules to evaluate. Empty means every active rule.
	Rules                 []string      `yaml:"rules"`
	RulesRefreshSchedule  string        `yaml:"rules_refresh_schedule"`
	RawRecordsBufferSize  uint          `yaml:"raw_records_buffer_size"`
	StorageFlushInterval  time.Duration `yaml:"storage_flush_interval"`
	VerdictsBufferSize    uint          `yaml:"verdicts_buffer_size"`
	ProcessorWorkersCount uint          `yaml:"processor_workers_count"`
}

type StorageConfig struct {
	Type   string `yaml:"type"`
	Config any    `yaml:"config"`
}

type ProcessorConfig struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Config any    `yaml:"config"`
}

type SourceConfig struct {
	Name       string   `yaml:"name"`
	Type       string   `yaml:"type"`
	Processors []string `yaml:"processors"`
	Config     any      `yaml:"config"`
}

// Load reads and decodes the configuration file at path.
func Load(path string) (Config, error) {
	fileContent, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("cannot read config file content: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(fileContent, &cfg); err != nil {
		return Config{}, fmt.Errorf("cannot parse config file: %w", err)
	}

	return cfg, nil
}

func (cfg Config) ParseLogger() (*slog.Logger, error) {
	return parseLoggerConfig(cfg.Logger)
}

func parseLoggerConfig(cfg LoggerConfig) (*slog.Logger, error) {
	var handler slog.Handler

	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid log level: %s", cfg.Level)
	}

	var w io.Writer
	switch cfg.Output {
	case "", "stdout":
		w = os.Stdout
	case "stderr":
		w = os.Stderr
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("cannot open log output: %w", err)
		}
		w = f
	}

	switch cfg.Type {
	case "json", "":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	case "text":
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	case "colored-text":
		handler = tint.NewHandler(w, &tint.Options{Level: level, AddSource: true, TimeFormat: time.Kitchen})
	default:
		return nil, fmt.Errorf("invalid log type: %s", cfg.Type)
	}

	return slog.New(handler), nil
}

// OpenRuleStore connects to the configured rule store.
func (cfg Config) OpenRuleStore(ctx context.Context) (storage.RuleStore, error) {
	switch cfg.RuleStore.Type {
	case "memory":
		return storage.NewMemoryRuleStore(), nil

	case "sqlite":
		var sqliteConfig storage.SQLiteRuleStoreConfig
		if err := remarshal(cfg.RuleStore.Config, &sqliteConfig); err != nil {
			return nil, fmt.Errorf("cannot parse sqlite rule store config: %w", err)
		}

		s, err := storage.NewSQLiteRuleStore(ctx, sqliteConfig)
		if err != nil {
			return nil, fmt.Errorf("cannot create sqlite rule store: %w", err)
		}

		return s, nil

	case "postgres":
		var postgresConfig storage.PostgresRuleStoreConfig
		if err := remarshal(cfg.RuleStore.Config, &postgresConfig); err != nil {
			return nil, fmt.Errorf("cannot parse postgres rule store config: %w", err)
		}

		s, err := storage.NewPostgresRuleStore(ctx, postgresConfig)
		if err != nil {
			return nil, fmt.Errorf("cannot create postgres rule store: %w", err)
		}

		return s, nil

	default:
		return nil, fmt.Errorf("invalid rule store type: %s", cfg.RuleStore.Type)
	}
}

// NewMetrics returns nil when metrics are disabled.
func (cfg Config) NewMetrics() *metrics.Collector {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return metrics.NewCollector(cfg.Metrics, nil)
}

// VerdictStorage is what the engine binary needs from a verdict storage.
type VerdictStorage interface {
	engine.VerdictStorage
	Close(ctx context.Context) error
}

// ParseEngine builds the engine config. The returned storage is connected and
// must be closed by the caller.
func (cfg Config) ParseEngine(ctx context.Context, logger *slog.Logger, rules engine.RuleProvider, m *metrics.Collector) (*engine.Config, VerdictStorage, error) {
	st, err := parseStorageConfig(ctx, cfg.Engine.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot create storage: %w", err)
	}

	engineCfg, err := cfg.parseEngine(logger, rules, m, st)
	if err != nil {
		_ = st.Close(ctx)
		return nil, nil, err
	}

	return engineCfg, st, nil
}

func (cfg Config) parseEngine(logger *slog.Logger, rules engine.RuleProvider, m *metrics.Collector, st VerdictStorage) (*engine.Config, error) {
	processors := make(map[string]engine.RecordProcessor, len(cfg.Engine.Processors))
	for _, pc := range cfg.Engine.Processors {
		if _, ok := processors[pc.Name]; ok {
			return nil, fmt.Errorf("duplicate processor name `%s`", pc.Name)
		}

		p, err := parseProcessorConfig(pc)
		if err != nil {
			return nil, fmt.Errorf("cannot create processor `%s`: %w", pc.Name, err)
		}
		processors[pc.Name] = p
	}

	sources := make(map[string]engine.RecordSource, len(cfg.Engine.Sources))
	for _, sc := range cfg.Engine.Sources {
		if _, ok := sources[sc.Name]; ok {
			return nil, fmt.Errorf("duplicate source name `%s`", sc.Name)
		}

		s, err := parseSourceConfig(logger, sc)
		if err != nil {
			return nil, fmt.Errorf("cannot create source `%s`: %w", sc.Name, err)
		}
		sources[sc.Name] = s
	}

	return &engine.Config{
		Sources:               sources,
		Processors:            processors,
		Storage:               st,
		Rules:                 rules,
		RuleNames:             cfg.Engine.Rules,
		RulesRefreshSchedule:  cfg.Engine.RulesRefreshSchedule,
		StorageFlushInterval:  cfg.Engine.StorageFlushInterval,
		RawRecordsBufferSize:  cfg.Engine.RawRecordsBufferSize,
		VerdictsBufferMaxSize: cfg.Engine.VerdictsBufferSize,
		ProcessorWorkersCount: cfg.Engine.ProcessorWorkersCount,
		Metrics:               m,
	}, nil
}

func parseStorageConfig(ctx context.Context, cfg StorageConfig) (VerdictStorage, error) {
	switch cfg.Type {
	case "clickhouse":
		var clickHouseConfig storage.ClickHouseStorageConfig

		if err := remarshal(cfg.Config, &clickHouseConfig); err != nil {
			return nil, fmt.Errorf("cannot parse clickhouse storage config: %w", err)
		}

		s, err := storage.NewClickHouseVerdictStorage(clickHouseConfig)
		if err != nil {
			return nil, fmt.Errorf("cannot create clickhouse storage: %w", err)
		}

		if err := s.Connect(ctx); err != nil {
			return nil, fmt.Errorf("cannot connect to clickhouse: %w", err)
		}

		return s, nil

	case "memory":
		return storage.NewMemoryVerdictStorage(), nil

	default:
		return nil, fmt.Errorf("invalid storage type: %s", cfg.Type)
	}
}

func parseSourceConfig(logger *slog.Logger, cfg SourceConfig) (engine.RecordSource, error) {
	switch cfg.Type {
	case "file":
		var fileConfig source.FileRecordSourceConfig
		err := remarshal(cfg.Config, &fileConfig)
		if err != nil {
			return nil, fmt.Errorf("cannot create file source: %w", err)
		}

		fileConfig.Name = cfg.Name
		fileConfig.Processors = cfg.Processors

		s, err := source.NewFileRecordSource(logger, fileConfig)
		if err != nil {
			return nil, fmt.Errorf("cannot create file source: %w", err)
		}

		return s, nil
	default:
		return nil, fmt.Errorf("invalid record source type: %s", cfg.Type)
	}
}

func parseProcessorConfig(cfg ProcessorConfig) (engine.RecordProcessor, error) {
	switch cfg.Type {
	case "json":
		var jsonConfig processor.JSONRecordProcessorConfig
		err := remarshal(cfg.Config, &jsonConfig)
		if err != nil {
			return nil, fmt.Errorf("cannot create json processor: %w", err)
		}

		jsonConfig.Name = cfg.Name

		p, err := processor.NewJSONRecordProcessor(jsonConfig)
		if err != nil {
			return nil, fmt.Errorf("cannot create json processor: %w", err)
		}

		return p, nil
	case "lua":
		var luaConfig processor.LuaRecordProcessorConfig
		err := remarshal(cfg.Config, &luaConfig)
		if err != nil {
			return nil, fmt.Errorf("cannot create lua processor: %w", err)
		}

		luaConfig.Name = cfg.Name

		p, err := processor.NewLuaRecordProcessor(luaConfig)
		if err != nil {
			return nil, fmt.Errorf("cannot create lua processor: %w", err)
		}

		return p, nil
	default:
		return nil, fmt.Errorf("invalid record processor type: %s", cfg.Type)
	}
}

// remarshal takes an input value, marshals it to YAML, and then unmarshals it into a new value of the same type.
// This is useful for converting generic interfaces (like map[string]any) into concrete struct types.
// The output parameter must be a pointer to the target type.
func remarshal(input any, output any) error {
	yamlBytes, err := yaml.Marshal(input)
	if err != nil {
		return fmt.Errorf("failed to marshal to YAML: %w", err)
	}

	if err := yaml.Unmarshal(yamlBytes, output); err != nil {
		return fmt.Errorf("failed to unmarshal from YAML: %w", err)
	}

	return nil
}
