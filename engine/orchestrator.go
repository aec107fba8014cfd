// Package engine runs the batch evaluation pipeline: record sources feed a
// pool of workers that decode records and evaluate them against stored rules,
// and the resulting verdicts are buffered into a verdict storage.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/thisisjab/rulezilla/entity"
	"github.com/thisisjab/rulezilla/metrics"
)

type Config struct {
	Sources    map[string]RecordSource
	Processors map[string]RecordProcessor
	Storage    VerdictStorage
	Rules      RuleProvider
	// RuleNames selects the rules to evaluate. Empty means every active rule.
	RuleNames []string
	// RulesRefreshSchedule is a cron spec ("*/5 * * * *", "@every 1m"). Empty disables refreshing.
	RulesRefreshSchedule  string
	StorageFlushInterval  time.Duration
	RawRecordsBufferSize  uint
	VerdictsBufferMaxSize uint
	ProcessorWorkersCount uint
	Metrics               *metrics.Collector
}

// Engine orchestrates different components such as record sources (readers), processors and storage.
type Engine struct {
	cfg            Config
	logger         *slog.Logger
	rules          *ruleSet
	storageManager *storageManager
}

func New(cfg Config, logger *slog.Logger) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "engine")

	return &Engine{
		cfg:            cfg,
		logger:         logger,
		rules:          newRuleSet(logger, cfg.Rules, cfg.RuleNames),
		storageManager: newStorageManager(logger, cfg.Storage, cfg.Metrics, cfg.VerdictsBufferMaxSize, cfg.StorageFlushInterval),
	}, nil
}

func (c Config) validate() error {
	if len(c.Sources) == 0 {
		return errors.New("no record sources are configured")
	}

	for name, src := range c.Sources {
		if len(src.ProcessorNames()) == 0 {
			return fmt.Errorf("source %q has no processors", name)
		}
		for _, p := range src.ProcessorNames() {
			if _, ok := c.Processors[p]; !ok {
				return fmt.Errorf("source %q uses undefined processor %q", name, p)
			}
		}
	}

	if c.Storage == nil {
		return errors.New("no verdict storage is configured")
	}

	if c.Rules == nil {
		return errors.New("no rule provider is configured")
	}

	if c.VerdictsBufferMaxSize == 0 && c.StorageFlushInterval == 0 {
		return errors.New("buffer max size and storage flush interval cannot both be zero")
	}

	if c.ProcessorWorkersCount == 0 {
		return errors.New("processor workers cannot be zero")
	}

	return nil
}

// Run loads the rules and processes records until every source is exhausted
// or ctx is done. Buffered verdicts are flushed before Run returns.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.rules.refresh(ctx); err != nil {
		return fmt.Errorf("failed to load rules: %w", err)
	}

	if e.cfg.RulesRefreshSchedule != "" {
		stop, err := e.rules.schedule(ctx, e.cfg.RulesRefreshSchedule)
		if err != nil {
			return fmt.Errorf("invalid rules refresh schedule: %w", err)
		}
		defer stop()
	}

	// rawRecords will contain all raw records from all sources.
	rawRecords := e.consumeRecords(ctx)

	var wg sync.WaitGroup
	verdicts := make(chan []entity.Verdict, e.cfg.VerdictsBufferMaxSize)

	pm := newProcessorManager(e.logger, e.cfg.Sources, e.cfg.Processors, e.rules, e.cfg.Metrics, e.cfg.ProcessorWorkersCount)

	// The storage manager outlives ctx so the last flush can still run.
	storageCtx, stopStorage := context.WithCancel(context.WithoutCancel(ctx))
	defer stopStorage()

	// Storage manager handles buffering, and periodic saves.
	wg.Go(func() { e.storageManager.run(storageCtx) })
	// Process manager handles fan-out pattern.
	wg.Go(func() {
		pm.run(ctx, rawRecords, verdicts)
		close(verdicts)
	})

	for v := range verdicts {
		e.storageManager.add(storageCtx, v...)
	}

	stopStorage()
	wg.Wait()

	return ctx.Err()
}

func (e *Engine) consumeRecords(ctx context.Context) <-chan entity.RawRecord {
	rawRecords := make(chan entity.RawRecord, e.cfg.RawRecordsBufferSize)
	e.logger.Info("created incoming records channel.", "size", e.cfg.RawRecordsBufferSize)

	var sourceWg sync.WaitGroup

	for name, src := range e.cfg.Sources {
		sourceWg.Go(func() {
			err := src.Provide(ctx, rawRecords)
			if err != nil && !errors.Is(err, context.Canceled) {
				e.logger.Error("record source stopped.", "name", name, "error", err)
			}
		})
	}

	go func() {
		sourceWg.Wait()
		close(rawRecords)
	}()

	return rawRecords
}
