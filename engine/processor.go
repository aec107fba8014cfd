package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/thisisjab/rulezilla/entity"
	"github.com/thisisjab/rulezilla/metrics"
	"github.com/thisisjab/rulezilla/rule"
)

type processorManager struct {
	sources      map[string]RecordSource
	processors   map[string]RecordProcessor
	rules        *ruleSet
	metrics      *metrics.Collector
	logger       *slog.Logger
	workersCount uint
	wg           sync.WaitGroup
}

func newProcessorManager(logger *slog.Logger, sources map[string]RecordSource, processors map[string]RecordProcessor, rules *ruleSet, m *metrics.Collector, workersCount uint) *processorManager {
	return &processorManager{
		sources:      sources,
		processors:   processors,
		rules:        rules,
		metrics:      m,
		logger:       logger,
		workersCount: workersCount,
	}
}

// run fans raw records out to the workers and returns once rawRecords is
// drained or ctx is done. Each record yields one verdict per loaded rule.
func (pm *processorManager) run(ctx context.Context, rawRecords <-chan entity.RawRecord, results chan<- []entity.Verdict) {
	spawnWorker := func(workerID uint) {
		for {
			select {
			case <-ctx.Done():
				return
			case raw, ok := <-rawRecords:
				if !ok {
					// The jobs channel is closed and empty. No more work.
					return
				}

				record, err := pm.decode(raw)
				pm.metrics.RecordProcessed(raw.Source, err)
				if err != nil {
					pm.logger.Error("failed to process record.", "source", raw.Source, "error", err)
					continue
				}

				verdicts := pm.evaluate(record)
				pm.logger.Debug("evaluated record.", "worker_id", workerID, "record_id", record.ID, "verdicts", len(verdicts))

				select {
				case results <- verdicts:
				case <-ctx.Done():
					// If we can't send because context is cancelled, exit.
					return
				}
			}
		}
	}

	for i := range pm.workersCount {
		pm.wg.Go(func() {
			spawnWorker(i)
		})
	}

	pm.wg.Wait()
}

// decode runs the source's processors in order.
func (pm *processorManager) decode(raw entity.RawRecord) (entity.Record, error) {
	src, ok := pm.sources[raw.Source]
	if !ok {
		return entity.Record{}, fmt.Errorf("source %q not found", raw.Source)
	}

	fields := map[string]any{}
	for _, pName := range src.ProcessorNames() {
		p := pm.processors[pName]
		if p == nil {
			return entity.Record{}, fmt.Errorf("processor %q not found", pName)
		}

		decoded, err := p.Process(raw, fields)
		if err != nil {
			return entity.Record{}, fmt.Errorf("processor %q: %w", pName, err)
		}

		fields = decoded
	}

	return entity.Record{
		ID:         uuid.New(),
		Source:     raw.Source,
		Fields:     fields,
		ReceivedAt: raw.ReceivedAt,
	}, nil
}

func (pm *processorManager) evaluate(record entity.Record) []entity.Verdict {
	rules := pm.rules.load()
	verdicts := make([]entity.Verdict, 0, len(rules))

	for _, r := range rules {
		start := time.Now()
		matched, err := rule.Evaluate(r.root, record.Fields)
		pm.metrics.RecordEvaluation(r.name, matched, err, time.Since(start))

		v := entity.Verdict{
			ID:          uuid.New(),
			RecordID:    record.ID,
			RuleName:    r.name,
			Source:      record.Source,
			Matched:     matched,
			Fields:      record.Fields,
			EvaluatedAt: time.Now(),
		}
		if err != nil {
			v.Matched = false
			v.Error = err.Error()
		}

		verdicts = append(verdicts, v)
	}

	return verdicts
}
