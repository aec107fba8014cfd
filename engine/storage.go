package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/thisisjab/rulezilla/entity"
	"github.com/thisisjab/rulezilla/metrics"
)

// VerdictStorage represents a storage interface for the engine.
// Buffering is done by the engine.
type VerdictStorage interface {
	StoreVerdicts(ctx context.Context, verdicts ...entity.Verdict) error
}

// storageManager manages storage operations like inserting, buffering, and flushing verdicts.
// Note that you should never disable buffering and scheduled flushing together.
type storageManager struct {
	storage     VerdictStorage
	logger      *slog.Logger
	metrics     *metrics.Collector
	buffer      []entity.Verdict
	bufferMutex sync.Mutex
	wg          sync.WaitGroup

	// bufferMaxSize defines the maximum items that buffer holds before flushing.
	// If value is reached, buffer will be flushed immediately.
	// Setting this to zero will disable size based flushing.
	bufferMaxSize uint

	// flushInterval defines the interval at which buffer will be flushed.
	// Setting flushInterval to 0 will disable scheduled flushing.
	flushInterval time.Duration
}

func newStorageManager(logger *slog.Logger, storage VerdictStorage, m *metrics.Collector, bufferMaxSize uint, flushInterval time.Duration) *storageManager {
	return &storageManager{
		logger:        logger,
		storage:       storage,
		metrics:       m,
		bufferMaxSize: bufferMaxSize,
		buffer:        make([]entity.Verdict, 0, bufferMaxSize),
		flushInterval: flushInterval,
	}
}

// run flushes on the interval until ctx is done, then flushes what is left
// and waits for in-flight flushes.
func (sm *storageManager) run(ctx context.Context) {
	// A nil channel blocks forever, which disables scheduled flushing.
	var tick <-chan time.Time

	if sm.flushInterval > 0 {
		ticker := time.NewTicker(sm.flushInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			sm.flush(context.WithoutCancel(ctx))
			sm.wg.Wait()
			return
		case <-tick:
			sm.flush(ctx)
		}
	}
}

func (sm *storageManager) flush(ctx context.Context) {
	var toFlush []entity.Verdict

	// Swap buffer
	sm.bufferMutex.Lock()
	if len(sm.buffer) > 0 {
		toFlush = sm.buffer
		sm.buffer = make([]entity.Verdict, 0, sm.bufferMaxSize)
	}
	sm.bufferMutex.Unlock()

	if len(toFlush) > 0 {
		sm.store(ctx, toFlush)
	}
}

// store writes toFlush in the background. The write ignores ctx cancellation:
// a batch taken out of the buffer must reach the storage. Storages apply their
// own timeout.
func (sm *storageManager) store(ctx context.Context, toFlush []entity.Verdict) {
	ctx = context.WithoutCancel(ctx)

	sm.wg.Go(func() {
		err := sm.storage.StoreVerdicts(ctx, toFlush...)
		sm.metrics.RecordFlush(err)

		if err != nil {
			sm.logger.Error("failed to flush verdicts", "error", err, "count", len(toFlush))
			return
		}

		sm.logger.Debug("flushed verdicts successfully", "count", len(toFlush))
	})
}

func (sm *storageManager) add(ctx context.Context, verdicts ...entity.Verdict) {
	if len(verdicts) == 0 {
		return
	}

	var toFlush []entity.Verdict

	sm.bufferMutex.Lock()
	sm.buffer = append(sm.buffer, verdicts...)

	// Check if buffer reached flush size
	if sm.bufferMaxSize > 0 && uint(len(sm.buffer)) >= sm.bufferMaxSize {
		toFlush = sm.buffer
		sm.buffer = make([]entity.Verdict, 0, sm.bufferMaxSize)
	}
	sm.bufferMutex.Unlock()

	// Flush asynchronously if needed
	if toFlush != nil {
		sm.store(ctx, toFlush)
	}
}
