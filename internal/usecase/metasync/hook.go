package metasync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	domdoc "github.com/kailas-cloud/blockfield/internal/domain/document"
	"github.com/kailas-cloud/blockfield/internal/metrics"
	"github.com/kailas-cloud/blockfield/internal/worker"
)

// ErrQueueFull is returned by Notify when the hook cannot accept more work.
var ErrQueueFull = worker.ErrQueueFull

// DefaultFailureThreshold is the number of consecutive failures of one
// document that triggers a "synchronization failed" error log.
const DefaultFailureThreshold = 3

type event struct {
	docID   string
	raw     string
	version int64
	removed bool
}

// Hook runs synchronization in the background after document saves. Callers
// are never blocked or failed by synchronization errors; those are logged and
// counted per document.
type Hook struct {
	syncer    Syncer
	pool      *worker.Pool[event]
	logger    *zap.Logger
	threshold int
	workers   int
	queueSize int

	mu       sync.Mutex
	failures map[string]int
}

// HookOption configures a Hook.
type HookOption func(*Hook)

// WithWorkers sets the number of concurrent synchronizations.
func WithWorkers(n int) HookOption {
	return func(h *Hook) { h.workers = n }
}

// WithQueueSize bounds the number of pending notifications.
func WithQueueSize(n int) HookOption {
	return func(h *Hook) { h.queueSize = n }
}

// WithFailureThreshold sets how many consecutive failures of one document
// raise an error-level diagnostic.
func WithFailureThreshold(n int) HookOption {
	return func(h *Hook) {
		if n > 0 {
			h.threshold = n
		}
	}
}

// NewHook creates a save hook around a synchronizer.
func NewHook(s Syncer, logger *zap.Logger, opts ...HookOption) *Hook {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hook{
		syncer:    s,
		logger:    logger,
		threshold: DefaultFailureThreshold,
		failures:  make(map[string]int),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.pool = worker.NewPool(h.workers, h.queueSize, h.process,
		worker.WithQueueGauge[event](metrics.SyncQueueDepth),
		worker.WithDroppedCounter[event](metrics.SyncDroppedTotal),
	)
	return h
}

// Start launches the background workers.
func (h *Hook) Start(ctx context.Context) error {
	return h.pool.Start(ctx)
}

// Stop finishes queued work, waiting up to timeout.
func (h *Hook) Stop(timeout time.Duration) error {
	return h.pool.Stop(timeout)
}

// Notify schedules synchronization of a saved document and returns immediately.
func (h *Hook) Notify(docID, raw string, version int64) error {
	return h.submit(event{docID: docID, raw: raw, version: version})
}

// NotifyRemoved schedules removal of a deleted document's metadata.
func (h *Hook) NotifyRemoved(docID string) error {
	return h.submit(event{docID: docID, removed: true})
}

// Saved adapts the hook to filesystem watchers.
func (h *Hook) Saved(_ context.Context, doc domdoc.Document) {
	if err := h.Notify(doc.ID(), doc.Content(), doc.Version()); err != nil {
		h.logger.Warn("save notification dropped", zap.String("document_id", doc.ID()), zap.Error(err))
	}
}

// Removed adapts the hook to filesystem watchers.
func (h *Hook) Removed(_ context.Context, id string) {
	if err := h.NotifyRemoved(id); err != nil {
		h.logger.Warn("remove notification dropped", zap.String("document_id", id), zap.Error(err))
	}
}

// Failures returns the current consecutive failure count of a document.
func (h *Hook) Failures(docID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.failures[docID]
}

// Pending returns the number of queued notifications.
func (h *Hook) Pending() int { return h.pool.Len() }

// Capacity returns the notification queue size.
func (h *Hook) Capacity() int { return h.pool.Cap() }

func (h *Hook) submit(ev event) error {
	if err := h.pool.Submit(ev); err != nil {
		return fmt.Errorf("notify %s: %w", ev.docID, err)
	}
	return nil
}

func (h *Hook) process(ctx context.Context, ev event) error {
	err := h.run(ctx, ev)
	h.observe(ev, err)
	return err
}

func (h *Hook) run(ctx context.Context, ev event) error {
	if ev.removed {
		return h.syncer.Purge(ctx, ev.docID)
	}
	report, err := h.syncer.Sync(ctx, ev.docID, ev.raw, ev.version)
	if err != nil {
		return err
	}
	return report.Err()
}

func (h *Hook) observe(ev event, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err == nil {
		delete(h.failures, ev.docID)
		return
	}

	// Cancellation at shutdown is not a document failure.
	if errors.Is(err, context.Canceled) {
		return
	}

	h.failures[ev.docID]++
	n := h.failures[ev.docID]
	if n == h.threshold {
		metrics.SyncRepeatedFailuresTotal.Inc()
		h.logger.Error("synchronization failed",
			zap.String("document_id", ev.docID),
			zap.Int64("version", ev.version),
			zap.Int("consecutive_failures", n),
			zap.Error(err),
		)
		return
	}
	h.logger.Warn("synchronization attempt failed",
		zap.String("document_id", ev.docID),
		zap.Int("consecutive_failures", n),
		zap.Error(err),
	)
}
