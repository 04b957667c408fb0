package writepolicy

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/krisalay/memo-cache/persist"
	"github.com/krisalay/memo-cache/types"
)

// This file implements the "write-back" policy.

// flushReq is the newest snapshot waiting to be saved.
type flushReq struct {
	ctx  context.Context
	blob []byte
}

/*
WriteBackPolicy saves snapshots asynchronously.

Each snapshot contains the whole store, so only the newest one matters. A
pending snapshot that has not been saved yet is replaced by the next one
instead of queueing behind it. That keeps at most one save in flight and one
waiting, no matter how fast the cache mutates.
*/
type WriteBackPolicy struct {
	backend persist.Backend
	metrics types.Metrics
	logger  *zap.Logger

	mu      sync.Mutex
	pending *flushReq
	closed  bool
	lastErr error

	// wake has room for one signal; extra signals are redundant because the
	// worker always takes the newest pending snapshot.
	wake chan struct{}

	failures atomic.Int64

	// wg is used to wait for the worker to finish during shutdown.
	wg sync.WaitGroup
}

// NewWriteBackPolicy creates a new write-back policy and starts its worker.
// Flushes are counted on metrics only once the worker's save succeeds.
func NewWriteBackPolicy(backend persist.Backend, metrics types.Metrics, logger *zap.Logger) *WriteBackPolicy {
	if metrics == nil {
		metrics = types.NoopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	w := &WriteBackPolicy{
		backend: backend,
		metrics: metrics,
		logger:  logger,
		wake:    make(chan struct{}, 1),
	}

	w.wg.Add(1)
	go w.worker()

	return w
}

// OnFlush hands the snapshot to the worker and returns immediately. Save
// errors are not reported here; they are logged and surface from Close.
func (w *WriteBackPolicy) OnFlush(ctx context.Context, blob []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return types.ErrClosed
	}

	// The caller's context may be cancelled as soon as the call returns.
	w.pending = &flushReq{ctx: context.WithoutCancel(ctx), blob: blob}

	select {
	case w.wake <- struct{}{}:
	default:
	}
	return nil
}

func (w *WriteBackPolicy) worker() {
	defer w.wg.Done()

	for range w.wake {
		w.drain()
	}
}

func (w *WriteBackPolicy) drain() {
	w.mu.Lock()
	req := w.pending
	w.pending = nil
	w.mu.Unlock()

	if req == nil {
		return
	}

	if err := w.backend.Save(req.ctx, req.blob); err != nil {
		w.failures.Add(1)
		w.logger.Warn("write-back flush failed",
			zap.String("location", w.backend.Location()),
			zap.Int("bytes", len(req.blob)),
			zap.Error(err))

		w.mu.Lock()
		w.lastErr = err
		w.mu.Unlock()
		return
	}
	w.metrics.Flush()
}

// Failures is the number of snapshots the worker could not save.
func (w *WriteBackPolicy) Failures() int64 {
	return w.failures.Load()
}

/*
Close shuts down the write-back policy gracefully.
------------------
1. Stop accepting snapshots
2. Let the worker save the last pending one
3. Return the most recent save error, if any

Without this, the newest snapshot could be lost when the application shuts down.
*/
func (w *WriteBackPolicy) Close() error {
	w.mu.Lock()
	if w.closed {
		err := w.lastErr
		w.mu.Unlock()
		return err
	}
	w.closed = true
	close(w.wake)
	w.mu.Unlock()

	w.wg.Wait()
	w.drain()

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}
