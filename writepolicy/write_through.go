package writepolicy

import (
	"context"

	"github.com/krisalay/memo-cache/persist"
	"github.com/krisalay/memo-cache/types"
)

/*
This file implements the "write-through" policy.

Whenever the cache mutates, it immediately writes the whole snapshot to the backend.

So the flow is: Cache mutation → backend save (synchronous) → caller sees the result
*/

/*
WriteThroughPolicy forwards every snapshot to the backend and reports its error.
This is the default: a read on a store whose backend has gone away fails loudly.
*/
type WriteThroughPolicy struct {

	// backend is where the snapshot must be persisted immediately.
	backend persist.Backend

	metrics types.Metrics
}

/*
NewWriteThroughPolicy creates a new write-through policy. metrics may be nil.
*/
func NewWriteThroughPolicy(backend persist.Backend, metrics types.Metrics) *WriteThroughPolicy {
	if metrics == nil {
		metrics = types.NoopMetrics{}
	}
	return &WriteThroughPolicy{backend: backend, metrics: metrics}
}

/*
OnFlush saves the snapshot before returning.
  - This call is synchronous
  - The cache mutation is not considered complete
    until the backend save finishes
  - If the backend is slow, every cache call becomes slow
*/
func (w *WriteThroughPolicy) OnFlush(ctx context.Context, blob []byte) error {
	if err := w.backend.Save(ctx, blob); err != nil {
		return err
	}
	w.metrics.Flush()
	return nil
}

/*
Close is required by the WritePolicy interface. Write-through does not use background workers,
so there is nothing to clean up.
*/
func (w *WriteThroughPolicy) Close() error { return nil }
