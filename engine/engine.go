package engine

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/krisalay/memo-cache/expiration"
	"github.com/krisalay/memo-cache/types"
	"github.com/krisalay/memo-cache/writepolicy"
)

// Clock returns the current time. Tests swap it for a fake.
type Clock func() time.Time

/*
CacheEngine is the "brain" of the cache system.
It is responsible for the "behavior" of the cache, NOT storage.
This acts as the policy layer.

It decides:
- What time it is
- When data is expired
- How snapshots are propagated to the backend
- How metrics are recorded

It does NOT:
- Store data
- Handle locking
- Decide eviction order
- Encode snapshots
*/
type CacheEngine struct {

	// Expiration controls when a cache entry should be considered “too old”.
	// Example: expire data 5 seconds after it was written.
	// If this is nil, entries never expire based on time.
	Expiration expiration.Strategy

	// WritePolicy decides what happens with the snapshot taken after a mutation.
	// Examples:
	// - Write-through: save immediately and report errors
	// - Write-back: save asynchronously later
	//
	// If nil, the store is in-memory only.
	WritePolicy writepolicy.WritePolicy

	// Metrics is how we keep track of what the cache is doing.
	// Hits, misses, evictions, expirations, flushes.
	Metrics types.Metrics

	Logger *zap.Logger

	Clock Clock
}

/*
NewCacheEngine creates a CacheEngine. Nil collaborators are replaced with
working defaults so the rest of the code never checks for them.
*/
func NewCacheEngine(
	exp expiration.Strategy,
	writePolicy writepolicy.WritePolicy,
	metrics types.Metrics,
	logger *zap.Logger,
	clock Clock,
) *CacheEngine {
	if metrics == nil {
		metrics = types.NoopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = time.Now
	}

	return &CacheEngine{
		Expiration:  exp,
		WritePolicy: writePolicy,
		Metrics:     metrics,
		Logger:      logger,
		Clock:       clock,
	}
}

func (e *CacheEngine) Now() time.Time {
	return e.Clock()
}

// Persistent reports whether mutations reach a backend.
func (e *CacheEngine) Persistent() bool {
	return e.WritePolicy != nil
}

/*
Expired checks whether a cache entry is expired at now.

BEHAVIOR:
---------
- Delegates the decision to the configured Expiration strategy
- now is passed in so one sweep judges every entry against the same instant
- Returns false if no expiration strategy is configured
*/
func (e *CacheEngine) Expired(ent types.Stamped, now time.Time) bool {
	return e.Expiration != nil &&
		e.Expiration.IsExpired(ent, now)
}

/*
OnFlush is called with the snapshot taken after every mutation.

Propagation depends entirely on the configured WritePolicy, which also
counts the flush once the backend has the snapshot. A failure is returned as
an IO error so the caller that triggered the mutation sees it.
*/
func (e *CacheEngine) OnFlush(ctx context.Context, blob []byte) error {
	if e.WritePolicy == nil {
		return nil
	}

	if err := e.WritePolicy.OnFlush(ctx, blob); err != nil {
		e.Logger.Debug("flush failed", zap.Int("bytes", len(blob)), zap.Error(err))
		if errors.Is(err, types.ErrIO) || errors.Is(err, types.ErrClosed) {
			return err
		}
		return types.IOError(err, "flush")
	}
	return nil
}

// Close stops the write policy, draining anything it still holds.
func (e *CacheEngine) Close() error {
	if e.WritePolicy == nil {
		return nil
	}
	return e.WritePolicy.Close()
}
