package cache

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/krisalay/memo-cache/api"
	"github.com/krisalay/memo-cache/codec"
	"github.com/krisalay/memo-cache/engine"
	"github.com/krisalay/memo-cache/eviction"
	"github.com/krisalay/memo-cache/persist"
	"github.com/krisalay/memo-cache/types"
	"github.com/krisalay/memo-cache/writepolicy"
)

var _ api.Cache[int] = (*Store[int])(nil)

/*
Store is the main cache implementation.
This struct is the orchestrator that connects:
- the entry map
- eviction
- expiration
- persistence (codec + write policy + backend)
- metrics

One mutex guards the map and every flush, so a snapshot always reflects a
single consistent state and concurrent flushes never interleave.
*/
type Store[V any] struct {
	mu      sync.RWMutex
	entries map[string]*types.CacheEntry[V]

	// engine contains the "rules" of the cache: clock, expiration, write policy, metrics, logger.
	engine *engine.CacheEngine

	codec codec.Codec

	// backend is nil for an in-memory store.
	backend persist.Backend

	closed bool
}

/*
New creates a Store.

It is persistent when WithBackend is given, or when both WithCacheDir and
WithFilename are. A persistent store loads its existing snapshot before
returning; a snapshot that cannot be decoded fails construction.
*/
func New[V any](ctx context.Context, opts ...Option) (*Store[V], error) {
	s, err := apply(opts)
	if err != nil {
		return nil, err
	}
	return newStore[V](ctx, s)
}

func newStore[V any](ctx context.Context, s *settings) (*Store[V], error) {
	logger := s.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	backend, err := resolveBackend(s, logger)
	if err != nil {
		return nil, err
	}

	st := &Store[V]{
		entries: make(map[string]*types.CacheEntry[V]),
		codec:   s.codec,
		backend: backend,
	}

	metrics := s.metrics
	if metrics == nil {
		metrics = types.NoopMetrics{}
	}

	var policy writepolicy.WritePolicy
	if backend != nil {
		if err := st.load(ctx, logger); err != nil {
			return nil, err
		}
		if s.writeBack {
			policy = writepolicy.NewWriteBackPolicy(backend, metrics, logger)
		} else {
			policy = writepolicy.NewWriteThroughPolicy(backend, metrics)
		}
	}

	st.engine = engine.NewCacheEngine(s.expiration, policy, metrics, logger, s.clock)
	return st, nil
}

func resolveBackend(s *settings, logger *zap.Logger) (persist.Backend, error) {
	if s.backend != nil {
		return s.backend, nil
	}

	dir := s.cacheDir
	if dir == "" && s.filename != "" {
		dir = s.defaultDir
	}

	switch {
	case dir != "" && s.filename != "":
		f, err := persist.NewFile(dir, s.filename)
		if err != nil {
			return nil, err
		}
		return f, nil
	case dir != "" || s.filename != "":
		// Both are needed; one alone is not an error.
		logger.Debug("persistence disabled, need both cache dir and filename",
			zap.String("cache_dir", dir),
			zap.String("filename", s.filename))
	}
	return nil, nil
}

func (s *Store[V]) load(ctx context.Context, logger *zap.Logger) error {
	blob, found, err := s.backend.Load(ctx)
	if err != nil {
		return err
	}
	if !found {
		logger.Debug("no snapshot yet", zap.String("location", s.backend.Location()))
		return nil
	}

	entries, err := codec.Decode[V](s.codec, blob)
	if err != nil {
		return err
	}
	s.entries = entries

	logger.Debug("snapshot loaded",
		zap.String("location", s.backend.Location()),
		zap.Int("entries", len(entries)))
	return nil
}

// flushLocked writes the whole store. Callers hold s.mu.
func (s *Store[V]) flushLocked(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}

	blob, err := codec.Encode(s.codec, s.entries)
	if err != nil {
		return types.WrapError(err, "flush")
	}
	return s.engine.OnFlush(ctx, blob)
}

func (s *Store[V]) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.entries[key]
	return ok
}

/*
Get retrieves a value from the cache.

A read is a mutation too: it moves the entry's read time, and a persistent
store flushes that. When the flush fails the error is returned instead of the
value, though the in-memory read time has already moved.
*/
func (s *Store[V]) Get(ctx context.Context, key string) (V, error) {
	var zero V

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return zero, types.ErrClosed
	}

	ent, ok := s.entries[key]
	if !ok {
		return zero, types.Errorf(types.ErrKeyNotFound, "%s", key)
	}

	ent.LastReadAt = s.engine.Now()

	if err := s.flushLocked(ctx); err != nil {
		return zero, err
	}
	return ent.Value, nil
}

/*
Set stores a value in the cache.

Insertion stamps both times; an update only moves the write time, so an entry
that is rewritten but never read keeps its original read time.
*/
func (s *Store[V]) Set(ctx context.Context, key string, value V) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return types.ErrClosed
	}

	now := s.engine.Now()
	if ent, ok := s.entries[key]; ok {
		ent.Value = value
		ent.LastWrittenAt = now
	} else {
		s.entries[key] = &types.CacheEntry[V]{
			Key:           key,
			Value:         value,
			LastWrittenAt: now,
			LastReadAt:    now,
		}
	}

	return s.flushLocked(ctx)
}

/*
Delete removes a key from the cache immediately.
A key that is not there is a no-op: no error, no flush.
*/
func (s *Store[V]) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return types.ErrClosed
	}
	if _, ok := s.entries[key]; !ok {
		return nil
	}

	delete(s.entries, key)
	return s.flushLocked(ctx)
}

// EvictBefore removes every entry whose stamp is strictly before cutoff and
// flushes once if anything was removed.
func (s *Store[V]) EvictBefore(ctx context.Context, stamp eviction.Stamp, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.removeLocked(ctx, eviction.Before(s.entries, stamp, cutoff), s.engine.Metrics.Eviction, "evicted "+stamp.String()+" before")
}

func (s *Store[V]) EvictWrittenBefore(ctx context.Context, cutoff time.Time) (int, error) {
	return s.EvictBefore(ctx, eviction.LastWritten, cutoff)
}

func (s *Store[V]) EvictReadBefore(ctx context.Context, cutoff time.Time) (int, error) {
	return s.EvictBefore(ctx, eviction.LastRead, cutoff)
}

func (s *Store[V]) EvictUsedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	return s.EvictBefore(ctx, eviction.LastUsed, cutoff)
}

// EvictLeastRecentlyUsed removes up to n entries, oldest recency first, that
// were used strictly before now. Now is read once, when the call starts.
func (s *Store[V]) EvictLeastRecentlyUsed(ctx context.Context, n int) (int, error) {
	return s.EvictLeastRecentlyUsedBefore(ctx, n, s.engine.Now())
}

// EvictLeastRecentlyUsedBefore is EvictLeastRecentlyUsed with an explicit
// cutoff instead of now.
func (s *Store[V]) EvictLeastRecentlyUsedBefore(ctx context.Context, n int, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.removeLocked(ctx, eviction.LeastRecentlyUsed(s.entries, n, cutoff), s.engine.Metrics.Eviction, "evicted least recently used")
}

// EvictExpired applies the configured expiration strategy. Without one it
// does nothing.
func (s *Store[V]) EvictExpired(ctx context.Context) (int, error) {
	exp := s.engine.Expiration
	if exp == nil {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.engine.Now()
	var victims []string
	for k, ent := range s.entries {
		if s.engine.Expired(ent, now) {
			victims = append(victims, k)
		}
	}
	return s.removeLocked(ctx, victims, s.engine.Metrics.Expire, "expired")
}

// Clear removes every entry and flushes once.
func (s *Store[V]) Clear(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	return s.removeLocked(ctx, keys, s.engine.Metrics.Eviction, "cleared")
}

// removeLocked deletes keys and flushes once. Callers hold s.mu.
func (s *Store[V]) removeLocked(ctx context.Context, keys []string, count func(), msg string) (int, error) {
	if s.closed {
		return 0, types.ErrClosed
	}
	if len(keys) == 0 {
		return 0, nil
	}

	for _, k := range keys {
		delete(s.entries, k)
		count()
	}

	s.engine.Logger.Debug(msg, zap.Int("removed", len(keys)), zap.Int("remaining", len(s.entries)))
	return len(keys), s.flushLocked(ctx)
}

// Size is the number of entries. No I/O.
func (s *Store[V]) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}

// byRecencyLocked returns entries least recently used first, ties by key.
func (s *Store[V]) byRecencyLocked() []*types.CacheEntry[V] {
	out := make([]*types.CacheEntry[V], 0, len(s.entries))
	for _, ent := range s.entries {
		out = append(out, ent)
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := out[i].Recency(), out[j].Recency()
		if ri.Equal(rj) {
			return out[i].Key < out[j].Key
		}
		return ri.Before(rj)
	})
	return out
}

func (s *Store[V]) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ents := s.byRecencyLocked()
	keys := make([]string, len(ents))
	for i, ent := range ents {
		keys[i] = ent.Key
	}
	return keys
}

func (s *Store[V]) Entries() []types.CacheEntry[V] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ents := s.byRecencyLocked()
	out := make([]types.CacheEntry[V], len(ents))
	for i, ent := range ents {
		out[i] = *ent
	}
	return out
}

// Dump writes one line per entry: write time, read time, key, value.
func (s *Store[V]) Dump(w io.Writer) error {
	for _, ent := range s.Entries() {
		_, err := fmt.Fprintf(w, "%s\t%s\t%s\t%v\n",
			ent.LastWrittenAt.Format(time.RFC3339Nano),
			ent.LastReadAt.Format(time.RFC3339Nano),
			ent.Key,
			ent.Value)
		if err != nil {
			return err
		}
	}
	return nil
}

// Location is where the snapshot lives, or "" for an in-memory store.
func (s *Store[V]) Location() string {
	if s.backend == nil {
		return ""
	}
	return s.backend.Location()
}

func (s *Store[V]) Persistent() bool {
	return s.engine.Persistent()
}

// isClosed lets Memoize refuse a call before running the wrapped function.
func (s *Store[V]) isClosed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

/*
Close gracefully shuts down the cache.
This is important for write-back policies, so the pending snapshot is saved.
*/
func (s *Store[V]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.engine.Close()
}
