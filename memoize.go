package cache

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/krisalay/memo-cache/api"
	"github.com/krisalay/memo-cache/key"
	"github.com/krisalay/memo-cache/types"
)

// Func is a function that can be memoized. Its result is cached under a
// fingerprint of args.
type Func[R any] func(ctx context.Context, args key.Args) (R, error)

/*
Memoized wraps a Func with a Store.

The cache is reachable through Cache(), so callers can inspect or prune it
without any hidden state on the function itself.
*/
type Memoized[R any] struct {
	fn    Func[R]
	store *Store[R]

	maxEntries int
	stride     int

	// sf collapses concurrent misses on one key into a single call of fn.
	sf singleflight.Group
}

// outcome boxes a result for singleflight, which deals in interface{}. A
// plain type assertion would panic on a nil interface R.
type outcome[R any] struct {
	val R
}

// Memoize is MemoizeContext with a background context.
func Memoize[R any](fn Func[R], opts ...Option) (*Memoized[R], error) {
	return MemoizeContext(context.Background(), fn, opts...)
}

/*
MemoizeContext wraps fn. ctx is only used to load an existing snapshot.

Unlike New, a filename alone is enough for persistence here: the directory
falls back to DefaultCacheDir.
*/
func MemoizeContext[R any](ctx context.Context, fn Func[R], opts ...Option) (*Memoized[R], error) {
	if fn == nil {
		return nil, types.Errorf(types.ErrInvalidOption, "nil function")
	}

	s, err := apply(opts)
	if err != nil {
		return nil, err
	}
	s.defaultDir = DefaultCacheDir

	store, err := newStore[R](ctx, s)
	if err != nil {
		return nil, err
	}

	return &Memoized[R]{
		fn:         fn,
		store:      store,
		maxEntries: s.maxEntries,
		stride:     s.stride,
	}, nil
}

/*
Call returns the cached result for args, computing it on a miss.

1. Expired entries are evicted first, when an expiration is configured
2. args are fingerprinted; unhashable args fail here
3. On a hit the cached value is returned (this records a read)
4. On a miss fn runs; its error is returned and nothing is cached
5. After storing, going over max entries evicts the least recently used

Concurrent misses on one key share a single run of fn. That run uses a
context detached from any one caller's cancellation, and each caller stops
waiting when its own ctx is done.
*/
func (m *Memoized[R]) Call(ctx context.Context, args key.Args) (R, error) {
	var zero R
	metrics := m.store.engine.Metrics

	if m.store.isClosed() {
		return zero, types.ErrClosed
	}

	if _, err := m.store.EvictExpired(ctx); err != nil {
		return zero, err
	}

	k, err := key.Fingerprint(args)
	if err != nil {
		return zero, err
	}

	if m.store.Has(k) {
		v, err := m.store.Get(ctx, k)
		if err == nil {
			metrics.Hit()
			return v, nil
		}
		// Evicted between Has and Get: fall through to a miss.
		if !errors.Is(err, types.ErrKeyNotFound) {
			return zero, err
		}
	}

	metrics.Miss()

	flight := context.WithoutCancel(ctx)
	ch := m.sf.DoChan(k, func() (interface{}, error) {
		// Close may have won the race since the check above.
		if m.store.isClosed() {
			return nil, types.ErrClosed
		}
		r, err := m.fn(flight, args)
		if err != nil {
			return nil, err
		}
		if err := m.store.Set(flight, k, r); err != nil {
			return nil, err
		}
		if m.store.Size() > m.maxEntries {
			if _, err := m.store.EvictLeastRecentlyUsed(flight, m.stride); err != nil {
				return nil, err
			}
		}
		return outcome[R]{val: r}, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(outcome[R]).val, nil
	}
}

// Invalidate drops the cached result for args, if any.
func (m *Memoized[R]) Invalidate(ctx context.Context, args key.Args) error {
	k, err := key.Fingerprint(args)
	if err != nil {
		return err
	}
	return m.store.Delete(ctx, k)
}

// Cache exposes the underlying store.
func (m *Memoized[R]) Cache() api.Cache[R] {
	return m.store
}

func (m *Memoized[R]) Close() error {
	return m.store.Close()
}
