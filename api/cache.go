// Package api holds the public contract of the cache.
package api

import (
	"context"
	"time"

	"github.com/krisalay/memo-cache/types"
)

/*
Cache defines the PUBLIC API of a memo cache.
This is a contract that guarantees certain behaviors, without exposing internals.
All of the details like (locking, persistence, encoding, write policies)
are hidden behind this interface.

A memoized function exposes its cache through this interface, so callers can
inspect or prune it without reaching into the function value.
*/
type Cache[V any] interface {

	/*
		Has reports whether key is cached. It has no side effects:
		timestamps are not touched and nothing is flushed.
	*/
	Has(key string) bool

	/*
		Get returns the value stored under key.

		BEHAVIOR:
		-------------------
		1. If the key is absent:
		   - Return types.ErrKeyNotFound
		2. If the key is present:
		   - Record the read time on the entry
		   - Flush the store when it is persistent
		   - Return the value

		Because of (2) a read can fail with types.ErrIO.
	*/
	Get(ctx context.Context, key string) (V, error)

	/*
		Set stores a value.

		BEHAVIOR:
		---------
		- A new key gets both timestamps set to now
		- An existing key only gets its write time refreshed
		- The store is flushed when it is persistent
	*/
	Set(ctx context.Context, key string, value V) error

	/*
		Delete removes one key.

		This operation is idempotent:
		- Removing a non-existing key is safe, and does not flush
	*/
	Delete(ctx context.Context, key string) error

	// EvictWrittenBefore removes entries last written strictly before cutoff.
	EvictWrittenBefore(ctx context.Context, cutoff time.Time) (int, error)

	// EvictReadBefore removes entries last read strictly before cutoff.
	EvictReadBefore(ctx context.Context, cutoff time.Time) (int, error)

	// EvictUsedBefore removes entries whose latest read or write is strictly
	// before cutoff.
	EvictUsedBefore(ctx context.Context, cutoff time.Time) (int, error)

	/*
		EvictLeastRecentlyUsed removes at most n entries, least recently used
		first, and only those used strictly before the moment of the call.
	*/
	EvictLeastRecentlyUsed(ctx context.Context, n int) (int, error)

	// Size is the number of entries. No I/O.
	Size() int

	// Keys lists cached keys, least recently used first.
	Keys() []string

	// Entries returns copies of all entries, least recently used first.
	Entries() []types.CacheEntry[V]

	/*
		Close gracefully shuts down the cache.

		BEHAVIOR:
		---------
		- Flushes a pending write-back snapshot
		- Stops background goroutines
		- Further mutations fail with types.ErrClosed
	*/
	Close() error
}
