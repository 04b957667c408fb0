package types

import "time"

/*
CacheEntry is one memoized result.

Key is the argument fingerprint the value was stored under. The two
timestamps are the only state an entry carries: staleness is always
computed from them against a caller supplied cutoff, never stored.
*/
type CacheEntry[V any] struct {
	Key           string
	Value         V
	LastWrittenAt time.Time
	LastReadAt    time.Time
}

// Recency is the most recent of the read and write timestamps.
func (e *CacheEntry[V]) Recency() time.Time {
	if e.LastReadAt.After(e.LastWrittenAt) {
		return e.LastReadAt
	}
	return e.LastWrittenAt
}

func (e *CacheEntry[V]) WrittenAt() time.Time { return e.LastWrittenAt }
func (e *CacheEntry[V]) ReadAt() time.Time    { return e.LastReadAt }

// Stamped is the view of an entry that expiration rules need. It lets
// non-generic code look at the timestamps of a CacheEntry of any value type.
type Stamped interface {
	WrittenAt() time.Time
	ReadAt() time.Time
	Recency() time.Time
}
