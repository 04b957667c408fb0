// This file implements LRU eviction.

package eviction

import (
	"sort"
	"time"

	"github.com/krisalay/memo-cache/types"
)

// candidate pairs a key with its recency so the sort does not recompute it.
type candidate struct {
	key     string
	recency time.Time
}

/*
LeastRecentlyUsed picks up to n victims, oldest recency first.

1. Order every entry ascending by Recency (max of read and write time).
2. Walk from the oldest.
3. Stop as soon as n keys were taken, or at the first entry whose recency is
   not strictly before cutoff.

The early stop means this is "at most n": an entry that ranks low but was
touched at or after cutoff is never removed. Ties on recency are broken by key
so the result is deterministic.
*/
func LeastRecentlyUsed[V any](entries map[string]*types.CacheEntry[V], n int, cutoff time.Time) []string {
	if n <= 0 || len(entries) == 0 {
		return nil
	}

	order := make([]candidate, 0, len(entries))
	for k, ent := range entries {
		order = append(order, candidate{key: k, recency: ent.Recency()})
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].recency.Equal(order[j].recency) {
			return order[i].key < order[j].key
		}
		return order[i].recency.Before(order[j].recency)
	})

	victims := make([]string, 0, min(n, len(order)))
	for _, c := range order {
		if len(victims) == n || !c.recency.Before(cutoff) {
			break
		}
		victims = append(victims, c.key)
	}

	return victims
}
