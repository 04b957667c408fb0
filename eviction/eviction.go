package eviction

import (
	"time"

	"github.com/krisalay/memo-cache/types"
)

/*
This file defines how the cache decides which entries are stale.

Every entry carries two timestamps. Each eviction rule picks one view of those
timestamps (a Stamp) and compares it against a cutoff. The cache never stores
a "stale" flag: staleness is recomputed from the timestamps each time.
*/

// Stamp selects which timestamp of an entry an eviction rule looks at.
type Stamp int

const (
	// LastWritten is the time the entry was created or last updated.
	LastWritten Stamp = iota

	// LastRead is the time the entry was last read.
	LastRead

	// LastUsed is the most recent of LastWritten and LastRead.
	LastUsed
)

func (s Stamp) String() string {
	switch s {
	case LastWritten:
		return "written"
	case LastRead:
		return "read"
	case LastUsed:
		return "used"
	default:
		return "unknown"
	}
}

/*
Before is the shared primitive behind every age based rule.

It returns the keys of all entries whose selected timestamp is strictly
older than cutoff. An entry stamped exactly at cutoff survives.
*/
func Before[V any](entries map[string]*types.CacheEntry[V], s Stamp, cutoff time.Time) []string {
	var victims []string
	for k, ent := range entries {
		if StampOf(s, ent).Before(cutoff) {
			victims = append(victims, k)
		}
	}
	return victims
}

// StampOf returns the timestamp s selects from ent.
func StampOf[V any](s Stamp, ent *types.CacheEntry[V]) time.Time {
	switch s {
	case LastWritten:
		return ent.LastWrittenAt
	case LastRead:
		return ent.LastReadAt
	default:
		return ent.Recency()
	}
}
