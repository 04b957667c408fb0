// This file defines how cache entries expire over time.

package expiration

import (
	"time"

	"github.com/krisalay/memo-cache/eviction"
	"github.com/krisalay/memo-cache/types"
)

/*
Strategy is the interface that all expiration rules must follow. Instead of hard-coding
expiration logic into the cache, we define a strategy so expiration behavior can be swapped easily.

A strategy never marks entries. It names the timestamp it cares about and the
cutoff for a given moment, and the store evicts everything strictly older than
that cutoff through the same primitive the explicit evict calls use.
*/
type Strategy interface {

	// Stamp is the timestamp of an entry this rule compares.
	Stamp() eviction.Stamp

	// Cutoff is the oldest timestamp still considered fresh at now.
	Cutoff(now time.Time) time.Time

	// IsExpired reports whether ent is stale at now.
	IsExpired(ent types.Stamped, now time.Time) bool
}

func stampOf(s eviction.Stamp, ent types.Stamped) time.Time {
	switch s {
	case eviction.LastWritten:
		return ent.WrittenAt()
	case eviction.LastRead:
		return ent.ReadAt()
	default:
		return ent.Recency()
	}
}

// expired is shared by every strategy: strictly older than the cutoff.
func expired(s Strategy, ent types.Stamped, now time.Time) bool {
	return stampOf(s.Stamp(), ent).Before(s.Cutoff(now))
}
