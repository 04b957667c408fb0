package expiration

import (
	"time"

	"github.com/krisalay/memo-cache/eviction"
	"github.com/krisalay/memo-cache/types"
)

/*
ExpireAfterAccess implements a very common cache behavior called "expire after access" or "sliding TTL".
Every time someone reads or rewrites the data, the expiration timer is pushed forward. As long as the data keeps
getting used, it stays alive. If nobody touches it for a while, it expires.

The timer is not stored anywhere. An entry's recency (the later of its read and
write timestamps) already moves on every use, so the cutoff is simply now - TTL.
*/
type ExpireAfterAccess struct {

	// TTL (Time-To-Live) defines how long the entry should remain valid AFTER it is used.
	TTL time.Duration
}

func (e *ExpireAfterAccess) Stamp() eviction.Stamp { return eviction.LastUsed }

func (e *ExpireAfterAccess) Cutoff(now time.Time) time.Time {
	return now.Add(-e.TTL)
}

// IsExpired checks whether the entry is expired at this moment.
func (e *ExpireAfterAccess) IsExpired(ent types.Stamped, now time.Time) bool {
	return expired(e, ent, now)
}
