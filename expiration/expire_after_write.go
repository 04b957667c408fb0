package expiration

import (
	"time"

	"github.com/krisalay/memo-cache/eviction"
	"github.com/krisalay/memo-cache/types"
)

/*
ExpireAfterWrite drops an entry MaxAge after it was last written, no matter how
often it is read. This is the max-age knob of the memoizer.

MaxAge of zero is valid and means "anything written before now is stale", so a
memoized call with a zero max age recomputes on every invocation.
*/
type ExpireAfterWrite struct {
	MaxAge time.Duration
}

func (e *ExpireAfterWrite) Stamp() eviction.Stamp { return eviction.LastWritten }

func (e *ExpireAfterWrite) Cutoff(now time.Time) time.Time {
	return now.Add(-e.MaxAge)
}

func (e *ExpireAfterWrite) IsExpired(ent types.Stamped, now time.Time) bool {
	return expired(e, ent, now)
}
