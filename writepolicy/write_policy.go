package writepolicy

import "context"

/*
This file defines what a "write policy" is.

Every mutation of a persistent store produces a fresh snapshot of the whole
store. The write policy decides how that snapshot reaches the backend:
- Some want the call to fail when the backend fails (write-through)
- Some want high throughput and accept losing the newest snapshot (write-back)

Instead of hard-coding one behavior, we define an interface so we can plug in different strategies.
*/

/*
WritePolicy is the contract that all write policies must follow.
The cache engine does not care which policy is used. It simply calls these methods.
*/
type WritePolicy interface {

	/*
		OnFlush is called with the full snapshot after a mutation.
		blob must not be modified by the caller afterwards.
	*/
	OnFlush(ctx context.Context, blob []byte) error

	/*
		Close is called when the cache is shutting down.
	*/
	Close() error
}
