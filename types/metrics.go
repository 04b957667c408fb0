package types

// This file defines how the cache reports what it is doing.

/*
Metrics is an interface that defines what the cache wants to measure.
Each method represents an event in the cache lifecycle. The cache calls these
methods whenever something happens.
*/
type Metrics interface {

	// Hit is called when a memoized call finds its result in the cache.
	Hit()

	// Miss is called when a memoized call has to invoke the wrapped function.
	Miss()

	// Eviction is called once per entry removed by LRU eviction or by an
	// explicit evict call.
	Eviction()

	// Expire is called once per entry removed because it outlived the
	// configured expiration strategy.
	Expire()

	// Flush is called after every successful whole-store flush to the backend.
	Flush()
}

/*
NoopMetrics is a "do nothing" implementation of Metrics.

Callers that do not care about metrics still get a working cache without
nil checks scattered through the code.
*/
type NoopMetrics struct{}

func (NoopMetrics) Hit()      {}
func (NoopMetrics) Miss()     {}
func (NoopMetrics) Eviction() {}
func (NoopMetrics) Expire()   {}
func (NoopMetrics) Flush()    {}
