package cache_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/krisalay/memo-cache/types"
)

//
// ================= FAKE CLOCK =================
//

// fakeClock hands out a time and then moves forward by step, so every call
// to Now sees a strictly later instant unless step is zero.
type fakeClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func newFakeClock(step time.Duration) *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), step: step}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Peek returns the next time Now will hand out, without advancing.
func (c *fakeClock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

//
// ================= TEST BACKEND =================
//

type memBackend struct {
	mu      sync.Mutex
	blob    []byte
	saves   int
	saveErr error
}

func (b *memBackend) Load(context.Context) ([]byte, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.blob == nil {
		return nil, false, nil
	}
	return b.blob, true, nil
}

func (b *memBackend) Save(_ context.Context, blob []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.saveErr != nil {
		return b.saveErr
	}
	b.saves++
	b.blob = append([]byte(nil), blob...)
	return nil
}

func (b *memBackend) Location() string { return "mem" }

func (b *memBackend) Saves() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saves
}

func (b *memBackend) FailWith(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.saveErr = err
}

//
// ================= COUNTING METRICS =================
//

type countingMetrics struct {
	hits, misses, evictions, expires, flushes atomic.Int64
}

var _ types.Metrics = (*countingMetrics)(nil)

func (m *countingMetrics) Hit()      { m.hits.Add(1) }
func (m *countingMetrics) Miss()     { m.misses.Add(1) }
func (m *countingMetrics) Eviction() { m.evictions.Add(1) }
func (m *countingMetrics) Expire()   { m.expires.Add(1) }
func (m *countingMetrics) Flush()    { m.flushes.Add(1) }
