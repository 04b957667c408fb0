package cache

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/krisalay/memo-cache/codec"
	"github.com/krisalay/memo-cache/engine"
	"github.com/krisalay/memo-cache/expiration"
	"github.com/krisalay/memo-cache/persist"
	"github.com/krisalay/memo-cache/types"
)

const (
	// DefaultCacheDir is where Memoize keeps its file when only a filename
	// is given.
	DefaultCacheDir = ".memocache"

	// DefaultMaxEntries leaves a memoized function effectively unbounded.
	DefaultMaxEntries = math.MaxInt

	DefaultInvalidationStride = 1
)

// Option configures a Store or a Memoized function.
type Option func(*settings)

type settings struct {
	// defaultDir is used when only a filename is given. Memoize sets it.
	defaultDir string
	cacheDir   string
	filename   string
	backend    persist.Backend
	codec      codec.Codec

	writeBack bool
	metrics   types.Metrics
	logger    *zap.Logger
	clock     engine.Clock

	// Memoize only.
	maxEntries int
	expiration expiration.Strategy
	stride     int

	err error
}

func defaults() *settings {
	return &settings{
		codec:      codec.JSON{},
		maxEntries: DefaultMaxEntries,
		stride:     DefaultInvalidationStride,
	}
}

func apply(opts []Option) (*settings, error) {
	s := defaults()
	for _, opt := range opts {
		opt(s)
	}
	if s.err != nil {
		return nil, s.err
	}
	return s, nil
}

func (s *settings) fail(format string, args ...interface{}) {
	if s.err == nil {
		s.err = types.Errorf(types.ErrInvalidOption, format, args...)
	}
}

// WithCacheDir sets the directory of the backing file. Persistence needs a
// filename as well.
func WithCacheDir(dir string) Option {
	return func(s *settings) { s.cacheDir = dir }
}

// WithFilename sets the name of the backing file inside the cache dir.
func WithFilename(name string) Option {
	return func(s *settings) { s.filename = name }
}

// WithBackend persists to b instead of a file. It wins over
// WithCacheDir/WithFilename.
func WithBackend(b persist.Backend) Option {
	return func(s *settings) { s.backend = b }
}

// WithCodec sets the snapshot encoding. The default is JSON.
func WithCodec(c codec.Codec) Option {
	return func(s *settings) {
		if c == nil {
			s.fail("nil codec")
			return
		}
		s.codec = c
	}
}

// WithWriteBack saves snapshots from a background worker. Calls no longer see
// flush errors; Close reports the last one.
func WithWriteBack() Option {
	return func(s *settings) { s.writeBack = true }
}

func WithMetrics(m types.Metrics) Option {
	return func(s *settings) { s.metrics = m }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.clock = now }
}

// WithMaxEntries caps a memoized function's cache. Going over the cap evicts
// the least recently used entries.
func WithMaxEntries(n int) Option {
	return func(s *settings) {
		if n < 0 {
			s.fail("max entries must not be negative, got %d", n)
			return
		}
		s.maxEntries = n
	}
}

// WithMaxAge expires entries d after they were written. Zero is allowed and
// disables reuse entirely.
func WithMaxAge(d time.Duration) Option {
	return func(s *settings) {
		if d < 0 {
			s.fail("max age must not be negative, got %s", d)
			return
		}
		s.expiration = &expiration.ExpireAfterWrite{MaxAge: d}
	}
}

// WithExpiration sets an arbitrary expiration strategy, replacing WithMaxAge.
func WithExpiration(st expiration.Strategy) Option {
	return func(s *settings) { s.expiration = st }
}

// WithInvalidationStride sets how many entries are evicted each time a
// memoized function goes over its cap.
func WithInvalidationStride(n int) Option {
	return func(s *settings) {
		if n < 1 {
			s.fail("invalidation stride must be at least 1, got %d", n)
			return
		}
		s.stride = n
	}
}
