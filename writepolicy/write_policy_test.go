package writepolicy_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/krisalay/memo-cache/types"
	"github.com/krisalay/memo-cache/writepolicy"
)

type recordingBackend struct {
	mu      sync.Mutex
	saves   []string
	err     error
	started chan struct{}
	gate    chan struct{}
}

func (b *recordingBackend) Load(context.Context) ([]byte, bool, error) { return nil, false, nil }
func (b *recordingBackend) Location() string                          { return "memory" }

func (b *recordingBackend) Save(_ context.Context, blob []byte) error {
	if b.started != nil {
		b.started <- struct{}{}
	}
	if b.gate != nil {
		<-b.gate
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.saves = append(b.saves, string(blob))
	return b.err
}

func (b *recordingBackend) saved() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.saves...)
}

type flushCount struct {
	types.NoopMetrics
	n atomic.Int64
}

func (m *flushCount) Flush() { m.n.Add(1) }

// ================= WRITE THROUGH =================

func TestWriteThrough_SavesSynchronously(t *testing.T) {
	b := &recordingBackend{}
	p := writepolicy.NewWriteThroughPolicy(b, nil)

	require.NoError(t, p.OnFlush(context.Background(), []byte("a")))
	require.NoError(t, p.OnFlush(context.Background(), []byte("b")))
	assert.Equal(t, []string{"a", "b"}, b.saved())
	assert.NoError(t, p.Close())
}

func TestWriteThrough_PropagatesError(t *testing.T) {
	b := &recordingBackend{err: types.IOError(errors.New("disk full"), "save")}
	p := writepolicy.NewWriteThroughPolicy(b, nil)

	err := p.OnFlush(context.Background(), []byte("a"))
	assert.ErrorIs(t, err, types.ErrIO)
}

// ================= WRITE BACK =================

func TestWriteBack_CoalescesPendingSnapshots(t *testing.T) {
	b := &recordingBackend{started: make(chan struct{}, 10), gate: make(chan struct{})}
	p := writepolicy.NewWriteBackPolicy(b, nil, nil)
	ctx := context.Background()

	require.NoError(t, p.OnFlush(ctx, []byte("1")))
	<-b.started // worker is now stuck saving "1"

	require.NoError(t, p.OnFlush(ctx, []byte("2")))
	require.NoError(t, p.OnFlush(ctx, []byte("3")))

	close(b.gate)
	require.NoError(t, p.Close())

	assert.Equal(t, []string{"1", "3"}, b.saved())
}

func TestWriteBack_CloseDrains(t *testing.T) {
	b := &recordingBackend{}
	p := writepolicy.NewWriteBackPolicy(b, nil, nil)

	require.NoError(t, p.OnFlush(context.Background(), []byte("last")))
	require.NoError(t, p.Close())

	saved := b.saved()
	require.NotEmpty(t, saved)
	assert.Equal(t, "last", saved[len(saved)-1])
}

func TestWriteBack_LogsAndReportsFailure(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	b := &recordingBackend{err: errors.New("bucket gone")}
	p := writepolicy.NewWriteBackPolicy(b, nil, zap.New(core))

	require.NoError(t, p.OnFlush(context.Background(), []byte("x")))

	err := p.Close()
	assert.EqualError(t, err, "bucket gone")
	assert.Equal(t, int64(1), p.Failures())
	assert.Equal(t, 1, logs.FilterMessage("write-back flush failed").Len())
}

func TestWriteBack_RejectsAfterClose(t *testing.T) {
	p := writepolicy.NewWriteBackPolicy(&recordingBackend{}, nil, nil)
	require.NoError(t, p.Close())

	err := p.OnFlush(context.Background(), []byte("x"))
	assert.ErrorIs(t, err, types.ErrClosed)
	assert.NoError(t, p.Close())
}

func TestWriteThrough_CountsOnlySuccessfulSaves(t *testing.T) {
	m := &flushCount{}
	b := &recordingBackend{}
	p := writepolicy.NewWriteThroughPolicy(b, m)

	require.NoError(t, p.OnFlush(context.Background(), []byte("a")))
	b.err = errors.New("disk full")
	assert.Error(t, p.OnFlush(context.Background(), []byte("b")))

	assert.Equal(t, int64(1), m.n.Load())
}

func TestWriteBack_CountsFlushOnlyAfterSave(t *testing.T) {
	m := &flushCount{}
	failing := writepolicy.NewWriteBackPolicy(&recordingBackend{err: errors.New("bucket gone")}, m, nil)
	require.NoError(t, failing.OnFlush(context.Background(), []byte("x")))
	require.Error(t, failing.Close())
	assert.Zero(t, m.n.Load())

	b := &recordingBackend{started: make(chan struct{}, 1), gate: make(chan struct{})}
	p := writepolicy.NewWriteBackPolicy(b, m, nil)
	require.NoError(t, p.OnFlush(context.Background(), []byte("y")))

	<-b.started // queued and picked up, but not yet saved
	assert.Zero(t, m.n.Load())

	close(b.gate)
	require.NoError(t, p.Close())
	assert.Equal(t, int64(1), m.n.Load())
}
