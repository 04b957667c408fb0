package persist

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	s3v2 "github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krisalay/memo-cache/types"
)

// ================= FILE =================

func TestFile_RoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "nested", "cache")

	f, err := NewFile(dir, "store.json")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "store.json"), f.Location())

	_, found, err := f.Load(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, f.Save(ctx, []byte("one")))
	require.NoError(t, f.Save(ctx, []byte("two")))

	b, found, err := f.Load(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("two"), b)

	info, err := os.Stat(f.Location())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// Only the snapshot remains; temp files were renamed away.
	names, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, names, 1)
}

func TestFile_SaveFailureIsIOError(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	f, err := NewFile(dir, "store.json")
	require.NoError(t, err)

	// A directory squatting on the target path makes the rename fail.
	require.NoError(t, os.Mkdir(filepath.Join(dir, "store.json"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "store.json", "x"), nil, 0o600))

	err = f.Save(ctx, []byte("data"))
	assert.ErrorIs(t, err, types.ErrIO)

	_, _, err = f.Load(ctx)
	assert.ErrorIs(t, err, types.ErrIO)
}

func TestFile_Remove(t *testing.T) {
	ctx := context.Background()
	f, err := NewFile(t.TempDir(), "store.json")
	require.NoError(t, err)

	require.NoError(t, f.Remove())
	require.NoError(t, f.Save(ctx, []byte("x")))
	require.NoError(t, f.Remove())

	_, found, err := f.Load(ctx)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNewFile_RequiresBoth(t *testing.T) {
	_, err := NewFile("", "store.json")
	assert.ErrorIs(t, err, types.ErrInvalidOption)

	_, err = NewFile(t.TempDir(), "")
	assert.ErrorIs(t, err, types.ErrInvalidOption)
}

// ================= S3 =================

type fakeS3 struct {
	objects map[string][]byte
	putErr  error
}

func (f *fakeS3) GetObject(_ context.Context, in *s3v2.GetObjectInput, _ ...func(*s3v2.Options)) (*s3v2.GetObjectOutput, error) {
	b, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &s3types.NoSuchKey{}
	}
	return &s3v2.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(b))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3v2.PutObjectInput, _ ...func(*s3v2.Options)) (*s3v2.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Bucket+"/"+*in.Key] = b
	return &s3v2.PutObjectOutput{}, nil
}

func TestS3_RoundTrip(t *testing.T) {
	ctx := context.Background()
	client := &fakeS3{objects: map[string][]byte{}}

	s, err := NewS3(client, "bucket", "memo/store.json")
	require.NoError(t, err)
	assert.Equal(t, "s3://bucket/memo/store.json", s.Location())

	_, found, err := s.Load(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Save(ctx, []byte("blob")))

	b, found, err := s.Load(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("blob"), b)
}

func TestS3_SaveError(t *testing.T) {
	client := &fakeS3{objects: map[string][]byte{}, putErr: errors.New("access denied")}

	s, err := NewS3(client, "bucket", "k")
	require.NoError(t, err)

	err = s.Save(context.Background(), []byte("blob"))
	assert.ErrorIs(t, err, types.ErrIO)
	assert.Contains(t, err.Error(), "access denied")
}

// ================= REDIS =================

type fakeRedis struct {
	data   map[string]string
	ttl    time.Duration
	getErr error
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.data[key] = string(value.([]byte))
	f.ttl = expiration
	return redis.NewStatusResult("OK", nil)
}

func TestRedis_RoundTrip(t *testing.T) {
	ctx := context.Background()
	client := &fakeRedis{data: map[string]string{}}

	r, err := NewRedis(client, "memo:store", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "redis:memo:store", r.Location())

	_, found, err := r.Load(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, r.Save(ctx, []byte("blob")))
	assert.Equal(t, time.Hour, client.ttl)

	b, found, err := r.Load(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("blob"), b)
}

func TestRedis_LoadError(t *testing.T) {
	client := &fakeRedis{data: map[string]string{}, getErr: errors.New("connection refused")}

	r, err := NewRedis(client, "k", 0)
	require.NoError(t, err)

	_, _, err = r.Load(context.Background())
	assert.ErrorIs(t, err, types.ErrIO)
}
