package main

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	cache "github.com/krisalay/memo-cache"
	"github.com/krisalay/memo-cache/types"
)

// row is one entry with its value rendered as JSON.
type row struct {
	Key     string
	Written time.Time
	Read    time.Time
	Value   []byte
}

// view hides the value type of the store so commands do not need to know
// what the memoized function returned.
type view interface {
	rows() ([]row, error)
	resolve(prefix string) (string, error)
	size() int
	location() string

	evictWrittenBefore(ctx context.Context, cutoff time.Time) (int, error)
	evictReadBefore(ctx context.Context, cutoff time.Time) (int, error)
	evictUsedBefore(ctx context.Context, cutoff time.Time) (int, error)
	evictLRU(ctx context.Context, n int) (int, error)
	remove(ctx context.Context, key string) error
	clear(ctx context.Context) (int, error)
	close() error
}

type storeView[V any] struct {
	s *cache.Store[V]
}

// openView picks the value type from the codec. JSON blobs keep values as
// raw bytes so rewriting the store never changes them; other codecs decode
// into generic values.
func openView(ctx context.Context, codecName string, opts []cache.Option) (view, error) {
	if strings.HasPrefix(codecName, "json") {
		s, err := cache.New[json.RawMessage](ctx, opts...)
		if err != nil {
			return nil, err
		}
		return &storeView[json.RawMessage]{s: s}, nil
	}

	s, err := cache.New[any](ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &storeView[any]{s: s}, nil
}

func (v *storeView[V]) rows() ([]row, error) {
	entries := v.s.Entries()
	out := make([]row, 0, len(entries))
	for _, ent := range entries {
		b, err := sonic.ConfigStd.Marshal(ent.Value)
		if err != nil {
			return nil, types.WrapError(err, "render "+ent.Key)
		}
		out = append(out, row{Key: ent.Key, Written: ent.LastWrittenAt, Read: ent.LastReadAt, Value: b})
	}
	return out, nil
}

// resolve expands a unique key prefix to the full key.
func (v *storeView[V]) resolve(prefix string) (string, error) {
	var match string
	for _, k := range v.s.Keys() {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if match != "" {
			return "", types.Errorf(types.ErrInvalidOption, "prefix %q matches more than one key", prefix)
		}
		match = k
	}
	if match == "" {
		return "", types.Errorf(types.ErrKeyNotFound, "%s", prefix)
	}
	return match, nil
}

func (v *storeView[V]) size() int        { return v.s.Size() }
func (v *storeView[V]) location() string { return v.s.Location() }
func (v *storeView[V]) close() error     { return v.s.Close() }

func (v *storeView[V]) evictWrittenBefore(ctx context.Context, cutoff time.Time) (int, error) {
	return v.s.EvictWrittenBefore(ctx, cutoff)
}

func (v *storeView[V]) evictReadBefore(ctx context.Context, cutoff time.Time) (int, error) {
	return v.s.EvictReadBefore(ctx, cutoff)
}

func (v *storeView[V]) evictUsedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	return v.s.EvictUsedBefore(ctx, cutoff)
}

func (v *storeView[V]) evictLRU(ctx context.Context, n int) (int, error) {
	return v.s.EvictLeastRecentlyUsed(ctx, n)
}

func (v *storeView[V]) remove(ctx context.Context, key string) error {
	return v.s.Delete(ctx, key)
}

func (v *storeView[V]) clear(ctx context.Context) (int, error) {
	return v.s.Clear(ctx)
}
