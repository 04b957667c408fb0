// Package codec turns a whole store into one blob and back.
package codec

import (
	"time"

	"github.com/pkg/errors"

	"github.com/krisalay/memo-cache/types"
)

// SnapshotVersion is written into every blob. Blobs with any other version
// are rejected.
const SnapshotVersion = 1

// Codec is a byte encoding for a snapshot.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

/*
Snapshot is the persisted shape of a store:

	{"version":1,"entries":{"<key>":{"value":V,"written":<unix ns>,"read":<unix ns>}}}

Timestamps are integer nanoseconds so they survive any codec exactly.
*/
type Snapshot[V any] struct {
	Version int                  `json:"version" yaml:"version"`
	Entries map[string]Record[V] `json:"entries" yaml:"entries"`
}

type Record[V any] struct {
	Value   V     `json:"value" yaml:"value"`
	Written int64 `json:"written" yaml:"written"`
	Read    int64 `json:"read" yaml:"read"`
}

// Encode serializes entries with c.
func Encode[V any](c Codec, entries map[string]*types.CacheEntry[V]) ([]byte, error) {
	snap := Snapshot[V]{
		Version: SnapshotVersion,
		Entries: make(map[string]Record[V], len(entries)),
	}
	for k, ent := range entries {
		snap.Entries[k] = Record[V]{
			Value:   ent.Value,
			Written: ent.LastWrittenAt.UnixNano(),
			Read:    ent.LastReadAt.UnixNano(),
		}
	}

	b, err := c.Marshal(&snap)
	if err != nil {
		return nil, errors.Wrapf(err, "encode snapshot as %s", c.Name())
	}
	return b, nil
}

// Decode parses a blob written by Encode. Every failure matches
// types.ErrDeserialization.
func Decode[V any](c Codec, blob []byte) (map[string]*types.CacheEntry[V], error) {
	var snap Snapshot[V]
	if err := c.Unmarshal(blob, &snap); err != nil {
		return nil, types.DeserializationError(err, "decode snapshot as "+c.Name())
	}
	if snap.Version != SnapshotVersion {
		return nil, types.Errorf(types.ErrDeserialization, "snapshot version %d, want %d", snap.Version, SnapshotVersion)
	}
	if snap.Entries == nil {
		return nil, types.Errorf(types.ErrDeserialization, "snapshot has no entries map")
	}

	entries := make(map[string]*types.CacheEntry[V], len(snap.Entries))
	for k, rec := range snap.Entries {
		entries[k] = &types.CacheEntry[V]{
			Key:           k,
			Value:         rec.Value,
			LastWrittenAt: time.Unix(0, rec.Written),
			LastReadAt:    time.Unix(0, rec.Read),
		}
	}
	return entries, nil
}

// ByName resolves a codec from configuration. compress wraps it in zstd.
func ByName(name string, compress bool) (Codec, error) {
	var c Codec
	switch name {
	case "", "json":
		c = JSON{}
	case "yaml":
		c = YAML{}
	default:
		return nil, types.Errorf(types.ErrInvalidOption, "unknown codec %q", name)
	}

	if !compress {
		return c, nil
	}
	return NewZstd(c)
}
