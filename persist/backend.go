// Package persist holds the places a whole-store snapshot can live.
package persist

import "context"

/*
Backend stores exactly one opaque blob: the serialized store.

The cache never asks a backend for a single key. It loads the full snapshot
once at construction and saves the full snapshot after every mutation, so a
backend only needs get/put semantics on one object.
*/
type Backend interface {

	// Load returns the stored blob. found is false when nothing has been
	// saved yet; that is not an error.
	Load(ctx context.Context) (blob []byte, found bool, err error)

	// Save replaces the stored blob.
	Save(ctx context.Context, blob []byte) error

	// Location describes where the blob lives, for logs and tooling.
	Location() string
}
