package persist

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/krisalay/memo-cache/types"
)

const (
	dirPerm  = 0o755
	filePerm = 0o600
)

/*
File keeps the snapshot in a single file, cache_dir/filename.

Saves go to a temp file in the same directory which is synced and then renamed
over the target. Readers, including other processes, see either the previous
snapshot or the new one, never a truncated file.
*/
type File struct {
	dir  string
	path string
	mu   sync.Mutex
}

// NewFile creates dir (and parents) if needed and returns a backend for
// dir/filename.
func NewFile(dir, filename string) (*File, error) {
	if dir == "" || filename == "" {
		return nil, types.Errorf(types.ErrInvalidOption, "file backend needs both a directory and a filename")
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, types.IOError(err, "create cache dir")
	}
	return &File{dir: dir, path: filepath.Join(dir, filename)}, nil
}

func (f *File) Location() string { return f.path }

func (f *File) Load(ctx context.Context) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	b, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, types.IOError(err, "read "+f.path)
	}
	return b, true, nil
}

func (f *File) Save(ctx context.Context, blob []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	tmp, err := os.CreateTemp(f.dir, "."+filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return types.IOError(err, "create temp file")
	}
	name := tmp.Name()

	// Cleanup on any failure before the rename lands.
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(name)
		}
	}()

	if err := tmp.Chmod(filePerm); err != nil {
		return types.IOError(err, "chmod temp file")
	}
	if _, err := tmp.Write(blob); err != nil {
		return types.IOError(err, "write temp file")
	}
	if err := tmp.Sync(); err != nil {
		return types.IOError(err, "sync temp file")
	}
	if err := tmp.Close(); err != nil {
		return types.IOError(err, "close temp file")
	}
	if err := os.Rename(name, f.path); err != nil {
		return types.IOError(err, "rename into "+f.path)
	}
	committed = true
	return nil
}

// Remove deletes the snapshot file. A missing file is not an error.
func (f *File) Remove() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return types.IOError(err, "remove "+f.path)
	}
	return nil
}
