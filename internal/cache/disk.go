package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
)

// DiskStore keeps one file per key in a flat directory.
// The file set is the whole cache state; there is no index.
type DiskStore struct {
	root string
}

// NewDiskStore creates the cache directory if needed.
func NewDiskStore(root string) (*DiskStore, error) {
	if root == "" {
		return nil, errors.New("cache: disk root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("cache: create root %q: %w", root, err)
	}
	return &DiskStore{root: root}, nil
}

// path is where key lives under the cache directory.
func (s *DiskStore) path(key string) string {
	return filepath.Join(s.root, key)
}

// Exists is true only for a regular, non-empty file. A zero-byte file is
// what an interrupted write leaves behind, so it counts as a miss.
func (s *DiskStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("context error: %w", err)
	}
	if err := ValidateKey(key); err != nil {
		return false, err
	}

	info, err := os.Stat(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache: stat %q: %w", key, err)
	}
	return info.Mode().IsRegular() && info.Size() > 0, nil
}

func (s *DiskStore) Load(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cache: read %q: %w", key, err)
	}
	if len(data) == 0 {
		return nil, ErrNotFound
	}
	return data, nil
}

// Store writes value to a temp file in the cache root and renames it over
// the key, so readers see either the old entry or the new one.
func (s *DiskStore) Store(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	if err := ValidateKey(key); err != nil {
		return err
	}

	// Dot prefix keeps temp files out of Purge and out of the key space.
	tmp, err := os.CreateTemp(s.root, "."+key+".*.tmp")
	if err != nil {
		return &WriteError{Key: key, Err: err}
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return &WriteError{Key: key, Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return &WriteError{Key: key, Err: err}
	}
	if err := os.Rename(tmpPath, s.path(key)); err != nil {
		_ = os.Remove(tmpPath)
		return &WriteError{Key: key, Err: err}
	}
	return nil
}

// Purge removes every file with a known suffix. A failed removal is
// recorded and the walk continues.
func (s *DiskStore) Purge(ctx context.Context) PurgeResult {
	var res PurgeResult

	entries, err := os.ReadDir(s.root)
	if err != nil {
		res.Err = fmt.Errorf("cache: list %q: %w", s.root, err)
		return res
	}

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			res.Err = multierr.Append(res.Err, fmt.Errorf("context error: %w", err))
			return res
		}
		name := e.Name()
		if strings.HasPrefix(name, ".") || !KnownSuffix(name) {
			continue
		}
		p := s.path(name)
		if err := os.Remove(p); err != nil {
			res.Err = multierr.Append(res.Err, fmt.Errorf("cache: remove %q: %w", name, err))
			continue
		}
		res.Removed = append(res.Removed, p)
	}
	return res
}
