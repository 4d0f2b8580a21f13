package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound means the key was never stored, or its entry is empty.
	ErrNotFound = errors.New("cache: entry not found")

	// ErrInvalidKey is returned for keys that are not safe file names.
	ErrInvalidKey = errors.New("cache: invalid key")
)

// DecodeError means an entry exists but its contents could not be parsed.
type DecodeError struct {
	Key string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cache: decode %q: %v", e.Key, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// WriteError means an entry could not be persisted.
type WriteError struct {
	Key string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("cache: write %q: %v", e.Key, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// PurgeResult reports a bulk purge. Err aggregates every per-entry failure.
type PurgeResult struct {
	Removed []string
	Err     error
}

// Count is the number of entries actually removed.
func (r PurgeResult) Count() int { return len(r.Removed) }

// Store is a key-addressed blob store. Keys are file names including
// their suffix; the suffix decides whether an entry is structured or binary.
// Implemented by DiskStore (default), RedisStore and MemoryStore.
type Store interface {
	// Exists reports whether key holds a non-empty entry.
	Exists(ctx context.Context, key string) (bool, error)
	// Load returns the stored bytes, or ErrNotFound.
	Load(ctx context.Context, key string) ([]byte, error)
	// Store replaces whatever is stored under key.
	Store(ctx context.Context, key string, value []byte) error
	// Purge removes every entry with a known suffix.
	Purge(ctx context.Context) PurgeResult
}

const JSONSuffix = ".json"

// ImageSuffixes are the suffixes of binary image entries.
var ImageSuffixes = []string{".jpg", ".jpeg", ".png", ".gif"}

// KnownSuffix reports whether key ends in a suffix this cache manages.
func KnownSuffix(key string) bool {
	if strings.HasSuffix(key, JSONSuffix) {
		return true
	}
	for _, s := range ImageSuffixes {
		if strings.HasSuffix(key, s) {
			return true
		}
	}
	return false
}

// IsStructured reports whether key names a JSON entry.
func IsStructured(key string) bool {
	return strings.HasSuffix(key, JSONSuffix)
}

// ValidateKey rejects keys that could escape the cache root or hide as
// dotfiles. Keys embed user-supplied titles, so every backend calls this.
// Keys are a single path component, so ".." inside a title such as
// "Wait..." is harmless; a bare ".." is caught by the leading-dot rule.
func ValidateKey(key string) error {
	switch {
	case key == "":
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	case strings.HasPrefix(key, "."):
		return fmt.Errorf("%w: %q starts with a dot", ErrInvalidKey, key)
	case strings.ContainsAny(key, "/\\\x00"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidKey, key)
	}
	return nil
}

// LoadJSON loads key and decodes it into v.
// A missing entry yields ErrNotFound; unparseable contents yield *DecodeError.
func LoadJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := s.Load(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &DecodeError{Key: key, Err: err}
	}
	return nil
}

// StoreJSON encodes v and stores it under key.
func StoreJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return &WriteError{Key: key, Err: err}
	}
	return s.Store(ctx, key, raw)
}
