package cache

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps entries in a map. Nothing survives a restart, so it
// suits tests and throwaway runs.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string][]byte),
	}
}

func (c *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	if err := ValidateKey(key); err != nil {
		return false, err
	}
	c.mu.RLock()
	v, ok := c.items[key]
	c.mu.RUnlock()
	return ok && len(v) > 0, nil
}

func (c *MemoryStore) Load(_ context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	c.mu.RLock()
	v, ok := c.items[key]
	c.mu.RUnlock()

	if !ok || len(v) == 0 {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (c *MemoryStore) Store(_ context.Context, key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	// Copy to decouple from caller's buffer
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	c.mu.Lock()
	c.items[key] = valueCopy
	c.mu.Unlock()
	return nil
}

func (c *MemoryStore) Purge(_ context.Context) PurgeResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	var res PurgeResult
	for k := range c.items {
		if !KnownSuffix(k) {
			continue
		}
		delete(c.items, k)
		res.Removed = append(res.Removed, k)
	}
	sort.Strings(res.Removed)
	return res
}

// Len returns the number of items currently in the cache.
func (c *MemoryStore) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
