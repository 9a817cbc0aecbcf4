package cache

import (
	"fmt"
	"io"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSize is the number of entries a cache holds unless told otherwise.
const DefaultSize = 256

// LRU is a bounded least-recently-used cache of values that own a resource.
// An evicted value is closed and dropped; nothing is written back, so callers
// must persist a value themselves before letting go of it.
type LRU[K comparable, V io.Closer] struct {
	items   *lru.Cache[K, V]
	maxSize int
	onEvict func(key K, closeErr error)
}

// New creates a cache holding at most maxSize entries. onEvict, if not nil,
// is called after an entry has been evicted and closed.
func New[K comparable, V io.Closer](maxSize int, onEvict func(key K, closeErr error)) (*LRU[K, V], error) {
	c := &LRU[K, V]{maxSize: maxSize, onEvict: onEvict}
	items, err := lru.NewWithEvict[K, V](maxSize, c.evicted)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache of size %d: %w", maxSize, err)
	}
	c.items = items
	return c, nil
}

func (c *LRU[K, V]) evicted(key K, value V) {
	err := value.Close()
	if c.onEvict != nil {
		c.onEvict(key, err)
	}
}

// Get returns the value for key and marks it most recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	return c.items.Get(key)
}

// GetOrLoad returns the cached value for key, or calls load and caches its
// result. Caching a loaded value may evict the least recently used entry.
func (c *LRU[K, V]) GetOrLoad(key K, load func(K) (V, error)) (V, error) {
	if v, ok := c.items.Get(key); ok {
		return v, nil
	}
	v, err := load(key)
	if err != nil {
		var zero V
		return zero, err
	}
	c.items.Add(key, v)
	return v, nil
}

// Add inserts value under a key that is not yet resident. Replacing a
// resident value does not close the old one.
func (c *LRU[K, V]) Add(key K, value V) {
	c.items.Add(key, value)
}

// Contains reports whether key is resident without touching its recency.
func (c *LRU[K, V]) Contains(key K) bool {
	return c.items.Contains(key)
}

// Remove evicts key, closing its value.
func (c *LRU[K, V]) Remove(key K) bool {
	return c.items.Remove(key)
}

// Purge evicts every entry.
func (c *LRU[K, V]) Purge() {
	c.items.Purge()
}

func (c *LRU[K, V]) Len() int {
	return c.items.Len()
}

func (c *LRU[K, V]) MaxSize() int {
	return c.maxSize
}
