package database

import (
	"sync"

	"diskbtree/btree"
)

// Collection is a single tree plus its name. The tree itself is not safe for
// concurrent use, so every call takes the collection lock.
type Collection struct {
	mu   sync.Mutex
	name string
	tree *btree.BTree[string, string]
}

func (c *Collection) Name() string { return c.name }

// Set stores value under key and returns the value it replaced, if any.
func (c *Collection) Set(key, value string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tree.Insert(key, value)
}

func (c *Collection) Get(key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tree.Get(key)
}

func (c *Collection) Stats() (btree.Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tree.Stats()
}

// Check verifies the collection's tree structure.
func (c *Collection) Check() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tree.Check()
}

func (c *Collection) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tree.Close()
}
