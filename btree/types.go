package btree

import (
	"cmp"
	"os"

	"diskbtree/cache"

	"go.uber.org/zap"
)

// NodeRef names a node's backing file inside the tree directory.
type NodeRef string

// RootRef is the fixed identifier of the root node file.
const RootRef NodeRef = "root"

// NodeData holds the ordered content of one node. Children is nil for a leaf.
type NodeData[K cmp.Ordered, V any] struct {
	Keys     []K       `msgpack:"keys"`
	Values   []V       `msgpack:"values"`
	Children []NodeRef `msgpack:"children"`

	cap int
}

// Node binds a NodeData to its open backing file.
type Node[K cmp.Ordered, V any] struct {
	path string
	file *os.File
	data *NodeData[K, V]
	sync bool
}

// BTree is a disk-resident B-tree. The root node is always resident; every
// other node is paged in and out through a bounded LRU cache.
//
// A BTree is not safe for concurrent use.
type BTree[K cmp.Ordered, V any] struct {
	dir      string
	capacity int
	root     *Node[K, V]
	cache    *cache.LRU[NodeRef, *Node[K, V]]
	opts     options
	log      *zap.Logger
}

// Stats describes the shape of a tree.
type Stats struct {
	Capacity      int  `json:"capacity"`
	Height        int  `json:"height"`
	Nodes         int  `json:"nodes"`
	Keys          int  `json:"keys"`
	CachedNodes   int  `json:"cached_nodes"`
	CacheCapacity int  `json:"cache_capacity"`
	RootKeys      int  `json:"root_keys"`
	RootIsLeaf    bool `json:"root_is_leaf"`
}
