package btree

import (
	"cmp"
	"encoding/json"
	"os"
	"path/filepath"

	"diskbtree/cache"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	metadataFile  = "meta.json"
	formatVersion = 1
)

type metadata struct {
	Capacity int `json:"capacity"`
	Format   int `json:"format"`
}

// NewBTree creates a tree in dir, which must not exist yet. Every node of the
// tree holds at most capacity keys; capacity must be odd and at least 3.
func NewBTree[K cmp.Ordered, V any](dir string, capacity int, opts ...Option) (*BTree[K, V], error) {
	if err := validateCapacity(capacity); err != nil {
		return nil, err
	}
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}

	if err := os.Mkdir(dir, 0755); err != nil {
		return nil, newError(KindIO, "create tree", dir, err)
	}

	bt, err := newTree[K, V](dir, capacity, o)
	if err != nil {
		return nil, err
	}
	if err := bt.saveMetadata(); err != nil {
		return nil, err
	}

	root, err := createNode[K, V](bt.nodePath(RootRef), capacity, o.syncWrites)
	if err != nil {
		return nil, err
	}
	if err := root.save(); err != nil {
		root.Close()
		return nil, err
	}
	bt.root = root

	bt.log.Debug("created tree", zap.Int("capacity", capacity))
	return bt, nil
}

// LoadBTree opens a tree previously created by NewBTree. The cache starts
// empty; only the root is read up front.
func LoadBTree[K cmp.Ordered, V any](dir string, opts ...Option) (*BTree[K, V], error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}

	meta, err := readMetadata(dir)
	if err != nil {
		return nil, err
	}

	bt, err := newTree[K, V](dir, meta.Capacity, o)
	if err != nil {
		return nil, err
	}
	root, err := loadNode[K, V](bt.nodePath(RootRef), meta.Capacity, o.syncWrites)
	if err != nil {
		return nil, err
	}
	bt.root = root

	bt.log.Debug("loaded tree", zap.Int("capacity", meta.Capacity))
	return bt, nil
}

func newTree[K cmp.Ordered, V any](dir string, capacity int, o options) (*BTree[K, V], error) {
	bt := &BTree[K, V]{
		dir:      dir,
		capacity: capacity,
		opts:     o,
		log:      o.logger.With(zap.String("tree", dir)),
	}
	c, err := cache.New[NodeRef, *Node[K, V]](o.cacheSize, bt.nodeEvicted)
	if err != nil {
		return nil, newError(KindConfig, "create cache", dir, err)
	}
	bt.cache = c
	return bt, nil
}

func (bt *BTree[K, V]) nodeEvicted(ref NodeRef, closeErr error) {
	if closeErr != nil {
		bt.log.Warn("closing evicted node failed", zap.String("node", string(ref)), zap.Error(closeErr))
		return
	}
	bt.log.Debug("evicted node", zap.String("node", string(ref)))
}

func (bt *BTree[K, V]) saveMetadata() error {
	path := filepath.Join(bt.dir, metadataFile)
	data, err := json.MarshalIndent(metadata{Capacity: bt.capacity, Format: formatVersion}, "", "  ")
	if err != nil {
		return newError(KindSerialization, "save metadata", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return newError(KindIO, "save metadata", path, err)
	}
	return nil
}

func readMetadata(dir string) (metadata, error) {
	path := filepath.Join(dir, metadataFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return metadata{}, newError(KindIO, "load metadata", path, err)
	}

	var meta metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return metadata{}, newError(KindDeserialization, "load metadata", path, err)
	}
	if meta.Format != formatVersion {
		return metadata{}, newError(KindDeserialization, "load metadata", path,
			errors.Newf("unsupported format %d", meta.Format))
	}
	if err := validateCapacity(meta.Capacity); err != nil {
		return metadata{}, newError(KindDeserialization, "load metadata", path, err)
	}
	return meta, nil
}

// Close releases the root and every cached node. All state is already on
// disk, so nothing is written.
func (bt *BTree[K, V]) Close() error {
	bt.cache.Purge()
	if bt.root == nil {
		return nil
	}
	err := bt.root.Close()
	bt.root = nil
	if err != nil {
		return newError(KindIO, "close tree", bt.dir, err)
	}
	return nil
}

// Dir returns the backing directory.
func (bt *BTree[K, V]) Dir() string { return bt.dir }

// Capacity returns the maximum number of keys per node.
func (bt *BTree[K, V]) Capacity() int { return bt.capacity }

func (bt *BTree[K, V]) nodePath(ref NodeRef) string {
	return filepath.Join(bt.dir, string(ref))
}

func newNodeRef() NodeRef {
	return NodeRef(uuid.NewString())
}

// node resolves ref to a resident node, reading it from disk on a miss.
func (bt *BTree[K, V]) node(ref NodeRef) (*Node[K, V], error) {
	if ref == RootRef {
		return bt.root, nil
	}
	return bt.cache.GetOrLoad(ref, func(ref NodeRef) (*Node[K, V], error) {
		return loadNode[K, V](bt.nodePath(ref), bt.capacity, bt.opts.syncWrites)
	})
}

// resync throws away every in-memory node and reloads the root, so that
// memory matches disk after a failed mutation.
func (bt *BTree[K, V]) resync() {
	bt.cache.Purge()
	if bt.root != nil {
		bt.root.Close()
		bt.root = nil
	}
	root, err := loadNode[K, V](bt.nodePath(RootRef), bt.capacity, bt.opts.syncWrites)
	if err != nil {
		bt.log.Error("reloading root failed, tree is unusable", zap.Error(err))
		return
	}
	bt.root = root
}
