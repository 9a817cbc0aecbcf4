package btree

import (
	"cmp"

	"github.com/cockroachdb/errors"
)

// Get returns the value stored under key.
func (bt *BTree[K, V]) Get(key K) (V, bool, error) {
	var zero V
	if bt.root == nil {
		return zero, false, newError(KindClosed, "get", bt.dir, ErrClosed)
	}

	node := bt.root
	for {
		idx, found := node.data.search(key)
		if found {
			return node.data.Values[idx], true, nil
		}
		if node.data.isLeaf() {
			return zero, false, nil
		}

		var err error
		node, err = bt.node(node.data.Children[idx])
		if err != nil {
			return zero, false, err
		}
	}
}

// Height returns the number of levels, 1 for a tree that is a single leaf.
func (bt *BTree[K, V]) Height() (int, error) {
	if bt.root == nil {
		return 0, newError(KindClosed, "height", bt.dir, ErrClosed)
	}

	height := 1
	node := bt.root
	for !node.data.isLeaf() {
		var err error
		node, err = bt.node(node.data.Children[0])
		if err != nil {
			return 0, err
		}
		height++
	}
	return height, nil
}

// Stats walks the whole tree.
func (bt *BTree[K, V]) Stats() (Stats, error) {
	if bt.root == nil {
		return Stats{}, newError(KindClosed, "stats", bt.dir, ErrClosed)
	}

	st := Stats{
		Capacity:      bt.capacity,
		CacheCapacity: bt.cache.MaxSize(),
		RootKeys:      len(bt.root.data.Keys),
		RootIsLeaf:    bt.root.data.isLeaf(),
	}
	err := bt.walk(RootRef, 1, func(_ NodeRef, depth int, d *NodeData[K, V]) error {
		st.Nodes++
		st.Keys += len(d.Keys)
		st.Height = max(st.Height, depth)
		return nil
	})
	if err != nil {
		return Stats{}, err
	}
	st.CachedNodes = bt.cache.Len()
	return st, nil
}

// Check verifies the structure of the whole tree: every node is internally
// ordered, every key lies between the separators of its parent, and all
// leaves sit at the same depth.
func (bt *BTree[K, V]) Check() error {
	if bt.root == nil {
		return newError(KindClosed, "check", bt.dir, ErrClosed)
	}

	leafDepth := 0
	var check func(ref NodeRef, depth int, lo, hi *K) error
	check = func(ref NodeRef, depth int, lo, hi *K) error {
		node, err := bt.node(ref)
		if err != nil {
			return err
		}
		d := node.data
		if err := d.validate(); err != nil {
			return newError(KindInvariant, "check", node.path, err)
		}
		if len(d.Keys) > 0 {
			if lo != nil && cmp.Compare(d.Keys[0], *lo) <= 0 {
				return newError(KindInvariant, "check", node.path, errors.New("key below lower separator"))
			}
			if hi != nil && cmp.Compare(d.Keys[len(d.Keys)-1], *hi) >= 0 {
				return newError(KindInvariant, "check", node.path, errors.New("key above upper separator"))
			}
		}
		if d.isLeaf() {
			if leafDepth == 0 {
				leafDepth = depth
			} else if depth != leafDepth {
				return newError(KindInvariant, "check", node.path,
					errors.Newf("leaf at depth %d, expected %d", depth, leafDepth))
			}
			return nil
		}

		keys := append([]K(nil), d.Keys...)
		children := append([]NodeRef(nil), d.Children...)
		for i, child := range children {
			clo, chi := lo, hi
			if i > 0 {
				clo = &keys[i-1]
			}
			if i < len(keys) {
				chi = &keys[i]
			}
			if err := check(child, depth+1, clo, chi); err != nil {
				return err
			}
		}
		return nil
	}
	return check(RootRef, 1, nil, nil)
}

// walk visits every node depth first. fn must not keep d.
func (bt *BTree[K, V]) walk(ref NodeRef, depth int, fn func(ref NodeRef, depth int, d *NodeData[K, V]) error) error {
	node, err := bt.node(ref)
	if err != nil {
		return err
	}
	if err := fn(ref, depth, node.data); err != nil {
		return err
	}
	if node.data.isLeaf() {
		return nil
	}

	children := append([]NodeRef(nil), node.data.Children...)
	for _, child := range children {
		if err := bt.walk(child, depth+1, fn); err != nil {
			return err
		}
	}
	return nil
}
