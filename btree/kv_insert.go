package btree

import (
	"cmp"

	"go.uber.org/zap"
)

// Insert stores value under key. When key was already present the previous
// value is returned with existed set. Every node changed along the way is
// saved before Insert returns.
func (bt *BTree[K, V]) Insert(key K, value V) (prev V, existed bool, err error) {
	if bt.root == nil {
		return prev, false, newError(KindClosed, "insert", bt.dir, ErrClosed)
	}

	if bt.root.data.isFull() {
		if err = bt.splitRoot(); err != nil {
			bt.resync()
			return prev, false, err
		}
	}

	prev, existed, err = bt.insertNonFull(bt.root, key, value)
	if err != nil {
		bt.resync()
	}
	return prev, existed, err
}

// splitRoot grows the tree by one level. The upper half of the root goes to a
// new sibling, the lower half is moved to a fresh file, and the root file is
// rewritten to hold just the median and the two children. The root file is
// written last so a failure before that leaves the old root intact.
func (bt *BTree[K, V]) splitRoot() error {
	old := bt.root
	siblingRef, demotedRef := newNodeRef(), newNodeRef()

	key, value, sibling, err := old.split(bt.nodePath(siblingRef))
	if err != nil {
		return err
	}

	rootFile, err := old.rename(bt.nodePath(demotedRef))
	if err != nil {
		sibling.Close()
		return err
	}

	root := &Node[K, V]{
		path: bt.nodePath(RootRef),
		file: rootFile,
		data: newNodeData[K, V](bt.capacity),
		sync: bt.opts.syncWrites,
	}
	root.data.Keys = append(root.data.Keys, key)
	root.data.Values = append(root.data.Values, value)
	root.data.Children = make([]NodeRef, 0, bt.capacity+1)
	root.data.Children = append(root.data.Children, demotedRef, siblingRef)
	if err := root.save(); err != nil {
		root.Close()
		sibling.Close()
		return err
	}

	bt.root = root
	bt.cache.Add(demotedRef, old)
	bt.cache.Add(siblingRef, sibling)
	bt.log.Debug("split root", zap.String("left", string(demotedRef)), zap.String("right", string(siblingRef)))
	return nil
}

// insertNonFull descends from node, which has room for one more key,
// splitting every full child before entering it so the leaf always has room.
//
// A child split is written sibling first, then parent, then child. Until the
// child is rewritten it still holds its old upper half, which lookups never
// reach because the parent routes those keys to the sibling.
func (bt *BTree[K, V]) insertNonFull(node *Node[K, V], key K, value V) (V, bool, error) {
	var zero V
	for {
		idx, found := node.data.search(key)
		if found {
			prev, _ := node.data.insert(key, value)
			return prev, true, node.save()
		}

		if node.data.isLeaf() {
			prev, existed, err := node.data.insertIfSpace(key, value)
			if err != nil {
				return zero, false, newError(KindInvariant, "insert", node.path, err)
			}
			return prev, existed, node.save()
		}

		child, err := bt.node(node.data.Children[idx])
		if err != nil {
			return zero, false, err
		}
		if idx < len(node.data.Keys) && child.data.trimFrom(node.data.Keys[idx]) {
			// left over from a split whose final child write failed
			if err := child.save(); err != nil {
				return zero, false, err
			}
			bt.log.Warn("dropped stale keys", zap.String("node", string(node.data.Children[idx])))
		}

		if child.data.isFull() {
			siblingRef := newNodeRef()
			median, medianValue, sibling, err := child.split(bt.nodePath(siblingRef))
			if err != nil {
				return zero, false, err
			}
			bt.cache.Add(siblingRef, sibling)
			node.data.insertSeparator(idx, median, medianValue, siblingRef)

			c := cmp.Compare(key, median)
			var prev V
			if c == 0 {
				prev, _ = node.data.insert(key, value)
			}
			if err := node.save(); err != nil {
				return zero, false, err
			}
			if err := child.save(); err != nil {
				return zero, false, err
			}
			bt.log.Debug("split node", zap.String("node", string(node.data.Children[idx])), zap.String("sibling", string(siblingRef)))

			switch {
			case c == 0:
				return prev, true, nil
			case c > 0:
				child = sibling
			}
		}

		node = child
	}
}
