package btree

import (
	"cmp"
	"io"
	"io/fs"
	"os"

	"github.com/cockroachdb/errors"
)

func openExclusive(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, newError(KindNodeConflict, "create node", path, err)
		}
		return nil, newError(KindIO, "create node", path, err)
	}
	return f, nil
}

// createNode allocates a new, empty node file. It never overwrites an
// existing file.
func createNode[K cmp.Ordered, V any](path string, capacity int, sync bool) (*Node[K, V], error) {
	f, err := openExclusive(path)
	if err != nil {
		return nil, err
	}
	return &Node[K, V]{
		path: path,
		file: f,
		data: newNodeData[K, V](capacity),
		sync: sync,
	}, nil
}

func loadNode[K cmp.Ordered, V any](path string, capacity int, sync bool) (*Node[K, V], error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, newError(KindIO, "load node", path, err)
	}

	b, err := io.ReadAll(f)
	if err != nil {
		f.Close()
		return nil, newError(KindIO, "load node", path, err)
	}

	data, err := decodeNodeData[K, V](b, capacity)
	if err != nil {
		f.Close()
		return nil, newError(KindDeserialization, "load node", path, err)
	}

	return &Node[K, V]{path: path, file: f, data: data, sync: sync}, nil
}

// save rewrites the whole backing file with the current data.
func (n *Node[K, V]) save() error {
	b, err := encodeNodeData(n.data)
	if err != nil {
		return newError(KindSerialization, "save node", n.path, err)
	}

	if err := n.file.Truncate(0); err != nil {
		return newError(KindIO, "save node", n.path, err)
	}
	if _, err := n.file.Seek(0, io.SeekStart); err != nil {
		return newError(KindIO, "save node", n.path, err)
	}
	if _, err := n.file.Write(b); err != nil {
		return newError(KindIO, "save node", n.path, err)
	}
	if n.sync {
		if err := n.file.Sync(); err != nil {
			return newError(KindIO, "save node", n.path, err)
		}
	}
	return nil
}

// rename persists the node under newPath and makes that its backing file.
// The handle on the old path is handed back open so the caller can reuse it.
func (n *Node[K, V]) rename(newPath string) (*os.File, error) {
	f, err := openExclusive(newPath)
	if err != nil {
		return nil, err
	}

	oldPath, oldFile := n.path, n.file
	n.path, n.file = newPath, f
	if err := n.save(); err != nil {
		n.path, n.file = oldPath, oldFile
		f.Close()
		os.Remove(newPath)
		return nil, err
	}
	return oldFile, nil
}

// split splits a full node, storing the upper half in a new node file at
// newPath. The sibling is saved; n is changed in memory only.
func (n *Node[K, V]) split(newPath string) (K, V, *Node[K, V], error) {
	f, err := openExclusive(newPath)
	if err != nil {
		var (
			zk K
			zv V
		)
		return zk, zv, nil, err
	}

	key, value, data := n.data.split()
	sibling := &Node[K, V]{path: newPath, file: f, data: data, sync: n.sync}
	if err := sibling.save(); err != nil {
		sibling.Close()
		return key, value, nil, err
	}
	return key, value, sibling, nil
}

// Close releases the backing file handle. The file itself stays on disk.
func (n *Node[K, V]) Close() error {
	if n.file == nil {
		return nil
	}
	err := n.file.Close()
	n.file = nil
	return err
}
