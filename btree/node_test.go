package btree

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name     string
		keys     []string
		values   []int
		children []NodeRef
	}{
		{"leaf", []string{"apple", "banana", "cherry"}, []int{1, 2, 3}, nil},
		{"internal", []string{"m"}, []int{13}, []NodeRef{"left", "right"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name)
			n, err := createNode[string, int](path, 5, false)
			require.NoError(t, err)
			n.data.Keys = append(n.data.Keys, tt.keys...)
			n.data.Values = append(n.data.Values, tt.values...)
			n.data.Children = tt.children
			require.NoError(t, n.save())
			require.NoError(t, n.Close())

			loaded, err := loadNode[string, int](path, 5, false)
			require.NoError(t, err)
			defer loaded.Close()

			assert.Equal(t, tt.keys, loaded.data.Keys)
			assert.Equal(t, tt.values, loaded.data.Values)
			assert.Equal(t, tt.children, loaded.data.Children)
			assert.Equal(t, tt.children == nil, loaded.data.isLeaf())
			assert.Equal(t, 5, loaded.data.capacity())
		})
	}
}

func TestNodeSaveTruncates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node")
	n, err := createNode[string, string](path, 5, true)
	require.NoError(t, err)
	defer n.Close()

	for _, k := range []string{"a", "b", "c", "d", "e"} {
		n.data.insert(k, "a fairly long value to make the first record big")
	}
	require.NoError(t, n.save())

	n.data = newNodeData[string, string](5)
	n.data.insert("z", "short")
	require.NoError(t, n.save())

	loaded, err := loadNode[string, string](path, 5, false)
	require.NoError(t, err)
	defer loaded.Close()
	assert.Equal(t, []string{"z"}, loaded.data.Keys)
	assert.Equal(t, []string{"short"}, loaded.data.Values)
}

func TestCreateNodeConflict(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taken")
	require.NoError(t, os.WriteFile(path, []byte("existing"), 0644))

	_, err := createNode[string, string](path, 3, false)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindNodeConflict))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "existing", string(b), "existing file must not be touched")
}

func TestLoadNodeErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := loadNode[string, string](filepath.Join(dir, "missing"), 3, false)
	assert.True(t, IsKind(err, KindIO))

	garbage := filepath.Join(dir, "garbage")
	require.NoError(t, os.WriteFile(garbage, []byte{0xc1, 0xff, 0x00}, 0644))
	_, err = loadNode[string, string](garbage, 3, false)
	assert.True(t, IsKind(err, KindDeserialization))

	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	_, err = loadNode[string, string](empty, 3, false)
	assert.True(t, IsKind(err, KindDeserialization))
}

func TestLoadNodeRejectsBrokenInvariants(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node")
	n, err := createNode[int, int](path, 5, false)
	require.NoError(t, err)
	n.data.Keys = []int{3, 1}
	n.data.Values = []int{30, 10}
	require.NoError(t, n.save())
	require.NoError(t, n.Close())

	_, err = loadNode[int, int](path, 5, false)
	assert.True(t, IsKind(err, KindDeserialization))
}

func TestNodeRename(t *testing.T) {
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "old")
	newPath := filepath.Join(dir, "new")

	n, err := createNode[string, string](oldPath, 3, false)
	require.NoError(t, err)
	n.data.insert("k", "v")
	require.NoError(t, n.save())

	released, err := n.rename(newPath)
	require.NoError(t, err)
	require.NotNil(t, released)
	require.NoError(t, released.Close())
	assert.Equal(t, newPath, n.path)

	n.data.insert("k", "changed")
	require.NoError(t, n.save())
	require.NoError(t, n.Close())

	moved, err := loadNode[string, string](newPath, 3, false)
	require.NoError(t, err)
	defer moved.Close()
	assert.Equal(t, []string{"changed"}, moved.data.Values)

	original, err := loadNode[string, string](oldPath, 3, false)
	require.NoError(t, err)
	defer original.Close()
	assert.Equal(t, []string{"v"}, original.data.Values, "old file keeps its content")
}

func TestNodeRenameConflict(t *testing.T) {
	dir := t.TempDir()
	n, err := createNode[string, string](filepath.Join(dir, "a"), 3, false)
	require.NoError(t, err)
	defer n.Close()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b"), nil, 0644))

	_, err = n.rename(filepath.Join(dir, "b"))
	assert.True(t, IsKind(err, KindNodeConflict))
	assert.Equal(t, filepath.Join(dir, "a"), n.path)
}

func TestNodeSplit(t *testing.T) {
	dir := t.TempDir()
	n, err := createNode[int, string](filepath.Join(dir, "n"), 5, false)
	require.NoError(t, err)
	defer n.Close()
	for i := 1; i <= 5; i++ {
		n.data.insert(i, "v")
	}

	key, _, sibling, err := n.split(filepath.Join(dir, "s"))
	require.NoError(t, err)
	defer sibling.Close()

	assert.Equal(t, 3, key)
	assert.Equal(t, []int{1, 2}, n.data.Keys)

	onDisk, err := loadNode[int, string](filepath.Join(dir, "s"), 5, false)
	require.NoError(t, err)
	defer onDisk.Close()
	assert.Equal(t, []int{4, 5}, onDisk.data.Keys, "sibling is saved by split")
}
