package btree

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullNodeData(capacity int) *NodeData[int, string] {
	d := newNodeData[int, string](capacity)
	for i := 0; i < capacity; i++ {
		d.insert(i*10, fmt.Sprintf("v%d", i*10))
	}
	return d
}

func TestNodeDataInsertKeepsOrder(t *testing.T) {
	d := newNodeData[int, string](7)
	for _, k := range []int{40, 10, 30, 20, 50} {
		_, existed := d.insert(k, fmt.Sprint(k))
		assert.False(t, existed)
	}

	assert.Equal(t, []int{10, 20, 30, 40, 50}, d.Keys)
	assert.Equal(t, []string{"10", "20", "30", "40", "50"}, d.Values)
	assert.True(t, d.isLeaf())
	assert.False(t, d.isFull())
	assert.Equal(t, 7, d.capacity())
}

func TestNodeDataInsertReplaces(t *testing.T) {
	d := newNodeData[string, string](5)
	d.insert("a", "1")

	prev, existed := d.insert("a", "2")
	assert.True(t, existed)
	assert.Equal(t, "1", prev)
	assert.Equal(t, []string{"2"}, d.Values)
}

func TestNodeDataInsertIntoFullNodePanics(t *testing.T) {
	d := fullNodeData(3)

	assert.Panics(t, func() { d.insert(5, "x") })
	assert.NotPanics(t, func() { d.insert(10, "replaced") })
	assert.Equal(t, "replaced", d.Values[1])
}

func TestNodeDataInsertIfSpace(t *testing.T) {
	d := fullNodeData(5)
	keys := append([]int(nil), d.Keys...)

	_, _, err := d.insertIfSpace(15, "new")
	require.ErrorIs(t, err, errNeedsSplit)
	assert.Equal(t, keys, d.Keys, "failed insert must not mutate")

	prev, existed, err := d.insertIfSpace(20, "updated")
	require.NoError(t, err)
	assert.True(t, existed)
	assert.Equal(t, "v20", prev)

	d = newNodeData[int, string](5)
	_, existed, err = d.insertIfSpace(1, "one")
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestNodeDataSplitSizes(t *testing.T) {
	for _, capacity := range []int{3, 5, 7, 9, 33} {
		t.Run(fmt.Sprint(capacity), func(t *testing.T) {
			d := fullNodeData(capacity)

			key, value, sibling := d.split()

			assert.Equal(t, (capacity-1)/2, len(d.Keys))
			assert.Equal(t, (capacity-1)/2, len(sibling.Keys))
			assert.Equal(t, capacity-1, len(d.Keys)+len(sibling.Keys))
			assert.Equal(t, len(d.Keys), len(d.Values))
			assert.Equal(t, len(sibling.Keys), len(sibling.Values))
			assert.Equal(t, fmt.Sprintf("v%d", key), value)
			assert.Less(t, d.Keys[len(d.Keys)-1], key)
			assert.Greater(t, sibling.Keys[0], key)
			assert.Equal(t, capacity, sibling.capacity())
			assert.True(t, sibling.isLeaf())
		})
	}
}

func TestNodeDataSplitFive(t *testing.T) {
	d := fullNodeData(5)

	key, value, sibling := d.split()

	assert.Equal(t, 20, key)
	assert.Equal(t, "v20", value)
	assert.Equal(t, []int{0, 10}, d.Keys)
	assert.Equal(t, []int{30, 40}, sibling.Keys)
	assert.Equal(t, []string{"v30", "v40"}, sibling.Values)
}

func TestNodeDataSplitInternalMovesChildren(t *testing.T) {
	d := fullNodeData(5)
	d.Children = []NodeRef{"c0", "c1", "c2", "c3", "c4", "c5"}

	_, _, sibling := d.split()

	assert.Equal(t, []NodeRef{"c0", "c1", "c2"}, d.Children)
	assert.Equal(t, []NodeRef{"c3", "c4", "c5"}, sibling.Children)
	require.NoError(t, d.validate())
	require.NoError(t, sibling.validate())
}

func TestNodeDataSplitNotFullPanics(t *testing.T) {
	d := newNodeData[int, string](5)
	d.insert(1, "a")

	assert.Panics(t, func() { d.split() })
}

func TestNodeDataInsertSeparator(t *testing.T) {
	d := newNodeData[int, string](5)
	d.insert(50, "fifty")
	d.Children = []NodeRef{"left", "right"}

	d.insertSeparator(0, 20, "twenty", "mid")

	assert.Equal(t, []int{20, 50}, d.Keys)
	assert.Equal(t, []NodeRef{"left", "mid", "right"}, d.Children)
	require.NoError(t, d.validate())
}

func TestNodeDataValidate(t *testing.T) {
	tests := []struct {
		name string
		data NodeData[int, string]
	}{
		{"length mismatch", NodeData[int, string]{Keys: []int{1, 2}, Values: []string{"a"}, cap: 5}},
		{"over capacity", NodeData[int, string]{Keys: []int{1, 2, 3, 4}, Values: []string{"a", "b", "c", "d"}, cap: 3}},
		{"unordered", NodeData[int, string]{Keys: []int{2, 1}, Values: []string{"a", "b"}, cap: 5}},
		{"duplicate", NodeData[int, string]{Keys: []int{1, 1}, Values: []string{"a", "b"}, cap: 5}},
		{"children count", NodeData[int, string]{Keys: []int{1}, Values: []string{"a"}, Children: []NodeRef{"x"}, cap: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.data.validate())
		})
	}
}

func TestNodeDataTrimFrom(t *testing.T) {
	leaf := fullNodeData(5)
	assert.True(t, leaf.trimFrom(25))
	assert.Equal(t, []int{0, 10, 20}, leaf.Keys)
	assert.Equal(t, []string{"v0", "v10", "v20"}, leaf.Values)
	assert.False(t, leaf.trimFrom(25))

	internal := fullNodeData(5)
	internal.Children = []NodeRef{"a", "b", "c", "d", "e", "f"}
	assert.True(t, internal.trimFrom(20))
	assert.Equal(t, []int{0, 10}, internal.Keys)
	assert.Equal(t, []NodeRef{"a", "b", "c"}, internal.Children)
	require.NoError(t, internal.validate())
}
