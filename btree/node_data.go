package btree

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/cockroachdb/errors"
)

func newNodeData[K cmp.Ordered, V any](capacity int) *NodeData[K, V] {
	return &NodeData[K, V]{
		Keys:   make([]K, 0, capacity),
		Values: make([]V, 0, capacity),
		cap:    capacity,
	}
}

func (d *NodeData[K, V]) isLeaf() bool { return d.Children == nil }

func (d *NodeData[K, V]) isFull() bool { return len(d.Keys) >= d.cap }

func (d *NodeData[K, V]) capacity() int { return d.cap }

// search returns the position of key, or the position it would be inserted
// at when absent. For an internal node that position is also the index of
// the child covering key.
func (d *NodeData[K, V]) search(key K) (int, bool) {
	return slices.BinarySearch(d.Keys, key)
}

// insert stores key, replacing and returning any previous value. Inserting a
// new key into a full node panics; callers check isFull first.
func (d *NodeData[K, V]) insert(key K, value V) (V, bool) {
	idx, found := d.search(key)
	if found {
		prev := d.Values[idx]
		d.Values[idx] = value
		return prev, true
	}
	if d.isFull() {
		panic(fmt.Sprintf("btree: insert into full node (capacity %d)", d.cap))
	}
	d.Keys = slices.Insert(d.Keys, idx, key)
	d.Values = slices.Insert(d.Values, idx, value)
	var zero V
	return zero, false
}

// insertIfSpace is insert without the panic: a new key that does not fit
// yields errNeedsSplit and leaves the node untouched.
func (d *NodeData[K, V]) insertIfSpace(key K, value V) (V, bool, error) {
	if _, found := d.search(key); !found && d.isFull() {
		var zero V
		return zero, false, errNeedsSplit
	}
	prev, existed := d.insert(key, value)
	return prev, existed, nil
}

// insertSeparator places a key promoted from children[idx] at idx, with the
// split-off sibling as the child to its right.
func (d *NodeData[K, V]) insertSeparator(idx int, key K, value V, right NodeRef) {
	if d.isLeaf() || d.isFull() {
		panic("btree: separator insert into leaf or full node")
	}
	d.Keys = slices.Insert(d.Keys, idx, key)
	d.Values = slices.Insert(d.Values, idx, value)
	d.Children = slices.Insert(d.Children, idx+1, right)
}

// split moves everything from capacity/2+1 onward into a new sibling and
// removes the entry just before that point, returning it for the parent.
// Both halves end up with (capacity-1)/2 keys.
func (d *NodeData[K, V]) split() (K, V, *NodeData[K, V]) {
	if !d.isFull() {
		panic("btree: split of a node that is not full")
	}
	at := d.cap/2 + 1

	sibling := newNodeData[K, V](d.cap)
	sibling.Keys = append(sibling.Keys, d.Keys[at:]...)
	sibling.Values = append(sibling.Values, d.Values[at:]...)
	if !d.isLeaf() {
		sibling.Children = make([]NodeRef, 0, d.cap+1)
		sibling.Children = append(sibling.Children, d.Children[at:]...)
		clear(d.Children[at:])
		d.Children = d.Children[:at]
	}

	key, value := d.Keys[at-1], d.Values[at-1]
	clear(d.Keys[at-1:])
	clear(d.Values[at-1:])
	d.Keys = d.Keys[:at-1]
	d.Values = d.Values[:at-1]
	return key, value, sibling
}

// trimFrom drops every key not below bound, along with the children to the
// right of the last kept key. It reports whether anything was dropped.
func (d *NodeData[K, V]) trimFrom(bound K) bool {
	cut, _ := d.search(bound)
	if cut == len(d.Keys) {
		return false
	}
	clear(d.Keys[cut:])
	clear(d.Values[cut:])
	d.Keys = d.Keys[:cut]
	d.Values = d.Values[:cut]
	if !d.isLeaf() {
		clear(d.Children[cut+1:])
		d.Children = d.Children[:cut+1]
	}
	return true
}

func (d *NodeData[K, V]) validate() error {
	if len(d.Keys) != len(d.Values) {
		return errors.Newf("%d keys but %d values", len(d.Keys), len(d.Values))
	}
	if len(d.Keys) > d.cap {
		return errors.Newf("%d keys exceed capacity %d", len(d.Keys), d.cap)
	}
	if d.Children != nil && len(d.Children) != len(d.Keys)+1 {
		return errors.Newf("%d children for %d keys", len(d.Children), len(d.Keys))
	}
	for i := 1; i < len(d.Keys); i++ {
		if cmp.Compare(d.Keys[i-1], d.Keys[i]) >= 0 {
			return errors.Newf("keys out of order at index %d", i)
		}
	}
	return nil
}
