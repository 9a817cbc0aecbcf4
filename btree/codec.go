package btree

import (
	"cmp"

	"github.com/vmihailenco/msgpack/v5"
)

// Node files hold a single MessagePack map with the fields keys, values and
// children. A nil children field marks a leaf. The record carries no version
// tag.

func encodeNodeData[K cmp.Ordered, V any](d *NodeData[K, V]) ([]byte, error) {
	return msgpack.Marshal(d)
}

func decodeNodeData[K cmp.Ordered, V any](b []byte, capacity int) (*NodeData[K, V], error) {
	d := &NodeData[K, V]{cap: capacity}
	if err := msgpack.Unmarshal(b, d); err != nil {
		return nil, err
	}
	if d.Keys == nil {
		d.Keys = make([]K, 0, capacity)
	}
	if d.Values == nil {
		d.Values = make([]V, 0, capacity)
	}
	if err := d.validate(); err != nil {
		return nil, err
	}
	return d, nil
}
