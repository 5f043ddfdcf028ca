// Structure of the B+ tree
/*
Tree (identified by the extent id of its root page)
 ├── Internal node pages (separator keys + child extent ids)
 │      └── child internal nodes ...
 │             └── leaf node pages (keys + values + next pointer)

- keys: sorted ascending, fixed-size scalars
- internal nodes: populated children == numElements+1
- leaf nodes: populated values == numElements
- leaves linked through `next` for forward range scans
- every node occupies exactly one extent obtained through the buffer pool

A node exists in memory only while its backing frame is pinned: loading
pins, unloading unpins, edits mark the page dirty so the pool writes it
back. The tree itself holds no page state between operations — just the
root id.
*/
package btree

import (
	"PagedDB/storage_engine/bufferpool"
	"PagedDB/storage_engine/page"
	"PagedDB/types"
)

// NodeType discriminates the two page shapes sharing the header prefix.
type NodeType uint8

const (
	NodeInternal NodeType = iota + 1
	NodeLeaf
)

// Key is the set of key types a tree can be instantiated with: fixed-size
// totally-ordered scalars. Their size is known at instantiation time, which
// the page layout arithmetic depends on.
type Key interface {
	~int8 | ~int16 | ~int32 | ~int64 |
		~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Node is the in-memory view of one tree page. It is valid only while the
// backing frame stays pinned; unloadNode and destroyNode end its life.
type Node[K Key, V any] struct {
	handler page.BufferHandler
	pg      nodePage[K, V]
	dirty   bool
}

func (n *Node[K, V]) id() types.ExtentID {
	return n.handler.ExtentID
}

// BTree is the handle exposed upward. Mutations may replace the root id as
// the tree grows or shrinks; persist Root() externally to reload the tree
// later.
type BTree[K Key, V any] struct {
	pool *bufferpool.BufferPool
	root types.ExtentID
}
