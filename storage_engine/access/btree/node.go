package btree

import (
	"github.com/pkg/errors"

	"PagedDB/types"
)

/*
Node lifecycle against the buffer pool.

createNode allocates a fresh extent (pinned, zeroed, pin count 1) and
formats it. loadNode pins an existing extent and validates its header
against the instantiated types. unloadNode propagates the dirty flag and
unpins. destroyNode additionally releases the extent for reuse.

Every path through the tree pairs each load/create with exactly one
unload/destroy, including error paths — a pinned frame with no live Node
is a leak the pool cannot recover from.
*/

// createNode allocates and formats a new node of the given type. The
// returned node is pinned with pin count 1 and already marked dirty.
func (t *BTree[K, V]) createNode(typ NodeType) (*Node[K, V], error) {
	handler, err := t.pool.Alloc()
	if err != nil {
		return nil, err
	}

	n := &Node[K, V]{
		handler: handler,
		pg:      nodePage[K, V]{buf: handler.Buffer},
		dirty:   true,
	}
	if err := n.pg.format(typ, t.pool.GetPageSize()); err != nil {
		_ = t.pool.Unpin(handler.ExtentID)
		_ = t.pool.Release(handler.ExtentID)
		return nil, err
	}
	return n, nil
}

// loadNode pins an existing node page and validates that its stored key
// and element sizes match the instantiated types. A mismatch unpins and
// reports ErrCorruptedPage.
func (t *BTree[K, V]) loadNode(extent types.ExtentID) (*Node[K, V], error) {
	if extent == types.InvalidExtentID {
		return nil, errors.Wrap(types.ErrCorruptedPage, "load invalid extent")
	}

	handler, err := t.pool.Pin(extent)
	if err != nil {
		return nil, err
	}

	n := &Node[K, V]{
		handler: handler,
		pg:      nodePage[K, V]{buf: handler.Buffer},
	}
	if err := n.pg.validate(t.pool.GetPageSize()); err != nil {
		_ = t.pool.Unpin(extent)
		return nil, errors.Wrapf(types.ErrCorruptedPage, "extent %d: %v", extent, err)
	}
	return n, nil
}

// unloadNode propagates the node's dirty flag to the pool and unpins its
// page. The node must not be used afterwards.
func (t *BTree[K, V]) unloadNode(n *Node[K, V]) error {
	if n.dirty {
		if err := t.pool.SetPageDirty(n.id()); err != nil {
			return err
		}
		n.dirty = false
	}
	err := t.pool.Unpin(n.id())
	n.pg.buf = nil
	return err
}

// destroyNode unpins the node's page and releases its extent for reuse.
func (t *BTree[K, V]) destroyNode(n *Node[K, V]) error {
	extent := n.id()
	if err := t.pool.Unpin(extent); err != nil {
		return err
	}
	n.pg.buf = nil
	return t.pool.Release(extent)
}

// ── Capacity helpers ──────────────────────────────────────────────────────

// keyCapacity is the number of keys a node can hold. An internal node keeps
// numElements+1 children in its element array, so its key capacity is one
// below maxElements.
func (n *Node[K, V]) keyCapacity() int32 {
	if n.pg.typ() == NodeInternal {
		return n.pg.maxElements() - 1
	}
	return n.pg.maxElements()
}

func (n *Node[K, V]) isFull() bool {
	return n.pg.numElements() == n.keyCapacity()
}

// isUnderfull reports whether the node dropped below half occupancy and
// must be merged (or refilled) by its parent. Root nodes are exempt; the
// tree wrapper handles root shrinking.
func (n *Node[K, V]) isUnderfull() bool {
	return n.pg.numElements() < (n.keyCapacity()+1)/2
}
