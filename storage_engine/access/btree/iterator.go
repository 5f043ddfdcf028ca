package btree

import (
	"PagedDB/types"
)

// Iterator is a forward-only scan over every (key, value) pair in key
// order, walking the leaf chain from the leftmost leaf. It holds at most
// one pinned leaf at a time; Close releases it and is safe to call more
// than once. Mutating the tree while an iterator is open is undefined.
type Iterator[K Key, V any] struct {
	tree  *BTree[K, V]
	leaf  *Node[K, V]
	index int32
}

// Iterator returns an iterator positioned before the first pair. Use it as
//
//	it, err := tree.Iterator()
//	defer it.Close()
//	for it.Next() {
//	    _ = it.Key()
//	}
func (t *BTree[K, V]) Iterator() (*Iterator[K, V], error) {
	node, err := t.loadNode(t.root)
	if err != nil {
		return nil, err
	}

	// Descend along the leftmost edge, keeping only the current pin.
	for node.pg.typ() == NodeInternal {
		childExtent := node.pg.childAt(0)
		if childExtent == types.InvalidExtentID {
			if err := t.unloadNode(node); err != nil {
				return nil, err
			}
			return &Iterator[K, V]{tree: t, index: -1}, nil
		}
		child, err := t.loadNode(childExtent)
		if err != nil {
			_ = t.unloadNode(node)
			return nil, err
		}
		if err := t.unloadNode(node); err != nil {
			_ = t.unloadNode(child)
			return nil, err
		}
		node = child
	}

	return &Iterator[K, V]{tree: t, leaf: node, index: -1}, nil
}

// Next advances to the next pair, crossing leaf boundaries through the
// next pointers. It returns false when the scan is exhausted, at which
// point the last leaf has already been unpinned.
func (it *Iterator[K, V]) Next() bool {
	if it.leaf == nil {
		return false
	}

	it.index++
	for it.index >= it.leaf.pg.numElements() {
		nextExtent := it.leaf.pg.next()
		_ = it.tree.unloadNode(it.leaf)
		it.leaf = nil

		if nextExtent == types.InvalidExtentID {
			return false
		}
		next, err := it.tree.loadNode(nextExtent)
		if err != nil {
			return false
		}
		it.leaf = next
		it.index = 0
	}
	return true
}

// Key returns the key at the current position. Only valid after a Next
// that returned true.
func (it *Iterator[K, V]) Key() K {
	return it.leaf.pg.keyAt(it.index)
}

// Value returns the value at the current position. Only valid after a
// Next that returned true.
func (it *Iterator[K, V]) Value() V {
	return it.leaf.pg.valueAt(it.index)
}

// Close releases the pinned leaf, if any. Required when abandoning the
// scan before Next returns false.
func (it *Iterator[K, V]) Close() {
	if it.leaf != nil {
		_ = it.tree.unloadNode(it.leaf)
		it.leaf = nil
	}
}
