package btree

import (
	"github.com/pkg/errors"

	"PagedDB/types"
)

/*
Insert runs in two phases. First the root is checked: a full root is split
and a new internal root installed above the two halves, which is the only
way the tree gains height. Then a descend-and-insert pass walks down,
splitting any full child before stepping into it, so the final leaf insert
always finds room. Splitting ahead of the descent keeps the recursion
single-pass: no separator ever needs to bubble back up.
*/

// Insert stores value under key. Inserting an existing key replaces its
// value in place.
func (t *BTree[K, V]) Insert(key K, value V) error {
	root, err := t.loadNode(t.root)
	if err != nil {
		return err
	}

	if root.isFull() {
		newRoot, err := t.growRoot(root)
		if err != nil {
			_ = t.unloadNode(root)
			return err
		}
		root = newRoot
	}

	err = t.insertNonFull(root, key, value)
	if uerr := t.unloadNode(root); uerr != nil && err == nil {
		return uerr
	}
	return err
}

// growRoot splits the full root and installs a fresh internal node above
// the two halves. The old root is unloaded; the new root is returned
// pinned and becomes the tree's identity.
func (t *BTree[K, V]) growRoot(oldRoot *Node[K, V]) (*Node[K, V], error) {
	newRoot, err := t.createNode(NodeInternal)
	if err != nil {
		return nil, err
	}

	sep, sibling, err := t.splitNode(oldRoot)
	if err != nil {
		_ = t.unloadNode(newRoot)
		return nil, err
	}

	newRoot.pg.setChildAt(0, oldRoot.id())
	newRoot.pg.setKeyAt(0, sep)
	newRoot.pg.setChildAt(1, sibling.id())
	newRoot.pg.setNumElements(1)
	newRoot.dirty = true

	if err := t.unloadNode(sibling); err != nil {
		return nil, err
	}
	if err := t.unloadNode(oldRoot); err != nil {
		return nil, err
	}

	t.root = newRoot.id()
	return newRoot, nil
}

// insertNonFull inserts into the subtree rooted at n, which is guaranteed
// to have room for one more entry.
func (t *BTree[K, V]) insertNonFull(n *Node[K, V], key K, value V) error {
	if n.pg.typ() == NodeLeaf {
		i := nextLeaf(n, key)
		if i < n.pg.numElements() && n.pg.keyAt(i) == key {
			// Duplicate key: idempotent in-place update.
			n.pg.setValueAt(i, value)
			n.dirty = true
			return nil
		}
		shiftInsertLeaf(n, i, key, value)
		return nil
	}

	i := nextInternal(n, key)
	childExtent := n.pg.childAt(i)
	if childExtent == types.InvalidExtentID {
		return errors.Wrapf(types.ErrCorruptedPage, "internal node %d has no child at slot %d", n.id(), i)
	}

	child, err := t.loadNode(childExtent)
	if err != nil {
		return err
	}

	if child.isFull() {
		sep, sibling, err := t.splitNode(child)
		if err != nil {
			_ = t.unloadNode(child)
			return err
		}
		shiftInsertInternal(n, i, sep, sibling.id())

		// Descend into whichever half now owns the key. Equal keys go
		// right, matching the child-slot rule.
		if key >= sep {
			if err := t.unloadNode(child); err != nil {
				_ = t.unloadNode(sibling)
				return err
			}
			child = sibling
		} else {
			if err := t.unloadNode(sibling); err != nil {
				_ = t.unloadNode(child)
				return err
			}
		}
	}

	err = t.insertNonFull(child, key, value)
	if uerr := t.unloadNode(child); uerr != nil && err == nil {
		return uerr
	}
	return err
}

// shiftInsertLeaf opens slot i by shifting keys and values right and
// writes the new pair there.
func shiftInsertLeaf[K Key, V any](n *Node[K, V], i int32, key K, value V) {
	num := n.pg.numElements()
	n.pg.shiftKeysRight(i, num)
	n.pg.shiftElementsRight(i, num)
	n.pg.setKeyAt(i, key)
	n.pg.setValueAt(i, value)
	n.pg.setNumElements(num + 1)
	n.dirty = true
}

// shiftInsertInternal records a freshly split-off sibling in its parent:
// separator key at slot i, sibling child at slot i+1, everything from
// there shifted one right.
func shiftInsertInternal[K Key, V any](n *Node[K, V], i int32, sep K, sibling types.ExtentID) {
	num := n.pg.numElements()
	n.pg.shiftKeysRight(i, num)
	n.pg.shiftElementsRight(i+1, num+1)
	n.pg.setKeyAt(i, sep)
	n.pg.setChildAt(i+1, sibling)
	n.pg.setNumElements(num + 1)
	n.dirty = true
}
