package btree

/*
Leaf split: the upper half moves to a fresh sibling, which takes over the
old next pointer while the source starts pointing at the sibling — the
leaf chain stays intact through the split. The separator reported to the
parent is the sibling's first key, which stays in the sibling (leaf keys
are data, not routing copies).
*/

// splitLeaf splits a full leaf and returns the separator key and the new
// right sibling. The sibling is pinned; the caller unloads it.
func (t *BTree[K, V]) splitLeaf(n *Node[K, V]) (K, *Node[K, V], error) {
	var zero K

	num := n.pg.numElements()
	pivot := (n.keyCapacity() + 1) / 2
	moved := num - pivot

	sibling, err := t.createNode(NodeLeaf)
	if err != nil {
		return zero, nil, err
	}

	sibling.pg.moveKeys(0, n.pg, pivot, moved)
	sibling.pg.moveElements(0, n.pg, pivot, moved)
	sibling.pg.setNumElements(moved)
	sibling.pg.setNext(n.pg.next())

	n.pg.zeroKeys(pivot, moved)
	n.pg.zeroElements(pivot, moved)
	n.pg.setNumElements(pivot)
	n.pg.setNext(sibling.id())

	n.dirty = true
	sibling.dirty = true

	return sibling.pg.keyAt(0), sibling, nil
}
