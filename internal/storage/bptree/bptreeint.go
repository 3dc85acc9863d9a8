package bptree

import (
	"github.com/JoseEd0/tablefile/fileorg"
	"github.com/JoseEd0/tablefile/schema"
)

// findLeaf - Descends from the root to the leaf that owns the given key. At every internal node
// the descent takes the child of the first separator on or after the key, or the last child when
// the key lies beyond every separator.
func (F *Files) findLeaf(key []byte) (leaf *node, err error) {
	leaf, err = F.pgr.readNode(F.pgr.rootID)
	if err != nil {
		return
	}

	for !leaf.isLeaf {
		leaf, err = F.pgr.readNode(leaf.children[F.keyIndex(leaf, key)])
		if err != nil {
			return
		}
	}

	return
}

// keyIndex - Returns the index of the first key in the node on or after the given key, or the key
// count when the key lies beyond every key in the node. In a leaf that is the insertion point, in
// an internal node the index of the descent child.
func (F *Files) keyIndex(n *node, key []byte) (index int) {
	index = len(n.keys)
	for i, nodeKey := range n.keys {
		if F.sch.CompareKeys(nodeKey, key) >= 0 {
			index = i
			break
		}
	}

	return
}

// insertInto - Recursively inserts the key and record in the subtree under the given node.
// The row is appended to the heap data file only once the owning leaf has cleared the duplicate
// check, so a rejected insert leaves no stray row behind. A node growing past the order splits and
// hands its promoted separator and new right sibling up to the caller.
func (F *Files) insertInto(nodeID NodeID, key []byte, record schema.Record) (position int64, promoKey []byte, promoChild NodeID, promoted bool, err error) {
	promoChild = NilNode

	n, err := F.pgr.readNode(nodeID)
	if err != nil {
		return
	}

	if n.isLeaf {
		at := F.keyIndex(n, key)
		if at < len(n.keys) && F.sch.CompareKeys(n.keys[at], key) == 0 {
			err = fileorg.DuplicateKey{}
			return
		}

		position, err = F.rows.Insert(record)
		if err != nil {
			return
		}

		n.keys = insertKey(n.keys, at, key)
		n.positions = insertPosition(n.positions, at, int32(position))

		if int64(len(n.keys)) <= F.order {
			err = F.pgr.writeNode(n)
			return
		}

		promoKey, promoChild, err = F.splitLeaf(n)
		if err != nil {
			return
		}
		promoted = true
		return
	}

	childIndex := F.keyIndex(n, key)
	position, promoKey, promoChild, promoted, err = F.insertInto(n.children[childIndex], key, record)
	if err != nil || !promoted {
		return
	}

	n.keys = insertKey(n.keys, childIndex, promoKey)
	n.children = insertChild(n.children, childIndex+1, promoChild)
	promoKey, promoChild, promoted = nil, NilNode, false

	if int64(len(n.keys)) <= F.order {
		err = F.pgr.writeNode(n)
		return
	}

	promoKey, promoChild, err = F.splitInternal(n)
	if err != nil {
		return
	}
	promoted = true

	return
}

// splitLeaf - Splits an overfull leaf around its middle, the left half keeping one key more when
// the count is odd. The new right sibling takes over the old chain link and the left leaf links to
// it, the promoted separator is the greatest key left in the left leaf.
func (F *Files) splitLeaf(n *node) (promoKey []byte, promoChild NodeID, err error) {
	mid := (len(n.keys) + 1) / 2

	right := &node{
		id:        F.pgr.allocate(),
		isLeaf:    true,
		next:      n.next,
		keys:      append([][]byte{}, n.keys[mid:]...),
		positions: append([]int32{}, n.positions[mid:]...),
	}

	n.keys = n.keys[:mid]
	n.positions = n.positions[:mid]
	n.next = right.id

	err = F.pgr.writeNode(right)
	if err != nil {
		return
	}
	err = F.pgr.writeNode(n)
	if err != nil {
		return
	}

	promoKey = n.keys[mid-1]
	promoChild = right.id

	return
}

// splitInternal - Splits an overfull internal node around its middle key, which moves up to the
// caller rather than staying in either half. The left half keeps the children up to and including
// the one under the promoted key, the new right sibling takes the rest.
func (F *Files) splitInternal(n *node) (promoKey []byte, promoChild NodeID, err error) {
	mid := len(n.keys) / 2
	promoKey = n.keys[mid]

	right := &node{
		id:       F.pgr.allocate(),
		next:     NilNode,
		keys:     append([][]byte{}, n.keys[mid+1:]...),
		children: append([]NodeID{}, n.children[mid+1:]...),
	}

	n.keys = n.keys[:mid]
	n.children = n.children[:mid+1]

	err = F.pgr.writeNode(right)
	if err != nil {
		return
	}
	err = F.pgr.writeNode(n)
	if err != nil {
		return
	}

	promoChild = right.id

	return
}

// insertKey - Inserts the key at the given index, shifting the tail right
func insertKey(keys [][]byte, at int, key []byte) [][]byte {
	keys = append(keys, nil)
	_ = copy(keys[at+1:], keys[at:])
	keys[at] = key

	return keys
}

// insertPosition - Inserts the row position at the given index, shifting the tail right
func insertPosition(positions []int32, at int, position int32) []int32 {
	positions = append(positions, 0)
	_ = copy(positions[at+1:], positions[at:])
	positions[at] = position

	return positions
}

// insertChild - Inserts the child node id at the given index, shifting the tail right
func insertChild(children []NodeID, at int, child NodeID) []NodeID {
	children = append(children, NilNode)
	_ = copy(children[at+1:], children[at:])
	children[at] = child

	return children
}
