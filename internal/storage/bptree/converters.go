package bptree

import (
	"encoding/binary"
	"fmt"
)

// nodeHeaderLength - Is the length of a node slot header, the node kind of 1 byte followed by the
// key count and the next leaf link of 4 bytes each
const nodeHeaderLength int64 = 9

// node - One tree node held in memory. An internal node with n keys has n+1 children, its key i
// holds the greatest key of the subtree under child i. A leaf node with n keys has n row positions
// and links to the leaf on its right, NilNode on the rightmost leaf.
type node struct {
	id        NodeID
	isLeaf    bool
	next      NodeID
	keys      [][]byte
	children  []NodeID
	positions []int32
}

// bytesToNode - Converts a byte slice of node length to a node struct
//   - buf is the byte slice to convert
//   - keyLength is the length of an encoded key
//   - order is the maximum number of keys a node holds
//
// It returns:
//   - n which is a pointer to the converted node
//   - err which is an error if the stored key count exceeds the order
func bytesToNode(buf []byte, keyLength, order int64) (n *node, err error) {
	count := int64(int32(binary.LittleEndian.Uint32(buf[1:5])))
	if count < 0 || count > order {
		err = fmt.Errorf("node key count %d outside order %d", count, order)
		return
	}

	n = &node{
		isLeaf: buf[0] == 0,
		next:   NodeID(int32(binary.LittleEndian.Uint32(buf[5:9]))),
		keys:   make([][]byte, count),
	}

	for i := int64(0); i < count; i++ {
		key := make([]byte, keyLength)
		_ = copy(key, buf[nodeHeaderLength+i*keyLength:nodeHeaderLength+(i+1)*keyLength])
		n.keys[i] = key
	}

	valueArea := nodeHeaderLength + order*keyLength
	if n.isLeaf {
		n.positions = make([]int32, count)
		for i := int64(0); i < count; i++ {
			n.positions[i] = int32(binary.LittleEndian.Uint32(buf[valueArea+i*4 : valueArea+(i+1)*4]))
		}
	} else {
		n.children = make([]NodeID, count+1)
		for i := int64(0); i <= count; i++ {
			n.children[i] = NodeID(int32(binary.LittleEndian.Uint32(buf[valueArea+i*4 : valueArea+(i+1)*4])))
		}
	}

	return
}

// nodeToBytes - Converts a node struct to a byte slice of node length, unused key and value slots
// are zero filled
//   - n is the node to convert
//   - keyLength is the length of an encoded key
//   - order is the maximum number of keys a node holds
//   - nodeLength is the fixed node slot length
//
// It returns:
//   - buf which is the resulting byte slice
func nodeToBytes(n *node, keyLength, order, nodeLength int64) (buf []byte) {
	buf = make([]byte, nodeLength)
	if !n.isLeaf {
		buf[0] = 1
	}
	binary.LittleEndian.PutUint32(buf[1:5], uint32(int32(len(n.keys))))
	binary.LittleEndian.PutUint32(buf[5:9], uint32(int32(n.next)))

	for i, key := range n.keys {
		_ = copy(buf[nodeHeaderLength+int64(i)*keyLength:nodeHeaderLength+int64(i+1)*keyLength], key)
	}

	valueArea := nodeHeaderLength + order*keyLength
	if n.isLeaf {
		for i, position := range n.positions {
			binary.LittleEndian.PutUint32(buf[valueArea+int64(i)*4:valueArea+int64(i+1)*4], uint32(position))
		}
	} else {
		for i, child := range n.children {
			binary.LittleEndian.PutUint32(buf[valueArea+int64(i)*4:valueArea+int64(i+1)*4], uint32(int32(child)))
		}
	}

	return
}
