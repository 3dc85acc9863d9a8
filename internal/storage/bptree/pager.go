package bptree

import (
	"encoding/binary"
	"fmt"
	"github.com/JoseEd0/tablefile/fileorg"
	"github.com/JoseEd0/tablefile/internal/storage"
	"os"
)

// NodeID - Identifies a node slot in the nodes file
type NodeID int32

// NilNode - The id of no node, it marks an empty tree root and the end of the leaf chain
const NilNode NodeID = -1

// headerLength - Is the length of the nodes file header, root id, next node id and record count
// of 4 bytes each
const headerLength int64 = 12

// pager - Owns the nodes file. It hands out node slots, reads and writes nodes at their fixed
// offsets and keeps the header fields cached. The header is written back on flush, close and
// structural resets, node slots are written as they change.
type pager struct {
	fileName    string
	file        *os.File
	keyLength   int64
	order       int64
	nodeLength  int64
	rootID      NodeID
	nextNodeID  NodeID
	recordCount int64
}

// newPager - Creates a new nodes file holding only a header and returns a pager over it
func newPager(fileName string, keyLength, order int64) (pgr *pager, err error) {
	pgr = preparePager(fileName, keyLength, order)

	pgr.file, err = storage.CreateStorageFile(fileName, 0)
	if err != nil {
		pgr = nil
		return
	}

	err = pgr.writeHeader()
	if err != nil {
		storage.CloseStorageFile(pgr.file)
		pgr = nil
	}

	return
}

// openPager - Opens an existing nodes file and restores the header. It fails with a
// fileorg.CorruptHeader error if the file is missing, the header fields are out of range or the
// file size doesn't add up to the header plus the allocated node slots.
func openPager(fileName string, keyLength, order int64) (pgr *pager, err error) {
	pgr = preparePager(fileName, keyLength, order)

	pgr.file, err = storage.OpenStorageFile(fileName, headerLength)
	if err != nil {
		pgr = nil
		return
	}

	buf, err := storage.GetBlock(pgr.file, 0, headerLength)
	if err != nil {
		err = fmt.Errorf("error while reading nodes file header: %s", err)
		storage.CloseStorageFile(pgr.file)
		pgr = nil
		return
	}

	pgr.rootID = NodeID(int32(binary.LittleEndian.Uint32(buf[:4])))
	pgr.nextNodeID = NodeID(int32(binary.LittleEndian.Uint32(buf[4:8])))
	pgr.recordCount = int64(int32(binary.LittleEndian.Uint32(buf[8:12])))

	stat, err := pgr.file.Stat()
	if err != nil {
		err = fmt.Errorf("error while getting nodes file stats: %s", err)
		storage.CloseStorageFile(pgr.file)
		pgr = nil
		return
	}

	if pgr.nextNodeID < 0 || pgr.rootID < NilNode || pgr.rootID >= pgr.nextNodeID ||
		pgr.recordCount < 0 ||
		stat.Size() != headerLength+int64(pgr.nextNodeID)*pgr.nodeLength {
		storage.CloseStorageFile(pgr.file)
		pgr = nil
		err = fileorg.CorruptHeader{}
	}

	return
}

// preparePager - Returns a pager with its derived node length set
func preparePager(fileName string, keyLength, order int64) (pgr *pager) {
	return &pager{
		fileName:   fileName,
		keyLength:  keyLength,
		order:      order,
		nodeLength: nodeHeaderLength + order*keyLength + (order+1)*4,
		rootID:     NilNode,
	}
}

// allocate - Hands out the next free node slot
func (P *pager) allocate() (id NodeID) {
	id = P.nextNodeID
	P.nextNodeID++

	return
}

// readNode - Reads the node in the given slot
func (P *pager) readNode(id NodeID) (n *node, err error) {
	buf, err := storage.GetBlock(P.file, P.nodeOffset(id), P.nodeLength)
	if err != nil {
		err = fmt.Errorf("error while reading node %d: %s", id, err)
		return
	}

	n, err = bytesToNode(buf, P.keyLength, P.order)
	if err != nil {
		err = fileorg.CorruptHeader{}
		return
	}

	n.id = id

	return
}

// writeNode - Writes a node to its slot
func (P *pager) writeNode(n *node) (err error) {
	err = storage.SetBlock(P.file, nodeToBytes(n, P.keyLength, P.order, P.nodeLength), P.nodeOffset(n.id))
	if err != nil {
		err = fmt.Errorf("error while writing node %d: %s", n.id, err)
	}

	return
}

// writeHeader - Writes the cached root id, next node id and record count to the file header
func (P *pager) writeHeader() (err error) {
	buf := make([]byte, headerLength)
	binary.LittleEndian.PutUint32(buf[:4], uint32(int32(P.rootID)))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(int32(P.nextNodeID)))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(int32(P.recordCount)))

	err = storage.SetBlock(P.file, buf, 0)
	if err != nil {
		err = fmt.Errorf("error while writing nodes file header: %s", err)
	}

	return
}

// clear - Truncates the nodes file back to an empty tree
func (P *pager) clear() (err error) {
	err = P.file.Truncate(headerLength)
	if err != nil {
		err = fmt.Errorf("error while truncating nodes file: %s", err)
		return
	}

	P.rootID = NilNode
	P.nextNodeID = 0
	P.recordCount = 0

	err = P.writeHeader()

	return
}

// sync - Syncs the nodes file
func (P *pager) sync() (err error) {
	err = P.file.Sync()
	if err != nil {
		err = fmt.Errorf("error while syncing nodes file: %s", err)
	}

	return
}

// nodeOffset - Returns the file offset of a node slot
func (P *pager) nodeOffset(id NodeID) int64 {
	return headerLength + int64(id)*P.nodeLength
}
