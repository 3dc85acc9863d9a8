package bptree

import (
	"fmt"
	"github.com/JoseEd0/tablefile/internal/conf"
	"github.com/JoseEd0/tablefile/internal/storage"
	"github.com/JoseEd0/tablefile/internal/storage/heap"
	"github.com/JoseEd0/tablefile/schema"
)

// FilesConf - Is a struct to be passed in the call to NewFiles and contains configuration that affects
// file processing.
//   - Name is the name to base the nodes and data file names on
//   - Schema describes the fixed width record layout including the primary key field
//   - Order is the maximum number of keys a tree node holds, zero selects the default
type FilesConf struct {
	Name   string
	Schema *schema.Schema
	Order  int64
}

// Files - Represents an implementation of file support for the B+ tree organization.
// The nodes file holds fixed size node slots handed out by a pager, leaves keyed ascending with row
// positions into a heap data file and chained left to right, internal nodes holding separators
// where separator i is the greatest key under child i. Keys are unique, inserting an existing key
// fails. Removal takes the key out of its leaf without rebalancing the tree.
type Files struct {
	nodesFileName string
	sch           *schema.Schema
	order         int64
	pgr           *pager
	rows          *heap.Files
}

// NewFiles - Returns a pointer to a new instance of B+ tree file implementation.
// It always creates new files, the tree starts out empty with no root.
//   - filesConf is a FilesConf struct providing configuration parameters affecting files creation and processing
//
// It returns:
//   - treeFiles which is a pointer to the created instance
//   - err which is a standard Go type of error
func NewFiles(filesConf FilesConf) (treeFiles *Files, err error) {
	treeFiles, err = prepareFiles(filesConf)
	if err != nil {
		return
	}

	treeFiles.rows, err = heap.NewFiles(heap.FilesConf{FileName: storage.GetDataFileName(filesConf.Name), Schema: filesConf.Schema})
	if err != nil {
		treeFiles = nil
		return
	}

	treeFiles.pgr, err = newPager(treeFiles.nodesFileName, int64(filesConf.Schema.KeyLength()), treeFiles.order)
	if err != nil {
		treeFiles.rows.CloseFiles()
		treeFiles = nil
	}

	return
}

// NewFilesFromExistingFiles - Returns a pointer to a new instance of B+ tree file implementation
// given existing files. The order has to match the one the files were created with.
//   - filesConf is a FilesConf struct providing configuration parameters affecting file processing
//
// It returns:
//   - treeFiles which is a pointer to the created instance
//   - err which is of type fileorg.CorruptHeader if a backing file is missing or inconsistent
func NewFilesFromExistingFiles(filesConf FilesConf) (treeFiles *Files, err error) {
	treeFiles, err = prepareFiles(filesConf)
	if err != nil {
		return
	}

	treeFiles.pgr, err = openPager(treeFiles.nodesFileName, int64(filesConf.Schema.KeyLength()), treeFiles.order)
	if err != nil {
		treeFiles = nil
		return
	}

	treeFiles.rows, err = heap.NewFilesFromExistingFiles(heap.FilesConf{FileName: storage.GetDataFileName(filesConf.Name), Schema: filesConf.Schema})
	if err != nil {
		storage.CloseStorageFile(treeFiles.pgr.file)
		treeFiles = nil
	}

	return
}

// Insert - Inserts a new record.
// The row goes into the heap data file and its key descends to the owning leaf. A leaf over the
// order splits around its middle and promotes the greatest key of its left half; splits propagate
// upward and a promoted key reaching past the root grows the tree by a new root.
//   - record is the record to insert, it has to conform to the schema given when creating the Files instance
//
// It returns:
//   - position which is the position the row occupies in the heap data file
//   - err is of type fileorg.DuplicateKey if the key is already present, fileorg.SchemaMismatch if
//     the record doesn't fit the schema, or a standard error
func (F *Files) Insert(record schema.Record) (position int64, err error) {
	key, err := F.sch.Key(record)
	if err != nil {
		return
	}

	if F.pgr.rootID == NilNode {
		position, err = F.rows.Insert(record)
		if err != nil {
			return
		}

		root := &node{id: F.pgr.allocate(), isLeaf: true, next: NilNode, keys: [][]byte{key}, positions: []int32{int32(position)}}
		err = F.pgr.writeNode(root)
		if err != nil {
			return
		}

		F.pgr.rootID = root.id
		F.pgr.recordCount++
		return
	}

	var promoKey []byte
	var promoChild NodeID
	var promoted bool
	position, promoKey, promoChild, promoted, err = F.insertInto(F.pgr.rootID, key, record)
	if err != nil {
		return
	}

	if promoted {
		root := &node{
			id:       F.pgr.allocate(),
			next:     NilNode,
			keys:     [][]byte{promoKey},
			children: []NodeID{F.pgr.rootID, promoChild},
		}
		err = F.pgr.writeNode(root)
		if err != nil {
			return
		}
		F.pgr.rootID = root.id
	}

	F.pgr.recordCount++

	return
}

// Search - Returns the record carrying the given key, if any.
// Keys are unique in the tree, there is never more than one match.
//   - key is the encoded key to search for
//
// It returns:
//   - records holds the matching record, it is empty if no record matched
//   - err is a standard error if something went wrong
func (F *Files) Search(key []byte) (records []schema.Record, err error) {
	records = make([]schema.Record, 0, 1)
	if F.pgr.rootID == NilNode {
		return
	}

	leaf, err := F.findLeaf(key)
	if err != nil {
		return
	}

	var record schema.Record
	for i, leafKey := range leaf.keys {
		if F.sch.CompareKeys(leafKey, key) == 0 {
			record, err = F.rows.Read(int64(leaf.positions[i]))
			if err != nil {
				return
			}
			records = append(records, record)
			return
		}
	}

	return
}

// RangeSearch - Returns all records with keys within the given bounds, both inclusive.
// The owning leaf of the lower bound is found by descent and the leaf chain is walked rightward
// until a key passes the upper bound, hence the result comes out sorted by key.
//   - begin is the encoded lower bound key
//   - end is the encoded upper bound key
//
// It returns:
//   - records holds the matches sorted ascending by key, it is empty if no record matched
//   - err is a standard error if something went wrong
func (F *Files) RangeSearch(begin, end []byte) (records []schema.Record, err error) {
	records = make([]schema.Record, 0)
	if F.pgr.rootID == NilNode {
		return
	}

	leaf, err := F.findLeaf(begin)
	if err != nil {
		return
	}

	var record schema.Record
	for {
		for i, leafKey := range leaf.keys {
			if F.sch.CompareKeys(leafKey, end) > 0 {
				return
			}
			if F.sch.CompareKeys(leafKey, begin) >= 0 {
				record, err = F.rows.Read(int64(leaf.positions[i]))
				if err != nil {
					return
				}
				records = append(records, record)
			}
		}

		if leaf.next == NilNode {
			return
		}
		leaf, err = F.pgr.readNode(leaf.next)
		if err != nil {
			return
		}
	}
}

// Remove - Removes the record carrying the given key, if any.
// The key leaves its leaf but the tree is not rebalanced, an underfull or even empty leaf stays in
// place and keeps answering searches. The row itself stays in the heap data file unreferenced.
//   - key is the encoded key to remove
//
// It returns:
//   - removed is 1 if a record was removed, otherwise 0
//   - err is a standard error if something went wrong
func (F *Files) Remove(key []byte) (removed int64, err error) {
	if F.pgr.rootID == NilNode {
		return
	}

	leaf, err := F.findLeaf(key)
	if err != nil {
		return
	}

	for i, leafKey := range leaf.keys {
		if F.sch.CompareKeys(leafKey, key) == 0 {
			leaf.keys = append(leaf.keys[:i], leaf.keys[i+1:]...)
			leaf.positions = append(leaf.positions[:i], leaf.positions[i+1:]...)

			err = F.pgr.writeNode(leaf)
			if err != nil {
				return
			}

			F.pgr.recordCount--
			removed = 1
			return
		}
	}

	return
}

// ScanAll - Returns all records sorted ascending by key by walking the leaf chain from the
// leftmost leaf.
//
// It returns:
//   - records holds every record sorted ascending by key
//   - err is a standard error if something went wrong
func (F *Files) ScanAll() (records []schema.Record, err error) {
	records = make([]schema.Record, 0)
	if F.pgr.rootID == NilNode {
		return
	}

	n, err := F.pgr.readNode(F.pgr.rootID)
	if err != nil {
		return
	}
	for !n.isLeaf {
		n, err = F.pgr.readNode(n.children[0])
		if err != nil {
			return
		}
	}

	var record schema.Record
	for {
		for _, position := range n.positions {
			record, err = F.rows.Read(int64(position))
			if err != nil {
				return
			}
			records = append(records, record)
		}

		if n.next == NilNode {
			return
		}
		n, err = F.pgr.readNode(n.next)
		if err != nil {
			return
		}
	}
}

// Count - Returns the number of records from the cached header count.
//
// It returns:
//   - count is the number of records
//   - err is a standard error if something went wrong
func (F *Files) Count() (count int64, err error) {
	count = F.pgr.recordCount
	return
}

// Load - Bulk inserts records one by one. A duplicate key stops the load, records inserted before
// it remain in the tree.
//   - records are the records to insert
//
// It returns:
//   - err is of type fileorg.DuplicateKey or fileorg.SchemaMismatch on a bad record, or a standard error
func (F *Files) Load(records []schema.Record) (err error) {
	for _, record := range records {
		_, err = F.Insert(record)
		if err != nil {
			return
		}
	}

	err = F.Flush()

	return
}

// Clear - Removes all records by truncating the nodes file back to an empty tree and clearing the
// heap data file.
//
// It returns:
//   - err is a standard error if something went wrong
func (F *Files) Clear() (err error) {
	err = F.pgr.clear()
	if err != nil {
		return
	}

	err = F.rows.Clear()

	return
}

// Flush - Writes the cached nodes file header and syncs both backing files.
//
// It returns:
//   - err is a standard error if something went wrong
func (F *Files) Flush() (err error) {
	err = F.pgr.writeHeader()
	if err != nil {
		return
	}

	err = F.pgr.sync()
	if err != nil {
		return
	}

	err = F.rows.Flush()

	return
}

// CloseFiles - Writes the cached header and closes the nodes and data files
func (F *Files) CloseFiles() {
	if F.pgr != nil && F.pgr.file != nil {
		_ = F.pgr.writeHeader()
		storage.CloseStorageFile(F.pgr.file)
	}

	F.rows.CloseFiles()
}

// RemoveFiles - Removes the nodes and data files, make sure to close them first before calling
// this function
//
// It returns:
//   - err is a standard Go type of error
func (F *Files) RemoveFiles() (err error) {
	err = storage.RemoveStorageFile(F.nodesFileName)
	if err != nil {
		return
	}

	err = F.rows.RemoveFiles()

	return
}

// prepareFiles - Validates the configuration and returns an instance with the order settled
func prepareFiles(filesConf FilesConf) (treeFiles *Files, err error) {
	if filesConf.Schema == nil {
		err = fmt.Errorf("a schema must be given when creating b+ tree files")
		return
	}
	if filesConf.Name == "" {
		err = fmt.Errorf("a name must be given when creating b+ tree files")
		return
	}
	if filesConf.Order < 0 {
		err = fmt.Errorf("tree order must not be negative")
		return
	}

	order := filesConf.Order
	if order == 0 {
		order = conf.DefaultOrder
	}
	if order < conf.MinOrder {
		err = fmt.Errorf("tree order must be at least %d", conf.MinOrder)
		return
	}

	treeFiles = &Files{
		nodesFileName: storage.GetNodesFileName(filesConf.Name),
		sch:           filesConf.Schema,
		order:         order,
	}

	return
}
