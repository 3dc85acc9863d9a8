package seqfile

import (
	"fmt"
	"github.com/JoseEd0/tablefile/fileorg"
	"github.com/JoseEd0/tablefile/internal/conf"
	"github.com/JoseEd0/tablefile/internal/storage"
	"github.com/JoseEd0/tablefile/internal/storage/heap"
	"github.com/JoseEd0/tablefile/schema"
	"os"
)

// linkKind - Discriminates the three states a Link can take
type linkKind int8

const (
	linkEnd linkKind = iota
	linkTombstone
	linkEntry
)

// Link - Tagged reference to the successor of an index entry in the threaded key order.
// A link is either End terminating the chain, Tombstone marking the owning entry as logically
// deleted, or a reference to the next entry by its index in the index file. Keeping the three
// states apart by tag means a valid entry index can never collide with a sentinel.
type Link struct {
	kind  linkKind
	index int32
}

// EndLink - Returns a Link that terminates the chain
func EndLink() (link Link) {
	link = Link{kind: linkEnd}
	return
}

// TombstoneLink - Returns a Link that marks its owning entry as logically deleted
func TombstoneLink() (link Link) {
	link = Link{kind: linkTombstone}
	return
}

// EntryLink - Returns a Link referencing the entry at the given index
func EntryLink(index int32) (link Link) {
	link = Link{kind: linkEntry, index: index}
	return
}

// IsEnd - Reports whether the link terminates the chain
func (L Link) IsEnd() bool {
	return L.kind == linkEnd
}

// IsTombstone - Reports whether the owning entry is logically deleted
func (L Link) IsTombstone() bool {
	return L.kind == linkTombstone
}

// IsEntry - Reports whether the link references another entry
func (L Link) IsEntry() bool {
	return L.kind == linkEntry
}

// Index - Returns the index of the referenced entry, only meaningful when IsEntry reports true
func (L Link) Index() int32 {
	return L.index
}

// Entry - One entry in the sequential file index.
// The key is kept in its encoded fixed width form, HeapPosition addresses the row in the data
// heap file and Next threads the entry into ascending key order.
type Entry struct {
	Key          []byte
	HeapPosition int32
	Next         Link
}

// FilesConf - Is a struct to be passed in the call to NewFiles and contains configuration that affects
// file processing.
//   - Name is the name to base index and data file names on
//   - Schema describes the fixed width record layout including the primary key field
//   - MaxAuxSize is the auxiliary area threshold that triggers a rebuild of the primary area,
//     zero selects an adaptive threshold that follows the size of the file
type FilesConf struct {
	Name       string
	Schema     *schema.Schema
	MaxAuxSize int64
}

// Files - Represents an implementation of file support for the Sequential File organization.
// It uses two files, one holds the index with a sorted primary area and an append only auxiliary
// area threaded into key order via per entry links, the other is a heap file holding the actual rows.
type Files struct {
	indexFileName string
	indexFile     *os.File
	rows          *heap.Files
	sch           *schema.Schema
	keyLength     int64
	entryLength   int64
	root          Link
	primaryCount  int64
	auxCount      int64
	maxAuxSize    int64
	adaptiveAux   bool
}

// NewFiles - Returns a pointer to a new instance of Sequential File implementation.
// It always creates new files (or opens and truncates existing files)
//   - filesConf is a FilesConf struct providing configuration parameters affecting files creation and processing
//
// It returns:
//   - seqFiles which is a pointer to the created instance
//   - err which is a standard Go type of error
func NewFiles(filesConf FilesConf) (seqFiles *Files, err error) {
	if filesConf.Schema == nil {
		err = fmt.Errorf("a schema must be given when creating a sequential file")
		return
	}
	if filesConf.Name == "" {
		err = fmt.Errorf("a name must be given when creating a sequential file")
		return
	}
	if filesConf.MaxAuxSize < 0 {
		err = fmt.Errorf("max auxiliary size must not be negative")
		return
	}
	if filesConf.MaxAuxSize > 0 && filesConf.MaxAuxSize < conf.MinMaxAuxSize {
		err = fmt.Errorf("max auxiliary size must be at least %d when given", conf.MinMaxAuxSize)
		return
	}

	maxAuxSize := filesConf.MaxAuxSize
	adaptiveAux := maxAuxSize == 0
	if adaptiveAux {
		maxAuxSize = conf.DefaultMaxAuxSize
	}

	seqFiles = &Files{
		indexFileName: storage.GetIndexFileName(filesConf.Name),
		sch:           filesConf.Schema,
		keyLength:     int64(filesConf.Schema.KeyLength()),
		entryLength:   int64(filesConf.Schema.KeyLength()) + entryTailLength,
		maxAuxSize:    maxAuxSize,
		adaptiveAux:   adaptiveAux,
	}

	seqFiles.rows, err = heap.NewFiles(heap.FilesConf{FileName: storage.GetDataFileName(filesConf.Name), Schema: filesConf.Schema})
	if err != nil {
		err = fmt.Errorf("error while creating sequential data file: %s", err)
		return
	}

	err = seqFiles.createNewIndexFile()

	return
}

// NewFilesFromExistingFiles - Returns a pointer to a new instance of Sequential File implementation given
// existing files. If files doesn't exist, or if file sizes doesn't add up given the counts in the index
// header, it fails with a fileorg.CorruptHeader error.
//   - filesConf is a FilesConf struct providing configuration parameters affecting file processing
//
// It returns:
//   - seqFiles which is a pointer to the created instance
//   - err which is a standard Go type of error
func NewFilesFromExistingFiles(filesConf FilesConf) (seqFiles *Files, err error) {
	if filesConf.Schema == nil {
		err = fmt.Errorf("a schema must be given when opening a sequential file")
		return
	}
	if filesConf.Name == "" {
		err = fmt.Errorf("a name must be given when opening a sequential file")
		return
	}
	if filesConf.MaxAuxSize < 0 {
		err = fmt.Errorf("max auxiliary size must not be negative")
		return
	}
	if filesConf.MaxAuxSize > 0 && filesConf.MaxAuxSize < conf.MinMaxAuxSize {
		err = fmt.Errorf("max auxiliary size must be at least %d when given", conf.MinMaxAuxSize)
		return
	}

	maxAuxSize := filesConf.MaxAuxSize
	adaptiveAux := maxAuxSize == 0
	if adaptiveAux {
		maxAuxSize = conf.DefaultMaxAuxSize
	}

	seqFiles = &Files{
		indexFileName: storage.GetIndexFileName(filesConf.Name),
		sch:           filesConf.Schema,
		keyLength:     int64(filesConf.Schema.KeyLength()),
		entryLength:   int64(filesConf.Schema.KeyLength()) + entryTailLength,
		maxAuxSize:    maxAuxSize,
		adaptiveAux:   adaptiveAux,
	}

	err = seqFiles.openIndexFile()
	if err != nil {
		return
	}

	seqFiles.rows, err = heap.NewFilesFromExistingFiles(heap.FilesConf{FileName: storage.GetDataFileName(filesConf.Name), Schema: filesConf.Schema})
	if err != nil {
		storage.CloseStorageFile(seqFiles.indexFile)
		return
	}

	if seqFiles.adaptiveAux && seqFiles.primaryCount > 0 {
		seqFiles.maxAuxSize = adaptiveAuxSize(seqFiles.primaryCount)
	}

	return
}

// Insert - Inserts a new record in ascending key order.
// The row itself is appended to the data heap file while a new index entry is appended to the
// auxiliary area and spliced into the threaded key order. Once the auxiliary area reaches the
// configured threshold the primary area is rebuilt from all live entries.
//   - record is the record to insert, it has to conform to the schema given when creating the Files instance
//
// It returns:
//   - position which is the heap file slot the row was written to
//   - err is of type fileorg.DuplicateKey if a live entry already holds the key, fileorg.SchemaMismatch
//     if the record doesn't fit the schema, or a standard error
func (F *Files) Insert(record schema.Record) (position int64, err error) {
	key, err := F.sch.Key(record)
	if err != nil {
		return
	}

	prev, at, err := F.seek(key)
	if err != nil {
		return
	}

	if at.IsEntry() {
		var atEntry Entry
		atEntry, err = F.readEntry(int64(at.Index()))
		if err != nil {
			return
		}
		if F.sch.CompareKeys(atEntry.Key, key) == 0 {
			err = fileorg.DuplicateKey{}
			return
		}
	}

	position, err = F.rows.Insert(record)
	if err != nil {
		return
	}

	newIndex, err := F.appendEntry(Entry{Key: key, HeapPosition: int32(position), Next: at})
	if err != nil {
		return
	}

	if prev.IsEntry() {
		var prevEntry Entry
		prevEntry, err = F.readEntry(int64(prev.Index()))
		if err != nil {
			return
		}
		prevEntry.Next = EntryLink(newIndex)
		err = F.writeEntry(int64(prev.Index()), prevEntry)
		if err != nil {
			return
		}
	} else {
		F.root = EntryLink(newIndex)
	}

	F.auxCount++
	if F.auxCount >= F.maxAuxSize {
		err = F.reconstruct()
	}

	return
}

// Search - Returns the record stored under the given key.
//   - key is the encoded key to search for
//
// It returns:
//   - records holds at most one record since keys are unique among live entries, it is empty on a miss
//   - err is a standard error if something went wrong
func (F *Files) Search(key []byte) (records []schema.Record, err error) {
	records = make([]schema.Record, 0, 1)

	_, at, err := F.seek(key)
	if err != nil || !at.IsEntry() {
		return
	}

	entry, err := F.readEntry(int64(at.Index()))
	if err != nil {
		return
	}
	if F.sch.CompareKeys(entry.Key, key) != 0 {
		return
	}

	record, err := F.rows.Read(int64(entry.HeapPosition))
	if err != nil {
		return
	}
	records = append(records, record)

	return
}

// RangeSearch - Returns all records with keys within the given bounds, both inclusive.
// The threaded key order makes this a single walk starting at the first entry on or after the
// lower bound.
//   - begin is the encoded lower bound key
//   - end is the encoded upper bound key
//
// It returns:
//   - records holds the matches in ascending key order, it is empty if no record matched
//   - err is a standard error if something went wrong
func (F *Files) RangeSearch(begin, end []byte) (records []schema.Record, err error) {
	records = make([]schema.Record, 0)

	_, at, err := F.seek(begin)
	if err != nil {
		return
	}

	var entry Entry
	var record schema.Record
	cur := at
	for cur.IsEntry() {
		entry, err = F.readEntry(int64(cur.Index()))
		if err != nil {
			return
		}
		if F.sch.CompareKeys(entry.Key, end) > 0 {
			break
		}
		record, err = F.rows.Read(int64(entry.HeapPosition))
		if err != nil {
			return
		}
		records = append(records, record)
		cur = entry.Next
	}

	return
}

// Remove - Removes the entry holding the given key by unlinking it from the threaded order and
// marking it with a tombstone link. The row bytes in the data heap file are left in place and are
// dropped from the index for good at the next rebuild.
//   - key is the encoded key to remove
//
// It returns:
//   - removed is 1 when a live entry was removed and 0 when the key was not present
//   - err is a standard error if something went wrong
func (F *Files) Remove(key []byte) (removed int64, err error) {
	prev, at, err := F.seek(key)
	if err != nil || !at.IsEntry() {
		return
	}

	atIndex := int64(at.Index())
	atEntry, err := F.readEntry(atIndex)
	if err != nil {
		return
	}
	if F.sch.CompareKeys(atEntry.Key, key) != 0 {
		return
	}

	if prev.IsEntry() {
		var prevEntry Entry
		prevEntry, err = F.readEntry(int64(prev.Index()))
		if err != nil {
			return
		}
		prevEntry.Next = atEntry.Next
		err = F.writeEntry(int64(prev.Index()), prevEntry)
		if err != nil {
			return
		}
	} else {
		F.root = atEntry.Next
	}

	atEntry.Next = TombstoneLink()
	err = F.writeEntry(atIndex, atEntry)
	if err != nil {
		return
	}
	removed = 1

	return
}

// ScanAll - Returns all live records in ascending key order by walking the threaded chain from the root.
//
// It returns:
//   - records holds every live record in ascending key order
//   - err is a standard error if something went wrong
func (F *Files) ScanAll() (records []schema.Record, err error) {
	entries, err := F.liveEntries()
	if err != nil {
		return
	}

	records = make([]schema.Record, 0, len(entries))
	var record schema.Record
	for _, entry := range entries {
		record, err = F.rows.Read(int64(entry.HeapPosition))
		if err != nil {
			return
		}
		records = append(records, record)
	}

	return
}

// Count - Returns the number of live entries by walking the threaded chain.
//
// It returns:
//   - count is the number of live entries
//   - err is a standard error if something went wrong
func (F *Files) Count() (count int64, err error) {
	entries, err := F.liveEntries()
	if err != nil {
		return
	}
	count = int64(len(entries))

	return
}

// Load - Bulk inserts records.
// On an empty file the batch is sorted by key and written directly as the primary area which
// avoids threading every record through the auxiliary area. On a non empty file the records are
// inserted one by one.
//   - records are the records to insert
//
// It returns:
//   - err is of type fileorg.DuplicateKey if a key occurs twice, fileorg.SchemaMismatch if a record
//     doesn't fit the schema, or a standard error
func (F *Files) Load(records []schema.Record) (err error) {
	if F.root.IsEnd() {
		err = F.bulkBuild(records)
		return
	}

	for _, record := range records {
		_, err = F.Insert(record)
		if err != nil {
			return
		}
	}

	err = F.Flush()

	return
}

// Clear - Removes all records by truncating the index back to an empty header and clearing the
// data heap file.
//
// It returns:
//   - err is a standard error if something went wrong
func (F *Files) Clear() (err error) {
	err = F.indexFile.Truncate(headerLength)
	if err != nil {
		err = fmt.Errorf("error while truncating sequential index file: %s", err)
		return
	}

	F.root = EndLink()
	F.primaryCount = 0
	F.auxCount = 0
	err = F.writeHeader()
	if err != nil {
		return
	}

	err = F.rows.Clear()

	return
}

// Flush - Writes the cached index header to disk and syncs both backing files.
// Entries and rows are written as part of each mutating operation, hence after a flush the files
// are fully consistent with the operations performed so far.
//
// It returns:
//   - err is a standard error if something went wrong
func (F *Files) Flush() (err error) {
	err = F.writeHeader()
	if err != nil {
		return
	}

	err = F.indexFile.Sync()
	if err != nil {
		err = fmt.Errorf("error while syncing sequential index file: %s", err)
		return
	}

	err = F.rows.Flush()

	return
}

// CloseFiles - Writes the cached index header and closes both backing files
func (F *Files) CloseFiles() {
	if F.indexFile != nil {
		_ = F.writeHeader()
	}
	storage.CloseStorageFile(F.indexFile)

	if F.rows != nil {
		F.rows.CloseFiles()
	}
}

// RemoveFiles - Removes the index and data files, make sure to close them first before calling this function
//
// It returns:
//   - err is a standard error if something went wrong
func (F *Files) RemoveFiles() (err error) {
	err = storage.RemoveStorageFile(F.indexFileName)
	if err != nil {
		return
	}

	if F.rows != nil {
		err = F.rows.RemoveFiles()
	}

	return
}
