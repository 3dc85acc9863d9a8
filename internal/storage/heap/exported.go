package heap

import (
	"fmt"
	"github.com/JoseEd0/tablefile/fileorg"
	"github.com/JoseEd0/tablefile/internal/storage"
	"github.com/JoseEd0/tablefile/schema"
	"os"
	"sort"
)

// FilesConf - Is a struct to be passed in the call to NewFiles and contains configuration that affects
// file processing.
//   - FileName is the full name of the backing heap file
//   - Schema describes the fixed width record layout including the primary key field
type FilesConf struct {
	FileName string
	Schema   *schema.Schema
}

// Files - Represents an implementation of file support for the Heap File organization.
// It uses a single file where fixed length records are laid out contiguously after a small header
// holding the record count. Records are only ever appended after the last slot, hence positions
// handed out by Insert stay valid for the lifetime of the file.
type Files struct {
	fileName     string
	file         *os.File
	sch          *schema.Schema
	recordLength int64
	count        int64
}

// NewFiles - Returns a pointer to a new instance of Heap File implementation.
// It always creates a new file (or opens and truncates an existing file)
//   - conf is a FilesConf struct providing configuration parameters affecting file creation and processing
//
// It returns:
//   - heapFiles which is a pointer to the created instance
//   - err which is a standard Go type of error
func NewFiles(conf FilesConf) (heapFiles *Files, err error) {
	if conf.Schema == nil {
		err = fmt.Errorf("a schema must be given when creating a heap file")
		return
	}
	if conf.FileName == "" {
		err = fmt.Errorf("a file name must be given when creating a heap file")
		return
	}

	heapFiles = &Files{
		fileName:     conf.FileName,
		sch:          conf.Schema,
		recordLength: int64(conf.Schema.RecordLength()),
	}

	err = heapFiles.createNewHeapFile()

	return
}

// NewFilesFromExistingFiles - Returns a pointer to a new instance of Heap File implementation given an
// existing file. If the file doesn't exist, or if its size doesn't add up given the record count in the
// header, it fails with a fileorg.CorruptHeader error.
//   - conf is a FilesConf struct providing configuration parameters affecting file processing
//
// It returns:
//   - heapFiles which is a pointer to the created instance
//   - err which is a standard Go type of error
func NewFilesFromExistingFiles(conf FilesConf) (heapFiles *Files, err error) {
	if conf.Schema == nil {
		err = fmt.Errorf("a schema must be given when opening a heap file")
		return
	}
	if conf.FileName == "" {
		err = fmt.Errorf("a file name must be given when opening a heap file")
		return
	}

	heapFiles = &Files{
		fileName:     conf.FileName,
		sch:          conf.Schema,
		recordLength: int64(conf.Schema.RecordLength()),
	}

	err = heapFiles.openHeapFile()

	return
}

// Insert - Appends a record after the last slot in the heap file.
// Positions handed out are strictly increasing starting at zero for a new file.
//   - record is the record to append, it has to conform to the schema given when creating the Files instance
//
// It returns:
//   - position which is the slot the record was written to
//   - err is of type fileorg.SchemaMismatch if the record doesn't fit the schema, or a standard error
func (F *Files) Insert(record schema.Record) (position int64, err error) {
	// A record has to carry its primary key even though the heap file itself has no index
	_, err = F.sch.Key(record)
	if err != nil {
		return
	}

	buf, err := F.sch.Encode(record)
	if err != nil {
		return
	}

	position = F.count
	err = storage.SetBlock(F.file, buf, F.recordOffset(position))
	if err != nil {
		position = 0
		err = fmt.Errorf("error while appending record to heap file: %s", err)
		return
	}

	F.count++

	return
}

// Read - Returns the record stored at the given position.
//   - position is the slot to read from
//
// It returns:
//   - record is the decoded record at the given position
//   - err is of type fileorg.PositionOutOfRange if position lies outside the current record count, or a standard error
func (F *Files) Read(position int64) (record schema.Record, err error) {
	if position < 0 || position >= F.count {
		err = fileorg.PositionOutOfRange{}
		return
	}

	buf, err := storage.GetBlock(F.file, F.recordOffset(position), F.recordLength)
	if err != nil {
		err = fmt.Errorf("error while reading record from heap file: %s", err)
		return
	}

	record, err = F.sch.Decode(buf)

	return
}

// Update - Overwrites the record stored at the given position in place.
// The slot keeps its position, hence positions held by an index layered on top stay valid.
//   - position is the slot to overwrite
//   - record is the new record, it has to conform to the schema given when creating the Files instance
//
// It returns:
//   - err is of type fileorg.PositionOutOfRange if position lies outside the current record count,
//     fileorg.SchemaMismatch if the record doesn't fit the schema, or a standard error
func (F *Files) Update(position int64, record schema.Record) (err error) {
	if position < 0 || position >= F.count {
		err = fileorg.PositionOutOfRange{}
		return
	}

	_, err = F.sch.Key(record)
	if err != nil {
		return
	}

	buf, err := F.sch.Encode(record)
	if err != nil {
		return
	}

	err = storage.SetBlock(F.file, buf, F.recordOffset(position))
	if err != nil {
		err = fmt.Errorf("error while overwriting record in heap file: %s", err)
	}

	return
}

// Search - Returns all records whose key matches the given key.
// A heap file has no index so the entire file is scanned front to back.
//   - key is the encoded key to search for
//
// It returns:
//   - records holds one record per match in insertion order, it is empty if no record matched
//   - err is a standard error if something went wrong
func (F *Files) Search(key []byte) (records []schema.Record, err error) {
	all, err := F.readAllRecords()
	if err != nil {
		return
	}

	records = make([]schema.Record, 0)
	var recordKey []byte
	for _, record := range all {
		recordKey, err = F.sch.Key(record)
		if err != nil {
			return
		}
		if F.sch.CompareKeys(recordKey, key) == 0 {
			records = append(records, record)
		}
	}

	return
}

// RangeSearch - Returns all records with keys within the given bounds, both inclusive.
// A heap file preserves no key order so the entire file is scanned and the matches sorted.
//   - begin is the encoded lower bound key
//   - end is the encoded upper bound key
//
// It returns:
//   - records holds the matches sorted ascending by key, it is empty if no record matched
//   - err is a standard error if something went wrong
func (F *Files) RangeSearch(begin, end []byte) (records []schema.Record, err error) {
	all, err := F.readAllRecords()
	if err != nil {
		return
	}

	matches := make([]keyedRecord, 0)
	var recordKey []byte
	for _, record := range all {
		recordKey, err = F.sch.Key(record)
		if err != nil {
			return
		}
		if F.sch.CompareKeys(recordKey, begin) >= 0 && F.sch.CompareKeys(recordKey, end) <= 0 {
			matches = append(matches, keyedRecord{key: recordKey, record: record})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return F.sch.CompareKeys(matches[i].key, matches[j].key) < 0
	})

	records = make([]schema.Record, 0, len(matches))
	for _, match := range matches {
		records = append(records, match.record)
	}

	return
}

// Remove - Is not supported by heap files since records are only ever appended and slots never reclaimed.
// Logical deletion is a responsibility of organizations layered on top, such as the tombstone links in
// the sequential file index.
//
// It returns:
//   - removed which is always zero
//   - err which is always of type fileorg.NotSupported
func (F *Files) Remove(key []byte) (removed int64, err error) {
	err = fileorg.NotSupported{}
	return
}

// ScanAll - Returns all records in insertion order.
//
// It returns:
//   - records holds every record in the order it was inserted
//   - err is a standard error if something went wrong
func (F *Files) ScanAll() (records []schema.Record, err error) {
	records, err = F.readAllRecords()
	return
}

// Count - Returns the number of records in the heap file.
//
// It returns:
//   - count is taken from the cached header making this a constant time operation
//   - err is a standard error if something went wrong
func (F *Files) Count() (count int64, err error) {
	count = F.count
	return
}

// Load - Bulk inserts records by appending them in the given order, followed by a flush of the header.
//   - records are the records to append
//
// It returns:
//   - err is a standard error if something went wrong
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

// Clear - Removes all records by truncating the heap file back to an empty header.
//
// It returns:
//   - err is a standard error if something went wrong
func (F *Files) Clear() (err error) {
	err = F.file.Truncate(headerLength)
	if err != nil {
		err = fmt.Errorf("error while truncating heap file: %s", err)
		return
	}

	F.count = 0
	err = F.writeHeader()

	return
}

// Flush - Writes the cached header to disk and syncs the heap file.
// Record data is written as part of each mutating operation, hence after a flush the file is fully
// consistent with what has been inserted so far.
//
// It returns:
//   - err is a standard error if something went wrong
func (F *Files) Flush() (err error) {
	err = F.writeHeader()
	if err != nil {
		return
	}

	err = F.file.Sync()
	if err != nil {
		err = fmt.Errorf("error while syncing heap file: %s", err)
	}

	return
}

// CloseFiles - Writes the cached header and closes the heap file
func (F *Files) CloseFiles() {
	if F.file != nil {
		_ = F.writeHeader()
	}

	storage.CloseStorageFile(F.file)
}

// RemoveFiles - Removes the heap file, make sure to close it first before calling this function
//
// It returns:
//   - err is a standard error if something went wrong
func (F *Files) RemoveFiles() (err error) {
	err = storage.RemoveStorageFile(F.fileName)
	return
}
