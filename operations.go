package tablefile

import (
	"fmt"
	"github.com/JoseEd0/tablefile/fileorg"
	"github.com/JoseEd0/tablefile/internal/storage"
	"github.com/JoseEd0/tablefile/internal/storage/exthash"
	"github.com/JoseEd0/tablefile/schema"
	"os"
	"path/filepath"
)

// TableStat - Statistics on the overall usage of a table
//   - Records is the total number of records stored
//   - FileSizes maps every backing file, the meta file included, to its size in bytes
//   - GlobalDepth, DirectoryLength, BucketRecords, OverflowRecords and BucketDistribution are
//     only filled in for the extendible hashing organization
type TableStat struct {
	Records            int64
	FileSizes          map[string]int64
	GlobalDepth        int
	DirectoryLength    int
	BucketRecords      int64
	OverflowRecords    int64
	BucketDistribution []int64
}

// Insert - Inserts a new record.
//   - record is the record to insert, it has to conform to the table's schema
//
// It returns:
//   - position is where the record ended up, its meaning depends on the organization: a slot
//     index for heap, sequential and B+ tree tables, a row log byte offset for ISAM tables and
//     a bucket id for extendible hashing tables
//   - err is of type fileorg.DuplicateKey if the organization keeps keys unique and the key is
//     already present, fileorg.SchemaMismatch if the record doesn't fit the schema, or a
//     standard error
func (T *Table) Insert(record schema.Record) (position int64, err error) {
	position, err = T.store.Insert(record)
	return
}

// Search - Returns all records whose key matches the given key value. A miss is not an error,
// it returns an empty slice. Organizations that allow duplicate keys may return several records.
//   - key is the key value to search for, it has to match the key field type
//
// It returns:
//   - records holds the matching records, it is empty if no record matched
//   - err is of type fileorg.SchemaMismatch if the key value doesn't fit the key field, or a
//     standard error
func (T *Table) Search(key any) (records []schema.Record, err error) {
	encoded, err := T.sch.EncodeKey(key)
	if err != nil {
		return
	}

	records, err = T.store.Search(encoded)

	return
}

// RangeSearch - Returns all records with keys within the given bounds, both inclusive, sorted
// ascending by key. Organizations without key order scan everything and sort.
//   - begin is the lower bound key value
//   - end is the upper bound key value
//
// It returns:
//   - records holds the matches sorted ascending by key, it is empty if no record matched
//   - err is of type fileorg.SchemaMismatch if a bound doesn't fit the key field, or a
//     standard error
func (T *Table) RangeSearch(begin, end any) (records []schema.Record, err error) {
	encodedBegin, err := T.sch.EncodeKey(begin)
	if err != nil {
		return
	}
	encodedEnd, err := T.sch.EncodeKey(end)
	if err != nil {
		return
	}

	records, err = T.store.RangeSearch(encodedBegin, encodedEnd)

	return
}

// SpatialSearch - Is not supported by any of the file organizations, spatial lookups belong to
// an external spatial index built over the stored rows.
//
// It returns:
//   - records which is always nil
//   - err which is always of type fileorg.NotSupported
func (T *Table) SpatialSearch(point []float64, radius float64) (records []schema.Record, err error) {
	err = fileorg.NotSupported{}
	return
}

// Remove - Removes all records whose key matches the given key value. A miss is not an error,
// it removes nothing.
//   - key is the key value to remove, it has to match the key field type
//
// It returns:
//   - removed is the number of records removed
//   - err is of type fileorg.NotSupported for heap tables, which never reclaim slots, of type
//     fileorg.SchemaMismatch if the key value doesn't fit the key field, or a standard error
func (T *Table) Remove(key any) (removed int64, err error) {
	encoded, err := T.sch.EncodeKey(key)
	if err != nil {
		return
	}

	removed, err = T.store.Remove(encoded)

	return
}

// ScanAll - Returns all records. Heap tables return them in insertion order, extendible hashing
// tables in directory slot order, all others sorted ascending by key.
//
// It returns:
//   - records holds every record
//   - err is a standard error if something went wrong
func (T *Table) ScanAll() (records []schema.Record, err error) {
	records, err = T.store.ScanAll()
	return
}

// Count - Returns the number of records in the table.
//
// It returns:
//   - count is the number of records
//   - err is a standard error if something went wrong
func (T *Table) Count() (count int64, err error) {
	count, err = T.store.Count()
	return
}

// Load - Bulk inserts records. ISAM tables build their static directory from the batch, all
// others insert record by record under their usual duplicate policy. The load ends with a flush.
//   - records are the records to insert
//
// It returns:
//   - err is a standard error if something went wrong, records inserted before the failure remain
func (T *Table) Load(records []schema.Record) (err error) {
	err = T.store.Load(records)
	return
}

// Clear - Removes all records while keeping the table and its files in place.
//
// It returns:
//   - err is a standard error if something went wrong
func (T *Table) Clear() (err error) {
	err = T.store.Clear()
	return
}

// Flush - Writes cached headers and syncs the backing files. Record data is written as part of
// each mutating operation, so after a flush the files are fully consistent on disk.
//
// It returns:
//   - err is a standard error if something went wrong
func (T *Table) Flush() (err error) {
	err = T.store.Flush()
	return
}

// Stat - Produces a TableStat struct with usage information. The backing files are stated on
// disk and, for extendible hashing tables, every bucket is visited, so on a big table this can
// take a moment.
//
// It returns:
//   - tableStat is the assembled TableStat struct
//   - err is a standard error if something went wrong
func (T *Table) Stat() (tableStat TableStat, err error) {
	tableStat.Records, err = T.store.Count()
	if err != nil {
		return
	}

	tableStat.FileSizes, err = T.fileSizes()
	if err != nil {
		return
	}

	if T.hashFiles != nil {
		var hashStat exthash.Stat
		hashStat, err = T.hashFiles.Stat()
		if err != nil {
			return
		}
		tableStat.GlobalDepth = hashStat.GlobalDepth
		tableStat.DirectoryLength = hashStat.DirectoryLength
		tableStat.BucketRecords = hashStat.BucketRecords
		tableStat.OverflowRecords = hashStat.OverflowRecords
		tableStat.BucketDistribution = hashStat.BucketDistribution
	}

	return
}

// Schema - Returns the table's schema
func (T *Table) Schema() *schema.Schema {
	return T.sch
}

// Organization - Returns the table's file organization
func (T *Table) Organization() fileorg.Organization {
	return T.organization
}

// Name - Returns the table's name
func (T *Table) Name() string {
	return T.name
}

// fileSizes - Stats every backing file of the table's organization, the meta file included
func (T *Table) fileSizes() (fileSizes map[string]int64, err error) {
	fileNames := []string{storage.GetMetaFileName(T.name)}

	switch T.organization {
	case fileorg.Heap:
		fileNames = append(fileNames, storage.GetHeapFileName(T.name))
	case fileorg.Sequential:
		fileNames = append(fileNames, storage.GetIndexFileName(T.name), storage.GetDataFileName(T.name))
	case fileorg.ISAM:
		fileNames = append(fileNames, storage.GetDirFileName(T.name), storage.GetPagesFileName(T.name), storage.GetRowsFileName(T.name))
	case fileorg.ExtendibleHash:
		var bucketFiles []string
		bucketFiles, err = filepath.Glob(fmt.Sprintf("%s-bucket-*.bin", T.name))
		if err != nil {
			err = fmt.Errorf("error while enumerating bucket files: %s", err)
			return
		}
		fileNames = append(fileNames, storage.GetDirFileName(T.name))
		fileNames = append(fileNames, bucketFiles...)
	case fileorg.BPlusTree:
		fileNames = append(fileNames, storage.GetNodesFileName(T.name), storage.GetDataFileName(T.name))
	}

	fileSizes = make(map[string]int64, len(fileNames))
	var stat os.FileInfo
	for _, fileName := range fileNames {
		stat, err = os.Stat(fileName)
		if err != nil {
			err = fmt.Errorf("error while getting file stats for %s: %s", fileName, err)
			fileSizes = nil
			return
		}
		fileSizes[fileName] = stat.Size()
	}

	return
}
