package exthash

import (
	"fmt"
	"github.com/JoseEd0/tablefile/hashfunc"
	"github.com/JoseEd0/tablefile/internal/conf"
	"github.com/JoseEd0/tablefile/internal/hash"
	"github.com/JoseEd0/tablefile/internal/storage"
	"github.com/JoseEd0/tablefile/schema"
	"os"
	"sort"
)

// FilesConf - Is a struct to be passed in the call to NewFiles and contains configuration that affects
// file processing.
//   - Name is the name to base the directory and bucket file names on
//   - Schema describes the fixed width record layout including the primary key field
//   - BucketCapacity is the number of records a bucket holds, zero selects the default
//   - GlobalDepth is the directory depth to start out with, zero selects the default
//   - MaxGlobalDepth is the depth ceiling after which full buckets chain instead of splitting,
//     zero selects the default
//   - HashAlgorithm is an optional custom algorithm for bucket selection, nil selects the internal
//     crc32 based algorithm
type FilesConf struct {
	Name           string
	Schema         *schema.Schema
	BucketCapacity int64
	GlobalDepth    int
	MaxGlobalDepth int
	HashAlgorithm  hashfunc.HashAlgorithm
}

// Files - Represents an implementation of file support for the extendible hashing organization.
// The directory file holds 2^global depth slots of bucket ids, indexed by the lowest global depth
// bits of a key's hash value. Each bucket is its own fixed size file holding whole records. A full
// bucket below the directory depth splits into two new buckets over the next hash bit, a full
// bucket at the depth ceiling grows an overflow chain instead. Inserting an existing key overwrites
// its record in place.
type Files struct {
	name               string
	dirFileName        string
	dirFile            *os.File
	bucketFiles        map[int32]*os.File
	sch                *schema.Schema
	recordLength       int64
	bucketCapacity     int64
	bucketLength       int64
	globalDepth        int
	initialGlobalDepth int
	maxGlobalDepth     int
	nextBucketID       int32
	directory          []int32
	hashAlgorithm      hashfunc.HashAlgorithm
}

// Stat - Is a struct containing statistics for extendible hashing files
//   - Records is the total number of records
//   - BucketRecords is the number of records held in main buckets
//   - OverflowRecords is the number of records held in overflow chain buckets
//   - GlobalDepth is the current directory depth
//   - DirectoryLength is the number of directory slots
//   - BucketDistribution shows the number of records per distinct main bucket in directory slot order
type Stat struct {
	Records            int64
	BucketRecords      int64
	OverflowRecords    int64
	GlobalDepth        int
	DirectoryLength    int
	BucketDistribution []int64
}

// NewFiles - Returns a pointer to a new instance of extendible hashing file implementation.
// It always creates new files, a directory of 2^global depth slots and one initial bucket per slot.
//   - filesConf is a FilesConf struct providing configuration parameters affecting files creation and processing
//
// It returns:
//   - hashFiles which is a pointer to the created instance
//   - err which is a standard Go type of error
func NewFiles(filesConf FilesConf) (hashFiles *Files, err error) {
	hashFiles, err = prepareFiles(filesConf)
	if err != nil {
		return
	}

	err = hashFiles.createNewFiles()

	return
}

// NewFilesFromExistingFiles - Returns a pointer to a new instance of extendible hashing file
// implementation given existing files. The global depth, max global depth and next bucket id are
// taken from the directory file header, not from the configuration. Make sure to supply the same
// hash algorithm the files were populated with, otherwise keys will hash to the wrong buckets.
//   - filesConf is a FilesConf struct providing configuration parameters affecting file processing
//
// It returns:
//   - hashFiles which is a pointer to the created instance
//   - err which is of type fileorg.CorruptHeader if the directory file is missing or inconsistent
func NewFilesFromExistingFiles(filesConf FilesConf) (hashFiles *Files, err error) {
	hashFiles, err = prepareFiles(filesConf)
	if err != nil {
		return
	}

	err = hashFiles.openFiles()

	return
}

// Insert - Inserts a new record or overwrites the existing record carrying the same key.
// When the target bucket and its chain are full the bucket splits over the next hash bit, doubling
// the directory first if the bucket already sits at directory depth. At the depth ceiling the
// chain grows by one overflow bucket instead. Splitting repeats in case every item follows the
// same hash bit, hence the loop.
//   - record is the record to insert, it has to conform to the schema given when creating the Files instance
//
// It returns:
//   - position which is the id of the bucket the record ended up in
//   - err is of type fileorg.SchemaMismatch if the record doesn't fit the schema, or a standard error
func (F *Files) Insert(record schema.Record) (position int64, err error) {
	key, err := F.sch.Key(record)
	if err != nil {
		return
	}
	payload, err := F.sch.Encode(record)
	if err != nil {
		return
	}

	hashValue := F.hashAlgorithm.HashFunc(key)

	var chain []*bucket
	var itemKey []byte
	for {
		chain, err = F.chainBuckets(F.directory[F.slotIndex(hashValue)])
		if err != nil {
			return
		}

		for _, bkt := range chain {
			for i, item := range bkt.items {
				itemKey, err = F.sch.KeyFromBuffer(item)
				if err != nil {
					return
				}
				if F.sch.CompareKeys(itemKey, key) == 0 {
					bkt.items[i] = payload
					err = F.writeBucket(bkt)
					position = int64(bkt.bucketID)
					return
				}
			}
		}

		for _, bkt := range chain {
			if int64(len(bkt.items)) < F.bucketCapacity {
				bkt.items = append(bkt.items, payload)
				err = F.writeBucket(bkt)
				position = int64(bkt.bucketID)
				return
			}
		}

		if chain[0].localDepth < F.globalDepth {
			err = F.splitBucket(chain[0])
			if err != nil {
				return
			}
			continue
		}

		if F.globalDepth < F.maxGlobalDepth {
			err = F.doubleDirectory()
			if err != nil {
				return
			}
			continue
		}

		position, err = F.extendChain(chain[len(chain)-1], payload)
		return
	}
}

// Search - Returns the record carrying the given key, if any.
// The key hashes to a directory slot and the slot's bucket plus its overflow chain are scanned.
// Since Insert overwrites on key collision there is never more than one match.
//   - key is the encoded key to search for
//
// It returns:
//   - records holds the matching record, it is empty if no record matched
//   - err is a standard error if something went wrong
func (F *Files) Search(key []byte) (records []schema.Record, err error) {
	records = make([]schema.Record, 0, 1)

	chain, err := F.chainBuckets(F.directory[F.slotIndex(F.hashAlgorithm.HashFunc(key))])
	if err != nil {
		return
	}

	var itemKey []byte
	var record schema.Record
	for _, bkt := range chain {
		for _, item := range bkt.items {
			itemKey, err = F.sch.KeyFromBuffer(item)
			if err != nil {
				return
			}
			if F.sch.CompareKeys(itemKey, key) == 0 {
				record, err = F.sch.Decode(item)
				if err != nil {
					return
				}
				records = append(records, record)
				return
			}
		}
	}

	return
}

// RangeSearch - Returns all records with keys within the given bounds, both inclusive.
// Hashing destroys key order, so every bucket is scanned, matches filtered and the result sorted.
//   - begin is the encoded lower bound key
//   - end is the encoded upper bound key
//
// It returns:
//   - records holds the matches sorted ascending by key, it is empty if no record matched
//   - err is a standard error if something went wrong
func (F *Files) RangeSearch(begin, end []byte) (records []schema.Record, err error) {
	records = make([]schema.Record, 0)
	matches := make([]keyedRecord, 0)

	err = F.visitBuckets(func(bkt *bucket) (err error) {
		var itemKey []byte
		var record schema.Record
		for _, item := range bkt.items {
			itemKey, err = F.sch.KeyFromBuffer(item)
			if err != nil {
				return
			}
			if F.sch.CompareKeys(itemKey, begin) >= 0 && F.sch.CompareKeys(itemKey, end) <= 0 {
				record, err = F.sch.Decode(item)
				if err != nil {
					return
				}
				matches = append(matches, keyedRecord{key: itemKey, record: record})
			}
		}

		return
	})
	if err != nil {
		return
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

// Remove - Removes the record carrying the given key, if any.
// Buckets never merge and chains never shrink, the slot the record occupied simply becomes free.
//   - key is the encoded key to remove
//
// It returns:
//   - removed is 1 if a record was removed, otherwise 0
//   - err is a standard error if something went wrong
func (F *Files) Remove(key []byte) (removed int64, err error) {
	chain, err := F.chainBuckets(F.directory[F.slotIndex(F.hashAlgorithm.HashFunc(key))])
	if err != nil {
		return
	}

	var itemKey []byte
	for _, bkt := range chain {
		for i, item := range bkt.items {
			itemKey, err = F.sch.KeyFromBuffer(item)
			if err != nil {
				return
			}
			if F.sch.CompareKeys(itemKey, key) == 0 {
				bkt.items = append(bkt.items[:i], bkt.items[i+1:]...)
				err = F.writeBucket(bkt)
				if err != nil {
					return
				}
				removed = 1
				return
			}
		}
	}

	return
}

// ScanAll - Returns all records in directory slot order.
// Buckets referenced by more than one slot are visited once, and within a slot the main bucket's
// items come before its overflow chain.
//
// It returns:
//   - records holds every record in directory slot order
//   - err is a standard error if something went wrong
func (F *Files) ScanAll() (records []schema.Record, err error) {
	records = make([]schema.Record, 0)

	err = F.visitBuckets(func(bkt *bucket) (err error) {
		var record schema.Record
		for _, item := range bkt.items {
			record, err = F.sch.Decode(item)
			if err != nil {
				return
			}
			records = append(records, record)
		}

		return
	})

	return
}

// Count - Returns the number of records by summing the item counts of all buckets and their chains.
//
// It returns:
//   - count is the number of records
//   - err is a standard error if something went wrong
func (F *Files) Count() (count int64, err error) {
	err = F.visitBuckets(func(bkt *bucket) (err error) {
		count += int64(len(bkt.items))
		return
	})

	return
}

// Load - Bulk inserts records one by one, hence a duplicate key within the batch overwrites the
// earlier record just as separate inserts would.
//   - records are the records to insert
//
// It returns:
//   - err is of type fileorg.SchemaMismatch if a record doesn't fit the schema, or a standard error
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

// Clear - Removes all records by deleting every bucket file and recreating the initial directory
// layout at the global depth the instance was configured with.
//
// It returns:
//   - err is a standard error if something went wrong
func (F *Files) Clear() (err error) {
	err = F.removeAllBucketFiles()
	if err != nil {
		return
	}

	F.globalDepth = F.initialGlobalDepth

	err = F.createInitialBuckets()

	return
}

// Flush - Writes the directory file and syncs it together with every open bucket file.
//
// It returns:
//   - err is a standard error if something went wrong
func (F *Files) Flush() (err error) {
	err = F.writeDirectory()
	if err != nil {
		return
	}

	err = F.dirFile.Sync()
	if err != nil {
		err = fmt.Errorf("error while syncing hash directory file: %s", err)
		return
	}

	for bucketID, filePtr := range F.bucketFiles {
		err = filePtr.Sync()
		if err != nil {
			err = fmt.Errorf("error while syncing bucket file %d: %s", bucketID, err)
			return
		}
	}

	return
}

// CloseFiles - Closes the directory file and every open bucket file
func (F *Files) CloseFiles() {
	storage.CloseStorageFile(F.dirFile)

	for _, filePtr := range F.bucketFiles {
		storage.CloseStorageFile(filePtr)
	}
	F.bucketFiles = nil
}

// RemoveFiles - Removes the directory file and every bucket file of the table, make sure to close
// them first before calling this function
//
// It returns:
//   - err is a standard Go type of error
func (F *Files) RemoveFiles() (err error) {
	names, err := F.bucketFileNames()
	if err != nil {
		return
	}

	err = storage.RemoveStorageFile(append(names, F.dirFileName)...)

	return
}

// Stat - Returns statistics about the directory and the bucket fill.
// The bucket distribution holds one entry per distinct main bucket in directory slot order.
//
// It returns:
//   - stat which is a Stat struct
//   - err is a standard error if something went wrong
func (F *Files) Stat() (stat Stat, err error) {
	stat.GlobalDepth = F.globalDepth
	stat.DirectoryLength = len(F.directory)
	stat.BucketDistribution = make([]int64, 0)

	seen := make(map[int32]bool)
	var chain []*bucket
	for _, bucketID := range F.directory {
		if seen[bucketID] {
			continue
		}
		seen[bucketID] = true

		chain, err = F.chainBuckets(bucketID)
		if err != nil {
			return
		}

		stat.BucketDistribution = append(stat.BucketDistribution, int64(len(chain[0].items)))
		stat.BucketRecords += int64(len(chain[0].items))
		for _, bkt := range chain[1:] {
			stat.OverflowRecords += int64(len(bkt.items))
		}
	}

	stat.Records = stat.BucketRecords + stat.OverflowRecords

	return
}

// prepareFiles - Validates the configuration and returns an instance with derived lengths set
func prepareFiles(filesConf FilesConf) (hashFiles *Files, err error) {
	if filesConf.Schema == nil {
		err = fmt.Errorf("a schema must be given when creating extendible hashing files")
		return
	}
	if filesConf.Name == "" {
		err = fmt.Errorf("a name must be given when creating extendible hashing files")
		return
	}
	if filesConf.BucketCapacity < 0 || filesConf.GlobalDepth < 0 || filesConf.MaxGlobalDepth < 0 {
		err = fmt.Errorf("bucket capacity, global depth and max global depth must not be negative")
		return
	}

	bucketCapacity := filesConf.BucketCapacity
	if bucketCapacity == 0 {
		bucketCapacity = conf.DefaultBucketCapacity
	}
	globalDepth := filesConf.GlobalDepth
	if globalDepth == 0 {
		globalDepth = conf.DefaultGlobalDepth
	}
	maxGlobalDepth := filesConf.MaxGlobalDepth
	if maxGlobalDepth == 0 {
		maxGlobalDepth = conf.DefaultMaxGlobalDepth
	}
	if maxGlobalDepth < globalDepth {
		err = fmt.Errorf("max global depth %d must not be below the initial global depth %d", maxGlobalDepth, globalDepth)
		return
	}
	if maxGlobalDepth > conf.MaxGlobalDepthLimit {
		err = fmt.Errorf("max global depth %d is beyond the supported limit %d", maxGlobalDepth, conf.MaxGlobalDepthLimit)
		return
	}

	hashAlgorithm := filesConf.HashAlgorithm
	if hashAlgorithm == nil {
		hashAlgorithm = hash.NewCRC32HashAlgorithm()
	}

	recordLength := int64(filesConf.Schema.RecordLength())

	hashFiles = &Files{
		name:               filesConf.Name,
		dirFileName:        storage.GetDirFileName(filesConf.Name),
		sch:                filesConf.Schema,
		recordLength:       recordLength,
		bucketCapacity:     bucketCapacity,
		bucketLength:       bucketHeaderLength + bucketCapacity*recordLength,
		globalDepth:        globalDepth,
		initialGlobalDepth: globalDepth,
		maxGlobalDepth:     maxGlobalDepth,
		hashAlgorithm:      hashAlgorithm,
	}

	return
}
