package exthash

import (
	"fmt"
	"github.com/JoseEd0/tablefile/fileorg"
	"github.com/JoseEd0/tablefile/internal/conf"
	"github.com/JoseEd0/tablefile/internal/overflow"
	"github.com/JoseEd0/tablefile/internal/storage"
	"github.com/JoseEd0/tablefile/schema"
	"os"
	"path/filepath"
)

// keyedRecord - Is an internal struct keeping a record together with its encoded key while sorting
type keyedRecord struct {
	key    []byte
	record schema.Record
}

// createNewFiles - Creates the directory file and one initial bucket per directory slot
func (F *Files) createNewFiles() (err error) {
	F.dirFile, err = storage.CreateStorageFile(F.dirFileName, 0)
	if err != nil {
		return
	}

	F.bucketFiles = make(map[int32]*os.File)

	err = F.createInitialBuckets()
	if err != nil {
		storage.CloseStorageFile(F.dirFile)
		F.dirFile = nil
	}

	return
}

// createInitialBuckets - Builds a fresh directory of 2^global depth slots, each referencing its
// own new empty bucket, and writes the directory file
func (F *Files) createInitialBuckets() (err error) {
	length := int32(1) << F.globalDepth

	F.directory = make([]int32, length)
	F.nextBucketID = length

	for bucketID := int32(0); bucketID < length; bucketID++ {
		F.directory[bucketID] = bucketID
		err = F.createBucket(&bucket{bucketID: bucketID, localDepth: F.globalDepth, next: overflow.None})
		if err != nil {
			return
		}
	}

	err = F.writeDirectory()

	return
}

// openFiles - Opens the directory file and restores depth, allocation state and slots from it.
// Bucket files open lazily as their buckets are touched. It fails with a fileorg.CorruptHeader
// error if the directory file is missing, its fields are out of range or its size doesn't add up.
func (F *Files) openFiles() (err error) {
	F.dirFile, err = storage.OpenStorageFile(F.dirFileName, dirHeaderLength)
	if err != nil {
		return
	}

	buf, err := storage.GetBlock(F.dirFile, 0, dirHeaderLength)
	if err != nil {
		err = fmt.Errorf("error while reading hash directory header: %s", err)
		storage.CloseStorageFile(F.dirFile)
		F.dirFile = nil
		return
	}
	header := bytesToDirHeader(buf)

	stat, err := F.dirFile.Stat()
	if err != nil {
		err = fmt.Errorf("error while getting hash directory file stats: %s", err)
		storage.CloseStorageFile(F.dirFile)
		F.dirFile = nil
		return
	}

	if header.globalDepth < 1 || header.globalDepth > header.maxGlobalDepth ||
		header.maxGlobalDepth > conf.MaxGlobalDepthLimit ||
		int(header.directoryLength) != 1<<header.globalDepth ||
		stat.Size() != dirHeaderLength+int64(header.directoryLength)*4 {
		err = fileorg.CorruptHeader{}
		storage.CloseStorageFile(F.dirFile)
		F.dirFile = nil
		return
	}

	buf, err = storage.GetBlock(F.dirFile, dirHeaderLength, int64(header.directoryLength)*4)
	if err != nil {
		err = fmt.Errorf("error while reading hash directory slots: %s", err)
		storage.CloseStorageFile(F.dirFile)
		F.dirFile = nil
		return
	}

	F.globalDepth = header.globalDepth
	F.maxGlobalDepth = header.maxGlobalDepth
	F.nextBucketID = header.nextBucketID
	F.directory = bytesToDirectorySlots(buf, header.directoryLength)
	F.bucketFiles = make(map[int32]*os.File)

	return
}

// writeDirectory - Writes the header and the slots as the whole directory file
func (F *Files) writeDirectory() (err error) {
	header := dirHeader{
		globalDepth:     F.globalDepth,
		maxGlobalDepth:  F.maxGlobalDepth,
		nextBucketID:    F.nextBucketID,
		directoryLength: int32(len(F.directory)),
	}

	buf := append(dirHeaderToBytes(header), directorySlotsToBytes(F.directory)...)

	err = F.dirFile.Truncate(int64(len(buf)))
	if err != nil {
		err = fmt.Errorf("error while truncating hash directory file: %s", err)
		return
	}

	err = storage.SetBlock(F.dirFile, buf, 0)
	if err != nil {
		err = fmt.Errorf("error while writing hash directory file: %s", err)
	}

	return
}

// slotIndex - Returns the directory slot for a hash value, its lowest global depth bits
func (F *Files) slotIndex(hashValue int64) int32 {
	return int32(hashValue & int64(len(F.directory)-1))
}

// bucketFile - Returns the open file of a bucket, opening and caching it on first touch.
// A bucket file has exactly one valid size, anything else fails with fileorg.CorruptHeader.
func (F *Files) bucketFile(bucketID int32) (filePtr *os.File, err error) {
	filePtr = F.bucketFiles[bucketID]
	if filePtr != nil {
		return
	}

	filePtr, err = storage.OpenStorageFile(storage.GetBucketFileName(F.name, bucketID), F.bucketLength)
	if err != nil {
		return
	}

	stat, err := filePtr.Stat()
	if err != nil {
		err = fmt.Errorf("error while getting bucket file stats: %s", err)
		storage.CloseStorageFile(filePtr)
		filePtr = nil
		return
	}
	if stat.Size() != F.bucketLength {
		err = fileorg.CorruptHeader{}
		storage.CloseStorageFile(filePtr)
		filePtr = nil
		return
	}

	F.bucketFiles[bucketID] = filePtr

	return
}

// createBucket - Creates the file for a new bucket, writes its content and caches the handle
func (F *Files) createBucket(bkt *bucket) (err error) {
	filePtr, err := storage.CreateStorageFile(storage.GetBucketFileName(F.name, bkt.bucketID), F.bucketLength)
	if err != nil {
		return
	}

	F.bucketFiles[bkt.bucketID] = filePtr

	err = F.writeBucket(bkt)

	return
}

// readBucket - Reads the bucket with the given id
func (F *Files) readBucket(bucketID int32) (bkt *bucket, err error) {
	filePtr, err := F.bucketFile(bucketID)
	if err != nil {
		return
	}

	buf, err := storage.GetBlock(filePtr, 0, F.bucketLength)
	if err != nil {
		err = fmt.Errorf("error while reading bucket %d: %s", bucketID, err)
		return
	}

	bkt, err = bytesToBucket(buf, F.recordLength)
	if err != nil {
		err = fileorg.CorruptHeader{}
		return
	}

	bkt.bucketID = bucketID

	return
}

// writeBucket - Writes a bucket back to its file
func (F *Files) writeBucket(bkt *bucket) (err error) {
	filePtr, err := F.bucketFile(bkt.bucketID)
	if err != nil {
		return
	}

	err = storage.SetBlock(filePtr, bucketToBytes(bkt, F.recordLength, F.bucketLength), 0)
	if err != nil {
		err = fmt.Errorf("error while writing bucket %d: %s", bkt.bucketID, err)
	}

	return
}

// removeBucket - Closes and deletes the file of a retired bucket
func (F *Files) removeBucket(bucketID int32) (err error) {
	filePtr := F.bucketFiles[bucketID]
	if filePtr != nil {
		storage.CloseStorageFile(filePtr)
		delete(F.bucketFiles, bucketID)
	}

	err = storage.RemoveStorageFile(storage.GetBucketFileName(F.name, bucketID))

	return
}

// fetchBucket - Loads an overflow chain bucket, it adapts readBucket to the overflow.FetchFunc signature
func (F *Files) fetchBucket(bucketID int32) (page overflow.Page, err error) {
	page, err = F.readBucket(bucketID)
	return
}

// chainBuckets - Returns the bucket with the given id followed by its overflow chain, in chain order
func (F *Files) chainBuckets(bucketID int32) (buckets []*bucket, err error) {
	iterator := overflow.NewPages(F.fetchBucket, bucketID)

	var page overflow.Page
	for iterator.HasNext() {
		page, err = iterator.Next()
		if err != nil {
			return
		}

		buckets = append(buckets, page.(*bucket))
	}

	return
}

// visitBuckets - Calls visit for every bucket, main buckets in directory slot order each followed
// by its overflow chain. Buckets referenced by more than one slot are visited once.
func (F *Files) visitBuckets(visit func(bkt *bucket) error) (err error) {
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

		for _, bkt := range chain {
			err = visit(bkt)
			if err != nil {
				return
			}
		}
	}

	return
}

// splitBucket - Splits a full bucket into two new buckets over hash bit local depth.
// Items move to the high bucket when that bit of their key's hash is set, directory slots
// referencing the old bucket are repointed by the same bit of the slot index, and the old bucket
// file is removed. A bucket below the depth ceiling never has an overflow chain, so only the
// bucket's own items redistribute.
func (F *Files) splitBucket(main *bucket) (err error) {
	low := &bucket{bucketID: F.nextBucketID, localDepth: main.localDepth + 1, next: overflow.None}
	high := &bucket{bucketID: F.nextBucketID + 1, localDepth: main.localDepth + 1, next: overflow.None}
	F.nextBucketID += 2

	var itemKey []byte
	for _, item := range main.items {
		itemKey, err = F.sch.KeyFromBuffer(item)
		if err != nil {
			return
		}

		if F.hashAlgorithm.HashFunc(itemKey)>>main.localDepth&1 == 1 {
			high.items = append(high.items, item)
		} else {
			low.items = append(low.items, item)
		}
	}

	err = F.createBucket(low)
	if err != nil {
		return
	}
	err = F.createBucket(high)
	if err != nil {
		return
	}

	for i, bucketID := range F.directory {
		if bucketID == main.bucketID {
			if i>>main.localDepth&1 == 1 {
				F.directory[i] = high.bucketID
			} else {
				F.directory[i] = low.bucketID
			}
		}
	}

	err = F.writeDirectory()
	if err != nil {
		return
	}

	err = F.removeBucket(main.bucketID)

	return
}

// doubleDirectory - Doubles the directory by mirroring its slots and raises the global depth.
// A slot in the new half shares its bucket with the slot global depth bits below it, the buckets
// themselves are untouched.
func (F *Files) doubleDirectory() (err error) {
	F.directory = append(F.directory, F.directory...)
	F.globalDepth++

	err = F.writeDirectory()

	return
}

// extendChain - Grows the overflow chain of a bucket at the depth ceiling by one bucket holding
// the given payload
func (F *Files) extendChain(tail *bucket, payload []byte) (position int64, err error) {
	ovfl := &bucket{
		bucketID:   F.nextBucketID,
		localDepth: tail.localDepth,
		isOverflow: true,
		next:       overflow.None,
		items:      [][]byte{payload},
	}
	F.nextBucketID++

	err = F.createBucket(ovfl)
	if err != nil {
		return
	}

	tail.next = ovfl.bucketID
	err = F.writeBucket(tail)
	if err != nil {
		return
	}

	err = F.writeDirectory()
	if err != nil {
		return
	}

	position = int64(ovfl.bucketID)

	return
}

// bucketFileNames - Returns the names of all bucket files of the table
func (F *Files) bucketFileNames() (names []string, err error) {
	names, err = filepath.Glob(fmt.Sprintf("%s-bucket-*.bin", F.name))
	if err != nil {
		err = fmt.Errorf("error while listing bucket files: %s", err)
	}

	return
}

// removeAllBucketFiles - Closes every open bucket handle and deletes every bucket file of the table
func (F *Files) removeAllBucketFiles() (err error) {
	for _, filePtr := range F.bucketFiles {
		storage.CloseStorageFile(filePtr)
	}
	F.bucketFiles = make(map[int32]*os.File)

	names, err := F.bucketFileNames()
	if err != nil {
		return
	}

	err = storage.RemoveStorageFile(names...)

	return
}
