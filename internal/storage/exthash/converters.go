package exthash

import (
	"encoding/binary"
	"fmt"
)

// dirHeaderLength - Is the length of the directory file header, global depth and max global depth
// of 1 byte each followed by the next bucket id and the directory length of 4 bytes each
const dirHeaderLength int64 = 10

// bucketHeaderLength - Is the length of a bucket file header, local depth and overflow flag of
// 1 byte each followed by the next bucket link and the item count of 4 bytes each
const bucketHeaderLength int64 = 10

// dirHeader - The directory file header fields
type dirHeader struct {
	globalDepth     int
	maxGlobalDepth  int
	nextBucketID    int32
	directoryLength int32
}

// bucket - One bucket file held in memory, the main bucket of a directory slot or an overflow
// bucket chained behind it. Items are whole serialized records. A next link of overflow.None ends
// the chain.
type bucket struct {
	bucketID   int32
	localDepth int
	isOverflow bool
	next       int32
	items      [][]byte
}

// NextPageID - Returns the id of the bucket following this one in its overflow chain, or overflow.None
func (B *bucket) NextPageID() int32 {
	return B.next
}

// bytesToDirHeader - Converts a byte slice of directory header length to a dirHeader struct
func bytesToDirHeader(buf []byte) (header dirHeader) {
	header = dirHeader{
		globalDepth:     int(buf[0]),
		maxGlobalDepth:  int(buf[1]),
		nextBucketID:    int32(binary.LittleEndian.Uint32(buf[2:6])),
		directoryLength: int32(binary.LittleEndian.Uint32(buf[6:10])),
	}

	return
}

// dirHeaderToBytes - Converts a dirHeader struct to a byte slice of directory header length
func dirHeaderToBytes(header dirHeader) (buf []byte) {
	buf = make([]byte, dirHeaderLength)
	buf[0] = byte(header.globalDepth)
	buf[1] = byte(header.maxGlobalDepth)
	binary.LittleEndian.PutUint32(buf[2:6], uint32(header.nextBucketID))
	binary.LittleEndian.PutUint32(buf[6:10], uint32(header.directoryLength))

	return
}

// bytesToDirectorySlots - Converts directory slot bytes to bucket ids
func bytesToDirectorySlots(buf []byte, directoryLength int32) (slots []int32) {
	slots = make([]int32, directoryLength)
	for i := int32(0); i < directoryLength; i++ {
		slots[i] = int32(binary.LittleEndian.Uint32(buf[i*4 : i*4+4]))
	}

	return
}

// directorySlotsToBytes - Converts bucket ids to directory slot bytes
func directorySlotsToBytes(slots []int32) (buf []byte) {
	buf = make([]byte, len(slots)*4)
	for i, id := range slots {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], uint32(id))
	}

	return
}

// bytesToBucket - Converts a byte slice of bucket file length to a bucket struct
//   - buf is the byte slice to convert
//   - recordLength is the length of one serialized record
//
// It returns:
//   - bkt which is a pointer to the converted bucket
//   - err which is an error if the stored item count exceeds the bucket capacity
func bytesToBucket(buf []byte, recordLength int64) (bkt *bucket, err error) {
	capacity := (int64(len(buf)) - bucketHeaderLength) / recordLength

	count := int64(int32(binary.LittleEndian.Uint32(buf[6:10])))
	if count < 0 || count > capacity {
		err = fmt.Errorf("bucket item count %d outside capacity %d", count, capacity)
		return
	}

	bkt = &bucket{
		localDepth: int(buf[0]),
		isOverflow: buf[1] == 1,
		next:       int32(binary.LittleEndian.Uint32(buf[2:6])),
		items:      make([][]byte, count),
	}

	for i := int64(0); i < count; i++ {
		offset := bucketHeaderLength + i*recordLength
		item := make([]byte, recordLength)
		_ = copy(item, buf[offset:offset+recordLength])
		bkt.items[i] = item
	}

	return
}

// bucketToBytes - Converts a bucket struct to a byte slice of bucket file length, unused item
// slots are zero filled
//   - bkt is the bucket to convert
//   - recordLength is the length of one serialized record
//   - bucketLength is the fixed bucket file length
//
// It returns:
//   - buf which is the resulting byte slice
func bucketToBytes(bkt *bucket, recordLength, bucketLength int64) (buf []byte) {
	buf = make([]byte, bucketLength)
	buf[0] = byte(bkt.localDepth)
	if bkt.isOverflow {
		buf[1] = 1
	}
	binary.LittleEndian.PutUint32(buf[2:6], uint32(bkt.next))
	binary.LittleEndian.PutUint32(buf[6:10], uint32(int32(len(bkt.items))))

	for i, item := range bkt.items {
		offset := bucketHeaderLength + int64(i)*recordLength
		_ = copy(buf[offset:offset+recordLength], item)
	}

	return
}
