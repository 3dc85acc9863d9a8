//go:build unit

package exthash

import (
	"github.com/JoseEd0/tablefile/internal/overflow"
	"github.com/stretchr/testify/assert"
	"testing"
)

// TestBucketConverters - Tests the bytesToBucket and bucketToBytes functions
func TestBucketConverters(t *testing.T) {
	t.Run("bucket converts back and forth", func(t *testing.T) {
		// Prepare
		recordLength := int64(6)
		bucketLength := bucketHeaderLength + 3*recordLength
		original := &bucket{
			localDepth: 2,
			isOverflow: true,
			next:       9,
			items: [][]byte{
				{1, 2, 3, 4, 5, 6},
				{7, 8, 9, 10, 11, 12},
			},
		}

		// Execute
		buf := bucketToBytes(original, recordLength, bucketLength)
		converted, err := bytesToBucket(buf, recordLength)

		// Check
		assert.NoError(t, err, "convert bytes to bucket")
		assert.Equal(t, bucketLength, int64(len(buf)), "bucket buffer length")
		assert.Equal(t, original.localDepth, converted.localDepth, "local depth")
		assert.Equal(t, original.isOverflow, converted.isOverflow, "overflow flag")
		assert.Equal(t, original.next, converted.next, "next bucket link")
		assert.Equal(t, original.items, converted.items, "bucket items")
	})

	t.Run("empty bucket keeps its chain end", func(t *testing.T) {
		// Prepare
		recordLength := int64(6)
		bucketLength := bucketHeaderLength + 2*recordLength

		// Execute
		buf := bucketToBytes(&bucket{localDepth: 1, next: overflow.None}, recordLength, bucketLength)
		converted, err := bytesToBucket(buf, recordLength)

		// Check
		assert.NoError(t, err, "convert bytes to bucket")
		assert.Equal(t, overflow.None, converted.next, "chain end preserved")
		assert.False(t, converted.isOverflow, "main bucket flag preserved")
		assert.Zero(t, len(converted.items), "no items")
	})

	t.Run("item count outside capacity is rejected", func(t *testing.T) {
		// Prepare
		recordLength := int64(6)
		bucketLength := bucketHeaderLength + 2*recordLength
		buf := bucketToBytes(&bucket{next: overflow.None}, recordLength, bucketLength)
		buf[6] = 9

		// Execute
		_, err := bytesToBucket(buf, recordLength)

		// Check
		assert.Error(t, err, "item count beyond capacity rejected")
	})
}

// TestDirectoryConverters - Tests the directory header and slot converters
func TestDirectoryConverters(t *testing.T) {
	t.Run("header converts back and forth", func(t *testing.T) {
		// Prepare
		original := dirHeader{
			globalDepth:     3,
			maxGlobalDepth:  5,
			nextBucketID:    17,
			directoryLength: 8,
		}

		// Execute
		converted := bytesToDirHeader(dirHeaderToBytes(original))

		// Check
		assert.Equal(t, original, converted, "directory header")
	})

	t.Run("slots convert back and forth", func(t *testing.T) {
		// Prepare
		original := []int32{4, 1, 5, 1}

		// Execute
		converted := bytesToDirectorySlots(directorySlotsToBytes(original), int32(len(original)))

		// Check
		assert.Equal(t, original, converted, "directory slots")
	})
}
