// Package hashfunc declares the hash algorithm interface the extendible
// hashing organization selects buckets with, together with a provided
// MD5 based implementation.
package hashfunc

import (
	"crypto/md5"
	"encoding/binary"
)

// HashAlgorithm - Interface that permits an implementation using the extendible hashing
// organization to supply a custom hash algorithm suited for its particular distribution of keys.
type HashAlgorithm interface {
	// HashFunc - Given key it generates a non-negative hash value.
	// The directory uses the lowest global-depth bits of the value as bucket index, so the
	// algorithm must spread keys well over the low bits in particular.
	HashFunc(key []byte) int64
}

// MD5HashAlgorithm - A HashAlgorithm over the low 63 bits of an MD5 digest.
// It is slower than the internal default but gives a very even spread for short keys.
type MD5HashAlgorithm struct{}

// NewMD5HashAlgorithm - Returns a pointer to a new MD5HashAlgorithm instance
func NewMD5HashAlgorithm() *MD5HashAlgorithm {
	return &MD5HashAlgorithm{}
}

// HashFunc - Given key it generates a non-negative hash value
func (M *MD5HashAlgorithm) HashFunc(key []byte) int64 {
	sum := md5.Sum(key)

	// The digest read as one big-endian integer ends in its low-order bytes
	return int64(binary.BigEndian.Uint64(sum[8:]) & (1<<63 - 1))
}
