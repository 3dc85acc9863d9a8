// Package hash implements the internally used default hash algorithm for
// the extendible hashing organization.
package hash

import "hash/crc32"

// CRC32HashAlgorithm - The internally used hash algorithm. It is implemented using
// crc32.ChecksumIEEE to create a hash value over the key, of which the directory
// then uses the lowest global-depth bits as bucket index.
type CRC32HashAlgorithm struct{}

// NewCRC32HashAlgorithm - Returns a pointer to a new CRC32HashAlgorithm instance
func NewCRC32HashAlgorithm() *CRC32HashAlgorithm {
	return &CRC32HashAlgorithm{}
}

// HashFunc - Given key it generates a non-negative hash value
func (C *CRC32HashAlgorithm) HashFunc(key []byte) int64 {
	return int64(crc32.ChecksumIEEE(key))
}
