// Package conf holds the tuning defaults and limits shared by the file
// organizations and the facade on top of them.
package conf

// DefaultBlockFactor - Number of record slots in an ISAM primary or overflow page
const DefaultBlockFactor int64 = 4

// DefaultRootFactor - Number of leaf entries grouped under one root entry in the ISAM directory
const DefaultRootFactor int64 = 8

// DefaultSuperFactor - Number of root entries grouped under one super-root entry in the ISAM directory
const DefaultSuperFactor int64 = 8

// DefaultMaxAuxSize - Number of auxiliary entries a sequential file accepts before it reconstructs
const DefaultMaxAuxSize int64 = 100

// MinMaxAuxSize - Lower bound the adaptive reconstruction threshold never goes below
const MinMaxAuxSize int64 = 10

// DefaultOrder - Max number of keys per B+Tree node
const DefaultOrder int64 = 4

// MinOrder - Smallest B+Tree node size that still splits into two non-empty halves
const MinOrder int64 = 2

// DefaultBucketCapacity - Number of records per extendible hashing bucket
const DefaultBucketCapacity int64 = 4

// DefaultGlobalDepth - Directory depth an extendible hashing table starts with
const DefaultGlobalDepth int = 2

// DefaultMaxGlobalDepth - Directory depth ceiling beyond which buckets chain overflow pages
const DefaultMaxGlobalDepth int = 4

// MaxGlobalDepthLimit - Hard upper bound for the directory depth ceiling
const MaxGlobalDepthLimit int = 24
