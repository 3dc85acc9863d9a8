package fileorg

// KeyNotFound - Custom error to inform that no record with the given key was found.
// The storage operations report misses as ordinary empty results and never return
// this error themselves, it is available to callers that promote a miss to an error.
type KeyNotFound struct {
	msg string
}

// Error - Used to notify that no record with the given key was found
func (E KeyNotFound) Error() string {
	if E.msg == "" {
		return "key not found"
	}
	return E.msg
}

// DuplicateKey - Custom error to inform that a record with the given key already exists
type DuplicateKey struct {
	msg string
}

// Error - Used to notify that a record with the given key already exists
func (E DuplicateKey) Error() string {
	if E.msg == "" {
		return "duplicate key"
	}
	return E.msg
}

// PositionOutOfRange - Custom error to inform that a position lies outside the stored record range
type PositionOutOfRange struct {
	msg string
}

// Error - Used to notify that a position lies outside the stored record range
func (E PositionOutOfRange) Error() string {
	if E.msg == "" {
		return "position out of range"
	}
	return E.msg
}

// SchemaMismatch - Custom error to inform that a record disagrees with the table schema
type SchemaMismatch struct {
	msg string
}

// Error - Used to notify that a record disagrees with the table schema
func (E SchemaMismatch) Error() string {
	if E.msg == "" {
		return "record does not match schema"
	}
	return E.msg
}

// NotSupported - Custom error to inform that an operation is not available for the table's organization
type NotSupported struct {
	msg string
}

// Error - Used to notify that an operation is not available for the table's organization
func (E NotSupported) Error() string {
	if E.msg == "" {
		return "operation not supported by this file organization"
	}
	return E.msg
}

// CorruptHeader - Custom error to inform that a backing file is missing, truncated or has a bad header
type CorruptHeader struct {
	msg string
}

// Error - Used to notify that a backing file is missing, truncated or has a bad header
func (E CorruptHeader) Error() string {
	if E.msg == "" {
		return "backing file missing or corrupt"
	}
	return E.msg
}
