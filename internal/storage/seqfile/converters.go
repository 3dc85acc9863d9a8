package seqfile

import (
	"encoding/binary"
)

// diskEndLink - On disk form of a Link terminating the chain
const diskEndLink int32 = -1

// diskTombstoneLink - On disk form of a Link marking its owning entry as logically deleted
const diskTombstoneLink int32 = -2

// indexHeader - Cached header of the sequential index file
type indexHeader struct {
	root         Link
	primaryCount int64
	auxCount     int64
}

// bytesToHeader - Converts index file header raw data to an indexHeader struct
func bytesToHeader(buf []byte) (header indexHeader) {
	header = indexHeader{
		root:         linkFromDisk(int32(binary.LittleEndian.Uint32(buf))),
		primaryCount: int64(binary.LittleEndian.Uint32(buf[4:])),
		auxCount:     int64(binary.LittleEndian.Uint32(buf[8:])),
	}

	return
}

// headerToBytes - Converts an indexHeader struct to bytes
func headerToBytes(header indexHeader) (buf []byte) {
	buf = make([]byte, headerLength)
	binary.LittleEndian.PutUint32(buf, uint32(linkToDisk(header.root)))
	binary.LittleEndian.PutUint32(buf[4:], uint32(header.primaryCount))
	binary.LittleEndian.PutUint32(buf[8:], uint32(header.auxCount))

	return
}

// bytesToEntry - Converts index entry raw data to an Entry struct
func bytesToEntry(buf []byte, keyLength int64) (entry Entry) {
	key := make([]byte, keyLength)
	_ = copy(key, buf[:keyLength])

	entry = Entry{
		Key:          key,
		HeapPosition: int32(binary.LittleEndian.Uint32(buf[keyLength:])),
		Next:         linkFromDisk(int32(binary.LittleEndian.Uint32(buf[keyLength+4:]))),
	}

	return
}

// entryToBytes - Converts an Entry struct to bytes
func entryToBytes(entry Entry, keyLength int64) (buf []byte) {
	buf = make([]byte, keyLength+entryTailLength)
	_ = copy(buf, entry.Key)
	binary.LittleEndian.PutUint32(buf[keyLength:], uint32(entry.HeapPosition))
	binary.LittleEndian.PutUint32(buf[keyLength+4:], uint32(linkToDisk(entry.Next)))

	return
}

// linkFromDisk - Converts an on disk link value to its tagged Link form
func linkFromDisk(v int32) (link Link) {
	switch v {
	case diskEndLink:
		link = EndLink()
	case diskTombstoneLink:
		link = TombstoneLink()
	default:
		link = EntryLink(v)
	}

	return
}

// linkToDisk - Converts a tagged Link to its on disk int32 form
func linkToDisk(link Link) (v int32) {
	switch {
	case link.IsTombstone():
		v = diskTombstoneLink
	case link.IsEntry():
		v = link.Index()
	default:
		v = diskEndLink
	}

	return
}
