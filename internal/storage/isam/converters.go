package isam

import (
	"encoding/binary"
	"fmt"
)

// pageHeaderLength - Is the length of a page header, a slot count and a next page link of 4 bytes each
const pageHeaderLength int64 = 8

// slotOffsetLength - Is the length of the rows log offset stored in every page slot
const slotOffsetLength int64 = 8

// emptyDirectoryLength - Is the length of a directory file holding no entries, two zero counts
const emptyDirectoryLength int64 = 8

// dirEntry - One directory entry, MaxKey bounds the child and Value addresses it.
// For leaf entries Value is a page number, for root entries the index of the first leaf entry in
// the group, and for the in memory super root the index of the first root entry in the group.
type dirEntry struct {
	MaxKey []byte
	Value  int32
}

// slot - One page slot, the encoded key and the offset of the row payload in the rows log
type slot struct {
	Key    []byte
	Offset int64
}

// page - One primary or overflow page. The pageNo is not stored in the page itself, it is set from
// the offset a page was read from. A next link of overflow.None ends the chain.
type page struct {
	pageNo int32
	next   int32
	slots  []slot
}

// NextPageID - Returns the id of the page following this one in its overflow chain, or overflow.None
func (P *page) NextPageID() int32 {
	return P.next
}

// bytesToPage - Converts a byte slice of page length to a page struct
//   - buf is the byte slice to convert
//   - keyLength is the length of an encoded key
//
// It returns:
//   - pg which is a pointer to the converted page
//   - err which is an error if the stored slot count exceeds the page capacity
func bytesToPage(buf []byte, keyLength int64) (pg *page, err error) {
	slotLength := keyLength + slotOffsetLength
	capacity := (int64(len(buf)) - pageHeaderLength) / slotLength

	count := int64(int32(binary.LittleEndian.Uint32(buf[:4])))
	if count < 0 || count > capacity {
		err = fmt.Errorf("page slot count %d outside capacity %d", count, capacity)
		return
	}

	pg = &page{
		next:  int32(binary.LittleEndian.Uint32(buf[4:8])),
		slots: make([]slot, count),
	}

	for i := int64(0); i < count; i++ {
		offset := pageHeaderLength + i*slotLength
		key := make([]byte, keyLength)
		_ = copy(key, buf[offset:offset+keyLength])
		pg.slots[i] = slot{
			Key:    key,
			Offset: int64(binary.LittleEndian.Uint64(buf[offset+keyLength : offset+slotLength])),
		}
	}

	return
}

// pageToBytes - Converts a page struct to a byte slice of page length, unused slots are zero filled
//   - pg is the page to convert
//   - keyLength is the length of an encoded key
//   - pageLength is the fixed page length
//
// It returns:
//   - buf which is the resulting byte slice
func pageToBytes(pg *page, keyLength, pageLength int64) (buf []byte) {
	slotLength := keyLength + slotOffsetLength

	buf = make([]byte, pageLength)
	binary.LittleEndian.PutUint32(buf[:4], uint32(int32(len(pg.slots))))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(pg.next))

	for i, s := range pg.slots {
		offset := pageHeaderLength + int64(i)*slotLength
		_ = copy(buf[offset:offset+keyLength], s.Key)
		binary.LittleEndian.PutUint64(buf[offset+keyLength:offset+slotLength], uint64(s.Offset))
	}

	return
}

// bytesToDirectory - Converts the full contents of a directory file to leaf and root entries
//   - buf is the byte slice to convert
//   - keyLength is the length of an encoded key
//
// It returns:
//   - leaves which are the leaf entries addressing primary pages
//   - roots which are the root entries addressing leaf groups
//   - err which is an error if the entry counts don't add up to the buffer length
func bytesToDirectory(buf []byte, keyLength int64) (leaves, roots []dirEntry, err error) {
	entryLength := keyLength + 4

	if int64(len(buf)) < emptyDirectoryLength {
		err = fmt.Errorf("directory shorter than its entry counts")
		return
	}

	leafCount := int64(int32(binary.LittleEndian.Uint32(buf[:4])))
	if leafCount < 0 || emptyDirectoryLength+leafCount*entryLength > int64(len(buf)) {
		err = fmt.Errorf("directory leaf count %d doesn't fit the file", leafCount)
		return
	}

	offset := int64(4)
	leaves = make([]dirEntry, leafCount)
	for i := int64(0); i < leafCount; i++ {
		leaves[i] = bytesToDirEntry(buf[offset:offset+entryLength], keyLength)
		offset += entryLength
	}

	rootCount := int64(int32(binary.LittleEndian.Uint32(buf[offset : offset+4])))
	offset += 4
	if rootCount < 0 || offset+rootCount*entryLength != int64(len(buf)) {
		err = fmt.Errorf("directory root count %d doesn't fit the file", rootCount)
		leaves = nil
		return
	}

	roots = make([]dirEntry, rootCount)
	for i := int64(0); i < rootCount; i++ {
		roots[i] = bytesToDirEntry(buf[offset:offset+entryLength], keyLength)
		offset += entryLength
	}

	return
}

// directoryToBytes - Converts leaf and root entries to the full contents of a directory file
//   - leaves are the leaf entries addressing primary pages
//   - roots are the root entries addressing leaf groups
//   - keyLength is the length of an encoded key
//
// It returns:
//   - buf which is the resulting byte slice
func directoryToBytes(leaves, roots []dirEntry, keyLength int64) (buf []byte) {
	entryLength := keyLength + 4

	buf = make([]byte, emptyDirectoryLength+int64(len(leaves)+len(roots))*entryLength)
	binary.LittleEndian.PutUint32(buf[:4], uint32(int32(len(leaves))))

	offset := int64(4)
	for _, entry := range leaves {
		dirEntryToBytes(entry, buf[offset:offset+entryLength], keyLength)
		offset += entryLength
	}

	binary.LittleEndian.PutUint32(buf[offset:offset+4], uint32(int32(len(roots))))
	offset += 4
	for _, entry := range roots {
		dirEntryToBytes(entry, buf[offset:offset+entryLength], keyLength)
		offset += entryLength
	}

	return
}

// bytesToDirEntry - Converts a byte slice of entry length to a dirEntry struct
func bytesToDirEntry(buf []byte, keyLength int64) (entry dirEntry) {
	key := make([]byte, keyLength)
	_ = copy(key, buf[:keyLength])

	entry = dirEntry{
		MaxKey: key,
		Value:  int32(binary.LittleEndian.Uint32(buf[keyLength : keyLength+4])),
	}

	return
}

// dirEntryToBytes - Converts a dirEntry struct to bytes within the given byte slice
func dirEntryToBytes(entry dirEntry, buf []byte, keyLength int64) {
	_ = copy(buf[:keyLength], entry.MaxKey)
	binary.LittleEndian.PutUint32(buf[keyLength:keyLength+4], uint32(entry.Value))
}
