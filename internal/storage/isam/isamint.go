package isam

import (
	"encoding/binary"
	"fmt"
	"github.com/JoseEd0/tablefile/fileorg"
	"github.com/JoseEd0/tablefile/internal/overflow"
	"github.com/JoseEd0/tablefile/internal/storage"
	"github.com/JoseEd0/tablefile/schema"
)

// keyedRecord - Is an internal struct keeping a record together with its encoded key while sorting
type keyedRecord struct {
	key    []byte
	record schema.Record
}

// createNewFiles - Creates the three backing files and writes an empty directory
func (F *Files) createNewFiles() (err error) {
	F.dirFile, err = storage.CreateStorageFile(F.dirFileName, 0)
	if err != nil {
		return
	}

	F.pagesFile, err = storage.CreateStorageFile(F.pagesFileName, 0)
	if err != nil {
		storage.CloseStorageFile(F.dirFile)
		F.dirFile = nil
		return
	}

	F.rowsFile, err = storage.CreateStorageFile(F.rowsFileName, 0)
	if err != nil {
		storage.CloseStorageFile(F.dirFile)
		storage.CloseStorageFile(F.pagesFile)
		F.dirFile = nil
		F.pagesFile = nil
		return
	}

	err = F.writeDirectory()

	return
}

// openFiles - Opens the three backing files, reads the directory and derives the super root.
// It fails with a fileorg.CorruptHeader error if any file is missing, if the directory entry counts
// don't add up to its file size, or if the pages file size is not a whole number of pages.
func (F *Files) openFiles() (err error) {
	F.dirFile, err = storage.OpenStorageFile(F.dirFileName, emptyDirectoryLength)
	if err != nil {
		return
	}

	err = F.readDirectory()
	if err != nil {
		storage.CloseStorageFile(F.dirFile)
		F.dirFile = nil
		return
	}

	F.pagesFile, err = storage.OpenStorageFile(F.pagesFileName, 0)
	if err != nil {
		storage.CloseStorageFile(F.dirFile)
		F.dirFile = nil
		return
	}

	stat, err := F.pagesFile.Stat()
	if err != nil {
		err = fmt.Errorf("error while getting pages file stats: %s", err)
		storage.CloseStorageFile(F.dirFile)
		storage.CloseStorageFile(F.pagesFile)
		F.dirFile = nil
		F.pagesFile = nil
		return
	}
	if stat.Size()%F.pageLength != 0 || stat.Size() < int64(len(F.leaves))*F.pageLength {
		err = fileorg.CorruptHeader{}
		storage.CloseStorageFile(F.dirFile)
		storage.CloseStorageFile(F.pagesFile)
		F.dirFile = nil
		F.pagesFile = nil
		return
	}
	F.nextPageNo = stat.Size() / F.pageLength

	F.rowsFile, err = storage.OpenStorageFile(F.rowsFileName, 0)
	if err != nil {
		storage.CloseStorageFile(F.dirFile)
		storage.CloseStorageFile(F.pagesFile)
		F.dirFile = nil
		F.pagesFile = nil
	}

	return
}

// readDirectory - Reads the whole directory file and derives the in memory super root
func (F *Files) readDirectory() (err error) {
	stat, err := F.dirFile.Stat()
	if err != nil {
		err = fmt.Errorf("error while getting directory file stats: %s", err)
		return
	}

	buf, err := storage.GetBlock(F.dirFile, 0, stat.Size())
	if err != nil {
		err = fmt.Errorf("error while reading directory file: %s", err)
		return
	}

	leaves, roots, err := bytesToDirectory(buf, F.keyLength)
	if err != nil {
		err = fileorg.CorruptHeader{}
		return
	}

	F.leaves = leaves
	F.roots = roots
	F.super = deriveSuper(roots, F.superFactor)

	return
}

// writeDirectory - Writes the leaf and root entries as the whole directory file
func (F *Files) writeDirectory() (err error) {
	buf := directoryToBytes(F.leaves, F.roots, F.keyLength)

	err = F.dirFile.Truncate(int64(len(buf)))
	if err != nil {
		err = fmt.Errorf("error while truncating directory file: %s", err)
		return
	}

	err = storage.SetBlock(F.dirFile, buf, 0)
	if err != nil {
		err = fmt.Errorf("error while writing directory file: %s", err)
	}

	return
}

// buildFromSlots - Builds the static directory from slots sorted ascending by key.
// The slots are chunked into primary pages of block factor size, one leaf entry is written per page
// holding its max key, the leaves are grouped into root entries of root factor size, and the super
// root is derived in memory from the roots. The directory stays as built until the table is cleared.
func (F *Files) buildFromSlots(slots []slot) (err error) {
	if len(slots) == 0 {
		return
	}

	var pg *page
	for from := int64(0); from < int64(len(slots)); from += F.blockFactor {
		to := from + F.blockFactor
		if to > int64(len(slots)) {
			to = int64(len(slots))
		}

		pg = &page{next: overflow.None, slots: slots[from:to]}
		_, err = F.appendPage(pg)
		if err != nil {
			return
		}

		F.leaves = append(F.leaves, dirEntry{MaxKey: slots[to-1].Key, Value: pg.pageNo})
	}

	for from := int64(0); from < int64(len(F.leaves)); from += F.rootFactor {
		to := from + F.rootFactor
		if to > int64(len(F.leaves)) {
			to = int64(len(F.leaves))
		}

		F.roots = append(F.roots, dirEntry{MaxKey: F.leaves[to-1].MaxKey, Value: int32(from)})
	}

	F.super = deriveSuper(F.roots, F.superFactor)

	err = F.writeDirectory()

	return
}

// deriveSuper - Groups root entries into super root entries of super factor size
func deriveSuper(roots []dirEntry, superFactor int64) (super []dirEntry) {
	for from := int64(0); from < int64(len(roots)); from += superFactor {
		to := from + superFactor
		if to > int64(len(roots)) {
			to = int64(len(roots))
		}

		super = append(super, dirEntry{MaxKey: roots[to-1].MaxKey, Value: int32(from)})
	}

	return
}

// descend - Walks super root, root and leaf levels down to the primary page owning the given key.
// At every level the first entry whose max key is on or after the key is chosen, keys beyond the
// last boundary land in the last entry. The directory must not be empty.
func (F *Files) descend(key []byte) (leafIndex int64) {
	superIndex := F.firstBoundary(F.super, 0, int64(len(F.super)), key)

	rootFrom := int64(F.super[superIndex].Value)
	rootTo := rootFrom + F.superFactor
	if rootTo > int64(len(F.roots)) {
		rootTo = int64(len(F.roots))
	}
	rootIndex := F.firstBoundary(F.roots, rootFrom, rootTo, key)

	leafFrom := int64(F.roots[rootIndex].Value)
	leafTo := leafFrom + F.rootFactor
	if leafTo > int64(len(F.leaves)) {
		leafTo = int64(len(F.leaves))
	}
	leafIndex = F.firstBoundary(F.leaves, leafFrom, leafTo, key)

	return
}

// firstBoundary - Returns the index of the first entry within [from, to) whose max key is on or
// after the given key, or the last index when the key lies beyond every boundary
func (F *Files) firstBoundary(entries []dirEntry, from, to int64, key []byte) (index int64) {
	low, high := from, to
	for low < high {
		mid := (low + high) / 2
		if F.sch.CompareKeys(entries[mid].MaxKey, key) >= 0 {
			high = mid
		} else {
			low = mid + 1
		}
	}

	if low == to {
		index = to - 1
	} else {
		index = low
	}

	return
}

// appendPage - Writes a page at the end of the pages file and assigns it the next page number
func (F *Files) appendPage(pg *page) (pageNo int32, err error) {
	pg.pageNo = int32(F.nextPageNo)

	err = storage.SetBlock(F.pagesFile, pageToBytes(pg, F.keyLength, F.pageLength), F.nextPageNo*F.pageLength)
	if err != nil {
		err = fmt.Errorf("error while appending page to pages file: %s", err)
		return
	}

	F.nextPageNo++
	pageNo = pg.pageNo

	return
}

// readPage - Reads the page with the given page number
func (F *Files) readPage(pageNo int64) (pg *page, err error) {
	buf, err := storage.GetBlock(F.pagesFile, pageNo*F.pageLength, F.pageLength)
	if err != nil {
		err = fmt.Errorf("error while reading page %d: %s", pageNo, err)
		return
	}

	pg, err = bytesToPage(buf, F.keyLength)
	if err != nil {
		err = fmt.Errorf("error while converting page %d: %s", pageNo, err)
		return
	}

	pg.pageNo = int32(pageNo)

	return
}

// writePage - Writes a page back at the offset given by its page number
func (F *Files) writePage(pg *page) (err error) {
	err = storage.SetBlock(F.pagesFile, pageToBytes(pg, F.keyLength, F.pageLength), int64(pg.pageNo)*F.pageLength)
	if err != nil {
		err = fmt.Errorf("error while writing page %d: %s", pg.pageNo, err)
	}

	return
}

// fetchPage - Loads an overflow chain page, it adapts readPage to the overflow.FetchFunc signature
func (F *Files) fetchPage(pageID int32) (pg overflow.Page, err error) {
	pg, err = F.readPage(int64(pageID))
	return
}

// chainPages - Returns all pages of the overflow chain starting at the given head, in chain order
func (F *Files) chainPages(head int32) (pages []*page, err error) {
	iterator := overflow.NewPages(F.fetchPage, head)

	var pg overflow.Page
	for iterator.HasNext() {
		pg, err = iterator.Next()
		if err != nil {
			return
		}

		pages = append(pages, pg.(*page))
	}

	return
}

// appendToChain - Appends a slot at the tail of a full primary page's overflow chain.
// A new page is allocated when the chain is empty or its tail page is full. Chain slots are kept
// in arrival order, they are never sorted.
func (F *Files) appendToChain(primary *page, newSlot slot) (err error) {
	chain, err := F.chainPages(primary.next)
	if err != nil {
		return
	}

	if len(chain) > 0 {
		tail := chain[len(chain)-1]
		if int64(len(tail.slots)) < F.blockFactor {
			tail.slots = append(tail.slots, newSlot)
			err = F.writePage(tail)
			return
		}

		var pageNo int32
		pageNo, err = F.appendPage(&page{next: overflow.None, slots: []slot{newSlot}})
		if err != nil {
			return
		}

		tail.next = pageNo
		err = F.writePage(tail)
		return
	}

	pageNo, err := F.appendPage(&page{next: overflow.None, slots: []slot{newSlot}})
	if err != nil {
		return
	}

	primary.next = pageNo
	err = F.writePage(primary)

	return
}

// appendRow - Encodes a record and appends it as a length prefixed row at the end of the rows log
func (F *Files) appendRow(record schema.Record) (offset int64, err error) {
	payload, err := F.sch.Encode(record)
	if err != nil {
		return
	}

	buf := make([]byte, 4+len(payload))
	binary.LittleEndian.PutUint32(buf[:4], uint32(len(payload)))
	_ = copy(buf[4:], payload)

	offset, err = storage.AppendBlock(F.rowsFile, buf)
	if err != nil {
		err = fmt.Errorf("error while appending row to rows log: %s", err)
	}

	return
}

// readRow - Reads the length prefixed row at the given rows log offset and decodes it
func (F *Files) readRow(offset int64) (record schema.Record, err error) {
	buf, err := storage.GetBlock(F.rowsFile, offset, 4)
	if err != nil {
		err = fmt.Errorf("error while reading row length at offset %d: %s", offset, err)
		return
	}

	length := int64(binary.LittleEndian.Uint32(buf))
	if length != int64(F.sch.RecordLength()) {
		err = fileorg.SchemaMismatch{}
		return
	}

	buf, err = storage.GetBlock(F.rowsFile, offset+4, length)
	if err != nil {
		err = fmt.Errorf("error while reading row at offset %d: %s", offset, err)
		return
	}

	record, err = F.sch.Decode(buf)

	return
}

// collectMatches - Appends a keyed record to matches for every page slot with a key within the
// given bounds, both inclusive
func (F *Files) collectMatches(pg *page, begin, end []byte, matches []keyedRecord) (result []keyedRecord, err error) {
	result = matches

	var record schema.Record
	for _, s := range pg.slots {
		if F.sch.CompareKeys(s.Key, begin) >= 0 && F.sch.CompareKeys(s.Key, end) <= 0 {
			record, err = F.readRow(s.Offset)
			if err != nil {
				return
			}
			result = append(result, keyedRecord{key: s.Key, record: record})
		}
	}

	return
}

// collectAll - Appends a keyed record to matches for every page slot
func (F *Files) collectAll(pg *page, matches []keyedRecord) (result []keyedRecord, err error) {
	result = matches

	var record schema.Record
	for _, s := range pg.slots {
		record, err = F.readRow(s.Offset)
		if err != nil {
			return
		}
		result = append(result, keyedRecord{key: s.Key, record: record})
	}

	return
}

// filterPage - Removes every slot matching the given key from a page and writes the page back if
// anything was removed. Remaining slots keep their relative order.
func (F *Files) filterPage(pg *page, key []byte) (dropped int64, err error) {
	kept := make([]slot, 0, len(pg.slots))
	for _, s := range pg.slots {
		if F.sch.CompareKeys(s.Key, key) == 0 {
			dropped++
		} else {
			kept = append(kept, s)
		}
	}

	if dropped > 0 {
		pg.slots = kept
		err = F.writePage(pg)
	}

	return
}
