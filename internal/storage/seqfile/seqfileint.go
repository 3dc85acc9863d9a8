package seqfile

import (
	"fmt"
	"github.com/JoseEd0/tablefile/fileorg"
	"github.com/JoseEd0/tablefile/internal/conf"
	"github.com/JoseEd0/tablefile/internal/storage"
	"github.com/JoseEd0/tablefile/schema"
	"math"
	"sort"
)

// headerLength - Length of the index file header holding root position, primary count and auxiliary count
const headerLength int64 = 12

// entryTailLength - Length of the fixed tail of an index entry, heap position and next link of 4 bytes each
const entryTailLength int64 = 8

// keyedRecord - A record together with its extracted key, used when sorting a bulk load batch
type keyedRecord struct {
	key    []byte
	record schema.Record
}

// createNewIndexFile - Creates a new index file holding nothing but an empty header
func (F *Files) createNewIndexFile() (err error) {
	F.indexFile, err = storage.CreateStorageFile(F.indexFileName, headerLength)
	if err != nil {
		err = fmt.Errorf("error while creating sequential index file: %s", err)
		return
	}

	F.root = EndLink()
	F.primaryCount = 0
	F.auxCount = 0
	err = F.writeHeader()

	return
}

// openIndexFile - Opens an existing index file and caches its header.
// The file size has to add up given the entry counts in the header, otherwise the file is deemed corrupt.
func (F *Files) openIndexFile() (err error) {
	F.indexFile, err = storage.OpenStorageFile(F.indexFileName, headerLength)
	if err != nil {
		return
	}

	buf, err := storage.GetBlock(F.indexFile, 0, headerLength)
	if err != nil {
		err = fmt.Errorf("error while reading sequential index file header: %s", err)
		return
	}

	header := bytesToHeader(buf)
	F.root = header.root
	F.primaryCount = header.primaryCount
	F.auxCount = header.auxCount

	stat, err := F.indexFile.Stat()
	if err != nil {
		err = fmt.Errorf("error while retrieving sequential index file stats: %s", err)
		return
	}
	if stat.Size() != headerLength+(F.primaryCount+F.auxCount)*F.entryLength {
		storage.CloseStorageFile(F.indexFile)
		F.indexFile = nil
		err = fileorg.CorruptHeader{}
		return
	}

	return
}

// writeHeader - Writes the cached header to the index file
func (F *Files) writeHeader() (err error) {
	buf := headerToBytes(indexHeader{root: F.root, primaryCount: F.primaryCount, auxCount: F.auxCount})

	err = storage.SetBlock(F.indexFile, buf, 0)
	if err != nil {
		err = fmt.Errorf("error while writing sequential index file header: %s", err)
	}

	return
}

// entryOffset - Returns the file offset of the index entry at the given index
func (F *Files) entryOffset(index int64) (offset int64) {
	offset = headerLength + index*F.entryLength
	return
}

// readEntry - Reads the index entry at the given index
func (F *Files) readEntry(index int64) (entry Entry, err error) {
	buf, err := storage.GetBlock(F.indexFile, F.entryOffset(index), F.entryLength)
	if err != nil {
		err = fmt.Errorf("error while reading entry from sequential index file: %s", err)
		return
	}

	entry = bytesToEntry(buf, F.keyLength)

	return
}

// writeEntry - Writes the index entry at the given index
func (F *Files) writeEntry(index int64, entry Entry) (err error) {
	err = storage.SetBlock(F.indexFile, entryToBytes(entry, F.keyLength), F.entryOffset(index))
	if err != nil {
		err = fmt.Errorf("error while writing entry to sequential index file: %s", err)
	}

	return
}

// appendEntry - Writes a new index entry after the last one, growing the auxiliary area
func (F *Files) appendEntry(entry Entry) (index int32, err error) {
	next := F.primaryCount + F.auxCount
	err = F.writeEntry(next, entry)
	if err != nil {
		return
	}
	index = int32(next)

	return
}

// findWalkStart - Returns a live entry with a key strictly below the given key to start a chain
// walk from, or an end link when no such entry exists.
// The primary area is physically sorted by key which allows a binary search, and since keys only
// shrink to the left any logically deleted hit can be skipped leftwards.
func (F *Files) findWalkStart(key []byte) (start Link, err error) {
	var entry Entry

	pos := int64(-1)
	lo, hi := int64(0), F.primaryCount-1
	for lo <= hi {
		mid := (lo + hi) / 2
		entry, err = F.readEntry(mid)
		if err != nil {
			return
		}
		if F.sch.CompareKeys(entry.Key, key) < 0 {
			pos = mid
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}

	for pos >= 0 {
		entry, err = F.readEntry(pos)
		if err != nil {
			return
		}
		if !entry.Next.IsTombstone() {
			start = EntryLink(int32(pos))
			return
		}
		pos--
	}

	// The auxiliary area may still hold a root entry below the key
	if F.root.IsEntry() {
		entry, err = F.readEntry(int64(F.root.Index()))
		if err != nil {
			return
		}
		if F.sch.CompareKeys(entry.Key, key) < 0 {
			start = F.root
			return
		}
	}

	start = EndLink()

	return
}

// seek - Locates the given key in the threaded chain.
// prev is the last live entry with a key strictly below the given key, or an end link when the key
// would come before every live entry. at is the first live entry with a key on or after the given
// key, or an end link when the key would come after every live entry.
func (F *Files) seek(key []byte) (prev Link, at Link, err error) {
	start, err := F.findWalkStart(key)
	if err != nil {
		return
	}

	if !start.IsEntry() {
		prev = EndLink()
		at = F.root
		return
	}

	cur := start
	entry, err := F.readEntry(int64(cur.Index()))
	if err != nil {
		return
	}

	var next Entry
	for entry.Next.IsEntry() {
		next, err = F.readEntry(int64(entry.Next.Index()))
		if err != nil {
			return
		}
		if F.sch.CompareKeys(next.Key, key) >= 0 {
			break
		}
		cur = entry.Next
		entry = next
	}

	prev = cur
	at = entry.Next

	return
}

// liveEntries - Returns all live entries in ascending key order by walking the chain from the root
func (F *Files) liveEntries() (entries []Entry, err error) {
	entries = make([]Entry, 0, F.primaryCount)

	var entry Entry
	cur := F.root
	for cur.IsEntry() {
		entry, err = F.readEntry(int64(cur.Index()))
		if err != nil {
			return
		}
		entries = append(entries, entry)
		cur = entry.Next
	}

	return
}

// reconstruct - Rebuilds the primary area from the live entries in key order.
// The rebuild happens in place, live entries are rewritten from the start of the file with plain
// successor links and the auxiliary area disappears. An interrupted rebuild can leave the index
// inconsistent.
func (F *Files) reconstruct() (err error) {
	entries, err := F.liveEntries()
	if err != nil {
		return
	}

	for i := range entries {
		if i+1 < len(entries) {
			entries[i].Next = EntryLink(int32(i + 1))
		} else {
			entries[i].Next = EndLink()
		}
		err = F.writeEntry(int64(i), entries[i])
		if err != nil {
			return
		}
	}

	err = F.indexFile.Truncate(headerLength + int64(len(entries))*F.entryLength)
	if err != nil {
		err = fmt.Errorf("error while truncating sequential index file: %s", err)
		return
	}

	if len(entries) == 0 {
		F.root = EndLink()
	} else {
		F.root = EntryLink(0)
	}
	F.primaryCount = int64(len(entries))
	F.auxCount = 0

	err = F.writeHeader()
	if err != nil {
		return
	}

	if F.adaptiveAux {
		F.maxAuxSize = adaptiveAuxSize(F.primaryCount)
	}

	return
}

// bulkBuild - Builds the primary area directly from a batch of records sorted by key.
// Only valid when no live entry exists, any tombstoned leftovers are truncated away.
func (F *Files) bulkBuild(records []schema.Record) (err error) {
	batch := make([]keyedRecord, 0, len(records))
	var key []byte
	for _, record := range records {
		key, err = F.sch.Key(record)
		if err != nil {
			return
		}
		batch = append(batch, keyedRecord{key: key, record: record})
	}

	sort.SliceStable(batch, func(i, j int) bool {
		return F.sch.CompareKeys(batch[i].key, batch[j].key) < 0
	})

	for i := 1; i < len(batch); i++ {
		if F.sch.CompareKeys(batch[i-1].key, batch[i].key) == 0 {
			err = fileorg.DuplicateKey{}
			return
		}
	}

	err = F.indexFile.Truncate(headerLength)
	if err != nil {
		err = fmt.Errorf("error while truncating sequential index file: %s", err)
		return
	}

	var position int64
	for i, item := range batch {
		position, err = F.rows.Insert(item.record)
		if err != nil {
			return
		}

		next := EndLink()
		if i+1 < len(batch) {
			next = EntryLink(int32(i + 1))
		}
		err = F.writeEntry(int64(i), Entry{Key: item.key, HeapPosition: int32(position), Next: next})
		if err != nil {
			return
		}
	}

	if len(batch) == 0 {
		F.root = EndLink()
	} else {
		F.root = EntryLink(0)
	}
	F.primaryCount = int64(len(batch))
	F.auxCount = 0

	err = F.Flush()

	return
}

// adaptiveAuxSize - Returns the auxiliary area threshold to use given the number of live entries
func adaptiveAuxSize(liveCount int64) (maxAuxSize int64) {
	maxAuxSize = int64(math.Round(math.Sqrt(float64(liveCount))))
	if maxAuxSize < conf.MinMaxAuxSize {
		maxAuxSize = conf.MinMaxAuxSize
	}

	return
}
