package isam

import (
	"fmt"
	"github.com/JoseEd0/tablefile/internal/conf"
	"github.com/JoseEd0/tablefile/internal/storage"
	"github.com/JoseEd0/tablefile/schema"
	"os"
	"sort"
)

// FilesConf - Is a struct to be passed in the call to NewFiles and contains configuration that affects
// file processing.
//   - Name is the name to base directory, pages and rows file names on
//   - Schema describes the fixed width record layout including the primary key field
//   - BlockFactor is the number of record slots per primary or overflow page, zero selects the default
//   - RootFactor is the number of leaf entries grouped under one root entry, zero selects the default
//   - SuperFactor is the number of root entries grouped under one super root entry, zero selects the default
type FilesConf struct {
	Name        string
	Schema      *schema.Schema
	BlockFactor int64
	RootFactor  int64
	SuperFactor int64
}

// Files - Represents an implementation of file support for the ISAM organization.
// It uses three files. The directory file holds a static two level index built once from a sorted
// batch, leaf entries bounding primary pages by max key and root entries bounding groups of leaves.
// A third in memory level, the super root, is derived from the root entries at open time. The pages
// file holds fixed size primary and overflow pages of (key, row offset) slots, and the rows file is
// an append only log holding the length prefixed row payloads.
type Files struct {
	dirFileName   string
	pagesFileName string
	rowsFileName  string
	dirFile       *os.File
	pagesFile     *os.File
	rowsFile      *os.File
	sch           *schema.Schema
	keyLength     int64
	slotLength    int64
	pageLength    int64
	blockFactor   int64
	rootFactor    int64
	superFactor   int64
	nextPageNo    int64
	leaves        []dirEntry
	roots         []dirEntry
	super         []dirEntry
}

// NewFiles - Returns a pointer to a new instance of ISAM file implementation.
// It always creates new files (or opens and truncates existing files). The directory starts out
// empty, it is built by the first call to Load or bootstrapped by the first insert.
//   - filesConf is a FilesConf struct providing configuration parameters affecting files creation and processing
//
// It returns:
//   - isamFiles which is a pointer to the created instance
//   - err which is a standard Go type of error
func NewFiles(filesConf FilesConf) (isamFiles *Files, err error) {
	isamFiles, err = prepareFiles(filesConf)
	if err != nil {
		return
	}

	err = isamFiles.createNewFiles()

	return
}

// NewFilesFromExistingFiles - Returns a pointer to a new instance of ISAM file implementation given
// existing files. If files doesn't exist, or if file sizes doesn't add up given the directory entry
// counts and the page length, it fails with a fileorg.CorruptHeader error.
//   - filesConf is a FilesConf struct providing configuration parameters affecting file processing,
//     the factors have to match those the files were created with
//
// It returns:
//   - isamFiles which is a pointer to the created instance
//   - err which is a standard Go type of error
func NewFilesFromExistingFiles(filesConf FilesConf) (isamFiles *Files, err error) {
	isamFiles, err = prepareFiles(filesConf)
	if err != nil {
		return
	}

	err = isamFiles.openFiles()

	return
}

// Insert - Inserts a new record.
// The row payload is appended to the rows log. On an empty table the record bootstraps a one page
// directory. Otherwise the directory is descended to the owning primary page, the slot goes into
// its sorted position while the page has room, else it is appended in arrival order to the tail of
// the page's overflow chain. The static directory itself never changes. Duplicate keys are allowed.
//   - record is the record to insert, it has to conform to the schema given when creating the Files instance
//
// It returns:
//   - position which is the offset of the row in the rows log
//   - err is of type fileorg.SchemaMismatch if the record doesn't fit the schema, or a standard error
func (F *Files) Insert(record schema.Record) (position int64, err error) {
	key, err := F.sch.Key(record)
	if err != nil {
		return
	}

	position, err = F.appendRow(record)
	if err != nil {
		return
	}

	newSlot := slot{Key: key, Offset: position}

	if len(F.leaves) == 0 {
		err = F.buildFromSlots([]slot{newSlot})
		return
	}

	leafIndex := F.descend(key)
	pg, err := F.readPage(int64(F.leaves[leafIndex].Value))
	if err != nil {
		return
	}

	if int64(len(pg.slots)) < F.blockFactor {
		pos := len(pg.slots)
		for i, s := range pg.slots {
			if F.sch.CompareKeys(s.Key, key) > 0 {
				pos = i
				break
			}
		}
		pg.slots = append(pg.slots, slot{})
		copy(pg.slots[pos+1:], pg.slots[pos:])
		pg.slots[pos] = newSlot
		err = F.writePage(pg)
		return
	}

	err = F.appendToChain(pg, newSlot)

	return
}

// Search - Returns all records whose key matches the given key.
// Matching entries may sit in the owning primary page, anywhere in its overflow chain, and with
// duplicate keys straddling a page boundary even in the pages that follow, hence the search is a
// degenerate range search over a single key.
//   - key is the encoded key to search for
//
// It returns:
//   - records holds one record per match, it is empty if no record matched
//   - err is a standard error if something went wrong
func (F *Files) Search(key []byte) (records []schema.Record, err error) {
	records, err = F.RangeSearch(key, key)
	return
}

// RangeSearch - Returns all records with keys within the given bounds, both inclusive.
// Starting at the page owning the lower bound, consecutive primary pages and their full overflow
// chains are scanned until a primary page minimum exceeds the upper bound. The matches are sorted
// before being returned since overflow entries sit in arrival order.
//   - begin is the encoded lower bound key
//   - end is the encoded upper bound key
//
// It returns:
//   - records holds the matches sorted ascending by key, it is empty if no record matched
//   - err is a standard error if something went wrong
func (F *Files) RangeSearch(begin, end []byte) (records []schema.Record, err error) {
	records = make([]schema.Record, 0)
	if len(F.leaves) == 0 {
		return
	}

	matches := make([]keyedRecord, 0)
	var pg *page
	var chain []*page
	for leafIndex := F.descend(begin); leafIndex < int64(len(F.leaves)); leafIndex++ {
		pg, err = F.readPage(int64(F.leaves[leafIndex].Value))
		if err != nil {
			return
		}
		if len(pg.slots) > 0 && F.sch.CompareKeys(pg.slots[0].Key, end) > 0 {
			break
		}

		matches, err = F.collectMatches(pg, begin, end, matches)
		if err != nil {
			return
		}

		chain, err = F.chainPages(pg.next)
		if err != nil {
			return
		}
		for _, ovfl := range chain {
			matches, err = F.collectMatches(ovfl, begin, end, matches)
			if err != nil {
				return
			}
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return F.sch.CompareKeys(matches[i].key, matches[j].key) < 0
	})

	records = make([]schema.Record, 0, len(matches))
	for _, match := range matches {
		records = append(records, match.record)
	}

	return
}

// Remove - Removes all entries matching the given key by filtering them out of the owning primary
// page, its overflow chain, and any following pages still within reach of the key. Pages are never
// compacted or merged, an emptied overflow page stays in its chain, and the row payloads remain in
// the rows log unreferenced.
//   - key is the encoded key to remove
//
// It returns:
//   - removed is the number of entries removed, zero when the key was not present
//   - err is a standard error if something went wrong
func (F *Files) Remove(key []byte) (removed int64, err error) {
	if len(F.leaves) == 0 {
		return
	}

	var pg *page
	var chain []*page
	var dropped int64
	for leafIndex := F.descend(key); leafIndex < int64(len(F.leaves)); leafIndex++ {
		pg, err = F.readPage(int64(F.leaves[leafIndex].Value))
		if err != nil {
			return
		}
		if len(pg.slots) > 0 && F.sch.CompareKeys(pg.slots[0].Key, key) > 0 {
			break
		}

		dropped, err = F.filterPage(pg, key)
		if err != nil {
			return
		}
		removed += dropped

		chain, err = F.chainPages(pg.next)
		if err != nil {
			return
		}
		for _, ovfl := range chain {
			dropped, err = F.filterPage(ovfl, key)
			if err != nil {
				return
			}
			removed += dropped
		}
	}

	return
}

// ScanAll - Returns all records sorted ascending by key.
// Primary pages hold their slots sorted but overflow chains sit in arrival order, hence the whole
// result is collected first and sorted once.
//
// It returns:
//   - records holds every record sorted ascending by key
//   - err is a standard error if something went wrong
func (F *Files) ScanAll() (records []schema.Record, err error) {
	records = make([]schema.Record, 0)
	matches := make([]keyedRecord, 0)

	var pg *page
	var chain []*page
	for leafIndex := 0; leafIndex < len(F.leaves); leafIndex++ {
		pg, err = F.readPage(int64(F.leaves[leafIndex].Value))
		if err != nil {
			return
		}

		matches, err = F.collectAll(pg, matches)
		if err != nil {
			return
		}

		chain, err = F.chainPages(pg.next)
		if err != nil {
			return
		}
		for _, ovfl := range chain {
			matches, err = F.collectAll(ovfl, matches)
			if err != nil {
				return
			}
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return F.sch.CompareKeys(matches[i].key, matches[j].key) < 0
	})

	records = make([]schema.Record, 0, len(matches))
	for _, match := range matches {
		records = append(records, match.record)
	}

	return
}

// Count - Returns the number of records by summing the slot counts of all pages and their chains.
//
// It returns:
//   - count is the number of records
//   - err is a standard error if something went wrong
func (F *Files) Count() (count int64, err error) {
	var pg *page
	var chain []*page
	for leafIndex := 0; leafIndex < len(F.leaves); leafIndex++ {
		pg, err = F.readPage(int64(F.leaves[leafIndex].Value))
		if err != nil {
			return
		}
		count += int64(len(pg.slots))

		chain, err = F.chainPages(pg.next)
		if err != nil {
			return
		}
		for _, ovfl := range chain {
			count += int64(len(ovfl.slots))
		}
	}

	return
}

// Load - Bulk inserts records.
// On an empty table the batch is sorted by key and built into the static directory, which is the
// intended way to create an ISAM table since the directory never adapts afterwards. On a non empty
// table the records are inserted one by one and end up in overflow chains.
//   - records are the records to insert, duplicate keys are allowed
//
// It returns:
//   - err is of type fileorg.SchemaMismatch if a record doesn't fit the schema, or a standard error
func (F *Files) Load(records []schema.Record) (err error) {
	if len(F.leaves) > 0 {
		for _, record := range records {
			_, err = F.Insert(record)
			if err != nil {
				return
			}
		}
		err = F.Flush()
		return
	}

	slots := make([]slot, 0, len(records))
	var key []byte
	var position int64
	for _, record := range records {
		key, err = F.sch.Key(record)
		if err != nil {
			return
		}
		position, err = F.appendRow(record)
		if err != nil {
			return
		}
		slots = append(slots, slot{Key: key, Offset: position})
	}

	sort.SliceStable(slots, func(i, j int) bool {
		return F.sch.CompareKeys(slots[i].Key, slots[j].Key) < 0
	})

	err = F.buildFromSlots(slots)
	if err != nil {
		return
	}

	err = F.Flush()

	return
}

// Clear - Removes all records and the directory by truncating all three files.
// The next Load or Insert builds a fresh directory.
//
// It returns:
//   - err is a standard error if something went wrong
func (F *Files) Clear() (err error) {
	F.leaves = nil
	F.roots = nil
	F.super = nil
	F.nextPageNo = 0

	err = F.writeDirectory()
	if err != nil {
		return
	}

	err = F.pagesFile.Truncate(0)
	if err != nil {
		err = fmt.Errorf("error while truncating isam pages file: %s", err)
		return
	}
	err = F.rowsFile.Truncate(0)
	if err != nil {
		err = fmt.Errorf("error while truncating isam rows file: %s", err)
	}

	return
}

// Flush - Syncs all three backing files.
// The directory is written whenever it is built and pages are written as part of each mutating
// operation, hence after a flush the files are fully consistent with the operations performed so far.
//
// It returns:
//   - err is a standard error if something went wrong
func (F *Files) Flush() (err error) {
	err = F.dirFile.Sync()
	if err != nil {
		err = fmt.Errorf("error while syncing isam directory file: %s", err)
		return
	}
	err = F.pagesFile.Sync()
	if err != nil {
		err = fmt.Errorf("error while syncing isam pages file: %s", err)
		return
	}
	err = F.rowsFile.Sync()
	if err != nil {
		err = fmt.Errorf("error while syncing isam rows file: %s", err)
	}

	return
}

// CloseFiles - Closes the directory, pages and rows files
func (F *Files) CloseFiles() {
	storage.CloseStorageFile(F.dirFile)
	storage.CloseStorageFile(F.pagesFile)
	storage.CloseStorageFile(F.rowsFile)
}

// RemoveFiles - Removes the directory, pages and rows files, make sure to close them first before
// calling this function
//
// It returns:
//   - err is a standard error if something went wrong
func (F *Files) RemoveFiles() (err error) {
	err = storage.RemoveStorageFile(F.dirFileName, F.pagesFileName, F.rowsFileName)
	return
}

// prepareFiles - Validates the configuration and returns an instance with derived lengths set
func prepareFiles(filesConf FilesConf) (isamFiles *Files, err error) {
	if filesConf.Schema == nil {
		err = fmt.Errorf("a schema must be given when creating an isam file")
		return
	}
	if filesConf.Name == "" {
		err = fmt.Errorf("a name must be given when creating an isam file")
		return
	}
	if filesConf.BlockFactor < 0 || filesConf.RootFactor < 0 || filesConf.SuperFactor < 0 {
		err = fmt.Errorf("block, root and super factors must not be negative")
		return
	}

	blockFactor := filesConf.BlockFactor
	if blockFactor == 0 {
		blockFactor = conf.DefaultBlockFactor
	}
	rootFactor := filesConf.RootFactor
	if rootFactor == 0 {
		rootFactor = conf.DefaultRootFactor
	}
	superFactor := filesConf.SuperFactor
	if superFactor == 0 {
		superFactor = conf.DefaultSuperFactor
	}

	keyLength := int64(filesConf.Schema.KeyLength())
	slotLength := keyLength + slotOffsetLength

	isamFiles = &Files{
		dirFileName:   storage.GetDirFileName(filesConf.Name),
		pagesFileName: storage.GetPagesFileName(filesConf.Name),
		rowsFileName:  storage.GetRowsFileName(filesConf.Name),
		sch:           filesConf.Schema,
		keyLength:     keyLength,
		slotLength:    slotLength,
		pageLength:    pageHeaderLength + blockFactor*slotLength,
		blockFactor:   blockFactor,
		rootFactor:    rootFactor,
		superFactor:   superFactor,
	}

	return
}
