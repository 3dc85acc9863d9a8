package heap

import (
	"encoding/binary"
	"fmt"
	"github.com/JoseEd0/tablefile/fileorg"
	"github.com/JoseEd0/tablefile/internal/storage"
	"github.com/JoseEd0/tablefile/schema"
)

// headerLength - Length of the heap file header which holds only the record count
const headerLength int64 = 4

// keyedRecord - A record together with its extracted key, used when sorting range search results
type keyedRecord struct {
	key    []byte
	record schema.Record
}

// createNewHeapFile - Creates a new heap file holding nothing but a zeroed record count header
func (F *Files) createNewHeapFile() (err error) {
	F.file, err = storage.CreateStorageFile(F.fileName, headerLength)
	if err != nil {
		err = fmt.Errorf("error while creating heap file: %s", err)
		return
	}

	F.count = 0
	err = F.writeHeader()

	return
}

// openHeapFile - Opens an existing heap file and caches the record count from its header.
// The file size has to add up given that count, otherwise the file is deemed corrupt.
func (F *Files) openHeapFile() (err error) {
	F.file, err = storage.OpenStorageFile(F.fileName, headerLength)
	if err != nil {
		return
	}

	buf, err := storage.GetBlock(F.file, 0, headerLength)
	if err != nil {
		err = fmt.Errorf("error while reading heap file header: %s", err)
		return
	}
	F.count = int64(binary.LittleEndian.Uint32(buf))

	stat, err := F.file.Stat()
	if err != nil {
		err = fmt.Errorf("error while retrieving heap file stats: %s", err)
		return
	}
	if stat.Size() != headerLength+F.count*F.recordLength {
		storage.CloseStorageFile(F.file)
		F.file = nil
		err = fileorg.CorruptHeader{}
		return
	}

	return
}

// writeHeader - Writes the cached record count to the heap file header
func (F *Files) writeHeader() (err error) {
	buf := make([]byte, headerLength)
	binary.LittleEndian.PutUint32(buf, uint32(F.count))

	err = storage.SetBlock(F.file, buf, 0)
	if err != nil {
		err = fmt.Errorf("error while writing heap file header: %s", err)
	}

	return
}

// recordOffset - Returns the file offset of the record slot at the given position
func (F *Files) recordOffset(position int64) (offset int64) {
	offset = headerLength + position*F.recordLength
	return
}

// readAllRecords - Reads and decodes all records in position order
func (F *Files) readAllRecords() (records []schema.Record, err error) {
	records = make([]schema.Record, 0, F.count)
	if F.count == 0 {
		return
	}

	buf, err := storage.GetBlock(F.file, headerLength, F.count*F.recordLength)
	if err != nil {
		err = fmt.Errorf("error while reading records from heap file: %s", err)
		return
	}

	var record schema.Record
	for position := int64(0); position < F.count; position++ {
		record, err = F.sch.Decode(buf[position*F.recordLength : (position+1)*F.recordLength])
		if err != nil {
			return
		}
		records = append(records, record)
	}

	return
}
