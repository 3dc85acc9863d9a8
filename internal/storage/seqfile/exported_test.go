//go:build unit

package seqfile

import (
	"github.com/JoseEd0/tablefile/fileorg"
	"github.com/JoseEd0/tablefile/internal/conf"
	"github.com/JoseEd0/tablefile/internal/storage"
	"github.com/JoseEd0/tablefile/schema"
	"github.com/stretchr/testify/assert"
	"math/rand"
	"os"
	"testing"
)

// newTestSchema - Returns the schema used throughout the sequential file tests
func newTestSchema(t *testing.T) (sch *schema.Schema) {
	sch, err := schema.New([]schema.Field{
		{Name: "id", Type: schema.Int},
		{Name: "name", Type: schema.Char, Size: 8},
	}, "id")
	assert.NoError(t, err, "create schema")

	return
}

// scannedKeys - Returns the key values of a scan result
func scannedKeys(records []schema.Record) (keys []int32) {
	keys = make([]int32, 0, len(records))
	for _, record := range records {
		keys = append(keys, record[0].(int32))
	}

	return
}

func TestNewFiles(t *testing.T) {
	t.Run("creates new index and data files", func(t *testing.T) {
		// Prepare
		sch := newTestSchema(t)

		// Execute
		seqFiles, err := NewFiles(FilesConf{Name: "test-seq", Schema: sch})

		// Check
		assert.NoError(t, err, "create new Files instance")
		assert.Equal(t, "test-seq-index.bin", seqFiles.indexFileName, "index filename correct")
		assert.NotNil(t, seqFiles.indexFile, "has index file")
		assert.NotNil(t, seqFiles.rows, "has data heap file")
		assert.True(t, seqFiles.root.IsEnd(), "starts with empty chain")
		assert.Zero(t, seqFiles.primaryCount, "no primary entries")
		assert.Zero(t, seqFiles.auxCount, "no auxiliary entries")
		assert.Equal(t, int64(conf.DefaultMaxAuxSize), seqFiles.maxAuxSize, "default auxiliary threshold")
		assert.True(t, seqFiles.adaptiveAux, "threshold is adaptive by default")

		stat, err := os.Stat(seqFiles.indexFileName)
		assert.NoError(t, err, "index file exists")
		assert.Equal(t, headerLength, stat.Size(), "index file holds only the header")
		_, err = os.Stat(storage.GetDataFileName("test-seq"))
		assert.NoError(t, err, "data file exists")

		// Clean up
		seqFiles.CloseFiles()
		err = seqFiles.RemoveFiles()
		assert.NoError(t, err, "removes files")

		_, err = os.Stat(seqFiles.indexFileName)
		assert.True(t, os.IsNotExist(err), "index file removed")
		_, err = os.Stat(storage.GetDataFileName("test-seq"))
		assert.True(t, os.IsNotExist(err), "data file removed")
	})

	t.Run("honours a configured auxiliary threshold", func(t *testing.T) {
		// Prepare
		sch := newTestSchema(t)

		// Execute
		seqFiles, err := NewFiles(FilesConf{Name: "test-seq", Schema: sch, MaxAuxSize: 25})

		// Check
		assert.NoError(t, err, "create new Files instance")
		assert.Equal(t, int64(25), seqFiles.maxAuxSize, "configured threshold preserved")
		assert.False(t, seqFiles.adaptiveAux, "threshold is fixed")

		// Clean up
		seqFiles.CloseFiles()
		err = seqFiles.RemoveFiles()
		assert.NoError(t, err, "removes files")
	})

	t.Run("rejects a too small auxiliary threshold", func(t *testing.T) {
		// Prepare
		sch := newTestSchema(t)

		// Execute
		_, err := NewFiles(FilesConf{Name: "test-seq", Schema: sch, MaxAuxSize: conf.MinMaxAuxSize - 1})

		// Check
		assert.Error(t, err, "too small threshold rejected")
	})

	t.Run("fails when no schema is given", func(t *testing.T) {
		// Execute
		_, err := NewFiles(FilesConf{Name: "test-seq"})

		// Check
		assert.Error(t, err, "missing schema rejected")
	})
}

func TestNewFilesFromExistingFiles(t *testing.T) {
	t.Run("opens existing files preserving entries", func(t *testing.T) {
		// Prepare
		sch := newTestSchema(t)

		seqFilesInit, err := NewFiles(FilesConf{Name: "test-seq", Schema: sch})
		assert.NoError(t, err, "create new Files instance")
		for _, id := range []int32{20, 10, 30} {
			_, err = seqFilesInit.Insert(schema.Record{id, "rec"})
			assert.NoError(t, err, "insert record")
		}
		seqFilesInit.CloseFiles()

		// Execute
		seqFiles, err := NewFilesFromExistingFiles(FilesConf{Name: "test-seq", Schema: sch})

		// Check
		assert.NoError(t, err, "opens existing files")
		assert.Equal(t, int64(3), seqFiles.auxCount, "auxiliary count from header")

		records, err := seqFiles.ScanAll()
		assert.NoError(t, err, "scan all records")
		assert.Equal(t, []int32{10, 20, 30}, scannedKeys(records), "keys in ascending order")

		// Clean up
		seqFiles.CloseFiles()
		err = seqFiles.RemoveFiles()
		assert.NoError(t, err, "removes files")
	})

	t.Run("fails with corrupt header when files are missing", func(t *testing.T) {
		// Prepare
		sch := newTestSchema(t)

		// Execute
		_, err := NewFilesFromExistingFiles(FilesConf{Name: "test-seq", Schema: sch})

		// Check
		assert.ErrorIs(t, err, fileorg.CorruptHeader{}, "missing files are corrupt header")
	})

	t.Run("fails with corrupt header when the index file size does not add up", func(t *testing.T) {
		// Prepare
		sch := newTestSchema(t)

		seqFilesInit, err := NewFiles(FilesConf{Name: "test-seq", Schema: sch})
		assert.NoError(t, err, "create new Files instance")
		_, err = seqFilesInit.Insert(schema.Record{int32(1), "one"})
		assert.NoError(t, err, "insert record")
		seqFilesInit.CloseFiles()

		err = os.Truncate(seqFilesInit.indexFileName, headerLength+1)
		assert.NoError(t, err, "truncate index file")

		// Execute
		_, err = NewFilesFromExistingFiles(FilesConf{Name: "test-seq", Schema: sch})

		// Check
		assert.ErrorIs(t, err, fileorg.CorruptHeader{}, "truncated index file is corrupt header")

		// Clean up
		err = os.Remove(seqFilesInit.indexFileName)
		assert.NoError(t, err, "removes index file")
		err = os.Remove(storage.GetDataFileName("test-seq"))
		assert.NoError(t, err, "removes data file")
	})
}

func TestFiles_Insert(t *testing.T) {
	t.Run("threads records into ascending key order", func(t *testing.T) {
		// Prepare
		sch := newTestSchema(t)

		seqFiles, err := NewFiles(FilesConf{Name: "test-seq", Schema: sch})
		assert.NoError(t, err, "create new Files instance")

		// Execute
		for _, id := range []int32{10, 5, 6, 12, 30, 7, 17, 3, 15, 25, 8} {
			_, err = seqFiles.Insert(schema.Record{id, "rec"})
			assert.NoError(t, err, "insert record")
		}

		// Check
		records, err := seqFiles.ScanAll()
		assert.NoError(t, err, "scan all records")
		assert.Equal(t, []int32{3, 5, 6, 7, 8, 10, 12, 15, 17, 25, 30}, scannedKeys(records), "keys in ascending order")

		// Clean up
		seqFiles.CloseFiles()
		err = seqFiles.RemoveFiles()
		assert.NoError(t, err, "removes files")
	})

	t.Run("returns the heap position of the stored row", func(t *testing.T) {
		// Prepare
		sch := newTestSchema(t)

		seqFiles, err := NewFiles(FilesConf{Name: "test-seq", Schema: sch})
		assert.NoError(t, err, "create new Files instance")

		// Execute and Check
		for i, id := range []int32{30, 10, 20} {
			position, err := seqFiles.Insert(schema.Record{id, "rec"})
			assert.NoError(t, err, "insert record")
			assert.Equal(t, int64(i), position, "heap positions follow insertion order")

			record, err := seqFiles.rows.Read(position)
			assert.NoError(t, err, "read row from heap file")
			assert.Equal(t, id, record[0], "row stored at returned position")
		}

		// Clean up
		seqFiles.CloseFiles()
		err = seqFiles.RemoveFiles()
		assert.NoError(t, err, "removes files")
	})

	t.Run("rejects a duplicate key", func(t *testing.T) {
		// Prepare
		sch := newTestSchema(t)

		seqFiles, err := NewFiles(FilesConf{Name: "test-seq", Schema: sch})
		assert.NoError(t, err, "create new Files instance")
		_, err = seqFiles.Insert(schema.Record{int32(5), "first"})
		assert.NoError(t, err, "insert record")

		// Execute
		_, err = seqFiles.Insert(schema.Record{int32(5), "second"})

		// Check
		assert.ErrorIs(t, err, fileorg.DuplicateKey{}, "duplicate key rejected")

		count, err := seqFiles.Count()
		assert.NoError(t, err, "count records")
		assert.Equal(t, int64(1), count, "only the first record stored")

		// Clean up
		seqFiles.CloseFiles()
		err = seqFiles.RemoveFiles()
		assert.NoError(t, err, "removes files")
	})

	t.Run("allows reinserting a removed key", func(t *testing.T) {
		// Prepare
		sch := newTestSchema(t)

		seqFiles, err := NewFiles(FilesConf{Name: "test-seq", Schema: sch})
		assert.NoError(t, err, "create new Files instance")
		_, err = seqFiles.Insert(schema.Record{int32(5), "old"})
		assert.NoError(t, err, "insert record")

		key, err := sch.EncodeKey(5)
		assert.NoError(t, err, "encode key")
		removed, err := seqFiles.Remove(key)
		assert.NoError(t, err, "remove record")
		assert.Equal(t, int64(1), removed, "one record removed")

		// Execute
		_, err = seqFiles.Insert(schema.Record{int32(5), "new"})

		// Check
		assert.NoError(t, err, "reinsert removed key")

		records, err := seqFiles.Search(key)
		assert.NoError(t, err, "search key")
		assert.Equal(t, []schema.Record{{int32(5), "new"}}, records, "search finds the new record")

		// Clean up
		seqFiles.CloseFiles()
		err = seqFiles.RemoveFiles()
		assert.NoError(t, err, "removes files")
	})
}

func TestFiles_Reconstruction(t *testing.T) {
	t.Run("rebuilds are transparent to scan results", func(t *testing.T) {
		// Prepare
		sch := newTestSchema(t)

		rebuilt, err := NewFiles(FilesConf{Name: "test-seq", Schema: sch, MaxAuxSize: conf.MinMaxAuxSize})
		assert.NoError(t, err, "create rebuilt instance")
		plain, err := NewFiles(FilesConf{Name: "test-seq-plain", Schema: sch})
		assert.NoError(t, err, "create plain instance")

		// Execute
		for _, id := range rand.New(rand.NewSource(1)).Perm(35) {
			_, err = rebuilt.Insert(schema.Record{int32(id), "rec"})
			assert.NoError(t, err, "insert into rebuilt instance")
			_, err = plain.Insert(schema.Record{int32(id), "rec"})
			assert.NoError(t, err, "insert into plain instance")
		}

		// Check
		assert.Equal(t, int64(30), rebuilt.primaryCount, "three rebuilds moved entries to the primary area")
		assert.Equal(t, int64(5), rebuilt.auxCount, "rest stayed in the auxiliary area")
		assert.Zero(t, plain.primaryCount, "plain instance never rebuilt")

		rebuiltRecords, err := rebuilt.ScanAll()
		assert.NoError(t, err, "scan rebuilt instance")
		plainRecords, err := plain.ScanAll()
		assert.NoError(t, err, "scan plain instance")
		assert.Equal(t, plainRecords, rebuiltRecords, "rebuilds do not change scan results")

		// Clean up
		rebuilt.CloseFiles()
		err = rebuilt.RemoveFiles()
		assert.NoError(t, err, "removes rebuilt files")
		plain.CloseFiles()
		err = plain.RemoveFiles()
		assert.NoError(t, err, "removes plain files")
	})

	t.Run("adaptive threshold follows the file size after a rebuild", func(t *testing.T) {
		// Prepare
		sch := newTestSchema(t)

		seqFiles, err := NewFiles(FilesConf{Name: "test-seq", Schema: sch})
		assert.NoError(t, err, "create new Files instance")

		// Execute
		for _, id := range rand.New(rand.NewSource(2)).Perm(int(conf.DefaultMaxAuxSize)) {
			_, err = seqFiles.Insert(schema.Record{int32(id), "rec"})
			assert.NoError(t, err, "insert record")
		}

		// Check
		assert.Equal(t, int64(conf.DefaultMaxAuxSize), seqFiles.primaryCount, "first rebuild at the default threshold")
		assert.Zero(t, seqFiles.auxCount, "auxiliary area emptied")
		assert.Equal(t, int64(10), seqFiles.maxAuxSize, "threshold adapted to the square root of the size")

		for id := conf.DefaultMaxAuxSize; id < conf.DefaultMaxAuxSize+10; id++ {
			_, err = seqFiles.Insert(schema.Record{int32(id), "rec"})
			assert.NoError(t, err, "insert beyond first rebuild")
		}
		assert.Equal(t, int64(conf.DefaultMaxAuxSize+10), seqFiles.primaryCount, "second rebuild at the adapted threshold")

		// Clean up
		seqFiles.CloseFiles()
		err = seqFiles.RemoveFiles()
		assert.NoError(t, err, "removes files")
	})
}

func TestFiles_Search(t *testing.T) {
	t.Run("finds an inserted record", func(t *testing.T) {
		// Prepare
		sch := newTestSchema(t)

		seqFiles, err := NewFiles(FilesConf{Name: "test-seq", Schema: sch})
		assert.NoError(t, err, "create new Files instance")
		for _, record := range []schema.Record{{int32(2), "two"}, {int32(1), "one"}, {int32(3), "three"}} {
			_, err = seqFiles.Insert(record)
			assert.NoError(t, err, "insert record")
		}

		key, err := sch.EncodeKey(2)
		assert.NoError(t, err, "encode key")

		// Execute
		records, err := seqFiles.Search(key)

		// Check
		assert.NoError(t, err, "search key")
		assert.Equal(t, []schema.Record{{int32(2), "two"}}, records, "record found")

		// Clean up
		seqFiles.CloseFiles()
		err = seqFiles.RemoveFiles()
		assert.NoError(t, err, "removes files")
	})

	t.Run("returns empty result when key is absent", func(t *testing.T) {
		// Prepare
		sch := newTestSchema(t)

		seqFiles, err := NewFiles(FilesConf{Name: "test-seq", Schema: sch})
		assert.NoError(t, err, "create new Files instance")
		_, err = seqFiles.Insert(schema.Record{int32(1), "one"})
		assert.NoError(t, err, "insert record")

		key, err := sch.EncodeKey(9)
		assert.NoError(t, err, "encode key")

		// Execute
		records, err := seqFiles.Search(key)

		// Check
		assert.NoError(t, err, "search key")
		assert.Empty(t, records, "no match")

		// Clean up
		seqFiles.CloseFiles()
		err = seqFiles.RemoveFiles()
		assert.NoError(t, err, "removes files")
	})
}

func TestFiles_RangeSearch(t *testing.T) {
	t.Run("returns records within bounds in ascending order", func(t *testing.T) {
		// Prepare
		sch := newTestSchema(t)

		seqFiles, err := NewFiles(FilesConf{Name: "test-seq", Schema: sch})
		assert.NoError(t, err, "create new Files instance")
		for _, id := range []int32{10, 5, 6, 12, 30, 7, 17, 3, 15, 25, 8} {
			_, err = seqFiles.Insert(schema.Record{id, "rec"})
			assert.NoError(t, err, "insert record")
		}

		begin, err := sch.EncodeKey(6)
		assert.NoError(t, err, "encode begin key")
		end, err := sch.EncodeKey(17)
		assert.NoError(t, err, "encode end key")

		// Execute
		records, err := seqFiles.RangeSearch(begin, end)

		// Check
		assert.NoError(t, err, "range search")
		assert.Equal(t, []int32{6, 7, 8, 10, 12, 15, 17}, scannedKeys(records), "bounds are inclusive")

		// Clean up
		seqFiles.CloseFiles()
		err = seqFiles.RemoveFiles()
		assert.NoError(t, err, "removes files")
	})

	t.Run("returns empty result when bounds are inverted", func(t *testing.T) {
		// Prepare
		sch := newTestSchema(t)

		seqFiles, err := NewFiles(FilesConf{Name: "test-seq", Schema: sch})
		assert.NoError(t, err, "create new Files instance")
		for _, id := range []int32{1, 2, 3} {
			_, err = seqFiles.Insert(schema.Record{id, "rec"})
			assert.NoError(t, err, "insert record")
		}

		begin, err := sch.EncodeKey(3)
		assert.NoError(t, err, "encode begin key")
		end, err := sch.EncodeKey(1)
		assert.NoError(t, err, "encode end key")

		// Execute
		records, err := seqFiles.RangeSearch(begin, end)

		// Check
		assert.NoError(t, err, "range search")
		assert.Empty(t, records, "no records in an inverted range")

		// Clean up
		seqFiles.CloseFiles()
		err = seqFiles.RemoveFiles()
		assert.NoError(t, err, "removes files")
	})
}

func TestFiles_Remove(t *testing.T) {
	t.Run("unlinks the entry and marks it with a tombstone", func(t *testing.T) {
		// Prepare
		sch := newTestSchema(t)

		seqFiles, err := NewFiles(FilesConf{Name: "test-seq", Schema: sch})
		assert.NoError(t, err, "create new Files instance")
		for _, id := range []int32{1, 2, 3} {
			_, err = seqFiles.Insert(schema.Record{id, "rec"})
			assert.NoError(t, err, "insert record")
		}

		key, err := sch.EncodeKey(2)
		assert.NoError(t, err, "encode key")

		// Execute
		removed, err := seqFiles.Remove(key)

		// Check
		assert.NoError(t, err, "remove record")
		assert.Equal(t, int64(1), removed, "one record removed")

		records, err := seqFiles.ScanAll()
		assert.NoError(t, err, "scan all records")
		assert.Equal(t, []int32{1, 3}, scannedKeys(records), "removed key no longer scanned")

		entry, err := seqFiles.readEntry(1)
		assert.NoError(t, err, "read removed entry")
		assert.True(t, entry.Next.IsTombstone(), "removed entry carries a tombstone link")

		// Clean up
		seqFiles.CloseFiles()
		err = seqFiles.RemoveFiles()
		assert.NoError(t, err, "removes files")
	})

	t.Run("is idempotent", func(t *testing.T) {
		// Prepare
		sch := newTestSchema(t)

		seqFiles, err := NewFiles(FilesConf{Name: "test-seq", Schema: sch})
		assert.NoError(t, err, "create new Files instance")
		_, err = seqFiles.Insert(schema.Record{int32(1), "one"})
		assert.NoError(t, err, "insert record")

		key, err := sch.EncodeKey(1)
		assert.NoError(t, err, "encode key")

		// Execute
		first, err := seqFiles.Remove(key)
		assert.NoError(t, err, "first remove")
		second, err := seqFiles.Remove(key)
		assert.NoError(t, err, "second remove")

		// Check
		assert.Equal(t, int64(1), first, "first remove takes the record")
		assert.Zero(t, second, "second remove finds nothing")

		// Clean up
		seqFiles.CloseFiles()
		err = seqFiles.RemoveFiles()
		assert.NoError(t, err, "removes files")
	})

	t.Run("removing the first key moves the root to its successor", func(t *testing.T) {
		// Prepare
		sch := newTestSchema(t)

		seqFiles, err := NewFiles(FilesConf{Name: "test-seq", Schema: sch})
		assert.NoError(t, err, "create new Files instance")
		for _, id := range []int32{2, 1, 3} {
			_, err = seqFiles.Insert(schema.Record{id, "rec"})
			assert.NoError(t, err, "insert record")
		}

		key, err := sch.EncodeKey(1)
		assert.NoError(t, err, "encode key")

		// Execute
		removed, err := seqFiles.Remove(key)

		// Check
		assert.NoError(t, err, "remove record")
		assert.Equal(t, int64(1), removed, "one record removed")
		assert.True(t, seqFiles.root.IsEntry(), "chain still has a root")

		records, err := seqFiles.ScanAll()
		assert.NoError(t, err, "scan all records")
		assert.Equal(t, []int32{2, 3}, scannedKeys(records), "successor takes over as smallest key")

		// Clean up
		seqFiles.CloseFiles()
		err = seqFiles.RemoveFiles()
		assert.NoError(t, err, "removes files")
	})
}

func TestFiles_Load(t *testing.T) {
	t.Run("bulk builds an empty file sorted by key", func(t *testing.T) {
		// Prepare
		sch := newTestSchema(t)

		seqFiles, err := NewFiles(FilesConf{Name: "test-seq", Schema: sch})
		assert.NoError(t, err, "create new Files instance")

		// Execute
		err = seqFiles.Load([]schema.Record{{int32(3), "three"}, {int32(1), "one"}, {int32(2), "two"}})

		// Check
		assert.NoError(t, err, "load records")
		assert.Equal(t, int64(3), seqFiles.primaryCount, "batch became the primary area")
		assert.Zero(t, seqFiles.auxCount, "auxiliary area empty")

		records, err := seqFiles.ScanAll()
		assert.NoError(t, err, "scan all records")
		assert.Equal(t, []int32{1, 2, 3}, scannedKeys(records), "keys in ascending order")

		// Clean up
		seqFiles.CloseFiles()
		err = seqFiles.RemoveFiles()
		assert.NoError(t, err, "removes files")
	})

	t.Run("rejects duplicate keys in the batch", func(t *testing.T) {
		// Prepare
		sch := newTestSchema(t)

		seqFiles, err := NewFiles(FilesConf{Name: "test-seq", Schema: sch})
		assert.NoError(t, err, "create new Files instance")

		// Execute
		err = seqFiles.Load([]schema.Record{{int32(1), "one"}, {int32(1), "again"}})

		// Check
		assert.ErrorIs(t, err, fileorg.DuplicateKey{}, "duplicate key in batch rejected")

		// Clean up
		seqFiles.CloseFiles()
		err = seqFiles.RemoveFiles()
		assert.NoError(t, err, "removes files")
	})

	t.Run("inserts one by one when the file is not empty", func(t *testing.T) {
		// Prepare
		sch := newTestSchema(t)

		seqFiles, err := NewFiles(FilesConf{Name: "test-seq", Schema: sch})
		assert.NoError(t, err, "create new Files instance")
		_, err = seqFiles.Insert(schema.Record{int32(2), "two"})
		assert.NoError(t, err, "insert record")

		// Execute
		err = seqFiles.Load([]schema.Record{{int32(3), "three"}, {int32(1), "one"}})

		// Check
		assert.NoError(t, err, "load records")

		records, err := seqFiles.ScanAll()
		assert.NoError(t, err, "scan all records")
		assert.Equal(t, []int32{1, 2, 3}, scannedKeys(records), "keys in ascending order")

		// Clean up
		seqFiles.CloseFiles()
		err = seqFiles.RemoveFiles()
		assert.NoError(t, err, "removes files")
	})
}

func TestFiles_Count(t *testing.T) {
	t.Run("counts only live entries", func(t *testing.T) {
		// Prepare
		sch := newTestSchema(t)

		seqFiles, err := NewFiles(FilesConf{Name: "test-seq", Schema: sch})
		assert.NoError(t, err, "create new Files instance")
		for _, id := range []int32{1, 2, 3, 4, 5} {
			_, err = seqFiles.Insert(schema.Record{id, "rec"})
			assert.NoError(t, err, "insert record")
		}
		for _, id := range []int32{2, 4} {
			key, err := sch.EncodeKey(id)
			assert.NoError(t, err, "encode key")
			_, err = seqFiles.Remove(key)
			assert.NoError(t, err, "remove record")
		}

		// Execute
		count, err := seqFiles.Count()

		// Check
		assert.NoError(t, err, "count records")
		assert.Equal(t, int64(3), count, "removed entries not counted")

		// Clean up
		seqFiles.CloseFiles()
		err = seqFiles.RemoveFiles()
		assert.NoError(t, err, "removes files")
	})
}

func TestFiles_Clear(t *testing.T) {
	t.Run("empties both files and accepts new inserts", func(t *testing.T) {
		// Prepare
		sch := newTestSchema(t)

		seqFiles, err := NewFiles(FilesConf{Name: "test-seq", Schema: sch})
		assert.NoError(t, err, "create new Files instance")
		for _, id := range []int32{1, 2, 3} {
			_, err = seqFiles.Insert(schema.Record{id, "rec"})
			assert.NoError(t, err, "insert record")
		}

		// Execute
		err = seqFiles.Clear()

		// Check
		assert.NoError(t, err, "clear files")
		assert.True(t, seqFiles.root.IsEnd(), "chain is empty")

		count, err := seqFiles.Count()
		assert.NoError(t, err, "count records")
		assert.Zero(t, count, "no records left")

		stat, err := os.Stat(seqFiles.indexFileName)
		assert.NoError(t, err, "index file exists")
		assert.Equal(t, headerLength, stat.Size(), "index file truncated to header")

		_, err = seqFiles.Insert(schema.Record{int32(9), "nine"})
		assert.NoError(t, err, "insert after clear")

		// Clean up
		seqFiles.CloseFiles()
		err = seqFiles.RemoveFiles()
		assert.NoError(t, err, "removes files")
	})
}

func TestFiles_Flush(t *testing.T) {
	t.Run("persists state so a reopen sees all records", func(t *testing.T) {
		// Prepare
		sch := newTestSchema(t)

		seqFiles, err := NewFiles(FilesConf{Name: "test-seq", Schema: sch})
		assert.NoError(t, err, "create new Files instance")
		for _, id := range []int32{2, 1, 3} {
			_, err = seqFiles.Insert(schema.Record{id, "rec"})
			assert.NoError(t, err, "insert record")
		}

		// Execute
		err = seqFiles.Flush()

		// Check
		assert.NoError(t, err, "flush files")

		reopened, err := NewFilesFromExistingFiles(FilesConf{Name: "test-seq", Schema: sch})
		assert.NoError(t, err, "opens flushed files")
		records, err := reopened.ScanAll()
		assert.NoError(t, err, "scan reopened instance")
		assert.Equal(t, []int32{1, 2, 3}, scannedKeys(records), "all records visible after flush")
		reopened.CloseFiles()

		// Clean up
		seqFiles.CloseFiles()
		err = seqFiles.RemoveFiles()
		assert.NoError(t, err, "removes files")
	})
}
