// Package tablefile stores fixed width records in single writer disk files under one of five
// interchangeable file organizations: heap file, sequential file, ISAM, extendible hashing and
// B+ tree. A table is created once with a schema and an organization, both recorded in a meta
// file next to the backing files, and reopened from that meta file later. All organizations
// answer the same operations, they differ in file layout, position semantics and duplicate
// key policy.
package tablefile

import (
	"encoding/json"
	"fmt"
	"github.com/JoseEd0/tablefile/fileorg"
	"github.com/JoseEd0/tablefile/hashfunc"
	"github.com/JoseEd0/tablefile/internal/conf"
	"github.com/JoseEd0/tablefile/internal/storage"
	"github.com/JoseEd0/tablefile/internal/storage/bptree"
	"github.com/JoseEd0/tablefile/internal/storage/exthash"
	"github.com/JoseEd0/tablefile/internal/storage/heap"
	"github.com/JoseEd0/tablefile/internal/storage/isam"
	"github.com/JoseEd0/tablefile/internal/storage/seqfile"
	"github.com/JoseEd0/tablefile/schema"
	"os"
	"path/filepath"
)

// Store - Interface for any file organization implementation
type Store interface {
	Insert(record schema.Record) (position int64, err error)
	Search(key []byte) (records []schema.Record, err error)
	RangeSearch(begin, end []byte) (records []schema.Record, err error)
	Remove(key []byte) (removed int64, err error)
	ScanAll() (records []schema.Record, err error)
	Count() (count int64, err error)
	Load(records []schema.Record) (err error)
	Clear() (err error)
	Flush() (err error)
	CloseFiles()
	RemoveFiles() (err error)
}

// TableConf - Is a struct to be passed in the call to NewTable and contains the schema, the
// organization and per organization tuning. Tuning fields left zero select defaults.
//   - Name is the name of the table and will be used to form file names
//   - Fields describe the fixed width record layout
//   - KeyField names the field records are keyed by
//   - Organization selects the file organization
//   - BlockFactor, RootFactor and SuperFactor tune the ISAM page and directory grouping
//   - MaxAuxSize is the sequential file rebuild threshold, zero selects an adaptive threshold
//   - Order is the maximum number of keys a B+ tree node holds
//   - BucketCapacity, GlobalDepth and MaxGlobalDepth tune the extendible hashing layout
//   - HashAlgorithm is an optional custom hash algorithm for extendible hashing
type TableConf struct {
	Name           string
	Fields         []schema.Field
	KeyField       string
	Organization   fileorg.Organization
	BlockFactor    int64
	RootFactor     int64
	SuperFactor    int64
	MaxAuxSize     int64
	Order          int64
	BucketCapacity int64
	GlobalDepth    int
	MaxGlobalDepth int
	HashAlgorithm  hashfunc.HashAlgorithm
}

// tableMeta - The contents of the table meta file. Tuning values are stored resolved, hence a
// reopened table keeps the layout it was created with even if defaults change.
type tableMeta struct {
	Organization   fileorg.Organization `json:"organization"`
	Fields         []schema.Field       `json:"fields"`
	KeyField       string               `json:"key_field"`
	BlockFactor    int64                `json:"block_factor,omitempty"`
	RootFactor     int64                `json:"root_factor,omitempty"`
	SuperFactor    int64                `json:"super_factor,omitempty"`
	MaxAuxSize     int64                `json:"max_aux_size,omitempty"`
	Order          int64                `json:"order,omitempty"`
	BucketCapacity int64                `json:"bucket_capacity,omitempty"`
	GlobalDepth    int                  `json:"global_depth,omitempty"`
	MaxGlobalDepth int                  `json:"max_global_depth,omitempty"`
}

// Table - The main implementation struct
type Table struct {
	name         string
	organization fileorg.Organization
	sch          *schema.Schema
	store        Store
	hashFiles    *exthash.Files
	// CloseFiles - Writes cached headers and closes the backing files. Use this preferably in a
	// "defer" directly after a NewTable or NewTableFromExistingFiles.
	CloseFiles func()
	// RemoveFiles - Removes the backing files and the table meta file if they exist.
	// The function first internally closes them using CloseFiles.
	RemoveFiles func() error
}

// NewTable - Returns a new table backed by freshly created files and writes its meta file.
// Unless forceCreate is set it refuses to touch a name whose meta file already exists; with
// forceCreate any files left by a table of that name are removed first.
//   - tableConf is a TableConf struct providing the schema, the organization and tuning
//   - forceCreate set to true replaces an existing table of the same name
//
// It returns:
//   - table is a pointer to a Table struct
//   - err is a normal Go error which should be nil if everything went ok
func NewTable(tableConf TableConf, forceCreate bool) (table *Table, err error) {
	if tableConf.Name == "" {
		err = fmt.Errorf("name can not be empty, it will be used to form physical file names")
		return
	}

	sch, err := schema.New(tableConf.Fields, tableConf.KeyField)
	if err != nil {
		return
	}

	if _, statErr := os.Stat(storage.GetMetaFileName(tableConf.Name)); statErr == nil && !forceCreate {
		err = fmt.Errorf("a table named %s already exists, use force create to replace it", tableConf.Name)
		return
	}

	if forceCreate {
		err = removeTableFiles(tableConf.Name)
		if err != nil {
			return
		}
	}

	meta := resolveTuning(tableConf)

	store, hashFiles, err := newStore(tableConf.Name, sch, meta, tableConf.HashAlgorithm, false)
	if err != nil {
		return
	}

	err = writeMeta(tableConf.Name, meta)
	if err != nil {
		store.CloseFiles()
		_ = store.RemoveFiles()
		return
	}

	table = newTable(tableConf.Name, meta.Organization, sch, store, hashFiles)

	return
}

// NewTableFromExistingFiles - Opens an existing table from its meta file. If the table was
// created with a custom hash algorithm that same algorithm has to be supplied.
//   - name is the name of an existing table
//   - hashAlgorithm is an optional custom hash algorithm, only meaningful for extendible hashing
//
// It returns:
//   - table is a pointer to a Table struct
//   - err is of type fileorg.CorruptHeader if the meta file is missing or does not describe a
//     usable table, or a standard error
func NewTableFromExistingFiles(name string, hashAlgorithm hashfunc.HashAlgorithm) (table *Table, err error) {
	if name == "" {
		err = fmt.Errorf("name can not be empty, it is used to locate the table meta file")
		return
	}

	meta, err := readMeta(name)
	if err != nil {
		return
	}

	sch, err := schema.New(meta.Fields, meta.KeyField)
	if err != nil {
		err = fileorg.CorruptHeader{}
		return
	}

	store, hashFiles, err := newStore(name, sch, meta, hashAlgorithm, true)
	if err != nil {
		return
	}

	table = newTable(name, meta.Organization, sch, store, hashFiles)

	return
}

// ConvertTable - Rebuilds an existing table under a new organization and/or new tuning. The
// source table is read in full and left untouched, the destination table is created under its
// own name with the source schema and bulk loaded. Duplicate keys in the source follow the
// destination's duplicate policy, so converting to an organization with unique keys fails on
// a source holding duplicates, in which case the partially built destination is removed again.
//   - name is the name of the existing source table
//   - toConf describes the destination table, its Name has to differ from the source name and
//     its Fields and KeyField have to be left empty since the schema is carried over
//   - hashAlgorithm is the custom hash algorithm of the source table, if it was created with one
//
// It returns:
//   - table is a pointer to a Table struct over the freshly built destination
//   - err is a normal Go error which should be nil if everything went ok
func ConvertTable(name string, toConf TableConf, hashAlgorithm hashfunc.HashAlgorithm) (table *Table, err error) {
	if toConf.Name == "" {
		err = fmt.Errorf("the destination table needs a name of its own")
		return
	}
	if toConf.Name == name {
		err = fmt.Errorf("the destination table can not reuse the source name %s", name)
		return
	}
	if len(toConf.Fields) != 0 || toConf.KeyField != "" {
		err = fmt.Errorf("the destination table keeps the source schema, leave fields and key field empty")
		return
	}

	from, err := NewTableFromExistingFiles(name, hashAlgorithm)
	if err != nil {
		return
	}
	defer from.CloseFiles()

	records, err := from.ScanAll()
	if err != nil {
		return
	}

	toConf.Fields = from.sch.Fields()
	toConf.KeyField = from.sch.KeyField().Name

	table, err = NewTable(toConf, false)
	if err != nil {
		return
	}

	err = table.Load(records)
	if err != nil {
		_ = table.RemoveFiles()
		table = nil
		return
	}

	return
}

// newTable - Assembles the facade around a created or opened store
func newTable(name string, organization fileorg.Organization, sch *schema.Schema, store Store, hashFiles *exthash.Files) (table *Table) {
	return &Table{
		name:         name,
		organization: organization,
		sch:          sch,
		store:        store,
		hashFiles:    hashFiles,
		CloseFiles:   func() { store.CloseFiles() },
		RemoveFiles: func() error {
			store.CloseFiles()
			if err := store.RemoveFiles(); err != nil {
				return err
			}
			return storage.RemoveStorageFile(storage.GetMetaFileName(name))
		},
	}
}

// newStore - Creates or opens the backing files for the organization named in the meta
func newStore(name string, sch *schema.Schema, meta tableMeta, hashAlgorithm hashfunc.HashAlgorithm, existing bool) (store Store, hashFiles *exthash.Files, err error) {
	switch meta.Organization {
	case fileorg.Heap:
		filesConf := heap.FilesConf{FileName: storage.GetHeapFileName(name), Schema: sch}
		if existing {
			store, err = heap.NewFilesFromExistingFiles(filesConf)
		} else {
			store, err = heap.NewFiles(filesConf)
		}

	case fileorg.Sequential:
		filesConf := seqfile.FilesConf{Name: name, Schema: sch, MaxAuxSize: meta.MaxAuxSize}
		if existing {
			store, err = seqfile.NewFilesFromExistingFiles(filesConf)
		} else {
			store, err = seqfile.NewFiles(filesConf)
		}

	case fileorg.ISAM:
		filesConf := isam.FilesConf{
			Name:        name,
			Schema:      sch,
			BlockFactor: meta.BlockFactor,
			RootFactor:  meta.RootFactor,
			SuperFactor: meta.SuperFactor,
		}
		if existing {
			store, err = isam.NewFilesFromExistingFiles(filesConf)
		} else {
			store, err = isam.NewFiles(filesConf)
		}

	case fileorg.ExtendibleHash:
		filesConf := exthash.FilesConf{
			Name:           name,
			Schema:         sch,
			BucketCapacity: meta.BucketCapacity,
			GlobalDepth:    meta.GlobalDepth,
			MaxGlobalDepth: meta.MaxGlobalDepth,
			HashAlgorithm:  hashAlgorithm,
		}
		var files *exthash.Files
		if existing {
			files, err = exthash.NewFilesFromExistingFiles(filesConf)
		} else {
			files, err = exthash.NewFiles(filesConf)
		}
		if err == nil {
			store = files
			hashFiles = files
		}

	case fileorg.BPlusTree:
		filesConf := bptree.FilesConf{Name: name, Schema: sch, Order: meta.Order}
		if existing {
			store, err = bptree.NewFilesFromExistingFiles(filesConf)
		} else {
			store, err = bptree.NewFiles(filesConf)
		}

	default:
		err = fmt.Errorf("unknown file organization: %d", meta.Organization)
	}

	return
}

// resolveTuning - Settles the tuning values the chosen organization will run with, so the meta
// file records concrete numbers. A zero sequential file threshold stays zero, it selects the
// adaptive rebuild threshold. Negative values pass through untouched and are rejected by the
// organization's own validation.
func resolveTuning(tableConf TableConf) (meta tableMeta) {
	meta = tableMeta{
		Organization: tableConf.Organization,
		Fields:       tableConf.Fields,
		KeyField:     tableConf.KeyField,
	}

	switch tableConf.Organization {
	case fileorg.Sequential:
		meta.MaxAuxSize = tableConf.MaxAuxSize
	case fileorg.ISAM:
		meta.BlockFactor = defaulted(tableConf.BlockFactor, conf.DefaultBlockFactor)
		meta.RootFactor = defaulted(tableConf.RootFactor, conf.DefaultRootFactor)
		meta.SuperFactor = defaulted(tableConf.SuperFactor, conf.DefaultSuperFactor)
	case fileorg.ExtendibleHash:
		meta.BucketCapacity = defaulted(tableConf.BucketCapacity, conf.DefaultBucketCapacity)
		meta.GlobalDepth = tableConf.GlobalDepth
		if meta.GlobalDepth == 0 {
			meta.GlobalDepth = conf.DefaultGlobalDepth
		}
		meta.MaxGlobalDepth = tableConf.MaxGlobalDepth
		if meta.MaxGlobalDepth == 0 {
			meta.MaxGlobalDepth = conf.DefaultMaxGlobalDepth
		}
	case fileorg.BPlusTree:
		meta.Order = defaulted(tableConf.Order, conf.DefaultOrder)
	}

	return
}

// defaulted - Returns the fallback when the value is zero
func defaulted(value, fallback int64) int64 {
	if value == 0 {
		return fallback
	}

	return value
}

// writeMeta - Writes the table meta file
func writeMeta(name string, meta tableMeta) (err error) {
	buf, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		err = fmt.Errorf("error while encoding table meta: %s", err)
		return
	}

	err = os.WriteFile(storage.GetMetaFileName(name), buf, 0644)
	if err != nil {
		err = fmt.Errorf("error while writing table meta file: %s", err)
	}

	return
}

// readMeta - Reads the table meta file. A missing or undecodable meta file is reported as a
// corrupt header since nothing else about the table can be trusted without it.
func readMeta(name string) (meta tableMeta, err error) {
	buf, err := os.ReadFile(storage.GetMetaFileName(name))
	if err != nil {
		err = fileorg.CorruptHeader{}
		return
	}

	err = json.Unmarshal(buf, &meta)
	if err != nil {
		err = fileorg.CorruptHeader{}
	}

	return
}

// removeTableFiles - Removes every backing file a table with the given name could have left
// behind, regardless of organization. Missing files are skipped.
func removeTableFiles(name string) (err error) {
	bucketFiles, err := filepath.Glob(fmt.Sprintf("%s-bucket-*.bin", name))
	if err != nil {
		err = fmt.Errorf("error while enumerating bucket files: %s", err)
		return
	}

	fileNames := append(bucketFiles,
		storage.GetHeapFileName(name),
		storage.GetIndexFileName(name),
		storage.GetDataFileName(name),
		storage.GetDirFileName(name),
		storage.GetPagesFileName(name),
		storage.GetRowsFileName(name),
		storage.GetNodesFileName(name),
		storage.GetMetaFileName(name),
	)

	err = storage.RemoveStorageFile(fileNames...)

	return
}
