// Package storage holds what is common between the file organization
// implementations: backing file naming, opening with validation, creation
// and removal, and positioned block access.
package storage

import (
	"fmt"
	"github.com/JoseEd0/tablefile/fileorg"
	"io"
	"os"
)

// GetHeapFileName - Returns the heap file name given the table name
func GetHeapFileName(name string) (fileName string) {
	return fmt.Sprintf("%s-heap.bin", name)
}

// GetDataFileName - Returns the payload data file name given the table name
func GetDataFileName(name string) (fileName string) {
	return fmt.Sprintf("%s-data.bin", name)
}

// GetIndexFileName - Returns the sequential index file name given the table name
func GetIndexFileName(name string) (fileName string) {
	return fmt.Sprintf("%s-index.bin", name)
}

// GetDirFileName - Returns the directory file name given the table name
func GetDirFileName(name string) (fileName string) {
	return fmt.Sprintf("%s-dir.bin", name)
}

// GetPagesFileName - Returns the pages file name given the table name
func GetPagesFileName(name string) (fileName string) {
	return fmt.Sprintf("%s-pages.bin", name)
}

// GetRowsFileName - Returns the payload log file name given the table name
func GetRowsFileName(name string) (fileName string) {
	return fmt.Sprintf("%s-rows.bin", name)
}

// GetBucketFileName - Returns a bucket file name given the table name and bucket id
func GetBucketFileName(name string, bucketID int32) (fileName string) {
	return fmt.Sprintf("%s-bucket-%d.bin", name, bucketID)
}

// GetNodesFileName - Returns the tree nodes file name given the table name
func GetNodesFileName(name string) (fileName string) {
	return fmt.Sprintf("%s-nodes.bin", name)
}

// GetMetaFileName - Returns the table meta file name given the table name
func GetMetaFileName(name string) (fileName string) {
	return fmt.Sprintf("%s-meta.json", name)
}

// OpenStorageFile - Opens an existing backing file and does rudimentary checks of its validity.
//   - fileName is the file to open
//   - minSize is the smallest size in bytes a valid file can have, typically its header length
//
// It returns:
//   - filePtr which is the opened file
//   - err which is of type fileorg.CorruptHeader if the file is missing, a directory or too small
func OpenStorageFile(fileName string, minSize int64) (filePtr *os.File, err error) {
	stat, ok := os.Stat(fileName)
	if ok != nil || stat.IsDir() {
		err = fileorg.CorruptHeader{}
		return
	}
	if stat.Size() < minSize {
		err = fileorg.CorruptHeader{}
		return
	}

	filePtr, err = os.OpenFile(fileName, os.O_RDWR, 0644)
	if err != nil {
		err = fmt.Errorf("unable to open existing storage file: %s", err)
		return
	}

	return
}

// CreateStorageFile - Creates a new backing file. If it already exists it will first be truncated
// to zero length and then to the given length, hence deleting all existing data.
//   - fileName is the file to create
//   - size is the initial file length in bytes, zero leaves the file empty
//
// It returns:
//   - filePtr which is the created file
//   - err which is a standard Go type of error
func CreateStorageFile(fileName string, size int64) (filePtr *os.File, err error) {
	filePtr, err = os.OpenFile(fileName, os.O_CREATE|os.O_TRUNC|os.O_RDWR, 0644)
	if err != nil {
		err = fmt.Errorf("error while open/create new storage file: %s", err)
		return
	}

	if size > 0 {
		err = filePtr.Truncate(size)
		if err != nil {
			_ = filePtr.Close()
			filePtr = nil
			err = fmt.Errorf("error while truncate new storage file to length %d: %s", size, err)
		}
	}

	return
}

// CloseStorageFile - Syncs and closes a backing file, tolerating a nil file
func CloseStorageFile(filePtr *os.File) {
	if filePtr != nil {
		_ = filePtr.Sync()
		_ = filePtr.Close()
	}
}

// RemoveStorageFile - Removes backing files, make sure to close them first before calling this function
func RemoveStorageFile(fileNames ...string) (err error) {
	// Only try to remove if exists, and are not by accident directories (could happen when testing things out)
	for _, fileName := range fileNames {
		if stat, ok := os.Stat(fileName); ok == nil {
			if !stat.IsDir() {
				err = os.Remove(fileName)
				if err != nil {
					err = fmt.Errorf("error while removing storage file: %s", err)
					return
				}
			}
		}
	}

	return
}

// GetBlock - Reads length bytes at the given offset
func GetBlock(filePtr *os.File, offset, length int64) (buf []byte, err error) {
	_, err = filePtr.Seek(offset, io.SeekStart)
	if err != nil {
		return
	}

	buf = make([]byte, length)
	_, err = io.ReadFull(filePtr, buf)
	if err != nil {
		buf = nil
		return
	}

	return
}

// SetBlock - Writes the given bytes at the given offset
func SetBlock(filePtr *os.File, buf []byte, offset int64) (err error) {
	_, err = filePtr.Seek(offset, io.SeekStart)
	if err != nil {
		return
	}

	_, err = filePtr.Write(buf)

	return
}

// AppendBlock - Writes the given bytes at the end of the file and returns the offset they were written at
func AppendBlock(filePtr *os.File, buf []byte) (offset int64, err error) {
	offset, err = filePtr.Seek(0, io.SeekEnd)
	if err != nil {
		return
	}

	_, err = filePtr.Write(buf)

	return
}
