// Package fileorg enumerates the file organizations a table can be stored
// with, and holds the error types shared by their implementations.
package fileorg

import "fmt"

// Organization - Identifies one of the interchangeable file organizations
type Organization int

// Heap - Append-only file of fixed-size records, positions are slot indices
const Heap Organization = 1

// Sequential - Sorted primary area plus an unsorted auxiliary area threaded by next pointers
const Sequential Organization = 2

// ISAM - Static multi-level directory over fixed-capacity pages with overflow chains
const ISAM Organization = 3

// ExtendibleHash - Directory of hash-prefix bits over splittable buckets
const ExtendibleHash Organization = 4

// BPlusTree - Disk-paged balanced tree with linked leaves
const BPlusTree Organization = 5

// String - Returns the organization name as used in table meta files
func (O Organization) String() string {
	switch O {
	case Heap:
		return "heap"
	case Sequential:
		return "sequential"
	case ISAM:
		return "isam"
	case ExtendibleHash:
		return "exthash"
	case BPlusTree:
		return "bptree"
	default:
		return fmt.Sprintf("unknown(%d)", int(O))
	}
}

// ParseOrganization - Returns the Organization matching the given name.
//   - name is one of "heap", "sequential", "isam", "exthash" or "bptree"
//
// It returns:
//   - organization is the matching Organization
//   - err is a standard error if the name matches no known organization
func ParseOrganization(name string) (organization Organization, err error) {
	switch name {
	case "heap":
		organization = Heap
	case "sequential":
		organization = Sequential
	case "isam":
		organization = ISAM
	case "exthash":
		organization = ExtendibleHash
	case "bptree":
		organization = BPlusTree
	default:
		err = fmt.Errorf("unknown file organization: %s", name)
	}

	return
}

// MarshalText - Writes the organization as its meta file name
func (O Organization) MarshalText() (text []byte, err error) {
	text = []byte(O.String())
	return
}

// UnmarshalText - Reads the organization back from its meta file name
func (O *Organization) UnmarshalText(text []byte) (err error) {
	organization, err := ParseOrganization(string(text))
	if err != nil {
		return
	}

	*O = organization
	return
}
