package btmdump

import (
	"sort"
)

// SystemOwner is the owner key of items that belong to no particular user.
// Schema v2 stores its single flat collection under it.
const SystemOwner = "*"

type SchemaVersion int

const (
	SchemaV1 SchemaVersion = 1
	SchemaV2 SchemaVersion = 2
)

// Storage is the decoded root of a background task management store.
// Every owner key maps to a non-nil collection.
type Storage struct {
	Version                 SchemaVersion
	ItemsByOwner            map[string]*ItemCollection
	MDMPayloadsByIdentifier map[string][]byte
	Warnings                []ProjectionWarning

	records map[int]*ItemRecord
}

func newStorage(version SchemaVersion) *Storage {
	return &Storage{
		Version:                 version,
		ItemsByOwner:            make(map[string]*ItemCollection),
		MDMPayloadsByIdentifier: make(map[string][]byte),
		records:                 make(map[int]*ItemRecord),
	}
}

// Owners returns the owner keys in lexical order.
func (s *Storage) Owners() []string {
	owners := make([]string, 0, len(s.ItemsByOwner))
	for k := range s.ItemsByOwner {
		owners = append(owners, k)
	}
	sort.Strings(owners)
	return owners
}

// Items returns the collection of owner, or nil when there is no such owner.
func (s *Storage) Items(owner string) *ItemCollection {
	return s.ItemsByOwner[owner]
}

func (s *Storage) collection(owner string) *ItemCollection {
	c, ok := s.ItemsByOwner[owner]
	if !ok {
		c = newItemCollection()
		s.ItemsByOwner[owner] = c
	}
	return c
}

// Record looks a projected record up by its archive reference index.
func (s *Storage) Record(ref int) (*ItemRecord, bool) {
	r, ok := s.records[ref]
	return r, ok
}

// Len is the number of distinct records, embedded ones included.
func (s *Storage) Len() int {
	return len(s.records)
}

// Partial reports whether anything was dropped during projection.
func (s *Storage) Partial() bool {
	return len(s.Warnings) > 0
}
