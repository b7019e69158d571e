package btmdump

import (
	"net/url"

	"github.com/google/uuid"
)

// ItemRecord is one background item: a login item, agent, daemon or the app
// that owns them. Optional fields are nil when the archive omits them.
type ItemRecord struct {
	ref int

	Type        *int64
	Generation  *int64
	Disposition *int64

	URL  *url.URL
	UUID *uuid.UUID

	Name             *string
	Container        *string
	Identifier       *string
	DeveloperName    *string
	ExecutablePath   *string
	TeamIdentifier   *string
	BundleIdentifier *string

	Bookmark               []byte
	LightweightRequirement []byte

	AssociatedBundleIdentifiers []string

	// EmbeddedItems holds owning edges. A record reachable from several
	// parents is the same *ItemRecord in each of them.
	EmbeddedItems *ItemCollection

	// BackReferences replace embedded edges that would close an ownership
	// cycle.
	BackReferences []BackReference

	Problems []ProjectionWarning
}

// BackReference points at a record without owning it.
type BackReference struct {
	Ref        int
	Identifier *string
}

func newItemRecord(ref int) *ItemRecord {
	return &ItemRecord{ref: ref, EmbeddedItems: newItemCollection()}
}

// Ref is the record's index in the archive object table, its identity.
func (r *ItemRecord) Ref() int {
	return r.ref
}

// Partial reports whether some fields were dropped during projection.
func (r *ItemRecord) Partial() bool {
	return len(r.Problems) > 0
}

func (r *ItemRecord) IdentifierOrEmpty() string {
	if r.Identifier == nil {
		return ""
	}
	return *r.Identifier
}

func (r *ItemRecord) backReference() *BackReference {
	return &BackReference{Ref: r.ref, Identifier: r.Identifier}
}
