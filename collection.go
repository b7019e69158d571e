package btmdump

import (
	"github.com/tidwall/btree"
)

const castPanic = "how could an item collection entry not be of type *collectionEntry"

type collectionEntry struct {
	key    recordKey
	record *ItemRecord
}

func byRecordKeys(a, b interface{}) bool {
	i1, i2 := a.(*collectionEntry), b.(*collectionEntry)
	return i1.key.Less(i2.key)
}

// ItemCollection is a set of records. Iteration follows identifier order,
// which only exists to make output stable.
type ItemCollection struct {
	items *btree.BTree
}

func newItemCollection() *ItemCollection {
	return &ItemCollection{items: btree.NewNonConcurrent(byRecordKeys)}
}

func entryOf(r *ItemRecord) *collectionEntry {
	return &collectionEntry{key: newRecordKey(r.IdentifierOrEmpty(), r.ref), record: r}
}

// add is idempotent for the same record.
func (c *ItemCollection) add(r *ItemRecord) {
	c.items.Set(entryOf(r))
}

func (c *ItemCollection) Len() int {
	if c == nil {
		return 0
	}
	return c.items.Len()
}

func (c *ItemCollection) Contains(r *ItemRecord) bool {
	if c == nil || r == nil {
		return false
	}
	return c.items.Get(entryOf(r)) != nil
}

// Get returns the record with the given identifier. When several records
// share it, the one with the lowest reference index wins.
func (c *ItemCollection) Get(identifier string) (*ItemRecord, bool) {
	var found *ItemRecord
	c.Ascend(identifier, func(r *ItemRecord) bool {
		if r.IdentifierOrEmpty() == identifier {
			found = r
		}
		return false
	})

	return found, found != nil
}

// Ascend calls fn for every record whose key is not less than the one made
// of pivot, in ascending order. An empty pivot visits everything.
func (c *ItemCollection) Ascend(pivot string, fn func(r *ItemRecord) bool) {
	if c == nil {
		return
	}

	var p interface{}
	if pivot != "" {
		p = &collectionEntry{key: newRecordKey(pivot, -1)}
	}

	c.items.Ascend(p, collectionIterator(fn))
}

// AscendPrefix calls fn, in ascending order, for every record whose
// identifier starts with prefix.
func (c *ItemCollection) AscendPrefix(prefix string, fn func(r *ItemRecord) bool) {
	if c == nil {
		return
	}

	var p interface{}
	if prefix != "" {
		p = &collectionEntry{key: newRecordKey(prefix, -1)}
	}

	c.items.Ascend(p, func(item interface{}) bool {
		ent, ok := item.(*collectionEntry)
		if !ok {
			panic(castPanic)
		}

		if !ent.key.HasPrefix(prefix) {
			return true
		}
		return fn(ent.record)
	})
}

func (c *ItemCollection) Descend(fn func(r *ItemRecord) bool) {
	if c == nil {
		return
	}

	c.items.Descend(nil, collectionIterator(fn))
}

func (c *ItemCollection) Records() []*ItemRecord {
	out := make([]*ItemRecord, 0, c.Len())
	c.Ascend("", func(r *ItemRecord) bool {
		out = append(out, r)
		return true
	})
	return out
}

func collectionIterator(fn func(r *ItemRecord) bool) func(item interface{}) bool {
	return func(item interface{}) bool {
		ent, ok := item.(*collectionEntry)
		if !ok {
			panic(castPanic)
		}

		return fn(ent.record)
	}
}
