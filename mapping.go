package btmdump

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/pkg/errors"

	"github.com/denismitr/btmdump/options"
)

const (
	KeyPath                    = "path"
	KeyVersion                 = "version"
	KeyItemsByOwner            = "itemsByOwner"
	KeyItems                   = "items"
	KeyAccount                 = "account"
	KeyMDMPayloadsByIdentifier = "mdmPayloadsByIdentifier"
	KeyError                   = "error"
)

// Mapping is a string-keyed map that remembers insertion order, which is
// also the order it marshals in.
type Mapping struct {
	keys   []string
	values map[string]interface{}
}

func NewMapping() *Mapping {
	return &Mapping{values: make(map[string]interface{})}
}

// Set stores v under k. An existing key keeps its position.
func (m *Mapping) Set(k string, v interface{}) *Mapping {
	if _, ok := m.values[k]; !ok {
		m.keys = append(m.keys, k)
	}
	m.values[k] = v
	return m
}

func (m *Mapping) prepend(k string, v interface{}) *Mapping {
	if _, ok := m.values[k]; ok {
		m.values[k] = v
		return m
	}
	m.keys = append([]string{k}, m.keys...)
	m.values[k] = v
	return m
}

func (m *Mapping) Get(k string) (interface{}, bool) {
	v, ok := m.values[k]
	return v, ok
}

func (m *Mapping) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

func (m *Mapping) Len() int {
	return len(m.keys)
}

func (m *Mapping) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}

		kb, err := json.Marshal(k)
		if err != nil {
			return nil, errors.Wrapf(err, "key %q", k)
		}
		buf.Write(kb)
		buf.WriteByte(':')

		vb, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, errors.Wrapf(err, "value of %q", k)
		}
		buf.Write(vb)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ToMapping renders s for machine consumption. Absent fields are omitted and
// byte payloads are described by length and digest, never inlined.
func ToMapping(s *Storage, opts ...*options.ListOptions) *Mapping {
	lo := options.Merge(opts...)

	m := NewMapping()
	m.Set(KeyVersion, int64(s.Version))

	owners := NewMapping()
	for _, owner := range s.selectedOwners(lo) {
		items := make([]interface{}, 0)
		for _, r := range s.ItemsByOwner[owner].selected(lo) {
			items = append(items, recordMapping(r, lo))
		}

		om := NewMapping()
		if name, ok := ownerName(lo, owner); ok {
			om.Set(KeyAccount, name)
		}
		om.Set(KeyItems, items)
		owners.Set(owner, om)
	}
	m.Set(KeyItemsByOwner, owners)

	if len(s.MDMPayloadsByIdentifier) > 0 {
		ids := make([]string, 0, len(s.MDMPayloadsByIdentifier))
		for id := range s.MDMPayloadsByIdentifier {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		payloads := NewMapping()
		for _, id := range ids {
			payloads.Set(id, blobMapping(s.MDMPayloadsByIdentifier[id]))
		}
		m.Set(KeyMDMPayloadsByIdentifier, payloads)
	}

	if len(s.Warnings) > 0 {
		problems := make([]interface{}, len(s.Warnings))
		for i, w := range s.Warnings {
			problems[i] = NewMapping().
				Set("identifier", w.Subject()).
				Set("field", w.Field).
				Set("reason", w.Err.Error())
		}
		m.Set(KeyError, problems)
	}

	return m
}

func recordMapping(r *ItemRecord, lo *options.ListOptions) *Mapping {
	m := NewMapping()
	for _, f := range recordFields(r) {
		switch v := f.value.(type) {
		case []byte:
			m.Set(f.name, blobMapping(v))
		case []string:
			list := make([]interface{}, len(v))
			for i, s := range v {
				list[i] = s
			}
			m.Set(f.name, list)
		default:
			m.Set(f.name, v)
		}
	}

	if r.EmbeddedItems.Len() > 0 {
		embedded := make([]interface{}, 0, r.EmbeddedItems.Len())
		for _, child := range r.EmbeddedItems.ordered(lo) {
			embedded = append(embedded, recordMapping(child, lo))
		}
		m.Set(fieldEmbeddedItems, embedded)
	}

	if len(r.BackReferences) > 0 {
		refs := make([]interface{}, len(r.BackReferences))
		for i, br := range r.BackReferences {
			bm := NewMapping().Set("ref", int64(br.Ref))
			if br.Identifier != nil {
				bm.Set(fieldIdentifier, *br.Identifier)
			}
			refs[i] = bm
		}
		m.Set("backReferences", refs)
	}

	return m
}

func blobMapping(b []byte) *Mapping {
	return NewMapping().
		Set("length", int64(len(b))).
		Set("xxhash64", digest(b))
}
