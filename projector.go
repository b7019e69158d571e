package btmdump

import (
	"io"
	"log"
	"net/url"
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/denismitr/btmdump/internal/archive"
)

const (
	fieldType                        = "type"
	fieldGeneration                  = "generation"
	fieldDisposition                 = "disposition"
	fieldURL                         = "url"
	fieldUUID                        = "uuid"
	fieldName                        = "name"
	fieldContainer                   = "container"
	fieldIdentifier                  = "identifier"
	fieldDeveloperName               = "developerName"
	fieldExecutablePath              = "executablePath"
	fieldTeamIdentifier              = "teamIdentifier"
	fieldBundleIdentifier            = "bundleIdentifier"
	fieldBookmark                    = "bookmark"
	fieldLightweightRequirement      = "lightweightRequirement"
	fieldAssociatedBundleIdentifiers = "associatedBundleIdentifiers"
	fieldEmbeddedItems               = "embeddedItems"
)

var discardLogger = log.New(io.Discard, "", 0)

type projector struct {
	graph      *archive.Graph
	storage    *Storage
	inProgress map[int]bool
	logger     *log.Logger
}

func project(g *archive.Graph, logger *log.Logger) (*Storage, error) {
	if logger == nil {
		logger = discardLogger
	}

	root, ok := g.RootObject()
	if !ok {
		return nil, errors.Wrapf(ErrUnrecognizedShape, "archive root is %s, want a storage object",
			archive.DescribeValue(g.Root))
	}

	if err := expectClass(root, storageClass); err != nil {
		return nil, err
	}

	l, err := detectLayout(root)
	if err != nil {
		return nil, err
	}

	p := &projector{
		graph:      g,
		storage:    newStorage(l.version()),
		inProgress: make(map[int]bool),
		logger:     logger,
	}

	if err := l.collections(p, root); err != nil {
		return nil, err
	}

	return p.storage, nil
}

// elementsOf flattens the container shapes a collection may be archived as.
// Dictionary values are taken in key order.
func elementsOf(v archive.Value) ([]archive.Value, bool) {
	switch c := v.(type) {
	case nil:
		return nil, true
	case archive.List:
		return c, true
	case archive.Set:
		return c, true
	case archive.Dict:
		keys := make([]string, 0, len(c))
		for k := range c {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		out := make([]archive.Value, len(keys))
		for i, k := range keys {
			out[i] = c[k]
		}
		return out, true
	default:
		return nil, false
	}
}

// field reads a field of o, following a collection handle to the
// collection it stands for.
func (p *projector) field(o *archive.Object, name string) archive.Value {
	v, _ := o.Field(name)
	return p.graph.Deref(v)
}

func (p *projector) collection(owner string, v archive.Value) error {
	c := p.storage.collection(owner)

	v = p.graph.Deref(v)
	elems, ok := elementsOf(v)
	if !ok {
		return errors.Wrapf(ErrUnrecognizedShape, "item collection is %s", archive.DescribeValue(v))
	}

	for i, e := range elems {
		ref, ok := e.(archive.Ref)
		if !ok {
			p.storageWarning(p.collectionField(), errors.Wrapf(ErrFieldType,
				"owner %q element %d is %s, want item record", owner, i, archive.DescribeValue(e)))
			continue
		}

		rec, err := p.record(ref)
		if err != nil {
			return err
		}

		c.add(rec)
	}

	return nil
}

func (p *projector) collectionField() string {
	if p.storage.Version == SchemaV1 {
		return fieldItemsByUserIdentifier
	}
	return fieldItems
}

func (p *projector) mdmPayloads(root *archive.Object) {
	raw := p.field(root, fieldMDMPayloadsByIdentifier)
	if raw == nil {
		return
	}

	payloads, ok := raw.(archive.Dict)
	if !ok {
		p.storageWarning(fieldMDMPayloadsByIdentifier, errors.Wrapf(ErrFieldType,
			"%s, want dictionary", archive.DescribeValue(raw)))
		return
	}

	ids := make([]string, 0, len(payloads))
	for id := range payloads {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		data, ok := payloads[id].([]byte)
		if !ok {
			p.storageWarning(fieldMDMPayloadsByIdentifier, errors.Wrapf(ErrFieldType,
				"payload %q is %s, want data", id, archive.DescribeValue(payloads[id])))
			continue
		}
		p.storage.MDMPayloadsByIdentifier[id] = data
	}
}

// record projects the object at ref, or returns the record already projected
// from it. Callers check inProgress first.
func (p *projector) record(ref archive.Ref) (*ItemRecord, error) {
	if rec, ok := p.storage.records[int(ref)]; ok {
		return rec, nil
	}

	o, ok := p.graph.Object(ref)
	if !ok {
		return nil, errors.Wrapf(ErrUnexpectedClass, "%v is not an archived object", ref)
	}

	if err := expectClass(o, itemRecordClass); err != nil {
		return nil, err
	}

	rec := newItemRecord(int(ref))
	p.storage.records[rec.ref] = rec
	p.inProgress[rec.ref] = true
	defer delete(p.inProgress, rec.ref)

	p.scalars(rec, o)

	if err := p.embedded(rec, o); err != nil {
		return nil, errors.Wrapf(err, "embedded in %v", ref)
	}

	return rec, nil
}

func (p *projector) scalars(rec *ItemRecord, o *archive.Object) {
	// identifier first so later warnings can name the record
	rec.Identifier = p.stringField(rec, o, fieldIdentifier)

	rec.Type = p.intField(rec, o, fieldType)
	rec.Generation = p.intField(rec, o, fieldGeneration)
	rec.Disposition = p.intField(rec, o, fieldDisposition)

	rec.URL = p.urlField(rec, o)
	rec.UUID = p.uuidField(rec, o)

	rec.Name = p.stringField(rec, o, fieldName)
	rec.Container = p.stringField(rec, o, fieldContainer)
	rec.DeveloperName = p.stringField(rec, o, fieldDeveloperName)
	rec.ExecutablePath = p.stringField(rec, o, fieldExecutablePath)
	rec.TeamIdentifier = p.stringField(rec, o, fieldTeamIdentifier)
	rec.BundleIdentifier = p.stringField(rec, o, fieldBundleIdentifier)

	rec.Bookmark = p.dataField(rec, o, fieldBookmark)
	rec.LightweightRequirement = p.dataField(rec, o, fieldLightweightRequirement)

	rec.AssociatedBundleIdentifiers = p.stringsField(rec, o, fieldAssociatedBundleIdentifiers)
}

func (p *projector) embedded(rec *ItemRecord, o *archive.Object) error {
	raw := p.field(o, fieldEmbeddedItems)

	elems, ok := elementsOf(raw)
	if !ok {
		p.warn(rec, fieldEmbeddedItems, errors.Wrapf(ErrFieldType, "%s, want set", archive.DescribeValue(raw)))
		return nil
	}

	for i, e := range elems {
		ref, ok := e.(archive.Ref)
		if !ok {
			p.warn(rec, fieldEmbeddedItems, errors.Wrapf(ErrFieldType,
				"element %d is %s, want item record", i, archive.DescribeValue(e)))
			continue
		}

		// an ancestor on the current path: owning it would close a cycle
		if p.inProgress[int(ref)] {
			rec.BackReferences = append(rec.BackReferences, *p.storage.records[int(ref)].backReference())
			continue
		}

		child, err := p.record(ref)
		if err != nil {
			return err
		}

		rec.EmbeddedItems.add(child)
	}

	return nil
}

func (p *projector) warn(rec *ItemRecord, field string, err error) {
	w := ProjectionWarning{Ref: rec.ref, Identifier: rec.Identifier, Field: field, Err: err}
	rec.Problems = append(rec.Problems, w)
	p.storage.Warnings = append(p.storage.Warnings, w)
	p.logger.Printf("projection warning: %v", w)
}

func (p *projector) storageWarning(field string, err error) {
	w := ProjectionWarning{Storage: true, Field: field, Err: err}
	p.storage.Warnings = append(p.storage.Warnings, w)
	p.logger.Printf("projection warning: %v", w)
}

func (p *projector) stringField(rec *ItemRecord, o *archive.Object, name string) *string {
	raw := p.field(o, name)
	switch v := raw.(type) {
	case nil:
		return nil
	case string:
		return &v
	default:
		p.warn(rec, name, errors.Wrapf(ErrFieldType, "%s, want string", archive.DescribeValue(raw)))
		return nil
	}
}

func (p *projector) intField(rec *ItemRecord, o *archive.Object, name string) *int64 {
	raw := p.field(o, name)
	switch v := raw.(type) {
	case nil:
		return nil
	case int64:
		return &v
	default:
		p.warn(rec, name, errors.Wrapf(ErrFieldType, "%s, want integer", archive.DescribeValue(raw)))
		return nil
	}
}

func (p *projector) dataField(rec *ItemRecord, o *archive.Object, name string) []byte {
	raw := p.field(o, name)
	switch v := raw.(type) {
	case nil:
		return nil
	case []byte:
		return v
	default:
		p.warn(rec, name, errors.Wrapf(ErrFieldType, "%s, want data", archive.DescribeValue(raw)))
		return nil
	}
}

func (p *projector) stringsField(rec *ItemRecord, o *archive.Object, name string) []string {
	raw := p.field(o, name)
	if raw == nil {
		return nil
	}

	var elems []archive.Value
	switch v := raw.(type) {
	case archive.List:
		elems = v
	case archive.Set:
		elems = v
	default:
		p.warn(rec, name, errors.Wrapf(ErrFieldType, "%s, want array", archive.DescribeValue(raw)))
		return nil
	}

	out := make([]string, 0, len(elems))
	for i, e := range elems {
		s, ok := e.(string)
		if !ok {
			p.warn(rec, name, errors.Wrapf(ErrFieldType,
				"element %d is %s, want string", i, archive.DescribeValue(e)))
			return nil
		}
		out = append(out, s)
	}

	return out
}

func (p *projector) urlField(rec *ItemRecord, o *archive.Object) *url.URL {
	raw := p.field(o, fieldURL)
	if raw == nil {
		return nil
	}

	u, err := resolveURL(raw)
	if err != nil {
		p.warn(rec, fieldURL, err)
		return nil
	}

	return u
}

func resolveURL(v archive.Value) (*url.URL, error) {
	switch u := v.(type) {
	case string:
		return parseURL(u, true)
	case *archive.URL:
		if u.Base == nil {
			return parseURL(u.Relative, true)
		}

		base, err := resolveURL(u.Base)
		if err != nil {
			return nil, errors.Wrap(err, "base")
		}

		rel, err := parseURL(u.Relative, false)
		if err != nil {
			return nil, err
		}

		return base.ResolveReference(rel), nil
	default:
		return nil, errors.Wrapf(ErrFieldType, "%s, want url", archive.DescribeValue(v))
	}
}

func parseURL(s string, absolute bool) (*url.URL, error) {
	if s == "" {
		return nil, errors.Wrap(ErrInvalidURL, "empty")
	}

	u, err := url.Parse(s)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidURL, "%q: %v", s, err)
	}

	if absolute && !u.IsAbs() {
		return nil, errors.Wrapf(ErrInvalidURL, "%q has no scheme", s)
	}

	return u, nil
}

func (p *projector) uuidField(rec *ItemRecord, o *archive.Object) *uuid.UUID {
	raw := p.field(o, fieldUUID)
	switch v := raw.(type) {
	case nil:
		return nil
	case archive.UUID:
		id := uuid.UUID(v)
		return &id
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			p.warn(rec, fieldUUID, errors.Wrapf(ErrInvalidUUID, "%q: %v", v, err))
			return nil
		}
		return &id
	default:
		p.warn(rec, fieldUUID, errors.Wrapf(ErrFieldType, "%s, want uuid", archive.DescribeValue(raw)))
		return nil
	}
}
