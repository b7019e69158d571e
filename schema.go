package btmdump

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/denismitr/btmdump/internal/archive"
)

type schemaClass int

const (
	unknownClass schemaClass = iota
	storageClass
	itemRecordClass
)

var schemaClasses = map[schemaClass]string{
	storageClass:    "Storage",
	itemRecordClass: "ItemRecord",
}

func (c schemaClass) String() string {
	if n, ok := schemaClasses[c]; ok {
		return n
	}
	return "unknown"
}

// SchemaClassNames lists the archived class names the projector understands.
func SchemaClassNames() []string {
	return []string{schemaClasses[storageClass], schemaClasses[itemRecordClass]}
}

func classOf(o *archive.Object) schemaClass {
	for _, c := range []schemaClass{storageClass, itemRecordClass} {
		if o.IsA(schemaClasses[c]) {
			return c
		}
	}
	return unknownClass
}

func expectClass(o *archive.Object, want schemaClass) error {
	if got := classOf(o); got != want {
		return errors.Wrapf(ErrUnexpectedClass, "object %v is %q, want %s", o.Ref, o.Class, want)
	}
	return nil
}

const (
	fieldItemsByUserIdentifier   = "itemsByUserIdentifier"
	fieldMDMPayloadsByIdentifier = "mdmPayloadsByIdentifier"
	fieldItems                   = "items"
)

// layout is the container shape of one schema version, chosen once per
// archive from the fields present on the storage object.
type layout interface {
	version() SchemaVersion
	collections(p *projector, root *archive.Object) error
}

type v1Layout struct{}

func (v1Layout) version() SchemaVersion { return SchemaV1 }

func (v1Layout) collections(p *projector, root *archive.Object) error {
	raw := p.field(root, fieldItemsByUserIdentifier)
	owners, ok := raw.(archive.Dict)
	if !ok && raw != nil {
		return errors.Wrapf(ErrUnrecognizedShape, "%s is %s, want dictionary",
			fieldItemsByUserIdentifier, archive.DescribeValue(raw))
	}

	keys := make([]string, 0, len(owners))
	for owner := range owners {
		keys = append(keys, owner)
	}
	sort.Strings(keys)

	for _, owner := range keys {
		if err := p.collection(owner, owners[owner]); err != nil {
			return errors.Wrapf(err, "owner %q", owner)
		}
	}

	p.mdmPayloads(root)
	return nil
}

type v2Layout struct{}

func (v2Layout) version() SchemaVersion { return SchemaV2 }

func (v2Layout) collections(p *projector, root *archive.Object) error {
	raw := p.field(root, fieldItems)
	return p.collection(SystemOwner, raw)
}

func detectLayout(root *archive.Object) (layout, error) {
	v1 := root.Has(fieldItemsByUserIdentifier)
	v2 := root.Has(fieldItems)

	switch {
	case v1 && v2:
		return nil, errors.Wrapf(ErrAmbiguousShape, "storage %v has both %s and %s",
			root.Ref, fieldItemsByUserIdentifier, fieldItems)
	case v1:
		return v1Layout{}, nil
	case v2:
		return v2Layout{}, nil
	default:
		return nil, errors.Wrapf(ErrUnrecognizedShape, "storage %v has neither %s nor %s",
			root.Ref, fieldItemsByUserIdentifier, fieldItems)
	}
}
