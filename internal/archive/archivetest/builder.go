// Package archivetest builds keyed archives in memory for tests.
package archivetest

import (
	"github.com/denismitr/btmdump/internal/plist"
)

var foundationChains = map[string][]string{
	"NSArray":             {"NSArray", "NSObject"},
	"NSMutableArray":      {"NSMutableArray", "NSArray", "NSObject"},
	"NSSet":               {"NSSet", "NSObject"},
	"NSMutableSet":        {"NSMutableSet", "NSSet", "NSObject"},
	"NSDictionary":        {"NSDictionary", "NSObject"},
	"NSMutableDictionary": {"NSMutableDictionary", "NSDictionary", "NSObject"},
	"NSMutableString":     {"NSMutableString", "NSString", "NSObject"},
	"NSMutableData":       {"NSMutableData", "NSData", "NSObject"},
	"NSURL":               {"NSURL", "NSObject"},
	"NSUUID":              {"NSUUID", "NSObject"},
	"NSDate":              {"NSDate", "NSObject"},
}

// Builder accumulates an object table. Index 0 is always $null.
type Builder struct {
	objects plist.Array
	classes map[string]plist.UID
	strings map[string]plist.UID
	root    plist.UID
	top     plist.Dict
}

func New() *Builder {
	return &Builder{
		objects: plist.Array{plist.String("$null")},
		classes: make(map[string]plist.UID),
		strings: make(map[string]plist.UID),
	}
}

func (b *Builder) Null() plist.UID {
	return 0
}

func (b *Builder) append(v plist.Value) plist.UID {
	b.objects = append(b.objects, v)
	return plist.UID(len(b.objects) - 1)
}

// Class returns the class description for name, adding it on first use.
func (b *Builder) Class(name string, ancestors ...string) plist.UID {
	if u, ok := b.classes[name]; ok {
		return u
	}

	chain, ok := foundationChains[name]
	if !ok {
		chain = append([]string{name}, ancestors...)
		chain = append(chain, "NSObject")
	}

	classes := make(plist.Array, len(chain))
	for i, c := range chain {
		classes[i] = plist.String(c)
	}

	u := b.append(plist.Dict{
		"$classname": plist.String(name),
		"$classes":   classes,
	})
	b.classes[name] = u
	return u
}

// Reserve allocates a table slot to be filled later, which is how tests
// build objects that reference each other.
func (b *Builder) Reserve() plist.UID {
	return b.append(plist.String("$placeholder"))
}

func (b *Builder) Fill(u plist.UID, class string, fields plist.Dict) {
	d := make(plist.Dict, len(fields)+1)
	for k, v := range fields {
		d[k] = v
	}
	d["$class"] = b.Class(class)
	b.objects[u] = d
}

func (b *Builder) Object(class string, fields plist.Dict) plist.UID {
	u := b.Reserve()
	b.Fill(u, class, fields)
	return u
}

// Raw appends an arbitrary table entry.
func (b *Builder) Raw(v plist.Value) plist.UID {
	return b.append(v)
}

// String interns a plain string entry.
func (b *Builder) String(s string) plist.UID {
	if u, ok := b.strings[s]; ok {
		return u
	}
	u := b.append(plist.String(s))
	b.strings[s] = u
	return u
}

func (b *Builder) Data(data []byte) plist.UID {
	return b.append(plist.Data(data))
}

func refs(uids []plist.UID) plist.Array {
	out := make(plist.Array, len(uids))
	for i, u := range uids {
		out[i] = u
	}
	return out
}

func (b *Builder) Array(elems ...plist.UID) plist.UID {
	return b.Object("NSArray", plist.Dict{"NS.objects": refs(elems)})
}

func (b *Builder) Set(elems ...plist.UID) plist.UID {
	return b.Object("NSMutableSet", plist.Dict{"NS.objects": refs(elems)})
}

// Dictionary keeps keys in the given order.
func (b *Builder) Dictionary(keys []string, values []plist.UID) plist.UID {
	ks := make([]plist.UID, len(keys))
	for i, k := range keys {
		ks[i] = b.String(k)
	}
	return b.Object("NSMutableDictionary", plist.Dict{
		"NS.keys":    refs(ks),
		"NS.objects": refs(values),
	})
}

func (b *Builder) URL(relative string) plist.UID {
	return b.Object("NSURL", plist.Dict{
		"NS.base":     b.Null(),
		"NS.relative": b.String(relative),
	})
}

func (b *Builder) UUID(raw [16]byte) plist.UID {
	return b.Object("NSUUID", plist.Dict{"NS.uuidbytes": plist.Data(raw[:])})
}

func (b *Builder) Root(u plist.UID) *Builder {
	b.root = u
	return b
}

// Top replaces the whole $top dict, for envelope tests.
func (b *Builder) Top(top plist.Dict) *Builder {
	b.top = top
	return b
}

func (b *Builder) Tree() plist.Dict {
	top := b.top
	if top == nil {
		top = plist.Dict{"root": b.root}
	}

	objects := make(plist.Array, len(b.objects))
	copy(objects, b.objects)

	return plist.Dict{
		"$archiver": plist.String("NSKeyedArchiver"),
		"$version":  plist.Integer(100000),
		"$objects":  objects,
		"$top":      top,
	}
}

func (b *Builder) Bytes() ([]byte, error) {
	return plist.Encode(b.Tree())
}
