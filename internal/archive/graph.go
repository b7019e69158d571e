package archive

import (
	"fmt"
	"time"
)

// Ref is the index of an object in the archive's object table. Two values
// holding the same Ref denote the same logical object.
type Ref int

func (r Ref) String() string {
	return fmt.Sprintf("#%d", int(r))
}

// CollectionRef is the table index of a Foundation collection that was
// reached again while its own elements were being resolved. Graph.Deref
// turns it back into the finished collection.
type CollectionRef int

func (c CollectionRef) String() string {
	return fmt.Sprintf("@%d", int(c))
}

// Value is a resolved field value. It is always one of:
//   nil, string, []byte, int64, float64, bool, time.Time,
//   Ref, CollectionRef, List, Set, Dict, *URL, UUID
type Value interface{}

type (
	List []Value
	Set  []Value
	Dict map[string]Value
)

// UUID holds the raw bytes of an archived NSUUID.
type UUID [16]byte

// URL is an archived NSURL: a relative string and an optional base URL.
type URL struct {
	Base     *URL
	Relative string
}

// Object is a resolved non-Foundation object: everything the archive holds
// besides strings, numbers, data and the Foundation collection classes.
type Object struct {
	Ref     Ref
	Class   string
	Classes []string
	Fields  map[string]Value
}

func (o *Object) Field(name string) (Value, bool) {
	v, ok := o.Fields[name]
	return v, ok
}

func (o *Object) Has(name string) bool {
	_, ok := o.Fields[name]
	return ok
}

// IsA reports whether the object's class or any archived ancestor is name.
func (o *Object) IsA(name string) bool {
	if o.Class == name {
		return true
	}
	for _, c := range o.Classes {
		if c == name {
			return true
		}
	}
	return false
}

// Graph is the arena of resolved objects for one archive.
type Graph struct {
	Root Value

	objects     map[Ref]*Object
	collections map[CollectionRef]Value
}

func newGraph() *Graph {
	return &Graph{
		objects:     make(map[Ref]*Object),
		collections: make(map[CollectionRef]Value),
	}
}

func (g *Graph) Object(r Ref) (*Object, bool) {
	o, ok := g.objects[r]
	return o, ok
}

func (g *Graph) Collection(c CollectionRef) (Value, bool) {
	v, ok := g.collections[c]
	return v, ok
}

// Deref returns the collection a CollectionRef stands for and any other
// value unchanged.
func (g *Graph) Deref(v Value) Value {
	c, ok := v.(CollectionRef)
	if !ok {
		return v
	}
	coll, _ := g.Collection(c)
	return coll
}

func (g *Graph) Len() int {
	return len(g.objects)
}

// RootObject returns the root when it is an object rather than a plain value.
func (g *Graph) RootObject() (*Object, bool) {
	r, ok := g.Root.(Ref)
	if !ok {
		return nil, false
	}
	return g.Object(r)
}

// DescribeValue names the kind of a resolved value for error messages.
func DescribeValue(v Value) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case []byte:
		return "data"
	case int64:
		return "integer"
	case float64:
		return "real"
	case bool:
		return "boolean"
	case time.Time:
		return "date"
	case Ref:
		return "object reference"
	case CollectionRef:
		return "collection reference"
	case List:
		return "array"
	case Set:
		return "set"
	case Dict:
		return "dictionary"
	case *URL:
		return "url"
	case UUID:
		return "uuid"
	default:
		return fmt.Sprintf("%T", v)
	}
}
