// Package plist turns property list bytes into a small closed tree of
// tagged values that the archive resolver can walk without caring which
// plist encoding the bytes came in.
package plist

import (
	"fmt"
	"time"
)

type Kind uint8

const (
	InvalidKind Kind = iota
	DictKind
	ArrayKind
	StringKind
	DataKind
	IntegerKind
	RealKind
	BooleanKind
	DateKind
	UIDKind
)

var kindNames = [...]string{
	InvalidKind: "invalid",
	DictKind:    "dict",
	ArrayKind:   "array",
	StringKind:  "string",
	DataKind:    "data",
	IntegerKind: "integer",
	RealKind:    "real",
	BooleanKind: "boolean",
	DateKind:    "date",
	UIDKind:     "uid",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Value is one node of a decoded tree. The set of implementations is closed.
type Value interface {
	Kind() Kind
}

type (
	Dict    map[string]Value
	Array   []Value
	String  string
	Data    []byte
	Integer int64
	Real    float64
	Boolean bool
	Date    time.Time

	// UID is a keyed-archive back-reference into the object table. It is
	// signed so that corrupt or hand-built negative indexes survive decoding
	// and get rejected by the resolver instead of wrapping around.
	UID int64
)

func (Dict) Kind() Kind    { return DictKind }
func (Array) Kind() Kind   { return ArrayKind }
func (String) Kind() Kind  { return StringKind }
func (Data) Kind() Kind    { return DataKind }
func (Integer) Kind() Kind { return IntegerKind }
func (Real) Kind() Kind    { return RealKind }
func (Boolean) Kind() Kind { return BooleanKind }
func (Date) Kind() Kind    { return DateKind }
func (UID) Kind() Kind     { return UIDKind }

// KindOf is nil-safe.
func KindOf(v Value) Kind {
	if v == nil {
		return InvalidKind
	}
	return v.Kind()
}

func (d Dict) StringAt(key string) (string, bool) {
	s, ok := d[key].(String)
	return string(s), ok
}

func (d Dict) UIDAt(key string) (UID, bool) {
	u, ok := d[key].(UID)
	return u, ok
}

func (d Dict) ArrayAt(key string) (Array, bool) {
	a, ok := d[key].(Array)
	return a, ok
}

func (d Dict) DictAt(key string) (Dict, bool) {
	sub, ok := d[key].(Dict)
	return sub, ok
}
