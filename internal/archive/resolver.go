// Package archive resolves a keyed archive (a flat object table with
// integer back-references) into an arena of objects whose identity is
// their table index, so shared and cyclic references survive resolution.
package archive

import (
	"sort"
	"time"

	"github.com/denismitr/btmdump/internal/plist"
	"github.com/pkg/errors"
)

const (
	archiverKey = "$archiver"
	versionKey  = "$version"
	objectsKey  = "$objects"
	topKey      = "$top"
	classKey    = "$class"
	classname   = "$classname"
	classesKey  = "$classes"
	nullObject  = "$null"
)

const defaultRootKey = "root"

// Seconds between the Unix epoch and 2001-01-01, the NSDate reference date.
const referenceDateOffset = 978307200

type state uint8

const (
	unvisited state = iota
	inProgress
	done
)

type options struct {
	rootKey string
	classes map[string]bool
}

type Option func(o *options)

// WithClasses restricts the non-Foundation class names the archive may use.
// An object is accepted when its class or one of its archived ancestors is
// listed. Without this option any class name is accepted.
func WithClasses(names ...string) Option {
	return func(o *options) {
		if o.classes == nil {
			o.classes = make(map[string]bool, len(names))
		}
		for _, n := range names {
			o.classes[n] = true
		}
	}
}

func WithRootKey(key string) Option {
	return func(o *options) {
		o.rootKey = key
	}
}

type classInfo struct {
	name    string
	chain   []string
	builtin foundationClass
}

type resolver struct {
	opts    *options
	objects plist.Array
	states  []state
	values  []Value
	classes map[int]*classInfo
	graph   *Graph

	// collections whose elements are being resolved
	collecting map[int]bool
}

// Resolve walks the archive envelope in tree and resolves every object
// reachable from its root. All memoization state lives for this call only.
func Resolve(tree plist.Value, opts ...Option) (*Graph, error) {
	o := &options{rootKey: defaultRootKey}
	for _, apply := range opts {
		apply(o)
	}

	top, ok := tree.(plist.Dict)
	if !ok {
		return nil, errors.Wrapf(ErrMissingEnvelope, "archive is a %s, not a dict", plist.KindOf(tree))
	}

	if _, ok := top.StringAt(archiverKey); !ok {
		return nil, errors.Wrapf(ErrMissingEnvelope, "no %s marker", archiverKey)
	}

	if _, ok := top[versionKey].(plist.Integer); !ok {
		return nil, errors.Wrapf(ErrMissingEnvelope, "no %s marker", versionKey)
	}

	objects, ok := top.ArrayAt(objectsKey)
	if !ok {
		return nil, errors.Wrapf(ErrMissingEnvelope, "no %s table", objectsKey)
	}

	rootUID, err := findRoot(top, o.rootKey)
	if err != nil {
		return nil, err
	}

	r := &resolver{
		opts:       o,
		objects:    objects,
		states:     make([]state, len(objects)),
		values:     make([]Value, len(objects)),
		classes:    make(map[int]*classInfo),
		graph:      newGraph(),
		collecting: make(map[int]bool),
	}


	root, err := r.resolveUID(rootUID)
	if err != nil {
		return nil, errors.Wrap(err, "could not resolve archive root")
	}

	r.graph.Root = root
	return r.graph, nil
}

func findRoot(top plist.Dict, rootKey string) (plist.UID, error) {
	t, ok := top.DictAt(topKey)
	if !ok {
		return 0, errors.Wrapf(ErrMissingEnvelope, "no %s dict", topKey)
	}

	if u, ok := t.UIDAt(rootKey); ok {
		return u, nil
	}

	// some archivers name the root differently; a lone reference is unambiguous
	if len(t) == 1 {
		for _, v := range t {
			if u, ok := v.(plist.UID); ok {
				return u, nil
			}
		}
	}

	return 0, errors.Wrapf(ErrMissingEnvelope, "no %q reference in %s", rootKey, topKey)
}

func (r *resolver) index(u plist.UID) (int, error) {
	if u < 0 || int64(u) >= int64(len(r.objects)) {
		return 0, errors.Wrapf(
			ErrDanglingReference,
			"uid %d outside object table of %d entries",
			int64(u), len(r.objects))
	}
	return int(u), nil
}

func (r *resolver) resolveUID(u plist.UID) (Value, error) {
	i, err := r.index(u)
	if err != nil {
		return nil, err
	}

	switch r.states[i] {
	case done:
		return r.values[i], nil
	case inProgress:
		// objects are registered before their fields, so a cycle through
		// an object gets the handle of the node already being built
		if o, ok := r.graph.objects[Ref(i)]; ok {
			return o.Ref, nil
		}
		if r.collecting[i] {
			return CollectionRef(i), nil
		}
		return nil, errors.Wrapf(ErrTypeMismatch, "value at index %d contains itself", i)
	}

	r.states[i] = inProgress
	v, err := r.resolveEntry(i)
	if err != nil {
		return nil, err
	}

	r.states[i] = done
	r.values[i] = v
	return v, nil
}

func (r *resolver) resolveEntry(i int) (Value, error) {
	switch entry := r.objects[i].(type) {
	case plist.String:
		if entry == nullObject {
			return nil, nil
		}
		return string(entry), nil
	case plist.Integer:
		return int64(entry), nil
	case plist.Real:
		return float64(entry), nil
	case plist.Boolean:
		return bool(entry), nil
	case plist.Data:
		return []byte(entry), nil
	case plist.Date:
		return time.Time(entry), nil
	case plist.Dict:
		return r.resolveDict(i, entry)
	default:
		return nil, errors.Wrapf(
			ErrTypeMismatch,
			"object table entry %d is a bare %s",
			i, plist.KindOf(r.objects[i]))
	}
}

func (r *resolver) resolveDict(i int, d plist.Dict) (Value, error) {
	if _, isClass := d[classname]; isClass {
		return nil, errors.Wrapf(ErrTypeMismatch, "class description at index %d used as a value", i)
	}

	var ci *classInfo
	if raw, ok := d[classKey]; ok {
		u, ok := raw.(plist.UID)
		if !ok {
			return nil, errors.Wrapf(ErrUnknownClass, "object %d has a %s class tag", i, plist.KindOf(raw))
		}

		var err error
		if ci, err = r.class(u); err != nil {
			return nil, errors.Wrapf(err, "object %d", i)
		}
	}

	if ci != nil && ci.builtin != notFoundation {
		if ci.builtin.isCollection() {
			r.collecting[i] = true
			defer delete(r.collecting, i)
		}

		v, err := r.unwrap(ci.builtin, d)
		if err != nil {
			return nil, errors.Wrapf(err, "%s at index %d", ci.name, i)
		}

		if ci.builtin.isCollection() {
			r.graph.collections[CollectionRef(i)] = v
		}
		return v, nil
	}

	o := &Object{Ref: Ref(i), Fields: make(map[string]Value, len(d))}
	if ci != nil {
		o.Class = ci.name
		o.Classes = ci.chain
	}

	r.graph.objects[o.Ref] = o

	keys := make([]string, 0, len(d))
	for k := range d {
		if k != classKey {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		v, err := r.resolveField(d[k])
		if err != nil {
			return nil, errors.Wrapf(err, "field %q of %s object %d", k, o.Class, i)
		}
		o.Fields[k] = v
	}

	return o.Ref, nil
}

func (r *resolver) class(u plist.UID) (*classInfo, error) {
	i, err := r.index(u)
	if err != nil {
		return nil, err
	}

	if ci, ok := r.classes[i]; ok {
		return ci, nil
	}

	d, ok := r.objects[i].(plist.Dict)
	if !ok {
		return nil, errors.Wrapf(ErrUnknownClass, "class reference %d points at a %s", i, plist.KindOf(r.objects[i]))
	}

	name, ok := d.StringAt(classname)
	if !ok || name == "" {
		return nil, errors.Wrapf(ErrUnknownClass, "class description %d has no %s", i, classname)
	}

	ci := &classInfo{name: name}
	if raw, ok := d[classesKey]; ok {
		chain, ok := raw.(plist.Array)
		if !ok {
			return nil, errors.Wrapf(ErrUnknownClass, "%s of class %q is a %s", classesKey, name, plist.KindOf(raw))
		}

		for _, c := range chain {
			s, ok := c.(plist.String)
			if !ok {
				return nil, errors.Wrapf(ErrUnknownClass, "%s of class %q holds a %s", classesKey, name, plist.KindOf(c))
			}
			ci.chain = append(ci.chain, string(s))
		}
	}

	if err := r.classify(ci); err != nil {
		return nil, err
	}

	r.classes[i] = ci
	return ci, nil
}

// classify picks the Foundation unwrapper for a class, walking its archived
// ancestry, and applies the allowlist to everything else.
func (r *resolver) classify(ci *classInfo) error {
	names := append([]string{ci.name}, ci.chain...)

	for _, n := range names {
		if fc, ok := foundationClasses[n]; ok {
			ci.builtin = fc
			return nil
		}
	}

	if r.opts.classes == nil {
		return nil
	}

	for _, n := range names {
		if r.opts.classes[n] {
			return nil
		}
	}

	return errors.Wrapf(ErrUnknownClass, "class %q is not recognized", ci.name)
}

func (r *resolver) resolveField(v plist.Value) (Value, error) {
	switch typed := v.(type) {
	case nil:
		return nil, nil
	case plist.UID:
		return r.resolveUID(typed)
	case plist.Array:
		l := make(List, len(typed))
		for j, e := range typed {
			ev, err := r.resolveField(e)
			if err != nil {
				return nil, errors.Wrapf(err, "element %d", j)
			}
			l[j] = ev
		}
		return l, nil
	case plist.Dict:
		return nil, errors.Wrap(ErrTypeMismatch, "inline dictionary where a value or reference was expected")
	case plist.String:
		return string(typed), nil
	case plist.Integer:
		return int64(typed), nil
	case plist.Real:
		return float64(typed), nil
	case plist.Boolean:
		return bool(typed), nil
	case plist.Data:
		return []byte(typed), nil
	case plist.Date:
		return time.Time(typed), nil
	default:
		return nil, errors.Wrapf(ErrTypeMismatch, "unsupported %s value", plist.KindOf(v))
	}
}
