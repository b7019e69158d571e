package archive

import (
	"time"

	"github.com/denismitr/btmdump/internal/plist"
	"github.com/pkg/errors"
)

type foundationClass uint8

const (
	notFoundation foundationClass = iota
	arrayClass
	setClass
	dictionaryClass
	stringClass
	dataClass
	urlClass
	uuidClass
	dateClass
)

func (fc foundationClass) isCollection() bool {
	return fc == arrayClass || fc == setClass || fc == dictionaryClass
}

var foundationClasses = map[string]foundationClass{
	"NSArray":             arrayClass,
	"NSMutableArray":      arrayClass,
	"NSOrderedSet":        arrayClass,
	"NSMutableOrderedSet": arrayClass,
	"NSSet":               setClass,
	"NSMutableSet":        setClass,
	"NSDictionary":        dictionaryClass,
	"NSMutableDictionary": dictionaryClass,
	"NSString":            stringClass,
	"NSMutableString":     stringClass,
	"NSData":              dataClass,
	"NSMutableData":       dataClass,
	"NSURL":               urlClass,
	"NSUUID":              uuidClass,
	"NSDate":              dateClass,
}

const (
	nsObjects   = "NS.objects"
	nsKeys      = "NS.keys"
	nsString    = "NS.string"
	nsData      = "NS.data"
	nsBase      = "NS.base"
	nsRelative  = "NS.relative"
	nsUUIDBytes = "NS.uuidbytes"
	nsTime      = "NS.time"
)

func (r *resolver) unwrap(fc foundationClass, d plist.Dict) (Value, error) {
	switch fc {
	case arrayClass:
		elems, err := r.references(d, nsObjects)
		if err != nil {
			return nil, err
		}
		return List(elems), nil
	case setClass:
		elems, err := r.references(d, nsObjects)
		if err != nil {
			return nil, err
		}
		return Set(elems), nil
	case dictionaryClass:
		return r.unwrapDictionary(d)
	case stringClass:
		return r.unwrapString(d)
	case dataClass:
		return r.unwrapData(d)
	case urlClass:
		return r.unwrapURL(d)
	case uuidClass:
		b, ok := d[nsUUIDBytes].(plist.Data)
		if !ok || len(b) != len(UUID{}) {
			return nil, errors.Wrapf(ErrTypeMismatch, "%s must be %d bytes of data", nsUUIDBytes, len(UUID{}))
		}
		var u UUID
		copy(u[:], b)
		return u, nil
	case dateClass:
		switch t := d[nsTime].(type) {
		case plist.Real:
			return referenceDate(float64(t)), nil
		case plist.Integer:
			return referenceDate(float64(t)), nil
		default:
			return nil, errors.Wrapf(ErrTypeMismatch, "%s is a %s", nsTime, plist.KindOf(d[nsTime]))
		}
	default:
		return nil, errors.Wrapf(ErrTypeMismatch, "no unwrapper for foundation class %d", fc)
	}
}

// references resolves an array of back-references stored under key.
// A missing key is an empty collection.
func (r *resolver) references(d plist.Dict, key string) ([]Value, error) {
	raw, ok := d[key]
	if !ok {
		return []Value{}, nil
	}

	arr, ok := raw.(plist.Array)
	if !ok {
		return nil, errors.Wrapf(ErrTypeMismatch, "%s is a %s, not an array", key, plist.KindOf(raw))
	}

	out := make([]Value, len(arr))
	for i, e := range arr {
		u, ok := e.(plist.UID)
		if !ok {
			return nil, errors.Wrapf(ErrTypeMismatch, "%s[%d] is a %s, not a reference", key, i, plist.KindOf(e))
		}

		v, err := r.resolveUID(u)
		if err != nil {
			return nil, errors.Wrapf(err, "%s[%d]", key, i)
		}
		out[i] = v
	}

	return out, nil
}

func (r *resolver) unwrapDictionary(d plist.Dict) (Value, error) {
	keys, err := r.references(d, nsKeys)
	if err != nil {
		return nil, err
	}

	values, err := r.references(d, nsObjects)
	if err != nil {
		return nil, err
	}

	if len(keys) != len(values) {
		return nil, errors.Wrapf(
			ErrTypeMismatch,
			"dictionary has %d keys but %d values",
			len(keys), len(values))
	}

	out := make(Dict, len(keys))
	for i, k := range keys {
		s, ok := k.(string)
		if !ok {
			return nil, errors.Wrapf(ErrTypeMismatch, "dictionary key %d is a %s", i, DescribeValue(k))
		}
		out[s] = values[i]
	}

	return out, nil
}

func (r *resolver) unwrapString(d plist.Dict) (Value, error) {
	v, err := r.resolveField(d[nsString])
	if err != nil {
		return nil, err
	}

	s, ok := v.(string)
	if !ok {
		return nil, errors.Wrapf(ErrTypeMismatch, "%s is a %s", nsString, DescribeValue(v))
	}

	return s, nil
}

func (r *resolver) unwrapData(d plist.Dict) (Value, error) {
	v, err := r.resolveField(d[nsData])
	if err != nil {
		return nil, err
	}

	b, ok := v.([]byte)
	if !ok {
		return nil, errors.Wrapf(ErrTypeMismatch, "%s is a %s", nsData, DescribeValue(v))
	}

	return b, nil
}

func (r *resolver) unwrapURL(d plist.Dict) (Value, error) {
	u := &URL{}

	base, err := r.resolveField(d[nsBase])
	if err != nil {
		return nil, err
	}

	switch b := base.(type) {
	case nil:
	case *URL:
		u.Base = b
	default:
		return nil, errors.Wrapf(ErrTypeMismatch, "%s is a %s", nsBase, DescribeValue(base))
	}

	rel, err := r.resolveField(d[nsRelative])
	if err != nil {
		return nil, err
	}

	s, ok := rel.(string)
	if !ok {
		return nil, errors.Wrapf(ErrTypeMismatch, "%s is a %s", nsRelative, DescribeValue(rel))
	}

	u.Relative = s
	return u, nil
}

func referenceDate(seconds float64) time.Time {
	sec := int64(seconds)
	nsec := int64((seconds - float64(sec)) * float64(time.Second))
	return time.Unix(referenceDateOffset+sec, nsec).UTC()
}
