package plist

import (
	"math"
	"time"

	"github.com/pkg/errors"
	"howett.net/plist"
)

var ErrDecode = errors.New("property list could not be decoded")

// Decode parses binary, XML or OpenStep property list bytes.
func Decode(data []byte) (Value, error) {
	if len(data) == 0 {
		return nil, errors.Wrap(ErrDecode, "empty input")
	}

	var raw interface{}
	if _, err := plist.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(ErrDecode, err.Error())
	}

	return convert(raw)
}

// Encode writes a tree back out in binary form. The decoder never needs it;
// it exists so fixtures can be produced from the same types they decode into.
func Encode(v Value) ([]byte, error) {
	b, err := plist.Marshal(unconvert(v), plist.BinaryFormat)
	if err != nil {
		return nil, errors.Wrap(err, "could not encode property list")
	}
	return b, nil
}

func convert(raw interface{}) (Value, error) {
	switch typed := raw.(type) {
	case map[string]interface{}:
		d := make(Dict, len(typed))
		for k, v := range typed {
			cv, err := convert(v)
			if err != nil {
				return nil, errors.Wrapf(err, "key %q", k)
			}
			d[k] = cv
		}
		return d, nil
	case []interface{}:
		a := make(Array, len(typed))
		for i, v := range typed {
			cv, err := convert(v)
			if err != nil {
				return nil, errors.Wrapf(err, "index %d", i)
			}
			a[i] = cv
		}
		return a, nil
	case string:
		return String(typed), nil
	case []byte:
		return Data(typed), nil
	case int64:
		return Integer(typed), nil
	case uint64:
		if typed > math.MaxInt64 {
			return nil, errors.Wrapf(ErrDecode, "integer %d overflows int64", typed)
		}
		return Integer(typed), nil
	case float64:
		return Real(typed), nil
	case float32:
		return Real(typed), nil
	case bool:
		return Boolean(typed), nil
	case time.Time:
		return Date(typed), nil
	case plist.UID:
		return UID(int64(typed)), nil
	case nil:
		return nil, errors.Wrap(ErrDecode, "null value")
	default:
		return nil, errors.Wrapf(ErrDecode, "unsupported value of type %T", raw)
	}
}

func unconvert(v Value) interface{} {
	switch typed := v.(type) {
	case Dict:
		m := make(map[string]interface{}, len(typed))
		for k, sub := range typed {
			m[k] = unconvert(sub)
		}
		return m
	case Array:
		a := make([]interface{}, len(typed))
		for i, sub := range typed {
			a[i] = unconvert(sub)
		}
		return a
	case String:
		return string(typed)
	case Data:
		return []byte(typed)
	case Integer:
		return int64(typed)
	case Real:
		return float64(typed)
	case Boolean:
		return bool(typed)
	case Date:
		return time.Time(typed)
	case UID:
		return plist.UID(uint64(typed))
	default:
		return nil
	}
}
