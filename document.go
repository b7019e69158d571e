package btmdump

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

var ErrJsonCouldNotBeUnmarshalled = errors.New("json contents could not be unmarshalled, probably is invalid")
var ErrJsonPathInvalid = errors.New("json path is invalid")

// Document is the JSON rendering of a decoded store, queried with gjson
// paths such as "itemsByOwner.*.items.#.identifier".
type Document struct {
	b []byte
}

func NewDocument(b []byte) *Document {
	return &Document{b: b}
}

func (d *Document) Bytes() []byte {
	return d.b
}

func (d *Document) Pretty() []byte {
	return pretty.Pretty(d.b)
}

func (d *Document) Unmarshal(dest interface{}) error {
	err := json.Unmarshal(d.b, dest)
	if err != nil {
		return errors.Wrap(ErrJsonCouldNotBeUnmarshalled, err.Error())
	}

	return nil
}

func (d *Document) Exists(path string) bool {
	return gjson.GetBytes(d.b, path).Exists()
}

// Raw returns the JSON text found at path.
func (d *Document) Raw(path string) (string, error) {
	raw := gjson.GetBytes(d.b, path)
	if !raw.Exists() {
		return "", errors.Wrapf(ErrJsonPathInvalid, "%q", path)
	}
	return raw.Raw, nil
}

func (d *Document) String(path string) (string, error) {
	raw := gjson.GetBytes(d.b, path)
	if !raw.Exists() {
		return "", errors.Wrapf(ErrJsonPathInvalid, "%q", path)
	}
	return raw.String(), nil
}

func (d *Document) StringOrDefault(path, def string) string {
	if v, err := d.String(path); err != nil {
		return def
	} else {
		return v
	}
}

func (d *Document) Int(path string) (int, error) {
	get := gjson.GetBytes(d.b, path)
	if !get.Exists() {
		return 0, errors.Wrapf(ErrJsonPathInvalid, "%q", path)
	}

	return int(get.Int()), nil
}

func (d *Document) IntOrDefault(path string, def int) int {
	if v, err := d.Int(path); err != nil {
		return def
	} else {
		return v
	}
}

func (d *Document) Bool(path string) (bool, error) {
	get := gjson.GetBytes(d.b, path)
	if !get.Exists() {
		return false, errors.Wrapf(ErrJsonPathInvalid, "%q", path)
	}

	return get.Bool(), nil
}

// Count is the number of elements of the array at path.
func (d *Document) Count(path string) (int, error) {
	get := gjson.GetBytes(d.b, path)
	if !get.Exists() {
		return 0, errors.Wrapf(ErrJsonPathInvalid, "%q", path)
	}
	if !get.IsArray() {
		return 0, errors.Wrapf(ErrJsonPathInvalid, "%q is not an array", path)
	}

	return len(get.Array()), nil
}
