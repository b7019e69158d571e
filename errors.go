package btmdump

import (
	"fmt"

	"github.com/pkg/errors"
)

var ErrSchema = errors.New("archive does not match a known storage schema")

var (
	ErrUnrecognizedShape = errors.Wrap(ErrSchema, "unrecognized shape")
	ErrAmbiguousShape    = errors.Wrap(ErrSchema, "ambiguous shape")
	ErrUnexpectedClass   = errors.Wrap(ErrSchema, "unexpected class")
)

// Field problems never abort a decode; they end up in ProjectionWarning.
var ErrFieldProjection = errors.New("field could not be projected")

var (
	ErrInvalidURL  = errors.Wrap(ErrFieldProjection, "invalid url")
	ErrInvalidUUID = errors.Wrap(ErrFieldProjection, "invalid uuid")
	ErrFieldType   = errors.Wrap(ErrFieldProjection, "unexpected value type")
)

// A ProjectionWarning records a field that was dropped while projecting a
// record, or a storage-level entry that was skipped.
type ProjectionWarning struct {
	Ref        int
	Identifier *string
	Storage    bool
	Field      string
	Err        error
}

// Subject names what the warning is about: the record identifier when it is
// known, otherwise its reference index.
func (w ProjectionWarning) Subject() string {
	switch {
	case w.Identifier != nil:
		return *w.Identifier
	case w.Storage:
		return "storage"
	default:
		return fmt.Sprintf("#%d", w.Ref)
	}
}

func (w ProjectionWarning) Error() string {
	return fmt.Sprintf("%s: %s: %v", w.Subject(), w.Field, w.Err)
}

func (w ProjectionWarning) Unwrap() error {
	return w.Err
}
