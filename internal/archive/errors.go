package archive

import "github.com/pkg/errors"

var ErrMalformedArchive = errors.New("malformed keyed archive")

var (
	ErrMissingEnvelope   = errors.Wrap(ErrMalformedArchive, "missing envelope")
	ErrDanglingReference = errors.Wrap(ErrMalformedArchive, "dangling reference")
	ErrUnknownClass      = errors.Wrap(ErrMalformedArchive, "unknown class")
	ErrTypeMismatch      = errors.Wrap(ErrMalformedArchive, "type mismatch")
)
