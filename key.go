package btmdump

import (
	"strings"
)

// recordKey orders records by identifier, compared segment by segment on
// "." with numeric segments compared as numbers, then by reference index so
// that distinct records sharing an identifier stay distinct.
type recordKey struct {
	identifier string
	segments   []string
	ref        int
}

func newRecordKey(identifier string, ref int) recordKey {
	return recordKey{
		identifier: identifier,
		segments:   strings.Split(identifier, "."),
		ref:        ref,
	}
}

// Less is a strict total order: distinct identifiers never tie because
// segments tie only when their text is equal.
func (k recordKey) Less(other recordKey) bool {
	if k.identifier != other.identifier {
		return segmentsLess(k.segments, other.segments)
	}

	return k.ref < other.ref
}

func (k recordKey) HasPrefix(prefix string) bool {
	return strings.HasPrefix(k.identifier, prefix)
}

func segmentsLess(a, b []string) bool {
	l := smallestSegmentLen(a, b)

	for i := 0; i < l; i++ {
		if c := compareSegments(a[i], b[i]); c != 0 {
			return c < 0
		}
	}

	return len(a) < len(b)
}

func smallestSegmentLen(a, b []string) int {
	if len(a) > len(b) {
		return len(b)
	}

	return len(a)
}

type segmentKind uint8

const (
	emptySegment segmentKind = iota
	numericSegment
	textSegment
)

// Empty segments sort first and numbers before text, so a key built from an
// identifier prefix never sorts after an identifier that starts with it.
func kindOf(s string) segmentKind {
	if s == "" {
		return emptySegment
	}

	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return textSegment
		}
	}

	return numericSegment
}

func compareSegments(a, b string) int {
	ka, kb := kindOf(a), kindOf(b)
	if ka != kb {
		if ka < kb {
			return -1
		}
		return 1
	}

	if ka == numericSegment {
		if c := compareDigits(a, b); c != 0 {
			return c
		}
	}

	// equal numbers with different zero padding fall back to the text
	return strings.Compare(a, b)
}

// compareDigits compares two runs of ASCII digits by value, without
// converting them, so arbitrarily long runs cannot overflow.
func compareDigits(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")

	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return strings.Compare(a, b)
	}
}
