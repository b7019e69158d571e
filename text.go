package btmdump

import (
	"fmt"
	"iter"
	"sort"
	"strings"

	"github.com/denismitr/btmdump/options"
)

const indentUnit = "  "

// ToText renders s as indented lines for people. The sequence walks the
// graph anew on every range over it, so it can be consumed more than once.
func ToText(s *Storage, opts ...*options.ListOptions) iter.Seq[string] {
	lo := options.Merge(opts...)

	return func(yield func(string) bool) {
		w := &textWriter{yield: yield, lo: lo}
		w.storage(s)
	}
}

type textWriter struct {
	yield   func(string) bool
	lo      *options.ListOptions
	stopped bool
}

func (w *textWriter) line(depth int, format string, args ...interface{}) bool {
	if w.stopped {
		return false
	}
	if !w.yield(strings.Repeat(indentUnit, depth) + fmt.Sprintf(format, args...)) {
		w.stopped = true
	}
	return !w.stopped
}

func (w *textWriter) storage(s *Storage) {
	if !w.line(0, "%s: %d", KeyVersion, s.Version) {
		return
	}

	for _, owner := range s.selectedOwners(w.lo) {
		header := owner
		if name, ok := ownerName(w.lo, owner); ok {
			header = fmt.Sprintf("%s (%s)", owner, name)
		}
		if !w.line(0, "owner: %s", header) {
			return
		}

		for _, r := range s.ItemsByOwner[owner].selected(w.lo) {
			if !w.record(1, r) {
				return
			}
		}
	}

	if len(s.MDMPayloadsByIdentifier) > 0 {
		if !w.line(0, "%s:", KeyMDMPayloadsByIdentifier) {
			return
		}

		ids := make([]string, 0, len(s.MDMPayloadsByIdentifier))
		for id := range s.MDMPayloadsByIdentifier {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for _, id := range ids {
			if !w.line(1, "%s: %s", id, blobText(s.MDMPayloadsByIdentifier[id])) {
				return
			}
		}
	}

	if len(s.Warnings) > 0 {
		if !w.line(0, "errors:") {
			return
		}
		for _, warn := range s.Warnings {
			if !w.line(1, "%s", warn.Error()) {
				return
			}
		}
	}
}

func (w *textWriter) record(depth int, r *ItemRecord) bool {
	if !w.line(depth, "item:") {
		return false
	}

	depth++
	for _, f := range recordFields(r) {
		var ok bool
		switch v := f.value.(type) {
		case []byte:
			ok = w.line(depth, "%s: %s", f.name, blobText(v))
		case []string:
			ok = w.line(depth, "%s:", f.name)
			for _, s := range v {
				ok = ok && w.line(depth+1, "- %s", s)
			}
		default:
			ok = w.line(depth, "%s: %v", f.name, v)
		}
		if !ok {
			return false
		}
	}

	if r.EmbeddedItems.Len() > 0 {
		if !w.line(depth, "%s:", fieldEmbeddedItems) {
			return false
		}
		for _, child := range r.EmbeddedItems.ordered(w.lo) {
			if !w.record(depth+1, child) {
				return false
			}
		}
	}

	for _, br := range r.BackReferences {
		id := "?"
		if br.Identifier != nil {
			id = *br.Identifier
		}
		if !w.line(depth, "backReference: %s (#%d)", id, br.Ref) {
			return false
		}
	}

	return true
}

func blobText(b []byte) string {
	return fmt.Sprintf("<%d bytes, xxhash64 %s>", len(b), digest(b))
}
