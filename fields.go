package btmdump

import (
	"fmt"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/tidwall/match"

	"github.com/denismitr/btmdump/options"
)

// field is one present scalar of a record, in output order. value is an
// int64, a string, a []byte or a []string.
type field struct {
	name  string
	value interface{}
}

func recordFields(r *ItemRecord) []field {
	var out []field

	str := func(name string, v *string) {
		if v != nil {
			out = append(out, field{name, *v})
		}
	}
	num := func(name string, v *int64) {
		if v != nil {
			out = append(out, field{name, *v})
		}
	}
	blob := func(name string, v []byte) {
		if v != nil {
			out = append(out, field{name, v})
		}
	}

	str(fieldIdentifier, r.Identifier)
	if r.UUID != nil {
		out = append(out, field{fieldUUID, strings.ToUpper(r.UUID.String())})
	}
	str(fieldName, r.Name)
	num(fieldType, r.Type)
	num(fieldGeneration, r.Generation)
	num(fieldDisposition, r.Disposition)
	if r.URL != nil {
		out = append(out, field{fieldURL, r.URL.String()})
	}
	str(fieldContainer, r.Container)
	str(fieldDeveloperName, r.DeveloperName)
	str(fieldExecutablePath, r.ExecutablePath)
	str(fieldTeamIdentifier, r.TeamIdentifier)
	str(fieldBundleIdentifier, r.BundleIdentifier)
	if r.AssociatedBundleIdentifiers != nil {
		out = append(out, field{fieldAssociatedBundleIdentifiers, r.AssociatedBundleIdentifiers})
	}
	blob(fieldBookmark, r.Bookmark)
	blob(fieldLightweightRequirement, r.LightweightRequirement)

	return out
}

func digest(b []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(b))
}

// selected returns the records of c that pass the identifier filters of lo,
// in the order lo asks for.
func (c *ItemCollection) selected(lo *options.ListOptions) []*ItemRecord {
	var out []*ItemRecord
	c.AscendPrefix(lo.Prefix, func(r *ItemRecord) bool {
		if lo.Pattern != "" && !match.Match(r.IdentifierOrEmpty(), lo.Pattern) {
			return true
		}
		out = append(out, r)
		return true
	})

	if lo.Descending() {
		slices.Reverse(out)
	}

	return out
}

// ordered returns every record of c in the order lo asks for.
func (c *ItemCollection) ordered(lo *options.ListOptions) []*ItemRecord {
	if !lo.Descending() {
		return c.Records()
	}

	out := make([]*ItemRecord, 0, c.Len())
	c.Descend(func(r *ItemRecord) bool {
		out = append(out, r)
		return true
	})
	return out
}

func (s *Storage) selectedOwners(lo *options.ListOptions) []string {
	var out []string
	for _, owner := range s.Owners() {
		if lo.IncludesOwner(owner) {
			out = append(out, owner)
		}
	}
	return out
}

func ownerName(lo *options.ListOptions, owner string) (string, bool) {
	if lo.Namer == nil {
		return "", false
	}
	return lo.Namer(owner)
}
