package btmdump

import (
	"fmt"

	"github.com/jinzhu/copier"
	"github.com/pkg/errors"

	"github.com/denismitr/btmdump/options"
)

// ItemSummary is a flat, detached view of one top-level record.
type ItemSummary struct {
	Owner string
	Ref   int

	Identifier       *string
	Name             *string
	BundleIdentifier *string
	TeamIdentifier   *string
	DeveloperName    *string
	ExecutablePath   *string
	Container        *string

	Type        *int64
	Disposition *int64

	Embedded int
	Partial  bool
}

func newItemSummary(owner string, r *ItemRecord) (*ItemSummary, error) {
	var sum ItemSummary
	if err := copier.Copy(&sum, r); err != nil {
		return nil, errors.Wrapf(err, "could not summarize record %d", r.ref)
	}

	sum.Owner = owner
	sum.Ref = r.ref
	sum.Embedded = r.EmbeddedItems.Len()
	sum.Partial = r.Partial()

	return &sum, nil
}

// Summaries lists top-level records owner by owner.
func (s *Storage) Summaries(opts ...*options.ListOptions) ([]*ItemSummary, error) {
	lo := options.Merge(opts...)

	var out []*ItemSummary
	for _, owner := range s.selectedOwners(lo) {
		for _, r := range s.ItemsByOwner[owner].selected(lo) {
			sum, err := newItemSummary(owner, r)
			if err != nil {
				return nil, err
			}
			out = append(out, sum)
		}
	}

	return out, nil
}

func (sum *ItemSummary) String() string {
	return fmt.Sprintf("%s\t%s\t%s\t%s",
		sum.Owner, orDash(sum.Identifier), orDash(sum.Name), orDash(sum.BundleIdentifier))
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
