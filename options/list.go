package options

import (
	"fmt"
)

type Order string

const (
	Ascend  Order = "ASC"
	Descend Order = "DESC"
)

// OwnerNamer resolves an owner key to an account name.
type OwnerNamer func(owner string) (string, bool)

// ListOptions narrows and orders what formatters emit.
type ListOptions struct {
	O       Order
	Owner   *string
	Prefix  string
	Pattern string
	Namer   OwnerNamer
}

func (lo *ListOptions) SetOrder(o Order) *ListOptions {
	lo.O = o
	return lo
}

func (lo *ListOptions) OnlyOwner(owner string) *ListOptions {
	lo.Owner = &owner
	return lo
}

// IdentifierPrefix keeps top-level records whose identifier starts with
// prefix. Embedded records are not filtered.
func (lo *ListOptions) IdentifierPrefix(prefix string) *ListOptions {
	lo.Prefix = prefix
	return lo
}

// IdentifierMatch keeps top-level records whose identifier matches a glob
// pattern where '*' is any run of characters and '?' any single one.
func (lo *ListOptions) IdentifierMatch(pattern string) *ListOptions {
	lo.Pattern = pattern
	return lo
}

func (lo *ListOptions) OwnerNames(fn OwnerNamer) *ListOptions {
	lo.Namer = fn
	return lo
}

// Key identifies the options for caching. Only the presence of a namer is
// part of it, so callers must not swap namers under one cache.
func (lo *ListOptions) Key() string {
	owner := "-"
	if lo.Owner != nil {
		owner = "=" + *lo.Owner
	}
	return fmt.Sprintf("%s|%s|%q|%q|%t", lo.O, owner, lo.Prefix, lo.Pattern, lo.Namer != nil)
}

func (lo *ListOptions) Descending() bool {
	return lo.O == Descend
}

// IncludesOwner reports whether owner passes the owner filter.
func (lo *ListOptions) IncludesOwner(owner string) bool {
	return lo.Owner == nil || *lo.Owner == owner
}

func List() *ListOptions {
	return &ListOptions{O: Ascend}
}

// Merge folds opts into one, later values winning. Nil entries are skipped.
func Merge(opts ...*ListOptions) *ListOptions {
	out := List()
	for _, o := range opts {
		if o == nil {
			continue
		}
		if o.O != "" {
			out.O = o.O
		}
		if o.Owner != nil {
			out.Owner = o.Owner
		}
		if o.Prefix != "" {
			out.Prefix = o.Prefix
		}
		if o.Pattern != "" {
			out.Pattern = o.Pattern
		}
		if o.Namer != nil {
			out.Namer = o.Namer
		}
	}
	return out
}
