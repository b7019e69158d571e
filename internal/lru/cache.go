// Package lru caches rendered documents by a 64-bit key under a total byte
// budget.
package lru

import (
	"github.com/pkg/errors"
)

var ErrIllegalCapacity = errors.New("illegal lru cache capacity")
var ErrInvalidSharding = errors.New("invalid sharding")

type OnEvict func(k uint64, v []byte)

type Cache interface {
	// Add stores value under key and reports whether anything was evicted
	// to make room for it.
	Add(key uint64, value []byte) bool
	Get(key uint64) ([]byte, bool)
	Purge()
	Len() int
	Stats() Stats
}

type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Bytes     uint64
}

// Null caches nothing.
type Null struct{}

func (Null) Add(uint64, []byte) bool { return false }
func (Null) Get(uint64) ([]byte, bool) { return nil, false }
func (Null) Purge() {}
func (Null) Len() int { return 0 }
func (Null) Stats() Stats { return Stats{} }
