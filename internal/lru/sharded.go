package lru

import (
	"encoding/binary"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Sharded spreads keys over independently locked shards, each holding an
// equal part of the byte budget.
type Sharded struct {
	shards []*shard
}

var _ Cache = (*Sharded)(nil)
var _ Cache = Null{}

func NewSharded(shards int, maxTotalBytes uint64, onEvict OnEvict) (*Sharded, error) {
	if shards < 1 {
		return nil, ErrInvalidSharding
	}

	if maxTotalBytes < uint64(shards) {
		return nil, ErrIllegalCapacity
	}

	c := Sharded{shards: make([]*shard, shards)}

	perShard := maxTotalBytes / uint64(shards)
	for i := range c.shards {
		c.shards[i] = newShard(perShard, onEvict)
	}

	return &c, nil
}

func (c *Sharded) Add(key uint64, value []byte) bool {
	return c.shardOf(key).add(key, value)
}

func (c *Sharded) Get(key uint64) ([]byte, bool) {
	return c.shardOf(key).get(key)
}

func (c *Sharded) Purge() {
	var wg sync.WaitGroup

	wg.Add(len(c.shards))
	for i := range c.shards {
		go func(s *shard) {
			defer wg.Done()
			s.purge()
		}(c.shards[i])
	}

	wg.Wait()
}

func (c *Sharded) Len() int {
	var n int
	for _, s := range c.shards {
		n += s.len()
	}
	return n
}

func (c *Sharded) Stats() Stats {
	var total Stats
	for _, s := range c.shards {
		st := s.stats()
		total.Hits += st.Hits
		total.Misses += st.Misses
		total.Evictions += st.Evictions
		total.Bytes += st.Bytes
	}
	return total
}

func (c *Sharded) shardOf(key uint64) *shard {
	var bs [8]byte
	binary.LittleEndian.PutUint64(bs[:], key)
	return c.shards[xxhash.Sum64(bs[:])%uint64(len(c.shards))]
}
