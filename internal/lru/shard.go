package lru

import (
	"container/list"
	"sync"
)

type shard struct {
	mu         sync.Mutex
	totalBytes uint64
	maxBytes   uint64
	order      *list.List
	elems      map[uint64]*list.Element
	onEvict    OnEvict

	hits, misses, evictions uint64
}

type entry struct {
	key   uint64
	value []byte
}

func newShard(maxBytes uint64, onEvict OnEvict) *shard {
	return &shard{
		maxBytes: maxBytes,
		order:    list.New(),
		elems:    make(map[uint64]*list.Element),
		onEvict:  onEvict,
	}
}

func (s *shard) get(key uint64) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.elems[key]
	if !ok {
		s.misses++
		return nil, false
	}

	s.hits++
	s.order.MoveToFront(elem)
	return elem.Value.(*entry).value, true
}

// add returns true if older entries had to go. A value larger than the
// whole shard is not stored.
func (s *shard) add(key uint64, value []byte) bool {
	size := uint64(len(value))
	if size > s.maxBytes {
		return false
	}

	var evicted []*entry

	s.mu.Lock()
	if elem, ok := s.elems[key]; ok {
		s.removeElement(elem)
	}

	for s.totalBytes+size > s.maxBytes {
		oldest := s.order.Back()
		if oldest == nil {
			break
		}
		evicted = append(evicted, s.removeElement(oldest))
		s.evictions++
	}

	s.elems[key] = s.order.PushFront(&entry{key: key, value: value})
	s.totalBytes += size
	s.mu.Unlock()

	// callbacks run outside the lock so they may use the cache
	if s.onEvict != nil {
		for _, e := range evicted {
			s.onEvict(e.key, e.value)
		}
	}

	return len(evicted) > 0
}

func (s *shard) purge() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.elems = make(map[uint64]*list.Element)
	s.order.Init()
	s.totalBytes = 0
}

func (s *shard) removeElement(elem *list.Element) *entry {
	e := s.order.Remove(elem).(*entry)
	delete(s.elems, e.key)
	s.totalBytes -= uint64(len(e.value))
	return e
}

func (s *shard) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.elems)
}

func (s *shard) stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{Hits: s.hits, Misses: s.misses, Evictions: s.evictions, Bytes: s.totalBytes}
}
