package store

import (
	"iter"

	"github.com/hupe1980/kmerdb/kmer"
)

// Iterator walks occupied slots in ascending slot order. An Iterator is not
// safe for concurrent use, but any number of iterators may walk one sealed
// store at the same time.
type Iterator struct {
	s    *Store
	next uint
	cur  uint64
	done bool
}

// Iterator returns an iterator positioned before the first occupied slot.
func (s *Store) Iterator() *Iterator {
	return &Iterator{s: s}
}

// Next advances to the next occupied slot.
func (it *Iterator) Next() bool {
	if it.done {
		return false
	}
	slot, ok := it.s.occupied.NextSet(it.next)
	if !ok || uint64(slot) >= it.s.params.Capacity {
		it.done = true
		return false
	}
	it.cur = uint64(slot)
	it.next = slot + 1
	return true
}

// Reset rewinds the iterator to the first slot.
func (it *Iterator) Reset() {
	it.next, it.cur, it.done = 0, 0, false
}

// Slot returns the current slot.
func (it *Iterator) Slot() uint64 { return it.cur }

// Key returns the current canonical key.
func (it *Iterator) Key() kmer.Key { return it.s.keys[it.cur] }

// Node returns the current record.
func (it *Iterator) Node() Node { return Node{s: it.s, slot: it.cur} }

// All yields every node in slot order.
func (s *Store) All() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		it := s.Iterator()
		for it.Next() {
			if !yield(it.Node()) {
				return
			}
		}
	}
}
