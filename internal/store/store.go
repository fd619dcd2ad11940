package store

import (
	"fmt"
	"iter"
	"math/bits"
	"math/rand"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/bits-and-blooms/bitset"
	"github.com/hupe1980/kmerdb/edges"
	"github.com/hupe1980/kmerdb/internal/hash"
	"github.com/hupe1980/kmerdb/kmer"
)

// Store is an open-addressed table of canonical k-mer records.
type Store struct {
	params Params
	codec  *kmer.Codec

	presenceBytes int
	lastMask      byte // valid bits of the final presence byte

	keys     []kmer.Key
	presence []byte      // capacity * presenceBytes
	edges    []edges.Set // capacity * NumEdgeCols
	occupied *bitset.BitSet
	colors   []*roaring.Bitmap

	count  uint64
	sealed atomic.Bool
}

// New allocates an empty store.
func New(p Params) (*Store, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	codec, err := kmer.NewCodec(p.KmerSize)
	if err != nil {
		return nil, err
	}

	s := &Store{
		params:        p,
		codec:         codec,
		presenceBytes: p.PresenceBytes(),
		lastMask:      0xff,
		keys:          make([]kmer.Key, p.Capacity),
		presence:      make([]byte, p.Capacity*uint64(p.PresenceBytes())),
		edges:         make([]edges.Set, p.Capacity*uint64(p.NumEdgeCols)),
		occupied:      bitset.New(uint(p.Capacity)),
		colors:        make([]*roaring.Bitmap, p.NumColors),
	}
	if r := p.NumColors % 8; r != 0 {
		s.lastMask = byte(1<<r) - 1
	}
	for i := range s.colors {
		s.colors[i] = roaring.New()
	}
	return s, nil
}

// Params returns the table dimensions.
func (s *Store) Params() Params { return s.params }

// Codec returns the k-mer codec matching the store's k.
func (s *Store) Codec() *kmer.Codec { return s.codec }

// Capacity returns the slot count.
func (s *Store) Capacity() uint64 { return s.params.Capacity }

// KmerSize returns k.
func (s *Store) KmerSize() int { return s.params.KmerSize }

// NumColors returns the colour count.
func (s *Store) NumColors() int { return s.params.NumColors }

// NumEdgeCols returns the number of colours carrying edges.
func (s *Store) NumEdgeCols() int { return s.params.NumEdgeCols }

// Len returns the number of occupied slots.
func (s *Store) Len() uint64 { return s.count }

// Sealed reports whether Seal has been called.
func (s *Store) Sealed() bool { return s.sealed.Load() }

func (s *Store) home(key kmer.Key) uint64 {
	hi, _ := bits.Mul64(hash.Key(key), s.params.Capacity)
	return hi
}

// probe walks the slot sequence for key and returns the slot holding key
// (found=true) or the first empty slot (found=false). ok is false when the
// table is full and key is absent.
func (s *Store) probe(key kmer.Key) (slot uint64, found, ok bool) {
	capacity := s.params.Capacity
	slot = s.home(key)
	for i := uint64(0); i < capacity; i++ {
		if !s.occupied.Test(uint(slot)) {
			return slot, false, true
		}
		if s.keys[slot] == key {
			return slot, true, true
		}
		slot++
		if slot == capacity {
			slot = 0
		}
	}
	return 0, false, false
}

// Insert stores a record. presence holds the packed colour bits (bit c of
// byte c/8); bits beyond NumColors are ignored. nodeEdges must have exactly
// NumEdgeCols entries. Insert is not safe for concurrent use.
func (s *Store) Insert(key kmer.Key, presence []byte, nodeEdges []edges.Set) (uint64, error) {
	if s.sealed.Load() {
		return 0, ErrSealed
	}
	if len(presence) != s.presenceBytes {
		return 0, fmt.Errorf("%w: presence has %d bytes, want %d", ErrInvalidParams, len(presence), s.presenceBytes)
	}
	if len(nodeEdges) != s.params.NumEdgeCols {
		return 0, fmt.Errorf("%w: %d edge sets, want %d", ErrInvalidParams, len(nodeEdges), s.params.NumEdgeCols)
	}

	empty := true
	for i, b := range presence {
		if i == len(presence)-1 {
			b &= s.lastMask
		}
		if b != 0 {
			empty = false
			break
		}
	}
	if empty {
		return 0, ErrEmptyPresence
	}

	slot, found, ok := s.probe(key)
	if !ok {
		return 0, ErrTableFull
	}
	if found {
		return 0, fmt.Errorf("%w: %s", ErrDuplicateKey, s.codec.Decode(key))
	}

	s.keys[slot] = key
	s.occupied.Set(uint(slot))

	dst := s.presence[slot*uint64(s.presenceBytes):]
	copy(dst, presence)
	dst[s.presenceBytes-1] &= s.lastMask
	for c := 0; c < s.params.NumColors; c++ {
		if dst[c>>3]&(1<<(c&7)) != 0 {
			s.colors[c].Add(uint32(slot))
		}
	}

	copy(s.edges[slot*uint64(s.params.NumEdgeCols):], nodeEdges)
	s.count++
	return slot, nil
}

// Seal ends the load phase and publishes the table to readers.
func (s *Store) Seal() {
	if s.sealed.Load() {
		return
	}
	for _, bm := range s.colors {
		bm.RunOptimize()
	}
	s.sealed.Store(true)
}

// Lookup returns the node for a canonical key. It never reports a node
// whose key differs from key.
func (s *Store) Lookup(key kmer.Key) (Node, bool) {
	if !s.sealed.Load() {
		return Node{}, false
	}
	slot, found, _ := s.probe(key)
	if !found {
		return Node{}, false
	}
	return Node{s: s, slot: slot}, true
}

// Contains reports whether key is present in color, or in any colour when
// color is AnyColor.
func (s *Store) Contains(key kmer.Key, color int) (bool, error) {
	if !s.sealed.Load() {
		return false, ErrNotSealed
	}
	if err := s.checkColor(color, true); err != nil {
		return false, err
	}
	n, ok := s.Lookup(key)
	if !ok {
		return false, nil
	}
	if color == AnyColor {
		return true, nil
	}
	return n.HasColor(color), nil
}

func (s *Store) checkColor(color int, allowAny bool) error {
	if allowAny && color == AnyColor {
		return nil
	}
	if color < 0 || color >= s.params.NumColors {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrInvalidColor, color, s.params.NumColors)
	}
	return nil
}

// Node returns the node stored at slot.
func (s *Store) Node(slot uint64) (Node, bool) {
	if slot >= s.params.Capacity || !s.occupied.Test(uint(slot)) {
		return Node{}, false
	}
	return Node{s: s, slot: slot}, true
}

// ColorLen returns the number of nodes present in color.
func (s *Store) ColorLen(color int) (uint64, error) {
	if err := s.checkColor(color, false); err != nil {
		return 0, err
	}
	return s.colors[color].GetCardinality(), nil
}

// ColorSlots yields the slots of nodes present in color, ascending.
func (s *Store) ColorSlots(color int) (iter.Seq[uint64], error) {
	if err := s.checkColor(color, false); err != nil {
		return nil, err
	}
	bm := s.colors[color]
	return func(yield func(uint64) bool) {
		it := bm.Iterator()
		for it.HasNext() {
			if !yield(uint64(it.Next())) {
				return
			}
		}
	}, nil
}

// RandomNode picks an occupied slot using r.
func (s *Store) RandomNode(r *rand.Rand) (Node, bool) {
	if s.count == 0 {
		return Node{}, false
	}
	capacity := s.params.Capacity
	for i := 0; i < 64; i++ {
		slot := uint64(r.Int63n(int64(capacity)))
		if s.occupied.Test(uint(slot)) {
			return Node{s: s, slot: slot}, true
		}
	}
	start := uint(r.Int63n(int64(capacity)))
	if slot, ok := s.occupied.NextSet(start); ok && uint64(slot) < capacity {
		return Node{s: s, slot: uint64(slot)}, true
	}
	slot, _ := s.occupied.NextSet(0)
	return Node{s: s, slot: uint64(slot)}, true
}

// Node is a read-only view of one record.
type Node struct {
	s    *Store
	slot uint64
}

// Slot returns the record's table slot.
func (n Node) Slot() uint64 { return n.slot }

// Key returns the canonical key.
func (n Node) Key() kmer.Key { return n.s.keys[n.slot] }

// HasColor reports the presence bit for color. Out-of-range colours are absent.
func (n Node) HasColor(color int) bool {
	if color < 0 || color >= n.s.params.NumColors {
		return false
	}
	b := n.s.presence[n.slot*uint64(n.s.presenceBytes)+uint64(color>>3)]
	return b&(1<<(color&7)) != 0
}

// Colors lists the colours the node is present in.
func (n Node) Colors() []int {
	var out []int
	for c := 0; c < n.s.params.NumColors; c++ {
		if n.HasColor(c) {
			out = append(out, c)
		}
	}
	return out
}

// Edges returns the edge set of edge colour col, or edges.None when col is
// not an edge colour.
func (n Node) Edges(col int) edges.Set {
	if col < 0 || col >= n.s.params.NumEdgeCols {
		return edges.None
	}
	return n.s.edges[n.slot*uint64(n.s.params.NumEdgeCols)+uint64(col)]
}

// EdgesUnion ORs the edge sets of all edge colours.
func (n Node) EdgesUnion() edges.Set {
	var u edges.Set
	for col := 0; col < n.s.params.NumEdgeCols; col++ {
		u = u.Union(n.Edges(col))
	}
	return u
}
