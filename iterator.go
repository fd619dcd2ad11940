package kmerdb

import (
	"iter"

	"github.com/hupe1980/kmerdb/internal/store"
	"github.com/hupe1980/kmerdb/kmer"
)

// KmerIterator walks every stored k-mer in ascending slot order. Two
// iterators over the same graph yield the same sequence.
//
// A KmerIterator is not safe for concurrent use; create one per goroutine.
type KmerIterator struct {
	it        *store.Iterator
	codec     *kmer.Codec
	numColors int
	numEdge   int
}

// Iterator returns a new iterator positioned before the first k-mer.
func (g *Graph) Iterator() (*KmerIterator, error) {
	st, err := g.store()
	if err != nil {
		return nil, err
	}
	return &KmerIterator{
		it:        st.Iterator(),
		codec:     st.Codec(),
		numColors: g.info.NumColors,
		numEdge:   g.info.NumEdgeCols,
	}, nil
}

// Next advances to the next k-mer and reports whether there is one.
func (it *KmerIterator) Next() bool { return it.it.Next() }

// Reset rewinds the iterator to the first slot.
func (it *KmerIterator) Reset() { it.it.Reset() }

// Slot returns the table slot of the current k-mer.
func (it *KmerIterator) Slot() uint64 { return it.it.Slot() }

// Key returns the canonical key of the current k-mer.
func (it *KmerIterator) Key() kmer.Key { return it.it.Key() }

// Kmer returns the current k-mer in canonical form.
func (it *KmerIterator) Kmer() string { return it.codec.Decode(it.it.Key()) }

// Node returns the full record of the current k-mer.
func (it *KmerIterator) Node() NodeInfo {
	return nodeInfo(it.codec, it.it.Node(), it.numColors, it.numEdge)
}

// Kmers yields every stored k-mer in slot order. It yields nothing once the
// graph is closed.
func (g *Graph) Kmers() iter.Seq[string] {
	return func(yield func(string) bool) {
		it, err := g.Iterator()
		if err != nil {
			return
		}
		for it.Next() {
			if !yield(it.Kmer()) {
				return
			}
		}
	}
}

// Nodes yields the record of every stored k-mer in slot order.
func (g *Graph) Nodes() iter.Seq[NodeInfo] {
	return func(yield func(NodeInfo) bool) {
		it, err := g.Iterator()
		if err != nil {
			return
		}
		for it.Next() {
			if !yield(it.Node()) {
				return
			}
		}
	}
}

// KmersInColor yields the k-mers present in color, in slot order.
func (g *Graph) KmersInColor(color int) (iter.Seq[string], error) {
	st, err := g.store()
	if err != nil {
		return nil, err
	}
	if err := g.checkColor(color, false); err != nil {
		return nil, err
	}
	slots, err := st.ColorSlots(color)
	if err != nil {
		return nil, translateError(err)
	}
	c := st.Codec()
	return func(yield func(string) bool) {
		for slot := range slots {
			n, ok := st.Node(slot)
			if !ok {
				continue
			}
			if !yield(c.Decode(n.Key())) {
				return
			}
		}
	}, nil
}
