package testutil

import (
	"bytes"
	"fmt"
	"iter"
	"path/filepath"
	"testing"

	"github.com/hupe1980/kmerdb/edges"
	"github.com/hupe1980/kmerdb/internal/format"
	"github.com/hupe1980/kmerdb/internal/fs"
	"github.com/hupe1980/kmerdb/kmer"
)

// Node is one fixture k-mer.
type Node struct {
	Kmer   string      // canonical
	Colors []int       // ascending
	Edges  []edges.Set // per edge colour, relative to Kmer
}

// HasColor reports whether the node is in color.
func (n *Node) HasColor(color int) bool {
	for _, c := range n.Colors {
		if c == color {
			return true
		}
	}
	return false
}

// Fixture is an in-memory graph.
type Fixture struct {
	KmerSize    int
	NumColors   int
	NumEdgeCols int
	Colors      []format.ColorInfo
	Nodes       []Node

	codec *kmer.Codec
	index map[kmer.Key]int
}

// NewFixture returns an empty fixture.
func NewFixture(k, numColors, numEdgeCols int) (*Fixture, error) {
	c, err := kmer.NewCodec(k)
	if err != nil {
		return nil, err
	}
	if numColors < 1 || numEdgeCols < 0 || numEdgeCols > numColors {
		return nil, fmt.Errorf("testutil: %d colours, %d edge colours", numColors, numEdgeCols)
	}
	return &Fixture{
		KmerSize:    k,
		NumColors:   numColors,
		NumEdgeCols: numEdgeCols,
		codec:       c,
		index:       make(map[kmer.Key]int),
	}, nil
}

// Codec returns the fixture's k-mer codec.
func (f *Fixture) Codec() *kmer.Codec { return f.codec }

// Lookup returns the node for seq on either strand.
func (f *Fixture) Lookup(seq string) (*Node, bool) {
	key, err := f.codec.Canonical(seq)
	if err != nil {
		return nil, false
	}
	i, ok := f.index[key]
	if !ok {
		return nil, false
	}
	return &f.Nodes[i], true
}

// node returns the node for a canonical key, adding an empty one if needed.
func (f *Fixture) node(key kmer.Key) *Node {
	if i, ok := f.index[key]; ok {
		return &f.Nodes[i]
	}
	f.index[key] = len(f.Nodes)
	f.Nodes = append(f.Nodes, Node{
		Kmer:  f.codec.Decode(key),
		Edges: make([]edges.Set, f.NumEdgeCols),
	})
	return &f.Nodes[len(f.Nodes)-1]
}

// Add stores seq in the given colours with the given edges, which are read
// relative to the strand of seq. Adding an existing k-mer merges colours and
// edges.
func (f *Fixture) Add(seq string, colors []int, nodeEdges ...edges.Set) error {
	fwd, err := f.codec.Encode(seq)
	if err != nil {
		return err
	}
	if len(nodeEdges) > f.NumEdgeCols {
		return fmt.Errorf("testutil: %d edge sets for %d edge colours", len(nodeEdges), f.NumEdgeCols)
	}
	key, o := f.codec.Orient(fwd)
	n := f.node(key)
	for _, c := range colors {
		if c < 0 || c >= f.NumColors {
			return fmt.Errorf("testutil: colour %d of %d", c, f.NumColors)
		}
		if !n.HasColor(c) {
			n.Colors = insertSorted(n.Colors, c)
		}
	}
	for col, e := range nodeEdges {
		n.Edges[col] = n.Edges[col].Union(e.Orient(o))
	}
	return nil
}

func insertSorted(s []int, v int) []int {
	i := 0
	for i < len(s) && s[i] < v {
		i++
	}
	s = append(s, 0)
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}

// RandomFixture builds a graph of n distinct random k-mers. Colours follow
// RNG.ColorSet and every edge colour gets random edges.
func (r *RNG) RandomFixture(k, numColors, numEdgeCols, n int) (*Fixture, error) {
	f, err := NewFixture(k, numColors, numEdgeCols)
	if err != nil {
		return nil, err
	}
	for _, seq := range r.Kmers(k, n) {
		es := make([]edges.Set, numEdgeCols)
		for i := range es {
			es[i] = edges.Set(r.Intn(256))
		}
		if err := f.Add(seq, r.ColorSet(numColors, 1.2), es...); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// FromSequences builds the graph a de Bruijn builder would produce from one
// list of sequences per colour. Every colour has its own edge colour, so the
// result passes a reciprocal edge check.
func FromSequences(k int, colors [][]string) (*Fixture, error) {
	f, err := NewFixture(k, len(colors), len(colors))
	if err != nil {
		return nil, err
	}
	for col, seqs := range colors {
		for _, s := range seqs {
			if err := f.addSequence(s, col); err != nil {
				return nil, err
			}
		}
	}
	return f, nil
}

func (f *Fixture) addSequence(s string, col int) error {
	k := f.KmerSize
	for i := 0; i+k <= len(s); i++ {
		var e edges.Set
		if i > 0 {
			n, ok := kmer.ParseNucleotide(s[i-1])
			if !ok {
				return fmt.Errorf("testutil: non-ACGT %q at %d", s[i-1], i-1)
			}
			e = e.WithIncoming(n)
		}
		if i+k < len(s) {
			n, ok := kmer.ParseNucleotide(s[i+k])
			if !ok {
				return fmt.Errorf("testutil: non-ACGT %q at %d", s[i+k], i+k)
			}
			e = e.WithOutgoing(n)
		}
		es := make([]edges.Set, f.NumEdgeCols)
		es[col] = e
		if err := f.Add(s[i:i+k], []int{col}, es...); err != nil {
			return err
		}
	}
	return nil
}

// Header returns the file header for the fixture.
func (f *Fixture) Header(c format.Compression) format.Header {
	return format.Header{
		KmerSize:    f.KmerSize,
		NumColors:   f.NumColors,
		NumEdgeCols: f.NumEdgeCols,
		Records:     uint64(len(f.Nodes)),
		Compression: c,
		Colors:      f.Colors,
	}
}

// Records yields the fixture nodes as file records.
func (f *Fixture) Records() iter.Seq[format.Record] {
	return func(yield func(format.Record) bool) {
		for _, n := range f.Nodes {
			key, err := f.codec.Encode(n.Kmer)
			if err != nil {
				panic(err)
			}
			rec := format.Record{
				Key:      key,
				Presence: make([]byte, (f.NumColors+7)/8),
				Edges:    n.Edges,
			}
			for _, c := range n.Colors {
				rec.SetColor(c)
			}
			if !yield(rec) {
				return
			}
		}
	}
}

// Encode returns the fixture in the graph file format.
func (f *Fixture) Encode(tb testing.TB, c format.Compression) []byte {
	tb.Helper()

	var buf bytes.Buffer
	w, err := format.NewWriter(&buf, f.Header(c))
	if err != nil {
		tb.Fatalf("testutil: encode fixture: %v", err)
	}
	for rec := range f.Records() {
		if err := w.Write(rec); err != nil {
			tb.Fatalf("testutil: encode fixture: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		tb.Fatalf("testutil: encode fixture: %v", err)
	}
	return buf.Bytes()
}

// WriteFile writes the fixture to dir/name and returns the path.
func (f *Fixture) WriteFile(tb testing.TB, dir, name string, c format.Compression) string {
	tb.Helper()

	path := filepath.Join(dir, name)
	if err := format.WriteFile(fs.Default, path, f.Header(c), f.Records()); err != nil {
		tb.Fatalf("testutil: write fixture: %v", err)
	}
	return path
}
