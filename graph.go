package kmerdb

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/kmerdb/edges"
	"github.com/hupe1980/kmerdb/internal/store"
	"github.com/hupe1980/kmerdb/kmer"
	"github.com/hupe1980/kmerdb/resource"
)

// AllColors selects every colour in Contains, Neighbors and NextKmers.
const AllColors = store.AnyColor

// Info describes a loaded graph and the file it came from.
type Info struct {
	KmerSize    int
	NumColors   int  // colours in the graph, after any colour filter
	NumEdgeCols int  // edge colours in the graph, after any colour filter
	MergedEdges bool // a single edge colour shared by every colour
	Capacity    uint64

	FileColors   int // colours declared by the file
	FileEdgeCols int // edge colours declared by the file
	Records      uint64
	Compression  Compression

	// Colors holds the metadata of the loaded colours, if the file had any.
	Colors []ColorInfo

	Stats LoadStats
}

// LoadStats summarises one load.
type LoadStats struct {
	Source          string
	Read            uint64 // records decoded
	Loaded          uint64 // records inserted
	SkippedEmpty    uint64 // records with no presence bit
	SkippedFiltered uint64 // records outside the colour selection
	Capacity        uint64
	MemoryBytes     int64
	Duration        time.Duration
}

// Graph is a loaded, read-only de Bruijn graph. All methods are safe for
// concurrent use.
type Graph struct {
	st      atomic.Pointer[store.Store]
	info    Info
	edgeMap []int // colour to edge colour, -1 for none

	logger  *Logger
	metrics MetricsCollector

	rc        *resource.Controller
	reserved  int64
	closeOnce sync.Once
}

func newGraph(st *store.Store, info Info, edgeMap []int, o *options, reserved int64) *Graph {
	g := &Graph{
		info:     info,
		edgeMap:  edgeMap,
		logger:   o.logger,
		metrics:  o.metricsCollector,
		rc:       o.rc,
		reserved: reserved,
	}
	g.st.Store(st)
	return g
}

func (g *Graph) store() (*store.Store, error) {
	st := g.st.Load()
	if st == nil {
		return nil, ErrClosed
	}
	return st, nil
}

// KmerSize returns the k-mer length.
func (g *Graph) KmerSize() int { return g.info.KmerSize }

// NumColors returns the number of colours.
func (g *Graph) NumColors() int { return g.info.NumColors }

// NumEdgeCols returns the number of edge colours.
func (g *Graph) NumEdgeCols() int { return g.info.NumEdgeCols }

// Capacity returns the number of table slots.
func (g *Graph) Capacity() uint64 { return g.info.Capacity }

// Len returns the number of stored k-mers.
func (g *Graph) Len() uint64 { return g.info.Stats.Loaded }

// Info returns the graph description.
func (g *Graph) Info() Info {
	info := g.info
	info.Colors = append([]ColorInfo(nil), g.info.Colors...)
	return info
}

// Codec returns the k-mer codec of the graph.
func (g *Graph) Codec() *kmer.Codec {
	if st := g.st.Load(); st != nil {
		return st.Codec()
	}
	c, _ := kmer.NewCodec(g.info.KmerSize)
	return c
}

// Close releases the tables. Queries on a closed graph return ErrClosed.
// Close is idempotent.
func (g *Graph) Close() error {
	g.closeOnce.Do(func() {
		g.st.Store(nil)
		if g.rc != nil && g.reserved > 0 {
			g.rc.ReleaseMemory(g.reserved)
		}
		g.logger.LogClose(context.Background(), g.info.Stats.Loaded, g.reserved)
	})
	return nil
}

func (g *Graph) checkColor(color int, allowAll bool) error {
	if allowAll && color == AllColors {
		return nil
	}
	if color < 0 || color >= g.info.NumColors {
		return &InvalidColorError{Color: color, NumColors: g.info.NumColors}
	}
	return nil
}

func (g *Graph) record(op QueryOp, start time.Time, err error) {
	if errors.Is(err, ErrKmerNotFound) {
		err = nil
	}
	g.metrics.RecordQuery(op, time.Since(start), err)
}

// edgeCol maps a colour to the edge colour carrying its edges, or -1.
func (g *Graph) edgeCol(color int) int {
	if color < 0 || color >= len(g.edgeMap) {
		return -1
	}
	return g.edgeMap[color]
}

// Contains reports whether seq, or its reverse complement, is present in
// color. AllColors asks for presence in any colour.
func (g *Graph) Contains(seq string, color int) (found bool, err error) {
	start := time.Now()
	defer func() { g.record(QueryContains, start, err) }()

	st, err := g.store()
	if err != nil {
		return false, err
	}
	if err := g.checkColor(color, true); err != nil {
		return false, err
	}
	key, err := st.Codec().Canonical(seq)
	if err != nil {
		return false, err
	}
	found, err = st.Contains(key, color)
	return found, translateError(err)
}

// NeighborInfo holds the edges of a node.
type NeighborInfo struct {
	// Kmer is the canonical strand of the queried k-mer.
	Kmer string
	// Orientation is the strand of the query relative to Kmer.
	Orientation kmer.Orientation
	// Present reports whether the node is in the requested colour.
	Present bool
	// Edges are relative to the canonical strand.
	Edges edges.Set
}

// Oriented returns the edges as seen from the queried strand.
func (n NeighborInfo) Oriented() edges.Set { return n.Edges.Orient(n.Orientation) }

// Neighbors returns the edges of seq in color, or the union over every edge
// colour for AllColors.
//
// A k-mer absent from every colour is a KmerNotFoundError. A k-mer present
// in the graph but not in color has no edges in that colour and is returned
// with Present false and empty Edges. When Info().MergedEdges is set every
// colour reads the single shared edge colour. Otherwise a colour reads its
// own edge colour and has no edges if it has none.
func (g *Graph) Neighbors(seq string, color int) (info NeighborInfo, err error) {
	start := time.Now()
	defer func() { g.record(QueryNeighbors, start, err) }()

	st, err := g.store()
	if err != nil {
		return NeighborInfo{}, err
	}
	node, fwd, err := g.lookup(st, seq, color)
	if err != nil {
		return NeighborInfo{}, err
	}
	c := st.Codec()
	canon, o := c.Orient(fwd)

	info = NeighborInfo{
		Kmer:        c.Decode(canon),
		Orientation: o,
		Present:     color == AllColors || node.HasColor(color),
	}
	info.Edges = g.nodeEdges(node, color)
	return info, nil
}

func (g *Graph) lookup(st *store.Store, seq string, color int) (store.Node, kmer.Key, error) {
	if err := g.checkColor(color, true); err != nil {
		return store.Node{}, kmer.Key{}, err
	}
	c := st.Codec()
	fwd, err := c.Encode(seq)
	if err != nil {
		return store.Node{}, kmer.Key{}, err
	}
	node, ok := st.Lookup(c.CanonicalKey(fwd))
	if !ok {
		return store.Node{}, kmer.Key{}, &KmerNotFoundError{Kmer: seq}
	}
	return node, fwd, nil
}

func (g *Graph) nodeEdges(node store.Node, color int) edges.Set {
	if color == AllColors {
		return node.EdgesUnion()
	}
	if !node.HasColor(color) {
		return edges.None
	}
	return node.Edges(g.edgeCol(color))
}

// Direction tells whether a neighbour follows or precedes a k-mer.
type Direction uint8

const (
	// Next neighbours extend the 3' end.
	Next Direction = iota
	// Prev neighbours extend the 5' end.
	Prev
)

func (d Direction) String() string {
	if d == Prev {
		return "prev"
	}
	return "next"
}

// Neighbor is one k-mer adjacent to a queried k-mer.
type Neighbor struct {
	// Kmer continues the queried strand: for Next it is the query minus its
	// first base plus Base; for Prev it is Base plus the query minus its last base.
	Kmer      string
	Base      kmer.Nucleotide
	Direction Direction
	// Canonical is the stored form of Kmer.
	Canonical   string
	Orientation kmer.Orientation
	// Stored reports whether the neighbour is in the requested colour.
	Stored bool
}

// NextKmers resolves the edges of seq in color to the adjacent k-mers,
// successors first, as seen from the strand of seq.
func (g *Graph) NextKmers(seq string, color int) (out []Neighbor, err error) {
	start := time.Now()
	defer func() { g.record(QueryNextKmers, start, err) }()

	st, err := g.store()
	if err != nil {
		return nil, err
	}
	node, fwd, err := g.lookup(st, seq, color)
	if err != nil {
		return nil, err
	}
	c := st.Codec()
	_, o := c.Orient(fwd)
	es := g.nodeEdges(node, color).Orient(o)

	resolve := func(key kmer.Key, n kmer.Nucleotide, d Direction) Neighbor {
		canon, no := c.Orient(key)
		stored, _ := st.Contains(canon, color)
		return Neighbor{
			Kmer:        c.Decode(key),
			Base:        n,
			Direction:   d,
			Canonical:   c.Decode(canon),
			Orientation: no,
			Stored:      stored,
		}
	}

	out = make([]Neighbor, 0, es.OutDegree()+es.InDegree())
	for _, n := range es.OutgoingBases() {
		out = append(out, resolve(c.ShiftAppend(fwd, n), n, Next))
	}
	for _, n := range es.IncomingBases() {
		out = append(out, resolve(c.ShiftPrepend(fwd, n), n, Prev))
	}
	return out, nil
}

// NodeInfo is the full record of one k-mer.
type NodeInfo struct {
	Kmer   string
	Key    kmer.Key
	Colors []bool      // presence per colour
	Edges  []edges.Set // per edge colour, relative to Kmer
}

// InColor reports whether the node is present in color.
func (n NodeInfo) InColor(color int) bool {
	return color >= 0 && color < len(n.Colors) && n.Colors[color]
}

// String renders the node as the k-mer, its presence bits and each edge set,
// separated by spaces, e.g. "ACT 101 ....A... .c......".
func (n NodeInfo) String() string {
	var b strings.Builder
	b.WriteString(n.Kmer)
	b.WriteByte(' ')
	for _, in := range n.Colors {
		b.WriteByte("01"[boolToInt(in)])
	}
	for _, e := range n.Edges {
		b.WriteByte(' ')
		b.WriteString(e.String())
	}
	return b.String()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nodeInfo(c *kmer.Codec, n store.Node, numColors, numEdgeCols int) NodeInfo {
	info := NodeInfo{
		Kmer:   c.Decode(n.Key()),
		Key:    n.Key(),
		Colors: make([]bool, numColors),
		Edges:  make([]edges.Set, numEdgeCols),
	}
	for col := range info.Colors {
		info.Colors[col] = n.HasColor(col)
	}
	for col := range info.Edges {
		info.Edges[col] = n.Edges(col)
	}
	return info
}

// Node returns the stored record of seq.
func (g *Graph) Node(seq string) (info NodeInfo, err error) {
	start := time.Now()
	defer func() { g.record(QueryNode, start, err) }()

	st, err := g.store()
	if err != nil {
		return NodeInfo{}, err
	}
	node, _, err := g.lookup(st, seq, AllColors)
	if err != nil {
		return NodeInfo{}, err
	}
	return nodeInfo(st.Codec(), node, g.info.NumColors, g.info.NumEdgeCols), nil
}

// ColorLen returns the number of k-mers present in color.
func (g *Graph) ColorLen(color int) (uint64, error) {
	st, err := g.store()
	if err != nil {
		return 0, err
	}
	if err := g.checkColor(color, false); err != nil {
		return 0, err
	}
	n, err := st.ColorLen(color)
	return n, translateError(err)
}

// RandomKmer returns a uniformly chosen slot's k-mer in canonical form. It
// returns false for an empty or closed graph.
func (g *Graph) RandomKmer(r *rand.Rand) (string, bool) {
	st := g.st.Load()
	if st == nil {
		return "", false
	}
	n, ok := st.RandomNode(r)
	if !ok {
		return "", false
	}
	return st.Codec().Decode(n.Key()), true
}

// String summarises the graph parameters.
func (g *Graph) String() string {
	return "kmerdb.Graph{k=" + strconv.Itoa(g.info.KmerSize) +
		" colors=" + strconv.Itoa(g.info.NumColors) +
		" edge_colors=" + strconv.Itoa(g.info.NumEdgeCols) +
		" kmers=" + strconv.FormatUint(g.info.Stats.Loaded, 10) +
		" capacity=" + strconv.FormatUint(g.info.Capacity, 10) + "}"
}
