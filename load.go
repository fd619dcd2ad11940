package kmerdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/hupe1980/kmerdb/blobstore"
	"github.com/hupe1980/kmerdb/edges"
	"github.com/hupe1980/kmerdb/internal/format"
	"github.com/hupe1980/kmerdb/internal/store"
	"github.com/hupe1980/kmerdb/resource"
)

// cancelCheckInterval is how many records are decoded between context checks.
const cancelCheckInterval = 4096

// Open loads the graph file at path. The file is memory-mapped for the
// duration of the load and unmapped before Open returns.
func Open(ctx context.Context, path string, opts ...Option) (*Graph, error) {
	bs := blobstore.NewLocalStore(filepath.Dir(path))
	return OpenBlob(ctx, bs, filepath.Base(path), append([]Option{WithSource(path)}, opts...)...)
}

// OpenBlob loads the graph stored as name in bs.
func OpenBlob(ctx context.Context, bs blobstore.BlobStore, name string, opts ...Option) (*Graph, error) {
	blob, err := bs.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer func() { _ = blob.Close() }()

	r, err := blobstore.NewReader(ctx, blob)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	defer func() { _ = r.Close() }()

	return Load(ctx, r, append([]Option{WithSource(name), withInputSize(blob.Size())}, opts...)...)
}

// Load reads a graph from r. Either the whole graph is loaded or an error is
// returned; no partially populated graph is ever visible.
func Load(ctx context.Context, r io.Reader, opts ...Option) (*Graph, error) {
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	stats := LoadStats{Source: o.source}
	logger := o.logger
	if o.source != "" {
		logger = logger.WithSource(o.source)
	}

	g, err := load(ctx, r, o, logger, &stats)
	stats.Duration = time.Since(start)
	if err != nil {
		err = translateError(err)
		logger.LogLoad(ctx, stats, err)
		o.metricsCollector.RecordLoad(stats, err)
		return nil, err
	}
	g.info.Stats = stats
	logger.LogLoad(ctx, stats, nil)
	o.metricsCollector.RecordLoad(stats, nil)
	return g, nil
}

func load(ctx context.Context, r io.Reader, o *options, logger *Logger, stats *LoadStats) (*Graph, error) {
	if err := o.rc.AcquireLoad(ctx); err != nil {
		return nil, err
	}
	defer o.rc.ReleaseLoad()

	size := o.size
	if size < 0 {
		n, err := remainingBytes(r)
		if err != nil {
			return nil, err
		}
		size = n
	}

	if o.rc != nil {
		r = resource.NewRateLimitedReader(ctx, r, o.rc)
	}

	h, err := format.ReadHeader(r)
	if err != nil {
		return nil, err
	}
	if o.expectedKmerSize != 0 && o.expectedKmerSize != h.KmerSize {
		return nil, &ParameterMismatchError{Param: "kmer_size", Expected: o.expectedKmerSize, Actual: h.KmerSize}
	}
	if o.expectedColors != 0 && o.expectedColors != h.NumColors {
		return nil, &ParameterMismatchError{Param: "num_colors", Expected: o.expectedColors, Actual: h.NumColors}
	}
	if size >= 0 {
		if err := h.CheckSize(size - h.EncodedLen()); err != nil {
			return nil, err
		}
	}

	sel, err := newSelection(h, o.colors)
	if err != nil {
		return nil, err
	}

	info := Info{
		KmerSize:     h.KmerSize,
		NumColors:    sel.numColors(),
		NumEdgeCols:  len(sel.edgeCols),
		MergedEdges:  sel.merged,
		FileColors:   h.NumColors,
		FileEdgeCols: h.NumEdgeCols,
		Records:      h.Records,
		Compression:  h.Compression,
		Colors:       sel.colorInfo(h.Colors),
	}
	logger.LogHeader(ctx, info)

	capacity := o.capacity
	if capacity == 0 {
		capacity = store.CapacityFor(h.Records, o.loadFactor)
	}
	if capacity > store.MaxCapacity {
		if o.capacity == 0 {
			if err := drainRecords(ctx, r, h); err != nil {
				return nil, err
			}
		}
		return nil, fmt.Errorf("%w: %d records need %d slots", ErrCapacityExceeded, h.Records, capacity)
	}
	params := store.Params{
		KmerSize:    h.KmerSize,
		NumColors:   info.NumColors,
		NumEdgeCols: info.NumEdgeCols,
		Capacity:    capacity,
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	mem := params.MemoryUsage()
	reserve := o.rc.ReserveMemory
	if o.waitForMemory {
		reserve = func(n int64) error { return o.rc.AcquireMemory(ctx, n) }
	}
	if err := reserve(mem); err != nil {
		return nil, err
	}
	ok := false
	defer func() {
		if !ok {
			o.rc.ReleaseMemory(mem)
		}
	}()

	st, err := store.New(params)
	if err != nil {
		return nil, err
	}

	rr, err := format.NewRecordReader(r, h)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rr.Close() }()

	var (
		rec      format.Record
		presence = make([]byte, params.PresenceBytes())
		nodeEdge = make([]edges.Set, params.NumEdgeCols)
	)
	for {
		if stats.Read%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		err := rr.Next(&rec)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		stats.Read++

		if rec.IsEmpty() {
			stats.SkippedEmpty++
			continue
		}
		if !sel.apply(&rec, presence, nodeEdge) {
			stats.SkippedFiltered++
			continue
		}
		if _, err := st.Insert(rec.Key, presence, nodeEdge); err != nil {
			return nil, fmt.Errorf("record %d: %w", stats.Read-1, err)
		}
		stats.Loaded++
	}
	st.Seal()

	stats.Capacity = capacity
	stats.MemoryBytes = mem
	info.Capacity = capacity

	var reserved int64
	if o.rc != nil {
		reserved = mem
	}
	ok = true
	return newGraph(st, info, sel.edgeMap, o, reserved), nil
}

// remainingBytes returns the unread length of a seekable r, or -1.
func remainingBytes(r io.Reader) (int64, error) {
	s, ok := r.(io.Seeker)
	if !ok {
		return -1, nil
	}
	cur, err := s.Seek(0, io.SeekCurrent)
	if err != nil {
		return -1, nil
	}
	end, err := s.Seek(0, io.SeekEnd)
	if err != nil {
		return -1, nil
	}
	if _, err := s.Seek(cur, io.SeekStart); err != nil {
		return 0, fmt.Errorf("restore read offset: %w", err)
	}
	return end - cur, nil
}

// drainRecords reads the record stream without storing it. It returns a
// *format.TruncatedError when the stream ends before the declared count.
func drainRecords(ctx context.Context, r io.Reader, h *format.Header) error {
	rr, err := format.NewRecordReader(r, h)
	if err != nil {
		return err
	}
	defer func() { _ = rr.Close() }()

	var rec format.Record
	for n := uint64(0); ; n++ {
		if n%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := rr.Next(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// selection maps file colours to graph colours.
type selection struct {
	colors   []int // graph colour i is file colour colors[i]; nil keeps all
	all      int   // file colour count
	edgeCols []int // graph edge colour j is file edge colour edgeCols[j], or -1 for none
	edgeMap  []int // graph colour i reads graph edge colour edgeMap[i], or -1 for none
	merged   bool  // one edge colour shared by every colour
}

func newSelection(h *format.Header, colors []int) (*selection, error) {
	s := &selection{
		colors: colors,
		all:    h.NumColors,
		merged: h.NumEdgeCols == 1 && h.NumColors > 1,
	}
	if colors == nil {
		s.edgeCols = make([]int, h.NumEdgeCols)
		for i := range s.edgeCols {
			s.edgeCols[i] = i
		}
		s.edgeMap = make([]int, h.NumColors)
		for i := range s.edgeMap {
			switch {
			case s.merged:
				s.edgeMap[i] = 0
			case i < h.NumEdgeCols:
				s.edgeMap[i] = i
			default:
				s.edgeMap[i] = -1
			}
		}
		return s, nil
	}

	for _, c := range colors {
		if c >= h.NumColors {
			return nil, &InvalidColorError{Color: c, NumColors: h.NumColors}
		}
	}

	s.edgeMap = make([]int, len(colors))
	if s.merged {
		s.edgeCols = []int{0}
		return s, nil
	}

	// Graph edge colours cover the selected colours up to the last one with
	// its own file edge colour. Colours inside that range without one get an
	// empty column.
	n := 0
	for i, c := range colors {
		s.edgeMap[i] = -1
		if c < h.NumEdgeCols {
			n = i + 1
		}
	}
	if n == 1 && len(colors) > 1 {
		// A single edge colour would read back as shared by every colour.
		n = 2
	}
	s.edgeCols = make([]int, n)
	for j := range s.edgeCols {
		s.edgeCols[j] = -1
		if c := colors[j]; c < h.NumEdgeCols {
			s.edgeCols[j] = c
			s.edgeMap[j] = j
		}
	}
	return s, nil
}

func (s *selection) numColors() int {
	if s.colors == nil {
		return s.all
	}
	return len(s.colors)
}

func (s *selection) colorInfo(in []ColorInfo) []ColorInfo {
	if len(in) == 0 {
		return nil
	}
	if s.colors == nil {
		return append([]ColorInfo(nil), in...)
	}
	out := make([]ColorInfo, len(s.colors))
	for i, c := range s.colors {
		out[i] = in[c]
	}
	return out
}

// apply fills presence and nodeEdges for the selected colours and reports
// whether any selected colour is present.
func (s *selection) apply(rec *format.Record, presence []byte, nodeEdges []edges.Set) bool {
	if s.colors == nil {
		copy(presence, rec.Presence)
		copy(nodeEdges, rec.Edges)
		return true
	}

	clear(presence)
	found := false
	for i, c := range s.colors {
		if rec.HasColor(c) {
			presence[i/8] |= 1 << (i % 8)
			found = true
		}
	}
	for j, col := range s.edgeCols {
		if col < 0 {
			nodeEdges[j] = 0
			continue
		}
		nodeEdges[j] = rec.Edges[col]
	}
	return found
}
