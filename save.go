package kmerdb

import (
	"context"
	"fmt"
	"io"
	"iter"

	"github.com/hupe1980/kmerdb/blobstore"
	"github.com/hupe1980/kmerdb/edges"
	"github.com/hupe1980/kmerdb/internal/format"
	"github.com/hupe1980/kmerdb/internal/fs"
	"github.com/hupe1980/kmerdb/internal/store"
	"github.com/hupe1980/kmerdb/resource"
)

func applySaveOptions(g *Graph, opts []SaveOption) (*saveOptions, error) {
	o := &saveOptions{
		colors: g.info.Colors,
		logger: g.logger,
	}
	for _, fn := range opts {
		fn(o)
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	if o.compression > CompressionZstd {
		return nil, fmt.Errorf("%w: compression %d", ErrInvalidOption, uint8(o.compression))
	}
	if len(o.colors) != 0 && len(o.colors) != g.info.NumColors {
		return nil, fmt.Errorf("%w: %d colour infos for %d colours", ErrInvalidOption, len(o.colors), g.info.NumColors)
	}
	return o, nil
}

func (g *Graph) header(st *store.Store, o *saveOptions) format.Header {
	return format.Header{
		KmerSize:    st.KmerSize(),
		NumColors:   st.NumColors(),
		NumEdgeCols: st.NumEdgeCols(),
		Records:     st.Len(),
		Compression: o.compression,
		Colors:      o.colors,
		Codec:       o.codec,
	}
}

// records yields every node as a file record. The record is reused between
// iterations. The sequence stops early when ctx is canceled.
func records(ctx context.Context, st *store.Store) iter.Seq[format.Record] {
	return func(yield func(format.Record) bool) {
		rec := format.Record{
			Presence: make([]byte, (st.NumColors()+7)/8),
			Edges:    make([]edges.Set, st.NumEdgeCols()),
		}
		var n uint64
		for node := range st.All() {
			if n%cancelCheckInterval == 0 && ctx.Err() != nil {
				return
			}
			n++
			rec.Key = node.Key()
			clear(rec.Presence)
			for col := 0; col < st.NumColors(); col++ {
				if node.HasColor(col) {
					rec.SetColor(col)
				}
			}
			for col := range rec.Edges {
				rec.Edges[col] = node.Edges(col)
			}
			if !yield(rec) {
				return
			}
		}
	}
}

// Save writes the graph to w in the graph file format. A graph loaded with a
// colour filter is written with only the selected colours.
func (g *Graph) Save(ctx context.Context, w io.Writer, opts ...SaveOption) error {
	st, err := g.store()
	if err != nil {
		return err
	}
	o, err := applySaveOptions(g, opts)
	if err != nil {
		return err
	}
	if o.rc != nil {
		w = resource.NewRateLimitedWriter(ctx, w, o.rc)
	}
	return writeGraph(ctx, w, g.header(st, o), records(ctx, st))
}

func writeGraph(ctx context.Context, w io.Writer, h format.Header, recs iter.Seq[format.Record]) error {
	fw, err := format.NewWriter(w, h)
	if err != nil {
		return err
	}
	for rec := range recs {
		if err := fw.Write(rec); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return fw.Close()
}

// SaveFile atomically writes the graph to path.
func (g *Graph) SaveFile(ctx context.Context, path string, opts ...SaveOption) (err error) {
	st, err := g.store()
	if err != nil {
		return err
	}
	o, err := applySaveOptions(g, opts)
	if err != nil {
		return err
	}
	defer func() { o.logger.LogSave(ctx, path, st.Len(), err) }()

	err = format.WriteFile(fs.Default, path, g.header(st, o), records(ctx, st))
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

// SaveBlob writes the graph as name in bs. The blob only becomes visible
// when the whole graph has been written.
func (g *Graph) SaveBlob(ctx context.Context, bs blobstore.BlobStore, name string, opts ...SaveOption) (err error) {
	st, err := g.store()
	if err != nil {
		return err
	}
	o, err := applySaveOptions(g, opts)
	if err != nil {
		return err
	}
	defer func() { o.logger.LogSave(ctx, name, st.Len(), err) }()

	wb, err := bs.Create(ctx, name)
	if err != nil {
		return err
	}
	var w io.Writer = wb
	if o.rc != nil {
		w = resource.NewRateLimitedWriter(ctx, wb, o.rc)
	}
	if err := writeGraph(ctx, w, g.header(st, o), records(ctx, st)); err != nil {
		_ = blobstore.Abort(wb)
		return err
	}
	return wb.Close()
}
