package kmerdb

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/kmerdb/blobstore"
	"github.com/hupe1980/kmerdb/edges"
	"github.com/hupe1980/kmerdb/internal/format"
	"github.com/hupe1980/kmerdb/kmer"
	"github.com/hupe1980/kmerdb/resource"
	"github.com/hupe1980/kmerdb/testutil"
)

func loadBytes(t *testing.T, data []byte, opts ...Option) (*Graph, error) {
	t.Helper()
	g, err := Load(context.Background(), bytes.NewReader(data), opts...)
	if g != nil {
		t.Cleanup(func() { _ = g.Close() })
	}
	return g, err
}

func TestLoad_Compressions(t *testing.T) {
	f := randomFixture(t, 10, 21, 2, 2, 400)

	for _, comp := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
		t.Run(comp.String(), func(t *testing.T) {
			g, err := loadBytes(t, f.Encode(t, comp))
			require.NoError(t, err)
			assert.Equal(t, uint64(400), g.Len())
			assert.Equal(t, comp, g.Info().Compression)

			for _, n := range f.Nodes {
				nb, err := g.Neighbors(n.Kmer, AllColors)
				require.NoError(t, err)
				assert.Equal(t, n.Edges[0].Union(n.Edges[1]), nb.Edges)
			}
		})
	}
}

func TestLoad_ExpectedParameters(t *testing.T) {
	data := randomFixture(t, 11, 7, 3, 1, 20).Encode(t, CompressionNone)

	_, err := loadBytes(t, data, WithExpectedKmerSize(7), WithExpectedColors(3))
	require.NoError(t, err)

	_, err = loadBytes(t, data, WithExpectedKmerSize(31))
	require.ErrorIs(t, err, ErrParameterMismatch)
	var pm *ParameterMismatchError
	require.ErrorAs(t, err, &pm)
	assert.Equal(t, "kmer_size", pm.Param)
	assert.Equal(t, 31, pm.Expected)
	assert.Equal(t, 7, pm.Actual)

	_, err = loadBytes(t, data, WithExpectedColors(2))
	require.ErrorAs(t, err, &pm)
	assert.Equal(t, "num_colors", pm.Param)
}

func TestLoad_Truncated(t *testing.T) {
	f := randomFixture(t, 12, 9, 1, 1, 100)
	data := f.Encode(t, CompressionNone)
	h := f.Header(CompressionNone)
	recSize := h.RecordSize()

	_, err := loadBytes(t, data[:len(data)-3*recSize-1])
	require.ErrorIs(t, err, ErrTruncatedFile)
	var te *TruncatedFileError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, uint64(100), te.Declared)
	assert.Equal(t, uint64(96), te.Read)
}

// inflateRecordCount rewrites the header of an uncompressed fixture file so
// it declares records entries while keeping the original record bytes.
func inflateRecordCount(t *testing.T, f *testutil.Fixture, records uint64) []byte {
	t.Helper()
	h := f.Header(CompressionNone)
	orig, err := h.MarshalBinary()
	require.NoError(t, err)
	body := f.Encode(t, CompressionNone)[len(orig):]

	h.Records = records
	data, err := h.MarshalBinary()
	require.NoError(t, err)
	return append(data, body...)
}

func TestLoad_DeclaredCountExceedsInput(t *testing.T) {
	f := randomFixture(t, 14, 9, 2, 2, 3)
	data := inflateRecordCount(t, f, 1<<40)

	assertTruncated := func(t *testing.T, err error) {
		t.Helper()
		require.ErrorIs(t, err, ErrTruncatedFile)
		require.NotErrorIs(t, err, ErrCapacityExceeded)
		var te *TruncatedFileError
		require.ErrorAs(t, err, &te)
		assert.Equal(t, uint64(1<<40), te.Declared)
		assert.Equal(t, uint64(3), te.Read)
	}

	t.Run("SeekableReader", func(t *testing.T) {
		_, err := loadBytes(t, data)
		assertTruncated(t, err)
	})

	t.Run("StreamingReader", func(t *testing.T) {
		_, err := Load(context.Background(), struct{ io.Reader }{bytes.NewReader(data)})
		assertTruncated(t, err)
	})

	t.Run("Blob", func(t *testing.T) {
		ctx := context.Background()
		bs := blobstore.NewMemoryStore()
		require.NoError(t, bs.Put(ctx, "big.kdbg", data))
		_, err := OpenBlob(ctx, bs, "big.kdbg")
		assertTruncated(t, err)
	})

	t.Run("NoAllocationBeforeCheck", func(t *testing.T) {
		rc := resource.NewController(resource.Config{MemoryLimitBytes: 1 << 20})
		_, err := loadBytes(t, inflateRecordCount(t, f, 1<<20), WithResourceController(rc))
		require.ErrorIs(t, err, ErrTruncatedFile)
		assert.Zero(t, rc.MemoryUsage())
	})
}

func TestLoad_WaitForMemory(t *testing.T) {
	data := randomFixture(t, 17, 7, 3, 3, 100).Encode(t, CompressionNone)
	sized, err := loadBytes(t, data)
	require.NoError(t, err)
	rc := resource.NewController(resource.Config{MemoryLimitBytes: sized.Info().Stats.MemoryBytes})

	first, err := loadBytes(t, data, WithResourceController(rc))
	require.NoError(t, err)

	_, err = loadBytes(t, data, WithResourceController(rc))
	require.ErrorIs(t, err, ErrMemoryLimitExceeded)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = Load(ctx, bytes.NewReader(data), WithResourceController(rc), WithWaitForMemory())
	require.ErrorIs(t, err, context.DeadlineExceeded)

	done := make(chan error, 1)
	go func() {
		g, err := Load(context.Background(), bytes.NewReader(data), WithResourceController(rc), WithWaitForMemory())
		if err == nil {
			err = g.Close()
		}
		done <- err
	}()
	require.NoError(t, first.Close())
	require.NoError(t, <-done)
	assert.Zero(t, rc.MemoryUsage())
}

func TestLoad_FormatErrors(t *testing.T) {
	data := randomFixture(t, 13, 9, 2, 2, 10).Encode(t, CompressionNone)

	corrupt := func(fn func([]byte)) []byte {
		d := bytes.Clone(data)
		fn(d)
		return d
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"Empty", nil},
		{"ShortHeader", data[:10]},
		{"BadMagic", corrupt(func(d []byte) { d[0] = 'X' })},
		{"BadVersion", corrupt(func(d []byte) { d[8] = 9 })},
		{"ChecksumMismatch", corrupt(func(d []byte) { d[12] = 11 })},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadBytes(t, tt.data)
			require.ErrorIs(t, err, ErrFormat)
			var fe *FormatError
			require.ErrorAs(t, err, &fe)
			assert.NotEmpty(t, fe.Reason)
		})
	}
}

func TestLoad_DuplicateKey(t *testing.T) {
	c, err := kmer.NewCodec(5)
	require.NoError(t, err)
	key, err := c.Canonical("AAACG")
	require.NoError(t, err)

	h := format.Header{KmerSize: 5, NumColors: 1, NumEdgeCols: 1, Records: 2}
	var buf bytes.Buffer
	w, err := format.NewWriter(&buf, h)
	require.NoError(t, err)
	rec := format.Record{Key: key, Presence: []byte{1}, Edges: []edges.Set{0}}
	require.NoError(t, w.Write(rec))
	require.NoError(t, w.Write(rec))
	require.NoError(t, w.Close())

	_, err = loadBytes(t, buf.Bytes())
	require.ErrorIs(t, err, ErrFormat)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestLoad_SkipsEmptyRecords(t *testing.T) {
	f, err := testutil.NewFixture(5, 2, 2)
	require.NoError(t, err)
	require.NoError(t, f.Add("AAACG", []int{1}))
	require.NoError(t, f.Add("ACCCA", nil))
	require.NoError(t, f.Add("AAAAA", []int{0}))

	g, err := loadBytes(t, f.Encode(t, CompressionNone))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), g.Len())

	stats := g.Info().Stats
	assert.Equal(t, uint64(3), stats.Read)
	assert.Equal(t, uint64(1), stats.SkippedEmpty)

	ok, err := g.Contains("ACCCA", AllColors)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoad_Capacity(t *testing.T) {
	data := randomFixture(t, 14, 9, 1, 1, 100).Encode(t, CompressionNone)

	g, err := loadBytes(t, data, WithCapacity(128))
	require.NoError(t, err)
	assert.Equal(t, uint64(128), g.Capacity())

	_, err = loadBytes(t, data, WithCapacity(64))
	require.ErrorIs(t, err, ErrCapacityExceeded)

	g, err = loadBytes(t, data, WithLoadFactor(0.5))
	require.NoError(t, err)
	assert.Equal(t, uint64(256), g.Capacity())
}

func TestLoad_InvalidOptions(t *testing.T) {
	data := randomFixture(t, 15, 9, 2, 2, 10).Encode(t, CompressionNone)

	for name, opt := range map[string]Option{
		"LoadFactor":       WithLoadFactor(1.5),
		"ZeroLoadFactor":   WithLoadFactor(0),
		"EmptyColors":      WithColors(),
		"NegativeColor":    WithColors(-1),
		"DuplicateColor":   WithColors(1, 1),
		"NegativeKmerSize": WithExpectedKmerSize(-1),
		"NegativeColors":   WithExpectedColors(-3),
		"CapacityTooLarge": WithCapacity(1 << 40),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := loadBytes(t, data, opt)
			require.ErrorIs(t, err, ErrInvalidOption)
		})
	}

	_, err := loadBytes(t, data, WithColors(2))
	require.ErrorIs(t, err, ErrInvalidColor)
}

func TestLoad_MemoryLimit(t *testing.T) {
	data := randomFixture(t, 16, 7, 3, 3, 100).Encode(t, CompressionNone)
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 1024})

	_, err := loadBytes(t, data, WithResourceController(rc))
	require.ErrorIs(t, err, ErrMemoryLimitExceeded)
	assert.Zero(t, rc.MemoryUsage())

	rc = resource.NewController(resource.Config{MemoryLimitBytes: 1 << 20})
	g, err := loadBytes(t, data, WithResourceController(rc))
	require.NoError(t, err)
	assert.Equal(t, g.Info().Stats.MemoryBytes, rc.MemoryUsage())
}

func TestLoad_FailedLoadReleasesMemory(t *testing.T) {
	f := randomFixture(t, 17, 9, 1, 1, 50)
	data := f.Encode(t, CompressionNone)
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 1 << 20})

	_, err := loadBytes(t, data[:len(data)-5], WithResourceController(rc))
	require.ErrorIs(t, err, ErrTruncatedFile)
	assert.Zero(t, rc.MemoryUsage())
}

func TestLoad_Canceled(t *testing.T) {
	data := randomFixture(t, 18, 9, 1, 1, 10).Encode(t, CompressionNone)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Load(ctx, bytes.NewReader(data))
	require.ErrorIs(t, err, context.Canceled)
}

func TestLoad_ReadRateLimit(t *testing.T) {
	data := randomFixture(t, 19, 9, 1, 1, 10).Encode(t, CompressionNone)

	g, err := loadBytes(t, data, WithReadRateLimit(1<<20))
	require.NoError(t, err)
	assert.Equal(t, uint64(10), g.Len())
}

func TestLoad_ColorFilter(t *testing.T) {
	f := randomFixture(t, 20, 9, 4, 4, 600)
	f.Colors = []ColorInfo{{Name: "s0"}, {Name: "s1"}, {Name: "s2"}, {Name: "s3"}}

	g, err := loadBytes(t, f.Encode(t, CompressionZstd), WithColors(2, 0))
	require.NoError(t, err)
	assert.Equal(t, 2, g.NumColors())
	assert.Equal(t, 2, g.NumEdgeCols())

	info := g.Info()
	assert.Equal(t, 4, info.FileColors)
	assert.Equal(t, []ColorInfo{{Name: "s2"}, {Name: "s0"}}, info.Colors)

	var kept uint64
	for _, n := range f.Nodes {
		in := n.HasColor(2) || n.HasColor(0)
		ok, err := g.Contains(n.Kmer, AllColors)
		require.NoError(t, err)
		assert.Equal(t, in, ok, n.Kmer)
		if !in {
			continue
		}
		kept++

		for graphColor, fileColor := range []int{2, 0} {
			nb, err := g.Neighbors(n.Kmer, graphColor)
			require.NoError(t, err)
			assert.Equal(t, n.HasColor(fileColor), nb.Present)
			if n.HasColor(fileColor) {
				assert.Equal(t, n.Edges[fileColor], nb.Edges)
			}
		}
	}
	assert.Equal(t, kept, g.Len())
	assert.Equal(t, uint64(len(f.Nodes))-kept, info.Stats.SkippedFiltered)
}

func TestLoad_ColorFilterEdgeColors(t *testing.T) {
	t.Run("SingleEdgeColorKept", func(t *testing.T) {
		f := randomFixture(t, 21, 7, 3, 1, 50)
		g, err := loadBytes(t, f.Encode(t, CompressionNone), WithColors(2))
		require.NoError(t, err)
		assert.Equal(t, 1, g.NumEdgeCols())

		for _, n := range f.Nodes {
			if !n.HasColor(2) {
				continue
			}
			nb, err := g.Neighbors(n.Kmer, 0)
			require.NoError(t, err)
			assert.Equal(t, n.Edges[0], nb.Edges)
		}
	})

	t.Run("NoEdgeColors", func(t *testing.T) {
		f := randomFixture(t, 22, 7, 3, 0, 50)
		g, err := loadBytes(t, f.Encode(t, CompressionNone), WithColors(1, 2))
		require.NoError(t, err)
		assert.Equal(t, 0, g.NumEdgeCols())
	})

	t.Run("SelectionBeyondEdgeColors", func(t *testing.T) {
		f := randomFixture(t, 23, 7, 4, 2, 200)
		g, err := loadBytes(t, f.Encode(t, CompressionNone), WithColors(1, 3, 0))
		require.NoError(t, err)
		assert.Equal(t, 3, g.NumColors())
		assert.Equal(t, 3, g.NumEdgeCols())
		assert.False(t, g.Info().MergedEdges)

		var buf bytes.Buffer
		require.NoError(t, g.Save(context.Background(), &buf))
		saved, err := loadBytes(t, buf.Bytes())
		require.NoError(t, err)

		for _, graph := range []*Graph{g, saved} {
			for _, n := range f.Nodes {
				for graphColor, fileColor := range []int{1, 3, 0} {
					if !n.HasColor(fileColor) {
						continue
					}
					nb, err := graph.Neighbors(n.Kmer, graphColor)
					require.NoError(t, err)
					require.True(t, nb.Present)
					want := edges.None
					if fileColor < 2 {
						want = n.Edges[fileColor]
					}
					assert.Equal(t, want, nb.Edges, "%s colour %d", n.Kmer, graphColor)
				}
			}
		}
	})

	t.Run("LeadingColorWithoutEdges", func(t *testing.T) {
		f := randomFixture(t, 26, 7, 4, 2, 200)
		g, err := loadBytes(t, f.Encode(t, CompressionNone), WithColors(3, 1))
		require.NoError(t, err)
		assert.Equal(t, 2, g.NumEdgeCols())

		for _, n := range f.Nodes {
			if n.HasColor(3) {
				nb, err := g.Neighbors(n.Kmer, 0)
				require.NoError(t, err)
				assert.Equal(t, edges.None, nb.Edges)
			}
			if n.HasColor(1) {
				nb, err := g.Neighbors(n.Kmer, 1)
				require.NoError(t, err)
				assert.Equal(t, n.Edges[1], nb.Edges)
			}
		}
	})

	t.Run("OneEdgeColorIsNotShared", func(t *testing.T) {
		f := randomFixture(t, 27, 7, 4, 2, 200)
		g, err := loadBytes(t, f.Encode(t, CompressionNone), WithColors(0, 3))
		require.NoError(t, err)
		assert.Equal(t, 2, g.NumEdgeCols())
		assert.False(t, g.Info().MergedEdges)

		var buf bytes.Buffer
		require.NoError(t, g.Save(context.Background(), &buf))
		saved, err := loadBytes(t, buf.Bytes())
		require.NoError(t, err)
		assert.False(t, saved.Info().MergedEdges)

		for _, n := range f.Nodes {
			if !n.HasColor(3) {
				continue
			}
			nb, err := saved.Neighbors(n.Kmer, 1)
			require.NoError(t, err)
			assert.Equal(t, edges.None, nb.Edges, n.Kmer)
		}
	})

	t.Run("MergedEdgeColor", func(t *testing.T) {
		f := randomFixture(t, 28, 7, 3, 1, 50)
		g, err := loadBytes(t, f.Encode(t, CompressionNone), WithColors(2, 0))
		require.NoError(t, err)
		assert.True(t, g.Info().MergedEdges)

		for _, n := range f.Nodes {
			if !n.HasColor(0) {
				continue
			}
			nb, err := g.Neighbors(n.Kmer, 1)
			require.NoError(t, err)
			assert.Equal(t, n.Edges[0], nb.Edges)
		}
	})
}

func TestOpen(t *testing.T) {
	f := randomFixture(t, 24, 11, 2, 2, 100)
	path := f.WriteFile(t, t.TempDir(), "graph.kdbg", format.CompressionLZ4)

	g, err := Open(context.Background(), path, WithExpectedKmerSize(11))
	require.NoError(t, err)
	defer g.Close()
	assert.Equal(t, uint64(100), g.Len())
	assert.Equal(t, path, g.Info().Stats.Source)

	_, err = Open(context.Background(), filepath.Join(t.TempDir(), "missing.kdbg"))
	require.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestOpenBlob(t *testing.T) {
	ctx := context.Background()
	f := randomFixture(t, 25, 11, 2, 2, 100)
	bs := blobstore.NewMemoryStore()
	require.NoError(t, bs.Put(ctx, "graphs/a.kdbg", f.Encode(t, CompressionZstd)))

	g, err := OpenBlob(ctx, bs, "graphs/a.kdbg")
	require.NoError(t, err)
	defer g.Close()
	assert.Equal(t, uint64(100), g.Len())
	assert.Equal(t, "graphs/a.kdbg", g.Info().Stats.Source)

	_, err = OpenBlob(ctx, bs, "graphs/missing.kdbg")
	require.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestLoad_MetricsAndLogging(t *testing.T) {
	f := handFixture(t)
	metrics := &BasicMetricsCollector{}
	var logs bytes.Buffer
	logger := NewLogger(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	g, err := loadBytes(t, f.Encode(t, CompressionNone), WithMetricsCollector(metrics), WithLogger(logger), WithSource("hand"))
	require.NoError(t, err)

	_, err = g.Contains("AAACG", 0)
	require.NoError(t, err)
	_, err = g.Neighbors("GGGGG", 0)
	require.ErrorIs(t, err, ErrKmerNotFound)
	_, err = g.Contains("AAAC", 0)
	require.Error(t, err)

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.LoadCount)
	assert.Zero(t, stats.LoadErrors)
	assert.Equal(t, int64(2), stats.KmersLoaded)
	assert.Equal(t, int64(3), stats.QueryCount)
	assert.Equal(t, int64(1), stats.QueryErrors)

	_, err = loadBytes(t, nil, WithMetricsCollector(metrics), WithLogger(logger))
	require.Error(t, err)
	assert.Equal(t, int64(1), metrics.GetStats().LoadErrors)

	out := logs.String()
	assert.Contains(t, out, `"msg":"graph header read"`)
	assert.Contains(t, out, `"msg":"graph loaded"`)
	assert.Contains(t, out, `"source":"hand"`)
	assert.Contains(t, out, `"msg":"graph load failed"`)
}
