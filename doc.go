// Package kmerdb is an embedded store for multi-colour de Bruijn graphs.
//
// A graph holds the canonical k-mers of one or more samples ("colours"). For
// every k-mer it records in which colours the k-mer was seen and, per edge
// colour, which single-base extensions precede and follow it. Graphs are
// produced by an external builder, loaded once, and served read-only.
//
// # Quick Start
//
// Local file:
//
//	ctx := context.Background()
//	g, _ := kmerdb.Open(ctx, "sample.kdbg", kmerdb.WithExpectedKmerSize(31))
//	defer g.Close()
//
// Object storage:
//
//	store, _ := s3.NewFromConfig(ctx, "my-bucket", "graphs/")
//	g, _ := kmerdb.OpenBlob(ctx, store, "sample.kdbg")
//
// Selected colours, renumbered in the given order:
//
//	path, opts, _ := kmerdb.ParseSource("pop.kdbg:3,0-1")
//	g, _ := kmerdb.Open(ctx, path, opts...)
//
// # Queries
//
// A k-mer and its reverse complement are the same node. Queries accept either
// strand, in any case:
//
//	ok, _ := g.Contains("ACGTA", kmerdb.AllColors)
//	ok, _ = g.Contains("tacgt", 0)
//
//	nb, err := g.Neighbors("ACGTA", 1)
//	if errors.Is(err, kmerdb.ErrKmerNotFound) {
//	    // absent from every colour
//	}
//	fmt.Println(nb.Edges)      // relative to the canonical strand
//	fmt.Println(nb.Oriented()) // relative to the query
//
// NextKmers resolves the edges to the adjacent k-mers.
//
// # Iteration
//
// Iteration visits stored k-mers in table-slot order and is repeatable:
//
//	for kmer := range g.Kmers() {
//	    fmt.Println(kmer)
//	}
//
// # Concurrency
//
// A loaded Graph is immutable. Any number of goroutines may query and iterate
// it at once without locking. Close makes later queries fail with ErrClosed.
//
// # File Format
//
// Graph files start with a 48-byte little-endian header (magic, version,
// kmer size, colour counts, record count, compression, CRC32C) followed by an
// optional colour-metadata block and a stream of fixed-size records, which
// may be compressed as one LZ4 frame or one zstd stream. Save, SaveFile and
// SaveBlob write the same format.
//
// # Operations
//
// The config package builds options and a blob store (local, S3, MinIO)
// from KMERDB_* environment variables. The metrics/prometheus package
// provides a MetricsCollector backed by Prometheus.
package kmerdb
