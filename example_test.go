package kmerdb_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/hupe1980/kmerdb"
	"github.com/hupe1980/kmerdb/internal/format"
	"github.com/hupe1980/kmerdb/testutil"
)

// writeExampleGraph writes a two-colour graph with k=5 built from one short
// sequence per colour.
func writeExampleGraph(dir string) string {
	f, err := testutil.FromSequences(5, [][]string{{"ACGTTGCA"}, {"TTGCATT"}})
	if err != nil {
		log.Fatal(err)
	}
	f.Colors = []kmerdb.ColorInfo{{Name: "sample-a"}, {Name: "sample-b"}}

	path := filepath.Join(dir, "example.kdbg")
	if err := format.WriteFile(nil, path, f.Header(format.CompressionZstd), f.Records()); err != nil {
		log.Fatal(err)
	}
	return path
}

func Example_open() {
	dir, _ := os.MkdirTemp("", "kmerdb-example")
	defer os.RemoveAll(dir)

	g, err := kmerdb.Open(context.Background(), writeExampleGraph(dir), kmerdb.WithExpectedKmerSize(5))
	if err != nil {
		log.Fatal(err)
	}
	defer g.Close()

	fmt.Println(g.KmerSize(), g.NumColors(), g.NumEdgeCols(), g.Len())
	// Output: 5 2 2 6
}

func Example_contains() {
	dir, _ := os.MkdirTemp("", "kmerdb-example")
	defer os.RemoveAll(dir)

	g, err := kmerdb.Open(context.Background(), writeExampleGraph(dir))
	if err != nil {
		log.Fatal(err)
	}
	defer g.Close()

	inA, _ := g.Contains("TTGCA", 0)
	inB, _ := g.Contains("tgcaa", 1) // reverse complement, lower case
	anywhere, _ := g.Contains("GCATT", kmerdb.AllColors)
	fmt.Println(inA, inB, anywhere)

	_, err = g.Contains("ACGT", 0)
	fmt.Println(errors.Is(err, kmerdb.ErrInvalidKmer))
	// Output:
	// true true true
	// true
}

func Example_nextKmers() {
	dir, _ := os.MkdirTemp("", "kmerdb-example")
	defer os.RemoveAll(dir)

	g, err := kmerdb.Open(context.Background(), writeExampleGraph(dir))
	if err != nil {
		log.Fatal(err)
	}
	defer g.Close()

	nbs, err := g.NextKmers("GTTGC", kmerdb.AllColors)
	if err != nil {
		log.Fatal(err)
	}
	for _, nb := range nbs {
		fmt.Println(nb.Direction, nb.Kmer, nb.Stored)
	}

	_, err = g.Neighbors("GGGGG", kmerdb.AllColors)
	fmt.Println(errors.Is(err, kmerdb.ErrKmerNotFound))
	// Output:
	// next TTGCA true
	// prev CGTTG true
	// true
}

func Example_colorFilter() {
	dir, _ := os.MkdirTemp("", "kmerdb-example")
	defer os.RemoveAll(dir)

	path, opts, err := kmerdb.ParseSource(writeExampleGraph(dir) + ":1")
	if err != nil {
		log.Fatal(err)
	}
	g, err := kmerdb.Open(context.Background(), path, opts...)
	if err != nil {
		log.Fatal(err)
	}
	defer g.Close()

	fmt.Println(g.NumColors(), g.Len(), g.Info().Colors[0].Name)
	// Output: 1 3 sample-b
}

func Example_save() {
	dir, _ := os.MkdirTemp("", "kmerdb-example")
	defer os.RemoveAll(dir)

	g, err := kmerdb.Open(context.Background(), writeExampleGraph(dir), kmerdb.WithColors(0))
	if err != nil {
		log.Fatal(err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := g.Save(context.Background(), &buf, kmerdb.WithCompression(kmerdb.CompressionLZ4)); err != nil {
		log.Fatal(err)
	}

	g2, err := kmerdb.Load(context.Background(), &buf)
	if err != nil {
		log.Fatal(err)
	}
	defer g2.Close()

	fmt.Println(g2.NumColors(), g2.Len())
	fmt.Println(g2.Healthcheck(context.Background()))
	// Output:
	// 1 4
	// <nil>
}
