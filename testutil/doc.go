// Package testutil provides testing utilities for kmerdb.
//
// This package is intended for use in tests and benchmarks only.
// It provides a deterministic random source for DNA sequences and k-mers and
// builds synthetic graph files.
//
// # Random Sequences
//
//	rng := testutil.NewRNG(seed)
//	seq := rng.Sequence(1000)
//	kmers := rng.Kmers(31, 500) // distinct canonical k-mers
//
// # Synthetic Graphs
//
// A Fixture is an in-memory graph that can be written in the graph file
// format. RandomFixture draws unrelated k-mers with random colours and edges;
// FromSequences derives a traversal-consistent graph from one set of
// sequences per colour, the way a graph builder would:
//
//	fx, _ := testutil.FromSequences(31, [][]string{{seqA}, {seqB}})
//	path := fx.WriteFile(t, t.TempDir(), "pop.kdbg", format.CompressionZstd)
package testutil
