// Package format implements the on-disk graph file: a fixed 48-byte header,
// an optional colour-info block and a stream of fixed-width node records.
//
// All integers in the header are little-endian. Keys inside records are
// big-endian so byte order matches key order. The record stream may be
// compressed as a single lz4 frame or zstd stream.
package format
