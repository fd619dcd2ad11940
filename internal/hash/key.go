package hash

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/hupe1980/kmerdb/kmer"
)

// Key returns the xxhash64 of the key words (high word first, big-endian).
func Key(k kmer.Key) uint64 {
	var buf [8 * kmer.NumWords]byte
	for i, w := range k {
		binary.BigEndian.PutUint64(buf[8*i:], w)
	}
	return xxhash.Sum64(buf[:])
}
