package hash

import (
	"testing"

	"github.com/hupe1980/kmerdb/kmer"
	"github.com/stretchr/testify/assert"
)

func TestCRC32C(t *testing.T) {
	// Known answer for the Castagnoli polynomial.
	assert.Equal(t, uint32(0xe3069283), CRC32C([]byte("123456789")))

	h := NewCRC32C()
	_, _ = h.Write([]byte("1234"))
	_, _ = h.Write([]byte("56789"))
	assert.Equal(t, CRC32C([]byte("123456789")), h.Sum32())
}

func TestKey(t *testing.T) {
	a := kmer.Key{0, 1}
	b := kmer.Key{1, 0}
	assert.Equal(t, Key(a), Key(a))
	assert.NotEqual(t, Key(a), Key(b))
}
