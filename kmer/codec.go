package kmer

import (
	"errors"
	"fmt"
	"math/bits"
)

// ErrKeyOverflow is returned by ReadKey when bits beyond 2*k are set.
var ErrKeyOverflow = errors.New("kmer key has bits set beyond kmer size")

// Codec encodes and decodes k-mers of one fixed size.
// A Codec is immutable and safe for concurrent use.
type Codec struct {
	k      int
	hiMask uint64
	loMask uint64
}

// ValidateKmerSize checks that k is odd and within [MinKmerSize, MaxKmerSize].
func ValidateKmerSize(k int) error {
	if k < MinKmerSize || k > MaxKmerSize {
		return fmt.Errorf("%w: %d not in [%d,%d]", ErrInvalidKmerSize, k, MinKmerSize, MaxKmerSize)
	}
	if k&1 == 0 {
		return fmt.Errorf("%w: %d is even", ErrInvalidKmerSize, k)
	}
	return nil
}

// NewCodec creates a codec for k-mers of length k.
func NewCodec(k int) (*Codec, error) {
	if err := ValidateKmerSize(k); err != nil {
		return nil, err
	}
	c := &Codec{k: k}
	nbits := 2 * k
	if nbits < 64 {
		c.loMask = (uint64(1) << nbits) - 1
	} else {
		c.loMask = ^uint64(0)
		c.hiMask = (uint64(1) << (nbits - 64)) - 1
	}
	return c, nil
}

// KmerSize returns k.
func (c *Codec) KmerSize() int { return c.k }

// Words returns the number of words carrying bits for this k.
func (c *Codec) Words() int { return (c.k + 31) / 32 }

// KeyBytes returns the serialized key width, ceil(2k/8).
func (c *Codec) KeyBytes() int { return (2*c.k + 7) / 8 }

// Encode packs seq on its given strand. It fails with an *InvalidKmerError
// if seq does not have exactly k characters from {A,C,G,T} (any case).
func (c *Codec) Encode(seq string) (Key, error) {
	if len(seq) != c.k {
		return Key{}, &InvalidKmerError{Seq: seq, Expected: c.k, Pos: -1}
	}
	var key Key
	for i := 0; i < len(seq); i++ {
		n, ok := ParseNucleotide(seq[i])
		if !ok {
			return Key{}, &InvalidKmerError{Seq: seq, Expected: c.k, Pos: i}
		}
		key[0] = key[0]<<2 | key[1]>>62
		key[1] = key[1]<<2 | uint64(n)
	}
	return key, nil
}

// Canonical encodes seq and returns the smaller of it and its reverse complement.
func (c *Codec) Canonical(seq string) (Key, error) {
	key, err := c.Encode(seq)
	if err != nil {
		return Key{}, err
	}
	return c.CanonicalKey(key), nil
}

// CanonicalKey returns the smaller of key and its reverse complement.
func (c *Codec) CanonicalKey(key Key) Key {
	rc := c.ReverseComplement(key)
	if rc.Less(key) {
		return rc
	}
	return key
}

// Orient returns the canonical form of key and the strand key was on.
func (c *Codec) Orient(key Key) (Key, Orientation) {
	rc := c.ReverseComplement(key)
	if rc.Less(key) {
		return rc, Reverse
	}
	return key, Forward
}

// IsCanonical reports whether key is its own canonical form.
func (c *Codec) IsCanonical(key Key) bool {
	return !c.ReverseComplement(key).Less(key)
}

// Decode returns the upper case string for key.
func (c *Codec) Decode(key Key) string {
	out := make([]byte, c.k)
	for i := c.k - 1; i >= 0; i-- {
		out[i] = nucChars[key[1]&3]
		key[1] = key[1]>>2 | key[0]<<62
		key[0] >>= 2
	}
	return string(out)
}

// ReverseComplement returns the key of the reverse complement strand.
func (c *Codec) ReverseComplement(key Key) Key {
	// Complementing a 2-bit base is x^3.
	hi := ^key[0] & c.hiMask
	lo := ^key[1] & c.loMask

	// Reversing the 2-bit groups of the 128-bit value leaves the k bases in
	// the top 2k bits.
	rhi, rlo := reversePairs(lo), reversePairs(hi)
	s := uint(128 - 2*c.k)
	if s >= 64 {
		return Key{0, rhi >> (s - 64)}
	}
	return Key{rhi >> s, rlo>>s | rhi<<(64-s)}
}

func reversePairs(x uint64) uint64 {
	x = (x>>2)&0x3333333333333333 | (x&0x3333333333333333)<<2
	x = (x>>4)&0x0f0f0f0f0f0f0f0f | (x&0x0f0f0f0f0f0f0f0f)<<4
	return bits.ReverseBytes64(x)
}

// Base returns the base at position i, 0 being the 5' end.
func (c *Codec) Base(key Key, i int) Nucleotide {
	s := uint(2 * (c.k - 1 - i))
	if s >= 64 {
		return Nucleotide(key[0]>>(s-64)) & 3
	}
	return Nucleotide(key[1]>>s) & 3
}

// First returns the 5' base.
func (c *Codec) First(key Key) Nucleotide { return c.Base(key, 0) }

// Last returns the 3' base.
func (c *Codec) Last(key Key) Nucleotide { return Nucleotide(key[1] & 3) }

// ShiftAppend drops the 5' base and appends n at the 3' end.
func (c *Codec) ShiftAppend(key Key, n Nucleotide) Key {
	hi := key[0]<<2 | key[1]>>62
	lo := key[1]<<2 | uint64(n&3)
	return Key{hi & c.hiMask, lo & c.loMask}
}

// ShiftPrepend drops the 3' base and prepends n at the 5' end.
func (c *Codec) ShiftPrepend(key Key, n Nucleotide) Key {
	lo := key[1]>>2 | key[0]<<62
	hi := key[0] >> 2
	s := uint(2 * (c.k - 1))
	if s >= 64 {
		hi |= uint64(n&3) << (s - 64)
	} else {
		lo |= uint64(n&3) << s
	}
	return Key{hi & c.hiMask, lo & c.loMask}
}

// AppendKey appends the big-endian KeyBytes()-wide encoding of key to dst.
func (c *Codec) AppendKey(dst []byte, key Key) []byte {
	for j := c.KeyBytes() - 1; j >= 0; j-- {
		s := uint(8 * j)
		var b uint64
		switch {
		case s >= 64:
			b = key[0] >> (s - 64)
		case s == 0:
			b = key[1]
		default:
			b = key[1]>>s | key[0]<<(64-s)
		}
		dst = append(dst, byte(b))
	}
	return dst
}

// ReadKey decodes a key written by AppendKey. b must hold at least KeyBytes() bytes.
func (c *Codec) ReadKey(b []byte) (Key, error) {
	n := c.KeyBytes()
	if len(b) < n {
		return Key{}, fmt.Errorf("kmer key needs %d bytes, got %d", n, len(b))
	}
	var key Key
	for _, v := range b[:n] {
		key[0] = key[0]<<8 | key[1]>>56
		key[1] = key[1]<<8 | uint64(v)
	}
	if key[0]&^c.hiMask != 0 || key[1]&^c.loMask != 0 {
		return Key{}, ErrKeyOverflow
	}
	return key, nil
}
