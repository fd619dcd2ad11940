// Package edges holds the per-colour adjacency of a de Bruijn graph node.
//
// A Set is a single byte: the low nibble is the outgoing mask and the high
// nibble the incoming mask. Bit n of the outgoing mask means base n can be
// appended to the 3' end of the canonical k-mer; bit n of the incoming mask
// means base n can be prepended to its 5' end. Bases use kmer.Nucleotide
// codes (A=0, C=1, G=2, T=3).
package edges

import (
	"fmt"
	"math/bits"

	"github.com/hupe1980/kmerdb/kmer"
)

// Set is an incoming/outgoing base mask pair.
type Set uint8

// None is the empty edge set.
const None Set = 0

// New builds a Set from two 4-bit masks. Higher bits are ignored.
func New(incoming, outgoing uint8) Set {
	return Set((incoming&0xf)<<4 | outgoing&0xf)
}

// Outgoing returns the 4-bit outgoing mask.
func (s Set) Outgoing() uint8 { return uint8(s) & 0xf }

// Incoming returns the 4-bit incoming mask.
func (s Set) Incoming() uint8 { return uint8(s) >> 4 }

// HasOutgoing reports whether base n can follow.
func (s Set) HasOutgoing(n kmer.Nucleotide) bool { return s.Outgoing()&(1<<(n&3)) != 0 }

// HasIncoming reports whether base n can precede.
func (s Set) HasIncoming(n kmer.Nucleotide) bool { return s.Incoming()&(1<<(n&3)) != 0 }

// WithOutgoing returns s with the outgoing edge for n set.
func (s Set) WithOutgoing(n kmer.Nucleotide) Set { return s | Set(1<<(n&3)) }

// WithIncoming returns s with the incoming edge for n set.
func (s Set) WithIncoming(n kmer.Nucleotide) Set { return s | Set(1<<(4+n&3)) }

// Union returns the edges present in s or o.
func (s Set) Union(o Set) Set { return s | o }

// IsEmpty reports whether no edge is set.
func (s Set) IsEmpty() bool { return s == None }

// OutDegree counts outgoing edges.
func (s Set) OutDegree() int { return bits.OnesCount8(s.Outgoing()) }

// InDegree counts incoming edges.
func (s Set) InDegree() int { return bits.OnesCount8(s.Incoming()) }

// Flip returns the same edges seen from the reverse complement strand: the
// complement of every incoming base becomes an outgoing base and vice versa.
func (s Set) Flip() Set {
	return New(complementMask(s.Outgoing()), complementMask(s.Incoming()))
}

// complementMask maps bit n to bit 3-n.
func complementMask(m uint8) uint8 {
	return bits.Reverse8(m) >> 4
}

// Orient returns s as seen from strand o.
func (s Set) Orient(o kmer.Orientation) Set {
	if o == kmer.Reverse {
		return s.Flip()
	}
	return s
}

// OutgoingBases lists the bases that can follow, in code order.
func (s Set) OutgoingBases() []kmer.Nucleotide { return maskBases(s.Outgoing()) }

// IncomingBases lists the bases that can precede, in code order.
func (s Set) IncomingBases() []kmer.Nucleotide { return maskBases(s.Incoming()) }

func maskBases(m uint8) []kmer.Nucleotide {
	out := make([]kmer.Nucleotide, 0, bits.OnesCount8(m))
	for _, n := range kmer.Nucleotides {
		if m&(1<<n) != 0 {
			out = append(out, n)
		}
	}
	return out
}

// String renders s as eight characters: the incoming bases in lower case
// followed by the outgoing bases in upper case, '.' for a missing edge.
// A node preceded by A or T and followed by C renders as "a..t.C..".
func (s Set) String() string {
	var b [8]byte
	for i, n := range kmer.Nucleotides {
		b[i] = '.'
		if s.HasIncoming(n) {
			b[i] = n.Char() + ('a' - 'A')
		}
		b[4+i] = '.'
		if s.HasOutgoing(n) {
			b[4+i] = n.Char()
		}
	}
	return string(b[:])
}

// Parse is the inverse of String.
func Parse(str string) (Set, error) {
	if len(str) != 8 {
		return None, fmt.Errorf("edges: %q: want 8 characters", str)
	}
	var s Set
	for i, n := range kmer.Nucleotides {
		switch str[i] {
		case '.':
		case n.Char(), n.Char() + ('a' - 'A'):
			s = s.WithIncoming(n)
		default:
			return None, fmt.Errorf("edges: %q: unexpected %q at %d", str, str[i], i)
		}
		switch str[4+i] {
		case '.':
		case n.Char(), n.Char() + ('a' - 'A'):
			s = s.WithOutgoing(n)
		default:
			return None, fmt.Errorf("edges: %q: unexpected %q at %d", str, str[4+i], 4+i)
		}
	}
	return s, nil
}
