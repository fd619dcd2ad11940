// Package kmer packs fixed-length nucleotide strings into comparable binary keys.
//
// A k-mer over {A,C,G,T} is stored with two bits per base (A=0, C=1, G=2, T=3)
// in a Key, a fixed array of machine words. The first (5') base occupies the
// most significant used bits, so keys order exactly like their strings.
//
// # Canonical keys
//
// A k-mer and its reverse complement describe the same double-stranded
// sequence. The canonical key is the numerically smaller of the two encodings:
//
//	c, _ := kmer.NewCodec(31)
//	k1, _ := c.Canonical("ACGTTGCAACGTTGCAACGTTGCAACGTTGC")
//	k2, _ := c.Canonical(kmer.ReverseComplementString("ACGTTGCAACGTTGCAACGTTGCAACGTTGC"))
//	// k1 == k2
//
// Odd k-mer sizes guarantee that no k-mer equals its own reverse complement.
package kmer
