package kmer

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidKmer is matched by every InvalidKmerError.
	ErrInvalidKmer = errors.New("invalid kmer")

	// ErrInvalidKmerSize is returned for even or out-of-range k-mer sizes.
	ErrInvalidKmerSize = errors.New("invalid kmer size")
)

// InvalidKmerError describes a sequence that cannot be encoded.
type InvalidKmerError struct {
	Seq      string
	Expected int // expected length
	Pos      int // offending position, -1 for length errors
}

func (e *InvalidKmerError) Error() string {
	if e.Pos < 0 {
		return fmt.Sprintf("invalid kmer %q: length %d, expected %d", truncate(e.Seq), len(e.Seq), e.Expected)
	}
	return fmt.Sprintf("invalid kmer %q: non-ACGT character %q at position %d", truncate(e.Seq), e.Seq[e.Pos], e.Pos)
}

// Is reports whether target is ErrInvalidKmer.
func (e *InvalidKmerError) Is(target error) bool { return target == ErrInvalidKmer }

func truncate(s string) string {
	const max = 80
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
