package kmer

// NumWords is the number of 64-bit words in a Key.
const NumWords = 2

const (
	// MinKmerSize is the smallest supported k.
	MinKmerSize = 3
	// MaxKmerSize is the largest supported k (NumWords*32 - 1, odd).
	MaxKmerSize = NumWords*32 - 1
)

// Key is a packed k-mer. Word 0 holds the high bits. Keys of the same k-mer
// size compare as unsigned 128-bit integers and are usable as map keys.
type Key [NumWords]uint64

// Compare returns -1, 0 or +1.
func Compare(a, b Key) int {
	for i := 0; i < NumWords; i++ {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	return 0
}

// Less reports whether k sorts before o.
func (k Key) Less(o Key) bool { return Compare(k, o) < 0 }

// IsZero reports whether all bits are clear (the encoding of A...A).
func (k Key) IsZero() bool { return k == Key{} }

// Orientation tells whether a k-mer is the canonical strand or its reverse complement.
type Orientation uint8

const (
	Forward Orientation = iota
	Reverse
)

func (o Orientation) String() string {
	if o == Reverse {
		return "reverse"
	}
	return "forward"
}

// Flip returns the opposite orientation.
func (o Orientation) Flip() Orientation { return o ^ 1 }
