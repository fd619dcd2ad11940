package kmer

// Nucleotide is a 2-bit base code.
type Nucleotide uint8

const (
	A Nucleotide = iota
	C
	G
	T
)

// Nucleotides lists all bases in code order.
var Nucleotides = [4]Nucleotide{A, C, G, T}

const nucChars = "ACGT"

var charToNuc [256]uint8

func init() {
	for i := range charToNuc {
		charToNuc[i] = 0xff
	}
	for i := 0; i < 4; i++ {
		charToNuc[nucChars[i]] = uint8(i)
		charToNuc[nucChars[i]+('a'-'A')] = uint8(i)
	}
}

// ParseNucleotide maps a base character (any case) to its code.
func ParseNucleotide(b byte) (Nucleotide, bool) {
	n := charToNuc[b]
	if n == 0xff {
		return 0, false
	}
	return Nucleotide(n), true
}

// Complement returns the pairing base (A<->T, C<->G).
func (n Nucleotide) Complement() Nucleotide { return 3 - (n & 3) }

// Char returns the upper case base character.
func (n Nucleotide) Char() byte { return nucChars[n&3] }

func (n Nucleotide) String() string { return string(n.Char()) }

// ReverseComplementString reverse complements seq. Characters outside
// {A,C,G,T,a,c,g,t} are mapped to 'N'. Case is normalised to upper case.
func ReverseComplementString(seq string) string {
	out := make([]byte, len(seq))
	for i := 0; i < len(seq); i++ {
		n, ok := ParseNucleotide(seq[len(seq)-1-i])
		if !ok {
			out[i] = 'N'
			continue
		}
		out[i] = n.Complement().Char()
	}
	return string(out)
}
