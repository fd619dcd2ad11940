package format

import (
	"github.com/hupe1980/kmerdb/edges"
	"github.com/hupe1980/kmerdb/kmer"
)

// Record is one node as stored in a file.
type Record struct {
	Key      kmer.Key
	Presence []byte      // bit c of byte c/8 is set when the node is in colour c
	Edges    []edges.Set // one entry per edge colour
}

// HasColor reports whether bit c of the presence vector is set.
func (r *Record) HasColor(c int) bool {
	i := c / 8
	return c >= 0 && i < len(r.Presence) && r.Presence[i]&(1<<(c%8)) != 0
}

// SetColor sets bit c of the presence vector, growing it as needed.
func (r *Record) SetColor(c int) {
	for len(r.Presence) <= c/8 {
		r.Presence = append(r.Presence, 0)
	}
	r.Presence[c/8] |= 1 << (c % 8)
}

// IsEmpty reports whether no presence bit is set.
func (r *Record) IsEmpty() bool {
	for _, b := range r.Presence {
		if b != 0 {
			return false
		}
	}
	return true
}

// Clone returns a deep copy; records returned by RecordReader.Next share buffers.
func (r *Record) Clone() Record {
	return Record{
		Key:      r.Key,
		Presence: append([]byte(nil), r.Presence...),
		Edges:    append([]edges.Set(nil), r.Edges...),
	}
}
