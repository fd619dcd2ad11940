package store

import (
	"fmt"
	"math"

	"github.com/hupe1980/kmerdb/kmer"
)

// MaxCapacity bounds the slot count so slot numbers fit the uint32 colour index.
const MaxCapacity = math.MaxUint32

// AnyColor asks Contains about presence in any colour.
const AnyColor = -1

// Params are the immutable dimensions of a Store.
type Params struct {
	KmerSize    int
	NumColors   int
	NumEdgeCols int
	Capacity    uint64
}

// Validate checks the parameters against the supported ranges.
func (p Params) Validate() error {
	if err := kmer.ValidateKmerSize(p.KmerSize); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	if p.NumColors < 1 {
		return fmt.Errorf("%w: num colours %d < 1", ErrInvalidParams, p.NumColors)
	}
	if p.NumEdgeCols < 0 || p.NumEdgeCols > p.NumColors {
		return fmt.Errorf("%w: num edge colours %d not in [0,%d]", ErrInvalidParams, p.NumEdgeCols, p.NumColors)
	}
	if p.Capacity < 1 || p.Capacity > MaxCapacity {
		return fmt.Errorf("%w: capacity %d not in [1,%d]", ErrInvalidParams, p.Capacity, uint64(MaxCapacity))
	}
	return nil
}

// PresenceBytes is the packed size of one node's colour bits.
func (p Params) PresenceBytes() int { return (p.NumColors + 7) / 8 }

// roaringContainerOverhead approximates the bookkeeping of one roaring
// container.
const roaringContainerOverhead = 48

// MemoryUsage estimates the bytes allocated for a table with these
// parameters, including the per-colour bitmaps at their largest.
func (p Params) MemoryUsage() int64 {
	perSlot := uint64(8*kmer.NumWords + p.PresenceBytes() + p.NumEdgeCols)
	table := p.Capacity*perSlot + p.Capacity/8

	// One container per 2^16 slots, holding at most 2 bytes per member
	// (array form) or 8 KiB (bitmap form).
	containers := (p.Capacity + 1<<16 - 1) >> 16
	perColor := containers * (min(2*min(p.Capacity, 1<<16), 8192) + roaringContainerOverhead)

	return int64(table + uint64(p.NumColors)*perColor)
}

// CapacityFor returns the power-of-two slot count that keeps n records at or
// below loadFactor. The result is at least 16.
func CapacityFor(n uint64, loadFactor float64) uint64 {
	if loadFactor <= 0 || loadFactor > 1 {
		loadFactor = DefaultLoadFactor
	}
	need := uint64(math.Ceil(float64(n) / loadFactor))
	c := uint64(16)
	for c < need {
		c <<= 1
	}
	return c
}

// DefaultLoadFactor is the maximum fill ratio used when sizing from a record count.
const DefaultLoadFactor = 0.75
