package kmerdb

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/kmerdb/internal/store"
	"github.com/hupe1980/kmerdb/kmer"
)

const (
	healthcheckChunk = 1 << 16

	// maxReportedViolations bounds EdgeCheckError.Violations.
	maxReportedViolations = 64
)

// EdgeViolation is one edge whose reciprocal edge is missing.
type EdgeViolation struct {
	Kmer      string // canonical
	EdgeCol   int
	Base      kmer.Nucleotide
	Direction Direction
	// Missing is true when the neighbour k-mer is not stored at all.
	Missing bool
}

func (v EdgeViolation) Error() string {
	what := "lacks the reciprocal edge"
	if v.Missing {
		what = "is not stored"
	}
	return fmt.Sprintf("%s edge colour %d: %s neighbour via %s %s", v.Kmer, v.EdgeCol, v.Direction, v.Base, what)
}

// EdgeCheckError reports the edges that failed Healthcheck.
type EdgeCheckError struct {
	// Total counts every violation found.
	Total uint64
	// Violations holds at most 64 of them, in no particular order.
	Violations []EdgeViolation
}

func (e *EdgeCheckError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "edge check failed: %d asymmetric edges", e.Total)
	if len(e.Violations) > 0 {
		b.WriteString("; first: ")
		b.WriteString(e.Violations[0].Error())
	}
	return b.String()
}

// Unwrap returns the reported violations.
func (e *EdgeCheckError) Unwrap() []error {
	errs := make([]error, len(e.Violations))
	for i, v := range e.Violations {
		errs[i] = v
	}
	return errs
}

// Healthcheck verifies that every edge has its reciprocal: for each node and
// edge colour, the neighbour reached through an outgoing or incoming edge
// must exist and must carry the matching edge back. Loading never checks
// this; files with asymmetric edges load and serve their edges as stored.
//
// Healthcheck scans the table in parallel and returns an *EdgeCheckError
// when any edge fails.
func (g *Graph) Healthcheck(ctx context.Context) error {
	st, err := g.store()
	if err != nil {
		return err
	}
	start := time.Now()

	var (
		checked atomic.Uint64
		total   atomic.Uint64
		mu      sync.Mutex
		report  []EdgeViolation
	)
	found := func(v EdgeViolation) {
		if total.Add(1) > maxReportedViolations {
			return
		}
		mu.Lock()
		report = append(report, v)
		mu.Unlock()
	}

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	capacity := st.Capacity()
	for lo := uint64(0); lo < capacity; lo += healthcheckChunk {
		hi := min(lo+healthcheckChunk, capacity)
		eg.Go(func() error {
			for slot := lo; slot < hi; slot++ {
				if (slot-lo)%4096 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				n, ok := st.Node(slot)
				if !ok {
					continue
				}
				checkNode(st, n, found)
				checked.Add(1)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	duration := time.Since(start)
	var result error
	if t := total.Load(); t > 0 {
		result = &EdgeCheckError{Total: t, Violations: report}
	}
	g.logger.LogHealthcheck(ctx, checked.Load(), duration, result)
	g.metrics.RecordHealthcheck(duration, int(total.Load()))
	return result
}

func checkNode(st *store.Store, n store.Node, found func(EdgeViolation)) {
	c := st.Codec()
	key := n.Key()
	for col := 0; col < st.NumEdgeCols(); col++ {
		es := n.Edges(col)
		for _, b := range es.OutgoingBases() {
			canon, o := c.Orient(c.ShiftAppend(key, b))
			nb, ok := st.Lookup(canon)
			if !ok || !nb.Edges(col).Orient(o).HasIncoming(c.First(key)) {
				found(EdgeViolation{Kmer: c.Decode(key), EdgeCol: col, Base: b, Direction: Next, Missing: !ok})
			}
		}
		for _, b := range es.IncomingBases() {
			canon, o := c.Orient(c.ShiftPrepend(key, b))
			nb, ok := st.Lookup(canon)
			if !ok || !nb.Edges(col).Orient(o).HasOutgoing(c.Last(key)) {
				found(EdgeViolation{Kmer: c.Decode(key), EdgeCol: col, Base: b, Direction: Prev, Missing: !ok})
			}
		}
	}
}
