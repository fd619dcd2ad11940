package kmerdb

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/kmerdb/edges"
	"github.com/hupe1980/kmerdb/kmer"
	"github.com/hupe1980/kmerdb/testutil"
)

func TestHealthcheck_ConsistentGraph(t *testing.T) {
	rng := testutil.NewRNG(30)
	f, err := testutil.FromSequences(15, [][]string{
		{rng.Sequence(2000), rng.Sequence(500)},
		{rng.Sequence(3000)},
		{rng.Sequence(100)},
	})
	require.NoError(t, err)

	metrics := &BasicMetricsCollector{}
	g := loadFixture(t, f, WithMetricsCollector(metrics))
	require.NoError(t, g.Healthcheck(context.Background()))
	assert.Equal(t, int64(1), metrics.GetStats().HealthcheckCount)
	assert.Zero(t, metrics.GetStats().EdgeViolations)
}

func TestHealthcheck_MissingNeighbor(t *testing.T) {
	f, err := testutil.NewFixture(5, 1, 1)
	require.NoError(t, err)
	require.NoError(t, f.Add("AAACG", []int{0}, edges.New(0, 1<<kmer.T)))

	err = loadFixture(t, f).Healthcheck(context.Background())
	var ece *EdgeCheckError
	require.ErrorAs(t, err, &ece)
	assert.Equal(t, uint64(1), ece.Total)
	require.Len(t, ece.Violations, 1)

	v := ece.Violations[0]
	assert.Equal(t, "AAACG", v.Kmer)
	assert.Equal(t, kmer.T, v.Base)
	assert.Equal(t, Next, v.Direction)
	assert.True(t, v.Missing)
	assert.Contains(t, err.Error(), "1 asymmetric edges")

	var found EdgeViolation
	require.ErrorAs(t, err, &found)
	assert.Equal(t, v, found)
}

func TestHealthcheck_OneSidedEdge(t *testing.T) {
	f, err := testutil.NewFixture(5, 1, 1)
	require.NoError(t, err)
	// AAACG -> AACGT exists, but AACGT does not list A as a predecessor.
	require.NoError(t, f.Add("AAACG", []int{0}, edges.New(0, 1<<kmer.T)))
	require.NoError(t, f.Add("AACGT", []int{0}))

	err = loadFixture(t, f).Healthcheck(context.Background())
	var ece *EdgeCheckError
	require.ErrorAs(t, err, &ece)
	require.Len(t, ece.Violations, 1)
	assert.False(t, ece.Violations[0].Missing)

	// Adding the reciprocal edge from the other strand fixes it: AACGT
	// preceded by A is ACGTT followed by T.
	require.NoError(t, f.Add("ACGTT", nil, edges.New(0, 1<<kmer.T)))
	require.NoError(t, loadFixture(t, f).Healthcheck(context.Background()))
}

func TestHealthcheck_RandomEdgesReported(t *testing.T) {
	f := randomFixture(t, 31, 9, 2, 2, 500)
	var logs bytes.Buffer
	logger := NewLogger(slog.NewJSONHandler(&logs, nil))

	err := loadFixture(t, f, WithLogger(logger)).Healthcheck(context.Background())
	var ece *EdgeCheckError
	require.ErrorAs(t, err, &ece)
	assert.Greater(t, ece.Total, uint64(maxReportedViolations))
	assert.Len(t, ece.Violations, maxReportedViolations)
	assert.Len(t, ece.Unwrap(), maxReportedViolations)
	assert.Contains(t, logs.String(), "graph healthcheck failed")
}

func TestHealthcheck_Canceled(t *testing.T) {
	g := loadFixture(t, randomFixture(t, 32, 9, 1, 1, 100))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, g.Healthcheck(ctx), context.Canceled)
}
