package ppuc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clam-project/clam-lease/internal/rihist"
)

func hist(entries map[uint64]uint64) rihist.RefHist {
	h := make(rihist.RefHist)
	for ri, count := range entries {
		h[ri] = &rihist.RIEntry{Count: count, Costs: map[uint64]rihist.CostRecord{}}
	}
	return h
}

func TestCandidates_RanksDenserReferenceHigher(t *testing.T) {
	// two references, single phase: A (ri=2, count=4), B (ri=3, count=4).
	// A's 4 hits cost 8 against B's 12 for the same 4 hits, so A should
	// rank first.
	a := Candidates(0x01, 0, hist(map[uint64]uint64{2: 4}))
	b := Candidates(0x02, 0, hist(map[uint64]uint64{3: 4}))

	require_ := func(cands []Candidate) Candidate {
		if len(cands) != 1 {
			t.Fatalf("expected exactly 1 candidate, got %d", len(cands))
		}
		return cands[0]
	}
	candA := require_(a)
	candB := require_(b)

	assert.Greater(t, candA.PPUC, candB.PPUC)
	assert.Equal(t, uint64(2), candA.Lease)
	assert.Equal(t, uint64(3), candB.Lease)
}

func TestCandidates_OnlyConsidersLeasesAboveBase(t *testing.T) {
	h := hist(map[uint64]uint64{1: 2, 3: 5, 7: 1})
	cands := Candidates(0x01, 3, h)
	for _, c := range cands {
		assert.Greater(t, c.Lease, uint64(3))
	}
	assert.Len(t, cands, 1) // only ri=7 exceeds base lease 3
}

func TestCandidates_SeedsBaseLeaseToZeroHitsAndCost(t *testing.T) {
	// base lease of 5 never appears as a sampled RI; the seeded
	// (0-hit, 0-cost) entry should make its upgrade candidates
	// compute deltas relative to zero rather than panicking.
	h := hist(map[uint64]uint64{2: 3, 9: 4})
	cands := Candidates(0x01, 5, h)
	require.NotEmpty(t, cands)
	for _, c := range cands {
		assert.Equal(t, uint64(5), c.OldLease)
		assert.Greater(t, c.NewHits, uint64(0))
	}
}
