package rihist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clam-project/clam-lease/internal/phasetrace"
)

func TestBuildSHEL_CountsPerRI(t *testing.T) {
	// two references, ref A (ri=2) sampled 4x, ref B (ri=3) sampled 4x
	refA := uint64(0x000001)
	refB := uint64(0x000002)
	var samples []phasetrace.Sample
	for i := 0; i < 4; i++ {
		samples = append(samples, phasetrace.Sample{Tag: refA, PhaseRef: refA, BackwardRI: 2, Time: uint64(i*2 + 2)})
	}
	for i := 0; i < 4; i++ {
		samples = append(samples, phasetrace.Sample{Tag: refB, PhaseRef: refB, BackwardRI: 3, Time: uint64(i*3 + 3)})
	}

	hists, samplesPerPhase := BuildSHEL(samples, 0)

	assert.Equal(t, uint64(4), hists.RefRICount(refA, 2))
	assert.Equal(t, uint64(4), hists.RefRICount(refB, 3))
	assert.Equal(t, uint64(8), samplesPerPhase[0])
}

func TestBuildSHEL_NegativeRICanonicalizes(t *testing.T) {
	samples := []phasetrace.Sample{{Tag: 1, PhaseRef: 1, BackwardRI: -1, Time: 10}}
	hists, _ := BuildSHEL(samples, 0)
	assert.Equal(t, uint64(1), hists.RefRICount(1, phasetrace.CanonicalInfiniteRI))
	assert.Equal(t, uint64(0), hists.RefRICount(1, 0xFFFFFFFF)) // never stored uncanonicalized
}

func TestBuildCSHEL_SinglePhaseRunToEndChargesFullHeadToOwnPhase(t *testing.T) {
	ref := uint64(0x000001)
	samples := []phasetrace.Sample{
		{Tag: ref, PhaseRef: ref, BackwardRI: 4, Time: 4},
		{Tag: ref, PhaseRef: ref, BackwardRI: 4, Time: 8},
	}
	tl, _, _ := phasetrace.Build(samples)

	hists, samplesPerPhase := BuildCSHEL(samples, tl, 0)

	assert.Equal(t, uint64(2), samplesPerPhase[0])
	assert.Equal(t, uint64(2), hists.RefRICount(ref, 4))
	cost := hists.RefRIPhaseCost(ref, 4, 0)
	// each of the two samples charges its full ri=4 to phase 0
	assert.Equal(t, uint64(8), cost.Head, "full RI charged to own phase when no later transition exists")
	assert.Equal(t, uint64(0), cost.Tail)
}

func TestBuildCSHEL_HeadCostSpansPhaseBoundary(t *testing.T) {
	// reference in phase 0 reused with ri=10 starting at use_time 0;
	// phase 1 begins at time 6, so 6 ticks are charged to phase 0 and
	// 4 to phase 1.
	phase0Ref := uint64(0x00000001) // phase 0
	phase1Ref := uint64(0x01000002) // phase 1, used only to create the transition
	samples := []phasetrace.Sample{
		{Tag: 1, PhaseRef: phase0Ref, BackwardRI: 10, Time: 10}, // use_time 0, this reuse spans [0,10)
		{Tag: 2, PhaseRef: phase1Ref, BackwardRI: 1, Time: 7},   // use_time 6, phase flips to 1 at time 6
	}
	tl, _, _ := phasetrace.Build(samples)

	hists, _ := BuildCSHEL(samples, tl, 0)

	cost := hists.RefRIPhaseCost(phase0Ref, 10, 0)
	assert.Equal(t, uint64(6), cost.Head)
	costNext := hists.RefRIPhaseCost(phase0Ref, 10, 1)
	assert.Equal(t, uint64(4), costNext.Head)
}

func TestBuildCSHEL_TailCostCreditsShorterRIs(t *testing.T) {
	ref := uint64(0x000001)
	samples := []phasetrace.Sample{
		{Tag: ref, PhaseRef: ref, BackwardRI: 2, Time: 2},
		{Tag: ref, PhaseRef: ref, BackwardRI: 2, Time: 4},
		{Tag: ref, PhaseRef: ref, BackwardRI: 5, Time: 9},
	}
	tl, _, _ := phasetrace.Build(samples)

	hists, _ := BuildCSHEL(samples, tl, 0)

	// the ri=2 entries existed before the ri=5 sample was processed in
	// the tail pass, so they should have accrued tail cost capped at 2
	costRI2 := hists.RefRIPhaseCost(ref, 2, 0)
	assert.Greater(t, costRI2.Tail, uint64(0))
}

func TestBuildBinned_EveryAddressPresentInEveryBin(t *testing.T) {
	samples := []phasetrace.Sample{
		{Tag: 0x1, PhaseRef: 0x1, BackwardRI: 1, Time: 1},
		{Tag: 0x2, PhaseRef: 0x2, BackwardRI: 1, Time: 11},
	}
	binned, freqs, width := BuildBinned(samples, 2, 0)
	require.NotZero(t, width)

	bins := freqs.Bins()
	require.Len(t, bins, 2)
	for _, bin := range bins {
		addrs := freqs.Addresses(bin)
		assert.Len(t, addrs, 2, "every address should appear in every bin")
	}
	_ = binned
}
