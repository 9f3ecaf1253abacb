package allocator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clam-project/clam-lease/internal/phasetrace"
	"github.com/clam-project/clam-lease/internal/rihist"
)

// Two references, single phase: A (ri=2, count 4) and B (ri=3, count
// 4). A's higher hit density wins the PPUC race and is upgraded to
// lease 2 first; the phase budget is sized so B can't follow at full
// strength and instead receives a dual lease.
func samplesAB() []phasetrace.Sample {
	var samples []phasetrace.Sample
	for i := 0; i < 4; i++ {
		samples = append(samples, phasetrace.Sample{Tag: 1, PhaseRef: 1, BackwardRI: 2, Time: uint64(i*2 + 2)})
	}
	for i := 0; i < 4; i++ {
		samples = append(samples, phasetrace.Sample{Tag: 2, PhaseRef: 2, BackwardRI: 3, Time: uint64(i*3 + 3)})
	}
	return samples
}

func TestAllocateSHEL_HigherPPUCWinsBudget(t *testing.T) {
	samples := samplesAB()
	hists, samplesPerPhase := rihist.BuildSHEL(samples, 0)

	ctx := Context{
		RIHists:         hists,
		SampleRate:      1,
		SamplesPerPhase: samplesPerPhase,
		NumSets:         1,
		CacheSize:       2,
		DiscretizeWidth: 3,
	}

	results, err := Allocate(false, ctx)
	require.NoError(t, err)

	assert.Equal(t, uint64(2), results.Leases[1], "A wins the PPUC race and upgrades to its full RI")
	assert.Equal(t, uint64(1), results.Leases[2], "B keeps its short lease once the phase is near budget")
	require.Contains(t, results.DualLeases, uint64(2))
	assert.InDelta(t, 0.5, results.DualLeases[2].Alpha, 1e-9)
	assert.Equal(t, uint64(3), results.DualLeases[2].Long)
}

func TestAllocateSHEL_StaleCandidateSkipped(t *testing.T) {
	// a single reference with two sampled RIs: once the first upgrade
	// commits, the PPUC candidate generated against the old base lease
	// must not re-fire.
	samples := []phasetrace.Sample{
		{Tag: 1, PhaseRef: 1, BackwardRI: 2, Time: 2},
		{Tag: 1, PhaseRef: 1, BackwardRI: 2, Time: 4},
		{Tag: 1, PhaseRef: 1, BackwardRI: 5, Time: 9},
	}
	hists, samplesPerPhase := rihist.BuildSHEL(samples, 0)

	ctx := Context{
		RIHists:         hists,
		SampleRate:      1,
		SamplesPerPhase: samplesPerPhase,
		NumSets:         1,
		CacheSize:       100,
		DiscretizeWidth: 3,
	}

	results, err := Allocate(false, ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), results.Leases[1], "ample budget lets the reference reach its longest RI")
}

func TestAllocatePRL_AssignsLeaseToEveryReference(t *testing.T) {
	samples := samplesAB()
	hists, samplesPerPhase := rihist.BuildSHEL(samples, 0)
	binned, freqs, binWidth := rihist.BuildBinned(samples, 2, 0)

	ctx := Context{
		RIHists:         hists,
		SampleRate:      1,
		SamplesPerPhase: samplesPerPhase,
		NumSets:         1,
		CacheSize:       2,
		DiscretizeWidth: 3,
	}

	results, err := AllocatePRL(ctx, binWidth, binned, freqs)
	require.NoError(t, err)
	assert.Contains(t, results.Leases, uint64(1))
	assert.Contains(t, results.Leases, uint64(2))
}
