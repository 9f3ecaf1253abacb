package prune

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/clam-project/clam-lease/internal/allocator"
	"github.com/clam-project/clam-lease/internal/phasetrace"
	"github.com/clam-project/clam-lease/internal/rihist"
)

func TestToFit_KeepsTopKPerPhaseBySampleCount(t *testing.T) {
	// phase 0 has three references with 1, 2 and 5 samples; keeping
	// the top 2 should drop the 1-sample reference only.
	var samples []phasetrace.Sample
	samples = append(samples, phasetrace.Sample{Tag: 1, PhaseRef: 1, BackwardRI: 1, Time: 1})
	for i := 0; i < 2; i++ {
		samples = append(samples, phasetrace.Sample{Tag: 2, PhaseRef: 2, BackwardRI: 1, Time: uint64(2 + i)})
	}
	for i := 0; i < 5; i++ {
		samples = append(samples, phasetrace.Sample{Tag: 3, PhaseRef: 3, BackwardRI: 1, Time: uint64(10 + i)})
	}
	hists, _ := rihist.BuildSHEL(samples, 0)

	results := &allocator.LeaseResults{
		Leases:     map[uint64]uint64{1: 2, 2: 2, 3: 2},
		DualLeases: map[uint64]allocator.DualLease{2: {Alpha: 0.5, Long: 4}},
	}

	ToFit(results, hists, 2)

	assert.NotContains(t, results.Leases, uint64(1), "least-sampled reference is dropped")
	assert.Contains(t, results.Leases, uint64(2))
	assert.Contains(t, results.Leases, uint64(3))
	assert.Contains(t, results.DualLeases, uint64(2), "surviving reference keeps its dual lease")
}

func TestToFit_Idempotent(t *testing.T) {
	var samples []phasetrace.Sample
	samples = append(samples, phasetrace.Sample{Tag: 1, PhaseRef: 1, BackwardRI: 1, Time: 1})
	hists, _ := rihist.BuildSHEL(samples, 0)

	results := &allocator.LeaseResults{Leases: map[uint64]uint64{1: 2}, DualLeases: map[uint64]allocator.DualLease{}}
	ToFit(results, hists, 1)
	first := len(results.Leases)
	ToFit(results, hists, 1)
	assert.Equal(t, first, len(results.Leases))
}
