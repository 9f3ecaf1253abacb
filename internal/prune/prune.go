// Package prune trims a lease assignment down to what a bounded Lease
// Lookup Table can hold: the top-K references per phase, ranked by
// how many samples they accounted for.
package prune

import (
	"sort"

	"github.com/clam-project/clam-lease/internal/allocator"
	"github.com/clam-project/clam-lease/internal/leasekey"
	"github.com/clam-project/clam-lease/internal/rihist"
)

// ToFit keeps, per phase, only the lltSize references with the
// highest total sample count, discarding the rest from both Leases
// and DualLeases. Idempotent: pruning an already-pruned assignment to
// the same size changes nothing.
func ToFit(results *allocator.LeaseResults, hists *rihist.RIHists, lltSize uint64) {
	byPhase := make(map[uint64][]uint64) // phase -> phase_refs
	for phaseRef := range results.Leases {
		phase := leasekey.UnpackPhase(phaseRef)
		byPhase[phase] = append(byPhase[phase], phaseRef)
	}

	prunedLeases := make(map[uint64]uint64)
	prunedDual := make(map[uint64]allocator.DualLease)

	for _, refs := range byPhase {
		sort.Slice(refs, func(i, j int) bool {
			return hists.TotalSampleCount(refs[i]) > hists.TotalSampleCount(refs[j])
		})
		if uint64(len(refs)) > lltSize {
			refs = refs[:lltSize]
		}
		for _, phaseRef := range refs {
			prunedLeases[phaseRef] = results.Leases[phaseRef]
			if dual, ok := results.DualLeases[phaseRef]; ok {
				prunedDual[phaseRef] = dual
			}
		}
	}

	results.Leases = prunedLeases
	results.DualLeases = prunedDual
}
