package allocator

import (
	"github.com/clam-project/clam-lease/internal/leasekey"
	"github.com/clam-project/clam-lease/internal/rihist"
)

// costFunc computes the additional occupancy cost, in sample-rate
// scaled time units, of moving one reference from oldLease to
// newLease within one phase, for one cache set.
type costFunc func(sampleRate, phase, setPhaseRef, oldLease, newLease uint64, hists *rihist.RIHists) uint64

// shelCost charges a reference's reuse interval against its own phase
// only, clamped at the lease value (the classic "lease caps residency"
// model): cost(L) = Σ count(ri)*min(ri, L).
func shelCost(sampleRate, phase, setPhaseRef, oldLease, newLease uint64, hists *rihist.RIHists) uint64 {
	if !hists.Has(setPhaseRef) {
		return 0
	}
	if phase != leasekey.UnpackPhase(setPhaseRef) {
		return 0
	}
	hist := hists.RefHist(setPhaseRef)

	var oldCost, newCost uint64
	for ri, entry := range hist {
		if ri <= oldLease {
			oldCost += entry.Count * ri
		} else {
			oldCost += entry.Count * oldLease
		}
		if ri <= newLease {
			newCost += entry.Count * ri
		} else {
			newCost += entry.Count * newLease
		}
	}
	return (newCost - oldCost) * sampleRate
}

// cshelCost reads the pre-split head/tail cost the histogram builder
// already attributed to this phase, so it can credit a reuse that
// crosses a phase boundary to every phase it spans.
func cshelCost(sampleRate, phase, setPhaseRef, oldLease, newLease uint64, hists *rihist.RIHists) uint64 {
	if !hists.Has(setPhaseRef) {
		return 0
	}
	hist := hists.RefHist(setPhaseRef)

	var oldCost, newCost uint64
	for ri, entry := range hist {
		c := entry.Costs[phase]
		if ri <= oldLease {
			oldCost += c.Head
		}
		if ri == oldLease {
			oldCost += c.Tail
		}
		if ri <= newLease {
			newCost += c.Head
		}
		if ri == newLease {
			newCost += c.Tail
		}
	}
	return (newCost - oldCost) * sampleRate
}
