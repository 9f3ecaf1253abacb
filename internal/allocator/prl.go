package allocator

import (
	"container/heap"
	"sort"

	"github.com/clam-project/clam-lease/internal/leasekey"
	"github.com/clam-project/clam-lease/internal/ppuc"
	"github.com/clam-project/clam-lease/internal/rihist"
)

// avgLease is the average residency a reference would occupy within
// one temporal bin under a given lease: reuses at or under the lease
// count in full, anything longer is capped at the lease.
func avgLease(dist *rihist.BinnedRI, addr, bin, lease uint64) uint64 {
	var total uint64
	for ri, freq := range dist.RIDist(bin, addr) {
		if ri <= lease && ri > 0 {
			total += ri * freq
		} else {
			total += lease * freq
		}
	}
	return total
}

// AllocatePRL runs the binned-saturation allocator: instead of a hard
// per-phase budget it tracks, per temporal bin and cache set, how much
// of bin_width*cache_size/num_sets is already spoken for, and accepts
// a candidate only when no bin/set would cross its target.
func AllocatePRL(ctx Context, binWidth uint64, binned *rihist.BinnedRI, freqs *rihist.BinFreq) (*LeaseResults, error) {
	numSets := ctx.NumSets
	if numSets == 0 {
		numSets = 1
	}
	minA := minAlpha(ctx.DiscretizeWidth)
	binTarget := float64(binWidth * ctx.CacheSize / numSets)

	bins := freqs.Bins()
	sort.Slice(bins, func(i, j int) bool { return bins[i] < bins[j] })
	if len(bins) == 0 {
		return &LeaseResults{map[uint64]uint64{}, map[uint64]DualLease{}, map[uint64]map[uint64]uint64{}, 0}, nil
	}
	addrs := freqs.Addresses(bins[0])

	binSaturation := make(map[uint64]map[uint64]float64)
	for _, bin := range bins {
		binSaturation[bin] = make(map[uint64]float64)
		for set := uint64(0); set < numSets; set++ {
			binSaturation[bin][set] = 0
		}
	}

	leases := make(map[uint64]uint64)
	dualLeases := make(map[uint64]DualLease)
	leaseHits := make(map[uint64]map[uint64]uint64)
	var traceLength uint64

	for _, addr := range addrs {
		phaseRef := leasekey.UnpackPhaseRef(addr)
		leases[phaseRef] = 1
		for _, bin := range bins {
			if dist := binned.RIDist(bin, addr); dist != nil {
				oldAvg := avgLease(binned, addr, bin, 0)
				newAvg := avgLease(binned, addr, bin, 1)
				impact := (float64(newAvg) - float64(oldAvg)) * float64(ctx.SampleRate)
				for set := uint64(0); set < numSets; set++ {
					binSaturation[bin][set] += impact
				}
			}
		}
	}

	for _, num := range ctx.SamplesPerPhase {
		traceLength += num * ctx.SampleRate
	}

	var h candidateHeap
	for _, ref := range ctx.RIHists.References() {
		pushCandidates(&h, ppuc.Candidates(ref, 0, ctx.RIHists.RefHist(ref)))
	}
	drained := make(candidateHeap, len(h))
	copy(drained, h)
	for drained.Len() > 0 {
		c := heap.Pop(&drained).(ppuc.Candidate)
		phaseRef := leasekey.UnpackPhaseRef(c.RefID)
		if leaseHits[phaseRef] == nil {
			leaseHits[phaseRef] = make(map[uint64]uint64)
		}
		if _, ok := leaseHits[phaseRef][c.Lease]; !ok {
			leaseHits[phaseRef][c.Lease] = c.NewHits
		}
	}

	h = nil
	for _, ref := range ctx.RIHists.References() {
		pushCandidates(&h, ppuc.Candidates(ref, 1, ctx.RIHists.RefHist(ref)))
	}

	for {
		if h.Len() == 0 {
			return &LeaseResults{leases, dualLeases, leaseHits, traceLength}, nil
		}
		cand := heap.Pop(&h).(ppuc.Candidate)
		phaseRef := leasekey.UnpackPhaseRef(cand.RefID)

		if cand.OldLease != leases[phaseRef] {
			continue
		}
		if _, ok := dualLeases[phaseRef]; ok {
			continue
		}

		negImpact := false
		numUnsuitable := 0
		impactDict := make(map[uint64]map[uint64]float64)
		for _, bin := range bins {
			impactDict[bin] = make(map[uint64]float64)
			for set := uint64(0); set < numSets; set++ {
				setAddr := phaseRef | (set << 32)
				var impact float64
				if dist := binned.RIDist(bin, setAddr); dist != nil {
					oldAvg := avgLease(binned, setAddr, bin, leases[phaseRef])
					newAvg := avgLease(binned, setAddr, bin, cand.Lease)
					impact = (float64(newAvg) - float64(oldAvg)) * float64(ctx.SampleRate)
					if impact < 0 {
						negImpact = true
					}
				}
				impactDict[bin][set] = impact
				if binSaturation[bin][set]+impact > binTarget {
					numUnsuitable++
				}
			}
		}

		if negImpact {
			continue
		}

		if numUnsuitable < 1 {
			leases[phaseRef] = cand.Lease
			pushCandidates(&h, ppuc.Candidates(cand.RefID, cand.Lease, ctx.RIHists.RefHist(cand.RefID)))
			for _, bin := range bins {
				for set := uint64(0); set < numSets; set++ {
					setAddr := phaseRef | (set << 32)
					if binned.RIDist(bin, setAddr) != nil {
						binSaturation[bin][set] += impactDict[bin][set]
					}
				}
			}
			continue
		}

		// over budget at full strength: find the largest alpha that
		// keeps every bin/set at or under its target. alpha only ever
		// shrinks across this scan, so its final value is the global
		// minimum regardless of bin iteration order.
		numFullBins := 0
		alpha := 1.0
		for _, bin := range bins {
			for set := uint64(0); set < numSets; set++ {
				sat := binSaturation[bin][set]
				if sat >= binTarget {
					numFullBins++
				}
				impact := impactDict[bin][set]
				if sat+impact >= binTarget && impact != 0 {
					if setAlpha := (binTarget - sat) / impact; setAlpha < alpha {
						alpha = setAlpha
					}
				}
			}
		}

		var acceptableRatio float64
		if numFullBins == 0 {
			acceptableRatio = alpha
		}

		if acceptableRatio > minA {
			dualLeases[phaseRef] = DualLease{Alpha: acceptableRatio, Long: cand.Lease}
			for _, bin := range bins {
				for set := uint64(0); set < numSets; set++ {
					setAddr := phaseRef | (set << 32)
					if binned.RIDist(bin, setAddr) != nil {
						binSaturation[bin][set] += impactDict[bin][set] * acceptableRatio
					}
				}
			}
		}
	}
}
