package allocator

import (
	"container/heap"
	"math"
	"sort"

	"github.com/clam-project/clam-lease/internal/leasekey"
	"github.com/clam-project/clam-lease/internal/ppuc"
)

// lastCost remembers, per (phase, set), the cost actually charged for
// the current lease (current, possibly alpha-scaled), the cost it
// would have charged at alpha=1 (max), and which reference it belongs
// to — the bookkeeping the C-SHEL back-adjustment path needs to
// revisit a prior dual lease when a later reference needs its room.
type lastCost struct {
	current, max, refID uint64
}

// Allocate runs the shared SHEL/C-SHEL greedy loop: cshel selects
// between the two cost models (shelCost charges a reuse only against
// its own phase; cshelCost spreads it across every phase it spans).
func Allocate(cshel bool, ctx Context) (*LeaseResults, error) {
	numSets := ctx.NumSets
	if numSets == 0 {
		numSets = 1
	}
	minA := minAlpha(ctx.DiscretizeWidth)

	costFn := costFunc(shelCost)
	if cshel {
		costFn = cshelCost
	}

	costPerPhase := make(map[uint64]map[uint64]uint64)   // phase -> set -> cost
	budgetPerPhase := make(map[uint64]uint64)             // phase -> budget
	leases := make(map[uint64]uint64)                     // phase_ref -> lease
	dualLeases := make(map[uint64]DualLease)              // phase_ref -> dual lease
	leaseHits := make(map[uint64]map[uint64]uint64)       // phase_ref -> lease -> hits
	dualLeasePhases := make(map[uint64]bool)              // phase -> has taken its one dual lease
	pastLeaseValues := make(map[uint64][2]uint64)         // phase_ref -> [new, old]
	lastLeaseCost := make(map[uint64]map[uint64]lastCost) // phase -> set -> lastCost
	var traceLength uint64

	var h candidateHeap
	for _, ref := range ctx.RIHists.References() {
		pushCandidates(&h, ppuc.Candidates(ref, 0, ctx.RIHists.RefHist(ref)))
	}
	// drain a copy to seed lease_hits at a base lease of 0, summed
	// per phase_ref across every set that reference appears in.
	drained := make(candidateHeap, len(h))
	copy(drained, h)
	for drained.Len() > 0 {
		c := heap.Pop(&drained).(ppuc.Candidate)
		phaseRef := leasekey.UnpackPhaseRef(c.RefID)
		if leaseHits[phaseRef] == nil {
			leaseHits[phaseRef] = make(map[uint64]uint64)
		}
		leaseHits[phaseRef][c.Lease] += c.NewHits
	}

	h = nil
	for _, ref := range ctx.RIHists.References() {
		pushCandidates(&h, ppuc.Candidates(ref, 1, ctx.RIHists.RefHist(ref)))
	}

	for phase, num := range ctx.SamplesPerPhase {
		budgetPerPhase[phase] = num * ctx.CacheSize / numSets * ctx.SampleRate
		traceLength += num * ctx.SampleRate
	}

	seen := make(map[uint64]bool)
	for _, ref := range ctx.RIHists.References() {
		phaseRef := leasekey.UnpackPhaseRef(ref)
		if seen[phaseRef] {
			continue
		}
		seen[phaseRef] = true
		leases[phaseRef] = 1
		phase := leasekey.UnpackPhase(phaseRef)
		for set := uint64(0); set < numSets; set++ {
			setPhaseRef, err := leasekey.PackSetPhaseRef(set, phaseRef)
			if err != nil {
				return nil, err
			}
			cost := costFn(ctx.SampleRate, phase, setPhaseRef, 0, 1, ctx.RIHists)
			if costPerPhase[phase] == nil {
				costPerPhase[phase] = make(map[uint64]uint64)
			}
			costPerPhase[phase][set] += cost
		}
	}

	phaseIDs := make([]uint64, 0, len(ctx.SamplesPerPhase))
	for p := range ctx.SamplesPerPhase {
		phaseIDs = append(phaseIDs, p)
	}
	sort.Slice(phaseIDs, func(i, j int) bool { return phaseIDs[i] < phaseIDs[j] })

	for {
		if h.Len() == 0 {
			return &LeaseResults{leases, dualLeases, leaseHits, traceLength}, nil
		}
		cand := heap.Pop(&h).(ppuc.Candidate)
		phaseRef := leasekey.UnpackPhaseRef(cand.RefID)
		phase := leasekey.UnpackPhase(phaseRef)

		if cand.OldLease != leases[phaseRef] {
			continue
		}

		setFull := false
		for set := uint64(0); set < numSets; set++ {
			if costPerPhase[phase][set] == budgetPerPhase[phase] {
				setFull = true
				break
			}
		}
		if setFull {
			continue
		}

		if len(dualLeasePhases) == len(costPerPhase) {
			return &LeaseResults{leases, dualLeases, leaseHits, traceLength}, nil
		}
		if dualLeasePhases[phase] {
			continue
		}

		oldLease := leases[phaseRef]
		acceptable := true
		newPhaseRefCost := make(map[uint64]map[uint64]uint64)
		for p, setsCost := range costPerPhase {
			for set := uint64(0); set < numSets; set++ {
				setPhaseRef, err := leasekey.PackSetPhaseRef(set, phaseRef)
				if err != nil {
					return nil, err
				}
				cost := costFn(ctx.SampleRate, p, setPhaseRef, oldLease, cand.Lease, ctx.RIHists)
				if newPhaseRefCost[p] == nil {
					newPhaseRefCost[p] = make(map[uint64]uint64)
				}
				newPhaseRefCost[p][set] = cost
				if cost+setsCost[set] > budgetPerPhase[p] {
					acceptable = false
				}
			}
		}

		if acceptable {
			for p, setsCost := range costPerPhase {
				for set := range setsCost {
					setsCost[set] += newPhaseRefCost[p][set]
				}
			}
			pastLeaseValues[phaseRef] = [2]uint64{cand.Lease, oldLease}
			if lastLeaseCost[phase] == nil {
				lastLeaseCost[phase] = make(map[uint64]lastCost)
			}
			for set := uint64(0); set < numSets; set++ {
				c := newPhaseRefCost[phase][set]
				lastLeaseCost[phase][set] = lastCost{c, c, phaseRef}
			}
			leases[phaseRef] = cand.Lease
			pushCandidates(&h, ppuc.Candidates(cand.RefID, cand.Lease, ctx.RIHists.RefHist(cand.RefID)))
			continue
		}

		// unacceptable: this lease would overrun the phase budget at
		// full strength, so try a dual (short/long) lease instead.
		alpha := 1.0
		currentPhaseAlpha := 1.0
		for p, setsCost := range costPerPhase {
			budget := budgetPerPhase[p]
			for set, current := range setsCost {
				cost := newPhaseRefCost[p][set]
				if cost == 0 {
					continue
				}
				remaining := float64(budget) - float64(current)
				ratio := remaining / float64(cost)
				if p == phase {
					currentPhaseAlpha = math.Min(currentPhaseAlpha, ratio)
				}
				alpha = math.Min(alpha, ratio)
			}
		}

		// a dual lease whose long-lease share rounds away to nothing
		// after discretizing isn't worth assigning.
		if currentPhaseAlpha < minA {
			continue
		}

		if alpha > minA {
			for p, setsCost := range costPerPhase {
				budget := budgetPerPhase[p]
				for set := range setsCost {
					delta := uint64(math.Round(float64(newPhaseRefCost[p][set]) * alpha))
					setsCost[set] += delta
					if setsCost[set] > budget {
						setsCost[set] = budget
					}
				}
			}
		}

		if cshel && alpha <= minA {
			adjusted, err := backAdjust(backAdjustArgs{
				phaseIDs:          phaseIDs,
				numSets:           numSets,
				phase:             phase,
				currentPhaseAlpha: currentPhaseAlpha,
				minAlpha:          minA,
				costPerPhase:      costPerPhase,
				budgetPerPhase:    budgetPerPhase,
				newPhaseRefCost:   newPhaseRefCost,
				lastLeaseCost:     lastLeaseCost,
				pastLeaseValues:   pastLeaseValues,
				dualLeasePhases:   dualLeasePhases,
				dualLeases:        dualLeases,
				leases:            leases,
			})
			if err != nil {
				return nil, err
			}
			if !adjusted {
				continue
			}
			alpha = currentPhaseAlpha
		}

		setFullNow := false
		for set := uint64(0); set < numSets; set++ {
			if costPerPhase[phase][set] == budgetPerPhase[phase] {
				setFullNow = true
				break
			}
		}

		if alpha == 1.0 && !setFullNow {
			leases[phaseRef] = cand.Lease
			pushCandidates(&h, ppuc.Candidates(cand.RefID, cand.Lease, ctx.RIHists.RefHist(cand.RefID)))
			continue
		}

		if lastLeaseCost[phase] == nil {
			lastLeaseCost[phase] = make(map[uint64]lastCost)
		}
		for set := uint64(0); set < numSets; set++ {
			cost := newPhaseRefCost[phase][set]
			lastLeaseCost[phase][set] = lastCost{uint64(math.Round(float64(cost) * alpha)), cost, phaseRef}
		}
		dualLeasePhases[phase] = true
		dualLeases[phaseRef] = DualLease{Alpha: alpha, Long: cand.Lease}
	}
}

type backAdjustArgs struct {
	phaseIDs                      []uint64
	numSets                       uint64
	phase                         uint64
	currentPhaseAlpha, minAlpha   float64
	costPerPhase                  map[uint64]map[uint64]uint64
	budgetPerPhase                map[uint64]uint64
	newPhaseRefCost               map[uint64]map[uint64]uint64
	lastLeaseCost                 map[uint64]map[uint64]lastCost
	pastLeaseValues               map[uint64][2]uint64
	dualLeasePhases               map[uint64]bool
	dualLeases                    map[uint64]DualLease
	leases                        map[uint64]uint64
}

// backAdjust is C-SHEL's escape valve when no forward alpha keeps
// every phase within budget: it shrinks a PRIOR dual lease's long-
// lease probability to make room, reusing the two lease values the
// phase's last committed reference took before it got a dual lease.
// Reports whether the adjustment was possible; on success it has
// already applied every cost/lease update in place.
func backAdjust(a backAdjustArgs) (bool, error) {
	newCosts := make(map[uint64]map[uint64]uint64)
	newAlpha := make(map[uint64]float64)
	phaseAlpha := 1.0

	for _, p := range a.phaseIDs {
		for set := uint64(0); set < a.numSets; set++ {
			cost := a.newPhaseRefCost[p][set]
			if newCosts[p] == nil {
				newCosts[p] = make(map[uint64]uint64)
			}
			if cost == 0 {
				newCosts[p][set] = a.costPerPhase[p][set]
				continue
			}

			var pastCostActual uint64
			if lc, ok := a.lastLeaseCost[p][set]; ok {
				pastCostActual = lc.current
			}
			nc := a.costPerPhase[p][set] - pastCostActual + uint64(math.Round(float64(cost)*a.currentPhaseAlpha))
			newCosts[p][set] = nc
			if nc > a.budgetPerPhase[p] {
				return false, nil
			}
			remaining := a.budgetPerPhase[p] - nc

			var pastCostMax uint64
			if pastCostActual != 0 {
				pastCostMax = a.lastLeaseCost[p][set].max
			}
			if pastCostMax == 0 {
				continue
			}
			setPhaseAlpha := math.Min(1.0, float64(remaining)/float64(pastCostMax))
			if setPhaseAlpha <= a.minAlpha {
				return false, nil
			}
			if setPhaseAlpha < phaseAlpha {
				phaseAlpha = setPhaseAlpha
			}
			newAlpha[p] = phaseAlpha
		}
	}

	for _, p := range a.phaseIDs {
		for set := uint64(0); set < a.numSets; set++ {
			na, ok := newAlpha[p]
			if !ok {
				a.costPerPhase[p][set] = newCosts[p][set]
				if a.costPerPhase[p][set] > a.budgetPerPhase[p] {
					a.costPerPhase[p][set] = a.budgetPerPhase[p]
				}
				continue
			}
			lc := a.lastLeaseCost[p][set]
			newPhaseCost := uint64(float64(lc.max) * na)

			if a.dualLeasePhases[p] {
				a.dualLeases[lc.refID] = DualLease{Alpha: na, Long: a.dualLeases[lc.refID].Long}
			} else if p != a.phase {
				a.dualLeases[lc.refID] = DualLease{Alpha: na, Long: a.pastLeaseValues[lc.refID][0]}
				a.leases[lc.refID] = a.pastLeaseValues[lc.refID][1]
				a.dualLeasePhases[p] = true
			}

			if a.lastLeaseCost[p] == nil {
				a.lastLeaseCost[p] = make(map[uint64]lastCost)
			}
			a.lastLeaseCost[p][set] = lastCost{newPhaseCost, lc.max, lc.refID}
			a.costPerPhase[p][set] = newCosts[p][set] + newPhaseCost
		}
	}
	return true, nil
}
