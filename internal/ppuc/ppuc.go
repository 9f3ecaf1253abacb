// Package ppuc computes candidate lease upgrades ranked by
// profit-per-unit-cost, the heuristic every allocator (PRL, SHEL,
// C-SHEL) selects its next commit from.
package ppuc

import (
	"sort"

	"github.com/clam-project/clam-lease/internal/rihist"
)

// Candidate is one profit-per-unit-cost-ranked lease upgrade: bump
// RefID from OldLease to Lease, producing NewHits additional hits at
// PPUC additional hits per unit of additional occupancy cost.
type Candidate struct {
	PPUC     float64
	Lease    uint64
	OldLease uint64
	RefID    uint64
	NewHits  uint64
}

// Candidates computes, for a reference's RI histogram, one Candidate
// per sampled RI greater than baseLease: the hits and cost a lease of
// exactly that RI value would achieve, relative to baseLease.
//
// hits(L) = Σ count(ri) for ri <= L
// cost(L) = Σ count(ri)*ri for ri <= L + (total_count - hits(L))*L
func Candidates(refID, baseLease uint64, hist rihist.RefHist) []Candidate {
	type riCount struct {
		ri    uint64
		count uint64
	}

	ordered := make([]riCount, 0, len(hist))
	var totalCount uint64
	for ri, entry := range hist {
		ordered = append(ordered, riCount{ri, entry.Count})
		totalCount += entry.Count
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ri < ordered[j].ri })

	hitTable := map[uint64]uint64{baseLease: 0}
	costTable := map[uint64]uint64{baseLease: 0}

	var hits, headCost uint64
	for _, rc := range ordered {
		hits += rc.count
		headCost += rc.count * rc.ri
		tailCost := (totalCount - hits) * rc.ri
		hitTable[rc.ri] = hits
		costTable[rc.ri] = headCost + tailCost
	}

	baseHits := hitTable[baseLease]
	baseCost := costTable[baseLease]

	var out []Candidate
	for _, rc := range ordered {
		if rc.ri <= baseLease {
			continue
		}
		newHits := hitTable[rc.ri] - baseHits
		costDelta := costTable[rc.ri] - baseCost
		out = append(out, Candidate{
			PPUC:     float64(newHits) / float64(costDelta),
			Lease:    rc.ri,
			OldLease: baseLease,
			RefID:    refID,
			NewHits:  newHits,
		})
	}
	return out
}
