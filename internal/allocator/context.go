// Package allocator runs the greedy lease-assignment loop shared by
// PRL, SHEL and C-SHEL: pop the highest profit-per-unit-cost candidate
// off a max-heap, commit it if it fits the remaining per-phase budget,
// otherwise fall back to a dual (short/long) lease, until the heap
// runs dry or every phase has taken its one allowed dual lease.
package allocator

import "github.com/clam-project/clam-lease/internal/rihist"

// Context carries everything the allocators need that isn't specific
// to one algorithm: the RI histograms, the trace's sampling rate and
// per-phase sample counts, the cache geometry, and the discretize
// width used to derive the meaningful-dual-lease threshold.
type Context struct {
	RIHists         *rihist.RIHists
	SampleRate      uint64
	SamplesPerPhase map[uint64]uint64
	NumSets         uint64
	CacheSize       uint64
	DiscretizeWidth uint64
}

// DualLease is a short/long lease pair: Alpha is the probability of
// drawing the long lease (Long); the complement draws the reference's
// plain short lease.
type DualLease struct {
	Alpha float64
	Long  uint64
}

// LeaseResults is a completed lease assignment, keyed throughout by
// phase_ref (set stripped): the short lease per reference, the dual
// lease for references that needed one, the predicted hit count per
// (reference, lease) pair, and the trace's total sampled length.
type LeaseResults struct {
	Leases      map[uint64]uint64
	DualLeases  map[uint64]DualLease
	LeaseHits   map[uint64]map[uint64]uint64
	TraceLength uint64
}

func minAlpha(discretizeWidth uint64) float64 {
	pow := float64(uint64(1) << discretizeWidth)
	return 1.0 - ((pow - 1.5) / (pow - 1.0))
}
