// Package predict turns a completed lease assignment into the rows an
// LLT emitter writes and the predicted hit/miss counts that measure
// how good the assignment is.
package predict

import (
	"math"
	"sort"

	"github.com/clam-project/clam-lease/internal/allocator"
	"github.com/clam-project/clam-lease/internal/leasekey"
)

// Row is one reference's final lease assignment in display form: a
// short lease always present, and — for references that needed a dual
// lease — a long lease drawn with probability 1-Percentage.
type Row struct {
	PhaseRef   uint64
	Phase      uint64
	Address    uint64
	ShortLease uint64
	LongLease  uint64
	Percentage float64 // probability of drawing ShortLease
}

// Rows builds the display rows for a completed assignment, sorted by
// (phase, address) — the order the lease text file and LLT emitter
// both write in. A lease of 0 is promoted to 1: every reference must
// hold the cache for at least one tick to be a reference at all.
func Rows(results *allocator.LeaseResults) []Row {
	rows := make([]Row, 0, len(results.Leases))
	for phaseRef, lease := range results.Leases {
		if lease == 0 {
			lease = 1
		}
		row := Row{
			PhaseRef:   phaseRef,
			Phase:      leasekey.UnpackPhase(phaseRef),
			Address:    leasekey.UnpackAddress(phaseRef),
			ShortLease: lease,
			Percentage: 1.0,
		}
		if dual, ok := results.DualLeases[phaseRef]; ok {
			row.LongLease = dual.Long
			row.Percentage = 1.0 - dual.Alpha
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Phase != rows[j].Phase {
			return rows[i].Phase < rows[j].Phase
		}
		return rows[i].Address < rows[j].Address
	})
	return rows
}

// Misses predicts the trace's miss count under a completed
// assignment: every row contributes the lease_hits recorded for its
// short lease weighted by Percentage, plus (for dual leases) the long
// lease's hits weighted by the complement. Reference-level RIs never
// observed during sampling contribute zero hits, matching the
// sampling assumption that the trace captured the whole distribution.
func Misses(results *allocator.LeaseResults, sampleRate, firstMisses uint64) (length, misses uint64) {
	var numHits uint64
	for _, row := range Rows(results) {
		hitsFor := results.LeaseHits[row.PhaseRef]
		if h, ok := hitsFor[row.ShortLease]; ok {
			numHits += uint64(math.Round(float64(h) * row.Percentage))
		}
		if h, ok := hitsFor[row.LongLease]; ok {
			numHits += uint64(math.Round(float64(h) * (1.0 - row.Percentage)))
		}
	}
	length = results.TraceLength
	misses = length - numHits*sampleRate + firstMisses
	return length, misses
}

// MissRate is Misses expressed as a fraction of trace length.
func MissRate(results *allocator.LeaseResults, sampleRate, firstMisses uint64) float64 {
	length, misses := Misses(results, sampleRate, firstMisses)
	if length == 0 {
		return 0
	}
	return float64(misses) / float64(length)
}
