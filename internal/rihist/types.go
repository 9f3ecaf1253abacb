// Package rihist builds reuse-interval histograms from a sample
// stream: the per-reference, per-phase head/tail cost decomposition
// SHEL and C-SHEL need, and the binned RI distributions PRL needs.
package rihist

// CostRecord decomposes a reference's residency cost for one phase at
// one reuse-interval value into the portion paid within the reuse
// (head) and the portion wasted past it (tail).
type CostRecord struct {
	Head uint64
	Tail uint64
}

// RIEntry is one row of a reference's RI histogram: how many times
// that interval was observed, and the per-phase cost it contributes.
type RIEntry struct {
	Count uint64
	Costs map[uint64]CostRecord // phase -> cost
}

// RefHist is one reference's full RI histogram.
type RefHist map[uint64]*RIEntry // ri -> entry

// RIHists maps set_phase_ref to that reference's RI histogram. Built
// once and read-only thereafter.
type RIHists struct {
	byRef map[uint64]RefHist
}

func newRIHists() *RIHists {
	return &RIHists{byRef: make(map[uint64]RefHist)}
}

func (h *RIHists) entry(setPhaseRef, ri uint64) *RIEntry {
	ref, ok := h.byRef[setPhaseRef]
	if !ok {
		ref = make(RefHist)
		h.byRef[setPhaseRef] = ref
	}
	e, ok := ref[ri]
	if !ok {
		e = &RIEntry{Costs: make(map[uint64]CostRecord)}
		ref[ri] = e
	}
	return e
}

// Has reports whether any sample was ever recorded for this reference.
func (h *RIHists) Has(setPhaseRef uint64) bool {
	_, ok := h.byRef[setPhaseRef]
	return ok
}

// RefHist returns the RI histogram for a reference, or nil if none
// was recorded.
func (h *RIHists) RefHist(setPhaseRef uint64) RefHist {
	return h.byRef[setPhaseRef]
}

// References returns every set_phase_ref with a recorded histogram.
func (h *RIHists) References() []uint64 {
	out := make([]uint64, 0, len(h.byRef))
	for ref := range h.byRef {
		out = append(out, ref)
	}
	return out
}

// RefRICount returns the sample count recorded at a given RI for a
// reference, or 0 if that RI was never observed.
func (h *RIHists) RefRICount(setPhaseRef, ri uint64) uint64 {
	ref, ok := h.byRef[setPhaseRef]
	if !ok {
		return 0
	}
	e, ok := ref[ri]
	if !ok {
		return 0
	}
	return e.Count
}

// RefRIPhaseCost returns the head/tail cost a reference accrued for a
// given phase at a given RI.
func (h *RIHists) RefRIPhaseCost(setPhaseRef, ri, phase uint64) CostRecord {
	ref, ok := h.byRef[setPhaseRef]
	if !ok {
		return CostRecord{}
	}
	e, ok := ref[ri]
	if !ok {
		return CostRecord{}
	}
	return e.Costs[phase]
}

// TotalSampleCount sums sample counts across every RI of a reference
// — the importance metric the pruner ranks on.
func (h *RIHists) TotalSampleCount(setPhaseRef uint64) uint64 {
	ref, ok := h.byRef[setPhaseRef]
	if !ok {
		return 0
	}
	var total uint64
	for _, e := range ref {
		total += e.Count
	}
	return total
}

// BinnedRI maps bin -> address -> ri -> count, used only by PRL.
type BinnedRI struct {
	data map[uint64]map[uint64]map[uint64]uint64
}

// Bins returns the bin boundaries present in this distribution.
func (b *BinnedRI) Bins() []uint64 {
	out := make([]uint64, 0, len(b.data))
	for bin := range b.data {
		out = append(out, bin)
	}
	return out
}

// RIDist returns the RI -> count histogram for one address in one
// bin, or nil if the address never appeared in that bin.
func (b *BinnedRI) RIDist(bin, address uint64) map[uint64]uint64 {
	byAddr, ok := b.data[bin]
	if !ok {
		return nil
	}
	return byAddr[address]
}

// BinFreq maps bin -> address -> sample count; every address is
// present in every bin, with frequency 0 if absent there.
type BinFreq struct {
	data map[uint64]map[uint64]uint64
}

// Bins returns the bin boundaries present in this frequency table.
func (f *BinFreq) Bins() []uint64 {
	out := make([]uint64, 0, len(f.data))
	for bin := range f.data {
		out = append(out, bin)
	}
	return out
}

// Addresses returns every address tracked in a given bin (all bins
// track the same address set).
func (f *BinFreq) Addresses(bin uint64) []uint64 {
	byAddr, ok := f.data[bin]
	if !ok {
		return nil
	}
	out := make([]uint64, 0, len(byAddr))
	for addr := range byAddr {
		out = append(out, addr)
	}
	return out
}

// Freq returns the sample count for an address in a bin.
func (f *BinFreq) Freq(bin, address uint64) uint64 {
	return f.data[bin][address]
}
