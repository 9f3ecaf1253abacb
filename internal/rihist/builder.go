package rihist

import "github.com/clam-project/clam-lease/internal/phasetrace"

func setPhaseRefOf(s phasetrace.Sample, setMask uint64) uint64 {
	set := s.Tag & setMask
	return (set << 32) | s.PhaseRef
}

func phaseOf(phaseRef uint64) uint64 {
	return (phaseRef & 0xFF000000) >> 24
}

// BuildSHEL makes a single pass over the sample stream, recording only
// sample counts per (set_phase_ref, ri) — the SHEL cost model never
// reads the per-phase head/tail cost, only these counts and the
// reference's own phase.
func BuildSHEL(samples []phasetrace.Sample, setMask uint64) (*RIHists, map[uint64]uint64) {
	hists := newRIHists()
	samplesPerPhase := make(map[uint64]uint64)

	for _, s := range samples {
		setPhaseRef := setPhaseRefOf(s, setMask)
		ri := s.CanonicalRI()
		entry := hists.entry(setPhaseRef, ri)
		entry.Count++

		phase := phaseOf(s.PhaseRef)
		samplesPerPhase[phase]++
	}
	return hists, samplesPerPhase
}

// BuildCSHEL makes two passes over the sample stream: a head pass that
// counts samples and credits residency within [use_time, use_time+ri)
// to the phases it spans, then a tail pass that credits every
// shorter-already-seen RI the residency it would waste past that
// point. Needs the phase timeline to find the boundary a reuse spans.
func BuildCSHEL(samples []phasetrace.Sample, timeline *phasetrace.Timeline, setMask uint64) (*RIHists, map[uint64]uint64) {
	hists := newRIHists()
	samplesPerPhase := make(map[uint64]uint64)

	for _, s := range samples {
		processSample(hists, s, timeline, setMask, true)
		phase := phaseOf(s.PhaseRef)
		samplesPerPhase[phase]++
	}
	for _, s := range samples {
		processSample(hists, s, timeline, setMask, false)
	}
	return hists, samplesPerPhase
}

func processSample(hists *RIHists, s phasetrace.Sample, timeline *phasetrace.Timeline, setMask uint64, isHead bool) {
	setPhaseRef := setPhaseRefOf(s, setMask)
	phase := phaseOf(s.PhaseRef)
	ri := s.CanonicalRI()
	useTime := s.UseTime()
	boundary, ok := timeline.NextAfter(useTime)
	if !ok {
		// No later phase transition: the guard is keyed off this
		// sample's own reuse time, not the query time, so a reuse
		// that runs to the end of the trace is charged in full to
		// its own phase.
		boundary = phasetrace.Transition{Time: s.Time + 1, Phase: 0}
	}

	if isHead {
		entry := hists.entry(setPhaseRef, ri)
		entry.Count++

		thisPhaseCost := min64(boundary.Time-useTime, ri)
		nextPhaseCost := satSub(useTime+ri, boundary.Time)

		addHead(entry, phase, thisPhaseCost)
		if nextPhaseCost > 0 {
			addHead(entry, boundary.Phase, nextPhaseCost)
		}
		return
	}

	ref, ok := hists.byRef[setPhaseRef]
	if !ok {
		return
	}
	for riOther, entry := range ref {
		if riOther >= ri {
			continue
		}
		thisPhaseTailCost := min64(boundary.Time-useTime, riOther)
		nextPhaseTailCost := satSub(useTime+riOther, boundary.Time)

		addTail(entry, phase, thisPhaseTailCost)
		if nextPhaseTailCost > 0 {
			addTail(entry, boundary.Phase, nextPhaseTailCost)
		}
	}
}

func addHead(e *RIEntry, phase, delta uint64) {
	c := e.Costs[phase]
	c.Head += delta
	e.Costs[phase] = c
}

func addTail(e *RIEntry, phase, delta uint64) {
	c := e.Costs[phase]
	c.Tail += delta
	e.Costs[phase] = c
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

// satSub is saturating subtraction over values that may be compared
// while representing a signed quantity that should floor at 0 (the
// spec's max(a-b, 0) when a-b could be negative).
func satSub(a, b uint64) uint64 {
	if a <= b {
		return 0
	}
	return a - b
}
