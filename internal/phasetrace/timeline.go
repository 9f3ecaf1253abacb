package phasetrace

import (
	"math"
	"sort"
)

// Transition marks a phase boundary: the phase active from this time
// onward, until the next transition.
type Transition struct {
	Time  uint64
	Phase uint64
}

// Timeline is the ordered, binary-searchable phase transition list,
// seeded with the sentinel (0, 0).
type Timeline struct {
	transitions []Transition
}

// Build reconstructs the phase timeline from a sample stream and
// returns the count of distinct tags (cold misses) and the empirical
// sample rate alongside it.
//
// Each sample contributes a (use_time, phase) observation; observations
// are sorted by use_time and a transition is emitted wherever the
// phase changes from the previous one, starting from phase 0 at time 0.
func Build(samples []Sample) (tl *Timeline, coldMisses uint64, empiricalSampleRate uint64) {
	type observation struct {
		useTime uint64
		phase   uint64
	}

	seenTags := make(map[uint64]struct{})
	byUseTime := make(map[uint64]uint64) // use_time -> phase, last writer wins like the original
	var lastTime uint64
	var count uint64

	for _, s := range samples {
		seenTags[s.Tag] = struct{}{}
		phase := (s.PhaseRef & 0xFF000000) >> 24
		byUseTime[s.UseTime()] = phase
		lastTime = s.Time
		count++
	}

	obs := make([]observation, 0, len(byUseTime))
	for t, p := range byUseTime {
		obs = append(obs, observation{t, p})
	}
	sort.Slice(obs, func(i, j int) bool { return obs[i].useTime < obs[j].useTime })

	transitions := []Transition{{Time: 0, Phase: 0}}
	currentPhase := uint64(0)
	for _, o := range obs {
		if o.phase != currentPhase {
			transitions = append(transitions, Transition{Time: o.useTime, Phase: o.phase})
			currentPhase = o.phase
		}
	}

	var sampleRate uint64
	if count > 0 {
		sampleRate = uint64(math.Round(float64(lastTime) / float64(count)))
	}

	return &Timeline{transitions: transitions}, uint64(len(seenTags)), sampleRate
}

// Next returns the first transition strictly after t, or a guard
// value (t+1, 0) larger than any in-bounds reuse when none exists.
func (tl *Timeline) Next(t uint64) Transition {
	if tr, ok := tl.NextAfter(t); ok {
		return tr
	}
	return Transition{Time: t + 1, Phase: 0}
}

// NextAfter returns the first transition strictly after t and true,
// or the zero Transition and false when none exists. Callers that
// need a caller-specific guard value (the histogram builder's guard
// is keyed off the sample's reuse time, not the query time) use this
// instead of Next.
func (tl *Timeline) NextAfter(t uint64) (Transition, bool) {
	i := sort.Search(len(tl.transitions), func(i int) bool {
		return tl.transitions[i].Time > t
	})
	if i == len(tl.transitions) {
		return Transition{}, false
	}
	return tl.transitions[i], true
}

// Transitions returns the ordered transition list (for tests/tools).
func (tl *Timeline) Transitions() []Transition {
	out := make([]Transition, len(tl.transitions))
	copy(out, tl.transitions)
	return out
}
