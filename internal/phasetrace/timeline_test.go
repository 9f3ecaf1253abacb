package phasetrace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuild_SinglePhaseNoTransitions(t *testing.T) {
	samples := []Sample{
		{Tag: 0x1, PhaseRef: 0x0, BackwardRI: 4, Time: 4},
		{Tag: 0x1, PhaseRef: 0x0, BackwardRI: 4, Time: 8},
		{Tag: 0x1, PhaseRef: 0x0, BackwardRI: 4, Time: 12},
	}
	tl, coldMisses, sampleRate := Build(samples)

	assert.Equal(t, uint64(1), coldMisses)
	assert.Equal(t, []Transition{{Time: 0, Phase: 0}}, tl.Transitions())
	assert.Equal(t, uint64(4), sampleRate) // round(12/3)
}

func TestBuild_EmitsTransitionOnPhaseChange(t *testing.T) {
	// phase 0 active from use_time 0, phase 1 begins at use_time 10
	samples := []Sample{
		{Tag: 0x1, PhaseRef: 0x0000000A, BackwardRI: 10, Time: 10}, // use_time 0, phase 0
		{Tag: 0x2, PhaseRef: 0x0100000B, BackwardRI: 5, Time: 15},  // use_time 10, phase 1
	}
	tl, _, _ := Build(samples)

	transitions := tl.Transitions()
	assert.Equal(t, Transition{Time: 0, Phase: 0}, transitions[0])
	assert.Equal(t, Transition{Time: 10, Phase: 1}, transitions[1])
}

func TestTimeline_Next_ReturnsGuardPastEnd(t *testing.T) {
	tl, _, _ := Build([]Sample{{Tag: 1, PhaseRef: 0, BackwardRI: 1, Time: 1}})

	guard := tl.Next(1000)
	assert.Equal(t, Transition{Time: 1001, Phase: 0}, guard)
}

func TestTimeline_Next_ReturnsFirstStrictlyAfter(t *testing.T) {
	tl := &Timeline{transitions: []Transition{{0, 0}, {10, 1}, {20, 2}}}

	assert.Equal(t, Transition{Time: 10, Phase: 1}, tl.Next(5))
	assert.Equal(t, Transition{Time: 20, Phase: 2}, tl.Next(10))
	assert.Equal(t, Transition{Time: 21, Phase: 0}, tl.Next(20))
}

func TestSample_CanonicalRI_NegativeBecomesSentinel(t *testing.T) {
	s := Sample{BackwardRI: -1}
	assert.Equal(t, uint64(CanonicalInfiniteRI), s.CanonicalRI())

	s2 := Sample{BackwardRI: 42}
	assert.Equal(t, uint64(42), s2.CanonicalRI())
}

func TestSample_UseTime(t *testing.T) {
	s := Sample{BackwardRI: 4, Time: 10}
	assert.Equal(t, uint64(6), s.UseTime())

	s2 := Sample{BackwardRI: -3, Time: 10}
	assert.Equal(t, uint64(7), s2.UseTime())
}
