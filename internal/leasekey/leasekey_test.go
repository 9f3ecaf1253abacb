package leasekey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackPhaseRef_RoundTrips(t *testing.T) {
	tests := []struct {
		name           string
		phase, address uint64
	}{
		{"zero", 0, 0},
		{"max phase and address", MaxPhase, MaxAddress},
		{"mid range", 3, 0xABCDEF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			packed, err := PackPhaseRef(tt.phase, tt.address)
			require.NoError(t, err)
			assert.Equal(t, tt.phase, UnpackPhase(packed))
			assert.Equal(t, tt.address, UnpackAddress(packed))
		})
	}
}

func TestPackPhaseRef_RejectsOutOfRange(t *testing.T) {
	_, err := PackPhaseRef(MaxPhase+1, 0)
	assert.Error(t, err)

	_, err = PackPhaseRef(0, MaxAddress+1)
	assert.Error(t, err)
}

func TestPackSetPhaseRef_RoundTrips(t *testing.T) {
	phaseRef, err := PackPhaseRef(7, 0x123456)
	require.NoError(t, err)

	setRef, err := PackSetPhaseRef(2, phaseRef)
	require.NoError(t, err)

	assert.Equal(t, uint64(2), UnpackSet(setRef))
	assert.Equal(t, phaseRef, UnpackPhaseRef(setRef))
	assert.Equal(t, uint64(7), UnpackPhase(setRef))
	assert.Equal(t, uint64(0x123456), UnpackAddress(setRef))
}

func TestPackSetPhaseRef_RejectsOutOfRangeSet(t *testing.T) {
	phaseRef, err := PackPhaseRef(0, 0)
	require.NoError(t, err)

	_, err = PackSetPhaseRef(MaxSet+1, phaseRef)
	assert.Error(t, err)
}
