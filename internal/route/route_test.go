package route

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatch_ExtractsFamilyBaseAndExt(t *testing.T) {
	r, err := Match("/data/CLAM/traces/Workload-A.CSV")
	require.NoError(t, err)
	assert.Equal(t, "clam", r.Family)
	assert.Equal(t, "workload-a", r.Base)
	assert.Equal(t, "csv", r.Ext)
}

func TestMatch_ShelFamily(t *testing.T) {
	r, err := Match("/data/shel/multi-phase/run7.txt")
	require.NoError(t, err)
	assert.Equal(t, "shel", r.Family)
	assert.Equal(t, "run7", r.Base)
}

func TestMatch_RejectsUnmatchedPath(t *testing.T) {
	_, err := Match("/data/other/run7.txt")
	assert.ErrorIs(t, err, ErrRoutingNoMatch)
}

func TestCheckPRL_RejectsShelFamily(t *testing.T) {
	r := Route{Family: "shel", Base: "run7"}
	assert.ErrorIs(t, r.CheckPRL(), ErrPRLOnPhasedTrace)
}

func TestCheckPRL_AllowsClamFamily(t *testing.T) {
	r := Route{Family: "clam", Base: "run7"}
	assert.NoError(t, r.CheckPRL())
}
