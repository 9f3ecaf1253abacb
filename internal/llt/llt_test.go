package llt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clam-project/clam-lease/internal/predict"
)

func TestDiscretize_FullProbabilitySaturatesWidth(t *testing.T) {
	assert.Equal(t, uint64(255), Discretize(1.0, 8))
}

func TestDiscretize_HalfProbabilityAtWidthOneRoundsToZero(t *testing.T) {
	assert.Equal(t, uint64(0), Discretize(0.5, 1))
}

func TestWrite_RejectsPhaseOverLLTSize(t *testing.T) {
	dir := t.TempDir()
	rows := []predict.Row{
		{Phase: 0, Address: 1, ShortLease: 2, Percentage: 1},
		{Phase: 0, Address: 2, ShortLease: 2, Percentage: 1},
	}
	err := Write(dir, rows, 1, Config{MemSize: 64, LLTSize: 1, DiscretizeWidth: 8})
	assert.ErrorIs(t, err, ErrNoReferencesFitLLT)
}

func TestWrite_EmitsContiguousPhaseBlocksWithDummyFill(t *testing.T) {
	dir := t.TempDir()
	rows := []predict.Row{
		{Phase: 0, Address: 1, ShortLease: 3, Percentage: 1},
	}
	require.NoError(t, Write(dir, rows, 2, Config{MemSize: 64, LLTSize: 2, DiscretizeWidth: 8}))

	body, err := os.ReadFile(filepath.Join(dir, "leases.h"))
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, "#include \"stdint.h\"")
	assert.Contains(t, text, "// phase 0\n")
	assert.Contains(t, text, "// phase 1\n")
	assert.Contains(t, text, "static uint32_t lease[16]")
	assert.True(t, text[len(text)-1] == '}' || text[len(text)-2:] == "};")
}
