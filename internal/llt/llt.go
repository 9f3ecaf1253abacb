// Package llt emits the Lease Lookup Table as a C header: a flat
// uint32 array a lease cache's runtime links against directly,
// carrying one fixed-layout block per phase (config words followed by
// reference-address/lease0 arrays).
package llt

import (
	"bufio"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/clam-project/clam-lease/internal/predict"
)

// ErrNoReferencesFitLLT is the sentinel Write wraps when a phase has
// more references than the lease lookup table can hold, or when a
// phase index exceeds the memory budget's scope count.
var ErrNoReferencesFitLLT = errors.New("llt: references do not fit the lease lookup table")

// Config bundles the sizing knobs that shape the emitted table.
type Config struct {
	MemSize         uint64 // total LLT memory budget, in bytes
	LLTSize         uint64 // max references per phase
	DiscretizeWidth uint64 // bits used to discretize a short-lease probability
}

const configWordsPerPhase = 16

type leaseData struct {
	address    uint64
	shortLease uint64
	longLease  uint64
	percentage float64
	hasDual    bool
}

// Discretize maps a short-lease probability in [0,1] to a fixed-point
// integer with the given bit width: round(percentage*2^width - 1).
func Discretize(percentage float64, width uint64) uint64 {
	pow := float64(uint64(1) << width)
	return uint64(math.Round(percentage*pow - 1.0))
}

// Write emits the LLT C header to <dir>/leases.h. rows is the
// completed, already-pruned lease assignment; maxNumScopes bounds how
// many phases the allocated memory can hold (calculated from
// Config.MemSize and Config.LLTSize) — phases with no references of
// their own are backfilled with a dummy all-zero lease so the
// generated table still has a contiguous phase index for every phase
// the runtime might enter.
func Write(dir string, rows []predict.Row, maxNumScopes uint64, cfg Config) error {
	byPhase := make(map[uint64]map[uint64]leaseData)
	seenPhase := make(map[uint64]bool)
	var maxPhase uint64
	for _, row := range rows {
		if byPhase[row.Phase] == nil {
			byPhase[row.Phase] = make(map[uint64]leaseData)
		}
		byPhase[row.Phase][row.Address] = leaseData{
			address:    row.Address,
			shortLease: row.ShortLease,
			longLease:  row.LongLease,
			percentage: row.Percentage,
			hasDual:    row.LongLease > 0,
		}
		seenPhase[row.Phase] = true
		if row.Phase > maxPhase {
			maxPhase = row.Phase
		}
	}

	for phase := uint64(0); phase < maxNumScopes; phase++ {
		if seenPhase[phase] {
			continue
		}
		byPhase[phase] = map[uint64]leaseData{0: {percentage: 1.0}}
		seenPhase[phase] = true
	}

	for phase, refs := range byPhase {
		if uint64(len(refs)) > cfg.LLTSize {
			return fmt.Errorf("phase %d has %d references, exceeds lease lookup table size %d: %w", phase, len(refs), cfg.LLTSize, ErrNoReferencesFitLLT)
		}
	}
	if maxPhase > maxNumScopes {
		return fmt.Errorf("phase %d cannot fit in the %d-byte memory budget (max %d scopes): %w", maxPhase, cfg.MemSize, maxNumScopes, ErrNoReferencesFitLLT)
	}

	path := dir + "/leases.h"
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating LLT header %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	w := bufio.NewWriter(file)
	if err := writeHeader(w, byPhase, cfg); err != nil {
		return fmt.Errorf("writing LLT header %s: %w", path, err)
	}
	return w.Flush()
}

func writeHeader(w *bufio.Writer, byPhase map[uint64]map[uint64]leaseData, cfg Config) error {
	fmt.Fprintf(w, "#include \"stdint.h\"\n\n")
	fmt.Fprintf(w, "static uint32_t lease[%d] __attribute__((section (\".lease\"))) __attribute__ ((__used__)) = {\n", cfg.MemSize/4)
	fmt.Fprintf(w, "// lease header\n")

	for i := uint64(0); i < uint64(len(byPhase)); i++ {
		refs, ok := byPhase[i]
		if !ok {
			return fmt.Errorf("phase %d missing from a contiguous 0..%d phase range", i, len(byPhase)-1)
		}
		fmt.Fprintf(w, "// phase %d\n", i)
		writePhaseBlock(w, refs, cfg, i+1 == uint64(len(byPhase)))
	}
	fmt.Fprintf(w, "};")
	return nil
}

func writePhaseBlock(w *bufio.Writer, refs map[uint64]leaseData, cfg Config, isLastPhase bool) {
	var dualRef, dualLong uint64
	dualPercentage := 1.0
	dualFound := false

	leasePhase := make([]leaseData, 0, len(refs))
	for _, d := range refs {
		leasePhase = append(leasePhase, d)
		if d.hasDual && !dualFound {
			dualRef, dualLong, dualPercentage = d.address, d.longLease, d.percentage
			dualFound = true
		}
	}
	sort.Slice(leasePhase, func(i, j int) bool { return leasePhase[i].address < leasePhase[j].address })

	const defaultLease = 1
	for j := 0; j < configWordsPerPhase; j++ {
		switch j {
		case 0:
			fmt.Fprintf(w, "\t0x%08x,\t// default lease\n", uint64(defaultLease))
		case 1:
			fmt.Fprintf(w, "\t0x%08x,\t// long lease value\n", dualLong)
		case 2:
			fmt.Fprintf(w, "\t0x%08x,\t// short lease probability\n", Discretize(dualPercentage, cfg.DiscretizeWidth))
		case 3:
			fmt.Fprintf(w, "\t0x%08x,\t// num of references in phase\n", uint64(len(refs)))
		case 4:
			fmt.Fprintf(w, "\t0x%08x,\t// dual lease ref (word address)\n", dualRef>>2)
		default:
			fmt.Fprintf(w, "\t0x%08x,\t // unused\n", 0)
		}
	}

	fieldList := []string{"reference address", "lease0 value"}
	for k, label := range fieldList {
		fmt.Fprintf(w, "\t//%s\n\t", label)
		for j := uint64(0); j < cfg.LLTSize; j++ {
			var value uint64
			if j < uint64(len(leasePhase)) {
				if k == 0 {
					value = leasePhase[j].address
				} else {
					value = leasePhase[j].shortLease
				}
			}
			fmt.Fprintf(w, "0x%08x", value)

			switch {
			case j+1 == cfg.LLTSize && k == 1 && isLastPhase:
				w.WriteByte('\n')
			case j+1 == cfg.LLTSize:
				fmt.Fprint(w, ",\n")
			case (j+1)%10 == 0:
				fmt.Fprint(w, ",\n\t")
			default:
				fmt.Fprint(w, ", ")
			}
		}
	}
}
