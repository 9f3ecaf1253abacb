// Package traceio reads the trace CSV format the lease compiler
// consumes: four columns (phase_id_ref, backward_ri, tag, time) per
// sample, the first three hex-encoded, the last decimal.
package traceio

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/clam-project/clam-lease/internal/phasetrace"
)

// wantHeader is the column order the reader expects. A header row is
// always required and checked against this, so a reordered or
// relabeled CSV fails fast with a clear error instead of silently
// misreading columns.
var wantHeader = []string{"phase_id_ref", "backward_ri", "tag", "time"}

// ReadSamples streams a trace CSV into a sample slice. backward_ri is
// hex-parsed to 64 bits and then reinterpreted as a signed 32-bit
// value: a reuse interval encodes its sign in the low 32 bits of the
// field the same way the trace format always has, so a hex string
// whose low bits form a large unsigned value (near 0xFFFFFFFF) comes
// out negative — the cold/end-of-trace marker CanonicalRI()
// recognizes.
func ReadSamples(path string) ([]phasetrace.Sample, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening trace %s: %w", path, err)
	}
	defer file.Close() //nolint:errcheck // read-only file

	reader := csv.NewReader(file)
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading trace header from %s: %w", path, err)
	}
	if err := checkHeader(header); err != nil {
		return nil, fmt.Errorf("trace %s: %w", path, err)
	}

	var samples []phasetrace.Sample
	row := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("trace %s row %d: %w", path, row, err)
		}
		row++

		phaseRef, err := strconv.ParseUint(record[0], 16, 64)
		if err != nil {
			return nil, fmt.Errorf("trace %s row %d: invalid phase_id_ref %q: %w", path, row, record[0], err)
		}
		riRaw, err := strconv.ParseUint(record[1], 16, 64)
		if err != nil {
			return nil, fmt.Errorf("trace %s row %d: invalid backward_ri %q: %w", path, row, record[1], err)
		}
		tag, err := strconv.ParseUint(record[2], 16, 64)
		if err != nil {
			return nil, fmt.Errorf("trace %s row %d: invalid tag %q: %w", path, row, record[2], err)
		}
		time, err := strconv.ParseUint(record[3], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("trace %s row %d: invalid time %q: %w", path, row, record[3], err)
		}

		samples = append(samples, phasetrace.Sample{
			Tag:        tag,
			PhaseRef:   phaseRef,
			BackwardRI: int32(uint32(riRaw)),
			Time:       time,
		})
	}
	return samples, nil
}

func checkHeader(got []string) error {
	if len(got) != len(wantHeader) {
		return fmt.Errorf("expected %d columns %v, got %v", len(wantHeader), wantHeader, got)
	}
	for i, name := range wantHeader {
		if got[i] != name {
			return fmt.Errorf("expected column %d to be %q, got %q", i, name, got[i])
		}
	}
	return nil
}
