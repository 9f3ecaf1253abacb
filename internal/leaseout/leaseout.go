// Package leaseout writes a completed lease assignment to the
// lease-text-file format: one line per reference, hex phase/address/
// leases and a decimal short-lease probability, sorted by phase then
// address.
package leaseout

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/clam-project/clam-lease/internal/predict"
)

// WriteLeases writes rows to <dir>/<name>_<algo>_leases, one line per
// row: "phase, address, lease_short, lease_long, percentage" with the
// first four fields in hex and percentage as a decimal fraction.
func WriteLeases(dir, name, algo string, rows []predict.Row) error {
	path := filepath.Join(dir, fmt.Sprintf("%s_%s_leases", name, algo))
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating lease file %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	for _, row := range rows {
		if _, err := fmt.Fprintf(file, "%x, %x, %x, %x, %v\n",
			row.Phase, row.Address, row.ShortLease, row.LongLease, row.Percentage); err != nil {
			return fmt.Errorf("writing lease file %s: %w", path, err)
		}
	}
	return nil
}
