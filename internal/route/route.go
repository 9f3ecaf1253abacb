// Package route extracts the trace family and base name an input path
// encodes, and decides whether PRL is allowed to run against it.
package route

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var pathPattern = regexp.MustCompile(`/(clam|shel).*/(.*?)\.(txt|csv)$`)

// ErrRoutingNoMatch is the sentinel Match wraps when an input path
// contains no /clam.../ or /shel.../ directory segment.
var ErrRoutingNoMatch = errors.New("route: path does not match /(clam|shel).../<base>.(txt|csv)")

// ErrPRLOnPhasedTrace is the sentinel CheckPRL wraps when PRL is
// requested against a "shel" (multi-phase) trace.
var ErrPRLOnPhasedTrace = errors.New("route: PRL only supports single-phase sampling files")

// Route is what an input path tells the compiler about the trace it
// names: which family directory it lives under, and the base name to
// derive output file names from.
type Route struct {
	Family string // "clam" or "shel"
	Base   string
	Ext    string // "txt" or "csv"
}

// Match matches an input path against the family/base/extension
// pattern, case-insensitively.
func Match(path string) (Route, error) {
	m := pathPattern.FindStringSubmatch(strings.ToLower(path))
	if m == nil {
		return Route{}, fmt.Errorf("%q: %w", path, ErrRoutingNoMatch)
	}
	return Route{Family: m[1], Base: m[2], Ext: m[3]}, nil
}

// CheckPRL reports an error if PRL was requested against a "shel"
// family trace: PRL only supports single-phase (clam) traces.
func (r Route) CheckPRL() error {
	if r.Family == "shel" {
		return fmt.Errorf("%q is a shel (phased) trace: %w", r.Base, ErrPRLOnPhasedTrace)
	}
	return nil
}
