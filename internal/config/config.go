// Package config groups the lease compiler's run settings and the
// sizing arithmetic derived from them: max resident phases, cache
// ways, and the per-set address mask.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrSetAssociativityExceedsCache is the sentinel NumWays wraps when a
// requested associativity is wider than the cache itself.
var ErrSetAssociativityExceedsCache = errors.New("config: set associativity exceeds cache size")

// CacheConfig groups the geometry of the cache being targeted.
type CacheConfig struct {
	CacheSize        uint64 `yaml:"cache_size"`
	SetAssociativity uint64 `yaml:"set_associativity"` // 0 means fully associative (num_ways = cache_size)
}

// LLTConfig groups the sizing of the generated Lease Lookup Table.
type LLTConfig struct {
	LLTSize         uint64 `yaml:"llt_size"`         // max references per phase
	MemSize         uint64 `yaml:"mem_size"`         // total memory budget for the LLT, in bytes
	DiscretizeWidth uint64 `yaml:"discretize_width"` // bits available for a discretized short-lease probability
}

// SampleConfig groups how the trace was sampled and how the compiler
// should interpret that sampling when scaling costs back up to the
// full trace.
type SampleConfig struct {
	SamplingRate        uint64 `yaml:"sampling_rate"`
	EmpiricalSampleRate string `yaml:"empirical_sample_rate"` // "yes"/"" uses the rate measured from the trace; "no" uses SamplingRate
}

// Config bundles every setting a compiler run needs.
type Config struct {
	Input  string `yaml:"input"`
	Output string `yaml:"output"`

	Cache  CacheConfig  `yaml:"cache"`
	LLT    LLTConfig    `yaml:"llt"`
	Sample SampleConfig `yaml:"sample"`

	PRL     uint64 `yaml:"prl"` // 0 disables PRL; otherwise the number of RI bins
	CSHEL   bool   `yaml:"cshel"`
	Verbose bool   `yaml:"verbose"`
	Debug   bool   `yaml:"debug"`
}

// EmpiricalEnabled reports whether the trace's own measured sample
// rate should be used instead of Sample.SamplingRate.
func (c Config) EmpiricalEnabled() bool {
	return !strings.EqualFold(c.Sample.EmpiricalSampleRate, "no")
}

// Validate checks the settings a run cannot proceed without.
func (c Config) Validate() error {
	if c.Input == "" {
		return fmt.Errorf("config: input path is required")
	}
	if c.Output == "" {
		return fmt.Errorf("config: output path is required")
	}
	if c.Cache.CacheSize == 0 {
		return fmt.Errorf("config: cache size is required")
	}
	return nil
}

// LoadYAML reads a named scenario config from disk, for the case
// where a run is described as a file instead of CLI flags. Unknown
// fields are rejected so a typo'd key surfaces as a load error
// instead of silently keeping its zero value.
func LoadYAML(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading scenario config %s: %w", path, err)
	}
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing scenario config %s: %w", path, err)
	}
	return cfg, nil
}

// MaxScopes is how many phases the LLT memory budget can hold: each
// phase needs 16 config words plus 2*LLTSize reference/lease words,
// all 4 bytes wide.
func MaxScopes(memSize, lltSize uint64) uint64 {
	return memSize / ((2*lltSize + 16) * 4)
}

// NumWays resolves set associativity 0 (fully associative) to the
// whole cache, and rejects an associativity wider than the cache.
func NumWays(setAssociativity, cacheSize uint64) (uint64, error) {
	switch {
	case setAssociativity == 0:
		return cacheSize, nil
	case setAssociativity > cacheSize:
		return 0, fmt.Errorf("set associativity %d exceeds cache size %d: %w", setAssociativity, cacheSize, ErrSetAssociativityExceedsCache)
	default:
		return setAssociativity, nil
	}
}

// SetMask derives the address mask that picks out a reference's cache
// set from its tag, given the cache's size and number of ways.
func SetMask(cacheSize, numWays uint64) (uint64, error) {
	if numWays == 0 {
		return 0, fmt.Errorf("config: number of ways cannot be zero")
	}
	sets := cacheSize / numWays
	if sets == 0 {
		return 0, fmt.Errorf("config: number of sets cannot be zero")
	}
	return sets - 1, nil
}
