// Package compile wires the lease compiler's stages into a single
// run: read the trace, build the histograms the requested algorithm
// needs, allocate leases, prune to fit the LLT, predict the outcome,
// and write the lease text file and LLT header.
package compile

import (
	"github.com/sirupsen/logrus"

	"github.com/clam-project/clam-lease/internal/allocator"
	"github.com/clam-project/clam-lease/internal/config"
	"github.com/clam-project/clam-lease/internal/leaseout"
	"github.com/clam-project/clam-lease/internal/llt"
	"github.com/clam-project/clam-lease/internal/phasetrace"
	"github.com/clam-project/clam-lease/internal/predict"
	"github.com/clam-project/clam-lease/internal/prune"
	"github.com/clam-project/clam-lease/internal/rihist"
	"github.com/clam-project/clam-lease/internal/route"
	"github.com/clam-project/clam-lease/internal/traceio"
)

// Result is the outcome of one compiler run.
type Result struct {
	Algorithm   string
	TraceLength uint64
	Misses      uint64
}

// MissRate is Misses/TraceLength, or 0 for an empty trace.
func (r Result) MissRate() float64 {
	if r.TraceLength == 0 {
		return 0
	}
	return float64(r.Misses) / float64(r.TraceLength)
}

// Run executes one full compiler pass for cfg. When writeFiles is
// false (the benchmark sweep's use case, which only wants the miss
// ratio across many cache sizes) the lease text file and LLT header
// are not written.
func Run(cfg config.Config, writeFiles bool) (Result, error) {
	// Only a run that writes files needs an output directory.
	toValidate := cfg
	if !writeFiles && toValidate.Output == "" {
		toValidate.Output = "."
	}
	if err := toValidate.Validate(); err != nil {
		return Result{}, err
	}

	numWays, err := config.NumWays(cfg.Cache.SetAssociativity, cfg.Cache.CacheSize)
	if err != nil {
		return Result{}, err
	}
	setMask, err := config.SetMask(cfg.Cache.CacheSize, numWays)
	if err != nil {
		return Result{}, err
	}
	numSets := setMask + 1
	maxScopes := config.MaxScopes(cfg.LLT.MemSize, cfg.LLT.LLTSize)

	rt, err := route.Match(cfg.Input)
	if err != nil {
		return Result{}, err
	}

	samples, err := traceio.ReadSamples(cfg.Input)
	if err != nil {
		return Result{}, err
	}

	timeline, firstMisses, empiricalRate := phasetrace.Build(samples)
	sampleRate := cfg.Sample.SamplingRate
	if cfg.EmpiricalEnabled() {
		sampleRate = empiricalRate
	}
	logrus.Debugf("%s: family=%s sample_rate=%d first_misses=%d", rt.Base, rt.Family, sampleRate, firstMisses)

	var (
		hists     *rihist.RIHists
		results   *allocator.LeaseResults
		algorithm string
	)

	switch {
	case cfg.PRL > 0:
		if err := rt.CheckPRL(); err != nil {
			return Result{}, err
		}
		algorithm = "prl"
		var samplesPerPhase map[uint64]uint64
		hists, samplesPerPhase = rihist.BuildSHEL(samples, setMask)
		binned, freqs, binWidth := rihist.BuildBinned(samples, cfg.PRL, setMask)
		ctx := newContext(hists, sampleRate, samplesPerPhase, numSets, cfg)
		results, err = allocator.AllocatePRL(ctx, binWidth, binned, freqs)
	case cfg.CSHEL:
		algorithm = "cshel"
		var samplesPerPhase map[uint64]uint64
		hists, samplesPerPhase = rihist.BuildCSHEL(samples, timeline, setMask)
		ctx := newContext(hists, sampleRate, samplesPerPhase, numSets, cfg)
		results, err = allocator.Allocate(true, ctx)
	default:
		algorithm = "shel"
		var samplesPerPhase map[uint64]uint64
		hists, samplesPerPhase = rihist.BuildSHEL(samples, setMask)
		ctx := newContext(hists, sampleRate, samplesPerPhase, numSets, cfg)
		results, err = allocator.Allocate(false, ctx)
	}
	if err != nil {
		return Result{}, err
	}

	prune.ToFit(results, hists, cfg.LLT.LLTSize)
	length, misses := predict.Misses(results, sampleRate, firstMisses)
	logrus.Infof("%s: %s assigned, predicted miss ratio %.4f", rt.Base, algorithm, predict.MissRate(results, sampleRate, firstMisses))

	if writeFiles {
		rows := predict.Rows(results)
		if err := leaseout.WriteLeases(cfg.Output, rt.Base, algorithm, rows); err != nil {
			return Result{}, err
		}
		lltCfg := llt.Config{MemSize: cfg.LLT.MemSize, LLTSize: cfg.LLT.LLTSize, DiscretizeWidth: cfg.LLT.DiscretizeWidth}
		if err := llt.Write(cfg.Output, rows, maxScopes, lltCfg); err != nil {
			return Result{}, err
		}
	}

	return Result{Algorithm: algorithm, TraceLength: length, Misses: misses}, nil
}

func newContext(hists *rihist.RIHists, sampleRate uint64, samplesPerPhase map[uint64]uint64, numSets uint64, cfg config.Config) allocator.Context {
	return allocator.Context{
		RIHists:         hists,
		SampleRate:      sampleRate,
		SamplesPerPhase: samplesPerPhase,
		NumSets:         numSets,
		CacheSize:       cfg.Cache.CacheSize,
		DiscretizeWidth: cfg.LLT.DiscretizeWidth,
	}
}
