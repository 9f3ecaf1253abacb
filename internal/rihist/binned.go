package rihist

import (
	"math"

	"github.com/clam-project/clam-lease/internal/phasetrace"
)

// BuildBinned slices the (already time-ordered) sample stream into
// numBins equal-width temporal bins and produces the per-bin RI
// distribution and per-bin reference frequency table PRL needs. Every
// address that appears in any bin is present in every bin, with
// frequency 0 where absent.
func BuildBinned(samples []phasetrace.Sample, numBins uint64, setMask uint64) (*BinnedRI, *BinFreq, uint64) {
	var lastTime uint64
	for _, s := range samples {
		lastTime = s.Time
	}
	binWidth := uint64(math.Ceil(float64(lastTime) / float64(numBins)))
	if binWidth == 0 {
		binWidth = 1
	}

	binFreqs := make(map[uint64]map[uint64]uint64)
	binRIDist := make(map[uint64]map[uint64]map[uint64]uint64)

	currBin := uint64(0)
	currFreq := make(map[uint64]uint64)
	currRIDist := make(map[uint64]map[uint64]uint64)
	allAddrs := make(map[uint64]struct{})

	flush := func(bin uint64) {
		binFreqs[bin] = currFreq
		binRIDist[bin] = currRIDist
		currFreq = make(map[uint64]uint64)
		currRIDist = make(map[uint64]map[uint64]uint64)
	}

	for _, s := range samples {
		if s.Time > currBin+binWidth {
			flush(currBin)
			currBin += binWidth
		}

		addr := setPhaseRefOf(s, setMask)
		ri := s.CanonicalRI()

		currFreq[addr]++
		if currRIDist[addr] == nil {
			currRIDist[addr] = make(map[uint64]uint64)
		}
		currRIDist[addr][ri]++
		allAddrs[addr] = struct{}{}
	}
	flush(currBin)

	for _, byAddr := range binFreqs {
		for addr := range allAddrs {
			if _, ok := byAddr[addr]; !ok {
				byAddr[addr] = 0
			}
		}
	}

	return &BinnedRI{data: binRIDist}, &BinFreq{data: binFreqs}, binWidth
}
