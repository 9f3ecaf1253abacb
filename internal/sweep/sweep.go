// Package sweep drives the lease compiler across a growing sequence
// of cache sizes and records the predicted miss ratio at each one, the
// curve used to pick a cache size for a target hit rate.
package sweep

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/clam-project/clam-lease/internal/compile"
	"github.com/clam-project/clam-lease/internal/config"
)

// NextCacheSize grows a cache size for the next sweep point: +1 below
// 2, +2 below 34, then roughly *1.1 (rounded to even) capped at the
// next power of two, so the curve gets coarser as it grows.
func NextCacheSize(cacheSize uint64) uint64 {
	switch {
	case cacheSize == 1:
		return 2
	case cacheSize < 34:
		return cacheSize + 2
	default:
		target := (cacheSize*11 + 5) / 10
		if target%2 != 0 {
			target++
		}
		next := nextPowerOfTwo(cacheSize + 1)
		if target < next {
			return target
		}
		return next
	}
}

func nextPowerOfTwo(n uint64) uint64 {
	if n == 0 {
		return 1
	}
	p := uint64(1)
	for p < n {
		p <<= 1
	}
	return p
}

// Run sweeps cache sizes from 1 up to and including maxCacheSize,
// running one compiler pass per size against base (which supplies the
// trace, LLT sizing, and algorithm selection; its Cache.CacheSize is
// overwritten at each step) and writing a (cache_size, miss_ratio) row
// per point to w. Output files are never written during a sweep.
func Run(base config.Config, maxCacheSize uint64, w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"cache_size", "miss_ratio"}); err != nil {
		return fmt.Errorf("writing sweep header: %w", err)
	}

	for cacheSize := uint64(1); cacheSize <= maxCacheSize; cacheSize = NextCacheSize(cacheSize) {
		cfg := base
		cfg.Cache.CacheSize = cacheSize

		result, err := compile.Run(cfg, false)
		if err != nil {
			return fmt.Errorf("sweep at cache size %d: %w", cacheSize, err)
		}

		row := []string{strconv.FormatUint(cacheSize, 10), strconv.FormatFloat(result.MissRate(), 'f', -1, 64)}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("writing sweep row for cache size %d: %w", cacheSize, err)
		}
	}

	writer.Flush()
	return writer.Error()
}
