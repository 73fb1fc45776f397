package tqplan

import (
	"sort"
	"strconv"
	"strings"
)

// aggregate reduces per-frame scores to a single probe score according to
// mode: "mean" averages all frames; "pN" (e.g. "p5") takes the Nth
// percentile, biasing the search toward the chunk's worst frames instead
// of its average. Unrecognized modes fall back to the mean.
func aggregate(scores []float64, mode string) float64 {
	if len(scores) == 0 {
		return 0
	}

	if strings.HasPrefix(mode, "p") {
		if pct, err := strconv.ParseFloat(mode[1:], 64); err == nil && pct >= 0 && pct <= 100 {
			return percentile(scores, pct)
		}
	}

	var total float64
	for _, s := range scores {
		total += s
	}
	return total / float64(len(scores))
}

// percentile returns the pct-th percentile of scores using linear
// interpolation between the two nearest ranks.
func percentile(scores []float64, pct float64) float64 {
	sorted := append([]float64(nil), scores...)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := (pct / 100) * float64(len(sorted)-1)
	lo := int(rank)
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
