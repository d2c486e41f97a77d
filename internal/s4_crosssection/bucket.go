package s4_crosssection

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/wonny/factorlab/internal/contracts"
)

// MissingBucket labels observations that could not be bucketed
const MissingBucket = 0

// Bucket assigns each observation to one of bins equal-width buckets of its group range
//
// Labels run 1..bins. Intervals are [lo, hi) except the last, which also includes the
// group maximum. A group whose values are all equal lands in the middle bucket.
func Bucket(obs []contracts.Observation, bins int, byIndustry bool) ([]int, error) {
	if bins < 1 {
		return nil, fmt.Errorf("%w: bins must be positive, got %d", contracts.ErrInvalidConfig, bins)
	}

	raw := ApplyGrouped(obs, byIndustry, func(values []float64) []float64 {
		return cut(values, bins)
	})

	labels := make([]int, len(raw))
	for i, v := range raw {
		if math.IsNaN(v) {
			labels[i] = MissingBucket
			continue
		}
		labels[i] = int(v)
	}
	return labels, nil
}

func cut(values []float64, bins int) []float64 {
	out := make([]float64, len(values))
	lo, hi := floats.Min(values), floats.Max(values)
	width := (hi - lo) / float64(bins)

	for i, v := range values {
		if width == 0 {
			out[i] = float64((bins + 1) / 2)
			continue
		}
		label := int(math.Floor((v-lo)/width)) + 1
		if label > bins {
			label = bins
		}
		if label < 1 {
			label = 1
		}
		out[i] = float64(label)
	}
	return out
}
