package s4_crosssection

import (
	"fmt"
	"math"

	"github.com/wonny/factorlab/internal/contracts"
)

// WeightedPanel multiplies indicator by row-normalized weights
// Each date's non-missing weights are scaled to sum to 1; a date without any weight
// (or with a zero total) yields NaN. The product is not summed.
func WeightedPanel(indicator, weights *contracts.Panel) (*contracts.Panel, error) {
	if !indicator.SameAxes(weights) {
		return nil, fmt.Errorf("%w: indicator and weight panels differ", contracts.ErrMisaligned)
	}
	norm := NormalizeWeights(weights)

	out := contracts.NewPanelLike(indicator)
	for t := range out.Values {
		for s := range out.Values[t] {
			out.Values[t][s] = indicator.Values[t][s] * norm.Values[t][s]
		}
	}
	return out, nil
}

// NormalizeWeights scales each row so its non-missing weights sum to 1
func NormalizeWeights(weights *contracts.Panel) *contracts.Panel {
	out := contracts.NewPanelLike(weights)
	for t, row := range weights.Values {
		total := 0.0
		for _, w := range row {
			if !math.IsNaN(w) {
				total += w
			}
		}
		if total == 0 {
			continue
		}
		for s, w := range row {
			out.Values[t][s] = w / total
		}
	}
	return out
}

// WeightedVector multiplies indicator by a per-stock weight used as-is
// Stocks without a weight yield NaN.
func WeightedVector(indicator *contracts.Panel, weights map[string]float64) *contracts.Panel {
	out := contracts.NewPanelLike(indicator)
	for s, code := range indicator.Stocks {
		w, ok := weights[code]
		if !ok {
			continue
		}
		for t := range out.Values {
			out.Values[t][s] = indicator.Values[t][s] * w
		}
	}
	return out
}
