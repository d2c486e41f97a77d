package s4_crosssection

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/factorlab/internal/contracts"
)

// Winsorize clips every date's values to [Q(p), Q(1-p)] of that date
// Quantiles are empirical order statistics, so clipped values are themselves
// quantiles of the clipped row and a second pass changes nothing.
func Winsorize(p *contracts.Panel, pct float64) (*contracts.Panel, error) {
	if pct < 0 || pct >= 0.5 || math.IsNaN(pct) {
		return nil, fmt.Errorf("%w: winsorize fraction must be in [0, 0.5), got %v", contracts.ErrInvalidConfig, pct)
	}

	clipped := ApplyGrouped(panelObservations(p), false, func(values []float64) []float64 {
		lo, hi := Bounds(values, pct)
		out := make([]float64, len(values))
		for i, v := range values {
			out[i] = math.Min(math.Max(v, lo), hi)
		}
		return out
	})
	return toPanel(p, clipped), nil
}

// Bounds returns the (pct, 1-pct) empirical quantiles of values
func Bounds(values []float64, pct float64) (lo, hi float64) {
	if len(values) == 0 {
		return math.NaN(), math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return stat.Quantile(pct, stat.Empirical, sorted, nil), stat.Quantile(1-pct, stat.Empirical, sorted, nil)
}
