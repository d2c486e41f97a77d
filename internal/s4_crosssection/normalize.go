package s4_crosssection

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/factorlab/internal/contracts"
)

// Normalize z-scores each observation within its date (and industry) group
// Mean and std are both sample estimators; groups with fewer than two values or
// no dispersion yield NaN.
func Normalize(obs []contracts.Observation, byIndustry bool) []float64 {
	return ApplyGrouped(obs, byIndustry, zscore)
}

// NormalizePanel z-scores each date of a panel
func NormalizePanel(p *contracts.Panel) *contracts.Panel {
	return toPanel(p, ApplyGrouped(panelObservations(p), false, zscore))
}

func zscore(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) < 2 {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}

	mean, std := stat.MeanStdDev(values, nil)
	for i, v := range values {
		if std == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = (v - mean) / std
	}
	return out
}
