package s4_crosssection

import (
	"math"

	"github.com/wonny/factorlab/internal/contracts"
)

// GroupFunc transforms the non-missing values of one group
// It must return a slice of the same length; results are matched back by position.
type GroupFunc func(values []float64) []float64

type groupKey struct {
	day      int64
	industry string
}

// ApplyGrouped runs fn once per date (and industry when byIndustry) group
// ⭐ SSOT: 횡단면 그룹핑은 여기서만 (winsorize / normalize / bucket 공용)
//
// The result is aligned with obs. Missing values never reach fn and stay NaN; when
// grouping by industry, rows without an industry stay NaN as well.
func ApplyGrouped(obs []contracts.Observation, byIndustry bool, fn GroupFunc) []float64 {
	out := make([]float64, len(obs))
	groups := make(map[groupKey][]int)
	var order []groupKey

	for i, o := range obs {
		out[i] = math.NaN()
		if o.Missing() {
			continue
		}
		key := groupKey{day: o.Date.Unix()}
		if byIndustry {
			if o.Industry == contracts.UnknownIndustry {
				continue
			}
			key.industry = o.Industry
		}
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}

	values := make([]float64, 0, len(obs))
	for _, key := range order {
		idx := groups[key]
		values = values[:0]
		for _, i := range idx {
			values = append(values, obs[i].Value)
		}
		result := fn(values)
		for j, i := range idx {
			out[i] = result[j]
		}
	}
	return out
}

// panelObservations flattens a panel row by row without industries
func panelObservations(p *contracts.Panel) []contracts.Observation {
	return contracts.ObservationsFromPanel(p, nil)
}

// toPanel reshapes date-major values produced from panelObservations(p)
func toPanel(p *contracts.Panel, values []float64) *contracts.Panel {
	out := contracts.NewPanelLike(p)
	w := p.Width()
	for t := range out.Values {
		copy(out.Values[t], values[t*w:(t+1)*w])
	}
	return out
}
