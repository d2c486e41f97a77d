package contracts

import (
	"math"
	"time"
)

// UnknownIndustry marks a stock absent from the industry map
const UnknownIndustry = ""

// IndustryMap maps stock code → industry label
// Treated as static for the duration of one analysis run.
type IndustryMap map[string]string

// Lookup returns the industry of a stock
func (m IndustryMap) Lookup(code string) (string, bool) {
	label, ok := m[code]
	return label, ok
}

// ReturnPanel holds one return panel per interval, all on the price panel's axes
type ReturnPanel struct {
	Intervals []int
	Log       bool
	Forward   bool
	Panels    map[int]*Panel
}

// ReturnRow is one (date, stock) row of a stacked ReturnPanel
type ReturnRow struct {
	Date    time.Time
	Stock   string
	Returns []float64 // aligned with Intervals
}

// Dates returns the shared date axis
func (r *ReturnPanel) Dates() []time.Time {
	if len(r.Intervals) == 0 {
		return nil
	}
	return r.Panels[r.Intervals[0]].Dates
}

// Stocks returns the shared stock axis
func (r *ReturnPanel) Stocks() []string {
	if len(r.Intervals) == 0 {
		return nil
	}
	return r.Panels[r.Intervals[0]].Stocks
}

// Lookup returns the returns of one (date index, stock index) pair, aligned with Intervals
func (r *ReturnPanel) Lookup(t, s int) []float64 {
	out := make([]float64, len(r.Intervals))
	for i, k := range r.Intervals {
		out[i] = r.Panels[k].At(t, s)
	}
	return out
}

// Rows stacks the panel into (date, stock) rows over the full date × stock product
// Missing returns are kept as NaN so every pair has a row.
func (r *ReturnPanel) Rows() []ReturnRow {
	dates, stocks := r.Dates(), r.Stocks()
	rows := make([]ReturnRow, 0, len(dates)*len(stocks))
	for t, d := range dates {
		for s, code := range stocks {
			rows = append(rows, ReturnRow{Date: d, Stock: code, Returns: r.Lookup(t, s)})
		}
	}
	return rows
}

// Observation is one keyed factor value for cross-sectional operations
type Observation struct {
	Date     time.Time
	Stock    string
	Industry string // UnknownIndustry when missing
	Value    float64
}

// Missing reports whether the value is missing
func (o Observation) Missing() bool {
	return math.IsNaN(o.Value)
}

// ObservationsFromPanel flattens a panel (missing cells included) with optional industries
func ObservationsFromPanel(p *Panel, industries IndustryMap) []Observation {
	obs := make([]Observation, 0, p.Len()*p.Width())
	for t, d := range p.Dates {
		for s, code := range p.Stocks {
			label, _ := industries.Lookup(code)
			obs = append(obs, Observation{Date: d, Stock: code, Industry: label, Value: p.Values[t][s]})
		}
	}
	return obs
}
