package s2_factors

import (
	"fmt"
	"math"
	"sort"

	"github.com/wonny/factorlab/internal/contracts"
)

// checkWindow rejects non-positive windows before any computation starts
func checkWindow(name string, w int) error {
	if w <= 0 {
		return fmt.Errorf("%w: %s must be positive, got %d", contracts.ErrInvalidConfig, name, w)
	}
	return nil
}

// fullWindow returns col[end-w+1 : end+1] when it is fully observed
// A window that starts before the series or contains a missing value is not usable.
func fullWindow(col []float64, end, w int) ([]float64, bool) {
	start := end - w + 1
	if start < 0 {
		return nil, false
	}
	win := col[start : end+1]
	for _, v := range win {
		if math.IsNaN(v) {
			return nil, false
		}
	}
	return win, true
}

// rollColumns applies fn to every stock column and assembles a panel on the same axes
func rollColumns(p *contracts.Panel, fn func(col []float64) []float64) *contracts.Panel {
	out := contracts.NewPanelLike(p)
	for s := 0; s < p.Width(); s++ {
		out.SetColumn(s, fn(p.Column(s)))
	}
	return out
}

// rolling evaluates stat over every fully observed w-length window; other positions are NaN
func rolling(col []float64, w int, stat func(win []float64) float64) []float64 {
	out := make([]float64, len(col))
	for t := range col {
		win, ok := fullWindow(col, t, w)
		if !ok {
			out[t] = math.NaN()
			continue
		}
		out[t] = stat(win)
	}
	return out
}

// median averages the two middle values for even lengths
func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// compound returns Π(1+r) - 1, NaN when any input is missing
func compound(values []float64) float64 {
	acc := 1.0
	for _, v := range values {
		if math.IsNaN(v) {
			return math.NaN()
		}
		acc *= 1 + v
	}
	return acc - 1
}

// periodReturns compounds daily returns between consecutive anchors
// The first period runs from the start of the series to the first anchor.
func periodReturns(daily []float64, anchors []int) []float64 {
	out := make([]float64, len(anchors))
	prev := -1
	for j, a := range anchors {
		out[j] = compound(daily[prev+1 : a+1])
		prev = a
	}
	return out
}

// sample picks the values at anchor positions
func sample(col []float64, anchors []int) []float64 {
	out := make([]float64, len(anchors))
	for j, a := range anchors {
		out[j] = col[a]
	}
	return out
}
