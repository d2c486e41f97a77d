package s2_factors

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/factorlab/internal/contracts"
)

// AverageMethod selects the moving-average flavour
type AverageMethod string

const (
	AverageMean AverageMethod = "mean" // arithmetic moving average, span = window
	AverageEWMA AverageMethod = "ewma" // exponential moving average, span = period
)

// RollingAverage smooths a panel sampled at freq anchors (TTM: freq=M, span=12)
// The average is evaluated on anchor dates and carried forward to every daily date.
func RollingAverage(p *contracts.Panel, span int, freq contracts.Frequency, method AverageMethod) (*contracts.Panel, error) {
	if err := checkWindow("average span", span); err != nil {
		return nil, err
	}
	freq, err := contracts.ParseFrequency(string(freq))
	if err != nil {
		return nil, err
	}

	var smooth func(values []float64) []float64
	switch method {
	case AverageMean:
		smooth = func(values []float64) []float64 {
			return rolling(values, span, func(win []float64) float64 { return stat.Mean(win, nil) })
		}
	case AverageEWMA:
		smooth = func(values []float64) []float64 { return ewma(values, span) }
	default:
		return nil, fmt.Errorf("%w: unknown average method %q", contracts.ErrInvalidConfig, method)
	}

	anchors := contracts.Anchors(p.Dates, freq)
	n := p.Len()
	return rollColumns(p, func(col []float64) []float64 {
		return contracts.BroadcastForward(n, anchors, smooth(sample(col, anchors)))
	}), nil
}

// ewma is the bias-adjusted exponential mean with α = 2/(span+1)
// Missing inputs decay the weights without contributing; the previous mean is reported.
func ewma(values []float64, span int) []float64 {
	decay := 1 - 2/(float64(span)+1)
	out := make([]float64, len(values))
	num, den := 0.0, 0.0
	for i, v := range values {
		num *= decay
		den *= decay
		if !math.IsNaN(v) {
			num += v
			den += 1
		}
		if den == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = num / den
	}
	return out
}
