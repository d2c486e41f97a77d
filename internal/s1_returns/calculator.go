package s1_returns

import (
	"fmt"
	"math"

	"github.com/wonny/factorlab/internal/contracts"
)

// Options selects the return flavour
type Options struct {
	Log     bool // ln(p[t]/p[t-k]) instead of p[t]/p[t-k]-1
	Forward bool // attribute the value to t-k (used for evaluation, never for factor construction)
}

// Calculate derives returns at every interval from a price panel
// ⭐ SSOT: 수익률 계산은 여기서만
func Calculate(prices *contracts.Panel, intervals []int, opts Options) (*contracts.ReturnPanel, error) {
	if err := validateIntervals(intervals); err != nil {
		return nil, err
	}

	rp := &contracts.ReturnPanel{
		Intervals: append([]int(nil), intervals...),
		Log:       opts.Log,
		Forward:   opts.Forward,
		Panels:    make(map[int]*contracts.Panel, len(intervals)),
	}

	for _, k := range intervals {
		rp.Panels[k] = returnsAt(prices, k, opts)
	}
	return rp, nil
}

// Trailing is a shorthand for a single trailing interval
func Trailing(prices *contracts.Panel, k int, log bool) (*contracts.Panel, error) {
	rp, err := Calculate(prices, []int{k}, Options{Log: log})
	if err != nil {
		return nil, err
	}
	return rp.Panels[k], nil
}

func validateIntervals(intervals []int) error {
	if len(intervals) == 0 {
		return fmt.Errorf("%w: no return intervals", contracts.ErrInvalidConfig)
	}
	seen := make(map[int]bool, len(intervals))
	for _, k := range intervals {
		if k <= 0 {
			return fmt.Errorf("%w: interval must be positive, got %d", contracts.ErrInvalidConfig, k)
		}
		if seen[k] {
			return fmt.Errorf("%w: duplicate interval %d", contracts.ErrInvalidConfig, k)
		}
		seen[k] = true
	}
	return nil
}

// returnsAt computes one interval; out-of-range references stay NaN
func returnsAt(prices *contracts.Panel, k int, opts Options) *contracts.Panel {
	out := contracts.NewPanelLike(prices)
	n := prices.Len()

	for t := k; t < n; t++ {
		// forward: value realized over (t-k, t] belongs to t-k
		dst := t
		if opts.Forward {
			dst = t - k
		}
		for s := 0; s < prices.Width(); s++ {
			out.Values[dst][s] = periodReturn(prices.Values[t-k][s], prices.Values[t][s], opts.Log)
		}
	}
	return out
}

func periodReturn(from, to float64, log bool) float64 {
	if math.IsNaN(from) || math.IsNaN(to) || from == 0 {
		return math.NaN()
	}
	if log {
		return math.Log(to / from)
	}
	return to/from - 1
}
