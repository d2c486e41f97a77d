package s2_factors

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/wonny/factorlab/internal/contracts"
)

// CMRA computes the cumulative-range volatility factor
// ⭐ SSOT: CMRA = ln(max cumret) - ln(min cumret)
//
// Daily returns and the shared risk-free series are compounded into one return per
// freq period. Over the last window periods the excess returns are chained into a
// cumulative product; the factor is the log spread between its maximum and minimum.
// Values are computed on anchor dates and carried forward onto the daily axis.
func CMRA(returns *contracts.Panel, riskFree *contracts.Series, window int, freq contracts.Frequency) (*contracts.Panel, error) {
	if err := checkWindow("cmra window", window); err != nil {
		return nil, err
	}
	freq, err := contracts.ParseFrequency(string(freq))
	if err != nil {
		return nil, err
	}
	rf, err := riskFree.AlignTo(returns)
	if err != nil {
		return nil, fmt.Errorf("cmra risk-free: %w", err)
	}

	anchors := contracts.Anchors(returns.Dates, freq)
	rfPeriod := periodReturns(rf, anchors)
	n := returns.Len()

	return rollColumns(returns, func(col []float64) []float64 {
		excess := periodReturns(col, anchors)
		for j := range excess {
			excess[j] -= rfPeriod[j]
		}
		atAnchors := rolling(excess, window, cumulativeRange)
		return contracts.BroadcastForward(n, anchors, atAnchors)
	}), nil
}

// cumulativeRange is ln(max) - ln(min) of the running product of (1+e)
func cumulativeRange(excess []float64) float64 {
	cum := make([]float64, len(excess))
	acc := 1.0
	for i, e := range excess {
		acc *= 1 + e
		cum[i] = acc
	}

	lo := floats.Min(cum)
	if lo <= 0 {
		return math.NaN()
	}
	return math.Log(floats.Max(cum)) - math.Log(lo)
}

// DHILO computes the rolling median of ln(low) - ln(high)
// Computed on price levels; the spread is negative on a normal trading day.
func DHILO(high, low *contracts.Panel, window int) (*contracts.Panel, error) {
	if err := checkWindow("dhilo window", window); err != nil {
		return nil, err
	}
	if !high.SameAxes(low) {
		return nil, fmt.Errorf("%w: high and low panels differ", contracts.ErrMisaligned)
	}

	spread := contracts.NewPanelLike(high)
	for t := range high.Values {
		for s := range high.Values[t] {
			h, l := high.Values[t][s], low.Values[t][s]
			if h > 0 && l > 0 {
				spread.Values[t][s] = math.Log(l) - math.Log(h)
			}
		}
	}

	return rollColumns(spread, func(col []float64) []float64 {
		return rolling(col, window, median)
	}), nil
}

// DVRAT computes the daily-return variance ratio (serial dependence)
//
//	σ²   = var_T(e)                       e = r - rf
//	σq²  = var_T(c)·(T-1)/m               c = Π_q(1+e) - 1, m = q(T-q+1)(1-q/T)
//	DVRAT = σq²/σ² - 1
//
// The q-period excess return is compounded on a rolling basis first, then its variance
// is taken over the same T window.
func DVRAT(returns *contracts.Panel, riskFree *contracts.Series, T, q int) (*contracts.Panel, error) {
	if err := checkWindow("dvrat T", T); err != nil {
		return nil, err
	}
	if q < 1 || q >= T {
		return nil, fmt.Errorf("%w: dvrat q must satisfy 1 <= q < T, got q=%d T=%d", contracts.ErrInvalidConfig, q, T)
	}
	rf, err := riskFree.AlignTo(returns)
	if err != nil {
		return nil, fmt.Errorf("dvrat risk-free: %w", err)
	}

	m := float64(q) * float64(T-q+1) * (1 - float64(q)/float64(T))
	variance := func(win []float64) float64 { return stat.Variance(win, nil) }

	return rollColumns(returns, func(col []float64) []float64 {
		excess := make([]float64, len(col))
		for t := range col {
			excess[t] = col[t] - rf[t]
		}

		sig2 := rolling(excess, T, variance)
		cum := rolling(excess, q, compound)
		cumSig2 := rolling(cum, T, variance)

		out := make([]float64, len(col))
		for t := range out {
			if sig2[t] == 0 || math.IsNaN(sig2[t]) || math.IsNaN(cumSig2[t]) {
				out[t] = math.NaN()
				continue
			}
			out[t] = cumSig2[t]*float64(T-1)/m/sig2[t] - 1
		}
		return out
	}), nil
}
