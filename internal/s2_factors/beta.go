package s2_factors

import (
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/wonny/factorlab/internal/contracts"
)

// RegressionOptions tunes the rolling regression pass
type RegressionOptions struct {
	Workers int // parallel stocks; <= 0 means GOMAXPROCS
}

// BetaSigma holds the outputs of one rolling regression pass
type BetaSigma struct {
	Beta   *contracts.Panel // HBETA: rolling slope on the market
	Sigma  *contracts.Panel // HSIGMA: sample std of the window residuals
	BetaSE *contracts.Panel // Newey-West standard error of beta
}

// HBetaSigma runs a rolling OLS r = α + β·mkt for every stock
// ⭐ SSOT: HBETA/HSIGMA 계산은 여기서만
//
// Each stock gets its own output column; stocks are processed in parallel and written
// back by index, so the result does not depend on scheduling. lag only enters the
// standard error, never the point estimate.
func HBetaSigma(returns *contracts.Panel, market *contracts.Series, window, lag int, opts RegressionOptions) (*BetaSigma, error) {
	if window < 2 {
		return nil, fmt.Errorf("%w: regression window must be at least 2, got %d", contracts.ErrInvalidConfig, window)
	}
	if lag < 0 || lag >= window {
		return nil, fmt.Errorf("%w: lag must satisfy 0 <= lag < window, got %d", contracts.ErrInvalidConfig, lag)
	}
	mkt, err := market.AlignTo(returns)
	if err != nil {
		return nil, fmt.Errorf("hbeta market: %w", err)
	}

	result := &BetaSigma{
		Beta:   contracts.NewPanelLike(returns),
		Sigma:  contracts.NewPanelLike(returns),
		BetaSE: contracts.NewPanelLike(returns),
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for s := 0; s < returns.Width(); s++ {
		s := s
		g.Go(func() error {
			beta, sigma, se := regressColumn(returns.Column(s), mkt, window, lag)
			result.Beta.SetColumn(s, beta)
			result.Sigma.SetColumn(s, sigma)
			result.BetaSE.SetColumn(s, se)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return result, nil
}

// regressColumn rolls the regression over one stock
func regressColumn(y, x []float64, w, lag int) (beta, sigma, se []float64) {
	n := len(y)
	beta = make([]float64, n)
	sigma = make([]float64, n)
	se = make([]float64, n)
	resid := make([]float64, w)

	for t := 0; t < n; t++ {
		beta[t], sigma[t], se[t] = math.NaN(), math.NaN(), math.NaN()

		ys, okY := fullWindow(y, t, w)
		xs, okX := fullWindow(x, t, w)
		if !okY || !okX {
			continue
		}
		if stat.Variance(xs, nil) == 0 {
			continue
		}

		alpha, b := stat.LinearRegression(xs, ys, nil, false)
		for i := range ys {
			resid[i] = ys[i] - alpha - b*xs[i]
		}

		beta[t] = b
		sigma[t] = stat.StdDev(resid, nil)
		se[t] = neweyWestSE(xs, resid, lag)
	}
	return beta, sigma, se
}

// neweyWestSE is the HAC standard error of the slope with Bartlett weights
func neweyWestSE(x, resid []float64, lag int) float64 {
	xbar := stat.Mean(x, nil)
	u := make([]float64, len(x)) // score (x - x̄)·e
	sxx := 0.0
	for i := range x {
		d := x[i] - xbar
		sxx += d * d
		u[i] = d * resid[i]
	}

	s := 0.0
	for _, v := range u {
		s += v * v
	}
	for l := 1; l <= lag; l++ {
		w := 1 - float64(l)/float64(lag+1)
		acc := 0.0
		for i := l; i < len(u); i++ {
			acc += u[i] * u[i-l]
		}
		s += 2 * w * acc
	}

	if sxx == 0 || s < 0 {
		return math.NaN()
	}
	return math.Sqrt(s) / sxx
}
