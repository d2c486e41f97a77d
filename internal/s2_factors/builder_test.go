package s2_factors

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/factorlab/internal/contracts"
	"github.com/wonny/factorlab/internal/runconfig"
	"github.com/wonny/factorlab/internal/s0_data"
	"github.com/wonny/factorlab/internal/s0_data/quality"
)

type fakeFetcher struct {
	panels    map[string]*contracts.Panel
	requested []string
	err       error
}

func (f *fakeFetcher) Fetch(_ context.Context, _ []string, _, _ time.Time, field string) (*contracts.Panel, error) {
	f.requested = append(f.requested, field)
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.panels[field]
	if !ok {
		return nil, contracts.ErrInvalidConfig
	}
	return p, nil
}

func builderFixture(t *testing.T, n int) (*fakeFetcher, []time.Time) {
	t.Helper()
	dates := consecutiveDays(n)
	closeA := make([]float64, n)
	closeB := make([]float64, n)
	for i := range closeA {
		closeA[i] = 100 * (1 + 0.01*math.Sin(float64(i)))
		closeB[i] = 50 * (1 + 0.02*math.Cos(float64(i)))
	}
	closes := column(t, dates, closeA, closeB)
	return &fakeFetcher{panels: map[string]*contracts.Panel{
		s0_data.FieldClose:     closes,
		s0_data.FieldHigh:      closes.Map(func(v float64) float64 { return v * 1.01 }),
		s0_data.FieldLow:       closes.Map(func(v float64) float64 { return v * 0.98 }),
		s0_data.FieldMarketCap: closes.Map(func(v float64) float64 { return v * 1e6 }),
	}}, dates
}

func runFixture(start, end time.Time) *runconfig.Config {
	return &runconfig.Config{
		Meta:   runconfig.Meta{RunID: "test"},
		Period: runconfig.Period{Start: start.Format("2006-01-02"), End: end.Format("2006-01-02")},
		Inputs: runconfig.Inputs{RiskFreeAnnual: 0.0252, MarketWeight: runconfig.MarketWeightCap},
		Factors: []runconfig.Factor{
			{Name: runconfig.FactorCMRA, Window: 3, Freq: "D"},
			{Name: runconfig.FactorDHILO, Window: 2},
			{Name: runconfig.FactorDVRAT, Window: 5, Q: 2},
			{Name: runconfig.FactorHBETA, Window: 5, Lag: 1},
			{Name: runconfig.FactorHSIGMA, Window: 5, Lag: 1,
				Smooth: &runconfig.Smooth{Span: 3, Freq: "D", Method: runconfig.SmoothEWMA}},
		},
	}
}

func TestBuilder_Build(t *testing.T) {
	fetcher, dates := builderFixture(t, 30)
	cfg := runFixture(dates[10], dates[29])

	set, err := NewBuilder(fetcher, quality.NewQualityGate(quality.DefaultConfig()), nil, 2).
		Build(context.Background(), cfg, []string{"A", "B"})
	require.NoError(t, err)

	assert.Equal(t, cfg.FactorNames(), set.Names)
	assert.NotEmpty(t, set.RunHash)
	require.NotNil(t, set.Quality)
	assert.True(t, set.Quality.Passed)
	assert.ElementsMatch(t,
		[]string{s0_data.FieldClose, s0_data.FieldHigh, s0_data.FieldLow, s0_data.FieldMarketCap},
		fetcher.requested)

	for _, name := range set.Names {
		p, ok := set.Panel(name)
		require.True(t, ok, name)
		assert.Equal(t, 20, p.Len(), "%s trimmed to the period", name)
		assert.True(t, p.Dates[0].Equal(dates[10]), name)
		assert.Equal(t, []string{"A", "B"}, p.Stocks)
		assert.Greater(t, p.Coverage(), 0.9, "%s has enough warm-up history", name)
	}

	for _, v := range set.Panels[runconfig.FactorDHILO].Column(0) {
		assert.Less(t, v, 0.0)
	}
}

func TestBuilder_SharedDateAxis(t *testing.T) {
	fetcher, dates := builderFixture(t, 30)
	traded := append(append([]time.Time(nil), dates[:15]...), dates[16:]...)
	closes, err := fetcher.panels[s0_data.FieldClose].Reindex(traded)
	require.NoError(t, err)
	fetcher.panels[s0_data.FieldClose] = closes

	set, err := NewBuilder(fetcher, nil, nil, 1).
		Build(context.Background(), runFixture(dates[10], dates[29]), []string{"A", "B"})
	require.NoError(t, err)

	want := set.Panels[runconfig.FactorCMRA].Dates
	assert.Len(t, want, 19)
	for _, name := range set.Names {
		assert.Equal(t, want, set.Panels[name].Dates, "%s shares the return dates", name)
	}
}

func TestBuilder_FetchError(t *testing.T) {
	fetcher, dates := builderFixture(t, 10)
	fetcher.err = errors.New("connection refused")

	_, err := NewBuilder(fetcher, nil, nil, 1).Build(context.Background(), runFixture(dates[0], dates[9]), []string{"A"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch close")
}

func TestBuilder_QualityGate(t *testing.T) {
	fetcher, dates := builderFixture(t, 10)
	fetcher.panels[s0_data.FieldClose] = contracts.NewPanelLike(fetcher.panels[s0_data.FieldClose])

	_, err := NewBuilder(fetcher, quality.NewQualityGate(quality.DefaultConfig()), nil, 1).
		Build(context.Background(), runFixture(dates[0], dates[9]), []string{"A", "B"})
	assert.ErrorIs(t, err, ErrQualityGate)
}

func TestBuilder_InvalidFactor(t *testing.T) {
	fetcher, dates := builderFixture(t, 10)
	cfg := runFixture(dates[0], dates[9])
	cfg.Factors = []runconfig.Factor{{Name: runconfig.FactorDVRAT, Window: 5, Q: 5}}

	_, err := NewBuilder(fetcher, nil, nil, 1).Build(context.Background(), cfg, []string{"A", "B"})
	assert.ErrorIs(t, err, contracts.ErrInvalidConfig)

	_, err = NewBuilder(fetcher, nil, nil, 1).Build(context.Background(), cfg, nil)
	assert.ErrorIs(t, err, contracts.ErrInvalidConfig)
}

func TestRequiredFields(t *testing.T) {
	cfg := &runconfig.Config{
		Inputs:  runconfig.Inputs{MarketWeight: runconfig.MarketWeightEqual},
		Factors: []runconfig.Factor{{Name: runconfig.FactorHBETA}, {Name: runconfig.FactorCMRA}},
	}
	assert.Equal(t, []string{s0_data.FieldClose}, requiredFields(cfg))

	cfg.Inputs.MarketWeight = runconfig.MarketWeightCap
	cfg.Factors = append(cfg.Factors, runconfig.Factor{Name: runconfig.FactorDHILO})
	assert.Equal(t,
		[]string{s0_data.FieldClose, s0_data.FieldHigh, s0_data.FieldLow, s0_data.FieldMarketCap},
		requiredFields(cfg))
}

func TestMarketReturn(t *testing.T) {
	dates := consecutiveDays(3)
	returns := column(t, dates,
		[]float64{nan, 0.10, 0.02},
		[]float64{nan, 0.00, nan},
	)

	equal, err := marketReturn(returns, nil)
	require.NoError(t, err)
	assertColumn(t, []float64{nan, 0.05, 0.02}, equal.Values)

	caps := column(t, dates,
		[]float64{1, 3, 3},
		[]float64{1, 1, 1},
	)
	weighted, err := marketReturn(returns, caps)
	require.NoError(t, err)
	// day 2 drops the untraded stock from the weights
	assertColumn(t, []float64{nan, 0.075, 0.02}, weighted.Values)
}

func TestWarmupDays(t *testing.T) {
	cfg := &runconfig.Config{Factors: []runconfig.Factor{
		{Name: runconfig.FactorCMRA, Window: 12, Freq: "M"},
		{Name: runconfig.FactorHBETA, Window: 252},
	}}
	assert.Equal(t, 13*31, warmupDays(cfg))

	cfg.Factors = cfg.Factors[1:]
	cfg.Factors[0].Smooth = &runconfig.Smooth{Span: 20, Freq: "D"}
	assert.Equal(t, 252*7/5+10+40, warmupDays(cfg))
}
