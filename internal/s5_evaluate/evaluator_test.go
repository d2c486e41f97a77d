package s5_evaluate

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/factorlab/internal/contracts"
	"github.com/wonny/factorlab/internal/runconfig"
)

func fixture(t *testing.T) (*contracts.Panel, *contracts.Panel) {
	t.Helper()
	dates := []time.Time{
		time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC),
	}
	stocks := []string{"A", "B", "C", "D"}

	factor, err := contracts.NewPanelFromRows(dates, stocks, [][]float64{
		{1, 2, 3, 100},
		{4, 3, 2, 1},
		{1, math.NaN(), 2, 3},
	})
	require.NoError(t, err)

	prices, err := contracts.NewPanelFromRows(dates, stocks, [][]float64{
		{10, 20, 30, 40},
		{11, 19, 33, 40},
		{12, 18, 30, 44},
	})
	require.NoError(t, err)
	return factor, prices
}

func TestPrepare(t *testing.T) {
	factor, prices := fixture(t)

	table, err := Prepare(factor, prices, contracts.IndustryMap{"A": "IT", "B": "IT"}, Options{
		Intervals:    []int{1},
		WinsorizePct: 0.25,
		Bins:         2,
	})
	require.NoError(t, err)
	assert.Equal(t, 11, table.Len(), "one missing factor cell is dropped")

	// z-scores of each date have mean 0
	byDate := map[time.Time][]float64{}
	for _, r := range table.Rows {
		byDate[r.Date] = append(byDate[r.Date], r.Factor)
	}
	for d, values := range byDate {
		sum := 0.0
		for _, v := range values {
			sum += v
		}
		assert.InDelta(t, 0, sum, 1e-9, d.Format("2006-01-02"))
	}

	assert.InDelta(t, 0.1, table.Rows[0].Returns[0], 1e-12)

	var buf bytes.Buffer
	require.NoError(t, table.WriteCSV(&buf))
	assert.True(t, strings.HasPrefix(buf.String(), "date,stock,industry,factor,ret_1,bucket"))
}

func TestPrepare_InvalidOptions(t *testing.T) {
	factor, prices := fixture(t)

	_, err := Prepare(factor, prices, nil, Options{Intervals: []int{1}, WinsorizePct: 0.5, Bins: 2})
	assert.ErrorIs(t, err, contracts.ErrInvalidConfig)

	_, err = Prepare(factor, prices, nil, Options{Intervals: nil, Bins: 2})
	assert.ErrorIs(t, err, contracts.ErrInvalidConfig)

	_, err = Prepare(factor, prices, nil, Options{Intervals: []int{1}, Bins: 0})
	assert.ErrorIs(t, err, contracts.ErrInvalidConfig)
}

func TestOptionsFromRun(t *testing.T) {
	pct, by := 0.05, true
	cfg := &runconfig.Config{Evaluation: runconfig.Evaluation{
		Intervals:    []int{1, 5},
		WinsorizePct: &pct,
		Bins:         10,
		ByIndustry:   &by,
	}}

	assert.Equal(t, Options{Intervals: []int{1, 5}, WinsorizePct: 0.05, Bins: 10, ByIndustry: true}, OptionsFromRun(cfg))
	assert.Equal(t, Options{}, OptionsFromRun(&runconfig.Config{}))
}
