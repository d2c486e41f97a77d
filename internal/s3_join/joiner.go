package s3_join

import (
	"fmt"
	"math"
	"time"

	"github.com/wonny/factorlab/internal/contracts"
	"github.com/wonny/factorlab/internal/s1_returns"
)

// JoinedRow is one (date, stock, industry) row of a JoinedTable
type JoinedRow struct {
	Date     time.Time
	Stock    string
	Industry string    // contracts.UnknownIndustry when the stock is not mapped
	Factor   float64   // never missing
	Returns  []float64 // forward simple returns aligned with JoinedTable.Intervals
}

// JoinedTable aligns one factor with its forward returns, keyed by (date, stock, industry)
type JoinedTable struct {
	Intervals []int
	Rows      []JoinedRow

	buckets []int // optional, set by SetBuckets
}

// Join stacks a factor panel and left-joins forward simple returns and industries onto it
// ⭐ SSOT: 팩터-수익률 정렬은 여기서만
//
// Every non-missing factor cell becomes one row, in factor panel order. Factor cells
// outside the price panel keep NaN returns. Industry membership is static for the run:
// one label per stock regardless of date.
func Join(factor, prices *contracts.Panel, industries contracts.IndustryMap, intervals []int) (*JoinedTable, error) {
	returns, err := s1_returns.Calculate(prices, intervals, s1_returns.Options{Log: false, Forward: true})
	if err != nil {
		return nil, fmt.Errorf("forward returns: %w", err)
	}

	dateIdx := make(map[int64]int, prices.Len())
	for t, d := range prices.Dates {
		dateIdx[d.Unix()] = t
	}

	cells := factor.Stack()
	table := &JoinedTable{
		Intervals: append([]int(nil), returns.Intervals...),
		Rows:      make([]JoinedRow, 0, len(cells)),
	}

	for _, c := range cells {
		row := JoinedRow{
			Date:   c.Date,
			Stock:  c.Stock,
			Factor: c.Value,
		}
		row.Industry, _ = industries.Lookup(c.Stock)

		t, okDate := dateIdx[c.Date.Unix()]
		s, okStock := prices.StockIndex(c.Stock)
		if okDate && okStock {
			row.Returns = returns.Lookup(t, s)
		} else {
			row.Returns = missingReturns(len(table.Intervals))
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

func missingReturns(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// Len returns the number of rows
func (j *JoinedTable) Len() int {
	return len(j.Rows)
}

// Observations exposes the factor column for cross-sectional operations
func (j *JoinedTable) Observations() []contracts.Observation {
	obs := make([]contracts.Observation, len(j.Rows))
	for i, r := range j.Rows {
		obs[i] = contracts.Observation{Date: r.Date, Stock: r.Stock, Industry: r.Industry, Value: r.Factor}
	}
	return obs
}

// WithFactor returns a copy whose factor column is replaced (e.g. by normalized values)
// Rows whose new value is missing are dropped, keeping the table free of missing factors.
func (j *JoinedTable) WithFactor(values []float64) (*JoinedTable, error) {
	if len(values) != len(j.Rows) {
		return nil, fmt.Errorf("%w: %d values for %d rows", contracts.ErrMisaligned, len(values), len(j.Rows))
	}
	out := &JoinedTable{Intervals: j.Intervals, Rows: make([]JoinedRow, 0, len(j.Rows))}
	for i, r := range j.Rows {
		if math.IsNaN(values[i]) {
			continue
		}
		r.Factor = values[i]
		out.Rows = append(out.Rows, r)
	}
	return out, nil
}

// ReturnColumn names the forward-return column of interval k
func ReturnColumn(k int) string {
	return fmt.Sprintf("ret_%d", k)
}
