package s0_data

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/factorlab/internal/contracts"
)

// Fetcher loads one field as a date × stock panel
// ⭐ SSOT: 분석 코어가 의존하는 유일한 외부 연산 (fetch)
type Fetcher interface {
	Fetch(ctx context.Context, stocks []string, from, to time.Time, field string) (*contracts.Panel, error)
}

// Querier is the subset of pgxpool.Pool the repositories need
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// point is one long-form (stock, date, value) record before pivoting
type point struct {
	Stock string
	Date  time.Time
	Value float64
}

// pivot builds a panel from long records
// The date axis is the sorted union of record dates; the stock axis is stocks in the
// requested order. Cells without a record stay NaN; a later duplicate overwrites.
func pivot(stocks []string, points []point) (*contracts.Panel, error) {
	seen := make(map[int64]time.Time)
	for _, p := range points {
		d := truncateDay(p.Date)
		seen[d.Unix()] = d
	}
	dates := make([]time.Time, 0, len(seen))
	for _, d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	panel, err := contracts.NewPanel(dates, stocks)
	if err != nil {
		return nil, err
	}

	dateIdx := make(map[int64]int, len(dates))
	for t, d := range dates {
		dateIdx[d.Unix()] = t
	}
	for _, p := range points {
		s, ok := panel.StockIndex(p.Stock)
		if !ok {
			continue
		}
		panel.Set(dateIdx[truncateDay(p.Date).Unix()], s, p.Value)
	}
	return panel, nil
}

// ScanPanel reads (stock_code, date, value) rows into a panel over stocks
func ScanPanel(rows pgx.Rows, stocks []string) (*contracts.Panel, error) {
	points, err := collect(rows)
	if err != nil {
		return nil, err
	}
	return pivot(stocks, points)
}

// CheckRange rejects an empty universe or an inverted date range
func CheckRange(stocks []string, from, to time.Time) error {
	return checkRange(stocks, from, to)
}

// collect scans (stock_code, date, value) rows; NULL values become NaN
func collect(rows pgx.Rows) ([]point, error) {
	defer rows.Close()

	var points []point
	for rows.Next() {
		var (
			p     point
			value *float64
		)
		if err := rows.Scan(&p.Stock, &p.Date, &value); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		p.Value = math.NaN()
		if value != nil {
			p.Value = *value
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func truncateDay(d time.Time) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func checkRange(stocks []string, from, to time.Time) error {
	if len(stocks) == 0 {
		return fmt.Errorf("%w: empty stock list", contracts.ErrInvalidConfig)
	}
	if to.Before(from) {
		return fmt.Errorf("%w: range end %s before start %s", contracts.ErrInvalidConfig,
			to.Format("2006-01-02"), from.Format("2006-01-02"))
	}
	return nil
}

// trim keeps the dates of p inside [from, to]
func trim(p *contracts.Panel, from, to time.Time) *contracts.Panel {
	lo, hi := truncateDay(from), truncateDay(to)
	var dates []time.Time
	var rows [][]float64
	for t, d := range p.Dates {
		if d.Before(lo) || d.After(hi) {
			continue
		}
		dates = append(dates, d)
		rows = append(rows, p.Values[t])
	}
	out, _ := contracts.NewPanelFromRows(dates, p.Stocks, rows) // subset of valid axes
	return out
}
