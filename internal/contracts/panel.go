package contracts

import (
	"fmt"
	"math"
	"time"
)

// Panel is a date × stock table of float64 values
// ⭐ SSOT: 모든 팩터 연산이 공유하는 데이터 구조
//
// Dates are strictly ascending, stock codes are unique. A missing cell is NaN.
type Panel struct {
	Dates  []time.Time
	Stocks []string
	Values [][]float64 // [date][stock]

	index map[string]int
}

// Cell is one non-missing panel value in long form
type Cell struct {
	Date  time.Time
	Stock string
	Value float64
}

// NewPanel creates an all-missing panel on the given axes
func NewPanel(dates []time.Time, stocks []string) (*Panel, error) {
	for i := 1; i < len(dates); i++ {
		if !dates[i].After(dates[i-1]) {
			return nil, fmt.Errorf("%w: dates not strictly ascending at %d (%s)",
				ErrInvalidPanel, i, dates[i].Format("2006-01-02"))
		}
	}

	index := make(map[string]int, len(stocks))
	for i, code := range stocks {
		if _, dup := index[code]; dup {
			return nil, fmt.Errorf("%w: duplicate stock %s", ErrInvalidPanel, code)
		}
		index[code] = i
	}

	values := make([][]float64, len(dates))
	for t := range values {
		row := make([]float64, len(stocks))
		for s := range row {
			row[s] = math.NaN()
		}
		values[t] = row
	}

	return &Panel{
		Dates:  append([]time.Time(nil), dates...),
		Stocks: append([]string(nil), stocks...),
		Values: values,
		index:  index,
	}, nil
}

// NewPanelLike creates an all-missing panel sharing p's axes
func NewPanelLike(p *Panel) *Panel {
	out, _ := NewPanel(p.Dates, p.Stocks) // axes already validated
	return out
}

// NewPanelFromRows builds a panel from rows of values; every row must match len(stocks)
func NewPanelFromRows(dates []time.Time, stocks []string, rows [][]float64) (*Panel, error) {
	if len(rows) != len(dates) {
		return nil, fmt.Errorf("%w: %d rows for %d dates", ErrInvalidPanel, len(rows), len(dates))
	}

	p, err := NewPanel(dates, stocks)
	if err != nil {
		return nil, err
	}

	for t, row := range rows {
		if len(row) != len(stocks) {
			return nil, fmt.Errorf("%w: row %d has %d values for %d stocks", ErrInvalidPanel, t, len(row), len(stocks))
		}
		copy(p.Values[t], row)
	}
	return p, nil
}

// Len returns the number of dates
func (p *Panel) Len() int {
	return len(p.Dates)
}

// Width returns the number of stocks
func (p *Panel) Width() int {
	return len(p.Stocks)
}

// At returns the value at date index t and stock index s
func (p *Panel) At(t, s int) float64 {
	return p.Values[t][s]
}

// Set sets the value at date index t and stock index s
func (p *Panel) Set(t, s int, v float64) {
	p.Values[t][s] = v
}

// StockIndex returns the column index of a stock code
func (p *Panel) StockIndex(code string) (int, bool) {
	if p.index == nil {
		p.index = make(map[string]int, len(p.Stocks))
		for i, c := range p.Stocks {
			p.index[c] = i
		}
	}
	i, ok := p.index[code]
	return i, ok
}

// Column returns a copy of one stock's time series
func (p *Panel) Column(s int) []float64 {
	col := make([]float64, len(p.Dates))
	for t := range p.Values {
		col[t] = p.Values[t][s]
	}
	return col
}

// SetColumn overwrites one stock's time series
func (p *Panel) SetColumn(s int, col []float64) {
	for t := range p.Values {
		p.Values[t][s] = col[t]
	}
}

// Row returns a copy of one date's cross-section
func (p *Panel) Row(t int) []float64 {
	return append([]float64(nil), p.Values[t]...)
}

// Clone returns a deep copy
func (p *Panel) Clone() *Panel {
	out := NewPanelLike(p)
	for t := range p.Values {
		copy(out.Values[t], p.Values[t])
	}
	return out
}

// Map applies fn element-wise; missing cells stay missing
func (p *Panel) Map(fn func(float64) float64) *Panel {
	out := NewPanelLike(p)
	for t, row := range p.Values {
		for s, v := range row {
			if !math.IsNaN(v) {
				out.Values[t][s] = fn(v)
			}
		}
	}
	return out
}

// SameAxes reports whether two panels share dates and stocks
func (p *Panel) SameAxes(o *Panel) bool {
	if len(p.Dates) != len(o.Dates) || len(p.Stocks) != len(o.Stocks) {
		return false
	}
	for i := range p.Dates {
		if !p.Dates[i].Equal(o.Dates[i]) {
			return false
		}
	}
	for i := range p.Stocks {
		if p.Stocks[i] != o.Stocks[i] {
			return false
		}
	}
	return true
}

// Stack reshapes wide to long, date-major, dropping missing cells
func (p *Panel) Stack() []Cell {
	cells := make([]Cell, 0, len(p.Dates)*len(p.Stocks))
	for t, row := range p.Values {
		for s, v := range row {
			if math.IsNaN(v) {
				continue
			}
			cells = append(cells, Cell{Date: p.Dates[t], Stock: p.Stocks[s], Value: v})
		}
	}
	return cells
}

// Coverage returns the share of non-missing cells (0.0 ~ 1.0)
func (p *Panel) Coverage() float64 {
	total := len(p.Dates) * len(p.Stocks)
	if total == 0 {
		return 0.0
	}
	return float64(len(p.Stack())) / float64(total)
}

// Reindex returns p on a new date axis; dates absent from p are missing
func (p *Panel) Reindex(dates []time.Time) (*Panel, error) {
	out, err := NewPanel(dates, p.Stocks)
	if err != nil {
		return nil, err
	}
	src := make(map[int64]int, len(p.Dates))
	for t, d := range p.Dates {
		src[d.Unix()] = t
	}
	for t, d := range dates {
		if i, ok := src[d.Unix()]; ok {
			copy(out.Values[t], p.Values[i])
		}
	}
	return out, nil
}
