package contracts

import (
	"fmt"
	"time"
)

// Series is a single time series shared across all stocks (risk-free rate, market return)
type Series struct {
	Dates  []time.Time
	Values []float64
}

// AlignTo returns the series values when they sit on the panel's date axis
func (s *Series) AlignTo(p *Panel) ([]float64, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil series", ErrMisaligned)
	}
	if len(s.Values) != len(s.Dates) {
		return nil, fmt.Errorf("%w: series has %d values for %d dates", ErrMisaligned, len(s.Values), len(s.Dates))
	}
	if len(s.Dates) != len(p.Dates) {
		return nil, fmt.Errorf("%w: series has %d dates, panel has %d", ErrMisaligned, len(s.Dates), len(p.Dates))
	}
	for i := range s.Dates {
		if !s.Dates[i].Equal(p.Dates[i]) {
			return nil, fmt.Errorf("%w: date %d differs (%s vs %s)", ErrMisaligned, i,
				s.Dates[i].Format("2006-01-02"), p.Dates[i].Format("2006-01-02"))
		}
	}
	return s.Values, nil
}

// ConstantSeries builds a flat series on the panel's date axis
func ConstantSeries(p *Panel, v float64) *Series {
	values := make([]float64, len(p.Dates))
	for i := range values {
		values[i] = v
	}
	return &Series{Dates: append([]time.Time(nil), p.Dates...), Values: values}
}
