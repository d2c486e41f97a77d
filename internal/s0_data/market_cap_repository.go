package s0_data

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/factorlab/internal/contracts"
)

// FieldMarketCap is the only field served by MarketCapRepository
const FieldMarketCap = "market_cap"

// MarketCapRepository reads market capitalisation panels
// With a non-daily frequency every date sees the value at the close of the previous
// period (last month-end for M), so the panel never looks at the current period.
type MarketCapRepository struct {
	db   Querier
	freq contracts.Frequency
}

// NewMarketCapRepository creates a market cap repository resampled at freq
func NewMarketCapRepository(db Querier, freq contracts.Frequency) (*MarketCapRepository, error) {
	f, err := contracts.ParseFrequency(string(freq))
	if err != nil {
		return nil, err
	}
	return &MarketCapRepository{db: db, freq: f}, nil
}

// Fetch returns market cap for stocks over [from, to]
func (r *MarketCapRepository) Fetch(ctx context.Context, stocks []string, from, to time.Time, field string) (*contracts.Panel, error) {
	if err := checkRange(stocks, from, to); err != nil {
		return nil, err
	}
	if field != "" && field != FieldMarketCap {
		return nil, fmt.Errorf("%w: unknown market cap field %q", contracts.ErrInvalidConfig, field)
	}

	query := `
		SELECT stock_code, trade_date, market_cap::float8
		FROM data.market_cap
		WHERE stock_code = ANY($1) AND trade_date BETWEEN $2 AND $3
		ORDER BY trade_date, stock_code
	`

	rows, err := r.db.Query(ctx, query, stocks, from.AddDate(0, 0, -periodWarmupDays(r.freq)), to)
	if err != nil {
		return nil, fmt.Errorf("query market cap: %w", err)
	}
	points, err := collect(rows)
	if err != nil {
		return nil, fmt.Errorf("read market cap: %w", err)
	}
	panel, err := pivot(stocks, points)
	if err != nil {
		return nil, err
	}

	return trim(previousPeriodEnd(panel, r.freq), from, to), nil
}

// previousPeriodEnd replaces each value by the one at the previous period's last date
func previousPeriodEnd(p *contracts.Panel, freq contracts.Frequency) *contracts.Panel {
	if freq == contracts.FreqDaily {
		return p
	}
	anchors := contracts.Anchors(p.Dates, freq)
	out := contracts.NewPanelLike(p)
	for s := 0; s < p.Width(); s++ {
		col := p.Column(s)
		vals := make([]float64, len(anchors))
		for j, a := range anchors {
			vals[j] = col[a]
		}
		out.SetColumn(s, contracts.PreviousPeriodEnd(p.Len(), anchors, vals))
	}
	return out
}

// periodWarmupDays is enough history for one full previous period
func periodWarmupDays(freq contracts.Frequency) int {
	switch freq {
	case contracts.FreqWeekly:
		return 14
	case contracts.FreqMonthly:
		return 62
	case contracts.FreqYearly:
		return 370
	default:
		return 0
	}
}
