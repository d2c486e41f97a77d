package s0_data

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/factorlab/internal/contracts"
)

// fundamentalFields are the announcement-dated columns of data.fundamentals
var fundamentalFields = map[string]bool{
	"revenue":          true,
	"operating_profit": true,
	"net_profit":       true,
	"roe":              true,
	"debt_ratio":       true,
	"per":              true,
	"pbr":              true,
}

// FundamentalLookback is how far before the range start announcements are read,
// so the first requested day already carries the latest filing.
const FundamentalLookback = 262 * 24 * time.Hour

// FundamentalRepository reads announcement-dated fundamentals as calendar-daily panels
// ⭐ SSOT: 재무 데이터 패널 조회는 여기서만
type FundamentalRepository struct {
	db Querier
}

// NewFundamentalRepository creates a new fundamentals repository
func NewFundamentalRepository(db Querier) *FundamentalRepository {
	return &FundamentalRepository{db: db}
}

// Fetch returns field for stocks on every calendar day of [from, to]
// Each day carries the most recent announcement on or before it.
func (r *FundamentalRepository) Fetch(ctx context.Context, stocks []string, from, to time.Time, field string) (*contracts.Panel, error) {
	if err := checkRange(stocks, from, to); err != nil {
		return nil, err
	}
	if !fundamentalFields[field] {
		return nil, fmt.Errorf("%w: unknown fundamental field %q", contracts.ErrInvalidConfig, field)
	}

	// field is allow-listed above
	query := fmt.Sprintf(`
		SELECT stock_code, report_date, %s
		FROM data.fundamentals
		WHERE stock_code = ANY($1) AND report_date BETWEEN $2 AND $3
		ORDER BY stock_code, report_date, created_at
	`, field)

	start := from.Add(-FundamentalLookback)
	rows, err := r.db.Query(ctx, query, stocks, start, to)
	if err != nil {
		return nil, fmt.Errorf("query fundamentals (%s): %w", field, err)
	}
	defer rows.Close()

	var points []point
	for rows.Next() {
		var (
			p     point
			value decimal.NullDecimal
		)
		if err := rows.Scan(&p.Stock, &p.Date, &value); err != nil {
			return nil, fmt.Errorf("scan fundamentals (%s): %w", field, err)
		}
		p.Value = math.NaN()
		if value.Valid {
			p.Value = value.Decimal.InexactFloat64()
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read fundamentals (%s): %w", field, err)
	}

	return calendarFill(stocks, points, start, from, to)
}

// calendarFill lays announcements on the calendar days of [start, to], carries each
// stock's last value forward, then keeps [from, to]
// Duplicate (stock, date) announcements keep the last one read.
func calendarFill(stocks []string, points []point, start, from, to time.Time) (*contracts.Panel, error) {
	start, to = truncateDay(start), truncateDay(to)
	var days []time.Time
	for d := start; !d.After(to); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}

	panel, err := contracts.NewPanel(days, stocks)
	if err != nil {
		return nil, err
	}
	for _, p := range points {
		s, ok := panel.StockIndex(p.Stock)
		if !ok {
			continue
		}
		t := int(truncateDay(p.Date).Sub(start).Hours() / 24)
		if t < 0 || t >= len(days) {
			continue
		}
		panel.Set(t, s, p.Value)
	}

	for s := 0; s < panel.Width(); s++ {
		last := math.NaN()
		for t := 0; t < panel.Len(); t++ {
			if v := panel.At(t, s); !math.IsNaN(v) {
				last = v
				continue
			}
			panel.Set(t, s, last)
		}
	}

	return trim(panel, from, to), nil
}
