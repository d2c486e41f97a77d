package s0_data

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/factorlab/internal/contracts"
)

// Daily price fields served by PanelRepository
const (
	FieldOpen      = "open"
	FieldHigh      = "high"
	FieldLow       = "low"
	FieldClose     = "close"
	FieldVolume    = "volume"
	FieldAmount    = "amount"
	FieldPrevClose = "prev_close"
	FieldPctChange = "pct_change"
)

// priceExpr maps a field to its SQL expression over data.daily_prices
// prev_close and pct_change are derived with LAG over a short warm-up range.
var priceExpr = map[string]string{
	FieldOpen:      "open_price::float8",
	FieldHigh:      "high_price::float8",
	FieldLow:       "low_price::float8",
	FieldClose:     "close_price::float8",
	FieldVolume:    "volume::float8",
	FieldAmount:    "trading_value::float8",
	FieldPrevClose: "(LAG(close_price) OVER w)::float8",
	FieldPctChange: "(close_price::float8 / NULLIF((LAG(close_price) OVER w)::float8, 0) - 1)",
}

// lagWarmup covers long holidays so the first requested day still has a previous close
const lagWarmup = 14 * 24 * time.Hour

// PanelRepository reads daily price panels
// ⭐ SSOT: 가격 패널 조회는 여기서만
type PanelRepository struct {
	db Querier
}

// NewPanelRepository creates a new price panel repository
func NewPanelRepository(db Querier) *PanelRepository {
	return &PanelRepository{db: db}
}

// Fetch returns field for stocks over [from, to], dates = trading days with any row
func (r *PanelRepository) Fetch(ctx context.Context, stocks []string, from, to time.Time, field string) (*contracts.Panel, error) {
	if err := checkRange(stocks, from, to); err != nil {
		return nil, err
	}
	expr, ok := priceExpr[field]
	if !ok {
		return nil, fmt.Errorf("%w: unknown price field %q", contracts.ErrInvalidConfig, field)
	}

	query := fmt.Sprintf(`
		SELECT stock_code, trade_date, value
		FROM (
			SELECT stock_code, trade_date, %s AS value
			FROM data.daily_prices
			WHERE stock_code = ANY($1) AND trade_date BETWEEN $2 AND $3
			WINDOW w AS (PARTITION BY stock_code ORDER BY trade_date)
		) p
		WHERE trade_date >= $4
		ORDER BY trade_date, stock_code
	`, expr)

	rows, err := r.db.Query(ctx, query, stocks, from.Add(-lagWarmup), to, from)
	if err != nil {
		return nil, fmt.Errorf("query daily prices (%s): %w", field, err)
	}
	points, err := collect(rows)
	if err != nil {
		return nil, fmt.Errorf("read daily prices (%s): %w", field, err)
	}
	return pivot(stocks, points)
}
