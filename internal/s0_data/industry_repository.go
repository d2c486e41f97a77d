package s0_data

import (
	"context"
	"fmt"

	"github.com/wonny/factorlab/internal/contracts"
)

// IndustryRepository reads the static stock → sector mapping
type IndustryRepository struct {
	db Querier
}

// NewIndustryRepository creates a new industry repository
func NewIndustryRepository(db Querier) *IndustryRepository {
	return &IndustryRepository{db: db}
}

// Industries returns the sector of each requested stock; unmapped stocks are absent
func (r *IndustryRepository) Industries(ctx context.Context, stocks []string) (contracts.IndustryMap, error) {
	query := `
		SELECT code, COALESCE(sector, '')
		FROM data.stocks
		WHERE code = ANY($1)
	`

	rows, err := r.db.Query(ctx, query, stocks)
	if err != nil {
		return nil, fmt.Errorf("query industries: %w", err)
	}
	defer rows.Close()

	industries := make(contracts.IndustryMap, len(stocks))
	for rows.Next() {
		var code, sector string
		if err := rows.Scan(&code, &sector); err != nil {
			return nil, fmt.Errorf("scan industry: %w", err)
		}
		if sector == contracts.UnknownIndustry {
			continue
		}
		industries[code] = sector
	}
	return industries, rows.Err()
}

// Universe returns active stock codes, optionally limited to one market
func (r *IndustryRepository) Universe(ctx context.Context, market string) ([]string, error) {
	query := `
		SELECT code
		FROM data.stocks
		WHERE status = 'active' AND ($1 = '' OR market = $1)
		ORDER BY code
	`

	rows, err := r.db.Query(ctx, query, market)
	if err != nil {
		return nil, fmt.Errorf("query universe: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scan universe: %w", err)
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}
