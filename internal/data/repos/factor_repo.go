package repos

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/factorlab/internal/contracts"
	"github.com/wonny/factorlab/internal/s0_data"
)

// DB is the subset of pgxpool.Pool the factor repository needs
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// FactorRepository stores computed factor panels
// ⭐ SSOT: 팩터 값 저장/조회는 여기서만
type FactorRepository struct {
	pool DB
}

// NewFactorRepository creates a new factor repository
func NewFactorRepository(pool DB) *FactorRepository {
	return &FactorRepository{pool: pool}
}

const upsertFactorValue = `
	INSERT INTO factors.factor_values (stock_code, calc_date, factor, value, run_hash)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (factor, calc_date, stock_code) DO UPDATE SET
		value = EXCLUDED.value,
		run_hash = EXCLUDED.run_hash,
		created_at = NOW()
`

// Save upserts every non-missing cell of p under factor in one transaction
// Returns the number of rows written.
func (r *FactorRepository) Save(ctx context.Context, factor, runHash string, p *contracts.Panel) (int, error) {
	var cells []contracts.Cell
	for _, c := range p.Stack() {
		if isStorable(c.Value) {
			cells = append(cells, c)
		}
	}
	if len(cells) == 0 {
		return 0, nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, c := range cells {
		batch.Queue(upsertFactorValue, c.Stock, c.Date, factor, c.Value, runHash)
	}

	br := tx.SendBatch(ctx, batch)
	for i := range cells {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return 0, fmt.Errorf("failed to save %s for %s on %s: %w",
				factor, cells[i].Stock, cells[i].Date.Format("2006-01-02"), err)
		}
	}
	if err := br.Close(); err != nil {
		return 0, fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return len(cells), nil
}

// SaveAll stores several factors; names fixes the write order
func (r *FactorRepository) SaveAll(ctx context.Context, runHash string, names []string, panels map[string]*contracts.Panel) (int, error) {
	total := 0
	for _, name := range names {
		p, ok := panels[name]
		if !ok {
			continue
		}
		n, err := r.Save(ctx, name, runHash, p)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// Fetch implements s0_data.Fetcher: field is the stored factor name
func (r *FactorRepository) Fetch(ctx context.Context, stocks []string, from, to time.Time, field string) (*contracts.Panel, error) {
	if err := s0_data.CheckRange(stocks, from, to); err != nil {
		return nil, err
	}

	query := `
		SELECT stock_code, calc_date, value
		FROM factors.factor_values
		WHERE factor = $1
		  AND stock_code = ANY($2)
		  AND calc_date BETWEEN $3 AND $4
		ORDER BY calc_date, stock_code
	`

	rows, err := r.pool.Query(ctx, query, field, stocks, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query factor %s: %w", field, err)
	}
	return s0_data.ScanPanel(rows, stocks)
}

// Latest returns the last stored date of a factor; zero time when nothing is stored
func (r *FactorRepository) Latest(ctx context.Context, factor string) (time.Time, error) {
	rows, err := r.pool.Query(ctx, `SELECT MAX(calc_date) FROM factors.factor_values WHERE factor = $1`, factor)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to query latest %s: %w", factor, err)
	}
	defer rows.Close()

	var latest *time.Time
	if rows.Next() {
		if err := rows.Scan(&latest); err != nil {
			return time.Time{}, fmt.Errorf("failed to scan latest: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return time.Time{}, err
	}
	if latest == nil {
		return time.Time{}, nil
	}
	return *latest, nil
}

var _ s0_data.Fetcher = (*FactorRepository)(nil)

// isStorable reports whether a value can be written to a DOUBLE PRECISION NOT NULL column
func isStorable(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
