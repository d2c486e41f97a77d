package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/factorlab/internal/contracts"
	"github.com/wonny/factorlab/internal/runconfig"
	"github.com/wonny/factorlab/internal/s2_factors"
	"github.com/wonny/factorlab/pkg/logger"
)

type stubBuilder struct {
	stocks []string
	err    error
}

func (b *stubBuilder) Build(_ context.Context, cfg *runconfig.Config, stocks []string) (*s2_factors.FactorSet, error) {
	b.stocks = stocks
	if b.err != nil {
		return nil, b.err
	}
	p, _ := contracts.NewPanel([]time.Time{time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)}, stocks)
	return &s2_factors.FactorSet{
		RunID:   cfg.Meta.RunID,
		RunHash: "abc",
		Names:   []string{"hbeta"},
		Panels:  map[string]*contracts.Panel{"hbeta": p},
	}, nil
}

type stubSaver struct {
	hash  string
	names []string
}

func (s *stubSaver) SaveAll(_ context.Context, runHash string, names []string, _ map[string]*contracts.Panel) (int, error) {
	s.hash, s.names = runHash, names
	return 7, nil
}

type stubUniverse struct {
	market string
}

func (u *stubUniverse) Universe(_ context.Context, market string) ([]string, error) {
	u.market = market
	return []string{"005930", "000660"}, nil
}

func TestFactorJob_Run(t *testing.T) {
	cfg := &runconfig.Config{
		Meta:     runconfig.Meta{RunID: "kospi"},
		Universe: runconfig.Universe{Market: "KOSPI"},
	}
	builder, saver, universe := &stubBuilder{}, &stubSaver{}, &stubUniverse{}
	job := NewFactorJob(cfg, builder, saver, universe, logger.Nop())

	assert.Equal(t, "factor_kospi", job.Name())
	assert.Equal(t, "0 30 18 * * 1-5", job.Schedule())

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, "KOSPI", universe.market)
	assert.Equal(t, []string{"005930", "000660"}, builder.stocks)
	assert.Equal(t, "abc", saver.hash)
	assert.Equal(t, []string{"hbeta"}, saver.names)
}

func TestFactorJob_ExplicitStocksAndErrors(t *testing.T) {
	cfg := &runconfig.Config{
		Meta:     runconfig.Meta{RunID: "custom"},
		Universe: runconfig.Universe{Stocks: []string{"035720"}},
		Schedule: runconfig.Schedule{Cron: "@daily"},
	}
	builder, universe := &stubBuilder{err: errors.New("boom")}, &stubUniverse{}
	job := NewFactorJob(cfg, builder, &stubSaver{}, universe, logger.Nop())

	assert.Equal(t, "@daily", job.Schedule())
	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "build factors")
	assert.Empty(t, universe.market, "explicit stocks skip the universe lookup")
	assert.Equal(t, []string{"035720"}, builder.stocks)
}

type stubExecer struct {
	args []any
}

func (e *stubExecer) Exec(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
	e.args = args
	return pgconn.NewCommandTag("DELETE 3"), nil
}

func TestRetentionJob_Run(t *testing.T) {
	db := &stubExecer{}
	job := NewRetentionJob(db, 30*24*time.Hour, logger.Nop())
	job.now = func() time.Time { return time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC) }

	require.NoError(t, job.Run(context.Background()))
	require.Len(t, db.args, 1)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), db.args[0])
}
