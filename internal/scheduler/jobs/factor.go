package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/factorlab/internal/contracts"
	"github.com/wonny/factorlab/internal/runconfig"
	"github.com/wonny/factorlab/internal/s2_factors"
	"github.com/wonny/factorlab/pkg/logger"
)

// FactorBuilder computes the factors of a run
type FactorBuilder interface {
	Build(ctx context.Context, cfg *runconfig.Config, stocks []string) (*s2_factors.FactorSet, error)
}

// FactorSaver persists computed factor panels
type FactorSaver interface {
	SaveAll(ctx context.Context, runHash string, names []string, panels map[string]*contracts.Panel) (int, error)
}

// UniverseSource resolves a market filter into stock codes
type UniverseSource interface {
	Universe(ctx context.Context, market string) ([]string, error)
}

// FactorJob recomputes and stores the factors of one run file
type FactorJob struct {
	cfg      *runconfig.Config
	builder  FactorBuilder
	saver    FactorSaver
	universe UniverseSource
	logger   *logger.Logger
}

// NewFactorJob creates a new factor job
func NewFactorJob(cfg *runconfig.Config, builder FactorBuilder, saver FactorSaver, universe UniverseSource, log *logger.Logger) *FactorJob {
	return &FactorJob{
		cfg:      cfg,
		builder:  builder,
		saver:    saver,
		universe: universe,
		logger:   log,
	}
}

// Name returns the job name
func (j *FactorJob) Name() string {
	return "factor_" + j.cfg.Meta.RunID
}

// Schedule returns the cron schedule of the run file (weekdays 18:30 by default)
func (j *FactorJob) Schedule() string {
	if j.cfg.Schedule.Cron != "" {
		return j.cfg.Schedule.Cron
	}
	return "0 30 18 * * 1-5"
}

// Run executes the factor computation
func (j *FactorJob) Run(ctx context.Context) error {
	stocks := j.cfg.Universe.Stocks
	if len(stocks) == 0 {
		var err error
		if stocks, err = j.universe.Universe(ctx, j.cfg.Universe.Market); err != nil {
			return fmt.Errorf("resolve universe: %w", err)
		}
	}

	set, err := j.builder.Build(ctx, j.cfg, stocks)
	if err != nil {
		return fmt.Errorf("build factors: %w", err)
	}

	saved, err := j.saver.SaveAll(ctx, set.RunHash, set.Names, set.Panels)
	if err != nil {
		return fmt.Errorf("save factors: %w", err)
	}

	j.logger.WithFields(map[string]interface{}{
		"job":     j.Name(),
		"stocks":  len(stocks),
		"factors": len(set.Names),
		"saved":   saved,
	}).Info("Factor job completed")

	return nil
}
