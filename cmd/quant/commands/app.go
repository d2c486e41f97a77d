package commands

import (
	"context"
	"fmt"

	"github.com/wonny/factorlab/internal/contracts"
	"github.com/wonny/factorlab/internal/data/repos"
	"github.com/wonny/factorlab/internal/runconfig"
	"github.com/wonny/factorlab/internal/s0_data"
	"github.com/wonny/factorlab/internal/s0_data/quality"
	"github.com/wonny/factorlab/internal/s2_factors"
	"github.com/wonny/factorlab/pkg/config"
	"github.com/wonny/factorlab/pkg/database"
	"github.com/wonny/factorlab/pkg/logger"
	"github.com/wonny/factorlab/pkg/redis"
)

// app bundles the dependencies shared by the factor commands
type app struct {
	cfg        *config.Config
	log        *logger.Logger
	db         *database.DB
	redis      *redis.Client
	fetcher    s0_data.Fetcher
	industries *s0_data.IndustryRepository
	factors    *repos.FactorRepository
}

// newApp loads the environment and connects to postgres (and redis when enabled)
func newApp(ctx context.Context, run *runconfig.Config) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if env != "" {
		cfg.Env = env
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	log := logger.New(cfg)

	db, err := database.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	rdb, err := redis.New(ctx, cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	capFreq := contracts.FreqDaily
	useCache := false
	if run != nil {
		capFreq = contracts.Frequency(run.Inputs.MarketCapFreq)
		useCache = run.Inputs.Cache
	}
	router, err := s0_data.NewDefaultRouter(db.Pool, capFreq)
	if err != nil {
		db.Close()
		_ = rdb.Close()
		return nil, err
	}

	var fetcher s0_data.Fetcher = router
	if useCache {
		fetcher = s0_data.NewCachedFetcher(router, redis.NewCache(rdb, "factorlab"), cfg.Factor.CacheTTL, log, cacheSource(capFreq))
	}

	return &app{
		cfg:        cfg,
		log:        log,
		db:         db,
		redis:      rdb,
		fetcher:    fetcher,
		industries: s0_data.NewIndustryRepository(db.Pool),
		factors:    repos.NewFactorRepository(db.Pool),
	}, nil
}

// cacheSource names the router configuration in panel cache keys
// market cap panels differ per frequency, so each frequency gets its own key space
func cacheSource(capFreq contracts.Frequency) string {
	if f, err := contracts.ParseFrequency(string(capFreq)); err == nil {
		capFreq = f
	}
	return "cap_" + string(capFreq)
}

func (a *app) close() {
	_ = a.redis.Close()
	a.db.Close()
}

// builder wires the factor builder onto the app's fetcher
func (a *app) builder() *s2_factors.Builder {
	return s2_factors.NewBuilder(a.fetcher, quality.NewQualityGate(quality.DefaultConfig()), a.log, a.cfg.Factor.Workers)
}

// universe resolves the stocks of a run
func (a *app) universe(ctx context.Context, run *runconfig.Config) ([]string, error) {
	if len(run.Universe.Stocks) > 0 {
		return run.Universe.Stocks, nil
	}
	stocks, err := a.industries.Universe(ctx, run.Universe.Market)
	if err != nil {
		return nil, err
	}
	if len(stocks) == 0 {
		return nil, fmt.Errorf("%w: no active stocks in market %q", contracts.ErrInvalidConfig, run.Universe.Market)
	}
	return stocks, nil
}

// loadRun reads a run file and fills evaluation defaults from the environment
func loadRun(path string) (*runconfig.Config, error) {
	if path == "" {
		return nil, fmt.Errorf("--run is required")
	}
	run, _, err := runconfig.Load(path)
	if err != nil {
		return nil, err
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	runconfig.ApplyDefaults(run, cfg.Factor)
	return run, nil
}
