package runconfig

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wonny/factorlab/internal/contracts"
)

// Factor names accepted in run files
const (
	FactorCMRA   = "cmra"
	FactorDHILO  = "dhilo"
	FactorDVRAT  = "dvrat"
	FactorHBETA  = "hbeta"
	FactorHSIGMA = "hsigma"
)

// Smoothing methods, matching s2_factors.AverageMethod
const (
	SmoothMean = "mean"
	SmoothEWMA = "ewma"
)

// Market return weighting
const (
	MarketWeightEqual = "equal"
	MarketWeightCap   = "cap"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets callers match errors.Is(err, contracts.ErrInvalidConfig)
func (e ValidationError) Unwrap() error {
	return contracts.ErrInvalidConfig
}

// Validate checks all required constraints before any data is fetched
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.RunID == "" {
		return ValidationError{"meta.run_id", "required"}
	}

	// === Period ===
	if cfg.Period.Start == "" && cfg.Period.LookbackDays <= 0 {
		return ValidationError{"period", "start or lookback_days is required"}
	}
	from, to, err := cfg.Period.Range(time.Now())
	if err != nil {
		return ValidationError{"period", err.Error()}
	}
	if to.Before(from) {
		return ValidationError{"period", "end must not be before start"}
	}

	// === Universe ===
	seen := make(map[string]bool, len(cfg.Universe.Stocks))
	for _, code := range cfg.Universe.Stocks {
		if seen[code] {
			return ValidationError{"universe.stocks", fmt.Sprintf("duplicate stock %s", code)}
		}
		seen[code] = true
	}

	// === Inputs ===
	if _, err := contracts.ParseFrequency(cfg.Inputs.MarketCapFreq); err != nil {
		return ValidationError{"inputs.market_cap_freq", err.Error()}
	}
	switch cfg.Inputs.MarketWeight {
	case "", MarketWeightEqual, MarketWeightCap:
	default:
		return ValidationError{"inputs.market_weight", "must be equal or cap"}
	}

	// === Factors ===
	if len(cfg.Factors) == 0 {
		return ValidationError{"factors", "at least one factor is required"}
	}
	names := make(map[string]bool, len(cfg.Factors))
	for i, f := range cfg.Factors {
		field := fmt.Sprintf("factors[%d]", i)
		if names[f.Name] {
			return ValidationError{field + ".name", fmt.Sprintf("duplicate factor %s", f.Name)}
		}
		names[f.Name] = true
		if err := validateFactor(f); err != nil {
			return ValidationError{field, err.Error()}
		}
	}

	// === Evaluation ===
	ev := cfg.Evaluation
	seenInterval := make(map[int]bool, len(ev.Intervals))
	for _, k := range ev.Intervals {
		if k <= 0 || seenInterval[k] {
			return ValidationError{"evaluation.intervals", "must be positive and unique"}
		}
		seenInterval[k] = true
	}
	if ev.WinsorizePct != nil && (*ev.WinsorizePct < 0 || *ev.WinsorizePct >= 0.5) {
		return ValidationError{"evaluation.winsorize_pct", "must be in [0, 0.5)"}
	}
	if ev.Bins < 0 {
		return ValidationError{"evaluation.bins", "must be positive"}
	}

	// === Schedule ===
	if cfg.Schedule.Cron != "" {
		parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
		if _, err := parser.Parse(cfg.Schedule.Cron); err != nil {
			return ValidationError{"schedule.cron", err.Error()}
		}
	}

	return nil
}

func validateFactor(f Factor) error {
	if f.Window <= 0 {
		return fmt.Errorf("window must be > 0")
	}

	switch f.Name {
	case FactorCMRA:
		if _, err := contracts.ParseFrequency(f.Freq); err != nil {
			return err
		}
	case FactorDHILO:
	case FactorDVRAT:
		if f.Q < 1 || f.Q >= f.Window {
			return fmt.Errorf("q must satisfy 1 <= q < window")
		}
	case FactorHBETA, FactorHSIGMA:
		if f.Window < 2 {
			return fmt.Errorf("regression window must be >= 2")
		}
		if f.Lag < 0 || f.Lag >= f.Window {
			return fmt.Errorf("lag must satisfy 0 <= lag < window")
		}
	default:
		return fmt.Errorf("unknown factor %q", f.Name)
	}

	if f.Smooth != nil {
		if f.Smooth.Span <= 0 {
			return fmt.Errorf("smooth.span must be > 0")
		}
		if _, err := contracts.ParseFrequency(f.Smooth.Freq); err != nil {
			return err
		}
		switch f.Smooth.Method {
		case SmoothMean, SmoothEWMA:
		default:
			return fmt.Errorf("smooth.method must be mean or ewma")
		}
	}
	return nil
}
