package s2_factors

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/wonny/factorlab/internal/contracts"
	"github.com/wonny/factorlab/internal/runconfig"
	"github.com/wonny/factorlab/internal/s0_data"
	"github.com/wonny/factorlab/internal/s0_data/quality"
	"github.com/wonny/factorlab/internal/s1_returns"
	"github.com/wonny/factorlab/internal/s4_crosssection"
	"github.com/wonny/factorlab/pkg/logger"
)

// ErrQualityGate is returned when fetched panels fail the quality gate
var ErrQualityGate = errors.New("data quality gate failed")

// tradingDaysPerYear converts the annual risk-free rate into a daily constant
const tradingDaysPerYear = 252

// FactorSet holds the computed factor panels of one run, all on the return dates inside
// [From, To]
type FactorSet struct {
	RunID   string
	RunHash string
	From    time.Time
	To      time.Time
	Names   []string                    // configured order
	Panels  map[string]*contracts.Panel // name → panel
	Quality *contracts.DataQualitySnapshot
}

// Panel returns one factor panel
func (s *FactorSet) Panel(name string) (*contracts.Panel, bool) {
	p, ok := s.Panels[name]
	return p, ok
}

// Builder fetches the inputs of a run and computes its factors
// ⭐ SSOT: 런 설정 → 팩터 패널 변환은 여기서만
type Builder struct {
	fetcher s0_data.Fetcher
	gate    *quality.QualityGate
	logger  *logger.Logger
	workers int
}

// NewBuilder creates a new builder
func NewBuilder(fetcher s0_data.Fetcher, gate *quality.QualityGate, log *logger.Logger, workers int) *Builder {
	if log == nil {
		log = logger.Nop()
	}
	return &Builder{fetcher: fetcher, gate: gate, logger: log, workers: workers}
}

// inputs are the raw panels a run needs, on the fetch window
type inputs struct {
	close     *contracts.Panel
	high      *contracts.Panel
	low       *contracts.Panel
	marketCap *contracts.Panel
	returns   *contracts.Panel
	riskFree  *contracts.Series
	market    *contracts.Series
}

// Build runs every factor of cfg over stocks
// Panels are fetched with enough history for the longest window and trimmed back to the
// configured period afterwards.
func (b *Builder) Build(ctx context.Context, cfg *runconfig.Config, stocks []string) (*FactorSet, error) {
	if len(stocks) == 0 {
		return nil, fmt.Errorf("%w: empty universe", contracts.ErrInvalidConfig)
	}
	hash, err := runconfig.Hash(cfg)
	if err != nil {
		return nil, fmt.Errorf("hash run: %w", err)
	}
	from, to, err := cfg.Period.Range(time.Now())
	if err != nil {
		return nil, fmt.Errorf("%w: period: %v", contracts.ErrInvalidConfig, err)
	}

	log := b.logger.WithRun(cfg.Meta.RunID, hash)
	start := from.AddDate(0, 0, -warmupDays(cfg))
	log.WithFields(map[string]interface{}{
		"stocks": len(stocks),
		"from":   from.Format("2006-01-02"),
		"to":     to.Format("2006-01-02"),
		"fetch":  start.Format("2006-01-02"),
	}).Info("Building factors")

	in, snapshot, err := b.fetchInputs(ctx, cfg, stocks, start, to)
	if err != nil {
		return nil, err
	}

	set := &FactorSet{
		RunID:   cfg.Meta.RunID,
		RunHash: hash,
		From:    from,
		To:      to,
		Panels:  make(map[string]*contracts.Panel, len(cfg.Factors)),
		Quality: snapshot,
	}

	// hbeta and hsigma with the same window and lag share one regression pass
	regressions := make(map[[2]int]*BetaSigma)
	for _, f := range cfg.Factors {
		var p *contracts.Panel
		switch f.Name {
		case runconfig.FactorCMRA:
			p, err = CMRA(in.returns, in.riskFree, f.Window, contracts.Frequency(f.Freq))
		case runconfig.FactorDHILO:
			if p, err = DHILO(in.high, in.low, f.Window); err == nil {
				p, err = p.Reindex(in.returns.Dates)
			}
		case runconfig.FactorDVRAT:
			p, err = DVRAT(in.returns, in.riskFree, f.Window, f.Q)
		case runconfig.FactorHBETA, runconfig.FactorHSIGMA:
			key := [2]int{f.Window, f.Lag}
			reg, ok := regressions[key]
			if !ok {
				if reg, err = HBetaSigma(in.returns, in.market, f.Window, f.Lag, RegressionOptions{Workers: b.workers}); err != nil {
					break
				}
				regressions[key] = reg
			}
			p = reg.Beta
			if f.Name == runconfig.FactorHSIGMA {
				p = reg.Sigma
			}
		default:
			err = fmt.Errorf("%w: unknown factor %q", contracts.ErrInvalidConfig, f.Name)
		}
		if err != nil {
			return nil, fmt.Errorf("compute %s: %w", f.Name, err)
		}

		if f.Smooth != nil {
			p, err = RollingAverage(p, f.Smooth.Span, contracts.Frequency(f.Smooth.Freq), AverageMethod(f.Smooth.Method))
			if err != nil {
				return nil, fmt.Errorf("smooth %s: %w", f.Name, err)
			}
		}

		p, err = within(p, from, to)
		if err != nil {
			return nil, fmt.Errorf("trim %s: %w", f.Name, err)
		}
		set.Names = append(set.Names, f.Name)
		set.Panels[f.Name] = p

		log.WithFields(map[string]interface{}{
			"factor":   f.Name,
			"dates":    p.Len(),
			"coverage": p.Coverage(),
		}).Info("Factor computed")
	}

	return set, nil
}

// fetchInputs loads the panels the configured factors need and derives returns,
// the risk-free series and the market return
func (b *Builder) fetchInputs(ctx context.Context, cfg *runconfig.Config, stocks []string, from, to time.Time) (*inputs, *contracts.DataQualitySnapshot, error) {
	need := requiredFields(cfg)
	panels := make(map[string]*contracts.Panel, len(need))
	for _, field := range need {
		p, err := b.fetcher.Fetch(ctx, stocks, from, to, field)
		if err != nil {
			return nil, nil, fmt.Errorf("fetch %s: %w", field, err)
		}
		panels[field] = p
	}

	var snapshot *contracts.DataQualitySnapshot
	if b.gate != nil {
		priced := make(map[string]*contracts.Panel, len(panels))
		for field, p := range panels {
			if field != s0_data.FieldMarketCap {
				priced[field] = p
			}
		}
		snapshot = b.gate.Check(stocks, priced)
		if !snapshot.IsValid() {
			b.logger.WithField("failures", snapshot.Failures).Warn("Quality gate failed")
			return nil, snapshot, fmt.Errorf("%w: %v", ErrQualityGate, snapshot.Failures)
		}
	}

	in := &inputs{
		close: panels[s0_data.FieldClose],
		high:  panels[s0_data.FieldHigh],
		low:   panels[s0_data.FieldLow],
	}
	if in.close == nil || in.close.Len() == 0 {
		return nil, snapshot, fmt.Errorf("%w: no prices between %s and %s", contracts.ErrInvalidPanel,
			from.Format("2006-01-02"), to.Format("2006-01-02"))
	}

	returns, err := s1_returns.Trailing(in.close, 1, false)
	if err != nil {
		return nil, snapshot, err
	}
	in.returns = returns
	in.riskFree = contracts.ConstantSeries(returns, cfg.Inputs.RiskFreeAnnual/tradingDaysPerYear)

	if caps, ok := panels[s0_data.FieldMarketCap]; ok {
		if in.marketCap, err = caps.Reindex(returns.Dates); err != nil {
			return nil, snapshot, fmt.Errorf("align market cap: %w", err)
		}
	}
	if in.market, err = marketReturn(returns, in.marketCap); err != nil {
		return nil, snapshot, err
	}
	return in, snapshot, nil
}

// requiredFields lists the fetch fields a run depends on
func requiredFields(cfg *runconfig.Config) []string {
	fields := []string{s0_data.FieldClose}
	regression := false
	for _, f := range cfg.Factors {
		switch f.Name {
		case runconfig.FactorDHILO:
			if !contains(fields, s0_data.FieldHigh) {
				fields = append(fields, s0_data.FieldHigh, s0_data.FieldLow)
			}
		case runconfig.FactorHBETA, runconfig.FactorHSIGMA:
			regression = true
		}
	}
	if regression && cfg.Inputs.MarketWeight == runconfig.MarketWeightCap {
		fields = append(fields, s0_data.FieldMarketCap)
	}
	return fields
}

// marketReturn aggregates stock returns into one market series
// Without caps every observed stock counts equally; with caps the weights are renormalized
// over the stocks that traded on each date.
func marketReturn(returns, caps *contracts.Panel) (*contracts.Series, error) {
	weighted := returns
	if caps != nil {
		masked := caps.Clone()
		for t := range masked.Values {
			for s := range masked.Values[t] {
				if math.IsNaN(returns.Values[t][s]) {
					masked.Values[t][s] = math.NaN()
				}
			}
		}
		var err error
		if weighted, err = s4_crosssection.WeightedPanel(returns, masked); err != nil {
			return nil, fmt.Errorf("market return: %w", err)
		}
	}

	values := make([]float64, returns.Len())
	for t, row := range weighted.Values {
		sum, n := 0.0, 0
		for _, v := range row {
			if !math.IsNaN(v) {
				sum += v
				n++
			}
		}
		switch {
		case n == 0:
			values[t] = math.NaN()
		case caps != nil:
			values[t] = sum
		default:
			values[t] = sum / float64(n)
		}
	}
	return &contracts.Series{Dates: append([]time.Time(nil), returns.Dates...), Values: values}, nil
}

// warmupDays is the calendar history needed before the period start
func warmupDays(cfg *runconfig.Config) int {
	days := 0
	for _, f := range cfg.Factors {
		need := tradingToCalendar(f.Window + f.Q)
		if f.Name == runconfig.FactorCMRA {
			need = periodDays(contracts.Frequency(f.Freq)) * (f.Window + 1)
		}
		if f.Smooth != nil {
			need += periodDays(contracts.Frequency(f.Smooth.Freq)) * f.Smooth.Span
		}
		if need > days {
			days = need
		}
	}
	return days
}

func tradingToCalendar(n int) int {
	return n*7/5 + 10
}

func periodDays(freq contracts.Frequency) int {
	switch freq {
	case contracts.FreqWeekly:
		return 7
	case contracts.FreqMonthly:
		return 31
	case contracts.FreqYearly:
		return 366
	default:
		return 2
	}
}

// within keeps the dates of p inside [from, to]
func within(p *contracts.Panel, from, to time.Time) (*contracts.Panel, error) {
	dates := make([]time.Time, 0, p.Len())
	for _, d := range p.Dates {
		if !d.Before(from) && !d.After(to) {
			dates = append(dates, d)
		}
	}
	return p.Reindex(dates)
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
