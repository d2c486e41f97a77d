package runconfig

import "time"

// Config describes one factor run: universe, period, factor recipes and evaluation
type Config struct {
	Meta       Meta       `yaml:"meta" json:"meta"`
	Universe   Universe   `yaml:"universe" json:"universe"`
	Period     Period     `yaml:"period" json:"period"`
	Inputs     Inputs     `yaml:"inputs" json:"inputs"`
	Factors    []Factor   `yaml:"factors" json:"factors"`
	Evaluation Evaluation `yaml:"evaluation" json:"evaluation"`
	Schedule   Schedule   `yaml:"schedule" json:"schedule"`
}

// Meta 메타 정보
type Meta struct {
	RunID   string `yaml:"run_id" json:"run_id"`
	Version string `yaml:"version" json:"version"`
}

// Universe selects the stocks; an explicit list wins over the market filter
type Universe struct {
	Market string   `yaml:"market" json:"market"` // KOSPI, KOSDAQ, "" = 전체
	Stocks []string `yaml:"stocks" json:"stocks"`
}

// Period is either a fixed [start, end] or a trailing window ending today
type Period struct {
	Start        string `yaml:"start" json:"start"` // YYYY-MM-DD
	End          string `yaml:"end" json:"end"`     // YYYY-MM-DD, "" = today
	LookbackDays int    `yaml:"lookback_days" json:"lookback_days"`
}

// Inputs controls how raw panels are fetched
type Inputs struct {
	RiskFreeAnnual float64 `yaml:"risk_free_annual" json:"risk_free_annual"` // 연율, 일별 상수로 변환
	MarketCapFreq  string  `yaml:"market_cap_freq" json:"market_cap_freq"`   // D, W, M, A
	MarketWeight   string  `yaml:"market_weight" json:"market_weight"`       // equal | cap
	Cache          bool    `yaml:"cache" json:"cache"`
}

// Factor is one recipe and its parameters
type Factor struct {
	Name   string  `yaml:"name" json:"name"`     // cmra, dhilo, dvrat, hbeta, hsigma
	Window int     `yaml:"window" json:"window"` // periods of Freq (CMRA) or days
	Freq   string  `yaml:"freq" json:"freq"`     // CMRA only
	Q      int     `yaml:"q" json:"q"`           // DVRAT only
	Lag    int     `yaml:"lag" json:"lag"`       // HBETA/HSIGMA only
	Smooth *Smooth `yaml:"smooth" json:"smooth,omitempty"`
}

// Smooth applies a rolling average to a computed factor
type Smooth struct {
	Span   int    `yaml:"span" json:"span"`
	Freq   string `yaml:"freq" json:"freq"`
	Method string `yaml:"method" json:"method"` // mean | ewma
}

// Evaluation 평가 설정; zero values fall back to environment defaults
type Evaluation struct {
	Intervals    []int    `yaml:"intervals" json:"intervals"`
	WinsorizePct *float64 `yaml:"winsorize_pct" json:"winsorize_pct"`
	Bins         int      `yaml:"bins" json:"bins"`
	ByIndustry   *bool    `yaml:"by_industry" json:"by_industry"`
}

// Schedule for the cron job
type Schedule struct {
	Cron string `yaml:"cron" json:"cron"` // 6-field cron (with seconds)
}

const dateLayout = "2006-01-02"

// Range resolves the period against now
func (p Period) Range(now time.Time) (from, to time.Time, err error) {
	to = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if p.End != "" {
		if to, err = time.Parse(dateLayout, p.End); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if p.Start != "" {
		if from, err = time.Parse(dateLayout, p.Start); err != nil {
			return time.Time{}, time.Time{}, err
		}
		return from, to, nil
	}
	return to.AddDate(0, 0, -p.LookbackDays), to, nil
}

// FactorNames lists the configured factor names in order
func (c *Config) FactorNames() []string {
	names := make([]string, len(c.Factors))
	for i, f := range c.Factors {
		names[i] = f.Name
	}
	return names
}
