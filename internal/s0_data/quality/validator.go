package quality

import (
	"fmt"
	"math"
	"sort"

	"github.com/wonny/factorlab/internal/contracts"
)

// Config holds quality gate thresholds
type Config struct {
	MinCoverage map[string]float64 `yaml:"min_coverage"` // field → minimum non-missing share
	MinScore    float64            `yaml:"min_score"`    // 0.0 ~ 1.0
}

// DefaultConfig requires dense prices and tolerates sparse fundamentals
func DefaultConfig() Config {
	return Config{
		MinCoverage: map[string]float64{
			"close": 0.80,
			"high":  0.80,
			"low":   0.80,
		},
		MinScore: 0.50,
	}
}

// QualityGate validates fetched panels before factors are computed
type QualityGate struct {
	config Config
}

// NewQualityGate creates a new QualityGate instance
func NewQualityGate(config Config) *QualityGate {
	return &QualityGate{config: config}
}

// Check summarises coverage of every fetched panel
// ⭐ SSOT: S0 → 팩터 계산 품질 검증
//
// The score is the mean coverage of all panels. A stock is valid when it is observed
// on the last date of every panel.
func (g *QualityGate) Check(universe []string, panels map[string]*contracts.Panel) *contracts.DataQualitySnapshot {
	snapshot := &contracts.DataQualitySnapshot{
		TotalStocks: len(universe),
		Coverage:    make(map[string]float64, len(panels)),
	}

	fields := make([]string, 0, len(panels))
	for field := range panels {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	valid := make(map[string]int, len(universe))
	for _, field := range fields {
		p := panels[field]
		snapshot.Coverage[field] = p.Coverage()
		if p.Len() == 0 {
			continue
		}
		last := p.Len() - 1
		if d := p.Dates[last]; d.After(snapshot.Date) {
			snapshot.Date = d
		}
		for s, code := range p.Stocks {
			if !math.IsNaN(p.At(last, s)) {
				valid[code]++
			}
		}
	}
	for _, code := range universe {
		if len(fields) > 0 && valid[code] == len(fields) {
			snapshot.ValidStocks++
		}
	}

	snapshot.QualityScore = snapshot.CoverageRate()
	snapshot.Passed = true

	for _, field := range fields {
		min, ok := g.config.MinCoverage[field]
		if ok && snapshot.Coverage[field] < min {
			snapshot.Passed = false
			snapshot.Failures = append(snapshot.Failures,
				fmt.Sprintf("%s coverage %.2f < %.2f", field, snapshot.Coverage[field], min))
		}
	}
	if snapshot.QualityScore < g.config.MinScore {
		snapshot.Passed = false
		snapshot.Failures = append(snapshot.Failures,
			fmt.Sprintf("quality score %.2f < %.2f", snapshot.QualityScore, g.config.MinScore))
	}

	return snapshot
}
