package contracts

import "time"

// DataQualitySnapshot summarises the input panels of one factor run
// ⭐ SSOT: S0 → 팩터 계산 데이터 품질 정보 전달
type DataQualitySnapshot struct {
	Date         time.Time          `json:"date"`          // last date of the fetched range
	TotalStocks  int                `json:"total_stocks"`  // requested universe size
	ValidStocks  int                `json:"valid_stocks"`  // stocks observed in every required panel on Date
	Coverage     map[string]float64 `json:"coverage"`      // field → non-missing share
	QualityScore float64            `json:"quality_score"` // 0.0 ~ 1.0
	Passed       bool               `json:"passed"`        // 품질 검증 통과 여부
	Failures     []string           `json:"failures,omitempty"`
}

// IsValid checks if the data quality snapshot meets minimum requirements
func (d *DataQualitySnapshot) IsValid() bool {
	return d.Passed && d.ValidStocks > 0
}

// CoverageRate returns the average coverage rate across all fields
func (d *DataQualitySnapshot) CoverageRate() float64 {
	if len(d.Coverage) == 0 {
		return 0.0
	}

	total := 0.0
	for _, rate := range d.Coverage {
		total += rate
	}

	return total / float64(len(d.Coverage))
}
