package contracts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDataQualitySnapshot_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		snapshot DataQualitySnapshot
		want     bool
	}{
		{
			name: "passed with stocks",
			snapshot: DataQualitySnapshot{
				Date:         time.Now(),
				TotalStocks:  100,
				ValidStocks:  90,
				QualityScore: 0.9,
				Passed:       true,
			},
			want: true,
		},
		{
			name: "failed gate",
			snapshot: DataQualitySnapshot{
				TotalStocks: 100,
				ValidStocks: 50,
				Passed:      false,
			},
			want: false,
		},
		{
			name: "no valid stocks",
			snapshot: DataQualitySnapshot{
				TotalStocks: 100,
				ValidStocks: 0,
				Passed:      true,
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.snapshot.IsValid())
		})
	}
}

func TestDataQualitySnapshot_CoverageRate(t *testing.T) {
	snapshot := DataQualitySnapshot{
		Coverage: map[string]float64{
			"close":      0.95,
			"high":       0.90,
			"market_cap": 0.85,
		},
	}

	assert.InDelta(t, (0.95+0.90+0.85)/3, snapshot.CoverageRate(), 1e-12)
	assert.Equal(t, 0.0, (&DataQualitySnapshot{}).CoverageRate())
}
