package contracts

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Frequency is a calendar resampling anchor
// Resampling only thins the sampling points; outputs stay on the daily axis.
type Frequency string

const (
	FreqDaily   Frequency = "D"
	FreqWeekly  Frequency = "W" // week-end
	FreqMonthly Frequency = "M" // month-end
	FreqYearly  Frequency = "A" // year-end
)

// ParseFrequency converts a token into a Frequency
func ParseFrequency(token string) (Frequency, error) {
	switch strings.ToUpper(strings.TrimSpace(token)) {
	case "", "D":
		return FreqDaily, nil
	case "W":
		return FreqWeekly, nil
	case "M":
		return FreqMonthly, nil
	case "A", "Y":
		return FreqYearly, nil
	default:
		return "", fmt.Errorf("%w: unknown frequency %q (want D, W, M or A)", ErrInvalidConfig, token)
	}
}

// periodKey identifies the calendar period a date belongs to
func (f Frequency) periodKey(d time.Time) int {
	switch f {
	case FreqWeekly:
		y, w := d.ISOWeek()
		return y*100 + w
	case FreqMonthly:
		return d.Year()*100 + int(d.Month())
	case FreqYearly:
		return d.Year()
	default:
		y, m, day := d.Date()
		return (y*100+int(m))*100 + day
	}
}

// Anchors returns the index of the last available date of every period, ascending
func Anchors(dates []time.Time, freq Frequency) []int {
	anchors := make([]int, 0, len(dates))
	for i := range dates {
		if i == len(dates)-1 || freq.periodKey(dates[i]) != freq.periodKey(dates[i+1]) {
			anchors = append(anchors, i)
		}
	}
	return anchors
}

// BroadcastForward spreads anchor values onto n daily positions
// Each position takes the value of the latest anchor at or before it; positions before
// the first anchor are missing.
func BroadcastForward(n int, anchors []int, values []float64) []float64 {
	out := make([]float64, n)
	k := -1
	for t := 0; t < n; t++ {
		for k+1 < len(anchors) && anchors[k+1] <= t {
			k++
		}
		if k < 0 {
			out[t] = math.NaN()
			continue
		}
		out[t] = values[k]
	}
	return out
}

// PreviousPeriodEnd spreads anchor values so every date sees the close of the previous period
// 전 기간 말 값 사용 (예: 월말 기준이면 지난달 말 시가총액)
func PreviousPeriodEnd(n int, anchors []int, values []float64) []float64 {
	out := make([]float64, n)
	k := -1 // index of the last anchor strictly before the current period
	for t := 0; t < n; t++ {
		for k+1 < len(anchors) && anchors[k+1] < t {
			k++
		}
		if k < 0 {
			out[t] = math.NaN()
			continue
		}
		out[t] = values[k]
	}
	return out
}
