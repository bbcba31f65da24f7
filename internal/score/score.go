// Package score holds the two piecewise-linear scoring tables and their risk
// tiers. The score curves and the tier thresholds are defined independently
// and do not line up.
package score

import "math"

type Risk string

const (
	Low     Risk = "low_risk"
	Medium  Risk = "medium_risk"
	High    Risk = "high_risk"
	Extreme Risk = "extreme_risk"
	Unknown Risk = "unknown"
)

const (
	MaxConcentration = 30.0
	MaxActivity      = 40.0
)

// Concentration scores the top-10 holder share p (percent) on [0, 30].
func Concentration(p float64) float64 {
	switch {
	case p <= 20:
		return 30
	case p <= 40:
		return 30 - (p-20)*0.75
	case p < 80:
		return 15 - (p-40)*0.375
	default:
		return 0
	}
}

// ConcentrationRisk tiers p: <=20 low, <=40 medium, <=60 high, else extreme.
func ConcentrationRisk(p float64) Risk {
	switch {
	case p <= 20:
		return Low
	case p <= 40:
		return Medium
	case p <= 60:
		return High
	default:
		return Extreme
	}
}

// Activity scores the normalized unique EOA count n on [0, 40], rounded to
// two decimals.
func Activity(n float64) (float64, Risk) {
	switch {
	case n >= 300:
		return 40, Low
	case n >= 50:
		return Round2(20 + (n-50)/250*20), Medium
	case n <= 0:
		return 0, High
	default:
		return Round2(n / 50 * 20), High
	}
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
