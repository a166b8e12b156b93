package generator

import (
	"math"

	"aisri/internal/store"
)

// ACWRCeiling returns the largest volume increase (%) the current
// acute:chronic ratio allows
func ACWRCeiling(acwr float64) float64 {
	switch {
	case acwr < 0.8:
		return 10
	case acwr <= 1.3:
		return 5
	case acwr <= 1.5:
		return 0
	default:
		return -10
	}
}

// IsRecoveryWeek reports every fourth plan week. Week 0 means no plan is
// running and is never a recovery week.
func IsRecoveryWeek(weekNumber int) bool {
	return weekNumber > 0 && weekNumber%4 == 0
}

// IncreasePct applies recent-performance rules to the ACWR ceiling.
// labels are the performance labels of the last 7 days.
func IncreasePct(ceiling float64, weekNumber int, labels []store.PerformanceLabel) float64 {
	if IsRecoveryWeek(weekNumber) {
		return -25
	}

	var poor, great int
	for _, l := range labels {
		switch l {
		case store.LabelPoor, store.LabelIncomplete:
			poor++
		case store.LabelBest, store.LabelGreat:
			great++
		}
	}

	pct := 5.0
	switch {
	case poor >= 2:
		pct = 0
	case poor == 1:
		pct = 3
	case great >= 5:
		pct = 10
	}
	return math.Min(pct, ceiling)
}
