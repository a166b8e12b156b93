package analysis

import (
	"fmt"
	"time"

	"aisri/internal/store"
)

// InjuryWindowDays is the number of AISRI rows and daily loads consulted
const InjuryWindowDays = 14

// neutralAISRI stands in for the latest score when none exists
const neutralAISRI = 50

// EstimateInjuryRisk combines the latest AISRI, its trend and the 7:14 day
// load ratio into a risk score. scores are ordered oldest first; dailyLoads
// hold one value per day, oldest first, today last.
func EstimateInjuryRisk(scores []store.AISRIScore, dailyLoads []float64, now time.Time) store.InjuryRiskPrediction {
	if len(scores) > InjuryWindowDays {
		scores = scores[len(scores)-InjuryWindowDays:]
	}
	if len(dailyLoads) > InjuryWindowDays {
		dailyLoads = dailyLoads[len(dailyLoads)-InjuryWindowDays:]
	}

	acuteDays := dailyLoads
	if len(acuteDays) > 7 {
		acuteDays = acuteDays[len(acuteDays)-7:]
	}
	acute := mean(acuteDays)
	chronic := mean(dailyLoads)
	ratio := 1.0
	if chronic > 0 {
		ratio = acute / chronic
	}

	latest := neutralAISRI
	trend := 0
	var factors []string
	if len(scores) == 0 {
		factors = append(factors, "No AISRI history, assuming neutral readiness")
	} else {
		latest = scores[len(scores)-1].Overall
		if len(scores) >= 2 {
			trend = latest - scores[0].Overall
		}
	}

	risk := 0
	switch {
	case latest < 40:
		risk += 40
		factors = append(factors, fmt.Sprintf("Very low AISRI score (%d)", latest))
	case latest < 55:
		risk += 25
		factors = append(factors, fmt.Sprintf("Low AISRI score (%d)", latest))
	case latest < 70:
		risk += 15
		factors = append(factors, fmt.Sprintf("Moderate AISRI score (%d)", latest))
	default:
		risk += 5
	}

	switch {
	case ratio > 1.5:
		risk += 30
		factors = append(factors, fmt.Sprintf("Training load spike (ratio %.2f)", ratio))
	case ratio > 1.2:
		risk += 15
		factors = append(factors, fmt.Sprintf("Elevated training load (ratio %.2f)", ratio))
	}

	switch {
	case trend < -10:
		risk += 25
		factors = append(factors, fmt.Sprintf("AISRI falling sharply (%+d)", trend))
	case trend < -5:
		risk += 15
		factors = append(factors, fmt.Sprintf("AISRI declining (%+d)", trend))
	}

	risk = clampInt(risk, 0, 100)
	return store.InjuryRiskPrediction{
		ComputedAt:  now,
		RiskScore:   risk,
		RiskLevel:   InjuryLevelFor(risk),
		AcuteLoad:   acute,
		ChronicLoad: chronic,
		ACWR:        ratio,
		AISRITrend:  trend,
		Factors:     factors,
	}
}

// InjuryLevelFor maps a risk score to its band
func InjuryLevelFor(risk int) store.InjuryLevel {
	switch {
	case risk >= 70:
		return store.InjuryHigh
	case risk >= 40:
		return store.InjuryModerate
	default:
		return store.InjuryLow
	}
}
