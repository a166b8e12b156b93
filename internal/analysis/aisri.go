package analysis

import (
	"math"
	"sort"
	"time"

	"aisri/internal/store"
)

// Method tags recorded on every AISRI row
const (
	MethodPillar            = "pillar_v1"
	MethodMinimumConfidence = "minimum_confidence"
)

// AISRIWindow is how far back the calculator looks
const AISRIWindow = 56 * 24 * time.Hour

// injuryPillar is a neutral placeholder, the injury-risk estimator is authoritative
const injuryPillar = 70

// AISRIInput carries what the readiness calculation needs
type AISRIInput struct {
	SignupAt   time.Time
	Activities []store.Activity
	Now        time.Time
}

// CalculateAISRI scores readiness from the last 8 weeks of running.
// Fewer than 3 runs yield the minimum-confidence score.
func CalculateAISRI(in AISRIInput) store.AISRIScore {
	runs := runsInWindow(in.Activities, in.Now, AISRIWindow)
	if len(runs) < 3 {
		return MinimumConfidenceScore(len(runs))
	}

	years := yearsSince(in.SignupAt, in.Now)
	p := store.Pillars{
		Adaptability: adaptabilityPillar(runs, years),
		InjuryRisk:   injuryPillar,
		Fatigue:      fatiguePillar(runs, in.Now),
		Recovery:     recoveryPillar(runs, in.Now),
		Intensity:    intensityPillar(runs),
		Consistency:  consistencyPillar(runs, in.Now),
	}

	overall := clampInt(p.Overall(), 0, 100)
	return store.AISRIScore{
		Overall:            overall,
		Pillars:            p,
		RiskLevel:          RiskLevelFor(overall),
		Confidence:         confidence(runs, years),
		Method:             MethodPillar,
		ActivitiesAnalysed: len(runs),
	}
}

// MinimumConfidenceScore is emitted when there is too little history
func MinimumConfidenceScore(analysed int) store.AISRIScore {
	p := store.Pillars{Adaptability: 60, InjuryRisk: 60, Fatigue: 60, Recovery: 60, Intensity: 60, Consistency: 60}
	return store.AISRIScore{
		Overall:            60,
		Pillars:            p,
		RiskLevel:          store.RiskModerate,
		Confidence:         30,
		Method:             MethodMinimumConfidence,
		ActivitiesAnalysed: analysed,
		Notes:              "insufficient data",
	}
}

// RiskLevelFor maps an overall score to its band
func RiskLevelFor(overall int) store.RiskLevel {
	switch {
	case overall >= 80:
		return store.RiskLow
	case overall >= 60:
		return store.RiskModerate
	default:
		return store.RiskHigh
	}
}

// runsInWindow returns running activities in (now-window, now], oldest first
func runsInWindow(activities []store.Activity, now time.Time, window time.Duration) []store.Activity {
	since := now.Add(-window)
	var runs []store.Activity
	for _, a := range activities {
		if !a.IsRun() || !a.StartDate.After(since) || a.StartDate.After(now) {
			continue
		}
		runs = append(runs, a)
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartDate.Before(runs[j].StartDate)
	})
	return runs
}

func yearsSince(signup, now time.Time) int {
	if signup.IsZero() || !now.After(signup) {
		return 0
	}
	return int(now.Sub(signup).Hours() / (24 * 365.25))
}

func adaptabilityPillar(runs []store.Activity, years int) int {
	score := 50 + min(years*3, 20)

	switch n := len(runs); {
	case n >= 30:
		score += 20
	case n >= 15:
		score += 15
	case n >= 5:
		score += 10
	default:
		score += 5
	}

	half := len(runs) / 2
	earlier := meanDistance(runs[:half])
	recent := meanDistance(runs[half:])
	if earlier > 0 && recent > 1.1*earlier {
		score += 10
	}
	return clampInt(score, 0, 100)
}

func consistencyPillar(runs []store.Activity, now time.Time) int {
	score := 50

	perWeek := make([]float64, 4)
	for _, a := range runs {
		age := now.Sub(a.StartDate)
		if age < 0 {
			continue
		}
		if w := int(age / (7 * 24 * time.Hour)); w < 4 {
			perWeek[w]++
		}
	}

	switch m := mean(perWeek); {
	case m >= 6:
		score += 30
	case m >= 4:
		score += 25
	case m >= 3:
		score += 20
	case m >= 2:
		score += 10
	}

	switch sd := stdev(perWeek); {
	case sd < 1:
		score += 10
	case sd < 2:
		score += 5
	}
	return clampInt(score, 0, 100)
}

func intensityPillar(runs []store.Activity) int {
	score := 60

	var paces []float64 // min/km
	for _, a := range runs {
		if a.AverageSpeed > 0 && a.Distance >= 1000 {
			paces = append(paces, 1000/a.AverageSpeed/60)
		}
	}
	if len(paces) >= 3 {
		lo, hi := paces[0], paces[0]
		for _, p := range paces {
			lo = math.Min(lo, p)
			hi = math.Max(hi, p)
		}
		switch r := hi - lo; {
		case r > 2.0:
			score += 20
		case r > 1.0:
			score += 15
		case r > 0.5:
			score += 10
		}
		if hi > 1.3*mean(paces) {
			score += 10
		}
	}

	recent := runs
	if len(recent) > 7 {
		recent = recent[len(recent)-7:]
	}
	for _, a := range recent {
		if a.SufferScore != nil && *a.SufferScore > 100 {
			score += 10
			break
		}
	}
	return clampInt(score, 0, 100)
}

func recoveryPillar(runs []store.Activity, now time.Time) int {
	score := 60

	trained := make([]bool, 14)
	today := dayStart(now)
	for _, a := range runs {
		idx := 13 - daysBetween(dayStart(a.StartDate.In(now.Location())), today)
		if idx >= 0 && idx < 14 {
			trained[idx] = true
		}
	}

	var rest, streak, longest int
	for _, t := range trained {
		if !t {
			rest++
			streak = 0
			continue
		}
		streak++
		longest = max(longest, streak)
	}

	switch {
	case rest >= 4:
		score += 20
	case rest >= 2:
		score += 15
	case rest >= 1:
		score += 10
	default:
		score -= 10
	}

	switch {
	case longest > 10:
		score -= 20
	case longest > 7:
		score -= 10
	case longest <= 3:
		score += 10
	}
	return clampInt(score, 0, 100)
}

func fatiguePillar(runs []store.Activity, now time.Time) int {
	score := 70

	var week, month float64
	for _, a := range runs {
		age := now.Sub(a.StartDate)
		if age < 0 || age >= 28*24*time.Hour {
			continue
		}
		month += a.DistanceKm()
		if age < 7*24*time.Hour {
			week += a.DistanceKm()
		}
	}

	if weekly := month / 4; weekly > 0 {
		switch ratio := week / weekly; {
		case ratio > 1.5:
			score -= 20
		case ratio > 1.2:
			score -= 10
		case ratio < 0.7:
			score += 10
		}
	}
	return clampInt(score, 0, 100)
}

func confidence(runs []store.Activity, years int) int {
	score := 50

	switch n := len(runs); {
	case n >= 30:
		score += 30
	case n >= 15:
		score += 20
	case n >= 5:
		score += 10
	}

	score += min(years*5, 10)

	for _, a := range runs {
		if a.HasHeartrate() {
			score += 10
			break
		}
	}
	return clampInt(score, 0, 100)
}

func meanDistance(runs []store.Activity) float64 {
	if len(runs) == 0 {
		return 0
	}
	var sum float64
	for _, a := range runs {
		sum += a.Distance
	}
	return sum / float64(len(runs))
}
