package analysis

import (
	"fmt"
	"math"

	"aisri/internal/store"
)

// Outcome is what the athlete actually did
type Outcome struct {
	DistanceKm      float64
	DurationSeconds int
	AvgPace         float64 // s/km, derived from splits or distance when 0
	AvgHR           *float64
	MaxHR           *float64
	Splits          []store.Split
	CompletedFull   bool
	StoppedAtKm     *float64
}

// Pace returns the recorded average pace or derives one
func (o Outcome) Pace() float64 {
	if o.AvgPace > 0 {
		return o.AvgPace
	}
	if p := meanSplitPace(o.Splits); p > 0 {
		return p
	}
	if o.DistanceKm > 0 && o.DurationSeconds > 0 {
		return float64(o.DurationSeconds) / o.DistanceKm
	}
	return 0
}

// Variance compares outcome to prescription. Positive means more or slower.
type Variance struct {
	DistanceKm  float64  `json:"distance_km"`
	DistancePct float64  `json:"distance_pct"`
	PaceSec     float64  `json:"pace_sec"`
	PacePct     float64  `json:"pace_pct"`
	HRBpm       *float64 `json:"hr_bpm,omitempty"`
	HRPct       *float64 `json:"hr_pct,omitempty"`
	IntervalCV  *float64 `json:"interval_cv,omitempty"`
}

// Assessment grades a completed workout
type Assessment struct {
	Variance            Variance               `json:"variance"`
	Scores              store.DimensionScores  `json:"scores"`
	Label               store.PerformanceLabel `json:"label"`
	AbilityChange       float64                `json:"ability_change"`
	ReadyForProgression bool                   `json:"ready_for_progression"`
	PaceGatePassed      bool                   `json:"pace_gate_passed"`
	HRGatePassed        bool                   `json:"hr_gate_passed"`
	FadePct             float64                `json:"fade_pct"`
	Fatigue             store.FatigueLevel     `json:"fatigue"`
	InjuryIndicators    []string               `json:"injury_indicators"`
}

// IncompleteIndicator is attached to every workout that was not finished
const IncompleteIndicator = "Incomplete workout - check for pain/discomfort"

// AssessPerformance compares GIVEN against RESULT
func AssessPerformance(given store.Prescription, result Outcome) Assessment {
	v := variances(given, result)
	a := Assessment{Variance: v}

	a.Scores.Distance = distanceScore(v.DistancePct, result.CompletedFull)
	a.Scores.Pace = paceScore(given.Type, v.PaceSec)
	a.Scores.HR = hrScore(v.HRBpm)
	if result.CompletedFull {
		a.Scores.Overall = 0.25*a.Scores.Distance + 0.5*a.Scores.Pace + 0.25*a.Scores.HR
	} else {
		a.Scores.Overall = math.Min(50, (a.Scores.Distance+a.Scores.Pace+a.Scores.HR)/3)
	}

	a.Label = label(given.Type, a.Scores.Overall, result.CompletedFull)
	// BEST means the target was met without extra cardiac cost
	if a.Label == store.LabelBest && v.HRBpm != nil && *v.HRBpm > 0 {
		a.Label = store.LabelGreat
	}

	a.AbilityChange = abilityDelta[a.Label]
	if given.Type.IsQuality() {
		a.AbilityChange *= 1.5
	}

	a.PaceGatePassed = math.Abs(v.PaceSec) <= 10
	a.HRGatePassed = v.HRBpm == nil || math.Abs(*v.HRBpm) <= 10
	a.ReadyForProgression = (a.Label == store.LabelBest || a.Label == store.LabelGreat) && result.CompletedFull
	if given.Type.IsQuality() {
		a.ReadyForProgression = a.ReadyForProgression && a.PaceGatePassed && a.HRGatePassed
	}

	a.FadePct = PaceFade(result.Splits)
	a.Fatigue = fatigueLevel(a.FadePct)
	// stopping early on a fading run is treated as high fatigue
	if !result.CompletedFull && a.Fatigue == store.FatigueModerate {
		a.Fatigue = store.FatigueHigh
	}

	a.InjuryIndicators = injuryIndicators(result, v, a.FadePct)
	return a
}

func variances(given store.Prescription, result Outcome) Variance {
	var v Variance
	v.DistanceKm = result.DistanceKm - given.DistanceKm
	if given.DistanceKm > 0 {
		v.DistancePct = round2(math.Abs(v.DistanceKm) / given.DistanceKm * 100)
	}

	if pace := result.Pace(); pace > 0 && given.TargetPace > 0 {
		v.PaceSec = pace - given.TargetPace
		v.PacePct = round2(v.PaceSec / given.TargetPace * 100)
	}

	if result.AvgHR != nil && *result.AvgHR > 0 && given.TargetHR > 0 {
		bpm := *result.AvgHR - given.TargetHR
		pct := round2(bpm / given.TargetHR * 100)
		v.HRBpm, v.HRPct = &bpm, &pct
	}

	if given.Intervals != nil && given.Intervals.Count > 1 && len(result.Splits) >= given.Intervals.Count {
		cv := SplitPaceCV(result.Splits, given.Intervals.Count)
		v.IntervalCV = &cv
	}
	return v
}

func distanceScore(pct float64, completed bool) float64 {
	if !completed {
		return 30
	}
	switch {
	case pct <= 1:
		return 100
	case pct <= 2:
		return 95
	case pct <= 5:
		return 85
	case pct <= 10:
		return 70
	default:
		return 50
	}
}

func paceScore(t store.WorkoutType, variance float64) float64 {
	d := math.Abs(variance)
	switch {
	case t.IsQuality():
		return band(d, []float64{5, 10, 15, 20}, []float64{100, 90, 75, 60}, 40)
	case t == store.WorkoutLong:
		return band(d, []float64{10, 15, 20}, []float64{100, 90, 80}, 65)
	default:
		return band(d, []float64{10, 20, 30}, []float64{100, 90, 75}, 60)
	}
}

func hrScore(bpm *float64) float64 {
	if bpm == nil {
		return 75
	}
	return band(math.Abs(*bpm), []float64{3, 5, 8, 10}, []float64{100, 95, 85, 75}, 60)
}

// band returns scores[i] for the first limit v fits under, else fallback
func band(v float64, limits, scores []float64, fallback float64) float64 {
	for i, l := range limits {
		if v <= l {
			return scores[i]
		}
	}
	return fallback
}

func label(t store.WorkoutType, overall float64, completed bool) store.PerformanceLabel {
	if !completed {
		return store.LabelIncomplete
	}
	good, fair := 70.0, 55.0
	if t.IsQuality() {
		good, fair = 75, 60
	}
	switch {
	case overall >= 95:
		return store.LabelBest
	case overall >= 85:
		return store.LabelGreat
	case overall >= good:
		return store.LabelGood
	case overall >= fair:
		return store.LabelFair
	default:
		return store.LabelPoor
	}
}

var abilityDelta = map[store.PerformanceLabel]float64{
	store.LabelBest:       2,
	store.LabelGreat:      1,
	store.LabelGood:       0.5,
	store.LabelFair:       0,
	store.LabelPoor:       -0.5,
	store.LabelIncomplete: -1,
}

func fatigueLevel(fade float64) store.FatigueLevel {
	switch {
	case fade > 15:
		return store.FatigueHigh
	case fade > 8:
		return store.FatigueModerate
	default:
		return store.FatigueLow
	}
}

func injuryIndicators(result Outcome, v Variance, fade float64) []string {
	indicators := []string{}
	if !result.CompletedFull {
		indicators = append(indicators, IncompleteIndicator)
	}
	if fade > 15 {
		indicators = append(indicators, fmt.Sprintf("Severe pace fade (%.1f%%) - monitor for fatigue or niggles", fade))
	}
	if v.HRBpm != nil && *v.HRBpm > 10 {
		indicators = append(indicators, fmt.Sprintf("Heart rate %.0f bpm above target - possible overreaching", *v.HRBpm))
	}
	if d := SplitDecoupling(result.Splits); d > 10 {
		indicators = append(indicators, fmt.Sprintf("Cardiac decoupling %.1f%% - aerobic strain", d))
	}
	return indicators
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
