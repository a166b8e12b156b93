package analysis

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"aisri/internal/store"
)

// Gate names, in evaluation order
const (
	GateAISRI           = "aisri_score"
	GateInjuryRisk      = "injury_risk"
	GateRecovery        = "recovery"
	GateConsecutiveHard = "consecutive_hard_days"
	GateVolume          = "volume_progression"
)

// SafetyThresholds parameterises the five gates
type SafetyThresholds struct {
	AISRIHard         int     // minimum AISRI for hard, tempo, threshold
	AISRISpeed        int     // minimum AISRI for interval, speed, vo2max
	MaxInjuryRisk     int     // risk above this blocks hard sessions
	MinRecovery       int     // recovery pillar below this blocks demanding sessions
	MaxConsecutive    int     // a streak this long blocks another hard session
	HardHR            float64 // average HR above this marks a session hard
	VolumeIncreasePct float64 // allowed week-over-week growth in minutes
}

// DefaultSafetyThresholds returns the standard gate thresholds
func DefaultSafetyThresholds() SafetyThresholds {
	return SafetyThresholds{
		AISRIHard:         65,
		AISRISpeed:        70,
		MaxInjuryRisk:     75,
		MinRecovery:       60,
		MaxConsecutive:    3,
		HardHR:            160,
		VolumeIncreasePct: 10,
	}
}

// SafetyInput is a proposed workout plus the readiness signals it is judged on
type SafetyInput struct {
	WorkoutType     store.WorkoutType
	Intensity       store.Intensity
	DurationMinutes int

	AISRI          int
	InjuryRisk     int
	RecoveryPillar int

	// Activities of at least the last 14 days
	Recent []store.Activity
	Now    time.Time

	Degraded bool
	Notes    []string
}

// GateResult is the outcome of one gate
type GateResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// SafetyCheck is the full gate evaluation
type SafetyCheck struct {
	Safe           bool         `json:"safe"`
	Reason         string       `json:"reason,omitempty"`
	Recommendation string       `json:"recommendation,omitempty"`
	GatesPassed    []string     `json:"gates_passed"`
	GatesFailed    []string     `json:"gates_failed"`
	Gates          []GateResult `json:"gates"`
	AISRIScore     int          `json:"aisri_score"`
	InjuryRisk     int          `json:"injury_risk"`
	Degraded       bool         `json:"degraded"`
	Notes          []string     `json:"notes,omitempty"`
}

var recommendations = map[string]string{
	GateAISRI:           "recommend easy recovery run",
	GateInjuryRisk:      "recommend rest or cross-training",
	GateRecovery:        "recommend recovery run or rest day",
	GateConsecutiveHard: "schedule rest",
	GateVolume:          "reduce duration to keep weekly volume increase under 10%",
}

// EvaluateSafety runs the default gates
func EvaluateSafety(in SafetyInput) SafetyCheck {
	return DefaultSafetyThresholds().Evaluate(in)
}

// Evaluate runs every gate in order and records each outcome. The workout is
// safe only when none failed.
func (t SafetyThresholds) Evaluate(in SafetyInput) SafetyCheck {
	gates := []GateResult{
		t.aisriGate(in),
		t.injuryGate(in),
		t.recoveryGate(in),
		t.consecutiveGate(in),
		t.volumeGate(in),
	}

	check := SafetyCheck{
		Safe:        true,
		Gates:       gates,
		GatesPassed: []string{},
		GatesFailed: []string{},
		AISRIScore:  in.AISRI,
		InjuryRisk:  in.InjuryRisk,
		Degraded:    in.Degraded,
		Notes:       in.Notes,
	}

	var reasons, recs []string
	for _, g := range gates {
		if g.Passed {
			check.GatesPassed = append(check.GatesPassed, g.Name)
			continue
		}
		check.Safe = false
		check.GatesFailed = append(check.GatesFailed, g.Name)
		reasons = append(reasons, g.Detail)
		recs = append(recs, recommendations[g.Name])
	}
	check.Reason = strings.Join(reasons, "; ")
	check.Recommendation = strings.Join(recs, "; ")
	return check
}

func (t SafetyThresholds) aisriGate(in SafetyInput) GateResult {
	g := GateResult{Name: GateAISRI, Passed: true}
	var need int
	switch in.WorkoutType {
	case store.WorkoutHard, store.WorkoutTempo, store.WorkoutThreshold:
		need = t.AISRIHard
	case store.WorkoutInterval, store.WorkoutSpeed, store.WorkoutVO2Max:
		need = t.AISRISpeed
	default:
		return g
	}
	if in.AISRI < need {
		g.Passed = false
		g.Detail = fmt.Sprintf("AISRI %d below %d required for %s", in.AISRI, need, in.WorkoutType)
	}
	return g
}

func (t SafetyThresholds) injuryGate(in SafetyInput) GateResult {
	g := GateResult{Name: GateInjuryRisk, Passed: true}
	switch in.WorkoutType {
	case store.WorkoutHard, store.WorkoutInterval, store.WorkoutSpeed, store.WorkoutTempo:
		if in.InjuryRisk > t.MaxInjuryRisk {
			g.Passed = false
			g.Detail = fmt.Sprintf("injury risk %d above %d", in.InjuryRisk, t.MaxInjuryRisk)
		}
	}
	return g
}

func (t SafetyThresholds) recoveryGate(in SafetyInput) GateResult {
	g := GateResult{Name: GateRecovery, Passed: true}
	switch in.WorkoutType {
	case store.WorkoutHard, store.WorkoutInterval, store.WorkoutSpeed, store.WorkoutTempo, store.WorkoutLong:
		if in.RecoveryPillar < t.MinRecovery {
			g.Passed = false
			g.Detail = fmt.Sprintf("recovery score %d below %d", in.RecoveryPillar, t.MinRecovery)
		}
	}
	return g
}

func (t SafetyThresholds) consecutiveGate(in SafetyInput) GateResult {
	g := GateResult{Name: GateConsecutiveHard, Passed: true}
	if !in.WorkoutType.IsHard() {
		return g
	}
	if streak := t.HardStreak(in.Recent, in.Now); streak >= t.MaxConsecutive {
		g.Passed = false
		g.Detail = fmt.Sprintf("%d consecutive hard sessions in the last 7 days", streak)
	}
	return g
}

func (t SafetyThresholds) volumeGate(in SafetyInput) GateResult {
	g := GateResult{Name: GateVolume, Passed: true}
	if !in.WorkoutType.IsRunning() {
		return g
	}
	thisWeek, lastWeek := WeeklyMinutes(in.Recent, in.Now)
	// with no running last week there is no baseline to grow from
	if lastWeek <= 0 {
		g.Detail = "no running last week"
		return g
	}
	planned := thisWeek + float64(in.DurationMinutes)
	if limit := lastWeek * (1 + t.VolumeIncreasePct/100); planned > limit {
		g.Passed = false
		g.Detail = fmt.Sprintf("planned week of %.0f min exceeds last week's %.0f min by more than %.0f%%",
			planned, lastWeek, t.VolumeIncreasePct)
	}
	return g
}

// IsHardSession classifies a completed activity for the streak gate
func (t SafetyThresholds) IsHardSession(a store.Activity) bool {
	if a.HasHeartrate() && *a.AverageHeartrate > t.HardHR {
		return true
	}
	return a.WorkoutType.IsHard()
}

// HardStreak returns the longest run of consecutive hard sessions among the
// activities of the last 7 days
func (t SafetyThresholds) HardStreak(activities []store.Activity, now time.Time) int {
	since := now.Add(-7 * 24 * time.Hour)
	var recent []store.Activity
	for _, a := range activities {
		if a.StartDate.After(since) && !a.StartDate.After(now) {
			recent = append(recent, a)
		}
	}
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].StartDate.Before(recent[j].StartDate)
	})

	var streak, longest int
	for _, a := range recent {
		if !t.IsHardSession(a) {
			streak = 0
			continue
		}
		streak++
		longest = max(longest, streak)
	}
	return longest
}

// WeeklyMinutes returns running minutes of the last 7 days and of the 7 days before
func WeeklyMinutes(activities []store.Activity, now time.Time) (thisWeek, lastWeek float64) {
	week := 7 * 24 * time.Hour
	for _, a := range activities {
		if !a.IsRun() {
			continue
		}
		age := now.Sub(a.StartDate)
		minutes := float64(a.MovingTime) / 60
		switch {
		case age < 0:
		case age < week:
			thisWeek += minutes
		case age < 2*week:
			lastWeek += minutes
		}
	}
	return thisWeek, lastWeek
}
