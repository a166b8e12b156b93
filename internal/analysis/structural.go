package analysis

import (
	"fmt"
	"math"

	"aisri/internal/store"
)

// StructuralState gates which workout types the body is ready for
type StructuralState string

const (
	StructuralRed    StructuralState = "RED"
	StructuralYellow StructuralState = "YELLOW"
	StructuralGreen  StructuralState = "GREEN"
)

// DefaultStructuralScore is used when no assessment exists
const DefaultStructuralScore = 50

// StructuralScore is the rounded mean of strength, mobility and range of motion
func StructuralScore(a *store.ReadinessAssessment) int {
	if a == nil {
		return DefaultStructuralScore
	}
	sum, n := a.Strength+a.Mobility, 2
	if a.RangeOfMotion != nil {
		sum += *a.RangeOfMotion
		n++
	}
	return int(math.Round(float64(sum) / float64(n)))
}

// ClassifyStructural partitions a score: <55 RED, 55..70 YELLOW, >70 GREEN
func ClassifyStructural(score int) StructuralState {
	switch {
	case score < 55:
		return StructuralRed
	case score <= 70:
		return StructuralYellow
	default:
		return StructuralGreen
	}
}

// ClearanceResult is the outcome of a structural check
type ClearanceResult struct {
	Cleared         bool   `json:"cleared"`
	Reason          string `json:"reason,omitempty"`
	SpeedPermission bool   `json:"speed_permission"`
}

var redAllowed = map[store.WorkoutType]bool{
	store.WorkoutMobility:   true,
	store.WorkoutActivation: true,
	store.WorkoutEasy:       true,
	store.WorkoutRecovery:   true,
}

var yellowBlocked = map[store.WorkoutType]bool{
	store.WorkoutThreshold: true,
	store.WorkoutVO2Max:    true,
	store.WorkoutInterval:  true,
	store.WorkoutRace:      true,
}

// Clearance checks a workout type and intensity against the structural state
func Clearance(state StructuralState, wt store.WorkoutType, intensity store.Intensity) ClearanceResult {
	switch state {
	case StructuralRed:
		if !redAllowed[wt] {
			return ClearanceResult{Reason: fmt.Sprintf("Structural state RED: %s workouts not permitted", wt)}
		}
		if intensity.IsHigh() {
			return ClearanceResult{Reason: fmt.Sprintf("Structural state RED: %s intensity not permitted", intensity)}
		}
		return ClearanceResult{Cleared: true}
	case StructuralYellow:
		if yellowBlocked[wt] {
			return ClearanceResult{Reason: fmt.Sprintf("Structural state YELLOW: %s workouts not permitted", wt)}
		}
		return ClearanceResult{Cleared: true}
	default:
		return ClearanceResult{Cleared: true, SpeedPermission: true}
	}
}
