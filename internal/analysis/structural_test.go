package analysis

import (
	"strings"
	"testing"

	"aisri/internal/store"
)

func TestClassifyStructural(t *testing.T) {
	tests := []struct {
		score    int
		expected StructuralState
	}{
		{0, StructuralRed},
		{54, StructuralRed},
		{55, StructuralYellow},
		{70, StructuralYellow},
		{71, StructuralGreen},
		{100, StructuralGreen},
	}

	for _, tt := range tests {
		if got := ClassifyStructural(tt.score); got != tt.expected {
			t.Errorf("ClassifyStructural(%d) = %s, want %s", tt.score, got, tt.expected)
		}
	}
}

func TestStructuralScore(t *testing.T) {
	tests := []struct {
		name       string
		assessment *store.ReadinessAssessment
		expected   int
	}{
		{"no assessment", nil, 50},
		{"strength and mobility", &store.ReadinessAssessment{Strength: 70, Mobility: 81}, 76},
		{"with range of motion", &store.ReadinessAssessment{Strength: 60, Mobility: 70, RangeOfMotion: intPtr(80)}, 70},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StructuralScore(tt.assessment); got != tt.expected {
				t.Errorf("StructuralScore() = %d, want %d", got, tt.expected)
			}
		})
	}
}

func TestClearance(t *testing.T) {
	tests := []struct {
		name      string
		state     StructuralState
		wt        store.WorkoutType
		intensity store.Intensity
		cleared   bool
		reason    string
		speed     bool
	}{
		{"red allows easy", StructuralRed, store.WorkoutEasy, store.IntensityEasy, true, "", false},
		{"red allows mobility", StructuralRed, store.WorkoutMobility, store.IntensityLow, true, "", false},
		{"red blocks threshold", StructuralRed, store.WorkoutThreshold, store.IntensityHard, false, "RED", false},
		{"red blocks long run", StructuralRed, store.WorkoutLong, store.IntensityModerate, false, "RED", false},
		{"red blocks high intensity easy", StructuralRed, store.WorkoutEasy, store.IntensityVeryHigh, false, "RED", false},
		{"yellow allows tempo", StructuralYellow, store.WorkoutTempo, store.IntensityHard, true, "", false},
		{"yellow blocks interval", StructuralYellow, store.WorkoutInterval, store.IntensityInterval, false, "YELLOW", false},
		{"yellow blocks race", StructuralYellow, store.WorkoutRace, store.IntensityVeryHigh, false, "YELLOW", false},
		{"green allows everything", StructuralGreen, store.WorkoutVO2Max, store.IntensityVeryHigh, true, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Clearance(tt.state, tt.wt, tt.intensity)
			if got.Cleared != tt.cleared || got.SpeedPermission != tt.speed {
				t.Errorf("Clearance() = %+v, want cleared %v speed %v", got, tt.cleared, tt.speed)
			}
			if !strings.Contains(got.Reason, tt.reason) {
				t.Errorf("Reason = %q, want it to mention %q", got.Reason, tt.reason)
			}
		})
	}
}
