package analysis

import (
	"math"
	"testing"

	"aisri/internal/store"
)

func TestPaceFade(t *testing.T) {
	tests := []struct {
		name     string
		splits   []store.Split
		expected float64
		delta    float64
	}{
		{
			name:     "no splits",
			expected: 0,
		},
		{
			name:     "even pacing",
			splits:   splits(300, 300, 300, 300),
			expected: 0,
			delta:    0.01,
		},
		{
			name:   "severe fade with odd count",
			splits: splits(340, 345, 355, 365, 375, 380, 385, 390, 395),
			// first half mean 351.25, second half mean 385
			expected: 9.61,
			delta:    0.01,
		},
		{
			name:     "negative split",
			splits:   splits(320, 320, 300, 300),
			expected: -6.25,
			delta:    0.01,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := PaceFade(tt.splits)
			if math.Abs(result-tt.expected) > tt.delta {
				t.Errorf("PaceFade() = %v, want %v (±%v)", result, tt.expected, tt.delta)
			}
		})
	}
}

func TestSplitDecoupling(t *testing.T) {
	withHR := func(paces []float64, hrs []float64) []store.Split {
		s := splits(paces...)
		for i := range s {
			s[i].Heartrate = floatPtr(hrs[i])
		}
		return s
	}

	tests := []struct {
		name     string
		splits   []store.Split
		expected float64
		delta    float64
	}{
		{
			name:     "too few splits with HR",
			splits:   withHR([]float64{300, 300, 300}, []float64{150, 150, 150}),
			expected: 0,
		},
		{
			name:     "perfectly coupled",
			splits:   withHR([]float64{300, 300, 300, 300}, []float64{150, 150, 150, 150}),
			expected: 0,
			delta:    0.01,
		},
		{
			name:   "HR drifts up at same pace",
			splits: withHR([]float64{300, 300, 300, 300}, []float64{150, 150, 165, 165}),
			// firstEF / secondEF = 165/150
			expected: 10,
			delta:    0.01,
		},
		{
			name:     "splits without HR are ignored",
			splits:   splits(300, 310, 320, 330, 340),
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SplitDecoupling(tt.splits)
			if math.Abs(result-tt.expected) > tt.delta {
				t.Errorf("SplitDecoupling() = %v, want %v (±%v)", result, tt.expected, tt.delta)
			}
		})
	}
}

func TestSplitPaceCV(t *testing.T) {
	if got := SplitPaceCV(splits(300, 300, 300), 0); got != 0 {
		t.Errorf("even splits CV = %v, want 0", got)
	}
	// first two splits only: mean 250, stdev 50
	if got := SplitPaceCV(splits(200, 300, 900), 2); math.Abs(got-0.2) > 1e-9 {
		t.Errorf("CV of first 2 = %v, want 0.2", got)
	}
	if got := SplitPaceCV(splits(300), 1); got != 0 {
		t.Errorf("single split CV = %v, want 0", got)
	}
}
