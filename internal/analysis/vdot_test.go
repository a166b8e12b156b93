package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateVDOT(t *testing.T) {
	tests := []struct {
		name     string
		distance float64
		seconds  int
		want     float64
	}{
		{"5K in 19:57", Distance5K, 1197, 50},
		{"10K in 41:21", Distance10K, 2481, 50},
		{"half in 1:31:35", DistanceHalfMarathon, 5495, 50},
		{"marathon in 3:10:49", DistanceMarathon, 11449, 50},
		{"5K in 30:40", Distance5K, 1840, 30},
		{"5K in 14:04", Distance5K, 844, 75},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CalculateVDOT(tt.distance, tt.seconds), 0.6)
		})
	}

	assert.Zero(t, CalculateVDOT(Distance5K, 0))
	assert.Zero(t, CalculateVDOT(0, 1200))
}

func TestPredictTimeRoundTrips(t *testing.T) {
	for _, d := range []float64{Distance5K, Distance10K, DistanceHalfMarathon, DistanceMarathon} {
		for _, vdot := range []float64{35, 50, 65} {
			secs := PredictTime(vdot, d)
			assert.InDelta(t, vdot, CalculateVDOT(d, secs), 0.15, "distance %.0f vdot %.0f", d, vdot)
		}
	}

	assert.Less(t, PredictTime(55, Distance10K), PredictTime(45, Distance10K), "fitter runners are faster")
	assert.Zero(t, PredictTime(0, Distance5K))
}

func TestPacesForVDOT(t *testing.T) {
	p := PacesForVDOT(50)
	assert.InDelta(t, 307, p.Easy, 3)
	assert.InDelta(t, 255, p.Tempo, 3)
	assert.InDelta(t, 235, p.Interval, 3)
	assert.Greater(t, p.Easy, p.Tempo)
	assert.Greater(t, p.Tempo, p.Interval)

	faster := PacesForVDOT(60)
	assert.Less(t, faster.Tempo, p.Tempo)

	assert.Equal(t, TrainingPaces{}, PacesForVDOT(0))
}

func TestVDOTLabel(t *testing.T) {
	tests := []struct {
		vdot float64
		want string
	}{
		{80, "Elite"},
		{66, "Highly Competitive"},
		{56, "Competitive"},
		{50, "Advanced Recreational"},
		{40, "Intermediate"},
		{32, "Beginner"},
		{25, "Novice"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, VDOTLabel(tt.vdot))
	}
}
