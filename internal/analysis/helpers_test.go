package analysis

import (
	"time"

	"aisri/internal/store"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

var testNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

// run builds a running activity daysAgo before testNow
func run(daysAgo int, km float64, wt store.WorkoutType) store.Activity {
	return store.Activity{
		ID:           "manual:test",
		Type:         "Run",
		StartDate:    testNow.Add(-time.Duration(daysAgo) * 24 * time.Hour).Add(-time.Hour),
		Distance:     km * 1000,
		MovingTime:   int(km * 330),
		AverageSpeed: 1000.0 / 330,
		WorkoutType:  wt,
	}
}

func splits(paces ...float64) []store.Split {
	out := make([]store.Split, len(paces))
	for i, p := range paces {
		out[i] = store.Split{Index: i + 1, Pace: p}
	}
	return out
}
