package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"aisri/internal/store"
)

var activityCounter atomic.Int64

// Athlete options
type AthleteOption func(*store.Athlete)

func WithPhase(p store.TrainingPhase) AthleteOption {
	return func(a *store.Athlete) {
		a.Phase = p
	}
}

func WithStravaID(id int64) AthleteOption {
	return func(a *store.Athlete) {
		a.StravaAthleteID = &id
	}
}

func WithPaces(easy, tempo, interval float64) AthleteOption {
	return func(a *store.Athlete) {
		a.EasyPace = easy
		a.TempoPace = tempo
		a.IntervalPace = interval
	}
}

// NewTestAthlete returns an unsaved intermediate runner with known paces and
// heart rates.
func NewTestAthlete(name string, opts ...AthleteOption) *store.Athlete {
	a := &store.Athlete{
		Name:           name,
		Age:            35,
		Sex:            "M",
		WeightKg:       70,
		EasyPace:       360,
		TempoPace:      300,
		IntervalPace:   270,
		MaxHR:          185,
		ThresholdHR:    168,
		AerobicHR:      145,
		RestingHR:      52,
		WeeklyVolumeKm: 40,
		LongestRunKm:   16,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Activity options
type ActivityOption func(*store.Activity)

func WithHeartrate(avg float64) ActivityOption {
	return func(a *store.Activity) {
		a.AverageHeartrate = &avg
	}
}

func WithType(t string) ActivityOption {
	return func(a *store.Activity) {
		a.Type = t
	}
}

func WithName(name string) ActivityOption {
	return func(a *store.Activity) {
		a.Name = name
	}
}

func WithSplits(paces ...float64) ActivityOption {
	return func(a *store.Activity) {
		a.Splits = nil
		for i, p := range paces {
			a.Splits = append(a.Splits, store.Split{Index: i + 1, Pace: p})
		}
	}
}

// NewTestRun returns an unsaved manual run of km kilometres at pace seconds
// per km, starting at start.
func NewTestRun(athleteID string, start time.Time, km, pace float64, opts ...ActivityOption) *store.Activity {
	n := activityCounter.Add(1)
	moving := int(km * pace)
	a := &store.Activity{
		ID:           fmt.Sprintf("manual:test-%d", n),
		AthleteID:    athleteID,
		Provider:     "manual",
		Name:         "Morning Run",
		Type:         "Run",
		StartDate:    start,
		Distance:     km * 1000,
		MovingTime:   moving,
		ElapsedTime:  moving,
		AverageSpeed: km * 1000 / float64(moving),
		WorkoutType:  store.WorkoutEasy,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// DailyRuns returns one easy run per day for the days before now, oldest first
func DailyRuns(athleteID string, now time.Time, days int, km, pace float64) []*store.Activity {
	runs := make([]*store.Activity, 0, days)
	for d := days; d >= 1; d-- {
		start := now.AddDate(0, 0, -d).Add(-2 * time.Hour)
		runs = append(runs, NewTestRun(athleteID, start, km, pace, WithHeartrate(145)))
	}
	return runs
}
