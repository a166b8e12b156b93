package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aisri/internal/store"
	"aisri/internal/testutil"
)

func TestGetAISRI(t *testing.T) {
	f := newFixture(t)

	_, err := f.coach.GetAISRI(f.ctx, f.athlete.ID, 0)
	assert.ErrorIs(t, err, ErrNotFound, "no score yet")

	for i := 3; i >= 1; i-- {
		require.NoError(t, f.store.InsertAISRIScore(f.ctx, &store.AISRIScore{
			AthleteID:  f.athlete.ID,
			ComputedAt: f.now.AddDate(0, 0, -i),
			Overall:    60 + i,
			RiskLevel:  store.RiskModerate,
		}))
	}

	view, err := f.coach.GetAISRI(f.ctx, f.athlete.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 61, view.Current.Overall)
	require.Len(t, view.History, 2)
	assert.Equal(t, 61, view.History[0].Overall, "history is newest first")

	_, err = f.coach.GetAISRI(f.ctx, f.athlete.ID, -1)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.coach.GetAISRI(f.ctx, "nobody", 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListActivities(t *testing.T) {
	f := newFixture(t)
	f.addRuns(testutil.DailyRuns(f.athlete.ID, f.now, 25, 5, 360)...)

	page, err := f.coach.ListActivities(f.ctx, f.athlete.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, page, DefaultPageSize)
	assert.True(t, page[0].StartDate.After(page[1].StartDate), "newest first")

	rest, err := f.coach.ListActivities(f.ctx, f.athlete.ID, 10, 20)
	require.NoError(t, err)
	assert.Len(t, rest, 5)

	for _, bad := range [][2]int{{-1, 0}, {MaxPageSize + 1, 0}, {10, -1}} {
		_, err := f.coach.ListActivities(f.ctx, f.athlete.ID, bad[0], bad[1])
		assert.ErrorIs(t, err, ErrInvalidInput, "limit %d offset %d", bad[0], bad[1])
	}
}

func TestRegisterAthlete(t *testing.T) {
	f := newFixture(t)

	a := testutil.NewTestAthlete("  New Runner ")
	require.NoError(t, f.coach.RegisterAthlete(f.ctx, a))
	assert.Equal(t, "New Runner", a.Name)
	assert.Equal(t, store.PhaseFoundation, a.Phase)

	assert.ErrorIs(t, f.coach.RegisterAthlete(f.ctx, &store.Athlete{}), ErrInvalidInput)
	assert.ErrorIs(t, f.coach.RegisterAthlete(f.ctx, &store.Athlete{Name: "x", Age: 200}), ErrInvalidInput)
	assert.ErrorIs(t, f.coach.RegisterAthlete(f.ctx, &store.Athlete{Name: "x", RestingHR: 190, MaxHR: 180}), ErrInvalidInput)
}

func TestRecordAssessment(t *testing.T) {
	f := newFixture(t)
	rom := 80

	a, err := f.coach.RecordAssessment(f.ctx, f.athlete.ID, AssessmentInput{Strength: 70, Mobility: 75, RangeOfMotion: &rom})
	require.NoError(t, err)
	assert.Equal(t, f.now, a.AssessedAt)

	latest, err := f.store.LatestAssessment(f.ctx, f.athlete.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, latest.ID)

	bad := 101
	_, err = f.coach.RecordAssessment(f.ctx, f.athlete.ID, AssessmentInput{Strength: 70, Mobility: 70, RangeOfMotion: &bad})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.coach.RecordAssessment(f.ctx, "nobody", AssessmentInput{Strength: 70, Mobility: 70})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIngestPayload(t *testing.T) {
	f := newFixture(t)
	payload := []byte(`{"id": 9001, "name": "Evening Run", "type": "Run",
		"start_date": "` + f.now.Add(-3*time.Hour).Format(time.RFC3339) + `",
		"distance": 10000, "moving_time": 3300, "elapsed_time": 3400}`)

	a, inserted, err := f.coach.IngestPayload(f.ctx, f.athlete.ID, "strava", payload)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, "strava:9001", a.ID)

	_, inserted, err = f.coach.IngestPayload(f.ctx, f.athlete.ID, "strava", payload)
	require.NoError(t, err)
	assert.False(t, inserted, "the same provider id is stored once")

	_, _, err = f.coach.IngestPayload(f.ctx, f.athlete.ID, "polar", payload)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, _, err = f.coach.IngestPayload(f.ctx, "nobody", "strava", payload)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListAssignments(t *testing.T) {
	f := newFixture(t)
	f.assignTempo()

	got, err := f.coach.ListAssignments(f.ctx, f.athlete.ID, 7)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = f.coach.ListAssignments(f.ctx, f.athlete.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.coach.ListAssignments(f.ctx, "nobody", 7)
	assert.ErrorIs(t, err, ErrNotFound)
}
