package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aisri/internal/analysis"
	"aisri/internal/store"
	"aisri/internal/testutil"
)

// assignTempo requests a tempo run the athlete is cleared for
func (f *fixture) assignTempo() *store.WorkoutAssignment {
	f.t.Helper()
	f.seed(75, 80, 30, 75)
	d, err := f.coach.RequestWorkout(f.ctx, WorkoutRequest{AthleteID: f.athlete.ID, Type: "tempo", DurationMinutes: 50})
	require.NoError(f.t, err)
	require.Equal(f.t, StatusSuccess, d.Status, "reason: %s", d.Reason)
	return d.Assignment
}

func evenTempoPayload(a *store.WorkoutAssignment, activityID string) ResultPayload {
	hr := a.Prescription.TargetHR + 2
	return ResultPayload{
		SourceActivityID: activityID,
		DistanceKm:       a.Prescription.DistanceKm + 0.1,
		AvgPace:          a.Prescription.TargetPace - 1,
		DurationSeconds:  int((a.Prescription.DistanceKm + 0.1) * (a.Prescription.TargetPace - 1)),
		AvgHR:            &hr,
		CompletedFull:    true,
	}
}

func TestRecordCompletionWritesEverything(t *testing.T) {
	f := newFixture(t)
	assignment := f.assignTempo()

	out, err := f.coach.RecordCompletion(f.ctx, assignment.ID, f.athlete.ID, evenTempoPayload(assignment, "strava:1"))
	require.NoError(t, err)
	require.False(t, out.Duplicate)

	assert.Equal(t, store.LabelGreat, out.Result.Label)
	assert.Equal(t, 1.5, out.Result.AbilityChange)
	assert.True(t, out.Result.ReadyForProgression)
	assert.Equal(t, out.Result.ID, out.Progression.ResultID)

	stored, err := f.store.GetAssignment(f.ctx, assignment.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, stored.Status)

	athlete, err := f.store.GetAthlete(f.ctx, f.athlete.ID)
	require.NoError(t, err)
	assert.Equal(t, f.athlete.EasyPace-1.5, athlete.EasyPace)
	assert.Equal(t, f.athlete.TempoPace-1.5, athlete.TempoPace)
	assert.Equal(t, athlete.Snapshot(), out.Progression.Snapshot)

	// a quality session is followed by an easy day
	require.NotNil(t, out.NextAssignment)
	assert.Equal(t, store.WorkoutEasy, out.NextAssignment.Prescription.Type)
	assert.Equal(t, dayStart(f.now).AddDate(0, 0, 1), out.NextAssignment.ScheduledDate)
	next, err := f.store.GetAssignment(f.ctx, out.NextAssignment.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusAssigned, next.Status)
}

func TestRecordCompletionIdempotent(t *testing.T) {
	f := newFixture(t)
	assignment := f.assignTempo()
	payload := evenTempoPayload(assignment, "strava:2")

	first, err := f.coach.RecordCompletion(f.ctx, assignment.ID, f.athlete.ID, payload)
	require.NoError(t, err)
	second, err := f.coach.RecordCompletion(f.ctx, assignment.ID, f.athlete.ID, payload)
	require.NoError(t, err)

	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Result.ID, second.Result.ID)

	progression, err := f.store.ListProgression(f.ctx, f.athlete.ID)
	require.NoError(t, err)
	assert.Len(t, progression, 1)
	results, err := f.store.ListResultsSince(f.ctx, f.athlete.ID, f.now.AddDate(0, 0, -1))
	require.NoError(t, err)
	assert.Len(t, results, 1)

	athlete, err := f.store.GetAthlete(f.ctx, f.athlete.ID)
	require.NoError(t, err)
	assert.Equal(t, f.athlete.EasyPace-1.5, athlete.EasyPace, "ability applied once")
}

func TestRecordCompletionRejectsSecondActivity(t *testing.T) {
	f := newFixture(t)
	assignment := f.assignTempo()

	_, err := f.coach.RecordCompletion(f.ctx, assignment.ID, f.athlete.ID, evenTempoPayload(assignment, "strava:3"))
	require.NoError(t, err)
	_, err = f.coach.RecordCompletion(f.ctx, assignment.ID, f.athlete.ID, evenTempoPayload(assignment, "strava:4"))
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestRecordCompletionCrossAthlete(t *testing.T) {
	f := newFixture(t)
	assignment := f.assignTempo()

	other := testutil.NewTestAthlete("Someone Else")
	require.NoError(t, f.store.CreateAthlete(f.ctx, other))

	_, err := f.coach.RecordCompletion(f.ctx, assignment.ID, other.ID, evenTempoPayload(assignment, "strava:5"))
	assert.ErrorIs(t, err, ErrCrossAthlete)

	// the source activity must belong to the athlete too
	run := testutil.NewTestRun(other.ID, f.now.Add(-time.Hour), 10, 300)
	f.addRuns(run)
	_, err = f.coach.RecordCompletion(f.ctx, assignment.ID, f.athlete.ID, ResultPayload{SourceActivityID: run.ID})
	assert.ErrorIs(t, err, ErrCrossAthlete)
}

func TestRecordCompletionRejectsOthersActivityWithExplicitFigures(t *testing.T) {
	f := newFixture(t)
	assignment := f.assignTempo()

	other := testutil.NewTestAthlete("Other")
	require.NoError(t, f.store.CreateAthlete(f.ctx, other))
	run := testutil.NewTestRun(other.ID, f.now.Add(-time.Hour), 10, 360)
	f.addRuns(run)

	_, err := f.coach.RecordCompletion(f.ctx, assignment.ID, f.athlete.ID, evenTempoPayload(assignment, run.ID))
	require.ErrorIs(t, err, ErrCrossAthlete)

	_, err = f.store.GetResultBySourceActivity(f.ctx, run.ID)
	assert.ErrorIs(t, err, ErrNotFound, "nothing recorded against another athlete's activity")
	stored, err := f.store.GetAssignment(f.ctx, assignment.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusAssigned, stored.Status)
}

func TestRecordCompletionFromStoredActivity(t *testing.T) {
	f := newFixture(t)
	assignment := f.assignTempo()
	p := assignment.Prescription

	run := testutil.NewTestRun(f.athlete.ID, f.now.Add(-time.Hour), p.DistanceKm, p.TargetPace, testutil.WithHeartrate(p.TargetHR))
	f.addRuns(run)

	out, err := f.coach.RecordCompletion(f.ctx, assignment.ID, f.athlete.ID, ResultPayload{SourceActivityID: run.ID, CompletedFull: true})
	require.NoError(t, err)
	assert.InDelta(t, p.DistanceKm, out.Result.DistanceKm, 1e-9)
	assert.Equal(t, run.MovingTime, out.Result.DurationSeconds)
	assert.Contains(t, []store.PerformanceLabel{store.LabelBest, store.LabelGreat}, out.Result.Label)
}

func TestRecordCompletionUnknownActivity(t *testing.T) {
	f := newFixture(t)
	assignment := f.assignTempo()

	_, err := f.coach.RecordCompletion(f.ctx, assignment.ID, f.athlete.ID, ResultPayload{SourceActivityID: "strava:404"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRecordCompletionRollsBack(t *testing.T) {
	injected := errors.New("injected failure")

	for failOn := int32(1); failOn <= 5; failOn++ {
		f := newFixture(t)
		assignment := f.assignTempo()
		failing := f.newCoach(f.store.WithTxWrapper(testutil.FailOnNthExec(failOn, injected)))

		_, err := failing.RecordCompletion(f.ctx, assignment.ID, f.athlete.ID, evenTempoPayload(assignment, "strava:9"))
		require.ErrorIs(t, err, injected, "write %d", failOn)

		_, err = f.store.GetResultBySourceActivity(f.ctx, "strava:9")
		assert.ErrorIs(t, err, ErrNotFound, "write %d: result rolled back", failOn)
		progression, err := f.store.ListProgression(f.ctx, f.athlete.ID)
		require.NoError(t, err)
		assert.Empty(t, progression, "write %d: progression rolled back", failOn)
		stored, err := f.store.GetAssignment(f.ctx, assignment.ID)
		require.NoError(t, err)
		assert.Equal(t, store.StatusAssigned, stored.Status, "write %d: status rolled back", failOn)
		athlete, err := f.store.GetAthlete(f.ctx, f.athlete.ID)
		require.NoError(t, err)
		assert.Equal(t, f.athlete.EasyPace, athlete.EasyPace, "write %d: ability rolled back", failOn)
	}
}

func TestRecordCompletionValidation(t *testing.T) {
	f := newFixture(t)
	negative := -1.0

	tests := []struct {
		name       string
		assignment string
		athlete    string
		payload    ResultPayload
		want       error
	}{
		{"missing assignment", "", f.athlete.ID, ResultPayload{SourceActivityID: "x"}, ErrInvalidInput},
		{"missing activity", "a", f.athlete.ID, ResultPayload{}, ErrInvalidInput},
		{"negative distance", "a", f.athlete.ID, ResultPayload{SourceActivityID: "x", DistanceKm: -1}, ErrInvalidInput},
		{"negative stop", "a", f.athlete.ID, ResultPayload{SourceActivityID: "x", StoppedAtKm: &negative}, ErrInvalidInput},
		{"unknown assignment", "nope", f.athlete.ID, ResultPayload{SourceActivityID: "x", DistanceKm: 5}, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.coach.RecordCompletion(f.ctx, tt.assignment, tt.athlete, tt.payload)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNextWorkoutType(t *testing.T) {
	tests := []struct {
		name string
		done store.WorkoutType
		a    analysis.Assessment
		want store.WorkoutType
	}{
		{"high fatigue", store.WorkoutEasy, analysis.Assessment{Label: store.LabelGood, Fatigue: store.FatigueHigh}, store.WorkoutRecovery},
		{"poor", store.WorkoutEasy, analysis.Assessment{Label: store.LabelPoor}, store.WorkoutRecovery},
		{"incomplete", store.WorkoutLong, analysis.Assessment{Label: store.LabelIncomplete}, store.WorkoutRecovery},
		{"after quality", store.WorkoutTempo, analysis.Assessment{Label: store.LabelGreat, ReadyForProgression: true}, store.WorkoutEasy},
		{"after long", store.WorkoutLong, analysis.Assessment{Label: store.LabelGood}, store.WorkoutEasy},
		{"ready", store.WorkoutEasy, analysis.Assessment{Label: store.LabelGreat, ReadyForProgression: true}, store.WorkoutTempo},
		{"steady", store.WorkoutEasy, analysis.Assessment{Label: store.LabelGood}, store.WorkoutEasy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextWorkoutType(tt.done, tt.a))
		})
	}
}

func TestApplyAbility(t *testing.T) {
	a := &store.Athlete{EasyPace: 151, TempoPace: 300, IntervalPace: 0}
	applyAbility(a, 2)
	assert.Equal(t, float64(MinPace), a.EasyPace)
	assert.Equal(t, 298.0, a.TempoPace)
	assert.Zero(t, a.IntervalPace, "unknown paces stay unknown")

	applyAbility(a, -1)
	assert.Equal(t, 299.0, a.TempoPace)
}

func TestFallbackChain(t *testing.T) {
	assert.Equal(t, []store.WorkoutType{store.WorkoutTempo, store.WorkoutEasy, store.WorkoutRecovery, store.WorkoutMobility},
		fallbackChain(store.WorkoutTempo))
	assert.Equal(t, []store.WorkoutType{store.WorkoutRecovery, store.WorkoutMobility}, fallbackChain(store.WorkoutRecovery))
}
