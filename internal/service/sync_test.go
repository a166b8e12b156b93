package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aisri/internal/strava"
	"aisri/internal/testutil"
)

// fakeStrava serves a fixed activity list, oldest first
type fakeStrava struct {
	mu         sync.Mutex
	activities []strava.Activity
	details    map[int64]strava.Activity
	detailErr  error
	pages      int
}

func (f *fakeStrava) GetActivities(_ context.Context, after time.Time, page, perPage int) ([]strava.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pages++
	var newer []strava.Activity
	for _, a := range f.activities {
		if a.StartDate.After(after) {
			newer = append(newer, a)
		}
	}
	start := (page - 1) * perPage
	if start >= len(newer) {
		return nil, nil
	}
	return newer[start:min(start+perPage, len(newer))], nil
}

func (f *fakeStrava) GetActivity(_ context.Context, id int64) (*strava.Activity, error) {
	if f.detailErr != nil {
		return nil, f.detailErr
	}
	if d, ok := f.details[id]; ok {
		return &d, nil
	}
	for _, a := range f.activities {
		if a.ID == id {
			return &a, nil
		}
	}
	return nil, errors.New("not found")
}

func stravaRun(id int64, start time.Time, km float64) strava.Activity {
	moving := int(km * 330)
	return strava.Activity{
		ID:          id,
		Name:        "Lunch Run",
		Type:        "Run",
		StartDate:   start,
		Distance:    km * 1000,
		MovingTime:  moving,
		ElapsedTime: moving,
	}
}

func withSplits(a strava.Activity) strava.Activity {
	for i := 1; i <= int(a.Distance/1000); i++ {
		a.SplitsMetric = append(a.SplitsMetric, strava.Split{Split: i, Distance: 1000, MovingTime: 330})
	}
	return a
}

func newSyncService(f *fixture, src *fakeStrava) *SyncService {
	s := NewSyncService(f.coach, func(context.Context, string) (ActivitySource, error) { return src, nil })
	s.perPage = 2
	return s
}

func TestSyncAthlete(t *testing.T) {
	f := newFixture(t)
	src := &fakeStrava{details: map[int64]strava.Activity{}}
	for i := range 5 {
		a := stravaRun(int64(100+i), f.now.AddDate(0, 0, -5+i), 8)
		src.activities = append(src.activities, a)
		src.details[a.ID] = withSplits(a)
	}
	// no distance, rejected by validation
	src.activities = append(src.activities, strava.Activity{ID: 200, Type: "Run", StartDate: f.now.Add(-time.Hour)})

	progress := make(chan SyncProgress, 100)
	result, err := newSyncService(f, src).SyncAthlete(f.ctx, f.athlete.ID, progress)
	require.NoError(t, err)

	assert.Equal(t, 6, result.ActivitiesFetched)
	assert.Equal(t, 5, result.ActivitiesStored)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 5, result.DetailsFetched)
	assert.Empty(t, result.Errors)
	require.NotNil(t, result.Readiness)

	stored, err := f.store.GetActivity(f.ctx, "strava:100")
	require.NoError(t, err)
	assert.Equal(t, f.athlete.ID, stored.AthleteID)
	assert.Len(t, stored.Splits, 8)

	var phases []string
	for p := range progress {
		phases = append(phases, p.Phase)
	}
	assert.Contains(t, phases, "details")
	assert.Equal(t, "readiness", phases[len(phases)-1])

	cursor, err := f.store.GetSyncState(f.ctx, syncCursorKey(f.athlete.ID))
	require.NoError(t, err)
	assert.Equal(t, f.now.Add(-time.Hour).UTC().Format(time.RFC3339), cursor)
}

func TestSyncAthleteResumesFromCursor(t *testing.T) {
	f := newFixture(t)
	src := &fakeStrava{}
	src.activities = []strava.Activity{withSplits(stravaRun(1, f.now.AddDate(0, 0, -2), 6))}

	svc := newSyncService(f, src)
	_, err := svc.SyncAthlete(f.ctx, f.athlete.ID, nil)
	require.NoError(t, err)

	src.activities = append(src.activities, withSplits(stravaRun(2, f.now.AddDate(0, 0, -1), 7)))
	result, err := svc.SyncAthlete(f.ctx, f.athlete.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, result.ActivitiesFetched, "only activities after the cursor are fetched")
	assert.Equal(t, 1, result.ActivitiesStored)
	assert.Zero(t, result.Duplicates)

	n, err := f.store.CountActivities(f.ctx, f.athlete.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestSyncAthleteKeepsSummaryWhenDetailsFail(t *testing.T) {
	f := newFixture(t)
	src := &fakeStrava{detailErr: errors.New("rate limited")}
	src.activities = []strava.Activity{stravaRun(7, f.now.AddDate(0, 0, -1), 10)}

	result, err := newSyncService(f, src).SyncAthlete(f.ctx, f.athlete.ID, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, result.ActivitiesStored)
	assert.Len(t, result.Errors, 1)
	stored, err := f.store.GetActivity(f.ctx, "strava:7")
	require.NoError(t, err)
	assert.Empty(t, stored.Splits)
}

func TestSyncAthleteClientError(t *testing.T) {
	f := newFixture(t)
	svc := NewSyncService(f.coach, func(context.Context, string) (ActivitySource, error) {
		return nil, ErrUpstreamAuth
	})

	_, err := svc.SyncAthlete(f.ctx, f.athlete.ID, nil)
	assert.ErrorIs(t, err, ErrUpstreamAuth)
}

func TestHandleEvent(t *testing.T) {
	f := newFixture(t, testutil.WithStravaID(4242))
	src := &fakeStrava{}
	src.activities = []strava.Activity{withSplits(stravaRun(55, f.now.Add(-2*time.Hour), 10))}
	svc := newSyncService(f, src)

	// updates and athlete events are ignored
	require.NoError(t, svc.HandleEvent(f.ctx, strava.WebhookEvent{ObjectType: "activity", AspectType: "update", ObjectID: 55, OwnerID: 4242}))
	_, err := f.store.GetActivity(f.ctx, "strava:55")
	require.ErrorIs(t, err, ErrNotFound)

	err = svc.HandleEvent(f.ctx, strava.WebhookEvent{ObjectType: "activity", AspectType: "create", ObjectID: 55, OwnerID: 4242})
	require.NoError(t, err)

	stored, err := f.store.GetActivity(f.ctx, "strava:55")
	require.NoError(t, err)
	assert.Equal(t, f.athlete.ID, stored.AthleteID)

	require.Eventually(t, func() bool {
		_, err := f.store.LatestAISRI(f.ctx, f.athlete.ID)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond, "a new activity triggers a recompute")

	err = svc.HandleEvent(f.ctx, strava.WebhookEvent{ObjectType: "activity", AspectType: "create", ObjectID: 55, OwnerID: 999})
	assert.ErrorIs(t, err, ErrNotFound)
}
