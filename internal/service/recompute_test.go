package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aisri/internal/store"
	"aisri/internal/testutil"
)

// brokenHistoryRepo fails AISRI history reads for one athlete
type brokenHistoryRepo struct {
	store.Repository
	broken string
}

func (r *brokenHistoryRepo) ListAISRIHistory(ctx context.Context, athleteID string, limit int) ([]store.AISRIScore, error) {
	if athleteID == r.broken {
		return nil, errors.New("corrupt row")
	}
	return r.Repository.ListAISRIHistory(ctx, athleteID, limit)
}

func TestRecomputeAll(t *testing.T) {
	f := newFixture(t)
	var ids []string
	ids = append(ids, f.athlete.ID)
	for _, name := range []string{"B", "C", "D"} {
		a := testutil.NewTestAthlete(name)
		require.NoError(t, f.store.CreateAthlete(f.ctx, a))
		ids = append(ids, a.ID)
		f.addRuns(testutil.DailyRuns(a.ID, f.now, 5, 6, 350)...)
	}

	report, err := f.coach.RecomputeAll(f.ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, report.Athletes)
	assert.Equal(t, 4, report.Succeeded)
	assert.False(t, report.Failed())

	for _, id := range ids {
		_, err := f.store.LatestAISRI(f.ctx, id)
		assert.NoError(t, err, id)
	}
}

func TestRecomputeAllContinuesPastFailures(t *testing.T) {
	f := newFixture(t)
	other := testutil.NewTestAthlete("Other")
	require.NoError(t, f.store.CreateAthlete(f.ctx, other))

	c := f.newCoach(&brokenHistoryRepo{Repository: f.store, broken: f.athlete.ID})
	report, err := c.RecomputeAll(f.ctx, 4)
	require.NoError(t, err)

	assert.True(t, report.Failed())
	assert.Equal(t, 1, report.Succeeded)
	assert.Contains(t, report.Failures, f.athlete.ID)
	_, err = f.store.LatestAISRI(f.ctx, other.ID)
	assert.NoError(t, err)
}
