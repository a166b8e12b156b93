package service

import (
	"context"
	"fmt"

	"aisri/internal/normalize"
	"aisri/internal/store"
)

// IngestActivity validates and stores one activity owned by a.AthleteID.
// It reports false when the activity was already stored.
func (c *Coach) IngestActivity(ctx context.Context, a *store.Activity) (bool, error) {
	started := c.clock()
	inserted, err := c.ingestActivity(ctx, a)

	result := "inserted"
	switch {
	case err != nil:
		result = "rejected"
	case !inserted:
		result = "duplicate"
	}
	c.metrics.Ingested.WithLabelValues(a.Provider, result).Inc()
	c.observe(ctx, UseCaseIngestActivity, started, err, map[string]any{
		"athlete_id":  a.AthleteID,
		"activity_id": a.ID,
		"result":      result,
	})
	return inserted, err
}

func (c *Coach) ingestActivity(ctx context.Context, a *store.Activity) (bool, error) {
	if a.AthleteID == "" {
		return false, fmt.Errorf("activity owner is required: %w", ErrInvalidInput)
	}
	if err := normalize.Validate(a); err != nil {
		return false, err
	}

	unlock, err := c.locks.Lock(ctx, a.AthleteID)
	if err != nil {
		return false, err
	}
	defer unlock()

	if _, err := c.getAthlete(ctx, a.AthleteID); err != nil {
		return false, err
	}

	var inserted bool
	err = c.retry.do(ctx, func(ctx context.Context) error {
		var err error
		inserted, err = c.repo.InsertActivity(ctx, a)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("storing activity %s: %w", a.ID, err)
	}
	return inserted, nil
}

// IngestPayload normalises a raw provider payload and stores it for athleteID
func (c *Coach) IngestPayload(ctx context.Context, athleteID, provider string, payload []byte) (*store.Activity, bool, error) {
	a, err := normalize.Normalise(provider, payload)
	if err != nil {
		return nil, false, err
	}
	a.AthleteID = athleteID
	inserted, err := c.IngestActivity(ctx, a)
	if err != nil {
		return nil, false, err
	}
	return a, inserted, nil
}
