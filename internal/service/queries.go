package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"aisri/internal/store"
)

// Paging limits for activity listings
const (
	DefaultPageSize = 20
	MaxPageSize     = 200
	MaxHistory      = 365
)

// AISRIView is an athlete's latest score with optional history, newest first
type AISRIView struct {
	Current *store.AISRIScore  `json:"current"`
	History []store.AISRIScore `json:"history,omitempty"`
}

// GetAISRI returns the latest AISRI score and up to history previous rows
func (c *Coach) GetAISRI(ctx context.Context, athleteID string, history int) (*AISRIView, error) {
	if history < 0 || history > MaxHistory {
		return nil, fmt.Errorf("history %d out of range: %w", history, ErrInvalidInput)
	}
	if _, err := c.getAthlete(ctx, athleteID); err != nil {
		return nil, err
	}

	view := &AISRIView{}
	err := c.retry.do(ctx, func(ctx context.Context) error {
		current, err := c.repo.LatestAISRI(ctx, athleteID)
		if err != nil {
			return err
		}
		view.Current = current
		if history > 0 {
			view.History, err = c.repo.ListAISRIHistory(ctx, athleteID, history)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("loading aisri: %w", err)
	}
	return view, nil
}

// ListActivities pages through an athlete's activities, newest first.
// A zero limit selects DefaultPageSize.
func (c *Coach) ListActivities(ctx context.Context, athleteID string, limit, offset int) ([]store.Activity, error) {
	if limit == 0 {
		limit = DefaultPageSize
	}
	if limit < 0 || limit > MaxPageSize || offset < 0 {
		return nil, fmt.Errorf("limit %d offset %d: %w", limit, offset, ErrInvalidInput)
	}
	if _, err := c.getAthlete(ctx, athleteID); err != nil {
		return nil, err
	}

	var activities []store.Activity
	err := c.retry.do(ctx, func(ctx context.Context) error {
		var err error
		activities, err = c.repo.ListActivities(ctx, athleteID, limit, offset)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing activities: %w", err)
	}
	return activities, nil
}

// GetReadiness returns the cached readiness snapshot, recomputing it when
// the cache has none from today
func (c *Coach) GetReadiness(ctx context.Context, athleteID string) (*Readiness, error) {
	if c.cache != nil {
		var r Readiness
		ok, err := c.cache.Get(readinessKey(athleteID), &r)
		if err != nil {
			c.logger.WarnContext(ctx, "reading cached readiness failed", "athlete_id", athleteID, "error", err)
		}
		if ok && sameDay(r.ComputedAt, c.clock()) {
			return &r, nil
		}
	}
	return c.DailyUpdate(ctx, athleteID)
}

// GetAthlete returns an athlete profile
func (c *Coach) GetAthlete(ctx context.Context, athleteID string) (*store.Athlete, error) {
	return c.getAthlete(ctx, athleteID)
}

// RegisterAthlete validates and creates an athlete profile
func (c *Coach) RegisterAthlete(ctx context.Context, a *store.Athlete) error {
	a.Name = strings.TrimSpace(a.Name)
	switch {
	case a.Name == "":
		return fmt.Errorf("athlete name is required: %w", ErrInvalidInput)
	case a.Age < 0 || a.Age > 120:
		return fmt.Errorf("age %d out of range: %w", a.Age, ErrInvalidInput)
	case a.MaxHR != 0 && a.RestingHR >= a.MaxHR:
		return fmt.Errorf("resting HR %.0f must be below max HR %.0f: %w", a.RestingHR, a.MaxHR, ErrInvalidInput)
	}
	err := c.retry.do(ctx, func(ctx context.Context) error {
		return c.repo.CreateAthlete(ctx, a)
	})
	if err != nil {
		return fmt.Errorf("creating athlete: %w", err)
	}
	return nil
}

// AssessmentInput are the 0..100 test scores of a readiness assessment.
// RangeOfMotion is optional.
type AssessmentInput struct {
	Strength      int  `json:"strength"`
	Mobility      int  `json:"mobility"`
	RangeOfMotion *int `json:"range_of_motion,omitempty"`
}

func (in AssessmentInput) validate() error {
	scores := []struct {
		name string
		v    *int
	}{
		{"strength", &in.Strength},
		{"mobility", &in.Mobility},
		{"range of motion", in.RangeOfMotion},
	}
	for _, s := range scores {
		if s.v != nil && (*s.v < 0 || *s.v > 100) {
			return fmt.Errorf("%s score %d out of range: %w", s.name, *s.v, ErrInvalidInput)
		}
	}
	return nil
}

// RecordAssessment stores a new readiness assessment for the structural classifier
func (c *Coach) RecordAssessment(ctx context.Context, athleteID string, in AssessmentInput) (*store.ReadinessAssessment, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	unlock, err := c.locks.Lock(ctx, athleteID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if _, err := c.getAthlete(ctx, athleteID); err != nil {
		return nil, err
	}
	a := &store.ReadinessAssessment{
		AthleteID:     athleteID,
		AssessedAt:    c.clock(),
		Strength:      in.Strength,
		Mobility:      in.Mobility,
		RangeOfMotion: in.RangeOfMotion,
	}
	err = c.retry.do(ctx, func(ctx context.Context) error {
		return c.repo.InsertAssessment(ctx, a)
	})
	if err != nil {
		return nil, fmt.Errorf("saving assessment: %w", err)
	}
	return a, nil
}

// ListAssignments returns assignments scheduled within the last days days
func (c *Coach) ListAssignments(ctx context.Context, athleteID string, days int) ([]store.WorkoutAssignment, error) {
	if days <= 0 {
		return nil, fmt.Errorf("days must be positive: %w", ErrInvalidInput)
	}
	if _, err := c.getAthlete(ctx, athleteID); err != nil {
		return nil, err
	}
	since := dayStart(c.clock()).Add(-time.Duration(days) * 24 * time.Hour)

	var out []store.WorkoutAssignment
	err := c.retry.do(ctx, func(ctx context.Context) error {
		var err error
		out, err = c.repo.ListAssignmentsSince(ctx, athleteID, since)
		return err
	})
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("listing assignments: %w", err)
	}
	return out, nil
}
