package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"aisri/internal/analysis"
	"aisri/internal/store"
)

// MinPace is the fastest pace ability progression may reach, in s/km
const MinPace = 150

// ResultPayload is what the athlete actually did. When DistanceKm is zero
// the figures are taken from the stored SourceActivityID activity.
type ResultPayload struct {
	SourceActivityID string        `json:"source_activity_id"`
	DistanceKm       float64       `json:"distance_km"`
	DurationSeconds  int           `json:"duration_seconds"`
	AvgPace          float64       `json:"avg_pace,omitempty"`
	AvgHR            *float64      `json:"avg_hr,omitempty"`
	MaxHR            *float64      `json:"max_hr,omitempty"`
	Splits           []store.Split `json:"splits,omitempty"`
	CompletedFull    bool          `json:"completed_full"`
	StoppedAtKm      *float64      `json:"stopped_at_km,omitempty"`
	Notes            string        `json:"notes,omitempty"`
}

func (p ResultPayload) validate() error {
	if p.SourceActivityID == "" {
		return fmt.Errorf("source activity id is required: %w", ErrInvalidInput)
	}
	if p.DistanceKm < 0 || p.DurationSeconds < 0 || p.AvgPace < 0 {
		return fmt.Errorf("negative distance, duration or pace: %w", ErrInvalidInput)
	}
	if p.StoppedAtKm != nil && *p.StoppedAtKm < 0 {
		return fmt.Errorf("negative stopped_at_km: %w", ErrInvalidInput)
	}
	return nil
}

func (p ResultPayload) outcome() analysis.Outcome {
	return analysis.Outcome{
		DistanceKm:      p.DistanceKm,
		DurationSeconds: p.DurationSeconds,
		AvgPace:         p.AvgPace,
		AvgHR:           p.AvgHR,
		MaxHR:           p.MaxHR,
		Splits:          p.Splits,
		CompletedFull:   p.CompletedFull,
		StoppedAtKm:     p.StoppedAtKm,
	}
}

// fillFromActivity copies the recorded figures of a into an empty payload
func (p *ResultPayload) fillFromActivity(a *store.Activity) {
	p.DistanceKm = a.DistanceKm()
	p.DurationSeconds = a.MovingTime
	p.AvgPace = a.Pace()
	p.AvgHR = a.AverageHeartrate
	p.MaxHR = a.MaxHeartrate
	if len(p.Splits) == 0 {
		p.Splits = a.Splits
	}
}

// CompletionOutcome is the result of recording a completed workout
type CompletionOutcome struct {
	Result         *store.WorkoutResult      `json:"result"`
	Assessment     *analysis.Assessment      `json:"assessment,omitempty"`
	Progression    *store.AbilityProgression `json:"progression,omitempty"`
	NextAssignment *store.WorkoutAssignment  `json:"next_assignment,omitempty"`
	Duplicate      bool                      `json:"duplicate"`
}

// RecordCompletion assesses an assignment against what was done, then
// stores the result, the ability progression, the athlete's new ability,
// the assignment's completed status and the next day's assignment in one
// transaction. Recording the same activity again returns the stored result
// with Duplicate set and writes nothing.
func (c *Coach) RecordCompletion(ctx context.Context, assignmentID, athleteID string, payload ResultPayload) (*CompletionOutcome, error) {
	started := c.clock()
	out, err := c.recordCompletion(ctx, assignmentID, athleteID, payload)

	fields := map[string]any{"athlete_id": athleteID, "assignment_id": assignmentID}
	if out != nil {
		fields["duplicate"] = out.Duplicate
		fields["label"] = string(out.Result.Label)
		if !out.Duplicate {
			c.metrics.Completions.WithLabelValues(string(out.Result.Label)).Inc()
		}
	}
	c.observe(ctx, UseCaseRecordCompletion, started, err, fields)
	return out, err
}

func (c *Coach) recordCompletion(ctx context.Context, assignmentID, athleteID string, payload ResultPayload) (*CompletionOutcome, error) {
	if assignmentID == "" || athleteID == "" {
		return nil, fmt.Errorf("assignment and athlete ids are required: %w", ErrInvalidInput)
	}
	if err := payload.validate(); err != nil {
		return nil, err
	}

	unlock, err := c.locks.Lock(ctx, athleteID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var assignment *store.WorkoutAssignment
	err = c.retry.do(ctx, func(ctx context.Context) error {
		var err error
		assignment, err = c.repo.GetAssignment(ctx, assignmentID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("loading assignment: %w", err)
	}
	if assignment.AthleteID != athleteID {
		return nil, fmt.Errorf("assignment %s: %w", assignmentID, ErrCrossAthlete)
	}

	source, err := c.sourceActivity(ctx, athleteID, payload.SourceActivityID)
	if err != nil {
		return nil, err
	}
	if prior, err := c.priorResult(ctx, assignmentID, athleteID, payload.SourceActivityID); prior != nil || err != nil {
		return prior, err
	}
	if assignment.Status == store.StatusCompleted {
		return nil, fmt.Errorf("assignment %s already completed: %w", assignmentID, ErrDuplicate)
	}

	if payload.DistanceKm == 0 {
		if source == nil {
			return nil, fmt.Errorf("no distance given and activity %s not found: %w", payload.SourceActivityID, ErrInvalidInput)
		}
		payload.fillFromActivity(source)
	}

	now := c.clock()
	athlete, err := c.getAthlete(ctx, athleteID)
	if err != nil {
		return nil, err
	}

	assessment := analysis.AssessPerformance(assignment.Prescription, payload.outcome())
	result := &store.WorkoutResult{
		AssignmentID:        &assignment.ID,
		AthleteID:           athleteID,
		SourceActivityID:    payload.SourceActivityID,
		DistanceKm:          payload.DistanceKm,
		DurationSeconds:     payload.DurationSeconds,
		AvgPace:             payload.outcome().Pace(),
		AvgHR:               payload.AvgHR,
		MaxHR:               payload.MaxHR,
		Splits:              payload.Splits,
		CompletedFull:       payload.CompletedFull,
		StoppedAtKm:         payload.StoppedAtKm,
		Label:               assessment.Label,
		Scores:              assessment.Scores,
		AbilityChange:       assessment.AbilityChange,
		ReadyForProgression: assessment.ReadyForProgression,
		Fatigue:             assessment.Fatigue,
		InjuryIndicators:    assessment.InjuryIndicators,
		CreatedAt:           now,
	}

	updated := *athlete
	applyAbility(&updated, assessment.AbilityChange)
	progression := &store.AbilityProgression{
		AthleteID: athleteID,
		Delta:     assessment.AbilityChange,
		Snapshot:  updated.Snapshot(),
		CreatedAt: now,
	}

	sig, err := c.readiness(ctx, athleteID, now)
	if err != nil {
		return nil, err
	}
	sig.labels = append(sig.labels, assessment.Label)
	nextType := NextWorkoutType(assignment.Prescription.Type, assessment)

	var next *store.WorkoutAssignment
	var notes *string
	if payload.Notes != "" {
		notes = &payload.Notes
	}
	err = c.retry.do(ctx, func(ctx context.Context) error {
		return c.repo.WithinTx(ctx, func(ctx context.Context, tx store.Repository) error {
			if err := tx.InsertResult(ctx, result); err != nil {
				return err
			}
			progression.ResultID = result.ID
			if err := tx.InsertProgression(ctx, progression); err != nil {
				return err
			}
			if err := tx.UpdateAthlete(ctx, &updated); err != nil {
				return err
			}
			if err := tx.UpdateAssignmentStatus(ctx, assignment.ID, store.StatusCompleted, notes); err != nil {
				return err
			}
			var err error
			next, err = c.nextAssignment(ctx, tx, &updated, sig, nextType, now)
			return err
		})
	})
	if errors.Is(err, ErrDuplicate) {
		// another writer recorded the same activity first
		if prior, perr := c.priorResult(ctx, assignmentID, athleteID, payload.SourceActivityID); prior != nil || perr != nil {
			return prior, perr
		}
	}
	if err != nil {
		return nil, fmt.Errorf("recording completion: %w", err)
	}

	return &CompletionOutcome{
		Result:         result,
		Assessment:     &assessment,
		Progression:    progression,
		NextAssignment: next,
	}, nil
}

// priorResult returns a duplicate outcome when the activity was already
// recorded against this assignment, and an error when it was recorded
// against another one
func (c *Coach) priorResult(ctx context.Context, assignmentID, athleteID, activityID string) (*CompletionOutcome, error) {
	var prior *store.WorkoutResult
	err := c.retry.do(ctx, func(ctx context.Context) error {
		var err error
		prior, err = c.repo.GetResultBySourceActivity(ctx, activityID)
		return err
	})
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("checking prior result: %w", err)
	}
	if prior.AthleteID != athleteID {
		return nil, fmt.Errorf("activity %s: %w", activityID, ErrCrossAthlete)
	}
	if prior.AssignmentID == nil || *prior.AssignmentID != assignmentID {
		return nil, fmt.Errorf("activity %s already recorded against another assignment: %w", activityID, ErrDuplicate)
	}
	return &CompletionOutcome{Result: prior, Duplicate: true}, nil
}

// sourceActivity loads the cited activity when it is stored and rejects one
// owned by another athlete. Activities not yet ingested return nil.
func (c *Coach) sourceActivity(ctx context.Context, athleteID, activityID string) (*store.Activity, error) {
	var a *store.Activity
	err := c.retry.do(ctx, func(ctx context.Context) error {
		var err error
		a, err = c.repo.GetActivity(ctx, activityID)
		return err
	})
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading source activity: %w", err)
	}
	if a.AthleteID != athleteID {
		return nil, fmt.Errorf("activity %s: %w", activityID, ErrCrossAthlete)
	}
	return a, nil
}

// applyAbility moves the athlete's paces by one second per km for each
// point of ability change
func applyAbility(a *store.Athlete, delta float64) {
	move := func(pace float64) float64 {
		if pace <= 0 {
			return pace
		}
		return math.Max(MinPace, pace-delta)
	}
	a.EasyPace = move(a.EasyPace)
	a.TempoPace = move(a.TempoPace)
	a.IntervalPace = move(a.IntervalPace)
}

// NextWorkoutType picks the day after a completed workout: recovery after a
// poor or fatiguing session, easy after quality or long runs, tempo when the
// athlete is ready to progress, otherwise easy.
func NextWorkoutType(done store.WorkoutType, a analysis.Assessment) store.WorkoutType {
	switch {
	case a.Fatigue == store.FatigueHigh,
		a.Label == store.LabelPoor,
		a.Label == store.LabelIncomplete:
		return store.WorkoutRecovery
	case done.IsQuality(), done.IsHard(), done == store.WorkoutLong:
		return store.WorkoutEasy
	case a.ReadyForProgression:
		return store.WorkoutTempo
	}
	return store.WorkoutEasy
}

// nextDayMinutes is the planned duration of generated next-day workouts
var nextDayMinutes = map[store.WorkoutType]int{
	store.WorkoutTempo:    50,
	store.WorkoutEasy:     45,
	store.WorkoutRecovery: 30,
	store.WorkoutMobility: 20,
}

// nextAssignment generates tomorrow's workout, stepping down to easy,
// recovery and finally mobility until one passes the gates
func (c *Coach) nextAssignment(ctx context.Context, repo store.Repository, athlete *store.Athlete, sig *signals,
	wt store.WorkoutType, now time.Time) (*store.WorkoutAssignment, error) {
	tomorrow := dayStart(now).AddDate(0, 0, 1)
	for _, candidate := range fallbackChain(wt) {
		minutes := nextDayMinutes[candidate]
		ev := c.evaluate(sig, candidate, DefaultIntensity(candidate), minutes, now)
		if !ev.check.Safe || !ev.clearance.Cleared {
			continue
		}
		next, err := c.plan(athlete, sig, ev, candidate, minutes, now, tomorrow)
		if err != nil {
			return nil, err
		}
		if _, err := repo.CreateAssignment(ctx, next); err != nil {
			return nil, err
		}
		return next, nil
	}
	return nil, fmt.Errorf("no workout type cleared for %s", athlete.ID)
}

func fallbackChain(wt store.WorkoutType) []store.WorkoutType {
	chain := []store.WorkoutType{store.WorkoutTempo, store.WorkoutEasy, store.WorkoutRecovery, store.WorkoutMobility}
	for i, t := range chain {
		if t == wt {
			return chain[i:]
		}
	}
	return chain[1:]
}
