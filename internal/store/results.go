package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

var resultColumns = []string{
	"id", "assignment_id", "athlete_id", "source_activity_id",
	"distance_km", "duration_seconds", "avg_pace", "avg_hr", "max_hr", "splits",
	"completed_full", "stopped_at_km", "label",
	"distance_score", "pace_score", "hr_score", "overall_score",
	"ability_change", "ready_for_progression", "fatigue", "injury_indicators", "created_at",
}

// InsertResult appends a workout result. A second result for the same
// source activity returns ErrDuplicate.
func (s *Store) InsertResult(ctx context.Context, r *WorkoutResult) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	splits, err := json.Marshal(r.Splits)
	if err != nil {
		return fmt.Errorf("encoding splits: %w", err)
	}
	indicators, err := json.Marshal(r.InjuryIndicators)
	if err != nil {
		return fmt.Errorf("encoding injury indicators: %w", err)
	}

	_, err = s.exec(ctx, s.sb.Insert("workout_results").Columns(resultColumns...).Values(
		r.ID, r.AssignmentID, r.AthleteID, r.SourceActivityID,
		r.DistanceKm, r.DurationSeconds, r.AvgPace, r.AvgHR, r.MaxHR, string(splits),
		boolToInt(r.CompletedFull), r.StoppedAtKm, string(r.Label),
		r.Scores.Distance, r.Scores.Pace, r.Scores.HR, r.Scores.Overall,
		r.AbilityChange, boolToInt(r.ReadyForProgression), string(r.Fatigue), string(indicators),
		formatTime(r.CreatedAt),
	))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("result for activity %s: %w", r.SourceActivityID, ErrDuplicate)
		}
		return fmt.Errorf("inserting result: %w", err)
	}
	return nil
}

// GetResultBySourceActivity returns the result recorded for an activity.
// An activity backs at most one result, whoever recorded it.
func (s *Store) GetResultBySourceActivity(ctx context.Context, activityID string) (*WorkoutResult, error) {
	row, err := s.queryRow(ctx, s.sb.Select(resultColumns...).From("workout_results").
		Where(sq.Eq{"source_activity_id": activityID}))
	if err != nil {
		return nil, err
	}
	r, err := scanResult(row)
	if err != nil {
		return nil, notFound(err, "result for activity "+activityID)
	}
	return r, nil
}

// ListResultsSince returns results created at or after since, oldest first
func (s *Store) ListResultsSince(ctx context.Context, athleteID string, since time.Time) ([]WorkoutResult, error) {
	rows, err := s.query(ctx, s.sb.Select(resultColumns...).From("workout_results").
		Where(sq.Eq{"athlete_id": athleteID}).
		Where(sq.GtOrEq{"created_at": formatTime(since)}).
		OrderBy("created_at ASC"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WorkoutResult
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func scanResult(row interface{ Scan(...any) error }) (*WorkoutResult, error) {
	var r WorkoutResult
	var assignmentID, splits, indicators sql.NullString
	var completedFull, ready int
	var label, fatigue, createdAt string

	err := row.Scan(
		&r.ID, &assignmentID, &r.AthleteID, &r.SourceActivityID,
		&r.DistanceKm, &r.DurationSeconds, &r.AvgPace, &r.AvgHR, &r.MaxHR, &splits,
		&completedFull, &r.StoppedAtKm, &label,
		&r.Scores.Distance, &r.Scores.Pace, &r.Scores.HR, &r.Scores.Overall,
		&r.AbilityChange, &ready, &fatigue, &indicators, &createdAt,
	)
	if err != nil {
		return nil, err
	}
	if assignmentID.Valid {
		r.AssignmentID = &assignmentID.String
	}
	r.CompletedFull = completedFull == 1
	r.ReadyForProgression = ready == 1
	r.Label = PerformanceLabel(label)
	r.Fatigue = FatigueLevel(fatigue)
	if splits.Valid && splits.String != "null" {
		if err := json.Unmarshal([]byte(splits.String), &r.Splits); err != nil {
			return nil, fmt.Errorf("decoding splits: %w", err)
		}
	}
	if indicators.Valid && indicators.String != "null" {
		if err := json.Unmarshal([]byte(indicators.String), &r.InjuryIndicators); err != nil {
			return nil, fmt.Errorf("decoding injury indicators: %w", err)
		}
	}
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at %q: %w", createdAt, err)
	}
	return &r, nil
}

var progressionColumns = []string{"id", "athlete_id", "result_id", "delta", "snapshot", "created_at"}

// InsertProgression appends an ability progression entry
func (s *Store) InsertProgression(ctx context.Context, p *AbilityProgression) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	snapshot, err := json.Marshal(p.Snapshot)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	_, err = s.exec(ctx, s.sb.Insert("ability_progression").Columns(progressionColumns...).Values(
		p.ID, p.AthleteID, p.ResultID, p.Delta, string(snapshot), formatTime(p.CreatedAt),
	))
	if err != nil {
		return fmt.Errorf("inserting progression: %w", err)
	}
	return nil
}

// ListProgression returns an athlete's progression log, oldest first
func (s *Store) ListProgression(ctx context.Context, athleteID string) ([]AbilityProgression, error) {
	rows, err := s.query(ctx, s.sb.Select(progressionColumns...).From("ability_progression").
		Where(sq.Eq{"athlete_id": athleteID}).
		OrderBy("created_at ASC"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AbilityProgression
	for rows.Next() {
		var p AbilityProgression
		var snapshot, createdAt string
		if err := rows.Scan(&p.ID, &p.AthleteID, &p.ResultID, &p.Delta, &snapshot, &createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(snapshot), &p.Snapshot); err != nil {
			return nil, fmt.Errorf("decoding snapshot: %w", err)
		}
		var err error
		if p.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parsing created_at %q: %w", createdAt, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
