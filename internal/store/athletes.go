package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

var athleteColumns = []string{
	"id", "name", "age", "sex", "weight_kg",
	"easy_pace", "tempo_pace", "interval_pace",
	"max_hr", "threshold_hr", "aerobic_hr", "resting_hr",
	"weekly_volume_km", "longest_run_km", "phase", "week_number",
	"strava_athlete_id", "created_at", "updated_at",
}

// CreateAthlete inserts a new athlete, assigning an ID when empty
func (s *Store) CreateAthlete(ctx context.Context, a *Athlete) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Phase == "" {
		a.Phase = PhaseFoundation
	}
	if a.WeekNumber == 0 {
		a.WeekNumber = 1
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now

	_, err := s.exec(ctx, s.sb.Insert("athlete_profile").Columns(athleteColumns...).Values(
		a.ID, a.Name, a.Age, a.Sex, a.WeightKg,
		a.EasyPace, a.TempoPace, a.IntervalPace,
		a.MaxHR, a.ThresholdHR, a.AerobicHR, a.RestingHR,
		a.WeeklyVolumeKm, a.LongestRunKm, string(a.Phase), a.WeekNumber,
		a.StravaAthleteID, formatTime(a.CreatedAt), formatTime(a.UpdatedAt),
	))
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("creating athlete: %w", ErrDuplicate)
		}
		return fmt.Errorf("creating athlete: %w", err)
	}
	return nil
}

// GetAthlete retrieves an athlete by ID
func (s *Store) GetAthlete(ctx context.Context, id string) (*Athlete, error) {
	row, err := s.queryRow(ctx, s.sb.Select(athleteColumns...).From("athlete_profile").Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	a, err := scanAthlete(row)
	if err != nil {
		return nil, notFound(err, "athlete "+id)
	}
	return a, nil
}

// GetAthleteByStravaID resolves the athlete owning a Strava account
func (s *Store) GetAthleteByStravaID(ctx context.Context, stravaID int64) (*Athlete, error) {
	row, err := s.queryRow(ctx, s.sb.Select(athleteColumns...).From("athlete_profile").Where(sq.Eq{"strava_athlete_id": stravaID}))
	if err != nil {
		return nil, err
	}
	a, err := scanAthlete(row)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("strava athlete %d", stravaID))
	}
	return a, nil
}

// ListAthletes returns every athlete ordered by creation
func (s *Store) ListAthletes(ctx context.Context) ([]Athlete, error) {
	rows, err := s.query(ctx, s.sb.Select(athleteColumns...).From("athlete_profile").OrderBy("created_at ASC", "id ASC"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var athletes []Athlete
	for rows.Next() {
		a, err := scanAthlete(rows)
		if err != nil {
			return nil, err
		}
		athletes = append(athletes, *a)
	}
	return athletes, rows.Err()
}

// UpdateAthlete writes the mutable profile and ability fields
func (s *Store) UpdateAthlete(ctx context.Context, a *Athlete) error {
	a.UpdatedAt = time.Now().UTC()
	res, err := s.exec(ctx, s.sb.Update("athlete_profile").SetMap(map[string]any{
		"name":              a.Name,
		"age":               a.Age,
		"sex":               a.Sex,
		"weight_kg":         a.WeightKg,
		"easy_pace":         a.EasyPace,
		"tempo_pace":        a.TempoPace,
		"interval_pace":     a.IntervalPace,
		"max_hr":            a.MaxHR,
		"threshold_hr":      a.ThresholdHR,
		"aerobic_hr":        a.AerobicHR,
		"resting_hr":        a.RestingHR,
		"weekly_volume_km":  a.WeeklyVolumeKm,
		"longest_run_km":    a.LongestRunKm,
		"phase":             string(a.Phase),
		"week_number":       a.WeekNumber,
		"strava_athlete_id": a.StravaAthleteID,
		"updated_at":        formatTime(a.UpdatedAt),
	}).Where(sq.Eq{"id": a.ID}))
	if err != nil {
		return fmt.Errorf("updating athlete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("athlete %s: %w", a.ID, ErrNotFound)
	}
	return nil
}

func scanAthlete(row interface{ Scan(...any) error }) (*Athlete, error) {
	var a Athlete
	var phase, createdAt, updatedAt string
	var stravaID sql.NullInt64

	err := row.Scan(
		&a.ID, &a.Name, &a.Age, &a.Sex, &a.WeightKg,
		&a.EasyPace, &a.TempoPace, &a.IntervalPace,
		&a.MaxHR, &a.ThresholdHR, &a.AerobicHR, &a.RestingHR,
		&a.WeeklyVolumeKm, &a.LongestRunKm, &phase, &a.WeekNumber,
		&stravaID, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Phase = TrainingPhase(phase)
	if stravaID.Valid {
		a.StravaAthleteID = &stravaID.Int64
	}
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if a.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	return &a, nil
}
