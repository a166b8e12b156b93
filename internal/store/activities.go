package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

var activityColumns = []string{
	"id", "athlete_id", "provider", "name", "type", "start_date", "utc_offset", "timezone",
	"distance", "moving_time", "elapsed_time", "total_elevation_gain",
	"average_speed", "average_heartrate", "max_heartrate",
	"average_cadence", "suffer_score", "splits", "workout_type", "notes", "created_at",
}

// InsertActivity inserts an activity. Existing IDs are left untouched and
// reported with inserted=false.
func (s *Store) InsertActivity(ctx context.Context, a *Activity) (bool, error) {
	splits, err := json.Marshal(a.Splits)
	if err != nil {
		return false, fmt.Errorf("encoding splits: %w", err)
	}
	notes, err := json.Marshal(a.Notes)
	if err != nil {
		return false, fmt.Errorf("encoding notes: %w", err)
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, offset := a.StartDate.Zone()

	res, err := s.exec(ctx, s.sb.Insert("activities").Columns(activityColumns...).Values(
		a.ID, a.AthleteID, a.Provider, a.Name, a.Type, formatTime(a.StartDate), offset, a.Timezone,
		a.Distance, a.MovingTime, a.ElapsedTime, a.TotalElevationGain,
		a.AverageSpeed, a.AverageHeartrate, a.MaxHeartrate,
		a.AverageCadence, a.SufferScore, string(splits), string(a.WorkoutType), string(notes),
		formatTime(a.CreatedAt),
	).Suffix("ON CONFLICT (id) DO NOTHING"))
	if err != nil {
		return false, fmt.Errorf("inserting activity %s: %w", a.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetActivity retrieves an activity by ID
func (s *Store) GetActivity(ctx context.Context, id string) (*Activity, error) {
	row, err := s.queryRow(ctx, s.sb.Select(activityColumns...).From("activities").Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	a, err := scanActivity(row)
	if err != nil {
		return nil, notFound(err, "activity "+id)
	}
	return a, nil
}

// ListActivities returns an athlete's activities ordered by start date descending
func (s *Store) ListActivities(ctx context.Context, athleteID string, limit, offset int) ([]Activity, error) {
	rows, err := s.query(ctx, s.sb.Select(activityColumns...).From("activities").
		Where(sq.Eq{"athlete_id": athleteID}).
		OrderBy("start_date DESC").
		Limit(uint64(limit)).Offset(uint64(offset)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanActivities(rows)
}

// ListActivitiesSince returns activities starting at or after since, oldest first
func (s *Store) ListActivitiesSince(ctx context.Context, athleteID string, since time.Time) ([]Activity, error) {
	rows, err := s.query(ctx, s.sb.Select(activityColumns...).From("activities").
		Where(sq.Eq{"athlete_id": athleteID}).
		Where(sq.GtOrEq{"start_date": formatTime(since)}).
		OrderBy("start_date ASC"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanActivities(rows)
}

// CountActivities returns the number of activities stored for an athlete
func (s *Store) CountActivities(ctx context.Context, athleteID string) (int, error) {
	row, err := s.queryRow(ctx, s.sb.Select("COUNT(*)").From("activities").Where(sq.Eq{"athlete_id": athleteID}))
	if err != nil {
		return 0, err
	}
	var count int
	err = row.Scan(&count)
	return count, err
}

// scanActivity scans a single activity from a row
func scanActivity(row interface{ Scan(...any) error }) (*Activity, error) {
	var a Activity
	var startDate, workoutType, createdAt string
	var offset int
	var timezone, splits, notes sql.NullString

	err := row.Scan(
		&a.ID, &a.AthleteID, &a.Provider, &a.Name, &a.Type, &startDate, &offset, &timezone,
		&a.Distance, &a.MovingTime, &a.ElapsedTime, &a.TotalElevationGain,
		&a.AverageSpeed, &a.AverageHeartrate, &a.MaxHeartrate,
		&a.AverageCadence, &a.SufferScore, &splits, &workoutType, &notes, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	start, err := parseTime(startDate)
	if err != nil {
		return nil, fmt.Errorf("parsing start_date %q: %w", startDate, err)
	}
	a.StartDate = start.In(time.FixedZone("", offset))
	a.Timezone = timezone.String
	a.WorkoutType = WorkoutType(workoutType)
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at %q: %w", createdAt, err)
	}
	if splits.Valid && splits.String != "" && splits.String != "null" {
		if err := json.Unmarshal([]byte(splits.String), &a.Splits); err != nil {
			return nil, fmt.Errorf("decoding splits: %w", err)
		}
	}
	if notes.Valid && notes.String != "" && notes.String != "null" {
		if err := json.Unmarshal([]byte(notes.String), &a.Notes); err != nil {
			return nil, fmt.Errorf("decoding notes: %w", err)
		}
	}
	return &a, nil
}

// scanActivities scans multiple activities from rows
func scanActivities(rows *sql.Rows) ([]Activity, error) {
	var activities []Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, *a)
	}
	return activities, rows.Err()
}
