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

var assignmentColumns = []string{
	"id", "athlete_id", "scheduled_date", "status", "workout_type", "prescription",
	"expected_load", "rationale", "completion_notes", "created_at", "updated_at",
}

// CreateAssignment inserts an assignment and returns its ID
func (s *Store) CreateAssignment(ctx context.Context, a *WorkoutAssignment) (string, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = StatusAssigned
	}
	now := time.Now().UTC()
	a.CreatedAt, a.UpdatedAt = now, now

	prescription, err := json.Marshal(a.Prescription)
	if err != nil {
		return "", fmt.Errorf("encoding prescription: %w", err)
	}
	_, err = s.exec(ctx, s.sb.Insert("workout_assignments").Columns(assignmentColumns...).Values(
		a.ID, a.AthleteID, formatTime(a.ScheduledDate), string(a.Status),
		string(a.Prescription.Type), string(prescription),
		a.ExpectedLoad, a.Rationale, a.CompletionNotes,
		formatTime(a.CreatedAt), formatTime(a.UpdatedAt),
	))
	if err != nil {
		return "", fmt.Errorf("creating assignment: %w", err)
	}
	return a.ID, nil
}

// GetAssignment retrieves an assignment by ID
func (s *Store) GetAssignment(ctx context.Context, id string) (*WorkoutAssignment, error) {
	row, err := s.queryRow(ctx, s.sb.Select(assignmentColumns...).From("workout_assignments").Where(sq.Eq{"id": id}))
	if err != nil {
		return nil, err
	}
	a, err := scanAssignment(row)
	if err != nil {
		return nil, notFound(err, "assignment "+id)
	}
	return a, nil
}

// UpdateAssignmentStatus moves an assignment to status, optionally recording notes
func (s *Store) UpdateAssignmentStatus(ctx context.Context, id string, status AssignmentStatus, notes *string) error {
	if !status.Valid() {
		return fmt.Errorf("invalid assignment status %q", status)
	}
	set := map[string]any{
		"status":     string(status),
		"updated_at": formatTime(time.Now().UTC()),
	}
	if notes != nil {
		set["completion_notes"] = *notes
	}
	res, err := s.exec(ctx, s.sb.Update("workout_assignments").SetMap(set).Where(sq.Eq{"id": id}))
	if err != nil {
		return fmt.Errorf("updating assignment status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("assignment %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListAssignmentsSince returns assignments scheduled at or after since, oldest first
func (s *Store) ListAssignmentsSince(ctx context.Context, athleteID string, since time.Time) ([]WorkoutAssignment, error) {
	rows, err := s.query(ctx, s.sb.Select(assignmentColumns...).From("workout_assignments").
		Where(sq.Eq{"athlete_id": athleteID}).
		Where(sq.GtOrEq{"scheduled_date": formatTime(since)}).
		OrderBy("scheduled_date ASC"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []WorkoutAssignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func scanAssignment(row interface{ Scan(...any) error }) (*WorkoutAssignment, error) {
	var a WorkoutAssignment
	var scheduled, status, workoutType, prescription, createdAt, updatedAt string
	var notes sql.NullString

	err := row.Scan(&a.ID, &a.AthleteID, &scheduled, &status, &workoutType, &prescription,
		&a.ExpectedLoad, &a.Rationale, &notes, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	a.Status = AssignmentStatus(status)
	a.CompletionNotes = notes.String
	if err := json.Unmarshal([]byte(prescription), &a.Prescription); err != nil {
		return nil, fmt.Errorf("decoding prescription: %w", err)
	}
	if a.ScheduledDate, err = parseTime(scheduled); err != nil {
		return nil, fmt.Errorf("parsing scheduled_date %q: %w", scheduled, err)
	}
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at %q: %w", createdAt, err)
	}
	if a.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at %q: %w", updatedAt, err)
	}
	return &a, nil
}
