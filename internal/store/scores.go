package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

var aisriColumns = []string{
	"id", "athlete_id", "computed_at", "overall",
	"adaptability", "injury_risk", "fatigue", "recovery", "intensity", "consistency",
	"risk_level", "confidence", "method", "activities_analysed", "notes",
}

// InsertAISRIScore appends a score row. Scores are never updated.
func (s *Store) InsertAISRIScore(ctx context.Context, sc *AISRIScore) error {
	if sc.ID == "" {
		sc.ID = uuid.NewString()
	}
	if sc.ComputedAt.IsZero() {
		sc.ComputedAt = time.Now().UTC()
	}
	p := sc.Pillars
	_, err := s.exec(ctx, s.sb.Insert("aisri_scores").Columns(aisriColumns...).Values(
		sc.ID, sc.AthleteID, formatTime(sc.ComputedAt), sc.Overall,
		p.Adaptability, p.InjuryRisk, p.Fatigue, p.Recovery, p.Intensity, p.Consistency,
		string(sc.RiskLevel), sc.Confidence, sc.Method, sc.ActivitiesAnalysed, sc.Notes,
	))
	if err != nil {
		return fmt.Errorf("inserting aisri score: %w", err)
	}
	return nil
}

// LatestAISRI returns the score with the greatest computed_at
func (s *Store) LatestAISRI(ctx context.Context, athleteID string) (*AISRIScore, error) {
	row, err := s.queryRow(ctx, s.sb.Select(aisriColumns...).From("aisri_scores").
		Where(sq.Eq{"athlete_id": athleteID}).
		OrderBy("computed_at DESC", "id DESC").
		Limit(1))
	if err != nil {
		return nil, err
	}
	sc, err := scanAISRI(row)
	if err != nil {
		return nil, notFound(err, "aisri score for "+athleteID)
	}
	return sc, nil
}

// ListAISRISince returns scores computed at or after since, oldest first
func (s *Store) ListAISRISince(ctx context.Context, athleteID string, since time.Time) ([]AISRIScore, error) {
	rows, err := s.query(ctx, s.sb.Select(aisriColumns...).From("aisri_scores").
		Where(sq.Eq{"athlete_id": athleteID}).
		Where(sq.GtOrEq{"computed_at": formatTime(since)}).
		OrderBy("computed_at ASC"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAISRIRows(rows)
}

// ListAISRIHistory returns up to limit scores, newest first
func (s *Store) ListAISRIHistory(ctx context.Context, athleteID string, limit int) ([]AISRIScore, error) {
	rows, err := s.query(ctx, s.sb.Select(aisriColumns...).From("aisri_scores").
		Where(sq.Eq{"athlete_id": athleteID}).
		OrderBy("computed_at DESC", "id DESC").
		Limit(uint64(limit)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAISRIRows(rows)
}

func scanAISRI(row interface{ Scan(...any) error }) (*AISRIScore, error) {
	var sc AISRIScore
	var computedAt, risk string
	var notes sql.NullString
	p := &sc.Pillars
	err := row.Scan(
		&sc.ID, &sc.AthleteID, &computedAt, &sc.Overall,
		&p.Adaptability, &p.InjuryRisk, &p.Fatigue, &p.Recovery, &p.Intensity, &p.Consistency,
		&risk, &sc.Confidence, &sc.Method, &sc.ActivitiesAnalysed, &notes,
	)
	if err != nil {
		return nil, err
	}
	sc.RiskLevel = RiskLevel(risk)
	sc.Notes = notes.String
	if sc.ComputedAt, err = parseTime(computedAt); err != nil {
		return nil, fmt.Errorf("parsing computed_at %q: %w", computedAt, err)
	}
	return &sc, nil
}

func scanAISRIRows(rows *sql.Rows) ([]AISRIScore, error) {
	var scores []AISRIScore
	for rows.Next() {
		sc, err := scanAISRI(rows)
		if err != nil {
			return nil, err
		}
		scores = append(scores, *sc)
	}
	return scores, rows.Err()
}
