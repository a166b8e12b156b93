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

var injuryColumns = []string{
	"id", "athlete_id", "computed_at", "risk_score", "risk_level",
	"acute_load", "chronic_load", "acwr", "aisri_trend", "factors",
}

// InsertInjuryRisk appends an injury-risk prediction
func (s *Store) InsertInjuryRisk(ctx context.Context, p *InjuryRiskPrediction) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.ComputedAt.IsZero() {
		p.ComputedAt = time.Now().UTC()
	}
	factors, err := json.Marshal(p.Factors)
	if err != nil {
		return fmt.Errorf("encoding factors: %w", err)
	}
	_, err = s.exec(ctx, s.sb.Insert("injury_risk_predictions").Columns(injuryColumns...).Values(
		p.ID, p.AthleteID, formatTime(p.ComputedAt), p.RiskScore, string(p.RiskLevel),
		p.AcuteLoad, p.ChronicLoad, p.ACWR, p.AISRITrend, string(factors),
	))
	if err != nil {
		return fmt.Errorf("inserting injury risk: %w", err)
	}
	return nil
}

// LatestInjuryRisk returns the most recent prediction for an athlete
func (s *Store) LatestInjuryRisk(ctx context.Context, athleteID string) (*InjuryRiskPrediction, error) {
	row, err := s.queryRow(ctx, s.sb.Select(injuryColumns...).From("injury_risk_predictions").
		Where(sq.Eq{"athlete_id": athleteID}).
		OrderBy("computed_at DESC", "id DESC").
		Limit(1))
	if err != nil {
		return nil, err
	}

	var p InjuryRiskPrediction
	var computedAt, level string
	var factors sql.NullString
	err = row.Scan(&p.ID, &p.AthleteID, &computedAt, &p.RiskScore, &level,
		&p.AcuteLoad, &p.ChronicLoad, &p.ACWR, &p.AISRITrend, &factors)
	if err != nil {
		return nil, notFound(err, "injury risk for "+athleteID)
	}
	p.RiskLevel = InjuryLevel(level)
	if p.ComputedAt, err = parseTime(computedAt); err != nil {
		return nil, fmt.Errorf("parsing computed_at %q: %w", computedAt, err)
	}
	if factors.Valid && factors.String != "null" {
		if err := json.Unmarshal([]byte(factors.String), &p.Factors); err != nil {
			return nil, fmt.Errorf("decoding factors: %w", err)
		}
	}
	return &p, nil
}

var assessmentColumns = []string{"id", "athlete_id", "assessed_at", "strength", "mobility", "range_of_motion"}

// InsertAssessment appends a readiness assessment
func (s *Store) InsertAssessment(ctx context.Context, a *ReadinessAssessment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.AssessedAt.IsZero() {
		a.AssessedAt = time.Now().UTC()
	}
	_, err := s.exec(ctx, s.sb.Insert("readiness_assessments").Columns(assessmentColumns...).Values(
		a.ID, a.AthleteID, formatTime(a.AssessedAt), a.Strength, a.Mobility, a.RangeOfMotion,
	))
	if err != nil {
		return fmt.Errorf("inserting assessment: %w", err)
	}
	return nil
}

// LatestAssessment returns the most recent readiness assessment
func (s *Store) LatestAssessment(ctx context.Context, athleteID string) (*ReadinessAssessment, error) {
	row, err := s.queryRow(ctx, s.sb.Select(assessmentColumns...).From("readiness_assessments").
		Where(sq.Eq{"athlete_id": athleteID}).
		OrderBy("assessed_at DESC", "id DESC").
		Limit(1))
	if err != nil {
		return nil, err
	}

	var a ReadinessAssessment
	var assessedAt string
	var rom sql.NullInt64
	if err := row.Scan(&a.ID, &a.AthleteID, &assessedAt, &a.Strength, &a.Mobility, &rom); err != nil {
		return nil, notFound(err, "assessment for "+athleteID)
	}
	if rom.Valid {
		v := int(rom.Int64)
		a.RangeOfMotion = &v
	}
	if a.AssessedAt, err = parseTime(assessedAt); err != nil {
		return nil, fmt.Errorf("parsing assessed_at %q: %w", assessedAt, err)
	}
	return &a, nil
}
