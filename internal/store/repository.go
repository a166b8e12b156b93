package store

import (
	"context"
	"time"
)

// AthleteRepo covers the athlete profile, the only record mutated in place
// besides assignment status.
type AthleteRepo interface {
	CreateAthlete(ctx context.Context, a *Athlete) error
	GetAthlete(ctx context.Context, id string) (*Athlete, error)
	GetAthleteByStravaID(ctx context.Context, stravaID int64) (*Athlete, error)
	ListAthletes(ctx context.Context) ([]Athlete, error)
	UpdateAthlete(ctx context.Context, a *Athlete) error
}

// ActivityRepo is insert-only.
type ActivityRepo interface {
	// InsertActivity returns false when the activity id already exists.
	InsertActivity(ctx context.Context, a *Activity) (bool, error)
	GetActivity(ctx context.Context, id string) (*Activity, error)
	ListActivities(ctx context.Context, athleteID string, limit, offset int) ([]Activity, error)
	ListActivitiesSince(ctx context.Context, athleteID string, since time.Time) ([]Activity, error)
	CountActivities(ctx context.Context, athleteID string) (int, error)
}

// ScoreRepo holds readiness rows. Readers always select the maximum computed_at.
type ScoreRepo interface {
	InsertAISRIScore(ctx context.Context, s *AISRIScore) error
	LatestAISRI(ctx context.Context, athleteID string) (*AISRIScore, error)
	ListAISRISince(ctx context.Context, athleteID string, since time.Time) ([]AISRIScore, error)
	ListAISRIHistory(ctx context.Context, athleteID string, limit int) ([]AISRIScore, error)

	InsertInjuryRisk(ctx context.Context, p *InjuryRiskPrediction) error
	LatestInjuryRisk(ctx context.Context, athleteID string) (*InjuryRiskPrediction, error)

	InsertAssessment(ctx context.Context, a *ReadinessAssessment) error
	LatestAssessment(ctx context.Context, athleteID string) (*ReadinessAssessment, error)
}

// AssignmentRepo covers prescribed workouts.
type AssignmentRepo interface {
	CreateAssignment(ctx context.Context, a *WorkoutAssignment) (string, error)
	GetAssignment(ctx context.Context, id string) (*WorkoutAssignment, error)
	UpdateAssignmentStatus(ctx context.Context, id string, status AssignmentStatus, notes *string) error
	ListAssignmentsSince(ctx context.Context, athleteID string, since time.Time) ([]WorkoutAssignment, error)
}

// ResultRepo covers assessed results and the progression log. Both are insert-only.
type ResultRepo interface {
	InsertResult(ctx context.Context, r *WorkoutResult) error
	GetResultBySourceActivity(ctx context.Context, activityID string) (*WorkoutResult, error)
	ListResultsSince(ctx context.Context, athleteID string, since time.Time) ([]WorkoutResult, error)

	InsertProgression(ctx context.Context, p *AbilityProgression) error
	ListProgression(ctx context.Context, athleteID string) ([]AbilityProgression, error)
}

// ProviderRepo holds ingestion boundary state.
type ProviderRepo interface {
	GetProviderToken(ctx context.Context, athleteID, provider string) (*ProviderToken, error)
	SaveProviderToken(ctx context.Context, t *ProviderToken) error
	GetSyncState(ctx context.Context, key string) (string, error)
	SetSyncState(ctx context.Context, key, value string) error
}

// Repository is the full persistence contract consumed by the decision core.
type Repository interface {
	AthleteRepo
	ActivityRepo
	ScoreRepo
	AssignmentRepo
	ResultRepo
	ProviderRepo

	// WithinTx runs fn against a transaction-scoped repository. Either every
	// write made through tx commits or none does.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Repository) error) error
}

// Compile-time verification that *Store satisfies Repository.
var _ Repository = (*Store)(nil)
