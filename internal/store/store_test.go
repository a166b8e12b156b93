package store

import (
	"context"
	"database/sql"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

// setupTestDB creates an in-memory database with one athlete
func setupTestDB(t *testing.T) (*Store, *Athlete) {
	t.Helper()

	s, err := OpenInMemory()
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	a := &Athlete{
		Name:         "Test Runner",
		Age:          34,
		EasyPace:     360,
		TempoPace:    300,
		IntervalPace: 270,
		MaxHR:        190,
		ThresholdHR:  170,
		AerobicHR:    150,
		RestingHR:    50,
		Phase:        PhaseBaseBuild,
		WeekNumber:   3,
	}
	if err := s.CreateAthlete(context.Background(), a); err != nil {
		t.Fatalf("CreateAthlete() error = %v", err)
	}
	return s, a
}

func TestAthletes(t *testing.T) {
	ctx := context.Background()
	s, a := setupTestDB(t)

	t.Run("GetAthlete returns stored profile", func(t *testing.T) {
		got, err := s.GetAthlete(ctx, a.ID)
		if err != nil {
			t.Fatalf("GetAthlete() error = %v", err)
		}
		if got.Name != "Test Runner" {
			t.Errorf("Name = %q, want Test Runner", got.Name)
		}
		if got.Phase != PhaseBaseBuild {
			t.Errorf("Phase = %v, want BASE_BUILD", got.Phase)
		}
		if got.EasyPace != 360 {
			t.Errorf("EasyPace = %v, want 360", got.EasyPace)
		}
	})

	t.Run("GetAthlete missing returns ErrNotFound", func(t *testing.T) {
		_, err := s.GetAthlete(ctx, "nope")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("UpdateAthlete persists ability", func(t *testing.T) {
		a.EasyPace = 355
		stravaID := int64(4242)
		a.StravaAthleteID = &stravaID
		if err := s.UpdateAthlete(ctx, a); err != nil {
			t.Fatalf("UpdateAthlete() error = %v", err)
		}
		got, err := s.GetAthleteByStravaID(ctx, 4242)
		if err != nil {
			t.Fatalf("GetAthleteByStravaID() error = %v", err)
		}
		if got.EasyPace != 355 {
			t.Errorf("EasyPace = %v, want 355", got.EasyPace)
		}
	})

	t.Run("ListAthletes", func(t *testing.T) {
		athletes, err := s.ListAthletes(ctx)
		if err != nil {
			t.Fatalf("ListAthletes() error = %v", err)
		}
		if len(athletes) != 1 {
			t.Errorf("len = %d, want 1", len(athletes))
		}
	})
}

func TestActivities(t *testing.T) {
	ctx := context.Background()
	s, a := setupTestDB(t)

	hr := 148.0
	tz := time.FixedZone("", 2*3600)
	act := &Activity{
		ID:               "strava:100",
		AthleteID:        a.ID,
		Provider:         "strava",
		Name:             "Morning Run",
		Type:             "Run",
		StartDate:        time.Date(2024, 3, 1, 7, 0, 0, 0, tz),
		Distance:         10000,
		MovingTime:       3000,
		ElapsedTime:      3100,
		AverageHeartrate: &hr,
		Splits:           []Split{{Index: 1, Pace: 300}, {Index: 2, Pace: 302}},
		WorkoutType:      WorkoutEasy,
	}

	t.Run("InsertActivity inserts once", func(t *testing.T) {
		inserted, err := s.InsertActivity(ctx, act)
		if err != nil {
			t.Fatalf("InsertActivity() error = %v", err)
		}
		if !inserted {
			t.Error("first insert should report inserted")
		}

		inserted, err = s.InsertActivity(ctx, act)
		if err != nil {
			t.Fatalf("InsertActivity() duplicate error = %v", err)
		}
		if inserted {
			t.Error("duplicate insert should report not inserted")
		}

		n, err := s.CountActivities(ctx, a.ID)
		if err != nil {
			t.Fatalf("CountActivities() error = %v", err)
		}
		if n != 1 {
			t.Errorf("count = %d, want 1", n)
		}
	})

	t.Run("GetActivity keeps offset and splits", func(t *testing.T) {
		got, err := s.GetActivity(ctx, "strava:100")
		if err != nil {
			t.Fatalf("GetActivity() error = %v", err)
		}
		if !got.StartDate.Equal(act.StartDate) {
			t.Errorf("StartDate = %v, want %v", got.StartDate, act.StartDate)
		}
		if _, off := got.StartDate.Zone(); off != 7200 {
			t.Errorf("offset = %d, want 7200", off)
		}
		if len(got.Splits) != 2 || got.Splits[1].Pace != 302 {
			t.Errorf("Splits = %+v", got.Splits)
		}
		if got.AverageHeartrate == nil || *got.AverageHeartrate != 148 {
			t.Errorf("AverageHeartrate = %v, want 148", got.AverageHeartrate)
		}
		if got.MaxHeartrate != nil {
			t.Errorf("MaxHeartrate = %v, want nil", got.MaxHeartrate)
		}
	})

	t.Run("ListActivitiesSince filters by start", func(t *testing.T) {
		later := *act
		later.ID = "strava:101"
		later.StartDate = act.StartDate.AddDate(0, 0, 3)
		if _, err := s.InsertActivity(ctx, &later); err != nil {
			t.Fatalf("InsertActivity() error = %v", err)
		}

		got, err := s.ListActivitiesSince(ctx, a.ID, act.StartDate.AddDate(0, 0, 1))
		if err != nil {
			t.Fatalf("ListActivitiesSince() error = %v", err)
		}
		if len(got) != 1 || got[0].ID != "strava:101" {
			t.Errorf("got %d activities, want only strava:101", len(got))
		}

		all, err := s.ListActivities(ctx, a.ID, 10, 0)
		if err != nil {
			t.Fatalf("ListActivities() error = %v", err)
		}
		if len(all) != 2 || all[0].ID != "strava:101" {
			t.Errorf("ListActivities should be newest first, got %+v", all)
		}
	})
}

func TestLatestAISRIUsesMaxComputedAt(t *testing.T) {
	ctx := context.Background()
	s, a := setupTestDB(t)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	// inserted out of order
	for _, tc := range []struct {
		at      time.Time
		overall int
	}{
		{base.Add(2 * time.Hour), 80},
		{base, 60},
		{base.Add(time.Hour), 70},
	} {
		sc := &AISRIScore{AthleteID: a.ID, ComputedAt: tc.at, Overall: tc.overall, RiskLevel: RiskLow, Method: "activity"}
		if err := s.InsertAISRIScore(ctx, sc); err != nil {
			t.Fatalf("InsertAISRIScore() error = %v", err)
		}
	}

	got, err := s.LatestAISRI(ctx, a.ID)
	if err != nil {
		t.Fatalf("LatestAISRI() error = %v", err)
	}
	if got.Overall != 80 {
		t.Errorf("Overall = %d, want 80", got.Overall)
	}

	hist, err := s.ListAISRIHistory(ctx, a.ID, 2)
	if err != nil {
		t.Fatalf("ListAISRIHistory() error = %v", err)
	}
	if len(hist) != 2 || hist[1].Overall != 70 {
		t.Errorf("history = %+v", hist)
	}

	since, err := s.ListAISRISince(ctx, a.ID, base.Add(30*time.Minute))
	if err != nil {
		t.Fatalf("ListAISRISince() error = %v", err)
	}
	if len(since) != 2 || since[0].Overall != 70 {
		t.Errorf("since = %+v", since)
	}

	if _, err := s.LatestAISRI(ctx, "other"); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestSchemaTables(t *testing.T) {
	s, _ := setupTestDB(t)

	for _, table := range []string{
		"athlete_profile", "activities", "aisri_scores", "injury_risk_predictions",
		"workout_assignments", "workout_results", "ability_progression",
		"readiness_assessments", "provider_tokens", "sync_state",
	} {
		var name string
		err := s.db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s: %v", table, err)
		}
	}
}

func TestResultsUniquePerActivity(t *testing.T) {
	ctx := context.Background()
	s, a := setupTestDB(t)

	r := &WorkoutResult{
		AthleteID:        a.ID,
		SourceActivityID: "strava:1",
		DistanceKm:       5,
		DurationSeconds:  1500,
		AvgPace:          300,
		CompletedFull:    true,
		Label:            LabelGood,
		Fatigue:          FatigueLow,
		InjuryIndicators: []string{"high_hr"},
	}
	if err := s.InsertResult(ctx, r); err != nil {
		t.Fatalf("InsertResult() error = %v", err)
	}

	dup := *r
	dup.ID = ""
	if err := s.InsertResult(ctx, &dup); !errors.Is(err, ErrDuplicate) {
		t.Errorf("error = %v, want ErrDuplicate", err)
	}

	other := &Athlete{Name: "Other Runner"}
	if err := s.CreateAthlete(ctx, other); err != nil {
		t.Fatalf("CreateAthlete() error = %v", err)
	}
	theirs := *r
	theirs.ID = ""
	theirs.AthleteID = other.ID
	if err := s.InsertResult(ctx, &theirs); !errors.Is(err, ErrDuplicate) {
		t.Errorf("other athlete error = %v, want ErrDuplicate", err)
	}

	got, err := s.GetResultBySourceActivity(ctx, "strava:1")
	if err != nil {
		t.Fatalf("GetResultBySourceActivity() error = %v", err)
	}
	if !got.CompletedFull || got.Label != LabelGood {
		t.Errorf("got %+v", got)
	}
	if len(got.InjuryIndicators) != 1 {
		t.Errorf("InjuryIndicators = %v", got.InjuryIndicators)
	}
}

func TestAssignmentStatus(t *testing.T) {
	ctx := context.Background()
	s, a := setupTestDB(t)

	id, err := s.CreateAssignment(ctx, &WorkoutAssignment{
		AthleteID:     a.ID,
		ScheduledDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Prescription: Prescription{
			Type:      WorkoutInterval,
			Intervals: &IntervalSpec{Count: 8, DistanceM: 400, Pace: 250, RestSeconds: 90},
		},
		ExpectedLoad: 9.6,
		Rationale:    "speed work",
	})
	if err != nil {
		t.Fatalf("CreateAssignment() error = %v", err)
	}

	notes := "felt strong"
	if err := s.UpdateAssignmentStatus(ctx, id, StatusCompleted, &notes); err != nil {
		t.Fatalf("UpdateAssignmentStatus() error = %v", err)
	}

	got, err := s.GetAssignment(ctx, id)
	if err != nil {
		t.Fatalf("GetAssignment() error = %v", err)
	}
	if got.Status != StatusCompleted {
		t.Errorf("Status = %v, want completed", got.Status)
	}
	if got.Prescription.Intervals == nil || got.Prescription.Intervals.Count != 8 {
		t.Errorf("Intervals = %+v", got.Prescription.Intervals)
	}
	if got.CompletionNotes != notes {
		t.Errorf("CompletionNotes = %q", got.CompletionNotes)
	}

	if err := s.UpdateAssignmentStatus(ctx, "missing", StatusSkipped, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

type failNthExec struct {
	DBTX
	count  atomic.Int32
	failOn int32
}

func (f *failNthExec) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if f.count.Add(1) == f.failOn {
		return nil, errors.New("injected failure")
	}
	return f.DBTX.ExecContext(ctx, query, args...)
}

func TestWithinTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s, a := setupTestDB(t)

	failing := s.WithTxWrapper(func(tx DBTX) DBTX { return &failNthExec{DBTX: tx, failOn: 2} })
	err := failing.WithinTx(ctx, func(ctx context.Context, tx Repository) error {
		if err := tx.InsertAISRIScore(ctx, &AISRIScore{AthleteID: a.ID, Overall: 50, Method: "activity"}); err != nil {
			return err
		}
		return tx.InsertInjuryRisk(ctx, &InjuryRiskPrediction{AthleteID: a.ID, RiskScore: 50, RiskLevel: InjuryModerate})
	})
	if err == nil {
		t.Fatal("expected injected failure")
	}

	if _, err := s.LatestAISRI(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("score should have rolled back, got err = %v", err)
	}
}

func TestSyncState(t *testing.T) {
	ctx := context.Background()
	s, _ := setupTestDB(t)

	v, err := s.GetSyncState(ctx, "last_sync")
	if err != nil || v != "" {
		t.Fatalf("GetSyncState() = %q, %v", v, err)
	}
	if err := s.SetSyncState(ctx, "last_sync", "1"); err != nil {
		t.Fatalf("SetSyncState() error = %v", err)
	}
	if err := s.SetSyncState(ctx, "last_sync", "2"); err != nil {
		t.Fatalf("SetSyncState() error = %v", err)
	}
	v, _ = s.GetSyncState(ctx, "last_sync")
	if v != "2" {
		t.Errorf("value = %q, want 2", v)
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"conn done", sql.ErrConnDone, true},
		{"locked message", errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{"not found", ErrNotFound, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTransient(tt.err); got != tt.want {
				t.Errorf("IsTransient() = %v, want %v", got, tt.want)
			}
		})
	}
}
