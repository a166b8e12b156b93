// Package service is the decision orchestrator. It turns stored activity
// history into readiness rows, gates workout requests on them and records
// completed workouts, serialising all work per athlete.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"aisri/internal/analysis"
	"aisri/internal/generator"
	"aisri/internal/store"
)

// Neutral stand-ins used when readiness rows are missing
const (
	NeutralAISRI      = 50
	NeutralInjuryRisk = 50
	NeutralRecovery   = 70
)

// estimatedRecompute is reported to callers that enqueue a recompute
const estimatedRecompute = 10 * time.Second

// ReadinessCache stores readiness snapshots as JSON documents
type ReadinessCache interface {
	Put(key string, v any) error
	Get(key string, v any) (bool, error)
}

// Readiness is the snapshot produced by one daily update
type Readiness struct {
	AthleteID  string                     `json:"athlete_id"`
	AISRI      store.AISRIScore           `json:"aisri"`
	InjuryRisk store.InjuryRiskPrediction `json:"injury_risk"`
	ACWR       analysis.ACWR              `json:"acwr"`
	Fitness    analysis.FitnessMetrics    `json:"fitness"`
	Form       string                     `json:"form"`
	ComputedAt time.Time                  `json:"computed_at"`
}

// Coach wires the readiness calculators, gates and generator to a repository
type Coach struct {
	repo       store.Repository
	gen        *generator.Generator
	now        func() time.Time
	cache      ReadinessCache
	observer   UseCaseObserver
	metrics    *Metrics
	logger     *slog.Logger
	thresholds analysis.SafetyThresholds
	retry      *retrier
	locks      *keyedMutex

	// background tasks owned by the coach
	tasksCtx    context.Context
	cancelTasks context.CancelFunc
	tasks       sync.WaitGroup
	closeOnce   sync.Once
}

// Option configures a Coach
type Option func(*Coach)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(c *Coach) { c.now = now }
}

// WithCache stores readiness snapshots after each daily update
func WithCache(cache ReadinessCache) Option {
	return func(c *Coach) { c.cache = cache }
}

// WithObserver receives one event per use case
func WithObserver(o UseCaseObserver) Option {
	return func(c *Coach) { c.observer = useCaseObserverOrNoop([]UseCaseObserver{o}) }
}

// WithMetrics records decisions and recomputes
func WithMetrics(m *Metrics) Option {
	return func(c *Coach) { c.metrics = m }
}

// WithLogger sets the logger for background work
func WithLogger(l *slog.Logger) Option {
	return func(c *Coach) { c.logger = l }
}

// WithThresholds overrides the safety gate thresholds
func WithThresholds(t analysis.SafetyThresholds) Option {
	return func(c *Coach) { c.thresholds = t }
}

// WithRetryPolicy overrides how transient repository errors are retried
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Coach) { c.retry = &retrier{policy: p} }
}

// NewCoach creates a coach over repo
func NewCoach(repo store.Repository, gen *generator.Generator, opts ...Option) *Coach {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Coach{
		repo:        repo,
		gen:         gen,
		now:         time.Now,
		observer:    NoopUseCaseObserver{},
		metrics:     NewMetrics(nil),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		thresholds:  analysis.DefaultSafetyThresholds(),
		retry:       &retrier{policy: DefaultRetryPolicy()},
		locks:       newKeyedMutex(),
		tasksCtx:    ctx,
		cancelTasks: cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close cancels background tasks and waits for them to finish
func (c *Coach) Close() {
	c.closeOnce.Do(c.cancelTasks)
	c.tasks.Wait()
}

func (c *Coach) clock() time.Time {
	return c.now()
}

// DailyUpdate recomputes an athlete's AISRI and injury risk from stored
// activities. Calling it again without new activities writes nothing new.
func (c *Coach) DailyUpdate(ctx context.Context, athleteID string) (*Readiness, error) {
	started := c.clock()
	r, err := c.dailyUpdate(ctx, athleteID)

	c.metrics.RecomputeTime.Observe(c.clock().Sub(started).Seconds())
	fields := map[string]any{"athlete_id": athleteID}
	if err != nil {
		c.metrics.RecomputeFailed.Inc()
	} else {
		c.metrics.AISRIScores.Observe(float64(r.AISRI.Overall))
		fields["aisri"] = r.AISRI.Overall
		fields["injury_risk"] = r.InjuryRisk.RiskScore
	}
	c.observe(ctx, UseCaseDailyUpdate, started, err, fields)
	return r, err
}

func (c *Coach) dailyUpdate(ctx context.Context, athleteID string) (*Readiness, error) {
	unlock, err := c.locks.Lock(ctx, athleteID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := c.clock()
	athlete, err := c.getAthlete(ctx, athleteID)
	if err != nil {
		return nil, err
	}

	var activities []store.Activity
	err = c.retry.do(ctx, func(ctx context.Context) error {
		var err error
		activities, err = c.repo.ListActivitiesSince(ctx, athleteID, now.Add(-analysis.AISRIWindow))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("loading activities: %w", err)
	}

	score := analysis.CalculateAISRI(analysis.AISRIInput{
		SignupAt:   athlete.CreatedAt,
		Activities: activities,
		Now:        now,
	})
	score.AthleteID = athleteID
	score.ComputedAt = now

	var history []store.AISRIScore
	err = c.retry.do(ctx, func(ctx context.Context) error {
		var err error
		history, err = c.repo.ListAISRIHistory(ctx, athleteID, analysis.InjuryWindowDays)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("loading aisri history: %w", err)
	}
	slices.Reverse(history)

	writeScore := true
	if n := len(history); n > 0 && sameDay(history[n-1].ComputedAt, now) && sameAISRI(history[n-1], score) {
		score = history[n-1]
		writeScore = false
	} else {
		history = append(history, score)
	}

	risk := analysis.EstimateInjuryRisk(history, analysis.DailyLoads(activities, now, analysis.InjuryWindowDays), now)
	risk.AthleteID = athleteID

	writeRisk := true
	err = c.retry.do(ctx, func(ctx context.Context) error {
		latest, err := c.repo.LatestInjuryRisk(ctx, athleteID)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if sameDay(latest.ComputedAt, now) && sameRisk(*latest, risk) {
			risk = *latest
			writeRisk = false
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading injury risk: %w", err)
	}

	if writeScore || writeRisk {
		err = c.retry.do(ctx, func(ctx context.Context) error {
			return c.repo.WithinTx(ctx, func(ctx context.Context, tx store.Repository) error {
				if writeScore {
					if err := tx.InsertAISRIScore(ctx, &score); err != nil {
						return err
					}
				}
				if writeRisk {
					return tx.InsertInjuryRisk(ctx, &risk)
				}
				return nil
			})
		})
		if err != nil {
			return nil, fmt.Errorf("saving readiness: %w", err)
		}
	}

	fitness := analysis.GetCurrentFitness(analysis.TRIMPLoads(activities, analysis.ZonesFor(athlete), athlete.Sex))
	r := &Readiness{
		AthleteID:  athleteID,
		AISRI:      score,
		InjuryRisk: risk,
		ACWR:       analysis.ComputeACWR(activities, now),
		Fitness:    fitness,
		Form:       analysis.FormDescription(fitness.TSB),
		ComputedAt: now,
	}
	if c.cache != nil {
		if err := c.cache.Put(readinessKey(athleteID), r); err != nil {
			c.logger.WarnContext(ctx, "caching readiness failed", "athlete_id", athleteID, "error", err)
		}
	}
	return r, nil
}

// EnqueueDailyUpdate schedules a recompute owned by the coach and returns
// the expected completion time. Close cancels pending work.
func (c *Coach) EnqueueDailyUpdate(athleteID string) (time.Time, error) {
	if err := c.tasksCtx.Err(); err != nil {
		return time.Time{}, fmt.Errorf("coach is closed: %w", err)
	}
	c.tasks.Add(1)
	go func() {
		defer c.tasks.Done()
		if _, err := c.DailyUpdate(c.tasksCtx, athleteID); err != nil {
			c.logger.Error("background daily update failed", "athlete_id", athleteID, "error", err)
		}
	}()
	return c.clock().Add(estimatedRecompute), nil
}

// DecisionStatus is the outcome of a workout request
type DecisionStatus string

const (
	StatusSuccess           DecisionStatus = "success"
	StatusBlockedSafety     DecisionStatus = "blocked_by_safety_gate"
	StatusBlockedStructural DecisionStatus = "blocked_by_structural_state"
)

// WorkoutRequest asks for a prescription of Type lasting DurationMinutes.
// Intensity defaults from the type when empty.
type WorkoutRequest struct {
	AthleteID       string          `json:"athlete_id"`
	Type            string          `json:"type"`
	DurationMinutes int             `json:"duration_minutes"`
	Intensity       store.Intensity `json:"intensity,omitempty"`
}

// WorkoutDecision is either a persisted assignment or a structured block
type WorkoutDecision struct {
	Status          DecisionStatus           `json:"status"`
	Reason          string                   `json:"reason,omitempty"`
	Recommendation  string                   `json:"recommendation,omitempty"`
	GatesFailed     []string                 `json:"gates_failed,omitempty"`
	AISRIScore      int                      `json:"aisri_score"`
	InjuryRisk      int                      `json:"injury_risk"`
	Assignment      *store.WorkoutAssignment `json:"workout,omitempty"`
	SafetyCheck     *analysis.SafetyCheck    `json:"safety_check,omitempty"`
	StructuralState analysis.StructuralState `json:"structural_state,omitempty"`
	StructuralScore int                      `json:"structural_score"`
	SpeedPermission bool                     `json:"speed_permission"`
	Degraded        bool                     `json:"degraded"`
	Notes           []string                 `json:"notes,omitempty"`
}

// DefaultIntensity is the intensity assumed for a type when none is given
func DefaultIntensity(wt store.WorkoutType) store.Intensity {
	switch wt {
	case store.WorkoutRecovery, store.WorkoutEasy:
		return store.IntensityEasy
	case store.WorkoutTempo, store.WorkoutThreshold, store.WorkoutHard:
		return store.IntensityHard
	case store.WorkoutInterval, store.WorkoutSpeed, store.WorkoutVO2Max:
		return store.IntensityInterval
	case store.WorkoutLong, store.WorkoutStrength:
		return store.IntensityModerate
	case store.WorkoutRace:
		return store.IntensityVeryHigh
	}
	return store.IntensityLow
}

var structuralRecommendations = map[analysis.StructuralState]string{
	analysis.StructuralRed:    "recommend mobility, activation or an easy run until strength and mobility improve",
	analysis.StructuralYellow: "recommend an easy, long or tempo run instead",
}

// RequestWorkout gates a workout request and, when it passes, generates and
// persists the prescription. Blocks are returned as decisions, not errors.
func (c *Coach) RequestWorkout(ctx context.Context, req WorkoutRequest) (*WorkoutDecision, error) {
	started := c.clock()
	d, err := c.requestWorkout(ctx, req)

	fields := map[string]any{"athlete_id": req.AthleteID, "type": req.Type}
	if d != nil {
		fields["status"] = string(d.Status)
		fields["degraded"] = d.Degraded
		c.metrics.Decisions.WithLabelValues(string(d.Status)).Inc()
		for _, g := range d.GatesFailed {
			c.metrics.GateFailures.WithLabelValues(g).Inc()
		}
	}
	c.observe(ctx, UseCaseRequestWorkout, started, err, fields)
	return d, err
}

func (c *Coach) requestWorkout(ctx context.Context, req WorkoutRequest) (*WorkoutDecision, error) {
	if req.AthleteID == "" {
		return nil, fmt.Errorf("athlete id is required: %w", ErrInvalidInput)
	}
	wt, ok := store.ParseWorkoutType(req.Type)
	if !ok {
		return nil, fmt.Errorf("unknown workout type %q: %w", req.Type, ErrInvalidInput)
	}
	if req.DurationMinutes <= 0 || req.DurationMinutes > maxDurationMinutes {
		return nil, fmt.Errorf("duration %d minutes out of range: %w", req.DurationMinutes, ErrInvalidInput)
	}
	intensity := req.Intensity
	if intensity == "" {
		intensity = DefaultIntensity(wt)
	}
	if !intensity.Valid() {
		return nil, fmt.Errorf("unknown intensity %q: %w", intensity, ErrInvalidInput)
	}

	unlock, err := c.locks.Lock(ctx, req.AthleteID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := c.clock()
	athlete, err := c.getAthlete(ctx, req.AthleteID)
	if err != nil {
		return nil, err
	}
	sig, err := c.readiness(ctx, athlete.ID, now)
	if err != nil {
		return nil, err
	}

	ev := c.evaluate(sig, wt, intensity, req.DurationMinutes, now)
	d := &WorkoutDecision{
		AISRIScore:      sig.aisri,
		InjuryRisk:      sig.injuryRisk,
		StructuralState: ev.state,
		StructuralScore: ev.structuralScore,
		SpeedPermission: ev.clearance.SpeedPermission,
		Degraded:        sig.degraded(),
		Notes:           sig.notes,
	}

	if !ev.check.Safe {
		d.Status = StatusBlockedSafety
		d.Reason = ev.check.Reason
		d.Recommendation = ev.check.Recommendation
		d.GatesFailed = ev.check.GatesFailed
		d.SafetyCheck = &ev.check
		return d, nil
	}
	if !ev.clearance.Cleared {
		d.Status = StatusBlockedStructural
		d.Reason = ev.clearance.Reason
		d.Recommendation = structuralRecommendations[ev.state]
		d.SafetyCheck = &ev.check
		return d, nil
	}

	assignment, err := c.plan(athlete, sig, ev, wt, req.DurationMinutes, now, dayStart(now))
	if err != nil {
		return nil, err
	}
	err = c.retry.do(ctx, func(ctx context.Context) error {
		_, err := c.repo.CreateAssignment(ctx, assignment)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("saving assignment: %w", err)
	}
	d.Status = StatusSuccess
	d.Assignment = assignment
	d.SafetyCheck = &ev.check
	return d, nil
}

// maxDurationMinutes bounds any single requested session
const maxDurationMinutes = 360

// signals are the readiness inputs of one decision, with neutral defaults
// already applied for anything missing
type signals struct {
	aisri      int
	injuryRisk int
	recovery   int
	assessment *store.ReadinessAssessment
	recent     []store.Activity
	labels     []store.PerformanceLabel
	notes      []string
}

func (s *signals) degraded() bool {
	return len(s.notes) > 0
}

// readiness loads the latest rows for a decision. Missing and stale rows
// degrade it; transient failures are returned.
func (c *Coach) readiness(ctx context.Context, athleteID string, now time.Time) (*signals, error) {
	sig := &signals{aisri: NeutralAISRI, injuryRisk: NeutralInjuryRisk, recovery: NeutralRecovery}

	score := lookup(ctx, c.retry, now, StaleAfter,
		func(ctx context.Context) (*store.AISRIScore, error) { return c.repo.LatestAISRI(ctx, athleteID) },
		func(s *store.AISRIScore) time.Time { return s.ComputedAt })
	if score.Status == LookupTransient {
		return nil, fmt.Errorf("loading aisri: %w", score.Err)
	}
	if score.Usable() {
		sig.aisri = score.Value.Overall
		sig.recovery = score.Value.Pillars.Recovery
	}
	if note := score.Note("AISRI score"); note != "" {
		sig.notes = append(sig.notes, note)
	}

	risk := lookup(ctx, c.retry, now, StaleAfter,
		func(ctx context.Context) (*store.InjuryRiskPrediction, error) {
			return c.repo.LatestInjuryRisk(ctx, athleteID)
		},
		func(p *store.InjuryRiskPrediction) time.Time { return p.ComputedAt })
	if risk.Status == LookupTransient {
		return nil, fmt.Errorf("loading injury risk: %w", risk.Err)
	}
	if risk.Usable() {
		sig.injuryRisk = risk.Value.RiskScore
	}
	if note := risk.Note("injury risk"); note != "" {
		sig.notes = append(sig.notes, note)
	}

	assessment := lookup(ctx, c.retry, now, 0,
		func(ctx context.Context) (*store.ReadinessAssessment, error) {
			return c.repo.LatestAssessment(ctx, athleteID)
		},
		func(a *store.ReadinessAssessment) time.Time { return a.AssessedAt })
	if assessment.Status == LookupTransient {
		return nil, fmt.Errorf("loading assessment: %w", assessment.Err)
	}
	sig.assessment = assessment.Value
	if note := assessment.Note("readiness assessment"); note != "" {
		sig.notes = append(sig.notes, note)
	}

	err := c.retry.do(ctx, func(ctx context.Context) error {
		var err error
		sig.recent, err = c.repo.ListActivitiesSince(ctx, athleteID, now.Add(-28*24*time.Hour))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("loading recent activities: %w", err)
	}

	var results []store.WorkoutResult
	err = c.retry.do(ctx, func(ctx context.Context) error {
		var err error
		results, err = c.repo.ListResultsSince(ctx, athleteID, now.Add(-7*24*time.Hour))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("loading recent results: %w", err)
	}
	for _, r := range results {
		sig.labels = append(sig.labels, r.Label)
	}
	return sig, nil
}

type evaluation struct {
	check           analysis.SafetyCheck
	structuralScore int
	state           analysis.StructuralState
	clearance       analysis.ClearanceResult
}

// evaluate runs the safety gates and then the structural clearance
func (c *Coach) evaluate(sig *signals, wt store.WorkoutType, intensity store.Intensity, minutes int, now time.Time) evaluation {
	check := c.thresholds.Evaluate(analysis.SafetyInput{
		WorkoutType:     wt,
		Intensity:       intensity,
		DurationMinutes: minutes,
		AISRI:           sig.aisri,
		InjuryRisk:      sig.injuryRisk,
		RecoveryPillar:  sig.recovery,
		Recent:          sig.recent,
		Now:             now,
		Degraded:        sig.degraded(),
		Notes:           sig.notes,
	})
	score := analysis.StructuralScore(sig.assessment)
	state := analysis.ClassifyStructural(score)
	return evaluation{
		check:           check,
		structuralScore: score,
		state:           state,
		clearance:       analysis.Clearance(state, wt, intensity),
	}
}

// plan generates a workout as an unsaved assignment scheduled for day
func (c *Coach) plan(athlete *store.Athlete, sig *signals, ev evaluation,
	wt store.WorkoutType, minutes int, now, day time.Time) (*store.WorkoutAssignment, error) {
	w, err := c.gen.Generate(generator.Request{
		Athlete:         athlete,
		Type:            wt,
		DurationMinutes: minutes,
		State:           ev.state,
		SpeedPermission: ev.clearance.SpeedPermission,
		ACWR:            analysis.ComputeACWR(sig.recent, now),
		RecentLabels:    sig.labels,
	})
	if errors.Is(err, generator.ErrUnsupportedType) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if err != nil {
		return nil, fmt.Errorf("generating %s workout: %w", wt, err)
	}
	return &store.WorkoutAssignment{
		AthleteID:     athlete.ID,
		ScheduledDate: day,
		Prescription:  w.Prescription,
		ExpectedLoad:  w.ExpectedLoad,
		Rationale:     w.Rationale,
	}, nil
}

func (c *Coach) getAthlete(ctx context.Context, id string) (*store.Athlete, error) {
	var a *store.Athlete
	err := c.retry.do(ctx, func(ctx context.Context) error {
		var err error
		a, err = c.repo.GetAthlete(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("loading athlete: %w", err)
	}
	return a, nil
}

func readinessKey(athleteID string) string {
	return "readiness:" + athleteID
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func sameDay(a, b time.Time) bool {
	return dayStart(a.UTC()).Equal(dayStart(b.UTC()))
}

func sameAISRI(a, b store.AISRIScore) bool {
	return a.Overall == b.Overall &&
		a.Pillars == b.Pillars &&
		a.RiskLevel == b.RiskLevel &&
		a.Confidence == b.Confidence &&
		a.Method == b.Method &&
		a.ActivitiesAnalysed == b.ActivitiesAnalysed &&
		a.Notes == b.Notes
}

func sameRisk(a, b store.InjuryRiskPrediction) bool {
	return a.RiskScore == b.RiskScore &&
		a.RiskLevel == b.RiskLevel &&
		a.AISRITrend == b.AISRITrend &&
		closeEnough(a.AcuteLoad, b.AcuteLoad) &&
		closeEnough(a.ChronicLoad, b.ChronicLoad) &&
		closeEnough(a.ACWR, b.ACWR) &&
		slices.Equal(a.Factors, b.Factors)
}

func closeEnough(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}
