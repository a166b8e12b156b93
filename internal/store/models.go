package store

import (
	"math"
	"strings"
	"time"
)

// TrainingPhase is the athlete's current periodisation block
type TrainingPhase string

const (
	PhaseFoundation TrainingPhase = "FOUNDATION"
	PhaseBaseBuild  TrainingPhase = "BASE_BUILD"
	PhaseSpeedBuild TrainingPhase = "SPEED_BUILD"
	PhaseRacePrep   TrainingPhase = "RACE_PREP"
	PhaseTaper      TrainingPhase = "TAPER"
)

// Valid reports whether p is a known phase
func (p TrainingPhase) Valid() bool {
	switch p {
	case PhaseFoundation, PhaseBaseBuild, PhaseSpeedBuild, PhaseRacePrep, PhaseTaper:
		return true
	}
	return false
}

// Athlete is the profile owning every other record
type Athlete struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Age      int     `json:"age"`
	Sex      string  `json:"sex"`
	WeightKg float64 `json:"weight_kg"`

	// Ability snapshot, paces in seconds per km
	EasyPace     float64 `json:"easy_pace"`
	TempoPace    float64 `json:"tempo_pace"`
	IntervalPace float64 `json:"interval_pace"`
	MaxHR        float64 `json:"max_hr"`
	ThresholdHR  float64 `json:"threshold_hr"`
	AerobicHR    float64 `json:"aerobic_hr"`
	RestingHR    float64 `json:"resting_hr"`

	WeeklyVolumeKm float64       `json:"weekly_volume_km"`
	LongestRunKm   float64       `json:"longest_run_km"`
	Phase          TrainingPhase `json:"phase"`
	WeekNumber     int           `json:"week_number"`      // 1-based week of the current plan

	StravaAthleteID *int64    `json:"strava_athlete_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Snapshot returns the ability fields as a progression snapshot
func (a *Athlete) Snapshot() AbilitySnapshot {
	return AbilitySnapshot{
		EasyPace:     a.EasyPace,
		TempoPace:    a.TempoPace,
		IntervalPace: a.IntervalPace,
		MaxHR:        a.MaxHR,
		ThresholdHR:  a.ThresholdHR,
		AerobicHR:    a.AerobicHR,
	}
}

// Split is one kilometre of an activity
type Split struct {
	Index     int      `json:"km"`
	Pace      float64  `json:"pace"` // seconds per km
	Heartrate *float64 `json:"hr,omitempty"`
}

// Activity is a normalised, provider-independent activity record
type Activity struct {
	ID                 string      `json:"id"`                          // "<provider>:<provider id>"
	AthleteID          string      `json:"athlete_id"`
	Provider           string      `json:"provider"`
	Name               string      `json:"name"`
	Type               string      `json:"type"`                        // Run, Ride, Swim, ...
	StartDate          time.Time   `json:"start_date"`
	Timezone           string      `json:"timezone,omitempty"`
	Distance           float64     `json:"distance"`                    // meters
	MovingTime         int         `json:"moving_time"`                 // seconds
	ElapsedTime        int         `json:"elapsed_time"`                // seconds
	TotalElevationGain float64     `json:"total_elevation_gain"`
	AverageSpeed       float64     `json:"average_speed"`               // m/s
	AverageHeartrate   *float64    `json:"average_heartrate,omitempty"` // nullable
	MaxHeartrate       *float64    `json:"max_heartrate,omitempty"`     // nullable
	AverageCadence     *float64    `json:"average_cadence,omitempty"`   // nullable
	SufferScore        *int        `json:"suffer_score,omitempty"`      // nullable
	Splits             []Split     `json:"splits,omitempty"`
	WorkoutType        WorkoutType `json:"workout_type"`
	Notes              []string    `json:"notes,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
}

// IsRun reports whether the activity counts toward running load
func (a *Activity) IsRun() bool {
	switch a.Type {
	case "Run", "TrailRun", "VirtualRun", "Treadmill":
		return true
	}
	return false
}

// DistanceKm returns the distance in kilometres
func (a *Activity) DistanceKm() float64 {
	return a.Distance / 1000
}

// Pace returns the average pace in seconds per km, 0 when unknown
func (a *Activity) Pace() float64 {
	if a.Distance <= 0 || a.MovingTime <= 0 {
		return 0
	}
	return float64(a.MovingTime) / (a.Distance / 1000)
}

// HasHeartrate reports whether average HR was recorded
func (a *Activity) HasHeartrate() bool {
	return a.AverageHeartrate != nil && *a.AverageHeartrate > 0
}

// WorkoutType is the canonical workout taxonomy shared by every component
type WorkoutType string

const (
	WorkoutEasy       WorkoutType = "easy"
	WorkoutRecovery   WorkoutType = "recovery"
	WorkoutLong       WorkoutType = "long_run"
	WorkoutTempo      WorkoutType = "tempo"
	WorkoutThreshold  WorkoutType = "threshold"
	WorkoutInterval   WorkoutType = "interval"
	WorkoutSpeed      WorkoutType = "speed"
	WorkoutVO2Max     WorkoutType = "vo2max"
	WorkoutHard       WorkoutType = "hard"
	WorkoutRace       WorkoutType = "race"
	WorkoutStrength   WorkoutType = "strength"
	WorkoutMobility   WorkoutType = "mobility"
	WorkoutActivation WorkoutType = "activation"
)

var workoutTypeAliases = map[string]WorkoutType{
	"easy":       WorkoutEasy,
	"easy_run":   WorkoutEasy,
	"recovery":   WorkoutRecovery,
	"long":       WorkoutLong,
	"long_run":   WorkoutLong,
	"tempo":      WorkoutTempo,
	"threshold":  WorkoutThreshold,
	"interval":   WorkoutInterval,
	"intervals":  WorkoutInterval,
	"speed":      WorkoutSpeed,
	"vo2max":     WorkoutVO2Max,
	"hard":       WorkoutHard,
	"race":       WorkoutRace,
	"strength":   WorkoutStrength,
	"mobility":   WorkoutMobility,
	"activation": WorkoutActivation,
}

// ParseWorkoutType maps a user supplied type (with aliases) to the canonical value
func ParseWorkoutType(s string) (WorkoutType, bool) {
	t, ok := workoutTypeAliases[strings.ToLower(strings.TrimSpace(s))]
	return t, ok
}

// IsQuality reports interval, tempo and threshold sessions
func (t WorkoutType) IsQuality() bool {
	switch t {
	case WorkoutInterval, WorkoutTempo, WorkoutThreshold:
		return true
	}
	return false
}

// IsHard reports any session that counts toward a consecutive-hard streak
func (t WorkoutType) IsHard() bool {
	switch t {
	case WorkoutHard, WorkoutTempo, WorkoutThreshold, WorkoutInterval,
		WorkoutSpeed, WorkoutVO2Max, WorkoutRace:
		return true
	}
	return false
}

// IsRunning reports whether the type prescribes a run
func (t WorkoutType) IsRunning() bool {
	switch t {
	case WorkoutStrength, WorkoutMobility, WorkoutActivation:
		return false
	}
	return true
}

// Intensity is the requested effort level of a workout
type Intensity string

const (
	IntensityLow      Intensity = "low"
	IntensityEasy     Intensity = "easy"
	IntensityModerate Intensity = "moderate"
	IntensityHard     Intensity = "hard"
	IntensityInterval Intensity = "interval"
	IntensityHigh     Intensity = "high"
	IntensityVeryHigh Intensity = "very_high"
)

// Valid reports whether i is a known intensity
func (i Intensity) Valid() bool {
	switch i {
	case IntensityLow, IntensityEasy, IntensityModerate, IntensityHard,
		IntensityInterval, IntensityHigh, IntensityVeryHigh:
		return true
	}
	return false
}

// IsHigh reports intensities blocked in a RED structural state
func (i Intensity) IsHigh() bool {
	switch i {
	case IntensityHigh, IntensityVeryHigh:
		return true
	}
	return false
}

// RiskLevel is the AISRI risk band
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskModerate RiskLevel = "Moderate"
	RiskHigh     RiskLevel = "High"
)

// Pillars holds the six AISRI sub-scores
type Pillars struct {
	Adaptability int `json:"adaptability"`
	InjuryRisk   int `json:"injury_risk"`
	Fatigue      int `json:"fatigue"`
	Recovery     int `json:"recovery"`
	Intensity    int `json:"intensity"`
	Consistency  int `json:"consistency"`
}

// Values returns the pillars in a fixed order
func (p Pillars) Values() []int {
	return []int{p.Adaptability, p.InjuryRisk, p.Fatigue, p.Recovery, p.Intensity, p.Consistency}
}

// Overall is the rounded arithmetic mean of the pillars
func (p Pillars) Overall() int {
	var sum int
	for _, v := range p.Values() {
		sum += v
	}
	return int(math.Round(float64(sum) / 6))
}

// AISRIScore is one readiness computation for an athlete
type AISRIScore struct {
	ID                 string    `json:"id"`
	AthleteID          string    `json:"athlete_id"`
	ComputedAt         time.Time `json:"computed_at"`
	Overall            int       `json:"overall"`
	Pillars            Pillars   `json:"pillars"`
	RiskLevel          RiskLevel `json:"risk_level"`
	Confidence         int       `json:"confidence"`
	Method             string    `json:"method"`
	ActivitiesAnalysed int       `json:"activities_analysed"`
	Notes              string    `json:"notes,omitempty"`
}

// InjuryLevel is the injury-risk band
type InjuryLevel string

const (
	InjuryLow      InjuryLevel = "LOW"
	InjuryModerate InjuryLevel = "MODERATE"
	InjuryHigh     InjuryLevel = "HIGH"
)

// InjuryRiskPrediction is one injury-risk estimate for an athlete
type InjuryRiskPrediction struct {
	ID          string      `json:"id"`
	AthleteID   string      `json:"athlete_id"`
	ComputedAt  time.Time   `json:"computed_at"`
	RiskScore   int         `json:"risk_score"`
	RiskLevel   InjuryLevel `json:"risk_level"`
	AcuteLoad   float64     `json:"acute_load"`
	ChronicLoad float64     `json:"chronic_load"`
	ACWR        float64     `json:"acwr"`
	AISRITrend  int         `json:"aisri_trend"`
	Factors     []string    `json:"factors,omitempty"`
}

// ReadinessAssessment is a strength and mobility screen feeding the structural gate
type ReadinessAssessment struct {
	ID            string    `json:"id"`
	AthleteID     string    `json:"athlete_id"`
	AssessedAt    time.Time `json:"assessed_at"`
	Strength      int       `json:"strength"`
	Mobility      int       `json:"mobility"`
	RangeOfMotion *int      `json:"range_of_motion,omitempty"`
}

// AssignmentStatus tracks a prescribed workout through its lifecycle
type AssignmentStatus string

const (
	StatusAssigned   AssignmentStatus = "assigned"
	StatusInProgress AssignmentStatus = "in_progress"
	StatusCompleted  AssignmentStatus = "completed"
	StatusSkipped    AssignmentStatus = "skipped"
)

// Valid reports whether s is a known status
func (s AssignmentStatus) Valid() bool {
	switch s {
	case StatusAssigned, StatusInProgress, StatusCompleted, StatusSkipped:
		return true
	}
	return false
}

// IntervalSpec describes the repeats of an interval session
type IntervalSpec struct {
	Count       int     `json:"intervals"`
	DistanceM   int     `json:"interval_distance_m"`
	Pace        float64 `json:"interval_pace"`
	RestSeconds int     `json:"rest_time_seconds"`
}

// WorkoutBlock is one segment of a prescription (warm-up, main, cool-down)
type WorkoutBlock struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	DistanceKm  float64 `json:"distance_km,omitempty"`
	Minutes     int     `json:"minutes,omitempty"`
	Zone        int     `json:"zone,omitempty"`
}

// Prescription is the concrete workout handed to the athlete
type Prescription struct {
	Type            WorkoutType    `json:"type"`
	Template        string         `json:"template,omitempty"`
	DistanceKm      float64        `json:"distance_km"`
	DurationMinutes int            `json:"duration_minutes"`
	TargetPace      float64        `json:"target_pace"`
	PaceRange       [2]float64     `json:"pace_range"`
	TargetHR        float64        `json:"target_hr"`
	HRRange         [2]float64     `json:"hr_range"`
	Intervals       *IntervalSpec  `json:"intervals,omitempty"`
	WarmupKm        float64        `json:"warmup_km,omitempty"`
	CooldownKm      float64        `json:"cooldown_km,omitempty"`
	Zones           []int          `json:"zones,omitempty"`
	Blocks          []WorkoutBlock `json:"blocks,omitempty"`
	ProjectedACWR   float64        `json:"projected_acwr"`
}

// WorkoutAssignment is a prescription scheduled for a given day
type WorkoutAssignment struct {
	ID              string           `json:"id"`
	AthleteID       string           `json:"athlete_id"`
	ScheduledDate   time.Time        `json:"scheduled_date"`
	Status          AssignmentStatus `json:"status"`
	Prescription    Prescription     `json:"prescription"`
	ExpectedLoad    float64          `json:"expected_load"`
	Rationale       string           `json:"rationale"`
	CompletionNotes string           `json:"completion_notes,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// PerformanceLabel grades a completed workout against its prescription
type PerformanceLabel string

const (
	LabelBest       PerformanceLabel = "BEST"
	LabelGreat      PerformanceLabel = "GREAT"
	LabelGood       PerformanceLabel = "GOOD"
	LabelFair       PerformanceLabel = "FAIR"
	LabelPoor       PerformanceLabel = "POOR"
	LabelIncomplete PerformanceLabel = "INCOMPLETE"
)

// FatigueLevel is derived from within-session pace fade
type FatigueLevel string

const (
	FatigueLow      FatigueLevel = "low"
	FatigueModerate FatigueLevel = "moderate"
	FatigueHigh     FatigueLevel = "high"
)

// DimensionScores holds the per-dimension and combined assessment scores
type DimensionScores struct {
	Distance float64 `json:"distance"`
	Pace     float64 `json:"pace"`
	HR       float64 `json:"hr"`
	Overall  float64 `json:"overall"`
}

// WorkoutResult is the assessed outcome of a completed activity
type WorkoutResult struct {
	ID                  string           `json:"id"`
	AssignmentID        *string          `json:"assignment_id,omitempty"`
	AthleteID           string           `json:"athlete_id"`
	SourceActivityID    string           `json:"source_activity_id"`
	DistanceKm          float64          `json:"distance_km"`
	DurationSeconds     int              `json:"duration_seconds"`
	AvgPace             float64          `json:"avg_pace"`
	AvgHR               *float64         `json:"avg_hr,omitempty"`
	MaxHR               *float64         `json:"max_hr,omitempty"`
	Splits              []Split          `json:"splits,omitempty"`
	CompletedFull       bool             `json:"completed_full"`
	StoppedAtKm         *float64         `json:"stopped_at_km,omitempty"`
	Label               PerformanceLabel `json:"label"`
	Scores              DimensionScores  `json:"scores"`
	AbilityChange       float64          `json:"ability_change"`
	ReadyForProgression bool             `json:"ready_for_progression"`
	Fatigue             FatigueLevel     `json:"fatigue"`
	InjuryIndicators    []string         `json:"injury_indicators,omitempty"`
	CreatedAt           time.Time        `json:"created_at"`
}

// AbilitySnapshot is the athlete's ability after applying a result
type AbilitySnapshot struct {
	EasyPace     float64 `json:"easy_pace"`
	TempoPace    float64 `json:"tempo_pace"`
	IntervalPace float64 `json:"interval_pace"`
	MaxHR        float64 `json:"max_hr"`
	ThresholdHR  float64 `json:"threshold_hr"`
	AerobicHR    float64 `json:"aerobic_hr"`
}

// AbilityProgression ties a result to its ability delta
type AbilityProgression struct {
	ID        string          `json:"id"`
	AthleteID string          `json:"athlete_id"`
	ResultID  string          `json:"result_id"`
	Delta     float64         `json:"delta"`
	Snapshot  AbilitySnapshot `json:"snapshot"`
	CreatedAt time.Time       `json:"created_at"`
}

// ProviderToken represents OAuth tokens for an athlete's provider account
type ProviderToken struct {
	AthleteID    string
	Provider     string
	ProviderID   int64
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}
