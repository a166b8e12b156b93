package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"aisri/internal/store"
	"aisri/internal/strava"
)

func decodeStrava(payload []byte) (*store.Activity, error) {
	var sa strava.Activity
	if err := decodeJSON(ProviderStrava, payload, &sa); err != nil {
		return nil, err
	}
	return FromStrava(sa), nil
}

// FromStrava converts an already decoded Strava API activity. The result is
// not validated; Normalise does that.
func FromStrava(sa strava.Activity) *store.Activity {
	a := &store.Activity{
		ID:                 fmt.Sprintf("%s:%d", ProviderStrava, sa.ID),
		Provider:           ProviderStrava,
		Name:               sa.Name,
		Type:               sa.Type,
		Timezone:           sa.Timezone,
		Distance:           sa.Distance,
		MovingTime:         sa.MovingTime,
		ElapsedTime:        sa.ElapsedTime,
		TotalElevationGain: sa.TotalElevationGain,
		AverageSpeed:       sa.AverageSpeed,
		AverageHeartrate:   sa.AverageHeartrate,
		MaxHeartrate:       sa.MaxHeartrate,
		AverageCadence:     sa.AverageCadence,
		SufferScore:        sa.SufferScore,
	}
	if a.Type == "" {
		a.Type = sa.SportType
	}
	if a.MovingTime == 0 {
		a.MovingTime = sa.ElapsedTime
	}
	if !sa.StartDate.IsZero() {
		a.StartDate = sa.StartDate.In(time.FixedZone("", int(sa.UTCOffset)))
	}

	for _, s := range sa.SplitsMetric {
		if s.Distance <= 0 {
			continue
		}
		a.Splits = append(a.Splits, store.Split{
			Index:     s.Split,
			Pace:      float64(s.MovingTime) / (s.Distance / 1000),
			Heartrate: s.AverageHeartrate,
		})
	}
	return a
}

// garminActivity is the Garmin Connect activity summary
type garminActivity struct {
	ActivityID     int64    `json:"activityId"`
	ActivityName   string   `json:"activityName"`
	StartTimeGMT   string   `json:"startTimeGMT"`
	StartTimeLocal string   `json:"startTimeLocal"`
	Distance       float64  `json:"distance"`       // meters
	Duration       float64  `json:"duration"`       // seconds
	MovingDuration float64  `json:"movingDuration"` // seconds
	ElevationGain  float64  `json:"elevationGain"`
	AverageHR      *float64 `json:"averageHR"`
	MaxHR          *float64 `json:"maxHR"`
	AverageCadence *float64 `json:"averageRunningCadenceInStepsPerMinute"`
	ActivityType   struct {
		TypeKey string `json:"typeKey"`
	} `json:"activityType"`
}

const garminTimeLayout = "2006-01-02 15:04:05"

var garminTypes = map[string]string{
	"running":             "Run",
	"street_running":      "Run",
	"treadmill_running":   "Run",
	"track_running":       "Run",
	"trail_running":       "TrailRun",
	"virtual_run":         "VirtualRun",
	"cycling":             "Ride",
	"road_biking":         "Ride",
	"mountain_biking":     "Ride",
	"indoor_cycling":      "Ride",
	"lap_swimming":        "Swim",
	"open_water_swimming": "Swim",
	"walking":             "Walk",
	"hiking":              "Hike",
	"strength_training":   "WeightTraining",
	"yoga":                "Yoga",
}

func decodeGarmin(payload []byte) (*store.Activity, error) {
	var ga garminActivity
	if err := decodeJSON(ProviderGarmin, payload, &ga); err != nil {
		return nil, err
	}

	a := &store.Activity{
		ID:                 fmt.Sprintf("%s:%d", ProviderGarmin, ga.ActivityID),
		Provider:           ProviderGarmin,
		Name:               ga.ActivityName,
		Type:               garminType(ga.ActivityType.TypeKey),
		Distance:           ga.Distance,
		MovingTime:         int(ga.MovingDuration),
		ElapsedTime:        int(ga.Duration),
		TotalElevationGain: ga.ElevationGain,
		AverageHeartrate:   ga.AverageHR,
		MaxHeartrate:       ga.MaxHR,
		AverageCadence:     ga.AverageCadence,
	}
	if a.MovingTime == 0 {
		a.MovingTime = int(ga.Duration)
	}

	if ga.StartTimeGMT != "" {
		start, err := time.Parse(garminTimeLayout, ga.StartTimeGMT)
		if err != nil {
			return nil, invalid(ProviderGarmin, "startTimeGMT %q: %v", ga.StartTimeGMT, err)
		}
		offset := 0
		if local, err := time.Parse(garminTimeLayout, ga.StartTimeLocal); err == nil {
			offset = int(local.Sub(start).Seconds())
		}
		a.StartDate = start.In(time.FixedZone("", offset))
	}
	return a, nil
}

func garminType(key string) string {
	if t, ok := garminTypes[key]; ok {
		return t
	}
	if strings.Contains(key, "running") {
		return "Run"
	}
	if key == "" {
		return "Run"
	}
	return "Workout"
}

// manualActivity is the payload accepted for hand-entered activities
type manualActivity struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Type            string   `json:"type"`
	StartTime       string   `json:"start_time"` // RFC3339
	DistanceKm      float64  `json:"distance_km"`
	DurationMinutes float64  `json:"duration_minutes"`
	ElevationGainM  float64  `json:"elevation_gain_m"`
	AvgHR           *float64 `json:"avg_hr"`
	MaxHR           *float64 `json:"max_hr"`
	PerceivedEffort *int     `json:"perceived_effort"`
	Splits          []struct {
		Km   int      `json:"km"`
		Pace float64  `json:"pace"`
		HR   *float64 `json:"hr"`
	} `json:"splits"`
}

func decodeManual(payload []byte) (*store.Activity, error) {
	var ma manualActivity
	if err := decodeJSON(ProviderManual, payload, &ma); err != nil {
		return nil, err
	}

	id := ma.ID
	if id == "" {
		id = uuid.NewString()
	}
	a := &store.Activity{
		ID:                 ProviderManual + ":" + id,
		Provider:           ProviderManual,
		Name:               ma.Name,
		Type:               ma.Type,
		Distance:           ma.DistanceKm * 1000,
		MovingTime:         int(ma.DurationMinutes * 60),
		TotalElevationGain: ma.ElevationGainM,
		AverageHeartrate:   ma.AvgHR,
		MaxHeartrate:       ma.MaxHR,
	}
	if ma.PerceivedEffort != nil {
		// RPE 1-10 scaled onto the suffer-score range used by the intensity pillar
		score := *ma.PerceivedEffort * 20
		a.SufferScore = &score
	}
	if ma.StartTime != "" {
		start, err := time.Parse(time.RFC3339, ma.StartTime)
		if err != nil {
			return nil, invalid(ProviderManual, "start_time %q: %v", ma.StartTime, err)
		}
		a.StartDate = start
	}
	for _, s := range ma.Splits {
		a.Splits = append(a.Splits, store.Split{Index: s.Km, Pace: s.Pace, Heartrate: s.HR})
	}
	return a, nil
}
