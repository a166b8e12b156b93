package strava

import "time"

// Activity represents a Strava activity from the API. The detailed endpoint
// also fills SplitsMetric.
type Activity struct {
	ID                 int64     `json:"id"`
	Athlete            Athlete   `json:"athlete"`
	Name               string    `json:"name"`
	Type               string    `json:"type"`
	SportType          string    `json:"sport_type"`
	StartDate          time.Time `json:"start_date"`
	Timezone           string    `json:"timezone"`
	UTCOffset          float64   `json:"utc_offset"`           // seconds
	Distance           float64   `json:"distance"`             // meters
	MovingTime         int       `json:"moving_time"`          // seconds
	ElapsedTime        int       `json:"elapsed_time"`         // seconds
	TotalElevationGain float64   `json:"total_elevation_gain"` // meters
	AverageSpeed       float64   `json:"average_speed"`        // m/s
	MaxSpeed           float64   `json:"max_speed"`            // m/s
	AverageHeartrate   *float64  `json:"average_heartrate"`    // bpm
	MaxHeartrate       *float64  `json:"max_heartrate"`        // bpm
	AverageCadence     *float64  `json:"average_cadence"`      // spm
	SufferScore        *int      `json:"suffer_score"`
	HasHeartrate       bool      `json:"has_heartrate"`
	SplitsMetric       []Split   `json:"splits_metric,omitempty"`
}

// Athlete represents a Strava athlete (minimal info in activity response)
type Athlete struct {
	ID int64 `json:"id"`
}

// Split is one kilometre of a detailed activity
type Split struct {
	Split            int      `json:"split"`
	Distance         float64  `json:"distance"`
	ElapsedTime      int      `json:"elapsed_time"`
	MovingTime       int      `json:"moving_time"`
	AverageSpeed     float64  `json:"average_speed"`
	AverageHeartrate *float64 `json:"average_heartrate"`
}

// WebhookEvent is the push subscription payload
type WebhookEvent struct {
	ObjectType     string            `json:"object_type"` // activity or athlete
	ObjectID       int64             `json:"object_id"`
	AspectType     string            `json:"aspect_type"` // create, update, delete
	OwnerID        int64             `json:"owner_id"`
	SubscriptionID int64             `json:"subscription_id"`
	EventTime      int64             `json:"event_time"`
	Updates        map[string]string `json:"updates,omitempty"`
}

// IsActivityCreate reports whether the event announces a new activity
func (e WebhookEvent) IsActivityCreate() bool {
	return e.ObjectType == "activity" && e.AspectType == "create"
}
