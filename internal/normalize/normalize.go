// Package normalize converts provider activity payloads into store.Activity
// records and classifies the workout they represent.
package normalize

import (
	"encoding/json"
	"fmt"
	"strings"

	"aisri/internal/store"
)

// Provider tags accepted by Normalise
const (
	ProviderStrava = "strava"
	ProviderGarmin = "garmin"
	ProviderManual = "manual"
)

// NormalisationError reports a payload that cannot become an Activity
type NormalisationError struct {
	Provider string
	Reason   string
}

func (e *NormalisationError) Error() string {
	return fmt.Sprintf("normalising %s activity: %s", e.Provider, e.Reason)
}

func (e *NormalisationError) Unwrap() error { return store.ErrInvalidInput }

func invalid(provider, format string, args ...any) error {
	return &NormalisationError{Provider: provider, Reason: fmt.Sprintf(format, args...)}
}

// Normalise decodes a provider payload into a canonical activity. The returned
// activity has no AthleteID; callers attach ownership.
func Normalise(provider string, payload []byte) (*store.Activity, error) {
	var (
		a   *store.Activity
		err error
	)
	switch strings.ToLower(provider) {
	case ProviderStrava:
		a, err = decodeStrava(payload)
	case ProviderGarmin:
		a, err = decodeGarmin(payload)
	case ProviderManual:
		a, err = decodeManual(payload)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", store.ErrInvalidInput, provider)
	}
	if err != nil {
		return nil, err
	}
	if err := Validate(a); err != nil {
		return nil, err
	}
	return a, nil
}

// Validate checks the common fields, drops malformed splits and infers the
// workout type. Normalise calls it; callers using FromStrava must too.
func Validate(a *store.Activity) error {
	switch {
	case a.StartDate.IsZero():
		return invalid(a.Provider, "missing start time")
	case a.Distance <= 0:
		return invalid(a.Provider, "distance must be positive, got %.1f m", a.Distance)
	case a.MovingTime <= 0:
		return invalid(a.Provider, "duration must be positive, got %d s", a.MovingTime)
	}
	if a.ElapsedTime < a.MovingTime {
		a.ElapsedTime = a.MovingTime
	}
	if a.AverageSpeed == 0 {
		a.AverageSpeed = a.Distance / float64(a.MovingTime)
	}
	if a.Type == "" {
		a.Type = "Run"
	}

	if reason := checkSplits(a.Splits); reason != "" {
		a.Splits = nil
		a.Notes = append(a.Notes, "splits dropped: "+reason)
	}

	a.WorkoutType = InferWorkoutType(a)
	return nil
}

// checkSplits returns a reason when splits do not form an increasing km index from 1
func checkSplits(splits []store.Split) string {
	if len(splits) == 0 {
		return ""
	}
	if splits[0].Index != 1 {
		return fmt.Sprintf("first km index is %d, want 1", splits[0].Index)
	}
	for i, s := range splits {
		if i > 0 && s.Index <= splits[i-1].Index {
			return fmt.Sprintf("km index %d follows %d", s.Index, splits[i-1].Index)
		}
		if s.Pace <= 0 {
			return fmt.Sprintf("km %d has no pace", s.Index)
		}
	}
	return ""
}

func decodeJSON(provider string, payload []byte, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return invalid(provider, "malformed payload: %v", err)
	}
	return nil
}
