package normalize

import (
	"regexp"

	"aisri/internal/analysis"
	"aisri/internal/store"
)

// longRunKm is the distance above which an unlabelled run counts as long
const longRunKm = 16.0

// intervalPaceCV is the split pace coefficient of variation above which a run
// counts as intervals
const intervalPaceCV = 0.15

var nameRules = []struct {
	re *regexp.Regexp
	wt store.WorkoutType
}{
	{regexp.MustCompile(`(?i)\b(easy|recovery|shake)`), store.WorkoutEasy},
	{regexp.MustCompile(`(?i)\b(tempo|threshold|marathon pace)`), store.WorkoutTempo},
	{regexp.MustCompile(`(?i)\b(interval|repeat|speed|track|fartlek)`), store.WorkoutInterval},
	{regexp.MustCompile(`(?i)\b(long|lsd|endurance)`), store.WorkoutLong},
}

// InferWorkoutType classifies an activity from its name, distance and split
// variability, in that order.
func InferWorkoutType(a *store.Activity) store.WorkoutType {
	for _, r := range nameRules {
		if r.re.MatchString(a.Name) {
			return r.wt
		}
	}
	if a.DistanceKm() > longRunKm {
		return store.WorkoutLong
	}
	if analysis.SplitPaceCV(a.Splits, 0) > intervalPaceCV {
		return store.WorkoutInterval
	}
	return store.WorkoutEasy
}
