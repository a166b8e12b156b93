package analysis

import (
	"math"
	"sort"
	"time"

	"aisri/internal/store"
)

// HRZones represents athlete's heart rate zones
type HRZones struct {
	RestingHR float64
	MaxHR     float64
}

// DefaultZones returns sensible defaults if not configured
func DefaultZones() HRZones {
	return HRZones{
		RestingHR: 50,
		MaxHR:     185,
	}
}

// ZonesFor returns the athlete's zones, falling back to defaults
func ZonesFor(a *store.Athlete) HRZones {
	z := DefaultZones()
	if a.RestingHR > 0 {
		z.RestingHR = a.RestingHR
	}
	if a.MaxHR > 0 {
		z.MaxHR = a.MaxHR
	}
	return z
}

// TRIMP calculates Training Impulse (Banister model)
// TRIMP = duration (min) * ΔHR ratio * e^(b * ΔHR ratio)
// where b = 1.92 for men, 1.67 for women
func TRIMP(activity store.Activity, zones HRZones, sex string) float64 {
	if !activity.HasHeartrate() {
		return 0
	}
	duration := float64(activity.MovingTime) / 60.0

	hrReserve := zones.MaxHR - zones.RestingHR
	if hrReserve <= 0 {
		return 0
	}
	hrRatio := clampFloat((*activity.AverageHeartrate-zones.RestingHR)/hrReserve, 0, 1)

	b := 1.92
	if sex == "F" || sex == "female" {
		b = 1.67
	}
	return duration * hrRatio * math.Exp(b*hrRatio)
}

// IntensityFactor is the load multiplier per kilometre for a workout type
func IntensityFactor(t store.WorkoutType) float64 {
	switch t {
	case store.WorkoutLong:
		return 1.2
	case store.WorkoutTempo, store.WorkoutThreshold:
		return 1.8
	case store.WorkoutInterval, store.WorkoutSpeed, store.WorkoutVO2Max, store.WorkoutHard, store.WorkoutRace:
		return 2.0
	case store.WorkoutStrength, store.WorkoutMobility, store.WorkoutActivation:
		return 0.8
	default:
		return 1.0
	}
}

// EstimateLoad returns distance_km × intensity factor
func EstimateLoad(t store.WorkoutType, km float64) float64 {
	return km * IntensityFactor(t)
}

// ActivityLoad returns the training load of a completed run, 0 for other sports
func ActivityLoad(a store.Activity) float64 {
	if !a.IsRun() {
		return 0
	}
	return EstimateLoad(a.WorkoutType, a.DistanceKm())
}

// DailyLoads returns one summed load per calendar day for the n days ending on
// now's day, oldest first. Days are taken in now's location.
func DailyLoads(activities []store.Activity, now time.Time, n int) []float64 {
	loads := make([]float64, n)
	today := dayStart(now)
	for _, a := range activities {
		idx := n - 1 - daysBetween(dayStart(a.StartDate.In(now.Location())), today)
		if idx < 0 || idx >= n {
			continue
		}
		loads[idx] += ActivityLoad(a)
	}
	return loads
}

// ACWR is the acute:chronic workload ratio
type ACWR struct {
	Acute   float64 `json:"acute"`   // load over the last 7 days
	Chronic float64 `json:"chronic"` // mean weekly load over the last 4 weeks
	Ratio   float64 `json:"ratio"`
}

// ComputeACWR sums the last 7 days of load against the mean weekly load of
// the last 28 days. Ratio is 1.0 when there is no chronic load.
func ComputeACWR(activities []store.Activity, now time.Time) ACWR {
	loads := DailyLoads(activities, now, 28)
	var acute, total float64
	for i, l := range loads {
		total += l
		if i >= 21 {
			acute += l
		}
	}
	return newACWR(acute, total/4)
}

// Project returns the ratio after adding load to the current day
func (a ACWR) Project(load float64) float64 {
	return newACWR(a.Acute+load, a.Chronic+load/4).Ratio
}

func newACWR(acute, chronic float64) ACWR {
	r := ACWR{Acute: acute, Chronic: chronic, Ratio: 1.0}
	if chronic > 0 {
		r.Ratio = acute / chronic
	}
	return r
}

// DailyLoad represents training load for a single day
type DailyLoad struct {
	Date  time.Time
	TRIMP float64
}

// TRIMPLoads converts activities to per-activity TRIMP entries
func TRIMPLoads(activities []store.Activity, zones HRZones, sex string) []DailyLoad {
	out := make([]DailyLoad, 0, len(activities))
	for _, a := range activities {
		out = append(out, DailyLoad{Date: a.StartDate, TRIMP: TRIMP(a, zones, sex)})
	}
	return out
}

// FitnessMetrics represents CTL/ATL/TSB for a day
type FitnessMetrics struct {
	Date time.Time `json:"date"`
	CTL  float64   `json:"ctl"` // Chronic Training Load (42-day EMA) - "Fitness"
	ATL  float64   `json:"atl"` // Acute Training Load (7-day EMA) - "Fatigue"
	TSB  float64   `json:"tsb"` // Training Stress Balance (CTL - ATL) - "Form"
}

// CalculateFitnessTrend computes CTL/ATL/TSB from daily loads
func CalculateFitnessTrend(dailyLoads []DailyLoad) []FitnessMetrics {
	if len(dailyLoads) == 0 {
		return nil
	}

	sorted := make([]DailyLoad, len(dailyLoads))
	copy(sorted, dailyLoads)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	// EMA decay constants
	ctlDecay := 2.0 / (42.0 + 1.0)
	atlDecay := 2.0 / (7.0 + 1.0)

	// Sum multiple activities on the same day
	loadMap := make(map[string]float64)
	for _, dl := range sorted {
		loadMap[dl.Date.Format("2006-01-02")] += dl.TRIMP
	}

	startDate := dayStart(sorted[0].Date)
	endDate := dayStart(sorted[len(sorted)-1].Date)

	var metrics []FitnessMetrics
	var ctl, atl float64
	for d := startDate; !d.After(endDate); d = d.AddDate(0, 0, 1) {
		trimp := loadMap[d.Format("2006-01-02")]

		ctl = ctl + ctlDecay*(trimp-ctl)
		atl = atl + atlDecay*(trimp-atl)

		metrics = append(metrics, FitnessMetrics{
			Date: d,
			CTL:  ctl,
			ATL:  atl,
			TSB:  ctl - atl,
		})
	}

	return metrics
}

// GetCurrentFitness returns the most recent CTL/ATL/TSB values
func GetCurrentFitness(dailyLoads []DailyLoad) FitnessMetrics {
	metrics := CalculateFitnessTrend(dailyLoads)
	if len(metrics) == 0 {
		return FitnessMetrics{}
	}
	return metrics[len(metrics)-1]
}

// FormDescription returns a human-readable description of TSB
func FormDescription(tsb float64) string {
	switch {
	case tsb > 25:
		return "Very fresh (possibly detrained)"
	case tsb > 10:
		return "Fresh and ready to race"
	case tsb > 0:
		return "Neutral - good for training"
	case tsb > -10:
		return "Slightly fatigued"
	case tsb > -25:
		return "Tired but building fitness"
	default:
		return "Very fatigued - rest needed"
	}
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// daysBetween counts calendar days from a to b, both at day start
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	au := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	bu := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(bu.Sub(au).Hours() / 24)
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stdev is the population standard deviation
func stdev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	var sq float64
	for _, x := range xs {
		sq += (x - m) * (x - m)
	}
	return math.Sqrt(sq / float64(len(xs)))
}
