package analysis

import (
	"math"
)

// Standard race distances in meters
const (
	Distance5K           = 5000
	Distance10K          = 10000
	DistanceHalfMarathon = 21097.5
	DistanceMarathon     = 42195
)

// Training intensities as fractions of VDOT
const (
	easyFraction     = 0.70
	tempoFraction    = 0.88
	intervalFraction = 0.975
)

// TrainingPaces are the easy, tempo and interval paces in seconds per km
type TrainingPaces struct {
	Easy     float64 `json:"easy_pace"`
	Tempo    float64 `json:"tempo_pace"`
	Interval float64 `json:"interval_pace"`
}

// vo2Cost is the oxygen cost in ml/kg/min of running at v meters per minute
func vo2Cost(v float64) float64 {
	return -4.60 + 0.182258*v + 0.000104*v*v
}

// sustainedFraction is the share of VO2max held for a race lasting minutes
func sustainedFraction(minutes float64) float64 {
	return 0.8 + 0.1894393*math.Exp(-0.012778*minutes) + 0.2989558*math.Exp(-0.1932605*minutes)
}

// velocityFor inverts vo2Cost, returning meters per minute
func velocityFor(vo2 float64) float64 {
	const a, b = 0.000104, 0.182258
	c := -(4.60 + vo2)
	return (-b + math.Sqrt(b*b-4*a*c)) / (2 * a)
}

// CalculateVDOT derives VDOT from a race result, rounded to one decimal.
// Zero means the result is unusable.
func CalculateVDOT(distanceMeters float64, durationSeconds int) float64 {
	if distanceMeters <= 0 || durationSeconds <= 0 {
		return 0
	}
	minutes := float64(durationSeconds) / 60
	vdot := vo2Cost(distanceMeters/minutes) / sustainedFraction(minutes)
	return math.Round(vdot*10) / 10
}

// PredictTime returns the race time in seconds an athlete of the given VDOT
// should run over distanceMeters
func PredictTime(vdot, distanceMeters float64) int {
	if vdot <= 0 || distanceMeters <= 0 {
		return 0
	}
	// VDOT of a result falls as its time grows, so bisect on minutes
	lo, hi := 1.0, 24*60.0
	for range 60 {
		mid := (lo + hi) / 2
		v := vo2Cost(distanceMeters/mid) / sustainedFraction(mid)
		if v > vdot {
			lo = mid
		} else {
			hi = mid
		}
	}
	return int(math.Round((lo + hi) / 2 * 60))
}

// PacesForVDOT returns the training paces of an athlete with the given VDOT
func PacesForVDOT(vdot float64) TrainingPaces {
	if vdot <= 0 {
		return TrainingPaces{}
	}
	pace := func(fraction float64) float64 {
		return math.Round(60000 / velocityFor(fraction*vdot))
	}
	return TrainingPaces{
		Easy:     pace(easyFraction),
		Tempo:    pace(tempoFraction),
		Interval: pace(intervalFraction),
	}
}

// VDOTLabel names the fitness level of a VDOT value
func VDOTLabel(vdot float64) string {
	switch {
	case vdot >= 75:
		return "Elite"
	case vdot >= 65:
		return "Highly Competitive"
	case vdot >= 55:
		return "Competitive"
	case vdot >= 45:
		return "Advanced Recreational"
	case vdot >= 38:
		return "Intermediate"
	case vdot >= 30:
		return "Beginner"
	default:
		return "Novice"
	}
}
