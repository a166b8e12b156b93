package analysis

import "aisri/internal/store"

// PaceFade returns the percentage increase from the first-half to the
// second-half mean split pace. Positive means the runner slowed down.
// With an odd number of splits the middle one belongs to the second half.
func PaceFade(splits []store.Split) float64 {
	if len(splits) < 2 {
		return 0
	}

	mid := len(splits) / 2
	first := meanSplitPace(splits[:mid])
	second := meanSplitPace(splits[mid:])
	if first == 0 || second == 0 {
		return 0
	}
	return (second/first - 1) * 100
}

// SplitDecoupling calculates the pace:HR drift between the first and second
// half of the splits. < 5% on long runs indicates good aerobic base.
// Returns 0 when fewer than 4 splits carry heart rate.
func SplitDecoupling(splits []store.Split) float64 {
	var withHR []store.Split
	for _, s := range splits {
		if s.Heartrate != nil && *s.Heartrate > 80 && s.Pace > 0 {
			withHR = append(withHR, s)
		}
	}
	if len(withHR) < 4 {
		return 0
	}

	mid := len(withHR) / 2
	firstEF := halfEF(withHR[:mid])
	secondEF := halfEF(withHR[mid:])
	if firstEF == 0 || secondEF == 0 {
		return 0
	}

	// Positive decoupling = second half less efficient (worse)
	return (firstEF/secondEF - 1) * 100
}

// halfEF is speed (m/s) per heartbeat over a run of splits
func halfEF(splits []store.Split) float64 {
	var speed, hr float64
	for _, s := range splits {
		speed += 1000 / s.Pace
		hr += *s.Heartrate
	}
	if hr == 0 {
		return 0
	}
	return speed / hr
}

func meanSplitPace(splits []store.Split) float64 {
	var sum float64
	var n int
	for _, s := range splits {
		if s.Pace > 0 {
			sum += s.Pace
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// SplitPaceCV is the coefficient of variation of the first n split paces,
// or of every split when n <= 0.
func SplitPaceCV(splits []store.Split, n int) float64 {
	if n <= 0 || n > len(splits) {
		n = len(splits)
	}
	paces := make([]float64, 0, n)
	for _, s := range splits[:n] {
		if s.Pace > 0 {
			paces = append(paces, s.Pace)
		}
	}
	m := mean(paces)
	if len(paces) < 2 || m == 0 {
		return 0
	}
	return stdev(paces) / m
}
