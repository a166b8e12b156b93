package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"aisri/internal/analysis"
)

var faint = color.New(color.Faint)

func (a *App) success(format string, args ...any) {
	fmt.Fprintln(a.Out, color.GreenString("✓ "+format, args...))
}

func (a *App) warn(format string, args ...any) {
	fmt.Fprintln(a.Out, color.YellowString("⚠ "+format, args...))
}

func (a *App) fail(format string, args ...any) {
	fmt.Fprintln(a.Out, color.RedString("✗ "+format, args...))
}

// field prints an indented label and value
func (a *App) field(label string, format string, args ...any) {
	fmt.Fprintf(a.Out, "  %s %s\n", faint.Sprintf("%-16s", label), fmt.Sprintf(format, args...))
}

// formatPace renders seconds per km as m:ss/km
func formatPace(secPerKm float64) string {
	if secPerKm <= 0 {
		return "-"
	}
	total := int(secPerKm + 0.5)
	return fmt.Sprintf("%d:%02d/km", total/60, total%60)
}

// parsePace reads "m:ss" or plain seconds into seconds per km
func parsePace(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	mins, secs, found := strings.Cut(s, ":")
	if !found {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("invalid pace %q", s)
		}
		return v, nil
	}
	m, err := strconv.Atoi(mins)
	if err != nil || m < 0 {
		return 0, fmt.Errorf("invalid pace %q", s)
	}
	sec, err := strconv.Atoi(secs)
	if err != nil || sec < 0 || sec >= 60 || len(secs) != 2 {
		return 0, fmt.Errorf("invalid pace %q", s)
	}
	return float64(m*60 + sec), nil
}

// raceDistances maps race names accepted by --race to meters
var raceDistances = map[string]float64{
	"5k":       analysis.Distance5K,
	"10k":      analysis.Distance10K,
	"half":     analysis.DistanceHalfMarathon,
	"marathon": analysis.DistanceMarathon,
}

// parseRace reads "<distance>=<time>" such as "10k=45:30" or "half=1:38:00"
func parseRace(s string) (float64, int, error) {
	name, clock, ok := strings.Cut(s, "=")
	if !ok {
		return 0, 0, fmt.Errorf("race %q must look like 10k=45:30", s)
	}
	meters, ok := raceDistances[strings.ToLower(name)]
	if !ok {
		return 0, 0, fmt.Errorf("unknown race distance %q (5k, 10k, half, marathon)", name)
	}
	var total int
	parts := strings.Split(clock, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, fmt.Errorf("race time %q must be m:ss or h:mm:ss", clock)
	}
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || (i > 0 && (n >= 60 || len(p) != 2)) {
			return 0, 0, fmt.Errorf("race time %q must be m:ss or h:mm:ss", clock)
		}
		total = total*60 + n
	}
	if total == 0 {
		return 0, 0, fmt.Errorf("race time %q must be positive", clock)
	}
	return meters, total, nil
}

// scoreColor highlights a 0..100 readiness score by band
func scoreColor(score int) string {
	switch {
	case score >= 70:
		return color.GreenString("%d", score)
	case score >= 55:
		return color.YellowString("%d", score)
	default:
		return color.RedString("%d", score)
	}
}
