package analysis

import (
	"math"
	"testing"
	"time"

	"aisri/internal/store"
)

func TestDefaultZones(t *testing.T) {
	zones := DefaultZones()

	if zones.RestingHR != 50 {
		t.Errorf("DefaultZones().RestingHR = %v, want 50", zones.RestingHR)
	}
	if zones.MaxHR != 185 {
		t.Errorf("DefaultZones().MaxHR = %v, want 185", zones.MaxHR)
	}
}

func TestZonesFor(t *testing.T) {
	z := ZonesFor(&store.Athlete{MaxHR: 192})
	if z.MaxHR != 192 || z.RestingHR != 50 {
		t.Errorf("ZonesFor() = %+v, want max 192 resting 50", z)
	}
}

func TestTRIMP(t *testing.T) {
	defaultZones := DefaultZones()

	tests := []struct {
		name     string
		activity store.Activity
		zones    HRZones
		sex      string
		expected float64
		delta    float64
	}{
		{
			name:     "one hour at 150",
			activity: store.Activity{MovingTime: 3600, AverageHeartrate: floatPtr(150)},
			zones:    defaultZones,
			// hrRatio = (150-50)/(185-50) = 0.741
			expected: 184.3,
			delta:    1,
		},
		{
			name:     "female coefficient",
			activity: store.Activity{MovingTime: 3600, AverageHeartrate: floatPtr(150)},
			zones:    defaultZones,
			sex:      "F",
			expected: 153.2,
			delta:    1,
		},
		{
			name:     "no HR data available",
			activity: store.Activity{MovingTime: 3600},
			zones:    defaultZones,
		},
		{
			name:     "zero HR reserve",
			activity: store.Activity{MovingTime: 3600, AverageHeartrate: floatPtr(150)},
			zones:    HRZones{RestingHR: 100, MaxHR: 100},
		},
		{
			name:     "HR below resting - clamped to 0",
			activity: store.Activity{MovingTime: 3600, AverageHeartrate: floatPtr(40)},
			zones:    defaultZones,
		},
		{
			name:     "HR above max - clamped to 1",
			activity: store.Activity{MovingTime: 3600, AverageHeartrate: floatPtr(200)},
			zones:    defaultZones,
			// TRIMP = 60 * 1.0 * e^1.92
			expected: 409,
			delta:    2,
		},
		{
			name:     "long hard run",
			activity: store.Activity{MovingTime: 7200, AverageHeartrate: floatPtr(165)},
			zones:    defaultZones,
			expected: 525,
			delta:    5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := TRIMP(tt.activity, tt.zones, tt.sex)
			if math.Abs(result-tt.expected) > tt.delta {
				t.Errorf("TRIMP() = %v, want %v (±%v)", result, tt.expected, tt.delta)
			}
		})
	}
}

func TestIntensityFactor(t *testing.T) {
	tests := []struct {
		wt       store.WorkoutType
		expected float64
	}{
		{store.WorkoutEasy, 1.0},
		{store.WorkoutRecovery, 1.0},
		{store.WorkoutLong, 1.2},
		{store.WorkoutTempo, 1.8},
		{store.WorkoutThreshold, 1.8},
		{store.WorkoutInterval, 2.0},
		{store.WorkoutStrength, 0.8},
		{store.WorkoutMobility, 0.8},
	}

	for _, tt := range tests {
		t.Run(string(tt.wt), func(t *testing.T) {
			if got := IntensityFactor(tt.wt); got != tt.expected {
				t.Errorf("IntensityFactor(%s) = %v, want %v", tt.wt, got, tt.expected)
			}
		})
	}

	if got := EstimateLoad(store.WorkoutTempo, 10); math.Abs(got-18) > 1e-9 {
		t.Errorf("EstimateLoad(tempo, 10) = %v, want 18", got)
	}
}

func TestDailyLoads(t *testing.T) {
	ride := run(0, 40, store.WorkoutEasy)
	ride.Type = "Ride"

	activities := []store.Activity{
		run(0, 10, store.WorkoutEasy),
		run(1, 8, store.WorkoutTempo),
		run(1, 2, store.WorkoutRecovery),
		run(30, 20, store.WorkoutLong),
		ride,
	}

	loads := DailyLoads(activities, testNow, 7)
	if len(loads) != 7 {
		t.Fatalf("len(loads) = %d, want 7", len(loads))
	}
	if math.Abs(loads[6]-10) > 1e-9 {
		t.Errorf("today = %v, want 10 (rides excluded)", loads[6])
	}
	if math.Abs(loads[5]-16.4) > 1e-9 {
		t.Errorf("yesterday = %v, want 16.4", loads[5])
	}
	for i := 0; i < 5; i++ {
		if loads[i] != 0 {
			t.Errorf("loads[%d] = %v, want 0", i, loads[i])
		}
	}
}

func TestComputeACWR(t *testing.T) {
	tests := []struct {
		name       string
		activities []store.Activity
		acute      float64
		chronic    float64
		ratio      float64
	}{
		{
			name:  "no history",
			ratio: 1.0,
		},
		{
			name: "load spike",
			// 60 km this week, 40 km over the three weeks before: mean weekly 25
			activities: []store.Activity{
				run(1, 20, store.WorkoutEasy),
				run(3, 20, store.WorkoutEasy),
				run(5, 20, store.WorkoutEasy),
				run(10, 20, store.WorkoutEasy),
				run(17, 20, store.WorkoutEasy),
			},
			acute:   60,
			chronic: 25,
			ratio:   2.4,
		},
		{
			name: "steady weeks",
			activities: []store.Activity{
				run(2, 10, store.WorkoutEasy),
				run(9, 10, store.WorkoutEasy),
				run(16, 10, store.WorkoutEasy),
				run(23, 10, store.WorkoutEasy),
			},
			acute:   10,
			chronic: 10,
			ratio:   1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeACWR(tt.activities, testNow)
			if math.Abs(got.Acute-tt.acute) > 1e-9 || math.Abs(got.Chronic-tt.chronic) > 1e-9 {
				t.Errorf("ComputeACWR() = %+v, want acute %v chronic %v", got, tt.acute, tt.chronic)
			}
			if math.Abs(got.Ratio-tt.ratio) > 1e-9 {
				t.Errorf("Ratio = %v, want %v", got.Ratio, tt.ratio)
			}
		})
	}
}

func TestACWRProject(t *testing.T) {
	a := ACWR{Acute: 60, Chronic: 25, Ratio: 2.4}
	// (60+10) / (25+2.5)
	if got := a.Project(10); math.Abs(got-70/27.5) > 1e-9 {
		t.Errorf("Project(10) = %v, want %v", got, 70/27.5)
	}
	if got := (ACWR{}).Project(0); got != 1.0 {
		t.Errorf("Project on empty = %v, want 1.0", got)
	}
}

func TestCalculateFitnessTrend(t *testing.T) {
	baseDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		dailyLoads []DailyLoad
		checkFn    func(t *testing.T, metrics []FitnessMetrics)
	}{
		{
			name:       "empty daily loads",
			dailyLoads: []DailyLoad{},
			checkFn: func(t *testing.T, metrics []FitnessMetrics) {
				if metrics != nil {
					t.Errorf("expected nil, got %v", metrics)
				}
			},
		},
		{
			name:       "single day load",
			dailyLoads: []DailyLoad{{Date: baseDate, TRIMP: 100}},
			checkFn: func(t *testing.T, metrics []FitnessMetrics) {
				if len(metrics) != 1 {
					t.Fatalf("expected 1 metric, got %d", len(metrics))
				}
				// CTL = 2/43 * 100, ATL = 2/8 * 100
				if math.Abs(metrics[0].CTL-4.65) > 0.5 {
					t.Errorf("CTL = %v, want ~4.65", metrics[0].CTL)
				}
				if math.Abs(metrics[0].ATL-25) > 0.5 {
					t.Errorf("ATL = %v, want ~25", metrics[0].ATL)
				}
			},
		},
		{
			name: "gap in training - fills missing days",
			dailyLoads: []DailyLoad{
				{Date: baseDate, TRIMP: 100},
				{Date: baseDate.AddDate(0, 0, 5), TRIMP: 100},
			},
			checkFn: func(t *testing.T, metrics []FitnessMetrics) {
				if len(metrics) != 6 {
					t.Fatalf("expected 6 metrics (filling gaps), got %d", len(metrics))
				}
				if metrics[4].CTL >= metrics[0].CTL {
					t.Errorf("CTL should decay during rest: day 0 CTL=%v, day 4 CTL=%v",
						metrics[0].CTL, metrics[4].CTL)
				}
			},
		},
		{
			name: "multiple activities same day - sums TRIMP",
			dailyLoads: []DailyLoad{
				{Date: baseDate, TRIMP: 50},
				{Date: baseDate, TRIMP: 50},
			},
			checkFn: func(t *testing.T, metrics []FitnessMetrics) {
				single := CalculateFitnessTrend([]DailyLoad{{Date: baseDate, TRIMP: 100}})
				if len(metrics) != 1 || math.Abs(metrics[0].CTL-single[0].CTL) > 0.01 {
					t.Errorf("split loads = %+v, want CTL %v", metrics, single[0].CTL)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.checkFn(t, CalculateFitnessTrend(tt.dailyLoads))
		})
	}
}

func TestGetCurrentFitness(t *testing.T) {
	acts := []store.Activity{
		{StartDate: testNow.AddDate(0, 0, -2), MovingTime: 3600, AverageHeartrate: floatPtr(150)},
		{StartDate: testNow, MovingTime: 1800, AverageHeartrate: floatPtr(140)},
	}
	m := GetCurrentFitness(TRIMPLoads(acts, DefaultZones(), ""))
	if !m.Date.Equal(dayStart(testNow)) {
		t.Errorf("Date = %v, want %v", m.Date, dayStart(testNow))
	}
	if m.CTL <= 0 || m.ATL <= m.CTL {
		t.Errorf("unexpected metrics %+v", m)
	}

	if empty := GetCurrentFitness(nil); empty.CTL != 0 || empty.ATL != 0 {
		t.Errorf("GetCurrentFitness(nil) = %+v, want zero", empty)
	}
}

func TestFormDescription(t *testing.T) {
	tests := []struct {
		tsb      float64
		expected string
	}{
		{30, "Very fresh (possibly detrained)"},
		{25, "Fresh and ready to race"},
		{10.1, "Fresh and ready to race"},
		{10, "Neutral - good for training"},
		{0, "Slightly fatigued"},
		{-10, "Tired but building fitness"},
		{-25, "Very fatigued - rest needed"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			result := FormDescription(tt.tsb)
			if result != tt.expected {
				t.Errorf("FormDescription(%v) = %q, want %q", tt.tsb, result, tt.expected)
			}
		})
	}
}
