// Package generator turns a cleared workout request into a concrete
// prescription: distance, pace and HR targets, structure and projected load.
package generator

import (
	"errors"
	"fmt"
	"math"

	"aisri/internal/analysis"
	"aisri/internal/store"
)

var (
	// ErrUnsupportedType is returned for workout types with no generator
	ErrUnsupportedType = errors.New("unsupported workout type")
	// ErrSpeedPermission is returned when a template needs speed clearance
	// the request does not carry
	ErrSpeedPermission = errors.New("speed permission required")
)

// Options are the tunable parts of the generator
type Options struct {
	EasyVolumeShare float64 // share of weekly volume in one easy run
	EasyMinKm       float64
	EasyMaxKm       float64
	LongMinKm       float64
	LongCapKm       map[store.TrainingPhase]float64
	Intervals       map[store.TrainingPhase]store.IntervalSpec
	TempoKm         map[store.TrainingPhase]float64
	ThresholdKm     float64
	RecoveryKm      float64
	WarmupKm        float64
	CooldownKm      float64
	StrengthMinutes map[store.TrainingPhase]int
	MobilityMinutes map[store.TrainingPhase]int
}

// DefaultOptions returns the standard prescription tables
func DefaultOptions() Options {
	return Options{
		EasyVolumeShare: 0.12,
		EasyMinKm:       5,
		EasyMaxKm:       15,
		LongMinKm:       8,
		LongCapKm: map[store.TrainingPhase]float64{
			store.PhaseFoundation: 18,
			store.PhaseBaseBuild:  22,
			store.PhaseSpeedBuild: 32,
			store.PhaseRacePrep:   32,
			store.PhaseTaper:      32,
		},
		Intervals: map[store.TrainingPhase]store.IntervalSpec{
			store.PhaseFoundation: {Count: 6, DistanceM: 400, RestSeconds: 120},
			store.PhaseBaseBuild:  {Count: 6, DistanceM: 600, RestSeconds: 120},
			store.PhaseSpeedBuild: {Count: 8, DistanceM: 400, RestSeconds: 90},
			store.PhaseRacePrep:   {Count: 6, DistanceM: 800, RestSeconds: 120},
			store.PhaseTaper:      {Count: 4, DistanceM: 400, RestSeconds: 90},
		},
		TempoKm: map[store.TrainingPhase]float64{
			store.PhaseFoundation: 6,
			store.PhaseBaseBuild:  6,
			store.PhaseSpeedBuild: 8,
			store.PhaseRacePrep:   10,
			store.PhaseTaper:      6,
		},
		ThresholdKm: 8,
		RecoveryKm:  5,
		WarmupKm:    2,
		CooldownKm:  2,
		StrengthMinutes: map[store.TrainingPhase]int{
			store.PhaseFoundation: 40,
			store.PhaseBaseBuild:  35,
			store.PhaseSpeedBuild: 30,
			store.PhaseRacePrep:   25,
			store.PhaseTaper:      20,
		},
		MobilityMinutes: map[store.TrainingPhase]int{
			store.PhaseFoundation: 25,
			store.PhaseBaseBuild:  20,
			store.PhaseSpeedBuild: 20,
			store.PhaseRacePrep:   20,
			store.PhaseTaper:      15,
		},
	}
}

// Request is everything needed to build one prescription
type Request struct {
	Athlete         *store.Athlete
	Type            store.WorkoutType
	DurationMinutes int
	State           analysis.StructuralState
	SpeedPermission bool
	ACWR            analysis.ACWR
	RecentLabels    []store.PerformanceLabel
}

// Workout is a generated prescription plus how it was derived
type Workout struct {
	Prescription store.Prescription
	Template     *Template
	IncreasePct  float64
	ExpectedLoad float64
	Rationale    string
}

// Generator builds prescriptions from templates and athlete ability
type Generator struct {
	catalog *Catalog
	opts    Options
}

// New loads the embedded catalog
func New(opts Options) (*Generator, error) {
	c, err := LoadCatalog()
	if err != nil {
		return nil, err
	}
	return &Generator{catalog: c, opts: opts}, nil
}

// NewWithCatalog uses a caller-supplied catalog
func NewWithCatalog(c *Catalog, opts Options) *Generator {
	return &Generator{catalog: c, opts: opts}
}

// Canonical maps request types onto the generator that serves them
func Canonical(wt store.WorkoutType) (store.WorkoutType, error) {
	switch wt {
	case store.WorkoutSpeed, store.WorkoutVO2Max:
		return store.WorkoutInterval, nil
	case store.WorkoutHard:
		return store.WorkoutTempo, nil
	case store.WorkoutRace:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, wt)
	}
	return wt, nil
}

// Generate builds the prescription for req
func (g *Generator) Generate(req Request) (*Workout, error) {
	if req.Athlete == nil {
		return nil, errors.New("generate: athlete is required")
	}
	wt, err := Canonical(req.Type)
	if err != nil {
		return nil, err
	}
	tpl, err := g.catalog.SelectTemplate(req.State, wt)
	if err != nil {
		return nil, err
	}
	if tpl.Constraints.SpeedPermissionRequired && !req.SpeedPermission {
		return nil, fmt.Errorf("%w: template %s", ErrSpeedPermission, tpl.ID)
	}

	a := req.Athlete
	phase := a.Phase
	if phase == "" {
		phase = store.PhaseFoundation
	}
	pct := IncreasePct(ACWRCeiling(req.ACWR.Ratio), a.WeekNumber, req.RecentLabels)

	p := store.Prescription{
		Type:            wt,
		Template:        tpl.ID,
		DurationMinutes: AdjustDuration(tpl, req.DurationMinutes),
		Zones:           tpl.Zones,
	}

	maxHR := a.MaxHR
	if maxHR <= 0 {
		maxHR = analysis.DefaultZones().MaxHR
	}
	// the template's heart-rate cap bounds every range below
	hrCap := maxHR
	if pct := tpl.Constraints.MaxHeartRatePercent; pct > 0 {
		hrCap = math.Round(float64(pct) / 100 * maxHR)
	}
	hr := func(lo, hi float64) {
		top := math.Min(math.Round(hi*maxHR), hrCap)
		bottom := math.Min(math.Round(lo*maxHR), top)
		p.HRRange = [2]float64{bottom, top}
		p.TargetHR = math.Round((bottom + top) / 2)
	}
	pace := func(target, fast, slow float64) {
		p.TargetPace = target
		p.PaceRange = [2]float64{target + fast, target + slow}
	}

	switch wt {
	case store.WorkoutEasy:
		km := a.WeeklyVolumeKm * g.opts.EasyVolumeShare * (1 + pct/100)
		p.DistanceKm = roundHalf(clampFloat(km, g.opts.EasyMinKm, g.opts.EasyMaxKm))
		pace(a.EasyPace, -10, 15)
		hr(0.75, 0.82)
		if a.AerobicHR > 0 {
			p.TargetHR = clampFloat(a.AerobicHR, p.HRRange[0], p.HRRange[1])
		}

	case store.WorkoutLong:
		km := math.Round(a.LongestRunKm * (1 + math.Min(pct, 10)/100))
		p.DistanceKm = clampFloat(km, g.opts.LongMinKm, g.longCap(phase))
		pace(a.EasyPace+15, -5, 10)
		hr(0.70, 0.80)

	case store.WorkoutInterval:
		spec := g.opts.Intervals[phase]
		if pct < 0 {
			spec.Count = max(3, int(math.Round(float64(spec.Count)*(1+pct/100))))
		}
		spec.Pace = a.IntervalPace
		p.Intervals = &spec
		p.WarmupKm, p.CooldownKm = g.opts.WarmupKm, g.opts.CooldownKm
		p.DistanceKm = p.WarmupKm + float64(spec.Count*spec.DistanceM)/1000 + p.CooldownKm
		pace(a.IntervalPace, -5, 5)
		hr(0.85, 0.92)

	case store.WorkoutTempo:
		block := g.opts.TempoKm[phase]
		if pct < 0 {
			block = math.Max(3, roundHalf(block*(1+pct/100)))
		}
		p.WarmupKm, p.CooldownKm = g.opts.WarmupKm, g.opts.CooldownKm
		p.DistanceKm = p.WarmupKm + block + p.CooldownKm
		pace(a.TempoPace, -5, 10)
		hr(0.85, 0.90)

	case store.WorkoutThreshold:
		block := g.opts.ThresholdKm
		if pct < 0 {
			block = math.Max(3, roundHalf(block*(1+pct/100)))
		}
		p.WarmupKm, p.CooldownKm = g.opts.WarmupKm, g.opts.CooldownKm
		p.DistanceKm = p.WarmupKm + block + p.CooldownKm
		pace(a.TempoPace-10, -5, 5)
		hr(0.88, 0.92)

	case store.WorkoutRecovery:
		p.DistanceKm = g.opts.RecoveryKm
		pace(a.EasyPace+25, -5, 10)
		hr(0.65, 0.75)

	case store.WorkoutStrength, store.WorkoutMobility, store.WorkoutActivation:
		minutes := g.opts.MobilityMinutes[phase]
		if wt == store.WorkoutStrength {
			minutes = g.opts.StrengthMinutes[phase]
		}
		p.DurationMinutes = AdjustDuration(tpl, minutes)
		hr(0.50, 0.65)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, wt)
	}

	p.Blocks = buildBlocks(tpl, p)
	load := analysis.EstimateLoad(wt, p.DistanceKm)
	p.ProjectedACWR = req.ACWR.Project(load)

	return &Workout{
		Prescription: p,
		Template:     tpl,
		IncreasePct:  pct,
		ExpectedLoad: load,
		Rationale: fmt.Sprintf("%s week %d, %s state: volume %+.0f%%, ACWR %.2f -> %.2f",
			phase, a.WeekNumber, req.State, pct, req.ACWR.Ratio, p.ProjectedACWR),
	}, nil
}

// DistanceRange is the allowed prescription distance for a type and phase
func (g *Generator) DistanceRange(wt store.WorkoutType, phase store.TrainingPhase) (lo, hi float64) {
	switch wt {
	case store.WorkoutEasy:
		return g.opts.EasyMinKm, g.opts.EasyMaxKm
	case store.WorkoutLong:
		return g.opts.LongMinKm, g.longCap(phase)
	case store.WorkoutInterval:
		s := g.opts.Intervals[phase]
		return g.opts.WarmupKm + g.opts.CooldownKm + 3*float64(s.DistanceM)/1000,
			g.opts.WarmupKm + g.opts.CooldownKm + float64(s.Count*s.DistanceM)/1000
	case store.WorkoutTempo:
		return g.opts.WarmupKm + g.opts.CooldownKm + 3, g.opts.WarmupKm + g.opts.CooldownKm + g.opts.TempoKm[phase]
	case store.WorkoutThreshold:
		return g.opts.WarmupKm + g.opts.CooldownKm + 3, g.opts.WarmupKm + g.opts.CooldownKm + g.opts.ThresholdKm
	case store.WorkoutRecovery:
		return g.opts.RecoveryKm, g.opts.RecoveryKm
	default:
		return 0, 0
	}
}

func (g *Generator) longCap(phase store.TrainingPhase) float64 {
	if c, ok := g.opts.LongCapKm[phase]; ok {
		return c
	}
	return 32
}

// buildBlocks fills template blocks with the prescription's distances
func buildBlocks(tpl *Template, p store.Prescription) []store.WorkoutBlock {
	blocks := make([]store.WorkoutBlock, 0, len(tpl.Blocks))
	for _, b := range tpl.Blocks {
		wb := store.WorkoutBlock{Name: b.Name, Description: b.Description, Minutes: b.Minutes, Zone: b.Zone}
		switch b.Name {
		case "warmup":
			wb.DistanceKm = p.WarmupKm
		case "cooldown":
			wb.DistanceKm = p.CooldownKm
		case "main":
			wb.DistanceKm = p.DistanceKm - p.WarmupKm - p.CooldownKm
			if p.Intervals != nil {
				wb.Description = fmt.Sprintf("%s: %d x %dm, %ds rest", b.Description,
					p.Intervals.Count, p.Intervals.DistanceM, p.Intervals.RestSeconds)
			}
		}
		blocks = append(blocks, wb)
	}
	return blocks
}

func clampFloat(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func roundHalf(v float64) float64 {
	return math.Round(v*2) / 2
}
