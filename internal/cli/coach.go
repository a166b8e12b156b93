package cli

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"aisri/internal/cache"
	"aisri/internal/service"
	"aisri/internal/store"
)

// ErrRecomputeFailed is returned when at least one athlete failed to recompute
var ErrRecomputeFailed = errors.New("recompute failed for some athletes")

func newRecomputeCmd(app *App) *cobra.Command {
	var parallelism int

	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "Recompute readiness for every athlete",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if parallelism <= 0 {
				parallelism = app.Config.Schedule.Parallelism
			}
			report, err := app.Coach.RecomputeAll(cmd.Context(), parallelism)
			if err != nil {
				return err
			}

			ids := make([]string, 0, len(report.Failures))
			for id := range report.Failures {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				app.fail("%s: %v", id, report.Failures[id])
			}
			if report.Failed() {
				app.warn("Recomputed %d of %d athletes", report.Succeeded, report.Athletes)
				return ErrRecomputeFailed
			}
			app.success("Recomputed %d athletes", report.Succeeded)
			return nil
		},
	}

	cmd.Flags().IntVar(&parallelism, "parallelism", 0, "Athletes recomputed at once (defaults to schedule.parallelism)")
	return cmd
}

func newCalculateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "calculate <athlete>",
		Short: "Recompute and show an athlete's readiness",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := app.Coach.DailyUpdate(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			s := r.AISRI
			app.success("AISRI %s (%s)", scoreColor(s.Overall), s.RiskLevel)
			app.field("adaptability", "%d", s.Pillars.Adaptability)
			app.field("injury risk", "%d", s.Pillars.InjuryRisk)
			app.field("fatigue", "%d", s.Pillars.Fatigue)
			app.field("recovery", "%d", s.Pillars.Recovery)
			app.field("intensity", "%d", s.Pillars.Intensity)
			app.field("consistency", "%d", s.Pillars.Consistency)
			app.field("confidence", "%d%% (%d activities)", s.Confidence, s.ActivitiesAnalysed)
			app.field("injury risk", "%d %s", r.InjuryRisk.RiskScore, r.InjuryRisk.RiskLevel)
			app.field("acwr", "%.2f", r.ACWR.Ratio)
			app.field("form", "%s (TSB %.1f)", r.Form, r.Fitness.TSB)
			for _, f := range r.InjuryRisk.Factors {
				app.field("factor", "%s", f)
			}
			return nil
		},
	}
}

func newRequestCmd(app *App) *cobra.Command {
	var intensity string

	cmd := &cobra.Command{
		Use:   "request <athlete> <type> <minutes>",
		Short: "Request a workout",
		Long: `Request a workout of the given type and duration.

Types: recovery, easy, long, tempo, threshold, interval, speed, vo2max,
hard, strength, mobility, activation.
The workout is assigned only when every safety gate passes.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			minutes, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid minutes %q", args[2])
			}
			d, err := app.Coach.RequestWorkout(cmd.Context(), service.WorkoutRequest{
				AthleteID:       args[0],
				Type:            args[1],
				DurationMinutes: minutes,
				Intensity:       store.Intensity(intensity),
			})
			if err != nil {
				return err
			}
			app.printDecision(d)
			return nil
		},
	}

	cmd.Flags().StringVar(&intensity, "intensity", "", "low, moderate or high (defaults from the type)")
	return cmd
}

func (a *App) printDecision(d *service.WorkoutDecision) {
	if d.Status != service.StatusSuccess {
		a.fail("Blocked: %s", d.Reason)
		if len(d.GatesFailed) > 0 {
			a.field("gates failed", "%s", strings.Join(d.GatesFailed, ", "))
		}
		a.field("recommendation", "%s", d.Recommendation)
	} else {
		p := d.Assignment.Prescription
		a.success("Assigned %s for %s", p.Type, d.Assignment.ScheduledDate.Format("Mon 2 Jan"))
		a.field("distance", "%.1f km", p.DistanceKm)
		a.field("duration", "%d min", p.DurationMinutes)
		a.field("pace", "%s (%s to %s)", formatPace(p.TargetPace), formatPace(p.PaceRange[0]), formatPace(p.PaceRange[1]))
		a.field("heart rate", "%.0f bpm (%.0f-%.0f)", p.TargetHR, p.HRRange[0], p.HRRange[1])
		if iv := p.Intervals; iv != nil {
			a.field("intervals", "%d x %dm at %s, %ds rest", iv.Count, iv.DistanceM, formatPace(iv.Pace), iv.RestSeconds)
		}
		for _, b := range p.Blocks {
			a.field(b.Name, "%s", b.Description)
		}
		a.field("id", "%s", faint.Sprint(d.Assignment.ID))
	}
	a.field("aisri", "%s (structural %d, %s)", scoreColor(d.AISRIScore), d.StructuralScore, d.StructuralState)
	a.field("injury risk", "%d", d.InjuryRisk)
	for _, n := range d.Notes {
		a.warn("%s", n)
	}
}

func newAssessCmd(app *App) *cobra.Command {
	var strength, mobility, rom int

	cmd := &cobra.Command{
		Use:   "assess <athlete>",
		Short: "Record a strength and mobility assessment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := service.AssessmentInput{Strength: strength, Mobility: mobility}
			if cmd.Flags().Changed("rom") {
				in.RangeOfMotion = &rom
			}
			a, err := app.Coach.RecordAssessment(cmd.Context(), args[0], in)
			if err != nil {
				return err
			}
			app.success("Recorded assessment")
			app.field("strength", "%d", a.Strength)
			app.field("mobility", "%d", a.Mobility)
			if a.RangeOfMotion != nil {
				app.field("range of motion", "%d", *a.RangeOfMotion)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&strength, "strength", 0, "Strength score 0-100")
	cmd.Flags().IntVar(&mobility, "mobility", 0, "Mobility score 0-100")
	cmd.Flags().IntVar(&rom, "rom", 0, "Range of motion score 0-100")
	_ = cmd.MarkFlagRequired("strength")
	_ = cmd.MarkFlagRequired("mobility")
	return cmd
}

func newCacheCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the readiness cache",
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop every cached readiness snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Cache == nil {
				app.warn("No cache configured")
				return nil
			}
			keys, err := app.Cache.Keys(cache.ReadinessPrefix)
			if err != nil {
				return err
			}
			for _, k := range keys {
				if err := app.Cache.Delete(k); err != nil {
					return err
				}
			}
			app.success("Cleared %d snapshots", len(keys))
			return nil
		},
	}

	cmd.AddCommand(clearCmd)
	return cmd
}
