package cli

import (
	"cmp"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"aisri/internal/analysis"
	"aisri/internal/store"
)

func newAthleteCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "athlete",
		Short: "Manage athletes",
	}

	cmd.AddCommand(
		newAthleteAddCmd(app),
		newAthleteShowCmd(app),
		newAthleteListCmd(app),
	)
	return cmd
}

func newAthleteAddCmd(app *App) *cobra.Command {
	var (
		a     store.Athlete
		phase string
		race  string

		easyPace, tempoPace, intervalPace string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Register an athlete",
		Long: `Register an athlete. Heart rate defaults come from the athlete section
of the config. Paces are given as m:ss per km; --race derives any pace
left unset from a recent race result.

Examples:
  aisri athlete add "Sam Runner" --age 34 --max-hr 188
  aisri athlete add "Ana" --easy-pace 6:10 --tempo-pace 5:05 --weekly-km 45
  aisri athlete add "Lee" --race 10k=44:30`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a.Name = args[0]
			var err error
			if a.EasyPace, err = parsePace(easyPace); err != nil {
				return err
			}
			if a.TempoPace, err = parsePace(tempoPace); err != nil {
				return err
			}
			if a.IntervalPace, err = parsePace(intervalPace); err != nil {
				return err
			}
			var vdot float64
			if race != "" {
				meters, secs, err := parseRace(race)
				if err != nil {
					return err
				}
				vdot = analysis.CalculateVDOT(meters, secs)
				paces := analysis.PacesForVDOT(vdot)
				a.EasyPace = cmp.Or(a.EasyPace, paces.Easy)
				a.TempoPace = cmp.Or(a.TempoPace, paces.Tempo)
				a.IntervalPace = cmp.Or(a.IntervalPace, paces.Interval)
			}
			if phase != "" {
				a.Phase = store.TrainingPhase(strings.ToUpper(phase))
				switch a.Phase {
				case store.PhaseFoundation, store.PhaseBaseBuild, store.PhaseSpeedBuild, store.PhaseRacePrep, store.PhaseTaper:
				default:
					return fmt.Errorf("unknown phase %q", phase)
				}
			}
			if !cmd.Flags().Changed("max-hr") {
				a.MaxHR = app.Config.Athlete.MaxHR
			}
			if !cmd.Flags().Changed("resting-hr") {
				a.RestingHR = app.Config.Athlete.RestingHR
			}
			if !cmd.Flags().Changed("threshold-hr") {
				a.ThresholdHR = app.Config.Athlete.ThresholdHR
			}

			if err := app.Coach.RegisterAthlete(cmd.Context(), &a); err != nil {
				return err
			}
			app.success("Added athlete %s", a.Name)
			app.field("id", "%s", a.ID)
			if vdot > 0 {
				app.field("vdot", "%.1f (%s)", vdot, analysis.VDOTLabel(vdot))
				app.field("paces", "easy %s, tempo %s, interval %s",
					formatPace(a.EasyPace), formatPace(a.TempoPace), formatPace(a.IntervalPace))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&a.Age, "age", 0, "Age in years")
	f.StringVar(&a.Sex, "sex", "", "M or F")
	f.Float64Var(&a.WeightKg, "weight", 0, "Weight in kg")
	f.StringVar(&easyPace, "easy-pace", "", "Easy pace (m:ss/km)")
	f.StringVar(&tempoPace, "tempo-pace", "", "Tempo pace (m:ss/km)")
	f.StringVar(&intervalPace, "interval-pace", "", "Interval pace (m:ss/km)")
	f.StringVar(&race, "race", "", "Recent race result, e.g. 10k=45:30 or half=1:38:00")
	f.Float64Var(&a.MaxHR, "max-hr", 0, "Maximum heart rate")
	f.Float64Var(&a.RestingHR, "resting-hr", 0, "Resting heart rate")
	f.Float64Var(&a.ThresholdHR, "threshold-hr", 0, "Lactate threshold heart rate")
	f.Float64Var(&a.AerobicHR, "aerobic-hr", 0, "Aerobic threshold heart rate")
	f.Float64Var(&a.WeeklyVolumeKm, "weekly-km", 0, "Current weekly volume in km")
	f.Float64Var(&a.LongestRunKm, "longest-km", 0, "Longest recent run in km")
	f.StringVar(&phase, "phase", "", "Training phase (foundation, base_build, speed_build, race_prep, taper)")
	return cmd
}

func newAthleteShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <athlete>",
		Short: "Show an athlete's profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.Coach.GetAthlete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(app.Out, a.Name)
			app.field("id", "%s", a.ID)
			app.field("phase", "%s week %d", a.Phase, a.WeekNumber)
			app.field("easy pace", "%s", formatPace(a.EasyPace))
			app.field("tempo pace", "%s", formatPace(a.TempoPace))
			app.field("interval pace", "%s", formatPace(a.IntervalPace))
			app.field("heart rate", "rest %.0f, threshold %.0f, max %.0f", a.RestingHR, a.ThresholdHR, a.MaxHR)
			app.field("volume", "%.1f km/week, longest %.1f km", a.WeeklyVolumeKm, a.LongestRunKm)
			if a.StravaAthleteID != nil {
				app.field("strava", "%d", *a.StravaAthleteID)
			}
			return nil
		},
	}
}

func newAthleteListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List athletes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			athletes, err := app.Store.ListAthletes(cmd.Context())
			if err != nil {
				return err
			}
			if len(athletes) == 0 {
				app.warn("No athletes yet")
				return nil
			}
			for _, a := range athletes {
				fmt.Fprintf(app.Out, "%s  %s  %s\n", faint.Sprint(a.ID), a.Name, a.Phase)
			}
			return nil
		},
	}
}
