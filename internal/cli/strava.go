package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"aisri/internal/auth"
	"aisri/internal/service"
	"aisri/internal/store"
)

func newSyncCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "sync <athlete>",
		Short: "Pull new Strava activities and recompute readiness",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			progress := make(chan service.SyncProgress, 16)
			done := make(chan struct{})
			go func() {
				defer close(done)
				phase := ""
				for p := range progress {
					if p.Phase != phase {
						phase = p.Phase
						fmt.Fprintln(app.Out, faint.Sprintf("  %s...", phase))
					}
					if p.Error != nil {
						app.warn("%s: %v", p.CurrentActivity, p.Error)
					}
				}
			}()

			result, err := app.Sync.SyncAthlete(cmd.Context(), args[0], progress)
			<-done
			if err != nil {
				if errors.Is(err, service.ErrUpstreamAuth) {
					return fmt.Errorf("%w: run 'aisri auth %s' to relink Strava", err, args[0])
				}
				return err
			}

			app.success("Synced %d activities", result.ActivitiesStored)
			app.field("fetched", "%d", result.ActivitiesFetched)
			app.field("duplicates", "%d", result.Duplicates)
			app.field("skipped", "%d", result.Skipped)
			app.field("details", "%d", result.DetailsFetched)
			for _, e := range result.Errors {
				app.warn("%v", e)
			}
			if r := result.Readiness; r != nil {
				app.field("aisri", "%s (%s)", scoreColor(r.AISRI.Overall), r.AISRI.RiskLevel)
			}
			return nil
		},
	}
}

func newAuthCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "auth <athlete>",
		Short: "Link an athlete to their Strava account",
		Long: fmt.Sprintf(`Run the Strava OAuth flow in a browser and store the athlete's tokens.

The Strava application must allow the callback %s.`, auth.CallbackURL()),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Config.Validate(); err != nil {
				return err
			}
			ctx := cmd.Context()
			athlete, err := app.Coach.GetAthlete(ctx, args[0])
			if err != nil {
				return err
			}

			result, err := auth.Authenticate(ctx, auth.NewOAuthConfig(app.Config.Strava), app.Out)
			if err != nil {
				return fmt.Errorf("authenticating: %w", err)
			}

			err = app.Store.WithinTx(ctx, func(ctx context.Context, tx store.Repository) error {
				if err := tx.SaveProviderToken(ctx, auth.ToStored(athlete.ID, result.AthleteID, result.Token)); err != nil {
					return err
				}
				athlete.StravaAthleteID = &result.AthleteID
				return tx.UpdateAthlete(ctx, athlete)
			})
			if err != nil {
				return fmt.Errorf("saving strava link: %w", err)
			}

			app.success("Linked %s to Strava athlete %d", athlete.Name, result.AthleteID)
			return nil
		},
	}
}
