package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the top-level "aisri" command with every subcommand
// bound to app
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "aisri",
		Short: "Adaptive running coach",
		Long: `aisri scores an athlete's injury-safe readiness from their training
history and prescribes the next workout only when every safety gate passes.

QUICK START:

  $ aisri athlete add "Sam Runner" --age 34 --max-hr 188
  $ aisri auth <athlete>                # link a Strava account
  $ aisri sync <athlete>                # pull activities and recompute
  $ aisri request <athlete> tempo 45    # ask for a workout
  $ aisri serve                         # HTTP API, webhooks and daily recompute`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(app.Out)

	root.AddCommand(
		newServeCmd(app),
		newRecomputeCmd(app),
		newCalculateCmd(app),
		newRequestCmd(app),
		newAthleteCmd(app),
		newAssessCmd(app),
		newSyncCmd(app),
		newAuthCmd(app),
		newCacheCmd(app),
	)
	return root
}
