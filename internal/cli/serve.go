package cli

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"aisri/internal/api"
)

func newServeCmd(app *App) *cobra.Command {
	var addr string
	var noSchedule bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with the daily recompute schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if addr == "" {
				addr = app.Config.Server.Addr
			}

			if !noSchedule && app.Config.Schedule.DailyCron != "" {
				sched, err := app.scheduleRecompute(ctx)
				if err != nil {
					return err
				}
				sched.Start()
				defer func() { <-sched.Stop().Done() }()
			}

			srv := api.NewServer(app.Coach,
				api.WithEventHandler(app.Sync, api.WebhookConfig{
					VerifyToken: app.Config.Strava.WebhookVerifyToken,
					Secret:      app.Config.Strava.WebhookSecret,
				}),
				api.WithGatherer(app.Registry),
				api.WithServerLogger(app.Logger),
			)
			app.success("Serving on %s", addr)
			return srv.Run(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to server.addr)")
	cmd.Flags().BoolVar(&noSchedule, "no-schedule", false, "Disable the daily recompute job")
	return cmd
}

// scheduleRecompute registers RecomputeAll on the configured cron spec
func (a *App) scheduleRecompute(ctx context.Context) (*cron.Cron, error) {
	c := cron.New()
	spec := a.Config.Schedule.DailyCron
	_, err := c.AddFunc(spec, func() {
		report, err := a.Coach.RecomputeAll(ctx, a.Config.Schedule.Parallelism)
		if err != nil {
			a.Logger.Error("scheduled recompute failed", "error", err)
			return
		}
		a.Logger.Info("scheduled recompute finished",
			"athletes", report.Athletes, "succeeded", report.Succeeded, "failed", len(report.Failures))
	})
	if err != nil {
		return nil, fmt.Errorf("scheduling %q: %w", spec, err)
	}
	a.Logger.Info("daily recompute scheduled", "cron", spec)
	return c, nil
}
