// Package cli holds the aisri cobra commands
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"aisri/internal/auth"
	"aisri/internal/cache"
	"aisri/internal/config"
	"aisri/internal/generator"
	"aisri/internal/service"
	"aisri/internal/store"
	"aisri/internal/strava"
)

// App holds everything the commands share
type App struct {
	Config   *config.Config
	Store    *store.Store
	Cache    *cache.Cache
	Coach    *service.Coach
	Sync     *service.SyncService
	Registry *prometheus.Registry
	Logger   *slog.Logger
	Out      io.Writer
}

// NewLogger builds the slog logger selected by cfg
func NewLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// NewApp opens the store and cache and wires the coach
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	s, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	c, err := cache.Open(cfg.Cache.Dir, cfg.Cache.TTL.Std())
	if err != nil {
		s.Close()
		return nil, err
	}
	app, err := newApp(cfg, s, c, logger)
	if err != nil {
		c.Close()
		s.Close()
		return nil, err
	}
	return app, nil
}

// newApp wires the coach over an open store and an optional cache
func newApp(cfg *config.Config, s *store.Store, c *cache.Cache, logger *slog.Logger) (*App, error) {
	gen, err := generator.New(generator.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("loading workout catalog: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := []service.Option{
		service.WithLogger(logger),
		service.WithObserver(service.NewSlogUseCaseObserver(logger)),
		service.WithMetrics(service.NewMetrics(reg)),
	}
	if c != nil {
		opts = append(opts, service.WithCache(c))
	}
	coach := service.NewCoach(s, gen, opts...)

	app := &App{
		Config:   cfg,
		Store:    s,
		Cache:    c,
		Coach:    coach,
		Registry: reg,
		Logger:   logger,
		Out:      os.Stdout,
	}
	app.Sync = service.NewSyncService(coach, app.stravaSource)
	return app, nil
}

// Close stops background work and closes the cache and store
func (a *App) Close() error {
	a.Coach.Close()
	var errs []error
	if a.Cache != nil {
		errs = append(errs, a.Cache.Close())
	}
	errs = append(errs, a.Store.Close())
	return errors.Join(errs...)
}

// stravaSource builds a Strava client from an athlete's stored tokens
func (a *App) stravaSource(ctx context.Context, athleteID string) (service.ActivitySource, error) {
	if err := a.Config.Validate(); err != nil {
		return nil, err
	}
	ts, err := auth.NewStoredTokenSource(ctx, auth.NewOAuthConfig(a.Config.Strava), a.Store, athleteID)
	if err != nil {
		return nil, err
	}
	return strava.NewClient(ts, a.stravaConfig()), nil
}

func (a *App) stravaConfig() strava.Config {
	cfg := strava.DefaultConfig()
	if t := a.Config.Provider.Timeout.Std(); t > 0 {
		cfg.Timeout = t
	}
	if a.Config.Provider.Attempts > 0 {
		cfg.Attempts = a.Config.Provider.Attempts
	}
	if b := a.Config.Provider.BackoffBase.Std(); b > 0 {
		cfg.BackoffBase = b
	}
	return cfg
}
