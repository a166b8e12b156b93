package service

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"aisri/internal/store"
)

// RecomputeReport summarises a recompute over every athlete
type RecomputeReport struct {
	Athletes  int
	Succeeded int
	Failures  map[string]error
}

// Failed reports whether any athlete failed to recompute
func (r *RecomputeReport) Failed() bool {
	return len(r.Failures) > 0
}

// RecomputeAll runs DailyUpdate for every athlete with at most parallelism
// in flight. One athlete's failure does not stop the others.
func (c *Coach) RecomputeAll(ctx context.Context, parallelism int) (*RecomputeReport, error) {
	started := c.clock()
	report, err := c.recomputeAll(ctx, parallelism)

	fields := map[string]any{"parallelism": parallelism}
	if report != nil {
		fields["athletes"] = report.Athletes
		fields["failed"] = len(report.Failures)
	}
	c.observe(ctx, UseCaseRecomputeAll, started, err, fields)
	return report, err
}

func (c *Coach) recomputeAll(ctx context.Context, parallelism int) (*RecomputeReport, error) {
	if parallelism <= 0 {
		parallelism = 1
	}

	var athletes []store.Athlete
	err := c.retry.do(ctx, func(ctx context.Context) error {
		var err error
		athletes, err = c.repo.ListAthletes(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing athletes: %w", err)
	}

	report := &RecomputeReport{Athletes: len(athletes), Failures: make(map[string]error)}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(parallelism)
	for _, a := range athletes {
		id := a.ID
		g.Go(func() error {
			_, err := c.DailyUpdate(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failures[id] = err
				c.logger.WarnContext(ctx, "daily update failed", "athlete_id", id, "error", err)
			} else {
				report.Succeeded++
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}
