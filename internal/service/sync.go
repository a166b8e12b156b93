package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aisri/internal/normalize"
	"aisri/internal/strava"
)

// ActivitySource is the part of the Strava client sync needs
type ActivitySource interface {
	GetActivities(ctx context.Context, after time.Time, page, perPage int) ([]strava.Activity, error)
	GetActivity(ctx context.Context, id int64) (*strava.Activity, error)
}

// ClientFactory returns an authenticated activity source for an athlete
type ClientFactory func(ctx context.Context, athleteID string) (ActivitySource, error)

// SyncService pulls activities from Strava into the store
type SyncService struct {
	coach   *Coach
	clients ClientFactory
	perPage int
}

// NewSyncService creates a sync service that recomputes readiness through coach
func NewSyncService(coach *Coach, clients ClientFactory) *SyncService {
	return &SyncService{coach: coach, clients: clients, perPage: 100}
}

// SyncProgress reports progress during sync
type SyncProgress struct {
	Phase           string // "activities", "details", "readiness"
	Total           int
	Completed       int
	CurrentActivity string
	Error           error
}

// SyncResult contains the results of a sync operation
type SyncResult struct {
	ActivitiesFetched int
	ActivitiesStored  int
	Duplicates        int
	Skipped           int
	DetailsFetched    int
	Readiness         *Readiness
	Errors            []error
}

// syncCursorKey is the sync_state key holding an athlete's newest synced start time
func syncCursorKey(athleteID string) string {
	return "last_activity_sync:" + athleteID
}

// SyncAthlete fetches activities newer than the athlete's cursor, stores
// them and recomputes readiness when anything new arrived
func (s *SyncService) SyncAthlete(ctx context.Context, athleteID string, progress chan<- SyncProgress) (*SyncResult, error) {
	if progress != nil {
		defer close(progress)
	}
	started := s.coach.clock()
	result := &SyncResult{}

	err := s.syncAthlete(ctx, athleteID, progress, result)
	s.coach.observe(ctx, UseCaseSync, started, err, map[string]any{
		"athlete_id": athleteID,
		"fetched":    result.ActivitiesFetched,
		"stored":     result.ActivitiesStored,
		"errors":     len(result.Errors),
	})
	return result, err
}

func (s *SyncService) syncAthlete(ctx context.Context, athleteID string, progress chan<- SyncProgress, result *SyncResult) error {
	client, err := s.clients(ctx, athleteID)
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}

	if err := s.syncActivities(ctx, client, athleteID, progress, result); err != nil {
		return fmt.Errorf("syncing activities: %w", err)
	}

	if result.ActivitiesStored == 0 {
		return nil
	}
	if progress != nil {
		progress <- SyncProgress{Phase: "readiness", Total: 1}
	}
	r, err := s.coach.DailyUpdate(ctx, athleteID)
	if err != nil {
		return fmt.Errorf("recomputing readiness: %w", err)
	}
	result.Readiness = r
	if progress != nil {
		progress <- SyncProgress{Phase: "readiness", Total: 1, Completed: 1}
	}
	return nil
}

// syncActivities pages through activity summaries after the cursor and
// stores each new one, then advances the cursor.
func (s *SyncService) syncActivities(ctx context.Context, client ActivitySource, athleteID string,
	progress chan<- SyncProgress, result *SyncResult) error {
	repo := s.coach.repo

	var after time.Time
	var cursor string
	err := s.coach.retry.do(ctx, func(ctx context.Context) error {
		var err error
		cursor, err = repo.GetSyncState(ctx, syncCursorKey(athleteID))
		return err
	})
	if err != nil {
		return fmt.Errorf("reading sync cursor: %w", err)
	}
	if cursor != "" {
		if after, err = time.Parse(time.RFC3339, cursor); err != nil {
			return fmt.Errorf("parsing sync cursor %q: %w", cursor, err)
		}
	}

	if progress != nil {
		progress <- SyncProgress{Phase: "activities"}
	}

	newest := after
	page := 1
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		activities, err := client.GetActivities(ctx, after, page, s.perPage)
		if err != nil {
			return fmt.Errorf("fetching page %d: %w", page, err)
		}
		if len(activities) == 0 {
			break
		}
		result.ActivitiesFetched += len(activities)

		for _, sa := range activities {
			if err := s.storeActivity(ctx, client, athleteID, sa, progress, result); err != nil {
				result.Errors = append(result.Errors, err)
				continue
			}
			if sa.StartDate.After(newest) {
				newest = sa.StartDate
			}
		}

		if progress != nil {
			progress <- SyncProgress{
				Phase:     "activities",
				Total:     result.ActivitiesFetched,
				Completed: result.ActivitiesStored,
			}
		}
		if len(activities) < s.perPage {
			break
		}
		page++
	}

	if newest.After(after) {
		err := s.coach.retry.do(ctx, func(ctx context.Context) error {
			return repo.SetSyncState(ctx, syncCursorKey(athleteID), newest.UTC().Format(time.RFC3339))
		})
		if err != nil {
			return fmt.Errorf("saving sync cursor: %w", err)
		}
	}
	return nil
}

// storeActivity normalises one summary and ingests it. Runs without splits
// are fetched in detail first so the assessments see per-km paces; a failed
// detail fetch keeps the summary.
func (s *SyncService) storeActivity(ctx context.Context, client ActivitySource, athleteID string,
	sa strava.Activity, progress chan<- SyncProgress, result *SyncResult) error {
	a := normalize.FromStrava(sa)
	a.AthleteID = athleteID

	if a.IsRun() && len(a.Splits) == 0 && !s.known(ctx, a.ID) {
		if progress != nil {
			progress <- SyncProgress{Phase: "details", CurrentActivity: a.Name}
		}
		detail, err := client.GetActivity(ctx, sa.ID)
		switch {
		case err != nil:
			result.Errors = append(result.Errors, fmt.Errorf("activity %d (%s) details: %w", sa.ID, sa.Name, err))
		case len(detail.SplitsMetric) > 0:
			a = normalize.FromStrava(*detail)
			a.AthleteID = athleteID
			result.DetailsFetched++
		}
	}

	inserted, err := s.coach.IngestActivity(ctx, a)
	switch {
	case errors.Is(err, ErrInvalidInput):
		result.Skipped++
		return nil
	case err != nil:
		return fmt.Errorf("storing activity %d: %w", sa.ID, err)
	case !inserted:
		result.Duplicates++
	default:
		result.ActivitiesStored++
	}
	return nil
}

// known reports whether an activity is already stored; lookup failures
// count as unknown
func (s *SyncService) known(ctx context.Context, id string) bool {
	_, err := s.coach.repo.GetActivity(ctx, id)
	return err == nil
}

// HandleEvent applies one webhook event. Only activity creations are
// acted on; the activity is fetched, stored and readiness recomputed.
func (s *SyncService) HandleEvent(ctx context.Context, ev strava.WebhookEvent) error {
	if !ev.IsActivityCreate() {
		return nil
	}

	var athleteID string
	err := s.coach.retry.do(ctx, func(ctx context.Context) error {
		a, err := s.coach.repo.GetAthleteByStravaID(ctx, ev.OwnerID)
		if err != nil {
			return err
		}
		athleteID = a.ID
		return nil
	})
	if err != nil {
		return fmt.Errorf("resolving strava owner %d: %w", ev.OwnerID, err)
	}

	client, err := s.clients(ctx, athleteID)
	if err != nil {
		return fmt.Errorf("creating client: %w", err)
	}
	sa, err := client.GetActivity(ctx, ev.ObjectID)
	if err != nil {
		return fmt.Errorf("fetching activity %d: %w", ev.ObjectID, err)
	}

	a := normalize.FromStrava(*sa)
	a.AthleteID = athleteID
	inserted, err := s.coach.IngestActivity(ctx, a)
	if err != nil {
		return err
	}
	if !inserted {
		return nil
	}
	_, err = s.coach.EnqueueDailyUpdate(athleteID)
	return err
}
