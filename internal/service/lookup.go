package service

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// StaleAfter is the age beyond which readiness rows degrade a decision
const StaleAfter = 14 * 24 * time.Hour

// LookupStatus classifies the outcome of reading an upstream row
type LookupStatus string

const (
	LookupOK        LookupStatus = "ok"
	LookupMissing   LookupStatus = "missing"
	LookupStale     LookupStatus = "stale"
	LookupTransient LookupStatus = "transient"
)

// Lookup is the result of fetching one readiness row. Value is set for OK
// and Stale lookups, Err for Transient ones.
type Lookup[T any] struct {
	Status LookupStatus
	Value  *T
	Age    time.Duration
	Err    error
}

// Usable reports whether Value can drive a decision
func (l Lookup[T]) Usable() bool {
	return l.Status == LookupOK || l.Status == LookupStale
}

// Note describes a degraded lookup for the decision record. OK lookups have no note.
func (l Lookup[T]) Note(what string) string {
	switch l.Status {
	case LookupMissing:
		return fmt.Sprintf("no %s on record, using neutral default", what)
	case LookupStale:
		return fmt.Sprintf("%s is %d days old, recompute recommended", what, int(l.Age.Hours()/24))
	}
	return ""
}

// Error returns the kind matching a non-OK status
func (l Lookup[T]) Error() error {
	switch l.Status {
	case LookupMissing:
		return ErrMissingData
	case LookupStale:
		return ErrStaleData
	case LookupTransient:
		return l.Err
	}
	return nil
}

// lookup runs fetch under the retry policy and classifies the outcome.
// stamp extracts the row's timestamp; rows older than staleAfter are stale
// unless staleAfter is 0.
func lookup[T any](ctx context.Context, r *retrier, now time.Time, staleAfter time.Duration,
	fetch func(context.Context) (*T, error), stamp func(*T) time.Time) Lookup[T] {
	var v *T
	err := r.do(ctx, func(ctx context.Context) error {
		var err error
		v, err = fetch(ctx)
		return err
	})
	switch {
	case errors.Is(err, ErrNotFound):
		return Lookup[T]{Status: LookupMissing}
	case err != nil:
		return Lookup[T]{Status: LookupTransient, Err: err}
	}

	age := now.Sub(stamp(v))
	if staleAfter > 0 && age > staleAfter {
		return Lookup[T]{Status: LookupStale, Value: v, Age: age}
	}
	return Lookup[T]{Status: LookupOK, Value: v, Age: age}
}
