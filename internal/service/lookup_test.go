package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type row struct{ at time.Time }

func TestLookupClassification(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := &retrier{policy: fastRetry()}
	stamp := func(v *row) time.Time { return v.at }
	fetchRow := func(at time.Time) func(context.Context) (*row, error) {
		return func(context.Context) (*row, error) { return &row{at: at}, nil }
	}
	fetchErr := func(err error) func(context.Context) (*row, error) {
		return func(context.Context) (*row, error) { return nil, err }
	}

	tests := []struct {
		name       string
		staleAfter time.Duration
		fetch      func(context.Context) (*row, error)
		status     LookupStatus
		kind       error
	}{
		{"fresh", StaleAfter, fetchRow(now.Add(-time.Hour)), LookupOK, nil},
		{"stale", StaleAfter, fetchRow(now.AddDate(0, 0, -15)), LookupStale, ErrStaleData},
		{"never stale", 0, fetchRow(now.AddDate(-1, 0, 0)), LookupOK, nil},
		{"missing", StaleAfter, fetchErr(ErrNotFound), LookupMissing, ErrMissingData},
		{"transient", StaleAfter, fetchErr(errors.New("database is locked")), LookupTransient, ErrTransient},
		{"other failure", StaleAfter, fetchErr(errors.New("boom")), LookupTransient, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := lookup(context.Background(), r, now, tt.staleAfter, tt.fetch, stamp)
			assert.Equal(t, tt.status, l.Status)
			assert.Equal(t, tt.status == LookupOK || tt.status == LookupStale, l.Usable())
			if tt.kind != nil {
				assert.ErrorIs(t, l.Error(), tt.kind)
			}
			if tt.status == LookupOK {
				assert.Empty(t, l.Note("row"))
			} else if tt.status != LookupTransient {
				assert.NotEmpty(t, l.Note("row"))
			}
		})
	}
}

func TestRetrierStopsOnPermanentErrors(t *testing.T) {
	r := &retrier{policy: fastRetry()}
	calls := 0
	err := r.do(context.Background(), func(context.Context) error {
		calls++
		return ErrNotFound
	})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrTransient)
	assert.Equal(t, 1, calls)
}

func TestRetrierHonoursContext(t *testing.T) {
	r := &retrier{policy: RetryPolicy{Attempts: 10, BaseBackoff: time.Second, MaxBackoff: time.Second}}
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := r.do(ctx, func(context.Context) error {
		calls++
		cancel()
		return errors.New("database is locked")
	})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrTransient)
	assert.Equal(t, 1, calls)
}
