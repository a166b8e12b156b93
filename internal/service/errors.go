package service

import (
	"errors"

	"aisri/internal/store"
	"aisri/internal/strava"
)

// Error kinds surfaced by the coach. Store and provider sentinels are
// re-exported so callers only need this package for errors.Is checks.
var (
	ErrInvalidInput = store.ErrInvalidInput
	ErrNotFound     = store.ErrNotFound
	ErrCrossAthlete = store.ErrCrossAthlete
	ErrDuplicate    = store.ErrDuplicate
	ErrUpstreamAuth = strava.ErrUnauthorized
)

// ErrMissingData marks a decision made without a required upstream row
var ErrMissingData = errors.New("missing readiness data")

// ErrStaleData marks a decision made on readiness older than the stale window
var ErrStaleData = errors.New("stale readiness data")

// ErrTransient wraps a repository failure that survived every retry
var ErrTransient = errors.New("transient repository failure")
