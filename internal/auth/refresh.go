package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"aisri/internal/store"
	"aisri/internal/strava"
)

// refreshBuffer is how early a token is refreshed before its expiry
const refreshBuffer = 60 * time.Second

// TokenSource wraps oauth2.TokenSource with persistence
// It automatically refreshes tokens and calls onRefresh when a new token is obtained
type TokenSource struct {
	config    *oauth2.Config
	token     *oauth2.Token
	onRefresh func(*oauth2.Token) error
	mu        sync.Mutex
}

// NewTokenSource creates a new TokenSource that will refresh tokens as needed
// and call onRefresh to persist new tokens
func NewTokenSource(cfg *oauth2.Config, token *oauth2.Token, onRefresh func(*oauth2.Token) error) *TokenSource {
	return &TokenSource{
		config:    cfg,
		token:     token,
		onRefresh: onRefresh,
	}
}

// NewStoredTokenSource loads an athlete's Strava tokens and persists every refresh
func NewStoredTokenSource(ctx context.Context, cfg *oauth2.Config, repo store.ProviderRepo, athleteID string) (*TokenSource, error) {
	stored, err := repo.GetProviderToken(ctx, athleteID, ProviderStrava)
	if err != nil {
		return nil, fmt.Errorf("loading tokens for %s: %w", athleteID, err)
	}
	providerID := stored.ProviderID
	return NewTokenSource(cfg, FromStored(stored), func(t *oauth2.Token) error {
		// refreshes happen inside outbound calls, detached from their deadline
		return repo.SaveProviderToken(context.WithoutCancel(ctx), ToStored(athleteID, providerID, t))
	}), nil
}

// Token returns a valid token, refreshing if necessary
func (ts *TokenSource) Token() (*oauth2.Token, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if time.Until(ts.token.Expiry) > refreshBuffer {
		return ts.token, nil
	}

	src := ts.config.TokenSource(context.Background(), ts.token)
	newToken, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: refreshing token: %v", strava.ErrUnauthorized, err)
	}

	// Persist the new token if callback is set
	if ts.onRefresh != nil {
		if err := ts.onRefresh(newToken); err != nil {
			return nil, fmt.Errorf("persisting refreshed token: %w", err)
		}
	}

	ts.token = newToken
	return newToken, nil
}

// IsExpired checks if the current token is expired or will expire within the buffer
func (ts *TokenSource) IsExpired() bool {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return time.Until(ts.token.Expiry) <= refreshBuffer
}
