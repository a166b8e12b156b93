package auth

import (
	"time"

	"golang.org/x/oauth2"

	"aisri/internal/config"
	"aisri/internal/store"
)

const (
	// Strava OAuth endpoints
	AuthURL  = "https://www.strava.com/oauth/authorize"
	TokenURL = "https://www.strava.com/oauth/token"

	// ProviderStrava is the provider key used for stored tokens
	ProviderStrava = "strava"
)

// Scopes required for our app (Strava uses comma-separated scopes)
var Scopes = []string{
	"read,activity:read_all",
}

// NewOAuthConfig creates an oauth2.Config from the Strava settings
func NewOAuthConfig(cfg config.StravaConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  AuthURL,
			TokenURL: TokenURL,
		},
		RedirectURL: CallbackURL(),
		Scopes:      Scopes,
	}
}

// AuthResult contains the token and athlete info from successful auth
type AuthResult struct {
	Token     *oauth2.Token
	AthleteID int64
}

// ExtractAthleteID extracts the athlete ID from the token extras
// Strava includes athlete info in the token response
func ExtractAthleteID(token *oauth2.Token) int64 {
	if athlete, ok := token.Extra("athlete").(map[string]interface{}); ok {
		if id, ok := athlete["id"].(float64); ok {
			return int64(id)
		}
	}
	return 0
}

// FromStored converts persisted provider tokens into an oauth2 token
func FromStored(t *store.ProviderToken) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       t.ExpiresAt,
	}
}

// ToStored converts an oauth2 token for persistence
func ToStored(athleteID string, providerID int64, t *oauth2.Token) *store.ProviderToken {
	expiry := t.Expiry
	if expiry.IsZero() {
		expiry = time.Now().Add(6 * time.Hour)
	}
	return &store.ProviderToken{
		AthleteID:    athleteID,
		Provider:     ProviderStrava,
		ProviderID:   providerID,
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    expiry,
	}
}
