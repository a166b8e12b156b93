package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// GetProviderToken retrieves the stored tokens for an athlete's provider account
func (s *Store) GetProviderToken(ctx context.Context, athleteID, provider string) (*ProviderToken, error) {
	row, err := s.queryRow(ctx, s.sb.Select("athlete_id", "provider", "provider_id", "access_token", "refresh_token", "expires_at").
		From("provider_tokens").
		Where(sq.Eq{"athlete_id": athleteID, "provider": provider}))
	if err != nil {
		return nil, err
	}

	var t ProviderToken
	var expiresAt int64
	err = row.Scan(&t.AthleteID, &t.Provider, &t.ProviderID, &t.AccessToken, &t.RefreshToken, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoAuth
	}
	if err != nil {
		return nil, err
	}

	t.ExpiresAt = time.Unix(expiresAt, 0)
	return &t, nil
}

// SaveProviderToken stores or updates the tokens for an athlete's provider account
func (s *Store) SaveProviderToken(ctx context.Context, t *ProviderToken) error {
	_, err := s.exec(ctx, s.sb.Insert("provider_tokens").
		Columns("athlete_id", "provider", "provider_id", "access_token", "refresh_token", "expires_at", "updated_at").
		Values(t.AthleteID, t.Provider, t.ProviderID, t.AccessToken, t.RefreshToken, t.ExpiresAt.Unix(), formatTime(time.Now())).
		Suffix(`ON CONFLICT (athlete_id, provider) DO UPDATE SET
			provider_id = excluded.provider_id,
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`))
	return err
}
