package auth

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"aisri/internal/store"
	"aisri/internal/strava"
)

func tokenServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status == http.StatusOK {
			w.Write([]byte(`{"access_token":"new-access","refresh_token":"new-refresh","token_type":"Bearer","expires_in":21600,"athlete":{"id":99}}`))
			return
		}
		w.Write([]byte(`{"message":"Bad Request","errors":[{"field":"refresh_token","code":"invalid"}]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func oauthConfig(tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		Endpoint:     oauth2.Endpoint{TokenURL: tokenURL, AuthStyle: oauth2.AuthStyleInParams},
	}
}

func TestTokenSourceReturnsValidToken(t *testing.T) {
	tok := &oauth2.Token{AccessToken: "a", Expiry: time.Now().Add(time.Hour)}
	ts := NewTokenSource(oauthConfig("http://unused"), tok, func(*oauth2.Token) error {
		t.Fatal("refresh should not happen")
		return nil
	})

	got, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "a", got.AccessToken)
	assert.False(t, ts.IsExpired())
}

func TestTokenSourceRefreshesAndPersists(t *testing.T) {
	srv := tokenServer(t, http.StatusOK)

	var persisted *oauth2.Token
	tok := &oauth2.Token{AccessToken: "old", RefreshToken: "r", Expiry: time.Now().Add(-time.Minute)}
	ts := NewTokenSource(oauthConfig(srv.URL), tok, func(nt *oauth2.Token) error {
		persisted = nt
		return nil
	})

	got, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "new-access", got.AccessToken)
	require.NotNil(t, persisted)
	assert.Equal(t, "new-refresh", persisted.RefreshToken)
	assert.Equal(t, int64(99), ExtractAthleteID(got))
}

func TestTokenSourceRefreshFailureIsUnauthorized(t *testing.T) {
	srv := tokenServer(t, http.StatusBadRequest)

	tok := &oauth2.Token{AccessToken: "old", RefreshToken: "r", Expiry: time.Now().Add(-time.Minute)}
	ts := NewTokenSource(oauthConfig(srv.URL), tok, nil)

	_, err := ts.Token()
	assert.True(t, errors.Is(err, strava.ErrUnauthorized), "err = %v", err)
}

func TestStoredTokenSourcePersistsToRepository(t *testing.T) {
	ctx := context.Background()
	srv := tokenServer(t, http.StatusOK)

	s, err := store.OpenInMemory()
	require.NoError(t, err)
	defer s.Close()

	a := &store.Athlete{Name: "Token Runner"}
	require.NoError(t, s.CreateAthlete(ctx, a))
	require.NoError(t, s.SaveProviderToken(ctx, &store.ProviderToken{
		AthleteID: a.ID, Provider: ProviderStrava, ProviderID: 99,
		AccessToken: "old", RefreshToken: "r", ExpiresAt: time.Now().Add(-time.Hour),
	}))

	ts, err := NewStoredTokenSource(ctx, oauthConfig(srv.URL), s, a.ID)
	require.NoError(t, err)
	_, err = ts.Token()
	require.NoError(t, err)

	stored, err := s.GetProviderToken(ctx, a.ID, ProviderStrava)
	require.NoError(t, err)
	assert.Equal(t, "new-access", stored.AccessToken)
	assert.Equal(t, int64(99), stored.ProviderID)
}

func TestNewStoredTokenSourceWithoutTokens(t *testing.T) {
	s, err := store.OpenInMemory()
	require.NoError(t, err)
	defer s.Close()

	_, err = NewStoredTokenSource(context.Background(), oauthConfig("x"), s, "nobody")
	assert.ErrorIs(t, err, store.ErrNoAuth)
}

func TestCallbackHandler(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantCode string
		wantErr  error
		status   int
	}{
		{"approved", "?state=st&code=abc", "abc", nil, http.StatusOK},
		{"wrong state", "?state=other&code=abc", "", ErrStateMismatch, http.StatusBadRequest},
		{"denied", "?state=st&error=access_denied", "", ErrAccessDenied, http.StatusBadRequest},
		{"no code", "?state=st", "", nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := make(chan callback, 1)
			rec := httptest.NewRecorder()
			callbackHandler("st", results).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback"+tt.query, nil))
			assert.Equal(t, tt.status, rec.Code)

			got := <-results
			assert.Equal(t, tt.wantCode, got.code)
			if tt.wantErr != nil {
				assert.ErrorIs(t, got.err, tt.wantErr)
			}
			if tt.status != http.StatusOK {
				assert.Error(t, got.err)
			}
		})
	}
}

func TestCallbackHandlerDeliversOnce(t *testing.T) {
	results := make(chan callback, 1)
	h := callbackHandler("st", results)
	for range 3 {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?state=st&code=c", nil))
	}
	assert.Len(t, results, 1)
}

func TestFlowExchange(t *testing.T) {
	srv := tokenServer(t, http.StatusOK)
	f := &Flow{Config: oauthConfig(srv.URL)}

	res, err := f.exchange(context.Background(), "code")
	require.NoError(t, err)
	assert.Equal(t, "new-access", res.Token.AccessToken)
	assert.Equal(t, int64(99), res.AthleteID)
}

func TestFlowTimesOut(t *testing.T) {
	var out bytes.Buffer
	f := &Flow{Config: oauthConfig("http://unused"), Addr: "127.0.0.1:0", Timeout: 50 * time.Millisecond, Out: &out}

	_, err := f.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no approval")
	assert.Contains(t, out.String(), "state=")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
