package strava

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
)

const BaseURL = "https://www.strava.com/api/v3"

// ErrUnauthorized is returned when Strava rejects the token or a refresh fails
var ErrUnauthorized = errors.New("strava authorization required")

// Config controls transport behaviour
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	Attempts    int
	BackoffBase time.Duration
}

// DefaultConfig returns 30s timeouts with 3 attempts and a 2s backoff base
func DefaultConfig() Config {
	return Config{
		BaseURL:     BaseURL,
		Timeout:     30 * time.Second,
		Attempts:    3,
		BackoffBase: 2 * time.Second,
	}
}

// Client is a Strava API client
type Client struct {
	rest        *resty.Client
	rateLimiter *RateLimiter
}

// NewClient creates a new Strava API client authenticated by tokenSource
func NewClient(tokenSource oauth2.TokenSource, cfg Config) *Client {
	return newClient(oauth2.NewClient(context.Background(), tokenSource), cfg)
}

func newClient(httpClient *http.Client, cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = BaseURL
	}
	retries := cfg.Attempts - 1
	if retries < 0 {
		retries = 0
	}

	c := &Client{rateLimiter: NewRateLimiter()}
	c.rest = resty.NewWithClient(httpClient).
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(retries).
		SetRetryWaitTime(cfg.BackoffBase).
		SetRetryMaxWaitTime(cfg.BackoffBase * 8).
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return !isAuthError(err)
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		}).
		OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return c.rateLimiter.Wait(req.Context())
		}).
		OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
			c.rateLimiter.UpdateFromHeaders(resp.Header())
			return nil
		})
	return c
}

// GetActivities fetches activities with pagination
// Returns activities after 'after' timestamp, up to 'perPage' results
func (c *Client) GetActivities(ctx context.Context, after time.Time, page, perPage int) ([]Activity, error) {
	params := map[string]string{
		"page":     strconv.Itoa(page),
		"per_page": strconv.Itoa(perPage),
	}
	if !after.IsZero() {
		params["after"] = strconv.FormatInt(after.Unix(), 10)
	}

	var activities []Activity
	if err := c.get(ctx, "/athlete/activities", params, &activities); err != nil {
		return nil, err
	}
	return activities, nil
}

// GetAllActivities fetches all activities after a given time
// It handles pagination automatically and respects rate limits
func (c *Client) GetAllActivities(ctx context.Context, after time.Time, onProgress func(fetched int)) ([]Activity, error) {
	var allActivities []Activity
	page := 1
	perPage := 100 // Max allowed by Strava

	for {
		activities, err := c.GetActivities(ctx, after, page, perPage)
		if err != nil {
			return allActivities, fmt.Errorf("fetching page %d: %w", page, err)
		}

		if len(activities) == 0 {
			break
		}

		allActivities = append(allActivities, activities...)

		if onProgress != nil {
			onProgress(len(allActivities))
		}

		if len(activities) < perPage {
			break // Last page
		}

		page++
	}

	return allActivities, nil
}

// GetActivity fetches one detailed activity including its metric splits
func (c *Client) GetActivity(ctx context.Context, id int64) (*Activity, error) {
	var a Activity
	if err := c.get(ctx, fmt.Sprintf("/activities/%d", id), nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// RateLimitStatus returns the current rate limit status
func (c *Client) RateLimitStatus() (shortRemaining, dailyRemaining int) {
	return c.rateLimiter.Status()
}

func (c *Client) get(ctx context.Context, path string, params map[string]string, out any) error {
	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(out).
		Get(path)
	if err != nil {
		if isAuthError(err) {
			return fmt.Errorf("%w: %v", ErrUnauthorized, err)
		}
		return fmt.Errorf("requesting %s: %w", path, err)
	}

	if resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden {
		return fmt.Errorf("%w: %s", ErrUnauthorized, resp.String())
	}
	if resp.IsError() {
		return fmt.Errorf("API error %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// isAuthError reports a failed token refresh
func isAuthError(err error) bool {
	var re *oauth2.RetrieveError
	return errors.As(err, &re) || errors.Is(err, ErrUnauthorized)
}
