package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// EnvConfigPath overrides the config file location
const EnvConfigPath = "AISRI_CONFIG"

// Config represents the application configuration
type Config struct {
	Strava   StravaConfig   `json:"strava"`
	Database DatabaseConfig `json:"database"`
	Server   ServerConfig   `json:"server"`
	Cache    CacheConfig    `json:"cache"`
	Schedule ScheduleConfig `json:"schedule"`
	Provider ProviderConfig `json:"provider"`
	Athlete  AthleteConfig  `json:"athlete"`
	Log      LogConfig      `json:"log"`
}

// StravaConfig holds Strava API credentials and webhook settings
type StravaConfig struct {
	ClientID           string `json:"client_id"`
	ClientSecret       string `json:"client_secret"`
	WebhookVerifyToken string `json:"webhook_verify_token"`
	// WebhookSecret enables HMAC-SHA256 verification of webhook bodies when set
	WebhookSecret string `json:"webhook_secret,omitempty"`
}

// DatabaseConfig selects the storage backend
type DatabaseConfig struct {
	Driver string `json:"driver"` // sqlite or postgres
	DSN    string `json:"dsn"`
}

// ServerConfig holds the HTTP listener settings
type ServerConfig struct {
	Addr string `json:"addr"`
}

// CacheConfig holds the readiness cache settings
type CacheConfig struct {
	Dir string   `json:"dir"`
	TTL Duration `json:"ttl"`
}

// ScheduleConfig controls the daily recompute job
type ScheduleConfig struct {
	DailyCron   string `json:"daily_cron"`
	Parallelism int    `json:"parallelism"`
}

// ProviderConfig controls outbound calls to activity providers
type ProviderConfig struct {
	Timeout     Duration `json:"timeout"`
	Attempts    int      `json:"attempts"`
	BackoffBase Duration `json:"backoff_base"`
}

// AthleteConfig holds defaults applied to new athletes
type AthleteConfig struct {
	RestingHR   float64 `json:"resting_hr"`
	MaxHR       float64 `json:"max_hr"`
	ThresholdHR float64 `json:"threshold_hr"`
}

// LogConfig selects the slog handler
type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"` // text or json
}

// Duration is a time.Duration encoded as a Go duration string in JSON
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration { return time.Duration(d) }

// ErrNoConfig is returned when the config file doesn't exist
var ErrNoConfig = errors.New("config file not found")

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Database: DatabaseConfig{
			Driver: "sqlite",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Cache: CacheConfig{
			TTL: Duration(24 * time.Hour),
		},
		Schedule: ScheduleConfig{
			DailyCron:   "0 4 * * *",
			Parallelism: 4,
		},
		Provider: ProviderConfig{
			Timeout:     Duration(30 * time.Second),
			Attempts:    3,
			BackoffBase: Duration(2 * time.Second),
		},
		Athlete: AthleteConfig{
			RestingHR:   50,
			MaxHR:       185,
			ThresholdHR: 165,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the configuration from ~/.aisri/config.json or $AISRI_CONFIG
func Load() (*Config, error) {
	path, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads the configuration from path, filling unset fields with defaults
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, ErrNoConfig
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// applyDefaults fills zero values that an explicit JSON null or 0 may have cleared
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Database.Driver == "" {
		c.Database.Driver = defaults.Database.Driver
	}
	if c.Server.Addr == "" {
		c.Server.Addr = defaults.Server.Addr
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = defaults.Cache.TTL
	}
	if c.Schedule.DailyCron == "" {
		c.Schedule.DailyCron = defaults.Schedule.DailyCron
	}
	if c.Schedule.Parallelism == 0 {
		c.Schedule.Parallelism = defaults.Schedule.Parallelism
	}
	if c.Provider.Timeout == 0 {
		c.Provider.Timeout = defaults.Provider.Timeout
	}
	if c.Provider.Attempts == 0 {
		c.Provider.Attempts = defaults.Provider.Attempts
	}
	if c.Provider.BackoffBase == 0 {
		c.Provider.BackoffBase = defaults.Provider.BackoffBase
	}
	if c.Athlete.RestingHR == 0 {
		c.Athlete.RestingHR = defaults.Athlete.RestingHR
	}
	if c.Athlete.MaxHR == 0 {
		c.Athlete.MaxHR = defaults.Athlete.MaxHR
	}
	if c.Athlete.ThresholdHR == 0 {
		c.Athlete.ThresholdHR = defaults.Athlete.ThresholdHR
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = defaults.Log.Format
	}
}

// Save writes the configuration to ~/.aisri/config.json or $AISRI_CONFIG
func Save(cfg *Config) error {
	path, err := getConfigPath()
	if err != nil {
		return err
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// CreateExample creates an example config file if none exists
func CreateExample() error {
	path, err := getConfigPath()
	if err != nil {
		return err
	}

	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return nil // Config exists, don't overwrite
	}

	example := DefaultConfig()
	example.Strava = StravaConfig{
		ClientID:           "YOUR_CLIENT_ID",
		ClientSecret:       "YOUR_CLIENT_SECRET",
		WebhookVerifyToken: "CHOOSE_A_VERIFY_TOKEN",
	}

	return Save(&example)
}

// Validate checks if the config has required fields
func (c *Config) Validate() error {
	if c.Strava.ClientID == "" || c.Strava.ClientID == "YOUR_CLIENT_ID" {
		return errors.New("strava.client_id is required - get it from https://www.strava.com/settings/api")
	}
	if c.Strava.ClientSecret == "" || c.Strava.ClientSecret == "YOUR_CLIENT_SECRET" {
		return errors.New("strava.client_secret is required - get it from https://www.strava.com/settings/api")
	}
	return c.ValidateCore()
}

// ValidateCore checks the settings needed without Strava access
func (c *Config) ValidateCore() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be \"sqlite\" or \"postgres\", got %q", c.Database.Driver)
	}
	if c.Database.Driver == "postgres" && c.Database.DSN == "" {
		return errors.New("database.dsn is required for postgres")
	}

	if c.Schedule.DailyCron != "" {
		if _, err := cron.ParseStandard(c.Schedule.DailyCron); err != nil {
			return fmt.Errorf("schedule.daily_cron %q: %w", c.Schedule.DailyCron, err)
		}
	}
	if c.Schedule.Parallelism < 0 {
		return fmt.Errorf("schedule.parallelism must be positive, got %d", c.Schedule.Parallelism)
	}
	if c.Provider.Attempts < 0 {
		return fmt.Errorf("provider.attempts must not be negative, got %d", c.Provider.Attempts)
	}

	if c.Log.Format != "" && c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be \"text\" or \"json\", got %q", c.Log.Format)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}

	// Validate threshold_hr < max_hr when both are set
	if c.Athlete.ThresholdHR > 0 && c.Athlete.MaxHR > 0 && c.Athlete.ThresholdHR >= c.Athlete.MaxHR {
		return fmt.Errorf("athlete.threshold_hr (%v) must be less than athlete.max_hr (%v)", c.Athlete.ThresholdHR, c.Athlete.MaxHR)
	}

	return nil
}

// SlogLevel parses the configured log level
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if l.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.ToLower(l.Level))); err != nil {
		return 0, fmt.Errorf("log.level %q: %w", l.Level, err)
	}
	return level, nil
}

// getConfigPath returns the path to the config file
func getConfigPath() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".aisri"), nil
}
