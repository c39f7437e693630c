package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// RateLimitConfig indicates how many requests are allowed within a given interval.
type RateLimitConfig struct {
	Requests int
	Interval time.Duration
}

// ProviderConfig holds credentials and transport settings for the external APIs.
type ProviderConfig struct {
	DataForSEOKey   string
	OpenCageKey     string
	DebounceKey     string
	RateLimit       RateLimitConfig
	RequestTimeout  time.Duration
	MaxRetries      int
	RetryDelay      time.Duration
	PollInterval    time.Duration
	PollMaxAttempts int
}

// EnrichConfig tunes the enrichment pipeline.
type EnrichConfig struct {
	MaxDistanceKM      float64
	MatchThreshold     int
	AcceptAllThreshold int
	Workers            int
	SearchPrefix       string
	PhoneRegion        string
	MissingSitesFile   string
}

// Config aggregates application-wide configuration values.
type Config struct {
	DatabaseURL        string
	RedisURL           string
	JWTSecret          string
	Port               string
	PublishURL         string
	RateLimitEnqueue   RateLimitConfig
	TokenTTL           time.Duration
	ValidationCacheTTL time.Duration
	LogLevel           string
	LogFormat          string
	Providers          ProviderConfig
	Enrich             EnrichConfig
}

var defaults = map[string]any{
	"port":                 "8080",
	"jwt_secret":           "dev-secret",
	"jwt_ttl":              "24h",
	"rate_limit_enqueue":   "5/min",
	"provider_rate_limit":  "10/sec",
	"request_timeout":      "70s",
	"max_retries":          6,
	"retry_delay":          "0s",
	"poll_interval":        "5s",
	"poll_max_attempts":    120,
	"max_distance_km":      150.0,
	"match_threshold":      70,
	"accept_all_threshold": 5,
	"enrich_workers":       1,
	"search_prefix":        "inurl:uk.linkedin.com/in",
	"phone_region":         "GB",
	"missing_sites_file":   "missing_sites.txt",
	"validation_cache_ttl": "720h",
	"log_level":            "info",
	"log_format":           "json",
}

// Load reads configuration from environment variables, optionally layered over a
// config.yaml found in the working directory or ./configs.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	cfg := &Config{
		DatabaseURL:        v.GetString("database_url"),
		RedisURL:           v.GetString("redis_url"),
		JWTSecret:          v.GetString("jwt_secret"),
		Port:               v.GetString("port"),
		PublishURL:         v.GetString("publish_url"),
		TokenTTL:           parseDuration(v.GetString("jwt_ttl"), 24*time.Hour),
		ValidationCacheTTL: parseDuration(v.GetString("validation_cache_ttl"), 720*time.Hour),
		LogLevel:           strings.ToLower(v.GetString("log_level")),
		LogFormat:          strings.ToLower(v.GetString("log_format")),
		Providers: ProviderConfig{
			DataForSEOKey:   v.GetString("dataforseo_api_key"),
			OpenCageKey:     v.GetString("opencage_api_key"),
			DebounceKey:     v.GetString("debounce_api_key"),
			RequestTimeout:  parseDuration(v.GetString("request_timeout"), 70*time.Second),
			MaxRetries:      v.GetInt("max_retries"),
			RetryDelay:      parseDuration(v.GetString("retry_delay"), 0),
			PollInterval:    parseDuration(v.GetString("poll_interval"), 5*time.Second),
			PollMaxAttempts: v.GetInt("poll_max_attempts"),
		},
		Enrich: EnrichConfig{
			MaxDistanceKM:      v.GetFloat64("max_distance_km"),
			MatchThreshold:     v.GetInt("match_threshold"),
			AcceptAllThreshold: v.GetInt("accept_all_threshold"),
			Workers:            v.GetInt("enrich_workers"),
			SearchPrefix:       v.GetString("search_prefix"),
			PhoneRegion:        strings.ToUpper(v.GetString("phone_region")),
			MissingSitesFile:   v.GetString("missing_sites_file"),
		},
	}

	rl, err := parseRateLimit(v.GetString("rate_limit_enqueue"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_ENQUEUE value: %w", err)
	}
	cfg.RateLimitEnqueue = rl

	prl, err := parseRateLimit(v.GetString("provider_rate_limit"))
	if err != nil {
		return nil, fmt.Errorf("invalid PROVIDER_RATE_LIMIT value: %w", err)
	}
	cfg.Providers.RateLimit = prl

	if cfg.Providers.MaxRetries < 0 {
		return nil, fmt.Errorf("MAX_RETRIES must not be negative, got %d", cfg.Providers.MaxRetries)
	}
	if cfg.Enrich.Workers < 1 {
		cfg.Enrich.Workers = 1
	}

	return cfg, nil
}

// PerSecond converts the limit into a token bucket refill rate.
func (r RateLimitConfig) PerSecond() float64 {
	if r.Interval <= 0 {
		return 0
	}
	return float64(r.Requests) / r.Interval.Seconds()
}

func parseRateLimit(value string) (RateLimitConfig, error) {
	parts := strings.Split(value, "/")
	if len(parts) != 2 {
		return RateLimitConfig{}, fmt.Errorf("expected format <requests>/<interval>, got %q", value)
	}

	requests, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || requests <= 0 {
		return RateLimitConfig{}, fmt.Errorf("invalid request count: %v", parts[0])
	}

	unit := strings.ToLower(strings.TrimSpace(parts[1]))
	var interval time.Duration
	switch unit {
	case "s", "sec", "second", "seconds":
		interval = time.Second
	case "m", "min", "minute", "minutes":
		interval = time.Minute
	case "h", "hr", "hour", "hours":
		interval = time.Hour
	default:
		return RateLimitConfig{}, fmt.Errorf("unsupported interval unit: %s", unit)
	}

	return RateLimitConfig{Requests: requests, Interval: interval}, nil
}

func parseDuration(input string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(input))
	if err != nil {
		return fallback
	}
	return d
}
