// Package app assembles the enrichment pipeline from configuration.
package app

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Artufe/bravo-tango-bravo/internal/apiclient"
	"github.com/Artufe/bravo-tango-bravo/internal/cache"
	"github.com/Artufe/bravo-tango-bravo/internal/config"
	"github.com/Artufe/bravo-tango-bravo/internal/enrich"
	"github.com/Artufe/bravo-tango-bravo/internal/provider"
	"github.com/Artufe/bravo-tango-bravo/internal/service/emailfinder"
	"github.com/Artufe/bravo-tango-bravo/internal/service/match"
	"github.com/Artufe/bravo-tango-bravo/internal/service/normalize"
)

// ErrMissingCredentials is returned when a provider key is not configured.
var ErrMissingCredentials = errors.New("missing provider credentials")

// Options carries the optional collaborators of a pipeline.
type Options struct {
	Store enrich.Store
	// Redis enables the mailbox verdict cache.
	Redis        redis.Cmdable
	MissingSites io.Writer
	HTTPClient   apiclient.HTTPDoer
	// BaseURLs override provider endpoints, keyed by provider name.
	BaseURLs map[string]string
}

// NewPipeline wires providers, normalizer, email finder and matcher into a pipeline.
func NewPipeline(cfg *config.Config, logger *zap.Logger, opts Options) (*enrich.Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := checkCredentials(cfg.Providers); err != nil {
		return nil, err
	}

	serp := provider.NewDataForSEO(newAPIClient(cfg.Providers, logger, opts.HTTPClient), cfg.Providers.DataForSEOKey,
		provider.WithBaseURL(opts.BaseURLs["dataforseo"]),
		provider.WithPollConfig(apiclient.PollConfig{
			Interval:    cfg.Providers.PollInterval,
			MaxAttempts: cfg.Providers.PollMaxAttempts,
			Timeout:     pollTimeout(cfg.Providers),
		}),
	)
	geocoder := provider.NewOpenCage(newAPIClient(cfg.Providers, logger, opts.HTTPClient), cfg.Providers.OpenCageKey, opts.BaseURLs["opencage"])

	var validator emailfinder.Validator = provider.NewDebounce(newAPIClient(cfg.Providers, logger, opts.HTTPClient), cfg.Providers.DebounceKey, opts.BaseURLs["debounce"])
	if opts.Redis != nil {
		validator = cache.NewCachedValidator(validator, opts.Redis, cfg.ValidationCacheTTL, logger.Named("cache"))
	}

	normOpts := []normalize.Option{
		normalize.WithMaxDistance(cfg.Enrich.MaxDistanceKM),
		normalize.WithPhoneRegion(cfg.Enrich.PhoneRegion),
		normalize.WithLogger(logger.Named("normalize")),
	}
	if opts.MissingSites != nil {
		normOpts = append(normOpts, normalize.WithMissingSitesWriter(opts.MissingSites))
	}

	finder := emailfinder.New(validator,
		emailfinder.WithAcceptAllThreshold(cfg.Enrich.AcceptAllThreshold),
		emailfinder.WithLogger(logger.Named("emailfinder")),
	)

	pipelineOpts := []enrich.Option{
		enrich.WithMatcher(match.New(cfg.Enrich.MatchThreshold)),
		enrich.WithWorkers(cfg.Enrich.Workers),
		enrich.WithSearchPrefix(cfg.Enrich.SearchPrefix),
		enrich.WithLogger(logger.Named("enrich")),
	}
	if opts.Store != nil {
		pipelineOpts = append(pipelineOpts, enrich.WithStore(opts.Store))
	}

	return enrich.New(enrich.Dependencies{
		Places:     serp,
		Geocoder:   geocoder,
		Search:     serp,
		Normalizer: normalize.New(normOpts...),
		Finder:     finder,
	}, pipelineOpts...)
}

// OpenMissingSites opens the side file for listings without a website in
// append mode. An empty path returns a nil writer.
func OpenMissingSites(path string) (io.WriteCloser, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open missing sites file: %w", err)
	}
	return f, nil
}

// newAPIClient builds the client of one provider, with its own token bucket.
func newAPIClient(cfg config.ProviderConfig, logger *zap.Logger, doer apiclient.HTTPDoer) *apiclient.Client {
	if doer == nil && cfg.RequestTimeout > 0 {
		doer = &http.Client{Timeout: cfg.RequestTimeout}
	}
	opts := []apiclient.Option{
		apiclient.WithMaxRetries(cfg.MaxRetries),
		apiclient.WithRetryDelay(cfg.RetryDelay),
		apiclient.WithLogger(logger.Named("apiclient")),
		apiclient.WithHTTPClient(doer),
	}
	if perSecond := cfg.RateLimit.PerSecond(); perSecond > 0 {
		burst := cfg.RateLimit.Requests
		if burst <= 0 {
			burst = 1
		}
		opts = append(opts, apiclient.WithLimiter(rate.NewLimiter(rate.Limit(perSecond), burst)))
	}
	return apiclient.New(opts...)
}

// pollTimeout leaves room for every poll attempt plus one request timeout.
func pollTimeout(cfg config.ProviderConfig) time.Duration {
	if cfg.PollInterval <= 0 || cfg.PollMaxAttempts <= 0 {
		return apiclient.DefaultPollConfig.Timeout
	}
	return cfg.PollInterval*time.Duration(cfg.PollMaxAttempts) + cfg.RequestTimeout
}

func checkCredentials(cfg config.ProviderConfig) error {
	var missing []string
	if cfg.DataForSEOKey == "" {
		missing = append(missing, "DATAFORSEO_API_KEY")
	}
	if cfg.OpenCageKey == "" {
		missing = append(missing, "OPENCAGE_API_KEY")
	}
	if cfg.DebounceKey == "" {
		missing = append(missing, "DEBOUNCE_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return nil
}
