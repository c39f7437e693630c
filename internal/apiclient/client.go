package apiclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Artufe/bravo-tango-bravo/internal/metrics"
)

const (
	DefaultTimeout    = 70 * time.Second
	DefaultMaxRetries = 6
	maxBodyBytes      = 64 << 20
)

// HTTPDoer abstracts the transport so tests can stub responses.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Capabilities describes how a single provider endpoint is called.
type Capabilities[In, Out any] struct {
	// Name labels logs, metrics and errors.
	Name string
	// Build creates a fresh request for every attempt.
	Build func(ctx context.Context, in In) (*http.Request, error)
	// CheckStatus may turn a status code into a terminal error before the retry policy applies.
	CheckStatus func(status int, body []byte) error
	// Confirm checks the provider's payload level success marker.
	Confirm func(body []byte) error
	Parse   func(body []byte) (Out, error)
}

// Client issues provider calls with the shared timeout and retry policy.
type Client struct {
	httpClient HTTPDoer
	maxRetries int
	retryDelay time.Duration
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// Option configures optional dependencies.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithMaxRetries sets how many times a failed attempt is repeated.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithRetryDelay pauses between attempts. Zero retries immediately.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// WithLimiter shares a token bucket across every call made through the client.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New builds a client with a 70 second per-attempt timeout and six retries.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		maxRetries: DefaultMaxRetries,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call runs the request described by caps. Timeouts and non-2xx responses share one
// retry counter; once it is spent a *ResponseCodeError is returned. Payload failures
// reported by Confirm are returned as is and never retried.
func Call[In, Out any](ctx context.Context, c *Client, caps Capabilities[In, Out], in In) (Out, error) {
	var zero Out
	if caps.Build == nil || caps.Parse == nil {
		return zero, fmt.Errorf("%s: incomplete capabilities", caps.Name)
	}

	start := time.Now()
	defer func() {
		metrics.ProviderCallDuration.WithLabelValues(caps.Name).Observe(time.Since(start).Seconds())
	}()

	log := c.logger.With(zap.String("provider", caps.Name))

	var (
		lastStatus int
		lastErr    error
		attempts   int
	)
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := c.pause(ctx); err != nil {
				return zero, err
			}
		}
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return zero, fmt.Errorf("%s: wait for rate limiter: %w", caps.Name, err)
			}
		}

		req, err := caps.Build(ctx, in)
		if err != nil {
			return zero, fmt.Errorf("%s: build request: %w", caps.Name, err)
		}

		attempts++
		status, body, err := c.send(req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return zero, ctxErr
			}
			if !isTimeout(err) {
				metrics.ProviderCalls.WithLabelValues(caps.Name, "transport_error").Inc()
				return zero, fmt.Errorf("%s: %w", caps.Name, err)
			}
			lastStatus, lastErr = 0, err
			metrics.ProviderRetries.WithLabelValues(caps.Name, "timeout").Inc()
			log.Warn("request timed out, retrying", zap.Int("attempt", attempts))
			continue
		}

		if caps.CheckStatus != nil {
			if err := caps.CheckStatus(status, body); err != nil {
				metrics.ProviderCalls.WithLabelValues(caps.Name, "rejected").Inc()
				return zero, err
			}
		}

		if status < 200 || status > 299 {
			lastStatus, lastErr = status, fmt.Errorf("unexpected status %d", status)
			metrics.ProviderRetries.WithLabelValues(caps.Name, "status").Inc()
			log.Warn("non-2xx response, retrying", zap.Int("status", status), zap.Int("attempt", attempts))
			continue
		}

		if caps.Confirm != nil {
			if err := caps.Confirm(body); err != nil {
				metrics.ProviderCalls.WithLabelValues(caps.Name, "payload_error").Inc()
				return zero, err
			}
		}

		out, err := caps.Parse(body)
		if err != nil {
			metrics.ProviderCalls.WithLabelValues(caps.Name, "parse_error").Inc()
			return zero, err
		}
		metrics.ProviderCalls.WithLabelValues(caps.Name, "ok").Inc()
		return out, nil
	}

	metrics.ProviderCalls.WithLabelValues(caps.Name, "exhausted").Inc()
	return zero, &ResponseCodeError{
		Provider:   caps.Name,
		StatusCode: lastStatus,
		Attempts:   attempts,
		Err:        lastErr,
	}
}

func (c *Client) send(req *http.Request) (int, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("read response body: %w", err)
	}
	return resp.StatusCode, body, nil
}

func (c *Client) pause(ctx context.Context) error {
	if c.retryDelay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(c.retryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
