package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Artufe/bravo-tango-bravo/internal/entity"
)

const (
	DefaultValidationTTL = 30 * 24 * time.Hour
	keyPrefix            = "email:verdict:"
)

// Validator probes a single mailbox.
type Validator interface {
	Validate(ctx context.Context, email string) (entity.Validation, error)
}

// CachedValidator remembers verdicts so repeated runs do not pay for the same probe.
// Redis failures are logged and the call falls through to the wrapped validator.
type CachedValidator struct {
	next   Validator
	client redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

type cachedVerdict struct {
	Verdict entity.Verdict `json:"verdict"`
	Code    string         `json:"code"`
	Reason  string         `json:"reason"`
}

// NewCachedValidator wraps next. A non-positive ttl uses DefaultValidationTTL.
func NewCachedValidator(next Validator, client redis.Cmdable, ttl time.Duration, logger *zap.Logger) *CachedValidator {
	if ttl <= 0 {
		ttl = DefaultValidationTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedValidator{next: next, client: client, ttl: ttl, logger: logger}
}

// Validate returns the cached verdict for email when present and otherwise asks
// the wrapped validator, caching its answer for the configured TTL. Lookup or
// store failures on Redis are logged and never fail the call.
func (c *CachedValidator) Validate(ctx context.Context, email string) (entity.Validation, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	key := keyPrefix + email

	val, err := c.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		var cached cachedVerdict
		if jsonErr := json.Unmarshal([]byte(val), &cached); jsonErr == nil {
			return entity.Validation{
				Email:   email,
				Verdict: cached.Verdict,
				Code:    cached.Code,
				Reason:  cached.Reason,
			}, nil
		}
		c.logger.Warn("discarding corrupt cached verdict", zap.String("email", email))
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn("verdict cache read failed", zap.String("email", email), zap.Error(err))
	}

	result, err := c.next.Validate(ctx, email)
	if err != nil {
		return result, err
	}

	data, err := json.Marshal(cachedVerdict{Verdict: result.Verdict, Code: result.Code, Reason: result.Reason})
	if err != nil {
		return result, nil
	}
	if err := c.client.Set(ctx, key, string(data), c.ttl).Err(); err != nil {
		c.logger.Warn("verdict cache write failed", zap.String("email", email), zap.Error(err))
	}
	return result, nil
}
