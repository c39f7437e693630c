package emailfinder

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/idna"

	"github.com/Artufe/bravo-tango-bravo/internal/entity"
	"github.com/Artufe/bravo-tango-bravo/internal/metrics"
)

const (
	// DefaultAcceptAllThreshold is the number of accept-all verdicts after which
	// the first candidate is returned.
	DefaultAcceptAllThreshold = 5
	defaultMXTimeout          = 3 * time.Second
)

var (
	emailPattern = regexp.MustCompile(`^[\p{Ll}0-9._%+\-']+@[a-z0-9.-]+\.[a-z0-9-]{2,}$`)
	idnaProfile  = idna.Lookup
)

// ErrInvalidDomain is returned when the website cannot be turned into a mail domain.
var ErrInvalidDomain = errors.New("invalid mail domain")

// DNSResolver abstracts DNS lookups to simplify testing.
type DNSResolver interface {
	LookupMX(ctx context.Context, domain string) ([]*net.MX, error)
}

// Validator probes a single mailbox.
type Validator interface {
	Validate(ctx context.Context, email string) (entity.Validation, error)
}

// Finder guesses and verifies a person's work address.
type Finder struct {
	validator          Validator
	dnsResolver        DNSResolver
	acceptAllThreshold int
	mxTimeout          time.Duration
	logger             *zap.Logger
}

// Option configures optional dependencies.
type Option func(*Finder)

// WithDNSResolver overrides the default DNS resolver.
func WithDNSResolver(resolver DNSResolver) Option {
	return func(f *Finder) {
		if resolver != nil {
			f.dnsResolver = resolver
		}
	}
}

// WithAcceptAllThreshold sets how many accept-all verdicts are tolerated.
func WithAcceptAllThreshold(n int) Option {
	return func(f *Finder) {
		if n > 0 {
			f.acceptAllThreshold = n
		}
	}
}

// WithMXTimeout bounds the MX lookup.
func WithMXTimeout(d time.Duration) Option {
	return func(f *Finder) {
		if d > 0 {
			f.mxTimeout = d
		}
	}
}

// WithLogger sets the logger used for probe results.
func WithLogger(logger *zap.Logger) Option {
	return func(f *Finder) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// New builds a finder backed by validator.
func New(validator Validator, opts ...Option) *Finder {
	f := &Finder{
		validator:          validator,
		dnsResolver:        systemDNSResolver{},
		acceptAllThreshold: DefaultAcceptAllThreshold,
		mxTimeout:          defaultMXTimeout,
		logger:             zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Find returns the first verified address for the person at website, or an
// empty string when none could be confirmed. Validator errors are returned as is.
func (f *Finder) Find(ctx context.Context, first, last, website string) (string, error) {
	domain, err := MailDomain(website)
	if err != nil {
		return "", err
	}

	log := f.logger.With(zap.String("domain", domain))
	if !f.hasMXRecord(ctx, domain) {
		log.Info("no mail server found")
		return "", nil
	}

	locals := Candidates(first, last)
	emails := make([]string, 0, len(locals))
	for _, local := range locals {
		email := local + "@" + domain
		if !emailPattern.MatchString(email) {
			continue
		}
		emails = append(emails, email)
	}

	acceptAll := 0
	for _, email := range emails {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		result, err := f.validator.Validate(ctx, email)
		if err != nil {
			return "", fmt.Errorf("validate %s: %w", email, err)
		}
		metrics.EmailProbes.WithLabelValues(result.Verdict.String()).Inc()
		log.Debug("email probed",
			zap.String("email", email),
			zap.Stringer("verdict", result.Verdict),
			zap.String("reason", result.Reason),
		)

		switch result.Verdict {
		case entity.VerdictDeliverable:
			log.Info("email found", zap.String("email", email))
			return email, nil
		case entity.VerdictAcceptAll:
			acceptAll++
			if acceptAll >= f.acceptAllThreshold {
				log.Info("domain accepts all mail", zap.String("email", emails[0]))
				return emails[0], nil
			}
		}
	}

	log.Info("no email found", zap.String("first_name", first), zap.String("last_name", last))
	return "", nil
}

// MailDomain reduces a website or URL to the ASCII domain used for addresses.
func MailDomain(website string) (string, error) {
	raw := strings.TrimSpace(website)
	if raw == "" {
		return "", ErrInvalidDomain
	}
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			return "", ErrInvalidDomain
		}
		raw = u.Hostname()
	} else if idx := strings.IndexAny(raw, "/?#"); idx >= 0 {
		raw = raw[:idx]
	}
	domain := strings.TrimPrefix(strings.ToLower(strings.Trim(raw, ".")), "www.")
	if !isDomainValid(domain) {
		return "", ErrInvalidDomain
	}
	ascii, err := idnaProfile.ToASCII(domain)
	if err != nil || ascii == "" {
		return "", ErrInvalidDomain
	}
	return ascii, nil
}

func (f *Finder) hasMXRecord(ctx context.Context, domain string) bool {
	if f.dnsResolver == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, f.mxTimeout)
	defer cancel()
	records, err := f.dnsResolver.LookupMX(ctx, domain)
	return err == nil && len(records) > 0
}

func isDomainValid(domain string) bool {
	if strings.Count(domain, ".") == 0 {
		return false
	}
	for _, part := range strings.Split(domain, ".") {
		if part == "" || strings.HasPrefix(part, "-") || strings.HasSuffix(part, "-") {
			return false
		}
	}
	return true
}

type systemDNSResolver struct{}

func (systemDNSResolver) LookupMX(ctx context.Context, domain string) ([]*net.MX, error) {
	return net.DefaultResolver.LookupMX(ctx, domain)
}
