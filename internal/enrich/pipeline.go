package enrich

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Artufe/bravo-tango-bravo/internal/apiclient"
	"github.com/Artufe/bravo-tango-bravo/internal/entity"
	"github.com/Artufe/bravo-tango-bravo/internal/geo"
	"github.com/Artufe/bravo-tango-bravo/internal/metrics"
	"github.com/Artufe/bravo-tango-bravo/internal/service/match"
)

const (
	DefaultSearchPrefix = "inurl:uk.linkedin.com/in"
	DefaultZoom         = 11
	defaultMaxPages     = 10
	finalizeTimeout     = 10 * time.Second
)

// PlaceSearcher finds businesses around a point.
type PlaceSearcher interface {
	SearchPlaces(ctx context.Context, query string, lat, lng float64, zoom int, pageToken string) (entity.PlacePage, error)
}

// Geocoder resolves a place name to coordinates.
type Geocoder interface {
	Forward(ctx context.Context, place string) (geo.Point, error)
}

// TextSearcher runs asynchronous web searches.
type TextSearcher interface {
	Submit(ctx context.Context, keyword string) (string, error)
	Retrieve(ctx context.Context, taskID string) ([]entity.OrganicResult, error)
}

// Normalizer turns raw place hits into candidate companies.
type Normalizer interface {
	Normalize(hits []entity.PlaceResult, origin geo.Point) []entity.Company
}

// EmailFinder resolves a verified address for a person at a website.
type EmailFinder interface {
	Find(ctx context.Context, first, last, website string) (string, error)
}

// Store persists runs and their companies.
type Store interface {
	CreateQuery(ctx context.Context, q *entity.Query) error
	FinishQuery(ctx context.Context, q *entity.Query) error
	SaveCompany(ctx context.Context, queryID uuid.UUID, company *entity.Company) error
	// LinkCompany attaches an already stored company to another run.
	LinkCompany(ctx context.Context, queryID, companyID uuid.UUID) error
	FindDoneByWebsites(ctx context.Context, websites []string) (map[string]entity.Company, error)
}

// Dependencies groups the collaborators required by a Pipeline.
type Dependencies struct {
	Places     PlaceSearcher
	Geocoder   Geocoder
	Search     TextSearcher
	Normalizer Normalizer
	Finder     EmailFinder
}

// Request selects the companies to enrich. When Companies is non-nil the run
// is an import and Sector/Location are informational only. A zero QueryID is
// replaced by a fresh one.
type Request struct {
	QueryID   uuid.UUID
	Sector    string
	Location  string
	Companies []entity.Company
}

// Type reports the query type implied by the request.
func (r Request) Type() entity.QueryType {
	if r.Companies != nil {
		return entity.QueryTypeFromCSV
	}
	return entity.QueryTypeStandard
}

// Validate checks that a standard request names what to search for.
func (r Request) Validate() error {
	if r.Type() == entity.QueryTypeFromCSV {
		return nil
	}
	if strings.TrimSpace(r.Sector) == "" || strings.TrimSpace(r.Location) == "" {
		return ErrInvalidRequest
	}
	return nil
}

// Result is the outcome of one run.
type Result struct {
	Query     entity.Query
	Companies []entity.Company
}

// ErrInvalidRequest is returned for a standard request without sector or location.
var ErrInvalidRequest = errors.New("sector and location are required")

// Pipeline enriches companies with ranked employees and verified emails.
type Pipeline struct {
	deps         Dependencies
	store        Store
	matcher      *match.Matcher
	logger       *zap.Logger
	workers      int
	searchPrefix string
	zoom         int
	maxPages     int
	now          func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithStore persists queries and companies as the run progresses.
func WithStore(s Store) Option {
	return func(p *Pipeline) { p.store = s }
}

// WithMatcher overrides the company matcher.
func WithMatcher(m *match.Matcher) Option {
	return func(p *Pipeline) {
		if m != nil {
			p.matcher = m
		}
	}
}

// WithWorkers bounds how many companies are processed at once.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithSearchPrefix sets the text prepended to company names for people searches.
func WithSearchPrefix(prefix string) Option {
	return func(p *Pipeline) {
		if prefix = strings.TrimSpace(prefix); prefix != "" {
			p.searchPrefix = prefix
		}
	}
}

// WithMaxPages caps how many place search pages are followed.
func WithMaxPages(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxPages = n
		}
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// New builds a pipeline. Every dependency is required.
func New(deps Dependencies, opts ...Option) (*Pipeline, error) {
	if deps.Places == nil || deps.Geocoder == nil || deps.Search == nil || deps.Normalizer == nil || deps.Finder == nil {
		return nil, errors.New("enrich: missing pipeline dependency")
	}
	p := &Pipeline{
		deps:         deps,
		matcher:      match.New(match.DefaultThreshold),
		logger:       zap.NewNop(),
		workers:      1,
		searchPrefix: DefaultSearchPrefix,
		zoom:         DefaultZoom,
		maxPages:     defaultMaxPages,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Enrich runs the full pipeline for req. Failures on individual companies are
// logged and leave that company without employees. Errors are returned only for
// failures that prevent the run from producing companies at all.
func (p *Pipeline) Enrich(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id := req.QueryID
	if id == uuid.Nil {
		id = uuid.New()
	}
	q := &entity.Query{
		ID:        id,
		Type:      req.Type(),
		Sector:    strings.TrimSpace(req.Sector),
		Location:  strings.TrimSpace(req.Location),
		StartedAt: p.now().UTC(),
	}
	run := newRun(q)
	log := p.logger.With(zap.String("query_id", q.ID.String()), zap.String("type", string(q.Type)))

	metrics.RunsActive.Inc()
	defer metrics.RunsActive.Dec()

	if p.store != nil {
		if err := p.store.CreateQuery(ctx, q); err != nil {
			return nil, fmt.Errorf("create query: %w", err)
		}
	}

	var companies []entity.Company
	if q.Type == entity.QueryTypeFromCSV {
		companies = make([]entity.Company, len(req.Companies))
		copy(companies, req.Companies)
	} else {
		found, err := p.discover(ctx, q.Sector, q.Location)
		if err != nil {
			p.finish(ctx, q, nil, log)
			return nil, err
		}
		companies = found
	}
	q.MapsResults = len(companies)
	log.Info("companies collected", zap.Int("count", len(companies)))

	if err := p.loadDone(ctx, companies); err != nil {
		log.Warn("failed to load previously enriched companies", zap.Error(err))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i := range companies {
		company := &companies[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p.process(gctx, run, company, log)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Warn("run aborted", zap.Error(err))
		p.finish(ctx, q, companies, log)
		return nil, fmt.Errorf("enrich run: %w", err)
	}
	p.finish(ctx, q, companies, log)

	log.Info("run finished",
		zap.Int("maps_results", q.MapsResults),
		zap.Int("search_results", q.SearchResults),
		zap.Bool("search_exhausted", run.SearchExhausted()),
		zap.Bool("email_exhausted", run.EmailExhausted()),
	)
	return &Result{Query: *q, Companies: companies}, nil
}

// finish stamps the final counts on q and stores them. The store call is
// detached from ctx so aborted runs are still closed.
func (p *Pipeline) finish(ctx context.Context, q *entity.Query, companies []entity.Company, log *zap.Logger) {
	q.SearchResults = 0
	for i := range companies {
		if len(companies[i].Employees) > 0 {
			q.SearchResults++
		}
	}
	q.Finish(p.now())

	if p.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()
	if err := p.store.FinishQuery(ctx, q); err != nil {
		log.Error("failed to finalize query", zap.Error(err))
	}
}

func (p *Pipeline) discover(ctx context.Context, sector, location string) ([]entity.Company, error) {
	origin, err := p.deps.Geocoder.Forward(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("geocode %q: %w", location, err)
	}

	query := fmt.Sprintf("%s in %s", sector, location)
	var hits []entity.PlaceResult
	token := ""
	for page := 0; page < p.maxPages; page++ {
		res, err := p.deps.Places.SearchPlaces(ctx, query, origin.Lat, origin.Lng, p.zoom, token)
		if err != nil {
			return nil, fmt.Errorf("search places %q: %w", query, err)
		}
		hits = append(hits, res.Results...)
		if res.NextPageToken == "" {
			break
		}
		token = res.NextPageToken
	}
	return p.deps.Normalizer.Normalize(hits, origin), nil
}

func (p *Pipeline) loadDone(ctx context.Context, companies []entity.Company) error {
	if p.store == nil {
		return nil
	}
	websites := make([]string, 0, len(companies))
	for _, c := range companies {
		if c.Website != "" {
			websites = append(websites, c.Website)
		}
	}
	if len(websites) == 0 {
		return nil
	}
	done, err := p.store.FindDoneByWebsites(ctx, websites)
	if err != nil {
		return err
	}
	for i := range companies {
		stored, ok := done[companies[i].Website]
		if !ok {
			continue
		}
		stored.Done = true
		companies[i] = stored
	}
	return nil
}

func (p *Pipeline) process(ctx context.Context, run *Run, company *entity.Company, log *zap.Logger) {
	log = log.With(zap.String("company", company.Name), zap.String("website", company.Website))

	switch {
	case company.Done:
		run.Claim(company.Website)
		metrics.CompaniesProcessed.WithLabelValues("done").Inc()
		log.Debug("company already enriched")
		if p.store != nil {
			if err := p.store.LinkCompany(ctx, run.Query.ID, company.ID); err != nil {
				log.Error("failed to link stored company", zap.Error(err))
			}
		}
		return
	case company.Website != "" && !run.Claim(company.Website):
		metrics.CompaniesProcessed.WithLabelValues("duplicate").Inc()
		log.Debug("domain already processed in this run")
		return
	}

	outcome := p.enrichCompany(ctx, run, company, log)
	metrics.CompaniesProcessed.WithLabelValues(outcome).Inc()
	if outcome == outcomeEnriched || outcome == outcomeNoMatch {
		at := p.now().UTC()
		company.EnrichedAt = &at
	}

	if p.store != nil {
		if err := p.store.SaveCompany(ctx, run.Query.ID, company); err != nil {
			log.Error("failed to save company", zap.Error(err))
		}
	}
}

const (
	outcomeEnriched  = "enriched"
	outcomeNoMatch   = "no_match"
	outcomeNoWebsite = "no_website"
	outcomeSkipped   = "skipped"
	outcomeFailed    = "failed"
)

func (p *Pipeline) enrichCompany(ctx context.Context, run *Run, company *entity.Company, log *zap.Logger) string {
	if company.Website == "" {
		log.Debug("company has no website")
		return outcomeNoWebsite
	}
	if run.SearchExhausted() {
		return outcomeSkipped
	}

	employees, err := p.findEmployees(ctx, company.Name)
	if err != nil {
		if apiclient.IsResourceError(err) {
			run.searchExhausted.Store(true)
		}
		log.Error("employee search failed", zap.Error(err))
		return outcomeFailed
	}
	company.Employees = employees

	top := company.TopEmployee()
	if top == nil {
		return outcomeNoMatch
	}
	if run.EmailExhausted() {
		return outcomeEnriched
	}

	email, err := p.deps.Finder.Find(ctx, top.FirstName, top.LastName, company.Website)
	switch {
	case err == nil:
		top.Email = email
	case apiclient.IsResourceError(err):
		run.emailExhausted.Store(true)
		log.Warn("email validation quota exhausted, skipping further probes", zap.Error(err))
	default:
		log.Warn("email discovery failed", zap.Error(err))
	}
	return outcomeEnriched
}

func (p *Pipeline) findEmployees(ctx context.Context, name string) ([]entity.Employee, error) {
	keyword := p.searchPrefix + " " + name
	taskID, err := p.deps.Search.Submit(ctx, keyword)
	if err != nil {
		return nil, fmt.Errorf("submit search: %w", err)
	}
	results, err := p.deps.Search.Retrieve(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("retrieve search %s: %w", taskID, err)
	}

	employees, best, ok := Employees(p.matcher, name, results)
	if !ok {
		p.logger.Debug("no confident company match",
			zap.String("company", name),
			zap.String("best_candidate", best.Candidate),
			zap.Int("score", best.Score),
		)
		return nil, nil
	}
	return employees, nil
}
