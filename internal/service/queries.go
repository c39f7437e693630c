package service

import (
	"context"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Artufe/bravo-tango-bravo/internal/enrich"
	"github.com/Artufe/bravo-tango-bravo/internal/entity"
	"github.com/Artufe/bravo-tango-bravo/internal/service/importer"
	"github.com/Artufe/bravo-tango-bravo/internal/service/normalize"
)

// Enricher runs one enrichment query to completion.
type Enricher interface {
	Enrich(ctx context.Context, req enrich.Request) (*enrich.Result, error)
}

// LeadsReader exposes stored runs.
type LeadsReader interface {
	GetQuery(ctx context.Context, id uuid.UUID) (*entity.Query, error)
	ListCompanies(ctx context.Context, queryID uuid.UUID) ([]entity.Company, error)
}

// Publisher forwards finished runs downstream.
type Publisher interface {
	Publish(ctx context.Context, queryID uuid.UUID, companies []entity.Company) error
}

// Accepted describes a run that was started in the background.
type Accepted struct {
	QueryID  uuid.UUID        `json:"query_id"`
	Type     entity.QueryType `json:"type"`
	Sector   string           `json:"sector,omitempty"`
	Location string           `json:"location,omitempty"`
	// Companies is only set for imports.
	Companies int `json:"companies,omitempty"`
}

// QueriesService starts enrichment runs and reads their results back.
type QueriesService struct {
	enricher    Enricher
	reader      LeadsReader
	publisher   Publisher
	phoneRegion string
	logger      *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// QueriesOption customises a QueriesService.
type QueriesOption func(*QueriesService)

// WithPublisher forwards every finished run to p.
func WithPublisher(p Publisher) QueriesOption {
	return func(s *QueriesService) {
		s.publisher = p
	}
}

// WithPhoneRegion sets the region used to format imported phone numbers.
func WithPhoneRegion(region string) QueriesOption {
	return func(s *QueriesService) {
		if region != "" {
			s.phoneRegion = region
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *zap.Logger) QueriesOption {
	return func(s *QueriesService) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewQueriesService creates a new instance of QueriesService.
func NewQueriesService(enricher Enricher, reader LeadsReader, opts ...QueriesOption) *QueriesService {
	ctx, cancel := context.WithCancel(context.Background())
	s := &QueriesService{
		enricher:    enricher,
		reader:      reader,
		phoneRegion: normalize.DefaultPhoneRegion,
		logger:      zap.NewNop(),
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartQuery validates a standard request and runs it in the background.
func (s *QueriesService) StartQuery(sector, location string) (Accepted, error) {
	req := enrich.Request{
		QueryID:  uuid.New(),
		Sector:   strings.TrimSpace(sector),
		Location: strings.TrimSpace(location),
	}
	if err := req.Validate(); err != nil {
		return Accepted{}, err
	}
	s.launch(req)
	return Accepted{QueryID: req.QueryID, Type: req.Type(), Sector: req.Sector, Location: req.Location}, nil
}

// ImportCompaniesCSV parses an uploaded CSV and enriches its companies in the background.
func (s *QueriesService) ImportCompaniesCSV(r io.Reader) (Accepted, importer.Summary, error) {
	companies, summary, err := importer.ParseCompanies(r, s.phoneRegion)
	if err != nil {
		return Accepted{}, summary, err
	}
	req := enrich.Request{QueryID: uuid.New(), Companies: companies}
	s.launch(req)
	return Accepted{QueryID: req.QueryID, Type: req.Type(), Companies: len(companies)}, summary, nil
}

// QueryCompanies returns a stored run and its companies.
func (s *QueriesService) QueryCompanies(ctx context.Context, id uuid.UUID) (*entity.Query, []entity.Company, error) {
	q, err := s.reader.GetQuery(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	companies, err := s.reader.ListCompanies(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if companies == nil {
		companies = []entity.Company{}
	}
	return q, companies, nil
}

// Wait blocks until all background runs finished or ctx is done.
func (s *QueriesService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown cancels running queries and waits for them to stop.
func (s *QueriesService) Shutdown(ctx context.Context) error {
	s.cancel()
	return s.Wait(ctx)
}

func (s *QueriesService) launch(req enrich.Request) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(req)
	}()
}

func (s *QueriesService) run(req enrich.Request) {
	log := s.logger.With(zap.String("query_id", req.QueryID.String()), zap.String("type", string(req.Type())))
	log.Info("query started")

	result, err := s.enricher.Enrich(s.ctx, req)
	if err != nil {
		log.Error("query failed", zap.Error(err))
		return
	}
	log.Info("query finished",
		zap.Int("maps_results", result.Query.MapsResults),
		zap.Int("search_results", result.Query.SearchResults))

	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(s.ctx, result.Query.ID, result.Companies); err != nil {
		log.Warn("publish failed", zap.Error(err))
	}
}
