package normalize

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Artufe/bravo-tango-bravo/internal/entity"
	"github.com/Artufe/bravo-tango-bravo/internal/geo"
)

const (
	DefaultMaxDistanceKM = 150.0
	DefaultPhoneRegion   = "GB"
)

// Normalizer turns raw place search hits into candidate companies.
type Normalizer struct {
	maxDistanceKM float64
	phoneRegion   string
	bounds        *geo.Bounds
	logger        *zap.Logger

	mu           sync.Mutex
	missingSites io.Writer
}

// Option configures optional behaviour.
type Option func(*Normalizer)

// WithMaxDistance drops hits further than km from the search origin.
func WithMaxDistance(km float64) Option {
	return func(n *Normalizer) {
		if km > 0 {
			n.maxDistanceKM = km
		}
	}
}

// WithPhoneRegion sets the region used to parse national phone numbers.
func WithPhoneRegion(region string) Option {
	return func(n *Normalizer) {
		if region = strings.ToUpper(strings.TrimSpace(region)); region != "" {
			n.phoneRegion = region
		}
	}
}

// WithRegionBounds additionally drops hits outside the box.
func WithRegionBounds(b geo.Bounds) Option {
	return func(n *Normalizer) {
		n.bounds = &b
	}
}

// WithMissingSitesWriter records hits without a website for manual follow-up.
func WithMissingSitesWriter(w io.Writer) Option {
	return func(n *Normalizer) {
		n.missingSites = w
	}
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(n *Normalizer) {
		if l != nil {
			n.logger = l
		}
	}
}

// New builds a normalizer with a 150 km radius and GB phone parsing.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		maxDistanceKM: DefaultMaxDistanceKM,
		phoneRegion:   DefaultPhoneRegion,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize deduplicates, geo-filters and cleans hits, preserving input order.
func (n *Normalizer) Normalize(hits []entity.PlaceResult, origin geo.Point) []entity.Company {
	seen := make(map[string]struct{}, len(hits)*2)
	companies := make([]entity.Company, 0, len(hits))

	for _, hit := range hits {
		if isSeen(seen, hit.Title) || isSeen(seen, hit.URL) {
			n.logger.Debug("skipping duplicate place", zap.String("title", hit.Title))
			continue
		}
		markSeen(seen, hit.Title)
		markSeen(seen, hit.URL)

		if strings.TrimSpace(hit.URL) == "" {
			n.recordMissingSite(hit)
		}

		if hit.Latitude == nil || hit.Longitude == nil {
			continue
		}
		lat, lng := *hit.Latitude, *hit.Longitude

		distance := geo.DistanceKM(origin.Lat, origin.Lng, lat, lng)
		if distance > n.maxDistanceKM {
			n.logger.Debug("place too far from search origin",
				zap.String("title", hit.Title),
				zap.Float64("distance_km", distance),
			)
			continue
		}
		if n.bounds != nil && !n.bounds.Contains(lat, lng) {
			n.logger.Debug("place outside target region", zap.String("title", hit.Title))
			continue
		}

		companies = append(companies, n.toCompany(hit, lat, lng))
	}
	return companies
}

func (n *Normalizer) toCompany(hit entity.PlaceResult, lat, lng float64) entity.Company {
	maps := &entity.MapsData{
		SearchPosition: hit.RankAbsolute,
		Lat:            lat,
		Long:           lng,
		Type:           hit.Category,
		Thumbnail:      hit.MainImage,
	}
	if hit.Rating != nil {
		maps.Rating = *hit.Rating
	}
	if hit.Votes != nil {
		maps.Reviews = *hit.Votes
	}

	address := hit.AddressInfo
	if address.Address == "" {
		address.Address = hit.Address
	}

	return entity.Company{
		ID:        uuid.New(),
		Name:      CleanTitle(hit.Title),
		Website:   Hostname(hit.URL),
		Address:   address,
		Phone:     NormalizePhone(hit.Phone, n.phoneRegion),
		Employees: []entity.Employee{},
		GMapsData: maps,
	}
}

func (n *Normalizer) recordMissingSite(hit entity.PlaceResult) {
	if n.missingSites == nil {
		return
	}
	line := fmt.Sprintf("%s|%s|%s|%s\n", hit.Title, hit.Phone, hit.Category, hit.Address)

	n.mu.Lock()
	defer n.mu.Unlock()
	if _, err := io.WriteString(n.missingSites, line); err != nil {
		n.logger.Warn("failed to record place without website", zap.String("title", hit.Title), zap.Error(err))
	}
}

// Empty values never count as duplicates.
func isSeen(seen map[string]struct{}, key string) bool {
	if key == "" {
		return false
	}
	_, ok := seen[key]
	return ok
}

func markSeen(seen map[string]struct{}, key string) {
	if key != "" {
		seen[key] = struct{}{}
	}
}
