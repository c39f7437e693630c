package entity

import (
	"time"

	"github.com/google/uuid"
)

// QueryType identifies how the companies of a run were sourced.
type QueryType string

const (
	QueryTypeStandard QueryType = "standard"
	QueryTypeFromCSV  QueryType = "from_csv"
)

// Query is a single enrichment run.
type Query struct {
	ID            uuid.UUID  `json:"id"`
	Type          QueryType  `json:"type"`
	Sector        string     `json:"sector,omitempty"`
	Location      string     `json:"location,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
	MapsResults   int        `json:"maps_results"`
	SearchResults int        `json:"search_results"`
}

// Finish stamps the run as completed.
func (q *Query) Finish(at time.Time) {
	ts := at.UTC()
	q.FinishedAt = &ts
}
