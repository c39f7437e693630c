package dto

import "github.com/Artufe/bravo-tango-bravo/internal/entity"

// QueryRequest is the payload used to start a standard enrichment run.
type QueryRequest struct {
	Sector   string `json:"sector"`
	Location string `json:"location"`
}

// QueryCompaniesResponse is the stored outcome of a run.
type QueryCompaniesResponse struct {
	Query     *entity.Query    `json:"query"`
	Companies []entity.Company `json:"companies"`
}

// UploadResponse reports an accepted CSV import.
type UploadResponse struct {
	QueryID  string `json:"query_id"`
	Rows     int    `json:"rows"`
	Imported int    `json:"imported"`
	Skipped  int    `json:"skipped"`
}
