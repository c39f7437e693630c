package entity

import (
	"time"

	"github.com/google/uuid"
)

// Address holds the structured location block returned by the place search.
type Address struct {
	Address     string `json:"address,omitempty"`
	Borough     string `json:"borough,omitempty"`
	Line1       string `json:"line1,omitempty"`
	City        string `json:"city,omitempty"`
	Zip         string `json:"zip,omitempty"`
	Region      string `json:"region,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
}

// MapsData captures the place-search listing a company was discovered from.
type MapsData struct {
	SearchPosition int     `json:"search_position"`
	Lat            float64 `json:"lat"`
	Long           float64 `json:"long"`
	Rating         float64 `json:"rating"`
	Reviews        int     `json:"reviews"`
	Type           string  `json:"type"`
	Thumbnail      string  `json:"thumbnail,omitempty"`
}

// Company is a single business being enriched.
type Company struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Website   string     `json:"website"`
	Address   Address    `json:"address"`
	Phone     string     `json:"phone,omitempty"`
	Employees []Employee `json:"employees"`
	GMapsData *MapsData  `json:"gmaps_data,omitempty"`
	// EnrichedAt is set once the employee search for the company completed.
	// Stored companies without it are searched again by later runs.
	EnrichedAt *time.Time `json:"enriched_at,omitempty"`
	// Done marks records loaded from storage; they are not enriched again.
	Done bool `json:"done"`
}

// TopEmployee returns the highest ranked employee, if any.
func (c *Company) TopEmployee() *Employee {
	if c == nil || len(c.Employees) == 0 {
		return nil
	}
	return &c.Employees[0]
}
