// Package export writes enrichment results as "~" delimited CSV or JSON.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Artufe/bravo-tango-bravo/internal/entity"
)

// Delimiter separates CSV fields. Company names and addresses often carry commas.
const Delimiter = '~'

// Format selects the CSV column set.
type Format int

const (
	// Long includes address, phone, search metadata and JSON encoded maps data and employees.
	Long Format = iota
	// Short only lists the top employee per company.
	Short
)

var shortHeader = []string{
	"Company name", "Website", "Employee name", "Employee position", "Employee email", "Employee company",
}

var longHeader = []string{
	"Company name", "Website", "Address", "Phone",
	"Employee name", "Employee position", "Employee email", "Employee company",
	"Employee result title", "Employee linkedin page", "google_maps_data", "all_employees",
}

// ParseFormat maps "short" and "long" to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "long":
		return Long, nil
	case "short":
		return Short, nil
	default:
		return Long, fmt.Errorf("unknown export format %q", s)
	}
}

// WriteCSV writes one row per company. Companies without employees keep
// their columns with the employee fields left empty.
func WriteCSV(w io.Writer, companies []entity.Company, format Format) error {
	cw := csv.NewWriter(w)
	cw.Comma = Delimiter

	header := longHeader
	if format == Short {
		header = shortHeader
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i := range companies {
		var (
			row []string
			err error
		)
		if format == Short {
			row = shortRow(&companies[i])
		} else {
			row, err = longRow(&companies[i])
			if err != nil {
				return err
			}
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the companies as an indented JSON array.
func WriteJSON(w io.Writer, companies []entity.Company) error {
	if companies == nil {
		companies = []entity.Company{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(companies)
}

func shortRow(c *entity.Company) []string {
	row := []string{c.Name, c.Website, "", "", "", ""}
	if top := c.TopEmployee(); top != nil {
		row[2], row[3], row[4], row[5] = top.FullName, top.Position, top.Email, top.Company
	}
	return row
}

func longRow(c *entity.Company) ([]string, error) {
	mapsData, err := json.Marshal(c.GMapsData)
	if err != nil {
		return nil, fmt.Errorf("encode maps data for %s: %w", c.Name, err)
	}
	employees := c.Employees
	if employees == nil {
		employees = []entity.Employee{}
	}
	allEmployees, err := json.Marshal(employees)
	if err != nil {
		return nil, fmt.Errorf("encode employees for %s: %w", c.Name, err)
	}

	row := []string{c.Name, c.Website, c.Address.Address, c.Phone, "", "", "", "", "", "", string(mapsData), string(allEmployees)}
	if top := c.TopEmployee(); top != nil {
		row[4], row[5], row[6], row[7] = top.FullName, top.Position, top.Email, top.Company
		row[8], row[9] = top.SearchTitle, top.LinkedInURL
	}
	return row, nil
}
