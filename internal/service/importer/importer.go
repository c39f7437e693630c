package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/Artufe/bravo-tango-bravo/internal/entity"
	"github.com/Artufe/bravo-tango-bravo/internal/service/normalize"
)

// MaxRows bounds how many companies a single upload may carry.
const MaxRows = 5000

// CSVValidationError indicates that the provided CSV payload is invalid.
type CSVValidationError struct {
	Message string
}

// Error implements the error interface.
func (e CSVValidationError) Error() string {
	return e.Message
}

// Summary reports what happened to the rows of an upload.
type Summary struct {
	Rows     int `json:"rows"`
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

var requiredCSVHeaders = []string{"name"}

var optionalCSVHeaders = []string{"website", "phone", "address", "city", "zip", "country_code"}

// ParseCompanies reads companies from a CSV with a header row. Rows without a
// name are skipped, websites are reduced to hostnames and phones are
// formatted for region.
func ParseCompanies(r io.Reader, region string) ([]entity.Company, Summary, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, Summary{}, CSVValidationError{Message: "csv file is empty"}
		}
		return nil, Summary{}, fmt.Errorf("read csv header: %w", err)
	}

	indexMap, valErr := buildHeaderIndex(header)
	if valErr != nil {
		return nil, Summary{}, valErr
	}

	var (
		companies []entity.Company
		summary   Summary
		rowNum    = 1
	)

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, Summary{}, fmt.Errorf("read csv row: %w", err)
		}

		rowNum++
		summary.Rows++
		if summary.Rows > MaxRows {
			return nil, Summary{}, CSVValidationError{Message: fmt.Sprintf("csv exceeds %d rows", MaxRows)}
		}

		name := field(row, indexMap, "name")
		if name == "" {
			summary.Skipped++
			continue
		}

		companies = append(companies, entity.Company{
			ID:      uuid.New(),
			Name:    name,
			Website: normalize.Hostname(field(row, indexMap, "website")),
			Phone:   normalize.NormalizePhone(field(row, indexMap, "phone"), region),
			Address: entity.Address{
				Address:     field(row, indexMap, "address"),
				City:        field(row, indexMap, "city"),
				Zip:         field(row, indexMap, "zip"),
				CountryCode: strings.ToUpper(field(row, indexMap, "country_code")),
			},
			Employees: []entity.Employee{},
		})
		summary.Imported++
	}

	if len(companies) == 0 {
		return nil, summary, CSVValidationError{Message: "csv contains no companies"}
	}
	return companies, summary, nil
}

func buildHeaderIndex(header []string) (map[string]int, error) {
	index := make(map[string]int)
	for i, col := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))
		if _, dup := index[key]; dup {
			continue
		}
		index[key] = i
	}

	missing := make([]string, 0)
	for _, required := range requiredCSVHeaders {
		if _, ok := index[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, CSVValidationError{Message: fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", "))}
	}
	for _, optional := range optionalCSVHeaders {
		if _, ok := index[optional]; !ok {
			index[optional] = -1
		}
	}
	return index, nil
}

// field returns the trimmed value of a column, or "" when the column is absent
// or the row is short.
func field(row []string, index map[string]int, column string) string {
	i, ok := index[column]
	if !ok || i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
