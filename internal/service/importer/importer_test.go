package importer

import (
	"errors"
	"strings"
	"testing"
)

func TestParseCompanies(t *testing.T) {
	csvData := strings.Join([]string{
		"Name,Website,Phone,Address,City,Zip,Country_Code",
		"Acme Ltd,https://www.Acme.co.uk/contact,01273 123456,1 North St,Brighton,BN1 1AA,gb",
		",https://nameless.example,,,,,",
		"Bare Ltd,,,,,,",
	}, "\n")

	companies, summary, err := ParseCompanies(strings.NewReader(csvData), "GB")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Rows != 3 || summary.Imported != 2 || summary.Skipped != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(companies) != 2 {
		t.Fatalf("expected 2 companies, got %d", len(companies))
	}

	acme := companies[0]
	if acme.Website != "acme.co.uk" {
		t.Fatalf("expected hostname, got %q", acme.Website)
	}
	if acme.Phone != "+441273123456" {
		t.Fatalf("expected E164 phone, got %q", acme.Phone)
	}
	if acme.Address.City != "Brighton" || acme.Address.Zip != "BN1 1AA" || acme.Address.CountryCode != "GB" {
		t.Fatalf("unexpected address: %+v", acme.Address)
	}
	if companies[0].ID == companies[1].ID {
		t.Fatalf("expected distinct ids")
	}
	if companies[1].Website != "" || companies[1].Employees == nil {
		t.Fatalf("unexpected bare company: %+v", companies[1])
	}
}

func TestParseCompaniesNameOnlyHeader(t *testing.T) {
	companies, _, err := ParseCompanies(strings.NewReader("name\nSolo Trader\n"), "GB")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(companies) != 1 || companies[0].Name != "Solo Trader" {
		t.Fatalf("unexpected companies: %+v", companies)
	}
}

func TestParseCompaniesValidation(t *testing.T) {
	cases := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "missing name column", input: "website,phone\nacme.co.uk,123\n"},
		{name: "no usable rows", input: "name,website\n,acme.co.uk\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := ParseCompanies(strings.NewReader(tc.input), "GB")
			var validationErr CSVValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("expected CSVValidationError, got %v", err)
			}
		})
	}
}

func TestParseCompaniesRowLimit(t *testing.T) {
	var b strings.Builder
	b.WriteString("name\n")
	for i := 0; i <= MaxRows; i++ {
		b.WriteString("Company\n")
	}
	_, _, err := ParseCompanies(strings.NewReader(b.String()), "GB")
	var validationErr CSVValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected row limit error, got %v", err)
	}
}
