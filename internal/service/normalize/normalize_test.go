package normalize

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Artufe/bravo-tango-bravo/internal/entity"
	"github.com/Artufe/bravo-tango-bravo/internal/geo"
)

var brighton = geo.Point{Lat: 50.8225, Lng: -0.1372}

func ptr[T any](v T) *T { return &v }

func hit(title, url string, lat, lng float64) entity.PlaceResult {
	return entity.PlaceResult{
		Title:     title,
		URL:       url,
		Latitude:  ptr(lat),
		Longitude: ptr(lng),
	}
}

func names(companies []entity.Company) []string {
	out := make([]string, 0, len(companies))
	for _, c := range companies {
		out = append(out, c.Name)
	}
	return out
}

func TestNormalizeDeduplicatesByTitleOrURL(t *testing.T) {
	hits := []entity.PlaceResult{
		hit("Acme", "https://acme.co.uk/", 50.82, -0.13),
		hit("Acme", "https://other.co.uk/", 50.82, -0.13),
		hit("Acme Brighton", "https://acme.co.uk/", 50.82, -0.13),
		hit("acme", "https://third.co.uk/", 50.82, -0.13),
	}

	got := New().Normalize(hits, brighton)
	// case sensitive: "acme" is not a duplicate of "Acme"
	assert.Equal(t, []string{"Acme", "acme"}, names(got))
}

func TestNormalizeDoesNotTreatMissingURLAsDuplicate(t *testing.T) {
	hits := []entity.PlaceResult{
		hit("First", "", 50.82, -0.13),
		hit("Second", "", 50.82, -0.13),
	}

	got := New().Normalize(hits, brighton)
	assert.Equal(t, []string{"First", "Second"}, names(got))
	for _, c := range got {
		assert.Empty(t, c.Website)
	}
}

func TestNormalizeGeoFilter(t *testing.T) {
	hits := []entity.PlaceResult{
		hit("Near", "near.co.uk", 50.83, -0.14),
		hit("Manchester", "far.co.uk", 53.4808, -2.2426),
		hit("London", "london.co.uk", 51.5072, -0.1276),
		{Title: "No coords", URL: "nocoords.co.uk"},
		{Title: "Half coords", URL: "half.co.uk", Latitude: ptr(50.8)},
	}

	got := New().Normalize(hits, brighton)
	assert.Equal(t, []string{"Near", "London"}, names(got))

	got = New(WithMaxDistance(50)).Normalize(hits, brighton)
	assert.Equal(t, []string{"Near"}, names(got))
}

func TestNormalizeRegionBounds(t *testing.T) {
	hits := []entity.PlaceResult{
		hit("Hove", "hove.co.uk", 50.8279, -0.1688),
		hit("Le Havre", "lehavre.fr", 49.4944, 0.1079),
		hit("Dunkirk", "dunkerque.fr", 51.0343, 2.3768),
	}

	got := New(WithMaxDistance(1000)).Normalize(hits, brighton)
	require.Len(t, got, 3)

	got = New(WithMaxDistance(1000), WithRegionBounds(geo.UKBounds)).Normalize(hits, brighton)
	assert.Equal(t, []string{"Hove"}, names(got))
}

func TestNormalizeBuildsCompany(t *testing.T) {
	h := entity.PlaceResult{
		Title:    "Smith & Sons Removals in Brighton",
		URL:      "HTTPS://www.SmithAndSons.co.uk/",
		Phone:    "020 7219 3000",
		Category: "Moving company",
		Address:  "1 High St, Brighton BN1 1AA",
		AddressInfo: entity.Address{
			Line1:       "1 High St",
			City:        "Brighton",
			Zip:         "BN1 1AA",
			CountryCode: "GB",
		},
		Latitude:     ptr(50.821),
		Longitude:    ptr(-0.139),
		RankAbsolute: 4,
		Rating:       ptr(4.5),
		Votes:        ptr(88),
		MainImage:    "https://img.test/x.jpg",
	}

	got := New().Normalize([]entity.PlaceResult{h}, brighton)
	require.Len(t, got, 1)
	c := got[0]

	assert.Equal(t, "Smith and Sons Removals", c.Name)
	assert.Equal(t, "smithandsons.co.uk", c.Website)
	assert.Equal(t, "+442072193000", c.Phone)
	assert.Equal(t, "1 High St, Brighton BN1 1AA", c.Address.Address)
	assert.Equal(t, "Brighton", c.Address.City)
	assert.Empty(t, c.Employees)
	assert.False(t, c.Done)

	require.NotNil(t, c.GMapsData)
	assert.Equal(t, entity.MapsData{
		SearchPosition: 4,
		Lat:            50.821,
		Long:           -0.139,
		Rating:         4.5,
		Reviews:        88,
		Type:           "Moving company",
		Thumbnail:      "https://img.test/x.jpg",
	}, *c.GMapsData)
}

func TestNormalizeMapsDataNotShared(t *testing.T) {
	hits := []entity.PlaceResult{
		hit("A", "a.co.uk", 50.82, -0.13),
		hit("B", "b.co.uk", 50.82, -0.13),
	}
	got := New().Normalize(hits, brighton)
	require.Len(t, got, 2)
	assert.NotSame(t, got[0].GMapsData, got[1].GMapsData)
	assert.NotEqual(t, got[0].ID, got[1].ID)
}

func TestNormalizeRecordsMissingSites(t *testing.T) {
	var buf bytes.Buffer
	hits := []entity.PlaceResult{
		{Title: "No Site Ltd", Phone: "01273 111111", Category: "Plumber", Address: "2 Low St", Latitude: ptr(50.82), Longitude: ptr(-0.13)},
		hit("Has Site", "site.co.uk", 50.82, -0.13),
	}

	got := New(WithMissingSitesWriter(&buf)).Normalize(hits, brighton)
	assert.Len(t, got, 2)
	assert.Equal(t, "No Site Ltd|01273 111111|Plumber|2 Low St\n", buf.String())
}

func TestCleanTitle(t *testing.T) {
	tests := map[string]string{
		"Mortgage Medics in Brighton":   "Mortgage Medics",
		"Smith & Jones":                 "Smith and Jones",
		"Smith & Jones in Hove & Kemp":  "Smith and Jones",
		"Inland Revenue":                "Inland Revenue",
		"  Padded  ":                    "Padded",
		"B&Q":                           "B&Q",
	}
	for in, want := range tests {
		assert.Equal(t, want, CleanTitle(in), in)
	}
}

func TestHostname(t *testing.T) {
	tests := map[string]string{
		"https://www.acme.co.uk/":         "acme.co.uk",
		"http://Acme.CO.UK":               "acme.co.uk",
		"acme.co.uk/":                     "acme.co.uk",
		"https://shop.acme.co.uk/contact": "shop.acme.co.uk",
		"":                                "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Hostname(in), in)
	}
}

func TestNormalizePhoneKeepsUnparseableInput(t *testing.T) {
	assert.Equal(t, "call us", NormalizePhone(" call us ", "GB"))
	assert.Empty(t, NormalizePhone("", "GB"))
}
