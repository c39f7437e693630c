package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Artufe/bravo-tango-bravo/internal/apiclient"
	"github.com/Artufe/bravo-tango-bravo/internal/geo"
)

const (
	OpenCageBaseURL = "https://api.opencagedata.com/geocode/v1/json"
	openCageName    = "opencage"
)

// OpenCage resolves place names to coordinates.
type OpenCage struct {
	client  *apiclient.Client
	baseURL string
	apiKey  string
}

// NewOpenCage builds a geocoder. An empty baseURL uses the public endpoint.
func NewOpenCage(client *apiclient.Client, apiKey, baseURL string) *OpenCage {
	if baseURL == "" {
		baseURL = OpenCageBaseURL
	}
	return &OpenCage{client: client, baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey}
}

type openCageResponse struct {
	Rate *struct {
		Remaining int `json:"remaining"`
	} `json:"rate"`
	Status struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"status"`
	Results []struct {
		Geometry struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"geometry"`
	} `json:"results"`
}

// Forward geocodes a place name. It returns a *apiclient.ResourceError when the daily
// quota is spent and wraps apiclient.ErrNotFound when nothing matches.
func (o *OpenCage) Forward(ctx context.Context, place string) (geo.Point, error) {
	caps := apiclient.Capabilities[string, geo.Point]{
		Name:        openCageName,
		Build:       o.buildRequest,
		CheckStatus: checkOpenCageStatus,
		Confirm:     confirmOpenCage,
		Parse: func(body []byte) (geo.Point, error) {
			var resp openCageResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return geo.Point{}, fmt.Errorf("decode geocode response: %w", err)
			}
			if len(resp.Results) == 0 {
				return geo.Point{}, fmt.Errorf("geocode %q: %w", place, apiclient.ErrNotFound)
			}
			g := resp.Results[0].Geometry
			return geo.Point{Lat: g.Lat, Lng: g.Lng}, nil
		},
	}
	return apiclient.Call(ctx, o.client, caps, place)
}

func (o *OpenCage) buildRequest(ctx context.Context, place string) (*http.Request, error) {
	params := url.Values{}
	params.Set("q", place)
	params.Set("key", o.apiKey)
	return http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"?"+params.Encode(), nil)
}

// OpenCage reports quota and key problems with HTTP status codes; they are not transient.
func checkOpenCageStatus(status int, _ []byte) error {
	switch status {
	case http.StatusPaymentRequired:
		return &apiclient.ResourceError{Provider: openCageName, Message: "out of free queries"}
	case http.StatusUnauthorized, http.StatusForbidden:
		return &apiclient.ResponseError{Provider: openCageName, Message: fmt.Sprintf("request rejected with status %d", status)}
	}
	return nil
}

func confirmOpenCage(body []byte) error {
	var resp openCageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return &apiclient.ResponseError{Provider: openCageName, Message: "malformed response body"}
	}
	if resp.Rate != nil && resp.Rate.Remaining == 0 {
		return &apiclient.ResourceError{Provider: openCageName, Message: "out of free queries"}
	}
	if resp.Status.Code != http.StatusOK {
		return &apiclient.ResponseError{
			Provider: openCageName,
			Message:  fmt.Sprintf("bad response code %d (%s)", resp.Status.Code, resp.Status.Message),
		}
	}
	return nil
}
