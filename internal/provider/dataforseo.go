package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Artufe/bravo-tango-bravo/internal/apiclient"
	"github.com/Artufe/bravo-tango-bravo/internal/entity"
)

const (
	DataForSEOBaseURL = "https://api.dataforseo.com/v3"
	dataForSEOName    = "dataforseo"
	dataForSEOOK      = "Ok."

	mapsLivePath    = "/serp/google/maps/live/advanced"
	organicPostPath = "/serp/google/organic/task_post"
	organicGetPath  = "/serp/google/organic/task_get/advanced/"
)

// OrganicOptions tunes the text search task payload.
type OrganicOptions struct {
	LocationCode int
	LanguageCode string
	SEDomain     string
	Depth        int
	Priority     int
}

// DefaultOrganicOptions targets google.co.uk in English.
var DefaultOrganicOptions = OrganicOptions{
	LocationCode: 2826,
	LanguageCode: "en",
	SEDomain:     "google.co.uk",
	Depth:        100,
	Priority:     2,
}

// DataForSEO calls the SERP API for maps listings and organic text search tasks.
type DataForSEO struct {
	client   *apiclient.Client
	baseURL  string
	apiKey   string
	organic  OrganicOptions
	mapDepth int
	poll     apiclient.PollConfig
}

// DataForSEOOption configures optional settings.
type DataForSEOOption func(*DataForSEO)

// WithBaseURL points the client at another host, mostly for tests.
func WithBaseURL(base string) DataForSEOOption {
	return func(d *DataForSEO) {
		if base != "" {
			d.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithPollConfig overrides how task results are waited on.
func WithPollConfig(cfg apiclient.PollConfig) DataForSEOOption {
	return func(d *DataForSEO) {
		d.poll = cfg
	}
}

// WithOrganicOptions overrides the organic task payload settings.
func WithOrganicOptions(opts OrganicOptions) DataForSEOOption {
	return func(d *DataForSEO) {
		d.organic = opts
	}
}

// NewDataForSEO builds the SERP client. apiKey is the base64 encoded login:password pair.
func NewDataForSEO(client *apiclient.Client, apiKey string, opts ...DataForSEOOption) *DataForSEO {
	d := &DataForSEO{
		client:   client,
		baseURL:  DataForSEOBaseURL,
		apiKey:   apiKey,
		organic:  DefaultOrganicOptions,
		mapDepth: 700,
		poll:     apiclient.DefaultPollConfig,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type dfsEnvelope[T any] struct {
	StatusCode    int          `json:"status_code"`
	StatusMessage string       `json:"status_message"`
	Tasks         []dfsTask[T] `json:"tasks"`
}

type dfsTask[T any] struct {
	ID            string `json:"id"`
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
	Result        []struct {
		Items []T `json:"items"`
	} `json:"result"`
}

type dfsMapsItem struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Phone       string `json:"phone"`
	Category    string `json:"category"`
	Address     string `json:"address"`
	AddressInfo struct {
		Borough     string `json:"borough"`
		Address     string `json:"address"`
		City        string `json:"city"`
		Zip         string `json:"zip"`
		Region      string `json:"region"`
		CountryCode string `json:"country_code"`
	} `json:"address_info"`
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	RankAbsolute int      `json:"rank_absolute"`
	Rating       *struct {
		Value      *float64 `json:"value"`
		VotesCount *int     `json:"votes_count"`
	} `json:"rating"`
	MainImage string `json:"main_image"`
}

type dfsOrganicItem struct {
	Type         string `json:"type"`
	Title        string `json:"title"`
	PreSnippet   string `json:"pre_snippet"`
	URL          string `json:"url"`
	RankAbsolute int    `json:"rank_absolute"`
}

type mapsQuery struct {
	Keyword string
	Lat     float64
	Lng     float64
	Zoom    int
}

// SearchPlaces runs a live maps search centred on the given coordinates. The live
// endpoint returns every result in one response so no page token is ever set.
func (d *DataForSEO) SearchPlaces(ctx context.Context, query string, lat, lng float64, zoom int, pageToken string) (entity.PlacePage, error) {
	if pageToken != "" {
		return entity.PlacePage{}, nil
	}
	caps := apiclient.Capabilities[mapsQuery, []dfsMapsItem]{
		Name:    dataForSEOName + "_maps",
		Build:   d.buildMapsRequest,
		Confirm: confirmDataForSEO,
		Parse:   parseDataForSEOItems[dfsMapsItem],
	}
	items, err := apiclient.Call(ctx, d.client, caps, mapsQuery{Keyword: query, Lat: lat, Lng: lng, Zoom: zoom})
	if err != nil {
		return entity.PlacePage{}, err
	}

	results := make([]entity.PlaceResult, 0, len(items))
	for _, item := range items {
		results = append(results, item.toPlaceResult())
	}
	return entity.PlacePage{Results: results}, nil
}

// Submit posts an organic search task and returns its identifier.
func (d *DataForSEO) Submit(ctx context.Context, keyword string) (string, error) {
	caps := apiclient.Capabilities[string, string]{
		Name:    dataForSEOName + "_task_post",
		Build:   d.buildTaskPostRequest,
		Confirm: confirmDataForSEO,
		Parse: func(body []byte) (string, error) {
			var env dfsEnvelope[json.RawMessage]
			if err := json.Unmarshal(body, &env); err != nil {
				return "", fmt.Errorf("decode task_post response: %w", err)
			}
			if len(env.Tasks) == 0 || env.Tasks[0].ID == "" {
				return "", &apiclient.ResponseError{Provider: dataForSEOName, Message: "task_post returned no task"}
			}
			return env.Tasks[0].ID, nil
		},
	}
	return apiclient.Call(ctx, d.client, caps, keyword)
}

type taskItems struct {
	items []dfsOrganicItem
	ready bool
}

// Poll fetches a task once. ready is false while the task has no result yet.
func (d *DataForSEO) Poll(ctx context.Context, taskID string) ([]entity.OrganicResult, bool, error) {
	caps := apiclient.Capabilities[string, taskItems]{
		Name:    dataForSEOName + "_task_get",
		Build:   d.buildTaskGetRequest,
		Confirm: confirmDataForSEO,
		Parse: func(body []byte) (taskItems, error) {
			var env dfsEnvelope[dfsOrganicItem]
			if err := json.Unmarshal(body, &env); err != nil {
				return taskItems{}, fmt.Errorf("decode task_get response: %w", err)
			}
			if len(env.Tasks) == 0 {
				return taskItems{}, &apiclient.ResponseError{Provider: dataForSEOName, Message: "task_get returned no task"}
			}
			if len(env.Tasks[0].Result) == 0 {
				return taskItems{}, nil
			}
			return taskItems{items: env.Tasks[0].Result[0].Items, ready: true}, nil
		},
	}
	got, err := apiclient.Call(ctx, d.client, caps, taskID)
	if err != nil || !got.ready {
		return nil, false, err
	}

	results := make([]entity.OrganicResult, 0, len(got.items))
	for _, item := range got.items {
		results = append(results, entity.OrganicResult(item))
	}
	return results, true, nil
}

// Retrieve polls a task until it has results or the poll budget runs out.
func (d *DataForSEO) Retrieve(ctx context.Context, taskID string) ([]entity.OrganicResult, error) {
	results, err := apiclient.Poll(ctx, d.poll, func(ctx context.Context) ([]entity.OrganicResult, bool, error) {
		return d.Poll(ctx, taskID)
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve task %s: %w", taskID, err)
	}
	return results, nil
}

func (d *DataForSEO) buildMapsRequest(ctx context.Context, q mapsQuery) (*http.Request, error) {
	payload := []map[string]any{{
		"keyword":             q.Keyword,
		"location_coordinate": fmt.Sprintf("%g,%g,%dz", q.Lat, q.Lng, q.Zoom),
		"language_code":       "en",
		"depth":               d.mapDepth,
	}}
	return d.newJSONRequest(ctx, http.MethodPost, mapsLivePath, payload)
}

func (d *DataForSEO) buildTaskPostRequest(ctx context.Context, keyword string) (*http.Request, error) {
	payload := []map[string]any{{
		"keyword":       keyword,
		"location_code": d.organic.LocationCode,
		"language_code": d.organic.LanguageCode,
		"se_domain":     d.organic.SEDomain,
		"depth":         d.organic.Depth,
		"priority":      d.organic.Priority,
	}}
	return d.newJSONRequest(ctx, http.MethodPost, organicPostPath, payload)
}

func (d *DataForSEO) buildTaskGetRequest(ctx context.Context, taskID string) (*http.Request, error) {
	return d.newJSONRequest(ctx, http.MethodGet, organicGetPath+url.PathEscape(taskID), nil)
}

func (d *DataForSEO) newJSONRequest(ctx context.Context, method, path string, payload any) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Basic "+d.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func confirmDataForSEO(body []byte) error {
	var env struct {
		StatusMessage string `json:"status_message"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return &apiclient.ResponseError{Provider: dataForSEOName, Message: "malformed response body"}
	}
	if env.StatusMessage != dataForSEOOK {
		return &apiclient.ResponseError{Provider: dataForSEOName, Message: fmt.Sprintf("unsuccessful status %q", env.StatusMessage)}
	}
	return nil
}

func parseDataForSEOItems[T any](body []byte) ([]T, error) {
	var env dfsEnvelope[T]
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(env.Tasks) == 0 || len(env.Tasks[0].Result) == 0 {
		return nil, nil
	}
	return env.Tasks[0].Result[0].Items, nil
}

func (item dfsMapsItem) toPlaceResult() entity.PlaceResult {
	out := entity.PlaceResult{
		Title:    item.Title,
		URL:      item.URL,
		Phone:    item.Phone,
		Category: item.Category,
		Address:  item.Address,
		AddressInfo: entity.Address{
			Address:     item.Address,
			Borough:     item.AddressInfo.Borough,
			Line1:       item.AddressInfo.Address,
			City:        item.AddressInfo.City,
			Zip:         item.AddressInfo.Zip,
			Region:      item.AddressInfo.Region,
			CountryCode: item.AddressInfo.CountryCode,
		},
		Latitude:     item.Latitude,
		Longitude:    item.Longitude,
		RankAbsolute: item.RankAbsolute,
		MainImage:    item.MainImage,
	}
	if item.Rating != nil {
		out.Rating = item.Rating.Value
		out.Votes = item.Rating.VotesCount
	}
	return out
}
