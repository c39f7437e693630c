package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Artufe/bravo-tango-bravo/internal/apiclient"
	"github.com/Artufe/bravo-tango-bravo/internal/entity"
)

const (
	DebounceBaseURL = "https://api.debounce.io/v1/"
	debounceName    = "debounce"
)

// Debounce result codes.
const (
	debounceAcceptAll   = "4"
	debounceDeliverable = "5"
	debounceUnknown     = "7"
)

// Debounce validates single mailboxes.
type Debounce struct {
	client  *apiclient.Client
	baseURL string
	apiKey  string
}

// NewDebounce builds a validator. An empty baseURL uses the public endpoint.
func NewDebounce(client *apiclient.Client, apiKey, baseURL string) *Debounce {
	if baseURL == "" {
		baseURL = DebounceBaseURL
	}
	return &Debounce{client: client, baseURL: baseURL, apiKey: apiKey}
}

type debounceResponse struct {
	Success  string `json:"success"`
	Debounce struct {
		Email  string `json:"email"`
		Code   string `json:"code"`
		Result string `json:"result"`
		Reason string `json:"reason"`
	} `json:"debounce"`
}

// Validate probes one address.
func (d *Debounce) Validate(ctx context.Context, email string) (entity.Validation, error) {
	caps := apiclient.Capabilities[string, entity.Validation]{
		Name:        debounceName,
		Build:       d.buildRequest,
		CheckStatus: checkDebounceStatus,
		Confirm:     confirmDebounce,
		Parse: func(body []byte) (entity.Validation, error) {
			var resp debounceResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return entity.Validation{}, fmt.Errorf("decode validation response: %w", err)
			}
			return entity.Validation{
				Email:   email,
				Verdict: classifyDebounce(resp.Debounce.Code),
				Code:    resp.Debounce.Code,
				Reason:  resp.Debounce.Reason,
			}, nil
		},
	}
	return apiclient.Call(ctx, d.client, caps, email)
}

func (d *Debounce) buildRequest(ctx context.Context, email string) (*http.Request, error) {
	params := url.Values{}
	params.Set("email", email)
	params.Set("api", d.apiKey)
	return http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"?"+params.Encode(), nil)
}

func checkDebounceStatus(status int, _ []byte) error {
	switch status {
	case http.StatusPaymentRequired:
		return &apiclient.ResourceError{Provider: debounceName, Message: "payment required"}
	case http.StatusTooManyRequests:
		return &apiclient.ResponseError{Provider: debounceName, Message: "rate limit exceeded"}
	}
	return nil
}

func confirmDebounce(body []byte) error {
	var resp debounceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return &apiclient.ResponseError{Provider: debounceName, Message: "malformed response body"}
	}
	if resp.Success != "1" {
		return &apiclient.ResponseError{Provider: debounceName, Message: "unsuccessful validation response"}
	}
	return nil
}

func classifyDebounce(code string) entity.Verdict {
	switch code {
	case debounceDeliverable:
		return entity.VerdictDeliverable
	case debounceAcceptAll, debounceUnknown:
		return entity.VerdictAcceptAll
	default:
		return entity.VerdictUndeliverable
	}
}
