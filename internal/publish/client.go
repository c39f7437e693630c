// Package publish delivers finished enrichment runs to a downstream consumer.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/api/idtoken"

	"github.com/Artufe/bravo-tango-bravo/internal/entity"
)

// Payload is the JSON document posted for each finished run.
type Payload struct {
	QueryID   uuid.UUID        `json:"query_id"`
	Companies []entity.Company `json:"companies"`
}

// Client posts run results to a configured URL. A nil Client or one built
// with an empty URL publishes nothing.
type Client struct {
	client *http.Client
	url    string
}

// New builds a publisher, auto-configuring an ID token client when client is nil.
func New(client *http.Client, url string) *Client {
	url = strings.TrimRight(strings.TrimSpace(url), "/")
	if url == "" {
		return &Client{}
	}
	if client == nil {
		idc, err := idtoken.NewClient(context.Background(), url)
		if err != nil {
			client = &http.Client{Timeout: 10 * time.Second}
		} else {
			client = idc
		}
	}
	return &Client{client: client, url: url}
}

// Enabled reports whether results will actually be sent.
func (c *Client) Enabled() bool {
	return c != nil && c.url != ""
}

// Publish posts the companies of a finished query.
func (c *Client) Publish(ctx context.Context, queryID uuid.UUID, companies []entity.Company) error {
	if !c.Enabled() {
		return nil
	}
	if companies == nil {
		companies = []entity.Company{}
	}

	body, err := json.Marshal(Payload{QueryID: queryID, Companies: companies})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create publish request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Query-ID", queryID.String())

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("publish request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("publish error: status %d: %s", resp.StatusCode, extractError(resp.Body))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func extractError(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return "consumer returned an error"
	}

	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(data))
}
