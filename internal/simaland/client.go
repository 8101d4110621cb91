// Package simaland implements the client for the external catalog source, a
// paginated marketplace API returning loosely typed product payloads. The
// client owns the defensive decode step: every upstream field is coerced into
// a typed record with stated defaults so the rest of the application never
// touches the raw payload.
package simaland

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// PageSize is the fixed number of items requested per page.
const PageSize = 50

// Item is the typed, already-coerced record produced from one upstream
// payload entry.
type Item struct {
	ExternalID string
	UID        string
	SID        string
	Name       string
	Slug       string
	Material   string
	CategoryID string
	PhotoURL   string
	ImageTitle string
	Price      float64
	Balance    int
}

// Source is the contract the importer depends on. The production
// implementation is Client; tests substitute fakes.
type Source interface {
	// FetchPage returns the decoded items of one page (1-based). A
	// network or HTTP-status failure is returned as an error and aborts
	// the import run.
	FetchPage(ctx context.Context, page int) ([]Item, error)
}

// Client talks to the marketplace item listing endpoint.
type Client struct {
	// BaseURL is the API root, e.g. "https://www.sima-land.ru/api/v3".
	BaseURL string
	// HTTPClient is the transport; a default with sane timeouts is used
	// when nil.
	HTTPClient *http.Client
}

// NewClient constructs a Client with the collaborator's timeout budget.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 45 * time.Second,
		},
	}
}

// FetchPage implements Source.
func (c *Client) FetchPage(ctx context.Context, page int) ([]Item, error) {
	url := fmt.Sprintf("%s/item/?page=%d&per-page=%d", c.BaseURL, page, PageSize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build catalog page request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog page request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("catalog source responded with status %d", resp.StatusCode)
	}

	var payload struct {
		Items []map[string]any `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode catalog page: %w", err)
	}

	out := make([]Item, 0, len(payload.Items))
	for _, raw := range payload.Items {
		out = append(out, DecodeItem(raw))
	}
	return out, nil
}

// DecodeItem coerces one loosely typed payload entry into an Item. Coercion
// rules: missing or null values default (strings to "", price to 0, balance
// to 0); numeric identifiers are rendered as strings; balance and price
// accept both number and numeric-string encodings.
func DecodeItem(raw map[string]any) Item {
	return Item{
		ExternalID: asString(raw["id"]),
		UID:        asString(raw["uid"]),
		SID:        asString(raw["sid"]),
		Name:       asString(raw["name"]),
		Slug:       asString(raw["slug"]),
		Material:   asString(raw["stuff"]),
		CategoryID: asString(raw["category_id"]),
		PhotoURL:   asString(raw["photoUrl"]),
		ImageTitle: asString(raw["image_title"]),
		Price:      asFloat(raw["price"]),
		Balance:    asInt(raw["balance"]),
	}
}

// asString renders any scalar as a string; integral floats (JSON numbers)
// drop the fractional part so ids round-trip cleanly.
func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func asFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		if f, err := strconv.ParseFloat(t, 64); err == nil {
			return f
		}
	case int:
		return float64(t)
	}
	return 0
}

func asInt(v any) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case string:
		if n, err := strconv.Atoi(t); err == nil {
			return n
		}
	case int:
		return t
	}
	return 0
}
