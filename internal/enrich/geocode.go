// Package enrich is an optional external geocode backfill client for IPs
// that fail to resolve against the local MaxMind database. No command
// calls it: the GeoIP ingest tool only counts unresolved lines. Decoupled from the main ingest path the same way this
// codebase's offline-enrichment REST client is decoupled from its online
// query path.
package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/jimspencer/spidermap/internal/logger"
)

// Result is the subset of a geocode response this ingest path needs.
type Result struct {
	Lon  float64 `json:"lon"`
	Lat  float64 `json:"lat"`
	City string  `json:"city"`
}

// Client queries a configured geocode REST endpoint for a single query
// term (typically an IP address string, but any identifier the endpoint
// accepts as its "q" parameter works).
type Client struct {
	Endpoint   string
	Key        string
	HTTPClient *http.Client
}

// NewClient returns a Client with a 5s-timeout default HTTP client,
// matching this codebase's convention for offline enrichment calls.
func NewClient(endpoint, key string) *Client {
	return &Client{
		Endpoint:   endpoint,
		Key:        key,
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// Query resolves q against the configured endpoint.
func (c *Client) Query(ctx context.Context, q string) (*Result, error) {
	if c.Endpoint == "" {
		return nil, errors.New("enrich: no endpoint configured")
	}
	v := url.Values{}
	v.Set("q", q)
	if c.Key != "" {
		v.Set("key", c.Key)
	}
	reqURL := c.Endpoint + "?" + v.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}

	t0 := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		logger.L().Debug("enrich_http_error", "q", q, "err", err)
		return nil, err
	}
	defer resp.Body.Close()

	var r Result
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		logger.L().Debug("enrich_decode_error", "q", q, "err", err)
		return nil, err
	}
	logger.L().Debug("enrich_resolved", "q", q, "city", r.City, "duration_ms", time.Since(t0).Milliseconds())
	return &r, nil
}
