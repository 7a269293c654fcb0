// Package geocode resolves store addresses to coordinates through a
// Kakao-style local-search HTTP API.
package geocode

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/stamp-ai/recommender/internal/app/metrics"
	"github.com/stamp-ai/recommender/pkg/logger"
)

// ErrUnauthorized marks a permanent credential failure; retrying is useless.
var ErrUnauthorized = fmt.Errorf("geocoder rejected credentials")

// Geocoder resolves an address to latitude and longitude.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (lat, lon float64, err error)
}

// HTTPClient queries an address-search endpoint. The endpoint receives the
// cleaned address in the query parameter and authenticates with a KakaoAK
// key header.
type HTTPClient struct {
	client   *http.Client
	endpoint *url.URL
	apiKey   string
	log      *logger.Logger
}

var _ Geocoder = (*HTTPClient)(nil)

// NewHTTPClient constructs a geocoding client for the given endpoint.
func NewHTTPClient(client *http.Client, endpoint, apiKey string, log *logger.Logger) (*HTTPClient, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("geocoder endpoint required")
	}
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse geocoder endpoint: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	if log == nil {
		log = logger.NewDefault("geocoder")
	}
	return &HTTPClient{
		client:   client,
		endpoint: parsed,
		apiKey:   strings.TrimSpace(apiKey),
		log:      log,
	}, nil
}

func (c *HTTPClient) Geocode(ctx context.Context, address string) (float64, float64, error) {
	address = CleanAddress(address)
	if address == "" {
		return 0, 0, fmt.Errorf("address is empty")
	}

	requestURL := *c.endpoint
	q := requestURL.Query()
	q.Set("query", address)
	requestURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL.String(), nil)
	if err != nil {
		return 0, 0, fmt.Errorf("build geocode request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "KakaoAK "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.RecordGeocodeCall("error")
		return 0, 0, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		metrics.RecordGeocodeCall("unauthorized")
		return 0, 0, fmt.Errorf("status %d: %w", resp.StatusCode, ErrUnauthorized)
	default:
		metrics.RecordGeocodeCall("error")
		return 0, 0, fmt.Errorf("geocoder status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		metrics.RecordGeocodeCall("error")
		return 0, 0, fmt.Errorf("read geocoder response: %w", err)
	}

	first := gjson.GetBytes(body, "documents.0")
	if !first.Exists() {
		metrics.RecordGeocodeCall("miss")
		return 0, 0, fmt.Errorf("address %q not found", address)
	}
	lat := first.Get("y").Float()
	lon := first.Get("x").Float()
	if lat == 0 && lon == 0 {
		metrics.RecordGeocodeCall("miss")
		return 0, 0, fmt.Errorf("geocoder returned empty coordinates for %q", address)
	}

	metrics.RecordGeocodeCall("ok")
	return lat, lon, nil
}
