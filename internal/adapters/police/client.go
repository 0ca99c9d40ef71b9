// Package police is the data.police.uk street-crime client.
package police

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"github.com/crimestat/crimestat/internal/core/domain"
	"github.com/crimestat/crimestat/internal/pkg/telemetry"
)

// DefaultBaseURL is the public API root.
const DefaultBaseURL = "https://data.police.uk/api"

const crimesPath = "/crimes-street/all-crime"

// Options configures a Client.
type Options struct {
	BaseURL string
	// Timeout bounds each request. Zero leaves requests bounded only by ctx.
	Timeout   time.Duration
	Rate      float64
	Burst     int
	UserAgent string
}

// Client fetches street crimes. It is safe for concurrent use.
type Client struct {
	baseURL   string
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// New creates a new Client.
func New(opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	limit := rate.Inf
	if opts.Rate > 0 {
		limit = rate.Limit(opts.Rate)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}
	return &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: opts.Timeout},
		limiter:   rate.NewLimiter(limit, burst),
		userAgent: opts.UserAgent,
	}
}

// URL builds the request URL for q. The poly parameter is sent as-is: the
// API expects literal ':' and ',' separators.
func (c *Client) URL(q domain.RegionQuery) string {
	return fmt.Sprintf("%s%s?date=%s&poly=%s", c.baseURL, crimesPath, q.Date(), q.Poly())
}

// FetchCrimes issues one GET for q.
//
// A 503 means the area holds more than 10,000 crimes and maps to
// domain.ErrPayloadTooLarge. A 200 whose body is not a JSON array of records
// maps to domain.ErrMalformedResponse. Everything else is
// domain.ErrNetworkFailure.
func (c *Client) FetchCrimes(ctx context.Context, q domain.RegionQuery) ([]domain.CrimeRecord, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanPoliceFetch)
	defer span.End()
	span.SetAttributes(
		attribute.String("crime.date", q.Date()),
		attribute.Int("crime.vertices", len(q.Polygon.Vertices())),
	)

	records, err := c.fetch(ctx, q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("crime.records", len(records)))
	return records, nil
}

func (c *Client) fetch(ctx context.Context, q domain.RegionQuery) ([]domain.CrimeRecord, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit: %v", domain.ErrNetworkFailure, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(q), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrNetworkFailure, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusServiceUnavailable:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, domain.ErrPayloadTooLarge
	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: status %d", domain.ErrNetworkFailure, resp.StatusCode)
	}

	var records []domain.CrimeRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	if records == nil {
		records = []domain.CrimeRecord{}
	}
	return records, nil
}
