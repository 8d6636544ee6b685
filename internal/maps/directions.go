package maps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/reliancemove/service-quote/internal/backend"
	"github.com/reliancemove/service-quote/internal/domain/journey"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const endpoint = "directions"

// DirectionsClient fetches routes from the Google Directions web service.
type DirectionsClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *zap.Logger
}

// NewDirectionsClient creates a client for baseURL (the directions JSON endpoint).
func NewDirectionsClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *DirectionsClient {
	return &DirectionsClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
	}
}

// Directions implements journey.Provider. A non-OK provider status is returned in the
// response for the aggregator to reject; transport and decode failures are FetchErrors.
func (c *DirectionsClient) Directions(ctx context.Context, req journey.Request) (journey.Response, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return journey.Response{}, &backend.FetchError{Endpoint: endpoint, Err: err}
	}
	u.RawQuery = query(req, c.apiKey).Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return journey.Response{}, &backend.FetchError{Endpoint: endpoint, Err: err}
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return journey.Response{}, &backend.FetchError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return journey.Response{}, &backend.FetchError{Endpoint: endpoint, Status: resp.StatusCode, Err: fmt.Errorf("%s", strings.TrimSpace(string(body)))}
	}

	var out journey.Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return journey.Response{}, &backend.FetchError{Endpoint: endpoint, Status: resp.StatusCode, Err: fmt.Errorf("decode directions: %w", err)}
	}

	c.logger.Debug("directions fetched",
		zap.String("status", out.Status),
		zap.Int("waypoints", len(req.Waypoints)),
	)
	return out, nil
}

func query(req journey.Request, apiKey string) url.Values {
	q := url.Values{}
	q.Set("origin", req.Origin)
	q.Set("destination", req.Destination)
	if len(req.Waypoints) > 0 {
		parts := make([]string, 0, len(req.Waypoints)+1)
		if req.OptimizeWaypoints {
			parts = append(parts, "optimize:true")
		}
		for _, w := range req.Waypoints {
			loc := w.Location
			if !w.Stopover {
				loc = "via:" + loc
			}
			parts = append(parts, loc)
		}
		q.Set("waypoints", strings.Join(parts, "|"))
	}
	if req.TravelMode != "" {
		q.Set("mode", strings.ToLower(req.TravelMode))
	}
	q.Set("units", "imperial")
	if apiKey != "" {
		q.Set("key", apiKey)
	}
	return q
}
