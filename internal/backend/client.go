package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/reliancemove/service-quote/internal/domain/booking"
	"github.com/reliancemove/service-quote/internal/domain/pricing"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// Client calls the booking backend's JSON-over-HTTP endpoints.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a Client for baseURL.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
	}
}

// Price calls POST /price.
func (c *Client) Price(ctx context.Context, req pricing.PriceRequest) (pricing.PriceResponse, error) {
	var out pricing.PriceResponse
	if err := c.fetch(ctx, http.MethodPost, "/price", req, &out); err != nil {
		return pricing.PriceResponse{}, err
	}
	return out, nil
}

// Distance calls POST /distance.
func (c *Client) Distance(ctx context.Context, req pricing.DistanceRequest) (pricing.DistanceResponse, error) {
	var out pricing.DistanceResponse
	if err := c.fetch(ctx, http.MethodPost, "/distance", req, &out); err != nil {
		return pricing.DistanceResponse{}, err
	}
	return out, nil
}

// Autocomplete calls POST /autocomplete.
func (c *Client) Autocomplete(ctx context.Context, place string) ([]booking.Prediction, error) {
	var out struct {
		Predictions []booking.Prediction `json:"predictions"`
	}
	if err := c.fetch(ctx, http.MethodPost, "/autocomplete", map[string]string{"place": place}, &out); err != nil {
		return nil, err
	}
	if out.Predictions == nil {
		out.Predictions = []booking.Prediction{}
	}
	return out.Predictions, nil
}

// PostalCode calls GET /postalcode/{placeID} and returns its long_name.
func (c *Client) PostalCode(ctx context.Context, placeID string) (string, error) {
	var out struct {
		LongName string `json:"long_name"`
	}
	if err := c.fetch(ctx, http.MethodGet, "/postalcode/"+url.PathEscape(placeID), nil, &out); err != nil {
		return "", err
	}
	return out.LongName, nil
}

// CreateQuote calls POST /quote/create and returns the new quotation reference.
func (c *Client) CreateQuote(ctx context.Context, payload booking.QuotePayload) (string, error) {
	payload.QuotationRef = ""
	var out struct {
		NewQuote struct {
			QuotationRef string `json:"quotationRef"`
		} `json:"newQuote"`
	}
	if err := c.submit(ctx, http.MethodPost, "/quote/create", payload, &out); err != nil {
		return "", err
	}
	if out.NewQuote.QuotationRef == "" {
		return "", &ServiceError{Endpoint: "/quote/create", Status: http.StatusBadGateway, Message: "quotation reference not received from server"}
	}
	return out.NewQuote.QuotationRef, nil
}

// UpdateQuote calls PUT /quote/update for the payload's quotation reference.
func (c *Client) UpdateQuote(ctx context.Context, payload booking.QuotePayload) error {
	if payload.QuotationRef == "" {
		return errors.New("update quote: quotation reference is required")
	}
	return c.submit(ctx, http.MethodPut, "/quote/update", payload, nil)
}

// SendQuoteMail calls GET /quote/mail/{quotationRef}.
func (c *Client) SendQuoteMail(ctx context.Context, quoteRef string) error {
	return c.submit(ctx, http.MethodGet, "/quote/mail/"+url.PathEscape(quoteRef), nil, nil)
}

// CreateCheckoutSession calls POST /create-checkout-session and returns the payment session ID.
func (c *Client) CreateCheckoutSession(ctx context.Context, quoteRef string) (string, error) {
	var out struct {
		SessionID string `json:"sessionId"`
	}
	if err := c.submit(ctx, http.MethodPost, "/create-checkout-session", map[string]string{"quotationRef": quoteRef}, &out); err != nil {
		return "", err
	}
	if out.SessionID == "" {
		return "", &ServiceError{Endpoint: "/create-checkout-session", Status: http.StatusBadGateway, Message: "checkout session not received from server"}
	}
	return out.SessionID, nil
}

// Order is the booking record the backend creates once a checkout is paid.
type Order struct {
	QuotationRef string `json:"quotationRef"`
	BookingRef   string `json:"bookingRef"`
}

// GetOrder calls GET /order/get/{checkoutSessionID}.
func (c *Client) GetOrder(ctx context.Context, checkoutSessionID string) (Order, error) {
	var out struct {
		Order Order `json:"order"`
	}
	path := "/order/get/" + url.PathEscape(checkoutSessionID)
	if err := c.submit(ctx, http.MethodGet, path, nil, &out); err != nil {
		return Order{}, err
	}
	if out.Order.BookingRef == "" {
		return Order{}, &ServiceError{Endpoint: path, Status: http.StatusBadGateway, Message: "booking reference not received from server"}
	}
	return out.Order, nil
}

// fetch performs a lookup-style call; every failure becomes a FetchError.
func (c *Client) fetch(ctx context.Context, method, path string, body, out any) error {
	status, raw, err := c.do(ctx, method, path, body)
	if err != nil {
		return &FetchError{Endpoint: path, Err: err}
	}
	if status >= 300 {
		return &FetchError{Endpoint: path, Status: status, Err: fmt.Errorf("%s", strings.TrimSpace(string(raw)))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &FetchError{Endpoint: path, Status: status, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// submit performs a quote, booking or payment call; failures become ServiceErrors carrying the server payload.
func (c *Client) submit(ctx context.Context, method, path string, body, out any) error {
	status, raw, err := c.do(ctx, method, path, body)
	if err != nil {
		return &ServiceError{Endpoint: path, Message: err.Error()}
	}
	if status >= 300 {
		return newServiceError(path, status, raw)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ServiceError{Endpoint: path, Status: http.StatusBadGateway, Message: fmt.Sprintf("decode response: %v", err)}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("backend call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)
	return resp.StatusCode, raw, nil
}
