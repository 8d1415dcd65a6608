// Package exchange is a client for the exchangerate-api.com v6 API.
package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the production endpoint of exchangerate-api.com.
const DefaultBaseURL = "https://v6.exchangerate-api.com/v6"

// DefaultTimeout bounds every request to the rate provider.
const DefaultTimeout = 10 * time.Second

// ErrRateUnavailable is returned when the rate provider is unreachable or
// returns a response the client cannot parse. It is distinct from the
// missing-base-rate case, which falls back to 1.0.
var ErrRateUnavailable = errors.New("exchange rate unavailable")

// ErrDirectoryUnavailable is returned when the supported-codes listing cannot
// be fetched or parsed.
var ErrDirectoryUnavailable = errors.New("currency directory unavailable")

// Client talks to the exchangerate-api v6 endpoints.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the provider endpoint (used in tests).
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a new exchange rate client.
func New(apiKey string, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// latestResponse is the shape of GET /latest/{FROM}.
type latestResponse struct {
	ConversionRates map[string]float64 `json:"conversion_rates"`
}

// codesResponse is the shape of GET /codes. Each element is a
// (code, display name) pair.
type codesResponse struct {
	SupportedCodes [][]string `json:"supported_codes"`
}

// Rate fetches the conversion rate from one currency into another.
// If the provider answers but the target currency is absent from the payload,
// the rate falls back to 1.0 with a warning; provider or transport failures
// return ErrRateUnavailable instead.
func (c *Client) Rate(ctx context.Context, from, to string) (float64, error) {
	from = strings.ToUpper(from)
	to = strings.ToUpper(to)

	var resp latestResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/latest/%s", from), &resp); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRateUnavailable, err)
	}

	rate, ok := resp.ConversionRates[to]
	if !ok {
		// An otherwise valid payload without the target currency converts
		// 1:1. The warning makes a misconfigured base currency visible.
		c.logger.Warn("base currency missing from rate response, falling back to 1.0",
			"from", from,
			"to", to,
		)
		return 1.0, nil
	}

	return rate, nil
}

// SupportedCodes fetches the list of currency codes the provider can convert.
func (c *Client) SupportedCodes(ctx context.Context) ([]string, error) {
	var resp codesResponse
	if err := c.getJSON(ctx, "/codes", &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}

	codes := make([]string, 0, len(resp.SupportedCodes))
	for _, pair := range resp.SupportedCodes {
		if len(pair) == 0 {
			continue
		}
		codes = append(codes, pair[0])
	}

	if len(codes) == 0 {
		return nil, fmt.Errorf("%w: empty supported_codes list", ErrDirectoryUnavailable)
	}

	return codes, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	url := fmt.Sprintf("%s/%s%s", c.baseURL, c.apiKey, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d for %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}

	return nil
}
