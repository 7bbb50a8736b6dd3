// Package client provides the HTTP client for the Steam review listing API
// with error classification, metrics and an optional Redis page cache.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/steam-reviews/pkg/cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is the review listing endpoint; the app id is appended.
const DefaultBaseURL = "https://store.steampowered.com/appreviews/"

// DefaultTimeout bounds a single request.
const DefaultTimeout = 30 * time.Second

// maxErrorBody caps how much of a failed response body is kept for diagnostics.
const maxErrorBody = 4096

// statusNetworkError labels requests that got no HTTP response.
const statusNetworkError = "network_error"

// Prometheus metrics for review API requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "steam_requests_total",
		Help: "Total review API requests by status",
	}, []string{"status"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "steam_request_duration_seconds",
		Help:    "Review API request duration in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "steam_errors_total",
		Help: "Total review API errors by class",
	}, []string{"class"})
)

// Client is the review listing API client.
type Client struct {
	httpClient *http.Client
	cache      *cache.Manager
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the listing endpoint prefix; the app id is appended to it.
	BaseURL string

	// UserAgent header sent with every request.
	UserAgent string

	// Timeout per request.
	Timeout time.Duration

	// Cache is optional; nil disables page caching.
	Cache *cache.Manager
}

// DefaultConfig returns a configuration pointing at the public API.
func DefaultConfig(userAgent string) Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		UserAgent: userAgent,
		Timeout:   DefaultTimeout,
	}
}

// New creates a new review API client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("timeout must not be negative (got %s)", cfg.Timeout)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		cache:  cfg.Cache,
		config: cfg,
		logger: log.With().Str("component", "client").Logger(),
	}, nil
}

// FetchPage requests one page of reviews for appID.
//
// Every failure is returned as an *APIError: transport problems and non-2xx
// statuses, bodies that are not review JSON, and bodies with success=false.
// Nothing is retried.
func (c *Client) FetchPage(ctx context.Context, appID string, pr PageRequest) (*Page, error) {
	query := pr.Query()
	key := cache.Key{AppID: appID, Query: query}

	if page := c.cachedPage(ctx, key); page != nil {
		return page, nil
	}

	endpoint := c.config.BaseURL + url.PathEscape(appID) + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("app_id", appID).
		Str("cursor", query.Get("cursor")).
		Str("num_per_page", query.Get("num_per_page")).
		Msg("Requesting review page")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	page, err := decodePage(body)
	if err != nil {
		return nil, c.fail(&APIError{
			StatusCode: http.StatusOK,
			ErrorClass: ErrorClassDecode,
			Message:    "malformed response body",
			Err:        err,
		})
	}

	if !page.Success {
		msg := page.Error
		if msg == "" {
			msg = "Unknown error"
		}
		return nil, c.fail(&APIError{
			StatusCode: http.StatusOK,
			ErrorClass: ErrorClassRejected,
			Message:    msg,
		})
	}

	c.storePage(ctx, key, body)
	return page, nil
}

// do executes the request and returns the body of a 2xx response.
func (c *Client) do(req *http.Request) ([]byte, error) {
	start := time.Now()
	defer func() {
		requestDuration.Observe(time.Since(start).Seconds())
	}()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		requestsTotal.WithLabelValues(statusNetworkError).Inc()
		return nil, c.fail(&APIError{
			ErrorClass: c.classifyError(nil, err),
			Message:    "request failed",
			Err:        err,
		})
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		msg := resp.Status
		if s := strings.TrimSpace(string(snippet)); s != "" {
			msg = resp.Status + ": " + s
		}
		return nil, c.fail(&APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: c.classifyError(resp, nil),
			Message:    msg,
		})
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.fail(&APIError{
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassNetwork,
			Message:    "read response body",
			Err:        err,
		})
	}
	return body, nil
}

// classifyError categorizes a failure for observability and handling.
func (c *Client) classifyError(resp *http.Response, err error) ErrorClass {
	if err != nil {
		return ErrorClassNetwork
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return ErrorClassClient
	}
	return ErrorClassServer
}

func (c *Client) fail(apiErr *APIError) error {
	errorsTotal.WithLabelValues(string(apiErr.ErrorClass)).Inc()
	c.logger.Warn().
		Err(apiErr).
		Str("error_class", string(apiErr.ErrorClass)).
		Int("status", apiErr.StatusCode).
		Msg("Review page request failed")
	return apiErr
}

// cachedPage returns a decoded cached page or nil. Cache trouble is logged
// and treated as a miss.
func (c *Client) cachedPage(ctx context.Context, key cache.Key) *Page {
	if c.cache == nil {
		return nil
	}

	entry, err := c.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn().Err(err).Str("key", key.String()).Msg("Cache get error")
		}
		return nil
	}

	page, err := decodePage(entry.Data)
	if err != nil || !page.Success {
		c.logger.Warn().Err(err).Str("key", key.String()).Msg("Discarding unusable cached page")
		_ = c.cache.Delete(ctx, key)
		return nil
	}

	c.logger.Debug().Str("key", key.String()).Msg("Serving review page from cache")
	page.FromCache = true
	return page
}

func (c *Client) storePage(ctx context.Context, key cache.Key, body []byte) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, key, cache.NewEntry(body, c.cache.TTL())); err != nil {
		c.logger.Warn().Err(err).Str("key", key.String()).Msg("Failed to cache review page")
	}
}

func decodePage(body []byte) (*Page, error) {
	var page Page
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("decode page: %w", err)
	}
	return &page, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// Config returns the effective configuration.
func (c *Client) Config() Config {
	return c.config
}
