// Package client provides the core iNaturalist HTTP client with daily
// budget gating, caching, and error handling.
package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/Sternrassler/inat-obs-client/pkg/cache"
	"github.com/Sternrassler/inat-obs-client/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is the public iNaturalist API host.
const DefaultBaseURL = "https://api.inaturalist.org"

// Prometheus metrics for client operations.
var (
	inatRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inat_requests_total",
		Help: "Total API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	inatRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inat_request_duration_seconds",
		Help:    "API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	inatErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inat_errors_total",
		Help: "Total API errors by class",
	}, []string{"class"})
)

// ErrorClass represents a classification of HTTP errors.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassRateLimit represents 429 throttling responses.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"
)

// Client is the main API client.
type Client struct {
	httpClient *http.Client
	redis      *redis.Client
	budget     *ratelimit.Tracker
	cache      *cache.Manager
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// Redis client for caching and shared budget state
	Redis *redis.Client

	// User-Agent header (required; the API asks clients to identify
	// themselves). Format: "AppName/Version (contact@example.com)"
	UserAgent string

	// BaseURL of the API. Defaults to DefaultBaseURL; override in tests.
	BaseURL string

	// DailyBudget is the request ceiling per UTC day. The recommended
	// limit for the public API is 10k requests/day.
	DailyBudget int

	// Retry
	MaxRetries     int
	InitialBackoff time.Duration

	// Timeout per HTTP request.
	Timeout time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(redis *redis.Client, userAgent string) Config {
	return Config{
		Redis:          redis,
		UserAgent:      userAgent,
		BaseURL:        DefaultBaseURL,
		DailyBudget:    ratelimit.DefaultDailyBudget,
		MaxRetries:     3,
		InitialBackoff: 1 * time.Second,
		Timeout:        30 * time.Second,
	}
}

// New creates a new API client.
func New(cfg Config) (*Client, error) {
	if cfg.Redis == nil {
		return nil, fmt.Errorf("redis client is required")
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.DailyBudget <= 0 {
		return nil, fmt.Errorf("daily_budget must be > 0 (got %d)", cfg.DailyBudget)
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger := log.With().Str("component", "inat-client").Logger()

	budget := ratelimit.NewTracker(cfg.Redis, cfg.DailyBudget, logger)
	cacheManager := cache.NewManager(cfg.Redis)

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		redis:  cfg.Redis,
		budget: budget,
		cache:  cacheManager,
		config: cfg,
		logger: logger,
	}, nil
}

// Do performs an HTTP request with budget gating, caching, and retry.
// This is the core request method that orchestrates all client features.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	endpoint := req.URL.Path

	startTime := time.Now()
	defer func() {
		inatRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Check daily budget
	allowed, err := c.budget.ShouldAllowRequest(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("Budget check failed")
		return nil, fmt.Errorf("budget check: %w", err)
	}
	if !allowed {
		c.logger.Warn().
			Str("endpoint", endpoint).
			Msg("Request blocked by budget tracker")
		inatRequestsTotal.WithLabelValues(endpoint, "budget_blocked").Inc()
		return nil, fmt.Errorf("request blocked: daily budget exhausted")
	}

	// Step 2: Check cache
	cacheKey := cache.CacheKey{
		Endpoint:    endpoint,
		QueryParams: req.URL.Query(),
	}

	cachedEntry, err := c.cache.Get(ctx, cacheKey)
	if err != nil && err != cache.ErrCacheMiss {
		c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
	}

	// Step 3: Make conditional request if cache hit
	if cachedEntry != nil && cache.ShouldMakeConditionalRequest(cachedEntry) {
		cache.AddConditionalHeaders(req, cachedEntry)
		cache.ConditionalRequestsSent.Inc()
		c.logger.Debug().
			Str("endpoint", endpoint).
			Str("etag", cachedEntry.ETag).
			Msg("Making conditional request")
	}

	// Step 4: Identify ourselves
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	// Step 5: Execute with retry
	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", req.Method).
		Msg("Executing API request")

	var resp *http.Response
	var errClass ErrorClass

	attempt := func() error {
		var reqErr error
		resp, reqErr = c.httpClient.Do(req)

		if reqErr != nil {
			c.logger.Error().Err(reqErr).Str("endpoint", endpoint).Msg("HTTP request failed")
			errClass = c.classifyError(nil, reqErr)
			inatErrorsTotal.WithLabelValues(string(errClass)).Inc()
			inatRequestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return reqErr
		}

		// The request reached the API; count it against the budget.
		if err := c.budget.RecordRequest(ctx); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to record request against budget")
		}

		// 304 Not Modified is handled by the caching steps below.
		if resp.StatusCode == http.StatusNotModified {
			return nil
		}

		if resp.StatusCode >= 400 {
			errClass = c.classifyError(resp, nil)
			inatErrorsTotal.WithLabelValues(string(errClass)).Inc()
			inatRequestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()

			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("status", resp.StatusCode).
				Str("error_class", string(errClass)).
				Msg("API request error")

			if shouldRetry(errClass) {
				apiErr := &APIError{
					StatusCode: resp.StatusCode,
					ErrorClass: errClass,
					Message:    resp.Status,
				}
				resp.Body.Close() // close before retrying
				return apiErr
			}

			// 4xx: return the response and let the caller handle it.
			return nil
		}

		inatRequestsTotal.WithLabelValues(endpoint, fmt.Sprintf("%d", resp.StatusCode)).Inc()
		return nil
	}

	classify := func(error) ErrorClass { return errClass }

	retryErr := retryWithBackoff(ctx, attempt, classify, RetryConfig{
		MaxAttempts:    c.config.MaxRetries,
		InitialBackoff: c.config.InitialBackoff,
	})
	if retryErr != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return nil, retryErr
	}

	// Step 6: 304 Not Modified serves the cached body
	if resp.StatusCode == http.StatusNotModified {
		c.logger.Debug().Str("endpoint", endpoint).Msg("304 Not Modified - using cache")
		inatRequestsTotal.WithLabelValues(endpoint, "304").Inc()
		cache.NotModifiedResponses.Inc()

		if expiresStr := resp.Header.Get("Expires"); expiresStr != "" {
			if newExpires, err := http.ParseTime(expiresStr); err == nil {
				if err := c.cache.UpdateTTL(ctx, cacheKey, newExpires); err != nil {
					c.logger.Warn().Err(err).Msg("Failed to update cache TTL")
				}
			}
		}

		resp.Body.Close()
		return cache.EntryToResponse(cachedEntry), nil
	}

	// Step 7: Update cache on success
	if resp.StatusCode == http.StatusOK {
		entry, err := cache.ResponseToEntry(resp)
		if err != nil {
			c.logger.Warn().Err(err).Msg("Failed to create cache entry")
		} else if entry.TTL() > 0 {
			if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
				c.logger.Warn().Err(err).Msg("Failed to cache response")
			} else {
				c.logger.Debug().
					Str("endpoint", endpoint).
					Dur("ttl", entry.TTL()).
					Msg("Cached response")
			}
		}
	}

	return resp, nil
}

// classifyError categorizes an error for observability and retry handling.
func (c *Client) classifyError(resp *http.Response, err error) ErrorClass {
	if err != nil {
		return ErrorClassNetwork
	}
	return ClassifyStatus(resp.StatusCode)
}

// ClassifyStatus maps an HTTP status code to an error class.
func ClassifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 400 && status < 500:
		return ErrorClassClient
	case status >= 500:
		return ErrorClassServer
	default:
		return ""
	}
}

// Get performs a GET request against an API endpoint with query parameters.
func (c *Client) Get(ctx context.Context, endpoint string, params url.Values) (*http.Response, error) {
	u := c.config.BaseURL + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	return c.Do(req)
}

// Close closes the client and releases resources.
func (c *Client) Close() error {
	return nil
}

// GetCache returns the cache manager (for testing).
func (c *Client) GetCache() *cache.Manager {
	return c.cache
}
