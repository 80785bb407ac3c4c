package signals

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yourusername/match-predictor/internal/models"
)

// HTTPClientConfig holds configuration for the signal feed client
type HTTPClientConfig struct {
	Timeout           time.Duration
	MaxRetries        int
	RetryWaitMin      time.Duration
	RetryWaitMax      time.Duration
	RateLimit         float64 // requests per second
	CircuitBreakerMax int     // max consecutive failures before circuit break
}

// DefaultHTTPClientConfig returns recommended defaults
func DefaultHTTPClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		Timeout:           10 * time.Second,
		MaxRetries:        3,
		RetryWaitMin:      100 * time.Millisecond,
		RetryWaitMax:      5 * time.Second,
		RateLimit:         5.0,
		CircuitBreakerMax: 5,
	}
}

// RateLimitedHTTPClient wraps retryablehttp.Client with rate limiting and circuit breaker
type RateLimitedHTTPClient struct {
	client            *retryablehttp.Client
	limiter           *rate.Limiter
	circuitBreakerMax int
	logger            *logrus.Logger

	// mu guards the breaker state; evaluations share one client across
	// goroutines.
	mu                sync.Mutex
	consecutiveErrors int
	isOpen            bool
	lastError         error
}

// NewRateLimitedHTTPClient creates a new rate-limited HTTP client
func NewRateLimitedHTTPClient(cfg HTTPClientConfig, logger *logrus.Logger) *RateLimitedHTTPClient {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient.Timeout = cfg.Timeout
	retryClient.RetryMax = cfg.MaxRetries
	retryClient.RetryWaitMin = cfg.RetryWaitMin
	retryClient.RetryWaitMax = cfg.RetryWaitMax
	retryClient.CheckRetry = customRetryPolicy()
	retryClient.Logger = nil

	return &RateLimitedHTTPClient{
		client:            retryClient,
		limiter:           rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		circuitBreakerMax: cfg.CircuitBreakerMax,
		logger:            logger,
	}
}

// Do executes an HTTP request with rate limiting and circuit breaker
func (c *RateLimitedHTTPClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	c.mu.Lock()
	if c.isOpen {
		lastErr := c.lastError
		c.mu.Unlock()
		return nil, fmt.Errorf("circuit breaker open: %v", lastErr)
	}
	c.mu.Unlock()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter error: %w", err)
	}

	retryReq, err := retryablehttp.FromRequest(req)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap request: %w", err)
	}

	resp, err := c.client.Do(retryReq.WithContext(ctx))
	if err != nil {
		c.recordFailure(err)
		return nil, err
	}

	// Reset circuit breaker on success
	if resp.StatusCode < 500 {
		c.mu.Lock()
		c.consecutiveErrors = 0
		c.isOpen = false
		c.mu.Unlock()
	}

	return resp, nil
}

func (c *RateLimitedHTTPClient) recordFailure(err error) {
	c.mu.Lock()
	c.consecutiveErrors++
	c.lastError = err
	opened := false
	count := c.consecutiveErrors
	if count >= c.circuitBreakerMax && !c.isOpen {
		c.isOpen = true
		opened = true
	}
	c.mu.Unlock()

	if opened {
		c.logger.WithError(err).Warnf("Circuit breaker opened after %d consecutive errors", count)
	}
}

// Get executes a GET request
func (c *RateLimitedHTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, req)
}

// Close closes any resources held by the client
func (c *RateLimitedHTTPClient) Close() error {
	c.client.HTTPClient.CloseIdleConnections()
	return nil
}

// customRetryPolicy defines which HTTP responses should trigger a retry
func customRetryPolicy() retryablehttp.CheckRetry {
	return func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if err != nil {
			return true, err
		}

		// Retry on rate limit (429) and server errors
		if resp.StatusCode == 429 || resp.StatusCode == 500 || resp.StatusCode == 502 || resp.StatusCode == 503 || resp.StatusCode == 504 {
			return true, nil
		}

		return false, nil
	}
}

// signalPayload is the wire format of the external signal feed
type signalPayload struct {
	Signals []struct {
		Kind       string   `json:"kind"`
		Value      float64  `json:"value"`
		Confidence *float64 `json:"confidence"`
	} `json:"signals"`
}

// HTTPProvider fetches structural signals from an external feed.
type HTTPProvider struct {
	endpoint string
	apiKey   string
	client   *RateLimitedHTTPClient
}

// NewHTTPProvider creates a provider for the given feed endpoint.
func NewHTTPProvider(endpoint, apiKey string, client *RateLimitedHTTPClient) *HTTPProvider {
	return &HTTPProvider{endpoint: endpoint, apiKey: apiKey, client: client}
}

// Name identifies the provider in logs.
func (p *HTTPProvider) Name() string { return "http" }

// Fetch queries the feed for a fixture's signals. Unknown kinds in the payload
// are ignored.
func (p *HTTPProvider) Fetch(ctx context.Context, fixture *models.Fixture) ([]Reading, error) {
	reqURL, err := p.buildURL(fixture)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build signal request: %w", err)
	}
	if p.apiKey != "" {
		req.Header.Set("X-API-Key", p.apiKey)
	}

	resp, err := p.client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("signal feed request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("signal feed returned status %d", resp.StatusCode)
	}

	var payload signalPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode signal payload: %w", err)
	}

	known := make(map[models.SignalKind]bool, len(models.AllSignalKinds))
	for _, kind := range models.AllSignalKinds {
		known[kind] = true
	}

	var readings []Reading
	for _, entry := range payload.Signals {
		kind := models.SignalKind(entry.Kind)
		if !known[kind] {
			continue
		}
		confidence := 0.0
		if entry.Confidence != nil {
			confidence = *entry.Confidence
		}
		readings = append(readings, Present(kind, entry.Value, confidence))
	}

	return readings, nil
}

func (p *HTTPProvider) buildURL(fixture *models.Fixture) (string, error) {
	parsed, err := url.Parse(p.endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid signal endpoint: %w", err)
	}

	query := parsed.Query()
	query.Set("league", fixture.League)
	query.Set("home", fixture.HomeTeam)
	query.Set("away", fixture.AwayTeam)
	if !fixture.Kickoff.IsZero() {
		query.Set("kickoff", fixture.Kickoff.UTC().Format(time.RFC3339))
	}
	parsed.RawQuery = query.Encode()

	return parsed.String(), nil
}
