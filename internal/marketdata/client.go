// Package marketdata fetches the official fund NAV from AMFI and live quotes from the Yahoo chart API.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/rewired-gh/premiumwatch/internal/models"
)

const maxBodyBytes = 16 << 20

// ClientConfig holds HTTP and resilience settings shared by the sources.
type ClientConfig struct {
	Timeout           time.Duration
	UserAgent         string
	RequestsPerSecond float64
	BreakerFailures   uint32
	BreakerTimeout    time.Duration
}

// Client performs single-attempt GET requests. Requests are paced by a token
// bucket and short-circuited by a breaker after consecutive failures.
type Client struct {
	httpClient *http.Client
	userAgent  string
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
}

// NewClient creates a client for one upstream source.
func NewClient(name string, cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 3
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 5 * time.Minute
	}

	failures := cfg.BreakerFailures
	settings := gobreaker.Settings{
		Name:    name,
		Timeout: cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		userAgent:  cfg.UserAgent,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 2),
		breaker:    gobreaker.NewCircuitBreaker(settings),
	}
}

// get fetches urlStr and returns the body. Every failure is wrapped in
// models.ErrFetchFailure; there is no retry.
func (c *Client) get(ctx context.Context, urlStr, accept string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", models.ErrFetchFailure, err)
	}

	body, err := c.breaker.Execute(func() (interface{}, error) {
		return c.do(ctx, urlStr, accept)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %s circuit open: %v", models.ErrFetchFailure, c.breaker.Name(), err)
		}
		return nil, fmt.Errorf("%w: %v", models.ErrFetchFailure, err)
	}
	return body.([]byte), nil
}

func (c *Client) do(ctx context.Context, urlStr, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, err
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("unexpected status %d from %s: %s", resp.StatusCode, req.URL.Host, snippet)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	return body, nil
}
