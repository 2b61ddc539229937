package google

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/gapps-cli/internal/core/ports/driven"
)

// ServiceType identifies a Google API service for rate limiting purposes.
type ServiceType string

const (
	// ServiceDrive is the Google Drive API service (v2 and v3 share quota).
	ServiceDrive ServiceType = "drive"
	// ServiceSheets is the Google Sheets API service.
	ServiceSheets ServiceType = "sheets"
)

// DefaultBackoff is used when a 429 response carries no Retry-After header.
const DefaultBackoff = 30 * time.Second

// RateLimitConfig holds rate limiting configuration for a service.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate limit.
	RequestsPerSecond float64
	// BurstSize is the maximum burst size.
	BurstSize int
}

// DefaultRateLimits provides conservative defaults for each Google service.
// These are well below Google's actual limits to avoid hitting quotas.
var DefaultRateLimits = map[ServiceType]RateLimitConfig{
	ServiceDrive:  {RequestsPerSecond: 8.0, BurstSize: 10}, // Google allows 10/sec/user
	ServiceSheets: {RequestsPerSecond: 1.0, BurstSize: 5},  // 60 requests/min/user
}

// RateLimiter provides rate limiting for Google API requests.
// It uses a token bucket algorithm with backoff after 429 responses.
type RateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
	service ServiceType
}

// NewRateLimiter creates a new rate limiter for the specified service.
func NewRateLimiter(service ServiceType) *RateLimiter {
	cfg, ok := DefaultRateLimits[service]
	if !ok {
		cfg = RateLimitConfig{RequestsPerSecond: 5.0, BurstSize: 10}
	}

	limiter := NewRateLimiterWithConfig(cfg)
	limiter.service = service
	return limiter
}

// NewRateLimiterWithConfig creates a rate limiter with custom configuration.
// A non-positive rate disables limiting.
func NewRateLimiterWithConfig(cfg RateLimitConfig) *RateLimiter {
	limit := rate.Limit(cfg.RequestsPerSecond)
	if cfg.RequestsPerSecond <= 0 {
		limit = rate.Inf
	}
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(limit, burst),
	}
}

// RateLimiterFromConfig creates a limiter for service, reading
// "ratelimit.<service>_rps" and "ratelimit.<service>_burst" overrides.
// A configured rate of 0 disables limiting.
func RateLimiterFromConfig(store driven.ConfigStore, service ServiceType) *RateLimiter {
	limiter := NewRateLimiter(service)
	if store == nil {
		return limiter
	}

	cfg, ok := DefaultRateLimits[service]
	if !ok {
		cfg = RateLimitConfig{RequestsPerSecond: 5.0, BurstSize: 10}
	}
	rpsKey := "ratelimit." + string(service) + "_rps"
	burstKey := "ratelimit." + string(service) + "_burst"
	_, hasRPS := store.Get(rpsKey)
	_, hasBurst := store.Get(burstKey)
	if !hasRPS && !hasBurst {
		return limiter
	}
	if hasRPS {
		cfg.RequestsPerSecond = store.GetFloat(rpsKey)
	}
	if burst := store.GetInt(burstKey); hasBurst && burst > 0 {
		cfg.BurstSize = burst
	}

	limiter = NewRateLimiterWithConfig(cfg)
	limiter.service = service
	return limiter
}

// Service returns the service this limiter was created for.
func (r *RateLimiter) Service() ServiceType {
	return r.service
}

// Wait blocks until a request can be made without exceeding the rate limit.
// It also respects any backoff period set by RecordRateLimitError.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if time.Now().Before(retryAt) {
		timer := time.NewTimer(time.Until(retryAt))
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return r.limiter.Wait(ctx)
}

// RecordRateLimitError sets a backoff period after a 429 response.
// A non-positive delay falls back to DefaultBackoff.
func (r *RateLimiter) RecordRateLimitError(delay time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if delay <= 0 {
		delay = DefaultBackoff
	}

	if at := time.Now().Add(delay); at.After(r.retryAt) {
		r.retryAt = at
	}
}

// Observe inspects a call result and records a backoff if it was rate limited.
// It returns err unchanged.
func (r *RateLimiter) Observe(err error) error {
	if err != nil && IsRateLimited(err) {
		r.RecordRateLimitError(RetryAfter(err))
	}
	return err
}

// Allow checks if a request can be made immediately without blocking.
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if time.Now().Before(retryAt) {
		return false
	}

	return r.limiter.Allow()
}
