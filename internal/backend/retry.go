package backend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/mockbird/mockbird/internal/log"
)

// RetryConfig tunes the backoff loop for generation calls.
type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryConfig returns the defaults used for plan and app generation.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// retryablePatterns groups transient-failure substrings by category,
// matched case-insensitively against err.Error(). Provider SDKs expose no
// sentinel errors for these, so string matching is the only seam.
var retryablePatterns = [][]string{
	{"rate limit", "quota exceeded", "429"},
	{"500", "502", "503", "504", "529", "unavailable", "overloaded"},
	{"connection reset", "timeout", "temporary", "broken pipe"},
}

// Retryable reports whether err looks transient.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, group := range retryablePatterns {
		for _, pattern := range group {
			if strings.Contains(msg, pattern) {
				return true
			}
		}
	}
	return false
}

// ReliableClient wraps a Client with a rate limiter, circuit breaker, and
// exponential-backoff retry for transient failures.
//
// Retry applies only to unstreamed calls: replaying a partly streamed
// response would hand duplicate fragments to the callback, so calls with a
// non-nil callback run at most once. Interactive edit cycles use the inner
// client directly since their contract forbids automatic retry entirely.
type ReliableClient struct {
	inner   Client
	retry   RetryConfig
	breaker *Breaker
	limiter *rate.Limiter
	logger  log.Logger
}

// ReliableConfig assembles the wrapper's tuning knobs.
type ReliableConfig struct {
	Retry          RetryConfig
	Breaker        BreakerConfig
	RequestsPerMin int
}

// NewReliable wraps inner with the reliability layer.
func NewReliable(inner Client, cfg ReliableConfig, logger log.Logger) *ReliableClient {
	if cfg.Retry.MaxRetries == 0 && cfg.Retry.InitialInterval == 0 {
		cfg.Retry = DefaultRetryConfig()
	}
	rpm := cfg.RequestsPerMin
	if rpm <= 0 {
		rpm = 30
	}

	return &ReliableClient{
		inner:   inner,
		retry:   cfg.Retry,
		breaker: NewBreaker(cfg.Breaker),
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm),
		logger:  logger,
	}
}

// Name returns the wrapped provider's name.
func (r *ReliableClient) Name() string { return r.inner.Name() }

// Breaker exposes the circuit breaker state for health reporting.
func (r *ReliableClient) Breaker() *Breaker { return r.breaker }

// Generate runs one generation with the reliability policy applied.
func (r *ReliableClient) Generate(ctx context.Context, req Request, cb StreamCallback) (string, error) {
	if err := r.breaker.Allow(); err != nil {
		return "", err
	}

	retries := r.retry.MaxRetries
	if cb != nil {
		retries = 0
	}

	var lastErr error
	delay := r.retry.InitialInterval
	start := time.Now()

	for attempt := 0; attempt <= retries; attempt++ {
		// Rate limit every attempt, retries included.
		if err := r.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit wait: %w", err)
		}

		text, err := r.inner.Generate(ctx, req, cb)
		if err == nil {
			r.breaker.Success()
			r.logger.Debug("generation succeeded",
				"provider", r.inner.Name(),
				"attempts", attempt+1,
				"elapsed", time.Since(start))
			return text, nil
		}
		lastErr = err

		if !Retryable(err) {
			r.breaker.Failure()
			return "", err
		}
		if attempt == retries {
			break
		}

		r.logger.Debug("retrying transient backend failure",
			"attempt", attempt+1,
			"delay", delay,
			"error", err)
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("context canceled during retry: %w", ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, r.retry.MaxInterval)
		}
	}

	r.breaker.Failure()
	return "", fmt.Errorf("generate after %d retries (elapsed %v): %w",
		retries, time.Since(start), lastErr)
}
