package llm

import (
	"context"
	"sync"
	"time"
)

// RateLimitConfig configures request-rate limiting for providers.
type RateLimitConfig struct {
	// RequestsPerMinute limits the number of API calls per minute (0 = unlimited).
	RequestsPerMinute int
	// BurstSize allows a temporary burst above the steady rate.
	BurstSize int
}

// RateLimitProvider wraps a provider with a token-bucket request limiter.
// Embedding batches, vision calls and transcription uploads all draw from
// the same bucket since they hit the same upstream quota.
type RateLimitProvider struct {
	inner  Provider
	config *RateLimitConfig

	mu         sync.Mutex
	tokens     int
	lastRefill time.Time
}

// NewRateLimitProvider creates a rate-limited provider wrapper.
func NewRateLimitProvider(inner Provider, config *RateLimitConfig) *RateLimitProvider {
	burst := config.BurstSize
	if burst <= 0 {
		burst = 3
	}
	return &RateLimitProvider{
		inner:      inner,
		config:     config,
		tokens:     burst,
		lastRefill: time.Now(),
	}
}

// Name returns the underlying provider name.
func (r *RateLimitProvider) Name() string {
	return r.inner.Name()
}

// Complete rate-limits and delegates to the inner provider.
func (r *RateLimitProvider) Complete(ctx context.Context, prompt *Prompt, opts *RequestOptions) (*Response, error) {
	if err := r.waitForCapacity(ctx); err != nil {
		return nil, err
	}
	return r.inner.Complete(ctx, prompt, opts)
}

// Embed rate-limits and delegates to the inner provider.
func (r *RateLimitProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.waitForCapacity(ctx); err != nil {
		return nil, err
	}
	return r.inner.Embed(ctx, texts)
}

// Transcribe rate-limits and delegates to the inner provider.
func (r *RateLimitProvider) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if err := r.waitForCapacity(ctx); err != nil {
		return "", err
	}
	return r.inner.Transcribe(ctx, audioPath)
}

// waitForCapacity blocks until the bucket has a token or ctx ends.
func (r *RateLimitProvider) waitForCapacity(ctx context.Context) error {
	if r.config.RequestsPerMinute <= 0 {
		return nil
	}
	for {
		r.mu.Lock()
		r.refill()
		if r.tokens > 0 {
			r.tokens--
			r.mu.Unlock()
			return nil
		}
		r.mu.Unlock()

		interval := time.Minute / time.Duration(r.config.RequestsPerMinute)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// refill adds tokens for the time elapsed since the last refill, capped at
// the burst size. Caller must hold mu.
func (r *RateLimitProvider) refill() {
	now := time.Now()
	elapsed := now.Sub(r.lastRefill)

	add := int(elapsed.Minutes() * float64(r.config.RequestsPerMinute))
	if add <= 0 {
		return
	}

	burst := r.config.BurstSize
	if burst <= 0 {
		burst = 3
	}
	r.tokens += add
	if r.tokens > burst {
		r.tokens = burst
	}
	r.lastRefill = now
}

// WithRateLimit wraps a provider with request-rate limiting. A nil provider
// or a zero rate passes through unchanged.
func WithRateLimit(p Provider, requestsPerMinute int) Provider {
	if p == nil || requestsPerMinute <= 0 {
		return p
	}
	return NewRateLimitProvider(p, &RateLimitConfig{RequestsPerMinute: requestsPerMinute})
}
