package resilience

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter provides global and per-key rate limiting.
// Keys are typically chat IDs; Telegram enforces both a global send budget
// and a per-chat one.
type RateLimiter struct {
	global   *rate.Limiter
	perKey   map[string]*rate.Limiter
	mu       sync.RWMutex
	keyRPS   float64
	keyBurst int
}

// RateLimiterConfig holds rate limiter configuration.
type RateLimiterConfig struct {
	GlobalRPS   float64
	GlobalBurst int
	KeyRPS      float64
	KeyBurst    int
}

// DefaultRateLimiterConfig returns defaults matching Telegram's published
// limits (~30 msg/s global, 1 msg/s per chat).
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GlobalRPS:   30,
		GlobalBurst: 10,
		KeyRPS:      1,
		KeyBurst:    3,
	}
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	return &RateLimiter{
		global:   rate.NewLimiter(rate.Limit(cfg.GlobalRPS), cfg.GlobalBurst),
		perKey:   make(map[string]*rate.Limiter),
		keyRPS:   cfg.KeyRPS,
		keyBurst: cfg.KeyBurst,
	}
}

// Wait blocks until both the global and the per-key limits allow.
func (r *RateLimiter) Wait(ctx context.Context, key string) error {
	if err := r.global.Wait(ctx); err != nil {
		return err
	}
	return r.getOrCreate(key).Wait(ctx)
}

// Allow returns true if the request is allowed without blocking.
func (r *RateLimiter) Allow(key string) bool {
	if !r.global.Allow() {
		return false
	}
	return r.getOrCreate(key).Allow()
}

// GlobalAllow checks only the global rate limit.
func (r *RateLimiter) GlobalAllow() bool {
	return r.global.Allow()
}

func (r *RateLimiter) getOrCreate(key string) *rate.Limiter {
	r.mu.RLock()
	limiter, exists := r.perKey[key]
	r.mu.RUnlock()
	if exists {
		return limiter
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if limiter, exists = r.perKey[key]; exists {
		return limiter
	}
	limiter = rate.NewLimiter(rate.Limit(r.keyRPS), r.keyBurst)
	r.perKey[key] = limiter
	return limiter
}
