package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// RateLimitConfig sizes the per-caller token buckets.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

// DefaultRateLimitConfig is generous on purpose: the limiter exists to absorb
// a runaway polling loop on a front-desk terminal, not to meter legitimate
// clinic traffic.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{RequestsPerSecond: 100, BurstSize: 200}
}

type bucket struct {
	mu         sync.Mutex
	level      float64
	capacity   float64
	refillRate float64 // tokens per second
	refilledAt time.Time
}

// take refills the bucket for the elapsed time, then spends one token if the
// level allows. Returns the seconds to wait when it does not.
func (b *bucket) take() (ok bool, retryAfter int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.level += now.Sub(b.refilledAt).Seconds() * b.refillRate
	if b.level > b.capacity {
		b.level = b.capacity
	}
	b.refilledAt = now

	if b.level >= 1 {
		b.level--
		return true, 0
	}
	if b.refillRate <= 0 {
		return false, 1
	}
	return false, int((1-b.level)/b.refillRate) + 1
}

type bucketStore struct {
	mu      sync.RWMutex
	buckets map[string]*bucket
	cfg     RateLimitConfig
}

func (s *bucketStore) get(key string) *bucket {
	s.mu.RLock()
	b, ok := s.buckets[key]
	s.mu.RUnlock()
	if ok {
		return b
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.buckets[key]; ok {
		return b
	}
	b = &bucket{
		level:      float64(s.cfg.BurstSize),
		capacity:   float64(s.cfg.BurstSize),
		refillRate: s.cfg.RequestsPerSecond,
		refilledAt: time.Now(),
	}
	s.buckets[key] = b
	return b
}

// limiterKey scopes buckets per tenant and IP. All terminals of one clinic
// usually sit behind the same NAT address, so the tenant prefix keeps one
// clinic's burst from starving another behind a shared proxy.
func limiterKey(c echo.Context) string {
	key := c.RealIP()
	if tid, ok := c.Get("jwt_tenant_id").(string); ok && tid != "" {
		key = tid + ":" + key
	}
	return key
}

// RateLimit rejects callers that drain their token bucket with 429 and a
// Retry-After hint.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	store := &bucketStore{buckets: make(map[string]*bucket), cfg: cfg}
	limit := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', 0, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ok, retryAfter := store.get(limiterKey(c)).take()
			c.Response().Header().Set("X-RateLimit-Limit", limit)
			if !ok {
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
				c.Response().Header().Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
