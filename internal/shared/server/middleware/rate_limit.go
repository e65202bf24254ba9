package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"resume-matcher/internal/shared/server/respond"
)

// defaultBucketIdle is how long an untouched bucket is kept before it is swept.
const defaultBucketIdle = 10 * time.Minute

// RateLimitRule refills Rate tokens per second up to Burst. A zero rule never limits.
type RateLimitRule struct {
	Rate  float64
	Burst int
}

func (r RateLimitRule) disabled() bool { return r.Rate <= 0 || r.Burst <= 0 }

// RateLimitConfig maps request groups to rules. GroupFor returning "" or a group without a
// rule lets the request through. KeyFor defaults to the client IP.
type RateLimitConfig struct {
	Rules    map[string]RateLimitRule
	GroupFor func(*gin.Context) string
	KeyFor   func(*gin.Context) string
	Limiter  *RateLimiter
}

// RateLimiter holds one token bucket per client and group.
type RateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	now       func() time.Time
	idle      time.Duration
	lastSweep time.Time
}

type bucket struct {
	tokens float64
	seen   time.Time
}

func NewRateLimiter(now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{buckets: map[string]*bucket{}, now: now, idle: defaultBucketIdle}
}

// Len reports the number of live buckets.
func (l *RateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Allow takes a token for key. When none is left it returns the wait until the next one.
func (l *RateLimiter) Allow(key string, rule RateLimitRule) (bool, time.Duration) {
	if l == nil || rule.disabled() {
		return true, 0
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.sweep(now)

	b := l.buckets[key]
	if b == nil {
		b = &bucket{tokens: float64(rule.Burst), seen: now}
		l.buckets[key] = b
	}
	if dt := now.Sub(b.seen).Seconds(); dt > 0 {
		b.tokens = min(float64(rule.Burst), b.tokens+dt*rule.Rate)
	}
	b.seen = now

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	wait := time.Duration((1 - b.tokens) / rule.Rate * float64(time.Second))
	return false, wait.Round(time.Millisecond)
}

func (l *RateLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.idle {
		return
	}
	l.lastSweep = now
	for k, b := range l.buckets {
		if now.Sub(b.seen) >= l.idle {
			delete(l.buckets, k)
		}
	}
}

// RateLimit rejects over-limit requests with 429 and a Retry-After header.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Limiter == nil {
		cfg.Limiter = NewRateLimiter(nil)
	}
	return func(c *gin.Context) {
		var group string
		if cfg.GroupFor != nil {
			group = strings.TrimSpace(cfg.GroupFor(c))
		}
		rule, ok := cfg.Rules[group]
		if group == "" || !ok {
			c.Next()
			return
		}

		client := ""
		if cfg.KeyFor != nil {
			client = strings.TrimSpace(cfg.KeyFor(c))
		}
		if client == "" {
			client = c.ClientIP()
		}

		allowed, wait := cfg.Limiter.Allow(group+"|"+client, rule)
		if allowed {
			c.Next()
			return
		}
		if wait < time.Second {
			wait = time.Second
		}
		c.Header("Retry-After", strconv.Itoa(int((wait+time.Second-1)/time.Second)))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "Too many requests. Please try again later.",
			gin.H{"retryAfterMs": wait.Milliseconds(), "group": group})
	}
}
