package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"boneai-backend/internal/shared/server/respond"
	"boneai-backend/internal/shared/telemetry"
	"boneai-backend/internal/shared/util"
)

const (
	defaultRateLimitGroup = "DEFAULT"

	// GroupAnalyze covers calls that reach the generation model.
	GroupAnalyze = "ANALYZE"
	// GroupShare covers calls that send email.
	GroupShare = "SHARE"
)

// DefaultRateLimitRules returns per-principal budgets for each route group.
func DefaultRateLimitRules() map[string]RateLimitRule {
	return map[string]RateLimitRule{
		GroupAnalyze:          {Rate: 0.2, Burst: 5},
		GroupShare:            {Rate: 0.1, Burst: 3},
		defaultRateLimitGroup: {Rate: 5, Burst: 20},
	}
}

// GroupForRoute classifies the matched route into a rate limit group.
func GroupForRoute(c *gin.Context) string {
	if c.Request.Method != http.MethodPost {
		return defaultRateLimitGroup
	}
	switch c.FullPath() {
	case "/api/v1/analyze", "/api/v1/chat":
		return GroupAnalyze
	case "/api/v1/share-via-email", "/api/v1/send-email", "/api/v1/analyses/:id/share":
		return GroupShare
	default:
		return defaultRateLimitGroup
	}
}

// RateLimitRule is a token bucket: Rate tokens per second, at most Burst stored.
type RateLimitRule struct {
	Rate  float64
	Burst int
}

type RateLimitConfig struct {
	Rules        map[string]RateLimitRule
	DefaultGroup string
	GroupFor     func(*gin.Context) string
	Limiter      *RateLimiter
}

// RateLimiter holds one bucket per principal and group. Buckets idle for
// longer than idleTTL are dropped during a periodic sweep.
type RateLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*rateBucket
	now       func() time.Time
	idleTTL   time.Duration
	lastSweep time.Time
}

const defaultBucketIdleTTL = 10 * time.Minute

type rateBucket struct {
	tokens float64
	last   time.Time
}

func NewRateLimiter(now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{
		buckets:   make(map[string]*rateBucket),
		now:       now,
		idleTTL:   defaultBucketIdleTTL,
		lastSweep: now(),
	}
}

// Len reports how many buckets are tracked.
func (l *RateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// sweep must be called with l.mu held.
func (l *RateLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.idleTTL {
		return
	}
	for key, b := range l.buckets {
		if now.Sub(b.last) >= l.idleTTL {
			delete(l.buckets, key)
		}
	}
	l.lastSweep = now
}

// RateLimit rejects requests over their group budget with 429 and Retry-After.
// Authenticated callers are keyed by user id, guests by client IP.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Limiter == nil {
		cfg.Limiter = NewRateLimiter(nil)
	}
	if cfg.DefaultGroup == "" {
		cfg.DefaultGroup = defaultRateLimitGroup
	}
	return func(c *gin.Context) {
		group := cfg.DefaultGroup
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		if cfg.GroupFor != nil {
			if g := strings.TrimSpace(cfg.GroupFor(c)); g != "" {
				group = g
			}
		}
		rule, ok := cfg.Rules[group]
		if !ok {
			c.Next()
			return
		}
		principal := strings.TrimSpace(UserIDFromContext(c))
		if principal == "" {
			principal = strings.TrimSpace(c.ClientIP())
		}
		key := principal + "|" + group
		allowed, retryAfter := cfg.Limiter.Allow(key, rule)
		if allowed {
			c.Next()
			return
		}
		retryAfterMs := int(retryAfter / time.Millisecond)
		if retryAfterMs <= 0 {
			retryAfterMs = 1000
		}
		retryAfterSeconds := int(math.Ceil(float64(retryAfterMs) / 1000.0))
		if retryAfterSeconds <= 0 {
			retryAfterSeconds = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfterSeconds))
		telemetry.Warn("rate_limit.rejected", map[string]any{
			"request_id":     RequestIDFromContext(c),
			"group":          group,
			"user_key":       util.Pseudonymize(UserIDFromContext(c)),
			"retry_after_ms": retryAfterMs,
		})
		respond.Error(c, http.StatusTooManyRequests, respond.CodeRateLimited, "too many requests, retry later", gin.H{
			"retryAfterMs": retryAfterMs,
		})
	}
}

// Allow takes one token from key's bucket, or reports how long until one is available.
func (l *RateLimiter) Allow(key string, rule RateLimitRule) (bool, time.Duration) {
	if l == nil {
		return true, 0
	}
	if rule.Rate <= 0 || rule.Burst <= 0 {
		return true, 0
	}
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sweep(now)
	bucket, ok := l.buckets[key]
	if !ok {
		bucket = &rateBucket{
			tokens: float64(rule.Burst),
			last:   now,
		}
		l.buckets[key] = bucket
	}
	elapsed := now.Sub(bucket.last).Seconds()
	if elapsed > 0 {
		bucket.tokens = math.Min(float64(rule.Burst), bucket.tokens+elapsed*rule.Rate)
		bucket.last = now
	}
	if bucket.tokens >= 1 {
		bucket.tokens -= 1
		return true, 0
	}
	needed := 1 - bucket.tokens
	waitSec := needed / rule.Rate
	if waitSec < 0 {
		waitSec = 0
	}
	retryAfter := time.Duration(math.Ceil(waitSec*1000.0)) * time.Millisecond
	return false, retryAfter
}
