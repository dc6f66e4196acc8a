// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file holds the in-memory token-bucket rate limiter that guards the
// room API, most importantly prompt submission, which fans out into
// reasoning-backend calls. Buckets are kept per identity with opportunistic
// eviction of idle entries.
//
//   - Per-key buckets via golang.org/x/time/rate
//   - Pluggable identity selection (participant ID or client IP)
//   - Best-effort cleanup of idle buckets to bound memory
//   - Bypass for idempotent replays when paired with IdempotencyValidator
//
// The limiter is process-local; a horizontally scaled deployment that needs
// a global limit should use a Redis-backed one instead. It exists for edge
// abuse control and cost protection, not authorization.
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// keyFunc selects the identity that keys a rate-limit bucket. It must
// return a stable string for the duration of a request, such as
// "participant:<id>" or "ip:<addr>".
type keyFunc func(*gin.Context) string

// KeyByParticipantOrIP returns a keyFunc preferring the participant
// identity (Gin context key "participantID", set upstream) and falling
// back to the client IP. Keys are prefixed ("participant:abc123",
// "ip:203.0.113.7") so the two namespaces cannot collide.
func KeyByParticipantOrIP() keyFunc {
	return func(c *gin.Context) string {
		if v, ok := c.Get("participantID"); ok {
			if s, ok := v.(string); ok && s != "" {
				return "participant:" + s
			}
		}
		return "ip:" + c.ClientIP()
	}
}

// visitor pairs a limiter with its last-seen time for idle eviction.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter enforces per-key token-bucket limits.
//
// Buckets are created on demand in a mutex-guarded map; idle ones are
// evicted after a TTL during lookups so memory stays bounded. Safe for
// concurrent use.
type RateLimiter struct {
	rps      rate.Limit
	burst    int
	keyFn    keyFunc
	mu       sync.Mutex
	visitors map[string]*visitor

	ttl      time.Duration
	cleanupN uint64
}

// NewRateLimiter builds a RateLimiter replenishing rps tokens per second
// with the given burst, keyed by keyFn. A burst <= 0 is coerced to 1; an
// rps of 0 admits nothing. Install via Handler().
func NewRateLimiter(rps float64, burst int, keyFn keyFunc) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		keyFn:    keyFn,
		visitors: make(map[string]*visitor),
		ttl:      10 * time.Minute, // evict idle entries after TTL
	}
}

// getVisitor returns the limiter for key, creating it when absent, and
// runs opportunistic GC of idle entries roughly every 5000 lookups.
//
// GC must run before touching the requested visitor, otherwise a stale
// bucket gets its lastSeen refreshed just as it should be evicted.
func (rl *RateLimiter) getVisitor(key string) *rate.Limiter {
	now := time.Now()

	rl.mu.Lock()
	rl.cleanupN++
	if rl.cleanupN >= 5000 {
		for k, vv := range rl.visitors {
			// >= keeps the TTL boundary itself evictable
			if now.Sub(vv.lastSeen) >= rl.ttl {
				delete(rl.visitors, k)
			}
		}
		rl.cleanupN = 0
	}

	if v, ok := rl.visitors[key]; ok {
		v.lastSeen = now
		lim := v.limiter
		rl.mu.Unlock()
		return lim
	}

	lim := rate.NewLimiter(rl.rps, rl.burst)
	rl.visitors[key] = &visitor{limiter: lim, lastSeen: now}
	rl.mu.Unlock()
	return lim
}

// IsRateBypass reports whether IdempotencyValidator flagged this request
// as a replay of a completed one. Handler() skips limiting for replays so
// they never consume tokens.
func IsRateBypass(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyRateBypass) // set by IdempotencyValidator
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Handler returns the Gin middleware enforcing the limits.
//
// Replays (IsRateBypass) pass through untouched. Other requests draw a
// token from their key's bucket; when empty the request is rejected:
//
//	HTTP/1.1 429 Too Many Requests
//	{
//	  "request_id": "<uuid>",
//	  "code":       "rate_limited",
//	  "message":    "rate limit exceeded"
//	}
//
// with a minimal Retry-After header.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		key := rl.keyFn(c)
		lim := rl.getVisitor(key)

		if lim.Allow() {
			c.Next()
			return
		}

		c.Header("Retry-After", "1")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get("X-Request-ID"),
			"code":       "rate_limited",
			"message":    "rate limit exceeded",
		})
	}
}
