// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements idempotency support for unsafe methods, chiefly
// prompt submission. It validates the Idempotency-Key request header, runs
// an optional caller-supplied lookup for previously completed requests and
// annotates the Gin context so downstream code can read the normalized key
// (GetIdempotencyKey), detect replays (IsReplay) and let replays skip rate
// limiting via an internal flag.
//
// Transport concerns (validation, context stashing) stay here; persistence
// is decoupled behind the narrow IdempotencyLookup function type.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the request header clients send with unsafe
// operations. Its value must be stable across retries of the same semantic
// operation so duplicates can be collapsed.
const HeaderIdempotencyKey = "Idempotency-Key"

// Unexported context keys for idempotency state, read through the accessor
// helpers below.
const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay" // bool: true when a stored replay exists
	ctxKeyRateBypass = "rate.bypass" // bool: true to skip rate limiting
)

// GetIdempotencyKey returns the validated idempotency key stashed by
// IdempotencyValidator, with a presence flag. Handlers read the key here
// rather than from the header.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	v, ok := c.Get(ctxKeyIdemKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// IsReplay reports whether this request replays a previously completed
// operation for the same key/participant/room. Handlers and the rate
// limiter may then short-circuit to the persisted result.
func IsReplay(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyIdemReplay)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// IdempotencyOptions configures header validation for
// IdempotencyValidator. TTL enforcement belongs in the lookup function,
// not here.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters. If nil, a conservative
	// RFC7230-like token pattern is used: ^[A-Za-z0-9._~\-:]+$
	Pattern *regexp.Regexp
}

// IdempotencyLookup answers whether a successful, still-valid result
// exists for (participantID, roomID, key) at the given time. The usual
// implementation consults a database record carrying the prior response
// metadata and its TTL window. Return exists=true when the prior response
// can be replayed; errors are for lookup failures only and must not block
// normal processing.
type IdempotencyLookup func(ctx context.Context, participantID, roomID, key string, now time.Time) (exists bool, err error)

// IdempotencyValidator validates the Idempotency-Key header when present,
// stashes it in the context and consults the lookup for a prior completed
// request. A detected replay sets both the replay flag (IsReplay) and the
// rate-limit bypass flag.
//
// Without the header the middleware is a no-op. A malformed header yields
// a 400 with a compact error body; otherwise the chain always continues.
// The middleware never serves a cached payload itself; handlers decide how
// a replay is answered.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		// RFC-7230-ish token plus common safe chars.
		pat = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"code":    "bad_idempotency_key",
				"message": "invalid Idempotency-Key",
			})
			return
		}

		c.Set(ctxKeyIdemKey, key)

		if lookup != nil {
			pid := participantIDFromCtx(c)
			roomID := c.Param("id") // POST /rooms/:id/prompts carries the room in :id
			now := time.Now().UTC()

			if exists, _ := lookup(c.Request.Context(), pid, roomID, key, now); exists {
				c.Set(ctxKeyIdemReplay, true)
				c.Set(ctxKeyRateBypass, true)
			}
		}

		c.Next()
	}
}

// participantIDFromCtx extracts the acting participant from the Gin
// context (set upstream) or the X-Participant-ID header, falling back to
// "anonymous" when no identity is available.
func participantIDFromCtx(c *gin.Context) string {
	if v, ok := c.Get("participantID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if h := c.GetHeader("X-Participant-ID"); h != "" {
		return h
	}
	return "anonymous"
}
