// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file carries the request-logging core of the room API: a correlation
// ID injector, a structured access logger and a panic-safe recovery handler.
//
//   - RequestID() gives every request a stable correlation ID, propagated
//     through X-Request-ID and the Gin context.
//   - Logger() emits structured access logs (latency, status, sizes),
//     attaches a request-scoped zerolog.Logger and picks the level from the
//     outcome (info/warn/error).
//   - Recovery() turns panics into JSON 500 responses, keeping the
//     correlation ID and logging the stack.
//   - LoggerFrom() hands handlers and services the request-scoped logger
//     for enriched entries (lg.Info().Str("room_id", id).Msg("…")).
//
// The intended order is RequestID, then Logger (or RedactingLogger), then
// Recovery, so panics and errors carry the correlation ID. Query strings
// are capped in length before logging. The request-scoped logger lives
// under the "logger" Gin context key.
package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// requestIDKey is the Gin context key holding the request ID.
	requestIDKey = "requestID"
	// requestIDHeader propagates the correlation ID.
	requestIDHeader = "X-Request-ID"
	// maxQueryLogLength caps how much of the raw query string is logged.
	maxQueryLogLength = 2048
)

// RequestID attaches or propagates a correlation identifier per request.
//
// An incoming X-Request-ID header (case-insensitive lookup) is reused;
// without one a fresh UUIDv4 is generated. The ID lands on the response
// header and in the Gin context under "requestID". Install this first so
// everything downstream can rely on the ID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// Logger writes a structured access log entry per request.
//
// Each entry records method, path (the route template when matched),
// remote IP, user agent, referer, correlation ID, participant ID when the
// context carries one, request size, status, latency and bytes written. A
// request-scoped zerolog.Logger is stored under the "logger" context key
// for downstream code. Level selection: error for 5xx or when the Gin
// context collected errors, warn for 4xx, info otherwise.
//
// Install after RequestID() so entries include the correlation ID.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		rid, _ := c.Get(requestIDKey)
		pid, _ := c.Get("participantID")
		path := c.FullPath()
		if path == "" {
			// Unmatched route (404): fall back to the raw path.
			path = c.Request.URL.Path
		}

		l := log.With().
			Str("request_id", asString(rid)).
			Str("participant_id", asString(pid)).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("remote_ip", c.ClientIP()).
			Str("user_agent", c.Request.UserAgent()).
			Str("referer", c.Request.Referer()).
			Str("query", truncate(c.Request.URL.RawQuery, maxQueryLogLength)).
			// ContentLength is -1 when unknown.
			Int64("bytes_in", c.Request.ContentLength).
			Logger()

		c.Set("logger", &l)

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		bytesOut := c.Writer.Size()

		ev := l.With().
			Int("status", status).
			Dur("latency", latency).
			Int("bytes_out", bytesOut).
			Logger()

		switch {
		// Collected gin errors force error level regardless of status.
		case len(c.Errors) > 0:
			ev.Error().Str("errors", c.Errors.String()).Msg("request")
		case status >= 500:
			ev.Error().Msg("request")
		case status >= 400:
			ev.Warn().Msg("request")
		default:
			ev.Info().Msg("request")
		}
	}
}

// Recovery intercepts panics, logs the stack and answers with a JSON 500.
//
// The panic value and stack are logged with the request ID. When nothing
// has been written yet the response body is the standard envelope
// {"request_id": "...", "code": "internal_error", "message": "internal
// server error"}; after a partial write only the status is aborted.
// Install after Logger() so the panic is captured with request context.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				rid, _ := c.Get(requestIDKey)
				log.Error().
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Str("request_id", asString(rid)).
					Msg("panic recovered")

				if !c.Writer.Written() {
					c.Header("Content-Type", "application/json")
					c.Header(requestIDHeader, asString(rid))
					c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
						"request_id": asString(rid),
						"code":       "internal_error",
						"message":    "internal server error",
					})
					return
				}
				c.AbortWithStatus(http.StatusInternalServerError)
			}
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped zerolog.Logger attached by
// Logger(), or a plain fallback when none was attached. Never nil.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get("logger"); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

// asString returns v when it is a string, "" otherwise. Used for context
// values.
func asString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// truncate caps s to max bytes, appending an ellipsis when cut. max <= 0
// disables truncation. Byte-based, which is fine for log output.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
