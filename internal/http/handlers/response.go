// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the response utilities shared by every endpoint: the
// structured error envelope, the fail helpers that log server-side errors
// with request context, and the success-writing helpers. Every handler goes
// through these so that clients see one predictable shape for both success
// and failure.
//
// Example error response:
//
//	HTTP/1.1 404 Not Found
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "not_found",
//	  "message": "room not found"
//	}
//
// Example success response:
//
//	HTTP/1.1 201 Created
//	{ "id": "abc123", "title": "Landing page brainstorm" }
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vibedeux/go-room-backend/internal/http/middleware"
)

// ErrorResponse is the error envelope returned by all endpoints.
//
// RequestID echoes the X-Request-ID header so server logs can be matched to
// client-side failures. Code is a stable machine-readable string (constants
// in errors.go); Message is human-readable and safe to show to users.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"room not found"`
}

// fail aborts the request with a structured error envelope.
//
// It writes an ErrorResponse as JSON at the given status via
// AbortWithStatusJSON so no later handler runs. Statuses >= 500 are logged
// through the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	reqID := c.Writer.Header().Get("X-Request-ID")
	resp := ErrorResponse{
		RequestID: reqID,
		Code:      code,
		Message:   msg,
	}

	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail, for callers outside this package
// such as the router's NoRoute and NoMethod handlers.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// ok serializes body as JSON with the given status.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// noContent writes 204 No Content for operations with no response body.
func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
