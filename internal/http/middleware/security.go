// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides SecurityHeaders, the hardening middleware attached to
// the room API. It emits a conservative header set appropriate for a JSON
// service behind a reverse proxy: optional HSTS for HTTPS-only deployments,
// cache suppression for responses that carry room content, and browser
// feature policies.
//
// Notes:
//   - No CSP here; it only matters when serving HTML
//   - HSTS is opt-in and only sent when the request really arrived over HTTPS
//   - All headers are cheap to compute and idempotent per request
package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// SecurityOptions configures the headers emitted by SecurityHeaders.
//
// EnableHSTS turns on Strict-Transport-Security for HTTPS requests (plain
// HTTP never gets it). Only enable when traffic is HTTPS end-to-end,
// including the proxy-to-app hop.
//
// HSTSMaxAge is the HSTS lifetime; 15552000 (180 days) and 31536000 (one
// year) are the usual choices. Zero or negative falls back to 180 days.
//
// NoStore adds Cache-Control: no-store (with legacy Pragma/Expires) so that
// intermediaries do not cache prompt or report payloads.
//
// EnablePolicy controls Permissions-Policy and
// X-Permitted-Cross-Domain-Policies. Browsers honor them; other clients
// ignore them harmlessly.
type SecurityOptions struct {
	EnableHSTS   bool          // set true only when traffic is HTTPS end-to-end
	HSTSMaxAge   time.Duration // e.g., 180 * 24h
	NoStore      bool          // add Cache-Control: no-store
	EnablePolicy bool          // include Permissions-Policy, etc.
}

// SecurityHeaders returns a Gin middleware that attaches conservative HTTP
// security headers to every response.
//
// Always sets X-Content-Type-Options: nosniff, X-Frame-Options: DENY and
// Referrer-Policy: no-referrer. With EnablePolicy it adds
// Permissions-Policy (geolocation, microphone, camera, payment all denied)
// and X-Permitted-Cross-Domain-Policies: none. With NoStore it adds
// Cache-Control: no-store plus Pragma: no-cache and Expires: 0. With
// EnableHSTS, and only when the request is HTTPS, it adds
// Strict-Transport-Security with includeSubDomains and preload; keep HSTS
// off for localhost or when the proxy-to-app hop is plain HTTP. When an
// X-Request-ID response header exists it is added to
// Access-Control-Expose-Headers so browser clients can read it.
//
// Safe to combine with the CORS and logging middlewares. Any
// Content-Security-Policy for HTML routes belongs at the template layer,
// not here, so JSON clients are unaffected.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := int(opt.HSTSMaxAge.Seconds())
	if maxAge <= 0 {
		maxAge = int((180 * 24 * time.Hour).Seconds()) // 180 days default
	}
	return func(c *gin.Context) {
		h := c.Writer.Header()

		// Baseline hardening.
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		// Browser feature restrictions; non-browsers ignore these.
		if opt.EnablePolicy {
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
		}

		// Keep room content out of shared caches when requested.
		if opt.NoStore {
			h.Set("Cache-Control", "no-store")
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
		}

		// HSTS only for requests that actually came in over HTTPS.
		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security",
				"max-age="+itoa(maxAge)+"; includeSubDomains; preload")
		}

		// Let browser clients read X-Request-ID for log correlation.
		if rid := h.Get("X-Request-ID"); rid != "" {
			const hdr = "Access-Control-Expose-Headers"
			cur := h.Get(hdr)
			if cur == "" {
				h.Set(hdr, "X-Request-ID")
			} else if !strings.Contains(cur, "X-Request-ID") {
				h.Set(hdr, cur+", X-Request-ID")
			}
		}

		c.Next()
	}
}

// isHTTPS reports whether the request used HTTPS, either terminated here
// (r.TLS != nil) or at a proxy that set X-Forwarded-Proto: https.
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// itoa converts an int to decimal without pulling in strconv.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var b [20]byte
	pos := len(b)
	for i > 0 {
		pos--
		b[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		b[pos] = '-'
	}
	return string(b[pos:])
}
