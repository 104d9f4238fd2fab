// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file hardens responses with a small set of security headers. The API
// serves JSON only, so there is no Content-Security-Policy here; what
// matters for this surface is stopping content sniffing on uploaded-document
// responses, keeping answers out of shared caches, and HSTS when the
// deployment terminates TLS end-to-end.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// SecurityOptions configures SecurityHeaders.
type SecurityOptions struct {
	// EnableHSTS emits Strict-Transport-Security on HTTPS requests. Leave
	// off unless the proxy-to-app hop is also TLS.
	EnableHSTS bool
	// HSTSMaxAge is the HSTS lifetime; non-positive values default to 180
	// days.
	HSTSMaxAge time.Duration
	// NoStore marks responses uncacheable. Chat answers and extracted text
	// are per-user content, so list/get deployments may want this on.
	NoStore bool
	// EnablePolicy sends browser feature policies. Harmless for non-browser
	// clients, useful when a web frontend calls this API directly.
	EnablePolicy bool
}

// SecurityHeaders attaches baseline hardening headers to every response and
// the optional groups above. X-Request-ID, when already set by RequestID, is
// exposed to browser clients so they can quote it in bug reports.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := int(opt.HSTSMaxAge.Seconds())
	if maxAge <= 0 {
		maxAge = int((180 * 24 * time.Hour).Seconds())
	}
	hstsValue := "max-age=" + strconv.Itoa(maxAge) + "; includeSubDomains; preload"

	return func(c *gin.Context) {
		h := c.Writer.Header()

		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if opt.EnablePolicy {
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
		}

		if opt.NoStore {
			h.Set("Cache-Control", "no-store")
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
		}

		// Never advertise HSTS on plain HTTP; browsers ignore it and it
		// leaks deployment details.
		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hstsValue)
		}

		if rid := h.Get("X-Request-ID"); rid != "" {
			exposeHeader(h, "X-Request-ID")
		}

		c.Next()
	}
}

// exposeHeader appends name to Access-Control-Expose-Headers without
// clobbering values another middleware already put there.
func exposeHeader(h http.Header, name string) {
	const key = "Access-Control-Expose-Headers"
	cur := h.Get(key)
	switch {
	case cur == "":
		h.Set(key, name)
	case !strings.Contains(cur, name):
		h.Set(key, cur+", "+name)
	}
}

// isHTTPS treats a request as secure when TLS terminated here or a trusted
// proxy said so via X-Forwarded-Proto.
func isHTTPS(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
