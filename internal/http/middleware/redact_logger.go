// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements RedactingLogger, the request logger for the API.
// Questions and document titles routinely end up in query strings and
// headers put there by misbehaving clients, so everything logged from
// request metadata is scrubbed first: emails, phone numbers, and UUID-like
// identifiers are substituted, and credential-bearing headers are masked
// outright. Bodies are never logged; an uploaded document or a generated
// answer has no business in the log stream.
package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Scrub patterns, compiled once. UUIDs must be substituted before phone
// numbers or the loose phone pattern eats the digit runs inside a UUID.
var (
	scrubUUID  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	scrubEmail = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	scrubPhone = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
)

func scrub(s string) string {
	if s == "" {
		return s
	}
	s = scrubUUID.ReplaceAllString(s, "[REDACTED:id]")
	s = scrubEmail.ReplaceAllString(s, "[REDACTED:email]")
	s = scrubPhone.ReplaceAllString(s, "[REDACTED:phone]")
	return s
}

// RedactOptions configures RedactingLogger.
type RedactOptions struct {
	// MaskHeaders lists extra header names whose values are replaced with
	// "[REDACTED]" wholesale. Case-insensitive, merged with the built-in
	// set (Authorization, Cookie, Set-Cookie).
	MaskHeaders []string

	// SkipPaths lists exact request paths that are not logged at all.
	// Probes hitting /health and scrapes of /metrics drown out real
	// traffic otherwise.
	SkipPaths []string
}

// RedactingLogger logs one structured line per request: method, route,
// scrubbed query, status, byte count, latency, and scrubbed headers.
// Severity tracks the status code (info, warn for 4xx, error for 5xx).
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	masked := map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			masked[h] = struct{}{}
		}
	}
	skip := make(map[string]struct{}, len(opts.SkipPaths))
	for _, p := range opts.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		start := time.Now()

		// Prefer the route template over the concrete path so document IDs
		// stay out of the path field entirely.
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		query := scrub(truncate(c.Request.URL.RawQuery, maxQueryLogLength))

		headers := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if _, ok := masked[strings.ToLower(k)]; ok {
				headers[k] = "[REDACTED]"
				continue
			}
			headers[k] = scrub(strings.Join(vv, ", "))
		}

		// Request-scoped logger for handlers, via LoggerFrom.
		rid0, _ := c.Get(requestIDKey)
		scoped := log.With().
			Str("request_id", asString(rid0)).
			Str("method", c.Request.Method).
			Str("path", path).
			Logger()
		c.Set(ctxKeyLogger, &scoped)

		c.Next()

		status := c.Writer.Status()
		reqID := c.Writer.Header().Get("X-Request-ID")
		if reqID == "" {
			reqID = c.GetHeader("X-Request-ID")
		}

		ev := log.Info()
		switch {
		case status >= 500:
			ev = log.Error()
		case status >= 400:
			ev = log.Warn()
		}
		ev.
			Str("request_id", reqID).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", query).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", headers).
			Msg("http_request")
	}
}
