// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file carries the correlation and crash-safety middleware:
//
//   - RequestID() gives every request a stable X-Request-ID, reusing the
//     client's when present, so a failed upload or ask can be traced from
//     the error envelope back to the logs.
//   - Recovery() turns panics into the standard JSON 500 envelope and logs
//     the stack with the request ID attached.
//   - LoggerFrom() hands handlers the request-scoped zerolog.Logger that
//     RedactingLogger stored in the context.
//
// Order matters: RequestID first, then RedactingLogger, then Recovery, so a
// panic is logged with both the correlation ID and the request fields.
package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// requestIDKey is the Gin context key holding the correlation ID.
	requestIDKey = "requestID"
	// requestIDHeader propagates the correlation ID to and from clients.
	requestIDHeader = "X-Request-ID"
	// ctxKeyLogger is the Gin context key for the request-scoped logger.
	ctxKeyLogger = "logger"
	// maxQueryLogLength caps how much of a raw query string gets logged.
	maxQueryLogLength = 2048
)

// RequestID reuses the incoming X-Request-ID or mints a UUID, stores it in
// the context, and echoes it on the response.
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

// Recovery converts panics into the standard JSON 500 envelope. The panic
// value and stack go to the error log; the client sees only the request ID.
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

// LoggerFrom returns the request-scoped logger attached by RedactingLogger,
// or the global logger when none is present. Never nil.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(ctxKeyLogger); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

// asString unwraps a context value that should be a string; anything else
// becomes "".
func asString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// truncate caps s at max bytes with an ellipsis. max <= 0 disables the cap.
// Byte truncation can split a rune, which is acceptable for log fields.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
