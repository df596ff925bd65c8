// Package middleware provides HTTP middleware for the briefing backend.
package middleware

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Length caps for header-sourced trace attributes. Headers are
// attacker-controlled and end up in the trace backend verbatim.
const (
	MaxRequestIDLength = 128
	MaxOrgIDLength     = 64
)

// Org IDs coming from the X-Org-ID header must look like UUIDs before
// they are trusted as a span attribute.
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// TracingConfig configures the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// DefaultTracingConfig returns the standard tracing configuration.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName: "briefing-backend",
		Enabled:     true,
	}
}

// Tracing returns the tracing middleware with default configuration.
func Tracing() gin.HandlerFunc {
	return TracingWithConfig(DefaultTracingConfig())
}

// TracingWithConfig wraps otelgin and enriches each request span with
// request_id, org_id, and user_id so traces can be joined against the
// log stream. Span names follow otelgin's "METHOD route" convention,
// e.g. "GET /api/v1/briefing".
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	baseMiddleware := otelgin.Middleware(cfg.ServiceName)

	return func(c *gin.Context) {
		baseMiddleware(c)

		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			enrichSpanWithAttributes(c, span)
		}
	}
}

func enrichSpanWithAttributes(c *gin.Context, span trace.Span) {
	if requestID := getRequestID(c); requestID != "" {
		span.SetAttributes(attribute.String("request_id", requestID))
	}
	if orgID := getOrgID(c); orgID != "" {
		span.SetAttributes(attribute.String("org_id", orgID))
	}
	if userID := getUserID(c); userID != "" {
		span.SetAttributes(attribute.String("user_id", userID))
	}
}

// getRequestID prefers the ID minted by the RequestID middleware and
// falls back to the inbound header, truncated to the cap.
func getRequestID(c *gin.Context) string {
	if id := contextString(c, "request_id"); id != "" {
		return id
	}

	headerID := c.GetHeader("X-Request-ID")
	if len(headerID) > MaxRequestIDLength {
		return headerID[:MaxRequestIDLength]
	}
	return headerID
}

// getOrgID prefers the org from the validated token. The header path
// exists for unauthenticated requests and only accepts UUIDs.
func getOrgID(c *gin.Context) string {
	if id := contextString(c, JWTOrgIDKey); id != "" {
		return id
	}

	headerOrgID := c.GetHeader("X-Org-ID")
	if headerOrgID != "" && isValidOrgID(headerOrgID) {
		return headerOrgID
	}
	return ""
}

func isValidOrgID(orgID string) bool {
	return len(orgID) <= MaxOrgIDLength && uuidRegex.MatchString(orgID)
}

func getUserID(c *gin.Context) string {
	return contextString(c, JWTUserIDKey)
}

// SpanErrorMarker marks the request span with error status on 4xx and
// 5xx responses. Place it AFTER Tracing in the chain.
func SpanErrorMarker() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}

		statusCode := c.Writer.Status()
		if statusCode < http.StatusBadRequest {
			return
		}

		var errorMessage string
		switch {
		case statusCode >= http.StatusInternalServerError:
			errorMessage = "Internal Server Error"
		case statusCode == http.StatusUnauthorized:
			errorMessage = "Unauthorized"
		case statusCode == http.StatusForbidden:
			errorMessage = "Forbidden"
		case statusCode == http.StatusNotFound:
			errorMessage = "Not Found"
		default:
			errorMessage = "Client Error"
		}

		span.SetStatus(codes.Error, errorMessage)
		span.SetAttributes(attribute.Int("http.status_code", statusCode))
	}
}

// TracingAttributeInjector re-runs span enrichment after the JWT
// middleware has stored claims. Tracing runs before auth, so the span
// it enriches has no org or user yet; this closes that gap. Place it
// AFTER both Tracing and the JWT middleware.
func TracingAttributeInjector() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			enrichSpanWithAttributes(c, span)
		}
		c.Next()
	}
}
