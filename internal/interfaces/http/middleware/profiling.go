package middleware

import (
	"context"
	"strings"

	"github.com/briefing/backend/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
)

// ProfilingConfig configures the profiling label middleware.
type ProfilingConfig struct {
	Enabled bool
	// SkipPaths get no labels; health checks would dominate otherwise.
	SkipPaths        []string
	SkipPathPrefixes []string
}

// DefaultProfilingConfig returns the standard configuration.
func DefaultProfilingConfig() ProfilingConfig {
	return ProfilingConfig{
		Enabled: true,
		SkipPaths: []string{
			"/health",
			"/healthz",
			"/ready",
			"/metrics",
		},
		SkipPathPrefixes: []string{
			"/swagger",
			"/api-docs",
		},
	}
}

// Profiling returns the profiling middleware with default
// configuration.
func Profiling() gin.HandlerFunc {
	return ProfilingWithConfig(DefaultProfilingConfig())
}

// ProfilingWithConfig attaches pprof labels to each request so CPU
// samples in Pyroscope can be sliced by controller, route, method,
// and org. A slow briefing assembly then shows up under its route
// rather than as anonymous handler time.
func ProfilingWithConfig(cfg ProfilingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		if shouldSkipProfiling(c.Request.URL.Path, cfg) {
			c.Next()
			return
		}

		labels := extractProfilingLabels(c)

		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

func shouldSkipProfiling(path string, cfg ProfilingConfig) bool {
	for _, skipPath := range cfg.SkipPaths {
		if path == skipPath {
			return true
		}
	}
	for _, prefix := range cfg.SkipPathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// extractProfilingLabels builds the label set for one request. Every
// label is low cardinality: the route pattern, not the raw path, and
// the org rather than the user.
func extractProfilingLabels(c *gin.Context) map[string]string {
	labels := make(map[string]string, 4)

	if method := c.Request.Method; method != "" {
		labels[telemetry.ProfilingLabelMethod] = method
	}

	route := c.FullPath()
	if route != "" {
		labels[telemetry.ProfilingLabelRoute] = route
	}

	if controller := extractControllerFromRoute(route); controller != "" {
		labels[telemetry.ProfilingLabelController] = controller
	}

	if orgID := contextString(c, JWTOrgIDKey); orgID != "" {
		labels[telemetry.ProfilingLabelOrgID] = orgID
	}

	return labels
}

// extractControllerFromRoute derives a controller name from the route
// pattern: "/api/v1/connections/:provider" becomes "connections",
// "/api/v1/identity/users/:id/roles" becomes "identity".
func extractControllerFromRoute(route string) string {
	if route == "" {
		return ""
	}

	parts := strings.Split(route, "/")

	for i, part := range parts {
		if part == "" || part == "api" || isVersionSegment(part) {
			continue
		}
		if strings.HasPrefix(part, ":") || strings.HasPrefix(part, "{") {
			continue
		}

		// A path parameter right after this segment means the segment
		// is the resource itself.
		if i+1 < len(parts) && (strings.HasPrefix(parts[i+1], ":") || strings.HasPrefix(parts[i+1], "{")) {
			return part
		}

		return part
	}

	return ""
}

// isVersionSegment reports whether a path segment looks like an API
// version such as v1 or v2.
func isVersionSegment(segment string) bool {
	if len(segment) < 2 {
		return false
	}
	if segment[0] != 'v' && segment[0] != 'V' {
		return false
	}
	for i := 1; i < len(segment); i++ {
		if segment[i] < '0' || segment[i] > '9' {
			return false
		}
	}
	return true
}

// ProfilingAttributeInjector is the profiling middleware positioned
// after authentication, once the org is known.
func ProfilingAttributeInjector() gin.HandlerFunc {
	return ProfilingWithConfig(DefaultProfilingConfig())
}
