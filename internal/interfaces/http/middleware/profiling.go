package middleware

import (
	"context"
	"strings"

	"github.com/crosslist/backend/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
)

// ProfilingConfig configures the profiling label middleware.
type ProfilingConfig struct {
	// Enabled toggles label attachment.
	Enabled bool
	// SkipPaths are exact paths excluded from labeling, such as health checks.
	SkipPaths []string
	// SkipPathPrefixes are path prefixes excluded from labeling.
	SkipPathPrefixes []string
}

// DefaultProfilingConfig returns the default profiling configuration.
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
			"/debug",
		},
	}
}

// Profiling returns profiling middleware with the default configuration.
func Profiling() gin.HandlerFunc {
	return ProfilingWithConfig(DefaultProfilingConfig())
}

// ProfilingWithConfig tags each request's goroutines with Pyroscope
// labels so profiles can be sliced by route, method, resource, and
// platform. Labels use the route template, never the raw path, to keep
// cardinality bounded.
func ProfilingWithConfig(cfg ProfilingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path

		for _, skip := range cfg.SkipPaths {
			if path == skip {
				c.Next()
				return
			}
		}
		for _, prefix := range cfg.SkipPathPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		telemetry.WithProfilingLabels(c.Request.Context(), profilingLabels(c), func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

func profilingLabels(c *gin.Context) map[string]string {
	route := c.FullPath()
	labels := telemetry.HTTPRequestLabels(resourceFromRoute(route), route, c.Request.Method)

	// only a handful of marketplaces exist, cardinality stays bounded
	if platform := c.Param("platform"); platform != "" {
		labels[telemetry.ProfilingLabelPlatform] = platform
	}

	return labels
}

// resourceFromRoute derives the resource name from a route template,
// for example "/api/v1/listings/:id" yields "listings".
func resourceFromRoute(route string) string {
	if route == "" {
		return ""
	}

	for _, part := range strings.Split(route, "/") {
		if part == "" || part == "api" || isAPIVersion(part) {
			continue
		}
		if strings.HasPrefix(part, ":") || strings.HasPrefix(part, "{") {
			continue
		}
		return part
	}
	return ""
}

// isAPIVersion reports whether a path segment looks like v1, v2, and so on.
func isAPIVersion(segment string) bool {
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
