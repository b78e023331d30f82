package middleware

import (
	"context"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/grafana/pyroscope-go"
)

// Pyroscope label keys set per request.
const (
	ProfilingLabelRoute    = "route"
	ProfilingLabelMethod   = "method"
	ProfilingLabelResource = "resource"
	// ProfilingLabelAction names the order action, e.g. "approve" or "returns.reject".
	ProfilingLabelAction = "action"
)

type ProfilingConfig struct {
	Enabled          bool
	SkipPathPrefixes []string
}

func DefaultProfilingConfig() ProfilingConfig {
	return ProfilingConfig{
		Enabled:          true,
		SkipPathPrefixes: []string{"/health", "/swagger"},
	}
}

// Profiling labels CPU samples with the matched route so flame graphs can
// be split per endpoint and per order action. Long-lived streams should be
// in SkipPathPrefixes; their samples would otherwise be labelled for hours.
func Profiling(cfg ProfilingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		if hasAnyPrefix(c.Request.URL.Path, cfg.SkipPathPrefixes) {
			c.Next()
			return
		}
		pyroscope.TagWrapper(c.Request.Context(), pyroscope.Labels(profilingLabels(c)...), func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func profilingLabels(c *gin.Context) []string {
	route := routePattern(c)
	labels := []string{ProfilingLabelMethod, c.Request.Method, ProfilingLabelRoute, route}

	resource, action := splitRoute(route)
	if resource != "" {
		labels = append(labels, ProfilingLabelResource, resource)
	}
	if action != "" {
		labels = append(labels, ProfilingLabelAction, action)
	}
	return labels
}

var apiVersion = regexp.MustCompile(`^[vV][0-9]+$`)

// splitRoute returns the first literal segment after the api prefix and
// the literal segments that follow a parameter, dot-joined.
// "/api/v1/orders/:id/returns/:returnId/approve" -> ("orders", "returns.approve")
func splitRoute(route string) (resource, action string) {
	var tail []string
	afterParam := false
	for _, seg := range strings.Split(route, "/") {
		switch {
		case seg == "" || (resource == "" && (seg == "api" || apiVersion.MatchString(seg))):
			continue
		case strings.HasPrefix(seg, ":") || strings.HasPrefix(seg, "*"):
			afterParam = resource != ""
		case resource == "":
			resource = seg
		case afterParam:
			tail = append(tail, seg)
		}
	}
	return resource, strings.Join(tail, ".")
}
