package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestSplitRoute(t *testing.T) {
	tests := map[string][2]string{
		"/api/v1/orders/:id/approve":                  {"orders", "approve"},
		"/api/v1/orders/:id/returns/:returnId/reject": {"orders", "returns.reject"},
		"/api/v1/orders/:id":                          {"orders", ""},
		"/api/v1/session/reload":                      {"session", ""},
		"/api/v1/export/:format":                      {"export", ""},
		"/health":                                     {"health", ""},
		"/api/v2/:id":                                 {"", ""},
		"":                                            {"", ""},
	}
	for route, want := range tests {
		resource, action := splitRoute(route)
		assert.Equal(t, want, [2]string{resource, action}, route)
	}
}

func TestProfilingLabels(t *testing.T) {
	r := gin.New()
	var labels []string
	r.POST("/api/v1/orders/:id/approve", func(c *gin.Context) {
		labels = profilingLabels(c)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/orders/o-1/approve", nil))

	assert.Equal(t, []string{
		ProfilingLabelMethod, http.MethodPost,
		ProfilingLabelRoute, "/api/v1/orders/:id/approve",
		ProfilingLabelResource, "orders",
		ProfilingLabelAction, "approve",
	}, labels)
}

func TestProfiling_PassesThrough(t *testing.T) {
	r := gin.New()
	r.Use(Profiling(DefaultProfilingConfig()))
	reached := 0
	r.GET("/api/v1/orders", func(c *gin.Context) { reached++; c.Status(http.StatusOK) })
	r.GET("/health", func(c *gin.Context) { reached++; c.Status(http.StatusOK) })

	for _, path := range []string{"/api/v1/orders", "/health"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
	assert.Equal(t, 2, reached)

	disabled := gin.New()
	disabled.Use(Profiling(ProfilingConfig{}))
	disabled.GET("/x", func(c *gin.Context) { c.Status(http.StatusTeapot) })
	w := httptest.NewRecorder()
	disabled.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
}
