package handler

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bakery/orderdesk/internal/interfaces/http/dto"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck checks one dependency; a nil error means healthy
type HealthCheck func(ctx context.Context) error

// SessionCounter reports the number of open dashboard sessions
type SessionCounter interface {
	Len() int
}

// SystemHandler serves the health endpoint
type SystemHandler struct {
	BaseHandler
	startTime time.Time
	version   string
	sessions  SessionCounter
	checks    map[string]HealthCheck
}

// NewSystemHandler creates a SystemHandler
func NewSystemHandler(version string, sessions SessionCounter) *SystemHandler {
	return &SystemHandler{
		startTime: time.Now(),
		version:   version,
		sessions:  sessions,
		checks:    map[string]HealthCheck{},
	}
}

// AddCheck registers a named dependency check
func (h *SystemHandler) AddCheck(name string, check HealthCheck) {
	h.checks[name] = check
}

// Health godoc
//
//	@ID				health
//	@Summary		Service health
//	@Description	Runs every registered dependency check. Any failing check turns the status to degraded with a 503.
//	@Tags			system
//	@Produce		json
//	@Success		200	{object}	Envelope[dto.HealthResponse]
//	@Failure		503	{object}	Envelope[dto.HealthResponse]
//	@Router			/health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := dto.HealthResponse{
		Status:  "ok",
		Version: h.version,
		Uptime:  time.Since(h.startTime).Round(time.Second).String(),
		Checks:  make(map[string]string, len(names)),
	}
	if h.sessions != nil {
		resp.Sessions = h.sessions.Len()
	}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			continue
		}
		resp.Checks[name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, dto.NewSuccessResponse(resp))
}
