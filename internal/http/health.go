package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

type HealthResponse struct {
	Status  string            `json:"status"`
	Time    string            `json:"time"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks"`
}

// HealthCheck names a dependency checked by GET /health. A nil Target is
// reported as not configured without failing the check.
type HealthCheck struct {
	Name   string
	Target Pinger
}

type HealthController struct {
	version string
	checks  []HealthCheck
}

func NewHealthController(version string, checks ...HealthCheck) *HealthController {
	return &HealthController{version: version, checks: checks}
}

// Status handles GET /health. Any failing dependency turns the answer into 503.
func (h *HealthController) Status(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	healthy := true
	results := make(map[string]string, len(h.checks))
	for _, check := range h.checks {
		if check.Target == nil {
			results[check.Name] = "not configured"
			continue
		}
		if err := check.Target.Ping(ctx); err != nil {
			results[check.Name] = "error: " + err.Error()
			healthy = false
			continue
		}
		results[check.Name] = "ok"
	}

	response := HealthResponse{
		Status:  "healthy",
		Time:    time.Now().Format(time.RFC3339),
		Version: h.version,
		Checks:  results,
	}
	code := http.StatusOK
	if !healthy {
		response.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	}
	c.IndentedJSON(code, response)
}
