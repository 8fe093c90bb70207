package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kart-io/docchat/internal/docchat/biz"
	"github.com/kart-io/docchat/internal/docchat/metrics"
	"github.com/kart-io/docchat/pkg/component/storage"
)

// HealthStatus labels a component as reachable or not.
type HealthStatus string

const (
	// HealthStatusUp indicates the component is healthy.
	HealthStatusUp HealthStatus = "UP"

	// HealthStatusDown indicates the component is unhealthy.
	HealthStatusDown HealthStatus = "DOWN"
)

// HealthResponse is the /healthz payload. Unlike the API endpoints it is not
// wrapped in the response envelope; probes read it directly.
type HealthResponse struct {
	Status    HealthStatus           `json:"status"`
	Service   string                 `json:"service,omitempty"`
	Version   string                 `json:"version,omitempty"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Providers map[string]string      `json:"providers,omitempty"`
}

// CheckResult is one component ping.
type CheckResult struct {
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// HealthHandler serves the operational endpoints: health, metrics, and stats.
type HealthHandler struct {
	service     biz.Service
	storages    *storage.Manager
	providers   map[string]string
	serviceName string
	version     string
}

// NewHealthHandler creates a HealthHandler. providers maps capability names
// such as "embedding" and "chat" to the configured provider and model; the
// map is reported as-is so operators can see what the instance runs with.
func NewHealthHandler(service biz.Service, storages *storage.Manager, providers map[string]string, serviceName, version string) *HealthHandler {
	return &HealthHandler{
		service:     service,
		storages:    storages,
		providers:   providers,
		serviceName: serviceName,
		version:     version,
	}
}

// Healthz pings every registered storage backend. Any failed ping flips the
// overall status to DOWN and the HTTP status to 503.
func (h *HealthHandler) Healthz(c *gin.Context) {
	resp := HealthResponse{
		Status:    HealthStatusUp,
		Service:   h.serviceName,
		Version:   h.version,
		Providers: h.providers,
	}

	if h.storages != nil {
		statuses := h.storages.HealthCheckAll(c.Request.Context())
		if len(statuses) > 0 {
			resp.Checks = make(map[string]CheckResult, len(statuses))
			for name, status := range statuses {
				if status.Healthy {
					resp.Checks[name] = CheckResult{Status: HealthStatusUp}
					continue
				}
				resp.Status = HealthStatusDown
				message := ""
				if status.Error != nil {
					message = status.Error.Error()
				}
				resp.Checks[name] = CheckResult{Status: HealthStatusDown, Message: message}
			}
		}
	}

	status := http.StatusOK
	if resp.Status == HealthStatusDown {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

// Metrics serves the pipeline counters in Prometheus text format.
func (h *HealthHandler) Metrics(c *gin.Context) {
	c.Data(http.StatusOK, "text/plain; version=0.0.4; charset=utf-8", []byte(metrics.Get().Export()))
}

// Stats reports pipeline metrics, cache state, and store row counts.
func (h *HealthHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, stats)
}
