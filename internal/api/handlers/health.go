package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/hawksec/hawk/internal/pkg/errors"
	"github.com/hawksec/hawk/internal/pkg/logger"
	"github.com/hawksec/hawk/internal/pkg/utils"
)

// Readiness reports what the server depends on
type Readiness interface {
	// Ping checks the progress database; it is nil when none is open
	Ping(ctx context.Context) error
	UsesProgressDB() bool
	SessionCount() int
}

// HealthResponse is the body of the probes
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
	Sessions *int   `json:"sessions,omitempty"`
}

// HealthHandler serves the liveness and readiness probes
type HealthHandler struct {
	deps   Readiness
	logger *logger.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(deps Readiness, log *logger.Logger) *HealthHandler {
	return &HealthHandler{deps: deps, logger: log}
}

// Healthz handles liveness probe
// @Summary Liveness probe
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse "Process is up"
// @Router /healthz [get]
func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	utils.WriteSuccess(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Readyz handles readiness probe
// @Summary Readiness probe
// @Description Checks the progress database and reports the open dashboard sessions
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse "Ready to serve"
// @Failure 503 {object} utils.ErrorResponse "Progress database unavailable"
// @Router /readyz [get]
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.deps.Ping(ctx); err != nil {
		h.logger.ErrorWithErr(err, "Progress database ping failed")
		utils.WriteError(w, errors.ServiceUnavailable("Progress database unavailable"))
		return
	}

	resp := HealthResponse{Status: "ready", Database: "not used"}
	if h.deps.UsesProgressDB() {
		resp.Database = "connected"
	}
	n := h.deps.SessionCount()
	resp.Sessions = &n
	utils.WriteSuccess(w, http.StatusOK, resp)
}
