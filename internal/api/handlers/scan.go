package handlers

import (
	"net/http"

	"github.com/hawksec/hawk/internal/pkg/logger"
	"github.com/hawksec/hawk/internal/pkg/utils"
	"github.com/hawksec/hawk/internal/services"
)

// ScanHandler triggers vulnerability scans
type ScanHandler struct {
	logger *logger.Logger
}

// NewScanHandler creates a new scan handler
func NewScanHandler(log *logger.Logger) *ScanHandler {
	return &ScanHandler{logger: log}
}

// Run starts a real-time scan and dispatches notifications for severe
// findings. An empty body scans every severity with the default limit.
// @Summary Run a vulnerability scan
// @Tags Scans
// @Accept json
// @Produce json
// @Param request body services.ScanRequest false "Scan options"
// @Success 200 {object} services.ScanResult
// @Failure 400 {object} utils.ErrorResponse "Invalid options"
// @Failure 502 {object} utils.ErrorResponse "Scanner failed"
// @Security BearerAuth
// @Router /scans [post]
func (h *ScanHandler) Run(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}

	var req services.ScanRequest
	if r.ContentLength != 0 {
		if appErr := decodeAndValidate(r, &req); appErr != nil {
			utils.WriteError(w, appErr)
			return
		}
	}
	req.UserID = s.User.ID

	result, err := s.Scans.Run(r.Context(), req)
	if err != nil {
		writeError(w, r, err, "Scan failed")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, result)
}
