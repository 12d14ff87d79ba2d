package handlers

import (
	"net/http"

	"github.com/hawksec/hawk/internal/domain/trend"
	"github.com/hawksec/hawk/internal/pkg/logger"
	"github.com/hawksec/hawk/internal/pkg/utils"
)

// OverviewHandler serves the dashboard overview panels
type OverviewHandler struct {
	logger *logger.Logger
}

// NewOverviewHandler creates a new overview handler
func NewOverviewHandler(log *logger.Logger) *OverviewHandler {
	return &OverviewHandler{logger: log}
}

// Systems returns each monitored system with its alert counts
// @Summary System status overview
// @Tags Overview
// @Produce json
// @Success 200 {object} services.SystemsOverview
// @Security BearerAuth
// @Router /overview/systems [get]
func (h *OverviewHandler) Systems(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	out, err := s.Overview.Systems(r.Context())
	if err != nil {
		writeError(w, r, err, "Failed to load systems")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, out)
}

// Stats counts the held alerts by severity
// @Summary Vulnerability statistics
// @Tags Overview
// @Produce json
// @Success 200 {object} services.SeverityStats
// @Security BearerAuth
// @Router /overview/stats [get]
func (h *OverviewHandler) Stats(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	utils.WriteSuccess(w, http.StatusOK, s.Overview.Stats(s.Alerts.Alerts()))
}

// Trends returns the vulnerability trend series, oldest first
// @Summary Vulnerability trends
// @Tags Overview
// @Produce json
// @Success 200 {array} trend.Point
// @Security BearerAuth
// @Router /overview/trends [get]
func (h *OverviewHandler) Trends(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	points, err := s.Overview.Trends(r.Context())
	if err != nil {
		writeError(w, r, err, "Failed to load trends")
		return
	}
	if points == nil {
		points = []trend.Point{}
	}
	utils.WriteSuccess(w, http.StatusOK, points)
}

// Summary returns the security summary text with its statistics
// @Summary Security summary
// @Tags Overview
// @Produce json
// @Success 200 {object} services.SecuritySummary
// @Security BearerAuth
// @Router /overview/summary [get]
func (h *OverviewHandler) Summary(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	utils.WriteSuccess(w, http.StatusOK, s.Overview.Summary(s.Alerts.Alerts()))
}
