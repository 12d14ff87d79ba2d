package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hawksec/hawk/internal/api/dto"
	"github.com/hawksec/hawk/internal/domain/alert"
	"github.com/hawksec/hawk/internal/pkg/errors"
	"github.com/hawksec/hawk/internal/pkg/logger"
	"github.com/hawksec/hawk/internal/pkg/utils"
	"github.com/hawksec/hawk/internal/services"
)

// AlertHandler serves the signed-in user's alert collection
type AlertHandler struct {
	logger *logger.Logger
	now    func() time.Time
}

// NewAlertHandler creates a new alert handler
func NewAlertHandler(log *logger.Logger) *AlertHandler {
	return &AlertHandler{logger: log, now: time.Now}
}

// List returns the filtered alerts, newest first
// @Summary List alerts
// @Description Get a paginated list of alerts. Severity and status accept comma separated values.
// @Tags Alerts
// @Produce json
// @Param search query string false "Case-insensitive match on title, system, CVE and description"
// @Param severity query string false "Filter by severity"
// @Param status query string false "Filter by status"
// @Param page query int false "Page number (default: 1)"
// @Param page_size query int false "Page size (default: 20, max: 100)"
// @Success 200 {object} utils.PaginatedResponse{data=[]dto.AlertDTO} "List of alerts"
// @Failure 400 {object} utils.ErrorResponse "Invalid filter"
// @Security BearerAuth
// @Router /alerts [get]
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}

	filter, appErr := parseAlertFilter(r)
	if appErr != nil {
		utils.WriteError(w, appErr)
		return
	}

	now := h.now()
	alerts := s.Alerts.ApplyFilter(filter)
	dtos := make([]dto.AlertDTO, len(alerts))
	for i, a := range alerts {
		dtos[i] = dto.NewAlertDTO(a, now)
	}

	utils.WriteSuccess(w, http.StatusOK, utils.Paginate(dtos, utils.ParsePaginationParams(r)))
}

// Refresh reloads the alerts from the backend
// @Summary Reload alerts
// @Tags Alerts
// @Produce json
// @Success 200 {object} map[string]int "Number of alerts held"
// @Failure 503 {object} utils.ErrorResponse "Backend unreachable"
// @Security BearerAuth
// @Router /alerts/refresh [post]
func (h *AlertHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	if err := s.Alerts.Load(r.Context()); err != nil {
		writeError(w, r, err, "Failed to load alerts")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, map[string]int{"count": s.Alerts.Len()})
}

// UpdateStatus acknowledges, resolves or reopens an alert
// @Summary Update alert status
// @Tags Alerts
// @Accept json
// @Produce json
// @Param id path string true "Alert ID"
// @Param request body dto.UpdateAlertStatusRequest true "New status"
// @Success 200 {object} dto.AlertDTO "Updated alert"
// @Failure 400 {object} utils.ErrorResponse "Invalid status"
// @Failure 404 {object} utils.ErrorResponse "Alert not found"
// @Security BearerAuth
// @Router /alerts/{id}/status [patch]
func (h *AlertHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}

	var req dto.UpdateAlertStatusRequest
	if appErr := decodeAndValidate(r, &req); appErr != nil {
		utils.WriteError(w, appErr)
		return
	}

	id := chi.URLParam(r, "id")
	if err := s.Alerts.SetStatus(r.Context(), id, alert.Status(req.Status)); err != nil {
		writeError(w, r, err, "Failed to update alert status")
		return
	}

	a, found := s.Alerts.Get(id)
	if !found {
		utils.WriteError(w, errors.NotFound("Alert"))
		return
	}
	utils.WriteSuccess(w, http.StatusOK, dto.NewAlertDTO(a, h.now()))
}

// Recommendations returns remediation advice for an alert
// @Summary Alert recommendations
// @Tags Alerts
// @Produce json
// @Param id path string true "Alert ID"
// @Success 200 {object} dto.RecommendationsResponse
// @Failure 404 {object} utils.ErrorResponse "Alert not found"
// @Security BearerAuth
// @Router /alerts/{id}/recommendations [get]
func (h *AlertHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	a, found := s.Alerts.Get(chi.URLParam(r, "id"))
	if !found {
		utils.WriteError(w, errors.NotFound("Alert"))
		return
	}
	utils.WriteSuccess(w, http.StatusOK, dto.RecommendationsResponse{
		AlertID:         a.ID,
		Recommendations: services.GenerateRecommendations(a),
	})
}

// Risk scores an alert. The exploit flag defaults to the alert's details
// and criticality to medium.
// @Summary Alert risk score
// @Tags Alerts
// @Produce json
// @Param id path string true "Alert ID"
// @Param exploit query bool false "Whether a public exploit exists"
// @Param criticality query string false "Business criticality: low, medium, high, critical"
// @Success 200 {object} dto.RiskResponse
// @Failure 400 {object} utils.ErrorResponse "Invalid parameter"
// @Failure 404 {object} utils.ErrorResponse "Alert not found"
// @Security BearerAuth
// @Router /alerts/{id}/risk [get]
func (h *AlertHandler) Risk(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	a, found := s.Alerts.Get(chi.URLParam(r, "id"))
	if !found {
		utils.WriteError(w, errors.NotFound("Alert"))
		return
	}

	exploit := a.ExploitAvailable()
	if v := r.URL.Query().Get("exploit"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			utils.WriteError(w, errors.BadRequest("exploit must be true or false"))
			return
		}
		exploit = b
	}

	criticality := services.CriticalityMedium
	if v := r.URL.Query().Get("criticality"); v != "" {
		criticality = services.Criticality(strings.ToLower(v))
		switch criticality {
		case services.CriticalityLow, services.CriticalityMedium, services.CriticalityHigh, services.CriticalityCritical:
		default:
			utils.WriteError(w, errors.BadRequest("criticality must be low, medium, high or critical"))
			return
		}
	}

	utils.WriteSuccess(w, http.StatusOK, dto.RiskResponse{
		AlertID:          a.ID,
		Score:            services.CalculateRiskScore(a.Severity, exploit, criticality),
		ExploitAvailable: exploit,
		Criticality:      string(criticality),
	})
}

// parseAlertFilter reads search, severity and status. The list values may
// repeat or be comma separated.
func parseAlertFilter(r *http.Request) (alert.Filter, *errors.AppError) {
	q := r.URL.Query()
	f := alert.Filter{Search: q.Get("search")}

	for _, v := range splitValues(q["severity"]) {
		sev, err := alert.ParseSeverity(v)
		if err != nil {
			return f, errors.BadRequest(err.Error())
		}
		f.Severities = append(f.Severities, sev)
	}
	for _, v := range splitValues(q["status"]) {
		st, err := alert.ParseStatus(v)
		if err != nil {
			return f, errors.BadRequest(err.Error())
		}
		f.Statuses = append(f.Statuses, st)
	}
	return f, nil
}

func splitValues(raw []string) []string {
	var out []string
	for _, v := range raw {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" && part != "all" {
				out = append(out, part)
			}
		}
	}
	return out
}
