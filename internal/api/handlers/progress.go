package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hawksec/hawk/internal/api/dto"
	"github.com/hawksec/hawk/internal/domain/progress"
	"github.com/hawksec/hawk/internal/domain/solution"
	"github.com/hawksec/hawk/internal/pkg/errors"
	"github.com/hawksec/hawk/internal/pkg/logger"
	"github.com/hawksec/hawk/internal/pkg/utils"
	"github.com/hawksec/hawk/internal/services"
)

// ProgressHandler serves per-alert remediation progress and the solution
// template catalogue
type ProgressHandler struct {
	logger *logger.Logger
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(log *logger.Logger) *ProgressHandler {
	return &ProgressHandler{logger: log}
}

// Get returns the progress of an alert
// @Summary Get solution progress
// @Tags Progress
// @Produce json
// @Param id path string true "Alert ID"
// @Param total query int false "Total steps; defaults to the selected template's step count"
// @Success 200 {object} dto.ProgressResponse
// @Security BearerAuth
// @Router /alerts/{id}/progress [get]
func (h *ProgressHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	p, err := s.Progress.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, "Failed to load solution progress")
		return
	}
	total, _ := strconv.Atoi(r.URL.Query().Get("total"))
	utils.WriteSuccess(w, http.StatusOK, progressResponse(p, total))
}

// ToggleStep flips the completion of one step
// @Summary Toggle a remediation step
// @Tags Progress
// @Produce json
// @Param id path string true "Alert ID"
// @Param step path int true "Step number"
// @Success 200 {object} dto.ProgressResponse
// @Failure 400 {object} utils.ErrorResponse "Invalid step"
// @Security BearerAuth
// @Router /alerts/{id}/progress/steps/{step} [post]
func (h *ProgressHandler) ToggleStep(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	step, err := strconv.Atoi(chi.URLParam(r, "step"))
	if err != nil {
		utils.WriteError(w, errors.BadRequest("Step must be a number"))
		return
	}
	p, err := s.Progress.ToggleStep(r.Context(), chi.URLParam(r, "id"), step)
	if err != nil {
		writeError(w, r, err, "Failed to update solution progress")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, progressResponse(p, 0))
}

// SelectTemplate records the template the user follows for an alert
// @Summary Select solution template
// @Tags Progress
// @Accept json
// @Produce json
// @Param id path string true "Alert ID"
// @Param request body dto.SelectTemplateRequest true "Template"
// @Success 200 {object} dto.ProgressResponse
// @Failure 404 {object} utils.ErrorResponse "Template not found"
// @Security BearerAuth
// @Router /alerts/{id}/progress/template [put]
func (h *ProgressHandler) SelectTemplate(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	var req dto.SelectTemplateRequest
	if appErr := decodeAndValidate(r, &req); appErr != nil {
		utils.WriteError(w, appErr)
		return
	}
	p, err := s.Progress.SelectTemplate(r.Context(), chi.URLParam(r, "id"), req.TemplateID)
	if err != nil {
		writeError(w, r, err, "Failed to update solution progress")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, progressResponse(p, 0))
}

// Reset forgets the progress of an alert
// @Summary Reset solution progress
// @Tags Progress
// @Param id path string true "Alert ID"
// @Success 204 "Progress removed"
// @Security BearerAuth
// @Router /alerts/{id}/progress [delete]
func (h *ProgressHandler) Reset(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	if err := s.Progress.Reset(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err, "Failed to reset solution progress")
		return
	}
	utils.WriteNoContent(w)
}

// Templates lists the solution templates, optionally narrowed by category
// or severity
// @Summary List solution templates
// @Tags Progress
// @Produce json
// @Param category query string false "web, database, system or network"
// @Param severity query string false "Template severity"
// @Success 200 {array} solution.Template
// @Router /solution-templates [get]
func (h *ProgressHandler) Templates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var out []solution.Template
	switch {
	case q.Get("category") != "":
		out = solution.ByCategory(solution.Category(q.Get("category")))
	case q.Get("severity") != "":
		out = solution.BySeverity(q.Get("severity"))
	default:
		out = solution.All()
	}
	if out == nil {
		out = []solution.Template{}
	}
	utils.WriteSuccess(w, http.StatusOK, out)
}

func progressResponse(p *progress.SolutionProgress, total int) dto.ProgressResponse {
	return dto.ProgressResponse{
		SolutionProgress: p,
		Percentage:       services.ProgressPercentage(p, total),
	}
}
