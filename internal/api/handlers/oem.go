package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hawksec/hawk/internal/domain/oem"
	"github.com/hawksec/hawk/internal/pkg/errors"
	"github.com/hawksec/hawk/internal/pkg/logger"
	"github.com/hawksec/hawk/internal/pkg/utils"
)

// OEMHandler manages the vendor advisory sources a user monitors
type OEMHandler struct {
	logger *logger.Logger
}

// NewOEMHandler creates a new OEM source handler
func NewOEMHandler(log *logger.Logger) *OEMHandler {
	return &OEMHandler{logger: log}
}

// List returns the user's sources
// @Summary List OEM sources
// @Tags OEM
// @Produce json
// @Success 200 {array} oem.Source
// @Security BearerAuth
// @Router /oem-sources [get]
func (h *OEMHandler) List(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	sources, err := s.OEM.List(r.Context())
	if err != nil {
		writeError(w, r, err, "Failed to list OEM sources")
		return
	}
	if sources == nil {
		sources = []*oem.Source{}
	}
	utils.WriteSuccess(w, http.StatusOK, sources)
}

// Create adds a source
// @Summary Add OEM source
// @Tags OEM
// @Accept json
// @Produce json
// @Param request body oem.CreateInput true "Source"
// @Success 201 {object} oem.Source
// @Failure 400 {object} utils.ErrorResponse "Validation error"
// @Security BearerAuth
// @Router /oem-sources [post]
func (h *OEMHandler) Create(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	var in oem.CreateInput
	if appErr := decodeJSON(r, &in); appErr != nil {
		utils.WriteError(w, appErr)
		return
	}
	src, err := s.OEM.Add(r.Context(), in)
	if err != nil {
		writeError(w, r, err, "Failed to add OEM source")
		return
	}
	utils.WriteSuccess(w, http.StatusCreated, src)
}

// Update changes a source; omitted fields are kept
// @Summary Update OEM source
// @Tags OEM
// @Accept json
// @Produce json
// @Param id path string true "Source ID"
// @Param request body oem.UpdateInput true "Changed fields"
// @Success 200 {object} oem.Source
// @Failure 400 {object} utils.ErrorResponse "Validation error"
// @Security BearerAuth
// @Router /oem-sources/{id} [patch]
func (h *OEMHandler) Update(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	var in oem.UpdateInput
	if appErr := decodeJSON(r, &in); appErr != nil {
		utils.WriteError(w, appErr)
		return
	}
	src, err := s.OEM.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err, "Failed to update OEM source")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, src)
}

// Delete removes a source
// @Summary Delete OEM source
// @Tags OEM
// @Param id path string true "Source ID"
// @Success 204 "Deleted"
// @Security BearerAuth
// @Router /oem-sources/{id} [delete]
func (h *OEMHandler) Delete(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	if err := s.OEM.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err, "Failed to delete OEM source")
		return
	}
	utils.WriteNoContent(w)
}

// Test runs a trial scrape of a saved source. A scrape that fails remotely
// is reported in the result, not as an error.
// @Summary Test OEM source
// @Tags OEM
// @Produce json
// @Param id path string true "Source ID"
// @Success 200 {object} oem.TestResult
// @Failure 404 {object} utils.ErrorResponse "Source not found"
// @Security BearerAuth
// @Router /oem-sources/{id}/test [post]
func (h *OEMHandler) Test(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	result, err := s.OEM.TestByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, "Failed to test OEM source")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, result)
}

// Search looks up vulnerabilities for a product name
// @Summary Search vulnerabilities
// @Tags OEM
// @Produce json
// @Param q query string true "Product or vendor name"
// @Success 200 {array} oem.Vulnerability
// @Failure 400 {object} utils.ErrorResponse "Missing query"
// @Security BearerAuth
// @Router /oem-sources/search [get]
func (h *OEMHandler) Search(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		utils.WriteError(w, errors.BadRequest("Query parameter q is required"))
		return
	}
	results, err := s.OEM.Search(r.Context(), q)
	if err != nil {
		writeError(w, r, err, "Vulnerability search failed")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, results)
}
