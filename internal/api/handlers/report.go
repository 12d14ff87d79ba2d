package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/hawksec/hawk/internal/pkg/logger"
	"github.com/hawksec/hawk/internal/pkg/utils"
)

// ReportHandler renders downloadable reports
type ReportHandler struct {
	logger *logger.Logger
	now    func() time.Time
}

// NewReportHandler creates a new report handler
func NewReportHandler(log *logger.Logger) *ReportHandler {
	return &ReportHandler{logger: log, now: time.Now}
}

// SecurityPDF renders the security report of the held alerts
// @Summary Security report
// @Tags Reports
// @Produce application/pdf
// @Success 200 {file} file "PDF report"
// @Security BearerAuth
// @Router /reports/security.pdf [get]
func (h *ReportHandler) SecurityPDF(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := s.Reports.SecurityPDF(s.Alerts.Alerts(), &buf); err != nil {
		writeError(w, r, err, "Failed to render security report")
		return
	}

	name := fmt.Sprintf("security-report-%s.pdf", h.now().Format("2006-01-02"))
	utils.WriteAttachment(w, "application/pdf", name, buf.Bytes())
}
