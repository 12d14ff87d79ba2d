package services

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/hawksec/hawk/internal/domain/alert"
	"github.com/hawksec/hawk/internal/pkg/format"
	"github.com/hawksec/hawk/internal/pkg/logger"
)

// reportTopAlerts is how many prioritized alerts the report details
const reportTopAlerts = 10

// ReportService renders the security summary as a PDF
type ReportService struct {
	logger *logger.Logger
	now    func() time.Time
}

// NewReportService creates a report service
func NewReportService(log *logger.Logger) *ReportService {
	return &ReportService{logger: log, now: time.Now}
}

// SecurityPDF writes a report of the active alerts to w: the summary text,
// a severity table and the highest priority alerts with recommendations.
func (s *ReportService) SecurityPDF(alerts []*alert.Alert, w io.Writer) error {
	stats := VulnerabilityStats(alerts)

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(14, 14, 14)
	pdf.SetAutoPageBreak(true, 14)
	pdf.SetTitle("HAWK Security Report", false)
	pdf.SetCreator("hawk", false)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 9, "HAWK Security Report", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(90, 90, 90)
	pdf.CellFormat(0, 6, "Generated "+format.Date(s.now()), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	reportSection(pdf, "Summary")
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(20, 20, 20)
	pdf.MultiCell(0, 5, tr(GenerateSecuritySummary(stats)), "", "L", false)
	pdf.Ln(2)

	reportSection(pdf, "Active vulnerabilities by severity")
	severityTable(pdf, stats)
	pdf.Ln(4)

	reportSection(pdf, "Priority alerts")
	var active []*alert.Alert
	for _, a := range alerts {
		if a.Status != alert.StatusResolved {
			active = append(active, a)
		}
	}
	prioritized := PrioritizeVulnerabilities(active)
	if len(prioritized) > reportTopAlerts {
		prioritized = prioritized[:reportTopAlerts]
	}
	if len(prioritized) == 0 {
		pdf.SetFont("Helvetica", "", 10)
		pdf.SetTextColor(90, 90, 90)
		pdf.MultiCell(0, 5, "No open alerts.", "", "L", false)
	}
	for i, a := range prioritized {
		alertBlock(pdf, tr, i+1, a, s.now())
	}

	if err := pdf.Output(w); err != nil {
		s.logger.ErrorWithErr(err, "Failed to render security report")
		return fmt.Errorf("render security report: %w", err)
	}
	s.logger.WithFields(map[string]interface{}{
		"alerts":   len(alerts),
		"detailed": len(prioritized),
	}).Info("Security report generated")
	return nil
}

func reportSection(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 7, title, "", 1, "L", false, 0, "")
	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(pdf.GetX(), pdf.GetY(), 196, pdf.GetY())
	pdf.Ln(2)
}

func severityTable(pdf *gofpdf.Fpdf, stats SeverityStats) {
	rows := []struct {
		label string
		n     int
	}{
		{"Critical", stats.Critical},
		{"High", stats.High},
		{"Medium", stats.Medium},
		{"Low", stats.Low},
		{"Total", stats.Total()},
	}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(235, 235, 235)
	pdf.CellFormat(60, 7, "Severity", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 7, "Count", "1", 1, "R", true, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, r := range rows {
		pdf.CellFormat(60, 6, r.label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%d", r.n), "1", 1, "R", false, 0, "")
	}
}

func alertBlock(pdf *gofpdf.Fpdf, tr func(string) string, n int, a *alert.Alert, now time.Time) {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetTextColor(20, 20, 20)
	pdf.MultiCell(0, 6, tr(fmt.Sprintf("%d. [%s] %s", n, strings.ToUpper(string(a.Severity)), a.Title)), "", "L", false)

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(70, 70, 70)
	meta := fmt.Sprintf("System: %s   Status: %s   Risk: %.1f", a.System, format.Capitalize(string(a.Status)),
		CalculateRiskScore(a.Severity, a.ExploitAvailable(), ""))
	if cve := a.CVEID(); cve != "" {
		meta += "   " + CVELink(cve)
	}
	pdf.MultiCell(0, 4.5, tr(meta), "", "L", false)
	if d, ok := RemediationDeadline(a, now); ok {
		pdf.MultiCell(0, 4.5, tr(fmt.Sprintf("Remediation: %s (due %s)", d.Timeline, format.Date(d.DueAt))), "", "L", false)
	}

	pdf.SetTextColor(20, 20, 20)
	for _, rec := range GenerateRecommendations(a) {
		pdf.MultiCell(0, 4.5, tr("- "+rec), "", "L", false)
	}
	pdf.Ln(2)
}
