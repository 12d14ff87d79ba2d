package services

import (
	"context"
	"strings"

	"github.com/hawksec/hawk/internal/config"
	"github.com/hawksec/hawk/internal/domain/alert"
	"github.com/hawksec/hawk/internal/domain/oem"
	apperrors "github.com/hawksec/hawk/internal/pkg/errors"
	"github.com/hawksec/hawk/internal/pkg/logger"
	"github.com/hawksec/hawk/internal/pkg/metrics"
)

// Scan triggers
const (
	TriggerManual = "manual"
	TriggerAuto   = "auto"
)

// sourceAll asks the scraper for findings of every severity
const sourceAll = "all"

// ScanRequest selects what a real-time scan looks for. An empty Severity
// means all severities; a zero Limit uses the configured default.
type ScanRequest struct {
	Severity string `json:"severity,omitempty" validate:"omitempty,severity_filter"`
	Limit    int    `json:"limit,omitempty" validate:"omitempty,min=1,max=100"`
	UserID   string `json:"-"`
}

// ScanResult is what the scraper found
type ScanResult struct {
	Results      []oem.Vulnerability `json:"results"`
	UsedMockData bool                `json:"usedMockData"`
	Count        int                 `json:"count"`
	Notified     int                 `json:"notified"`
}

// Findings counts the results per severity
func (r *ScanResult) Findings() map[string]int {
	out := make(map[string]int)
	for _, v := range r.Results {
		out[strings.ToLower(v.Severity)]++
	}
	return out
}

// ScanService runs on-demand and scheduled vulnerability scans and hands
// severe findings to the notification function.
type ScanService struct {
	functions   FunctionInvoker
	cfg         config.ScanConfig
	minSeverity alert.Severity
	metrics     bool
	logger      *logger.Logger
}

// NewScanService creates a scan service
func NewScanService(functions FunctionInvoker, cfg config.ScanConfig, log *logger.Logger, withMetrics bool) *ScanService {
	minSeverity, err := alert.ParseSeverity(cfg.NotifyMinSeverity)
	if err != nil {
		minSeverity = alert.SeverityHigh
	}
	if cfg.NVDResultsLimit <= 0 {
		cfg.NVDResultsLimit = 10
	}
	return &ScanService{
		functions:   functions,
		cfg:         cfg,
		minSeverity: minSeverity,
		metrics:     withMetrics,
		logger:      log,
	}
}

// Run performs a manual scan and dispatches notifications for the severe
// findings. A failed dispatch is logged; the scan result still stands.
func (s *ScanService) Run(ctx context.Context, req ScanRequest) (*ScanResult, error) {
	if req.UserID == "" {
		return nil, apperrors.Unauthorized("A signed-in user is required to scan")
	}
	severity := strings.ToLower(req.Severity)
	if severity != "" && severity != sourceAll {
		if _, err := alert.ParseSeverity(severity); err != nil {
			return nil, apperrors.BadRequest("Invalid severity: " + req.Severity)
		}
	}
	limit := req.Limit
	if limit <= 0 {
		limit = s.cfg.NVDResultsLimit
	}

	body := map[string]interface{}{
		"limit":  limit,
		"userId": req.UserID,
	}
	if severity != "" && severity != sourceAll {
		body["source"] = severity
	}

	result, err := s.scan(ctx, TriggerManual, body)
	if err != nil {
		return nil, err
	}

	if severity == "" {
		severity = sourceAll
	}
	result.Notified = s.dispatch(ctx, req.UserID, result.Results, "real-time", severity)
	return result, nil
}

// RunAuto performs a scheduled scan for one user
func (s *ScanService) RunAuto(ctx context.Context, userID string, criticalOnly bool) (*ScanResult, error) {
	source := sourceAll
	if criticalOnly {
		source = string(alert.SeverityCritical)
	}
	body := map[string]interface{}{
		"source": source,
		"userId": userID,
	}

	result, err := s.scan(ctx, TriggerAuto, body)
	if err != nil {
		return nil, err
	}
	result.Notified = s.dispatch(ctx, userID, result.Results, "auto", source)
	return result, nil
}

func (s *ScanService) scan(ctx context.Context, trigger string, body map[string]interface{}) (*ScanResult, error) {
	log := s.logger.WithFields(map[string]interface{}{
		"trigger": trigger,
		"user_id": body["userId"],
	})

	var result ScanResult
	err := s.functions.Invoke(ctx, FnRealTimeScraper, body, &result)
	if err != nil {
		log.ErrorWithErr(err, "Vulnerability scan failed")
		if s.metrics {
			metrics.RecordScan(trigger, err, nil)
		}
		return nil, err
	}
	if result.Results == nil {
		result.Results = []oem.Vulnerability{}
	}
	if result.Count == 0 {
		result.Count = len(result.Results)
	}
	if s.metrics {
		metrics.RecordScan(trigger, nil, result.Findings())
	}

	log.WithFields(map[string]interface{}{
		"count":          result.Count,
		"used_mock_data": result.UsedMockData,
	}).Info("Vulnerability scan completed")
	return &result, nil
}

// dispatch sends the findings at or above the notify threshold to the
// notification function and returns how many were sent.
func (s *ScanService) dispatch(ctx context.Context, userID string, results []oem.Vulnerability, scanType, severity string) int {
	severe := SevereFindings(results, s.minSeverity)
	if len(severe) == 0 {
		return 0
	}

	body := map[string]interface{}{
		"userId":      userID,
		"scanResults": severe,
		"scanType":    scanType,
		"severity":    severity,
	}
	if err := s.functions.Invoke(ctx, FnSendNotifications, body, nil); err != nil {
		s.logger.WithFields(map[string]interface{}{
			"user_id":  userID,
			"findings": len(severe),
		}).ErrorWithErr(err, "Failed to dispatch scan notifications")
		return 0
	}
	return len(severe)
}

// SevereFindings returns the results rated min or worse, in order
func SevereFindings(results []oem.Vulnerability, min alert.Severity) []oem.Vulnerability {
	var out []oem.Vulnerability
	for _, v := range results {
		sev, err := alert.ParseSeverity(v.Severity)
		if err != nil {
			continue
		}
		if sev.AtLeast(min) {
			out = append(out, v)
		}
	}
	return out
}
