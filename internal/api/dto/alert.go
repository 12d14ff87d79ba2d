package dto

import (
	"time"

	"github.com/hawksec/hawk/internal/domain/alert"
	"github.com/hawksec/hawk/internal/services"
)

// UpdateAlertStatusRequest changes the status of an alert
type UpdateAlertStatusRequest struct {
	Status string `json:"status" validate:"required,alert_status"`
}

// AlertDTO is an alert with its derived remediation fields
type AlertDTO struct {
	*alert.Alert
	CVELink  string             `json:"cveLink,omitempty"`
	Deadline *services.Deadline `json:"deadline,omitempty"`
}

// NewAlertDTO decorates a with its CVE link and remediation deadline
func NewAlertDTO(a *alert.Alert, now time.Time) AlertDTO {
	d := AlertDTO{Alert: a}
	if cve := a.CVEID(); cve != "" {
		d.CVELink = services.CVELink(cve)
	}
	if dl, ok := services.RemediationDeadline(a, now); ok {
		d.Deadline = &dl
	}
	return d
}

// RecommendationsResponse lists remediation advice for one alert
type RecommendationsResponse struct {
	AlertID         string   `json:"alertId"`
	Recommendations []string `json:"recommendations"`
}

// RiskResponse is the risk score of one alert
type RiskResponse struct {
	AlertID          string  `json:"alertId"`
	Score            float64 `json:"score"`
	ExploitAvailable bool    `json:"exploitAvailable"`
	Criticality      string  `json:"criticality"`
}
