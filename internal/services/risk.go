package services

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/hawksec/hawk/internal/domain/alert"
)

// Criticality is how important the affected system is to the business
type Criticality string

const (
	CriticalityLow      Criticality = "low"
	CriticalityMedium   Criticality = "medium"
	CriticalityHigh     Criticality = "high"
	CriticalityCritical Criticality = "critical"
)

// CalculateRiskScore scores a vulnerability on a 0-10 scale from its
// severity, whether an exploit exists and the system's criticality. An
// empty criticality counts as medium.
func CalculateRiskScore(severity alert.Severity, hasExploit bool, criticality Criticality) float64 {
	var base float64
	switch severity {
	case alert.SeverityCritical:
		base = 10
	case alert.SeverityHigh:
		base = 7
	case alert.SeverityMedium:
		base = 4
	default:
		base = 1
	}

	exploit := 1.0
	if hasExploit {
		exploit = 1.5
	}

	var weight float64
	switch criticality {
	case CriticalityCritical:
		weight = 1.3
	case CriticalityHigh:
		weight = 1.2
	case CriticalityMedium, "":
		weight = 1
	default:
		weight = 0.8
	}

	score := math.Round(base*exploit*weight*10) / 10
	return math.Min(score, 10)
}

// PrioritizeVulnerabilities returns a sorted copy: critical alerts first,
// then alerts with a known exploit, then by severity, then newest first.
func PrioritizeVulnerabilities(alerts []*alert.Alert) []*alert.Alert {
	out := make([]*alert.Alert, len(alerts))
	copy(out, alerts)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		aCrit, bCrit := a.Severity == alert.SeverityCritical, b.Severity == alert.SeverityCritical
		if aCrit != bCrit {
			return aCrit
		}
		if a.ExploitAvailable() != b.ExploitAvailable() {
			return a.ExploitAvailable()
		}
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		return a.Timestamp().After(b.Timestamp())
	})
	return out
}

// GenerateRecommendations lists remediation advice for one alert
func GenerateRecommendations(a *alert.Alert) []string {
	var recs []string
	if a.Mitigation != nil && *a.Mitigation != "" {
		recs = append(recs, *a.Mitigation)
	}

	switch a.Severity {
	case alert.SeverityCritical:
		recs = append(recs,
			"Prioritize immediate patching or mitigation",
			"Consider temporary isolation of affected systems")
	case alert.SeverityHigh:
		recs = append(recs,
			"Schedule patching within 7 days",
			"Implement additional monitoring for affected systems")
	}

	system := strings.ToLower(a.System)
	switch {
	case strings.Contains(system, "web"):
		recs = append(recs, "Review web application firewall rules")
	case strings.Contains(system, "database"):
		recs = append(recs, "Verify database access controls and consider data encryption")
	case strings.Contains(system, "authentication"):
		recs = append(recs, "Implement multi-factor authentication if not already in place")
	}
	return recs
}

// SeverityStats counts active alerts per severity
type SeverityStats struct {
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
}

// Total returns the sum of all severities
func (s SeverityStats) Total() int {
	return s.Critical + s.High + s.Medium + s.Low
}

// Map returns the counts keyed by severity name
func (s SeverityStats) Map() map[string]int {
	return map[string]int{
		string(alert.SeverityCritical): s.Critical,
		string(alert.SeverityHigh):     s.High,
		string(alert.SeverityMedium):   s.Medium,
		string(alert.SeverityLow):      s.Low,
	}
}

// VulnerabilityStats counts the alerts still new or acknowledged
func VulnerabilityStats(alerts []*alert.Alert) SeverityStats {
	var s SeverityStats
	for _, a := range alerts {
		if a.Status != alert.StatusNew && a.Status != alert.StatusAcknowledged {
			continue
		}
		switch a.Severity {
		case alert.SeverityCritical:
			s.Critical++
		case alert.SeverityHigh:
			s.High++
		case alert.SeverityMedium:
			s.Medium++
		case alert.SeverityLow:
			s.Low++
		}
	}
	return s
}

// GenerateSecuritySummary describes the overall risk in one sentence
func GenerateSecuritySummary(s SeverityStats) string {
	total := s.Total()
	switch {
	case total == 0:
		return "No active vulnerabilities detected. Systems appear secure."
	case s.Critical > 0:
		return fmt.Sprintf("Critical attention required: %d critical vulnerabilities detected that require immediate action.", s.Critical)
	case s.High > 2:
		return fmt.Sprintf("High security risk: Multiple high severity vulnerabilities (%d) need addressing soon.", s.High)
	case s.High > 0:
		return fmt.Sprintf("Moderate security concerns: %d high and %d medium vulnerabilities require scheduled remediation.", s.High, s.Medium)
	default:
		return fmt.Sprintf("Low security risk: %d low to medium vulnerabilities should be addressed in regular maintenance.", total)
	}
}

// RemediationWindow returns how long a severity may stay unpatched, or 0
// for an unknown severity
func RemediationWindow(severity alert.Severity) time.Duration {
	day := 24 * time.Hour
	switch severity {
	case alert.SeverityCritical:
		return day
	case alert.SeverityHigh:
		return 7 * day
	case alert.SeverityMedium:
		return 30 * day
	case alert.SeverityLow:
		return 90 * day
	default:
		return 0
	}
}

// Deadline is the remediation due date of an alert
type Deadline struct {
	Timeline      string    `json:"timeline"`
	DueAt         time.Time `json:"due_at"`
	DaysRemaining int       `json:"days_remaining"`
	Overdue       bool      `json:"overdue"`
}

// RemediationDeadline computes when a must be remediated, seen from now.
// ok is false for an unknown severity.
func RemediationDeadline(a *alert.Alert, now time.Time) (Deadline, bool) {
	window := RemediationWindow(a.Severity)
	if window == 0 {
		return Deadline{Timeline: "Action timeline undetermined"}, false
	}
	since := int(now.Sub(a.Timestamp()).Hours() / 24)
	remaining := int(window.Hours()/24) - since
	return Deadline{
		Timeline:      remediationTimeline(a.Severity),
		DueAt:         a.Timestamp().Add(window),
		DaysRemaining: remaining,
		Overdue:       remaining < 0,
	}, true
}

func remediationTimeline(severity alert.Severity) string {
	switch severity {
	case alert.SeverityCritical:
		return "Immediate action required"
	case alert.SeverityHigh:
		return "Action required within 7 days"
	case alert.SeverityMedium:
		return "Action required within 30 days"
	default:
		return "Address in regular maintenance cycle"
	}
}

// CVELink returns the NVD page of a CVE id, or "" when there is none
func CVELink(cve string) string {
	if cve == "" {
		return ""
	}
	return "https://nvd.nist.gov/vuln/detail/" + cve
}
