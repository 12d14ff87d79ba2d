package system

import (
	"time"

	"github.com/hawksec/hawk/internal/domain/alert"
)

// System is a monitored system as listed in the systems table
type System struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description *string    `json:"description,omitempty"`
	Status      Status     `json:"status"`
	LastChecked *time.Time `json:"last_checked,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// Status is the operational state of a system
type Status string

// System status
const (
	StatusOperational Status = "operational"
	StatusDegraded    Status = "degraded"
	StatusCritical    Status = "critical"
	StatusMaintenance Status = "maintenance"
)

// AlertRef is the slice of an alert needed to summarise systems
type AlertRef struct {
	System   string         `json:"system"`
	Severity alert.Severity `json:"severity"`
	Status   alert.Status   `json:"status"`
}

// Overview is a system with its derived alert counts
type Overview struct {
	System
	AlertsCount       int `json:"alerts_count"`
	HighSeverityCount int `json:"high_severity_count"`
}

// StatusCounts tallies systems per status
type StatusCounts struct {
	Operational int `json:"operational"`
	Degraded    int `json:"degraded"`
	Critical    int `json:"critical"`
	Maintenance int `json:"maintenance"`
}

// BuildOverview derives per-system alert counts. HighSeverityCount counts
// high and critical alerts that are not resolved yet.
func BuildOverview(systems []*System, alerts []AlertRef) []Overview {
	total := make(map[string]int)
	high := make(map[string]int)
	for _, a := range alerts {
		total[a.System]++
		if a.Severity.AtLeast(alert.SeverityHigh) && a.Status != alert.StatusResolved {
			high[a.System]++
		}
	}

	out := make([]Overview, 0, len(systems))
	for _, s := range systems {
		out = append(out, Overview{
			System:            *s,
			AlertsCount:       total[s.Name],
			HighSeverityCount: high[s.Name],
		})
	}
	return out
}

// CountStatuses tallies systems by status; unknown statuses are ignored
func CountStatuses(systems []*System) StatusCounts {
	var c StatusCounts
	for _, s := range systems {
		switch s.Status {
		case StatusOperational:
			c.Operational++
		case StatusDegraded:
			c.Degraded++
		case StatusCritical:
			c.Critical++
		case StatusMaintenance:
			c.Maintenance++
		}
	}
	return c
}
