package alert

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Alert represents a vulnerability finding on one of the monitored systems
type Alert struct {
	ID          string                 `json:"id"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Severity    Severity               `json:"severity"`
	Status      Status                 `json:"status"`
	System      string                 `json:"system"`
	CVE         *string                `json:"cve,omitempty"`
	Mitigation  *string                `json:"mitigation,omitempty"`
	PatchLink   *string                `json:"patch_link,omitempty"`
	Details     map[string]interface{} `json:"details,omitempty"`
	Date        time.Time              `json:"date"`
	CreatedAt   *time.Time             `json:"created_at,omitempty"`
	UpdatedAt   *time.Time             `json:"updated_at,omitempty"`
}

// Timestamp is the point in time the alert is ordered by: its date, or
// the row creation time when the date is missing.
func (a *Alert) Timestamp() time.Time {
	if !a.Date.IsZero() || a.CreatedAt == nil {
		return a.Date
	}
	return *a.CreatedAt
}

// ExploitAvailable reports whether the details flag a known public exploit
func (a *Alert) ExploitAvailable() bool {
	v, _ := a.Details["exploitAvailable"].(bool)
	return v
}

// CVEID returns the CVE identifier or ""
func (a *Alert) CVEID() string {
	if a.CVE == nil {
		return ""
	}
	return *a.CVE
}

// Clone returns a copy that shares no mutable state with a
func (a *Alert) Clone() *Alert {
	cp := *a
	if a.Details != nil {
		cp.Details = make(map[string]interface{}, len(a.Details))
		for k, v := range a.Details {
			cp.Details[k] = v
		}
	}
	return &cp
}

// Severity is the ordinal risk level of an alert
type Severity string

// Alert severity levels
const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Severities lists the levels from most to least severe
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

// Rank orders severities: low=1 .. critical=4, unknown=0
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Valid reports whether s is a known severity
func (s Severity) Valid() bool {
	return s.Rank() > 0
}

// AtLeast reports whether s is as severe as other or more
func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

// ParseSeverity converts a case-insensitive name into a Severity
func ParseSeverity(v string) (Severity, error) {
	s := Severity(strings.ToLower(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown severity %q", v)
	}
	return s, nil
}

// Status is the workflow state of an alert
type Status string

// Alert status
const (
	StatusNew          Status = "new"
	StatusAcknowledged Status = "acknowledged"
	StatusResolved     Status = "resolved"
)

// Statuses lists every workflow state
var Statuses = []Status{StatusNew, StatusAcknowledged, StatusResolved}

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	return slices.Contains(Statuses, s)
}

// Reopen returns the status a reopened alert goes back to
func (s Status) Reopen() Status {
	return StatusNew
}

// ParseStatus converts a case-insensitive name into a Status
func ParseStatus(v string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown status %q", v)
	}
	return s, nil
}

// Filter contains alert filtering options. Dimensions are ANDed; the
// values selected within one dimension are ORed. An empty dimension
// matches everything.
type Filter struct {
	Search     string
	Severities []Severity
	Statuses   []Status
}

// IsEmpty reports whether the filter matches every alert
func (f Filter) IsEmpty() bool {
	return strings.TrimSpace(f.Search) == "" && len(f.Severities) == 0 && len(f.Statuses) == 0
}

// Matches reports whether a passes the filter. Search is a
// case-insensitive substring match over title, system, CVE and description.
func (f Filter) Matches(a *Alert) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(a.Title), q) &&
			!strings.Contains(strings.ToLower(a.System), q) &&
			!strings.Contains(strings.ToLower(a.CVEID()), q) &&
			!strings.Contains(strings.ToLower(a.Description), q) {
			return false
		}
	}
	if len(f.Severities) > 0 && !slices.Contains(f.Severities, a.Severity) {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, a.Status) {
		return false
	}
	return true
}
