package oem

import (
	"strings"
	"time"
)

// Source is a vendor advisory page a user monitors for new vulnerabilities
type Source struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Name        string     `json:"name"`
	URL         string     `json:"url"`
	SystemType  string     `json:"system_type"`
	IsActive    bool       `json:"is_active"`
	LastChecked *time.Time `json:"last_checked,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// CreateInput holds the fields of a new source
type CreateInput struct {
	Name       string `json:"name" validate:"required,max=200"`
	URL        string `json:"url" validate:"required,max=2048"`
	SystemType string `json:"system_type" validate:"required,max=100"`
}

// UpdateInput holds a partial update; nil fields are left unchanged
type UpdateInput struct {
	Name       *string `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	URL        *string `json:"url,omitempty" validate:"omitempty,min=1,max=2048"`
	SystemType *string `json:"system_type,omitempty" validate:"omitempty,min=1,max=100"`
	IsActive   *bool   `json:"is_active,omitempty"`
}

// IsEmpty reports whether the update changes nothing
func (u UpdateInput) IsEmpty() bool {
	return u.Name == nil && u.URL == nil && u.SystemType == nil && u.IsActive == nil
}

// NormalizeURL prefixes https:// to an address that has no http scheme
func NormalizeURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" || strings.HasPrefix(u, "http") {
		return u
	}
	return "https://" + u
}

// TestResult is the outcome of a trial scrape of a source
type TestResult struct {
	Success              bool   `json:"success"`
	VulnerabilitiesCount int    `json:"vulnerabilitiesCount"`
	Error                string `json:"error,omitempty"`
}

// Vulnerability is one finding returned by the vulnerability scraper
type Vulnerability struct {
	CVE         string `json:"cve"`
	Title       string `json:"title"`
	Severity    string `json:"severity"`
	Description string `json:"description,omitempty"`
	System      string `json:"system,omitempty"`
	Date        string `json:"date,omitempty"`
}
