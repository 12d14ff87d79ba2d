package client

import "time"

// User is the signed-in account
type User struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name,omitempty"`
	Profile  *Profile `json:"profile,omitempty"`
}

// Profile is the editable part of an account
type Profile struct {
	ID           string  `json:"id"`
	FullName     *string `json:"full_name,omitempty"`
	Organization *string `json:"organization,omitempty"`
	Role         *string `json:"role,omitempty"`
}

// Deadline is how long an open alert has left before it should be fixed
type Deadline struct {
	Timeline      string    `json:"timeline"`
	DueAt         time.Time `json:"due_at"`
	DaysRemaining int       `json:"days_remaining"`
	Overdue       bool      `json:"overdue"`
}

// Alert is a security alert with its derived remediation fields
type Alert struct {
	ID          string                 `json:"id"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Severity    string                 `json:"severity"` // critical, high, medium, low
	Status      string                 `json:"status"`   // new, acknowledged, resolved
	System      string                 `json:"system"`
	CVE         *string                `json:"cve,omitempty"`
	Mitigation  *string                `json:"mitigation,omitempty"`
	PatchLink   *string                `json:"patch_link,omitempty"`
	Details     map[string]interface{} `json:"details,omitempty"`
	Date        time.Time              `json:"date"`
	CVELink     string                 `json:"cveLink,omitempty"`
	Deadline    *Deadline              `json:"deadline,omitempty"`
}

// AlertPage is one page of alerts
type AlertPage struct {
	Data       []Alert `json:"data"`
	Page       int     `json:"page"`
	PageSize   int     `json:"page_size"`
	TotalItems int64   `json:"total_items"`
	TotalPages int     `json:"total_pages"`
}

// Recommendations is the remediation advice for an alert
type Recommendations struct {
	AlertID         string   `json:"alertId"`
	Recommendations []string `json:"recommendations"`
}

// Risk is the risk score of an alert
type Risk struct {
	AlertID          string  `json:"alertId"`
	Score            float64 `json:"score"`
	ExploitAvailable bool    `json:"exploitAvailable"`
	Criticality      string  `json:"criticality"`
}

// Notification is a message delivered to the signed-in user
type Notification struct {
	ID        string                 `json:"id"`
	UserID    string                 `json:"user_id"`
	Title     string                 `json:"title"`
	Content   string                 `json:"content"`
	Type      string                 `json:"type"`
	IsRead    bool                   `json:"is_read"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// NotificationList is the user's notifications with the unread count
type NotificationList struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int            `json:"unreadCount"`
}

// Progress is the remediation progress of one alert
type Progress struct {
	AlertID          string    `json:"alertId"`
	CompletedSteps   []int     `json:"completedSteps"`
	SelectedTemplate string    `json:"selectedTemplate,omitempty"`
	LastUpdated      time.Time `json:"lastUpdated"`
	Percentage       float64   `json:"percentage"`
}

// TemplateStep is one step of a solution template
type TemplateStep struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Commands    []string `json:"commands,omitempty"`
	Difficulty  string   `json:"difficulty"`
	Category    string   `json:"category"`
}

// Template is a step by step remediation guide
type Template struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Category      string         `json:"category"`
	Severity      string         `json:"severity"`
	EstimatedTime string         `json:"estimatedTime"`
	Prerequisites []string       `json:"prerequisites"`
	Steps         []TemplateStep `json:"steps"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
	Sessions *int   `json:"sessions,omitempty"`
}
