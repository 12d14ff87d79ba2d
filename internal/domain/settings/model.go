package settings

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// Names written to user_systems.system_name by the two settings screens
const (
	MonitorSystemName = "Auto Monitor"
	DefaultSystemName = "Default System"
)

// DefaultScanInterval is the auto-scan period in hours when none is set
const DefaultScanInterval = 24

// ValidIntervals are the auto-scan periods in hours a user may choose
var ValidIntervals = []int{6, 12, 24, 48}

// Document keys
const (
	keyAutoScan    = "autoScanEnabled"
	keyInterval    = "scanInterval"
	keyCritical    = "criticalOnly"
	keyLastScan    = "lastScanTime"
	keyPreferences = "notificationPreferences"
	keyRules       = "notificationRules"
)

// UserSystem is a user's settings row. The whole Document is written back
// on every save.
type UserSystem struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	SystemName string    `json:"system_name"`
	Settings   Document  `json:"monitoring_settings"`
	CreatedAt  time.Time `json:"created_at"`
}

// Document is the monitoring_settings JSON blob. Keys it does not model
// are kept in Extra so a save never drops them.
type Document struct {
	Monitoring
	NotificationPreferences *NotificationPreferences `json:"notificationPreferences,omitempty"`
	NotificationRules       []NotificationRule       `json:"notificationRules,omitempty"`
	Extra                   map[string]interface{}   `json:"-"`
}

// Monitoring holds the auto-scan settings
type Monitoring struct {
	AutoScanEnabled bool       `json:"autoScanEnabled"`
	ScanInterval    int        `json:"scanInterval"`
	CriticalOnly    bool       `json:"criticalOnly"`
	LastScanTime    *time.Time `json:"lastScanTime"`
}

// DefaultMonitoring returns auto-scan disabled with a 24 hour interval
func DefaultMonitoring() Monitoring {
	return Monitoring{ScanInterval: DefaultScanInterval}
}

// Validate checks the interval
func (m Monitoring) Validate() error {
	if !slices.Contains(ValidIntervals, m.ScanInterval) {
		return fmt.Errorf("scan interval must be one of %v hours", ValidIntervals)
	}
	return nil
}

// NextScan returns when the next auto scan is due, or nil when auto scan
// is off or no scan has run yet.
func (m Monitoring) NextScan() *time.Time {
	if !m.AutoScanEnabled || m.LastScanTime == nil {
		return nil
	}
	next := m.LastScanTime.Add(time.Duration(m.interval()) * time.Hour)
	return &next
}

// Due reports whether an auto scan should run at now
func (m Monitoring) Due(now time.Time) bool {
	if !m.AutoScanEnabled {
		return false
	}
	next := m.NextScan()
	return next == nil || !next.After(now)
}

func (m Monitoring) interval() int {
	if m.ScanInterval <= 0 {
		return DefaultScanInterval
	}
	return m.ScanInterval
}

// NotificationPreferences are the delivery channels of a user
type NotificationPreferences struct {
	EmailEnabled  bool   `json:"emailEnabled"`
	SMSEnabled    bool   `json:"smsEnabled"`
	EmailAddress  string `json:"emailAddress" validate:"omitempty,email"`
	PhoneNumber   string `json:"phoneNumber" validate:"omitempty,phone"`
	AlertLevel    string `json:"alertLevel" validate:"omitempty,severity_filter"`
	Frequency     string `json:"frequency" validate:"omitempty,oneof=immediate hourly daily weekly"`
	Timeframe     string `json:"timeframe" validate:"omitempty,oneof=any business custom"`
	EmailVerified bool   `json:"emailVerified"`
}

// DefaultPreferences returns email-only delivery of critical alerts
func DefaultPreferences(email string) NotificationPreferences {
	return NotificationPreferences{
		EmailEnabled:  true,
		SMSEnabled:    false,
		EmailAddress:  email,
		PhoneNumber:   "",
		AlertLevel:    "critical",
		Frequency:     "immediate",
		Timeframe:     "any",
		EmailVerified: true,
	}
}

// WithDefaults fills empty fields from DefaultPreferences(email)
func (p NotificationPreferences) WithDefaults(email string) NotificationPreferences {
	d := DefaultPreferences(email)
	if p.EmailAddress == "" {
		p.EmailAddress = d.EmailAddress
	}
	if p.AlertLevel == "" {
		p.AlertLevel = d.AlertLevel
	}
	if p.Frequency == "" {
		p.Frequency = d.Frequency
	}
	if p.Timeframe == "" {
		p.Timeframe = d.Timeframe
	}
	return p
}

// NotificationRule routes matching findings to delivery actions
type NotificationRule struct {
	ID        string   `json:"id"`
	Name      string   `json:"name" validate:"required,max=200"`
	Condition string   `json:"condition" validate:"required,oneof=severity system"`
	Severity  string   `json:"severity" validate:"omitempty,severity"`
	System    string   `json:"system,omitempty"`
	Enabled   bool     `json:"enabled"`
	Actions   []string `json:"actions" validate:"dive,oneof=email sms notification"`
}

// DefaultRules is the rule set of a user who never saved one
func DefaultRules(newID func() string) []NotificationRule {
	return []NotificationRule{{
		ID:        newID(),
		Name:      "Critical vulnerabilities",
		Condition: "severity",
		Severity:  "critical",
		Enabled:   true,
		Actions:   []string{"email", "notification"},
	}}
}

// MarshalJSON writes the modelled fields over the preserved Extra keys
func (d Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(d.Extra)+6)
	for k, v := range d.Extra {
		out[k] = v
	}
	out[keyAutoScan] = d.AutoScanEnabled
	out[keyInterval] = d.ScanInterval
	out[keyCritical] = d.CriticalOnly
	if d.LastScanTime != nil {
		out[keyLastScan] = d.LastScanTime.UTC().Format(time.RFC3339Nano)
	} else {
		out[keyLastScan] = nil
	}
	if d.NotificationPreferences != nil {
		out[keyPreferences] = d.NotificationPreferences
	}
	if d.NotificationRules != nil {
		out[keyRules] = d.NotificationRules
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads a document, keeping keys it does not model
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	doc := Document{Monitoring: DefaultMonitoring()}
	for k, v := range raw {
		var err error
		switch k {
		case keyAutoScan:
			err = json.Unmarshal(v, &doc.AutoScanEnabled)
		case keyInterval:
			var f float64
			if err = json.Unmarshal(v, &f); err == nil && f > 0 {
				doc.ScanInterval = int(f)
			}
		case keyCritical:
			err = json.Unmarshal(v, &doc.CriticalOnly)
		case keyLastScan:
			var s *string
			if err = json.Unmarshal(v, &s); err == nil && s != nil && *s != "" {
				t, perr := time.Parse(time.RFC3339Nano, *s)
				if perr != nil {
					return fmt.Errorf("invalid %s: %w", keyLastScan, perr)
				}
				doc.LastScanTime = &t
			}
		case keyPreferences:
			if string(v) != "null" {
				doc.NotificationPreferences = &NotificationPreferences{}
				err = json.Unmarshal(v, doc.NotificationPreferences)
			}
		case keyRules:
			err = json.Unmarshal(v, &doc.NotificationRules)
		default:
			var val interface{}
			if err = json.Unmarshal(v, &val); err == nil {
				if doc.Extra == nil {
					doc.Extra = make(map[string]interface{})
				}
				doc.Extra[k] = val
			}
		}
		if err != nil {
			return fmt.Errorf("invalid %s: %w", k, err)
		}
	}

	*d = doc
	return nil
}
