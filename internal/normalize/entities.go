package normalize

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hawksec/hawk/internal/domain/alert"
	"github.com/hawksec/hawk/internal/domain/notification"
	"github.com/hawksec/hawk/internal/domain/oem"
	"github.com/hawksec/hawk/internal/domain/settings"
	"github.com/hawksec/hawk/internal/domain/system"
	"github.com/hawksec/hawk/internal/domain/trend"
	"github.com/hawksec/hawk/internal/domain/user"
)

// Alert maps an alerts row. Unknown detail keys are kept as sent.
func Alert(row Row) *alert.Alert {
	a := &alert.Alert{
		ID:          str(row, "id"),
		Title:       str(row, "title"),
		Description: str(row, "description"),
		Severity:    alert.Severity(strings.ToLower(str(row, "severity"))),
		Status:      alert.Status(strings.ToLower(str(row, "status"))),
		System:      str(row, "system"),
		CVE:         optStr(row, "cve"),
		Mitigation:  optStr(row, "mitigation"),
		PatchLink:   optStr(row, "patch_link"),
		Date:        timestamp(row, "date"),
		CreatedAt:   optTime(row, "created_at"),
		UpdatedAt:   optTime(row, "updated_at"),
	}
	if d, err := object(row, "details"); err == nil {
		a.Details = d
	}
	return a
}

// Alerts maps a slice of alerts rows
func Alerts(rows []Row) []*alert.Alert {
	out := make([]*alert.Alert, 0, len(rows))
	for _, r := range rows {
		out = append(out, Alert(r))
	}
	return out
}

// AlertMutation is the patch that persists the editable fields of a
func AlertMutation(a *alert.Alert) Row {
	return Row{"status": string(a.Status)}
}

// Notification maps a notifications row. Metadata keys without a typed
// field are preserved in Metadata.Extra.
func Notification(row Row) *notification.Notification {
	n := &notification.Notification{
		ID:        str(row, "id"),
		UserID:    str(row, "user_id"),
		Title:     str(row, "title"),
		Content:   str(row, "content"),
		Type:      notification.Type(str(row, "type")),
		IsRead:    boolean(row, "is_read"),
		CreatedAt: timestamp(row, "created_at"),
	}
	if md, err := object(row, "metadata"); err == nil {
		n.Metadata = notification.MetadataFromMap(md)
	}
	return n
}

// Notifications maps a slice of notifications rows
func Notifications(rows []Row) []*notification.Notification {
	out := make([]*notification.Notification, 0, len(rows))
	for _, r := range rows {
		out = append(out, Notification(r))
	}
	return out
}

// NotificationMutation is the patch that persists the editable fields of n
func NotificationMutation(n *notification.Notification) Row {
	return Row{"is_read": n.IsRead}
}

// NotificationRow is the insert payload of a new notification
func NotificationRow(n *notification.Notification) Row {
	row := Row{
		"user_id": n.UserID,
		"title":   n.Title,
		"content": n.Content,
		"type":    string(n.Type),
		"is_read": n.IsRead,
	}
	if n.Metadata != nil {
		row["metadata"] = n.Metadata.Map()
	}
	return row
}

// System maps a systems row
func System(row Row) *system.System {
	return &system.System{
		ID:          str(row, "id"),
		Name:        str(row, "name"),
		Description: optStr(row, "description"),
		Status:      system.Status(strings.ToLower(str(row, "status"))),
		LastChecked: optTime(row, "last_checked"),
		CreatedAt:   optTime(row, "created_at"),
		UpdatedAt:   optTime(row, "updated_at"),
	}
}

// AlertRef maps the system/severity/status projection of an alerts row
func AlertRef(row Row) system.AlertRef {
	return system.AlertRef{
		System:   str(row, "system"),
		Severity: alert.Severity(strings.ToLower(str(row, "severity"))),
		Status:   alert.Status(strings.ToLower(str(row, "status"))),
	}
}

// OEMSource maps an oem_sources row
func OEMSource(row Row) *oem.Source {
	return &oem.Source{
		ID:          str(row, "id"),
		UserID:      str(row, "user_id"),
		Name:        str(row, "name"),
		URL:         str(row, "url"),
		SystemType:  str(row, "system_type"),
		IsActive:    boolean(row, "is_active"),
		LastChecked: optTime(row, "last_checked"),
		CreatedAt:   timestamp(row, "created_at"),
	}
}

// OEMSourceRow is the payload that persists the editable fields of s
func OEMSourceRow(s *oem.Source) Row {
	return Row{
		"name":        s.Name,
		"url":         s.URL,
		"system_type": s.SystemType,
		"is_active":   s.IsActive,
	}
}

// OEMUpdateRow is the patch for a partial update; only set fields appear
func OEMUpdateRow(in oem.UpdateInput) Row {
	patch := Row{}
	if in.Name != nil {
		patch["name"] = *in.Name
	}
	if in.URL != nil {
		patch["url"] = oem.NormalizeURL(*in.URL)
	}
	if in.SystemType != nil {
		patch["system_type"] = *in.SystemType
	}
	if in.IsActive != nil {
		patch["is_active"] = *in.IsActive
	}
	return patch
}

// Trend maps a vulnerability_trends row
func Trend(row Row) trend.Point {
	return trend.Point{
		ID:       str(row, "id"),
		Date:     timestamp(row, "date"),
		Critical: integer(row, "critical_count"),
		High:     integer(row, "high_count"),
		Medium:   integer(row, "medium_count"),
		Low:      integer(row, "low_count"),
	}
}

// Profile maps a profiles row
func Profile(row Row) *user.Profile {
	return &user.Profile{
		ID:           str(row, "id"),
		FullName:     optStr(row, "full_name"),
		Organization: optStr(row, "organization"),
		Role:         optStr(row, "role"),
		CreatedAt:    optTime(row, "created_at"),
		UpdatedAt:    optTime(row, "updated_at"),
	}
}

// UserSystem maps a user_systems row. The settings document may arrive as
// an object or as an encoded string. A document that cannot be decoded is
// an error; it is never replaced with defaults.
func UserSystem(row Row) (*settings.UserSystem, error) {
	us := &settings.UserSystem{
		ID:         str(row, "id"),
		UserID:     str(row, "user_id"),
		SystemName: str(row, "system_name"),
		CreatedAt:  timestamp(row, "created_at"),
		Settings:   settings.Document{Monitoring: settings.DefaultMonitoring()},
	}

	raw, err := object(row, "monitoring_settings")
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return us, nil
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to encode monitoring settings: %w", err)
	}
	if err := json.Unmarshal(data, &us.Settings); err != nil {
		return nil, fmt.Errorf("failed to decode monitoring settings: %w", err)
	}
	return us, nil
}

// UserSystemRow is the payload that persists a whole settings row
func UserSystemRow(us *settings.UserSystem) (Row, error) {
	data, err := json.Marshal(us.Settings)
	if err != nil {
		return nil, fmt.Errorf("failed to encode monitoring settings: %w", err)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return Row{
		"user_id":             us.UserID,
		"system_name":         us.SystemName,
		"monitoring_settings": doc,
	}, nil
}
