package notification

import (
	"encoding/json"
	"time"
)

// RecentLimit is how many notifications a user's feed holds
const RecentLimit = 50

// Notification is a message delivered to one user
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Type      Type      `json:"type"`
	IsRead    bool      `json:"is_read"`
	Metadata  *Metadata `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Clone returns a copy that shares no mutable state with n
func (n *Notification) Clone() *Notification {
	cp := *n
	if n.Metadata != nil {
		md := *n.Metadata
		if n.Metadata.Extra != nil {
			md.Extra = make(map[string]interface{}, len(n.Metadata.Extra))
			for k, v := range n.Metadata.Extra {
				md.Extra[k] = v
			}
		}
		cp.Metadata = &md
	}
	return &cp
}

// Type tags what produced a notification
type Type string

// Notification types
const (
	TypeVulnerability Type = "vulnerability"
	TypeScan          Type = "scan"
	TypeTest          Type = "test"
	TypeSystem        Type = "system"
)

// Metadata carries the optional details of a notification. Keys the
// dashboard does not know are kept in Extra and written back unchanged.
type Metadata struct {
	Severity  string                 `json:"severity,omitempty"`
	CVE       string                 `json:"cve,omitempty"`
	EmailSent *bool                  `json:"email_sent,omitempty"`
	SMSSent   *bool                  `json:"sms_sent,omitempty"`
	Extra     map[string]interface{} `json:"-"`
}

// Known metadata keys
const (
	metaSeverity  = "severity"
	metaCVE       = "cve"
	metaEmailSent = "email_sent"
	metaSMSSent   = "sms_sent"
)

// Map flattens the metadata back into a single JSON object
func (m *Metadata) Map() map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m.Extra)+4)
	for k, v := range m.Extra {
		out[k] = v
	}
	if m.Severity != "" {
		out[metaSeverity] = m.Severity
	}
	if m.CVE != "" {
		out[metaCVE] = m.CVE
	}
	if m.EmailSent != nil {
		out[metaEmailSent] = *m.EmailSent
	}
	if m.SMSSent != nil {
		out[metaSMSSent] = *m.SMSSent
	}
	return out
}

// MetadataFromMap splits a raw metadata object into known fields and Extra
func MetadataFromMap(raw map[string]interface{}) *Metadata {
	if raw == nil {
		return nil
	}
	m := &Metadata{}
	for k, v := range raw {
		switch k {
		case metaSeverity:
			if s, ok := v.(string); ok {
				m.Severity = s
				continue
			}
		case metaCVE:
			if s, ok := v.(string); ok {
				m.CVE = s
				continue
			}
		case metaEmailSent:
			if b, ok := v.(bool); ok {
				m.EmailSent = &b
				continue
			}
		case metaSMSSent:
			if b, ok := v.(bool); ok {
				m.SMSSent = &b
				continue
			}
		}
		if m.Extra == nil {
			m.Extra = make(map[string]interface{})
		}
		m.Extra[k] = v
	}
	return m
}

// MarshalJSON writes the flattened object
func (m *Metadata) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Map())
}

// UnmarshalJSON reads a flat object, keeping unknown keys
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed := MetadataFromMap(raw)
	if parsed == nil {
		parsed = &Metadata{}
	}
	*m = *parsed
	return nil
}

// CountUnread returns the number of notifications with IsRead=false
func CountUnread(items []*Notification) int {
	n := 0
	for _, it := range items {
		if !it.IsRead {
			n++
		}
	}
	return n
}
