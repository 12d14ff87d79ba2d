package notification

import (
	"encoding/json"
	"testing"
)

func TestMetadataKeepsUnknownKeys(t *testing.T) {
	raw := `{"severity":"critical","cve":"CVE-2024-1","email_sent":true,"scan_id":"s-9","channels":["email"]}`

	var m Metadata
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.Severity != "critical" || m.CVE != "CVE-2024-1" {
		t.Errorf("known fields not parsed: %+v", m)
	}
	if m.EmailSent == nil || !*m.EmailSent {
		t.Error("email_sent not parsed")
	}
	if m.SMSSent != nil {
		t.Error("sms_sent should be absent")
	}
	if m.Extra["scan_id"] != "s-9" {
		t.Errorf("unknown key dropped: %v", m.Extra)
	}

	out, err := json.Marshal(&m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back map[string]interface{}
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("unmarshal back: %v", err)
	}
	var orig map[string]interface{}
	_ = json.Unmarshal([]byte(raw), &orig)
	if len(back) != len(orig) {
		t.Errorf("expected %d keys after round trip, got %d: %v", len(orig), len(back), back)
	}
}

func TestCountUnread(t *testing.T) {
	items := []*Notification{{IsRead: false}, {IsRead: true}, {IsRead: false}}
	if got := CountUnread(items); got != 2 {
		t.Errorf("CountUnread = %d, want 2", got)
	}
	if CountUnread(nil) != 0 {
		t.Error("empty feed must have no unread items")
	}
}

func TestCloneIsDeep(t *testing.T) {
	n := &Notification{ID: "n1", Metadata: &Metadata{Extra: map[string]interface{}{"k": "v"}}}
	cp := n.Clone()
	cp.Metadata.Extra["k"] = "changed"
	cp.IsRead = true
	if n.Metadata.Extra["k"] != "v" || n.IsRead {
		t.Error("clone shares state with the original")
	}
}
