package alert

import (
	"testing"
	"time"
)

func ptr(s string) *string { return &s }

func TestSeverityRank(t *testing.T) {
	order := []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
	for i := 1; i < len(order); i++ {
		if order[i-1].Rank() >= order[i].Rank() {
			t.Errorf("expected %s < %s", order[i-1], order[i])
		}
	}
	if Severity("bogus").Valid() {
		t.Error("unknown severity must not be valid")
	}
	if !SeverityCritical.AtLeast(SeverityHigh) || SeverityMedium.AtLeast(SeverityHigh) {
		t.Error("AtLeast ordering is wrong")
	}
}

func TestParse(t *testing.T) {
	if s, err := ParseSeverity(" HIGH "); err != nil || s != SeverityHigh {
		t.Errorf("ParseSeverity = %q, %v", s, err)
	}
	if _, err := ParseSeverity("urgent"); err == nil {
		t.Error("expected error for unknown severity")
	}
	if s, err := ParseStatus("Acknowledged"); err != nil || s != StatusAcknowledged {
		t.Errorf("ParseStatus = %q, %v", s, err)
	}
	if StatusResolved.Reopen() != StatusNew {
		t.Error("reopen must return to new")
	}
}

func TestFilterMatches(t *testing.T) {
	sqli := &Alert{Title: "Critical SQL Injection Vulnerability", System: "Database Server", Severity: SeverityCritical, Status: StatusNew, CVE: ptr("CVE-2023-1234")}
	weak := &Alert{Title: "Weak Password Policy", System: "Auth Service", Severity: SeverityMedium, Status: StatusAcknowledged, Description: "Passwords lack complexity"}

	tests := []struct {
		name   string
		filter Filter
		alert  *Alert
		want   bool
	}{
		{"empty matches", Filter{}, weak, true},
		{"search title", Filter{Search: "sql"}, sqli, true},
		{"search misses", Filter{Search: "sql"}, weak, false},
		{"search cve", Filter{Search: "cve-2023"}, sqli, true},
		{"search description", Filter{Search: "COMPLEXITY"}, weak, true},
		{"search system", Filter{Search: "auth"}, weak, true},
		{"severity or", Filter{Severities: []Severity{SeverityHigh, SeverityCritical}}, sqli, true},
		{"severity excludes", Filter{Severities: []Severity{SeverityHigh}}, sqli, false},
		{"and across dimensions", Filter{Severities: []Severity{SeverityCritical}, Statuses: []Status{StatusResolved}}, sqli, false},
		{"both dimensions match", Filter{Severities: []Severity{SeverityCritical}, Statuses: []Status{StatusNew}}, sqli, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(tt.alert); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTimestampFallsBackToCreatedAt(t *testing.T) {
	created := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	a := &Alert{CreatedAt: &created}
	if !a.Timestamp().Equal(created) {
		t.Errorf("expected created_at fallback, got %v", a.Timestamp())
	}

	a.Date = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if !a.Timestamp().Equal(a.Date) {
		t.Errorf("expected date, got %v", a.Timestamp())
	}
}

func TestCloneCopiesDetails(t *testing.T) {
	a := &Alert{ID: "a1", Details: map[string]interface{}{"exploitAvailable": true}}
	cp := a.Clone()
	cp.Details["exploitAvailable"] = false
	if !a.ExploitAvailable() {
		t.Error("clone must not share details with the original")
	}
}
