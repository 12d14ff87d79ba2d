package services

import (
	"reflect"
	"testing"
	"time"

	"github.com/hawksec/hawk/internal/domain/alert"
	"github.com/hawksec/hawk/internal/testutil"
)

func TestCalculateRiskScore(t *testing.T) {
	tests := []struct {
		name        string
		severity    alert.Severity
		exploit     bool
		criticality Criticality
		want        float64
	}{
		{"critical capped at ten", alert.SeverityCritical, true, CriticalityCritical, 10},
		{"critical default criticality", alert.SeverityCritical, false, "", 10},
		{"high with exploit", alert.SeverityHigh, true, CriticalityMedium, 10},
		{"high on high system", alert.SeverityHigh, false, CriticalityHigh, 8.4},
		{"medium with exploit on critical system", alert.SeverityMedium, true, CriticalityCritical, 7.8},
		{"medium on low system", alert.SeverityMedium, false, CriticalityLow, 3.2},
		{"low on low system", alert.SeverityLow, false, CriticalityLow, 0.8},
		{"unknown severity scores as low", alert.Severity("bogus"), true, CriticalityMedium, 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalculateRiskScore(tt.severity, tt.exploit, tt.criticality); got != tt.want {
				t.Errorf("CalculateRiskScore() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPrioritizeVulnerabilities(t *testing.T) {
	exploited := testutil.NewAlert("high-exploit", "h", alert.SeverityHigh, alert.StatusNew, testutil.Day(2024, 1, 1))
	exploited.Details = map[string]interface{}{"exploitAvailable": true}

	input := []*alert.Alert{
		testutil.NewAlert("low", "l", alert.SeverityLow, alert.StatusNew, testutil.Day(2024, 1, 9)),
		testutil.NewAlert("high-new", "h", alert.SeverityHigh, alert.StatusNew, testutil.Day(2024, 1, 5)),
		exploited,
		testutil.NewAlert("crit-old", "c", alert.SeverityCritical, alert.StatusNew, testutil.Day(2024, 1, 1)),
		testutil.NewAlert("high-old", "h", alert.SeverityHigh, alert.StatusNew, testutil.Day(2024, 1, 2)),
		testutil.NewAlert("crit-new", "c", alert.SeverityCritical, alert.StatusNew, testutil.Day(2024, 1, 3)),
	}

	got := PrioritizeVulnerabilities(input)
	var order []string
	for _, a := range got {
		order = append(order, a.ID)
	}

	want := []string{"crit-new", "crit-old", "high-exploit", "high-new", "high-old", "low"}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("PrioritizeVulnerabilities() = %v, want %v", order, want)
	}
	if input[0].ID != "low" {
		t.Error("input slice must not be reordered")
	}
}

func TestGenerateRecommendations(t *testing.T) {
	mitigation := "Upgrade to 2.4.1"

	tests := []struct {
		name  string
		alert *alert.Alert
		want  []string
	}{
		{
			name: "critical web alert with mitigation",
			alert: &alert.Alert{
				Severity:   alert.SeverityCritical,
				System:     "Public Web Portal",
				Mitigation: &mitigation,
			},
			want: []string{
				"Upgrade to 2.4.1",
				"Prioritize immediate patching or mitigation",
				"Consider temporary isolation of affected systems",
				"Review web application firewall rules",
			},
		},
		{
			name:  "high database alert",
			alert: &alert.Alert{Severity: alert.SeverityHigh, System: "Customer Database"},
			want: []string{
				"Schedule patching within 7 days",
				"Implement additional monitoring for affected systems",
				"Verify database access controls and consider data encryption",
			},
		},
		{
			name:  "medium authentication alert",
			alert: &alert.Alert{Severity: alert.SeverityMedium, System: "Authentication Service"},
			want:  []string{"Implement multi-factor authentication if not already in place"},
		},
		{
			name:  "low alert on other system",
			alert: &alert.Alert{Severity: alert.SeverityLow, System: "Mail Relay"},
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateRecommendations(tt.alert)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("GenerateRecommendations() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGenerateSecuritySummary(t *testing.T) {
	tests := []struct {
		stats SeverityStats
		want  string
	}{
		{SeverityStats{}, "No active vulnerabilities detected. Systems appear secure."},
		{SeverityStats{Critical: 2, High: 5}, "Critical attention required: 2 critical vulnerabilities detected that require immediate action."},
		{SeverityStats{High: 3, Medium: 1}, "High security risk: Multiple high severity vulnerabilities (3) need addressing soon."},
		{SeverityStats{High: 2, Medium: 4}, "Moderate security concerns: 2 high and 4 medium vulnerabilities require scheduled remediation."},
		{SeverityStats{Medium: 2, Low: 3}, "Low security risk: 5 low to medium vulnerabilities should be addressed in regular maintenance."},
	}

	for _, tt := range tests {
		if got := GenerateSecuritySummary(tt.stats); got != tt.want {
			t.Errorf("GenerateSecuritySummary(%+v) = %q, want %q", tt.stats, got, tt.want)
		}
	}
}

func TestVulnerabilityStatsCountsOnlyActive(t *testing.T) {
	alerts := []*alert.Alert{
		{Severity: alert.SeverityCritical, Status: alert.StatusNew},
		{Severity: alert.SeverityCritical, Status: alert.StatusResolved},
		{Severity: alert.SeverityHigh, Status: alert.StatusAcknowledged},
		{Severity: alert.SeverityLow, Status: alert.StatusNew},
		{Severity: alert.SeverityLow, Status: alert.StatusNew},
	}

	got := VulnerabilityStats(alerts)
	want := SeverityStats{Critical: 1, High: 1, Low: 2}
	if got != want {
		t.Errorf("VulnerabilityStats() = %+v, want %+v", got, want)
	}
	if got.Total() != 4 {
		t.Errorf("Total() = %d, want 4", got.Total())
	}
}

func TestRemediationDeadline(t *testing.T) {
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		severity alert.Severity
		days     int
		overdue  bool
	}{
		{alert.SeverityCritical, -8, true},
		{alert.SeverityHigh, -2, true},
		{alert.SeverityMedium, 21, false},
		{alert.SeverityLow, 81, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.severity), func(t *testing.T) {
			a := testutil.NewAlert("a", "t", tt.severity, alert.StatusNew, testutil.Day(2024, 1, 1))
			d, ok := RemediationDeadline(a, now)
			if !ok {
				t.Fatal("expected a deadline")
			}
			if d.DaysRemaining != tt.days || d.Overdue != tt.overdue {
				t.Errorf("got %d days (overdue=%v), want %d (overdue=%v)", d.DaysRemaining, d.Overdue, tt.days, tt.overdue)
			}
		})
	}

	if _, ok := RemediationDeadline(&alert.Alert{Severity: "unknown"}, now); ok {
		t.Error("unknown severity should have no deadline")
	}
}

func TestCVELink(t *testing.T) {
	if got := CVELink("CVE-2024-3094"); got != "https://nvd.nist.gov/vuln/detail/CVE-2024-3094" {
		t.Errorf("CVELink() = %q", got)
	}
	if got := CVELink(""); got != "" {
		t.Errorf("CVELink(\"\") = %q, want empty", got)
	}
}
