package settings

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentPreservesUnknownKeys(t *testing.T) {
	raw := `{
		"autoScanEnabled": true,
		"scanInterval": 12,
		"criticalOnly": false,
		"lastScanTime": "2024-03-01T08:00:00.000Z",
		"notificationPreferences": {"emailEnabled": true, "emailAddress": "a@b.co"},
		"dashboardLayout": {"compact": true}
	}`

	var doc Document
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))

	assert.True(t, doc.AutoScanEnabled)
	assert.Equal(t, 12, doc.ScanInterval)
	require.NotNil(t, doc.LastScanTime)
	require.NotNil(t, doc.NotificationPreferences)
	assert.Equal(t, "a@b.co", doc.NotificationPreferences.EmailAddress)
	assert.Equal(t, map[string]interface{}{"compact": true}, doc.Extra["dashboardLayout"])

	out, err := json.Marshal(doc)
	require.NoError(t, err)

	var back map[string]interface{}
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Contains(t, back, "dashboardLayout")
	assert.Equal(t, float64(12), back["scanInterval"])
	assert.Equal(t, "2024-03-01T08:00:00Z", back["lastScanTime"])
}

func TestDocumentDefaults(t *testing.T) {
	var doc Document
	require.NoError(t, json.Unmarshal([]byte(`{}`), &doc))
	assert.False(t, doc.AutoScanEnabled)
	assert.Equal(t, DefaultScanInterval, doc.ScanInterval)
	assert.False(t, doc.CriticalOnly)
	assert.Nil(t, doc.LastScanTime)
	assert.Nil(t, doc.NotificationPreferences)
}

func TestMonitoringSchedule(t *testing.T) {
	last := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	m := Monitoring{AutoScanEnabled: true, ScanInterval: 6, LastScanTime: &last}

	next := m.NextScan()
	require.NotNil(t, next)
	assert.Equal(t, last.Add(6*time.Hour), *next)

	assert.False(t, m.Due(last.Add(5*time.Hour)))
	assert.True(t, m.Due(last.Add(6*time.Hour)))

	m.LastScanTime = nil
	assert.Nil(t, m.NextScan())
	assert.True(t, m.Due(last), "never scanned means due")

	m.AutoScanEnabled = false
	assert.False(t, m.Due(last))
}

func TestMonitoringValidate(t *testing.T) {
	for _, h := range ValidIntervals {
		assert.NoError(t, Monitoring{ScanInterval: h}.Validate())
	}
	assert.Error(t, Monitoring{ScanInterval: 3}.Validate())
}

func TestPreferencesDefaults(t *testing.T) {
	d := DefaultPreferences("me@x.io")
	assert.True(t, d.EmailEnabled)
	assert.False(t, d.SMSEnabled)
	assert.Equal(t, "critical", d.AlertLevel)
	assert.Equal(t, "immediate", d.Frequency)
	assert.Equal(t, "any", d.Timeframe)

	p := NotificationPreferences{SMSEnabled: true, PhoneNumber: "+15551234567"}.WithDefaults("me@x.io")
	assert.Equal(t, "me@x.io", p.EmailAddress)
	assert.Equal(t, "+15551234567", p.PhoneNumber)
	assert.True(t, p.SMSEnabled)
}

func TestDefaultRules(t *testing.T) {
	rules := DefaultRules(func() string { return "r1" })
	require.Len(t, rules, 1)
	assert.Equal(t, "Critical vulnerabilities", rules[0].Name)
	assert.Equal(t, []string{"email", "notification"}, rules[0].Actions)
}
