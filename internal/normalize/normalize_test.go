package normalize

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hawksec/hawk/internal/domain/alert"
	"github.com/hawksec/hawk/internal/domain/notification"
	"github.com/hawksec/hawk/internal/domain/system"
)

// decode builds a Row the way the gateway does, from a JSON body
func decode(t *testing.T, body string) Row {
	t.Helper()
	var r Row
	require.NoError(t, json.Unmarshal([]byte(body), &r))
	return r
}

func TestParseTime(t *testing.T) {
	want := time.Date(2024, 1, 3, 10, 30, 0, 0, time.UTC)
	tests := []struct {
		in   interface{}
		want time.Time
		ok   bool
	}{
		{"2024-01-03T10:30:00Z", want, true},
		{"2024-01-03T10:30:00.000+00:00", want, true},
		{"2024-01-03T10:30:00.123456", want.Add(123456 * time.Microsecond), true},
		{"2024-01-03 10:30:00+00", want, true},
		{"2024-01-03", time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), true},
		{"yesterday", time.Time{}, false},
		{"", time.Time{}, false},
		{nil, time.Time{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseTime(tt.in)
		assert.Equal(t, tt.ok, ok, "ParseTime(%v)", tt.in)
		if tt.ok {
			assert.True(t, tt.want.Equal(got), "ParseTime(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestAlertMissingOptionalFields(t *testing.T) {
	a := Alert(decode(t, `{"id":"a1","title":"Weak Password Policy","description":"d","severity":"Medium","status":"new","system":"Auth","date":"2024-01-02","cve":null}`))

	assert.Equal(t, "a1", a.ID)
	assert.Equal(t, alert.SeverityMedium, a.Severity)
	assert.Nil(t, a.CVE)
	assert.Nil(t, a.Mitigation)
	assert.Nil(t, a.PatchLink)
	assert.Nil(t, a.Details)
	assert.Nil(t, a.CreatedAt)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), a.Date)
}

func TestAlertKeepsDetails(t *testing.T) {
	a := Alert(decode(t, `{"id":"a1","details":{"exploitAvailable":true,"affectedVersions":["1.0","1.1"],"vendor":{"name":"acme"}}}`))
	require.NotNil(t, a.Details)
	assert.True(t, a.ExploitAvailable())
	assert.Equal(t, []interface{}{"1.0", "1.1"}, a.Details["affectedVersions"])
	assert.Equal(t, map[string]interface{}{"name": "acme"}, a.Details["vendor"])
}

func TestAlertTolerantOfEmptyRow(t *testing.T) {
	a := Alert(Row{})
	assert.NotNil(t, a)
	assert.True(t, a.Date.IsZero())
	assert.False(t, a.Severity.Valid())
}

func TestNotificationMetadata(t *testing.T) {
	n := Notification(decode(t, `{"id":"n1","user_id":"u1","title":"t","content":"c","type":"vulnerability","is_read":false,"created_at":"2024-05-01T10:00:00Z","metadata":{"severity":"critical","cve":"CVE-1","sms_sent":false,"batch":7}}`))

	require.NotNil(t, n.Metadata)
	assert.Equal(t, "critical", n.Metadata.Severity)
	assert.Equal(t, "CVE-1", n.Metadata.CVE)
	require.NotNil(t, n.Metadata.SMSSent)
	assert.False(t, *n.Metadata.SMSSent)
	assert.Nil(t, n.Metadata.EmailSent)
	assert.Equal(t, float64(7), n.Metadata.Extra["batch"])
	assert.Equal(t, notification.TypeVulnerability, n.Type)

	none := Notification(decode(t, `{"id":"n2","metadata":null}`))
	assert.Nil(t, none.Metadata)
}

// Every field the client can edit survives normalize then reverse.
func TestMutationRoundTrip(t *testing.T) {
	t.Run("alert", func(t *testing.T) {
		row := decode(t, `{"id":"a1","title":"x","status":"acknowledged","severity":"high"}`)
		patch := AlertMutation(Alert(row))
		for k, v := range patch {
			assert.Equal(t, row[k], v, k)
		}
	})

	t.Run("notification", func(t *testing.T) {
		for _, read := range []bool{true, false} {
			row := Row{"id": "n1", "is_read": read}
			patch := NotificationMutation(Notification(row))
			assert.Equal(t, row["is_read"], patch["is_read"])
		}
	})

	t.Run("oem source", func(t *testing.T) {
		row := decode(t, `{"id":"o1","user_id":"u1","name":"Cisco","url":"https://cisco.com/psirt","system_type":"network","is_active":true,"created_at":"2024-01-01T00:00:00Z"}`)
		patch := OEMSourceRow(OEMSource(row))
		for k, v := range patch {
			assert.Equal(t, row[k], v, k)
		}
	})

	t.Run("user system", func(t *testing.T) {
		row := decode(t, `{"id":"s1","user_id":"u1","system_name":"Auto Monitor","monitoring_settings":{"autoScanEnabled":true,"scanInterval":6,"criticalOnly":true,"lastScanTime":"2024-03-01T08:00:00Z","theme":"dark"}}`)
		us, err := UserSystem(row)
		require.NoError(t, err)

		out, err := UserSystemRow(us)
		require.NoError(t, err)
		assert.Equal(t, row["user_id"], out["user_id"])
		assert.Equal(t, row["system_name"], out["system_name"])
		assert.Equal(t, row["monitoring_settings"], out["monitoring_settings"])
	})
}

func TestUserSystemAcceptsEncodedDocument(t *testing.T) {
	us, err := UserSystem(Row{"id": "s1", "monitoring_settings": `{"autoScanEnabled":true,"scanInterval":48}`})
	require.NoError(t, err)
	assert.True(t, us.Settings.AutoScanEnabled)
	assert.Equal(t, 48, us.Settings.ScanInterval)

	_, err = UserSystem(Row{"id": "s1", "monitoring_settings": `{broken`})
	assert.Error(t, err)

	empty, err := UserSystem(Row{"id": "s2"})
	require.NoError(t, err)
	assert.Equal(t, 24, empty.Settings.ScanInterval)
}

func TestTrendAndSystem(t *testing.T) {
	p := Trend(decode(t, `{"id":"t1","date":"2024-02-01","critical_count":2,"high_count":"5","medium_count":1}`))
	assert.Equal(t, 2, p.Critical)
	assert.Equal(t, 5, p.High)
	assert.Equal(t, 1, p.Medium)
	assert.Equal(t, 0, p.Low)

	s := System(decode(t, `{"id":"1","name":"Web","status":"Degraded","description":null}`))
	assert.Equal(t, system.StatusDegraded, s.Status)
	assert.Nil(t, s.Description)

	ref := AlertRef(decode(t, `{"system":"Web","severity":"CRITICAL","status":"new"}`))
	assert.Equal(t, alert.SeverityCritical, ref.Severity)
}
