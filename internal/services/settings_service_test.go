package services

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hawksec/hawk/internal/domain/notification"
	"github.com/hawksec/hawk/internal/domain/settings"
	apperrors "github.com/hawksec/hawk/internal/pkg/errors"
	"github.com/hawksec/hawk/internal/pkg/logger"
	"github.com/hawksec/hawk/internal/testutil"
)

var testAccount = Account{ID: "user-1", Email: "ops@example.com"}

func newSettingsService() (*SettingsService, *testutil.MockSettingsRepository, *testutil.MockNotificationRepository, *testutil.MockInvoker) {
	repo := testutil.NewMockSettingsRepository()
	notes := testutil.NewMockNotificationRepository()
	invoker := testutil.NewMockInvoker()
	s := NewSettingsService(repo, notes, invoker, logger.NewNop())
	s.now = func() time.Time { return time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC) }
	ids := 0
	s.newID = func() string {
		ids++
		return "rule-" + string(rune('0'+ids))
	}
	return s, repo, notes, invoker
}

// seedRow stores a raw settings document for the test user
func seedRow(t *testing.T, repo *testutil.MockSettingsRepository, raw string) {
	t.Helper()
	var doc settings.Document
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	_, err := repo.Save(context.Background(), &settings.UserSystem{
		ID:         "row-1",
		UserID:     testAccount.ID,
		SystemName: settings.MonitorSystemName,
		Settings:   doc,
	})
	require.NoError(t, err)
}

func TestSettingsService_NotificationsCreatesDefaults(t *testing.T) {
	s, repo, _, _ := newSettingsService()

	prefs, err := s.Notifications(context.Background(), testAccount)
	require.NoError(t, err)

	assert.Equal(t, settings.DefaultPreferences(testAccount.Email), prefs)
	row := repo.Rows[testAccount.ID]
	require.NotNil(t, row)
	assert.Equal(t, settings.DefaultSystemName, row.SystemName)
	require.NotNil(t, row.Settings.NotificationPreferences)
	assert.Equal(t, "critical", row.Settings.NotificationPreferences.AlertLevel)
}

func TestSettingsService_SaveNotificationsPreservesOtherKeys(t *testing.T) {
	s, repo, _, _ := newSettingsService()
	seedRow(t, repo, `{"autoScanEnabled": true, "scanInterval": 6, "dashboardLayout": "compact"}`)

	saved, err := s.SaveNotifications(context.Background(), testAccount, settings.NotificationPreferences{
		EmailEnabled: true,
		SMSEnabled:   true,
		EmailAddress: "soc@example.com",
		PhoneNumber:  "+14155550123",
		AlertLevel:   "high",
	})
	require.NoError(t, err)
	assert.True(t, saved.EmailVerified)

	row := repo.Rows[testAccount.ID]
	assert.Equal(t, "row-1", row.ID)
	assert.True(t, row.Settings.AutoScanEnabled)
	assert.Equal(t, 6, row.Settings.ScanInterval)
	assert.Equal(t, "compact", row.Settings.Extra["dashboardLayout"])
	assert.Equal(t, "+14155550123", row.Settings.NotificationPreferences.PhoneNumber)
}

func TestSettingsService_SaveNotificationsValidation(t *testing.T) {
	tests := []struct {
		name    string
		prefs   settings.NotificationPreferences
		wantErr bool
	}{
		{"empty contact details allowed", settings.NotificationPreferences{}, false},
		{"valid email and phone", settings.NotificationPreferences{EmailAddress: "a@b.io", PhoneNumber: "+447911123456"}, false},
		{"phone without plus", settings.NotificationPreferences{PhoneNumber: "14155550123"}, false},
		{"invalid email", settings.NotificationPreferences{EmailAddress: "not-an-email"}, true},
		{"phone with letters", settings.NotificationPreferences{PhoneNumber: "+1415abc"}, true},
		{"phone starting with zero", settings.NotificationPreferences{PhoneNumber: "+0123456"}, true},
		{"unknown alert level", settings.NotificationPreferences{AlertLevel: "urgent"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, repo, _, _ := newSettingsService()
			_, err := s.SaveNotifications(context.Background(), testAccount, tt.prefs)
			if tt.wantErr {
				assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation), "got %v", err)
				assert.Zero(t, repo.Saves)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSettingsService_Monitoring(t *testing.T) {
	s, repo, _, _ := newSettingsService()
	ctx := context.Background()

	state, err := s.Monitoring(ctx, testAccount.ID)
	require.NoError(t, err)
	assert.False(t, state.AutoScanEnabled)
	assert.Equal(t, settings.DefaultScanInterval, state.ScanInterval)
	assert.Nil(t, state.NextScan)

	_, err = s.SaveMonitoring(ctx, testAccount.ID, settings.Monitoring{AutoScanEnabled: true, ScanInterval: 7})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))

	seedRow(t, repo, `{"lastScanTime": "2024-06-01T06:00:00Z", "notificationPreferences": {"emailAddress": "x@y.io"}}`)
	state, err = s.SaveMonitoring(ctx, testAccount.ID, settings.Monitoring{AutoScanEnabled: true, ScanInterval: 12, CriticalOnly: true})
	require.NoError(t, err)
	require.NotNil(t, state.NextScan)
	assert.Equal(t, time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC), state.NextScan.UTC())

	row := repo.Rows[testAccount.ID]
	assert.True(t, row.Settings.CriticalOnly)
	require.NotNil(t, row.Settings.NotificationPreferences)
	assert.Equal(t, "x@y.io", row.Settings.NotificationPreferences.EmailAddress)
}

func TestSettingsService_MarkScanned(t *testing.T) {
	s, repo, _, _ := newSettingsService()
	ctx := context.Background()
	at := time.Date(2024, 6, 2, 8, 30, 0, 0, time.UTC)

	require.NoError(t, s.MarkScanned(ctx, testAccount.ID, at))

	row := repo.Rows[testAccount.ID]
	assert.Equal(t, settings.MonitorSystemName, row.SystemName)
	require.NotNil(t, row.Settings.LastScanTime)
	assert.True(t, at.Equal(*row.Settings.LastScanTime))
}

func TestSettingsService_Rules(t *testing.T) {
	s, _, _, _ := newSettingsService()
	ctx := context.Background()

	rules, err := s.Rules(ctx, testAccount.ID)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "Critical vulnerabilities", rules[0].Name)

	saved, err := s.SaveRules(ctx, testAccount.ID, []settings.NotificationRule{
		{Name: "Database issues", Condition: "system", System: "Customer Database", Enabled: true, Actions: []string{"sms"}},
		{ID: "keep-me", Name: "High", Condition: "severity", Severity: "high", Actions: []string{"email"}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, saved[0].ID)
	assert.Equal(t, "keep-me", saved[1].ID)

	rules, err = s.Rules(ctx, testAccount.ID)
	require.NoError(t, err)
	assert.Equal(t, saved, rules)

	_, err = s.SaveRules(ctx, testAccount.ID, []settings.NotificationRule{{Name: "Bad", Condition: "weather"}})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))
}

func TestSettingsService_TestNotification(t *testing.T) {
	s, _, notes, invoker := newSettingsService()
	invoker.On(FnSendNotifications, func(map[string]interface{}) (interface{}, error) {
		return map[string]interface{}{"email_sent": true, "sms_sent": false, "sms_error": "SMS not enabled"}, nil
	})

	status, err := s.TestNotification(context.Background(), testAccount, settings.NotificationPreferences{
		EmailEnabled: true,
		EmailAddress: "ops@example.com",
		PhoneNumber:  "+14155550123",
	})
	require.NoError(t, err)
	assert.Equal(t, DeliveryStatus{EmailSent: true, SMSError: "SMS not enabled"}, *status)

	require.Len(t, notes.Notifications, 1)
	created := notes.Notifications[0]
	assert.Equal(t, "Test Notification", created.Title)
	assert.Equal(t, notification.TypeTest, created.Type)
	assert.False(t, created.IsRead)
	assert.Equal(t, true, created.Metadata.Extra["test"])

	calls := invoker.CallsTo(FnSendNotifications)
	require.Len(t, calls, 1)
	body := calls[0].Body
	assert.Equal(t, "test-notification", body["action"])
	assert.Equal(t, "ops@example.com", body["email"])
	assert.NotContains(t, body, "phone", "sms is disabled")
	assert.Equal(t, "test", body["scanType"])
	results, _ := body["scanResults"].([]interface{})
	require.Len(t, results, 1)
	assert.Equal(t, "TEST-2023-0001", results[0].(map[string]interface{})["cve"])
}
