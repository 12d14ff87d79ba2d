package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hawksec/hawk/internal/domain/notification"
	"github.com/hawksec/hawk/internal/domain/settings"
	apperrors "github.com/hawksec/hawk/internal/pkg/errors"
	"github.com/hawksec/hawk/internal/pkg/logger"
	"github.com/hawksec/hawk/internal/pkg/validator"
)

// Test notification content
const (
	testNotificationTitle   = "Test Notification"
	testNotificationContent = "This is a test notification from HAWK Security."
)

// Account identifies whose settings are read and written
type Account struct {
	ID    string
	Email string
}

// MonitoringState is the auto monitor settings with the derived next scan
type MonitoringState struct {
	settings.Monitoring
	NextScan *time.Time `json:"nextScanTime"`
}

// DeliveryStatus reports what a test notification delivered
type DeliveryStatus struct {
	EmailSent  bool   `json:"email_sent"`
	SMSSent    bool   `json:"sms_sent"`
	EmailError string `json:"email_error,omitempty"`
	SMSError   string `json:"sms_error,omitempty"`
}

// SettingsService reads and writes the settings document of a user.
// Every save is a read-modify-write of the whole document so the keys
// owned by other screens survive.
type SettingsService struct {
	repo          settings.Repository
	notifications notification.Repository
	functions     FunctionInvoker
	logger        *logger.Logger
	now           func() time.Time
	newID         func() string
}

// NewSettingsService creates a settings service
func NewSettingsService(repo settings.Repository, notifications notification.Repository, functions FunctionInvoker, log *logger.Logger) *SettingsService {
	return &SettingsService{
		repo:          repo,
		notifications: notifications,
		functions:     functions,
		logger:        log,
		now:           time.Now,
		newID:         func() string { return uuid.New().String() },
	}
}

// Notifications returns the delivery preferences of the user. A user
// without a settings row gets one holding the defaults.
func (s *SettingsService) Notifications(ctx context.Context, acct Account) (settings.NotificationPreferences, error) {
	us, err := s.repo.Get(ctx, acct.ID)
	if err != nil {
		s.logger.WithFields(map[string]interface{}{"user_id": acct.ID}).ErrorWithErr(err, "Failed to load notification settings")
		return settings.NotificationPreferences{}, err
	}

	if us == nil {
		prefs := settings.DefaultPreferences(acct.Email)
		us = &settings.UserSystem{
			UserID:     acct.ID,
			SystemName: settings.DefaultSystemName,
			Settings: settings.Document{
				Monitoring:              settings.DefaultMonitoring(),
				NotificationPreferences: &prefs,
			},
		}
		if _, err := s.repo.Save(ctx, us); err != nil {
			s.logger.WithFields(map[string]interface{}{"user_id": acct.ID}).ErrorWithErr(err, "Failed to create default notification settings")
			return settings.NotificationPreferences{}, err
		}
		return prefs, nil
	}

	if us.Settings.NotificationPreferences == nil {
		return settings.DefaultPreferences(acct.Email), nil
	}
	return us.Settings.NotificationPreferences.WithDefaults(acct.Email), nil
}

// SaveNotifications validates and stores the delivery preferences
func (s *SettingsService) SaveNotifications(ctx context.Context, acct Account, prefs settings.NotificationPreferences) (settings.NotificationPreferences, error) {
	if err := validator.Check(prefs); err != nil {
		return settings.NotificationPreferences{}, apperrors.ValidationError("Invalid notification settings", err)
	}
	prefs.EmailVerified = true

	err := s.update(ctx, acct.ID, settings.DefaultSystemName, func(doc *settings.Document) {
		doc.NotificationPreferences = &prefs
	})
	if err != nil {
		return settings.NotificationPreferences{}, err
	}

	s.logger.WithFields(map[string]interface{}{"user_id": acct.ID}).Info("Notification settings saved")
	return prefs, nil
}

// Monitoring returns the auto monitor settings of the user
func (s *SettingsService) Monitoring(ctx context.Context, userID string) (MonitoringState, error) {
	us, err := s.repo.Get(ctx, userID)
	if err != nil {
		s.logger.WithFields(map[string]interface{}{"user_id": userID}).ErrorWithErr(err, "Failed to load monitoring settings")
		return MonitoringState{}, err
	}
	m := settings.DefaultMonitoring()
	if us != nil {
		m = us.Settings.Monitoring
	}
	return MonitoringState{Monitoring: m, NextScan: m.NextScan()}, nil
}

// SaveMonitoring stores the auto monitor switches. LastScanTime is kept
// from the stored document.
func (s *SettingsService) SaveMonitoring(ctx context.Context, userID string, m settings.Monitoring) (MonitoringState, error) {
	if err := m.Validate(); err != nil {
		return MonitoringState{}, apperrors.ValidationError("Invalid monitoring settings", err.Error())
	}

	var saved settings.Monitoring
	err := s.update(ctx, userID, settings.MonitorSystemName, func(doc *settings.Document) {
		doc.AutoScanEnabled = m.AutoScanEnabled
		doc.ScanInterval = m.ScanInterval
		doc.CriticalOnly = m.CriticalOnly
		saved = doc.Monitoring
	})
	if err != nil {
		return MonitoringState{}, err
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id":       userID,
		"auto_scan":     saved.AutoScanEnabled,
		"scan_interval": saved.ScanInterval,
	}).Info("Monitoring settings saved")
	return MonitoringState{Monitoring: saved, NextScan: saved.NextScan()}, nil
}

// MarkScanned records that an auto scan ran at t
func (s *SettingsService) MarkScanned(ctx context.Context, userID string, t time.Time) error {
	return s.update(ctx, userID, settings.MonitorSystemName, func(doc *settings.Document) {
		ts := t.UTC()
		doc.LastScanTime = &ts
	})
}

// Rules returns the notification rules, or the default rule set when the
// user never saved any.
func (s *SettingsService) Rules(ctx context.Context, userID string) ([]settings.NotificationRule, error) {
	us, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if us == nil || us.Settings.NotificationRules == nil {
		return settings.DefaultRules(s.newID), nil
	}
	return us.Settings.NotificationRules, nil
}

// SaveRules validates and stores the rule set. Rules without an id get one.
func (s *SettingsService) SaveRules(ctx context.Context, userID string, rules []settings.NotificationRule) ([]settings.NotificationRule, error) {
	out := make([]settings.NotificationRule, len(rules))
	for i, r := range rules {
		if err := validator.Check(r); err != nil {
			return nil, apperrors.ValidationError("Invalid notification rule", err)
		}
		if r.ID == "" {
			r.ID = s.newID()
		}
		if r.Actions == nil {
			r.Actions = []string{}
		}
		out[i] = r
	}

	err := s.update(ctx, userID, settings.DefaultSystemName, func(doc *settings.Document) {
		doc.NotificationRules = out
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// TestNotification records an in-app test notification and asks the
// delivery function to send a test message over the enabled channels.
func (s *SettingsService) TestNotification(ctx context.Context, acct Account, prefs settings.NotificationPreferences) (*DeliveryStatus, error) {
	if err := validator.Check(prefs); err != nil {
		return nil, apperrors.ValidationError("Invalid notification settings", err)
	}
	log := s.logger.WithFields(map[string]interface{}{"user_id": acct.ID})

	n := &notification.Notification{
		UserID:  acct.ID,
		Title:   testNotificationTitle,
		Content: testNotificationContent,
		Type:    notification.TypeTest,
		Metadata: &notification.Metadata{
			Extra: map[string]interface{}{
				"test":      true,
				"timestamp": s.now().UTC().Format(time.RFC3339),
			},
		},
	}
	if _, err := s.notifications.Create(ctx, n); err != nil {
		log.ErrorWithErr(err, "Failed to create test notification")
		return nil, err
	}

	body := map[string]interface{}{
		"userId":   acct.ID,
		"action":   "test-notification",
		"scanType": "test",
		"severity": "critical",
		"scanResults": []map[string]interface{}{{
			"severity":    "critical",
			"title":       "Test Vulnerability",
			"description": "This is a test notification to verify your notification settings.",
			"system":      "Test System",
			"cve":         "TEST-2023-0001",
		}},
	}
	if prefs.EmailEnabled {
		body["email"] = prefs.EmailAddress
	}
	if prefs.SMSEnabled {
		body["phone"] = prefs.PhoneNumber
	}

	var status DeliveryStatus
	if err := s.functions.Invoke(ctx, FnSendNotifications, body, &status); err != nil {
		log.ErrorWithErr(err, "Failed to send test notification")
		return nil, err
	}

	log.WithFields(map[string]interface{}{
		"email_sent": status.EmailSent,
		"sms_sent":   status.SMSSent,
	}).Info("Test notification sent")
	return &status, nil
}

// update reads the user's row, applies fn to its document and writes the
// whole row back, creating it named systemName when missing.
func (s *SettingsService) update(ctx context.Context, userID, systemName string, fn func(*settings.Document)) error {
	log := s.logger.WithFields(map[string]interface{}{"user_id": userID})

	us, err := s.repo.Get(ctx, userID)
	if err != nil {
		log.ErrorWithErr(err, "Failed to load settings")
		return err
	}
	if us == nil {
		us = &settings.UserSystem{
			UserID:     userID,
			SystemName: systemName,
			Settings:   settings.Document{Monitoring: settings.DefaultMonitoring()},
		}
	}

	fn(&us.Settings)

	if _, err := s.repo.Save(ctx, us); err != nil {
		log.ErrorWithErr(err, "Failed to save settings")
		return err
	}
	return nil
}
