package handlers

import (
	"net/http"

	"github.com/hawksec/hawk/internal/api/dto"
	"github.com/hawksec/hawk/internal/domain/settings"
	"github.com/hawksec/hawk/internal/pkg/logger"
	"github.com/hawksec/hawk/internal/pkg/utils"
)

// SettingsHandler serves notification preferences, auto monitor settings
// and notification rules
type SettingsHandler struct {
	logger *logger.Logger
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(log *logger.Logger) *SettingsHandler {
	return &SettingsHandler{logger: log}
}

// GetNotifications returns the delivery preferences, creating the default
// row on first use
// @Summary Get notification preferences
// @Tags Settings
// @Produce json
// @Success 200 {object} settings.NotificationPreferences
// @Security BearerAuth
// @Router /settings/notifications [get]
func (h *SettingsHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	prefs, err := s.Settings.Notifications(r.Context(), s.Account())
	if err != nil {
		writeError(w, r, err, "Failed to load notification settings")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, prefs)
}

// SaveNotifications stores the delivery preferences
// @Summary Save notification preferences
// @Tags Settings
// @Accept json
// @Produce json
// @Param request body settings.NotificationPreferences true "Preferences"
// @Success 200 {object} settings.NotificationPreferences
// @Failure 400 {object} utils.ErrorResponse "Validation error"
// @Security BearerAuth
// @Router /settings/notifications [put]
func (h *SettingsHandler) SaveNotifications(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	var prefs settings.NotificationPreferences
	if appErr := decodeJSON(r, &prefs); appErr != nil {
		utils.WriteError(w, appErr)
		return
	}
	saved, err := s.Settings.SaveNotifications(r.Context(), s.Account(), prefs)
	if err != nil {
		writeError(w, r, err, "Failed to save notification settings")
		return
	}
	utils.WriteSuccessWithMessage(w, http.StatusOK, "Notification settings saved", saved)
}

// TestNotification sends a test message. Without a body the saved
// preferences are used.
// @Summary Send a test notification
// @Tags Settings
// @Accept json
// @Produce json
// @Param request body settings.NotificationPreferences false "Preferences to test"
// @Success 200 {object} services.DeliveryStatus
// @Failure 502 {object} utils.ErrorResponse "Delivery function failed"
// @Security BearerAuth
// @Router /settings/notifications/test [post]
func (h *SettingsHandler) TestNotification(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}

	var prefs settings.NotificationPreferences
	if r.ContentLength != 0 {
		if appErr := decodeJSON(r, &prefs); appErr != nil {
			utils.WriteError(w, appErr)
			return
		}
	} else {
		saved, err := s.Settings.Notifications(r.Context(), s.Account())
		if err != nil {
			writeError(w, r, err, "Failed to load notification settings")
			return
		}
		prefs = saved
	}

	status, err := s.Settings.TestNotification(r.Context(), s.Account(), prefs)
	if err != nil {
		writeError(w, r, err, "Failed to send test notification")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, status)
}

// GetMonitoring returns the auto monitor settings with the next scan time
// @Summary Get auto monitor settings
// @Tags Settings
// @Produce json
// @Success 200 {object} services.MonitoringState
// @Security BearerAuth
// @Router /settings/monitoring [get]
func (h *SettingsHandler) GetMonitoring(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	state, err := s.Settings.Monitoring(r.Context(), s.User.ID)
	if err != nil {
		writeError(w, r, err, "Failed to load monitoring settings")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, state)
}

// SaveMonitoring stores the auto monitor settings
// @Summary Save auto monitor settings
// @Tags Settings
// @Accept json
// @Produce json
// @Param request body dto.MonitoringRequest true "Settings"
// @Success 200 {object} services.MonitoringState
// @Failure 400 {object} utils.ErrorResponse "Invalid interval"
// @Security BearerAuth
// @Router /settings/monitoring [put]
func (h *SettingsHandler) SaveMonitoring(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	var req dto.MonitoringRequest
	if appErr := decodeAndValidate(r, &req); appErr != nil {
		utils.WriteError(w, appErr)
		return
	}
	state, err := s.Settings.SaveMonitoring(r.Context(), s.User.ID, settings.Monitoring{
		AutoScanEnabled: req.AutoScanEnabled,
		ScanInterval:    req.ScanInterval,
		CriticalOnly:    req.CriticalOnly,
	})
	if err != nil {
		writeError(w, r, err, "Failed to save monitoring settings")
		return
	}
	utils.WriteSuccessWithMessage(w, http.StatusOK, "Monitoring settings saved", state)
}

// GetRules returns the notification rules
// @Summary Get notification rules
// @Tags Settings
// @Produce json
// @Success 200 {array} settings.NotificationRule
// @Security BearerAuth
// @Router /settings/rules [get]
func (h *SettingsHandler) GetRules(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	rules, err := s.Settings.Rules(r.Context(), s.User.ID)
	if err != nil {
		writeError(w, r, err, "Failed to load notification rules")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, rules)
}

// SaveRules replaces the notification rules
// @Summary Save notification rules
// @Tags Settings
// @Accept json
// @Produce json
// @Param request body []settings.NotificationRule true "Rules"
// @Success 200 {array} settings.NotificationRule
// @Failure 400 {object} utils.ErrorResponse "Validation error"
// @Security BearerAuth
// @Router /settings/rules [put]
func (h *SettingsHandler) SaveRules(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	var rules []settings.NotificationRule
	if appErr := decodeJSON(r, &rules); appErr != nil {
		utils.WriteError(w, appErr)
		return
	}
	saved, err := s.Settings.SaveRules(r.Context(), s.User.ID, rules)
	if err != nil {
		writeError(w, r, err, "Failed to save notification rules")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, saved)
}
