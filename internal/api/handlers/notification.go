package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hawksec/hawk/internal/api/dto"
	"github.com/hawksec/hawk/internal/domain/notification"
	"github.com/hawksec/hawk/internal/pkg/logger"
	"github.com/hawksec/hawk/internal/pkg/utils"
)

// NotificationHandler serves the signed-in user's notification feed
type NotificationHandler struct {
	logger *logger.Logger
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{logger: log}
}

// List returns the recent notifications, newest first
// @Summary List notifications
// @Tags Notifications
// @Produce json
// @Success 200 {object} dto.NotificationsResponse
// @Security BearerAuth
// @Router /notifications [get]
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	utils.WriteSuccess(w, http.StatusOK, notificationsResponse(s.Notifications.Notifications(), s.Notifications.UnreadCount()))
}

// MarkRead flags one notification as read
// @Summary Mark notification read
// @Tags Notifications
// @Produce json
// @Param id path string true "Notification ID"
// @Success 200 {object} map[string]int "Unread count"
// @Failure 404 {object} utils.ErrorResponse "Notification not found"
// @Security BearerAuth
// @Router /notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	if err := s.Notifications.MarkRead(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err, "Failed to mark notification as read")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, map[string]int{"unreadCount": s.Notifications.UnreadCount()})
}

// MarkAllRead flags every notification as read
// @Summary Mark all notifications read
// @Tags Notifications
// @Produce json
// @Success 200 {object} map[string]int "Unread count"
// @Security BearerAuth
// @Router /notifications/read-all [post]
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}
	if err := s.Notifications.MarkAllRead(r.Context()); err != nil {
		writeError(w, r, err, "Failed to mark notifications as read")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, map[string]int{"unreadCount": s.Notifications.UnreadCount()})
}

func notificationsResponse(items []*notification.Notification, unread int) dto.NotificationsResponse {
	if items == nil {
		items = []*notification.Notification{}
	}
	return dto.NotificationsResponse{Notifications: items, UnreadCount: unread}
}
