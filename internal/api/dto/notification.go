package dto

import "github.com/hawksec/hawk/internal/domain/notification"

// NotificationsResponse is the user's feed and its unread count
type NotificationsResponse struct {
	Notifications []*notification.Notification `json:"notifications"`
	UnreadCount   int                          `json:"unreadCount"`
}
