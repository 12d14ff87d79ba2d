package client

import (
	"context"
	"fmt"
	"net/url"
)

// NotificationService handles notification-related API calls
type NotificationService struct {
	client *Client
}

// List retrieves the user's notifications, newest first
func (s *NotificationService) List(ctx context.Context) (*NotificationList, error) {
	var list NotificationList
	if err := s.client.doRequest(ctx, "GET", "/api/v1/notifications", nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// MarkRead marks one notification read and returns the new unread count
func (s *NotificationService) MarkRead(ctx context.Context, id string) (int, error) {
	path := fmt.Sprintf("/api/v1/notifications/%s/read", url.PathEscape(id))
	return s.unreadCount(ctx, path)
}

// MarkAllRead marks every notification read and returns the new unread count
func (s *NotificationService) MarkAllRead(ctx context.Context) (int, error) {
	return s.unreadCount(ctx, "/api/v1/notifications/read-all")
}

func (s *NotificationService) unreadCount(ctx context.Context, path string) (int, error) {
	var resp struct {
		UnreadCount int `json:"unreadCount"`
	}
	if err := s.client.doRequest(ctx, "POST", path, nil, &resp); err != nil {
		return 0, err
	}
	return resp.UnreadCount, nil
}
