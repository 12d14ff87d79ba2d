package supabase

import (
	"context"
	"fmt"

	"github.com/hawksec/hawk/internal/domain/notification"
	"github.com/hawksec/hawk/internal/gateway"
	"github.com/hawksec/hawk/internal/normalize"
)

const tableNotifications = "notifications"

type NotificationRepository struct {
	client *gateway.Client
}

func NewNotificationRepository(client *gateway.Client) notification.Repository {
	return &NotificationRepository{client: client}
}

func (r *NotificationRepository) ListRecent(ctx context.Context, userID string, limit int) ([]*notification.Notification, error) {
	if limit <= 0 {
		limit = notification.RecentLimit
	}
	var rows []gateway.Row
	q := gateway.NewQuery().
		Eq("user_id", userID).
		Order("created_at", true).
		Limit(limit)
	if err := r.client.Fetch(ctx, tableNotifications, q, &rows); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return normalize.Notifications(rows), nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, userID, id string) error {
	patch := normalize.NotificationMutation(&notification.Notification{IsRead: true})
	q := gateway.NewQuery().Eq("id", id).Eq("user_id", userID)
	if err := r.client.Update(ctx, tableNotifications, q, patch, nil); err != nil {
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}
	return nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID string) error {
	patch := normalize.NotificationMutation(&notification.Notification{IsRead: true})
	q := gateway.NewQuery().Eq("user_id", userID).Eq("is_read", false)
	if err := r.client.Update(ctx, tableNotifications, q, patch, nil); err != nil {
		return fmt.Errorf("failed to mark all notifications as read: %w", err)
	}
	return nil
}

func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) (*notification.Notification, error) {
	var rows []gateway.Row
	if err := r.client.Insert(ctx, tableNotifications, []gateway.Row{normalize.NotificationRow(n)}, &rows); err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}
	if len(rows) == 0 {
		return n, nil
	}
	return normalize.Notification(rows[0]), nil
}

func (r *NotificationRepository) Watch(ctx context.Context, userID string) (notification.Stream, error) {
	sub, err := r.client.Subscribe(ctx, gateway.Filter{
		Table:  tableNotifications,
		Event:  gateway.ChangeInsert,
		Filter: "user_id=eq." + userID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to notifications: %w", err)
	}
	return newRelay(sub, func(ev gateway.ChangeEvent) (*notification.Notification, bool) {
		if ev.Type != gateway.ChangeInsert || len(ev.Record) == 0 {
			return nil, false
		}
		return normalize.Notification(ev.Record), true
	}), nil
}
