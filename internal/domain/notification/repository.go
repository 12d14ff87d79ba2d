package notification

import "context"

// Stream is a live feed of notifications inserted for one user, in the
// order the backend emitted them.
type Stream interface {
	// Events is closed when the stream ends
	Events() <-chan *Notification
	Close() error
}

// Repository defines the notification repository interface
type Repository interface {
	// ListRecent returns the newest notifications of a user, newest first
	ListRecent(ctx context.Context, userID string, limit int) ([]*Notification, error)

	// MarkRead sets the read flag of one notification
	MarkRead(ctx context.Context, userID, id string) error

	// MarkAllRead sets the read flag of every unread notification of a user
	MarkAllRead(ctx context.Context, userID string) error

	// Create inserts a notification for its user
	Create(ctx context.Context, n *Notification) (*Notification, error)

	// Watch opens a live feed of inserted notifications
	Watch(ctx context.Context, userID string) (Stream, error)
}
