package alert

import "context"

// ChangeType is the kind of change pushed for an alert row
type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// Change is one pushed alert change. Alert is nil when the row could not
// be decoded (for example on delete events that only carry the old id).
type Change struct {
	Type  ChangeType
	ID    string
	Alert *Alert
}

// Stream is a live feed of alert changes
type Stream interface {
	// Events is closed when the stream ends
	Events() <-chan Change
	Close() error
}

// Repository defines the interface for alert data access
type Repository interface {
	// List retrieves every alert, newest first
	List(ctx context.Context) ([]*Alert, error)

	// UpdateStatus sets the workflow status of one alert
	UpdateStatus(ctx context.Context, id string, status Status) error

	// Watch opens a live feed of alert changes
	Watch(ctx context.Context) (Stream, error)
}
