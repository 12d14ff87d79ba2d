package system

import "context"

// Repository defines the interface for system data access
type Repository interface {
	// List retrieves every monitored system
	List(ctx context.Context) ([]*System, error)

	// AlertRefs retrieves the system, severity and status of every alert
	AlertRefs(ctx context.Context) ([]AlertRef, error)
}
