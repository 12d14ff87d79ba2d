package settings

import "context"

// Repository defines the interface for per-user settings rows
type Repository interface {
	// Get returns the user's settings row, or nil when none exists yet
	Get(ctx context.Context, userID string) (*UserSystem, error)

	// Save overwrites the whole row, inserting it when it has no id
	Save(ctx context.Context, us *UserSystem) (*UserSystem, error)
}
