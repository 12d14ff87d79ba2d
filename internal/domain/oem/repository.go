package oem

import "context"

// Repository defines the interface for OEM source data access
type Repository interface {
	// List retrieves a user's sources, newest first
	List(ctx context.Context, userID string) ([]*Source, error)

	// Create stores a new source and returns it as saved
	Create(ctx context.Context, userID string, in CreateInput) (*Source, error)

	// Update applies a partial update and returns the saved source
	Update(ctx context.Context, userID, id string, in UpdateInput) (*Source, error)

	// Delete removes a source
	Delete(ctx context.Context, userID, id string) error
}
