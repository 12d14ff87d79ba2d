package user

import "context"

// Repository defines the interface for profile data access
type Repository interface {
	// GetProfile retrieves a profile by user id, nil when none exists
	GetProfile(ctx context.Context, id string) (*Profile, error)
}
