package user

import "time"

// Profile is the public profile row of a signed-in user
type Profile struct {
	ID           string     `json:"id"`
	FullName     *string    `json:"full_name,omitempty"`
	Organization *string    `json:"organization,omitempty"`
	Role         *string    `json:"role,omitempty"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

// DisplayName returns the full name, or fallback when it is unset
func (p *Profile) DisplayName(fallback string) string {
	if p == nil || p.FullName == nil || *p.FullName == "" {
		return fallback
	}
	return *p.FullName
}

// Account is who a session belongs to
type Account struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name,omitempty"`
	Profile  *Profile `json:"profile,omitempty"`
}
