package client

import (
	"context"
	"time"
)

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	FullName        string `json:"fullName"`
}

// AuthResponse is returned by login, registration and refresh
type AuthResponse struct {
	AccessToken          string     `json:"accessToken,omitempty"`
	RefreshToken         string     `json:"refreshToken,omitempty"`
	ExpiresAt            *time.Time `json:"expiresAt,omitempty"`
	User                 *User      `json:"user"`
	ConfirmationRequired bool       `json:"confirmationRequired,omitempty"`
}

// Login authenticates with email and password
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	req := LoginRequest{
		Email:    email,
		Password: password,
	}

	var resp AuthResponse
	if err := c.doRequest(ctx, "POST", "/api/v1/auth/login", req, &resp); err != nil {
		return nil, err
	}

	// Automatically set the token for future requests
	if resp.AccessToken != "" {
		c.SetToken(resp.AccessToken)
	}

	return &resp, nil
}

// Register creates a new account. When the backend requires email
// confirmation no token is returned and ConfirmationRequired is set.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if req.ConfirmPassword == "" {
		req.ConfirmPassword = req.Password
	}

	var resp AuthResponse
	if err := c.doRequest(ctx, "POST", "/api/v1/auth/register", req, &resp); err != nil {
		return nil, err
	}

	if resp.AccessToken != "" {
		c.SetToken(resp.AccessToken)
	}

	return &resp, nil
}

// Refresh exchanges a refresh token for a new token pair
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	body := map[string]string{"refreshToken": refreshToken}

	var resp AuthResponse
	if err := c.doRequest(ctx, "POST", "/api/v1/auth/refresh", body, &resp); err != nil {
		return nil, err
	}

	if resp.AccessToken != "" {
		c.SetToken(resp.AccessToken)
	}

	return &resp, nil
}

// Me retrieves the signed-in user
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.doRequest(ctx, "GET", "/api/v1/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout ends the server session and clears the token
func (c *Client) Logout(ctx context.Context) error {
	err := c.doRequest(ctx, "POST", "/api/v1/auth/logout", nil, nil)
	c.SetToken("")
	return err
}
