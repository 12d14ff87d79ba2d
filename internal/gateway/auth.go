package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// expirySkew treats a token as expired slightly before its deadline so a
// request does not race the expiry.
const expirySkew = 30 * time.Second

// User is the authenticated account as reported by the backend
type User struct {
	ID           string                 `json:"id"`
	Email        string                 `json:"email"`
	UserMetadata map[string]interface{} `json:"user_metadata,omitempty"`
}

// FullName returns the name stored at sign-up, if any
func (u User) FullName() string {
	if name, ok := u.UserMetadata["full_name"].(string); ok {
		return name
	}
	return ""
}

// Session is a signed-in user's token pair
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// Active reports whether the session carries an access token. Sign-up
// returns an inactive session while email confirmation is pending.
func (s *Session) Active() bool {
	return s != nil && s.AccessToken != ""
}

// Expiry returns the access token deadline, or zero when unknown
func (s *Session) Expiry() time.Time {
	if s == nil || s.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.Unix(s.ExpiresAt, 0)
}

// Expired reports whether the access token is past (or about to pass) its deadline
func (s *Session) Expired(now time.Time) bool {
	exp := s.Expiry()
	return !exp.IsZero() && now.Add(expirySkew).After(exp)
}

// authErrorBody covers the error shapes of the auth endpoints
type authErrorBody struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorCode        string `json:"error_code"`
}

func (c *Client) doAuth(ctx context.Context, method, endpoint string, query url.Values, body interface{}, dest interface{}) error {
	resp, err := c.send(ctx, request{
		kind:   "auth",
		target: endpoint,
		method: method,
		path:   "/auth/v1/" + endpoint,
		query:  query,
		body:   body,
	})
	if err != nil {
		return err
	}

	if resp.status >= 400 {
		var eb authErrorBody
		_ = json.Unmarshal(resp.body, &eb)
		msg := firstNonEmpty(eb.ErrorDescription, eb.Msg, eb.Message, eb.Error, strings.TrimSpace(string(resp.body)))
		if resp.status >= 500 {
			return &APIError{StatusCode: resp.status, Code: eb.ErrorCode, Message: msg}
		}
		return &AuthError{StatusCode: resp.status, Message: msg}
	}

	if dest != nil && len(resp.body) > 0 {
		if err := json.Unmarshal(resp.body, dest); err != nil {
			return fmt.Errorf("failed to parse auth response: %w", err)
		}
	}
	return nil
}

func (s *Session) fillExpiry(now time.Time) {
	if s.ExpiresAt == 0 && s.ExpiresIn > 0 {
		s.ExpiresAt = now.Add(time.Duration(s.ExpiresIn) * time.Second).Unix()
	}
}

// SignIn exchanges email and password for a session
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	var s Session
	q := url.Values{"grant_type": {"password"}}
	body := map[string]string{"email": email, "password": password}
	if err := c.doAuth(ctx, http.MethodPost, "token", q, body, &s); err != nil {
		return nil, err
	}
	s.fillExpiry(time.Now())
	return &s, nil
}

// SignUp registers a new account. When the backend requires email
// confirmation the returned session is not Active and only carries the user.
func (c *Client) SignUp(ctx context.Context, email, password, fullName string) (*Session, error) {
	body := map[string]interface{}{
		"email":    email,
		"password": password,
		"data":     map[string]string{"full_name": fullName},
	}

	var raw json.RawMessage
	if err := c.doAuth(ctx, http.MethodPost, "signup", nil, body, &raw); err != nil {
		return nil, err
	}

	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("failed to parse sign-up response: %w", err)
	}
	if s.AccessToken == "" {
		// confirmation pending: the body is the bare user
		var u User
		if err := json.Unmarshal(raw, &u); err != nil {
			return nil, fmt.Errorf("failed to parse sign-up user: %w", err)
		}
		s.User = u
	}
	s.fillExpiry(time.Now())
	return &s, nil
}

// Refresh exchanges a refresh token for a new session
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, ErrNoSession
	}
	var s Session
	q := url.Values{"grant_type": {"refresh_token"}}
	body := map[string]string{"refresh_token": refreshToken}
	if err := c.doAuth(ctx, http.MethodPost, "token", q, body, &s); err != nil {
		return nil, err
	}
	s.fillExpiry(time.Now())
	return &s, nil
}

// SignOut revokes the bound session on the backend
func (c *Client) SignOut(ctx context.Context) error {
	if !c.session.Active() {
		return ErrNoSession
	}
	return c.doAuth(ctx, http.MethodPost, "logout", nil, nil, nil)
}

// CurrentUser returns the user of the bound session
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	if !c.session.Active() {
		return nil, ErrNoSession
	}
	var u User
	if err := c.doAuth(ctx, http.MethodGet, "user", nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
