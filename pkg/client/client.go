// Package client is a Go client for the Hawk dashboard REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is the main Hawk API client
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

// Config holds the client configuration
type Config struct {
	BaseURL    string        // API base URL (e.g., "https://hawk.example.com")
	Timeout    time.Duration // HTTP client timeout (default: 30s)
	HTTPClient *http.Client  // Optional custom HTTP client
}

// NewClient creates a new Hawk API client
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: cfg.Timeout,
		}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
	}
}

// SetToken sets the access token for authenticated requests
func (c *Client) SetToken(token string) {
	c.token = token
}

// GetToken returns the current access token
func (c *Client) GetToken() string {
	return c.token
}

// envelope is the body every API response is wrapped in
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
	Error   *APIError       `json:"error,omitempty"`
}

// doRequest performs an HTTP request and unwraps the response envelope
// into result
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &env); err != nil {
			if resp.StatusCode >= 400 {
				return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
			}
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	if resp.StatusCode >= 400 || env.Error != nil {
		apiErr := env.Error
		if apiErr == nil {
			apiErr = &APIError{Message: http.StatusText(resp.StatusCode)}
		}
		apiErr.StatusCode = resp.StatusCode
		return apiErr
	}

	if result != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, result); err != nil {
			return fmt.Errorf("failed to parse response data: %w", err)
		}
	}

	return nil
}

// Alerts returns the alert service
func (c *Client) Alerts() *AlertService {
	return &AlertService{client: c}
}

// Notifications returns the notification service
func (c *Client) Notifications() *NotificationService {
	return &NotificationService{client: c}
}

// Progress returns the remediation progress service
func (c *Client) Progress() *ProgressService {
	return &ProgressService{client: c}
}
