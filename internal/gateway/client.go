package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hawksec/hawk/internal/pkg/logger"
	"github.com/hawksec/hawk/internal/pkg/metrics"
)

// Client talks to the hosted backend: REST collections, remote functions,
// auth and realtime. Calls are never retried; callers decide.
type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
	dialer     *websocket.Dialer
	logger     *logger.Logger
	session    *Session
	realtime   RealtimeConfig
}

// Config holds the client configuration
type Config struct {
	BaseURL    string        // backend base URL, e.g. "https://abc.example.co"
	AnonKey    string        // public API key sent with every request
	Timeout    time.Duration // HTTP client timeout (default: 30s)
	HTTPClient *http.Client  // Optional custom HTTP client
	Dialer     *websocket.Dialer
	Logger     *logger.Logger
	Realtime   RealtimeConfig
}

// RealtimeConfig tunes realtime subscriptions
type RealtimeConfig struct {
	Heartbeat     time.Duration // default 30s
	ReconnectBase time.Duration // default 1s
	ReconnectMax  time.Duration // default 30s
	JoinTimeout   time.Duration // default 10s
}

// New creates a new backend client
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: cfg.Timeout,
		}
	}

	dialer := cfg.Dialer
	if dialer == nil {
		dialer = &websocket.Dialer{
			HandshakeTimeout: cfg.Timeout,
		}
	}

	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}

	rt := cfg.Realtime
	if rt.Heartbeat == 0 {
		rt.Heartbeat = 30 * time.Second
	}
	if rt.ReconnectBase == 0 {
		rt.ReconnectBase = time.Second
	}
	if rt.ReconnectMax == 0 {
		rt.ReconnectMax = 30 * time.Second
	}
	if rt.JoinTimeout == 0 {
		rt.JoinTimeout = 10 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		anonKey:    cfg.AnonKey,
		httpClient: httpClient,
		dialer:     dialer,
		logger:     log,
		realtime:   rt,
	}
}

// WithSession returns a copy of the client that authenticates as the
// session's user. The receiver is not modified.
func (c *Client) WithSession(s *Session) *Client {
	cp := *c
	cp.session = s
	return &cp
}

// Session returns the session the client is bound to, or nil
func (c *Client) Session() *Session {
	return c.session
}

// UserID returns the id of the bound user, or ""
func (c *Client) UserID() string {
	if c.session == nil {
		return ""
	}
	return c.session.User.ID
}

// bearer is the token sent in the Authorization header: the user's access
// token when bound to a session, the public key otherwise.
func (c *Client) bearer() string {
	if c.session != nil && c.session.AccessToken != "" {
		return c.session.AccessToken
	}
	return c.anonKey
}

type request struct {
	kind    string // rest, function, auth
	target  string // table, function or auth endpoint, for logs and metrics
	method  string
	path    string
	query   url.Values
	body    interface{}
	headers map[string]string
}

type response struct {
	status int
	header http.Header
	body   []byte
}

// send performs one HTTP round trip. Transport failures become
// NetworkError; status codes are left to the caller.
func (c *Client) send(ctx context.Context, r request) (*response, error) {
	start := time.Now()
	resp, err := c.roundTrip(ctx, r)

	metrics.RecordGatewayRequest(r.kind, r.target, err, time.Since(start))
	fields := map[string]interface{}{
		"kind":        r.kind,
		"target":      r.target,
		"method":      r.method,
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if resp != nil {
		fields["status"] = resp.status
	}
	if err != nil {
		c.logger.WithFields(fields).WarnWithErr(err, "Backend request failed")
	} else {
		c.logger.WithFields(fields).Debug("Backend request")
	}
	return resp, err
}

func (c *Client) roundTrip(ctx context.Context, r request) (*response, error) {
	var reqBody io.Reader
	if r.body != nil {
		jsonData, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+c.bearer())
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: r.method + " " + r.target, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: "read " + r.target, Err: err}
	}

	return &response{status: resp.StatusCode, header: resp.Header, body: respBody}, nil
}

// doREST performs a collection request and decodes the result into dest.
func (c *Client) doREST(ctx context.Context, r request, dest interface{}) error {
	r.kind = "rest"
	resp, err := c.send(ctx, r)
	if err != nil {
		return err
	}

	if resp.status >= 400 {
		apiErr := &APIError{StatusCode: resp.status}
		if err := json.Unmarshal(resp.body, apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(resp.body))
		}
		if resp.status == http.StatusUnauthorized || resp.status == http.StatusForbidden {
			return &AuthError{StatusCode: resp.status, Message: apiErr.Message, Err: apiErr}
		}
		return apiErr
	}

	if dest != nil && len(resp.body) > 0 {
		if err := json.Unmarshal(resp.body, dest); err != nil {
			return fmt.Errorf("failed to parse %s response: %w", r.target, err)
		}
	}
	return nil
}
