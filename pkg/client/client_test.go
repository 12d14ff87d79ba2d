package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL + "/"})
}

func TestDoRequest_UnwrapsEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/notifications", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"success":true,"data":{"notifications":[{"id":"n1","title":"Scan done"}],"unreadCount":1}}`))
	})
	c.SetToken("tok")

	list, err := c.Notifications().List(context.Background())
	require.NoError(t, err)
	require.Len(t, list.Notifications, 1)
	assert.Equal(t, "n1", list.Notifications[0].ID)
	assert.Equal(t, 1, list.UnreadCount)
}

func TestDoRequest_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, e *APIError)
	}{
		{
			name:   "error envelope",
			status: http.StatusNotFound,
			body:   `{"success":false,"error":{"code":"NOT_FOUND","message":"Alert not found"}}`,
			check: func(t *testing.T, e *APIError) {
				assert.True(t, e.IsNotFound())
				assert.Equal(t, "NOT_FOUND", e.Code)
				assert.Equal(t, "Alert not found", e.Message)
			},
		},
		{
			name:   "validation details",
			status: http.StatusBadRequest,
			body:   `{"success":false,"error":{"code":"VALIDATION_ERROR","message":"Validation failed","details":[{"field":"status"}]}}`,
			check: func(t *testing.T, e *APIError) {
				assert.True(t, e.IsValidationError())
				assert.NotNil(t, e.Details)
			},
		},
		{
			name:   "not configured",
			status: http.StatusServiceUnavailable,
			body:   `{"success":false,"error":{"code":"NOT_CONFIGURED","message":"Assistant is not configured"}}`,
			check: func(t *testing.T, e *APIError) {
				assert.True(t, e.IsNotConfigured())
				assert.True(t, e.IsServerError())
			},
		},
		{
			name:   "plain text body",
			status: http.StatusBadGateway,
			body:   "upstream gone",
			check: func(t *testing.T, e *APIError) {
				assert.Equal(t, "upstream gone", e.Message)
				assert.True(t, e.IsServerError())
			},
		},
		{
			name:   "empty body",
			status: http.StatusTooManyRequests,
			check: func(t *testing.T, e *APIError) {
				assert.True(t, e.IsRateLimited())
				assert.Equal(t, "Too Many Requests", e.Message)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.Alerts().Resolve(context.Background(), "a1")
			require.Error(t, err)
			apiErr, ok := AsAPIError(err)
			require.True(t, ok)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			tt.check(t, apiErr)
		})
	}
}

func TestAlerts_ListQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "openssl", q.Get("search"))
		assert.Equal(t, "critical,high", q.Get("severity"))
		assert.Equal(t, "new", q.Get("status"))
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "", q.Get("page_size"))
		_, _ = w.Write([]byte(`{"success":true,"data":{"data":[{"id":"a1","severity":"critical"}],"page":2,"page_size":20,"total_items":21,"total_pages":2}}`))
	})

	page, err := c.Alerts().List(context.Background(), &AlertListOptions{
		Search:     "openssl",
		Severities: []string{"critical", "high"},
		Statuses:   []string{"new"},
		Page:       2,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Page)
	assert.EqualValues(t, 21, page.TotalItems)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "critical", page.Data[0].Severity)
}

func TestAlerts_StatusTransitions(t *testing.T) {
	tests := []struct {
		name string
		call func(*AlertService) (*Alert, error)
		want string
	}{
		{"acknowledge", func(s *AlertService) (*Alert, error) { return s.Acknowledge(context.Background(), "a/1") }, "acknowledged"},
		{"resolve", func(s *AlertService) (*Alert, error) { return s.Resolve(context.Background(), "a/1") }, "resolved"},
		{"reopen", func(s *AlertService) (*Alert, error) { return s.Reopen(context.Background(), "a/1") }, "new"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPatch, r.Method)
				assert.Equal(t, "/api/v1/alerts/a%2F1/status", r.URL.EscapedPath())
				var body map[string]string
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				_ = json.NewEncoder(w).Encode(map[string]interface{}{
					"success": true,
					"data":    map[string]string{"id": "a/1", "status": body["status"]},
				})
			})

			a, err := tt.call(c.Alerts())
			require.NoError(t, err)
			assert.Equal(t, tt.want, a.Status)
		})
	}
}

func TestLogin_StoresToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auth/login", r.URL.Path)
		_, _ = w.Write([]byte(`{"success":true,"data":{"accessToken":"at","refreshToken":"rt","user":{"id":"u1","email":"a@b.co"}}}`))
	})

	resp, err := c.Login(context.Background(), "a@b.co", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "u1", resp.User.ID)
	assert.Equal(t, "at", c.GetToken())
}

func TestRegister_PendingConfirmation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body RegisterRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, body.Password, body.ConfirmPassword)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true,"message":"Check your email to confirm the account","data":{"user":{"id":"u2","email":"new@b.co"},"confirmationRequired":true}}`))
	})

	resp, err := c.Register(context.Background(), RegisterRequest{Email: "new@b.co", Password: "secret1", FullName: "New User"})
	require.NoError(t, err)
	assert.True(t, resp.ConfirmationRequired)
	assert.Empty(t, c.GetToken())
}
