package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL, AnonKey: "anon-key", Timeout: 5 * time.Second}), srv
}

func TestFetchSendsQueryAndHeaders(t *testing.T) {
	var got *http.Request
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"n1","title":"hello"}]`))
	})

	c = c.WithSession(&Session{AccessToken: "user-token", User: User{ID: "u1"}})

	var rows []Row
	q := NewQuery().Eq("user_id", "u1").Order("created_at", true).Limit(50)
	err := c.Fetch(context.Background(), "notifications", q, &rows)
	require.NoError(t, err)

	require.Len(t, rows, 1)
	assert.Equal(t, "n1", rows[0]["id"])

	assert.Equal(t, "/rest/v1/notifications", got.URL.Path)
	assert.Equal(t, "*", got.URL.Query().Get("select"))
	assert.Equal(t, "eq.u1", got.URL.Query().Get("user_id"))
	assert.Equal(t, "created_at.desc", got.URL.Query().Get("order"))
	assert.Equal(t, "50", got.URL.Query().Get("limit"))
	assert.Equal(t, "anon-key", got.Header.Get("apikey"))
	assert.Equal(t, "Bearer user-token", got.Header.Get("Authorization"))
}

func TestAnonymousClientUsesPublicKeyAsBearer(t *testing.T) {
	var auth string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[]`))
	})

	require.NoError(t, c.Fetch(context.Background(), "alerts", nil, &[]Row{}))
	assert.Equal(t, "Bearer anon-key", auth)
}

func TestRESTErrorsAreTyped(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "expired token",
			status: http.StatusUnauthorized,
			body:   `{"code":"PGRST301","message":"JWT expired"}`,
			check: func(t *testing.T, err error) {
				assert.True(t, IsAuth(err))
				assert.False(t, IsNetwork(err))
			},
		},
		{
			name:   "no rows",
			status: http.StatusNotAcceptable,
			body:   `{"code":"PGRST116","message":"JSON object requested, multiple (or no) rows returned"}`,
			check: func(t *testing.T, err error) {
				assert.True(t, IsNoRows(err))
			},
		},
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			body:   `upstream exploded`,
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				assert.True(t, apiErr.IsServerError())
				assert.Equal(t, "upstream exploded", apiErr.Message)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			var row Row
			err := c.FetchOne(context.Background(), "user_systems", NewQuery().Eq("user_id", "u1"), &row)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestNetworkErrorOnUnreachableBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New(Config{BaseURL: url, AnonKey: "k", Timeout: time.Second})
	err := c.Fetch(context.Background(), "alerts", nil, &[]Row{})
	require.Error(t, err)
	assert.True(t, IsNetwork(err))
}

func TestUpdateAndDeleteRequireFilter(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("no request expected, got %s %s", r.Method, r.URL)
	})

	err := c.Update(context.Background(), "alerts", NewQuery(), map[string]string{"status": "resolved"}, nil)
	assert.ErrorIs(t, err, ErrUnfilteredMutation)

	err = c.Delete(context.Background(), "oem_sources", nil)
	assert.ErrorIs(t, err, ErrUnfilteredMutation)
}

func TestUpdateSendsFilterAndPatch(t *testing.T) {
	var (
		method string
		query  string
		body   map[string]interface{}
		prefer string
	)
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		method = r.Method
		query = r.URL.RawQuery
		prefer = r.Header.Get("Prefer")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.WriteHeader(http.StatusNoContent)
	})

	q := NewQuery().Eq("user_id", "u1").Eq("is_read", false)
	err := c.Update(context.Background(), "notifications", q, map[string]bool{"is_read": true}, nil)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPatch, method)
	assert.Equal(t, "is_read=eq.false&user_id=eq.u1", query)
	assert.Equal(t, true, body["is_read"])
	assert.Equal(t, preferMinimal, prefer)
}

func TestQueryInQuotesReservedValues(t *testing.T) {
	v := NewQuery().In("status", "new", "acknowledged").In("system", "Web Server, EU").Values()
	assert.Equal(t, "in.(new,acknowledged)", v["status"][0])
	assert.Equal(t, `in.("Web Server, EU")`, v["system"][0])
}

func TestInvoke(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantErr       bool
		wantAuth      bool
		wantErrorType string
	}{
		{name: "success", status: 200, body: `{"success":true,"vulnerabilitiesCount":3}`},
		{name: "reported failure", status: 200, body: `{"success":false,"error":"API key missing","errorType":"missing_api_key"}`, wantErr: true, wantErrorType: "missing_api_key"},
		{name: "http failure", status: 500, body: `{"error":"boom"}`, wantErr: true},
		{name: "unauthorized", status: 401, body: `{"msg":"Invalid JWT"}`, wantErr: true, wantAuth: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var path string
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				path = r.URL.Path
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			var out struct {
				VulnerabilitiesCount int `json:"vulnerabilitiesCount"`
			}
			err := c.Invoke(context.Background(), "test-oem-scraper", map[string]string{"url": "https://vendor.example"}, &out)
			assert.Equal(t, "/functions/v1/test-oem-scraper", path)

			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, 3, out.VulnerabilitiesCount)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantAuth, IsAuth(err))
			if !tt.wantAuth {
				assert.True(t, IsRemoteFunction(err))
				assert.Equal(t, tt.wantErrorType, RemoteErrorType(err))
			}
		})
	}
}

func TestSignIn(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))

		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "secret1" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"at","refresh_token":"rt","expires_in":3600,"user":{"id":"u1","email":"a@b.co"}}`))
	})

	s, err := c.SignIn(context.Background(), "a@b.co", "secret1")
	require.NoError(t, err)
	assert.True(t, s.Active())
	assert.Equal(t, "u1", s.User.ID)
	assert.False(t, s.Expired(time.Now()))
	assert.True(t, s.Expired(time.Now().Add(2*time.Hour)))

	_, err = c.SignIn(context.Background(), "a@b.co", "wrong")
	require.Error(t, err)
	assert.True(t, IsAuth(err))
	assert.Contains(t, err.Error(), "Invalid login credentials")
}

func TestSignUpPendingConfirmation(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/signup", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"u2","email":"new@b.co","user_metadata":{"full_name":"New User"}}`))
	})

	s, err := c.SignUp(context.Background(), "new@b.co", "secret1", "New User")
	require.NoError(t, err)
	assert.False(t, s.Active())
	assert.Equal(t, "u2", s.User.ID)
	assert.Equal(t, "New User", s.User.FullName())
}

func TestSignOutWithoutSession(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	assert.ErrorIs(t, c.SignOut(context.Background()), ErrNoSession)
}
