package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hawksec/hawk/internal/api/router"
	"github.com/hawksec/hawk/internal/app"
	"github.com/hawksec/hawk/internal/auth"
	"github.com/hawksec/hawk/internal/config"
	"github.com/hawksec/hawk/internal/domain/alert"
	"github.com/hawksec/hawk/internal/gateway"
	"github.com/hawksec/hawk/internal/pkg/logger"
	"github.com/hawksec/hawk/internal/testutil"
	"github.com/hawksec/hawk/pkg/client"
)

const jwtSecret = "flow-secret"

// fakeBackend answers the auth endpoints the dashboard server calls
func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/v1/token":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body["password"] != "secret1" {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
				return
			}
			token, err := auth.MintToken("user-1", body["email"], jwtSecret, time.Hour)
			require.NoError(t, err)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token":  token,
				"refresh_token": "rt",
				"token_type":    "bearer",
				"expires_in":    3600,
				"user":          map[string]string{"id": "user-1", "email": body["email"]},
			})
		case "/auth/v1/logout":
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newDashboard(t *testing.T) (*client.Client, *testutil.MockAlertRepository) {
	t.Helper()
	backend := fakeBackend(t)
	alerts := testutil.NewMockAlertRepository(
		testutil.NewAlert("a1", "OpenSSL buffer overflow", alert.SeverityCritical, alert.StatusNew, testutil.Day(2024, 3, 2)),
		testutil.NewAlert("a2", "Nginx header leak", alert.SeverityLow, alert.StatusAcknowledged, testutil.Day(2024, 3, 1)),
	)

	cfg := &config.Config{
		Backend:   config.BackendConfig{URL: backend.URL, AnonKey: "anon", JWTSecret: jwtSecret},
		Scan:      config.ScanConfig{NVDResultsLimit: 10, NotifyMinSeverity: "high"},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
	}
	log := logger.NewNop()
	a, err := app.New(cfg, log,
		app.WithProgressRepository(testutil.NewMockProgressRepository()),
		app.WithRepositories(func(*gateway.Client) app.Repositories {
			return app.Repositories{
				Alerts: alerts,
				Notifications: testutil.NewMockNotificationRepository(
					testutil.NewNotification("n1", "user-1", false, testutil.Day(2024, 3, 2)),
					testutil.NewNotification("n2", "user-1", false, testutil.Day(2024, 3, 1)),
				),
				Systems:   &testutil.MockSystemRepository{},
				Trends:    &testutil.MockTrendRepository{},
				OEM:       testutil.NewMockOEMRepository(),
				Settings:  testutil.NewMockSettingsRepository(),
				Profiles:  testutil.NewMockUserRepository(),
				Functions: testutil.NewMockInvoker(),
			}
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	srv := httptest.NewServer(router.New(cfg, log, a, router.NewHandlers(a, log)))
	t.Cleanup(srv.Close)

	return client.NewClient(client.Config{BaseURL: srv.URL, Timeout: 5 * time.Second}), alerts
}

func TestFlow_SignInTriageAndSignOut(t *testing.T) {
	c, alerts := newDashboard(t)
	ctx := context.Background()

	health, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", health.Status)

	_, err = c.Login(ctx, "analyst@example.com", "wrong")
	apiErr, ok := client.AsAPIError(err)
	require.True(t, ok)
	assert.True(t, apiErr.IsUnauthorized())

	resp, err := c.Login(ctx, "analyst@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", resp.User.ID)
	assert.NotEmpty(t, c.GetToken())

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "analyst@example.com", me.Email)

	page, err := c.Alerts().List(ctx, &client.AlertListOptions{Severities: []string{"critical"}})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "a1", page.Data[0].ID)
	assert.NotNil(t, page.Data[0].Deadline)

	acked, err := c.Alerts().Acknowledge(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "acknowledged", acked.Status)
	assert.Equal(t, 1, alerts.UpdateCount())

	_, err = c.Alerts().Acknowledge(ctx, "missing")
	apiErr, ok = client.AsAPIError(err)
	require.True(t, ok)
	assert.True(t, apiErr.IsNotFound())

	recs, err := c.Alerts().Recommendations(ctx, "a1")
	require.NoError(t, err)
	assert.NotEmpty(t, recs.Recommendations)

	risk, err := c.Alerts().Risk(ctx, "a1", "high")
	require.NoError(t, err)
	assert.Greater(t, risk.Score, 0.0)

	list, err := c.Notifications().List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, list.UnreadCount)

	unread, err := c.Notifications().MarkRead(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, 1, unread)

	unread, err = c.Notifications().MarkAllRead(ctx)
	require.NoError(t, err)
	assert.Zero(t, unread)

	require.NoError(t, c.Logout(ctx))
	assert.Empty(t, c.GetToken())
}

func TestFlow_SolutionProgress(t *testing.T) {
	c, _ := newDashboard(t)
	ctx := context.Background()

	templates, err := c.Progress().Templates(ctx, "web", "")
	require.NoError(t, err)
	require.NotEmpty(t, templates)
	tmpl := templates[0]

	_, err = c.Login(ctx, "analyst@example.com", "secret1")
	require.NoError(t, err)

	p, err := c.Progress().SelectTemplate(ctx, "a1", tmpl.ID)
	require.NoError(t, err)
	assert.Equal(t, tmpl.ID, p.SelectedTemplate)
	assert.Zero(t, p.Percentage)

	p, err = c.Progress().ToggleStep(ctx, "a1", tmpl.Steps[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []int{tmpl.Steps[0].ID}, p.CompletedSteps)
	assert.InDelta(t, 100.0/float64(len(tmpl.Steps)), p.Percentage, 0.01)

	require.NoError(t, c.Progress().Reset(ctx, "a1"))

	p, err = c.Progress().Get(ctx, "a1", 0)
	require.NoError(t, err)
	assert.Empty(t, p.CompletedSteps)
}

func TestFlow_ProtectedRoutesNeedSession(t *testing.T) {
	c, _ := newDashboard(t)

	_, err := c.Alerts().List(context.Background(), nil)
	apiErr, ok := client.AsAPIError(err)
	require.True(t, ok)
	assert.True(t, apiErr.IsUnauthorized())
}
