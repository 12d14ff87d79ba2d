package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hawksec/hawk/internal/app"
	"github.com/hawksec/hawk/internal/config"
	"github.com/hawksec/hawk/internal/domain/alert"
	"github.com/hawksec/hawk/internal/gateway"
	"github.com/hawksec/hawk/internal/pkg/logger"
	"github.com/hawksec/hawk/internal/testutil"
)

type fixture struct {
	app           *app.App
	session       *app.Session
	notifications *testutil.MockNotificationRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		notifications: testutil.NewMockNotificationRepository(
			testutil.NewNotification("n1", "user-1", false, testutil.Day(2024, 3, 1)),
		),
	}
	cfg := &config.Config{Scan: config.ScanConfig{NVDResultsLimit: 10, NotifyMinSeverity: "high"}}
	a, err := app.New(cfg, logger.NewNop(),
		app.WithClient(gateway.New(gateway.Config{BaseURL: "http://backend.invalid"})),
		app.WithProgressRepository(testutil.NewMockProgressRepository()),
		app.WithRepositories(func(c *gateway.Client) app.Repositories {
			return app.Repositories{
				Alerts: testutil.NewMockAlertRepository(
					testutil.NewAlert("a1", "OpenSSL", alert.SeverityHigh, alert.StatusNew, testutil.Day(2024, 3, 1)),
				),
				Notifications: f.notifications,
				Systems:       &testutil.MockSystemRepository{},
				Trends:        &testutil.MockTrendRepository{},
				OEM:           testutil.NewMockOEMRepository(),
				Settings:      testutil.NewMockSettingsRepository(),
				Profiles:      testutil.NewMockUserRepository(),
				Functions:     testutil.NewMockInvoker(),
			}
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	s, err := a.Start(context.Background(), &gateway.Session{
		AccessToken: "access",
		User:        gateway.User{ID: "user-1", Email: "user-1@example.com"},
	})
	require.NoError(t, err)

	f.app = a
	f.session = s
	return f
}
