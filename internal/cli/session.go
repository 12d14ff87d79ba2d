package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hawksec/hawk/internal/app"
	"github.com/hawksec/hawk/internal/gateway"
	"github.com/hawksec/hawk/internal/pkg/logger"
)

var errNotSignedIn = errors.New("not signed in. Run 'hawk auth login' first")

// storedSession rebuilds the backend session saved by the last sign-in
func storedSession() *gateway.Session {
	return &gateway.Session{
		AccessToken:  viper.GetString("auth.access_token"),
		RefreshToken: viper.GetString("auth.refresh_token"),
		ExpiresAt:    viper.GetInt64("auth.expires_at"),
		User: gateway.User{
			ID:    viper.GetString("auth.user_id"),
			Email: viper.GetString("auth.email"),
		},
	}
}

func saveSession(gs *gateway.Session) error {
	viper.Set("auth.access_token", gs.AccessToken)
	viper.Set("auth.refresh_token", gs.RefreshToken)
	viper.Set("auth.expires_at", gs.ExpiresAt)
	viper.Set("auth.user_id", gs.User.ID)
	viper.Set("auth.email", gs.User.Email)
	return writeConfig()
}

func clearSession() error {
	return saveSession(&gateway.Session{})
}

func newApp() (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return app.New(cfg, logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputPath: cfg.Logging.OutputPath,
	}))
}

// openSession starts a dashboard session from the stored tokens. An
// expired access token is exchanged for a new one first, and the new
// tokens are saved.
func openSession(ctx context.Context) (*app.App, *app.Session, error) {
	gs := storedSession()
	if !gs.Active() || gs.User.ID == "" {
		return nil, nil, errNotSignedIn
	}

	a, err := newApp()
	if err != nil {
		return nil, nil, err
	}

	refreshed := false
	if gs.Expired(time.Now()) {
		if gs, err = refresh(ctx, a, gs); err != nil {
			a.Close()
			return nil, nil, err
		}
		refreshed = true
	}

	s, err := a.Start(ctx, gs)
	if err != nil && gateway.IsAuth(err) && !refreshed {
		// the backend may revoke a token before its recorded expiry
		if gs, err = refresh(ctx, a, gs); err == nil {
			s, err = a.Start(ctx, gs)
		}
	}
	if err != nil {
		a.Close()
		return nil, nil, fmt.Errorf("failed to open session: %w", err)
	}
	return a, s, nil
}

func refresh(ctx context.Context, a *app.App, gs *gateway.Session) (*gateway.Session, error) {
	fresh, err := a.Client().Refresh(ctx, gs.RefreshToken)
	if err != nil {
		if gateway.IsAuth(err) {
			return nil, fmt.Errorf("session expired, run 'hawk auth login': %w", err)
		}
		return nil, fmt.Errorf("failed to refresh session: %w", err)
	}
	if fresh.User.ID == "" {
		fresh.User = gs.User
	}
	if err := saveSession(fresh); err != nil {
		return nil, fmt.Errorf("failed to save refreshed session: %w", err)
	}
	return fresh, nil
}

// withSession wraps a command body that needs a signed-in user
func withSession(run func(cmd *cobra.Command, args []string, s *app.Session) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, s, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		return run(cmd, args, s)
	}
}
