package app

import (
	"context"
	"errors"
	"sync"

	"github.com/hawksec/hawk/internal/domain/user"
	"github.com/hawksec/hawk/internal/gateway"
	"github.com/hawksec/hawk/internal/pkg/logger"
	"github.com/hawksec/hawk/internal/services"
	"github.com/hawksec/hawk/internal/store"
)

// ErrClosed is returned by Start after Close
var ErrClosed = errors.New("app: closed")

// Session is the state of one signed-in user
type Session struct {
	User    user.Account
	Gateway *gateway.Client

	Alerts        *store.AlertStore
	Notifications *store.NotificationStore

	OEM      *services.OEMService
	Scans    *services.ScanService
	Settings *services.SettingsService
	Chat     *services.ChatService
	Overview *services.OverviewService
	Progress *services.ProgressService
	Reports  *services.ReportService

	repos  Repositories
	app    *App
	logger *logger.Logger
	once   sync.Once
}

func (a *App) newSession(gs *gateway.Session) *Session {
	client := a.client.WithSession(gs)
	repos := a.repositories(client)
	log := a.logger.With("user_id", gs.User.ID)

	var opts []store.Option
	if a.cfg.Metrics.Enabled {
		opts = append(opts, store.WithMetrics())
	}

	return &Session{
		User: user.Account{
			ID:       gs.User.ID,
			Email:    gs.User.Email,
			FullName: gs.User.FullName(),
		},
		Gateway:       client,
		Alerts:        store.NewAlertStore(repos.Alerts, log, opts...),
		Notifications: store.NewNotificationStore(repos.Notifications, gs.User.ID, log, opts...),
		OEM:           services.NewOEMService(repos.OEM, repos.Functions, gs.User.ID, log),
		Scans:         services.NewScanService(repos.Functions, a.cfg.Scan, log, a.cfg.Metrics.Enabled),
		Settings:      services.NewSettingsService(repos.Settings, repos.Notifications, repos.Functions, log),
		Chat:          services.NewChatService(repos.Functions, log),
		Overview:      services.NewOverviewService(repos.Systems, repos.Trends, log),
		Progress:      services.NewProgressService(a.progress, log),
		Reports:       services.NewReportService(log),
		repos:         repos,
		app:           a,
		logger:        log,
	}
}

// open loads the profile and both stores and subscribes them to live
// changes. A failed subscription leaves the store usable without pushes.
func (s *Session) open(ctx context.Context) error {
	if s.repos.Profiles != nil {
		profile, err := s.repos.Profiles.GetProfile(ctx, s.User.ID)
		if err != nil {
			s.logger.WarnWithErr(err, "Failed to load profile")
		} else if profile != nil {
			s.User.Profile = profile
			s.User.FullName = profile.DisplayName(s.User.FullName)
		}
	}

	if err := s.Alerts.Load(ctx); err != nil {
		return err
	}
	if err := s.Notifications.Load(ctx); err != nil {
		return err
	}

	if err := s.Alerts.SubscribeLive(ctx); err != nil {
		s.logger.WarnWithErr(err, "Alert updates will not be pushed")
	}
	if err := s.Notifications.SubscribeLive(ctx); err != nil {
		s.logger.WarnWithErr(err, "Notifications will not be pushed")
	}
	return nil
}

// Account returns the identity the settings service works with
func (s *Session) Account() services.Account {
	return services.Account{ID: s.User.ID, Email: s.User.Email}
}

// Close tears down the session's subscriptions and removes it from the App
func (s *Session) Close() error {
	s.app.release(s)
	return s.shutdown()
}

func (s *Session) shutdown() error {
	var err error
	s.once.Do(func() {
		err = errors.Join(s.Alerts.Close(), s.Notifications.Close())
		s.logger.Info("Session closed")
	})
	return err
}
