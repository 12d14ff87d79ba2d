// Package app wires a dashboard session together: the session-bound
// backend client, the repositories, both stores and the services. One App
// serves many signed-in users; each gets its own Session.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/hawksec/hawk/internal/config"
	"github.com/hawksec/hawk/internal/domain/alert"
	"github.com/hawksec/hawk/internal/domain/notification"
	"github.com/hawksec/hawk/internal/domain/oem"
	"github.com/hawksec/hawk/internal/domain/progress"
	"github.com/hawksec/hawk/internal/domain/settings"
	"github.com/hawksec/hawk/internal/domain/system"
	"github.com/hawksec/hawk/internal/domain/trend"
	"github.com/hawksec/hawk/internal/domain/user"
	"github.com/hawksec/hawk/internal/gateway"
	"github.com/hawksec/hawk/internal/pkg/logger"
	"github.com/hawksec/hawk/internal/pkg/metrics"
	"github.com/hawksec/hawk/internal/repository/sqlstore"
	"github.com/hawksec/hawk/internal/repository/supabase"
	"github.com/hawksec/hawk/internal/services"
	"github.com/hawksec/hawk/migrations"
)

// Repositories are the data sources of one signed-in user
type Repositories struct {
	Alerts        alert.Repository
	Notifications notification.Repository
	Systems       system.Repository
	Trends        trend.Repository
	OEM           oem.Repository
	Settings      settings.Repository
	Profiles      user.Repository
	Functions     services.FunctionInvoker
}

// BackendRepositories returns the backend-backed repositories reached
// through a session-bound client
func BackendRepositories(client *gateway.Client) Repositories {
	return Repositories{
		Alerts:        supabase.NewAlertRepository(client),
		Notifications: supabase.NewNotificationRepository(client),
		Systems:       supabase.NewSystemRepository(client),
		Trends:        supabase.NewTrendRepository(client),
		OEM:           supabase.NewOEMRepository(client),
		Settings:      supabase.NewSettingsRepository(client),
		Profiles:      supabase.NewProfileRepository(client),
		Functions:     client,
	}
}

// Option configures an App
type Option func(*App)

// WithClient replaces the backend client built from the config
func WithClient(c *gateway.Client) Option {
	return func(a *App) { a.client = c }
}

// WithRepositories replaces how per-user repositories are built
func WithRepositories(fn func(*gateway.Client) Repositories) Option {
	return func(a *App) { a.repositories = fn }
}

// WithProgressRepository uses repo instead of opening the progress database
func WithProgressRepository(repo progress.Repository) Option {
	return func(a *App) { a.progress = repo }
}

// App owns the process-wide dependencies and the registry of sessions
type App struct {
	cfg          *config.Config
	logger       *logger.Logger
	client       *gateway.Client
	repositories func(*gateway.Client) Repositories
	progressDB   *sql.DB
	progress     progress.Repository

	mu       sync.RWMutex
	sessions map[string]*Session
	closed   bool
}

// New creates an App. Unless a progress repository is supplied, the local
// progress database is opened and migrated.
func New(cfg *config.Config, log *logger.Logger, opts ...Option) (*App, error) {
	a := &App{
		cfg:          cfg,
		logger:       log,
		repositories: BackendRepositories,
		sessions:     make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.client == nil {
		a.client = gateway.New(gateway.Config{
			BaseURL: cfg.Backend.URL,
			AnonKey: cfg.Backend.AnonKey,
			Timeout: cfg.Backend.RequestTimeout,
			Logger:  log,
			Realtime: gateway.RealtimeConfig{
				Heartbeat:     cfg.Backend.RealtimeHeartbeat,
				ReconnectBase: cfg.Backend.ReconnectBaseDelay,
				ReconnectMax:  cfg.Backend.ReconnectMaxDelay,
			},
		})
	}

	if a.progress == nil {
		db, err := sqlstore.Open(cfg.Progress)
		if err != nil {
			return nil, fmt.Errorf("open progress store: %w", err)
		}
		applied, err := sqlstore.RunMigrations(db, cfg.Progress.Driver, migrations.FS())
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate progress store: %w", err)
		}
		if len(applied) > 0 {
			log.WithFields(map[string]interface{}{"migrations": applied}).Info("Progress store migrated")
		}
		a.progressDB = db
		a.progress = sqlstore.NewProgressRepository(db, cfg.Progress.Driver)
	}

	return a, nil
}

// Config returns the configuration
func (a *App) Config() *config.Config {
	return a.cfg
}

// Logger returns the application logger
func (a *App) Logger() *logger.Logger {
	return a.logger
}

// Client returns the anonymous backend client
func (a *App) Client() *gateway.Client {
	return a.client
}

// Ping checks the progress database when the App opened one
func (a *App) Ping(ctx context.Context) error {
	if a.progressDB == nil {
		return nil
	}
	return a.progressDB.PingContext(ctx)
}

// UsesProgressDB reports whether the App opened the progress database
func (a *App) UsesProgressDB() bool {
	return a.progressDB != nil
}

// SessionCount returns how many sessions are open
func (a *App) SessionCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.sessions)
}

// Start opens a session for a signed-in user: it loads both stores and
// opens their live subscriptions. A session already open for the same user
// is replaced.
func (a *App) Start(ctx context.Context, gs *gateway.Session) (*Session, error) {
	if !gs.Active() {
		return nil, gateway.ErrNoSession
	}

	a.mu.RLock()
	closed := a.closed
	a.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}

	s := a.newSession(gs)
	if err := s.open(ctx); err != nil {
		s.shutdown()
		return nil, err
	}

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		s.shutdown()
		return nil, ErrClosed
	}
	previous := a.sessions[s.User.ID]
	a.sessions[s.User.ID] = s
	count := len(a.sessions)
	a.mu.Unlock()

	if previous != nil {
		previous.shutdown()
	}
	if a.cfg.Metrics.Enabled {
		metrics.SetActiveSessions(float64(count))
	}

	s.logger.Info("Session started")
	return s, nil
}

// Lookup returns the open session of userID
func (a *App) Lookup(userID string) (*Session, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s, ok := a.sessions[userID]
	return s, ok
}

// Sessions returns every open session
func (a *App) Sessions() []*Session {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]*Session, 0, len(a.sessions))
	for _, s := range a.sessions {
		out = append(out, s)
	}
	return out
}

// release drops s from the registry if it is still the user's session
func (a *App) release(s *Session) {
	a.mu.Lock()
	if current, ok := a.sessions[s.User.ID]; ok && current == s {
		delete(a.sessions, s.User.ID)
	}
	count := len(a.sessions)
	a.mu.Unlock()

	if a.cfg.Metrics.Enabled {
		metrics.SetActiveSessions(float64(count))
	}
}

// Close ends every session and closes the progress database
func (a *App) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	sessions := make([]*Session, 0, len(a.sessions))
	for _, s := range a.sessions {
		sessions = append(sessions, s)
	}
	a.sessions = make(map[string]*Session)
	a.mu.Unlock()

	for _, s := range sessions {
		s.shutdown()
	}
	if a.cfg.Metrics.Enabled {
		metrics.SetActiveSessions(0)
	}

	if a.progressDB != nil {
		return a.progressDB.Close()
	}
	return nil
}
