package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hawksec/hawk/internal/app"
	"github.com/hawksec/hawk/internal/pkg/logger"
	"github.com/hawksec/hawk/internal/services"
)

// MonitorSettings reads and stamps a user's auto monitor settings
type MonitorSettings interface {
	Monitoring(ctx context.Context, userID string) (services.MonitoringState, error)
	MarkScanned(ctx context.Context, userID string, t time.Time) error
}

// Scanner runs a scheduled scan for a user
type Scanner interface {
	RunAuto(ctx context.Context, userID string, criticalOnly bool) (*services.ScanResult, error)
}

// Subject is a signed-in user the scanner may scan for
type Subject struct {
	UserID   string
	Settings MonitorSettings
	Scans    Scanner
}

// SubjectSource lists the users to consider on each tick
type SubjectSource func() []Subject

// Sessions returns the open sessions of a as scan subjects
func Sessions(a *app.App) SubjectSource {
	return func() []Subject {
		sessions := a.Sessions()
		out := make([]Subject, 0, len(sessions))
		for _, s := range sessions {
			out = append(out, Subject{UserID: s.User.ID, Settings: s.Settings, Scans: s.Scans})
		}
		return out
	}
}

// AutoScanner periodically runs the scans users scheduled in their auto
// monitor settings
type AutoScanner struct {
	source   SubjectSource
	schedule string
	logger   *logger.Logger
	now      func() time.Time

	mu        sync.Mutex
	scheduler *cron.Cron
	cancel    context.CancelFunc
}

// NewAutoScanner creates a scanner that checks for due scans on schedule,
// a standard cron spec or descriptor such as "@every 15m"
func NewAutoScanner(source SubjectSource, schedule string, log *logger.Logger) (*AutoScanner, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid auto scan schedule: %w", err)
	}
	return &AutoScanner{
		source:   source,
		schedule: schedule,
		logger:   log,
		now:      time.Now,
	}, nil
}

// Start begins checking on the schedule until Stop or ctx is done
func (s *AutoScanner) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scheduler != nil {
		return fmt.Errorf("auto scanner is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	cl := cronLogger{s.logger}
	c := cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)))
	if _, err := c.AddFunc(s.schedule, func() { s.RunOnce(runCtx) }); err != nil {
		cancel()
		return fmt.Errorf("failed to schedule auto scan: %w", err)
	}
	c.Start()

	s.scheduler = c
	s.cancel = cancel
	s.logger.WithFields(map[string]interface{}{
		"schedule": s.schedule,
	}).Info("Auto scanner started")

	go func() {
		<-runCtx.Done()
		s.Stop()
	}()
	return nil
}

// Stop halts the schedule and waits for a running check to finish
func (s *AutoScanner) Stop() {
	s.mu.Lock()
	c, cancel := s.scheduler, s.cancel
	s.scheduler, s.cancel = nil, nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	cancel()
	<-c.Stop().Done()
	s.logger.Info("Auto scanner stopped")
}

// RunOnce checks every subject and scans those that are due. It returns
// how many scans ran.
func (s *AutoScanner) RunOnce(ctx context.Context) int {
	ran := 0
	for _, sub := range s.source() {
		if ctx.Err() != nil {
			break
		}
		if s.scanIfDue(ctx, sub) {
			ran++
		}
	}
	if ran > 0 {
		s.logger.WithFields(map[string]interface{}{"scans": ran}).Info("Auto scans completed")
	}
	return ran
}

func (s *AutoScanner) scanIfDue(ctx context.Context, sub Subject) bool {
	log := s.logger.WithFields(map[string]interface{}{"user_id": sub.UserID})

	state, err := sub.Settings.Monitoring(ctx, sub.UserID)
	if err != nil {
		log.ErrorWithErr(err, "Failed to load monitoring settings")
		return false
	}
	now := s.now()
	if !state.Due(now) {
		return false
	}

	result, err := sub.Scans.RunAuto(ctx, sub.UserID, state.CriticalOnly)
	if err != nil {
		log.ErrorWithErr(err, "Auto scan failed")
		return false
	}

	if err := sub.Settings.MarkScanned(ctx, sub.UserID, now); err != nil {
		log.ErrorWithErr(err, "Failed to record auto scan time")
	}

	log.WithFields(map[string]interface{}{
		"findings":      result.Count,
		"notified":      result.Notified,
		"critical_only": state.CriticalOnly,
	}).Info("Auto scan completed")
	return true
}

// cronLogger routes scheduler messages to the application logger
type cronLogger struct {
	l *logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.WithFields(pairs(keysAndValues)).Debug(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.WithFields(pairs(keysAndValues)).ErrorWithErr(err, msg)
}

func pairs(kv []interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return out
}
