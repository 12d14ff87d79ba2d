package store

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/hawksec/hawk/internal/domain/alert"
	apperrors "github.com/hawksec/hawk/internal/pkg/errors"
	"github.com/hawksec/hawk/internal/pkg/logger"
	"github.com/hawksec/hawk/internal/pkg/metrics"
)

// AlertStore holds the alert collection, newest first
type AlertStore struct {
	repo   alert.Repository
	logger *logger.Logger
	opts   options

	mu      sync.RWMutex
	alerts  []*alert.Alert
	loadSeq uint64
	writes  *pending
	closed  bool
	changes signal

	stream alert.Stream
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewAlertStore creates an empty alert store
func NewAlertStore(repo alert.Repository, log *logger.Logger, opts ...Option) *AlertStore {
	return &AlertStore{
		repo:    repo,
		logger:  log,
		opts:    buildOptions(opts),
		writes:  newPending(),
		changes: newSignal(),
	}
}

// Load replaces the whole collection with a fresh snapshot. A load that
// finishes after a newer one has started is discarded.
func (s *AlertStore) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.loadSeq++
	seq := s.loadSeq
	s.mu.Unlock()

	items, err := s.repo.List(ctx)
	if err != nil {
		s.logger.ErrorWithErr(err, "Failed to load alerts")
		return err
	}
	SortAlerts(items)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if seq != s.loadSeq {
		s.logger.Debug("Discarding stale alert snapshot")
		return nil
	}
	s.alerts = items
	s.writes.reset()
	s.publishLocked()
	return nil
}

// SortAlerts orders alerts newest first. Alerts with the same timestamp
// keep their relative order.
func SortAlerts(items []*alert.Alert) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp().After(items[j].Timestamp())
	})
}

// Alerts returns a copy of the collection
func (s *AlertStore) Alerts() []*alert.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAlerts(s.alerts)
}

// Get returns a copy of one alert
func (s *AlertStore) Get(id string) (*alert.Alert, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.alerts[i].Clone(), true
	}
	return nil, false
}

// Len returns the number of alerts held
func (s *AlertStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.alerts)
}

// ApplyFilter returns the alerts matching f in collection order. The
// collection itself is left untouched.
func (s *AlertStore) ApplyFilter(f alert.Filter) []*alert.Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if f.IsEmpty() {
		return cloneAlerts(s.alerts)
	}
	out := make([]*alert.Alert, 0, len(s.alerts))
	for _, a := range s.alerts {
		if f.Matches(a) {
			out = append(out, a.Clone())
		}
	}
	return out
}

// SetStatus changes the status of one alert locally and writes it to the
// backend. Setting the status an alert already has is harmless.
func (s *AlertStore) SetStatus(ctx context.Context, id string, status alert.Status) error {
	if !status.Valid() {
		return apperrors.ValidationError("Invalid alert status", map[string]string{"status": string(status)})
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return apperrors.NotFound("Alert")
	}
	previous := s.alerts[i].Status
	s.replaceStatusLocked(i, status)
	token := s.writes.begin(id)
	s.publishLocked()
	s.mu.Unlock()

	err := s.repo.UpdateStatus(ctx, id, status)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		s.writes.finish(id, token)
		return nil
	}

	s.logger.WithFields(map[string]interface{}{
		"alert_id": id,
		"status":   status,
	}).ErrorWithErr(err, "Failed to update alert status")

	if !s.closed && s.writes.owns(id, token) {
		if j := s.indexLocked(id); j >= 0 {
			s.replaceStatusLocked(j, previous)
			s.publishLocked()
		}
		s.writes.finish(id, token)
	}
	return err
}

// SubscribeLive reloads the collection whenever the backend reports an
// alert change. Calling it while a subscription is open does nothing.
func (s *AlertStore) SubscribeLive(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.stream != nil {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	liveCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stream, err := s.repo.Watch(liveCtx)
	if err != nil {
		cancel()
		s.logger.ErrorWithErr(err, "Failed to subscribe to alert changes")
		return err
	}

	s.mu.Lock()
	if s.closed || s.stream != nil {
		closed := s.closed
		s.mu.Unlock()
		cancel()
		_ = stream.Close()
		if closed {
			return ErrClosed
		}
		return nil
	}
	s.stream = stream
	s.cancel = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go s.follow(liveCtx, stream)
	return nil
}

func (s *AlertStore) follow(ctx context.Context, stream alert.Stream) {
	defer s.wg.Done()
	for change := range stream.Events() {
		s.logger.WithFields(map[string]interface{}{
			"alert_id": change.ID,
			"type":     change.Type,
		}).Debug("Alert change received")

		if err := s.Load(ctx); err != nil {
			if errors.Is(err, ErrClosed) {
				return
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stream == stream {
		s.stream = nil
		if s.cancel != nil {
			s.cancel()
			s.cancel = nil
		}
	}
	if !s.closed {
		s.logger.Warn("Alert subscription ended")
	}
}

// Live reports whether a live subscription is open
func (s *AlertStore) Live() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stream != nil
}

// Changes signals that the collection changed. Signals coalesce; the
// channel is closed by Close.
func (s *AlertStore) Changes() <-chan struct{} {
	return s.changes
}

// Close ends the live subscription and disposes of the store
func (s *AlertStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	stream, cancel := s.stream, s.cancel
	s.stream, s.cancel = nil, nil
	close(s.changes)
	s.mu.Unlock()

	var err error
	if stream != nil {
		err = stream.Close()
	}
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	return err
}

func (s *AlertStore) indexLocked(id string) int {
	for i, a := range s.alerts {
		if a.ID == id {
			return i
		}
	}
	return -1
}

// replaceStatusLocked swaps in a modified copy so copies handed out
// earlier never change under their holders
func (s *AlertStore) replaceStatusLocked(i int, status alert.Status) {
	a := s.alerts[i].Clone()
	a.Status = status
	s.alerts[i] = a
}

func (s *AlertStore) publishLocked() {
	s.changes.notify()
	if !s.opts.metrics {
		return
	}
	counts := make(map[alert.Severity]map[alert.Status]int)
	for _, sev := range alert.Severities {
		counts[sev] = make(map[alert.Status]int)
	}
	for _, a := range s.alerts {
		if byStatus, ok := counts[a.Severity]; ok {
			byStatus[a.Status]++
		}
	}
	for sev, byStatus := range counts {
		for _, st := range alert.Statuses {
			metrics.SetAlertsLoaded(string(sev), string(st), float64(byStatus[st]))
		}
	}
}

func cloneAlerts(items []*alert.Alert) []*alert.Alert {
	out := make([]*alert.Alert, len(items))
	for i, a := range items {
		out[i] = a.Clone()
	}
	return out
}
