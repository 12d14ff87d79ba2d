package store

import (
	"context"
	"sort"
	"sync"

	"github.com/hawksec/hawk/internal/domain/notification"
	apperrors "github.com/hawksec/hawk/internal/pkg/errors"
	"github.com/hawksec/hawk/internal/pkg/logger"
	"github.com/hawksec/hawk/internal/pkg/metrics"
)

// NotificationStore holds the recent notifications of one user, newest
// first. The unread count is always derived from the collection.
type NotificationStore struct {
	repo   notification.Repository
	userID string
	logger *logger.Logger
	opts   options

	mu        sync.RWMutex
	items     []*notification.Notification
	loadSeq   uint64
	writes    *pending
	closed    bool
	changes   signal
	listeners map[int]func(*notification.Notification)
	nextID    int

	stream notification.Stream
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewNotificationStore creates an empty store for userID
func NewNotificationStore(repo notification.Repository, userID string, log *logger.Logger, opts ...Option) *NotificationStore {
	o := buildOptions(opts)
	if o.limit == 0 {
		o.limit = notification.RecentLimit
	}
	return &NotificationStore{
		repo:      repo,
		userID:    userID,
		logger:    log.With("user_id", userID),
		opts:      o,
		writes:    newPending(),
		changes:   newSignal(),
		listeners: make(map[int]func(*notification.Notification)),
	}
}

// UserID returns the owner of the store
func (s *NotificationStore) UserID() string {
	return s.userID
}

// Load replaces the collection with the newest notifications of the user
func (s *NotificationStore) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.loadSeq++
	seq := s.loadSeq
	s.mu.Unlock()

	items, err := s.repo.ListRecent(ctx, s.userID, s.opts.limit)
	if err != nil {
		s.logger.ErrorWithErr(err, "Failed to load notifications")
		return err
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if seq != s.loadSeq {
		s.logger.Debug("Discarding stale notification snapshot")
		return nil
	}
	s.items = items
	s.writes.reset()
	s.publishLocked()
	return nil
}

// Notifications returns a copy of the collection
func (s *NotificationStore) Notifications() []*notification.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*notification.Notification, len(s.items))
	for i, n := range s.items {
		out[i] = n.Clone()
	}
	return out
}

// UnreadCount returns the number of held notifications not yet read
func (s *NotificationStore) UnreadCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return notification.CountUnread(s.items)
}

// OnInsert registers fn to be called with every pushed notification after
// it has been merged. The returned function removes the listener.
func (s *NotificationStore) OnInsert(fn func(*notification.Notification)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Insert merges one pushed notification: it is put first, or replaces the
// held notification with the same id. Notifications of other users are
// ignored.
func (s *NotificationStore) Insert(n *notification.Notification) {
	if n == nil || n.ID == "" {
		return
	}

	s.mu.Lock()
	if s.closed || (n.UserID != "" && n.UserID != s.userID) {
		s.mu.Unlock()
		return
	}
	n = n.Clone()
	if i := s.indexLocked(n.ID); i >= 0 {
		s.items[i] = n
	} else {
		s.items = append([]*notification.Notification{n}, s.items...)
	}
	s.publishLocked()

	listeners := make([]func(*notification.Notification), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(n.Clone())
	}
}

// MarkRead flags one notification as read locally and remotely. A
// notification that is already read is left alone.
func (s *NotificationStore) MarkRead(ctx context.Context, id string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return apperrors.NotFound("Notification")
	}
	if s.items[i].IsRead {
		s.mu.Unlock()
		return nil
	}
	s.setReadLocked(i, true)
	token := s.writes.begin(id)
	s.publishLocked()
	s.mu.Unlock()

	err := s.repo.MarkRead(ctx, s.userID, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		s.writes.finish(id, token)
		return nil
	}

	s.logger.WithFields(map[string]interface{}{
		"notification_id": id,
	}).ErrorWithErr(err, "Failed to mark notification as read")

	if !s.closed && s.writes.owns(id, token) {
		if j := s.indexLocked(id); j >= 0 {
			s.setReadLocked(j, false)
			s.publishLocked()
		}
		s.writes.finish(id, token)
	}
	return err
}

// MarkAllRead flags every held unread notification as read with a single
// remote write. It does nothing when all are read.
func (s *NotificationStore) MarkAllRead(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	var ids []string
	for i, n := range s.items {
		if !n.IsRead {
			ids = append(ids, n.ID)
			s.setReadLocked(i, true)
		}
	}
	if len(ids) == 0 {
		s.mu.Unlock()
		return nil
	}
	token := s.writes.begin(ids...)
	s.publishLocked()
	s.mu.Unlock()

	err := s.repo.MarkAllRead(ctx, s.userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.logger.WithFields(map[string]interface{}{
			"notification_ids": ids,
		}).ErrorWithErr(err, "Failed to mark all notifications as read")
	}

	restored := false
	for _, id := range ids {
		if err != nil && !s.closed && s.writes.owns(id, token) {
			if j := s.indexLocked(id); j >= 0 {
				s.setReadLocked(j, false)
				restored = true
			}
		}
		s.writes.finish(id, token)
	}
	if restored {
		s.publishLocked()
	}
	return err
}

// SubscribeLive opens the push subscription of the user. Calling it while
// a subscription is open does nothing.
func (s *NotificationStore) SubscribeLive(ctx context.Context) error {
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
	stream, err := s.repo.Watch(liveCtx, s.userID)
	if err != nil {
		cancel()
		s.logger.ErrorWithErr(err, "Failed to subscribe to notifications")
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

	go s.follow(stream)
	return nil
}

func (s *NotificationStore) follow(stream notification.Stream) {
	defer s.wg.Done()
	for n := range stream.Events() {
		s.Insert(n)
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
		s.logger.Warn("Notification subscription ended")
	}
}

// Live reports whether the push subscription is open
func (s *NotificationStore) Live() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stream != nil
}

// Changes signals that the collection changed. Signals coalesce; the
// channel is closed by Close.
func (s *NotificationStore) Changes() <-chan struct{} {
	return s.changes
}

// Close ends the push subscription and disposes of the store
func (s *NotificationStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	stream, cancel := s.stream, s.cancel
	s.stream, s.cancel = nil, nil
	s.listeners = make(map[int]func(*notification.Notification))
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

	if s.opts.metrics {
		metrics.DeleteUnreadNotifications(s.userID)
	}
	return err
}

func (s *NotificationStore) indexLocked(id string) int {
	for i, n := range s.items {
		if n.ID == id {
			return i
		}
	}
	return -1
}

func (s *NotificationStore) setReadLocked(i int, read bool) {
	n := s.items[i].Clone()
	n.IsRead = read
	s.items[i] = n
}

func (s *NotificationStore) publishLocked() {
	s.changes.notify()
	if s.opts.metrics {
		metrics.SetUnreadNotifications(s.userID, float64(notification.CountUnread(s.items)))
	}
}
