package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hawksec/hawk/internal/app"
	"github.com/hawksec/hawk/internal/domain/notification"
	"github.com/hawksec/hawk/internal/pkg/logger"
)

// Stream event types
const (
	EventConnected     = "connected"
	EventNotification  = "notification"
	EventUnreadCount   = "unread_count"
	EventSessionClosed = "session_closed"
)

// StreamMessage is one server-sent event
type StreamMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// StreamClient is one open event stream
type StreamClient struct {
	ID        string
	UserID    string
	MessageCh chan []byte
	Done      chan struct{}
}

// userFeed fans one session's notification store out to that user's
// open streams
type userFeed struct {
	session *app.Session
	clients map[string]*StreamClient
	detach  func()
	stop    chan struct{}
}

// StreamHub pushes notification inserts and unread counts to connected
// browsers over server-sent events
type StreamHub struct {
	mu        sync.Mutex
	feeds     map[string]*userFeed
	logger    *logger.Logger
	heartbeat time.Duration
}

// NewStreamHub creates a hub. heartbeat is the keep-alive comment interval.
func NewStreamHub(log *logger.Logger, heartbeat time.Duration) *StreamHub {
	if heartbeat <= 0 {
		heartbeat = 25 * time.Second
	}
	return &StreamHub{
		feeds:     make(map[string]*userFeed),
		logger:    log,
		heartbeat: heartbeat,
	}
}

// Clients returns how many streams userID has open
func (h *StreamHub) Clients(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if f, ok := h.feeds[userID]; ok {
		return len(f.clients)
	}
	return 0
}

// Shutdown ends every open stream
func (h *StreamHub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, f := range h.feeds {
		h.dropClientsLocked(f)
		h.closeFeedLocked(userID, f)
	}
}

// HandleStream serves GET /notifications/stream
// @Summary Notification stream
// @Description Server-sent events: notification inserts and unread count changes
// @Tags Notifications
// @Produce text/event-stream
// @Success 200 {object} StreamMessage
// @Security BearerAuth
// @Router /notifications/stream [get]
func (h *StreamHub) HandleStream(w http.ResponseWriter, r *http.Request) {
	s, ok := currentSession(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	// streams outlive the server write timeout
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	client := &StreamClient{
		ID:        uuid.NewString(),
		UserID:    s.User.ID,
		MessageCh: make(chan []byte, 64),
		Done:      make(chan struct{}),
	}
	h.register(s, client)
	defer h.unregister(client)

	w.WriteHeader(http.StatusOK)
	if data, err := encode(EventConnected, map[string]interface{}{
		"clientId":    client.ID,
		"unreadCount": s.Notifications.UnreadCount(),
	}); err == nil {
		writeEvent(w, data)
		flusher.Flush()
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case msg := <-client.MessageCh:
			writeEvent(w, msg)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case <-client.Done:
			// drain what was queued before the feed closed
			for {
				select {
				case msg := <-client.MessageCh:
					writeEvent(w, msg)
				default:
					flusher.Flush()
					return
				}
			}
		case <-r.Context().Done():
			return
		}
	}
}

func (h *StreamHub) register(s *app.Session, c *StreamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	f, ok := h.feeds[c.UserID]
	if ok && f.session != s {
		// the user signed in again; the old session's feed is gone
		h.dropClientsLocked(f)
		h.closeFeedLocked(c.UserID, f)
		ok = false
	}
	if !ok {
		f = h.openFeedLocked(s)
	}
	f.clients[c.ID] = c

	h.logger.WithFields(map[string]interface{}{
		"client_id": c.ID,
		"user_id":   c.UserID,
	}).Info("Stream client connected")
}

func (h *StreamHub) unregister(c *StreamClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	f, ok := h.feeds[c.UserID]
	if !ok {
		return
	}
	if _, ok := f.clients[c.ID]; !ok {
		return
	}
	delete(f.clients, c.ID)
	h.logger.WithFields(map[string]interface{}{
		"client_id": c.ID,
		"user_id":   c.UserID,
	}).Info("Stream client disconnected")

	if len(f.clients) == 0 {
		h.closeFeedLocked(c.UserID, f)
	}
}

func (h *StreamHub) openFeedLocked(s *app.Session) *userFeed {
	userID := s.User.ID
	f := &userFeed{
		session: s,
		clients: make(map[string]*StreamClient),
		stop:    make(chan struct{}),
	}
	f.detach = s.Notifications.OnInsert(func(n *notification.Notification) {
		h.publish(f, EventNotification, n)
	})
	h.feeds[userID] = f

	// clients learn the current count from their connected event
	go h.watch(userID, f, s.Notifications.UnreadCount())
	return f
}

func (h *StreamHub) closeFeedLocked(userID string, f *userFeed) {
	if h.feeds[userID] == f {
		delete(h.feeds, userID)
	}
	f.detach()
	select {
	case <-f.stop:
	default:
		close(f.stop)
	}
}

// watch turns store change signals into unread count events until the
// feed stops or the session's store closes. Only changes from last are
// published.
func (h *StreamHub) watch(userID string, f *userFeed, last int) {
	changes := f.session.Notifications.Changes()
	for {
		select {
		case <-f.stop:
			return
		case _, ok := <-changes:
			if !ok {
				h.endFeed(userID, f)
				return
			}
			count := f.session.Notifications.UnreadCount()
			if count == last {
				continue
			}
			last = count
			h.publish(f, EventUnreadCount, map[string]int{"unreadCount": count})
		}
	}
}

// endFeed tells the clients of a closed session to go away
func (h *StreamHub) endFeed(userID string, f *userFeed) {
	h.publish(f, EventSessionClosed, nil)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropClientsLocked(f)
	h.closeFeedLocked(userID, f)
}

func (h *StreamHub) dropClientsLocked(f *userFeed) {
	for _, c := range f.clients {
		close(c.Done)
	}
	f.clients = make(map[string]*StreamClient)
}

func (h *StreamHub) publish(f *userFeed, eventType string, data interface{}) {
	msg, err := encode(eventType, data)
	if err != nil {
		h.logger.ErrorWithErr(err, "Failed to encode stream message")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range f.clients {
		select {
		case c.MessageCh <- msg:
		default:
			// slow client, drop
		}
	}
}

func encode(eventType string, data interface{}) ([]byte, error) {
	return json.Marshal(StreamMessage{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
}

func writeEvent(w http.ResponseWriter, data []byte) {
	fmt.Fprintf(w, "data: %s\n\n", data)
}
