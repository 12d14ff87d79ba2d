package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/hawksec/hawk/internal/pkg/logger"
	"github.com/hawksec/hawk/internal/pkg/metrics"
)

const (
	writeWait   = 10 * time.Second
	realtimeVSN = "1.0.0"

	eventJoin     = "phx_join"
	eventLeave    = "phx_leave"
	eventReply    = "phx_reply"
	eventError    = "phx_error"
	eventClose    = "phx_close"
	eventChanges  = "postgres_changes"
	eventSystem   = "system"
	eventBeat     = "heartbeat"
	phoenixTopic  = "phoenix"
	defaultSchema = "public"
)

// ChangeType is the kind of row change pushed by the backend
type ChangeType string

const (
	ChangeAll    ChangeType = "*"
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// Filter selects the change events a subscription receives
type Filter struct {
	Schema string     // default "public"
	Table  string     // required
	Event  ChangeType // default ChangeAll
	Filter string     // row filter, e.g. "user_id=eq.42"
}

func (f Filter) String() string {
	s := fmt.Sprintf("%s.%s:%s", f.Schema, f.Table, f.Event)
	if f.Filter != "" {
		s += "[" + f.Filter + "]"
	}
	return s
}

// ChangeEvent is one row change delivered over a subscription
type ChangeEvent struct {
	Type            ChangeType
	Schema          string
	Table           string
	Record          Row
	OldRecord       Row
	CommitTimestamp time.Time
}

type inbound struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	Ref     *string         `json:"ref"`
}

type outbound struct {
	Topic   string      `json:"topic"`
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
	Ref     string      `json:"ref"`
	JoinRef string      `json:"join_ref,omitempty"`
}

type changePayload struct {
	Data struct {
		Type            string `json:"type"`
		Schema          string `json:"schema"`
		Table           string `json:"table"`
		CommitTimestamp string `json:"commit_timestamp"`
		Record          Row    `json:"record"`
		OldRecord       Row    `json:"old_record"`
	} `json:"data"`
}

// Subscription is a live feed of change events. Events arrive on the
// Events channel in the order the backend emitted them. A dropped
// connection is re-established with exponential backoff, so the feed only
// ends on Close, on cancellation of the subscribing context, or when the
// backend rejects the session.
type Subscription struct {
	client *Client
	filter Filter
	topic  string
	log    *logger.Logger

	events chan ChangeEvent
	done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc

	writeMu sync.Mutex
	conn    *websocket.Conn

	ref       atomic.Uint64
	closeOnce sync.Once

	errMu sync.Mutex
	err   error
}

// Subscribe opens a realtime subscription. The subscription lives until
// Close is called or ctx is cancelled; the initial connect and join must
// succeed before Subscribe returns.
func (c *Client) Subscribe(ctx context.Context, f Filter) (*Subscription, error) {
	if f.Table == "" {
		return nil, fmt.Errorf("gateway: subscribe requires a table")
	}
	if f.Schema == "" {
		f.Schema = defaultSchema
	}
	if f.Event == "" {
		f.Event = ChangeAll
	}

	subCtx, cancel := context.WithCancel(ctx)
	s := &Subscription{
		client: c,
		filter: f,
		topic:  "realtime:" + f.Table + "-" + uuid.NewString(),
		log:    c.logger.With("subscription", f.String()),
		events: make(chan ChangeEvent, 64),
		done:   make(chan struct{}),
		ctx:    subCtx,
		cancel: cancel,
	}

	conn, err := s.connect(subCtx)
	if err != nil {
		cancel()
		return nil, err
	}

	metrics.SubscriptionOpened()
	s.log.Info("Realtime subscription opened")
	go s.run(conn)
	return s, nil
}

// Events returns the channel of change events. It is closed when the
// subscription ends.
func (s *Subscription) Events() <-chan ChangeEvent {
	return s.events
}

// All returns the events as a sequence that ends with the subscription.
func (s *Subscription) All() iter.Seq[ChangeEvent] {
	return func(yield func(ChangeEvent) bool) {
		for ev := range s.events {
			if !yield(ev) {
				return
			}
		}
	}
}

// Done is closed once the subscription has fully stopped
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Err returns the error that ended the subscription, if it ended for a
// reason other than Close or context cancellation.
func (s *Subscription) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// Filter returns the filter the subscription was opened with
func (s *Subscription) Filter() Filter {
	return s.filter
}

// Close leaves the channel and closes the connection. It is safe to call
// more than once and waits until the event channel is closed.
func (s *Subscription) Close() error {
	s.closeOnce.Do(func() {
		s.writeMu.Lock()
		if s.conn != nil {
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.conn.WriteJSON(outbound{Topic: s.topic, Event: eventLeave, Payload: struct{}{}, Ref: s.nextRef()})
			_ = s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		}
		s.writeMu.Unlock()
		s.cancel()
	})
	<-s.done
	return nil
}

func (s *Subscription) nextRef() string {
	return strconv.FormatUint(s.ref.Add(1), 10)
}

func (s *Subscription) setErr(err error) {
	s.errMu.Lock()
	s.err = err
	s.errMu.Unlock()
}

func (s *Subscription) socketURL() (string, error) {
	u, err := url.Parse(s.client.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid backend url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/realtime/v1/websocket"
	u.RawQuery = url.Values{"apikey": {s.client.anonKey}, "vsn": {realtimeVSN}}.Encode()
	return u.String(), nil
}

func (s *Subscription) connect(ctx context.Context) (*websocket.Conn, error) {
	wsURL, err := s.socketURL()
	if err != nil {
		return nil, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, s.client.realtime.JoinTimeout)
	defer cancel()

	conn, resp, err := s.client.dialer.DialContext(dialCtx, wsURL, nil)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, &AuthError{StatusCode: resp.StatusCode, Message: "realtime connection rejected", Err: err}
		}
		return nil, &NetworkError{Op: "subscribe " + s.filter.Table, Err: err}
	}

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	err = s.join(conn)
	stop()
	if err != nil {
		conn.Close()
		return nil, err
	}

	s.writeMu.Lock()
	s.conn = conn
	s.writeMu.Unlock()
	return conn, nil
}

func (s *Subscription) join(conn *websocket.Conn) error {
	ref := s.nextRef()

	change := map[string]interface{}{
		"event":  string(s.filter.Event),
		"schema": s.filter.Schema,
		"table":  s.filter.Table,
	}
	if s.filter.Filter != "" {
		change["filter"] = s.filter.Filter
	}
	payload := map[string]interface{}{
		"config": map[string]interface{}{
			"broadcast":        map[string]bool{"ack": false, "self": false},
			"presence":         map[string]string{"key": ""},
			"postgres_changes": []interface{}{change},
		},
		"access_token": s.client.bearer(),
	}

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(outbound{Topic: s.topic, Event: eventJoin, Payload: payload, Ref: ref, JoinRef: ref}); err != nil {
		return &NetworkError{Op: "join " + s.filter.Table, Err: err}
	}

	_ = conn.SetReadDeadline(time.Now().Add(s.client.realtime.JoinTimeout))
	defer conn.SetReadDeadline(time.Time{})

	for {
		var msg inbound
		if err := conn.ReadJSON(&msg); err != nil {
			return &NetworkError{Op: "join " + s.filter.Table, Err: err}
		}
		if msg.Event != eventReply || msg.Ref == nil || *msg.Ref != ref {
			continue
		}

		var reply struct {
			Status   string `json:"status"`
			Response struct {
				Reason string `json:"reason"`
			} `json:"response"`
		}
		if err := json.Unmarshal(msg.Payload, &reply); err != nil {
			return fmt.Errorf("gateway: invalid join reply: %w", err)
		}
		if reply.Status == "ok" {
			return nil
		}

		reason := reply.Response.Reason
		lower := strings.ToLower(reason)
		if strings.Contains(lower, "token") || strings.Contains(lower, "auth") || strings.Contains(lower, "jwt") {
			return &AuthError{Message: reason}
		}
		return fmt.Errorf("gateway: join %s refused: %s", s.filter.Table, reason)
	}
}

func (s *Subscription) write(conn *websocket.Conn, msg outbound) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}

func (s *Subscription) run(conn *websocket.Conn) {
	defer func() {
		metrics.SubscriptionClosed()
		close(s.events)
		close(s.done)
		s.log.Info("Realtime subscription closed")
	}()

	for {
		err := s.serve(conn)
		if s.ctx.Err() != nil {
			return
		}

		s.log.WarnWithErr(err, "Realtime connection lost, reconnecting")
		conn, err = s.reconnect()
		if err != nil {
			if s.ctx.Err() == nil {
				s.setErr(err)
				s.log.ErrorWithErr(err, "Realtime subscription gave up")
			}
			return
		}
	}
}

func (s *Subscription) reconnect() (*websocket.Conn, error) {
	delay := s.client.realtime.ReconnectBase
	for {
		timer := time.NewTimer(delay)
		select {
		case <-s.ctx.Done():
			timer.Stop()
			return nil, s.ctx.Err()
		case <-timer.C:
		}

		metrics.RecordRealtimeReconnect(s.filter.Table)
		conn, err := s.connect(s.ctx)
		if err == nil {
			s.log.Info("Realtime subscription re-established")
			return conn, nil
		}
		if IsAuth(err) {
			return nil, err
		}

		s.log.WithFields(map[string]interface{}{"retry_in": (delay * 2).String()}).WarnWithErr(err, "Realtime reconnect failed")
		delay *= 2
		if delay > s.client.realtime.ReconnectMax {
			delay = s.client.realtime.ReconnectMax
		}
	}
}

// serve reads from one connection until it fails or the subscription ends.
func (s *Subscription) serve(conn *websocket.Conn) error {
	stopBeat := make(chan struct{})
	go s.heartbeat(conn, stopBeat)

	stop := context.AfterFunc(s.ctx, func() { conn.Close() })
	defer func() {
		stop()
		close(stopBeat)
		conn.Close()
	}()

	for {
		var msg inbound
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}
		if msg.Topic != s.topic {
			continue
		}

		switch msg.Event {
		case eventChanges:
			ev, err := decodeChange(msg.Payload)
			if err != nil {
				s.log.WarnWithErr(err, "Dropping malformed change event")
				continue
			}
			metrics.RecordRealtimeEvent(ev.Table, string(ev.Type))
			select {
			case s.events <- ev:
			case <-s.ctx.Done():
				return s.ctx.Err()
			}
		case eventError, eventClose:
			return fmt.Errorf("channel closed by server (%s)", msg.Event)
		case eventSystem:
			var sys struct {
				Status  string `json:"status"`
				Message string `json:"message"`
			}
			if json.Unmarshal(msg.Payload, &sys) == nil && sys.Status == "error" {
				s.log.Warnf("Realtime system error: %s", sys.Message)
			}
		}
	}
}

func (s *Subscription) heartbeat(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(s.client.realtime.Heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			msg := outbound{Topic: phoenixTopic, Event: eventBeat, Payload: struct{}{}, Ref: s.nextRef()}
			if err := s.write(conn, msg); err != nil {
				conn.Close()
				return
			}
		}
	}
}

func decodeChange(raw json.RawMessage) (ChangeEvent, error) {
	var p changePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return ChangeEvent{}, err
	}
	if p.Data.Type == "" {
		return ChangeEvent{}, fmt.Errorf("change event without type")
	}

	ev := ChangeEvent{
		Type:      ChangeType(strings.ToUpper(p.Data.Type)),
		Schema:    p.Data.Schema,
		Table:     p.Data.Table,
		Record:    p.Data.Record,
		OldRecord: p.Data.OldRecord,
	}
	if ts, err := time.Parse(time.RFC3339Nano, p.Data.CommitTimestamp); err == nil {
		ev.CommitTimestamp = ts
	}
	return ev, nil
}
