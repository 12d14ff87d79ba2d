package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRealtime is a minimal channel server: it acknowledges joins and then
// hands the connection to script.
type fakeRealtime struct {
	upgrader websocket.Upgrader
	conns    atomic.Int32
	script   func(n int32, conn *websocket.Conn, topic string)
	reject   string
	joinBody chan map[string]interface{}
}

func (f *fakeRealtime) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	n := f.conns.Add(1)

	var join inbound
	if err := conn.ReadJSON(&join); err != nil || join.Event != eventJoin {
		return
	}
	if f.joinBody != nil {
		var payload map[string]interface{}
		_ = json.Unmarshal(join.Payload, &payload)
		select {
		case f.joinBody <- payload:
		default:
		}
	}

	reply := map[string]interface{}{"status": "ok", "response": map[string]interface{}{}}
	if f.reject != "" {
		reply = map[string]interface{}{"status": "error", "response": map[string]string{"reason": f.reject}}
	}
	_ = conn.WriteJSON(map[string]interface{}{
		"topic": join.Topic, "event": eventReply, "payload": reply, "ref": *join.Ref,
	})
	if f.reject != "" {
		return
	}
	if f.script != nil {
		f.script(n, conn, join.Topic)
	}
}

func sendChange(conn *websocket.Conn, topic, typ, id string) error {
	return conn.WriteJSON(map[string]interface{}{
		"topic": topic,
		"event": eventChanges,
		"ref":   nil,
		"payload": map[string]interface{}{
			"data": map[string]interface{}{
				"type":             typ,
				"schema":           "public",
				"table":            "notifications",
				"commit_timestamp": "2024-05-01T10:00:00Z",
				"record":           map[string]interface{}{"id": id},
			},
		},
	})
}

// drain keeps the connection open until the peer goes away.
func drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func newRealtimeClient(t *testing.T, f *fakeRealtime) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return New(Config{
		BaseURL: srv.URL,
		AnonKey: "anon-key",
		Timeout: 5 * time.Second,
		Realtime: RealtimeConfig{
			Heartbeat:     time.Hour,
			ReconnectBase: 10 * time.Millisecond,
			ReconnectMax:  50 * time.Millisecond,
			JoinTimeout:   2 * time.Second,
		},
	})
}

func nextEvent(t *testing.T, sub *Subscription) ChangeEvent {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		require.True(t, ok, "event channel closed early")
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for change event")
		return ChangeEvent{}
	}
}

func TestSubscribeDeliversEventsInOrder(t *testing.T) {
	f := &fakeRealtime{
		joinBody: make(chan map[string]interface{}, 1),
		script: func(_ int32, conn *websocket.Conn, topic string) {
			for _, id := range []string{"a", "b", "c"} {
				if err := sendChange(conn, topic, "INSERT", id); err != nil {
					return
				}
			}
			drain(conn)
		},
	}
	c := newRealtimeClient(t, f).WithSession(&Session{AccessToken: "user-token", User: User{ID: "u1"}})

	sub, err := c.Subscribe(context.Background(), Filter{Table: "notifications", Event: ChangeInsert, Filter: "user_id=eq.u1"})
	require.NoError(t, err)
	defer sub.Close()

	join := <-f.joinBody
	assert.Equal(t, "user-token", join["access_token"])
	cfg := join["config"].(map[string]interface{})
	changes := cfg["postgres_changes"].([]interface{})
	require.Len(t, changes, 1)
	assert.Equal(t, "user_id=eq.u1", changes[0].(map[string]interface{})["filter"])

	for _, want := range []string{"a", "b", "c"} {
		ev := nextEvent(t, sub)
		assert.Equal(t, ChangeInsert, ev.Type)
		assert.Equal(t, want, ev.Record["id"])
		assert.False(t, ev.CommitTimestamp.IsZero())
	}
}

func TestSubscriptionReconnectsAfterDrop(t *testing.T) {
	f := &fakeRealtime{
		script: func(n int32, conn *websocket.Conn, topic string) {
			if n == 1 {
				_ = sendChange(conn, topic, "INSERT", "before-drop")
				return
			}
			_ = sendChange(conn, topic, "INSERT", "after-drop")
			drain(conn)
		},
	}
	c := newRealtimeClient(t, f)

	sub, err := c.Subscribe(context.Background(), Filter{Table: "notifications"})
	require.NoError(t, err)
	defer sub.Close()

	assert.Equal(t, "before-drop", nextEvent(t, sub).Record["id"])
	assert.Equal(t, "after-drop", nextEvent(t, sub).Record["id"])
	assert.GreaterOrEqual(t, f.conns.Load(), int32(2))
}

func TestCloseEndsEventStream(t *testing.T) {
	f := &fakeRealtime{script: func(_ int32, conn *websocket.Conn, _ string) { drain(conn) }}
	c := newRealtimeClient(t, f)

	sub, err := c.Subscribe(context.Background(), Filter{Table: "alerts"})
	require.NoError(t, err)

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	_, ok := <-sub.Events()
	assert.False(t, ok)
	assert.NoError(t, sub.Err())
}

func TestCancelledContextEndsSubscription(t *testing.T) {
	f := &fakeRealtime{script: func(_ int32, conn *websocket.Conn, _ string) { drain(conn) }}
	c := newRealtimeClient(t, f)

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := c.Subscribe(ctx, Filter{Table: "alerts"})
	require.NoError(t, err)

	cancel()
	select {
	case <-sub.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("subscription did not stop after cancel")
	}
}

func TestJoinRejectedWithAuthReason(t *testing.T) {
	f := &fakeRealtime{reject: "Invalid JWT token"}
	c := newRealtimeClient(t, f)

	_, err := c.Subscribe(context.Background(), Filter{Table: "notifications"})
	require.Error(t, err)
	assert.True(t, IsAuth(err))
}

func TestSubscribeRequiresTable(t *testing.T) {
	c := New(Config{BaseURL: "http://localhost:1"})
	_, err := c.Subscribe(context.Background(), Filter{})
	assert.Error(t, err)
}
