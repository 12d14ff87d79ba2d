package supabase

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hawksec/hawk/internal/domain/alert"
	"github.com/hawksec/hawk/internal/domain/oem"
	"github.com/hawksec/hawk/internal/domain/settings"
	"github.com/hawksec/hawk/internal/gateway"
	apperrors "github.com/hawksec/hawk/internal/pkg/errors"
)

type recorded struct {
	Method string
	Path   string
	Query  url.Values
	Prefer string
	Body   interface{}
}

// fakeBackend answers REST calls from a table of canned responses keyed by
// "METHOD /path" and records every request.
type fakeBackend struct {
	mu        sync.Mutex
	requests  []recorded
	responses map[string]string
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var body interface{}
	_ = json.Unmarshal(raw, &body)

	f.mu.Lock()
	f.requests = append(f.requests, recorded{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Prefer: r.Header.Get("Prefer"),
		Body:   body,
	})
	resp, ok := f.responses[r.Method+" "+r.URL.Path]
	f.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(resp))
}

func (f *fakeBackend) last(t *testing.T) recorded {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

func newFake(t *testing.T, responses map[string]string) (*fakeBackend, *gateway.Client) {
	t.Helper()
	f := &fakeBackend{responses: responses}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	c := gateway.New(gateway.Config{BaseURL: srv.URL, AnonKey: "anon", Timeout: 5 * time.Second})
	return f, c.WithSession(&gateway.Session{AccessToken: "tok", User: gateway.User{ID: "u1"}})
}

func TestAlertRepository(t *testing.T) {
	f, c := newFake(t, map[string]string{
		"GET /rest/v1/alerts": `[
			{"id":"a2","title":"B","severity":"high","status":"new","system":"Web","date":"2024-01-03"},
			{"id":"a1","title":"A","severity":"low","status":"resolved","system":"DB","date":"2024-01-01"}
		]`,
	})
	repo := NewAlertRepository(c)

	alerts, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, "a2", alerts[0].ID)
	assert.Equal(t, "date.desc", f.last(t).Query.Get("order"))

	require.NoError(t, repo.UpdateStatus(context.Background(), "a1", alert.StatusAcknowledged))
	req := f.last(t)
	assert.Equal(t, http.MethodPatch, req.Method)
	assert.Equal(t, "eq.a1", req.Query.Get("id"))
	assert.Equal(t, map[string]interface{}{"status": "acknowledged"}, req.Body)
}

func TestNotificationRepository(t *testing.T) {
	f, c := newFake(t, map[string]string{
		"GET /rest/v1/notifications": `[{"id":"n1","user_id":"u1","title":"t","content":"c","type":"scan","is_read":false,"created_at":"2024-05-01T10:00:00Z"}]`,
	})
	repo := NewNotificationRepository(c)

	items, err := repo.ListRecent(context.Background(), "u1", 0)
	require.NoError(t, err)
	require.Len(t, items, 1)

	q := f.last(t).Query
	assert.Equal(t, "eq.u1", q.Get("user_id"))
	assert.Equal(t, "created_at.desc", q.Get("order"))
	assert.Equal(t, "50", q.Get("limit"))

	require.NoError(t, repo.MarkRead(context.Background(), "u1", "n1"))
	req := f.last(t)
	assert.Equal(t, "eq.n1", req.Query.Get("id"))
	assert.Equal(t, "eq.u1", req.Query.Get("user_id"))
	assert.Equal(t, map[string]interface{}{"is_read": true}, req.Body)

	require.NoError(t, repo.MarkAllRead(context.Background(), "u1"))
	req = f.last(t)
	assert.Equal(t, "eq.false", req.Query.Get("is_read"))
	assert.Equal(t, "eq.u1", req.Query.Get("user_id"))
}

func TestOEMRepositoryCreateNormalizesURL(t *testing.T) {
	f, c := newFake(t, map[string]string{
		"POST /rest/v1/oem_sources":  `[{"id":"o1","user_id":"u1","name":"Cisco","url":"https://cisco.com/psirt","system_type":"network","is_active":true,"created_at":"2024-01-01T00:00:00Z"}]`,
		"PATCH /rest/v1/oem_sources": `[]`,
	})
	repo := NewOEMRepository(c)

	src, err := repo.Create(context.Background(), "u1", oem.CreateInput{Name: "Cisco", URL: "cisco.com/psirt", SystemType: "network"})
	require.NoError(t, err)
	assert.Equal(t, "o1", src.ID)

	req := f.last(t)
	assert.Equal(t, "return=representation", req.Prefer)
	rows := req.Body.([]interface{})
	payload := rows[0].(map[string]interface{})
	assert.Equal(t, "https://cisco.com/psirt", payload["url"])
	assert.Equal(t, "u1", payload["user_id"])
	assert.Equal(t, true, payload["is_active"])

	name := "Renamed"
	_, err = repo.Update(context.Background(), "u1", "missing", oem.UpdateInput{Name: &name})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
}

func TestSettingsRepository(t *testing.T) {
	t.Run("missing row", func(t *testing.T) {
		_, c := newFake(t, map[string]string{"GET /rest/v1/user_systems": `[]`})
		us, err := NewSettingsRepository(c).Get(context.Background(), "u1")
		require.NoError(t, err)
		assert.Nil(t, us)
	})

	t.Run("insert then update", func(t *testing.T) {
		saved := `[{"id":"s1","user_id":"u1","system_name":"Auto Monitor","monitoring_settings":{"autoScanEnabled":true,"scanInterval":12}}]`
		f, c := newFake(t, map[string]string{
			"POST /rest/v1/user_systems":  saved,
			"PATCH /rest/v1/user_systems": saved,
		})
		repo := NewSettingsRepository(c)

		us := &settings.UserSystem{
			UserID:     "u1",
			SystemName: settings.MonitorSystemName,
			Settings:   settings.Document{Monitoring: settings.Monitoring{AutoScanEnabled: true, ScanInterval: 12}},
		}
		out, err := repo.Save(context.Background(), us)
		require.NoError(t, err)
		assert.Equal(t, "s1", out.ID)
		assert.Equal(t, http.MethodPost, f.last(t).Method)

		_, err = repo.Save(context.Background(), out)
		require.NoError(t, err)
		req := f.last(t)
		assert.Equal(t, http.MethodPatch, req.Method)
		assert.Equal(t, "eq.s1", req.Query.Get("id"))
	})
}

func TestTrendRepositoryOrdersAscending(t *testing.T) {
	f, c := newFake(t, map[string]string{"GET /rest/v1/vulnerability_trends": `[]`})
	_, err := NewTrendRepository(c).List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "date.asc", f.last(t).Query.Get("order"))
}
