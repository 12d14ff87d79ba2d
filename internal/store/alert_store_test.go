package store

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hawksec/hawk/internal/domain/alert"
	apperrors "github.com/hawksec/hawk/internal/pkg/errors"
	"github.com/hawksec/hawk/internal/pkg/logger"
	"github.com/hawksec/hawk/internal/testutil"
)

func strPtr(s string) *string { return &s }

func sampleAlerts() []*alert.Alert {
	sqli := testutil.NewAlert("a1", "Critical SQL Injection Vulnerability", alert.SeverityCritical, alert.StatusNew, testutil.Day(2024, 1, 3))
	sqli.CVE = strPtr("CVE-2024-1234")
	sqli.System = "Database Server"

	weak := testutil.NewAlert("a2", "Weak Password Policy", alert.SeverityMedium, alert.StatusAcknowledged, testutil.Day(2024, 1, 2))
	weak.System = "Auth Service"

	xss := testutil.NewAlert("a3", "Reflected XSS", alert.SeverityHigh, alert.StatusNew, testutil.Day(2024, 1, 1))
	xss.Description = "Search box echoes unescaped input"

	tls := testutil.NewAlert("a4", "Outdated TLS", alert.SeverityLow, alert.StatusResolved, testutil.Day(2023, 12, 30))
	return []*alert.Alert{sqli, weak, xss, tls}
}

func loadedAlertStore(t *testing.T, alerts ...*alert.Alert) (*AlertStore, *testutil.MockAlertRepository) {
	t.Helper()
	repo := testutil.NewMockAlertRepository(alerts...)
	s := NewAlertStore(repo, logger.NewNop())
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Load(context.Background()))
	return s, repo
}

func ids(alerts []*alert.Alert) []string {
	out := make([]string, len(alerts))
	for i, a := range alerts {
		out[i] = a.ID
	}
	return out
}

func TestAlertStore_LoadOrdersNewestFirst(t *testing.T) {
	s, _ := loadedAlertStore(t,
		testutil.NewAlert("jan1", "one", alert.SeverityLow, alert.StatusNew, testutil.Day(2024, 1, 1)),
		testutil.NewAlert("jan3", "three", alert.SeverityLow, alert.StatusNew, testutil.Day(2024, 1, 3)),
		testutil.NewAlert("jan2", "two", alert.SeverityLow, alert.StatusNew, testutil.Day(2024, 1, 2)),
	)

	assert.Equal(t, []string{"jan3", "jan2", "jan1"}, ids(s.Alerts()))
}

func TestAlertStore_LoadFallsBackToCreatedAt(t *testing.T) {
	created := testutil.Day(2024, 2, 1)
	undated := testutil.NewAlert("undated", "no date", alert.SeverityLow, alert.StatusNew, time.Time{})
	undated.CreatedAt = &created

	s, _ := loadedAlertStore(t,
		testutil.NewAlert("old", "old", alert.SeverityLow, alert.StatusNew, testutil.Day(2024, 1, 1)),
		undated,
	)

	assert.Equal(t, []string{"undated", "old"}, ids(s.Alerts()))
}

func TestAlertStore_LoadReplacesCollection(t *testing.T) {
	s, repo := loadedAlertStore(t, sampleAlerts()...)
	require.Equal(t, 4, s.Len())

	repo.SetAlerts(testutil.NewAlert("only", "only", alert.SeverityHigh, alert.StatusNew, testutil.Day(2024, 3, 1)))
	require.NoError(t, s.Load(context.Background()))

	assert.Equal(t, []string{"only"}, ids(s.Alerts()))
}

func TestAlertStore_LoadErrorKeepsState(t *testing.T) {
	s, repo := loadedAlertStore(t, sampleAlerts()...)
	repo.ListError = errors.New("network down")

	err := s.Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, 4, s.Len())
}

func TestAlertStore_ApplyFilter(t *testing.T) {
	s, _ := loadedAlertStore(t, sampleAlerts()...)

	tests := []struct {
		name   string
		filter alert.Filter
		want   []string
	}{
		{
			name:   "empty filter returns everything in order",
			filter: alert.Filter{},
			want:   []string{"a1", "a2", "a3", "a4"},
		},
		{
			name:   "search matches title case-insensitively",
			filter: alert.Filter{Search: "sql"},
			want:   []string{"a1"},
		},
		{
			name:   "search matches system",
			filter: alert.Filter{Search: "AUTH service"},
			want:   []string{"a2"},
		},
		{
			name:   "search matches cve",
			filter: alert.Filter{Search: "cve-2024"},
			want:   []string{"a1"},
		},
		{
			name:   "search matches description",
			filter: alert.Filter{Search: "unescaped"},
			want:   []string{"a3"},
		},
		{
			name:   "severities are ORed",
			filter: alert.Filter{Severities: []alert.Severity{alert.SeverityCritical, alert.SeverityLow}},
			want:   []string{"a1", "a4"},
		},
		{
			name:   "statuses are ORed",
			filter: alert.Filter{Statuses: []alert.Status{alert.StatusAcknowledged, alert.StatusResolved}},
			want:   []string{"a2", "a4"},
		},
		{
			name: "dimensions are ANDed",
			filter: alert.Filter{
				Severities: []alert.Severity{alert.SeverityCritical, alert.SeverityHigh},
				Statuses:   []alert.Status{alert.StatusNew},
			},
			want: []string{"a1", "a3"},
		},
		{
			name: "search and sets together",
			filter: alert.Filter{
				Search:     "x",
				Severities: []alert.Severity{alert.SeverityHigh},
				Statuses:   []alert.Status{alert.StatusNew},
			},
			want: []string{"a3"},
		},
		{
			name:   "nothing matches",
			filter: alert.Filter{Search: "kubernetes"},
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(s.ApplyFilter(tt.filter)))
		})
	}

	// the base collection is untouched
	assert.Equal(t, []string{"a1", "a2", "a3", "a4"}, ids(s.Alerts()))
}

func TestAlertStore_ApplyFilterSingleSeverityAndStatus(t *testing.T) {
	s, _ := loadedAlertStore(t, sampleAlerts()...)
	all := s.Alerts()

	for _, sev := range alert.Severities {
		for _, st := range alert.Statuses {
			got := s.ApplyFilter(alert.Filter{Severities: []alert.Severity{sev}, Statuses: []alert.Status{st}})
			var want []string
			for _, a := range all {
				if a.Severity == sev && a.Status == st {
					want = append(want, a.ID)
				}
			}
			assert.ElementsMatch(t, want, ids(got), "severity=%s status=%s", sev, st)
		}
	}
}

func TestAlertStore_SearchScenario(t *testing.T) {
	s, _ := loadedAlertStore(t,
		testutil.NewAlert("1", "Critical SQL Injection Vulnerability", alert.SeverityCritical, alert.StatusNew, testutil.Day(2024, 1, 2)),
		testutil.NewAlert("2", "Weak Password Policy", alert.SeverityMedium, alert.StatusNew, testutil.Day(2024, 1, 1)),
	)

	got := s.ApplyFilter(alert.Filter{Search: "sql"})
	require.Len(t, got, 1)
	assert.Equal(t, "Critical SQL Injection Vulnerability", got[0].Title)
}

func TestAlertStore_SetStatus(t *testing.T) {
	s, repo := loadedAlertStore(t, sampleAlerts()...)
	ctx := context.Background()

	require.NoError(t, s.SetStatus(ctx, "a1", alert.StatusAcknowledged))
	once := s.Alerts()

	require.NoError(t, s.SetStatus(ctx, "a1", alert.StatusAcknowledged))
	twice := s.Alerts()

	assert.Equal(t, once, twice)
	a, ok := s.Get("a1")
	require.True(t, ok)
	assert.Equal(t, alert.StatusAcknowledged, a.Status)

	require.Len(t, repo.Updates, 2)
	assert.Equal(t, testutil.StatusUpdate{ID: "a1", Status: alert.StatusAcknowledged}, repo.Updates[0])
}

func TestAlertStore_SetStatusReopen(t *testing.T) {
	s, _ := loadedAlertStore(t, sampleAlerts()...)

	require.NoError(t, s.SetStatus(context.Background(), "a4", alert.StatusResolved.Reopen()))

	a, _ := s.Get("a4")
	assert.Equal(t, alert.StatusNew, a.Status)
}

func TestAlertStore_SetStatusRejectsBadInput(t *testing.T) {
	s, repo := loadedAlertStore(t, sampleAlerts()...)

	err := s.SetStatus(context.Background(), "a1", alert.Status("archived"))
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))

	err = s.SetStatus(context.Background(), "missing", alert.StatusResolved)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))

	assert.Zero(t, repo.UpdateCount())
}

func TestAlertStore_SetStatusRollsBackOnFailure(t *testing.T) {
	s, repo := loadedAlertStore(t, sampleAlerts()...)
	repo.UpdateError = errors.New("write rejected")

	err := s.SetStatus(context.Background(), "a1", alert.StatusResolved)
	require.Error(t, err)

	a, _ := s.Get("a1")
	assert.Equal(t, alert.StatusNew, a.Status)
}

func TestAlertStore_RollbackSkipsSupersededWrite(t *testing.T) {
	s, repo := loadedAlertStore(t, sampleAlerts()...)

	release := make(chan struct{})
	entered := make(chan struct{})
	var calls int32
	repo.UpdateFunc = func(ctx context.Context, id string, status alert.Status) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(entered)
			<-release
			return errors.New("first write lost")
		}
		return nil
	}

	errc := make(chan error, 1)
	go func() {
		errc <- s.SetStatus(context.Background(), "a1", alert.StatusAcknowledged)
	}()
	<-entered

	// a second edit lands while the first is still in flight
	require.NoError(t, s.SetStatus(context.Background(), "a1", alert.StatusResolved))
	close(release)
	require.Error(t, <-errc)

	a, _ := s.Get("a1")
	assert.Equal(t, alert.StatusResolved, a.Status)
}

func TestAlertStore_StaleLoadIsDiscarded(t *testing.T) {
	older := []*alert.Alert{testutil.NewAlert("old", "old", alert.SeverityLow, alert.StatusNew, testutil.Day(2024, 1, 1))}
	newer := []*alert.Alert{testutil.NewAlert("new", "new", alert.SeverityLow, alert.StatusNew, testutil.Day(2024, 1, 2))}

	repo := testutil.NewMockAlertRepository()
	release := make(chan struct{})
	entered := make(chan struct{})
	var calls int32
	repo.ListFunc = func(ctx context.Context) ([]*alert.Alert, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(entered)
			<-release
			return older, nil
		}
		return newer, nil
	}

	s := NewAlertStore(repo, logger.NewNop())
	defer s.Close()

	errc := make(chan error, 1)
	go func() { errc <- s.Load(context.Background()) }()
	<-entered

	require.NoError(t, s.Load(context.Background()))
	close(release)
	require.NoError(t, <-errc)

	assert.Equal(t, []string{"new"}, ids(s.Alerts()))
}

func TestAlertStore_LateResponseAfterClose(t *testing.T) {
	repo := testutil.NewMockAlertRepository()
	release := make(chan struct{})
	entered := make(chan struct{})
	repo.ListFunc = func(ctx context.Context) ([]*alert.Alert, error) {
		close(entered)
		<-release
		return sampleAlerts(), nil
	}

	s := NewAlertStore(repo, logger.NewNop())
	errc := make(chan error, 1)
	go func() { errc <- s.Load(context.Background()) }()
	<-entered

	require.NoError(t, s.Close())
	close(release)

	assert.ErrorIs(t, <-errc, ErrClosed)
	assert.Empty(t, s.Alerts())
	assert.ErrorIs(t, s.Load(context.Background()), ErrClosed)
	assert.ErrorIs(t, s.SetStatus(context.Background(), "a1", alert.StatusResolved), ErrClosed)
	assert.ErrorIs(t, s.SubscribeLive(context.Background()), ErrClosed)
}

func TestAlertStore_SubscribeLiveReloadsOnChange(t *testing.T) {
	s, repo := loadedAlertStore(t, sampleAlerts()...)
	require.NoError(t, s.SubscribeLive(context.Background()))
	require.True(t, s.Live())

	// a second call keeps the same subscription
	require.NoError(t, s.SubscribeLive(context.Background()))
	require.Len(t, repo.Streams, 1)

	fresh := testutil.NewAlert("a9", "New Finding", alert.SeverityCritical, alert.StatusNew, testutil.Day(2024, 5, 1))
	repo.SetAlerts(append(sampleAlerts(), fresh)...)
	repo.LastStream().Push(alert.Change{Type: alert.ChangeInsert, ID: "a9", Alert: fresh})

	require.Eventually(t, func() bool {
		return s.Len() == 5
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, "a9", s.Alerts()[0].ID)
}

func TestAlertStore_SubscriptionEndAllowsResubscribe(t *testing.T) {
	s, repo := loadedAlertStore(t, sampleAlerts()...)
	require.NoError(t, s.SubscribeLive(context.Background()))

	repo.LastStream().End()
	require.Eventually(t, func() bool { return !s.Live() }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.SubscribeLive(context.Background()))
	assert.Len(t, repo.Streams, 2)
}

func TestAlertStore_CloseEndsSubscription(t *testing.T) {
	repo := testutil.NewMockAlertRepository(sampleAlerts()...)
	s := NewAlertStore(repo, logger.NewNop())
	require.NoError(t, s.SubscribeLive(context.Background()))

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	select {
	case <-repo.LastStream().Closed():
	default:
		t.Fatal("stream was not closed")
	}
	_, open := <-s.Changes()
	assert.False(t, open)
}

func TestAlertStore_ChangesCoalesce(t *testing.T) {
	s, _ := loadedAlertStore(t, sampleAlerts()...)
	ctx := context.Background()

	require.NoError(t, s.SetStatus(ctx, "a1", alert.StatusAcknowledged))
	require.NoError(t, s.SetStatus(ctx, "a2", alert.StatusResolved))

	select {
	case <-s.Changes():
	default:
		t.Fatal("expected a change signal")
	}
	select {
	case <-s.Changes():
		t.Fatal("signals should have coalesced")
	default:
	}
}

func TestAlertStore_CopiesAreIsolated(t *testing.T) {
	s, _ := loadedAlertStore(t, sampleAlerts()...)

	got := s.Alerts()
	got[0].Status = alert.StatusResolved
	got[0].Title = "changed"

	a, _ := s.Get(got[0].ID)
	assert.Equal(t, alert.StatusNew, a.Status)
	assert.NotEqual(t, "changed", a.Title)
}
