package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hawksec/hawk/internal/domain/alert"
	"github.com/hawksec/hawk/internal/domain/notification"
	"github.com/hawksec/hawk/internal/domain/oem"
	"github.com/hawksec/hawk/internal/domain/progress"
	"github.com/hawksec/hawk/internal/domain/settings"
	"github.com/hawksec/hawk/internal/domain/system"
	"github.com/hawksec/hawk/internal/domain/trend"
	"github.com/hawksec/hawk/internal/domain/user"
)

// MockAlertStream is a hand-fed alert.Stream
type MockAlertStream struct {
	ch        chan alert.Change
	once      sync.Once
	closeOnce sync.Once
	closed    chan struct{}
}

func NewMockAlertStream() *MockAlertStream {
	return &MockAlertStream{ch: make(chan alert.Change, 16), closed: make(chan struct{})}
}

func (s *MockAlertStream) Events() <-chan alert.Change { return s.ch }

// Push delivers a change to the subscriber
func (s *MockAlertStream) Push(c alert.Change) { s.ch <- c }

// End terminates the stream as a dropped subscription would
func (s *MockAlertStream) End() { s.once.Do(func() { close(s.ch) }) }

func (s *MockAlertStream) Close() error {
	s.End()
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

// Closed is closed once Close has been called
func (s *MockAlertStream) Closed() <-chan struct{} { return s.closed }

// MockAlertRepository is a mock implementation of alert.Repository
type MockAlertRepository struct {
	mu          sync.Mutex
	Alerts      []*alert.Alert
	Updates     []StatusUpdate
	Streams     []*MockAlertStream
	ListError   error
	UpdateError error
	WatchError  error

	// ListFunc overrides List when set
	ListFunc func(ctx context.Context) ([]*alert.Alert, error)
	// UpdateFunc overrides UpdateStatus when set
	UpdateFunc func(ctx context.Context, id string, status alert.Status) error
}

// StatusUpdate records one UpdateStatus call
type StatusUpdate struct {
	ID     string
	Status alert.Status
}

func NewMockAlertRepository(alerts ...*alert.Alert) *MockAlertRepository {
	return &MockAlertRepository{Alerts: alerts}
}

func (m *MockAlertRepository) List(ctx context.Context) ([]*alert.Alert, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListError != nil {
		return nil, m.ListError
	}
	out := make([]*alert.Alert, len(m.Alerts))
	for i, a := range m.Alerts {
		out[i] = a.Clone()
	}
	return out, nil
}

func (m *MockAlertRepository) UpdateStatus(ctx context.Context, id string, status alert.Status) error {
	m.mu.Lock()
	m.Updates = append(m.Updates, StatusUpdate{ID: id, Status: status})
	fn := m.UpdateFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, id, status)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateError != nil {
		return m.UpdateError
	}
	for _, a := range m.Alerts {
		if a.ID == id {
			a.Status = status
			return nil
		}
	}
	return nil
}

func (m *MockAlertRepository) Watch(ctx context.Context) (alert.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WatchError != nil {
		return nil, m.WatchError
	}
	s := NewMockAlertStream()
	m.Streams = append(m.Streams, s)
	return s, nil
}

// UpdateCount returns the number of UpdateStatus calls
func (m *MockAlertRepository) UpdateCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Updates)
}

// LastStream returns the most recently opened stream
func (m *MockAlertRepository) LastStream() *MockAlertStream {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Streams) == 0 {
		return nil
	}
	return m.Streams[len(m.Streams)-1]
}

// SetAlerts replaces the backing rows
func (m *MockAlertRepository) SetAlerts(alerts ...*alert.Alert) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Alerts = alerts
}

// MockNotificationStream is a hand-fed notification.Stream
type MockNotificationStream struct {
	ch        chan *notification.Notification
	once      sync.Once
	closeOnce sync.Once
	closed    chan struct{}
}

func NewMockNotificationStream() *MockNotificationStream {
	return &MockNotificationStream{ch: make(chan *notification.Notification, 16), closed: make(chan struct{})}
}

func (s *MockNotificationStream) Events() <-chan *notification.Notification { return s.ch }

// Push delivers an inserted notification to the subscriber
func (s *MockNotificationStream) Push(n *notification.Notification) { s.ch <- n }

// End terminates the stream as a dropped subscription would
func (s *MockNotificationStream) End() { s.once.Do(func() { close(s.ch) }) }

func (s *MockNotificationStream) Close() error {
	s.End()
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

// Closed is closed once Close has been called
func (s *MockNotificationStream) Closed() <-chan struct{} { return s.closed }

// MockNotificationRepository is a mock implementation of notification.Repository
type MockNotificationRepository struct {
	mu            sync.Mutex
	Notifications []*notification.Notification
	Streams       []*MockNotificationStream
	ReadCalls     []string
	ReadAllCalls  int
	ListError     error
	UpdateError   error
	WatchError    error
	LastLimit     int

	// ListFunc overrides ListRecent when set
	ListFunc func(ctx context.Context, userID string, limit int) ([]*notification.Notification, error)
}

func NewMockNotificationRepository(items ...*notification.Notification) *MockNotificationRepository {
	return &MockNotificationRepository{Notifications: items}
}

func (m *MockNotificationRepository) ListRecent(ctx context.Context, userID string, limit int) ([]*notification.Notification, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, userID, limit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastLimit = limit
	if m.ListError != nil {
		return nil, m.ListError
	}
	var out []*notification.Notification
	for _, n := range m.Notifications {
		if n.UserID == "" || n.UserID == userID {
			out = append(out, n.Clone())
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadCalls = append(m.ReadCalls, id)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	for _, n := range m.Notifications {
		if n.ID == id {
			n.IsRead = true
		}
	}
	return nil
}

func (m *MockNotificationRepository) MarkAllRead(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadAllCalls++
	if m.UpdateError != nil {
		return m.UpdateError
	}
	for _, n := range m.Notifications {
		n.IsRead = true
	}
	return nil
}

func (m *MockNotificationRepository) Create(ctx context.Context, n *notification.Notification) (*notification.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	created := n.Clone()
	if created.ID == "" {
		created.ID = fmt.Sprintf("created-%d", len(m.Notifications)+1)
	}
	m.Notifications = append([]*notification.Notification{created}, m.Notifications...)
	return created.Clone(), nil
}

func (m *MockNotificationRepository) Watch(ctx context.Context, userID string) (notification.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.WatchError != nil {
		return nil, m.WatchError
	}
	s := NewMockNotificationStream()
	m.Streams = append(m.Streams, s)
	return s, nil
}

// LastStream returns the most recently opened stream
func (m *MockNotificationRepository) LastStream() *MockNotificationStream {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Streams) == 0 {
		return nil
	}
	return m.Streams[len(m.Streams)-1]
}

// SetUpdateError changes the error returned by the mark-read calls
func (m *MockNotificationRepository) SetUpdateError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateError = err
}

// Calls returns the MarkRead ids and the number of MarkAllRead calls
func (m *MockNotificationRepository) Calls() ([]string, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ReadCalls...), m.ReadAllCalls
}

// MockSystemRepository is a mock implementation of system.Repository
type MockSystemRepository struct {
	Systems   []*system.System
	Refs      []system.AlertRef
	ListError error
}

func (m *MockSystemRepository) List(ctx context.Context) ([]*system.System, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	return m.Systems, nil
}

func (m *MockSystemRepository) AlertRefs(ctx context.Context) ([]system.AlertRef, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	return m.Refs, nil
}

// MockTrendRepository is a mock implementation of trend.Repository
type MockTrendRepository struct {
	Points    []trend.Point
	ListError error
}

func (m *MockTrendRepository) List(ctx context.Context) ([]trend.Point, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	return m.Points, nil
}

// MockOEMRepository is a mock implementation of oem.Repository
type MockOEMRepository struct {
	mu          sync.Mutex
	Sources     map[string]*oem.Source
	NextID      int
	CreateError error
	Created     []oem.CreateInput
}

func NewMockOEMRepository() *MockOEMRepository {
	return &MockOEMRepository{Sources: make(map[string]*oem.Source), NextID: 1}
}

func (m *MockOEMRepository) List(ctx context.Context, userID string) ([]*oem.Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*oem.Source
	for _, s := range m.Sources {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *MockOEMRepository) Create(ctx context.Context, userID string, in oem.CreateInput) (*oem.Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateError != nil {
		return nil, m.CreateError
	}
	m.Created = append(m.Created, in)
	s := &oem.Source{
		ID:         fmt.Sprintf("oem-%d", m.NextID),
		UserID:     userID,
		Name:       in.Name,
		URL:        in.URL,
		SystemType: in.SystemType,
		IsActive:   true,
	}
	m.NextID++
	m.Sources[s.ID] = s
	return s, nil
}

func (m *MockOEMRepository) Update(ctx context.Context, userID, id string, in oem.UpdateInput) (*oem.Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Sources[id]
	if !ok || s.UserID != userID {
		return nil, fmt.Errorf("OEM source not found")
	}
	if in.Name != nil {
		s.Name = *in.Name
	}
	if in.URL != nil {
		s.URL = *in.URL
	}
	if in.SystemType != nil {
		s.SystemType = *in.SystemType
	}
	if in.IsActive != nil {
		s.IsActive = *in.IsActive
	}
	return s, nil
}

func (m *MockOEMRepository) Delete(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.Sources[id]; ok && s.UserID == userID {
		delete(m.Sources, id)
	}
	return nil
}

// MockSettingsRepository is a mock implementation of settings.Repository.
// Rows are kept as encoded documents so unknown keys survive a save.
type MockSettingsRepository struct {
	mu        sync.Mutex
	Rows      map[string]*settings.UserSystem
	Saves     int
	SaveError error
	GetError  error
}

func NewMockSettingsRepository() *MockSettingsRepository {
	return &MockSettingsRepository{Rows: make(map[string]*settings.UserSystem)}
}

func (m *MockSettingsRepository) Get(ctx context.Context, userID string) (*settings.UserSystem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetError != nil {
		return nil, m.GetError
	}
	us, ok := m.Rows[userID]
	if !ok {
		return nil, nil
	}
	return copyUserSystem(us)
}

func (m *MockSettingsRepository) Save(ctx context.Context, us *settings.UserSystem) (*settings.UserSystem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveError != nil {
		return nil, m.SaveError
	}
	m.Saves++
	stored, err := copyUserSystem(us)
	if err != nil {
		return nil, err
	}
	if stored.ID == "" {
		stored.ID = "us-" + us.UserID
	}
	m.Rows[us.UserID] = stored
	return copyUserSystem(stored)
}

func copyUserSystem(us *settings.UserSystem) (*settings.UserSystem, error) {
	raw, err := json.Marshal(us.Settings)
	if err != nil {
		return nil, err
	}
	out := *us
	out.Settings = settings.Document{}
	if err := json.Unmarshal(raw, &out.Settings); err != nil {
		return nil, err
	}
	return &out, nil
}

// MockProgressRepository is an in-memory progress.Repository
type MockProgressRepository struct {
	mu       sync.Mutex
	Docs     map[string]progress.SolutionProgress
	PutError error
	Puts     int
}

func NewMockProgressRepository() *MockProgressRepository {
	return &MockProgressRepository{Docs: make(map[string]progress.SolutionProgress)}
}

func (m *MockProgressRepository) Get(ctx context.Context, alertID string) (*progress.SolutionProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Docs[progress.Key(alertID)]
	if !ok {
		return nil, nil
	}
	p.CompletedSteps = append([]int{}, p.CompletedSteps...)
	return &p, nil
}

func (m *MockProgressRepository) Put(ctx context.Context, p *progress.SolutionProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PutError != nil {
		return m.PutError
	}
	m.Puts++
	stored := *p
	stored.CompletedSteps = append([]int{}, p.CompletedSteps...)
	m.Docs[progress.Key(p.AlertID)] = stored
	return nil
}

func (m *MockProgressRepository) Delete(ctx context.Context, alertID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Docs, progress.Key(alertID))
	return nil
}

// MockUserRepository is a mock implementation of user.Repository
type MockUserRepository struct {
	Profiles map[string]*user.Profile
	GetError error
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{Profiles: make(map[string]*user.Profile)}
}

func (m *MockUserRepository) GetProfile(ctx context.Context, id string) (*user.Profile, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	return m.Profiles[id], nil
}

// InvokeCall records one remote function invocation
type InvokeCall struct {
	Name string
	Body map[string]interface{}
}

// MockInvoker answers remote function calls from per-name handlers. The
// request body is round-tripped through JSON so handlers see what the
// backend would.
type MockInvoker struct {
	mu       sync.Mutex
	Calls    []InvokeCall
	Handlers map[string]func(body map[string]interface{}) (interface{}, error)
}

func NewMockInvoker() *MockInvoker {
	return &MockInvoker{Handlers: make(map[string]func(map[string]interface{}) (interface{}, error))}
}

// On registers the handler of a function
func (m *MockInvoker) On(name string, fn func(body map[string]interface{}) (interface{}, error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Handlers[name] = fn
}

func (m *MockInvoker) Invoke(ctx context.Context, name string, body interface{}, dest interface{}) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	var decoded map[string]interface{}
	_ = json.Unmarshal(raw, &decoded)

	m.mu.Lock()
	m.Calls = append(m.Calls, InvokeCall{Name: name, Body: decoded})
	fn, ok := m.Handlers[name]
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("no handler for function %s", name)
	}
	result, err := fn(decoded)
	if err != nil {
		return err
	}
	if dest == nil || result == nil {
		return nil
	}
	out, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return json.Unmarshal(out, dest)
}

// CallsTo returns the recorded calls of one function
func (m *MockInvoker) CallsTo(name string) []InvokeCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []InvokeCall
	for _, c := range m.Calls {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}
