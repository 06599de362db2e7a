package core

import (
	"context"
	"errors"
	"github.com/assettrack/notifsync/kvstore"
	"github.com/assettrack/notifsync/models"
	"github.com/assettrack/notifsync/push"
	"sync"
)

// ErrMockAPI is the default failure returned by MockAPI hooks in tests.
var ErrMockAPI = errors.New("mock api failure")

// MockAPI is a RemoteAPI whose behaviour is set per method. A nil hook
// succeeds with a zero value. Calls are counted by method name.
type MockAPI struct {
	RegisterTokenFunc        func(token models.DeviceToken, info models.DeviceInfo) error
	UnregisterTokenFunc      func(token string) error
	DeviceTokensFunc         func(platform models.Platform) ([]models.RegisteredDevice, error)
	UpdatePreferenceFunc     func(notificationType models.NotificationType, patch models.PreferencePatch) error
	PreferencesFunc          func() ([]models.NotificationPreference, error)
	SendTestNotificationFunc func(title, body string, data map[string]string) (models.TestResult, error)
	NotificationHistoryFunc  func(limit, offset int) (models.HistoryPage, error)

	mtx       sync.Mutex
	calls     map[string]int
	authToken string
}

// NewMockAPI returns a MockAPI where every call succeeds.
func NewMockAPI() *MockAPI {
	return &MockAPI{calls: make(map[string]int)}
}

func (m *MockAPI) record(name string) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.calls[name]++
}

// Calls returns how many times the named method was called.
func (m *MockAPI) Calls(name string) int {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return m.calls[name]
}

// TotalCalls returns the number of network calls made.
func (m *MockAPI) TotalCalls() int {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	n := 0
	for _, c := range m.calls {
		n += c
	}
	return n
}

// AuthToken returns the bearer token last set.
func (m *MockAPI) AuthToken() string {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return m.authToken
}

func (m *MockAPI) RegisterToken(ctx context.Context, token models.DeviceToken, info models.DeviceInfo) error {
	m.record("RegisterToken")
	if m.RegisterTokenFunc != nil {
		return m.RegisterTokenFunc(token, info)
	}
	return nil
}

func (m *MockAPI) UnregisterToken(ctx context.Context, token string) error {
	m.record("UnregisterToken")
	if m.UnregisterTokenFunc != nil {
		return m.UnregisterTokenFunc(token)
	}
	return nil
}

func (m *MockAPI) DeviceTokens(ctx context.Context, platform models.Platform) ([]models.RegisteredDevice, error) {
	m.record("DeviceTokens")
	if m.DeviceTokensFunc != nil {
		return m.DeviceTokensFunc(platform)
	}
	return []models.RegisteredDevice{}, nil
}

func (m *MockAPI) UpdatePreference(ctx context.Context, notificationType models.NotificationType, patch models.PreferencePatch) error {
	m.record("UpdatePreference")
	if m.UpdatePreferenceFunc != nil {
		return m.UpdatePreferenceFunc(notificationType, patch)
	}
	return nil
}

func (m *MockAPI) Preferences(ctx context.Context) ([]models.NotificationPreference, error) {
	m.record("Preferences")
	if m.PreferencesFunc != nil {
		return m.PreferencesFunc()
	}
	return nil, nil
}

func (m *MockAPI) SendTestNotification(ctx context.Context, title, body string, data map[string]string) (models.TestResult, error) {
	m.record("SendTestNotification")
	if m.SendTestNotificationFunc != nil {
		return m.SendTestNotificationFunc(title, body, data)
	}
	return models.TestResult{}, nil
}

func (m *MockAPI) NotificationHistory(ctx context.Context, limit, offset int) (models.HistoryPage, error) {
	m.record("NotificationHistory")
	if m.NotificationHistoryFunc != nil {
		return m.NotificationHistoryFunc(limit, offset)
	}
	return models.HistoryPage{Notifications: []models.HistoryEntry{}, Limit: limit, Offset: offset}, nil
}

func (m *MockAPI) SetAuthToken(token string) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.authToken = token
}

func (m *MockAPI) ClearAuthToken() {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.authToken = ""
}

var _ RemoteAPI = (*MockAPI)(nil)

// MockDeps holds the collaborators of an engine built by MockEngine.
type MockDeps struct {
	API    *MockAPI
	Bridge *push.Bridge
	Host   *push.MockHost
	Store  *kvstore.MockStore
}

// MockEngine builds an engine over a mock push host issuing token, an
// in-memory store and a MockAPI. An empty token makes the provider fail.
func MockEngine(token string) (*Engine, *MockDeps) {
	bridge, host := push.NewMockProvider(token)
	deps := &MockDeps{
		API:    NewMockAPI(),
		Bridge: bridge,
		Host:   host,
		Store:  kvstore.NewMockStore(),
	}
	engine := NewEngine(Config{
		Provider: bridge,
		Store:    deps.Store,
		API:      deps.API,
	})
	return engine, deps
}
