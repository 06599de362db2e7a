package api

import (
	"context"
	"github.com/assettrack/notifsync/appstate"
	"github.com/assettrack/notifsync/models"
)

type mockContainer struct {
	snapshotFunc                  func() appstate.State
	dispatchFunc                  func(action interface{})
	initializeFunc                func(ctx context.Context) error
	registerTokenFunc             func(ctx context.Context) error
	unregisterTokenFunc           func(ctx context.Context) error
	loadPreferencesFunc           func(ctx context.Context)
	updatePreferenceFunc          func(ctx context.Context, notificationType models.NotificationType, patch models.PreferencePatch) bool
	updateMultiplePreferencesFunc func(ctx context.Context, updates []models.PreferenceUpdate) models.BatchResult
	loadDeviceTokensFunc          func(ctx context.Context, platform models.Platform)
	loadNotificationHistoryFunc   func(ctx context.Context, limit, offset int)
	sendTestNotificationFunc      func(ctx context.Context, title, body string, data map[string]string) (models.TestResult, error)
	setAuthTokenFunc              func(token string)
	handleUserLoginFunc           func(ctx context.Context)
	handleUserLogoutFunc          func(ctx context.Context)
	clearUnreadCountFunc          func()
	allNotificationTypesFunc      func() []models.NotificationType
}

func (m *mockContainer) Snapshot() appstate.State {
	if m.snapshotFunc != nil {
		return m.snapshotFunc()
	}
	return appstate.InitialState()
}

func (m *mockContainer) Dispatch(action interface{}) {
	if m.dispatchFunc != nil {
		m.dispatchFunc(action)
	}
}

func (m *mockContainer) Initialize(ctx context.Context) error {
	if m.initializeFunc != nil {
		return m.initializeFunc(ctx)
	}
	return nil
}

func (m *mockContainer) RegisterToken(ctx context.Context) error {
	if m.registerTokenFunc != nil {
		return m.registerTokenFunc(ctx)
	}
	return nil
}

func (m *mockContainer) UnregisterToken(ctx context.Context) error {
	if m.unregisterTokenFunc != nil {
		return m.unregisterTokenFunc(ctx)
	}
	return nil
}

func (m *mockContainer) LoadPreferences(ctx context.Context) {
	if m.loadPreferencesFunc != nil {
		m.loadPreferencesFunc(ctx)
	}
}

func (m *mockContainer) UpdatePreference(ctx context.Context, notificationType models.NotificationType, patch models.PreferencePatch) bool {
	if m.updatePreferenceFunc != nil {
		return m.updatePreferenceFunc(ctx, notificationType, patch)
	}
	return true
}

func (m *mockContainer) UpdateMultiplePreferences(ctx context.Context, updates []models.PreferenceUpdate) models.BatchResult {
	if m.updateMultiplePreferencesFunc != nil {
		return m.updateMultiplePreferencesFunc(ctx, updates)
	}
	return models.BatchResult{Outcomes: []models.PreferenceOutcome{}}
}

func (m *mockContainer) LoadDeviceTokens(ctx context.Context, platform models.Platform) {
	if m.loadDeviceTokensFunc != nil {
		m.loadDeviceTokensFunc(ctx, platform)
	}
}

func (m *mockContainer) LoadNotificationHistory(ctx context.Context, limit, offset int) {
	if m.loadNotificationHistoryFunc != nil {
		m.loadNotificationHistoryFunc(ctx, limit, offset)
	}
}

func (m *mockContainer) SendTestNotification(ctx context.Context, title, body string, data map[string]string) (models.TestResult, error) {
	if m.sendTestNotificationFunc != nil {
		return m.sendTestNotificationFunc(ctx, title, body, data)
	}
	return models.TestResult{}, nil
}

func (m *mockContainer) SetAuthToken(token string) {
	if m.setAuthTokenFunc != nil {
		m.setAuthTokenFunc(token)
	}
}

func (m *mockContainer) HandleUserLogin(ctx context.Context) {
	if m.handleUserLoginFunc != nil {
		m.handleUserLoginFunc(ctx)
	}
}

func (m *mockContainer) HandleUserLogout(ctx context.Context) {
	if m.handleUserLogoutFunc != nil {
		m.handleUserLogoutFunc(ctx)
	}
}

func (m *mockContainer) ClearUnreadCount() {
	if m.clearUnreadCountFunc != nil {
		m.clearUnreadCountFunc()
	}
}

func (m *mockContainer) AllNotificationTypes() []models.NotificationType {
	if m.allNotificationTypesFunc != nil {
		return m.allNotificationTypesFunc()
	}
	return models.KnownNotificationTypes
}
