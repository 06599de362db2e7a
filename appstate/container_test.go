package appstate

import (
	"context"
	"github.com/assettrack/notifsync/core"
	"github.com/assettrack/notifsync/fcmapi"
	"github.com/assettrack/notifsync/models"
	"net/http"
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second * 5)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond * 10)
	}
	t.Fatal("Timed out waiting for condition")
}

func newTestContainer(t *testing.T) (*Container, *core.MockDeps) {
	t.Helper()
	engine, deps := core.MockEngine("tok-123")
	container := NewContainer(engine)
	if err := container.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		container.Close()
		engine.Close()
	})
	return container, deps
}

func TestContainer_Initialize(t *testing.T) {
	container, _ := newTestContainer(t)

	if err := container.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	state := container.Snapshot()
	if !state.IsInitialized {
		t.Error("Expected initialized")
	}
	if state.FCMToken == nil || state.FCMToken.Value != "tok-123" {
		t.Errorf("Incorrect token %v", state.FCMToken)
	}
	if state.IsRegistered {
		t.Error("Expected unregistered")
	}
}

func TestContainer_LoadingFlagsAreIndependent(t *testing.T) {
	container, deps := newTestContainer(t)

	release := make(chan struct{})
	deps.API.PreferencesFunc = func() ([]models.NotificationPreference, error) {
		<-release
		return []models.NotificationPreference{}, nil
	}

	done := make(chan struct{})
	go func() {
		container.LoadPreferences(context.Background())
		close(done)
	}()
	waitFor(t, func() bool { return container.Snapshot().PreferencesLoading })

	container.LoadDeviceTokens(context.Background(), models.PlatformAndroid)

	state := container.Snapshot()
	if state.DeviceTokensLoading {
		t.Error("Device tokens still loading after completion")
	}
	if !state.PreferencesLoading {
		t.Error("Preferences flag cleared by an unrelated load")
	}
	if state.HistoryLoading || state.SettingsLoading || state.TestNotificationLoading {
		t.Error("Unrelated flags set")
	}

	close(release)
	<-done
	if container.Snapshot().PreferencesLoading {
		t.Error("Preferences flag not cleared")
	}
}

func TestContainer_LoadErrorsAreRecorded(t *testing.T) {
	container, deps := newTestContainer(t)
	deps.API.PreferencesFunc = func() ([]models.NotificationPreference, error) {
		return nil, core.ErrMockAPI
	}
	deps.API.DeviceTokensFunc = func(platform models.Platform) ([]models.RegisteredDevice, error) {
		return nil, core.ErrMockAPI
	}

	container.LoadPreferences(context.Background())
	container.LoadDeviceTokens(context.Background(), models.PlatformAndroid)

	state := container.Snapshot()
	if state.PreferencesError == "" {
		t.Error("Preferences error not recorded")
	}
	if state.DeviceTokensError == "" {
		t.Error("Device tokens error not recorded")
	}
	if state.HistoryError != "" || state.SettingsError != "" {
		t.Error("Unrelated errors recorded")
	}
	if state.PreferencesLoading || state.DeviceTokensLoading {
		t.Error("Loading flags not cleared after failure")
	}

	deps.API.PreferencesFunc = nil
	container.LoadPreferences(context.Background())
	if container.Snapshot().PreferencesError != "" {
		t.Error("Preferences error not cleared by a successful load")
	}
}

func TestContainer_ExplicitActionsReturnErrors(t *testing.T) {
	container, deps := newTestContainer(t)
	if err := container.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	deps.API.SendTestNotificationFunc = func(title, body string, data map[string]string) (models.TestResult, error) {
		return models.TestResult{}, core.ErrMockAPI
	}
	deps.API.RegisterTokenFunc = func(token models.DeviceToken, info models.DeviceInfo) error {
		return core.ErrMockAPI
	}

	if _, err := container.SendTestNotification(context.Background(), "T", "B", nil); err == nil {
		t.Error("Expected test send error")
	}
	if err := container.RegisterToken(context.Background()); err == nil {
		t.Error("Expected register error")
	}
	state := container.Snapshot()
	if state.TestNotificationLoading || state.Registering {
		t.Error("Flags not cleared after failure")
	}
	if state.IsRegistered {
		t.Error("Registered after failure")
	}
}

func TestContainer_UpdatePreference(t *testing.T) {
	container, deps := newTestContainer(t)

	ok := container.UpdatePreference(context.Background(), models.NTAssetCreated, models.PreferencePatch{PushEnabled: models.Bool(false)})
	if !ok {
		t.Fatal("Expected update to succeed")
	}
	pref := container.Snapshot().Preferences[models.NTAssetCreated]
	if pref.PushEnabled || !pref.IsEnabled {
		t.Errorf("Incorrect preference %+v", pref)
	}

	deps.API.UpdatePreferenceFunc = func(notificationType models.NotificationType, patch models.PreferencePatch) error {
		return core.ErrMockAPI
	}
	if container.UpdatePreference(context.Background(), models.NTAssetCreated, models.PreferencePatch{PushEnabled: models.Bool(true)}) {
		t.Error("Expected update to fail")
	}
	state := container.Snapshot()
	if state.SettingsError == "" {
		t.Error("Settings error not recorded")
	}
	if state.Preferences[models.NTAssetCreated].PushEnabled {
		t.Error("Failed update changed the cache")
	}
}

func TestContainer_UpdateMultiplePartialFailure(t *testing.T) {
	container, deps := newTestContainer(t)
	deps.API.UpdatePreferenceFunc = func(notificationType models.NotificationType, patch models.PreferencePatch) error {
		if notificationType == models.NTAssetDeleted {
			return core.ErrMockAPI
		}
		return nil
	}

	result := container.UpdateMultiplePreferences(context.Background(), []models.PreferenceUpdate{
		{NotificationType: models.NTAssetCreated, Preferences: models.PreferencePatch{IsEnabled: models.Bool(false)}},
		{NotificationType: models.NTAssetDeleted, Preferences: models.PreferencePatch{IsEnabled: models.Bool(false)}},
	})
	if result.Succeeded != 1 || result.Failed != 1 {
		t.Fatalf("Incorrect tally %+v", result)
	}
	state := container.Snapshot()
	if state.SettingsError == "" {
		t.Error("Partial failure not recorded")
	}
	if state.Preferences[models.NTAssetCreated].IsEnabled {
		t.Error("Successful item not applied")
	}
}

func TestContainer_HistoryNotImplemented(t *testing.T) {
	container, deps := newTestContainer(t)
	deps.API.NotificationHistoryFunc = func(limit, offset int) (models.HistoryPage, error) {
		return models.HistoryPage{}, &fcmapi.APIError{Status: http.StatusNotFound, Message: "Cannot GET /api/fcm/notification-history"}
	}

	container.LoadNotificationHistory(context.Background(), 0, 0)
	state := container.Snapshot()
	if state.HistoryError != "" {
		t.Errorf("Unexpected history error %s", state.HistoryError)
	}
	if state.HistoryNote == "" {
		t.Error("Expected a history note")
	}
	if len(state.History) != 0 {
		t.Error("Expected empty history")
	}
}

func TestContainer_DispatchAfterClose(t *testing.T) {
	engine, _ := core.MockEngine("tok-123")
	defer engine.Close()
	container := NewContainer(engine)

	container.Dispatch(SetUnreadCount{Count: 3})
	container.Close()
	container.Dispatch(SetUnreadCount{Count: 7})
	container.Close()

	if container.Snapshot().UnreadCount != 3 {
		t.Errorf("Dispatch after close changed state to %d", container.Snapshot().UnreadCount)
	}

	// Operations finishing after close are dropped quietly.
	container.LoadPreferences(context.Background())
	if container.Snapshot().PreferencesLoading {
		t.Error("Loading flag set after close")
	}
}

func TestContainer_MirrorsEngineEvents(t *testing.T) {
	container, deps := newTestContainer(t)
	if err := container.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}

	msg := models.RemoteMessage{
		MessageID: "m1",
		Title:     "New asset",
		Data:      map[string]string{"type": string(models.NTAssetCreated), "assetId": "a1"},
	}
	deps.Bridge.DeliverForeground(msg)
	waitFor(t, func() bool { return container.Snapshot().UnreadCount == 1 })
	if last := container.Snapshot().LastNotification; last == nil || last.MessageID != "m1" {
		t.Errorf("Incorrect last notification %v", last)
	}

	deps.Bridge.DeliverOpened(msg)
	waitFor(t, func() bool { return container.Snapshot().PendingRoute != "" })
	if route := container.Snapshot().PendingRoute; route != models.RouteFor(&msg) {
		t.Errorf("Incorrect route %s", route)
	}
	container.Dispatch(ClearPendingRoute{})
	if container.Snapshot().PendingRoute != "" {
		t.Error("Pending route not cleared")
	}

	deps.Bridge.DeliverToken("tok-456")
	waitFor(t, func() bool {
		tok := container.Snapshot().FCMToken
		return tok != nil && tok.Value == "tok-456"
	})
}

func TestContainer_Logout(t *testing.T) {
	container, deps := newTestContainer(t)
	if err := container.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	container.HandleUserLogin(context.Background())
	if !container.Snapshot().IsRegistered {
		t.Fatal("Expected registered after login")
	}
	container.SetUnreadCount(4)

	container.HandleUserLogout(context.Background())
	// Events from before the logout may still be in flight, so wait for the
	// final reset to land.
	waitFor(t, func() bool {
		state := container.Snapshot()
		return !state.IsRegistered && state.UnreadCount == 0 && len(state.Preferences) == 0
	})
	state := container.Snapshot()
	if state.FCMToken == nil || state.FCMToken.Value != "tok-123" {
		t.Error("Device token should survive logout")
	}
	if deps.API.Calls("UnregisterToken") != 1 {
		t.Errorf("Expected 1 unregister call, got %d", deps.API.Calls("UnregisterToken"))
	}
}

func TestContainer_Subscribe(t *testing.T) {
	container, _ := newTestContainer(t)
	sub, err := container.Subscribe()
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()

	container.IncrementUnreadCount()
	select {
	case evt := <-sub.Out():
		changed, ok := evt.(*StateChanged)
		if !ok {
			t.Fatalf("Unexpected event %T", evt)
		}
		if changed.State.UnreadCount != 1 {
			t.Errorf("Expected count 1, got %d", changed.State.UnreadCount)
		}
	case <-time.After(time.Second * 5):
		t.Fatal("Timed out waiting for state change")
	}
}

func TestContainer_LoginRaisesRegistering(t *testing.T) {
	container, deps := newTestContainer(t)
	if err := container.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}

	release := make(chan struct{})
	deps.API.RegisterTokenFunc = func(token models.DeviceToken, info models.DeviceInfo) error {
		<-release
		return nil
	}

	done := make(chan struct{})
	go func() {
		container.HandleUserLogin(context.Background())
		close(done)
	}()
	waitFor(t, func() bool { return container.Snapshot().Registering })

	close(release)
	<-done
	state := container.Snapshot()
	if state.Registering {
		t.Error("Registering flag not cleared after login")
	}
	if !state.IsRegistered {
		t.Error("Expected registered after login")
	}
}
