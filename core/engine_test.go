package core

import (
	"context"
	"encoding/json"
	"github.com/assettrack/notifsync/events"
	"github.com/assettrack/notifsync/models"
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

func TestEngine_Initialize(t *testing.T) {
	engine, deps := MockEngine("tok-123")
	defer engine.Close()

	if err := engine.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !engine.IsInitialized() {
		t.Error("Engine not initialized")
	}
	token := engine.CurrentToken()
	if token == nil || token.Value != "tok-123" {
		t.Fatalf("Incorrect token %v", token)
	}
	if token.Platform != models.PlatformAndroid {
		t.Errorf("Incorrect platform %s", token.Platform)
	}
	stored, ok, err := deps.Store.Get(context.Background(), LastTokenKey)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || stored != "tok-123" {
		t.Errorf("Token not persisted, got %s", stored)
	}
	if engine.RegistrationState() != models.Unregistered {
		t.Errorf("Expected unregistered, got %s", engine.RegistrationState())
	}
	if deps.API.TotalCalls() != 0 {
		t.Errorf("Initialize should not call the backend, made %d calls", deps.API.TotalCalls())
	}
}

func TestEngine_InitializeIsIdempotent(t *testing.T) {
	engine, deps := MockEngine("tok-123")
	defer engine.Close()

	if err := engine.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	first := engine.CurrentToken()
	prefs := engine.Preferences()

	if err := engine.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	if deps.Host.TokenCalls() != 1 {
		t.Errorf("Expected 1 token fetch, got %d", deps.Host.TokenCalls())
	}
	if *engine.CurrentToken() != *first {
		t.Errorf("Token changed on second initialize")
	}
	if len(engine.Preferences()) != len(prefs) {
		t.Errorf("Preferences changed on second initialize")
	}
	if deps.API.TotalCalls() != 0 {
		t.Errorf("Expected no backend calls, got %d", deps.API.TotalCalls())
	}
}

func TestEngine_InitializeWithoutToken(t *testing.T) {
	engine, _ := MockEngine("")
	defer engine.Close()

	if err := engine.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	if engine.CurrentToken() != nil {
		t.Error("Expected nil token")
	}
	if !engine.IsInitialized() {
		t.Error("Initialization should complete without a token")
	}
}

func TestEngine_InitializeRestoresCache(t *testing.T) {
	engine, deps := MockEngine("tok-123")
	defer engine.Close()

	cached := map[models.NotificationType]models.NotificationPreference{
		models.NTMaintenanceDue: {NotificationType: models.NTMaintenanceDue, IsEnabled: true, PushEnabled: false, EmailEnabled: true},
	}
	out, err := json.Marshal(cached)
	if err != nil {
		t.Fatal(err)
	}
	deps.Store.Set(context.Background(), PreferencesKey, string(out))
	deps.Store.Set(context.Background(), RegisteredKey, "tok-123")

	if err := engine.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	if engine.IsNotificationEnabled(models.NTMaintenanceDue) {
		t.Error("Expected cached preference to disable maintenance_due")
	}
	if !engine.IsRegistered() {
		t.Error("Expected registration to be restored for the same token")
	}
}

func TestEngine_InitializeIgnoresStaleRegistration(t *testing.T) {
	engine, deps := MockEngine("tok-new")
	defer engine.Close()

	deps.Store.Set(context.Background(), RegisteredKey, "tok-old")
	if err := engine.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	if engine.IsRegistered() {
		t.Error("Registration of a different token should not be restored")
	}
}

func TestEngine_InitializeSwallowsCacheFailure(t *testing.T) {
	engine, deps := MockEngine("tok-123")
	defer engine.Close()

	deps.Store.SetFailures(true, true)
	if err := engine.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(engine.Preferences()) != 0 {
		t.Error("Expected empty preferences")
	}
	if engine.CurrentToken() == nil {
		t.Error("Token should be adopted even when it cannot be persisted")
	}
}

func TestEngine_InitializeAfterClose(t *testing.T) {
	engine, _ := MockEngine("tok-123")
	engine.Close()
	if err := engine.Initialize(context.Background()); err != ErrEngineClosed {
		t.Errorf("Expected ErrEngineClosed, got %v", err)
	}
}

func TestEngine_GetToken(t *testing.T) {
	engine, deps := MockEngine("tok-1")
	defer engine.Close()

	token := engine.GetToken(context.Background())
	if token == nil || token.Value != "tok-1" {
		t.Fatalf("Incorrect token %v", token)
	}

	deps.Host.SetToken("tok-2")
	token = engine.GetToken(context.Background())
	if token == nil || token.Value != "tok-2" {
		t.Fatalf("Incorrect token %v", token)
	}

	deps.Host.SetToken("")
	if engine.GetToken(context.Background()) != nil {
		t.Error("Expected nil token on provider failure")
	}
	if engine.CurrentToken().Value != "tok-2" {
		t.Error("Provider failure should keep the adopted token")
	}
}

func TestEngine_DefaultAllow(t *testing.T) {
	engine, _ := MockEngine("tok-123")
	defer engine.Close()

	for _, nt := range append(models.KnownNotificationTypes, "something_new", "") {
		pref := engine.GetNotificationPreference(nt)
		if !pref.IsEnabled || !pref.PushEnabled || !pref.EmailEnabled {
			t.Errorf("Expected default-allow for %q, got %+v", nt, pref)
		}
		if !engine.IsNotificationEnabled(nt) {
			t.Errorf("Expected %q to be enabled", nt)
		}
	}
}

func TestEngine_UnreadCount(t *testing.T) {
	engine, _ := MockEngine("tok-123")
	defer engine.Close()

	sub, err := engine.Bus().Subscribe(&events.UnreadCountChanged{}, events.BufSize(10))
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()

	engine.IncrementUnreadCount()
	engine.IncrementUnreadCount()
	if engine.UnreadCount() != 2 {
		t.Errorf("Expected 2, got %d", engine.UnreadCount())
	}
	engine.SetUnreadCount(7)
	if engine.UnreadCount() != 7 {
		t.Errorf("Expected 7, got %d", engine.UnreadCount())
	}
	engine.SetUnreadCount(-3)
	if engine.UnreadCount() != 0 {
		t.Errorf("Expected negative count to clamp to 0, got %d", engine.UnreadCount())
	}
	engine.IncrementUnreadCount()
	engine.ClearUnreadCount()
	if engine.UnreadCount() != 0 {
		t.Errorf("Expected 0, got %d", engine.UnreadCount())
	}

	expected := []int{1, 2, 7, 0, 1, 0}
	for _, n := range expected {
		select {
		case evt := <-sub.Out():
			if evt.(*events.UnreadCountChanged).Count != n {
				t.Errorf("Expected count %d, got %d", n, evt.(*events.UnreadCountChanged).Count)
			}
		case <-time.After(time.Second):
			t.Fatal("Timed out waiting for unread event")
		}
	}
}

func TestEngine_TopicSubscriptions(t *testing.T) {
	engine, deps := MockEngine("tok-123")
	defer engine.Close()

	if err := engine.SubscribeToTopic(context.Background(), "maintenance"); err != nil {
		t.Fatal(err)
	}
	if !deps.Host.Subscribed("maintenance") {
		t.Error("Expected subscription")
	}
	if err := engine.UnsubscribeFromTopic(context.Background(), "maintenance"); err != nil {
		t.Fatal(err)
	}
	if deps.Host.Subscribed("maintenance") {
		t.Error("Expected subscription to be removed")
	}

	deps.Host.SetTopicError(ErrMockAPI)
	if err := engine.SubscribeToTopic(context.Background(), "x"); err != ErrMockAPI {
		t.Errorf("Expected topic error, got %v", err)
	}
}
