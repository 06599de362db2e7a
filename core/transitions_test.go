package core

import (
	"context"
	"github.com/assettrack/notifsync/events"
	"github.com/assettrack/notifsync/models"
	"testing"
	"time"
)

func TestOnTokenRefresh(t *testing.T) {
	old := models.DeviceToken{Value: "old", Platform: models.PlatformIOS}
	rotated := models.DeviceToken{Value: "new", Platform: models.PlatformIOS}

	tests := []struct {
		name             string
		state            pushState
		token            models.DeviceToken
		expectedPersist  bool
		expectedRegister bool
	}{
		{
			name:             "registered token rotates",
			state:            pushState{token: &old, registration: models.Registered},
			token:            rotated,
			expectedPersist:  true,
			expectedRegister: true,
		},
		{
			name:            "unregistered token rotates",
			state:           pushState{token: &old, registration: models.Unregistered},
			token:           rotated,
			expectedPersist: true,
		},
		{
			name:            "first token",
			state:           pushState{registration: models.Unregistered},
			token:           rotated,
			expectedPersist: true,
		},
		{
			name:  "same token",
			state: pushState{token: &old, registration: models.Registered},
			token: old,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			next, fx := onTokenRefresh(test.state, test.token)
			if fx.persistToken != test.expectedPersist {
				t.Errorf("Expected persist %t, got %t", test.expectedPersist, fx.persistToken)
			}
			if fx.register != test.expectedRegister {
				t.Errorf("Expected register %t, got %t", test.expectedRegister, fx.register)
			}
			if next.token == nil || *next.token != test.token {
				t.Errorf("Expected token %v, got %v", test.token, next.token)
			}
			if next.registration != test.state.registration {
				t.Error("Token refresh must not change registration state")
			}
		})
	}
}

func TestOnForegroundMessage(t *testing.T) {
	msg := models.RemoteMessage{MessageID: "m1", Title: "Hi"}
	next, fx := onForegroundMessage(pushState{unread: 2}, msg)
	if next.unread != 3 {
		t.Errorf("Expected unread 3, got %d", next.unread)
	}
	if len(fx.emit) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(fx.emit))
	}
	if received, ok := fx.emit[0].(*events.MessageReceived); !ok || received.Message.MessageID != "m1" {
		t.Errorf("Expected MessageReceived, got %T", fx.emit[0])
	}
	if count, ok := fx.emit[1].(*events.UnreadCountChanged); !ok || count.Count != 3 {
		t.Errorf("Expected UnreadCountChanged(3), got %v", fx.emit[1])
	}
}

func TestOnNotificationOpened(t *testing.T) {
	msg := models.RemoteMessage{Data: map[string]string{"notification_type": "workflow_approval"}}
	next, fx := onNotificationOpened(pushState{unread: 5}, msg, true)
	if next.unread != 5 {
		t.Errorf("Opening a notification should not change unread, got %d", next.unread)
	}
	opened, ok := fx.emit[0].(*events.NotificationOpened)
	if !ok {
		t.Fatalf("Expected NotificationOpened, got %T", fx.emit[0])
	}
	if opened.Route != models.RouteMaintenanceApproval {
		t.Errorf("Incorrect route %s", opened.Route)
	}
	if !opened.Launch {
		t.Error("Expected launch flag")
	}
}

func TestOnBackgroundMessage(t *testing.T) {
	next, fx := onBackgroundMessage(pushState{unread: 1}, models.RemoteMessage{MessageID: "bg"})
	if next.unread != 1 {
		t.Errorf("Background messages should not change unread, got %d", next.unread)
	}
	if _, ok := fx.emit[0].(*events.BackgroundMessage); !ok {
		t.Errorf("Expected BackgroundMessage, got %T", fx.emit[0])
	}
}

func TestEngine_PushEvents(t *testing.T) {
	engine, deps := MockEngine("tok-123")
	defer engine.Close()

	sub, err := engine.Bus().Subscribe([]interface{}{
		&events.MessageReceived{},
		&events.NotificationOpened{},
		&events.BackgroundMessage{},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()

	if err := engine.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}

	deps.Bridge.DeliverForeground(models.RemoteMessage{MessageID: "fg"})
	select {
	case evt := <-sub.Out():
		if received, ok := evt.(*events.MessageReceived); !ok || received.Message.MessageID != "fg" {
			t.Fatalf("Expected foreground message, got %v", evt)
		}
	case <-time.After(time.Second * 5):
		t.Fatal("Timed out waiting for foreground message")
	}
	if engine.UnreadCount() != 1 {
		t.Errorf("Expected unread 1, got %d", engine.UnreadCount())
	}

	deps.Bridge.DeliverOpened(models.RemoteMessage{MessageID: "tap", Data: map[string]string{"type": "asset_created"}})
	select {
	case evt := <-sub.Out():
		opened, ok := evt.(*events.NotificationOpened)
		if !ok {
			t.Fatalf("Expected opened notification, got %v", evt)
		}
		if opened.Route != models.RouteAssetDetails || opened.Launch {
			t.Errorf("Incorrect opened event %+v", opened)
		}
	case <-time.After(time.Second * 5):
		t.Fatal("Timed out waiting for opened notification")
	}

	deps.Bridge.DeliverBackground(models.RemoteMessage{MessageID: "bg"})
	select {
	case evt := <-sub.Out():
		if _, ok := evt.(*events.BackgroundMessage); !ok {
			t.Fatalf("Expected background message, got %v", evt)
		}
	case <-time.After(time.Second * 5):
		t.Fatal("Timed out waiting for background message")
	}
	if engine.UnreadCount() != 1 {
		t.Errorf("Expected unread to stay 1, got %d", engine.UnreadCount())
	}
}

func TestEngine_InitialNotification(t *testing.T) {
	engine, deps := MockEngine("tok-123")
	defer engine.Close()

	sub, err := engine.Bus().Subscribe(&events.NotificationOpened{})
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()

	deps.Bridge.SetInitialNotification(models.RemoteMessage{Data: map[string]string{"screen": "maintenance"}})
	if err := engine.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}

	select {
	case evt := <-sub.Out():
		opened := evt.(*events.NotificationOpened)
		if !opened.Launch || opened.Route != models.RouteMaintenance {
			t.Errorf("Incorrect launch event %+v", opened)
		}
	case <-time.After(time.Second * 5):
		t.Fatal("Timed out waiting for launch notification")
	}
}

func TestEngine_TokenRefreshReregisters(t *testing.T) {
	engine, deps := MockEngine("tok-1")
	defer engine.Close()

	if err := engine.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := engine.RegisterWithServer(context.Background()); err != nil {
		t.Fatal(err)
	}

	deps.Bridge.DeliverToken("tok-2")
	waitFor(t, func() bool {
		return deps.API.Calls("RegisterToken") == 2
	})
	if engine.CurrentToken().Value != "tok-2" {
		t.Errorf("Expected rotated token, got %s", engine.CurrentToken().Value)
	}
	waitFor(t, func() bool {
		v, _, _ := deps.Store.Get(context.Background(), RegisteredKey)
		return v == "tok-2"
	})
	if !engine.IsRegistered() {
		t.Error("Expected token to stay registered")
	}
}

func TestEngine_TokenRefreshReregisterFails(t *testing.T) {
	engine, deps := MockEngine("tok-1")
	defer engine.Close()

	if err := engine.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := engine.RegisterWithServer(context.Background()); err != nil {
		t.Fatal(err)
	}

	deps.API.RegisterTokenFunc = func(token models.DeviceToken, info models.DeviceInfo) error {
		return ErrMockAPI
	}
	deps.Bridge.DeliverToken("tok-2")
	waitFor(t, func() bool {
		return deps.API.Calls("RegisterToken") == 2
	})

	if !engine.IsRegistered() {
		t.Error("Expected in-memory state to stay registered")
	}
	stored, _, _ := deps.Store.Get(context.Background(), RegisteredKey)
	if stored != "tok-1" {
		t.Errorf("Expected persisted flag to keep the previous token, got %q", stored)
	}

	deps.Host.SetToken("tok-2")
	restarted := NewEngine(Config{
		Provider: deps.Bridge,
		Store:    deps.Store,
		API:      deps.API,
	})
	defer restarted.Close()
	if err := restarted.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	if restarted.IsRegistered() {
		t.Error("Expected a restart to come up unregistered for the unconfirmed token")
	}
}

func TestEngine_TokenRefreshWhenUnregistered(t *testing.T) {
	engine, deps := MockEngine("tok-1")
	defer engine.Close()

	sub, err := engine.Bus().Subscribe(&events.TokenRefreshed{})
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()

	if err := engine.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	<-sub.Out() // initial token

	deps.Bridge.DeliverToken("tok-2")
	select {
	case evt := <-sub.Out():
		if evt.(*events.TokenRefreshed).Token.Value != "tok-2" {
			t.Errorf("Incorrect token %v", evt)
		}
	case <-time.After(time.Second * 5):
		t.Fatal("Timed out waiting for token refresh")
	}
	if deps.API.Calls("RegisterToken") != 0 {
		t.Error("Unregistered token should not be registered on refresh")
	}
}
