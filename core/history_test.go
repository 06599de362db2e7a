package core

import (
	"context"
	"github.com/assettrack/notifsync/fcmapi"
	"github.com/assettrack/notifsync/models"
	"net/http"
	"testing"
)

func TestEngine_GetNotificationHistory(t *testing.T) {
	engine, deps := MockEngine("tok-123")
	defer engine.Close()

	var gotLimit, gotOffset int
	deps.API.NotificationHistoryFunc = func(limit, offset int) (models.HistoryPage, error) {
		gotLimit, gotOffset = limit, offset
		return models.HistoryPage{
			Notifications: []models.HistoryEntry{{ID: "n1", Title: "A"}},
			Total:         1,
			Limit:         limit,
			Offset:        offset,
		}, nil
	}

	page, err := engine.GetNotificationHistory(context.Background(), 0, -5)
	if err != nil {
		t.Fatal(err)
	}
	if gotLimit != DefaultHistoryLimit || gotOffset != 0 {
		t.Errorf("Expected defaults 50/0, got %d/%d", gotLimit, gotOffset)
	}
	if page.NotImplemented() {
		t.Error("Real page should not carry a note")
	}
	if len(engine.History()) != 1 {
		t.Errorf("Expected history to be kept, got %d", len(engine.History()))
	}
}

func TestEngine_GetNotificationHistoryNotFound(t *testing.T) {
	engine, deps := MockEngine("tok-123")
	defer engine.Close()

	deps.API.NotificationHistoryFunc = func(limit, offset int) (models.HistoryPage, error) {
		return models.HistoryPage{}, &fcmapi.APIError{Status: http.StatusNotFound, Message: "Cannot GET /api/fcm/notification-history"}
	}

	page, err := engine.GetNotificationHistory(context.Background(), 20, 10)
	if err != nil {
		t.Fatalf("Expected degrade to empty, got %v", err)
	}
	if page.Notifications == nil || len(page.Notifications) != 0 {
		t.Errorf("Expected empty notifications, got %v", page.Notifications)
	}
	if page.Total != 0 {
		t.Errorf("Expected total 0, got %d", page.Total)
	}
	if page.Note == "" || !page.NotImplemented() {
		t.Error("Expected explanatory note")
	}
	if page.Limit != 20 || page.Offset != 10 {
		t.Errorf("Expected request paging, got %d/%d", page.Limit, page.Offset)
	}
}

func TestEngine_GetNotificationHistoryOtherErrors(t *testing.T) {
	for _, apiErr := range []error{
		&fcmapi.APIError{Status: http.StatusInternalServerError, Message: "boom"},
		&fcmapi.APIError{Message: "dial tcp: connection refused"},
	} {
		engine, deps := MockEngine("tok-123")
		deps.API.NotificationHistoryFunc = func(limit, offset int) (models.HistoryPage, error) {
			return models.HistoryPage{}, apiErr
		}
		if _, err := engine.GetNotificationHistory(context.Background(), 50, 0); err != apiErr {
			t.Errorf("Expected %v to propagate, got %v", apiErr, err)
		}
		engine.Close()
	}
}

func TestEngine_GetUserDeviceTokens(t *testing.T) {
	engine, deps := MockEngine("tok-123")
	defer engine.Close()

	deps.API.DeviceTokensFunc = func(platform models.Platform) ([]models.RegisteredDevice, error) {
		if platform != models.PlatformIOS {
			t.Errorf("Incorrect platform %s", platform)
		}
		return []models.RegisteredDevice{{DeviceToken: "a"}, {DeviceToken: "b"}}, nil
	}
	devices, err := engine.GetUserDeviceTokens(context.Background(), models.PlatformIOS)
	if err != nil {
		t.Fatal(err)
	}
	if len(devices) != 2 || len(engine.DeviceTokens()) != 2 {
		t.Errorf("Expected 2 devices")
	}

	deps.API.DeviceTokensFunc = func(platform models.Platform) ([]models.RegisteredDevice, error) {
		return nil, ErrMockAPI
	}
	if _, err := engine.GetUserDeviceTokens(context.Background(), ""); err != ErrMockAPI {
		t.Errorf("Expected error, got %v", err)
	}
	if len(engine.DeviceTokens()) != 2 {
		t.Error("Failed fetch should keep the previous list")
	}
}

func TestEngine_SendTestNotification(t *testing.T) {
	engine, deps := MockEngine("tok-123")
	defer engine.Close()

	deps.API.SendTestNotificationFunc = func(title, body string, data map[string]string) (models.TestResult, error) {
		return models.TestResult{SuccessCount: 3, FailureCount: 1}, nil
	}
	result, err := engine.SendTestNotification(context.Background(), "T", "B", nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.SuccessCount != 3 || result.FailureCount != 1 {
		t.Errorf("Incorrect tally %+v", result)
	}
	if len(engine.Preferences()) != 0 {
		t.Error("Test sends should not touch preferences")
	}

	deps.API.SendTestNotificationFunc = func(title, body string, data map[string]string) (models.TestResult, error) {
		return models.TestResult{}, ErrMockAPI
	}
	if _, err := engine.SendTestNotification(context.Background(), "T", "B", nil); err != ErrMockAPI {
		t.Errorf("Expected error, got %v", err)
	}
}
