package core

import (
	"context"
	"github.com/assettrack/notifsync/fcmapi"
	"github.com/assettrack/notifsync/models"
)

const (
	// DefaultHistoryLimit is the page size used when none is given.
	DefaultHistoryLimit = 50

	// HistoryNotImplementedNote marks a history page standing in for a
	// backend without the history endpoint.
	HistoryNotImplementedNote = "This endpoint is not implemented on the backend yet"
)

// GetNotificationHistory fetches a page of history. A 404 means the
// backend does not serve history, so it returns an empty page carrying
// HistoryNotImplementedNote instead of an error. Every other failure is
// returned. A non-positive limit selects DefaultHistoryLimit.
func (e *Engine) GetNotificationHistory(ctx context.Context, limit, offset int) (models.HistoryPage, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}

	epoch := e.currentEpoch()
	page, err := e.api.NotificationHistory(ctx, limit, offset)
	if fcmapi.IsNotFound(err) {
		log.Infof("Notification history is not available on this backend")
		page = models.HistoryPage{
			Notifications: []models.HistoryEntry{},
			Total:         0,
			Limit:         limit,
			Offset:        offset,
			Note:          HistoryNotImplementedNote,
		}
	} else if err != nil {
		log.Errorf("Error fetching notification history: %s", err)
		return models.HistoryPage{}, err
	}

	e.mtx.Lock()
	if e.epoch == epoch {
		e.history = append([]models.HistoryEntry{}, page.Notifications...)
	}
	e.mtx.Unlock()
	return page, nil
}

// GetUserDeviceTokens lists the device tokens registered for the account,
// optionally filtered by platform, and remembers the result.
func (e *Engine) GetUserDeviceTokens(ctx context.Context, platform models.Platform) ([]models.RegisteredDevice, error) {
	epoch := e.currentEpoch()
	devices, err := e.api.DeviceTokens(ctx, platform)
	if err != nil {
		log.Errorf("Error fetching device tokens: %s", err)
		return nil, err
	}
	e.mtx.Lock()
	if e.epoch == epoch {
		e.devices = append([]models.RegisteredDevice{}, devices...)
	}
	e.mtx.Unlock()
	return devices, nil
}

// SendTestNotification asks the backend to push a test notification to
// the account's devices and returns its delivery tally.
func (e *Engine) SendTestNotification(ctx context.Context, title, body string, data map[string]string) (models.TestResult, error) {
	result, err := e.api.SendTestNotification(ctx, title, body, data)
	if err != nil {
		log.Errorf("Error sending test notification: %s", err)
		return models.TestResult{}, err
	}
	log.Infof("Test notification sent: %d delivered, %d failed", result.SuccessCount, result.FailureCount)
	return result, nil
}

// SubscribeToTopic subscribes the device to a broadcast topic.
func (e *Engine) SubscribeToTopic(ctx context.Context, topic string) error {
	if err := e.provider.SubscribeToTopic(ctx, topic); err != nil {
		log.Errorf("Error subscribing to topic %s: %s", topic, err)
		return err
	}
	log.Infof("Subscribed to topic %s", topic)
	return nil
}

// UnsubscribeFromTopic unsubscribes the device from a broadcast topic.
func (e *Engine) UnsubscribeFromTopic(ctx context.Context, topic string) error {
	if err := e.provider.UnsubscribeFromTopic(ctx, topic); err != nil {
		log.Errorf("Error unsubscribing from topic %s: %s", topic, err)
		return err
	}
	log.Infof("Unsubscribed from topic %s", topic)
	return nil
}
