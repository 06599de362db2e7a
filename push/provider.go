// Package push defines the push token provider the sync engine consumes
// and adapters for hosting it on a device.
package push

import (
	"context"
	"github.com/assettrack/notifsync/events"
	"github.com/assettrack/notifsync/models"
)

// TokenRefresh is delivered when the provider rotates the device token.
type TokenRefresh struct {
	Token string
}

// ForegroundMessage is delivered for a push received while the app is in
// the foreground.
type ForegroundMessage struct {
	Message models.RemoteMessage
}

// NotificationOpened is delivered when the user taps a notification while
// the app is backgrounded.
type NotificationOpened struct {
	Message models.RemoteMessage
}

// BackgroundMessage is delivered to the background message handler.
type BackgroundMessage struct {
	Message models.RemoteMessage
}

// Provider issues the device token and delivers inbound messages. Each
// stream is exposed as a subscription the caller must close.
type Provider interface {
	// Platform returns the platform tokens from this provider belong to.
	Platform() models.Platform

	// GetToken returns the current device token.
	GetToken(ctx context.Context) (string, error)

	// TokenRefreshes streams *TokenRefresh events.
	TokenRefreshes() (events.Subscription, error)

	// ForegroundMessages streams *ForegroundMessage events.
	ForegroundMessages() (events.Subscription, error)

	// NotificationsOpened streams *NotificationOpened events.
	NotificationsOpened() (events.Subscription, error)

	// BackgroundMessages streams *BackgroundMessage events.
	BackgroundMessages() (events.Subscription, error)

	// InitialNotification returns the notification that launched the app,
	// or nil if the app was not launched from one.
	InitialNotification(ctx context.Context) (*models.RemoteMessage, error)

	// SubscribeToTopic subscribes this device to a broadcast topic.
	SubscribeToTopic(ctx context.Context, topic string) error

	// UnsubscribeFromTopic reverses SubscribeToTopic.
	UnsubscribeFromTopic(ctx context.Context, topic string) error
}
