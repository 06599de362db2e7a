package events

import "github.com/assettrack/notifsync/models"

// Initialized is emitted once the engine completes its first Initialize.
type Initialized struct {
	Token *models.DeviceToken
}

// TokenRefreshed is emitted whenever the engine adopts a new device token.
type TokenRefreshed struct {
	Token models.DeviceToken
}

// RegistrationChanged is emitted on every registration state transition.
type RegistrationChanged struct {
	State models.RegistrationState
}

// PreferencesChanged carries a full copy of the preference cache after any
// change to it.
type PreferencesChanged struct {
	Preferences map[models.NotificationType]models.NotificationPreference
}

// UnreadCountChanged carries the new unread counter value.
type UnreadCountChanged struct {
	Count int
}

// MessageReceived is emitted for a push delivered while the app is in the
// foreground.
type MessageReceived struct {
	Message models.RemoteMessage
}

// NotificationOpened is emitted when the user taps a notification, either
// while the app runs or when the tap launched the app.
type NotificationOpened struct {
	Message models.RemoteMessage
	Route   models.Route
	Launch  bool
}

// BackgroundMessage is emitted for a push handled while the app is in the
// background.
type BackgroundMessage struct {
	Message models.RemoteMessage
}

// StateReset is emitted after logout clears the engine's per-user state.
type StateReset struct{}
