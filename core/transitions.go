package core

import (
	"github.com/assettrack/notifsync/events"
	"github.com/assettrack/notifsync/models"
)

// pushState is the part of the engine state that push events act on.
type pushState struct {
	token        *models.DeviceToken
	registration models.RegistrationState
	unread       int
}

// effects lists the side effects a transition asks the engine to carry
// out once the new state is in place.
type effects struct {
	// persistToken stores the new token and announces it.
	persistToken bool

	// register re-registers the new token with the backend.
	register bool

	// emit is published on the bus in order.
	emit []interface{}
}

// onTokenRefresh adopts a rotated token. A token that was registered is
// re-registered under its new value. The in-memory state stays registered
// while that call is pending and after it fails, since the backend still
// routes the user's pushes through the previous token. The persisted
// registration flag keeps naming the previous token until the backend
// confirms the new one, so a restart before then comes up unregistered.
func onTokenRefresh(s pushState, token models.DeviceToken) (pushState, effects) {
	if s.token != nil && *s.token == token {
		return s, effects{}
	}
	fx := effects{
		persistToken: true,
		register:     s.registration == models.Registered,
	}
	s.token = &token
	return s, fx
}

// onForegroundMessage counts a message received while the app is open.
func onForegroundMessage(s pushState, msg models.RemoteMessage) (pushState, effects) {
	s.unread++
	return s, effects{
		emit: []interface{}{
			&events.MessageReceived{Message: msg},
			&events.UnreadCountChanged{Count: s.unread},
		},
	}
}

// onNotificationOpened routes a tapped notification. The message has been
// seen in the system tray already so the unread count is left alone.
func onNotificationOpened(s pushState, msg models.RemoteMessage, launch bool) (pushState, effects) {
	return s, effects{
		emit: []interface{}{
			&events.NotificationOpened{
				Message: msg,
				Route:   models.RouteFor(&msg),
				Launch:  launch,
			},
		},
	}
}

// onBackgroundMessage publishes a message handled while backgrounded.
func onBackgroundMessage(s pushState, msg models.RemoteMessage) (pushState, effects) {
	return s, effects{
		emit: []interface{}{&events.BackgroundMessage{Message: msg}},
	}
}
