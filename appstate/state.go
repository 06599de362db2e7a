// Package appstate holds the observable state the presentation layer
// renders from. Every engine operation has a wrapper here that records its
// progress and outcome in the state instead of failing into the UI, except
// the explicit user actions, which return their errors.
package appstate

import "github.com/assettrack/notifsync/models"

// Concern identifies one independently loading part of the state.
type Concern string

const (
	ConcernPreferences      Concern = "preferences"
	ConcernDeviceTokens     Concern = "deviceTokens"
	ConcernHistory          Concern = "history"
	ConcernSettings         Concern = "settings"
	ConcernTestNotification Concern = "testNotification"
)

// State is a snapshot of the notification state.
type State struct {
	FCMToken          *models.DeviceToken      `json:"fcmToken"`
	IsInitialized     bool                     `json:"isInitialized"`
	RegistrationState models.RegistrationState `json:"registrationState"`
	IsRegistered      bool                     `json:"isRegistered"`
	Registering       bool                     `json:"registering"`

	Preferences  map[models.NotificationType]models.NotificationPreference `json:"preferences"`
	DeviceTokens []models.RegisteredDevice                                 `json:"deviceTokens"`
	History      []models.HistoryEntry                                     `json:"notificationHistory"`
	HistoryTotal int                                                       `json:"historyTotal"`
	HistoryNote  string                                                    `json:"historyNote,omitempty"`
	UnreadCount  int                                                       `json:"unreadCount"`

	LastNotification *models.RemoteMessage `json:"lastNotification,omitempty"`
	PendingRoute     models.Route          `json:"pendingRoute,omitempty"`

	PreferencesLoading      bool `json:"preferencesLoading"`
	DeviceTokensLoading     bool `json:"deviceTokensLoading"`
	HistoryLoading          bool `json:"historyLoading"`
	SettingsLoading         bool `json:"settingsLoading"`
	TestNotificationLoading bool `json:"testNotificationLoading"`

	PreferencesError  string `json:"preferencesError,omitempty"`
	DeviceTokensError string `json:"deviceTokensError,omitempty"`
	HistoryError      string `json:"historyError,omitempty"`
	SettingsError     string `json:"settingsError,omitempty"`
}

// InitialState returns the state before anything has loaded.
func InitialState() State {
	return State{
		RegistrationState: models.Unregistered,
		Preferences:       make(map[models.NotificationType]models.NotificationPreference),
		DeviceTokens:      []models.RegisteredDevice{},
		History:           []models.HistoryEntry{},
	}
}

// Loading reports the loading flag for c.
func (s State) Loading(c Concern) bool {
	switch c {
	case ConcernPreferences:
		return s.PreferencesLoading
	case ConcernDeviceTokens:
		return s.DeviceTokensLoading
	case ConcernHistory:
		return s.HistoryLoading
	case ConcernSettings:
		return s.SettingsLoading
	case ConcernTestNotification:
		return s.TestNotificationLoading
	}
	return false
}

// Error reports the recorded error for c.
func (s State) Error(c Concern) string {
	switch c {
	case ConcernPreferences:
		return s.PreferencesError
	case ConcernDeviceTokens:
		return s.DeviceTokensError
	case ConcernHistory:
		return s.HistoryError
	case ConcernSettings:
		return s.SettingsError
	}
	return ""
}

// clone returns a copy of s that shares no mutable memory with it.
func (s State) clone() State {
	out := s
	if s.FCMToken != nil {
		t := *s.FCMToken
		out.FCMToken = &t
	}
	out.Preferences = make(map[models.NotificationType]models.NotificationPreference, len(s.Preferences))
	for k, v := range s.Preferences {
		out.Preferences[k] = v
	}
	out.DeviceTokens = append([]models.RegisteredDevice{}, s.DeviceTokens...)
	out.History = append([]models.HistoryEntry{}, s.History...)
	if s.LastNotification != nil {
		m := *s.LastNotification
		out.LastNotification = &m
	}
	return out
}
