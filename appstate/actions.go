package appstate

import "github.com/assettrack/notifsync/models"

// Actions accepted by Dispatch.
type (
	// Initialized marks the engine initialized with token.
	Initialized struct {
		Token        *models.DeviceToken
		Registration models.RegistrationState
	}

	SetToken struct {
		Token *models.DeviceToken
	}

	SetRegistration struct {
		State models.RegistrationState
	}

	// SetRegistering flags an explicit register or unregister in flight.
	SetRegistering struct {
		Registering bool
	}

	SetLoading struct {
		Concern Concern
		Loading bool
	}

	// SetError records err for a concern. An empty message clears it.
	SetError struct {
		Concern Concern
		Message string
	}

	SetPreferences struct {
		Preferences map[models.NotificationType]models.NotificationPreference
	}

	// SetPreference replaces a single cached preference.
	SetPreference struct {
		Preference models.NotificationPreference
	}

	SetDeviceTokens struct {
		Devices []models.RegisteredDevice
	}

	SetHistory struct {
		Page models.HistoryPage
	}

	SetUnreadCount struct {
		Count int
	}

	MessageReceived struct {
		Message models.RemoteMessage
	}

	NotificationOpened struct {
		Message models.RemoteMessage
		Route   models.Route
	}

	// ClearPendingRoute acknowledges that the pending route was followed.
	ClearPendingRoute struct{}

	// Reset returns to the initial state, keeping the device token and
	// initialization since both outlive a user session.
	Reset struct{}
)

// reduce returns the state that results from applying action to s. It
// never mutates s. Unknown actions leave the state unchanged.
func reduce(s State, action interface{}) State {
	s = s.clone()
	switch a := action.(type) {
	case Initialized:
		s.IsInitialized = true
		s.FCMToken = a.Token
		s.RegistrationState = a.Registration
		s.IsRegistered = a.Registration == models.Registered
	case SetToken:
		s.FCMToken = a.Token
	case SetRegistration:
		s.RegistrationState = a.State
		s.IsRegistered = a.State == models.Registered
	case SetRegistering:
		s.Registering = a.Registering
	case SetLoading:
		switch a.Concern {
		case ConcernPreferences:
			s.PreferencesLoading = a.Loading
		case ConcernDeviceTokens:
			s.DeviceTokensLoading = a.Loading
		case ConcernHistory:
			s.HistoryLoading = a.Loading
		case ConcernSettings:
			s.SettingsLoading = a.Loading
		case ConcernTestNotification:
			s.TestNotificationLoading = a.Loading
		}
	case SetError:
		switch a.Concern {
		case ConcernPreferences:
			s.PreferencesError = a.Message
		case ConcernDeviceTokens:
			s.DeviceTokensError = a.Message
		case ConcernHistory:
			s.HistoryError = a.Message
		case ConcernSettings:
			s.SettingsError = a.Message
		}
	case SetPreferences:
		s.Preferences = make(map[models.NotificationType]models.NotificationPreference, len(a.Preferences))
		for k, v := range a.Preferences {
			s.Preferences[k] = v
		}
	case SetPreference:
		s.Preferences[a.Preference.NotificationType] = a.Preference
	case SetDeviceTokens:
		s.DeviceTokens = append([]models.RegisteredDevice{}, a.Devices...)
	case SetHistory:
		s.History = append([]models.HistoryEntry{}, a.Page.Notifications...)
		s.HistoryTotal = a.Page.Total
		s.HistoryNote = a.Page.Note
	case SetUnreadCount:
		if a.Count < 0 {
			a.Count = 0
		}
		s.UnreadCount = a.Count
	case MessageReceived:
		m := a.Message
		s.LastNotification = &m
	case NotificationOpened:
		m := a.Message
		s.LastNotification = &m
		s.PendingRoute = a.Route
	case ClearPendingRoute:
		s.PendingRoute = ""
	case Reset:
		next := InitialState()
		next.FCMToken = s.FCMToken
		next.IsInitialized = s.IsInitialized
		return next
	}
	return s
}
