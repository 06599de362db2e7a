package appstate

import (
	"context"
	"fmt"
	"github.com/assettrack/notifsync/models"
)

func (c *Container) begin(concern Concern) func() {
	c.Dispatch(SetLoading{Concern: concern, Loading: true})
	return func() {
		c.Dispatch(SetLoading{Concern: concern, Loading: false})
	}
}

// Initialize initializes the engine and records the token it obtained.
func (c *Container) Initialize(ctx context.Context) error {
	if err := c.engine.Initialize(ctx); err != nil {
		log.Errorf("Error initializing notifications: %s", err)
		return err
	}
	c.Dispatch(Initialized{
		Token:        c.engine.CurrentToken(),
		Registration: c.engine.RegistrationState(),
	})
	c.Dispatch(SetPreferences{Preferences: c.engine.Preferences()})
	c.Dispatch(SetUnreadCount{Count: c.engine.UnreadCount()})
	return nil
}

// RefreshToken asks the engine for the current token.
func (c *Container) RefreshToken(ctx context.Context) *models.DeviceToken {
	token := c.engine.GetToken(ctx)
	if token != nil {
		c.Dispatch(SetToken{Token: token})
	}
	return token
}

// LoadPreferences reloads preferences from the backend. Failures are
// recorded in PreferencesError.
func (c *Container) LoadPreferences(ctx context.Context) {
	defer c.begin(ConcernPreferences)()

	if _, err := c.engine.LoadPreferences(ctx); err != nil {
		c.Dispatch(SetError{Concern: ConcernPreferences, Message: err.Error()})
		return
	}
	c.Dispatch(SetPreferences{Preferences: c.engine.Preferences()})
	c.Dispatch(SetError{Concern: ConcernPreferences})
}

// UpdatePreference changes one preference. Failures are recorded in
// SettingsError; the returned bool reports success.
func (c *Container) UpdatePreference(ctx context.Context, notificationType models.NotificationType, patch models.PreferencePatch) bool {
	defer c.begin(ConcernSettings)()

	pref, err := c.engine.UpdatePreference(ctx, notificationType, patch)
	if err != nil {
		c.Dispatch(SetError{Concern: ConcernSettings, Message: err.Error()})
		return false
	}
	c.Dispatch(SetPreference{Preference: pref})
	c.Dispatch(SetError{Concern: ConcernSettings})
	return true
}

// UpdateMultiplePreferences changes several preferences at once. Partial
// failure is summarized in SettingsError.
func (c *Container) UpdateMultiplePreferences(ctx context.Context, updates []models.PreferenceUpdate) models.BatchResult {
	defer c.begin(ConcernSettings)()

	result := c.engine.UpdateMultiplePreferences(ctx, updates)
	c.Dispatch(SetPreferences{Preferences: c.engine.Preferences()})
	if result.Failed > 0 {
		c.Dispatch(SetError{
			Concern: ConcernSettings,
			Message: fmt.Sprintf("%d of %d preference updates failed", result.Failed, len(updates)),
		})
	} else {
		c.Dispatch(SetError{Concern: ConcernSettings})
	}
	return result
}

// LoadDeviceTokens fetches the account's device tokens. Failures are
// recorded in DeviceTokensError.
func (c *Container) LoadDeviceTokens(ctx context.Context, platform models.Platform) {
	defer c.begin(ConcernDeviceTokens)()

	devices, err := c.engine.GetUserDeviceTokens(ctx, platform)
	if err != nil {
		c.Dispatch(SetError{Concern: ConcernDeviceTokens, Message: err.Error()})
		return
	}
	c.Dispatch(SetDeviceTokens{Devices: devices})
	c.Dispatch(SetError{Concern: ConcernDeviceTokens})
}

// LoadNotificationHistory fetches a history page. Failures are recorded in
// HistoryError. A backend without history yields an empty page whose note
// lands in HistoryNote.
func (c *Container) LoadNotificationHistory(ctx context.Context, limit, offset int) {
	defer c.begin(ConcernHistory)()

	page, err := c.engine.GetNotificationHistory(ctx, limit, offset)
	if err != nil {
		c.Dispatch(SetError{Concern: ConcernHistory, Message: err.Error()})
		return
	}
	c.Dispatch(SetHistory{Page: page})
	c.Dispatch(SetError{Concern: ConcernHistory})
}

// SendTestNotification sends a test push. Unlike the loads it returns its
// error so the caller can report it straight away.
func (c *Container) SendTestNotification(ctx context.Context, title, body string, data map[string]string) (models.TestResult, error) {
	defer c.begin(ConcernTestNotification)()
	return c.engine.SendTestNotification(ctx, title, body, data)
}

// RegisterToken registers the device token and returns any error.
func (c *Container) RegisterToken(ctx context.Context) error {
	c.Dispatch(SetRegistering{Registering: true})
	defer c.Dispatch(SetRegistering{Registering: false})

	if err := c.engine.RegisterWithServer(ctx); err != nil {
		return err
	}
	c.Dispatch(SetRegistration{State: c.engine.RegistrationState()})
	return nil
}

// UnregisterToken unregisters the device token and returns any error.
func (c *Container) UnregisterToken(ctx context.Context) error {
	c.Dispatch(SetRegistering{Registering: true})
	defer c.Dispatch(SetRegistering{Registering: false})

	if err := c.engine.UnregisterFromServer(ctx); err != nil {
		return err
	}
	c.Dispatch(SetRegistration{State: c.engine.RegistrationState()})
	return nil
}

// SubscribeToTopic subscribes the device to a topic.
func (c *Container) SubscribeToTopic(ctx context.Context, topic string) error {
	return c.engine.SubscribeToTopic(ctx, topic)
}

// UnsubscribeFromTopic unsubscribes the device from a topic.
func (c *Container) UnsubscribeFromTopic(ctx context.Context, topic string) error {
	return c.engine.UnsubscribeFromTopic(ctx, topic)
}

// SetAuthToken sets the bearer token for backend calls.
func (c *Container) SetAuthToken(token string) {
	c.engine.SetAuthToken(token)
}

// ClearAuthToken drops the bearer token.
func (c *Container) ClearAuthToken() {
	c.engine.ClearAuthToken()
}

// HandleUserLogin registers the device for the new session and loads its
// preferences.
func (c *Container) HandleUserLogin(ctx context.Context) {
	c.Dispatch(SetRegistering{Registering: true})
	c.engine.HandleUserLogin(ctx)
	c.Dispatch(SetRegistration{State: c.engine.RegistrationState()})
	c.Dispatch(SetRegistering{Registering: false})
	c.LoadPreferences(ctx)
}

// HandleUserLogout unregisters the device and resets the state.
func (c *Container) HandleUserLogout(ctx context.Context) {
	c.engine.HandleUserLogout(ctx)
	c.Dispatch(Reset{})
}

// IncrementUnreadCount adds one to the unread counter.
func (c *Container) IncrementUnreadCount() {
	c.engine.IncrementUnreadCount()
	c.Dispatch(SetUnreadCount{Count: c.engine.UnreadCount()})
}

// ClearUnreadCount resets the unread counter.
func (c *Container) ClearUnreadCount() {
	c.engine.ClearUnreadCount()
	c.Dispatch(SetUnreadCount{Count: 0})
}

// SetUnreadCount sets the unread counter.
func (c *Container) SetUnreadCount(n int) {
	c.engine.SetUnreadCount(n)
	c.Dispatch(SetUnreadCount{Count: c.engine.UnreadCount()})
}

// IsNotificationEnabled reports whether pushes of notificationType are
// shown.
func (c *Container) IsNotificationEnabled(notificationType models.NotificationType) bool {
	return c.engine.IsNotificationEnabled(notificationType)
}

// GetNotificationPreference returns the effective preference for
// notificationType.
func (c *Container) GetNotificationPreference(notificationType models.NotificationType) models.NotificationPreference {
	return c.engine.GetNotificationPreference(notificationType)
}

// AllNotificationTypes returns the types a settings screen offers.
func (c *Container) AllNotificationTypes() []models.NotificationType {
	return append([]models.NotificationType{}, models.KnownNotificationTypes...)
}
