package core

import (
	"context"
	"github.com/assettrack/notifsync/events"
	"github.com/assettrack/notifsync/models"
)

// RegisterWithServer registers the current token with the backend. It
// fails with ErrNoToken if no token has been issued. On failure the
// registration state is left as it was and the error is returned.
// Registering an already registered token is allowed; the backend upserts.
// A registration that completes after a logout leaves the reset state alone.
func (e *Engine) RegisterWithServer(ctx context.Context) error {
	e.regMtx.Lock()
	defer e.regMtx.Unlock()
	return e.register(ctx)
}

// UnregisterFromServer removes the current token from the backend. With no
// token it succeeds without a network call. On failure the registration
// state is left as it was and the error is returned.
func (e *Engine) UnregisterFromServer(ctx context.Context) error {
	e.regMtx.Lock()
	defer e.regMtx.Unlock()
	return e.unregister(ctx)
}

// register and unregister expect regMtx to be held.
func (e *Engine) register(ctx context.Context) error {
	token := e.CurrentToken()
	if token == nil {
		return ErrNoToken
	}
	epoch := e.currentEpoch()
	if err := e.api.RegisterToken(ctx, *token, e.deviceInfo); err != nil {
		log.Errorf("Error registering device token: %s", err)
		return err
	}
	if !e.commitRegistration(ctx, epoch, models.Registered, token.Value) {
		log.Debug("Discarding registration finished after logout")
		return nil
	}
	log.Notice("Device token registered with backend")
	return nil
}

func (e *Engine) unregister(ctx context.Context) error {
	token := e.CurrentToken()
	if token == nil {
		return nil
	}
	epoch := e.currentEpoch()
	if err := e.api.UnregisterToken(ctx, token.Value); err != nil {
		log.Errorf("Error unregistering device token: %s", err)
		return err
	}
	if !e.commitRegistration(ctx, epoch, models.Unregistered, token.Value) {
		log.Debug("Discarding unregistration finished after logout")
		return nil
	}
	log.Notice("Device token unregistered from backend")
	return nil
}

// commitRegistration stores the outcome of a backend call started in epoch.
// It returns false, changing nothing, if a logout happened meanwhile.
func (e *Engine) commitRegistration(ctx context.Context, epoch uint64, state models.RegistrationState, token string) bool {
	e.mtx.Lock()
	if e.epoch != epoch {
		e.mtx.Unlock()
		return false
	}
	changed := e.registration != state
	e.registration = state
	e.mtx.Unlock()

	e.persistRegistration(ctx, state, token)
	if state == models.Registered && e.currentEpoch() != epoch {
		// A reset ran between the state change and the write.
		e.persistRegistration(ctx, models.Unregistered, token)
	}
	if changed {
		e.bus.Emit(&events.RegistrationChanged{State: state})
	}
	return true
}

// SetAuthToken sets the bearer token used for backend calls.
func (e *Engine) SetAuthToken(token string) {
	e.api.SetAuthToken(token)
}

// ClearAuthToken drops the bearer token.
func (e *Engine) ClearAuthToken() {
	e.api.ClearAuthToken()
}

// HandleUserLogin registers the current token if it is not registered yet.
// Failures are logged; login never blocks on notifications.
func (e *Engine) HandleUserLogin(ctx context.Context) {
	e.regMtx.Lock()
	defer e.regMtx.Unlock()

	e.mtx.RLock()
	hasToken := e.token != nil
	registered := e.registration == models.Registered
	e.mtx.RUnlock()

	if !hasToken || registered {
		return
	}
	if err := e.register(ctx); err != nil {
		log.Warningf("Registration on login failed: %s", err)
	}
}

// HandleUserLogout unregisters the current token if it is registered, then
// forgets all per-user state whatever the backend said. The device token
// itself belongs to the installation and is kept. A registration still in
// flight is waited for so it can be undone under the outgoing session.
func (e *Engine) HandleUserLogout(ctx context.Context) {
	e.regMtx.Lock()
	defer e.regMtx.Unlock()

	if e.IsRegistered() {
		if err := e.unregister(ctx); err != nil {
			log.Warningf("Unregister on logout failed, resetting anyway: %s", err)
		}
	}
	e.api.ClearAuthToken()
	e.reset(ctx)
}

// reset returns the per-user state to its initial values.
func (e *Engine) reset(ctx context.Context) {
	e.mtx.Lock()
	e.epoch++
	wasRegistered := e.registration == models.Registered
	e.registration = models.Unregistered
	e.preferences = make(map[models.NotificationType]models.NotificationPreference)
	e.devices = nil
	e.history = nil
	e.unread = 0
	e.mtx.Unlock()

	if e.store != nil {
		if err := e.store.Delete(ctx, PreferencesKey); err != nil {
			log.Warningf("Unable to clear cached preferences: %s", err)
		}
		if err := e.store.Delete(ctx, RegisteredKey); err != nil {
			log.Warningf("Unable to clear registration state: %s", err)
		}
	}

	if wasRegistered {
		e.bus.Emit(&events.RegistrationChanged{State: models.Unregistered})
	}
	e.bus.Emit(&events.PreferencesChanged{Preferences: map[models.NotificationType]models.NotificationPreference{}})
	e.bus.Emit(&events.UnreadCountChanged{Count: 0})
	e.bus.Emit(&events.StateReset{})
	log.Info("Notification state reset")
}
