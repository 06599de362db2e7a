// Package core implements the notification sync engine. The engine owns the
// device's push token, keeps the per-type preference cache in step with the
// backend and drives registration through login, logout and token rotation.
package core

import (
	"context"
	"github.com/assettrack/notifsync/events"
	"github.com/assettrack/notifsync/kvstore"
	"github.com/assettrack/notifsync/models"
	"github.com/assettrack/notifsync/push"
	"github.com/op/go-logging"
	"sync"
)

var log = logging.MustGetLogger("CORE")

const (
	// PreferencesKey is the key-value store key holding the preference cache.
	PreferencesKey = "notificationPreferences"

	// LastTokenKey holds the last device token the engine adopted.
	LastTokenKey = "lastDeviceToken"

	// RegisteredKey holds the value of the token last registered with the
	// backend. It is removed on unregister and logout.
	RegisteredKey = "fcmTokenRegistered"
)

// RemoteAPI is the subset of the backend the engine talks to.
// *fcmapi.Client satisfies it.
type RemoteAPI interface {
	RegisterToken(ctx context.Context, token models.DeviceToken, info models.DeviceInfo) error
	UnregisterToken(ctx context.Context, token string) error
	DeviceTokens(ctx context.Context, platform models.Platform) ([]models.RegisteredDevice, error)
	UpdatePreference(ctx context.Context, notificationType models.NotificationType, patch models.PreferencePatch) error
	Preferences(ctx context.Context) ([]models.NotificationPreference, error)
	SendTestNotification(ctx context.Context, title, body string, data map[string]string) (models.TestResult, error)
	NotificationHistory(ctx context.Context, limit, offset int) (models.HistoryPage, error)
	SetAuthToken(token string)
	ClearAuthToken()
}

// Config holds the engine's collaborators.
type Config struct {
	// Provider issues the device token and delivers messages.
	Provider push.Provider

	// Store persists the preference cache and token bookkeeping.
	Store kvstore.Store

	// API is the remote notification backend.
	API RemoteAPI

	// Bus receives the engine's events. A new bus is created if nil.
	Bus events.Bus

	// DeviceInfo is sent with every registration. Defaults to
	// models.UnknownDeviceInfo.
	DeviceInfo *models.DeviceInfo

	// Platform overrides the provider's platform when set.
	Platform models.Platform
}

// Engine is the notification sync engine. It is safe for concurrent use.
type Engine struct {
	provider   push.Provider
	store      kvstore.Store
	api        RemoteAPI
	bus        events.Bus
	deviceInfo models.DeviceInfo
	platform   models.Platform

	mtx          sync.RWMutex
	initialized  bool
	token        *models.DeviceToken
	registration models.RegistrationState
	preferences  map[models.NotificationType]models.NotificationPreference
	devices      []models.RegisteredDevice
	history      []models.HistoryEntry
	unread       int

	// epoch is bumped by every logout. Remote calls capture it before
	// they start and drop their result if it changed meanwhile.
	epoch uint64

	initMtx   sync.Mutex
	regMtx    sync.Mutex
	prefLocks *typeLocks

	subs      []events.Subscription
	shutdown  chan struct{}
	closeOnce sync.Once
	closed    bool
}

// NewEngine returns a new, uninitialized Engine.
func NewEngine(cfg Config) *Engine {
	bus := cfg.Bus
	if bus == nil {
		bus = events.NewBus()
	}
	info := models.UnknownDeviceInfo()
	if cfg.DeviceInfo != nil {
		info = *cfg.DeviceInfo
	}
	platform := cfg.Platform
	if platform == "" && cfg.Provider != nil {
		platform = cfg.Provider.Platform()
	}
	return &Engine{
		provider:     cfg.Provider,
		store:        cfg.Store,
		api:          cfg.API,
		bus:          bus,
		deviceInfo:   info,
		platform:     platform,
		registration: models.Unregistered,
		preferences:  make(map[models.NotificationType]models.NotificationPreference),
		prefLocks:    newTypeLocks(),
		shutdown:     make(chan struct{}),
	}
}

// Bus returns the bus the engine emits its events on.
func (e *Engine) Bus() events.Bus {
	return e.bus
}

// Initialize fetches the device token, restores the cached preferences and
// starts listening for push events. Only the first call does anything;
// later calls return immediately. Token and cache failures are logged and
// do not fail initialization.
func (e *Engine) Initialize(ctx context.Context) error {
	e.initMtx.Lock()
	defer e.initMtx.Unlock()

	e.mtx.RLock()
	initialized, closed := e.initialized, e.closed
	e.mtx.RUnlock()
	if closed {
		return ErrEngineClosed
	}
	if initialized {
		return nil
	}

	// Subscribe before fetching the token so no rotation is missed.
	subs, err := e.subscribePush()
	if err != nil {
		return err
	}

	token := e.GetToken(ctx)
	if token != nil {
		e.restoreRegistration(ctx, *token)
	}
	e.loadCachedPreferences(ctx)

	e.mtx.Lock()
	e.initialized = true
	e.subs = subs
	e.mtx.Unlock()

	go e.listenPushEvents(subs[0], subs[1], subs[2], subs[3])

	initial, err := e.provider.InitialNotification(ctx)
	if err != nil {
		log.Warningf("Unable to read initial notification: %s", err)
	} else if initial != nil {
		e.handleOpened(*initial, true)
	}

	log.Info("Notification engine initialized")
	e.bus.Emit(&events.Initialized{Token: token})
	return nil
}

// IsInitialized reports whether Initialize has completed.
func (e *Engine) IsInitialized() bool {
	e.mtx.RLock()
	defer e.mtx.RUnlock()
	return e.initialized
}

// GetToken asks the provider for the current token and adopts it. It
// returns nil if the provider fails, keeping any previously adopted token.
func (e *Engine) GetToken(ctx context.Context) *models.DeviceToken {
	value, err := e.provider.GetToken(ctx)
	if err != nil {
		log.Errorf("Error fetching device token: %s", err)
		return nil
	}
	if value == "" {
		log.Warning("Push provider returned an empty device token")
		return nil
	}
	token := models.DeviceToken{Value: value, Platform: e.platform}
	e.adoptToken(ctx, token)
	return &token
}

// CurrentToken returns the adopted device token, or nil.
func (e *Engine) CurrentToken() *models.DeviceToken {
	e.mtx.RLock()
	defer e.mtx.RUnlock()
	if e.token == nil {
		return nil
	}
	t := *e.token
	return &t
}

// RegistrationState returns the registration state of the current token.
func (e *Engine) RegistrationState() models.RegistrationState {
	e.mtx.RLock()
	defer e.mtx.RUnlock()
	return e.registration
}

// IsRegistered reports whether the current token is registered.
func (e *Engine) IsRegistered() bool {
	return e.RegistrationState() == models.Registered
}

// History returns the last history page fetched.
func (e *Engine) History() []models.HistoryEntry {
	e.mtx.RLock()
	defer e.mtx.RUnlock()
	return append([]models.HistoryEntry{}, e.history...)
}

// DeviceTokens returns the account's device tokens as last fetched.
func (e *Engine) DeviceTokens() []models.RegisteredDevice {
	e.mtx.RLock()
	defer e.mtx.RUnlock()
	return append([]models.RegisteredDevice{}, e.devices...)
}

// Close stops the push event loop. The engine must not be used afterwards.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		e.mtx.Lock()
		e.closed = true
		subs := e.subs
		e.subs = nil
		e.mtx.Unlock()

		close(e.shutdown)
		for _, sub := range subs {
			sub.Close()
		}
	})
}

// adoptToken makes token current and persists it. TokenRefreshed is only
// emitted when the value changes.
func (e *Engine) adoptToken(ctx context.Context, token models.DeviceToken) {
	e.mtx.Lock()
	changed := e.token == nil || *e.token != token
	t := token
	e.token = &t
	e.mtx.Unlock()

	if !changed {
		return
	}
	if e.store != nil {
		if err := e.store.Set(ctx, LastTokenKey, token.Value); err != nil {
			log.Warningf("Unable to persist device token: %s", err)
		}
	}
	e.bus.Emit(&events.TokenRefreshed{Token: token})
}

// restoreRegistration marks token registered if a previous session
// registered this same token.
func (e *Engine) restoreRegistration(ctx context.Context, token models.DeviceToken) {
	if e.store == nil {
		return
	}
	registered, ok, err := e.store.Get(ctx, RegisteredKey)
	if err != nil {
		log.Warningf("Unable to read registration flag: %s", err)
		return
	}
	if ok && registered == token.Value {
		e.setRegistration(models.Registered)
	}
}

func (e *Engine) persistRegistration(ctx context.Context, state models.RegistrationState, token string) {
	if e.store == nil {
		return
	}
	var err error
	if state == models.Registered {
		err = e.store.Set(ctx, RegisteredKey, token)
	} else {
		err = e.store.Delete(ctx, RegisteredKey)
	}
	if err != nil {
		log.Warningf("Unable to persist registration state: %s", err)
	}
}

func (e *Engine) setRegistration(state models.RegistrationState) {
	e.mtx.Lock()
	changed := e.registration != state
	e.registration = state
	e.mtx.Unlock()
	if changed {
		e.bus.Emit(&events.RegistrationChanged{State: state})
	}
}

func (e *Engine) currentEpoch() uint64 {
	e.mtx.RLock()
	defer e.mtx.RUnlock()
	return e.epoch
}
