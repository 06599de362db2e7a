package appstate

import (
	"context"
	"github.com/assettrack/notifsync/events"
	"github.com/assettrack/notifsync/models"
	"github.com/op/go-logging"
	"sync"
)

var log = logging.MustGetLogger("APPSTATE")

// Engine is the notification engine as seen by the container.
// *core.Engine satisfies it.
type Engine interface {
	Bus() events.Bus
	Initialize(ctx context.Context) error
	GetToken(ctx context.Context) *models.DeviceToken
	CurrentToken() *models.DeviceToken
	RegistrationState() models.RegistrationState
	RegisterWithServer(ctx context.Context) error
	UnregisterFromServer(ctx context.Context) error
	LoadPreferences(ctx context.Context) ([]models.NotificationPreference, error)
	UpdatePreference(ctx context.Context, notificationType models.NotificationType, patch models.PreferencePatch) (models.NotificationPreference, error)
	UpdateMultiplePreferences(ctx context.Context, updates []models.PreferenceUpdate) models.BatchResult
	GetNotificationPreference(notificationType models.NotificationType) models.NotificationPreference
	IsNotificationEnabled(notificationType models.NotificationType) bool
	Preferences() map[models.NotificationType]models.NotificationPreference
	SendTestNotification(ctx context.Context, title, body string, data map[string]string) (models.TestResult, error)
	GetNotificationHistory(ctx context.Context, limit, offset int) (models.HistoryPage, error)
	GetUserDeviceTokens(ctx context.Context, platform models.Platform) ([]models.RegisteredDevice, error)
	SubscribeToTopic(ctx context.Context, topic string) error
	UnsubscribeFromTopic(ctx context.Context, topic string) error
	SetAuthToken(token string)
	ClearAuthToken()
	HandleUserLogin(ctx context.Context)
	HandleUserLogout(ctx context.Context)
	IncrementUnreadCount()
	ClearUnreadCount()
	SetUnreadCount(n int)
	UnreadCount() int
}

// StateChanged is emitted on the container's bus after every dispatch that
// was applied.
type StateChanged struct {
	State State
}

// Container holds the current State and applies actions to it.
type Container struct {
	engine Engine
	bus    events.Bus

	mtx    sync.RWMutex
	state  State
	closed bool

	sub      events.Subscription
	shutdown chan struct{}
	done     chan struct{}
}

// NewContainer returns a container in the initial state. Call Start to
// mirror the engine's events into it.
func NewContainer(engine Engine) *Container {
	return &Container{
		engine:   engine,
		bus:      events.NewBus(),
		state:    InitialState(),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start subscribes to the engine's events so that changes the engine makes
// on its own, such as token rotation or incoming messages, reach the state.
func (c *Container) Start() error {
	sub, err := c.engine.Bus().Subscribe([]interface{}{
		&events.Initialized{},
		&events.TokenRefreshed{},
		&events.RegistrationChanged{},
		&events.PreferencesChanged{},
		&events.UnreadCountChanged{},
		&events.MessageReceived{},
		&events.NotificationOpened{},
		&events.StateReset{},
	})
	if err != nil {
		return err
	}
	c.mtx.Lock()
	c.sub = sub
	c.mtx.Unlock()
	go c.listenEngineEvents(sub)
	return nil
}

func (c *Container) listenEngineEvents(sub events.Subscription) {
	defer close(c.done)
	for {
		select {
		case evt, ok := <-sub.Out():
			if !ok {
				return
			}
			c.handleEngineEvent(evt)
		case <-c.shutdown:
			return
		}
	}
}

func (c *Container) handleEngineEvent(evt interface{}) {
	switch e := evt.(type) {
	case *events.Initialized:
		c.Dispatch(Initialized{Token: e.Token, Registration: c.engine.RegistrationState()})
	case *events.TokenRefreshed:
		t := e.Token
		c.Dispatch(SetToken{Token: &t})
	case *events.RegistrationChanged:
		c.Dispatch(SetRegistration{State: e.State})
	case *events.PreferencesChanged:
		c.Dispatch(SetPreferences{Preferences: e.Preferences})
	case *events.UnreadCountChanged:
		c.Dispatch(SetUnreadCount{Count: e.Count})
	case *events.MessageReceived:
		c.Dispatch(MessageReceived{Message: e.Message})
	case *events.NotificationOpened:
		c.Dispatch(NotificationOpened{Message: e.Message, Route: e.Route})
	case *events.StateReset:
		c.Dispatch(Reset{})
	}
}

// Dispatch applies action to the state. After Close it does nothing.
func (c *Container) Dispatch(action interface{}) {
	c.mtx.Lock()
	if c.closed {
		c.mtx.Unlock()
		log.Debugf("Dropping %T dispatched after close", action)
		return
	}
	c.state = reduce(c.state, action)
	snapshot := c.state.clone()
	c.mtx.Unlock()

	c.bus.Emit(&StateChanged{State: snapshot})
}

// Snapshot returns a copy of the current state.
func (c *Container) Snapshot() State {
	c.mtx.RLock()
	defer c.mtx.RUnlock()
	return c.state.clone()
}

// Subscribe returns a subscription delivering *StateChanged events.
func (c *Container) Subscribe(opts ...events.SubscriptionOpt) (events.Subscription, error) {
	return c.bus.Subscribe(&StateChanged{}, opts...)
}

// Close stops the container. Results of operations still in flight are
// discarded.
func (c *Container) Close() {
	c.mtx.Lock()
	if c.closed {
		c.mtx.Unlock()
		return
	}
	c.closed = true
	sub := c.sub
	c.mtx.Unlock()

	close(c.shutdown)
	if sub != nil {
		sub.Close()
		<-c.done
	}
}
