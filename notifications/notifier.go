package notifications

import (
	"crypto/rand"
	"encoding/hex"
	"github.com/assettrack/notifsync/events"
	"github.com/assettrack/notifsync/models"
	"github.com/op/go-logging"
	"time"
)

var log = logging.MustGetLogger("NOTIF")

type notificationWrapper struct {
	Notification interface{} `json:"notification"`
}

type openedWrapper struct {
	Opened interface{} `json:"notificationOpened"`
}

type unreadWrapper struct {
	Unread int `json:"unread"`
}

type registrationWrapper struct {
	Registration models.RegistrationState `json:"registration"`
}

type tokenWrapper struct {
	Token models.DeviceToken `json:"token"`
}

// notifierStarted is emitted once the notifier has subscribed to the bus.
type notifierStarted struct{}

// Notification is the payload pushed to websocket clients for an incoming
// or opened push message.
type Notification struct {
	ID         string                  `json:"notificationId"`
	Type       models.NotificationType `json:"type"`
	Title      string                  `json:"title"`
	Body       string                  `json:"body"`
	Route      models.Route            `json:"route,omitempty"`
	Background bool                    `json:"background,omitempty"`
	Launch     bool                    `json:"launch,omitempty"`
	Data       map[string]string       `json:"data,omitempty"`
	Timestamp  time.Time               `json:"timestamp"`
}

// Notifier manages translating engine events into notifications and
// sending them to websockets.
type Notifier struct {
	notifyFunc func(interface{}) error
	enabled    func(models.NotificationType) bool
	bus        events.Bus
	shutdown   chan struct{}
}

// NewNotifier returns a new notifier. enabled decides whether a message of
// a given type is shown; pass nil to show everything.
func NewNotifier(bus events.Bus, enabled func(models.NotificationType) bool, notifyFunc func(interface{}) error) *Notifier {
	if enabled == nil {
		enabled = func(models.NotificationType) bool { return true }
	}
	return &Notifier{
		bus:        bus,
		enabled:    enabled,
		notifyFunc: notifyFunc,
		shutdown:   make(chan struct{}),
	}
}

// Start will start up the notifier. This should use it's own goroutine.
func (n *Notifier) Start() {
	messages := []interface{}{
		&events.MessageReceived{},
		&events.BackgroundMessage{},
		&events.NotificationOpened{},
	}

	messageSub, err := n.bus.Subscribe(messages)
	if err != nil {
		log.Errorf("Error subscribing to events: %s", err)
		return
	}
	defer messageSub.Close()

	status := []interface{}{
		&events.UnreadCountChanged{},
		&events.RegistrationChanged{},
		&events.TokenRefreshed{},
	}

	statusSub, err := n.bus.Subscribe(status)
	if err != nil {
		log.Errorf("Error subscribing to events: %s", err)
		return
	}
	defer statusSub.Close()

	n.bus.Emit(&notifierStarted{})

	for {
		select {
		case event := <-messageSub.Out():
			i := n.convertMessage(event)
			if i == nil {
				continue
			}
			if err := n.notifyFunc(i); err != nil {
				log.Errorf("Error sending notification: %s", err)
			}
		case event := <-statusSub.Out():
			var i interface{}
			switch e := event.(type) {
			case *events.UnreadCountChanged:
				i = unreadWrapper{e.Count}
			case *events.RegistrationChanged:
				i = registrationWrapper{e.State}
			case *events.TokenRefreshed:
				i = tokenWrapper{e.Token}
			}

			if err := n.notifyFunc(i); err != nil {
				log.Errorf("Error sending notification: %s", err)
			}
		case <-n.shutdown:
			return
		}
	}
}

// Stop shuts down the notifier.
func (n *Notifier) Stop() {
	close(n.shutdown)
}

// convertMessage wraps a message event for the websocket. Received messages
// of a disabled type are dropped; opened ones always go through since the
// user already acted on them.
func (n *Notifier) convertMessage(event interface{}) interface{} {
	switch e := event.(type) {
	case *events.MessageReceived:
		msg := e.Message
		if !n.enabled(msg.NotificationType()) {
			log.Debugf("Suppressing %s notification %s", msg.NotificationType(), msg.MessageID)
			return nil
		}
		return notificationWrapper{toNotification(&msg)}
	case *events.BackgroundMessage:
		msg := e.Message
		if !n.enabled(msg.NotificationType()) {
			return nil
		}
		notif := toNotification(&msg)
		notif.Background = true
		return notificationWrapper{notif}
	case *events.NotificationOpened:
		msg := e.Message
		notif := toNotification(&msg)
		notif.Route = e.Route
		notif.Launch = e.Launch
		return openedWrapper{notif}
	}
	return nil
}

func toNotification(msg *models.RemoteMessage) Notification {
	id := msg.MessageID
	if id == "" {
		r := make([]byte, 20)
		rand.Read(r)
		id = hex.EncodeToString(r)
	}
	ts := msg.SentTime
	if ts.IsZero() {
		ts = time.Now()
	}
	return Notification{
		ID:        id,
		Type:      msg.NotificationType(),
		Title:     msg.Title,
		Body:      msg.Body,
		Route:     models.RouteFor(msg),
		Data:      msg.Data,
		Timestamp: ts,
	}
}
