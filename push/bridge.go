package push

import (
	"context"
	"errors"
	"github.com/assettrack/notifsync/events"
	"github.com/assettrack/notifsync/models"
	"sync"
)

// ErrNoHost is returned when the bridge has no host attached.
var ErrNoHost = errors.New("push: no host attached")

// Host is implemented by the native side of the application, which owns the
// platform messaging SDK. Method signatures stick to types gomobile can bind.
type Host interface {
	// Token returns the current messaging token.
	Token() (string, error)

	// Platform returns "ios" or "android".
	Platform() string

	// SubscribeToTopic subscribes the device to a topic.
	SubscribeToTopic(topic string) error

	// UnsubscribeFromTopic unsubscribes the device from a topic.
	UnsubscribeFromTopic(topic string) error
}

// Bridge adapts a Host to the Provider interface. The native side pushes
// SDK callbacks in through the Deliver methods.
type Bridge struct {
	host Host
	bus  events.Bus

	mtx     sync.Mutex
	initial *models.RemoteMessage
}

// NewBridge returns a Bridge for host.
func NewBridge(host Host) *Bridge {
	return &Bridge{
		host: host,
		bus:  events.NewBus(),
	}
}

// Platform returns the host platform.
func (b *Bridge) Platform() models.Platform {
	if b.host == nil {
		return models.PlatformAndroid
	}
	return models.ParsePlatform(b.host.Platform())
}

// GetToken asks the host for the current token.
func (b *Bridge) GetToken(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if b.host == nil {
		return "", ErrNoHost
	}
	return b.host.Token()
}

func (b *Bridge) TokenRefreshes() (events.Subscription, error) {
	return b.bus.Subscribe(&TokenRefresh{})
}

func (b *Bridge) ForegroundMessages() (events.Subscription, error) {
	return b.bus.Subscribe(&ForegroundMessage{})
}

func (b *Bridge) NotificationsOpened() (events.Subscription, error) {
	return b.bus.Subscribe(&NotificationOpened{})
}

func (b *Bridge) BackgroundMessages() (events.Subscription, error) {
	return b.bus.Subscribe(&BackgroundMessage{})
}

// InitialNotification returns and consumes the launch notification.
func (b *Bridge) InitialNotification(ctx context.Context) (*models.RemoteMessage, error) {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	msg := b.initial
	b.initial = nil
	return msg, nil
}

func (b *Bridge) SubscribeToTopic(ctx context.Context, topic string) error {
	if b.host == nil {
		return ErrNoHost
	}
	return b.host.SubscribeToTopic(topic)
}

func (b *Bridge) UnsubscribeFromTopic(ctx context.Context, topic string) error {
	if b.host == nil {
		return ErrNoHost
	}
	return b.host.UnsubscribeFromTopic(topic)
}

// SetInitialNotification records the notification that launched the app.
func (b *Bridge) SetInitialNotification(msg models.RemoteMessage) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	b.initial = &msg
}

// DeliverToken forwards a token rotation.
func (b *Bridge) DeliverToken(token string) {
	b.bus.Emit(&TokenRefresh{Token: token})
}

// DeliverForeground forwards a foreground message.
func (b *Bridge) DeliverForeground(msg models.RemoteMessage) {
	b.bus.Emit(&ForegroundMessage{Message: msg})
}

// DeliverOpened forwards a notification tap.
func (b *Bridge) DeliverOpened(msg models.RemoteMessage) {
	b.bus.Emit(&NotificationOpened{Message: msg})
}

// DeliverBackground forwards a background message.
func (b *Bridge) DeliverBackground(msg models.RemoteMessage) {
	b.bus.Emit(&BackgroundMessage{Message: msg})
}

var _ Provider = (*Bridge)(nil)
