// Package mobile exposes the notification engine in a form gomobile can
// bind. Structured values cross the boundary as JSON strings.
package mobile

import (
	"context"
	"encoding/json"
	"github.com/assettrack/notifsync/appstate"
	"github.com/assettrack/notifsync/core"
	"github.com/assettrack/notifsync/fcmapi"
	"github.com/assettrack/notifsync/kvstore"
	"github.com/assettrack/notifsync/models"
	"github.com/assettrack/notifsync/notifications"
	"github.com/assettrack/notifsync/push"
	"github.com/assettrack/notifsync/repo"
	"github.com/op/go-logging"
	"github.com/pkg/errors"
	"path"
	"strings"
	"sync"
	"time"
)

var (
	log            = logging.MustGetLogger("MOBILE")
	defaultDataDir = repo.DefaultHomeDir
)

// ErrNotStarted is returned by calls that need a started node.
var ErrNotStarted = errors.New("mobile node not started")

// PushHost is implemented by the native side, which owns the platform
// messaging SDK.
type PushHost interface {
	Token() (string, error)
	Platform() string
	SubscribeToTopic(topic string) error
	UnsubscribeFromTopic(topic string) error
}

// Listener receives every notification and status update as JSON.
type Listener interface {
	OnNotification(payload string)
}

// Config holds the mobile node configuration. FallbackURLs is a comma
// separated list since gomobile cannot bind slices of strings.
type Config struct {
	LogLevel             string
	DataDir              string
	LogDir               string
	BaseURL              string
	FallbackURLs         string
	AttemptTimeoutMillis int
	DeviceModel          string
	DeviceOS             string
	Manufacturer         string
}

// NewDefaultConfig returns a new default config.
func NewDefaultConfig() *Config {
	return &Config{
		DataDir:              defaultDataDir,
		LogDir:               path.Join(defaultDataDir, "logs"),
		LogLevel:             "debug",
		BaseURL:              repo.DefaultBaseURL,
		AttemptTimeoutMillis: int(fcmapi.DefaultAttemptTimeout / time.Millisecond),
	}
}

// Node wraps the engine, state container and notifier in a way that can be
// compiled to mobile devices.
type Node struct {
	bridge    *push.Bridge
	engine    *core.Engine
	container *appstate.Container
	notifier  *notifications.Notifier
	repo      *repo.Repo

	startMtx sync.Mutex

	mtx      sync.Mutex
	listener Listener
	started  bool
	ctx      context.Context
	done     context.CancelFunc
}

// NewNode returns a new Node. When storage is nil the node persists to a
// sqlite database in the data directory.
func NewNode(cfg *Config, host PushHost, storage StorageHost) (*Node, error) {
	if cfg == nil {
		cfg = NewDefaultConfig()
	}
	dataDir := defaultDataDir
	if cfg.DataDir != "" {
		dataDir = cfg.DataDir
	}
	logDir := path.Join(dataDir, "logs")
	if cfg.LogDir != "" {
		logDir = cfg.LogDir
	}
	logLevel := "debug"
	if cfg.LogLevel != "" {
		logLevel = cfg.LogLevel
	}
	repo.SetupLogging(logDir, logLevel)

	rcfg := repo.DefaultConfig()
	rcfg.DeviceModel = cfg.DeviceModel
	rcfg.DeviceOS = cfg.DeviceOS
	rcfg.Manufacturer = cfg.Manufacturer
	info := rcfg.DeviceInfo()

	baseURL := repo.DefaultBaseURL
	if cfg.BaseURL != "" {
		baseURL = cfg.BaseURL
	}
	client, err := fcmapi.NewClient(fcmapi.Config{
		BaseURL:        baseURL,
		FallbackURLs:   splitURLs(cfg.FallbackURLs),
		AttemptTimeout: time.Duration(cfg.AttemptTimeoutMillis) * time.Millisecond,
	})
	if err != nil {
		return nil, err
	}

	n := &Node{}
	var store kvstore.Store
	if storage != nil {
		store = &hostStore{host: storage}
	} else {
		r, err := repo.NewRepo(dataDir)
		if err != nil {
			return nil, err
		}
		n.repo = r
		store = kvstore.NewSQLStore(r.DB())
	}

	n.bridge = push.NewBridge(host)
	n.engine = core.NewEngine(core.Config{
		Provider:   n.bridge,
		Store:      store,
		API:        client,
		DeviceInfo: &info,
	})
	n.container = appstate.NewContainer(n.engine)
	n.notifier = notifications.NewNotifier(n.engine.Bus(), n.container.IsNotificationEnabled, n.notify)
	return n, nil
}

// SetListener sets the receiver of notification payloads. Passing nil
// stops delivery.
func (n *Node) SetListener(l Listener) {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	n.listener = l
}

func (n *Node) notify(i interface{}) error {
	n.mtx.Lock()
	l := n.listener
	n.mtx.Unlock()
	if l == nil {
		return nil
	}
	out, err := json.Marshal(i)
	if err != nil {
		return err
	}
	l.OnNotification(string(out))
	return nil
}

// Start initializes the engine and begins delivering notifications. Once
// a call succeeds later calls do nothing; after a failure Start may be
// called again.
func (n *Node) Start() error {
	n.startMtx.Lock()
	defer n.startMtx.Unlock()

	n.mtx.Lock()
	started, ctx := n.started, n.ctx
	n.mtx.Unlock()
	if started {
		return nil
	}

	if ctx == nil {
		if err := n.container.Start(); err != nil {
			return err
		}
		go n.notifier.Start()
		n.mtx.Lock()
		n.ctx, n.done = context.WithCancel(context.Background())
		ctx = n.ctx
		n.mtx.Unlock()
	}
	if err := n.container.Initialize(ctx); err != nil {
		return err
	}

	n.mtx.Lock()
	n.started = true
	n.mtx.Unlock()
	return nil
}

// Stop will stop the Node. It cannot be restarted.
func (n *Node) Stop() {
	n.startMtx.Lock()
	defer n.startMtx.Unlock()

	n.mtx.Lock()
	running := n.ctx != nil
	if n.done != nil {
		n.done()
	}
	n.mtx.Unlock()

	if running {
		n.notifier.Stop()
	}
	n.container.Close()
	n.engine.Close()
	if n.repo != nil {
		if err := n.repo.Close(); err != nil {
			log.Errorf("Error closing repo: %s", err)
		}
	}
}

func (n *Node) context() (context.Context, error) {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	if !n.started {
		return nil, ErrNotStarted
	}
	return n.ctx, nil
}

// OnNewToken forwards the SDK's token refresh callback.
func (n *Node) OnNewToken(token string) {
	n.bridge.DeliverToken(token)
}

// OnMessage forwards a message received while the app is in the foreground.
func (n *Node) OnMessage(messageJSON string) error {
	msg, err := parseMessage(messageJSON)
	if err != nil {
		return err
	}
	n.bridge.DeliverForeground(msg)
	return nil
}

// OnNotificationOpened forwards a tap on a notification.
func (n *Node) OnNotificationOpened(messageJSON string) error {
	msg, err := parseMessage(messageJSON)
	if err != nil {
		return err
	}
	n.bridge.DeliverOpened(msg)
	return nil
}

// OnBackgroundMessage forwards a message received while the app is in the
// background.
func (n *Node) OnBackgroundMessage(messageJSON string) error {
	msg, err := parseMessage(messageJSON)
	if err != nil {
		return err
	}
	n.bridge.DeliverBackground(msg)
	return nil
}

// SetInitialNotification records the notification that launched the app.
// It must be called before Start to be picked up.
func (n *Node) SetInitialNotification(messageJSON string) error {
	msg, err := parseMessage(messageJSON)
	if err != nil {
		return err
	}
	n.bridge.SetInitialNotification(msg)
	return nil
}

// State returns the current notification state as JSON.
func (n *Node) State() (string, error) {
	out, err := json.Marshal(n.container.Snapshot())
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Login sets the bearer token and registers the device for the session.
func (n *Node) Login(authToken string) error {
	ctx, err := n.context()
	if err != nil {
		return err
	}
	n.container.SetAuthToken(authToken)
	n.container.HandleUserLogin(ctx)
	return nil
}

// Logout unregisters the device and resets the state.
func (n *Node) Logout() error {
	ctx, err := n.context()
	if err != nil {
		return err
	}
	n.container.HandleUserLogout(ctx)
	n.container.ClearAuthToken()
	return nil
}

// UpdatePreference applies a JSON encoded patch such as
// {"pushEnabled":false} to one notification type.
func (n *Node) UpdatePreference(notificationType, patchJSON string) error {
	ctx, err := n.context()
	if err != nil {
		return err
	}
	var patch models.PreferencePatch
	if err := json.Unmarshal([]byte(patchJSON), &patch); err != nil {
		return errors.Wrap(err, "decoding preference patch")
	}
	if !n.container.UpdatePreference(ctx, models.NotificationType(notificationType), patch) {
		return errors.New(n.container.Snapshot().SettingsError)
	}
	return nil
}

// LoadPreferences reloads preferences from the backend.
func (n *Node) LoadPreferences() error {
	ctx, err := n.context()
	if err != nil {
		return err
	}
	n.container.LoadPreferences(ctx)
	return nil
}

// LoadHistory loads a page of notification history into the state.
func (n *Node) LoadHistory(limit, offset int) error {
	ctx, err := n.context()
	if err != nil {
		return err
	}
	n.container.LoadNotificationHistory(ctx, limit, offset)
	return nil
}

// SendTestNotification asks the backend to push a test message to every
// device of the user and returns the delivery tally as JSON.
func (n *Node) SendTestNotification(title, body string) (string, error) {
	ctx, err := n.context()
	if err != nil {
		return "", err
	}
	result, err := n.container.SendTestNotification(ctx, title, body, nil)
	if err != nil {
		return "", err
	}
	out, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// IsNotificationEnabled reports whether pushes of notificationType are shown.
func (n *Node) IsNotificationEnabled(notificationType string) bool {
	return n.container.IsNotificationEnabled(models.NotificationType(notificationType))
}

// ClearUnreadCount resets the unread badge.
func (n *Node) ClearUnreadCount() {
	n.container.ClearUnreadCount()
}

// ClearPendingRoute drops the route of the last opened notification once
// the app has navigated to it.
func (n *Node) ClearPendingRoute() {
	n.container.Dispatch(appstate.ClearPendingRoute{})
}

func parseMessage(messageJSON string) (models.RemoteMessage, error) {
	var msg models.RemoteMessage
	if err := json.Unmarshal([]byte(messageJSON), &msg); err != nil {
		return msg, errors.Wrap(err, "decoding remote message")
	}
	return msg, nil
}

func splitURLs(s string) []string {
	var urls []string
	for _, u := range strings.Split(s, ",") {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}
