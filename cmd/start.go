package cmd

import (
	"context"
	"fmt"
	"github.com/assettrack/notifsync/api"
	"github.com/assettrack/notifsync/appstate"
	"github.com/assettrack/notifsync/core"
	"github.com/assettrack/notifsync/fcmapi"
	"github.com/assettrack/notifsync/kvstore"
	"github.com/assettrack/notifsync/models"
	"github.com/assettrack/notifsync/notifications"
	"github.com/assettrack/notifsync/push"
	"github.com/assettrack/notifsync/repo"
	"github.com/assettrack/notifsync/version"
	"github.com/fatih/color"
	"github.com/op/go-logging"
	"github.com/prometheus/client_golang/prometheus"
	"net"
	"os"
	"os/signal"
	"syscall"
)

var log = logging.MustGetLogger("CMD")

// Start is the main entry point for the notification daemon. The options
// to this command are the same as the repo config options.
type Start struct {
	repo.Config
}

// daemon holds every running component so they can be torn down in order.
type daemon struct {
	repo      *repo.Repo
	engine    *core.Engine
	container *appstate.Container
	notifier  *notifications.Notifier
	gateway   *api.Gateway
}

// Execute starts the daemon and blocks until interrupted.
func (x *Start) Execute(args []string) error {
	cfg, _, err := repo.LoadConfig()
	if err != nil {
		return err
	}

	d, err := newDaemon(cfg)
	if err != nil {
		return err
	}
	printSplashScreen()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.container.Initialize(ctx); err != nil {
		log.Errorf("Initialization failed: %s", err)
	}
	if cfg.AuthToken != "" {
		d.container.HandleUserLogin(ctx)
	}
	log.Infof("Registration state: %s", d.container.Snapshot().RegistrationState)

	go func() {
		if err := d.gateway.Serve(); err != nil {
			log.Debugf("Gateway stopped: %s", err)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	log.Info("notifsync shutting down...")
	d.stop()
	return nil
}

func newDaemon(cfg *repo.Config) (*daemon, error) {
	r, err := repo.NewRepo(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	client, err := fcmapi.NewClient(fcmapi.Config{
		BaseURL:        cfg.BaseURL,
		FallbackURLs:   cfg.FallbackURLs,
		AttemptTimeout: cfg.AttemptTimeout,
		Metrics:        fcmapi.NewMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		r.Close()
		return nil, err
	}
	if cfg.AuthToken != "" {
		client.SetAuthToken(cfg.AuthToken)
	}

	info := cfg.DeviceInfo()
	engine := core.NewEngine(core.Config{
		Provider:   push.NewBridge(push.NewStaticHost(cfg.DeviceToken, cfg.Platform)),
		Store:      kvstore.NewSQLStore(r.DB()),
		API:        client,
		DeviceInfo: &info,
		Platform:   models.ParsePlatform(cfg.Platform),
	})

	container := appstate.NewContainer(engine)
	if err := container.Start(); err != nil {
		engine.Close()
		r.Close()
		return nil, err
	}

	listener, err := net.Listen("tcp", cfg.GatewayAddr)
	if err != nil {
		container.Close()
		engine.Close()
		r.Close()
		return nil, err
	}
	gateway, err := api.NewGateway(container, &api.GatewayConfig{
		Listener: listener,
		NoCors:   cfg.NoCors,
		Username: cfg.GatewayUser,
		Password: cfg.GatewayPass,
	})
	if err != nil {
		listener.Close()
		container.Close()
		engine.Close()
		r.Close()
		return nil, err
	}

	notifier := notifications.NewNotifier(engine.Bus(), container.IsNotificationEnabled, gateway.NotifyWebsockets)
	go notifier.Start()

	return &daemon{
		repo:      r,
		engine:    engine,
		container: container,
		notifier:  notifier,
		gateway:   gateway,
	}, nil
}

func (d *daemon) stop() {
	d.notifier.Stop()
	if err := d.gateway.Close(); err != nil {
		log.Errorf("Error closing gateway: %s", err)
	}
	d.container.Close()
	d.engine.Close()
	if err := d.repo.Close(); err != nil {
		log.Errorf("Error closing repo: %s", err)
	}
}

func printSplashScreen() {
	blue := color.New(color.FgBlue)
	white := color.New(color.FgWhite)

	for i, l := range []string{
		"             _   _  __ ",
		"                 ",
		`  _ __   ___ | |_(_)/ _|`,
		` ___ _   _ _ __   ___`,
		` | '_ \ / _ \| __| | |_ `,
		`/ __| | | | '_ \ / __|`,
		` | | | | (_) | |_| |  _|`,
		`\__ \ |_| | | | | (__`,
		` |_| |_|\___/ \__|_|_|  `,
		`|___/\__, |_| |_|\___|`,
		"                        ",
		`     |___/`,
	} {
		if i%2 == 0 {
			if _, err := white.Print(l); err != nil {
				log.Debug(err)
				return
			}
			continue
		}
		if _, err := blue.Println(l); err != nil {
			log.Debug(err)
			return
		}
	}

	blue.DisableColor()
	white.DisableColor()
	fmt.Println("")
	fmt.Printf("\nnotifsync v%s\n", version.String())
}
