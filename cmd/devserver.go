package cmd

import (
	"context"
	"github.com/assettrack/notifsync/devserver"
	"github.com/assettrack/notifsync/repo"
	"github.com/joho/godotenv"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// DevServer runs an in-memory notification backend for local testing.
type DevServer struct {
	ListenAddr      string `short:"a" long:"listen" description:"Address to listen on" default:"127.0.0.1:3000"`
	EnvFile         string `short:"e" long:"envfile" description:"Path to a .env file to load" default:".env"`
	CredentialsFile string `long:"credentials" description:"Firebase service account file. Defaults to GOOGLE_APPLICATION_CREDENTIALS."`
	DisableHistory  bool   `long:"nohistory" description:"Respond 404 on the history endpoint like a backend without it"`
	LogLevel        string `short:"l" long:"loglevel" description:"Set the logging level [debug, info, notice, warning, error, critical]" default:"info"`
}

// Execute starts the dev backend and blocks until interrupted.
func (x *DevServer) Execute(args []string) error {
	repo.SetupLogging("", x.LogLevel)

	if err := godotenv.Load(x.EnvFile); err != nil && !os.IsNotExist(err) {
		log.Warningf("Error loading %s: %s", x.EnvFile, err)
	}
	if x.CredentialsFile == "" {
		x.CredentialsFile = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var sender devserver.Sender = devserver.LoopbackSender{}
	if x.CredentialsFile != "" {
		fcm, err := devserver.NewFCMSender(ctx, x.CredentialsFile)
		if err != nil {
			return err
		}
		sender = fcm
		log.Info("Delivering test notifications through FCM")
	} else {
		log.Info("No Firebase credentials found, test notifications use the loopback sender")
	}

	server := &http.Server{
		Addr: x.ListenAddr,
		Handler: devserver.NewServer(devserver.Config{
			Sender:         sender,
			DisableHistory: x.DisableHistory,
		}),
	}
	go func() {
		log.Infof("Dev backend listening on %s", x.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("Dev backend stopped: %s", err)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	log.Info("Dev backend shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}
