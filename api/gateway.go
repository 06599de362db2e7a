package api

import (
	"github.com/gorilla/mux"
	"github.com/op/go-logging"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net"
	"net/http"
)

var log = logging.MustGetLogger("API")

type GatewayConfig struct {
	Listener   net.Listener
	NoCors     bool
	AllowedIPs map[string]bool
	Cookie     string
	Username   string
	Password   string
	UseSSL     bool
	SSLCert    string
	SSLKey     string
}

// Gateway represents an HTTP API gateway
type Gateway struct {
	listener  net.Listener
	container ContainerIface
	handler   http.Handler
	config    *GatewayConfig
	hub       *hub
}

// NewGateway instantiates a new gateway. The notifications API is
// multiplexed with the websocket feed and the metrics endpoint.
func NewGateway(container ContainerIface, config *GatewayConfig) (*Gateway, error) {
	var (
		g = &Gateway{
			container: container,
			config:    config,
			listener:  config.Listener,
			hub:       newHub(),
		}
		topMux = http.NewServeMux()
	)

	r := g.newV1Router()

	if !config.NoCors {
		r.Use(mux.CORSMethodMiddleware(r))
	}
	r.Use(g.AuthenticationMiddleware)

	topMux.Handle("/v1/notifications/", r)
	topMux.Handle("/ws", g.AuthenticationMiddleware(newWebsocketHandler(g.hub, container)))
	topMux.Handle("/metrics", promhttp.Handler())

	go g.hub.run()

	g.handler = topMux
	return g, nil
}

// Close shutsdown the Gateway listener.
func (g *Gateway) Close() error {
	g.hub.stop()
	return g.listener.Close()
}

// Addr returns the address the gateway is listening on.
func (g *Gateway) Addr() net.Addr {
	return g.listener.Addr()
}

// Serve begins listening on the configured address.
func (g *Gateway) Serve() error {
	log.Infof("Gateway/API server listening on %s\n", g.listener.Addr())
	var err error
	if g.config.UseSSL {
		err = http.ServeTLS(g.listener, g.handler, g.config.SSLCert, g.config.SSLKey)
	} else {
		err = http.Serve(g.listener, g.handler)
	}
	return err
}

// NotifyWebsockets sanitizes i and broadcasts it to every websocket client.
// It is the notify function handed to the notifier.
func (g *Gateway) NotifyWebsockets(i interface{}) error {
	out, err := marshalAndSanitizeJSON(i)
	if err != nil {
		return err
	}
	g.hub.broadcast(out)
	return nil
}

func (g *Gateway) newV1Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/v1/notifications/state", g.handleGETState).Methods("GET")
	r.HandleFunc("/v1/notifications/initialize", g.handlePOSTInitialize).Methods("POST")
	r.HandleFunc("/v1/notifications/register", g.handlePOSTRegister).Methods("POST")
	r.HandleFunc("/v1/notifications/unregister", g.handlePOSTUnregister).Methods("POST")
	r.HandleFunc("/v1/notifications/preferences", g.handleGETPreferences).Methods("GET")
	r.HandleFunc("/v1/notifications/preferences", g.handlePUTPreferences).Methods("PUT")
	r.HandleFunc("/v1/notifications/preferences/{notificationType}", g.handlePUTPreference).Methods("PUT")
	r.HandleFunc("/v1/notifications/devicetokens", g.handleGETDeviceTokens).Methods("GET")
	r.HandleFunc("/v1/notifications/history", g.handleGETHistory).Methods("GET")
	r.HandleFunc("/v1/notifications/test", g.handlePOSTTestNotification).Methods("POST")
	r.HandleFunc("/v1/notifications/login", g.handlePOSTLogin).Methods("POST")
	r.HandleFunc("/v1/notifications/logout", g.handlePOSTLogout).Methods("POST")
	r.HandleFunc("/v1/notifications/unread/clear", g.handlePOSTClearUnread).Methods("POST")
	r.HandleFunc("/v1/notifications/route/clear", g.handlePOSTClearRoute).Methods("POST")
	r.HandleFunc("/v1/notifications/types", g.handleGETTypes).Methods("GET")
	return r
}
