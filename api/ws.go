package api

import (
	"encoding/json"
	"github.com/assettrack/notifsync/appstate"
	"github.com/gorilla/websocket"
	"net/http"
)

// Commands a websocket client may send.
const (
	wsCommandClearUnread = "clearUnread"
	wsCommandClearRoute  = "clearPendingRoute"
	wsCommandState       = "state"
)

type wsCommand struct {
	Command string `json:"command"`
}

type stateWrapper struct {
	State appstate.State `json:"state"`
}

type connection struct {
	// The websocket connection
	ws *websocket.Conn

	// Buffered channel of outbound messages
	send chan []byte

	// The hub
	h *hub

	container ContainerIface
}

func (c *connection) reader() {
	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			log.Debugf("Websocket read error: %s", err.Error())
			break
		}
		c.handleCommand(message)
	}
	c.ws.Close()
}

func (c *connection) handleCommand(message []byte) {
	var cmd wsCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		log.Warningf("Malformed websocket command: %s", err)
		return
	}
	switch cmd.Command {
	case wsCommandClearUnread:
		c.container.ClearUnreadCount()
	case wsCommandClearRoute:
		c.container.Dispatch(appstate.ClearPendingRoute{})
	case wsCommandState:
		out, err := marshalAndSanitizeJSON(stateWrapper{c.container.Snapshot()})
		if err != nil {
			log.Errorf("Error encoding state: %s", err)
			return
		}
		c.h.reply(c, out)
	default:
		log.Warningf("Unknown websocket command %q", cmd.Command)
	}
}

func (c *connection) writer() {
	for message := range c.send {
		err := c.ws.WriteMessage(websocket.TextMessage, message)
		if err != nil {
			log.Errorf("Websocket write error: %s", err.Error())
			break
		}
	}
	c.ws.Close()
}

var upgrader = &websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type hub struct {
	// Registered connections
	connections map[*connection]bool

	// Outbound messages to the connections
	messages chan []byte

	// Register requests from the connections
	register chan *connection

	// Unregister requests from connections
	unregister chan *connection

	// Messages addressed to a single connection
	replies chan reply

	shutdown chan struct{}
}

type reply struct {
	c *connection
	m []byte
}

func newHub() *hub {
	return &hub{
		messages:    make(chan []byte),
		register:    make(chan *connection),
		unregister:  make(chan *connection),
		replies:     make(chan reply),
		connections: make(map[*connection]bool),
		shutdown:    make(chan struct{}),
	}
}

func (h *hub) run() {
	for {
		select {
		case c := <-h.register:
			h.connections[c] = true
			log.Debug("Registered new websocket connection")
		case c := <-h.unregister:
			if _, ok := h.connections[c]; ok {
				delete(h.connections, c)
				close(c.send)
			}
			log.Debug("Unregistered websocket connection")
		case m := <-h.messages:
			for c := range h.connections {
				select {
				case c.send <- m:
				default:
					delete(h.connections, c)
					close(c.send)
				}
			}
		case r := <-h.replies:
			if h.connections[r.c] {
				select {
				case r.c.send <- r.m:
				default:
				}
			}
		case <-h.shutdown:
			for c := range h.connections {
				delete(h.connections, c)
				close(c.send)
			}
			return
		}
	}
}

// broadcast queues m for every connection. It drops the message once the
// hub is stopped.
func (h *hub) broadcast(m []byte) {
	select {
	case h.messages <- m:
	case <-h.shutdown:
	}
}

func (h *hub) reply(c *connection, m []byte) {
	select {
	case h.replies <- reply{c, m}:
	case <-h.shutdown:
	}
}

func (h *hub) stop() {
	select {
	case <-h.shutdown:
	default:
		close(h.shutdown)
	}
}

type websocketHandler struct {
	hub       *hub
	container ContainerIface
}

func newWebsocketHandler(hub *hub, container ContainerIface) *websocketHandler {
	handler := websocketHandler{
		hub:       hub,
		container: container,
	}
	return &handler
}

func (wsh websocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("Error upgrading websocket: %s", err)
		return
	}
	c := &connection{send: make(chan []byte, 256), ws: ws, h: wsh.hub, container: wsh.container}
	select {
	case c.h.register <- c:
	case <-c.h.shutdown:
		ws.Close()
		return
	}
	defer func() {
		select {
		case c.h.unregister <- c:
		case <-c.h.shutdown:
		}
	}()
	go c.writer()
	c.reader()
}
