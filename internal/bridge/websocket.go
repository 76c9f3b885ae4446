// internal/bridge/websocket.go
package bridge

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// WSChannel adapts a websocket connection into the bridge's Poster port,
// giving the iframe widget a live channel for session and cart sync.
type WSChannel struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *WSChannel) Post(env Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(env)
}

// WSHandler upgrades widget connections and runs a bridge per connection.
type WSHandler struct {
	cfg      Config
	jar      CookieJar
	carts    CartClient
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewWSHandler(cfg Config, jar CookieJar, carts CartClient, log zerolog.Logger) *WSHandler {
	h := &WSHandler{
		cfg:   cfg,
		jar:   jar,
		carts: carts,
		log:   log.With().Str("component", "bridge_ws").Logger(),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4 << 10,
		WriteBufferSize: 4 << 10,
		// Same allow-list as the message layer; a disallowed origin never
		// completes the handshake.
		CheckOrigin: func(r *http.Request) bool {
			return cfg.AllowsOrigin(r.Header.Get("Origin"))
		},
	}
	return h
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug().Err(err).Msg("upgrade failed")
		return
	}
	defer conn.Close()

	origin := r.Header.Get("Origin")
	channel := &WSChannel{conn: conn}

	jar := h.jar
	if jar == nil {
		jar = requestJar{r: r}
	}

	b := New(h.cfg, channel, nil, jar, h.carts, nil, h.log)
	b.Boot()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Poller stops with the connection; a dead socket must not leak a
	// ticker goroutine.
	go b.WatchCookies(ctx, nil)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			h.log.Debug().Err(err).Msg("connection closed")
			return
		}
		b.HandleInbound(ctx, origin, raw)
	}
}

// requestJar exposes the handshake request's cookies as the bridge's
// cookie jar: over websocket, the browser's jar rides the upgrade request.
type requestJar struct {
	r *http.Request
}

func (j requestJar) Get(name string) (string, bool) {
	c, err := j.r.Cookie(name)
	if err != nil {
		return "", false
	}
	return c.Value, true
}

func (j requestJar) Header() string {
	return j.r.Header.Get("Cookie")
}
