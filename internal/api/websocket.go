package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/tempwatch-core/internal/broadcast"
	"github.com/nerrad567/tempwatch-core/internal/infrastructure/config"
	"github.com/nerrad567/tempwatch-core/internal/infrastructure/logging"
)

// WebSocket defaults applied when the config leaves a value unset.
const (
	defaultWSMaxMessageSize = 8192
	defaultWSPingInterval   = 30 * time.Second
	defaultWSPongTimeout    = 10 * time.Second
)

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// wsClient carries one hub subscription over a WebSocket connection.
// Clients only listen; anything they send is read and discarded.
type wsClient struct {
	hub    *broadcast.Hub
	sub    *broadcast.Subscriber
	conn   *websocket.Conn
	logger *logging.Logger

	maxMessageSize int64
	pingInterval   time.Duration
	pongWait       time.Duration
}

func newWSClient(hub *broadcast.Hub, sub *broadcast.Subscriber, conn *websocket.Conn, cfg config.WebSocketConfig, logger *logging.Logger) *wsClient {
	c := &wsClient{
		hub:            hub,
		sub:            sub,
		conn:           conn,
		logger:         logger,
		maxMessageSize: int64(cfg.MaxMessageSize),
		pingInterval:   time.Duration(cfg.PingInterval) * time.Second,
		pongWait:       time.Duration(cfg.PongTimeout) * time.Second,
	}
	if c.maxMessageSize <= 0 {
		c.maxMessageSize = defaultWSMaxMessageSize
	}
	if c.pingInterval <= 0 {
		c.pingInterval = defaultWSPingInterval
	}
	if c.pongWait <= 0 {
		c.pongWait = defaultWSPongTimeout
	}
	return c
}

// handleWebSocket streams update events over a WebSocket connection.
// Each text message is one event, identical to an SSE data frame.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	sub, err := s.hub.Subscribe()
	if err != nil {
		//nolint:errcheck // Best-effort close message
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "live updates unavailable"))
		conn.Close()
		return
	}

	s.logger.Debug("websocket subscriber connected",
		"subscriber", sub.ID(),
		"remote", r.RemoteAddr,
		"subscribers", s.hub.Count(),
	)

	client := newWSClient(s.hub, sub, conn, s.wsCfg, s.logger)
	go client.writePump()
	go client.readPump()
}

// readPump reads until the peer goes away, then releases the subscription.
func (c *wsClient) readPump() {
	defer func() {
		c.hub.Unsubscribe(c.sub)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.maxMessageSize)
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(c.pingInterval + c.pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.pingInterval + c.pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "subscriber", c.sub.ID(), "error", err)
			} else {
				c.logger.Debug("websocket closed", "subscriber", c.sub.ID(), "error", err)
			}
			return
		}
		// Any client message resets the read deadline (keeps connection alive
		// even if browser doesn't respond to protocol-level pings).
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(c.pingInterval + c.pongWait))
	}
}

// writePump forwards hub events to the connection and pings the peer.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer func() {
		ticker.Stop()
		c.hub.Unsubscribe(c.sub)
		c.conn.Close()
	}()

	for {
		select {
		case <-c.sub.Done():
			//nolint:errcheck // Best-effort deadline and close message
			c.conn.SetWriteDeadline(time.Now().Add(c.pongWait))
			//nolint:errcheck // Best-effort close message
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		case message := <-c.sub.Messages():
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(c.pongWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(c.pongWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
