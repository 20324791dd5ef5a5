package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Connection is one websocket attached to the hub. A client may hold several
// (two tabs, two devices); the hub addresses them by user id.
type Connection struct {
	ID     string
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte

	hub       *Hub
	closeOnce sync.Once
}

// clientCommand is what a connected client may send: topic subscription
// control. Everything else the client does goes through the HTTP API.
type clientCommand struct {
	Action string `json:"action"` // "subscribe" | "unsubscribe"
	Topic  string `json:"topic"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandleWebSocket upgrades the request and attaches the connection to the hub.
func HandleWebSocket(hub *Hub, w http.ResponseWriter, r *http.Request, userID string) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.Errorf("websocket: upgrade failed: %v", err)
		return
	}

	conn := &Connection{
		ID:     uuid.NewString(),
		UserID: userID,
		Conn:   ws,
		Send:   make(chan []byte, hub.config.MessageBufferSize),
		hub:    hub,
	}

	hub.register <- conn

	go conn.writePump()
	go conn.readPump()
}

func (c *Connection) enqueue(data []byte, dropOnFull bool) {
	select {
	case c.Send <- data:
	default:
		if dropOnFull {
			logrus.Warnf("websocket: send buffer full for %s, dropping", c.UserID)
			return
		}
		c.hub.unregister <- c
	}
}

func (c *Connection) readPump() {
	defer func() {
		c.hub.unregister <- c
	}()
	c.Conn.SetReadLimit(c.hub.config.MaxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(c.hub.config.ConnectionTimeout))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(c.hub.config.ConnectionTimeout))
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logrus.Debugf("websocket: read error for %s: %v", c.UserID, err)
			}
			return
		}
		var cmd clientCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			continue
		}
		switch cmd.Action {
		case "subscribe":
			if cmd.Topic != "" {
				c.hub.Subscribe(c, cmd.Topic)
			}
		case "unsubscribe":
			if cmd.Topic != "" {
				c.hub.Unsubscribe(c, cmd.Topic)
			}
		}
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(c.hub.config.HeartbeatInterval)
	defer func() {
		ticker.Stop()
		c.hub.unregister <- c
	}()

	for {
		select {
		case data := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// close shuts the socket only. The Send channel stays open so concurrent
// fanout workers can never hit a closed channel; buffered leftovers are
// dropped with the connection.
func (c *Connection) close() {
	c.closeOnce.Do(func() {
		_ = c.Conn.Close()
	})
}
