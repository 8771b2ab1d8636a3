package relay

import (
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
)

// Client is one relay connection. The hub closes send to tell the write
// pump to shut the socket down.
type Client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
	log  *slog.Logger
}

func newClient(id string, conn *websocket.Conn, hub *Hub, buffer int, log *slog.Logger) *Client {
	return &Client{
		id:   id,
		conn: conn,
		send: make(chan []byte, buffer),
		hub:  hub,
		log:  log.With("clientId", id),
	}
}

func (c *Client) ID() string { return c.id }

// start registers the client and launches both pumps.
func (c *Client) start() {
	c.hub.Register(c)
	go c.writePump()
	go c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) || websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				c.log.Debug("read stopped", "error", err)
			}
			return
		}
		c.handle(data)
	}
}

// handle routes one inbound frame. Frames that cannot be routed are dropped
// without closing the connection.
func (c *Client) handle(data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.log.Debug("dropping malformed frame", "error", err)
		addDropped(1)
		return
	}

	switch env.Event {
	case EventJoinList, EventLeaveList:
		var listID string
		if err := json.Unmarshal(env.Data, &listID); err != nil || listID == "" {
			c.log.Debug("dropping membership frame without list id", "event", env.Event)
			return
		}
		if env.Event == EventJoinList {
			c.hub.Join(c.id, RoomForList(listID))
		} else {
			c.hub.Leave(c.id, RoomForList(listID))
		}

	default:
		room, ok := RoomForEvent(env.Event, env.Data)
		if !ok {
			c.log.Debug("dropping unroutable frame", "event", env.Event)
			addDropped(1)
			return
		}
		c.hub.Broadcast(&Frame{Room: room, Sender: c.id, Data: data})
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.log.Debug("write failed", "error", err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
