package realtime

import (
	"encoding/json"
	"time"

	"todo-app-backend/internal/relay"

	"github.com/gorilla/websocket"
)

// run dials, serves and redials until the client is closed.
func (c *Client) run() {
	defer close(c.done)

	backoff := newBackoff(c.settings.ReconnectMin, c.settings.ReconnectMax)
	c.setState(Connecting)

	for {
		conn, _, err := c.dialer.DialContext(c.ctx, c.url, c.header)
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			c.log.Info("connect failed", "url", c.url, "error", err)
		} else if c.attach(conn) {
			backoff.reset()
			c.serve(conn)
		}

		if c.ctx.Err() != nil {
			return
		}
		if c.settings.DisableReconnect {
			c.setState(Disconnected)
			return
		}
		c.setState(Reconnecting)

		select {
		case <-c.ctx.Done():
			return
		case <-time.After(backoff.next()):
		}
	}
}

// attach publishes conn as the current connection and replays the joins of
// every active list. The server keeps no memberships for a new connection.
func (c *Client) attach(conn *websocket.Conn) bool {
	c.mu.Lock()
	if c.ctx.Err() != nil {
		c.mu.Unlock()
		conn.Close()
		return false
	}
	c.conn = conn
	lists := make([]string, 0, len(c.active))
	for id := range c.active {
		lists = append(lists, id)
	}
	c.mu.Unlock()

	c.setState(Connected)
	c.log.Info("connected", "url", c.url, "lists", len(lists))

	c.rejoin(lists)
	return true
}

// rejoin replays joins for lists that are still active. A list left since
// the snapshot was taken is skipped.
func (c *Client) rejoin(lists []string) {
	c.joinMu.Lock()
	defer c.joinMu.Unlock()

	for _, listID := range lists {
		c.mu.Lock()
		_, active := c.active[listID]
		c.mu.Unlock()
		if !active {
			continue
		}
		if err := c.emit(relay.EventJoinList, listID); err != nil {
			c.log.Warn("rejoin failed", "listId", listID, "error", err)
		}
	}
}

func (c *Client) detach(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	conn.Close()
}

// serve reads frames until the connection fails.
func (c *Client) serve(conn *websocket.Conn) {
	defer c.detach(conn)

	conn.SetReadDeadline(time.Now().Add(c.settings.ReadTimeout))
	conn.SetPingHandler(func(data string) error {
		conn.SetReadDeadline(time.Now().Add(c.settings.ReadTimeout))
		err := conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(c.settings.WriteTimeout))
		if err == websocket.ErrCloseSent {
			return nil
		}
		return err
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if c.ctx.Err() == nil {
				c.log.Info("connection lost", "error", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(c.settings.ReadTimeout))
		c.dispatch(data)
	}
}

func (c *Client) dispatch(data []byte) {
	var env relay.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		c.log.Debug("ignoring malformed frame", "error", err)
		return
	}

	var err error
	switch env.Event {
	case relay.EventTodoAdded:
		err = decodeAndEmit(env.Data, &c.todoAddedHandlers)
	case relay.EventTodoUpdated:
		err = decodeAndEmit(env.Data, &c.todoUpdatedHandlers)
	case relay.EventTodoDeleted:
		err = decodeAndEmit(env.Data, &c.todoDeletedHandlers)
	case relay.EventListUpdated:
		err = decodeAndEmit(env.Data, &c.listUpdatedHandlers)
	default:
		c.log.Debug("ignoring event", "event", env.Event)
	}
	if err != nil {
		c.log.Debug("ignoring undecodable payload", "event", env.Event, "error", err)
	}
}

func decodeAndEmit[T any](raw json.RawMessage, handlers *handlerSet[T]) error {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	handlers.emit(v)
	return nil
}

type backoff struct {
	min, max, cur time.Duration
}

func newBackoff(min, max time.Duration) *backoff {
	if min <= 0 {
		min = 500 * time.Millisecond
	}
	if max < min {
		max = min
	}
	return &backoff{min: min, max: max, cur: min}
}

func (b *backoff) next() time.Duration {
	d := b.cur
	b.cur *= 2
	if b.cur > b.max {
		b.cur = b.max
	}
	return d
}

func (b *backoff) reset() {
	b.cur = b.min
}
