// Package realtime is the consumer side of the list relay: it keeps one
// websocket connection open, mirrors the lists the application is viewing as
// room memberships and exposes typed emit and subscribe calls for the relayed
// events.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"todo-app-backend/internal/dto"
	"todo-app-backend/internal/relay"

	"github.com/gorilla/websocket"
)

var (
	ErrNotConnected = errors.New("realtime: not connected")
	ErrClosed       = errors.New("realtime: client closed")
	ErrEmptyListID  = errors.New("realtime: list id required")
)

type Settings struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	// ReadTimeout bounds the silence between server pings.
	ReadTimeout time.Duration
	// ReconnectMin and ReconnectMax bound the exponential backoff between
	// connection attempts.
	ReconnectMin time.Duration
	ReconnectMax time.Duration
	// DisableReconnect leaves the client Disconnected after the first drop.
	DisableReconnect bool
}

func DefaultSettings() Settings {
	return Settings{
		HandshakeTimeout: 5 * time.Second,
		WriteTimeout:     10 * time.Second,
		ReadTimeout:      75 * time.Second,
		ReconnectMin:     500 * time.Millisecond,
		ReconnectMax:     30 * time.Second,
	}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.HandshakeTimeout <= 0 {
		s.HandshakeTimeout = d.HandshakeTimeout
	}
	if s.WriteTimeout <= 0 {
		s.WriteTimeout = d.WriteTimeout
	}
	if s.ReadTimeout <= 0 {
		s.ReadTimeout = d.ReadTimeout
	}
	if s.ReconnectMin <= 0 {
		s.ReconnectMin = d.ReconnectMin
	}
	if s.ReconnectMax <= 0 {
		s.ReconnectMax = d.ReconnectMax
	}
	return s
}

// Client is safe for concurrent use. Inbound events and state changes are
// dispatched to callbacks one at a time from the connection goroutine, so a
// callback must not call Close.
type Client struct {
	url      string
	header   http.Header
	settings Settings
	dialer   *websocket.Dialer
	log      *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	start  sync.Once

	mu     sync.Mutex
	state  State
	conn   *websocket.Conn
	active map[string]struct{}

	writeMu sync.Mutex
	// joinMu orders join replays against JoinList and LeaveList.
	joinMu sync.Mutex

	stateHandlers       handlerSet[State]
	todoAddedHandlers   handlerSet[dto.Todo]
	todoUpdatedHandlers handlerSet[dto.Todo]
	todoDeletedHandlers handlerSet[dto.TodoDeleted]
	listUpdatedHandlers handlerSet[dto.List]
}

func New(url string, header http.Header, settings Settings, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	settings = settings.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		url:      url,
		header:   header,
		settings: settings,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: settings.HandshakeTimeout,
		},
		log:    log.With("component", "realtime_client"),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		state:  Disconnected,
		active: make(map[string]struct{}),
	}
}

// Start begins connecting in the background. Later calls do nothing.
func (c *Client) Start() {
	c.start.Do(func() {
		go c.run()
	})
}

// Close tears the connection down for good. The client ends in Closed.
func (c *Client) Close() {
	c.start.Do(func() { close(c.done) })
	c.cancel()

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		c.writeMu.Lock()
		conn.SetWriteDeadline(time.Now().Add(time.Second))
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		conn.Close()
	}

	<-c.done
	c.setState(Closed)
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) Connected() bool {
	return c.State() == Connected
}

// WaitConnected blocks until the client is Connected, closed or ctx ends.
func (c *Client) WaitConnected(ctx context.Context) error {
	signal := make(chan struct{}, 1)
	sub := c.OnStateChange(func(State) {
		select {
		case signal <- struct{}{}:
		default:
		}
	})
	defer sub.Cancel()

	for {
		switch c.State() {
		case Connected:
			return nil
		case Closed:
			return ErrClosed
		}
		select {
		case <-signal:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// ActiveLists returns the lists that are re-joined after every reconnect.
func (c *Client) ActiveLists() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.active))
	for id := range c.active {
		out = append(out, id)
	}
	return out
}

// JoinList marks listID active and joins its room. While disconnected the
// join is deferred to the next connection.
func (c *Client) JoinList(listID string) error {
	if listID == "" {
		return ErrEmptyListID
	}
	c.joinMu.Lock()
	defer c.joinMu.Unlock()

	c.mu.Lock()
	c.active[listID] = struct{}{}
	c.mu.Unlock()

	err := c.emit(relay.EventJoinList, listID)
	if errors.Is(err, ErrNotConnected) {
		return nil
	}
	return err
}

// LeaveList forgets listID and leaves its room.
func (c *Client) LeaveList(listID string) error {
	if listID == "" {
		return ErrEmptyListID
	}
	c.joinMu.Lock()
	defer c.joinMu.Unlock()

	c.mu.Lock()
	delete(c.active, listID)
	c.mu.Unlock()

	err := c.emit(relay.EventLeaveList, listID)
	if errors.Is(err, ErrNotConnected) {
		return nil
	}
	return err
}

func (c *Client) EmitTodoAdded(todo dto.Todo) error {
	return c.emit(relay.EventTodoAdded, todo)
}

func (c *Client) EmitTodoUpdated(todo dto.Todo) error {
	return c.emit(relay.EventTodoUpdated, todo)
}

func (c *Client) EmitTodoDeleted(todoID, listID string) error {
	return c.emit(relay.EventTodoDeleted, dto.TodoDeleted{TodoID: todoID, ListID: listID})
}

func (c *Client) EmitListUpdated(list dto.List) error {
	return c.emit(relay.EventListUpdated, list)
}

func (c *Client) OnTodoAdded(fn func(dto.Todo)) *Subscription {
	return c.todoAddedHandlers.add(fn)
}

func (c *Client) OnTodoUpdated(fn func(dto.Todo)) *Subscription {
	return c.todoUpdatedHandlers.add(fn)
}

func (c *Client) OnTodoDeleted(fn func(dto.TodoDeleted)) *Subscription {
	return c.todoDeletedHandlers.add(fn)
}

func (c *Client) OnListUpdated(fn func(dto.List)) *Subscription {
	return c.listUpdatedHandlers.add(fn)
}

func (c *Client) OnStateChange(fn func(State)) *Subscription {
	return c.stateHandlers.add(fn)
}

func (c *Client) emit(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("realtime: marshal %s: %w", event, err)
	}
	frame, err := json.Marshal(relay.Envelope{Event: event, Data: data})
	if err != nil {
		return fmt.Errorf("realtime: marshal %s: %w", event, err)
	}

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}
	return c.write(conn, frame)
}

func (c *Client) write(conn *websocket.Conn, frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(c.settings.WriteTimeout))
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("realtime: write: %w", err)
	}
	return nil
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	if c.state == s || c.state == Closed {
		c.mu.Unlock()
		return
	}
	c.state = s
	c.mu.Unlock()

	c.log.Debug("state changed", "state", s.String())
	c.stateHandlers.emit(s)
}
