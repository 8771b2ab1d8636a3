package relay

import (
	"context"
	"errors"
	"log/slog"
)

var ErrHubStopped = errors.New("relay: hub stopped")

// Bridge carries frames between relay instances. The hub calls it from its
// dispatcher goroutine, so implementations must not block.
type Bridge interface {
	Watch(room string)
	Unwatch(room string)
	Publish(room string, frame []byte)
}

type membership struct {
	conn string
	room string
}

// Hub owns the room registry and serialises every membership change and
// fan-out through a single dispatcher goroutine (Run).
type Hub struct {
	registry *Registry
	clients  map[string]*Client

	register   chan *Client
	unregister chan *Client
	join       chan membership
	leave      chan membership
	broadcast  chan *Frame
	remote     chan *Frame
	stats      chan chan Stats
	done       chan struct{}

	bridge Bridge
	log    *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		registry:   NewRegistry(),
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		join:       make(chan membership),
		leave:      make(chan membership),
		broadcast:  make(chan *Frame, 256),
		remote:     make(chan *Frame, 256),
		stats:      make(chan chan Stats),
		done:       make(chan struct{}),
		log:        log.With("component", "relay_hub"),
	}
}

// UseBridge attaches a cross-instance bridge. Call before Run.
func (h *Hub) UseBridge(b Bridge) {
	h.bridge = b
}

// Run processes hub events until ctx is cancelled. On return every client
// send queue is closed, which makes the write pumps close their sockets.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		for id, c := range h.clients {
			close(c.send)
			delete(h.clients, id)
			decConnections()
		}
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.register:
			h.clients[c.id] = c
			incConnections()
			h.log.Info("client connected", "clientId", c.id, "clients", len(h.clients))

		case c := <-h.unregister:
			h.drop(c)

		case m := <-h.join:
			if _, ok := h.clients[m.conn]; !ok {
				continue
			}
			if h.registry.Join(m.conn, m.room) {
				if h.bridge != nil {
					h.bridge.Watch(m.room)
				}
				setRooms(h.registry.RoomCount())
			}
			h.log.Debug("joined room", "clientId", m.conn, "room", m.room)

		case m := <-h.leave:
			if h.registry.Leave(m.conn, m.room) {
				h.evicted(m.room)
			}
			h.log.Debug("left room", "clientId", m.conn, "room", m.room)

		case f := <-h.broadcast:
			h.deliver(f)
			if h.bridge != nil {
				h.bridge.Publish(f.Room, f.Data)
			}

		case f := <-h.remote:
			h.deliver(f)

		case reply := <-h.stats:
			reply <- Stats{
				Rooms:       h.registry.RoomCount(),
				Connections: len(h.clients),
				Memberships: h.registry.MembershipCount(),
			}
		}
	}
}

// deliver queues f to every member of its room except the sender. A member
// whose queue is full is disconnected.
func (h *Hub) deliver(f *Frame) {
	delivered, dropped := 0, 0
	for _, id := range h.registry.MembersExcluding(f.Room, f.Sender) {
		c, ok := h.clients[id]
		if !ok {
			continue
		}
		select {
		case c.send <- f.Data:
			delivered++
		default:
			dropped++
			h.log.Warn("client queue full, disconnecting", "clientId", id, "room", f.Room)
			h.drop(c)
		}
	}
	if delivered > 0 {
		addDelivered(delivered)
	}
	if dropped > 0 {
		addDropped(dropped)
	}
}

// drop removes c from the hub and from every room. It is idempotent; the
// read pump reports every disconnect, including ones the hub started.
func (h *Hub) drop(c *Client) {
	if cur, ok := h.clients[c.id]; ok && cur == c {
		delete(h.clients, c.id)
		close(c.send)
		decConnections()
		h.log.Info("client disconnected", "clientId", c.id, "clients", len(h.clients))
	}
	for _, room := range h.registry.DropConnection(c.id) {
		h.evicted(room)
	}
}

func (h *Hub) evicted(room string) {
	if h.bridge != nil {
		h.bridge.Unwatch(room)
	}
	setRooms(h.registry.RoomCount())
	h.log.Debug("room evicted", "room", room)
}

// The methods below are called from connection goroutines. They return
// without effect once the hub has stopped.

func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) Join(conn, room string) {
	select {
	case h.join <- membership{conn: conn, room: room}:
	case <-h.done:
	}
}

func (h *Hub) Leave(conn, room string) {
	select {
	case h.leave <- membership{conn: conn, room: room}:
	case <-h.done:
	}
}

// Broadcast relays a frame sent by a local connection.
func (h *Hub) Broadcast(f *Frame) {
	select {
	case h.broadcast <- f:
	case <-h.done:
	}
}

// Remote relays a frame received from another instance to every local
// member of room.
func (h *Hub) Remote(room string, data []byte) {
	select {
	case h.remote <- &Frame{Room: room, Data: data}:
	case <-h.done:
	}
}

// Stats asks the dispatcher for a snapshot of the registry size.
func (h *Hub) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)
	select {
	case h.stats <- reply:
	case <-h.done:
		return Stats{}, ErrHubStopped
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
}
