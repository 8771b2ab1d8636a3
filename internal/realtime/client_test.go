package realtime

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"todo-app-backend/internal/dto"
	"todo-app-backend/internal/relay"

	"github.com/go-playground/assert/v2"
	"github.com/gorilla/websocket"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func fastSettings() Settings {
	return Settings{ReconnectMin: 10 * time.Millisecond, ReconnectMax: 50 * time.Millisecond}
}

func startRelay(t *testing.T) (*relay.Hub, string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := relay.NewHub(quietLogger())
	go hub.Run(ctx)

	mux := http.NewServeMux()
	relay.NewHandler(hub, relay.HandlerOptions{}, quietLogger()).Routes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, wsURL(srv)
}

func connect(t *testing.T, url string) *Client {
	t.Helper()
	c := New(url, nil, fastSettings(), quietLogger())
	c.Start()
	t.Cleanup(c.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := c.WaitConnected(ctx); err != nil {
		t.Fatalf("connect: %v", err)
	}
	return c
}

func waitMemberships(t *testing.T, hub *relay.Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		s, err := hub.Stats(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if s.Memberships == n {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("memberships = %d, want %d", s.Memberships, n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestTodoAddedReachesOtherClientOnly(t *testing.T) {
	hub, url := startRelay(t)
	a, b := connect(t, url), connect(t, url)

	var ownEcho atomic.Int32
	a.OnTodoAdded(func(dto.Todo) { ownEcho.Add(1) })
	received := make(chan dto.Todo, 1)
	b.OnTodoAdded(func(todo dto.Todo) { received <- todo })

	assert.Equal(t, a.JoinList("1"), nil)
	assert.Equal(t, b.JoinList("1"), nil)
	waitMemberships(t, hub, 2)

	todo := dto.Todo{
		ID: "t1", TaskName: "x", Status: "ToDo", Priority: "Medium",
		ListID: "1", UserID: "u1", CreatedAt: "2024-05-01T10:00:00Z",
	}
	assert.Equal(t, a.EmitTodoAdded(todo), nil)

	select {
	case got := <-received:
		assert.Equal(t, got, todo)
	case <-time.After(2 * time.Second):
		t.Fatal("b did not receive todo-added")
	}

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, ownEcho.Load(), int32(0))
}

func TestLeftClientMissesTodoDeleted(t *testing.T) {
	hub, url := startRelay(t)
	a, b, c := connect(t, url), connect(t, url), connect(t, url)

	var leftGot atomic.Int32
	a.OnTodoDeleted(func(dto.TodoDeleted) { leftGot.Add(1) })
	received := make(chan dto.TodoDeleted, 1)
	c.OnTodoDeleted(func(ev dto.TodoDeleted) { received <- ev })

	for _, cl := range []*Client{a, b, c} {
		assert.Equal(t, cl.JoinList("1"), nil)
	}
	waitMemberships(t, hub, 3)

	assert.Equal(t, a.LeaveList("1"), nil)
	waitMemberships(t, hub, 2)
	assert.Equal(t, len(a.ActiveLists()), 0)

	assert.Equal(t, b.EmitTodoDeleted("t1", "1"), nil)

	select {
	case got := <-received:
		assert.Equal(t, got, dto.TodoDeleted{TodoID: "t1", ListID: "1"})
	case <-time.After(2 * time.Second):
		t.Fatal("c did not receive todo-deleted")
	}

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, leftGot.Load(), int32(0))
}

func TestListUpdatedAndSubscriptionCancel(t *testing.T) {
	hub, url := startRelay(t)
	a, b := connect(t, url), connect(t, url)

	var first, second atomic.Int32
	done := make(chan dto.List, 2)
	sub := b.OnListUpdated(func(dto.List) { first.Add(1) })
	b.OnListUpdated(func(list dto.List) {
		second.Add(1)
		done <- list
	})
	sub.Cancel()
	sub.Cancel()

	a.JoinList("xyz")
	b.JoinList("xyz")
	waitMemberships(t, hub, 2)

	assert.Equal(t, a.EmitListUpdated(dto.List{ID: "xyz", Name: "Groceries", TaskCount: 3}), nil)

	select {
	case list := <-done:
		assert.Equal(t, list.ID, "xyz")
		assert.Equal(t, list.TaskCount, 3)
	case <-time.After(2 * time.Second):
		t.Fatal("b did not receive list-updated")
	}
	assert.Equal(t, first.Load(), int32(0))
	assert.Equal(t, second.Load(), int32(1))
}

func TestEmitBeforeConnect(t *testing.T) {
	c := New("ws://127.0.0.1:1/ws", nil, fastSettings(), quietLogger())
	defer c.Close()

	assert.Equal(t, c.State(), Disconnected)
	assert.Equal(t, c.Connected(), false)
	assert.Equal(t, c.EmitTodoDeleted("t1", "1"), ErrNotConnected)

	// Joins are remembered until a connection exists.
	assert.Equal(t, c.JoinList("1"), nil)
	assert.Equal(t, c.ActiveLists(), []string{"1"})
	assert.Equal(t, c.JoinList(""), ErrEmptyListID)
}

func TestCloseIsTerminal(t *testing.T) {
	_, url := startRelay(t)
	c := New(url, nil, fastSettings(), quietLogger())
	c.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.Equal(t, c.WaitConnected(ctx), nil)

	c.Close()
	c.Close()
	assert.Equal(t, c.State(), Closed)
	assert.Equal(t, c.WaitConnected(ctx), ErrClosed)
	assert.Equal(t, c.EmitTodoDeleted("t1", "1"), ErrNotConnected)
}

// fakeRelay hands every accepted connection to the test.
type fakeRelay struct {
	conns chan *websocket.Conn
	url   string
}

func startFakeRelay(t *testing.T) *fakeRelay {
	t.Helper()
	f := &fakeRelay{conns: make(chan *websocket.Conn, 8)}
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		f.conns <- conn
	}))
	t.Cleanup(srv.Close)
	f.url = wsURL(srv)
	return f
}

func (f *fakeRelay) accept(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case conn := <-f.conns:
		t.Cleanup(func() { conn.Close() })
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("no connection")
		return nil
	}
}

func readEnvelope(t *testing.T, conn *websocket.Conn) relay.Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env relay.Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	return env
}

type stateLog struct {
	mu     sync.Mutex
	states []State
}

func (l *stateLog) record(s State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.states = append(l.states, s)
}

func (l *stateLog) snapshot() []State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]State(nil), l.states...)
}

func TestReconnectRejoinsActiveLists(t *testing.T) {
	f := startFakeRelay(t)
	c := New(f.url, nil, fastSettings(), quietLogger())
	log := &stateLog{}
	c.OnStateChange(log.record)

	c.JoinList("1")
	c.JoinList("2")
	c.LeaveList("2")
	c.Start()
	t.Cleanup(c.Close)

	first := f.accept(t)
	env := readEnvelope(t, first)
	assert.Equal(t, env.Event, relay.EventJoinList)
	assert.Equal(t, string(env.Data), `"1"`)

	first.Close()

	second := f.accept(t)
	env = readEnvelope(t, second)
	assert.Equal(t, env.Event, relay.EventJoinList)
	assert.Equal(t, string(env.Data), `"1"`)

	assert.Equal(t, log.snapshot(), []State{Connecting, Connected, Reconnecting, Connected})
}

func TestRejoinSkipsListLeftDuringConnect(t *testing.T) {
	f := startFakeRelay(t)
	c := New(f.url, nil, fastSettings(), quietLogger())

	c.JoinList("1")
	c.JoinList("2")
	var once sync.Once
	c.OnStateChange(func(s State) {
		if s == Connected {
			once.Do(func() { c.LeaveList("2") })
		}
	})
	c.Start()
	t.Cleanup(c.Close)

	conn := f.accept(t)
	env := readEnvelope(t, conn)
	assert.Equal(t, env.Event, relay.EventLeaveList)
	assert.Equal(t, string(env.Data), `"2"`)

	env = readEnvelope(t, conn)
	assert.Equal(t, env.Event, relay.EventJoinList)
	assert.Equal(t, string(env.Data), `"1"`)

	conn.SetReadDeadline(time.Now().Add(150 * time.Millisecond))
	var extra relay.Envelope
	if err := conn.ReadJSON(&extra); err == nil {
		t.Fatalf("unexpected frame after rejoin: %s %s", extra.Event, extra.Data)
	}
	assert.Equal(t, c.ActiveLists(), []string{"1"})
}

func TestDisableReconnectEndsDisconnected(t *testing.T) {
	f := startFakeRelay(t)
	settings := fastSettings()
	settings.DisableReconnect = true
	c := New(f.url, nil, settings, quietLogger())
	disconnected := make(chan struct{}, 1)
	c.OnStateChange(func(s State) {
		if s == Disconnected {
			disconnected <- struct{}{}
		}
	})
	c.Start()
	t.Cleanup(c.Close)

	conn := f.accept(t)
	conn.Close()

	select {
	case <-disconnected:
	case <-time.After(2 * time.Second):
		t.Fatal("client did not report Disconnected")
	}
	assert.Equal(t, c.Connected(), false)
	assert.Equal(t, c.EmitTodoAdded(dto.Todo{ListID: "1"}), ErrNotConnected)
}

func TestUndecodablePayloadIsIgnored(t *testing.T) {
	f := startFakeRelay(t)
	c := New(f.url, nil, fastSettings(), quietLogger())
	received := make(chan dto.Todo, 2)
	c.OnTodoUpdated(func(todo dto.Todo) { received <- todo })
	c.Start()
	t.Cleanup(c.Close)

	conn := f.accept(t)
	conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
	conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"todo-updated","data":"oops"}`))
	conn.WriteMessage(websocket.TextMessage, []byte(`{"event":"todo-archived","data":{}}`))
	valid, _ := json.Marshal(relay.Envelope{Event: relay.EventTodoUpdated, Data: json.RawMessage(`{"_id":"t1","listId":"1","status":"Completed"}`)})
	conn.WriteMessage(websocket.TextMessage, valid)

	select {
	case got := <-received:
		assert.Equal(t, got.ID, "t1")
		assert.Equal(t, got.Status, "Completed")
	case <-time.After(2 * time.Second):
		t.Fatal("valid frame not delivered")
	}
	assert.Equal(t, len(received), 0)
	assert.Equal(t, c.Connected(), true)
}
