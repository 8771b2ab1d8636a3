package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	bridgeChannelPrefix = "relay:"
	bridgeOutboxSize    = 256
	publishTimeout      = 2 * time.Second
	bridgeRetryMin      = 500 * time.Millisecond
	bridgeRetryMax      = 30 * time.Second
)

// Sink receives frames that arrived from other instances. *Hub implements it.
type Sink interface {
	Remote(room string, data []byte)
}

type bridgeMessage struct {
	Origin string          `json:"origin"`
	Room   string          `json:"room"`
	Frame  json.RawMessage `json:"frame"`
}

type outbound struct {
	room  string
	frame []byte
}

// RedisBridge fans relayed frames out to the other relay instances over
// redis pub/sub, one channel per room. Watch, Unwatch and Publish never
// block: subscriptions are reconciled and publishes sent by the goroutines
// started in Run. Publish discards frames while redis is unreachable.
type RedisBridge struct {
	client     *redis.Client
	instanceID string
	sink       Sink

	online   atomic.Bool
	retryMin time.Duration
	retryMax time.Duration

	mu      sync.Mutex
	desired map[string]struct{}
	kick    chan struct{}
	outbox  chan outbound

	log *slog.Logger
}

func NewRedisBridge(client *redis.Client, instanceID string, sink Sink, log *slog.Logger) *RedisBridge {
	if log == nil {
		log = slog.Default()
	}
	return &RedisBridge{
		client:     client,
		instanceID: instanceID,
		sink:       sink,
		desired:    make(map[string]struct{}),
		kick:       make(chan struct{}, 1),
		outbox:     make(chan outbound, bridgeOutboxSize),
		retryMin:   bridgeRetryMin,
		retryMax:   bridgeRetryMax,
		log:        log.With("component", "relay_bridge", "instanceId", instanceID),
	}
}

func channelForRoom(room string) string {
	return bridgeChannelPrefix + room
}

func (b *RedisBridge) Watch(room string) {
	b.mu.Lock()
	b.desired[room] = struct{}{}
	b.mu.Unlock()
	b.poke()
}

func (b *RedisBridge) Unwatch(room string) {
	b.mu.Lock()
	delete(b.desired, room)
	b.mu.Unlock()
	b.poke()
}

func (b *RedisBridge) poke() {
	select {
	case b.kick <- struct{}{}:
	default:
	}
}

// Publish queues frame for the other instances. The frame is dropped when
// the bridge is offline or the outbox is full.
func (b *RedisBridge) Publish(room string, frame []byte) {
	if !b.online.Load() {
		return
	}
	select {
	case b.outbox <- outbound{room: room, frame: frame}:
	default:
		addDropped(1)
		b.log.Warn("bridge outbox full, dropping frame", "room", room)
	}
}

// Online reports whether the bridge currently holds a redis subscription.
func (b *RedisBridge) Online() bool {
	return b.online.Load()
}

// Run keeps a redis session alive until ctx is cancelled, reconnecting with
// exponential backoff. It always returns nil once ctx is done.
func (b *RedisBridge) Run(ctx context.Context) error {
	delay := b.retryMin
	for {
		started, err := b.session(ctx)
		b.online.Store(false)
		if ctx.Err() != nil {
			b.log.Info("bridge stopped")
			return nil
		}
		if started {
			delay = b.retryMin
		}
		b.log.Warn("bridge offline, retrying", "error", err, "retry_in", delay)

		select {
		case <-ctx.Done():
			b.log.Info("bridge stopped")
			return nil
		case <-time.After(delay):
		}
		if delay *= 2; delay > b.retryMax {
			delay = b.retryMax
		}
	}
}

// session runs one redis subscription. started is false when redis could
// not be reached at all.
func (b *RedisBridge) session(ctx context.Context) (started bool, err error) {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return false, fmt.Errorf("relay bridge: ping redis: %w", err)
	}

	sctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pubsub := b.client.Subscribe(sctx)
	defer pubsub.Close()

	go b.publishLoop(sctx)

	subscribed := make(map[string]struct{})
	b.reconcile(sctx, pubsub, subscribed)
	messages := pubsub.Channel()
	b.online.Store(true)
	b.log.Info("bridge started")

	for {
		select {
		case <-sctx.Done():
			return true, sctx.Err()

		case <-b.kick:
			b.reconcile(sctx, pubsub, subscribed)

		case msg, ok := <-messages:
			if !ok {
				return true, fmt.Errorf("relay bridge: subscription channel closed")
			}
			b.receive(msg.Payload)
		}
	}
}

func (b *RedisBridge) reconcile(ctx context.Context, pubsub *redis.PubSub, subscribed map[string]struct{}) {
	b.mu.Lock()
	add, remove := diffRooms(b.desired, subscribed)
	b.mu.Unlock()

	if len(add) > 0 {
		if err := pubsub.Subscribe(ctx, channelsFor(add)...); err != nil {
			b.log.Error("subscribe failed", "rooms", add, "error", err)
		} else {
			for _, room := range add {
				subscribed[room] = struct{}{}
			}
		}
	}
	if len(remove) > 0 {
		if err := pubsub.Unsubscribe(ctx, channelsFor(remove)...); err != nil {
			b.log.Error("unsubscribe failed", "rooms", remove, "error", err)
		} else {
			for _, room := range remove {
				delete(subscribed, room)
			}
		}
	}
}

func (b *RedisBridge) publishLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case out := <-b.outbox:
			payload, err := b.encode(out.room, out.frame)
			if err != nil {
				b.log.Debug("cannot encode frame for bridge", "room", out.room, "error", err)
				continue
			}
			pctx, cancel := context.WithTimeout(ctx, publishTimeout)
			err = b.client.Publish(pctx, channelForRoom(out.room), payload).Err()
			cancel()
			if err != nil {
				b.log.Warn("publish failed", "room", out.room, "error", err)
				continue
			}
			incBridged("out")
		}
	}
}

func (b *RedisBridge) encode(room string, frame []byte) ([]byte, error) {
	return json.Marshal(bridgeMessage{Origin: b.instanceID, Room: room, Frame: frame})
}

// receive hands a frame from another instance to the sink. Frames this
// instance published itself are ignored.
func (b *RedisBridge) receive(payload string) {
	room, frame, ok := b.decode(payload)
	if !ok {
		return
	}
	incBridged("in")
	b.sink.Remote(room, frame)
}

func (b *RedisBridge) decode(payload string) (room string, frame []byte, ok bool) {
	var msg bridgeMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		b.log.Debug("dropping malformed bridge message", "error", err)
		return "", nil, false
	}
	if msg.Origin == b.instanceID || msg.Room == "" || len(msg.Frame) == 0 {
		return "", nil, false
	}
	return msg.Room, msg.Frame, true
}

// diffRooms returns the rooms to subscribe and unsubscribe, sorted.
func diffRooms(desired, subscribed map[string]struct{}) (add, remove []string) {
	for room := range desired {
		if _, ok := subscribed[room]; !ok {
			add = append(add, room)
		}
	}
	for room := range subscribed {
		if _, ok := desired[room]; !ok {
			remove = append(remove, room)
		}
	}
	sort.Strings(add)
	sort.Strings(remove)
	return add, remove
}

func channelsFor(rooms []string) []string {
	out := make([]string, len(rooms))
	for i, room := range rooms {
		out[i] = channelForRoom(room)
	}
	return out
}
