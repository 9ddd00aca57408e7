// Package notify fans out block-applied events to anyone watching:
// a Redis channel for other processes, and a WebSocket broadcaster for
// browser/CLI clients. Nothing here is read back during state
// transition — a node that never starts a Notifier still processes
// blocks identically, so this package has no consensus impact at all.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	redis "github.com/redis/go-redis/v9"

	"chainrealm/pkg/gamelog"
)

// BlockApplied is the event published after every successfully
// committed block.
type BlockApplied struct {
	Chain  string `json:"chain"`
	Height uint64 `json:"height"`
}

// Notifier publishes BlockApplied events to a Redis channel and
// fans them out to any WebSocket clients currently connected.
type Notifier struct {
	rdb     *redis.Client
	channel string

	mu      sync.RWMutex
	clients map[*client]struct{}

	upgrader websocket.Upgrader
}

type client struct {
	conn *websocket.Conn
	out  chan []byte
}

// NewNotifier connects to Redis at addr and prepares the WebSocket
// broadcaster. channel is the Redis pub/sub channel block-applied
// events are published to.
func NewNotifier(addr, channel string) (*Notifier, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("notify: connect to redis: %w", err)
	}
	return &Notifier{
		rdb:     rdb,
		channel: channel,
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}, nil
}

// Publish announces a committed block on the Redis channel and to
// every connected WebSocket client. Failures here are logged, never
// returned up into block processing — a stalled Redis connection must
// never stop the chain from advancing.
func (n *Notifier) Publish(chain string, height uint64) {
	event := BlockApplied{Chain: chain, Height: height}
	body, err := json.Marshal(event)
	if err != nil {
		gamelog.Error("notify: marshal block event", gamelog.Err(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := n.rdb.Publish(ctx, n.channel, body).Err(); err != nil {
		gamelog.Warn("notify: publish to redis", gamelog.Err(err), gamelog.Height(height))
	}

	n.broadcast(body)
}

func (n *Notifier) broadcast(body []byte) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for c := range n.clients {
		select {
		case c.out <- body:
		default:
			gamelog.Warn("notify: dropping slow websocket client")
		}
	}
}

// Subscribe relays Redis-published block events into this process's
// own WebSocket broadcaster, for daemon instances that only read the
// entity store and never call Publish themselves.
func (n *Notifier) Subscribe(ctx context.Context) {
	sub := n.rdb.Subscribe(ctx, n.channel)
	ch := sub.Channel()
	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				n.broadcast([]byte(msg.Payload))
			}
		}
	}()
}

// Handler upgrades incoming HTTP requests to WebSocket connections and
// streams every subsequent Publish call to them until the client
// disconnects.
func (n *Notifier) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := n.upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}

		c := &client{conn: conn, out: make(chan []byte, 32)}
		n.mu.Lock()
		n.clients[c] = struct{}{}
		n.mu.Unlock()

		done := make(chan struct{})
		defer func() {
			n.mu.Lock()
			delete(n.clients, c)
			n.mu.Unlock()
			conn.Close()
		}()

		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for {
			select {
			case <-done:
				return
			case body := <-c.out:
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, body); err != nil {
					return
				}
			}
		}
	}
}

// Close releases the Redis connection. WebSocket clients are left to
// disconnect on their own read errors.
func (n *Notifier) Close() error {
	return n.rdb.Close()
}
