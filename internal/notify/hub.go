package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/wifiprov/internal/logging"
	"github.com/muurk/wifiprov/internal/supervisor"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512

	// DefaultEventBuffer is how many changes may wait for the broadcaster
	DefaultEventBuffer = 32

	clientBuffer = 16
)

// Event is one message on the status stream. The first message a client
// receives has no From and carries the status at connect time.
type Event struct {
	From   string            `json:"from,omitempty"`
	To     string            `json:"to"`
	At     time.Time         `json:"at"`
	Status supervisor.Status `json:"status"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub broadcasts state changes to websocket clients. OnStateChange never
// blocks; when the buffer is full the event is dropped and counted.
type Hub struct {
	status   StatusFunc
	events   chan Event
	upgrader websocket.Upgrader
	dropped  atomic.Uint64

	mu      sync.Mutex
	clients map[*client]struct{}
}

// HubOption configures a Hub
type HubOption func(*Hub)

// WithEventBuffer sets the number of queued changes before drops start
func WithEventBuffer(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.events = make(chan Event, n)
		}
	}
}

// NewHub creates a hub that snapshots status for every event
func NewHub(status StatusFunc, opts ...HubOption) *Hub {
	h := &Hub{
		status:  status,
		events:  make(chan Event, DefaultEventBuffer),
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hub) snapshot() supervisor.Status {
	if h.status == nil {
		return supervisor.Status{}
	}
	return h.status()
}

// OnStateChange implements Notifier
func (h *Hub) OnStateChange(from, to supervisor.State) {
	ev := Event{From: from.String(), To: to.String(), At: time.Now(), Status: h.snapshot()}
	select {
	case h.events <- ev:
	default:
		h.dropped.Add(1)
	}
}

// Dropped returns how many events were discarded because a buffer was full
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Clients returns the number of connected subscribers
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Run broadcasts queued events until ctx is done, then disconnects every client
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case ev := <-h.events:
			data, err := json.Marshal(ev)
			if err != nil {
				logging.Warn("Failed to encode status event", zap.Error(err))
				continue
			}
			h.broadcast(data)
		}
	}
}

func (h *Hub) broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.dropped.Add(1)
		}
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

// ServeHTTP upgrades the request and streams events until the client goes away
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Debug("Status websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}

	st := h.snapshot()
	first, err := json.Marshal(Event{To: st.State.String(), At: time.Now(), Status: st})
	if err == nil {
		c.send <- first
	}

	h.register(c)
	logging.Debug("Status subscriber connected", zap.String("remote_addr", r.RemoteAddr))

	go h.writePump(c)
	h.readPump(c)

	h.unregister(c)
	logging.Debug("Status subscriber disconnected", zap.String("remote_addr", r.RemoteAddr))
}

func (h *Hub) readPump(c *client) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Subscribe connects to a status stream at url (ws:// or wss://) and
// delivers decoded events until ctx is done or the connection drops.
// The channel is closed when the stream ends.
func Subscribe(ctx context.Context, url string) (<-chan Event, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to status stream %s: %w", url, err)
	}

	out := make(chan Event, clientBuffer)

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	go func() {
		defer close(out)
		defer conn.Close()
		for {
			var ev Event
			if err := conn.ReadJSON(&ev); err != nil {
				return
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
