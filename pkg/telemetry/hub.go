package telemetry

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gwillem/roverplan/pkg/navigate"
	"github.com/gwillem/roverplan/pkg/obstacle"
)

const writeWait = 2 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// InjectFunc adds obstacles to a running navigation.
type InjectFunc func(obs ...obstacle.Obstacle) error

// clientMessage is what websocket clients send. The only type so far is
// "obstacle".
type clientMessage struct {
	Type   string   `json:"type"`
	X      float64  `json:"x"`
	Y      float64  `json:"y"`
	Radius *float64 `json:"radius,omitempty"`
}

type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// Hub streams frames to websocket subscribers and forwards the obstacles
// they send to the navigation.
type Hub struct {
	inject InjectFunc

	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
	closed      bool
}

// NewHub creates a hub. inject may be nil, in which case client obstacles
// are ignored.
func NewHub(inject InjectFunc) *Hub {
	return &Hub{
		inject:      inject,
		subscribers: make(map[*subscriber]struct{}),
	}
}

// Subscribers returns the number of connected clients.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// ServeHTTP upgrades the request and serves the client until it
// disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	sub := &subscriber{conn: conn}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.subscribers[sub] = struct{}{}
	h.mu.Unlock()

	defer h.disconnect(sub)

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			log.Printf("discarding malformed message: %v", err)
			continue
		}

		switch msg.Type {
		case "obstacle":
			if h.inject == nil {
				continue
			}
			o := obstacle.At(msg.X, msg.Y)
			if msg.Radius != nil {
				o = obstacle.Obstacle{X: msg.X, Y: msg.Y, Radius: *msg.Radius}
			}
			if err := h.inject(o); err != nil {
				log.Printf("client obstacle at (%.1f, %.1f) rejected: %v", o.X, o.Y, err)
			}
		default:
			log.Printf("unknown message type %q", msg.Type)
		}
	}
}

// OnTick broadcasts the tick to every subscriber.
func (h *Hub) OnTick(t navigate.Tick) {
	h.Broadcast(NewFrame(t))
}

// Broadcast sends frame to every subscriber. Subscribers whose write fails
// are dropped.
func (h *Hub) Broadcast(frame Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		log.Printf("failed to marshal frame: %v", err)
		return
	}

	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subscribers))
	for sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		sub.mu.Lock()
		sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
		err := sub.conn.WriteMessage(websocket.TextMessage, data)
		sub.mu.Unlock()
		if err != nil {
			h.disconnect(sub)
		}
	}
}

func (h *Hub) disconnect(sub *subscriber) {
	h.mu.Lock()
	_, ok := h.subscribers[sub]
	delete(h.subscribers, sub)
	h.mu.Unlock()
	if ok {
		sub.conn.Close()
	}
}

// Close disconnects every subscriber and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	subs := h.subscribers
	h.subscribers = make(map[*subscriber]struct{})
	h.mu.Unlock()

	for sub := range subs {
		sub.mu.Lock()
		sub.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		sub.mu.Unlock()
		sub.conn.Close()
	}
}
