package realtime

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-dismissal-api/internal/models"
)

// Recorder receives delivery metrics.
type Recorder interface {
	RecordRealtimeDelivery(event string, delivered, dropped int)
	SetRealtimeConnections(n int)
}

// HubConfig tunes client buffering and heartbeats.
type HubConfig struct {
	ClientBuffer   int
	WriteTimeout   time.Duration
	PingInterval   time.Duration
	PongWait       time.Duration
	MaxMessageSize int64
}

func (c *HubConfig) applyDefaults() {
	if c.ClientBuffer <= 0 {
		c.ClientBuffer = 64
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.PongWait <= 0 {
		c.PongWait = 60 * time.Second
	}
	if c.PingInterval <= 0 || c.PingInterval >= c.PongWait {
		c.PingInterval = c.PongWait * 9 / 10
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 4096
	}
}

// Hub tracks clients by topic and publishes at most once to each.
type Hub struct {
	cfg     HubConfig
	logger  *zap.Logger
	metrics Recorder

	mu      sync.RWMutex
	clients map[*Client]struct{}
	topics  map[string]map[*Client]struct{}
	closed  bool
}

// NewHub constructs an empty hub.
func NewHub(cfg HubConfig, logger *zap.Logger, metrics Recorder) *Hub {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		clients: make(map[*Client]struct{}),
		topics:  make(map[string]map[*Client]struct{}),
	}
}

// Serve runs an upgraded connection until it closes. Clients receive nothing
// until they subscribe.
func (h *Hub) Serve(conn *websocket.Conn, caller models.Caller) {
	client := newClient(h, conn, caller)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		client.close()
		return
	}
	h.clients[client] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	h.reportConnections(count)

	go client.writeLoop()
	client.readLoop()
}

// Publish enqueues each delivery on every client subscribed to its topic.
// Slow clients whose buffer is full miss the message.
func (h *Hub) Publish(deliveries []Delivery) {
	for _, d := range deliveries {
		frame, err := json.Marshal(d.Message)
		if err != nil {
			h.logger.Warn("realtime message not encodable", zap.String("event", d.Message.Event), zap.Error(err))
			continue
		}

		delivered, dropped := 0, 0
		h.mu.RLock()
		for client := range h.topics[d.Topic.Key()] {
			if client.enqueue(frame) {
				delivered++
			} else {
				dropped++
			}
		}
		h.mu.RUnlock()

		if h.metrics != nil {
			h.metrics.RecordRealtimeDelivery(d.Message.Event, delivered, dropped)
		}
		if dropped > 0 {
			h.logger.Debug("realtime frames dropped", zap.String("topic", d.Topic.Key()), zap.Int("dropped", dropped))
		}
	}
}

// Subscribers returns how many clients joined the topic.
func (h *Hub) Subscribers(topic Topic) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic.Key()])
}

// Connections returns the number of open clients.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

func (h *Hub) subscribe(c *Client, topics ...Topic) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, t := range topics {
		key := t.Key()
		members, ok := h.topics[key]
		if !ok {
			members = make(map[*Client]struct{})
			h.topics[key] = members
		}
		members[c] = struct{}{}
		c.topics[key] = struct{}{}
	}
	keys := make([]string, 0, len(c.topics))
	for key := range c.topics {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	for key := range c.topics {
		if members, ok := h.topics[key]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(h.topics, key)
			}
		}
	}
	count := len(h.clients)
	h.mu.Unlock()
	h.reportConnections(count)
}

func (h *Hub) reportConnections(n int) {
	if h.metrics != nil {
		h.metrics.SetRealtimeConnections(n)
	}
}
