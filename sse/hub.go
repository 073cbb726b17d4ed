package sse

import (
	"path/filepath"
	"sync"

	"github.com/skillsenselab/callscribe/logger"
)

// Client is one connected listener subscribed to a topic. The topic may be a
// glob pattern, so "job:*" receives events for every job.
type Client struct {
	id     string
	topic  string
	events chan []byte
}

// NewClient creates a client subscribed to topic.
func NewClient(id, topic string) *Client {
	return &Client{
		id:     id,
		topic:  topic,
		events: make(chan []byte, 256),
	}
}

// ID returns the client's identifier.
func (c *Client) ID() string { return c.id }

// Topic returns the client's subscription pattern.
func (c *Client) Topic() string { return c.topic }

// Events returns the channel delivering this client's events.
func (c *Client) Events() <-chan []byte { return c.events }

// send enqueues data without blocking. A full channel means the client is too
// slow; the event is dropped rather than stalling the hub.
func (c *Client) send(data []byte) bool {
	select {
	case c.events <- data:
		return true
	default:
		return false
	}
}

func (c *Client) close() { close(c.events) }

// Broadcaster publishes events to subscribed clients.
type Broadcaster interface {
	Broadcast(topic string, data []byte)
}

type message struct {
	topic string
	data  []byte
}

// Hub routes published events to subscribed clients. Run drives the event
// loop; all registration and delivery happens on that goroutine.
type Hub struct {
	log        *logger.Logger
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	done       chan struct{}
	stopOnce   sync.Once

	mu      sync.RWMutex
	clients map[string]*Client
}

// NewHub creates a hub. A nil logger discards output.
func NewHub(log *logger.Logger) *Hub {
	if log == nil {
		log = logger.Nop()
	}
	return &Hub{
		log:        log.WithComponent("sse"),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 256),
		done:       make(chan struct{}),
		clients:    make(map[string]*Client),
	}
}

// Run processes registrations and broadcasts until Stop is called. Run it in
// a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.id] = client
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.id]; ok {
				delete(h.clients, client.id)
				client.close()
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.deliver(msg.topic, msg.data)
		}
	}
}

// Stop shuts the hub down and disconnects all clients. Safe to call more
// than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}

// Unregister removes a client and closes its event channel.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast publishes data to every client whose subscription matches topic.
// Delivery is asynchronous; a stopped hub drops the event.
func (h *Hub) Broadcast(topic string, data []byte) {
	select {
	case h.broadcast <- message{topic: topic, data: data}:
	default:
	}
}

// deliver fans an event out to matching clients on the hub goroutine.
func (h *Hub) deliver(topic string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients {
		matched, err := filepath.Match(client.topic, topic)
		if err != nil || !matched {
			continue
		}
		if !client.send(data) {
			h.log.Warn("dropping event for slow client", logger.Fields(
				"client_id", client.id, "topic", topic,
			))
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, client := range h.clients {
		client.close()
		delete(h.clients, id)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

var _ Broadcaster = (*Hub)(nil)
