package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// event is the wire frame pushed to browsers. Topic rooms reuse the same
// frame; membership decides who receives it.
type event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	topics map[uint]bool
}

// Hub tracks connected clients and their topic-room subscriptions. It
// satisfies the forum's Notifier so vote and reply updates reach open
// topic pages live.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]bool

	register   chan *client
	unregister chan *client
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
		}
	}
}

// Emit broadcasts to every connected client.
func (h *Hub) Emit(eventName string, data interface{}) {
	payload, err := json.Marshal(event{Event: eventName, Data: data})
	if err != nil {
		log.Printf("Error marshalling ws event %s: %v", eventName, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			// Slow consumer; drop the frame rather than block the hub.
		}
	}
}

// EmitToTopic broadcasts to clients that joined one topic's room.
func (h *Hub) EmitToTopic(topicID uint, eventName string, data interface{}) {
	payload, err := json.Marshal(event{Event: eventName, Data: data})
	if err != nil {
		log.Printf("Error marshalling ws event %s: %v", eventName, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.mu.Lock()
		subscribed := c.topics[topicID]
		c.mu.Unlock()
		if !subscribed {
			continue
		}
		select {
		case c.send <- payload:
		default:
		}
	}
}

func (c *client) joinTopic(topicID uint) {
	c.mu.Lock()
	c.topics[topicID] = true
	c.mu.Unlock()
}

func (c *client) leaveTopic(topicID uint) {
	c.mu.Lock()
	delete(c.topics, topicID)
	c.mu.Unlock()
}
