package sse

import (
	"encoding/json"
	"sync"
)

const (
	EventGrantCreated = "grant_created"
	EventGrantClaimed = "grant_claimed"
)

type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type GrantClaimedData struct {
	Grant        string `json:"grant"`
	Amount       string `json:"amount"`
	TotalClaimed string `json:"total_claimed"`
	Remaining    string `json:"remaining"`
	ClaimedAt    int64  `json:"claimed_at"`
}

type GrantCreatedData struct {
	Grant     string `json:"grant"`
	Employer  string `json:"employer"`
	Employee  string `json:"employee"`
	Deposited string `json:"deposited"`
}

// Client is one open event stream, watching a set of grant addresses.
type Client struct {
	ID        string
	Principal string
	Grants    map[string]bool
	Send      chan []byte
}

type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan *GrantMessage
	mu         sync.RWMutex
}

type GrantMessage struct {
	Grant string
	Event Event
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *GrantMessage, 256),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.Send)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			data, err := json.Marshal(msg.Event)
			if err != nil {
				continue
			}
			h.mu.RLock()
			for _, client := range h.clients {
				if client.Grants[msg.Grant] {
					select {
					case client.Send <- data:
					default:
						// slow consumer, drop
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues event for every client watching grant. It never blocks;
// events are dropped when the queue is full.
func (h *Hub) Broadcast(grant string, event Event) {
	select {
	case h.broadcast <- &GrantMessage{Grant: grant, Event: event}:
	default:
	}
}

func (h *Hub) BroadcastClaim(data GrantClaimedData) {
	h.Broadcast(data.Grant, Event{Type: EventGrantClaimed, Data: data})
}

func (h *Hub) BroadcastCreated(data GrantCreatedData) {
	h.Broadcast(data.Grant, Event{Type: EventGrantCreated, Data: data})
}
