// Package websocket fans ingested alert events out to dashboard clients.
package websocket

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"netmon/internal/model"
)

const (
	MessageEvents = "events"
	sendBuffer    = 256
)

// Message is the envelope written to every client.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Hub maintains the set of active clients and broadcasts messages.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	log        *logrus.Logger
}

func NewHub(log *logrus.Logger) *Hub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, sendBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run owns the client set until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				delete(h.clients, c)
				close(c.Send)
			}
			return

		case c := <-h.register:
			h.clients[c] = true
			h.log.WithField("remote", c.remote()).Debug("websocket client registered")

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.Send)
				h.log.WithField("remote", c.remote()).Debug("websocket client unregistered")
			}

		case msg := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.Send <- msg:
				default:
					// slow consumer
					h.log.WithField("remote", c.remote()).Warn("websocket send buffer full, dropping client")
					delete(h.clients, c)
					close(c.Send)
				}
			}
		}
	}
}

// Register hands a new client to the hub.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		close(c.Send)
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// BroadcastEvents queues a batch of events for every client. It never
// blocks ingestion: when the queue is full the batch is dropped.
func (h *Hub) BroadcastEvents(events []model.Event) {
	b, err := json.Marshal(Message{Type: MessageEvents, Payload: events})
	if err != nil {
		h.log.WithError(err).Error("failed to marshal events for broadcast")
		return
	}
	select {
	case h.broadcast <- b:
	default:
		h.log.WithField("count", len(events)).Warn("broadcast queue full, events dropped")
	}
}
