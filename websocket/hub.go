package websocket

import (
	"context"
	"errors"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Event types pushed to a session.
const (
	EventConnected    = "connected"
	EventCountdown    = "otp_countdown"
	EventVerification = "verification"
	EventGeo          = "geo_resolution"
	EventSubmission   = "submission"
)

const sendBuffer = 16

// ErrNotConnected is returned when a session has no open connection.
var ErrNotConnected = errors.New("session not connected")

// Notification is a message sent over the websocket.
type Notification struct {
	Type      string      `json:"type"`
	Message   string      `json:"message,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	SessionID string      `json:"sessionId,omitempty"`
}

// Client is one connection of a wizard session.
type Client struct {
	SessionID string
	Conn      *websocket.Conn
	send      chan Notification
}

// Hub tracks the open connections of every session. A session may have
// several, e.g. two browser tabs.
type Hub struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.RWMutex
	logger     *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves registrations until ctx is done, then closes every connection.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			set, ok := h.clients[client.SessionID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.SessionID] = set
			}
			set[client] = struct{}{}
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()
		case <-ctx.Done():
			h.mu.Lock()
			for _, set := range h.clients {
				for client := range set {
					h.removeLocked(client)
				}
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) removeLocked(client *Client) {
	set, ok := h.clients[client.SessionID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.clients, client.SessionID)
	}
	close(client.send)
}

// SendToSession queues n for every connection of sessionID. A connection
// whose queue is full misses the message.
func (h *Hub) SendToSession(sessionID string, n Notification) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	set := h.clients[sessionID]
	if len(set) == 0 {
		return ErrNotConnected
	}
	n.SessionID = sessionID
	for client := range set {
		select {
		case client.send <- n:
		default:
			h.logger.Warn("dropping websocket message", zap.String("sessionId", sessionID), zap.String("type", n.Type))
		}
	}
	return nil
}

// Publish is SendToSession for callers that do not care whether anyone listens.
func (h *Hub) Publish(sessionID, eventType string, data interface{}) {
	_ = h.SendToSession(sessionID, Notification{Type: eventType, Data: data})
}

// Connected returns the number of open connections of sessionID.
func (h *Hub) Connected(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}
