// Paperbound - Serial Fiction and Comic Publishing Platform
// Copyright 2026 Paperbound Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/paperbound/paperbound

package websocket

import (
	"context"
	"sort"
	"sync"

	"github.com/goccy/go-json"

	"github.com/paperbound/paperbound/internal/logging"
	"github.com/paperbound/paperbound/internal/metrics"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled indicates the parent context was canceled.
	// This is the normal graceful shutdown path (e.g., SIGTERM).
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline indicates the context deadline was exceeded.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types for the notification feed.
const (
	MessageTypeNotification = "notification"
	MessageTypeAnnouncement = "announcement"
	MessageTypePing         = "ping"
	MessageTypePong         = "pong"
)

// Message is one frame on a client's feed.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// directedMessage targets a single user's connections.
type directedMessage struct {
	userID  string
	message Message
}

// Hub maintains the set of connected clients, indexed by user, and
// delivers notification frames to them. The feed is per-user: a reader
// with two tabs open has two clients under the same user ID, and both
// get every frame addressed to that user. Broadcasts reach everyone.
type Hub struct {
	clients    map[*Client]bool
	byUser     map[string]map[*Client]bool
	broadcast  chan Message
	directed   chan directedMessage
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		byUser:     make(map[string]map[*Client]bool),
		broadcast:  make(chan Message, 256),
		directed:   make(chan directedMessage, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// RunWithContext runs the hub until the context is canceled, then
// closes all clients and returns ctx.Err(). Designed for suture
// supervision: a restart gets a clean hub with no orphaned connections.
//
// Selection is priority-ordered so behavior stays predictable when
// multiple channels are ready: shutdown first, then client lifecycle,
// then message delivery.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()

		case client := <-h.Register:
			h.addClient(client)

		case client := <-h.Unregister:
			h.removeClient(client)

		case dm := <-h.directed:
			h.deliverToUser(dm.userID, dm.message)

		case message := <-h.broadcast:
			h.deliverToAll(message)
		}
	}
}

// SendToUser queues a raw JSON notification frame for every connection
// the user has open. Implements the event fan-out pusher interface.
// Offline users are not an error; they read their inbox later.
func (h *Hub) SendToUser(userID string, payload []byte) {
	dm := directedMessage{
		userID:  userID,
		message: Message{Type: MessageTypeNotification, Data: json.RawMessage(payload)},
	}

	select {
	case h.directed <- dm:
	default:
		metrics.WSErrors.WithLabelValues("queue_full").Inc()
		logging.Warn().Str("user_id", userID).Msg("directed channel full, dropping notification frame")
	}
}

// BroadcastJSON queues a message for every connected client, regardless
// of user. Used for site-wide announcements.
func (h *Hub) BroadcastJSON(messageType string, data interface{}) {
	message := Message{Type: messageType, Data: data}

	select {
	case h.broadcast <- message:
	default:
		metrics.WSErrors.WithLabelValues("queue_full").Inc()
		logging.Warn().Str("message_type", messageType).Msg("broadcast channel full, dropping message")
	}
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// UserConnectionCount returns the number of open connections for a user.
func (h *Hub) UserConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byUser[userID])
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	userClients, ok := h.byUser[client.userID]
	if !ok {
		userClients = make(map[*Client]bool)
		h.byUser[client.userID] = userClients
	}
	userClients[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(total))
	logging.Info().Str("user_id", client.userID).Int("total_clients", total).Msg("websocket client connected")
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		h.detachFromUser(client)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(total))
	logging.Info().Str("user_id", client.userID).Int("total_clients", total).Msg("websocket client disconnected")
}

// detachFromUser removes the client from the per-user index.
// Caller must hold h.mu.
func (h *Hub) detachFromUser(client *Client) {
	userClients := h.byUser[client.userID]
	delete(userClients, client)
	if len(userClients) == 0 {
		delete(h.byUser, client.userID)
	}
}

// deliverToUser sends a message to each of one user's connections.
// Clients with a full send buffer are dropped: a reader that slow is
// better served by reconnecting than by unbounded buffering.
func (h *Hub) deliverToUser(userID string, message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var toRemove []*Client
	for client := range h.byUser[userID] {
		select {
		case client.send <- message:
			metrics.WSMessagesSent.Inc()
		default:
			toRemove = append(toRemove, client)
		}
	}

	h.dropClients(toRemove)
}

// deliverToAll sends a message to every connected client in a
// deterministic order (sorted by client ID) so delivery sequencing is
// reproducible in tests.
func (h *Hub) deliverToAll(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	var toRemove []*Client
	for _, client := range clients {
		select {
		case client.send <- message:
			metrics.WSMessagesSent.Inc()
		default:
			toRemove = append(toRemove, client)
		}
	}

	h.dropClients(toRemove)
}

// dropClients removes clients whose send buffer overflowed.
// Caller must hold h.mu.
func (h *Hub) dropClients(toRemove []*Client) {
	for _, client := range toRemove {
		metrics.WSErrors.WithLabelValues("send_buffer_full").Inc()
		close(client.send)
		delete(h.clients, client)
		h.detachFromUser(client)
	}
}

// logGracefulShutdown closes all clients and logs structured shutdown
// information. ctx.Err() is not logged as an error because cancellation
// is the expected shutdown path.
func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.GetClientCount()
	h.closeAllClients()

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	switch ctx.Err() {
	case context.Canceled:
		return ShutdownReasonContextCanceled
	case context.DeadlineExceeded:
		return ShutdownReasonContextDeadline
	default:
		return ShutdownReasonContextCanceled
	}
}

// closeAllClients closes clients in ID order for consistent shutdown.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	for _, client := range clients {
		close(client.send)
		delete(h.clients, client)
		h.detachFromUser(client)
	}
	metrics.WSConnections.Set(0)
}

// MarshalMessage converts a message to JSON.
func MarshalMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
