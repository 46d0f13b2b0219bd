// Photowall - Realtime Photo Wall for MMS and Instagram Submissions
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/photowall

package websocket

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/goccy/go-json"

	"github.com/tomtom215/photowall/internal/logging"
	"github.com/tomtom215/photowall/internal/metrics"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled indicates the parent context was canceled.
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline indicates the context deadline was exceeded.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types for WebSocket communication
const (
	MessageTypeConnected = "connected"
	MessageTypeNewMedia  = "newMedia"
	MessageTypePing      = "ping"
	MessageTypePong      = "pong"
)

// ConnectedGreeting is the payload of the connected message.
const ConnectedGreeting = "Connected!"

// Message represents a WebSocket message
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`

	// seq orders broadcasts against registrations.
	seq uint64
}

// Hub maintains the set of active viewers and fans messages out to them.
//
// A viewer only receives broadcasts issued after its registration was
// processed; there is no backlog.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex

	published atomic.Uint64

	// done is closed when RunWithContext returns.
	done     chan struct{}
	doneOnce sync.Once

	hookMu    sync.Mutex
	onConnect []func()
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		done:       make(chan struct{}),
	}
}

// Attach registers client with the running hub. It returns false once the
// hub has stopped, in which case the caller owns the connection.
func (h *Hub) Attach(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

// detach unregisters client unless the hub has already stopped.
func (h *Hub) detach(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

// Done is closed once the hub has stopped.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

// OnConnect registers fn to run in the hub goroutine after every viewer
// registration. fn must not block.
func (h *Hub) OnConnect(fn func()) {
	h.hookMu.Lock()
	defer h.hookMu.Unlock()
	h.onConnect = append(h.onConnect, fn)
}

// RunWithContext runs the hub until ctx is canceled, then closes every
// client and returns ctx.Err(). Designed for suture supervision.
//
// Lifecycle events take priority over broadcasts so the viewer set is
// current before a message is fanned out.
func (h *Hub) RunWithContext(ctx context.Context) error {
	defer h.doneOnce.Do(func() { close(h.done) })

	for {
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.register(client)
			continue
		case client := <-h.Unregister:
			h.unregister(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.register(client)
		case client := <-h.Unregister:
			h.unregister(client)
		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

func (h *Hub) register(client *Client) {
	client.since = h.published.Load()

	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	// Greeting goes to this viewer only.
	select {
	case client.send <- Message{Type: MessageTypeConnected, Data: ConnectedGreeting}:
	default:
	}

	metrics.WSConnections.Set(float64(total))
	logging.Info().Uint64("client_id", client.id).Int("total_clients", total).Msg("websocket client connected")

	h.hookMu.Lock()
	hooks := append([]func(){}, h.onConnect...)
	h.hookMu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(total))
	logging.Info().Uint64("client_id", client.id).Int("total_clients", total).Msg("websocket client disconnected")
}

// logGracefulShutdown closes every client and logs why the hub stopped.
// Cancellation is expected here, so it is not logged as an error.
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
	case context.DeadlineExceeded:
		return ShutdownReasonContextDeadline
	default:
		return ShutdownReasonContextCanceled
	}
}

// sortedClients returns the clients in registration order. Lock held.
func (h *Hub) sortedClients() []*Client {
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	return clients
}

// broadcastToClients delivers message to every client registered before it
// was issued. Clients whose buffer is full are dropped.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var toRemove []*Client
	delivered := 0
	for _, client := range h.sortedClients() {
		if message.seq != 0 && message.seq <= client.since {
			continue
		}
		select {
		case client.send <- message:
			delivered++
		default:
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
		metrics.BroadcastDropped.Inc()
		logging.Warn().Uint64("client_id", client.id).Msg("dropping slow websocket client")
	}
	if len(toRemove) > 0 {
		metrics.WSConnections.Set(float64(len(h.clients)))
	}
	metrics.RecordBroadcast(message.Type)
	logging.Debug().Str("type", message.Type).Int("delivered", delivered).Msg("broadcast")
}

// closeAllClients closes every client in registration order.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, client := range h.sortedClients() {
		close(client.send)
		delete(h.clients, client)
	}
	metrics.WSConnections.Set(0)
}

// BroadcastNewMedia tells every connected viewer about a newly stored file.
func (h *Hub) BroadcastNewMedia(path string) {
	h.BroadcastJSON(MessageTypeNewMedia, path)
}

// BroadcastJSON sends a JSON message to all connected clients
func (h *Hub) BroadcastJSON(messageType string, data interface{}) {
	message := Message{
		Type: messageType,
		Data: data,
		seq:  h.published.Add(1),
	}

	select {
	case h.broadcast <- message:
	default:
		metrics.BroadcastDropped.Inc()
		logging.Warn().Str("message_type", messageType).Msg("broadcast channel full, dropping message")
	}
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// MarshalMessage converts a message to JSON
func MarshalMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
