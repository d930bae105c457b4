package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"

	"github.com/Tyrowin/nexus-chat/internal/dispatch"
)

// Hub owns every WebSocket client and runs the single event loop through
// which registrations, inbound frames and disconnects pass. It implements
// dispatch.Emitter; emission methods must only be called from that loop.
type Hub struct {
	clients    map[string]*Client
	handler    EventHandler
	inbound    chan inboundFrame
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
	logger     *slog.Logger

	// clients whose send buffer overflowed during the current step
	failed []*Client
}

var _ dispatch.Emitter = (*Hub)(nil)

// NewHub creates a Hub that hands every frame to handler.
func NewHub(handler EventHandler, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[string]*Client),
		handler:    handler,
		inbound:    make(chan inboundFrame, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		logger:     logger.With("component", "hub"),
	}
}

// Register hands a freshly upgraded client to the event loop. It reports
// false once the hub is shutting down.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.ctx.Done():
		return false
	}
}

func (h *Hub) receive(client *Client, payload []byte) {
	select {
	case h.inbound <- inboundFrame{client: client, payload: payload}:
	case <-h.ctx.Done():
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// ClientCount returns the number of registered connections.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Run starts the hub's event loop. It returns after Shutdown is called.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				h.logger.Warn("Received nil client registration; skipping")
				continue
			}
			h.addClient(client)

		case client := <-h.unregister:
			if h.removeClient(client) {
				h.handler.Disconnect(h, client.id)
				h.dropFailedClients()
			}

		case frame := <-h.inbound:
			if !h.isRegistered(frame.client) {
				continue
			}
			h.handler.Dispatch(h, frame.client.id, frame.payload)
			h.dropFailedClients()
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mutex.Lock()
	client.closed = false
	h.clients[client.id] = client
	clientCount := len(h.clients)
	h.mutex.Unlock()
	h.logger.Info("Client registered", "conn", client.id, "addr", client.addr, "clients", clientCount)

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

// removeClient unregisters client and closes its send channel. It reports
// whether the client was still registered.
func (h *Hub) removeClient(client *Client) bool {
	h.mutex.Lock()
	current, ok := h.clients[client.id]
	if !ok || current != client {
		h.mutex.Unlock()
		return false
	}
	delete(h.clients, client.id)
	client.closed = true
	clientCount := len(h.clients)
	h.mutex.Unlock()

	// Close the channel after releasing the lock
	close(client.send)
	h.logger.Info("Client unregistered", "conn", client.id, "addr", client.addr, "clients", clientCount)
	return true
}

func (h *Hub) isRegistered(client *Client) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	current, ok := h.clients[client.id]
	return ok && current == client
}

// dropFailedClients disconnects clients that could not keep up. Their
// departure is announced, which may in turn overflow other buffers.
func (h *Hub) dropFailedClients() {
	for len(h.failed) > 0 {
		failed := h.failed
		h.failed = nil
		for _, client := range failed {
			if h.removeClient(client) {
				h.logger.Warn("Client removed due to full send buffer", "conn", client.id, "addr", client.addr)
				h.handler.Disconnect(h, client.id)
			}
		}
	}
}

func (h *Hub) safeSend(client *Client, message []byte) (sent bool) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("Recovered from panic in safeSend", "conn", client.id, "panic", r)
			sent = false
		}
	}()

	// Hold the lock during the entire send operation to prevent race conditions
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if _, exists := h.clients[client.id]; !exists || client.closed {
		return false
	}

	select {
	case client.send <- message:
		return true
	default:
		return false
	}
}

func (h *Hub) deliver(client *Client, frame []byte) {
	if !h.safeSend(client, frame) {
		h.failed = append(h.failed, client)
	}
}

func (h *Hub) encode(event string, payload any) ([]byte, bool) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("Error encoding event payload", "event", event, "error", err)
		return nil, false
	}
	frame, err := json.Marshal(dispatch.Envelope{Event: event, Data: data})
	if err != nil {
		h.logger.Error("Error encoding event frame", "event", event, "error", err)
		return nil, false
	}
	return frame, true
}

func (h *Hub) lookup(connID string) *Client {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.clients[connID]
}

// EmitTo sends event to one connection. Unknown connections are ignored.
func (h *Hub) EmitTo(connID, event string, payload any) {
	client := h.lookup(connID)
	if client == nil {
		return
	}
	if frame, ok := h.encode(event, payload); ok {
		h.deliver(client, frame)
	}
}

// EmitToMany sends event to each listed connection that is still open.
func (h *Hub) EmitToMany(connIDs []string, event string, payload any) {
	if len(connIDs) == 0 {
		return
	}
	frame, ok := h.encode(event, payload)
	if !ok {
		return
	}
	for _, id := range connIDs {
		if client := h.lookup(id); client != nil {
			h.deliver(client, frame)
		}
	}
}

// Broadcast sends event to every open connection.
func (h *Hub) Broadcast(event string, payload any) {
	frame, ok := h.encode(event, payload)
	if !ok {
		return
	}
	clients := h.getClientSnapshot()
	h.logger.Debug("Broadcasting event", "event", event, "clients", len(clients))
	for _, client := range clients {
		h.deliver(client, frame)
	}
}

// getClientSnapshot returns a thread-safe snapshot of all current clients
func (h *Hub) getClientSnapshot() []*Client {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	return clients
}

// shutdownClients closes every connection. Users are not announced as leaving
// since nobody is left to hear it.
func (h *Hub) shutdownClients() {
	h.logger.Info("Shutting down all client connections...")

	clients := h.getClientSnapshot()
	for _, client := range clients {
		h.removeClient(client)
		if client.conn != nil {
			if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
				h.logger.Warn("Error closing client connection", "conn", client.id, "error", err)
			}
		}
	}

	h.logger.Info("Closed client connections", "count", len(clients))
}

// Shutdown stops the event loop, closes all connections and waits for the
// client goroutines until ctx expires.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.logger.Info("Initiating hub shutdown...")

	h.cancel()

	select {
	case <-h.done:
	case <-ctx.Done():
		return ctx.Err()
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("Hub shutdown completed successfully")
		return nil
	case <-ctx.Done():
		h.logger.Warn("Hub shutdown timeout reached, some goroutines may still be running")
		return ctx.Err()
	}
}
