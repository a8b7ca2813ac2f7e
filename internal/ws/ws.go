// Package ws pushes canvas changes to connected editors.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
)

// StateProviderFunc returns the current canvas state (view and spec) as JSON.
type StateProviderFunc func() ([]byte, error)

// Hub fans graph events out to every connected editor. Each broadcast carries
// a sequence number; full_state carries the latest one, so a client that sees
// a gap asks for a sync.
type Hub struct {
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[*Client]struct{}

	events     chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
	seq        atomic.Uint64

	stateProvider  StateProviderFunc
	originPatterns []string
	devMode        bool
}

// Client is one editor connection.
type Client struct {
	hub  *Hub
	send chan []byte
	conn connection
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:     logger,
		clients:    make(map[*Client]struct{}),
		events:     make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// SetStateProvider sets the source of full_state messages.
func (h *Hub) SetStateProvider(fn StateProviderFunc) {
	h.stateProvider = fn
}

// SetOriginPatterns restricts cross-origin connections to the given host
// patterns. In dev mode every origin is accepted.
func (h *Hub) SetOriginPatterns(devMode bool, patterns ...string) {
	h.devMode = devMode
	h.originPatterns = patterns
}

// Run owns client membership until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer h.stopOnce.Do(func() { close(h.done) })
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("editor connected", "clients", n)

		case c := <-h.unregister:
			h.mu.Lock()
			h.drop(c)
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("editor disconnected", "clients", n)

		case msg := <-h.events:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					// a client that cannot keep up resyncs on reconnect
					h.drop(c)
					h.logger.Warn("dropped slow editor connection")
				}
			}
			h.mu.Unlock()

		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				h.drop(c)
			}
			h.mu.Unlock()
			return
		}
	}
}

// drop requires h.mu held for writing.
func (h *Hub) drop(c *Client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast queues an encoded message for every client. After Run has
// returned the message is discarded.
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.events <- message:
	case <-h.done:
	}
}

// BroadcastJSON stamps the next sequence number on payload and broadcasts it.
func (h *Hub) BroadcastJSON(msgType MessageType, payload any) {
	msg, err := encode(msgType, h.seq.Add(1), payload)
	if err != nil {
		h.logger.Error("encoding broadcast", "type", msgType, "error", err)
		return
	}
	h.Broadcast(msg)
}

// BroadcastGraphChanged tells clients to refetch the canvas.
func (h *Hub) BroadcastGraphChanged(kind string, dirty bool) {
	h.BroadcastJSON(MsgGraphChanged, GraphChanged{Kind: kind, Dirty: dirty})
}

// BroadcastSaved announces a completed save.
func (h *Hub) BroadcastSaved(projectID, name string) {
	h.BroadcastJSON(MsgSaved, Saved{ProjectID: projectID, Name: name})
}

func (h *Hub) BroadcastError(errMsg string) {
	h.BroadcastJSON(MsgError, ErrorPayload{Message: errMsg})
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Seq returns the sequence number of the latest broadcast.
func (h *Hub) Seq() uint64 {
	return h.seq.Load()
}

func (h *Hub) fullState() ([]byte, bool) {
	if h.stateProvider == nil {
		return nil, false
	}
	// read the sequence first so a concurrent change is never hidden behind it
	seq := h.seq.Load()
	data, err := h.stateProvider()
	if err != nil {
		h.logger.Error("building full state", "error", err)
		return nil, false
	}
	msg, err := encode(MsgFullState, seq, json.RawMessage(data))
	if err != nil {
		h.logger.Error("encoding full state", "error", err)
		return nil, false
	}
	return msg, true
}
