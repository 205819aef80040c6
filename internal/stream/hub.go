// Package stream pushes a session's auth transitions to its browser as
// server-sent events.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"profile-portal/internal/event"
	"profile-portal/internal/middleware"
)

const (
	clientBuffer      = 16
	keepAliveInterval = 25 * time.Second
)

type Client struct {
	sessionID string
	send      chan []byte
}

type registration struct {
	client *Client
	add    bool
}

// Hub fans bus events out to the clients of the session that caused them.
type Hub struct {
	clients map[*Client]bool

	changes chan registration
	done    chan struct{}
	active  atomic.Int64

	bus event.Bus
}

func NewHub(bus event.Bus) *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		changes: make(chan registration),
		done:    make(chan struct{}),
		bus:     bus,
	}
}

// Run dispatches events until ctx is done. Every client channel is closed on
// return.
func (h *Hub) Run(ctx context.Context) {
	events, unsubscribe := h.bus.Subscribe()
	defer unsubscribe()
	defer func() {
		close(h.done)
		for client := range h.clients {
			h.drop(client)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case change := <-h.changes:
			if change.add {
				h.clients[change.client] = true
				h.active.Add(1)
				continue
			}
			h.drop(change.client)
		case e, ok := <-events:
			if !ok {
				return
			}
			h.broadcast(e)
		}
	}
}

func (h *Hub) broadcast(e event.Event) {
	if e.SessionID == "" {
		return
	}

	message, err := json.Marshal(e)
	if err != nil {
		slog.Error("failed to marshal event", "error", err, "type", e.Type)
		return
	}

	for client := range h.clients {
		if client.sessionID != e.SessionID {
			continue
		}
		select {
		case client.send <- message:
		default:
			slog.Warn("event stream client too slow; disconnecting", "type", e.Type)
			h.drop(client)
		}
	}
}

func (h *Hub) drop(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
	h.active.Add(-1)
}

// Clients reports the number of connected streams.
func (h *Hub) Clients() int {
	return int(h.active.Load())
}

func (h *Hub) register(ctx context.Context, client *Client) bool {
	select {
	case h.changes <- registration{client: client, add: true}:
		return true
	case <-h.done:
		return false
	case <-ctx.Done():
		return false
	}
}

func (h *Hub) unregister(client *Client) {
	select {
	case h.changes <- registration{client: client}:
	case <-h.done:
	}
}

// ServeHTTP streams the caller's session events until the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.SessionIDFromContext(r.Context())
	if !ok {
		http.Error(w, "session required", http.StatusUnauthorized)
		return
	}

	rc := http.NewResponseController(w)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		slog.Warn("event stream not flushable", "error", err)
		return
	}

	client := &Client{sessionID: sessionID, send: make(chan []byte, clientBuffer)}
	if !h.register(r.Context(), client) {
		return
	}
	defer h.unregister(client)

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
		case message, ok := <-client.send:
			if !ok {
				return
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", message); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
