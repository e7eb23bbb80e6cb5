package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/waveroom/marketplace-backend/internal/logger"
)

// HubClient is one live notice subscription, scoped to a session key.
type HubClient struct {
	ID         uuid.UUID
	SessionKey string
	Outbound   chan Notice
	done       chan struct{}
}

// Hub fans notices out to the clients subscribed to their session key. It
// implements Sink, so it can sit directly behind the cart engine or be fed
// by the cross-instance forwarder.
type Hub struct {
	mu            sync.RWMutex
	log           *logger.Logger
	subscriptions map[string]map[*HubClient]bool
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		log:           log.With("component", "NoticeHub"),
		subscriptions: make(map[string]map[*HubClient]bool),
	}
}

func (h *Hub) NewClient(sessionKey string) *HubClient {
	return &HubClient{
		ID:         uuid.New(),
		SessionKey: strings.TrimSpace(sessionKey),
		Outbound:   make(chan Notice, 10),
		done:       make(chan struct{}),
	}
}

func (h *Hub) AddClient(client *HubClient) {
	if client.SessionKey == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, exists := h.subscriptions[client.SessionKey]
	if !exists {
		clients = make(map[*HubClient]bool)
		h.subscriptions[client.SessionKey] = clients
	}
	clients[client] = true
	h.log.Debug("Notice client subscribed", "clientID", client.ID, "session", client.SessionKey)
}

func (h *Hub) RemoveClient(client *HubClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.subscriptions[client.SessionKey]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.subscriptions, client.SessionKey)
		}
	}
	h.log.Debug("Notice client unsubscribed", "clientID", client.ID, "session", client.SessionKey)
}

func (h *Hub) CloseClient(client *HubClient) {
	h.RemoveClient(client)
	close(client.done)
	close(client.Outbound)
}

// Broadcast delivers n to every client on its session key. Slow clients
// drop rather than block.
func (h *Hub) Broadcast(n Notice) {
	if n.SessionKey == "" {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.subscriptions[n.SessionKey]
	if !ok {
		return
	}
	for c := range clients {
		select {
		case c.Outbound <- n:
		default:
			h.log.Warn("Dropping notice; outbound buffer full", "clientID", c.ID)
		}
	}
}

// Notify makes the hub usable as a Sink for single-instance deployments.
func (h *Hub) Notify(_ context.Context, n Notice) {
	h.Broadcast(n)
}

// ServeHTTP streams the client's notices as server-sent events until the
// request context ends or the client is closed.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request, client *HubClient) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	ctx := r.Context()

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-client.done:
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case n, ok := <-client.Outbound:
			if !ok {
				return
			}
			raw, err := json.Marshal(n)
			if err != nil {
				h.log.Warn("Failed to marshal notice", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: notice\ndata: %s\n\n", raw)
			flusher.Flush()
		}
	}
}
