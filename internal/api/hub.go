package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nerrad567/graydb/internal/auth"
	"github.com/nerrad567/graydb/internal/database"
	"github.com/nerrad567/graydb/internal/infrastructure/config"
	"github.com/nerrad567/graydb/internal/infrastructure/logging"
)

// Channels are "query.<category>" plus the ChannelAllQueries wildcard.
const (
	channelQueryPrefix = "query."
	ChannelAllQueries  = channelQueryPrefix + "*"
)

// QueryChannel returns the channel carrying events of category c.
func QueryChannel(c database.Category) string {
	return channelQueryPrefix + string(c)
}

// parseChannel resolves a channel name. all is true for the wildcard.
func parseChannel(ch string) (cat database.Category, all bool, err error) {
	if ch == ChannelAllQueries {
		return "", true, nil
	}
	if name, ok := strings.CutPrefix(ch, channelQueryPrefix); ok {
		for _, c := range database.AllCategories {
			if string(c) == name {
				return c, false, nil
			}
		}
	}
	return "", false, fmt.Errorf("unknown channel %q", ch)
}

// Hub fans statement notifications out to WebSocket clients.
//
// It is a database.Observer: Observe never blocks the session. A client
// whose buffer is full loses the event and the loss is counted. Clients
// without PermAuditRead receive events with Params removed.
type Hub struct {
	cfg    config.WebSocketConfig
	logger *logging.Logger

	mu      sync.RWMutex
	clients map[*WSClient]struct{}

	dropped atomic.Uint64
}

var _ database.Observer = (*Hub)(nil)

// NewHub creates a hub; cfg controls frame size and keepalive timing.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*WSClient]struct{}),
	}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*WSClient]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.shutdown()
	}
	if len(clients) > 0 {
		h.logger.Info("websocket clients disconnected", "count", len(clients))
	}
}

// Register adds client to the fan-out set.
func (h *Hub) Register(client *WSClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client registered", "subject", client.subject, "clients", n)
}

// Unregister removes client and stops its writer. Safe to call twice.
func (h *Hub) Unregister(client *WSClient) {
	h.mu.Lock()
	_, ok := h.clients[client]
	delete(h.clients, client)
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		client.shutdown()
		h.logger.Debug("websocket client unregistered", "subject", client.subject, "clients", n)
	}
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns how many events were discarded for slow clients.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// Observe implements database.Observer.
func (h *Hub) Observe(_ context.Context, ev database.Event) {
	h.mu.RLock()
	targets := make([]*WSClient, 0, len(h.clients))
	for c := range h.clients {
		if c.wants(ev.Category) {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()
	if len(targets) == 0 {
		return
	}

	var full, redacted []byte
	for _, c := range targets {
		withParams := len(ev.Params) == 0 || auth.HasPermission(c.role, auth.PermAuditRead)

		frame := &redacted
		if withParams {
			frame = &full
		}
		if *frame == nil {
			b, err := encodeEvent(ev, withParams)
			if err != nil {
				h.logger.Error("encoding websocket event", "error", err, "with_params", withParams)
				continue
			}
			*frame = b
		}
		if !c.enqueue(*frame) {
			h.dropped.Add(1)
		}
	}
}

func encodeEvent(ev database.Event, withParams bool) ([]byte, error) {
	if !withParams {
		ev.Params = nil
	}
	return json.Marshal(WSMessage{
		Type:      WSTypeEvent,
		EventType: QueryChannel(ev.Category),
		Timestamp: ev.Time.UTC().Format(time.RFC3339Nano),
		Payload:   ev,
	})
}
