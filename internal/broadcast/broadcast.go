package broadcast

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
)

var ErrUnknownConnection = errors.New("broadcast: unknown connection")

// Conn is one outbound listener connection.
type Conn interface {
	Send(ctx context.Context, ev Event) error
}

// Broadcaster delivers events to listeners by connection id. Delivery is best-effort:
// failures are logged and never returned to the caller.
type Broadcaster interface {
	Deliver(ctx context.Context, connectionID string, ev Event)
	DeliverAll(ctx context.Context, ev Event)
}

type Hub struct {
	mu    sync.RWMutex
	conns map[string]Conn
}

func NewHub() *Hub {
	return &Hub{conns: make(map[string]Conn)}
}

func (h *Hub) Register(id string, c Conn) {
	h.mu.Lock()
	h.conns[id] = c
	h.mu.Unlock()
}

func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	delete(h.conns, id)
	h.mu.Unlock()
}

func (h *Hub) lookup(id string) (Conn, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.conns[id]
	return c, ok
}

// Send delivers ev to one connection and reports the failure, for callers that need it.
func (h *Hub) Send(ctx context.Context, id string, ev Event) error {
	c, ok := h.lookup(id)
	if !ok {
		return ErrUnknownConnection
	}
	return c.Send(ctx, ev)
}

func (h *Hub) Deliver(ctx context.Context, id string, ev Event) {
	if err := h.Send(ctx, id, ev); err != nil {
		slog.Warn("failed to deliver event", "connection_id", id, "event_type", ev.Type, "error", err)
	}
}

func (h *Hub) DeliverAll(ctx context.Context, ev Event) {
	for _, id := range h.IDs() {
		h.Deliver(ctx, id, ev)
	}
}

// IDs returns the registered connection ids in sorted order.
func (h *Hub) IDs() []string {
	h.mu.RLock()
	ids := make([]string, 0, len(h.conns))
	for id := range h.conns {
		ids = append(ids, id)
	}
	h.mu.RUnlock()
	sort.Strings(ids)
	return ids
}
