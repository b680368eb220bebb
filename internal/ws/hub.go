package ws

import (
	"context"
	"log/slog"
	"sync"

	"taskboard/internal/logger"
	"taskboard/internal/service"
	"taskboard/internal/tasks"

	"github.com/prometheus/client_golang/prometheus"
)

var wsConnections = prometheus.NewGauge(prometheus.GaugeOpts{
	Name: "ws_connections",
	Help: "Open websocket connections",
})

func init() {
	prometheus.MustRegister(wsConnections)
}

// Hub tracks live connections. Each connection owns its view; the hub only
// needs them for counting and shutdown.
type Hub struct {
	repo  *tasks.Repository
	links tasks.Links
	audit *service.AuditService
	log   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.RWMutex
	clients    map[*Client]struct{}
	byIdentity map[string]int
}

func NewHub(repo *tasks.Repository, links tasks.Links, audit *service.AuditService) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		repo:       repo,
		links:      links,
		audit:      audit,
		log:        logger.With("component", "ws"),
		ctx:        ctx,
		cancel:     cancel,
		clients:    make(map[*Client]struct{}),
		byIdentity: make(map[string]int),
	}
}

// Context is cancelled by CloseAll; clients run under it.
func (h *Hub) Context() context.Context { return h.ctx }

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.byIdentity[string(c.Identity)]++
	n := h.byIdentity[string(c.Identity)]
	h.mu.Unlock()

	wsConnections.Inc()
	h.log.Debug("client connected", "identity", c.Identity, "connections", n)
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	id := string(c.Identity)
	if h.byIdentity[id]--; h.byIdentity[id] <= 0 {
		delete(h.byIdentity, id)
	}
	h.mu.Unlock()

	wsConnections.Dec()
	h.log.Debug("client disconnected", "identity", c.Identity)
}

// Len returns the number of open connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Connections returns how many connections identity has open.
func (h *Hub) Connections(identity string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.byIdentity[identity]
}

// CloseAll stops every client. Used on shutdown.
func (h *Hub) CloseAll() {
	h.cancel()

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		_ = c.Conn.Close()
	}
	h.log.Info("websocket clients closed", "count", len(clients))
}
