package handlers

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

// Pinger is anything the readiness probe can reach.
type Pinger interface {
	Ping(ctx context.Context) error
}

type redisPinger struct{ client *redis.Client }

func (p redisPinger) Ping(ctx context.Context) error { return p.client.Ping(ctx).Err() }

// RedisPinger adapts a redis client for the readiness probe. It returns nil
// for a nil client so the check is skipped.
func RedisPinger(client *redis.Client) Pinger {
	if client == nil {
		return nil
	}
	return redisPinger{client: client}
}

type probe struct {
	name string
	p    Pinger
}

// HealthHandler serves liveness and readiness for the task server.
type HealthHandler struct {
	store     Pinger
	probes    []probe
	live      func() int
	startTime time.Time
	version   string
}

// NewHealthHandler probes the task store and, when non-nil, the cache used
// for rate limits and revocations. live reports open websocket clients and
// may be nil.
func NewHealthHandler(store Pinger, cache Pinger, version string, live func() int) *HealthHandler {
	h := &HealthHandler{
		store:     store,
		live:      live,
		startTime: time.Now(),
		version:   version,
	}
	h.probes = append(h.probes, probe{name: "task_store", p: store})
	if cache != nil {
		h.probes = append(h.probes, probe{name: "redis", p: cache})
	}
	return h
}

type HealthResponse struct {
	Status      string            `json:"status"`
	Version     string            `json:"version,omitempty"`
	Uptime      string            `json:"uptime,omitempty"`
	Timestamp   string            `json:"timestamp"`
	Checks      map[string]string `json:"checks,omitempty"`
	LiveClients *int              `json:"live_clients,omitempty"`
	HeapMB      float64           `json:"heap_mb"`
}

// Liveness (k8s liveness probe)
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness pings every dependency and fails with 503 if any is down.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.probes))
	ready := true
	for _, pr := range h.probes {
		if err := pr.p.Ping(ctx); err != nil {
			checks[pr.name] = "unhealthy: " + err.Error()
			ready = false
			continue
		}
		checks[pr.name] = "healthy"
	}

	resp := HealthResponse{
		Status:    "healthy",
		Version:   h.version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		HeapMB:    heapMB(),
	}
	if h.live != nil {
		n := h.live()
		resp.LiveClients = &n
	}

	code := http.StatusOK
	if !ready {
		resp.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, resp)
}

// Health only checks that tasks can be read.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  "task store unavailable",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": h.version})
}

func heapMB() float64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return float64(m.HeapAlloc/(1<<10)) / 1024
}
