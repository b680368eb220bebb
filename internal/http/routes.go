package http

import (
	"time"

	"taskboard/internal/config"
	"taskboard/internal/http/handlers"
	"taskboard/internal/http/middleware"
	"taskboard/internal/ws"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes wires every endpoint. Page routes redirect anonymous
// visitors, API routes answer 401, public routes need no session.
func RegisterRoutes(r *gin.Engine, h *handlers.Handler, health *handlers.HealthHandler, hub *ws.Hub, cfg *config.Config) {
	apiRL := middleware.RedisRateLimit("api", cfg.APIRateLimit, seconds(cfg.APIRateWindow))
	authRL := middleware.RedisRateLimit("auth", cfg.AuthRateLimit, seconds(cfg.AuthRateWindow))
	writeRL := middleware.WriteRateLimit(cfg.WriteRateLimit, seconds(cfg.WriteRateWindow))
	// upgrades are long-lived, so throttle connects per IP in-process
	connectRL := middleware.SimpleRateLimit(cfg.AuthRateLimit, seconds(cfg.AuthRateWindow))

	// Health checks (no rate limiting)
	r.GET("/health", health.Health)
	r.GET("/healthz", health.Liveness)
	r.GET("/readyz", health.Readiness)

	// Landing and header status
	r.GET("/", h.Landing)

	// Sign-in delegation
	auth := r.Group("/auth", authRL)
	{
		auth.GET("/signin/:provider", h.SignIn)
		auth.GET("/callback/:provider", h.Callback)
		auth.POST("/signout", h.SignOut)
	}

	// Gated page
	r.GET("/dashboard", middleware.RequirePage(h.Gate), h.Dashboard)

	// Public share page, reachable without a session, served wherever
	// share links point
	r.GET(h.Share.Prefix()+"/:id", apiRL, h.PublicTask)

	v1 := r.Group("/api/v1", apiRL)
	v1.GET("/session", h.Session)
	v1.GET("/activity", middleware.RequireAPI(h.Gate), h.MyActivity)
	v1.GET("/public/tasks/:id", h.PublicTask)
	if cfg.DevMode {
		v1.POST("/auth/dev", authRL, h.DevLogin)
	}

	taskAPI := v1.Group("/tasks", middleware.RequireAPI(h.Gate))
	{
		taskAPI.GET("", h.ListTasks)
		taskAPI.POST("", writeRL, h.CreateTask)
		taskAPI.DELETE("/:id", writeRL, h.DeleteTask)
		taskAPI.GET("/:id/share", h.ShareTask)
	}

	// Live task list
	r.GET("/ws/tasks", connectRL, h.WS(hub, cfg.AllowedOrigin))
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return time.Minute
	}
	return time.Duration(n) * time.Second
}
