package handlers

import (
	"net/http"

	"taskboard/internal/domain"
	"taskboard/internal/service"
	"taskboard/internal/session"
	"taskboard/internal/share"
	"taskboard/internal/tasks"

	"github.com/gin-gonic/gin"
)

// HandlerConfig holds configuration for handler
type HandlerConfig struct {
	DevMode bool
	// WSPath is advertised to the dashboard as the live list endpoint.
	WSPath string
}

type Handler struct {
	Tasks        *tasks.Repository
	Share        *share.Resolver
	Gate         *session.Gate
	AuditService *service.AuditService
	cfg          HandlerConfig
}

func NewHandler(repo *tasks.Repository, resolver *share.Resolver, gate *session.Gate, audit *service.AuditService, cfg HandlerConfig) *Handler {
	if cfg.WSPath == "" {
		cfg.WSPath = "/ws/tasks"
	}
	return &Handler{
		Tasks:        repo,
		Share:        resolver,
		Gate:         gate,
		AuditService: audit,
		cfg:          cfg,
	}
}

// requireIdentity reads the identity the session middleware attached to
// the request context. Handlers never run ungated, so a miss is a 401.
func requireIdentity(c *gin.Context) (domain.Identity, bool) {
	id, ok := session.IdentityFrom(c.Request.Context())
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
	return id, ok
}
