package handlers

import (
	"net/http"

	"taskboard/internal/logger"
	"taskboard/internal/tasks"

	"github.com/gin-gonic/gin"
)

// Dashboard returns the props the dashboard page boots with. The page gate
// has already redirected anonymous visitors.
func (h *Handler) Dashboard(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	s := h.Gate.Status(c.Request)

	snap, err := h.Tasks.List(c.Request.Context(), identity)
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("dashboard list failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load tasks"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":   gin.H{"email": identity, "name": s.Name},
		"tasks":  tasks.Items(snap.Tasks, h.Share),
		"digest": snap.Digest,
		"ws_url": wsURL(c, h.cfg.WSPath),
	})
}

func wsURL(c *gin.Context, path string) string {
	scheme := "ws"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "wss"
	}
	return scheme + "://" + c.Request.Host + path
}
