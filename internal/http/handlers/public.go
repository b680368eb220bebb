package handlers

import (
	"errors"
	"net/http"
	"time"

	"taskboard/internal/logger"
	"taskboard/internal/share"

	"github.com/gin-gonic/gin"
)

// PublicTask serves a shared task to anyone, signed in or not. Missing and
// private tasks get the same 404.
func (h *Handler) PublicTask(c *gin.Context) {
	t, err := h.Share.Resolve(c.Request.Context(), c.Param("id"))
	if errors.Is(err, share.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	if err != nil {
		logger.Error("resolve shared task failed", "task_id", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load task"})
		return
	}

	html, err := h.Share.RenderBody(t.Body)
	if err != nil {
		logger.Warn("render task body failed", "task_id", t.ID, "error", err)
		html = ""
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         t.ID,
		"body":       t.Body,
		"body_html":  html,
		"created_at": t.CreatedAt.Format(time.RFC3339),
	})
}
