package handlers

import (
	"errors"
	"net/http"

	"taskboard/internal/domain"
	"taskboard/internal/logger"
	"taskboard/internal/tasks"

	"github.com/gin-gonic/gin"
)

// ListTasks returns the caller's tasks newest first. The snapshot digest
// doubles as an ETag.
func (h *Handler) ListTasks(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	snap, err := h.Tasks.List(c.Request.Context(), identity)
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("list tasks failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load tasks"})
		return
	}

	etag := `"` + snap.Digest + `"`
	c.Header("ETag", etag)
	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"tasks":  tasks.Items(snap.Tasks, h.Share),
		"digest": snap.Digest,
	})
}

type CreateTaskRequest struct {
	Body   string `json:"body"`
	Public bool   `json:"public"`
}

func (h *Handler) CreateTask(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}

	t, err := h.Tasks.Create(c.Request.Context(), identity, req.Body, domain.VisibilityFromBool(req.Public))
	switch {
	case errors.Is(err, tasks.ErrEmptyBody):
		// nothing to create
		c.Status(http.StatusNoContent)
		return
	case errors.Is(err, tasks.ErrBodyTooLong):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "body too long"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create task"})
		return
	}

	h.AuditService.LogTaskCreate(c.Request.Context(), t)
	c.JSON(http.StatusCreated, tasks.Items([]domain.Task{t}, h.Share)[0])
}

func (h *Handler) DeleteTask(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	id := c.Param("id")

	err := h.Tasks.Delete(c.Request.Context(), identity, id)
	if errors.Is(err, tasks.ErrForbidden) {
		h.AuditService.LogTaskDeleteDenied(c.Request.Context(), identity, id, c.ClientIP())
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete task"})
		return
	}

	h.AuditService.LogTaskDelete(c.Request.Context(), identity, id)
	c.Status(http.StatusNoContent)
}

// ShareTask returns the share link of one of the caller's public tasks.
func (h *Handler) ShareTask(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}
	t, err := h.Tasks.Get(c.Request.Context(), identity, c.Param("id"))
	if errors.Is(err, domain.ErrTaskNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load task"})
		return
	}
	if !t.Visibility.IsPublic() {
		c.JSON(http.StatusConflict, gin.H{"error": "task is private"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": h.Share.Link(t.ID)})
}
