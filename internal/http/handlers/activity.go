package handlers

import (
	"net/http"
	"strconv"

	"taskboard/internal/domain"
	"taskboard/internal/logger"

	"github.com/gin-gonic/gin"
)

const maxActivity = 100

// MyActivity returns the caller's own audit trail: sign-ins, sign-outs,
// creates, deletes and refused deletes.
func (h *Handler) MyActivity(c *gin.Context) {
	identity, ok := requireIdentity(c)
	if !ok {
		return
	}

	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = min(n, maxActivity)
	}

	entries, err := h.AuditService.GetIdentityAuditLogs(c.Request.Context(), identity, limit)
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("load activity failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load activity"})
		return
	}
	if entries == nil {
		entries = []*domain.AuditLog{}
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
