package handlers

import (
	"taskboard/internal/ws"

	"github.com/gin-gonic/gin"
)

// WS serves the live task list over a websocket.
func (h *Handler) WS(hub *ws.Hub, allowedOrigin string) gin.HandlerFunc {
	return ws.HandleWS(hub, h.Gate, allowedOrigin)
}
