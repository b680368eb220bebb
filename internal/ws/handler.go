package ws

import (
	"net/http"

	"taskboard/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// HandleWS upgrades a signed-in request to a live task view. The session
// comes from the cookie, a bearer header or ?token=.
func HandleWS(hub *Hub, gate *session.Gate, allowedOrigin string) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "" {
				return true
			}
			return r.Header.Get("Origin") == allowedOrigin
		},
	}

	return func(c *gin.Context) {
		claims, err := gate.AuthenticateUpgrade(c.Request)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			hub.log.Warn("ws upgrade error", "error", err)
			return
		}

		client := NewClient(claims.Identity, conn, hub)
		go client.Run(hub.Context())
	}
}
