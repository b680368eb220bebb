package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Session reports the header status: loading, authenticated with a sign-out
// control, or unauthenticated with a sign-in control.
func (h *Handler) Session(c *gin.Context) {
	s := h.Gate.Status(c.Request)
	resp := gin.H{
		"status":     s.Status,
		"affordance": s.Affordance(),
	}
	if !s.Identity.IsZero() {
		resp["user"] = gin.H{"email": s.Identity, "name": s.Name}
	}
	c.JSON(http.StatusOK, resp)
}

// Landing is where gated pages send anonymous visitors. It shows the same
// header status plus where to start sign-in.
func (h *Handler) Landing(c *gin.Context) {
	s := h.Gate.Status(c.Request)
	resp := gin.H{
		"status":     s.Status,
		"affordance": s.Affordance(),
		"signin_url": "/auth/signin/google",
	}
	if !s.Identity.IsZero() {
		resp["dashboard_url"] = "/dashboard"
	}
	c.JSON(http.StatusOK, resp)
}
