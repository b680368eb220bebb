package handlers

import (
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"taskboard/internal/domain"
	"taskboard/internal/logger"
	"taskboard/internal/session"

	"github.com/gin-gonic/gin"
)

// SignIn redirects to the provider's consent page.
func (h *Handler) SignIn(c *gin.Context) {
	err := h.Gate.SignIn(c.Writer, c.Request, c.Param("provider"))
	if errors.Is(err, session.ErrUnknownProvider) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown provider"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sign-in failed"})
	}
}

// Callback finishes the provider round trip and lands on the dashboard.
func (h *Handler) Callback(c *gin.Context) {
	provider := c.Param("provider")
	sess, err := h.Gate.Callback(c.Writer, c.Request, provider)
	switch {
	case errors.Is(err, session.ErrUnknownProvider):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown provider"})
		return
	case errors.Is(err, session.ErrStateMismatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid oauth state"})
		return
	case errors.Is(err, session.ErrUnverifiedEmail):
		c.JSON(http.StatusForbidden, gin.H{"error": "email not verified"})
		return
	case err != nil:
		logger.Warn("oauth callback failed", "provider", provider, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "sign-in failed"})
		return
	}

	h.AuditService.LogLogin(c.Request.Context(), sess.Identity, provider, c.ClientIP(), c.Request.UserAgent())
	c.Redirect(http.StatusFound, "/dashboard")
}

// SignOut ends the session. Task data is untouched.
func (h *Handler) SignOut(c *gin.Context) {
	identity, err := h.Gate.SignOut(c.Writer, c.Request)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sign-out failed"})
		return
	}
	if !identity.IsZero() {
		h.AuditService.LogLogout(c.Request.Context(), identity, c.ClientIP(), c.Request.UserAgent())
	}
	c.JSON(http.StatusOK, gin.H{"status": string(domain.SessionUnauthenticated)})
}

type DevLoginRequest struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// DevLogin issues a session without a provider. Only routed in DEV_MODE.
func (h *Handler) DevLogin(c *gin.Context) {
	if !h.cfg.DevMode {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	var req DevLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad request"})
		return
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(req.Email))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email"})
		return
	}

	identity := domain.Identity(strings.ToLower(addr.Address))
	token, err := h.Gate.Issue(c.Writer, identity, req.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token generation failed"})
		return
	}
	h.AuditService.LogLogin(c.Request.Context(), identity, "dev", c.ClientIP(), c.Request.UserAgent())

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": gin.H{
			"email": identity,
			"name":  req.Name,
		},
	})
}
