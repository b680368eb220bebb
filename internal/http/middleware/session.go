package middleware

import (
	"net/http"

	"taskboard/internal/domain"
	"taskboard/internal/logger"
	"taskboard/internal/session"

	"github.com/gin-gonic/gin"
)

const IdentityKey = "identity"

// RequirePage gates page routes: without a session the request is
// redirected (never permanently) and the handler does not run.
func RequirePage(gate *session.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, redirect := gate.Require(c.Request)
		if redirect != nil {
			c.Redirect(redirect.StatusCode(), redirect.Destination)
			c.Abort()
			return
		}
		setIdentity(c, identity)
		c.Next()
	}
}

// RequireAPI gates JSON routes with a 401 instead of a redirect.
func RequireAPI(gate *session.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, redirect := gate.Require(c.Request)
		if redirect != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		setIdentity(c, identity)
		c.Next()
	}
}

func setIdentity(c *gin.Context, identity domain.Identity) {
	c.Set(IdentityKey, identity)
	ctx := session.WithIdentity(c.Request.Context(), identity)
	ctx = logger.NewContext(ctx, "identity", identity)
	c.Request = c.Request.WithContext(ctx)
}

// GetIdentity returns the identity set by RequirePage or RequireAPI.
func GetIdentity(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(IdentityKey)
	if !ok {
		return "", false
	}
	id, ok := v.(domain.Identity)
	return id, ok && !id.IsZero()
}
