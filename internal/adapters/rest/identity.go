package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sehatlink/teleconsult/internal/domain"
)

const identityKey = "identity"

// IdentityMiddleware extracts the authenticated identity asserted by the
// external auth layer. Requests without one never reach a handler.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, err := domain.NewIdentity(c.GetHeader("X-User-ID"), c.GetHeader("X-User-Role"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthenticated",
				"message": "valid X-User-ID and X-User-Role headers are required",
			})
			return
		}
		c.Set(identityKey, ident)
		c.Next()
	}
}

func identityFrom(c *gin.Context) domain.Identity {
	v, _ := c.Get(identityKey)
	ident, _ := v.(domain.Identity)
	return ident
}
