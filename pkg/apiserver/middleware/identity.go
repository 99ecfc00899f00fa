package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/docuflow/docuflow/pkg/auth"
)

const (
	HeaderUser  = "X-USER"
	HeaderRole  = "X-ROLE"
	identityKey = "identity"
)

// Identity resolves the acting principal. A bearer token wins; without one
// the X-USER and X-ROLE headers are used when trustHeaders is set. Requests
// with no identity pass through anonymous.
func Identity(tokens *auth.TokenManager, trustHeaders bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if authorization := c.GetHeader("Authorization"); authorization != "" && tokens != nil {
			parts := strings.SplitN(authorization, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization"})
				return
			}
			token := strings.TrimSpace(parts[1])
			if token == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
				return
			}
			identity, err := tokens.Validate(token)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			c.Set(identityKey, identity)
			c.Next()
			return
		}

		if trustHeaders {
			user := strings.TrimSpace(c.GetHeader(HeaderUser))
			role := strings.TrimSpace(c.GetHeader(HeaderRole))
			if user != "" || role != "" {
				c.Set(identityKey, auth.Identity{Username: user, Role: role})
			}
		}
		c.Next()
	}
}

func IdentityFrom(c *gin.Context) (auth.Identity, bool) {
	value, ok := c.Get(identityKey)
	if !ok {
		return auth.Identity{}, false
	}
	identity, ok := value.(auth.Identity)
	return identity, ok
}
