package http

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/zoompay/internal/domain/entity"
)

const actorKey = "zoompay.actor"

// authMiddleware resolves the bearer token to an actor and aborts with 401/403 otherwise
func (s *Server) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			// <img> tags cannot set headers, so blob and preview links may carry the token
			token = c.Query("access_token")
		}

		actor, err := s.services.Auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			writeError(c, err)
			c.Abort()
			return
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func actorFrom(c *gin.Context) (entity.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return entity.Actor{}, false
	}
	actor, ok := v.(entity.Actor)
	return actor, ok
}

// currentActor returns the authenticated actor. Routes behind authMiddleware
// always have one; the zero actor fails every role check.
func currentActor(c *gin.Context) entity.Actor {
	actor, _ := actorFrom(c)
	return actor
}
