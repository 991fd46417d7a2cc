package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ArowuTest/draft-lottery-backend/internal/models"
	"github.com/ArowuTest/draft-lottery-backend/pkg/jwt"
)

const (
	bearerSchema = "Bearer "
	actorKey     = "actor"
)

// JWTAuthMiddleware authenticates the caller from a Bearer token. Browsers cannot set headers
// on websocket upgrades, so the token may also come in the "token" query parameter.
func JWTAuthMiddleware(tokens *jwt.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.Query("token")
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			if !strings.HasPrefix(authHeader, bearerSchema) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header must start with Bearer "})
				return
			}
			tokenString = strings.TrimSpace(authHeader[len(bearerSchema):])
		}
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			return
		}

		claims, err := tokens.Parse(tokenString)
		if err != nil {
			zap.L().Debug("token rejected", zap.Error(err), zap.String("path", c.FullPath()))
			if errors.Is(err, jwt.ErrTokenExpired) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token has expired"})
			} else {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			}
			return
		}

		c.Set(actorKey, models.Actor{
			ID:          claims.Subject,
			DisplayName: claims.Name,
			Email:       claims.Email,
			Role:        claims.Role,
		})
		c.Next()
	}
}

// ActorFrom returns the authenticated caller set by JWTAuthMiddleware
func ActorFrom(c *gin.Context) (models.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return models.Actor{}, false
	}
	actor, ok := v.(models.Actor)
	return actor, ok
}
