package auth

import (
	"context"
	"net/http"
	"strings"

	"partyplanner/backend/internal/database"
	"partyplanner/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
)

// Context keys set by the middleware for downstream handlers.
const (
	UserIDKey   = "userID"
	UserRoleKey = "userRole"
)

// AuthMiddleware creates a gin middleware that requires a valid, non-revoked
// bearer token and stores the caller's identity on the context.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := extractToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header"})
			return
		}

		authenticate(c, token)
	}
}

// WSAuthMiddleware authenticates WebSocket upgrades. Browsers cannot set
// headers on WebSocket requests, so a ?token= query parameter is accepted as
// a fallback.
func WSAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			if headerToken, ok := extractToken(c); ok {
				token = headerToken
			}
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing token"})
			return
		}

		authenticate(c, token)
	}
}

func authenticate(c *gin.Context, token string) {
	// Tokens blacklisted at logout stay revoked until their natural expiry.
	exists, err := database.Redis.Exists(context.Background(), "blacklist:"+token).Result()
	if err != nil || exists > 0 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token is revoked"})
		return
	}

	userID, role, err := jwt.ParseToken(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	c.Set(UserIDKey, userID)
	c.Set(UserRoleKey, role)
	c.Next()
}

func extractToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}
