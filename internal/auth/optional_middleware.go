package auth

import (
	"context"

	"partyplanner/backend/internal/database"
	"partyplanner/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
)

// OptionalAuthMiddleware inspects for a token and sets the caller identity if
// present and valid, but does not fail if the token is missing or invalid.
// Used on endpoints guests may hit, such as party browsing and applying.
func OptionalAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := extractToken(c)
		if ok {
			exists, err := database.Redis.Exists(context.Background(), "blacklist:"+token).Result()
			if err == nil && exists == 0 {
				if userID, role, err := jwt.ParseToken(token); err == nil {
					c.Set(UserIDKey, userID)
					c.Set(UserRoleKey, role)
				}
			}
		}
		c.Next()
	}
}
