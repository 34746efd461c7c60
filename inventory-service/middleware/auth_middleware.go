package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	utils "bloodlink-backend/shared/utils/auth"
)

// AuthMiddleware extracts the calling principal from the JWT and sets it in
// context. The token is issued by the external session service; a token for
// a "switched" branch context carries that branch's organization id and is
// indistinguishable here from a direct login.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(401, gin.H{"error": "Authorization header is required"})
			c.Abort()
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			c.JSON(401, gin.H{"error": "Invalid authorization format. Expected Bearer {token}"})
			c.Abort()
			return
		}

		claims, err := utils.ValidateJWT(tokenParts[1])
		if err != nil {
			c.JSON(401, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			c.JSON(401, gin.H{"error": "Invalid user ID in token"})
			c.Abort()
			return
		}

		orgID, err := uuid.Parse(claims.OrganizationID)
		if err != nil {
			c.JSON(401, gin.H{"error": "Invalid organization ID in token"})
			c.Abort()
			return
		}

		c.Set("userID", userID)
		c.Set("userEmail", claims.Email)
		c.Set("organizationID", orgID)
		c.Set("role", claims.Role)

		c.Next()
	}
}
