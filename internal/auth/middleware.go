package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"docflow/review-portal/review-portal-backend/internal/workflow"
)

// Middleware verifies the Bearer token on each request and stores the
// authenticated user on the gin context under "user", where the
// workflow and document handlers expect to find it.
func Middleware(service Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}
		claims, err := service.VerifyAccessToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set("user", workflow.User{
			ID:    claims.Subject,
			Email: claims.Email,
			Name:  claims.Name,
			Roles: claims.Roles,
		})
		c.Next()
	}
}

// RequireRole gates a route group to users holding at least one of the
// given roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := workflow.CurrentUser(c)
		for _, role := range roles {
			if user.HasRole(role) {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
	}
}
