package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Roles that carry the store-management capability required to export
// coupons.
const (
	RoleAdmin        = "admin"
	RoleStoreManager = "store_manager"
)

// AuthMiddleware reads identity headers injected by the API gateway.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		role := c.GetHeader("X-User-Role")

		// Fallback to cookies (set by API gateway) if headers missing
		if userID == "" {
			if v, err := c.Cookie("user_id"); err == nil && v != "" {
				userID = v
			}
		}
		if role == "" {
			if v, err := c.Cookie("user_role"); err == nil && v != "" {
				role = v
			}
		}

		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		c.Set("userID", userID)
		c.Set("role", role)
		c.Next()
	}
}

// RequireStoreManager restricts access to users who may manage the
// store's coupons.
func RequireStoreManager() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, exists := c.Get("role")
		if !exists || (role != RoleAdmin && role != RoleStoreManager) {
			c.JSON(http.StatusForbidden, gin.H{"error": "You do not have sufficient permissions to export coupons."})
			c.Abort()
			return
		}
		c.Next()
	}
}
