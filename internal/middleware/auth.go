package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AyanAhmedKhan/careerly-backend/internal/database"
	"github.com/AyanAhmedKhan/careerly-backend/internal/models"
	"github.com/AyanAhmedKhan/careerly-backend/pkg/errors"
	"github.com/AyanAhmedKhan/careerly-backend/pkg/utils"
)

func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Error(errors.Unauthorized("Authorization header required"))
			c.Abort()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.Error(errors.Unauthorized("Invalid authorization header format"))
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(parts[1])
		if err != nil {
			c.Error(errors.Unauthorized("Invalid or expired token"))
			c.Abort()
			return
		}

		// The token may outlive the account.
		var user models.User
		if err := database.DB.Select("id").First(&user, "id = ?", claims.UserID).Error; err != nil {
			c.Error(errors.Unauthorized("User not found or inactive"))
			c.Abort()
			return
		}

		c.Set("userId", claims.UserID)
		c.Next()
	}
}
