package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/AyanAhmedKhan/careerly-backend/internal/handlers"
	"github.com/AyanAhmedKhan/careerly-backend/internal/middleware"
)

func RegisterUserRoutes(r gin.IRouter) {
	users := r.Group("/users")
	users.Use(middleware.AuthMiddleware())
	{
		users.GET("/contacts", handlers.GetContacts)
		users.GET("/:id", handlers.GetUser)
	}
}
