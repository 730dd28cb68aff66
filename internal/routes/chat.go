package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/AyanAhmedKhan/careerly-backend/internal/handlers"
	"github.com/AyanAhmedKhan/careerly-backend/internal/middleware"
)

func RegisterChatRoutes(r gin.IRouter) {
	chat := r.Group("/chat")
	chat.Use(middleware.AuthMiddleware())
	{
		chat.GET("/conversations", handlers.GetConversations)
		chat.POST("/conversations", handlers.CreateConversation)
		chat.GET("/conversations/:id/messages", handlers.GetConversationMessages)
		chat.GET("/online", handlers.GetOnlineUsers)
	}
}
