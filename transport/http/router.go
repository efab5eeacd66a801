package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lockstitch/courier/service"
)

// SetupRouter sets up the Gin router.
func SetupRouter(authService *service.AuthService, messageService *service.MessageService) *gin.Engine {
	router := gin.Default()

	authHandlers := NewAuthHandlers(authService)
	messageHandlers := NewMessageHandlers(messageService)

	// Auth routes
	auth := router.Group("/auth")
	{
		auth.POST("/register", authHandlers.Register)
		auth.POST("/login", authHandlers.Login)
		auth.POST("/refresh", authHandlers.Refresh)
		auth.POST("/logout", authHandlers.Logout)
	}

	// Protected API routes
	api := router.Group("/api")
	api.Use(AuthMiddleware(authService))
	{
		api.GET("/me", authHandlers.Me)
		api.POST("/messages", messageHandlers.Accept)
		api.GET("/messages", messageHandlers.Inbox)
		api.DELETE("/messages/:id", messageHandlers.Ack)
	}

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
