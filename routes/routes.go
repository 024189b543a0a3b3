package routes

import (
	"net/http"

	"clinic-chat/config"
	"clinic-chat/controllers"
	"clinic-chat/middlewares"
	"clinic-chat/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes builds the relay's HTTP surface.
func RegisterRoutes(cfg *config.Config, repo services.MessageRepository, hub *services.WSManager) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middlewares.RequestLogger())

	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
		corsConfig.AllowCredentials = true
	}
	corsConfig.AddAllowHeaders("Authorization")
	r.Use(cors.New(corsConfig))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "node": hub.Node(), "connections": hub.Connected()})
	})

	auth := middlewares.TokenAuthMiddleware(cfg.JWTSecret)
	r.GET("/ws", auth, controllers.WSController(hub))

	mc := controllers.NewMessageController(repo)
	messages := r.Group("/api/messages", auth)
	{
		messages.GET("/history", mc.GetHistory)
		messages.GET("/doctor-chat", mc.GetDoctorChat)
		messages.GET("/conversations", mc.GetConversations)
		messages.POST("/register", mc.RegisterMessage)
	}

	return r
}
