package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/pongarena/backend/internal/api/handlers"
	"github.com/pongarena/backend/internal/ws"
)

// SetupRoutes wires the REST and WebSocket surface onto the router.
func SetupRoutes(router *gin.Engine, deps *ws.Deps, rdb *redis.Client) {
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{deps.Cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck(deps.DB, rdb, deps.Registry))

		auth := v1.Group("/auth")
		{
			auth.POST("/register", handlers.Register(deps.DB, deps.Cfg))
			auth.POST("/login", handlers.Login(deps.DB, deps.Cfg))
		}

		authed := v1.Group("")
		authed.Use(handlers.AuthRequired(deps.Cfg))
		{
			authed.GET("/profile", handlers.GetProfile(deps.DB))
			authed.PUT("/profile/preferences", handlers.UpdatePreferences(deps.DB))
			authed.GET("/games/:game_id", handlers.GetGame(deps.DB))
			authed.GET("/notifications", handlers.ListNotifications(deps.DB))
			authed.POST("/notifications/read", handlers.MarkNotificationsRead(deps.DB))
		}
	}

	router.GET("/ws/matchmaking", ws.ServeMatchmaking(deps))
	router.GET("/ws/game/:game_id", ws.ServeGame(deps))
	router.GET("/ws/invitations", ws.ServeInvitations(deps))
}
