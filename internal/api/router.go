package api

import (
	"parking_reserve/internal/api/handler"
	"parking_reserve/internal/api/middleware"
	"parking_reserve/internal/service"

	"github.com/gin-gonic/gin"
)

func SetupRouter(
	as *service.AuthService,
	es *service.EstablishmentService,
	rs *service.ReservationService,
	ns *service.NotificationService,
	authMw *middleware.AuthMiddleware,
	wsManager *handler.WebSocketManager,
) *gin.Engine {
	r := gin.Default()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// WebSocket endpoint (no auth required for the real-time connection)
	wsHandler := handler.NewWebSocketHandler(wsManager)
	r.GET("/ws", wsHandler.HandleWebSocket)

	authHandler := handler.NewAuthHandler(as)
	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
	}

	v1 := r.Group("/api/v1")
	v1.Use(authMw.Authenticate())
	{
		v1.GET("/profile", authHandler.Profile)
		v1.PUT("/profile", authHandler.UpdateProfile)

		estH := handler.NewEstablishmentHandler(es)
		estRoutes := v1.Group("/establishments")
		{
			estRoutes.POST("", authMw.AuthorizeRole("admin"), estH.Create)
			estRoutes.GET("", estH.GetAll)
			estRoutes.GET("/nearby", estH.Nearby)
			estRoutes.GET("/:id", estH.GetByID)
			estRoutes.GET("/:id/availability", estH.Availability)
			estRoutes.PUT("/:id", authMw.AuthorizeRole("admin"), estH.Update)
			estRoutes.DELETE("/:id", authMw.AuthorizeRole("admin"), estH.Delete)
		}

		resH := handler.NewReservationHandler(rs)
		resRoutes := v1.Group("/reservations")
		{
			resRoutes.POST("/select", resH.Select)
			resRoutes.POST("/confirm", resH.Confirm)
			resRoutes.POST("/cancel", resH.Cancel)
			resRoutes.GET("", resH.List)
		}

		notifH := handler.NewNotificationHandler(ns)
		notifRoutes := v1.Group("/notifications")
		{
			notifRoutes.GET("", notifH.List)
			notifRoutes.GET("/unread-count", notifH.UnreadCount)
			notifRoutes.POST("/:id/read", notifH.MarkRead)
		}
	}
	return r
}
