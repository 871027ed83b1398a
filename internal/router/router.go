package router

import (
	"github.com/gin-gonic/gin"
	"github.com/whatthedob/whatthedob-backend/config"
	"github.com/whatthedob/whatthedob-backend/internal/app/controller"
	"github.com/whatthedob/whatthedob-backend/internal/middleware"
)

type Router struct {
	menuController         *controller.MenuController
	ratingStreamController *controller.RatingStreamController
	adminController        *controller.AdminController
	authMiddleware         *middleware.AuthMiddleware
	sessionMiddleware      *middleware.SessionMiddleware
	config                 *config.Config
}

func NewRouter(
	menuController *controller.MenuController,
	ratingStreamController *controller.RatingStreamController,
	adminController *controller.AdminController,
	authMiddleware *middleware.AuthMiddleware,
	sessionMiddleware *middleware.SessionMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		menuController:         menuController,
		ratingStreamController: ratingStreamController,
		adminController:        adminController,
		authMiddleware:         authMiddleware,
		sessionMiddleware:      sessionMiddleware,
		config:                 cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"message": "WhatTheDob API is running",
		})
	})

	v1 := router.Group("/api/v1")
	v1.Use(r.sessionMiddleware.Handle())
	{
		v1.GET("/campuses", r.menuController.GetCampuses)
		v1.GET("/meals", r.menuController.GetMeals)
		v1.GET("/menus", r.menuController.GetMenu)

		ratings := v1.Group("/ratings")
		{
			ratings.GET("", r.menuController.GetItemRating)
			ratings.POST("", r.menuController.SubmitRating)
		}

		v1.GET("/ws/ratings", r.ratingStreamController.Stream)

		admin := v1.Group("/admin")
		admin.Use(
			r.authMiddleware.Authenticate(),
			r.authMiddleware.RequireRole(middleware.RoleAdmin),
		)
		{
			admin.POST("/menus/fetch", r.adminController.FetchMenus)
			admin.POST("/menus/ingest", r.adminController.IngestMenus)
			admin.POST("/filters", r.adminController.UpsertFilters)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
