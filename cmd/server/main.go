package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/whatthedob/whatthedob-backend/config"
	"github.com/whatthedob/whatthedob-backend/internal/app/controller"
	"github.com/whatthedob/whatthedob-backend/internal/app/repository"
	"github.com/whatthedob/whatthedob-backend/internal/app/service"
	"github.com/whatthedob/whatthedob-backend/internal/db"
	"github.com/whatthedob/whatthedob-backend/internal/middleware"
	"github.com/whatthedob/whatthedob-backend/internal/router"
	"github.com/whatthedob/whatthedob-backend/internal/scheduler"
	"github.com/whatthedob/whatthedob-backend/internal/scraper"
	"github.com/whatthedob/whatthedob-backend/internal/storage"
	ws "github.com/whatthedob/whatthedob-backend/internal/websocket"
	"github.com/whatthedob/whatthedob-backend/pkg/logger"
	"github.com/whatthedob/whatthedob-backend/pkg/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := cfg.Log.Level
	if logLevel == "" {
		logLevel = "info"
		if cfg.Server.Environment == "development" {
			logLevel = "debug"
		}
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      cfg.Log.Format,
		EnableColor: cfg.Log.Format == "console",
	})

	logger.Info("Starting WhatTheDob Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	// Run migrations
	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Seed default campus and meals (optional)
	if err := db.Seed(&cfg.MenuFetch); err != nil {
		logger.Warn("Failed to seed database", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Filter cache is optional; without Redis every read goes to the database
	var cache service.Cache
	if cfg.Redis.Enabled() {
		if err := redis.Init(&cfg.Redis); err != nil {
			logger.Warn("Redis unavailable, filter cache disabled", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			defer redis.Close()
			cache = redis.NewCache(redis.GetClient())
		}
	}

	// Raw page archive
	var archive service.PageArchive
	if cfg.S3.Enabled() {
		archive = storage.NewS3Storage(
			cfg.S3.Region,
			cfg.S3.Bucket,
			cfg.S3.AccessKeyID,
			cfg.S3.SecretAccessKey,
			cfg.S3.BaseURL,
		)
		logger.Info("Menu page archive enabled", map[string]interface{}{
			"bucket": cfg.S3.Bucket,
		})
	}

	// Live rating updates
	hub := ws.NewHub()
	go hub.Run()
	defer hub.Stop()

	// Initialize repositories
	referenceRepo := repository.NewReferenceRepository(db.GetDB())
	menuRepo := repository.NewMenuRepository(db.GetDB(), referenceRepo)
	menuQueryRepo := repository.NewMenuQueryRepository(db.GetDB())
	ratingRepo := repository.NewRatingRepository(db.GetDB())

	// Initialize services
	menuService := service.NewMenuService(menuRepo, menuQueryRepo, cache, cfg.Cache.FilterTTL)
	ratingService := service.NewRatingService(ratingRepo, hub)

	menuClient, err := scraper.NewClient(scraper.Config{
		URL:     cfg.MenuFetch.APIURL,
		Timeout: cfg.MenuFetch.HTTPTimeout,
	})
	if err != nil {
		logger.Fatal("Failed to create menu site client", err)
	}
	fetchService := service.NewMenuFetchService(menuClient, menuService, archive, service.FetchOptions{
		DaysToFetch:    cfg.MenuFetch.DaysToFetch,
		Meals:          cfg.MenuFetch.Meals,
		SelectedCampus: cfg.MenuFetch.SelectedCampus,
		Concurrency:    cfg.MenuFetch.Concurrency,
	})

	// Daily fetch
	if cfg.MenuFetch.Enabled {
		menuScheduler := scheduler.NewMenuScheduler(fetchService, cfg.MenuFetch.CronSpec, cfg.MenuFetch.DaysOffset)
		if err := menuScheduler.Start(); err != nil {
			logger.Fatal("Failed to start menu scheduler", err)
		}
		defer menuScheduler.Stop()
	}

	// Initialize controllers
	menuController := controller.NewMenuController(menuService, ratingService)
	ratingStreamController := controller.NewRatingStreamController(hub, cfg.CORS.AllowedOrigins)
	adminController := controller.NewAdminController(menuService, fetchService)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	sessionMiddleware := middleware.NewSessionMiddleware(cfg.SessionCookie.CookieKey, cfg.SessionCookie.DaysToExpire)

	// Setup router
	r := router.NewRouter(
		menuController,
		ratingStreamController,
		adminController,
		authMiddleware,
		sessionMiddleware,
		cfg,
	)
	engine := r.Setup()

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: engine,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}

	logger.Info("Server stopped successfully")
}
