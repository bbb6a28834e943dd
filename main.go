package main

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/wanjiru/duka-backend/auth"
	"github.com/wanjiru/duka-backend/config"
	"github.com/wanjiru/duka-backend/database"
	"github.com/wanjiru/duka-backend/handlers"
	"github.com/wanjiru/duka-backend/services"
)

func main() {
	if err := config.Load(); err != nil {
		log.Fatal("Failed to load configuration:", err)
	}
	cfg := config.AppConfig

	var logger *zap.Logger
	var err error
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatal("Failed to build logger:", err)
	}
	defer logger.Sync()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	resolver, err := auth.NewOIDCResolver(context.Background(), cfg.GoogleClientID)
	if err != nil {
		logger.Fatal("failed to initialise oidc", zap.Error(err))
	}

	srv := &handlers.Server{
		DB:        db,
		Log:       logger,
		Resolver:  resolver,
		Notifier:  services.NewNotifier(cfg, logger),
		Exchanger: auth.NewGoogleExchanger(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURI),
	}
	router := handlers.SetupRouter(srv)

	handler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(router)

	logger.Info("listening", zap.String("port", cfg.ServerPort))
	if err := http.ListenAndServe(":"+cfg.ServerPort, handler); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
