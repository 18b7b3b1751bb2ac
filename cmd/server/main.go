package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/householdledger/server/internal/api"
	"github.com/householdledger/server/internal/config"
	"github.com/householdledger/server/internal/service"
	"github.com/householdledger/server/internal/utils"
)

func main() {
	// Load .env file for local development
	config.LoadEnvFile()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		utils.NewLogger("server", utils.ParseLevel("")).Error("invalid configuration", utils.FieldError, err)
		os.Exit(1)
	}

	logger := utils.NewLogger("server", utils.ParseLevel(cfg.Log.Level))

	// Set up database connection and schema
	ctx := context.Background()
	repo, err := config.SetupDatabase(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to set up database", utils.FieldError, err)
		os.Exit(1)
	}
	defer repo.Close()

	// Create service
	svc := service.NewDefaultService(repo, cfg.Auth.JWTSecret)

	// Set up Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	api.NewHandler(svc, cfg.Auth.JWTSecret, logger).SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to start server", utils.FieldError, err)
			os.Exit(1)
		}
	}()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("shutdown signal received", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", utils.FieldError, err)
	}
	logger.Info("server stopped")
}
