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

	"github.com/Dan9191/credit-scoring/internal/app"
	"github.com/Dan9191/credit-scoring/internal/config"
	"github.com/Dan9191/credit-scoring/internal/handler"
	"github.com/Dan9191/credit-scoring/internal/middleware"
	"github.com/Dan9191/credit-scoring/internal/schedule"
)

func main() {
	// Initialize logger
	logger := app.NewLogger(os.Getenv("LOG_LEVEL"))

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize layers
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize service: %v", err)
	}
	defer a.Close()

	runner, err := schedule.NewRunner(cfg.Sweep.Schedule, a.Service, logger, cfg.Sweep.Timeout)
	if err != nil {
		logger.Fatalf("Failed to create scheduler: %v", err)
	}
	runner.Start()
	defer runner.Stop()

	// Setup router
	h := handler.NewHandler(a.Service, logger)
	r := handler.NewRouter(h, middleware.AuthMiddleware(cfg.JWTSecret))

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	go func() {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Infof("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Graceful shutdown failed: %v", err)
	}
}
