package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/do"
	"go.uber.org/zap"

	"github.com/mohammadhprp/windowlimit/internal/config"
	"github.com/mohammadhprp/windowlimit/internal/container"
	"github.com/mohammadhprp/windowlimit/internal/storage"
	"github.com/mohammadhprp/windowlimit/internal/transport"
)

func main() {
	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	injector := container.New(cfg)

	logger, err := do.Invoke[*zap.Logger](injector)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting distributed rate limiter server",
		zap.String("version", "1.0.0"),
		zap.String("store", cfg.Store.Backend),
		zap.Int("limiters", len(cfg.Limiters)),
	)

	httpServer, err := do.Invoke[*transport.HTTPServer](injector)
	if err != nil {
		logger.Fatal("Failed to initialize HTTP server", zap.Error(err))
	}
	grpcServer, err := do.Invoke[*transport.GRPCServer](injector)
	if err != nil {
		logger.Fatal("Failed to initialize gRPC server", zap.Error(err))
	}

	servers := []transport.Server{httpServer, grpcServer}
	ctx := context.Background()
	for _, srv := range servers {
		if err := srv.Start(ctx); err != nil {
			logger.Fatal("Failed to start server", zap.String("address", srv.Addr()), zap.Error(err))
		}
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, srv := range servers {
		if err := srv.Stop(shutdownCtx); err != nil {
			logger.Error("Server forced to shutdown", zap.String("address", srv.Addr()), zap.Error(err))
		}
	}

	store := do.MustInvoke[storage.Store](injector)

	if err := injector.Shutdown(); err != nil {
		logger.Error("Service shutdown error", zap.Error(err))
	}

	if err := store.Close(); err != nil {
		logger.Error("Failed to close counter store", zap.Error(err))
	}

	logger.Info("Server stopped")
}
