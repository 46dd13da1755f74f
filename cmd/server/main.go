package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/garyjia/expense-reimbursement/internal/config"
	"github.com/garyjia/expense-reimbursement/internal/container"
	httpserver "github.com/garyjia/expense-reimbursement/internal/interfaces/http"
	"github.com/garyjia/expense-reimbursement/pkg/utils"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting expense reimbursement service",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port),
		zap.Strings("notification_channels", cfg.Notification.Channels))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := container.NewContainer(cfg.ToContainerConfig(), logger)
	if err != nil {
		logger.Fatal("Failed to create container", zap.Error(err))
	}
	if err := c.Start(ctx); err != nil {
		logger.Fatal("Failed to start container", zap.Error(err))
	}

	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, httpserver.DependenciesFrom(c), container.NewLoggerAdapter(logger))

	// Start blocks until a signal arrives, then drains requests within ShutdownTimeout
	if err := server.Start(ctx); err != nil {
		logger.Error("HTTP server stopped unexpectedly", zap.Error(err))
	}

	logger.Info("Shutting down...")
	if err := c.Close(); err != nil {
		logger.Error("Failed to close container", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}
