package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/media-grab-go/api"
	"github.com/yourusername/media-grab-go/internal/app"
	"github.com/yourusername/media-grab-go/internal/infrastructure"
	"github.com/yourusername/media-grab-go/pkg/logger"
)

var configPath = flag.String("config", "", "Path to config file")

func main() {
	flag.Parse()

	config, err := app.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting media-grab server",
		zap.String("version", "1.0.0"),
		zap.String("host", config.Server.Host),
		zap.Int("port", config.Server.Port),
		zap.String("storage_root", config.Storage.Root))

	if err := os.MkdirAll(config.Storage.Root, 0755); err != nil {
		log.Fatal("Failed to create storage root", zap.Error(err))
	}
	if err := os.MkdirAll(filepath.Dir(config.Storage.DatabasePath), 0755); err != nil {
		log.Fatal("Failed to create database directory", zap.Error(err))
	}

	repo, err := infrastructure.NewSQLiteMediaRepository(config.Storage.DatabasePath)
	if err != nil {
		log.Fatal("Failed to initialize repository", zap.Error(err))
	}
	defer repo.Close()

	notifier := infrastructure.NewNotificationService(&config.Notification, log)

	// Cookie strategy is selected once for the process lifetime
	cookies := infrastructure.NewCookieProvider(
		infrastructure.SelectCookieStrategy(config.Cookies), log)

	runner := infrastructure.NewProcessRunner(
		config.Download.MaxAttempts, config.Download.RetryDelay, log)
	post := infrastructure.NewFFmpegPostProcessor(config.Transcode, log)
	janitor := infrastructure.NewJanitor(log)

	downloader := infrastructure.NewYTDLPDownloader(
		config.Download, cookies, runner, post, janitor, log)

	svc := app.NewAcquisitionService(repo, downloader, post, notifier, config.Storage, log)

	router := api.SetupRouter(svc, config.Download.YTDLPBinary, log)

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}
