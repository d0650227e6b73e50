package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vertextoedge/mirror-bot/internal/adapter/filesystem"
	"github.com/vertextoedge/mirror-bot/internal/adapter/httpengine"
	"github.com/vertextoedge/mirror-bot/internal/adapter/sqlite"
	"github.com/vertextoedge/mirror-bot/internal/adapter/telegram"
	"github.com/vertextoedge/mirror-bot/internal/config"
	"github.com/vertextoedge/mirror-bot/internal/logger"
	"github.com/vertextoedge/mirror-bot/internal/metrics"
	"github.com/vertextoedge/mirror-bot/internal/service/maintenance"
	"github.com/vertextoedge/mirror-bot/internal/service/mirror"
	"github.com/vertextoedge/mirror-bot/internal/service/server"
	"github.com/vertextoedge/mirror-bot/internal/util/ratelimiter"
	"go.uber.org/zap"
)

const version = "0.1.0"

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file (environment only when empty)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	zapLogger := logger.GetZapLogger()
	zapLogger.Info("starting mirror-bot",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	// Initialize download root
	fsManager, err := filesystem.NewManagerWithBufferSize(cfg.Download.RootDir, cfg.Download.GetBufferSize())
	if err != nil {
		zapLogger.Fatal("failed to create download root", zap.Error(err))
	}

	// Open history database
	store, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		zapLogger.Fatal("failed to open database", zap.Error(err), zap.String("path", cfg.Database.Path))
	}
	defer store.Close()

	promMetrics := metrics.New("mirror", prometheus.DefaultRegisterer)

	// The bot needs its dispatcher before the handler, which needs the bot, exists
	var handler *telegram.Handler
	b, err := telegram.NewBot(telegram.BotConfig{
		Token:       cfg.Telegram.Token,
		APIURL:      cfg.Telegram.APIURL,
		PollTimeout: cfg.Telegram.GetPollTimeout(),
	}, func(ctx context.Context, b *bot.Bot, update *models.Update) {
		handler.HandleUpdate(ctx, b, update)
	}, logger.Named("telegram"))
	if err != nil {
		zapLogger.Fatal("failed to create telegram bot", zap.Error(err))
	}

	engines := httpengine.NewFactory(&httpengine.Config{
		Timeout:   cfg.Download.GetHTTPTimeout(),
		UserAgent: cfg.Download.UserAgent,
	}, logger.Named("httpengine"))

	transferer := telegram.NewTransferer(b, fsManager, &http.Client{Timeout: cfg.Download.GetHTTPTimeout()}, logger.Named("attachment"))

	coordinator := mirror.NewCoordinator(&mirror.Config{
		DefaultFileName:        cfg.Download.DefaultFileName,
		FinishedStr:            cfg.Progress.FinishedStr,
		UnfinishedStr:          cfg.Progress.UnfinishedStr,
		EditSleepTimeout:       cfg.Download.EditSleepTimeout,
		SampleInterval:         cfg.Download.GetSampleInterval(),
		AttachmentEditInterval: cfg.Download.GetAttachmentEditInterval(),
	}, engines, transferer, fsManager, logger.Named("coordinator"))

	mirrorService := mirror.NewService(coordinator, store, promMetrics, logger.Named("mirror"))

	handler = telegram.NewHandler(telegram.HandlerConfig{
		AllowChat: cfg.Telegram.IsChatAllowed,
		PublicURL: cfg.Download.PublicURL,
	}, b, mirrorService, ratelimiter.New(cfg.Download.GetEditMinInterval()), logger.Named("handler"))

	maintenanceService := maintenance.New(&maintenance.Config{
		CleanupInterval: cfg.Maintenance.GetCleanupInterval(),
		TempFileMaxAge:  cfg.Maintenance.GetTempFileMaxAge(),
		HistoryMaxAge:   cfg.Maintenance.GetHistoryMaxAge(),
	}, store, fsManager, logger.Named("maintenance"))

	// Create context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var httpServer *server.Server
	if cfg.HTTP.Enabled {
		httpServer = server.New(&server.Config{
			BindAddr:      cfg.HTTP.BindAddr,
			AdminUsername: cfg.HTTP.AdminUsername,
			AdminPassword: cfg.HTTP.AdminPassword,
			ReadTimeout:   cfg.HTTP.GetReadTimeout(),
			WriteTimeout:  cfg.HTTP.GetWriteTimeout(),
			IdleTimeout:   cfg.HTTP.GetIdleTimeout(),
		}, store, fsManager, prometheus.DefaultGatherer, logger.Named("server"))

		go func() {
			if err := httpServer.Start(); err != nil {
				zapLogger.Fatal("HTTP server failed", zap.Error(err))
			}
		}()
	}

	// Fail records left running by a previous process before serving commands
	maintenanceService.RecoverInterrupted(ctx)

	// Start maintenance service
	go func() {
		if err := maintenanceService.Start(ctx); err != nil && err != context.Canceled {
			zapLogger.Error("maintenance service stopped with error", zap.Error(err))
		}
	}()

	zapLogger.Info("application started successfully",
		zap.String("download_dir", fsManager.Dir()),
		zap.Bool("http_enabled", cfg.HTTP.Enabled),
		zap.String("http_addr", cfg.HTTP.BindAddr),
	)

	// Blocks until the shutdown signal, then waits for running downloads
	telegram.Run(ctx, b, handler, logger.Named("telegram"))

	zapLogger.Info("shutdown signal received, stopping services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	maintenanceService.Stop()

	if httpServer != nil {
		if err := httpServer.Stop(shutdownCtx); err != nil {
			zapLogger.Error("failed to stop HTTP server gracefully", zap.Error(err))
		}
	}

	zapLogger.Info("application stopped successfully")
}
