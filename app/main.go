package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/feedhive/feedhive/app/api"
	"github.com/feedhive/feedhive/app/cache"
	"github.com/feedhive/feedhive/app/cfg"
	"github.com/feedhive/feedhive/app/comments"
	"github.com/feedhive/feedhive/app/database"
	"github.com/feedhive/feedhive/app/discovery"
	"github.com/feedhive/feedhive/app/feed"
	"github.com/feedhive/feedhive/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	slog.Info("Starting FeedHive", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBHost, appCfg.DBPort, appCfg.DBUser,
		appCfg.DBPassword, appCfg.DBName)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "schema_version", version, "dirty", dirty)

	var feedCache cache.CacheInterface
	if appCfg.RedisAddr != "" {
		redisCache, err := cache.NewCache(appCfg.RedisAddr)
		if err != nil {
			slog.Error("Failed to connect to Redis", "addr", appCfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		defer redisCache.Close()
		feedCache = redisCache
	} else {
		slog.Info("Redis not configured, feed caching disabled")
	}

	configCache := feed.NewConfigCache(appCfg.FeedsDir)
	if err := configCache.Run(); err != nil {
		slog.Error("Failed to load feed configurations", "dir", appCfg.FeedsDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Feed configurations loaded", "count", configCache.GetConfigCount())

	feedRepo := database.NewFeedRepository(db)
	itemRepo := database.NewItemRepository(db)

	httpClient := &http.Client{Timeout: 60 * time.Second}
	parser := feed.NewParser()
	filterer := feed.NewFilterer()
	contentExtractor := feed.NewContentExtractor()

	commentsRegistry := comments.NewRegistry()
	commentsRegistry.Register(comments.NewCommentsElementExtractor())
	commentsRegistry.Register(comments.NewWfwCommentExtractor())
	commentsRegistry.Register(comments.NewJSONFeedExtractor())
	commentsRegistry.Register(comments.NewDiscussionHostExtractor())

	discoveryTimeout := time.Duration(appCfg.DiscoveryTimeout) * time.Second
	telemetry := discovery.SlogTelemetry{}
	validator := discovery.NewHTTPValidator(httpClient, appCfg.UserAgent, discoveryTimeout)

	var lookupCache discovery.LookupCache
	if feedCache != nil {
		lookupCache = feedCache
	}

	discoveryRegistry := discovery.NewRegistry(telemetry)
	discoveryRegistry.Register(discovery.NewApplePodcastsService(httpClient, validator, telemetry,
		lookupCache, appCfg.ItunesLookupUrl, discoveryTimeout))
	discoveryRegistry.Register(discovery.NewAutodiscoveryService(httpClient, validator, telemetry,
		appCfg.UserAgent, discoveryTimeout))

	scheduler := tasks.NewScheduler(configCache, feedRepo, itemRepo, httpClient, parser,
		filterer, commentsRegistry, contentExtractor, feedCache)
	scheduler.Start()
	defer scheduler.Stop()
	slog.Info("Scheduler started", "workers", appCfg.WorkerCount, "interval", appCfg.SchedulerInterval)

	handler := api.NewHandler(configCache, feedRepo, itemRepo, filterer, scheduler,
		discoveryRegistry, feedCache)
	server := api.NewServer(handler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("HTTP server error", "error", err)
	}

	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}
