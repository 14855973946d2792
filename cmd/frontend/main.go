package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"resty.dev/v3"

	"github.com/DEFRA/ai-defra-search-frontend-sub000/internal/api"
	"github.com/DEFRA/ai-defra-search-frontend-sub000/internal/cache"
	"github.com/DEFRA/ai-defra-search-frontend-sub000/internal/chatclient"
	"github.com/DEFRA/ai-defra-search-frontend-sub000/internal/config"
	"github.com/DEFRA/ai-defra-search-frontend-sub000/internal/reconcile"
	"github.com/DEFRA/ai-defra-search-frontend-sub000/internal/render"
	"github.com/DEFRA/ai-defra-search-frontend-sub000/internal/service"
)

var (
	configPath = flag.String("config", "", "Path to config file")
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Initialize conversation cache
	conversationCache, err := newConversationCache(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize conversation cache", zap.Error(err))
	}
	defer conversationCache.Close()

	// Backend chat client. The request timeout only bounds the JSON
	// calls; status stream lifetimes are bounded by the stream strategy.
	restyClient := resty.New()
	defer restyClient.Close()
	backend := chatclient.New(restyClient, cfg.Backend.BaseURL, logger,
		chatclient.WithRequestTimeout(cfg.Backend.Timeout))

	// Reconciliation strategy
	var strategy reconcile.Strategy
	switch cfg.Reconcile.Strategy {
	case "poll":
		strategy = reconcile.NewPollStrategy(backend, cfg.Poll, logger)
	default:
		strategy = reconcile.NewStreamStrategy(backend, backend, cfg.Stream, logger)
	}

	// Services
	chatService := service.NewChatService(
		backend,
		conversationCache,
		render.New(),
		strategy,
		logger,
	)

	// Setup router
	router := api.SetupRouter(chatService, logger, api.RouterConfig{
		APIKey:       cfg.Server.APIKey,
		AllowOrigins: cfg.Server.AllowOrigins,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Address(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Starting assistant frontend",
			zap.String("address", cfg.Address()),
			zap.String("backend", cfg.Backend.BaseURL),
			zap.String("strategy", cfg.Reconcile.Strategy),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func newConversationCache(cfg *config.Config, logger *zap.Logger) (*cache.ConversationCache, error) {
	switch cfg.Cache.Driver {
	case "sqlite":
		store, err := cache.NewSQLiteStore(cfg.Cache.Path)
		if err != nil {
			return nil, err
		}
		return cache.New(store, cfg.Cache.TTL, logger), nil
	default:
		return cache.New(cache.NewMemoryStore(cfg.Cache.SweepInterval), cfg.Cache.TTL, logger), nil
	}
}
