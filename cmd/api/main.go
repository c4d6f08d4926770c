package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gemstore/internal/acquiring"
	"gemstore/internal/config"
	"gemstore/internal/database"
	"gemstore/internal/delivery"
	"gemstore/internal/handler"
	"gemstore/internal/notify"
	"gemstore/internal/receipt"
	"gemstore/internal/repository"
	"gemstore/internal/router"
	"gemstore/internal/service"

	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Local development convenience; missing .env is not an error.
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Logger)
	logger.Info().Msg("starting gemstore order API server")

	// Create context for application lifecycle
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database connection pool
	pool, err := database.NewPool(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer pool.Close()

	// Initialize repositories
	orderRepo := repository.NewOrderRepository(pool, logger)
	itemRepo := repository.NewItemRepository(pool, logger)
	promoRepo := repository.NewPromotionalRepository(pool, logger)
	deliveryRepo := repository.NewDeliveryRepository(pool, logger)
	acquiringRepo := repository.NewAcquiringRepository(pool, logger)

	// Initialize delivery adapters; each provider is optional and
	// enabled by its base URL.
	deliveryTimeout := time.Duration(cfg.Delivery.TimeoutSeconds) * time.Second
	var adapters []delivery.Adapter
	var lockerClient *delivery.LockerClient

	if cfg.Delivery.PlatformBaseURL != "" {
		adapters = append(adapters, delivery.NewPlatformClient(delivery.PlatformConfig{
			BaseURL: cfg.Delivery.PlatformBaseURL,
			Token:   cfg.Delivery.PlatformToken,
			Timeout: deliveryTimeout,
		}, logger))
	}
	if cfg.Delivery.LockerBaseURL != "" {
		lockerClient = delivery.NewLockerClient(delivery.LockerConfig{
			BaseURL:      cfg.Delivery.LockerBaseURL,
			ClientID:     cfg.Delivery.LockerClientID,
			ClientSecret: cfg.Delivery.LockerClientSecret,
			Timeout:      deliveryTimeout,
		}, logger)
		adapters = append(adapters, lockerClient)
	}
	if cfg.Delivery.PostalBaseURL != "" {
		adapters = append(adapters, delivery.NewPostalClient(delivery.PostalConfig{
			BaseURL:     cfg.Delivery.PostalBaseURL,
			AccessToken: cfg.Delivery.PostalAccessToken,
			FromIndex:   cfg.Delivery.PostalFromIndex,
			Timeout:     deliveryTimeout,
		}, logger))
	}
	registry := delivery.NewRegistry(adapters...)

	// Initialize the notification client
	var notifier notify.Notifier = notify.Noop{}
	if cfg.Notify.BaseURL != "" {
		notifier = notify.NewHTTPNotifier(cfg.Notify.BaseURL, time.Duration(cfg.Notify.TimeoutSeconds)*time.Second, logger)
	}

	// Initialize the optional fiscal-receipt integration
	var receipts receipt.Issuer
	if cfg.Receipt.BaseURL != "" {
		var archiver receipt.Archiver
		if cfg.Receipt.ArchiveEnabled {
			archiver, err = receipt.NewS3Archiver(ctx, cfg.Receipt.ArchiveBucket, cfg.Receipt.ArchiveRegion, cfg.Receipt.ArchivePrefix, logger)
			if err != nil {
				logger.Warn().Err(err).Msg("failed to initialise receipt archiver, continuing without archiving")
			}
		}
		receipts = receipt.NewService(receipt.ServiceConfig{
			BaseURL: cfg.Receipt.BaseURL,
			APIKey:  cfg.Receipt.APIKey,
			Timeout: time.Duration(cfg.Receipt.TimeoutSeconds) * time.Second,
		}, orderRepo, archiver, logger)
	}

	// Initialize the acquiring gateway
	processor := acquiring.NewClient(acquiring.ClientConfig{
		BaseURL:     cfg.Acquiring.BaseURL,
		TerminalKey: cfg.Acquiring.TerminalKey,
		SuccessURL:  cfg.Acquiring.SuccessURL,
		FailURL:     cfg.Acquiring.FailURL,
		Timeout:     time.Duration(cfg.Acquiring.TimeoutSeconds) * time.Second,
	}, logger)
	gateway := acquiring.NewGateway(processor, acquiringRepo, orderRepo, receipts, notifier, logger)

	// Initialize services
	orderService := service.NewOrderService(orderRepo, itemRepo, promoRepo, deliveryRepo, registry, gateway, notifier, logger)
	deliveryService := service.NewDeliveryService(registry, deliveryRepo, orderRepo, notifier, logger)

	// Initialize HTTP handlers
	orderHandler := handler.NewOrderHandler(orderService, logger)
	deliveryHandler := handler.NewDeliveryHandler(deliveryService, lockerClient, logger)
	webhookHandler := handler.NewWebhookHandler(gateway, deliveryService, logger)

	// Initialize router
	mux := router.New(cfg, orderHandler, deliveryHandler, webhookHandler, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Channel to listen for errors from the server
	serverErrors := make(chan error, 1)

	// Start HTTP server in a goroutine
	go func() {
		logger.Info().
			Str("address", cfg.Server.Address()).
			Msg("HTTP server started")
		serverErrors <- server.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info().
			Str("signal", sig.String()).
			Msg("shutdown signal received, starting graceful shutdown")

		// Create a context with timeout for shutdown
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Attempt graceful shutdown
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("failed to shutdown server gracefully")
			// Force close
			if closeErr := server.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close server")
			}
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		logger.Info().Msg("server shutdown completed")
	}

	return nil
}
