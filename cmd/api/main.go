package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vantage-media/quote-api/docs"
	"github.com/vantage-media/quote-api/internal/auth"
	"github.com/vantage-media/quote-api/internal/config"
	"github.com/vantage-media/quote-api/internal/database"
	"github.com/vantage-media/quote-api/internal/http/handler"
	"github.com/vantage-media/quote-api/internal/http/middleware"
	"github.com/vantage-media/quote-api/internal/http/router"
	"github.com/vantage-media/quote-api/internal/jobs"
	"github.com/vantage-media/quote-api/internal/logger"
	"github.com/vantage-media/quote-api/internal/ratesource"
	"github.com/vantage-media/quote-api/internal/repository"
	"github.com/vantage-media/quote-api/internal/service"
	"github.com/vantage-media/quote-api/internal/storage"
	"go.uber.org/zap"
)

// @title Vantage Quote API
// @version 1.0
// @description Sales quote approval, free-goods reconciliation and purchase fan-out API

// @contact.name API Support
// @contact.email support@vantage-media.eu

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token
// @Security BearerAuth

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load basic configuration first (for logging setup)
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	// Configure Swagger host based on environment
	switch basicCfg.App.Environment {
	case "staging":
		docs.SwaggerInfo.Host = "quote-api-staging.vantage-media.eu"
	case "production":
		docs.SwaggerInfo.Host = "quote-api.vantage-media.eu"
	default:
		docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)
	}

	// Load full configuration with secrets
	// In development: uses environment variables
	// In staging/production: fetches from Azure Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	fileStorage, err := storage.NewStorage(&cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	// Initialize finance rate source (optional, read-only). The app continues
	// without it: conversions then rely on already-stored rates.
	var rateSource *ratesource.Client
	if cfg.RateSource.Enabled {
		rateSource, err = ratesource.NewClient(&cfg.RateSource, log)
		if err != nil {
			log.Warn("Rate source connection failed, continuing without it",
				zap.Error(err),
			)
		}
	} else {
		log.Info("Rate source not configured, skipping")
	}

	// Initialize repositories
	quoteRepo := repository.NewQuoteRepository(db)
	quoteLineRepo := repository.NewQuoteLineRepository(db)
	vendorRepo := repository.NewVendorRepository(db)
	supportRepo := repository.NewVendorSupportRepository(db)
	productRepo := repository.NewProductRepository(db)
	supplierInfoRepo := repository.NewSupplierInfoRepository(db)
	commitmentRepo := repository.NewPurchaseCommitmentRepository(db)
	rateRepo := repository.NewExchangeRateRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	fileRepo := repository.NewFileRepository(db)
	sequenceRepo := repository.NewNumberSequenceRepository(db)

	// Initialize services
	activityService := service.NewActivityService(activityRepo, log)
	currencyService := service.NewCurrencyService(rateRepo, log)
	catalogService := service.NewCatalogService(productRepo, supplierInfoRepo, supportRepo, log)
	freeGoodsService := service.NewFreeGoodsService(quoteLineRepo, catalogService, cfg.Approval.FreeQtyPrecision, log)
	minBuyService := service.NewMinimumBuyService(currencyService, log)
	purchaseService := service.NewPurchaseService(commitmentRepo, vendorRepo, catalogService, currencyService, activityService, log)
	quoteService := service.NewQuoteService(
		quoteRepo, quoteLineRepo, productRepo, supportRepo, fileRepo, sequenceRepo,
		catalogService, freeGoodsService, minBuyService, activityService,
		fileStorage, cfg.Approval, log,
	)
	lifecycleService := service.NewQuoteLifecycleService(quoteRepo, minBuyService, purchaseService, activityService, log)
	vendorService := service.NewVendorService(vendorRepo, supportRepo, log)
	supportService := service.NewVendorSupportService(supportRepo, vendorRepo, activityService, log)
	productService := service.NewProductService(productRepo, supplierInfoRepo, catalogService, log)

	// Initialize middleware
	authMiddleware := auth.NewMiddleware(cfg, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	// Initialize handlers
	quoteHandler := handler.NewQuoteHandler(quoteService, lifecycleService, purchaseService, log, int(cfg.Storage.MaxUploadSizeMB))
	vendorHandler := handler.NewVendorHandler(vendorService, log)
	supportHandler := handler.NewVendorSupportHandler(supportService, log)
	productHandler := handler.NewProductHandler(productService, log)
	purchaseHandler := handler.NewPurchaseHandler(purchaseService, log)

	// Setup router
	rt := router.NewRouter(
		cfg,
		log,
		db,
		rateSource,
		authMiddleware,
		rateLimiter,
		quoteHandler,
		vendorHandler,
		supportHandler,
		productHandler,
		purchaseHandler,
	)

	// Initialize and start scheduler for background jobs
	var scheduler *jobs.Scheduler
	if cfg.Jobs.RateRefreshEnabled && rateSource.IsEnabled() {
		scheduler = jobs.NewScheduler(log)

		if err := jobs.RegisterRateRefreshJob(
			scheduler,
			rateSource,
			rateRepo,
			log,
			cfg.Jobs.RateRefreshCron,
			cfg.Jobs.RateRefreshTimeoutDuration(),
			true, // catch up immediately on startup
		); err != nil {
			log.Error("Failed to register rate refresh job", zap.Error(err))
		} else {
			scheduler.Start()
			log.Info("Scheduler started with rate refresh job",
				zap.String("cron_expr", cfg.Jobs.RateRefreshCron),
				zap.Duration("timeout", cfg.Jobs.RateRefreshTimeoutDuration()),
			)
		}
	} else {
		log.Info("Rate refresh disabled",
			zap.Bool("job_enabled", cfg.Jobs.RateRefreshEnabled),
			zap.Bool("rate_source_available", rateSource.IsEnabled()),
		)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	// Start server in goroutine
	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	// Wait for interrupt signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		if scheduler != nil {
			ctx := scheduler.Stop()
			<-ctx.Done()
			log.Info("Scheduler stopped")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		if err := rateSource.Close(); err != nil {
			log.Warn("Error closing rate source connection", zap.Error(err))
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
