package main

import (
	"context"
	"errors"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"cryptoTradeDesk/config"
	"cryptoTradeDesk/internal/adapters/binanceclient"
	"cryptoTradeDesk/internal/adapters/logger"
	"cryptoTradeDesk/internal/adapters/sqlite"
	"cryptoTradeDesk/internal/app"
	"cryptoTradeDesk/internal/lifecycle"
	"cryptoTradeDesk/internal/pricing"
	"cryptoTradeDesk/internal/risk"
	"cryptoTradeDesk/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	// 2. Initialize Logger
	appLogger, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.LogDevelopment,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()
	ctx := context.Background()
	appLogger.Info(ctx, "Logger initialized", map[string]interface{}{"level": cfg.LogLevel})

	// 3. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize database repository")
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(ctx, err, "Error closing database repository")
		}
	}()

	// 4. Initialize Exchange Client (Binance Adapter)
	binanceClient, err := binanceclient.New(binanceclient.Config{
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		UseTestnet: cfg.IsTestnet,
		Logger:     appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize Binance client")
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}
	appLogger.Info(ctx, "Binance client initialized", map[string]interface{}{"testnet": cfg.IsTestnet})

	// 5. Core services
	priceLookup, err := pricing.New(binanceClient, cfg.PriceLookupTimeout, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize price lookup")
		log.Fatalf("FATAL: Failed to initialize price lookup: %v", err)
	}

	reconciler, err := app.NewReconciler(binanceClient, priceLookup, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize reconciler")
		log.Fatalf("FATAL: Failed to initialize reconciler: %v", err)
	}

	riskStore, err := risk.NewStore(risk.GlobalSettings{
		MaxRiskPerTrade: cfg.MaxRiskPerTrade,
		MaxPositions:    cfg.MaxPositions,
		DailyLossLimit:  cfg.DailyLossLimit,
		AutoStopLoss:    cfg.AutoStopLoss,
	}, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize risk settings store")
		log.Fatalf("FATAL: Failed to initialize risk settings store: %v", err)
	}

	lifecycleManager, err := lifecycle.NewManager(binanceClient, repo, riskStore, cfg.Runtime, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize trade lifecycle manager")
		log.Fatalf("FATAL: Failed to initialize trade lifecycle manager: %v", err)
	}

	quickExecutor, err := app.NewQuickExecutor(binanceClient, lifecycleManager, appLogger)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize quick executor")
		log.Fatalf("FATAL: Failed to initialize quick executor: %v", err)
	}

	// 6. HTTP transport
	handler, err := server.NewHandler(server.Deps{
		Repo:       repo,
		Lifecycle:  lifecycleManager,
		Reconciler: reconciler,
		Quick:      quickExecutor,
		RiskStore:  riskStore,
		Runtime:    cfg.Runtime,
		Exchange:   binanceClient,
		Logger:     appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize HTTP handler")
		log.Fatalf("FATAL: Failed to initialize HTTP handler: %v", err)
	}

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: handler,
	}

	// 7. Run until interrupted, then drain in-flight requests.
	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		appLogger.Info(ctx, "HTTP server listening", map[string]interface{}{"addr": cfg.ListenAddr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-runCtx.Done():
		appLogger.Info(ctx, "Shutdown signal received")
	case err := <-errCh:
		appLogger.Error(ctx, err, "HTTP server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(ctx, err, "HTTP server shutdown failed")
	}
	appLogger.Info(ctx, "Shutdown complete")
}
