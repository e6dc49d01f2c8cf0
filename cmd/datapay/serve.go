package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/datapay-bfa-go/internal/config"
	"github.com/boddenberg/datapay-bfa-go/internal/domain"
	"github.com/boddenberg/datapay-bfa-go/internal/handler"
	"github.com/boddenberg/datapay-bfa-go/internal/infra/cache"
	"github.com/boddenberg/datapay-bfa-go/internal/infra/client"
	"github.com/boddenberg/datapay-bfa-go/internal/infra/observability"
	"github.com/boddenberg/datapay-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/datapay-bfa-go/internal/infra/store"
	"github.com/boddenberg/datapay-bfa-go/internal/service"
	"github.com/boddenberg/datapay-bfa-go/internal/valuation"

	"github.com/sony/gobreaker"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newServeCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP BFA",
		RunE: func(cmd *cobra.Command, args []string) error {
			// --- Load .env file (for local development) ---
			_ = config.LoadDotEnv(envFile)
			return serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	return cmd
}

func serve(ctx context.Context) error {
	// --- Config ---
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel, "datapay-bfa")
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("datapay_api_url", cfg.DataPayAPIURL),
		zap.String("session_store", cfg.SessionStore),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("sync_timeout", cfg.SyncTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Bool("local_fallback", cfg.LocalFallback),
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Tracing ---
	shutdownTracer, err := observability.InitTracer(cfg.OTLPEndpoint, "datapay-bfa")
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer shutdownTracer(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	cb := resilience.NewCircuitBreaker("datapay-api", logger)
	bulkhead := resilience.NewBulkhead(cfg.MaxConcurrency)

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	backend := client.NewDataPayClient(httpClient, cfg.DataPayAPIURL, cfg.BackendToken, cb, resilienceCfg)

	// --- Session store ---
	sessions, closeStore, err := store.Open(ctx, store.Options{
		Kind:     cfg.SessionStore,
		Dir:      cfg.SessionDir,
		RedisURL: cfg.RedisURL,
		TTL:      cfg.SessionTTL,
	}, logger)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer closeStore()

	// --- Services ---
	engine := valuation.NewEngine(valuation.DefaultTables())

	registry, err := service.NewRegistry(backend, sessions, engine, bulkhead, metrics, logger, service.RegistryOptions{
		Secret:        []byte(cfg.WizardSecret),
		IdleTTL:       cfg.WizardTTL,
		MaxWizards:    cfg.WizardMax,
		SyncTimeout:   cfg.SyncTimeout,
		LocalFallback: cfg.LocalFallback,
	})
	if err != nil {
		return fmt.Errorf("create wizard registry: %w", err)
	}
	defer registry.Close()

	resultCache := cache.New[*domain.ValuationResult](cfg.CacheTTL)
	defer resultCache.Close()
	results := service.NewResults(backend, resultCache, metrics, logger)

	// --- Router ---
	checks := []handler.HealthCheck{{
		Name: "datapay-api",
		Check: func(context.Context) error {
			if cb.State() == gobreaker.StateOpen {
				return errors.New("circuit breaker open")
			}
			return nil
		},
	}}
	if pinger, ok := sessions.(interface{ Ping(context.Context) error }); ok {
		checks = append(checks, handler.HealthCheck{Name: "session-store", Check: pinger.Ping})
	}

	router := handler.NewRouter(registry, results, engine, metrics, logger, handler.Options{
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		HealthChecks:   checks,
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	// --- Graceful shutdown ---
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("server shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced shutdown: %w", err)
		}
		registry.WaitForSync()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		return err
	}
	logger.Info("server stopped")
	return nil
}
