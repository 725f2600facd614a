// Package app wires the POS server together: storage, domain services,
// HTTP surface, and lifecycle.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/thitiwat/salika-pos/internal/domain/checkout"
	"github.com/thitiwat/salika-pos/internal/domain/product"
	"github.com/thitiwat/salika-pos/internal/domain/settings"
	"github.com/thitiwat/salika-pos/internal/handler"
	"github.com/thitiwat/salika-pos/internal/storage/postgres"
	"github.com/thitiwat/salika-pos/internal/storage/rediscache"
	"github.com/thitiwat/salika-pos/pkg/health"
	"github.com/thitiwat/salika-pos/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles
// graceful shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health probes.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	// Repositories. The catalog optionally sits behind Redis; everything
	// downstream sees the same product.Repository either way.
	var products product.Repository = postgres.NewProductRepository(pool)
	var catalogCache handler.CatalogCache
	if cfg.RedisURL != "" {
		client, err := rediscache.NewClient(cfg.RedisURL)
		if err != nil {
			return errors.Wrap(err, "create redis client")
		}
		defer client.Close()

		cached := rediscache.New(products, client)
		products = cached
		catalogCache = cached
		healthSvc.AddReadinessCheck("redis", 3*time.Second, func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		lg.Info("Catalog caching enabled")
	}

	transactionRepo := postgres.NewTransactionRepository(pool)
	settingsRepo := postgres.NewSettingsRepository(pool)
	reconcileRepo := postgres.NewReconciliationRepository(pool)
	apikeyRepo := postgres.NewAPIKeyRepository(pool)

	// Domain services.
	settingsView := settings.NewProvider(settingsRepo, cfg.Settings.CacheTTL)
	sessions := checkout.NewManager(checkout.Deps{
		Store:     transactionRepo,
		Stock:     products,
		Reconcile: reconcileRepo,
		Rates:     settingsView,
	}, cfg.Checkout.SessionTTL)
	sessions.StartJanitor(ctx, cfg.Checkout.JanitorInterval)

	// HTTP surface.
	h := handler.New(
		handler.Config{ImageBaseURL: cfg.ImageBaseURL},
		handler.Deps{
			Products:     products,
			Sessions:     sessions,
			Transactions: transactionRepo,
			Settings:     settingsRepo,
			SettingsView: settingsView,
			Reconcile:    reconcileRepo,
			CatalogCache: catalogCache,
		},
	)
	sec := handler.NewSecurity(apikeyRepo, []byte(cfg.APIKeyPepper))

	mux := http.NewServeMux()
	mux.Handle("/livez", healthSvc.Routes())
	mux.Handle("/readyz", healthSvc.Routes())
	mux.Handle("/api/", http.StripPrefix("/api", h.Routes(sec)))

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins: cfg.CORS.Origins,
			}),
			httpmiddleware.RateLimit(ctx, httpmiddleware.RateLimitConfig{
				Rate:  cfg.RateLimit.Rate,
				Burst: cfg.RateLimit.Burst,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("salika-pos", m.MeterProvider(), m.TracerProvider()),
			httpmiddleware.LogRequests(),
		),
	}

	healthSvc.SetReady(true)

	// Graceful shutdown: flag not-ready, let the balancer drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
