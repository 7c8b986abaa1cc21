// Package app wires the engine together: persistence, catalog sync, domain
// stores and the HTTP surface.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/fenro-storefront/internal/account"
	"github.com/xenking/fenro-storefront/internal/catalog"
	"github.com/xenking/fenro-storefront/internal/domain/cart"
	"github.com/xenking/fenro-storefront/internal/domain/checkout"
	"github.com/xenking/fenro-storefront/internal/domain/favorites"
	"github.com/xenking/fenro-storefront/internal/fenro"
	"github.com/xenking/fenro-storefront/internal/handler"
	"github.com/xenking/fenro-storefront/internal/kv"
	"github.com/xenking/fenro-storefront/internal/notify"
	"github.com/xenking/fenro-storefront/pkg/health"
	"github.com/xenking/fenro-storefront/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the catalog sync loop and the HTTP
// server, and handles graceful shutdown. It is the single wiring point for
// the engine.
func Run(ctx context.Context, lg *zap.Logger, _ *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("backend", cfg.Store.Backend),
		zap.String("catalog", cfg.Catalog.BaseURL),
	)

	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		return errors.Wrap(err, "open store")
	}
	defer store.Close()

	client, err := fenro.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.ShopID)
	if err != nil {
		return errors.Wrap(err, "create catalog client")
	}

	syncStore := catalog.NewSyncStore(client, catalog.Scope{
		Status:     fenro.Status(cfg.Catalog.Status),
		Limit:      cfg.Catalog.Limit,
		Offset:     cfg.Catalog.Offset,
		Collection: cfg.Catalog.Collection,
		Category:   cfg.Catalog.Category,
	})

	// Domain stores hydrate from persisted state up front.
	cartStore := cart.New(ctx, store)
	favoritesStore := favorites.New(ctx, store)
	checkoutSvc := checkout.NewService(store)
	accountStore := account.New(ctx, store)
	notifyStore := notify.New(ctx, store)

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddReadinessCheck("store", 5*time.Second, storePing(store))
	healthSvc.AddReadinessCheck("catalog", time.Second, func(context.Context) error {
		if !syncStore.Ready() {
			if err := syncStore.Err(); err != nil {
				return err
			}
			return errors.New("initial sync pending")
		}
		return nil
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	handler.New(syncStore, cartStore, favoritesStore, checkoutSvc, accountStore, notifyStore).Routes(mux)

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
				MaxAge:       86400,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		syncStore.Run(ctx, cfg.Catalog.PollInterval)
		return nil
	})

	// Warm the navigation data alongside the first product fetch. Failures
	// are logged, not fatal: the engine works without categories.
	g.Go(func() error {
		warmNavigation(ctx, lg, client)
		return nil
	})

	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	g.Go(func() error {
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
		return nil
	})

	healthSvc.SetReady(true)
	return g.Wait()
}

// warmNavigation fetches categories and collections concurrently so the
// first query against them hits a warm HTTP connection and any catalog
// misconfiguration surfaces in the logs right away.
func warmNavigation(ctx context.Context, lg *zap.Logger, client *fenro.Client) {
	warmCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	wg, warmCtx := errgroup.WithContext(warmCtx)
	wg.Go(func() error {
		categories, err := client.Categories(warmCtx)
		if err != nil {
			lg.Warn("Fetch categories", zap.Error(err))
			return nil
		}
		lg.Info("Categories loaded", zap.Int("count", len(categories)))
		return nil
	})
	wg.Go(func() error {
		collections, err := client.Collections(warmCtx, false)
		if err != nil {
			lg.Warn("Fetch collections", zap.Error(err))
			return nil
		}
		lg.Info("Collections loaded", zap.Int("count", len(collections)))
		return nil
	})
	_ = wg.Wait()
}

// openStore builds the configured persistence backend.
func openStore(ctx context.Context, cfg StoreConfig) (kv.Store, error) {
	switch cfg.Backend {
	case "bolt":
		return kv.OpenBolt(cfg.BoltPath)
	case "postgres":
		return kv.OpenPostgres(ctx, cfg.DatabaseURL)
	case "memory":
		return kv.NewMemory(), nil
	default:
		return nil, errors.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// storePing verifies the persistence backend answers reads. A missing probe
// key is a healthy store.
func storePing(store kv.Store) health.CheckFunc {
	return func(ctx context.Context) error {
		_, err := store.Get(ctx, "healthz")
		if err != nil && !errors.Is(err, kv.ErrNotFound) {
			return err
		}
		return nil
	}
}
