package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/storefront/internal/app"
	"github.com/nikolayk812/storefront/internal/cart"
	"github.com/nikolayk812/storefront/internal/catalog"
	"github.com/nikolayk812/storefront/internal/config"
	"github.com/nikolayk812/storefront/internal/logger"
	"github.com/nikolayk812/storefront/internal/metrics"
	"github.com/nikolayk812/storefront/internal/port"
	"github.com/nikolayk812/storefront/internal/repository"
	"github.com/nikolayk812/storefront/internal/storage"
	"github.com/nikolayk812/storefront/internal/view"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("storefront stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config.Load: %w", err)
	}

	log := logger.New(logger.Options{Service: "storefront", Env: cfg.AppEnv, Level: cfg.LogLevel})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("openStore[%s]: %w", cfg.Store.Backend, err)
	}
	defer closeStore()

	repo, err := repository.NewSnapshot(store, log)
	if err != nil {
		return fmt.Errorf("repository.NewSnapshot: %w", err)
	}

	client, err := catalog.NewClient(cfg.Contentful, &http.Client{Timeout: cfg.Contentful.Timeout})
	if err != nil {
		return fmt.Errorf("catalog.NewClient: %w", err)
	}

	loader, err := catalog.NewLoader(client, log, catalog.WithTimeout(cfg.Contentful.Timeout))
	if err != nil {
		return fmt.Errorf("catalog.NewLoader: %w", err)
	}

	m := metrics.New()
	model := view.NewModel(cfg.Currency)

	shopCart, err := cart.New(repo, cart.WithView(model), cart.WithLogger(log), cart.WithMetrics(m))
	if err != nil {
		return fmt.Errorf("cart.New: %w", err)
	}

	application, err := app.New(shopCart, loader, repo, model, log, m)
	if err != nil {
		return fmt.Errorf("app.New: %w", err)
	}

	handler := view.NewHandler(shopCart, model, log, m).WithRefresher(application)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	catalogDone := application.Start(gctx)
	g.Go(func() error {
		if err := <-catalogDone; err != nil {
			log.Warn("storefront running without catalog", "error", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Info("http server starting", "addr", cfg.HTTPAddr, "store", cfg.Store.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("srv.ListenAndServe: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown requested")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("srv.Shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("bye")
	return nil
}

// openStore builds the configured key-value backend and returns its cleanup.
func openStore(ctx context.Context, cfg config.Store) (port.KeyValueStore, func(), error) {
	noop := func() {}

	switch cfg.Backend {
	case config.BackendMemory:
		return storage.NewMemory(), noop, nil

	case config.BackendFile:
		store, err := storage.NewFile(cfg.Dir)
		if err != nil {
			return nil, noop, fmt.Errorf("storage.NewFile: %w", err)
		}
		return store, noop, nil

	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, noop, fmt.Errorf("client.Ping: %w", err)
		}
		return storage.NewRedis(client, cfg.Scope), func() { _ = client.Close() }, nil

	case config.BackendPostgres:
		if err := storage.Migrate(cfg.DatabaseURL); err != nil {
			return nil, noop, fmt.Errorf("storage.Migrate: %w", err)
		}

		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, noop, fmt.Errorf("pgxpool.New: %w", err)
		}

		store, err := storage.NewPostgres(pool, cfg.Scope)
		if err != nil {
			pool.Close()
			return nil, noop, fmt.Errorf("storage.NewPostgres: %w", err)
		}
		return store, pool.Close, nil

	default:
		return nil, noop, fmt.Errorf("backend[%s] is not supported", cfg.Backend)
	}
}
