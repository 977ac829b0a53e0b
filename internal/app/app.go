package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nikolayk812/storefront/internal/cart"
	"github.com/nikolayk812/storefront/internal/catalog"
	"github.com/nikolayk812/storefront/internal/metrics"
	"github.com/nikolayk812/storefront/internal/port"
)

// CatalogLoader is satisfied by *catalog.Loader.
type CatalogLoader interface {
	Load(ctx context.Context) catalog.Result
}

// App runs the storefront startup sequence: hydrate the cart, fetch the
// catalog, render and snapshot it, then enable add-to-cart.
type App struct {
	cart    *cart.Cart
	loader  CatalogLoader
	repo    port.SnapshotRepository
	view    port.View
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func New(c *cart.Cart, loader CatalogLoader, repo port.SnapshotRepository, view port.View, logger *slog.Logger, m *metrics.Metrics) (*App, error) {
	if c == nil || loader == nil || repo == nil || view == nil {
		return nil, fmt.Errorf("cart, loader, repo and view are required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &App{
		cart:    c,
		loader:  loader,
		repo:    repo,
		view:    view,
		logger:  logger,
		metrics: m,
	}, nil
}

// Hydrate restores the persisted cart. A storage failure is logged and the
// cart starts empty.
func (a *App) Hydrate(ctx context.Context) {
	if err := a.cart.Hydrate(ctx); err != nil {
		a.logger.WarnContext(ctx, "cart not restored, starting empty", "error", err)
		return
	}

	a.logger.InfoContext(ctx, "cart restored", "items", a.cart.Totals().TotalItems)
}

// LoadCatalog fetches the catalog and renders it. On success the products are
// snapshotted and add-to-cart is enabled. On failure an empty catalog is
// rendered, add-to-cart is disabled, the previous snapshot is kept and the
// fetch error is returned.
func (a *App) LoadCatalog(ctx context.Context) error {
	result := a.loader.Load(ctx)
	a.observeFetch(result)

	a.view.RenderCatalog(result.Products)

	if result.Failed() {
		a.cart.DisableAdd()
		return result.Err
	}

	if err := a.repo.SaveProducts(ctx, result.Products); err != nil {
		a.logger.ErrorContext(ctx, "catalog snapshot not persisted", "error", err)
	}

	a.cart.EnableAdd()
	return nil
}

// Start hydrates the cart and loads the catalog in a goroutine. The returned
// channel yields the catalog load outcome once and is then closed.
func (a *App) Start(ctx context.Context) <-chan error {
	a.Hydrate(ctx)

	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- a.LoadCatalog(ctx)
	}()

	return done
}

func (a *App) observeFetch(result catalog.Result) {
	if a.metrics == nil {
		return
	}

	a.metrics.CatalogFetches.WithLabelValues(metrics.Result(result.Err)).Inc()
	if !result.Failed() {
		a.metrics.CatalogProducts.Set(float64(len(result.Products)))
	}
}
