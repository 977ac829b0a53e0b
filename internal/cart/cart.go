// Package cart holds the shopping cart state machine. Every mutation
// recomputes totals, persists the full cart and refreshes the view before it
// returns. Mutations are serialized, so a Cart is safe for concurrent use.
package cart

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/nikolayk812/storefront/internal/domain"
	"github.com/nikolayk812/storefront/internal/metrics"
	"github.com/nikolayk812/storefront/internal/port"
)

type Cart struct {
	repo    port.SnapshotRepository
	view    port.View
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu         sync.Mutex
	items      []domain.CartItem
	totals     domain.Totals
	addEnabled bool
}

type Option func(*Cart)

func WithView(view port.View) Option {
	return func(c *Cart) { c.view = view }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Cart) { c.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Cart) { c.metrics = m }
}

func New(repo port.SnapshotRepository, opts ...Option) (*Cart, error) {
	if repo == nil {
		return nil, fmt.Errorf("repo is nil")
	}

	c := &Cart{
		repo:   repo,
		view:   noopView{},
		logger: slog.Default(),
		items:  []domain.CartItem{},
		totals: domain.ComputeTotals(nil),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.view == nil {
		c.view = noopView{}
	}

	return c, nil
}

// Hydrate replaces the in-memory cart with the persisted one and renders it.
// On a storage error the cart stays empty and the error is returned.
func (c *Cart) Hydrate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.repo.GetCart(ctx)
	if err != nil {
		err = fmt.Errorf("repo.GetCart: %w", err)
	}
	if err != nil || items == nil {
		items = []domain.CartItem{}
	}

	c.items = items
	c.totals = domain.ComputeTotals(items)

	for _, item := range items {
		c.view.RenderCartLine(item)
	}
	c.view.UpdateTotals(c.totals)
	c.observeItems()

	return err
}

// EnableAdd allows Add once the catalog snapshot has been resolved.
func (c *Cart) EnableAdd() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.addEnabled = true
	c.view.EnableAddButtons()
}

// DisableAdd refuses Add again, e.g. when a catalog refresh failed and the
// snapshot can no longer be trusted.
func (c *Cart) DisableAdd() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.addEnabled = false
	c.view.DisableAddButtons()
}

// Add puts a new line item with amount 1 into the cart. Products already in
// the cart are rejected with ErrAlreadyInCart; amounts change only through
// Increment and Decrement.
func (c *Cart) Add(ctx context.Context, id string) (err error) {
	defer c.observe("add", &err)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.addEnabled {
		return domain.ErrCatalogNotReady
	}
	if c.indexOf(id) >= 0 {
		return fmt.Errorf("product[%s]: %w", id, domain.ErrAlreadyInCart)
	}

	product, err := c.repo.GetProduct(ctx, id)
	if err != nil {
		return fmt.Errorf("repo.GetProduct: %w", err)
	}

	item := domain.NewCartItem(product)
	c.items = append(c.items, item)

	c.view.RenderCartLine(item)
	c.view.ShowCartPanel()

	return c.commit(ctx)
}

func (c *Cart) Increment(ctx context.Context, id string) (err error) {
	defer c.observe("increment", &err)

	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(id)
	if i < 0 {
		return fmt.Errorf("cart item[%s]: %w", id, domain.ErrNotFound)
	}

	c.items[i].Amount++
	c.view.RenderCartLine(c.items[i])

	return c.commit(ctx)
}

// Decrement lowers the amount by one and removes the line item when the
// amount would reach zero.
func (c *Cart) Decrement(ctx context.Context, id string) (err error) {
	defer c.observe("decrement", &err)

	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(id)
	if i < 0 {
		return fmt.Errorf("cart item[%s]: %w", id, domain.ErrNotFound)
	}

	if c.items[i].Amount <= 1 {
		c.removeAt(i)
	} else {
		c.items[i].Amount--
		c.view.RenderCartLine(c.items[i])
	}

	return c.commit(ctx)
}

// Remove deletes the line item. Removing an absent id is a no-op.
func (c *Cart) Remove(ctx context.Context, id string) (err error) {
	defer c.observe("remove", &err)

	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(id)
	if i < 0 {
		return nil
	}

	c.removeAt(i)

	return c.commit(ctx)
}

func (c *Cart) Clear(ctx context.Context) (err error) {
	defer c.observe("clear", &err)

	c.mu.Lock()
	defer c.mu.Unlock()

	for len(c.items) > 0 {
		c.removeAt(len(c.items) - 1)
	}
	c.view.HideCartPanel()

	return c.commit(ctx)
}

// Dispatch routes a view intent to the matching operation.
func (c *Cart) Dispatch(ctx context.Context, intent domain.Intent) error {
	switch intent.Type {
	case domain.IntentAdd:
		return c.Add(ctx, intent.ID)
	case domain.IntentIncrement:
		return c.Increment(ctx, intent.ID)
	case domain.IntentDecrement:
		return c.Decrement(ctx, intent.ID)
	case domain.IntentRemove:
		return c.Remove(ctx, intent.ID)
	case domain.IntentClear:
		return c.Clear(ctx)
	default:
		return fmt.Errorf("intent[%s]: %w", intent.Type, domain.ErrUnknownIntent)
	}
}

func (c *Cart) Items() []domain.CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.items)
}

func (c *Cart) Totals() domain.Totals {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.totals
}

func (c *Cart) Contains(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.indexOf(id) >= 0
}

func (c *Cart) AddEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.addEnabled
}

// commit recomputes totals and persists the cart. The in-memory state is kept
// even if persisting fails; the next successful save overwrites the snapshot.
func (c *Cart) commit(ctx context.Context) error {
	c.totals = domain.ComputeTotals(c.items)
	c.view.UpdateTotals(c.totals)
	c.observeItems()

	if err := c.repo.SaveCart(ctx, c.items); err != nil {
		c.logger.ErrorContext(ctx, "cart not persisted", "items", len(c.items), "error", err)
		return fmt.Errorf("repo.SaveCart: %w", err)
	}

	return nil
}

// removeAt must be called with mu held.
func (c *Cart) removeAt(i int) {
	id := c.items[i].ID
	c.items = slices.Delete(c.items, i, i+1)
	c.view.RemoveCartLine(id)
}

func (c *Cart) indexOf(id string) int {
	return slices.IndexFunc(c.items, func(item domain.CartItem) bool {
		return item.ID == id
	})
}

func (c *Cart) observe(op string, err *error) {
	if c.metrics == nil {
		return
	}
	c.metrics.ObserveCartOperation(op, *err)
}

func (c *Cart) observeItems() {
	if c.metrics == nil {
		return
	}
	c.metrics.CartItems.Set(float64(c.totals.TotalItems))
}

type noopView struct{}

func (noopView) RenderCatalog([]domain.Product) {}
func (noopView) EnableAddButtons()              {}
func (noopView) DisableAddButtons()             {}
func (noopView) RenderCartLine(domain.CartItem) {}
func (noopView) RemoveCartLine(string)          {}
func (noopView) UpdateTotals(domain.Totals)     {}
func (noopView) ShowCartPanel()                 {}
func (noopView) HideCartPanel()                 {}
