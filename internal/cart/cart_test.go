package cart_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	"github.com/nikolayk812/storefront/internal/cart"
	"github.com/nikolayk812/storefront/internal/domain"
	"github.com/nikolayk812/storefront/internal/metrics"
	"github.com/nikolayk812/storefront/internal/port"
	"github.com/nikolayk812/storefront/internal/repository"
	"github.com/nikolayk812/storefront/internal/storage"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type cartSuite struct {
	suite.Suite

	store *storage.Memory
	repo  port.SnapshotRepository
	view  *viewRecorder
	cart  *cart.Cart
}

func TestCartSuite(t *testing.T) {
	suite.Run(t, new(cartSuite))
}

// before each test
func (suite *cartSuite) SetupTest() {
	var err error

	suite.store = storage.NewMemory()
	suite.repo, err = repository.NewSnapshot(suite.store, nil)
	suite.Require().NoError(err)

	suite.Require().NoError(suite.repo.SaveProducts(context.Background(), []domain.Product{
		product("p1", "9.99"),
		product("p2", "3.00"),
		product("p5", "5.00"),
	}))

	suite.view = newViewRecorder()
	suite.cart = suite.newCart()
}

func (suite *cartSuite) newCart() *cart.Cart {
	c, err := cart.New(suite.repo, cart.WithView(suite.view))
	suite.Require().NoError(err)
	suite.Require().NoError(c.Hydrate(context.Background()))
	c.EnableAdd()
	return c
}

func (suite *cartSuite) TestAdd_NewProduct() {
	t := suite.T()
	ctx := t.Context()

	require.NoError(t, suite.cart.Add(ctx, "p1"))

	items := suite.cart.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "p1", items[0].ID)
	assert.Equal(t, 1, items[0].Amount)

	totals := suite.cart.Totals()
	assert.True(t, decimal.RequireFromString("9.99").Equal(totals.TotalPrice))
	assert.Equal(t, 1, totals.TotalItems)

	assert.True(t, suite.view.panelOpen)
	assert.Equal(t, 1, suite.view.lines["p1"])
	suite.assertPersisted(items)
}

func (suite *cartSuite) TestAdd_Duplicate() {
	t := suite.T()
	ctx := t.Context()

	require.NoError(t, suite.cart.Add(ctx, "p1"))

	err := suite.cart.Add(ctx, "p1")
	require.ErrorIs(t, err, domain.ErrAlreadyInCart)

	items := suite.cart.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Amount)
}

func (suite *cartSuite) TestAdd_UnknownProduct() {
	t := suite.T()
	ctx := t.Context()

	err := suite.cart.Add(ctx, "unknown")
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, suite.cart.Items())
	assert.False(t, suite.view.panelOpen)
}

func (suite *cartSuite) TestAdd_BeforeCatalogReady() {
	t := suite.T()

	c, err := cart.New(suite.repo)
	require.NoError(t, err)
	require.NoError(t, c.Hydrate(t.Context()))

	err = c.Add(t.Context(), "p1")
	require.ErrorIs(t, err, domain.ErrCatalogNotReady)
	assert.Empty(t, c.Items())

	c.EnableAdd()
	require.NoError(t, c.Add(t.Context(), "p1"))
}

func (suite *cartSuite) TestAdd_AfterDisable() {
	t := suite.T()
	ctx := t.Context()

	require.NoError(t, suite.cart.Add(ctx, "p1"))

	suite.cart.DisableAdd()
	assert.False(t, suite.cart.AddEnabled())
	assert.False(t, suite.view.addEnabled)

	require.ErrorIs(t, suite.cart.Add(ctx, "p2"), domain.ErrCatalogNotReady)
	require.NoError(t, suite.cart.Increment(ctx, "p1"), "line controls keep working")
	suite.assertPersisted(suite.cart.Items())
	assert.Equal(t, 2, suite.cart.Totals().TotalItems)
}

func (suite *cartSuite) TestIncrement() {
	t := suite.T()
	ctx := t.Context()

	require.NoError(t, suite.cart.Add(ctx, "p1"))
	require.NoError(t, suite.cart.Increment(ctx, "p1"))
	require.NoError(t, suite.cart.Increment(ctx, "p1"))

	items := suite.cart.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Amount)
	assert.Equal(t, 3, suite.view.lines["p1"])
	assert.True(t, decimal.RequireFromString("29.97").Equal(suite.cart.Totals().TotalPrice))
	suite.assertPersisted(items)
}

func (suite *cartSuite) TestIncrement_Unknown() {
	t := suite.T()

	err := suite.cart.Increment(t.Context(), "unknown")
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, suite.cart.Items())
	assert.Zero(t, suite.cart.Totals().TotalItems)
	assert.True(t, suite.cart.Totals().TotalPrice.IsZero())

	_, found, err := suite.store.Load(t.Context(), repository.KeyCart)
	require.NoError(t, err)
	assert.False(t, found, "failed operation must not persist")
}

func (suite *cartSuite) TestDecrement_ToRemoval() {
	t := suite.T()
	ctx := t.Context()

	require.NoError(t, suite.cart.Add(ctx, "p1"))
	require.NoError(t, suite.cart.Decrement(ctx, "p1"))

	assert.Empty(t, suite.cart.Items())
	assert.True(t, suite.cart.Totals().TotalPrice.IsZero())
	assert.Zero(t, suite.cart.Totals().TotalItems)
	assert.NotContains(t, suite.view.lines, "p1")
	suite.assertPersisted([]domain.CartItem{})
}

func (suite *cartSuite) TestDecrement_AboveOne() {
	t := suite.T()
	ctx := t.Context()

	require.NoError(t, suite.cart.Add(ctx, "p5"))
	require.NoError(t, suite.cart.Increment(ctx, "p5"))
	require.NoError(t, suite.cart.Decrement(ctx, "p5"))

	items := suite.cart.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Amount)
	assert.Equal(t, 1, suite.view.lines["p5"])
}

func (suite *cartSuite) TestDecrement_Unknown() {
	err := suite.cart.Decrement(suite.T().Context(), "unknown")
	suite.Require().ErrorIs(err, domain.ErrNotFound)
}

func (suite *cartSuite) TestRemove_Idempotent() {
	t := suite.T()
	ctx := t.Context()

	require.NoError(t, suite.cart.Add(ctx, "p1"))
	require.NoError(t, suite.cart.Add(ctx, "p2"))

	require.NoError(t, suite.cart.Remove(ctx, "p1"))
	once := suite.cart.Items()

	require.NoError(t, suite.cart.Remove(ctx, "p1"))
	twice := suite.cart.Items()

	assert.Empty(t, cmp.Diff(once, twice, decimalComparer()))
	require.Len(t, twice, 1)
	assert.Equal(t, "p2", twice[0].ID)
}

func (suite *cartSuite) TestRemove_ThenAddAgain() {
	t := suite.T()
	ctx := t.Context()

	require.NoError(t, suite.cart.Add(ctx, "p1"))
	require.NoError(t, suite.cart.Remove(ctx, "p1"))
	require.NoError(t, suite.cart.Add(ctx, "p1"))

	assert.Len(t, suite.cart.Items(), 1)
}

func (suite *cartSuite) TestClear() {
	t := suite.T()
	ctx := t.Context()

	require.NoError(t, suite.cart.Add(ctx, "p5"))
	require.NoError(t, suite.cart.Increment(ctx, "p5"))
	require.NoError(t, suite.cart.Add(ctx, "p2"))

	totals := suite.cart.Totals()
	assert.True(t, decimal.RequireFromString("13").Equal(totals.TotalPrice))
	assert.Equal(t, 3, totals.TotalItems)

	require.NoError(t, suite.cart.Clear(ctx))

	assert.Empty(t, suite.cart.Items())
	assert.True(t, suite.cart.Totals().TotalPrice.IsZero())
	assert.Zero(t, suite.cart.Totals().TotalItems)
	assert.Empty(t, suite.view.lines)
	assert.False(t, suite.view.panelOpen)
	suite.assertPersisted([]domain.CartItem{})

	_, found, err := suite.store.Load(ctx, repository.KeyCart)
	require.NoError(t, err)
	assert.False(t, found, "cleared cart is removed from the store")

	require.NoError(t, suite.cart.Clear(ctx), "clearing an empty cart")
}

func (suite *cartSuite) TestHydrate_RestoresPersistedCart() {
	t := suite.T()
	ctx := t.Context()

	require.NoError(t, suite.cart.Add(ctx, "p1"))
	require.NoError(t, suite.cart.Add(ctx, "p2"))
	require.NoError(t, suite.cart.Increment(ctx, "p2"))

	suite.view = newViewRecorder()
	restored := suite.newCart()

	assert.Empty(t, cmp.Diff(suite.cart.Items(), restored.Items(), decimalComparer()))
	assert.Equal(t, map[string]int{"p1": 1, "p2": 2}, suite.view.lines)
	assert.Equal(t, 3, suite.view.totals.TotalItems)
}

func (suite *cartSuite) TestDispatch() {
	t := suite.T()
	ctx := t.Context()

	intents := []domain.Intent{
		{Type: domain.IntentAdd, ID: "p1"},
		{Type: domain.IntentAdd, ID: "p2"},
		{Type: domain.IntentIncrement, ID: "p1"},
		{Type: domain.IntentDecrement, ID: "p2"},
	}
	for _, intent := range intents {
		require.NoError(t, suite.cart.Dispatch(ctx, intent), intent)
	}

	items := suite.cart.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Amount)

	require.NoError(t, suite.cart.Dispatch(ctx, domain.Intent{Type: domain.IntentRemove, ID: "p1"}))
	require.NoError(t, suite.cart.Dispatch(ctx, domain.Intent{Type: domain.IntentClear}))
	assert.Empty(t, suite.cart.Items())

	err := suite.cart.Dispatch(ctx, domain.Intent{Type: "checkout"})
	require.ErrorIs(t, err, domain.ErrUnknownIntent)
}

// Random operation sequences must keep ids unique, amounts positive, totals
// consistent and the persisted snapshot equal to the in-memory cart.
func (suite *cartSuite) TestInvariants_RandomOperations() {
	t := suite.T()
	ctx := t.Context()

	ids := []string{"p1", "p2", "p5", "unknown"}
	ops := []domain.IntentType{
		domain.IntentAdd, domain.IntentAdd, domain.IntentIncrement,
		domain.IntentDecrement, domain.IntentRemove, domain.IntentClear,
	}

	faker := gofakeit.New(42)

	for step := range 500 {
		intent := domain.Intent{
			Type: ops[faker.IntRange(0, len(ops)-1)],
			ID:   ids[faker.IntRange(0, len(ids)-1)],
		}

		err := suite.cart.Dispatch(ctx, intent)
		if err != nil {
			require.True(t,
				errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrAlreadyInCart),
				"step %d %v: %v", step, intent, err)
		}

		items := suite.cart.Items()
		seen := map[string]bool{}
		wantPrice := decimal.Zero
		wantCount := 0
		for _, item := range items {
			require.False(t, seen[item.ID], "step %d: duplicate id %s", step, item.ID)
			seen[item.ID] = true
			require.GreaterOrEqual(t, item.Amount, 1, "step %d", step)
			wantPrice = wantPrice.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Amount))))
			wantCount += item.Amount
		}

		totals := suite.cart.Totals()
		require.True(t, wantPrice.Equal(totals.TotalPrice), "step %d: price %s != %s", step, wantPrice, totals.TotalPrice)
		require.Equal(t, wantCount, totals.TotalItems, "step %d", step)
		require.Equal(t, wantCount, suite.view.totals.TotalItems, "step %d", step)
	}

	suite.assertPersisted(suite.cart.Items())
}

func (suite *cartSuite) assertPersisted(want []domain.CartItem) {
	t := suite.T()
	t.Helper()

	got, err := suite.repo.GetCart(t.Context())
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(want, got, decimalComparer()))
}

func TestNew_NilRepo(t *testing.T) {
	_, err := cart.New(nil)
	require.EqualError(t, err, "repo is nil")
}

func TestCart_PersistFailureIsReported(t *testing.T) {
	repo := &stubRepo{product: product("p1", "1.50"), saveErr: fmt.Errorf("%w: disk full", domain.ErrStorage)}

	c, err := cart.New(repo)
	require.NoError(t, err)
	require.NoError(t, c.Hydrate(t.Context()))
	c.EnableAdd()

	err = c.Add(t.Context(), "p1")
	require.ErrorIs(t, err, domain.ErrStorage)

	// in-memory state keeps the mutation
	assert.True(t, c.Contains("p1"))
	assert.Equal(t, 1, c.Totals().TotalItems)
}

func TestCart_HydrateStorageError(t *testing.T) {
	repo := &stubRepo{getErr: fmt.Errorf("%w: connection reset", domain.ErrStorage)}
	view := newViewRecorder()

	c, err := cart.New(repo, cart.WithView(view))
	require.NoError(t, err)

	err = c.Hydrate(t.Context())
	require.ErrorIs(t, err, domain.ErrStorage)
	assert.Empty(t, c.Items())
	assert.Zero(t, view.totals.TotalItems)
}

func TestCart_Metrics(t *testing.T) {
	m := metrics.New()
	repo := &stubRepo{product: product("p1", "2")}

	c, err := cart.New(repo, cart.WithMetrics(m))
	require.NoError(t, err)
	c.EnableAdd()

	require.NoError(t, c.Add(t.Context(), "p1"))
	require.NoError(t, c.Increment(t.Context(), "p1"))
	require.ErrorIs(t, c.Increment(t.Context(), "nope"), domain.ErrNotFound)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CartOperations.WithLabelValues("add", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CartOperations.WithLabelValues("increment", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CartOperations.WithLabelValues("increment", "not_found")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CartItems))
}

// stubRepo serves a single product and returns the configured errors.
type stubRepo struct {
	product domain.Product
	getErr  error
	saveErr error
}

func (r *stubRepo) GetCart(context.Context) ([]domain.CartItem, error) {
	return nil, r.getErr
}

func (r *stubRepo) SaveCart(context.Context, []domain.CartItem) error {
	return r.saveErr
}

func (r *stubRepo) GetProduct(_ context.Context, id string) (domain.Product, error) {
	if id != r.product.ID {
		return domain.Product{}, domain.ErrNotFound
	}
	return r.product, nil
}

func (r *stubRepo) SaveProducts(context.Context, []domain.Product) error {
	return nil
}

func product(id, price string) domain.Product {
	return domain.Product{
		ID:    id,
		Title: "product " + id,
		Price: decimal.RequireFromString(price),
		Image: "//images.example/" + id + ".jpg",
	}
}

func decimalComparer() cmp.Option {
	return cmp.Comparer(func(x, y decimal.Decimal) bool {
		return x.Equal(y)
	})
}
