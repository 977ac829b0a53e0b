package port

import (
	"context"

	"github.com/nikolayk812/storefront/internal/domain"
)

// KeyValueStore persists opaque JSON documents under string keys.
// Load reports found=false for a key that was never saved.
type KeyValueStore interface {
	Load(ctx context.Context, key string) (value []byte, found bool, err error)
	Save(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

type SnapshotRepository interface {
	GetCart(ctx context.Context) ([]domain.CartItem, error)
	SaveCart(ctx context.Context, items []domain.CartItem) error
	GetProduct(ctx context.Context, id string) (domain.Product, error)
	SaveProducts(ctx context.Context, products []domain.Product) error
}

type CatalogFetcher interface {
	Fetch(ctx context.Context) ([]domain.Product, error)
}

// View reflects catalog and cart state. Implementations must not call back
// into the cart while handling these calls.
type View interface {
	RenderCatalog(products []domain.Product)
	EnableAddButtons()
	DisableAddButtons()
	RenderCartLine(item domain.CartItem)
	RemoveCartLine(id string)
	UpdateTotals(totals domain.Totals)
	ShowCartPanel()
	HideCartPanel()
}
