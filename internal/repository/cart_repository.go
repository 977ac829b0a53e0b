package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nikolayk812/storefront/internal/domain"
	"github.com/nikolayk812/storefront/internal/port"
	"github.com/shopspring/decimal"
)

const (
	KeyProducts = "products"
	KeyCart     = "cart"
)

type snapshotRepository struct {
	store  port.KeyValueStore
	logger *slog.Logger
}

func NewSnapshot(store port.KeyValueStore, logger *slog.Logger) (port.SnapshotRepository, error) {
	if store == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &snapshotRepository{
		store:  store,
		logger: logger,
	}, nil
}

// GetCart returns the persisted line items. A missing or unreadable snapshot
// yields an empty cart; entries that would break cart invariants are dropped.
func (r *snapshotRepository) GetCart(ctx context.Context) ([]domain.CartItem, error) {
	var dtos []cartItemDTO

	found, err := r.load(ctx, KeyCart, &dtos)
	if err != nil {
		return nil, err
	}
	if !found {
		return []domain.CartItem{}, nil
	}

	items := make([]domain.CartItem, 0, len(dtos))
	seen := make(map[string]struct{}, len(dtos))

	for _, dto := range dtos {
		item, err := mapCartItemToDomain(dto)
		if err != nil {
			r.logger.WarnContext(ctx, "dropping persisted cart item", "product_id", dto.ID, "error", err)
			continue
		}
		if _, dup := seen[item.ID]; dup {
			r.logger.WarnContext(ctx, "dropping duplicate persisted cart item", "product_id", item.ID)
			continue
		}
		seen[item.ID] = struct{}{}
		items = append(items, item)
	}

	return items, nil
}

// SaveCart overwrites the persisted cart. An empty cart removes the key.
func (r *snapshotRepository) SaveCart(ctx context.Context, items []domain.CartItem) error {
	if len(items) == 0 {
		if err := r.store.Delete(ctx, KeyCart); err != nil {
			return fmt.Errorf("%w: store.Delete[%s]: %w", domain.ErrStorage, KeyCart, err)
		}
		return nil
	}

	dtos := make([]cartItemDTO, 0, len(items))
	for _, item := range items {
		dtos = append(dtos, mapCartItemFromDomain(item))
	}

	return r.save(ctx, KeyCart, dtos)
}

func (r *snapshotRepository) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	var dtos []productDTO

	found, err := r.load(ctx, KeyProducts, &dtos)
	if err != nil {
		return domain.Product{}, err
	}
	if !found {
		return domain.Product{}, fmt.Errorf("product[%s]: no catalog snapshot: %w", id, domain.ErrNotFound)
	}

	for _, dto := range dtos {
		if dto.ID != id {
			continue
		}

		product, err := mapProductToDomain(dto)
		if err != nil {
			r.logger.WarnContext(ctx, "persisted product is not valid", "product_id", id, "error", err)
			return domain.Product{}, fmt.Errorf("product[%s]: %w", id, domain.ErrNotFound)
		}
		return product, nil
	}

	return domain.Product{}, fmt.Errorf("product[%s]: %w", id, domain.ErrNotFound)
}

func (r *snapshotRepository) SaveProducts(ctx context.Context, products []domain.Product) error {
	dtos := make([]productDTO, 0, len(products))
	for _, p := range products {
		dtos = append(dtos, mapProductFromDomain(p))
	}

	return r.save(ctx, KeyProducts, dtos)
}

// load decodes the value under key into dst. Unparsable values are logged and
// reported as not found.
func (r *snapshotRepository) load(ctx context.Context, key string, dst any) (bool, error) {
	data, found, err := r.store.Load(ctx, key)
	if err != nil {
		return false, fmt.Errorf("%w: store.Load[%s]: %w", domain.ErrStorage, key, err)
	}
	if !found {
		return false, nil
	}

	if err := json.Unmarshal(data, dst); err != nil {
		r.logger.WarnContext(ctx, "persisted value is not valid JSON, treating as absent", "key", key, "error", err)
		return false, nil
	}

	return true, nil
}

func (r *snapshotRepository) save(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: json.Marshal[%s]: %w", domain.ErrStorage, key, err)
	}

	if err := r.store.Save(ctx, key, data); err != nil {
		return fmt.Errorf("%w: store.Save[%s]: %w", domain.ErrStorage, key, err)
	}

	return nil
}

type productDTO struct {
	ID    string      `json:"id"`
	Title string      `json:"title"`
	Price json.Number `json:"price"`
	Image string      `json:"image"`
}

type cartItemDTO struct {
	productDTO
	Amount int `json:"amount"`
}

func mapProductToDomain(dto productDTO) (domain.Product, error) {
	if dto.ID == "" {
		return domain.Product{}, fmt.Errorf("id is empty")
	}

	price, err := decimal.NewFromString(dto.Price.String())
	if err != nil {
		return domain.Product{}, fmt.Errorf("price[%s] is not valid: %w", dto.Price, err)
	}

	return domain.Product{
		ID:    dto.ID,
		Title: dto.Title,
		Price: price,
		Image: dto.Image,
	}, nil
}

func mapProductFromDomain(p domain.Product) productDTO {
	return productDTO{
		ID:    p.ID,
		Title: p.Title,
		Price: json.Number(p.Price.String()),
		Image: p.Image,
	}
}

func mapCartItemToDomain(dto cartItemDTO) (domain.CartItem, error) {
	product, err := mapProductToDomain(dto.productDTO)
	if err != nil {
		return domain.CartItem{}, fmt.Errorf("mapProductToDomain: %w", err)
	}

	if dto.Amount < 1 {
		return domain.CartItem{}, fmt.Errorf("amount[%d] is not positive", dto.Amount)
	}

	return domain.CartItem{Product: product, Amount: dto.Amount}, nil
}

func mapCartItemFromDomain(item domain.CartItem) cartItemDTO {
	return cartItemDTO{
		productDTO: mapProductFromDomain(item.Product),
		Amount:     item.Amount,
	}
}
