package view

import (
	"slices"
	"sync"

	"github.com/nikolayk812/storefront/internal/domain"
	"golang.org/x/text/currency"
)

const (
	labelAddToCart = "add to cart"
	labelInCart    = "In cart"
)

// Model is the rendered state of the storefront. It implements port.View and
// is read by the HTTP handler through Snapshot.
type Model struct {
	currency currency.Unit

	mu         sync.RWMutex
	products   []domain.Product
	lines      []domain.CartItem
	totals     domain.Totals
	panelOpen  bool
	addEnabled bool
}

func NewModel(cur currency.Unit) *Model {
	return &Model{
		currency: cur,
		products: []domain.Product{},
		lines:    []domain.CartItem{},
		totals:   domain.ComputeTotals(nil),
	}
}

func (m *Model) RenderCatalog(products []domain.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.products = slices.Clone(products)
}

func (m *Model) EnableAddButtons() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.addEnabled = true
}

func (m *Model) DisableAddButtons() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.addEnabled = false
}

// RenderCartLine appends a new line or updates the amount of an existing one.
func (m *Model) RenderCartLine(item domain.CartItem) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i := m.lineIndex(item.ID); i >= 0 {
		m.lines[i] = item
		return
	}
	m.lines = append(m.lines, item)
}

func (m *Model) RemoveCartLine(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i := m.lineIndex(id); i >= 0 {
		m.lines = slices.Delete(m.lines, i, i+1)
	}
}

func (m *Model) UpdateTotals(totals domain.Totals) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totals = totals
}

func (m *Model) ShowCartPanel() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.panelOpen = true
}

func (m *Model) HideCartPanel() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.panelOpen = false
}

func (m *Model) lineIndex(id string) int {
	return slices.IndexFunc(m.lines, func(item domain.CartItem) bool {
		return item.ID == id
	})
}

type Card struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Price       string `json:"price"`
	Image       string `json:"image"`
	InCart      bool   `json:"in_cart"`
	Disabled    bool   `json:"disabled"`
	ButtonLabel string `json:"button_label"`
}

type Line struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Price    string `json:"price"`
	Image    string `json:"image"`
	Amount   int    `json:"amount"`
	Subtotal string `json:"subtotal"`
}

type Snapshot struct {
	Products   []Card `json:"products"`
	Lines      []Line `json:"lines"`
	TotalPrice string `json:"total_price"`
	TotalItems int    `json:"total_items"`
	PanelOpen  bool   `json:"panel_open"`
	AddEnabled bool   `json:"add_enabled"`
}

func (m *Model) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	inCart := make(map[string]bool, len(m.lines))
	lines := make([]Line, 0, len(m.lines))
	for _, item := range m.lines {
		inCart[item.ID] = true
		price := domain.NewMoney(item.Price, m.currency)
		lines = append(lines, Line{
			ID:       item.ID,
			Title:    item.Title,
			Price:    price.String(),
			Image:    item.Image,
			Amount:   item.Amount,
			Subtotal: price.Mul(item.Amount).String(),
		})
	}

	cards := make([]Card, 0, len(m.products))
	for _, p := range m.products {
		card := Card{
			ID:          p.ID,
			Title:       p.Title,
			Price:       domain.NewMoney(p.Price, m.currency).String(),
			Image:       p.Image,
			InCart:      inCart[p.ID],
			Disabled:    !m.addEnabled || inCart[p.ID],
			ButtonLabel: labelAddToCart,
		}
		if card.InCart {
			card.ButtonLabel = labelInCart
		}
		cards = append(cards, card)
	}

	return Snapshot{
		Products:   cards,
		Lines:      lines,
		TotalPrice: domain.NewMoney(m.totals.DisplayPrice(), m.currency).String(),
		TotalItems: m.totals.TotalItems,
		PanelOpen:  m.panelOpen,
		AddEnabled: m.addEnabled,
	}
}
