package domain

import "github.com/shopspring/decimal"

// CartItem is a line item: a product and how many of it are in the cart.
// Amount is always >= 1 while the item is part of a cart.
type CartItem struct {
	Product
	Amount int
}

func NewCartItem(p Product) CartItem {
	return CartItem{Product: p, Amount: 1}
}

func (i CartItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Amount)))
}

type Totals struct {
	TotalPrice decimal.Decimal
	TotalItems int
}

func ComputeTotals(items []CartItem) Totals {
	totals := Totals{TotalPrice: decimal.Zero}
	for _, item := range items {
		totals.TotalPrice = totals.TotalPrice.Add(item.Subtotal())
		totals.TotalItems += item.Amount
	}
	return totals
}

// DisplayPrice is the total rounded to two decimal places.
func (t Totals) DisplayPrice() decimal.Decimal {
	return t.TotalPrice.Round(2)
}
