package domain

import "github.com/shopspring/decimal"

// Product is a catalog entry as normalized from the content service.
type Product struct {
	ID    string
	Title string
	Price decimal.Decimal
	Image string
}
