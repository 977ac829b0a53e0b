package cart_test

import "github.com/nikolayk812/storefront/internal/domain"

// viewRecorder keeps the last state pushed to the view.
type viewRecorder struct {
	products   []domain.Product
	lines      map[string]int
	totals     domain.Totals
	panelOpen  bool
	addEnabled bool
}

func newViewRecorder() *viewRecorder {
	return &viewRecorder{lines: map[string]int{}}
}

func (v *viewRecorder) RenderCatalog(products []domain.Product) { v.products = products }
func (v *viewRecorder) EnableAddButtons()                       { v.addEnabled = true }
func (v *viewRecorder) DisableAddButtons()                      { v.addEnabled = false }
func (v *viewRecorder) RenderCartLine(item domain.CartItem)     { v.lines[item.ID] = item.Amount }
func (v *viewRecorder) RemoveCartLine(id string)                { delete(v.lines, id) }
func (v *viewRecorder) UpdateTotals(totals domain.Totals)       { v.totals = totals }
func (v *viewRecorder) ShowCartPanel()                          { v.panelOpen = true }
func (v *viewRecorder) HideCartPanel()                          { v.panelOpen = false }
