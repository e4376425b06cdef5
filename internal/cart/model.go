package cart

import "github.com/andreasstove999/storefront-go/internal/money"

// Line is one cart row binding a session to a product. At most one line
// exists per (session, product) pair; repeated adds merge into it.
type Line struct {
	ID        string `json:"lineId"`
	SessionID string `json:"sessionId"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// ViewLine is a cart line joined with its product for display and pricing.
type ViewLine struct {
	Line
	ProductName string      `json:"productName"`
	UnitPrice   money.Cents `json:"unitPriceCents"`
	LineTotal   money.Cents `json:"lineTotalCents"`
}

// Cart is the derived view over a session's lines. It is never stored as
// its own row.
type Cart struct {
	SessionID string      `json:"sessionId"`
	Lines     []ViewLine  `json:"lines"`
	Total     money.Cents `json:"totalCents"`
}

// Empty reports whether the cart has no lines.
func (c *Cart) Empty() bool {
	return len(c.Lines) == 0
}
