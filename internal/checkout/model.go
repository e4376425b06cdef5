package checkout

import (
	"time"

	"github.com/andreasstove999/storefront-go/internal/money"
)

// OrderItem is an immutable snapshot of one cart line, priced and named
// as the product was at checkout time.
type OrderItem struct {
	ProductID   string      `json:"productId"`
	ProductName string      `json:"productName"`
	UnitPrice   money.Cents `json:"unitPriceCents"`
	Quantity    int         `json:"quantity"`
}

// Order is append-only: once created its items, total, and timestamp
// never change, even if the catalog does.
type Order struct {
	ID            string      `json:"orderId"`
	SessionID     string      `json:"sessionId"`
	CustomerName  string      `json:"customerName"`
	CustomerEmail string      `json:"customerEmail"`
	Total         money.Cents `json:"totalCents"`
	Items         []OrderItem `json:"items"`
	CreatedAt     time.Time   `json:"createdAt"`
}
